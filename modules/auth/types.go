package auth

import (
	"time"
)

// RegisterRequest represents a user registration request.
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// RegisterResponse represents a user registration response.
type RegisterResponse struct {
	ID        string     `json:"id,omitempty"`
	Email     string     `json:"email,omitempty"`
	Name      string     `json:"name,omitempty"`
	CreatedAt time.Time  `json:"created_at,omitempty"`
	Error     *ErrorInfo `json:"error,omitempty"`
}

// LoginRequest represents a user login request.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// TokenResponse carries a token pair, from login or refresh.
type TokenResponse struct {
	AccessToken  string     `json:"access_token,omitempty"`
	RefreshToken string     `json:"refresh_token,omitempty"`
	ExpiresIn    int64      `json:"expires_in,omitempty"`
	TokenType    string     `json:"token_type,omitempty"`
	Error        *ErrorInfo `json:"error,omitempty"`
}

// RefreshRequest represents a token refresh request.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// ValidateTokenRequest represents a token validation request.
type ValidateTokenRequest struct {
	Token string `json:"token"`
}

// ValidateTokenResponse represents a token validation response.
type ValidateTokenResponse struct {
	Valid  bool       `json:"valid"`
	UserID string     `json:"user_id,omitempty"`
	Email  string     `json:"email,omitempty"`
	Error  *ErrorInfo `json:"error,omitempty"`
}

// GetUserRequest represents a get user request.
type GetUserRequest struct {
	UserID string `json:"user_id"`
}

// GetUserResponse represents a get user response.
type GetUserResponse struct {
	ID        string     `json:"id,omitempty"`
	Email     string     `json:"email,omitempty"`
	Name      string     `json:"name,omitempty"`
	CreatedAt time.Time  `json:"created_at,omitempty"`
	Error     *ErrorInfo `json:"error,omitempty"`
}

// ValidateUserRequest asks whether a user exists.
type ValidateUserRequest struct {
	UserID string `json:"user_id"`
}

// ValidateUserResponse answers a ValidateUserRequest.
type ValidateUserResponse struct {
	Valid bool       `json:"valid"`
	Error *ErrorInfo `json:"error,omitempty"`
}
