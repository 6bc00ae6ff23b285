package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
)

// Config configures the auth module.
type Config struct {
	DBPath        string
	JWT           JWTConfig
	BcryptCost    int
	SeedDemoUsers bool
}

// AuthModule provides accounts, credentials and the user existence check
// used by the task store.
type AuthModule struct {
	config  Config
	repo    *UserRepository
	service *AuthService
}

// Compile-time interface checks.
var _ mono.Module = (*AuthModule)(nil)
var _ mono.ServiceProviderModule = (*AuthModule)(nil)
var _ mono.HealthCheckableModule = (*AuthModule)(nil)

// NewModule creates a new AuthModule.
func NewModule(config Config) *AuthModule {
	if config.DBPath == "" {
		config.DBPath = "auth.db"
	}
	if config.JWT.SecretKey == "" {
		config.JWT = DefaultJWTConfig()
	}
	if config.BcryptCost == 0 {
		config.BcryptCost = DefaultBcryptCost
	}
	return &AuthModule{config: config}
}

// Name returns the module name.
func (m *AuthModule) Name() string {
	return "auth"
}

// Start opens the user database and seeds demo users when enabled.
func (m *AuthModule) Start(ctx context.Context) error {
	db, err := OpenUserDB(m.config.DBPath)
	if err != nil {
		return err
	}
	m.repo = NewUserRepository(db)
	m.service = NewAuthService(m.repo, NewPasswordHasherWithCost(m.config.BcryptCost), NewJWTManager(m.config.JWT))

	if m.config.SeedDemoUsers {
		if err := m.service.SeedDemoUsers(ctx); err != nil {
			return err
		}
	}

	log.Printf("[auth] Module started (database: %s)", m.config.DBPath)
	return nil
}

// Stop closes the user database.
func (m *AuthModule) Stop(_ context.Context) error {
	if m.repo != nil {
		if err := m.repo.Close(); err != nil {
			log.Printf("[auth] Error closing database: %v", err)
		}
	}
	log.Println("[auth] Module stopped")
	return nil
}

// Health returns the health status of the module.
func (m *AuthModule) Health(ctx context.Context) mono.HealthStatus {
	if m.repo == nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: "database not initialized",
		}
	}

	if err := m.repo.Ping(ctx); err != nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: fmt.Sprintf("database ping failed: %v", err),
		}
	}

	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"database": m.config.DBPath,
		},
	}
}

// RegisterServices registers request-reply services in the service container.
func (m *AuthModule) RegisterServices(container mono.ServiceContainer) error {
	if err := helper.RegisterTypedRequestReplyService(
		container, "register", json.Unmarshal, json.Marshal, m.handleRegister,
	); err != nil {
		return fmt.Errorf("failed to register register service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "login", json.Unmarshal, json.Marshal, m.handleLogin,
	); err != nil {
		return fmt.Errorf("failed to register login service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "refresh-token", json.Unmarshal, json.Marshal, m.handleRefresh,
	); err != nil {
		return fmt.Errorf("failed to register refresh-token service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "validate-token", json.Unmarshal, json.Marshal, m.handleValidateToken,
	); err != nil {
		return fmt.Errorf("failed to register validate-token service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "get-user", json.Unmarshal, json.Marshal, m.handleGetUser,
	); err != nil {
		return fmt.Errorf("failed to register get-user service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "validate-user", json.Unmarshal, json.Marshal, m.handleValidateUser,
	); err != nil {
		return fmt.Errorf("failed to register validate-user service: %w", err)
	}

	log.Printf("[auth] Registered services: register, login, refresh-token, validate-token, get-user, validate-user")
	return nil
}

// Account and credential failures are returned inside the reply.

func (m *AuthModule) handleRegister(ctx context.Context, req RegisterRequest, _ *mono.Msg) (RegisterResponse, error) {
	user, err := m.service.Register(ctx, req.Email, req.Password, req.Name)
	if err != nil {
		return RegisterResponse{Error: toErrorInfo(err)}, nil
	}
	return RegisterResponse{
		ID:        user.ID,
		Email:     user.Email,
		Name:      user.Name,
		CreatedAt: user.CreatedAt,
	}, nil
}

func (m *AuthModule) handleLogin(ctx context.Context, req LoginRequest, _ *mono.Msg) (TokenResponse, error) {
	tokens, err := m.service.Login(ctx, req.Email, req.Password)
	if err != nil {
		return TokenResponse{Error: toErrorInfo(err)}, nil
	}
	return tokenResponse(tokens.AccessToken, tokens.RefreshToken, tokens.ExpiresIn, tokens.TokenType), nil
}

func (m *AuthModule) handleRefresh(ctx context.Context, req RefreshRequest, _ *mono.Msg) (TokenResponse, error) {
	tokens, err := m.service.RefreshTokens(ctx, req.RefreshToken)
	if err != nil {
		return TokenResponse{Error: toErrorInfo(err)}, nil
	}
	return tokenResponse(tokens.AccessToken, tokens.RefreshToken, tokens.ExpiresIn, tokens.TokenType), nil
}

func (m *AuthModule) handleValidateToken(ctx context.Context, req ValidateTokenRequest, _ *mono.Msg) (ValidateTokenResponse, error) {
	claims, err := m.service.ValidateToken(ctx, req.Token)
	if err != nil {
		return ValidateTokenResponse{Valid: false, Error: toErrorInfo(err)}, nil
	}
	return ValidateTokenResponse{
		Valid:  true,
		UserID: claims.UserID,
		Email:  claims.Email,
	}, nil
}

func (m *AuthModule) handleGetUser(ctx context.Context, req GetUserRequest, _ *mono.Msg) (GetUserResponse, error) {
	user, err := m.service.GetUser(ctx, req.UserID)
	if err != nil {
		return GetUserResponse{Error: toErrorInfo(err)}, nil
	}
	return GetUserResponse{
		ID:        user.ID,
		Email:     user.Email,
		Name:      user.Name,
		CreatedAt: user.CreatedAt,
	}, nil
}

func (m *AuthModule) handleValidateUser(ctx context.Context, req ValidateUserRequest, _ *mono.Msg) (ValidateUserResponse, error) {
	exists, err := m.service.UserExists(ctx, req.UserID)
	if err != nil {
		return ValidateUserResponse{Error: toErrorInfo(err)}, nil
	}
	return ValidateUserResponse{Valid: exists}, nil
}

func tokenResponse(access, refresh string, expiresIn int64, tokenType string) TokenResponse {
	return TokenResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    expiresIn,
		TokenType:    tokenType,
	}
}
