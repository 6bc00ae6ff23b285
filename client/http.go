package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	domain "github.com/example/task-sync/domain/task"
	user "github.com/example/task-sync/domain/user"
)

const defaultTimeout = 10 * time.Second

var (
	// ErrUnauthorized is returned when the server rejects the credentials or token.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden is returned when the token belongs to another user.
	ErrForbidden = errors.New("forbidden")
	// ErrConflict is returned when registering an email that is already taken.
	ErrConflict = errors.New("conflict")
	// ErrRateLimited is returned on HTTP 429.
	ErrRateLimited = errors.New("rate limited")
)

// APIError is a failure reported by the server's error envelope. It unwraps
// to the matching sentinel so errors.Is works across the network.
type APIError struct {
	Status  int
	Code    string
	Message string
	err     error
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s (HTTP %d)", e.Code, e.Status)
	}
	return fmt.Sprintf("%s: %s (HTTP %d)", e.Code, e.Message, e.Status)
}

func (e *APIError) Unwrap() error { return e.err }

// Account is a registered user as returned by the server.
type Account struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// HTTPGateway implements Gateway against the REST API.
type HTTPGateway struct {
	baseURL string
	token   string
	client  *http.Client
}

var _ Gateway = (*HTTPGateway)(nil)

// Option configures an HTTPGateway.
type Option func(*HTTPGateway)

// WithToken sets the bearer access token.
func WithToken(token string) Option {
	return func(g *HTTPGateway) { g.token = token }
}

// WithHTTPClient replaces the underlying client.
func WithHTTPClient(c *http.Client) Option {
	return func(g *HTTPGateway) { g.client = c }
}

// NewHTTPGateway creates a gateway for the server at baseURL, for example
// http://localhost:3000.
func NewHTTPGateway(baseURL string, opts ...Option) *HTTPGateway {
	g := &HTTPGateway{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

type listEnvelope struct {
	Data []domain.Task `json:"data"`
}

type taskEnvelope struct {
	Data *domain.Task `json:"data"`
}

type errorEnvelope struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Register creates an account. It does not need a token.
func (g *HTTPGateway) Register(ctx context.Context, email, password, name string) (*Account, error) {
	body := map[string]string{"email": email, "password": password, "name": name}
	var acct Account
	if err := g.do(ctx, http.MethodPost, "/api/v1/auth/register", body, &acct); err != nil {
		return nil, err
	}
	return &acct, nil
}

// Login exchanges credentials for a token pair.
func (g *HTTPGateway) Login(ctx context.Context, email, password string) (*user.TokenPair, error) {
	body := map[string]string{"email": email, "password": password}
	var pair user.TokenPair
	if err := g.do(ctx, http.MethodPost, "/api/v1/auth/login", body, &pair); err != nil {
		return nil, err
	}
	return &pair, nil
}

// Refresh exchanges a refresh token for a new token pair.
func (g *HTTPGateway) Refresh(ctx context.Context, refreshToken string) (*user.TokenPair, error) {
	body := map[string]string{"refresh_token": refreshToken}
	var pair user.TokenPair
	if err := g.do(ctx, http.MethodPost, "/api/v1/auth/refresh", body, &pair); err != nil {
		return nil, err
	}
	return &pair, nil
}

func (g *HTTPGateway) List(ctx context.Context, owner string) ([]domain.Task, error) {
	return g.list(ctx, http.MethodGet, tasksPath(owner), nil)
}

func (g *HTTPGateway) Create(ctx context.Context, owner string, in domain.CreateInput) ([]domain.Task, error) {
	return g.list(ctx, http.MethodPost, tasksPath(owner), in)
}

func (g *HTTPGateway) Get(ctx context.Context, owner, id string) (*domain.Task, error) {
	var env taskEnvelope
	if err := g.do(ctx, http.MethodGet, taskPath(owner, id), nil, &env); err != nil {
		return nil, err
	}
	if env.Data == nil {
		return nil, domain.ErrTaskNotFound
	}
	return env.Data, nil
}

func (g *HTTPGateway) Toggle(ctx context.Context, owner, id string) ([]domain.Task, error) {
	return g.list(ctx, http.MethodPut, taskPath(owner, id)+"/toggle", nil)
}

func (g *HTTPGateway) Update(ctx context.Context, owner, id string, patch domain.Patch) ([]domain.Task, error) {
	return g.list(ctx, http.MethodPatch, taskPath(owner, id), patch)
}

func (g *HTTPGateway) Delete(ctx context.Context, owner, id string) ([]domain.Task, error) {
	return g.list(ctx, http.MethodDelete, taskPath(owner, id), nil)
}

func (g *HTTPGateway) ClearCompleted(ctx context.Context, owner string) ([]domain.Task, error) {
	return g.list(ctx, http.MethodDelete, tasksPath(owner)+"/completed", nil)
}

func tasksPath(owner string) string {
	return "/api/v1/users/" + url.PathEscape(owner) + "/tasks"
}

func taskPath(owner, id string) string {
	return tasksPath(owner) + "/" + url.PathEscape(id)
}

func (g *HTTPGateway) list(ctx context.Context, method, path string, body any) ([]domain.Task, error) {
	var env listEnvelope
	if err := g.do(ctx, method, path, body, &env); err != nil {
		return nil, err
	}
	if env.Data == nil {
		return []domain.Task{}, nil
	}
	return env.Data, nil
}

func (g *HTTPGateway) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if g.token != "" {
		req.Header.Set("Authorization", "Bearer "+g.token)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return decodeError(resp.StatusCode, data)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func decodeError(status int, data []byte) error {
	var env errorEnvelope
	if err := json.Unmarshal(data, &env); err != nil || env.Error == "" {
		env.Error = strings.ToLower(strings.ReplaceAll(http.StatusText(status), " ", "_"))
		env.Message = strings.TrimSpace(string(data))
	}
	return &APIError{
		Status:  status,
		Code:    env.Error,
		Message: env.Message,
		err:     sentinelFor(status, env.Error, env.Message),
	}
}

func sentinelFor(status int, code, message string) error {
	switch code {
	case domain.CodeUserNotFound, domain.CodeTaskNotFound, domain.CodeInvalidInput, domain.CodeStoreUnavailable:
		return domain.FromCode(code, message)
	}
	switch status {
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusConflict:
		return ErrConflict
	case http.StatusTooManyRequests:
		return ErrRateLimited
	case http.StatusBadRequest:
		return domain.ErrInvalidInput
	case http.StatusGatewayTimeout:
		return context.DeadlineExceeded
	}
	return nil
}
