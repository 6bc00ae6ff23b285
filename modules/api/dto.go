package api

import (
	"time"

	"github.com/example/task-sync/client/view"
	domain "github.com/example/task-sync/domain/task"
	"github.com/example/task-sync/modules/activity"
)

// RegisterRequest is the body of POST /auth/register.
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RefreshRequest is the body of POST /auth/refresh.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// UserResponse describes a registered account.
type UserResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateTaskRequest is the body of POST /users/:userId/tasks.
type CreateTaskRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Completed   *bool  `json:"completed,omitempty"`
}

// UpdateTaskRequest is the body of PATCH /users/:userId/tasks/:taskId.
// Absent fields are left unchanged.
type UpdateTaskRequest struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Completed   *bool   `json:"completed,omitempty"`
}

// TaskListResponse carries the owner's full list.
type TaskListResponse struct {
	Data    []domain.Task `json:"data"`
	Stats   *view.Summary `json:"stats,omitempty"`
	Message string        `json:"message,omitempty"`
}

// TaskResponse carries a single task.
type TaskResponse struct {
	Data *domain.Task `json:"data"`
}

// ActivityResponse carries an activity summary.
type ActivityResponse struct {
	Data *activity.Summary `json:"data"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status  string         `json:"status"`
	Details map[string]any `json:"details,omitempty"`
}

// ErrorResponse is the error envelope of every endpoint.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
