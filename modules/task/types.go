package task

import (
	"context"

	domain "github.com/example/task-sync/domain/task"
)

// CreateTaskRequest is the request for the create-task service.
type CreateTaskRequest struct {
	UserID      string `json:"user_id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Completed   *bool  `json:"completed,omitempty"`
}

// ListTasksRequest is the request for the list-tasks service.
type ListTasksRequest struct {
	UserID string `json:"user_id"`
}

// GetTaskRequest is the request for the get-task service.
type GetTaskRequest struct {
	UserID string `json:"user_id"`
	TaskID string `json:"task_id"`
}

// ToggleTaskRequest is the request for the toggle-task service.
type ToggleTaskRequest struct {
	UserID string `json:"user_id"`
	TaskID string `json:"task_id"`
}

// UpdateTaskRequest is the request for the update-task service. Absent
// fields are left unchanged.
type UpdateTaskRequest struct {
	UserID      string  `json:"user_id"`
	TaskID      string  `json:"task_id"`
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Completed   *bool   `json:"completed,omitempty"`
}

// DeleteTaskRequest is the request for the delete-task service.
type DeleteTaskRequest struct {
	UserID string `json:"user_id"`
	TaskID string `json:"task_id"`
}

// ClearCompletedRequest is the request for the clear-completed service.
type ClearCompletedRequest struct {
	UserID string `json:"user_id"`
}

// TaskListResponse carries the owner's full list, or the reason it could
// not be produced.
type TaskListResponse struct {
	Tasks []domain.Task     `json:"tasks"`
	Error *domain.ErrorInfo `json:"error,omitempty"`
}

// TaskResponse carries a single task, or the reason it could not be read.
type TaskResponse struct {
	Task  *domain.Task      `json:"task,omitempty"`
	Error *domain.ErrorInfo `json:"error,omitempty"`
}

// TaskPort defines the task operations available to other modules (hexagonal port).
// Errors returned by its methods match the sentinels in domain/task.
type TaskPort interface {
	List(ctx context.Context, owner string) ([]domain.Task, error)
	Create(ctx context.Context, owner string, in domain.CreateInput) ([]domain.Task, error)
	Get(ctx context.Context, owner, id string) (*domain.Task, error)
	Toggle(ctx context.Context, owner, id string) ([]domain.Task, error)
	Update(ctx context.Context, owner, id string, patch domain.Patch) ([]domain.Task, error)
	Delete(ctx context.Context, owner, id string) ([]domain.Task, error)
	ClearCompleted(ctx context.Context, owner string) ([]domain.Task, error)
}
