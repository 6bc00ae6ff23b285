package task

import (
	"context"
	"encoding/json"
	"fmt"

	domain "github.com/example/task-sync/domain/task"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
)

// taskAdapter wraps ServiceContainer for type-safe cross-module communication.
// This is the adapter that implements the TaskPort interface.
type taskAdapter struct {
	container mono.ServiceContainer
}

var _ TaskPort = (*taskAdapter)(nil)

// NewTaskAdapter creates a new adapter for task services.
// container is the ServiceContainer from the task module received via SetDependencyServiceContainer.
func NewTaskAdapter(container mono.ServiceContainer) TaskPort {
	if container == nil {
		panic("task adapter requires non-nil ServiceContainer")
	}
	return &taskAdapter{container: container}
}

func (a *taskAdapter) List(ctx context.Context, owner string) ([]domain.Task, error) {
	return a.callList(ctx, "list-tasks", &ListTasksRequest{UserID: owner})
}

func (a *taskAdapter) Create(ctx context.Context, owner string, in domain.CreateInput) ([]domain.Task, error) {
	return a.callList(ctx, "create-task", &CreateTaskRequest{
		UserID:      owner,
		Title:       in.Title,
		Description: in.Description,
		Completed:   in.Completed,
	})
}

func (a *taskAdapter) Get(ctx context.Context, owner, id string) (*domain.Task, error) {
	req := GetTaskRequest{UserID: owner, TaskID: id}
	var resp TaskResponse
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		"get-task",
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return nil, fmt.Errorf("get-task service call failed: %w", err)
	}
	return taskResult(resp)
}

func (a *taskAdapter) Toggle(ctx context.Context, owner, id string) ([]domain.Task, error) {
	return a.callList(ctx, "toggle-task", &ToggleTaskRequest{UserID: owner, TaskID: id})
}

func (a *taskAdapter) Update(ctx context.Context, owner, id string, patch domain.Patch) ([]domain.Task, error) {
	return a.callList(ctx, "update-task", &UpdateTaskRequest{
		UserID:      owner,
		TaskID:      id,
		Title:       patch.Title,
		Description: patch.Description,
		Completed:   patch.Completed,
	})
}

func (a *taskAdapter) Delete(ctx context.Context, owner, id string) ([]domain.Task, error) {
	return a.callList(ctx, "delete-task", &DeleteTaskRequest{UserID: owner, TaskID: id})
}

func (a *taskAdapter) ClearCompleted(ctx context.Context, owner string) ([]domain.Task, error) {
	return a.callList(ctx, "clear-completed", &ClearCompletedRequest{UserID: owner})
}

func (a *taskAdapter) callList(ctx context.Context, service string, req any) ([]domain.Task, error) {
	var resp TaskListResponse
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		service,
		json.Marshal,
		json.Unmarshal,
		req,
		&resp,
	); err != nil {
		return nil, fmt.Errorf("%s service call failed: %w", service, err)
	}
	return listResult(resp)
}

// listResult turns a list reply back into a value or a sentinel-wrapped error.
func listResult(resp TaskListResponse) ([]domain.Task, error) {
	if resp.Error != nil {
		return nil, resp.Error.Err()
	}
	if resp.Tasks == nil {
		return []domain.Task{}, nil
	}
	return resp.Tasks, nil
}

func taskResult(resp TaskResponse) (*domain.Task, error) {
	if resp.Error != nil {
		return nil, resp.Error.Err()
	}
	if resp.Task == nil {
		return nil, domain.ErrTaskNotFound
	}
	return resp.Task, nil
}
