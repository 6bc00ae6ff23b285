package task

import (
	"context"

	domain "github.com/example/task-sync/domain/task"
	"github.com/go-monolith/mono"
)

// Domain failures are returned inside the reply so the caller can tell
// them apart from transport failures.

func (m *TaskModule) createTask(ctx context.Context, req CreateTaskRequest, _ *mono.Msg) (TaskListResponse, error) {
	tasks, err := m.store.Create(ctx, req.UserID, domain.CreateInput{
		Title:       req.Title,
		Description: req.Description,
		Completed:   req.Completed,
	})
	return listReply(tasks, err), nil
}

func (m *TaskModule) listTasks(ctx context.Context, req ListTasksRequest, _ *mono.Msg) (TaskListResponse, error) {
	tasks, err := m.store.List(ctx, req.UserID)
	return listReply(tasks, err), nil
}

func (m *TaskModule) getTask(ctx context.Context, req GetTaskRequest, _ *mono.Msg) (TaskResponse, error) {
	t, err := m.store.Get(ctx, req.UserID, req.TaskID)
	if err != nil {
		return TaskResponse{Error: domain.ToErrorInfo(err)}, nil
	}
	return TaskResponse{Task: t}, nil
}

func (m *TaskModule) toggleTask(ctx context.Context, req ToggleTaskRequest, _ *mono.Msg) (TaskListResponse, error) {
	tasks, err := m.store.ToggleComplete(ctx, req.UserID, req.TaskID)
	return listReply(tasks, err), nil
}

func (m *TaskModule) updateTask(ctx context.Context, req UpdateTaskRequest, _ *mono.Msg) (TaskListResponse, error) {
	tasks, err := m.store.Update(ctx, req.UserID, req.TaskID, domain.Patch{
		Title:       req.Title,
		Description: req.Description,
		Completed:   req.Completed,
	})
	return listReply(tasks, err), nil
}

func (m *TaskModule) deleteTask(ctx context.Context, req DeleteTaskRequest, _ *mono.Msg) (TaskListResponse, error) {
	tasks, err := m.store.Delete(ctx, req.UserID, req.TaskID)
	return listReply(tasks, err), nil
}

func (m *TaskModule) clearCompleted(ctx context.Context, req ClearCompletedRequest, _ *mono.Msg) (TaskListResponse, error) {
	tasks, err := m.store.ClearCompleted(ctx, req.UserID)
	return listReply(tasks, err), nil
}

func listReply(tasks []domain.Task, err error) TaskListResponse {
	if err != nil {
		return TaskListResponse{Error: domain.ToErrorInfo(err)}
	}
	if tasks == nil {
		tasks = []domain.Task{}
	}
	return TaskListResponse{Tasks: tasks}
}
