// Package client keeps a per-user cached snapshot of tasks convergent with
// the server. Every mutation goes through a Gateway and the snapshot is
// replaced wholesale by the list the server returns.
package client

import (
	"context"

	domain "github.com/example/task-sync/domain/task"
)

// Gateway is the network boundary to the task store. Every mutation returns
// the owner's complete list, newest first.
type Gateway interface {
	List(ctx context.Context, owner string) ([]domain.Task, error)
	Create(ctx context.Context, owner string, in domain.CreateInput) ([]domain.Task, error)
	Get(ctx context.Context, owner, id string) (*domain.Task, error)
	Toggle(ctx context.Context, owner, id string) ([]domain.Task, error)
	Update(ctx context.Context, owner, id string, patch domain.Patch) ([]domain.Task, error)
	Delete(ctx context.Context, owner, id string) ([]domain.Task, error)
	ClearCompleted(ctx context.Context, owner string) ([]domain.Task, error)
}
