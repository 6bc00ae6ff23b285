package task

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	domain "github.com/example/task-sync/domain/task"
	"github.com/google/uuid"
)

// UserValidator answers whether an owner identifier names an existing user.
type UserValidator interface {
	ValidateUser(ctx context.Context, userID string) (bool, error)
}

// Notifier is told about every committed mutation.
type Notifier interface {
	TaskCreated(ctx context.Context, t domain.Task)
	TaskToggled(ctx context.Context, t domain.Task)
	TaskUpdated(ctx context.Context, t domain.Task, fields []string)
	TaskDeleted(ctx context.Context, owner, id string, at time.Time)
	CompletedCleared(ctx context.Context, owner string, removed int64, at time.Time)
}

// Store is the owner-scoped task store. Every mutation returns the owner's
// complete list, newest first.
type Store struct {
	repo   Repository
	users  UserValidator
	lists  *listCache
	notify Notifier
	clock  func() time.Time

	mu   sync.Mutex
	last time.Time
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithClock replaces time.Now as the timestamp source.
func WithClock(clock func() time.Time) StoreOption {
	return func(s *Store) {
		s.clock = clock
	}
}

// WithSnapshotCache enables cache-aside reads of owner lists.
func WithSnapshotCache(cache SnapshotCache) StoreOption {
	return func(s *Store) {
		if cache != nil {
			s.lists = newListCache(cache)
		}
	}
}

// WithNotifier sets the receiver of mutation notifications.
func WithNotifier(n Notifier) StoreOption {
	return func(s *Store) {
		if n != nil {
			s.notify = n
		}
	}
}

// NewStore creates a Store over repo, validating owners through users.
func NewStore(repo Repository, users UserValidator, opts ...StoreOption) *Store {
	s := &Store{
		repo:   repo,
		users:  users,
		notify: nopNotifier{},
		clock:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create validates the owner and the input, inserts the task and returns
// the owner's refreshed list.
func (s *Store) Create(ctx context.Context, owner string, in domain.CreateInput) ([]domain.Task, error) {
	if err := s.requireUser(ctx, owner); err != nil {
		return nil, err
	}

	title, err := domain.NormalizeTitle(in.Title)
	if err != nil {
		return nil, err
	}
	description, err := domain.NormalizeDescription(in.Description)
	if err != nil {
		return nil, err
	}

	now := s.timestamp()
	t := domain.Task{
		ID:          uuid.New().String(),
		UserID:      owner,
		Title:       title,
		Description: description,
		Completed:   in.Completed != nil && *in.Completed,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	tasks, err := s.repo.Insert(ctx, &t)
	if err != nil {
		return nil, storeErr("create task", err)
	}

	s.lists.invalidate(ctx, owner)
	s.notify.TaskCreated(ctx, t)
	return tasks, nil
}

// List returns every task of owner, newest first.
func (s *Store) List(ctx context.Context, owner string) ([]domain.Task, error) {
	if err := s.requireUser(ctx, owner); err != nil {
		return nil, err
	}

	tasks, err := s.lists.load(ctx, owner, func(ctx context.Context) ([]domain.Task, error) {
		return s.repo.ListByOwner(ctx, owner)
	})
	if err != nil {
		return nil, storeErr("list tasks", err)
	}
	return tasks, nil
}

// Get returns a single task of owner.
func (s *Store) Get(ctx context.Context, owner, id string) (*domain.Task, error) {
	t, err := s.repo.FindOwned(ctx, owner, id)
	if err != nil {
		return nil, storeErr("get task", err)
	}
	return t, nil
}

// ToggleComplete flips the completion flag of an owned task.
func (s *Store) ToggleComplete(ctx context.Context, owner, id string) ([]domain.Task, error) {
	tasks, err := s.repo.Toggle(ctx, owner, id, s.timestamp())
	if err != nil {
		return nil, storeErr("toggle task", err)
	}

	s.lists.invalidate(ctx, owner)
	if t, ok := findTask(tasks, id); ok {
		s.notify.TaskToggled(ctx, t)
	}
	return tasks, nil
}

// Update applies the fields present in patch to an owned task.
func (s *Store) Update(ctx context.Context, owner, id string, patch domain.Patch) ([]domain.Task, error) {
	if patch.IsEmpty() {
		return nil, fmt.Errorf("%w: patch has no fields", domain.ErrInvalidInput)
	}

	var fields []string
	if patch.Title != nil {
		title, err := domain.NormalizeTitle(*patch.Title)
		if err != nil {
			return nil, err
		}
		patch.Title = &title
		fields = append(fields, "title")
	}
	if patch.Description != nil {
		description, err := domain.NormalizeDescription(*patch.Description)
		if err != nil {
			return nil, err
		}
		patch.Description = &description
		fields = append(fields, "description")
	}
	if patch.Completed != nil {
		fields = append(fields, "completed")
	}

	tasks, err := s.repo.Patch(ctx, owner, id, patch, s.timestamp())
	if err != nil {
		return nil, storeErr("update task", err)
	}

	s.lists.invalidate(ctx, owner)
	if t, ok := findTask(tasks, id); ok {
		s.notify.TaskUpdated(ctx, t, fields)
	}
	return tasks, nil
}

// Delete removes an owned task.
func (s *Store) Delete(ctx context.Context, owner, id string) ([]domain.Task, error) {
	tasks, err := s.repo.Remove(ctx, owner, id)
	if err != nil {
		return nil, storeErr("delete task", err)
	}

	s.lists.invalidate(ctx, owner)
	s.notify.TaskDeleted(ctx, owner, id, s.clock().UTC())
	return tasks, nil
}

// ClearCompleted removes every completed task of owner. Matching nothing is
// not an error.
func (s *Store) ClearCompleted(ctx context.Context, owner string) ([]domain.Task, error) {
	removed, tasks, err := s.repo.RemoveCompleted(ctx, owner)
	if err != nil {
		return nil, storeErr("clear completed tasks", err)
	}

	if removed > 0 {
		s.lists.invalidate(ctx, owner)
	}
	s.notify.CompletedCleared(ctx, owner, removed, s.clock().UTC())
	return tasks, nil
}

// Ping checks the backing store.
func (s *Store) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

func (s *Store) requireUser(ctx context.Context, owner string) error {
	if owner == "" {
		return domain.ErrUserNotFound
	}
	ok, err := s.users.ValidateUser(ctx, owner)
	if err != nil {
		return storeErr("validate user", err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrUserNotFound, owner)
	}
	return nil
}

// timestamp returns a strictly increasing UTC time at microsecond precision,
// so creation order and list order agree on every backend.
func (s *Store) timestamp() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock().UTC().Truncate(time.Microsecond)
	if !now.After(s.last) {
		now = s.last.Add(time.Microsecond)
	}
	s.last = now
	return now
}

func storeErr(op string, err error) error {
	switch {
	case errors.Is(err, domain.ErrTaskNotFound),
		errors.Is(err, domain.ErrUserNotFound),
		errors.Is(err, domain.ErrStoreUnavailable),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%s: %w", op, err)
	default:
		return fmt.Errorf("%s: %w: %v", op, domain.ErrStoreUnavailable, err)
	}
}

func findTask(tasks []domain.Task, id string) (domain.Task, bool) {
	for _, t := range tasks {
		if t.ID == id {
			return t, true
		}
	}
	return domain.Task{}, false
}

type nopNotifier struct{}

func (nopNotifier) TaskCreated(context.Context, domain.Task) {}
func (nopNotifier) TaskToggled(context.Context, domain.Task) {}
func (nopNotifier) TaskUpdated(context.Context, domain.Task, []string) {}
func (nopNotifier) TaskDeleted(context.Context, string, string, time.Time) {}
func (nopNotifier) CompletedCleared(context.Context, string, int64, time.Time) {}
