package client

import (
	"context"
	"errors"
	"sync"

	domain "github.com/example/task-sync/domain/task"
)

// ErrNoOwner is returned by NewSession when no owner is given.
var ErrNoOwner = errors.New("session requires an owner")

// State is a point-in-time copy of a session.
type State struct {
	Snapshot  []domain.Task
	Pending   bool
	LastError error
}

// Session holds one user's cached snapshot. It is safe for concurrent use;
// responses are applied in the order they arrive.
type Session struct {
	owner   string
	gateway Gateway

	mu        sync.Mutex
	snapshot  []domain.Task
	inflight  int
	lastError error
}

// NewSession binds a session to owner and gateway. The snapshot starts empty
// until the first Refresh.
func NewSession(owner string, gateway Gateway) (*Session, error) {
	if owner == "" {
		return nil, ErrNoOwner
	}
	if gateway == nil {
		return nil, errors.New("session requires a gateway")
	}
	return &Session{
		owner:    owner,
		gateway:  gateway,
		snapshot: []domain.Task{},
	}, nil
}

// Owner returns the user the session acts for.
func (s *Session) Owner() string {
	return s.owner
}

// Refresh replaces the snapshot with the server's current list.
func (s *Session) Refresh(ctx context.Context) error {
	return s.apply(ctx, func(ctx context.Context) ([]domain.Task, error) {
		return s.gateway.List(ctx, s.owner)
	})
}

// Add creates a task.
func (s *Session) Add(ctx context.Context, in domain.CreateInput) error {
	return s.apply(ctx, func(ctx context.Context) ([]domain.Task, error) {
		return s.gateway.Create(ctx, s.owner, in)
	})
}

// Toggle flips the completion flag of task id.
func (s *Session) Toggle(ctx context.Context, id string) error {
	return s.apply(ctx, func(ctx context.Context) ([]domain.Task, error) {
		return s.gateway.Toggle(ctx, s.owner, id)
	})
}

// Edit applies patch to task id.
func (s *Session) Edit(ctx context.Context, id string, patch domain.Patch) error {
	return s.apply(ctx, func(ctx context.Context) ([]domain.Task, error) {
		return s.gateway.Update(ctx, s.owner, id, patch)
	})
}

// Delete removes task id.
func (s *Session) Delete(ctx context.Context, id string) error {
	return s.apply(ctx, func(ctx context.Context) ([]domain.Task, error) {
		return s.gateway.Delete(ctx, s.owner, id)
	})
}

// ClearCompleted removes every completed task.
func (s *Session) ClearCompleted(ctx context.Context) error {
	return s.apply(ctx, func(ctx context.Context) ([]domain.Task, error) {
		return s.gateway.ClearCompleted(ctx, s.owner)
	})
}

// Get reads a single task from the server. The snapshot is left as is; a
// failure is still recorded as the last error.
func (s *Session) Get(ctx context.Context, id string) (*domain.Task, error) {
	s.begin()
	t, err := s.gateway.Get(ctx, s.owner, id)
	if err == nil {
		err = ctx.Err()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.inflight--
	if err != nil {
		s.lastError = err
		return nil, err
	}
	return t, nil
}

// apply runs one list-returning call. On success the snapshot is replaced by
// a copy of the result; on failure it is left untouched and the error kept.
func (s *Session) apply(ctx context.Context, call func(context.Context) ([]domain.Task, error)) error {
	s.begin()
	tasks, err := call(ctx)
	if err == nil {
		// A reply that lands after cancellation is discarded.
		err = ctx.Err()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.inflight--
	if err != nil {
		s.lastError = err
		return err
	}
	s.snapshot = clone(tasks)
	s.lastError = nil
	return nil
}

func (s *Session) begin() {
	s.mu.Lock()
	s.inflight++
	s.lastError = nil
	s.mu.Unlock()
}

// Snapshot returns a copy of the cached list.
func (s *Session) Snapshot() []domain.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return clone(s.snapshot)
}

// Pending reports whether a call is in flight.
func (s *Session) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inflight > 0
}

// LastError returns the error of the most recent failed call, or nil once a
// later call has started.
func (s *Session) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastError
}

// ClearError drops the recorded error.
func (s *Session) ClearError() {
	s.mu.Lock()
	s.lastError = nil
	s.mu.Unlock()
}

// State returns a consistent copy of the whole session state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return State{
		Snapshot:  clone(s.snapshot),
		Pending:   s.inflight > 0,
		LastError: s.lastError,
	}
}

func clone(tasks []domain.Task) []domain.Task {
	out := make([]domain.Task, len(tasks))
	copy(out, tasks)
	return out
}
