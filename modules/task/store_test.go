package task

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	domain "github.com/example/task-sync/domain/task"
)

type stubUsers map[string]bool

func (s stubUsers) ValidateUser(_ context.Context, userID string) (bool, error) {
	return s[userID], nil
}

type failingUsers struct{ err error }

func (f failingUsers) ValidateUser(context.Context, string) (bool, error) {
	return false, f.err
}

// recordingNotifier captures notifications for assertions.
type recordingNotifier struct {
	mu      sync.Mutex
	created []domain.Task
	toggled []domain.Task
	updated [][]string
	deleted []string
	cleared []int64
}

func (r *recordingNotifier) TaskCreated(_ context.Context, t domain.Task) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.created = append(r.created, t)
}

func (r *recordingNotifier) TaskToggled(_ context.Context, t domain.Task) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.toggled = append(r.toggled, t)
}

func (r *recordingNotifier) TaskUpdated(_ context.Context, _ domain.Task, fields []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updated = append(r.updated, fields)
}

func (r *recordingNotifier) TaskDeleted(_ context.Context, _, id string, _ time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deleted = append(r.deleted, id)
}

func (r *recordingNotifier) CompletedCleared(_ context.Context, _ string, removed int64, _ time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cleared = append(r.cleared, removed)
}

// setupTestStore creates a Store over an in-memory SQLite database that
// knows the given users. The clock is frozen so ordering relies on the
// store's own tie breaking.
func setupTestStore(t *testing.T, users ...string) *Store {
	t.Helper()
	return setupTestStoreWith(t, stubUsers(known(users)))
}

func setupTestStoreWith(t *testing.T, validator UserValidator, opts ...StoreOption) *Store {
	t.Helper()

	db, err := OpenSQLite(":memory:", false)
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	repo := NewGormRepository(db)
	t.Cleanup(func() { repo.Close() })

	frozen := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	opts = append([]StoreOption{WithClock(func() time.Time { return frozen })}, opts...)
	return NewStore(repo, validator, opts...)
}

func known(ids []string) map[string]bool {
	m := make(map[string]bool, len(ids))
	for _, id := range ids {
		m[id] = true
	}
	return m
}

func boolPtr(b bool) *bool    { return &b }
func strPtr(s string) *string { return &s }

func mustCreate(t *testing.T, s *Store, owner, title string) []domain.Task {
	t.Helper()
	tasks, err := s.Create(context.Background(), owner, domain.CreateInput{Title: title})
	if err != nil {
		t.Fatalf("Create(%q) error = %v", title, err)
	}
	return tasks
}

func titles(tasks []domain.Task) []string {
	out := make([]string, len(tasks))
	for i, t := range tasks {
		out[i] = t.Title
	}
	return out
}

func TestStore_Create(t *testing.T) {
	s := setupTestStore(t, "alice")
	ctx := context.Background()

	t.Run("trims and defaults", func(t *testing.T) {
		tasks, err := s.Create(ctx, "alice", domain.CreateInput{
			Title:       "  Buy milk  ",
			Description: "  two litres ",
		})
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		if len(tasks) != 1 {
			t.Fatalf("expected 1 task, got %d", len(tasks))
		}
		got := tasks[0]
		if got.Title != "Buy milk" {
			t.Errorf("expected trimmed title, got %q", got.Title)
		}
		if got.Description != "two litres" {
			t.Errorf("expected trimmed description, got %q", got.Description)
		}
		if got.Completed {
			t.Error("expected completed to default to false")
		}
		if got.ID == "" || got.UserID != "alice" {
			t.Errorf("unexpected identity fields: id=%q user=%q", got.ID, got.UserID)
		}
		if !got.CreatedAt.Equal(got.UpdatedAt) {
			t.Errorf("expected created_at == updated_at on create, got %v and %v", got.CreatedAt, got.UpdatedAt)
		}
	})

	t.Run("completed flag honoured", func(t *testing.T) {
		tasks, err := s.Create(ctx, "alice", domain.CreateInput{Title: "done already", Completed: boolPtr(true)})
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		if !tasks[0].Completed {
			t.Error("expected newest task to be completed")
		}
	})

	t.Run("unknown owner", func(t *testing.T) {
		_, err := s.Create(ctx, "mallory", domain.CreateInput{Title: "x"})
		if !errors.Is(err, domain.ErrUserNotFound) {
			t.Errorf("expected ErrUserNotFound, got %v", err)
		}
	})

	t.Run("invalid titles", func(t *testing.T) {
		for _, title := range []string{"", "   ", strings.Repeat("x", 201)} {
			_, err := s.Create(ctx, "alice", domain.CreateInput{Title: title})
			if !errors.Is(err, domain.ErrInvalidInput) {
				t.Errorf("Create(%q) expected ErrInvalidInput, got %v", title, err)
			}
		}
	})

	t.Run("title at the bound", func(t *testing.T) {
		if _, err := s.Create(ctx, "alice", domain.CreateInput{Title: strings.Repeat("x", 200)}); err != nil {
			t.Errorf("Create() with 200 characters error = %v", err)
		}
	})
}

func TestStore_NewestFirst(t *testing.T) {
	s := setupTestStore(t, "alice")

	mustCreate(t, s, "alice", "first")
	mustCreate(t, s, "alice", "second")
	tasks := mustCreate(t, s, "alice", "third")

	want := []string{"third", "second", "first"}
	got := titles(tasks)
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected order %v, got %v", want, got)
		}
	}
	for i := 1; i < len(tasks); i++ {
		if !tasks[i-1].CreatedAt.After(tasks[i].CreatedAt) {
			t.Errorf("created_at not strictly descending at %d: %v then %v", i, tasks[i-1].CreatedAt, tasks[i].CreatedAt)
		}
	}
}

func TestStore_List(t *testing.T) {
	s := setupTestStore(t, "alice", "bob")
	ctx := context.Background()

	t.Run("empty list is not nil", func(t *testing.T) {
		tasks, err := s.List(ctx, "bob")
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if tasks == nil || len(tasks) != 0 {
			t.Errorf("expected empty non-nil list, got %#v", tasks)
		}
	})

	t.Run("unknown owner", func(t *testing.T) {
		_, err := s.List(ctx, "nobody")
		if !errors.Is(err, domain.ErrUserNotFound) {
			t.Errorf("expected ErrUserNotFound, got %v", err)
		}
	})

	t.Run("empty owner", func(t *testing.T) {
		_, err := s.List(ctx, "")
		if !errors.Is(err, domain.ErrUserNotFound) {
			t.Errorf("expected ErrUserNotFound, got %v", err)
		}
	})
}

func TestStore_OwnershipIsolation(t *testing.T) {
	s := setupTestStore(t, "alice", "bob")
	ctx := context.Background()

	aliceTask := mustCreate(t, s, "alice", "alice's task")[0]
	mustCreate(t, s, "bob", "bob's task")

	bobList, err := s.List(ctx, "bob")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	for _, task := range bobList {
		if task.UserID != "bob" {
			t.Errorf("bob's list contains a task owned by %q", task.UserID)
		}
	}

	if _, err := s.Get(ctx, "bob", aliceTask.ID); !errors.Is(err, domain.ErrTaskNotFound) {
		t.Errorf("Get() by other owner expected ErrTaskNotFound, got %v", err)
	}
	if _, err := s.ToggleComplete(ctx, "bob", aliceTask.ID); !errors.Is(err, domain.ErrTaskNotFound) {
		t.Errorf("ToggleComplete() by other owner expected ErrTaskNotFound, got %v", err)
	}
	if _, err := s.Update(ctx, "bob", aliceTask.ID, domain.Patch{Title: strPtr("hijacked")}); !errors.Is(err, domain.ErrTaskNotFound) {
		t.Errorf("Update() by other owner expected ErrTaskNotFound, got %v", err)
	}
	if _, err := s.Delete(ctx, "bob", aliceTask.ID); !errors.Is(err, domain.ErrTaskNotFound) {
		t.Errorf("Delete() by other owner expected ErrTaskNotFound, got %v", err)
	}

	got, err := s.Get(ctx, "alice", aliceTask.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Title != "alice's task" || got.Completed {
		t.Errorf("alice's task was changed by bob: %+v", got)
	}
}

func TestStore_RoundTrip(t *testing.T) {
	s := setupTestStore(t, "alice")
	ctx := context.Background()

	created := mustCreate(t, s, "alice", "  round trip ")[0]
	got, err := s.Get(ctx, "alice", created.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Title != "round trip" {
		t.Errorf("expected title %q, got %q", "round trip", got.Title)
	}
	if got.Completed {
		t.Error("expected new task to be pending")
	}
	if got.UserID != "alice" {
		t.Errorf("expected owner alice, got %q", got.UserID)
	}
}

func TestStore_ToggleComplete(t *testing.T) {
	s := setupTestStore(t, "alice")
	ctx := context.Background()

	created := mustCreate(t, s, "alice", "toggle me")[0]

	once, err := s.ToggleComplete(ctx, "alice", created.ID)
	if err != nil {
		t.Fatalf("ToggleComplete() error = %v", err)
	}
	if !once[0].Completed {
		t.Error("expected completed after one toggle")
	}
	if !once[0].UpdatedAt.After(created.UpdatedAt) {
		t.Errorf("expected updated_at to advance, got %v then %v", created.UpdatedAt, once[0].UpdatedAt)
	}

	twice, err := s.ToggleComplete(ctx, "alice", created.ID)
	if err != nil {
		t.Fatalf("ToggleComplete() error = %v", err)
	}
	if twice[0].Completed {
		t.Error("expected pending after two toggles")
	}

	if _, err := s.ToggleComplete(ctx, "alice", "missing"); !errors.Is(err, domain.ErrTaskNotFound) {
		t.Errorf("expected ErrTaskNotFound, got %v", err)
	}
}

func TestStore_ToggleComplete_Concurrent(t *testing.T) {
	s := setupTestStore(t, "alice")
	ctx := context.Background()

	created := mustCreate(t, s, "alice", "contended")[0]

	const toggles = 20
	var wg sync.WaitGroup
	errs := make(chan error, toggles)
	for i := 0; i < toggles; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.ToggleComplete(ctx, "alice", created.ID); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("ToggleComplete() error = %v", err)
	}

	got, err := s.Get(ctx, "alice", created.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Completed {
		t.Error("an even number of toggles must leave the task pending")
	}
}

func TestStore_Update(t *testing.T) {
	s := setupTestStore(t, "alice")
	ctx := context.Background()

	created, err := s.Create(ctx, "alice", domain.CreateInput{Title: "original", Description: "keep me"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	id := created[0].ID

	t.Run("title only", func(t *testing.T) {
		tasks, err := s.Update(ctx, "alice", id, domain.Patch{Title: strPtr("  renamed ")})
		if err != nil {
			t.Fatalf("Update() error = %v", err)
		}
		got := tasks[0]
		if got.Title != "renamed" {
			t.Errorf("expected title %q, got %q", "renamed", got.Title)
		}
		if got.Description != "keep me" {
			t.Errorf("description changed: %q", got.Description)
		}
		if got.Completed {
			t.Error("completed changed")
		}
	})

	t.Run("completed only", func(t *testing.T) {
		tasks, err := s.Update(ctx, "alice", id, domain.Patch{Completed: boolPtr(true)})
		if err != nil {
			t.Fatalf("Update() error = %v", err)
		}
		if !tasks[0].Completed || tasks[0].Title != "renamed" {
			t.Errorf("unexpected task after update: %+v", tasks[0])
		}
	})

	t.Run("invalid title", func(t *testing.T) {
		_, err := s.Update(ctx, "alice", id, domain.Patch{Title: strPtr("   ")})
		if !errors.Is(err, domain.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("empty patch", func(t *testing.T) {
		_, err := s.Update(ctx, "alice", id, domain.Patch{})
		if !errors.Is(err, domain.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("missing task", func(t *testing.T) {
		_, err := s.Update(ctx, "alice", "missing", domain.Patch{Title: strPtr("x")})
		if !errors.Is(err, domain.ErrTaskNotFound) {
			t.Errorf("expected ErrTaskNotFound, got %v", err)
		}
	})
}

func TestStore_Delete(t *testing.T) {
	s := setupTestStore(t, "alice")
	ctx := context.Background()

	keep := mustCreate(t, s, "alice", "keep")[0]
	drop := mustCreate(t, s, "alice", "drop")[0]

	tasks, err := s.Delete(ctx, "alice", drop.ID)
	if err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if len(tasks) != 1 || tasks[0].ID != keep.ID {
		t.Errorf("expected only %q to remain, got %v", keep.Title, titles(tasks))
	}

	if _, err := s.Delete(ctx, "alice", drop.ID); !errors.Is(err, domain.ErrTaskNotFound) {
		t.Errorf("second Delete() expected ErrTaskNotFound, got %v", err)
	}
}

func TestStore_ClearCompleted(t *testing.T) {
	s := setupTestStore(t, "alice", "bob")
	ctx := context.Background()

	t.Run("nothing to clear", func(t *testing.T) {
		tasks, err := s.ClearCompleted(ctx, "bob")
		if err != nil {
			t.Fatalf("ClearCompleted() error = %v", err)
		}
		if len(tasks) != 0 {
			t.Errorf("expected empty list, got %v", titles(tasks))
		}
	})

	t.Run("removes only completed tasks of the owner", func(t *testing.T) {
		mustCreate(t, s, "alice", "pending one")
		done := mustCreate(t, s, "alice", "done one")[0]
		if _, err := s.ToggleComplete(ctx, "alice", done.ID); err != nil {
			t.Fatalf("ToggleComplete() error = %v", err)
		}
		if _, err := s.Create(ctx, "bob", domain.CreateInput{Title: "bob done", Completed: boolPtr(true)}); err != nil {
			t.Fatalf("Create() error = %v", err)
		}

		tasks, err := s.ClearCompleted(ctx, "alice")
		if err != nil {
			t.Fatalf("ClearCompleted() error = %v", err)
		}
		if len(tasks) != 1 || tasks[0].Title != "pending one" {
			t.Errorf("expected only the pending task, got %v", titles(tasks))
		}

		bobTasks, err := s.List(ctx, "bob")
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if len(bobTasks) != 1 {
			t.Errorf("bob's completed task must survive alice's clear, got %v", titles(bobTasks))
		}
	})
}

func TestStore_Notifications(t *testing.T) {
	rec := &recordingNotifier{}
	s := setupTestStoreWith(t, stubUsers{"alice": true}, WithNotifier(rec))
	ctx := context.Background()

	created := mustCreate(t, s, "alice", "notify")[0]
	if _, err := s.ToggleComplete(ctx, "alice", created.ID); err != nil {
		t.Fatalf("ToggleComplete() error = %v", err)
	}
	if _, err := s.Update(ctx, "alice", created.ID, domain.Patch{Title: strPtr("renamed"), Description: strPtr("d")}); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if _, err := s.ClearCompleted(ctx, "alice"); err != nil {
		t.Fatalf("ClearCompleted() error = %v", err)
	}
	// Failed mutations notify nothing.
	_, _ = s.Delete(ctx, "alice", created.ID)

	if len(rec.created) != 1 || rec.created[0].ID != created.ID {
		t.Errorf("expected one created notification, got %v", rec.created)
	}
	if len(rec.toggled) != 1 || !rec.toggled[0].Completed {
		t.Errorf("expected one toggled notification with completed=true, got %v", rec.toggled)
	}
	if len(rec.updated) != 1 || strings.Join(rec.updated[0], ",") != "title,description" {
		t.Errorf("unexpected updated notifications: %v", rec.updated)
	}
	if len(rec.cleared) != 1 || rec.cleared[0] != 1 {
		t.Errorf("expected one cleared notification removing 1, got %v", rec.cleared)
	}
	if len(rec.deleted) != 0 {
		t.Errorf("expected no deleted notification for a missing task, got %v", rec.deleted)
	}
}

func TestStore_UserValidatorFailure(t *testing.T) {
	s := setupTestStoreWith(t, failingUsers{err: errors.New("auth module unreachable")})

	_, err := s.List(context.Background(), "alice")
	if !errors.Is(err, domain.ErrStoreUnavailable) {
		t.Errorf("expected ErrStoreUnavailable, got %v", err)
	}
}

func TestStore_ClosedDatabase(t *testing.T) {
	db, err := OpenSQLite(":memory:", false)
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	repo := NewGormRepository(db)
	s := NewStore(repo, stubUsers{"alice": true})
	repo.Close()

	_, err = s.Create(context.Background(), "alice", domain.CreateInput{Title: "x"})
	if !errors.Is(err, domain.ErrStoreUnavailable) {
		t.Errorf("expected ErrStoreUnavailable, got %v", err)
	}
	if err := s.Ping(context.Background()); err == nil {
		t.Error("expected Ping() to fail on a closed database")
	}
}

func TestStore_Timestamp(t *testing.T) {
	s := setupTestStore(t)

	prev := s.timestamp()
	for i := 0; i < 100; i++ {
		next := s.timestamp()
		if !next.After(prev) {
			t.Fatalf("timestamp not strictly increasing: %v then %v", prev, next)
		}
		if next.Location() != time.UTC {
			t.Fatalf("timestamp not in UTC: %v", next.Location())
		}
		prev = next
	}
}
