package task

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	domain "github.com/example/task-sync/domain/task"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS tasks (
	id          TEXT PRIMARY KEY,
	user_id     TEXT NOT NULL,
	title       TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	completed   BOOLEAN NOT NULL DEFAULT FALSE,
	created_at  TIMESTAMPTZ NOT NULL,
	updated_at  TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_tasks_user_created ON tasks (user_id, created_at DESC);
`

const selectOwnedTasks = `
SELECT id, user_id, title, description, completed, created_at, updated_at
FROM tasks
WHERE user_id = $1
ORDER BY created_at DESC, id DESC`

// PostgresRepository stores tasks in PostgreSQL through a pgx pool.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

var _ Repository = (*PostgresRepository)(nil)

// NewPostgresRepository wraps an open pool. Call Migrate before first use.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// OpenPostgres connects to databaseURL, verifies the connection and creates
// the schema if needed.
func OpenPostgres(ctx context.Context, databaseURL string) (*PostgresRepository, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	repo := NewPostgresRepository(pool)
	if err := repo.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return repo, nil
}

// Migrate creates the tasks table and its index.
func (r *PostgresRepository) Migrate(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

// Insert saves a new task and returns the owner's refreshed list.
func (r *PostgresRepository) Insert(ctx context.Context, t *domain.Task) ([]domain.Task, error) {
	var tasks []domain.Task
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx,
			`INSERT INTO tasks (id, user_id, title, description, completed, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			t.ID, t.UserID, t.Title, t.Description, t.Completed, t.CreatedAt, t.UpdatedAt,
		)
		if err != nil {
			return err
		}
		tasks, err = queryOwned(ctx, tx, t.UserID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

// ListByOwner returns every task of owner, newest first.
func (r *PostgresRepository) ListByOwner(ctx context.Context, owner string) ([]domain.Task, error) {
	return queryOwned(ctx, r.pool, owner)
}

// FindOwned returns the task only when it belongs to owner.
func (r *PostgresRepository) FindOwned(ctx context.Context, owner, id string) (*domain.Task, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, user_id, title, description, completed, created_at, updated_at
		 FROM tasks WHERE id = $1 AND user_id = $2`,
		id, owner,
	)
	t, err := scanTask(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTaskNotFound
		}
		return nil, err
	}
	return &t, nil
}

// Toggle flips the completion flag with a single conditional UPDATE.
func (r *PostgresRepository) Toggle(ctx context.Context, owner, id string, at time.Time) ([]domain.Task, error) {
	return r.mutate(ctx, owner,
		`UPDATE tasks SET completed = NOT completed, updated_at = $1 WHERE id = $2 AND user_id = $3`,
		at, id, owner,
	)
}

// Patch applies the non-nil fields of patch.
func (r *PostgresRepository) Patch(ctx context.Context, owner, id string, patch domain.Patch, at time.Time) ([]domain.Task, error) {
	sets := []string{"updated_at = $1"}
	args := []any{at}
	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if patch.Title != nil {
		add("title", *patch.Title)
	}
	if patch.Description != nil {
		add("description", *patch.Description)
	}
	if patch.Completed != nil {
		add("completed", *patch.Completed)
	}
	args = append(args, id, owner)

	query := fmt.Sprintf("UPDATE tasks SET %s WHERE id = $%d AND user_id = $%d",
		strings.Join(sets, ", "), len(args)-1, len(args))
	return r.mutate(ctx, owner, query, args...)
}

// Remove deletes a single owned task.
func (r *PostgresRepository) Remove(ctx context.Context, owner, id string) ([]domain.Task, error) {
	return r.mutate(ctx, owner, `DELETE FROM tasks WHERE id = $1 AND user_id = $2`, id, owner)
}

// RemoveCompleted deletes every completed task of owner.
func (r *PostgresRepository) RemoveCompleted(ctx context.Context, owner string) (int64, []domain.Task, error) {
	var removed int64
	var tasks []domain.Task
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `DELETE FROM tasks WHERE user_id = $1 AND completed`, owner)
		if err != nil {
			return err
		}
		removed = tag.RowsAffected()
		tasks, err = queryOwned(ctx, tx, owner)
		return err
	})
	if err != nil {
		return 0, nil, err
	}
	return removed, tasks, nil
}

// Ping checks the pool.
func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// Close closes the pool.
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

func (r *PostgresRepository) mutate(ctx context.Context, owner, query string, args ...any) ([]domain.Task, error) {
	var tasks []domain.Task
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, query, args...)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrTaskNotFound
		}
		tasks, err = queryOwned(ctx, tx, owner)
		return err
	})
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func queryOwned(ctx context.Context, q querier, owner string) ([]domain.Task, error) {
	rows, err := q.Query(ctx, selectOwnedTasks, owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := []domain.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return tasks, nil
}

func scanTask(row pgx.Row) (domain.Task, error) {
	var t domain.Task
	err := row.Scan(&t.ID, &t.UserID, &t.Title, &t.Description, &t.Completed, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return domain.Task{}, err
	}
	t.CreatedAt = t.CreatedAt.UTC()
	t.UpdatedAt = t.UpdatedAt.UTC()
	return t, nil
}
