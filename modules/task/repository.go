package task

import (
	"context"
	"errors"
	"fmt"
	"time"

	domain "github.com/example/task-sync/domain/task"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Repository is the durable task collection. Every mutating method performs
// its write and the follow-up read of the owner's full list in a single
// transaction and returns that list ordered newest first.
//
// Implementations return domain.ErrTaskNotFound when a scoped write or read
// matches no row. Any other error means the backing store failed.
type Repository interface {
	Insert(ctx context.Context, t *domain.Task) ([]domain.Task, error)
	ListByOwner(ctx context.Context, owner string) ([]domain.Task, error)
	FindOwned(ctx context.Context, owner, id string) (*domain.Task, error)
	Toggle(ctx context.Context, owner, id string, at time.Time) ([]domain.Task, error)
	Patch(ctx context.Context, owner, id string, patch domain.Patch, at time.Time) ([]domain.Task, error)
	Remove(ctx context.Context, owner, id string) ([]domain.Task, error)
	RemoveCompleted(ctx context.Context, owner string) (int64, []domain.Task, error)
	Ping(ctx context.Context) error
	Close() error
}

// GormRepository stores tasks through GORM. It is used with SQLite.
type GormRepository struct {
	db *gorm.DB
}

var _ Repository = (*GormRepository)(nil)

// NewGormRepository wraps an already migrated *gorm.DB.
func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

// OpenSQLite opens (or creates) the SQLite database at path and migrates the
// task schema. The pool is limited to one connection: SQLite serializes
// writers anyway and ":memory:" databases are per connection.
func OpenSQLite(path string, debug bool) (*gorm.DB, error) {
	logLevel := logger.Silent
	if debug {
		logLevel = logger.Info
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&domain.Task{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return db, nil
}

// Insert saves a new task and returns the owner's refreshed list.
func (r *GormRepository) Insert(ctx context.Context, t *domain.Task) ([]domain.Task, error) {
	var tasks []domain.Task
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(t).Error; err != nil {
			return err
		}
		var err error
		tasks, err = listOwned(tx, t.UserID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

// ListByOwner returns every task of owner, newest first.
func (r *GormRepository) ListByOwner(ctx context.Context, owner string) ([]domain.Task, error) {
	return listOwned(r.db.WithContext(ctx), owner)
}

// FindOwned returns the task only when it belongs to owner.
func (r *GormRepository) FindOwned(ctx context.Context, owner, id string) (*domain.Task, error) {
	var t domain.Task
	result := r.db.WithContext(ctx).First(&t, "id = ? AND user_id = ?", id, owner)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, domain.ErrTaskNotFound
		}
		return nil, result.Error
	}
	return &t, nil
}

// Toggle flips the completion flag in place. The flip is a single UPDATE so
// concurrent toggles of the same row never lose an update.
func (r *GormRepository) Toggle(ctx context.Context, owner, id string, at time.Time) ([]domain.Task, error) {
	return r.mutate(ctx, owner, func(tx *gorm.DB) (int64, error) {
		result := tx.Model(&domain.Task{}).
			Where("id = ? AND user_id = ?", id, owner).
			Updates(map[string]any{
				"completed":  gorm.Expr("NOT completed"),
				"updated_at": at,
			})
		return result.RowsAffected, result.Error
	})
}

// Patch applies the non-nil fields of patch. Values must already be validated.
func (r *GormRepository) Patch(ctx context.Context, owner, id string, patch domain.Patch, at time.Time) ([]domain.Task, error) {
	fields := map[string]any{"updated_at": at}
	if patch.Title != nil {
		fields["title"] = *patch.Title
	}
	if patch.Description != nil {
		fields["description"] = *patch.Description
	}
	if patch.Completed != nil {
		fields["completed"] = *patch.Completed
	}

	return r.mutate(ctx, owner, func(tx *gorm.DB) (int64, error) {
		result := tx.Model(&domain.Task{}).
			Where("id = ? AND user_id = ?", id, owner).
			Updates(fields)
		return result.RowsAffected, result.Error
	})
}

// Remove deletes a single owned task.
func (r *GormRepository) Remove(ctx context.Context, owner, id string) ([]domain.Task, error) {
	return r.mutate(ctx, owner, func(tx *gorm.DB) (int64, error) {
		result := tx.Where("id = ? AND user_id = ?", id, owner).Delete(&domain.Task{})
		return result.RowsAffected, result.Error
	})
}

// RemoveCompleted deletes every completed task of owner. Zero matches is not an error.
func (r *GormRepository) RemoveCompleted(ctx context.Context, owner string) (int64, []domain.Task, error) {
	var removed int64
	var tasks []domain.Task
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Where("user_id = ? AND completed = ?", owner, true).Delete(&domain.Task{})
		if result.Error != nil {
			return result.Error
		}
		removed = result.RowsAffected

		var err error
		tasks, err = listOwned(tx, owner)
		return err
	})
	if err != nil {
		return 0, nil, err
	}
	return removed, tasks, nil
}

// Ping checks the database connection.
func (r *GormRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close releases the underlying connection pool.
func (r *GormRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// mutate runs write inside a transaction, maps zero affected rows to
// ErrTaskNotFound, and re-reads the owner's list in the same transaction.
func (r *GormRepository) mutate(ctx context.Context, owner string, write func(tx *gorm.DB) (int64, error)) ([]domain.Task, error) {
	var tasks []domain.Task
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		affected, err := write(tx)
		if err != nil {
			return err
		}
		if affected == 0 {
			return domain.ErrTaskNotFound
		}
		tasks, err = listOwned(tx, owner)
		return err
	})
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

func listOwned(db *gorm.DB, owner string) ([]domain.Task, error) {
	var tasks []domain.Task
	result := db.Where("user_id = ?", owner).
		Order("created_at DESC").
		Order("id DESC").
		Find(&tasks)
	if result.Error != nil {
		return nil, result.Error
	}
	if tasks == nil {
		tasks = []domain.Task{}
	}
	return tasks, nil
}
