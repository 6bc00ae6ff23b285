package task

import (
	"strings"
	"time"
	"unicode/utf8"
)

const (
	// MaxTitleLength is the maximum title length in runes, after trimming.
	MaxTitleLength = 200
	// MaxDescriptionLength is the maximum description length in runes, after trimming.
	MaxDescriptionLength = 1000
)

// Task is the core domain entity: one to-do item owned by exactly one user.
type Task struct {
	ID          string    `json:"id" gorm:"primaryKey;type:text"`
	UserID      string    `json:"user_id" gorm:"not null;type:text;index:idx_tasks_user_created,priority:1"`
	Title       string    `json:"title" gorm:"not null;type:text"`
	Description string    `json:"description" gorm:"not null;default:'';type:text"`
	Completed   bool      `json:"completed" gorm:"not null;default:false"`
	CreatedAt   time.Time `json:"created_at" gorm:"not null;index:idx_tasks_user_created,priority:2"`
	UpdatedAt   time.Time `json:"updated_at" gorm:"not null"`
}

// TableName returns the table name for the Task entity.
func (Task) TableName() string {
	return "tasks"
}

// CreateInput carries the caller-supplied fields of a new task.
type CreateInput struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Completed   *bool  `json:"completed,omitempty"`
}

// Patch is a partial update. Nil fields are left untouched.
type Patch struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Completed   *bool   `json:"completed,omitempty"`
}

// IsEmpty reports whether the patch changes nothing.
func (p Patch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.Completed == nil
}

// NormalizeTitle trims the title and checks it against the length bound.
func NormalizeTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", invalidInput("title is required")
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return "", invalidInput("title cannot exceed 200 characters")
	}
	return title, nil
}

// NormalizeDescription trims the description and checks it against the length bound.
func NormalizeDescription(description string) (string, error) {
	description = strings.TrimSpace(description)
	if utf8.RuneCountInString(description) > MaxDescriptionLength {
		return "", invalidInput("description cannot exceed 1000 characters")
	}
	return description, nil
}

// Clone returns a copy of the list that shares no backing array with tasks.
func Clone(tasks []Task) []Task {
	if tasks == nil {
		return nil
	}
	out := make([]Task, len(tasks))
	copy(out, tasks)
	return out
}
