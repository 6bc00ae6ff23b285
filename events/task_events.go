package events

import (
	"time"

	"github.com/go-monolith/mono/pkg/helper"
)

// TaskCreatedEvent is emitted after a task is inserted.
type TaskCreatedEvent struct {
	TaskID    string    `json:"task_id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	Completed bool      `json:"completed"`
	CreatedAt time.Time `json:"created_at"`
}

// TaskCreatedV1 is the typed event definition for task creation.
// Subject: events.task.v1.task-created
var TaskCreatedV1 = helper.EventDefinition[TaskCreatedEvent](
	"task", "TaskCreated", "v1",
)

// TaskToggledEvent is emitted after a task's completion flag is flipped.
type TaskToggledEvent struct {
	TaskID    string    `json:"task_id"`
	UserID    string    `json:"user_id"`
	Completed bool      `json:"completed"`
	ToggledAt time.Time `json:"toggled_at"`
}

// TaskToggledV1 is the typed event definition for completion toggles.
// Subject: events.task.v1.task-toggled
var TaskToggledV1 = helper.EventDefinition[TaskToggledEvent](
	"task", "TaskToggled", "v1",
)

// TaskUpdatedEvent is emitted after a partial update. Fields lists the
// attributes that were present in the patch.
type TaskUpdatedEvent struct {
	TaskID    string    `json:"task_id"`
	UserID    string    `json:"user_id"`
	Fields    []string  `json:"fields"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TaskUpdatedV1 is the typed event definition for task updates.
// Subject: events.task.v1.task-updated
var TaskUpdatedV1 = helper.EventDefinition[TaskUpdatedEvent](
	"task", "TaskUpdated", "v1",
)

// TaskDeletedEvent is emitted after a single task is removed.
type TaskDeletedEvent struct {
	TaskID    string    `json:"task_id"`
	UserID    string    `json:"user_id"`
	DeletedAt time.Time `json:"deleted_at"`
}

// TaskDeletedV1 is the typed event definition for task deletion.
// Subject: events.task.v1.task-deleted
var TaskDeletedV1 = helper.EventDefinition[TaskDeletedEvent](
	"task", "TaskDeleted", "v1",
)

// CompletedClearedEvent is emitted after clear-completed, even when nothing matched.
type CompletedClearedEvent struct {
	UserID    string    `json:"user_id"`
	Removed   int64     `json:"removed"`
	ClearedAt time.Time `json:"cleared_at"`
}

// CompletedClearedV1 is the typed event definition for bulk removal of completed tasks.
// Subject: events.task.v1.completed-cleared
var CompletedClearedV1 = helper.EventDefinition[CompletedClearedEvent](
	"task", "CompletedCleared", "v1",
)
