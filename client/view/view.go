// Package view derives filtered lists and counters from a task snapshot.
// Every function is pure and leaves its input untouched.
package view

import (
	"fmt"
	"strings"

	domain "github.com/example/task-sync/domain/task"
)

// Mode selects which tasks a filtered view shows.
type Mode int

const (
	All Mode = iota
	Pending
	Completed
)

// String returns the mode's flag and query-string spelling.
func (m Mode) String() string {
	switch m {
	case Pending:
		return "pending"
	case Completed:
		return "completed"
	default:
		return "all"
	}
}

// ParseMode accepts all, pending or completed in any case. An empty string is All.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "all":
		return All, nil
	case "pending":
		return Pending, nil
	case "completed":
		return Completed, nil
	default:
		return All, fmt.Errorf("unknown filter %q: want all, pending or completed", s)
	}
}

// Filter returns the tasks matching mode in their original order.
func Filter(snapshot []domain.Task, mode Mode) []domain.Task {
	out := make([]domain.Task, 0, len(snapshot))
	for _, t := range snapshot {
		switch mode {
		case Pending:
			if t.Completed {
				continue
			}
		case Completed:
			if !t.Completed {
				continue
			}
		}
		out = append(out, t)
	}
	return out
}

// Summary counts a snapshot.
type Summary struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
	Pending   int `json:"pending"`
}

// Stats counts the tasks in snapshot. Pending is always Total minus Completed.
func Stats(snapshot []domain.Task) Summary {
	s := Summary{Total: len(snapshot)}
	for _, t := range snapshot {
		if t.Completed {
			s.Completed++
		}
	}
	s.Pending = s.Total - s.Completed
	return s
}
