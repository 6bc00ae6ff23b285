package main

import (
	"fmt"
	"io"
	"time"

	"github.com/example/task-sync/client/view"
	domain "github.com/example/task-sync/domain/task"
)

func checkbox(t domain.Task) string {
	if t.Completed {
		return "[x]"
	}
	return "[ ]"
}

// printTasks writes the filtered snapshot followed by the stats of the whole
// snapshot.
func printTasks(w io.Writer, snapshot []domain.Task, mode view.Mode) {
	shown := view.Filter(snapshot, mode)
	if len(shown) == 0 {
		if mode == view.All {
			fmt.Fprintln(w, "No tasks.")
		} else {
			fmt.Fprintf(w, "No %s tasks.\n", mode)
		}
	}
	for _, t := range shown {
		fmt.Fprintf(w, "%s %s  %s\n", checkbox(t), t.ID, t.Title)
	}
	printStats(w, view.Stats(snapshot))
}

func printStats(w io.Writer, s view.Summary) {
	fmt.Fprintf(w, "%d total, %d completed, %d pending\n", s.Total, s.Completed, s.Pending)
}

func printTask(w io.Writer, t domain.Task) {
	fmt.Fprintf(w, "%s %s\n", checkbox(t), t.Title)
	fmt.Fprintf(w, "id:      %s\n", t.ID)
	if t.Description != "" {
		fmt.Fprintf(w, "notes:   %s\n", t.Description)
	}
	fmt.Fprintf(w, "created: %s\n", t.CreatedAt.Local().Format(time.RFC1123))
	fmt.Fprintf(w, "updated: %s\n", t.UpdatedAt.Local().Format(time.RFC1123))
}
