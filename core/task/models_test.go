package task

import (
	"testing"
	"time"

	"github.com/volatiletech/null/v8"
)

func TestTaskDueWithin(t *testing.T) {
	from := time.Date(2026, time.April, 20, 8, 0, 0, 0, time.UTC)
	until := from.Add(24 * time.Hour)

	tests := []struct {
		name string
		task Task
		want bool
	}{
		{name: "due inside", task: Task{Status: StatusOpen, DueDate: null.TimeFrom(from.Add(time.Hour))}, want: true},
		{name: "due at from", task: Task{Status: StatusOpen, DueDate: null.TimeFrom(from)}, want: true},
		{name: "due at until", task: Task{Status: StatusOpen, DueDate: null.TimeFrom(until)}, want: false},
		{name: "due before", task: Task{Status: StatusOpen, DueDate: null.TimeFrom(from.Add(-time.Minute))}, want: false},
		{name: "no due date", task: Task{Status: StatusOpen}, want: false},
		{name: "done", task: Task{Status: StatusDone, DueDate: null.TimeFrom(from.Add(time.Hour))}, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.task.DueWithin(from, until); got != tt.want {
				t.Errorf("DueWithin() = %v, want %v", got, tt.want)
			}
		})
	}
}
