// Package schedule runs cancellable delayed tasks against the frame clock.
//
// Tasks fire from Run, never from a goroutine, so a task body may touch the
// same state as the frame that runs it.
package schedule

import (
	"sort"
	"time"
)

// Task is a handle to a scheduled function.
type Task struct {
	name      string
	due       time.Time
	fn        func(now time.Time)
	cancelled bool
	fired     bool
}

// Name returns the label given at scheduling time.
func (t *Task) Name() string { return t.name }

// Due returns the time the task becomes eligible to run.
func (t *Task) Due() time.Time { return t.due }

// Cancel prevents the task from running. Cancelling a fired task is a no-op.
func (t *Task) Cancel() {
	if t != nil {
		t.cancelled = true
	}
}

// Pending reports whether the task will still run.
func (t *Task) Pending() bool {
	return t != nil && !t.cancelled && !t.fired
}

// Timers holds pending tasks ordered by due time.
type Timers struct {
	tasks []*Task
}

// NewTimers returns an empty set.
func NewTimers() *Timers {
	return &Timers{}
}

// After schedules fn to run on the first Run at or after now+delay.
func (s *Timers) After(now time.Time, delay time.Duration, name string, fn func(now time.Time)) *Task {
	task := &Task{name: name, due: now.Add(delay), fn: fn}
	idx := sort.Search(len(s.tasks), func(i int) bool {
		return s.tasks[i].due.After(task.due)
	})
	s.tasks = append(s.tasks, nil)
	copy(s.tasks[idx+1:], s.tasks[idx:])
	s.tasks[idx] = task
	return task
}

// Run fires every due task in due order. Tasks scheduled by a running task
// are considered in the same pass only if they are already due.
func (s *Timers) Run(now time.Time) int {
	fired := 0
	for len(s.tasks) > 0 {
		task := s.tasks[0]
		if task.due.After(now) {
			break
		}
		s.tasks = s.tasks[1:]
		if task.cancelled {
			continue
		}
		task.fired = true
		task.fn(now)
		fired++
	}
	return fired
}

// CancelAll drops every pending task.
func (s *Timers) CancelAll() {
	for _, task := range s.tasks {
		task.cancelled = true
	}
	s.tasks = nil
}

// Len returns the number of queued tasks, including cancelled ones not yet
// swept by Run.
func (s *Timers) Len() int {
	return len(s.tasks)
}
