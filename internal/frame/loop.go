// Package frame provides the per-frame callback driver the display runs on.
//
// Callbacks are one-shot: a component that wants to keep animating requests
// the next frame from inside its own callback, and simply stops requesting
// once it is idle.
package frame

import "time"

// Callback runs once on the next Tick.
type Callback func(now time.Time)

// RequestID identifies a pending callback so it can be cancelled.
type RequestID uint64

// Requester is the part of Loop a self-scheduling component depends on.
type Requester interface {
	Request(cb Callback) RequestID
	Cancel(id RequestID)
}

type pending struct {
	id RequestID
	cb Callback
}

// Loop collects callbacks for the next frame and runs them on Tick.
// It is not safe for concurrent use; the frame goroutine owns it.
type Loop struct {
	nextID  RequestID
	queue   []pending
	running []pending
	frames  uint64
}

// NewLoop returns an empty Loop.
func NewLoop() *Loop {
	return &Loop{}
}

// Request schedules cb for the next Tick. Requests made while a Tick is in
// progress land on the following frame.
func (l *Loop) Request(cb Callback) RequestID {
	l.nextID++
	l.queue = append(l.queue, pending{id: l.nextID, cb: cb})
	return l.nextID
}

// Cancel drops a pending callback. Unknown ids are ignored.
func (l *Loop) Cancel(id RequestID) {
	for i, p := range l.queue {
		if p.id == id {
			l.queue = append(l.queue[:i], l.queue[i+1:]...)
			return
		}
	}
	for i := range l.running {
		if l.running[i].id == id {
			l.running[i].cb = nil
			return
		}
	}
}

// Tick runs every callback that was pending when it was called.
func (l *Loop) Tick(now time.Time) {
	l.frames++
	l.running, l.queue = l.queue, l.running[:0]
	for i := range l.running {
		if cb := l.running[i].cb; cb != nil {
			cb(now)
		}
	}
	l.running = l.running[:0]
}

// Pending reports how many callbacks wait for the next frame.
func (l *Loop) Pending() int {
	return len(l.queue)
}

// Frames returns the number of ticks run so far.
func (l *Loop) Frames() uint64 {
	return l.frames
}
