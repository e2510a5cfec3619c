package bus

import (
	"context"
	"time"
)

// Local is an in-process bus. Delivery is synchronous, in the publisher's
// goroutine, which makes it the same-process stand-in for the network bus.
type Local struct {
	reg *registry
	id  string
}

// NewLocal returns a bus whose envelopes carry sender id.
func NewLocal(id string) *Local {
	return &Local{reg: newRegistry(), id: id}
}

// Publish delivers to every current subscriber of kind.
func (l *Local) Publish(ctx context.Context, kind string, payload any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	env, err := NewEnvelope(kind, payload)
	if err != nil {
		return err
	}
	env.Sender = l.id
	l.reg.dispatch(env)
	return nil
}

// Deliver injects an already-built envelope, e.g. one bridged from a remote bus.
func (l *Local) Deliver(env Envelope) int {
	if env.SentAt == 0 {
		env.SentAt = time.Now().UnixMilli()
	}
	return l.reg.dispatch(env)
}

// Subscribe registers h for kind, or for everything with Wildcard.
func (l *Local) Subscribe(kind string, h Handler) func() {
	return l.reg.add(kind, h)
}
