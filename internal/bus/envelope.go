// Package bus relays named control events between one controller and any
// number of displays. It never looks inside payloads; clamping and typing
// happen at the receiving end.
package bus

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
)

// Role is the part a peer plays on the bus.
type Role string

const (
	RoleController Role = "controller"
	RoleDisplay    Role = "display"
)

// ParseRole maps unknown roles to display; displays are passive.
func ParseRole(s string) Role {
	if Role(s) == RoleController {
		return RoleController
	}
	return RoleDisplay
}

// Wildcard subscribes to every kind.
const Wildcard = "*"

// KindLandingProceed is announced by the relay when a controller connects.
const KindLandingProceed = "landingProceed"

var (
	ErrDisconnected  = eris.New("bus is not connected")
	ErrEmptyKind     = eris.New("envelope has no kind")
	ErrMalformedWire = eris.New("malformed envelope")
)

// Envelope is the wire unit. Payload is opaque JSON.
type Envelope struct {
	Kind    string          `json:"kind"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Sender  string          `json:"sender,omitempty"`
	SentAt  int64           `json:"t,omitempty"`
}

// NewEnvelope marshals payload; a nil payload is omitted.
func NewEnvelope(kind string, payload any) (Envelope, error) {
	if kind == "" {
		return Envelope{}, ErrEmptyKind
	}
	env := Envelope{Kind: kind, SentAt: time.Now().UnixMilli()}
	if payload == nil {
		return env, nil
	}
	if raw, ok := payload.(json.RawMessage); ok {
		env.Payload = raw
		return env, nil
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, eris.Wrapf(err, "marshal %s payload", kind)
	}
	env.Payload = b
	return env, nil
}

// Encode serializes the envelope for the wire.
func (e Envelope) Encode() ([]byte, error) {
	b, err := json.Marshal(e)
	if err != nil {
		return nil, eris.Wrap(err, "encode envelope")
	}
	return b, nil
}

// DecodeEnvelope parses a wire message.
func DecodeEnvelope(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, eris.Wrapf(ErrMalformedWire, "%v", err)
	}
	if env.Kind == "" {
		return Envelope{}, ErrEmptyKind
	}
	return env, nil
}

// Handler receives delivered envelopes.
type Handler func(Envelope)

// Bus is what controllers publish to and displays subscribe on.
type Bus interface {
	Publish(ctx context.Context, kind string, payload any) error
	Subscribe(kind string, h Handler) (unsubscribe func())
}
