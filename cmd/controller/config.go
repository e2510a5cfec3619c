package main

import (
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/cybre/backdrop-sync/internal/bus"
	"github.com/cybre/backdrop-sync/internal/config"
	"github.com/cybre/backdrop-sync/internal/control"
	"github.com/cybre/backdrop-sync/internal/scene"
	"github.com/cybre/backdrop-sync/internal/ui"
)

func buildRemoteConfig(cfg *config.Config, client *bus.Client) ui.RemoteConfig {
	steps := len(cfg.Scene.Waypoints)
	if steps == 0 {
		steps = len(scene.DefaultWaypoints())
	}
	return ui.RemoteConfig{
		Gesture:      cfg.GestureOptions(),
		OverlayCount: cfg.Scene.OverlayCount,
		StepCount:    steps,
		Connected:    client.Connected,
	}
}

// parseSend splits "kind" or "kind=payload". A payload that is not valid
// JSON is sent as a JSON string.
func parseSend(arg string) (string, json.RawMessage, error) {
	kind, value, hasValue := strings.Cut(strings.TrimSpace(arg), "=")
	kind = strings.TrimSpace(kind)
	if kind == "" {
		return "", nil, eris.New("empty event kind")
	}

	var payload json.RawMessage
	if hasValue {
		if json.Valid([]byte(value)) {
			payload = json.RawMessage(value)
		} else {
			b, err := json.Marshal(value)
			if err != nil {
				return "", nil, eris.Wrap(err, "encode payload")
			}
			payload = b
		}
	}

	env := bus.Envelope{Kind: kind, Payload: payload}
	if _, err := control.Decode(env, control.Limits{OverlayCount: 1, StepCount: 1}); err != nil {
		return "", nil, eris.Wrapf(err, "invalid event %q", arg)
	}
	return kind, payload, nil
}
