package control

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cybre/backdrop-sync/internal/bus"
	"github.com/cybre/backdrop-sync/internal/stage"
)

var limits = Limits{OverlayCount: 4, StepCount: 6}

func decode(t *testing.T, kind, payload string) (Event, error) {
	t.Helper()
	env := bus.Envelope{Kind: kind}
	if payload != "" {
		env.Payload = json.RawMessage(payload)
	}
	return Decode(env, limits)
}

func TestDecodeProgressClampsAndAcceptsLooseShapes(t *testing.T) {
	cases := map[string]float64{
		`0.25`:            0.25,
		`"0.5"`:           0.5,
		`{"value": 0.75}`: 0.75,
		`-3`:              0,
		`12`:              1,
		`" 1e-4 "`:        0.0001,
	}
	for payload, want := range cases {
		ev, err := decode(t, "progress", payload)
		require.NoError(t, err, payload)
		assert.Equal(t, Progress{Value: want}, ev, payload)
	}
}

func TestDecodeRejectsNonNumeric(t *testing.T) {
	for _, payload := range []string{`"abc"`, `true`, `[1]`, `{"v":1}`, ``, `null`} {
		_, err := decode(t, "progress", payload)
		assert.True(t, eris.Is(err, ErrNotNumeric), payload)
	}
}

func TestDecodeIndexFloorsAndClamps(t *testing.T) {
	cases := map[string]int{
		`2.9`:  2,
		`-1`:   0,
		`4`:    3,
		`1e12`: 3,
		`"1"`:  1,
	}
	for payload, want := range cases {
		ev, err := decode(t, "overlayIndex", payload)
		require.NoError(t, err, payload)
		assert.Equal(t, OverlayIndex{Index: want}, ev, payload)
	}

	ev, err := decode(t, "setStep", `9`)
	require.NoError(t, err)
	assert.Equal(t, SetStep{Step: 5}, ev)
}

func TestDecodeIndexWithoutLimitIsZero(t *testing.T) {
	ev, err := Decode(bus.Envelope{Kind: "overlayIndex", Payload: json.RawMessage(`3`)}, Limits{})
	require.NoError(t, err)
	assert.Equal(t, OverlayIndex{Index: 0}, ev)
}

func TestDecodeHealingText(t *testing.T) {
	cases := map[string]string{
		`"breathe in"`: "breathe in",
		`""`:           "",
		`null`:         "",
		``:             "",
		`42`:           "42",
	}
	for payload, want := range cases {
		ev, err := decode(t, "healingText", payload)
		require.NoError(t, err, payload)
		assert.Equal(t, HealingText{Text: want}, ev, payload)
	}
}

func TestDecodeLocalKinds(t *testing.T) {
	ev, err := decode(t, "stage3", "")
	require.NoError(t, err)
	assert.Equal(t, EnterStage{Stage: stage.Stage3}, ev)

	ev, err = decode(t, "phase", `-0.4`)
	require.NoError(t, err)
	assert.Equal(t, Phase{Delta: -0.4}, ev)

	for kind, want := range map[string]Event{
		"final":     Final{},
		"flash":     Flash{},
		"select":    Select{},
		"randomize": Randomize{},
		"next":      Next{},
		"prev":      Prev{},
	} {
		ev, err := decode(t, kind, `{"ignored":true}`)
		require.NoError(t, err, kind)
		assert.Equal(t, want, ev, kind)
	}
}

func TestDecodeUnknownKind(t *testing.T) {
	_, err := decode(t, "teleport", "")
	assert.True(t, eris.Is(err, ErrUnknownKind))
}

func TestPublishUsesDecodableShapes(t *testing.T) {
	b := bus.NewLocal("test")
	var got []Event
	b.Subscribe(bus.Wildcard, func(env bus.Envelope) {
		ev, err := Decode(env, limits)
		require.NoError(t, err)
		got = append(got, ev)
	})

	sent := []Event{
		Progress{Value: 0.3},
		OverlayIndex{Index: 2},
		OverlayOpacity{Opacity: 0.6},
		HealingText{Text: "hello"},
		EnterStage{Stage: stage.Stage2},
		Phase{Delta: 1.5},
		LandingProceed{Raw: []byte(`{"controller":"x"}`)},
		Select{},
	}
	for _, ev := range sent {
		require.NoError(t, Publish(context.Background(), b, ev))
	}

	require.Len(t, got, len(sent))
	assert.Equal(t, sent[:7], got[:7])
	assert.JSONEq(t, `{"controller":"x"}`, string(got[6].(LandingProceed).Raw))
	assert.Equal(t, Select{}, got[7])
}
