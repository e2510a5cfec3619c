package bus

import (
	"encoding/json"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvelopeRoundTripKeepsPayloadOpaque(t *testing.T) {
	env, err := NewEnvelope("healingText", map[string]any{"text": "breathe", "extra": []int{1, 2}})
	require.NoError(t, err)
	env.Sender = "abc"

	data, err := env.Encode()
	require.NoError(t, err)

	got, err := DecodeEnvelope(data)
	require.NoError(t, err)
	assert.Equal(t, "healingText", got.Kind)
	assert.Equal(t, "abc", got.Sender)
	assert.JSONEq(t, `{"text":"breathe","extra":[1,2]}`, string(got.Payload))
}

func TestNewEnvelopeAcceptsRawMessage(t *testing.T) {
	env, err := NewEnvelope("progress", json.RawMessage(`"0.25"`))
	require.NoError(t, err)
	assert.Equal(t, `"0.25"`, string(env.Payload))
}

func TestNewEnvelopeOmitsNilPayload(t *testing.T) {
	env, err := NewEnvelope("select", nil)
	require.NoError(t, err)

	data, err := env.Encode()
	require.NoError(t, err)
	assert.NotContains(t, string(data), "payload")
}

func TestDecodeEnvelopeErrors(t *testing.T) {
	_, err := DecodeEnvelope([]byte("{not json"))
	assert.True(t, eris.Is(err, ErrMalformedWire))

	_, err = DecodeEnvelope([]byte(`{"payload":1}`))
	assert.True(t, eris.Is(err, ErrEmptyKind))
}

func TestParseRole(t *testing.T) {
	assert.Equal(t, RoleController, ParseRole("controller"))
	assert.Equal(t, RoleDisplay, ParseRole("display"))
	assert.Equal(t, RoleDisplay, ParseRole(""))
	assert.Equal(t, RoleDisplay, ParseRole("admin"))
}
