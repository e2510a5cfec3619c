package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSend(t *testing.T) {
	kind, payload, err := parseSend("select")
	require.NoError(t, err)
	assert.Equal(t, "select", kind)
	assert.Nil(t, payload)

	kind, payload, err = parseSend("progress=0.5")
	require.NoError(t, err)
	assert.Equal(t, "progress", kind)
	assert.Equal(t, "0.5", string(payload))

	_, payload, err = parseSend("healingText=breathe out")
	require.NoError(t, err)
	assert.Equal(t, `"breathe out"`, string(payload))

	_, payload, err = parseSend(`healingText="quoted"`)
	require.NoError(t, err)
	assert.Equal(t, `"quoted"`, string(payload))
}

func TestParseSendRejects(t *testing.T) {
	for _, arg := range []string{"", "=1", "teleport", "progress=abc", "overlayIndex"} {
		_, _, err := parseSend(arg)
		assert.Error(t, err, arg)
	}
}
