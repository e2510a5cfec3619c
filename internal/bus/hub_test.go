package bus

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func startHub(t *testing.T, opts HubOptions) (*Hub, string) {
	t.Helper()
	hub := NewHub(opts, quietLogger())
	mux := http.NewServeMux()
	mux.Handle("/ws", hub)
	mux.HandleFunc("/health", hub.HandleHealth)
	srv := httptest.NewServer(mux)
	t.Cleanup(func() {
		hub.Close()
		srv.Close()
	})
	return hub, srv.URL
}

func wsURL(base, query string) string {
	return "ws" + strings.TrimPrefix(base, "http") + "/ws?" + query
}

func dial(t *testing.T, base, query string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(wsURL(base, query), nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEnvelope(t *testing.T, conn *websocket.Conn) Envelope {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	env, err := DecodeEnvelope(data)
	require.NoError(t, err)
	return env
}

func waitForPeers(t *testing.T, hub *Hub, displays, controllers int) {
	t.Helper()
	require.Eventually(t, func() bool {
		s := hub.Stats()
		return s.Displays == displays && s.Controllers == controllers
	}, 2*time.Second, 5*time.Millisecond)
}

func TestHubAnnouncesControllerToDisplays(t *testing.T) {
	hub, base := startHub(t, HubOptions{})
	display := dial(t, base, "role=display")
	waitForPeers(t, hub, 1, 0)

	dial(t, base, "role=controller&id=remote-1")

	env := readEnvelope(t, display)
	assert.Equal(t, KindLandingProceed, env.Kind)
	assert.Equal(t, "relay", env.Sender)
	assert.JSONEq(t, `{"controller":"remote-1"}`, string(env.Payload))
}

func TestHubAnnouncesControllerOnlyOnce(t *testing.T) {
	hub, base := startHub(t, HubOptions{})
	display := dial(t, base, "role=display")
	waitForPeers(t, hub, 1, 0)

	first := dial(t, base, "role=controller&id=pad")
	assert.Equal(t, KindLandingProceed, readEnvelope(t, display).Kind)
	require.NoError(t, first.Close())
	waitForPeers(t, hub, 1, 0)

	again := dial(t, base, "role=controller&id=pad")
	waitForPeers(t, hub, 1, 1)

	msg, err := NewEnvelope("next", nil)
	require.NoError(t, err)
	data, err := msg.Encode()
	require.NoError(t, err)
	require.NoError(t, again.WriteMessage(websocket.TextMessage, data))

	env := readEnvelope(t, display)
	assert.Equal(t, "next", env.Kind, "reconnect must not announce again")

	dial(t, base, "role=controller&id=other")
	assert.Equal(t, KindLandingProceed, readEnvelope(t, display).Kind)
}

func TestHubRelaysToOthersWithSenderID(t *testing.T) {
	hub, base := startHub(t, HubOptions{})
	d1 := dial(t, base, "role=display")
	d2 := dial(t, base, "role=display")
	waitForPeers(t, hub, 2, 0)

	ctrl := dial(t, base, "role=controller&id=remote-1")
	readEnvelope(t, d1)
	readEnvelope(t, d2)

	msg, err := NewEnvelope("progress", 0.4)
	require.NoError(t, err)
	msg.Sender = "spoofed"
	data, err := msg.Encode()
	require.NoError(t, err)
	require.NoError(t, ctrl.WriteMessage(websocket.TextMessage, data))

	for _, d := range []*websocket.Conn{d1, d2} {
		env := readEnvelope(t, d)
		assert.Equal(t, "progress", env.Kind)
		assert.Equal(t, "remote-1", env.Sender)
		assert.JSONEq(t, "0.4", string(env.Payload))
	}

	require.NoError(t, ctrl.SetReadDeadline(time.Now().Add(100*time.Millisecond)))
	_, _, err = ctrl.ReadMessage()
	assert.Error(t, err, "sender must not receive its own message")
}

func TestHubRejectsMalformedMessages(t *testing.T) {
	hub, base := startHub(t, HubOptions{})
	display := dial(t, base, "role=display")
	sender := dial(t, base, "role=display")
	waitForPeers(t, hub, 2, 0)

	require.NoError(t, sender.WriteMessage(websocket.TextMessage, []byte("garbage")))
	require.NoError(t, sender.WriteMessage(websocket.TextMessage, []byte(`{"kind":"next"}`)))

	env := readEnvelope(t, display)
	assert.Equal(t, "next", env.Kind)
	assert.Equal(t, uint64(1), hub.Stats().Rejected)
}

func TestHubHealthReportsPeers(t *testing.T) {
	hub, base := startHub(t, HubOptions{})
	dial(t, base, "role=display")
	dial(t, base, "role=controller")
	waitForPeers(t, hub, 1, 1)

	resp, err := http.Get(base + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	var stats HubStats
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&stats))
	assert.Equal(t, 1, stats.Displays)
	assert.Equal(t, 1, stats.Controllers)
}

func TestClientPublishAndSubscribe(t *testing.T) {
	hub, base := startHub(t, HubOptions{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	display, err := NewClient(ClientOptions{URL: wsURL(base, ""), Role: RoleDisplay, ReconnectDelay: 10 * time.Millisecond}, quietLogger())
	require.NoError(t, err)
	remote, err := NewClient(ClientOptions{URL: wsURL(base, ""), Role: RoleController, ID: "remote-1", ReconnectDelay: 10 * time.Millisecond}, quietLogger())
	require.NoError(t, err)

	var mu sync.Mutex
	var got []Envelope
	display.Subscribe(Wildcard, func(env Envelope) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, env)
	})

	assert.ErrorIs(t, remote.Publish(ctx, "select", nil), ErrDisconnected)

	go func() { _ = display.Run(ctx) }()
	waitForPeers(t, hub, 1, 0)
	go func() { _ = remote.Run(ctx) }()
	waitForPeers(t, hub, 1, 1)
	require.Eventually(t, remote.Connected, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, remote.Publish(ctx, "select", nil))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		for _, env := range got {
			if env.Kind == "select" && env.Sender == "remote-1" {
				return true
			}
		}
		return false
	}, 2*time.Second, 5*time.Millisecond)
}

func TestNewClientRequiresURL(t *testing.T) {
	_, err := NewClient(ClientOptions{}, nil)
	assert.Error(t, err)
}
