package main

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cybre/backdrop-sync/internal/bus"
)

func TestMuxServesHealth(t *testing.T) {
	hub := bus.NewHub(bus.HubOptions{}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	srv := httptest.NewServer(newMux(hub))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var stats bus.HubStats
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&stats))
	assert.Zero(t, stats.Displays)
}

func TestMuxRejectsPlainRequestsOnWebsocketRoute(t *testing.T) {
	hub := bus.NewHub(bus.HubOptions{}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	srv := httptest.NewServer(newMux(hub))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/ws")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
