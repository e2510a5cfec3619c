package bus

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// HubOptions tunes the relay.
type HubOptions struct {
	// SendBuffer is the per-peer queue; a full queue drops the message.
	SendBuffer   int
	WriteTimeout time.Duration
	PingInterval time.Duration
	MaxMessage   int64
	// EchoSender also delivers a message back to the peer that sent it.
	EchoSender bool
}

func (o HubOptions) withDefaults() HubOptions {
	if o.SendBuffer <= 0 {
		o.SendBuffer = 64
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 200 * time.Millisecond
	}
	if o.PingInterval <= 0 {
		o.PingInterval = 20 * time.Second
	}
	if o.MaxMessage <= 0 {
		o.MaxMessage = 16 << 10
	}
	return o
}

// HubStats is reported on the relay's health endpoint.
type HubStats struct {
	Displays    int    `json:"displays"`
	Controllers int    `json:"controllers"`
	Relayed     uint64 `json:"relayed"`
	Dropped     uint64 `json:"dropped"`
	Rejected    uint64 `json:"rejected"`
}

type peer struct {
	id   string
	role Role
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
	once sync.Once
}

func (p *peer) close() {
	p.once.Do(func() {
		close(p.done)
		p.conn.Close()
	})
}

// Hub is the websocket relay. Each message a peer sends is fanned out to
// every other connected peer, at most once, with no retry.
type Hub struct {
	opts     HubOptions
	logger   *slog.Logger
	upgrader websocket.Upgrader

	mu    sync.RWMutex
	peers map[*peer]struct{}
	// controller ids already announced; reconnects stay silent
	announced map[string]struct{}

	relayed  atomic.Uint64
	dropped  atomic.Uint64
	rejected atomic.Uint64
}

// NewHub builds an idle hub; mount it with ServeHTTP.
func NewHub(opts HubOptions, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		opts:   opts.withDefaults(),
		logger: logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		peers:     make(map[*peer]struct{}),
		announced: make(map[string]struct{}),
	}
}

// ServeHTTP upgrades the request and serves the peer until it disconnects.
// Query parameters: role=controller|display, id=<optional peer id>.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("websocket upgrade failed", slog.Any("error", err))
		return
	}

	id := r.URL.Query().Get("id")
	if id == "" {
		id = uuid.NewString()
	}
	p := &peer{
		id:   id,
		role: ParseRole(r.URL.Query().Get("role")),
		conn: conn,
		send: make(chan []byte, h.opts.SendBuffer),
		done: make(chan struct{}),
	}

	h.register(p)
	defer h.unregister(p)

	go h.writePump(p)

	if p.role == RoleController {
		h.announceController(p)
	}

	h.readPump(p)
}

func (h *Hub) register(p *peer) {
	h.mu.Lock()
	h.peers[p] = struct{}{}
	h.mu.Unlock()

	h.logger.Info("peer connected",
		slog.String("id", p.id),
		slog.String("role", string(p.role)))
}

func (h *Hub) unregister(p *peer) {
	h.mu.Lock()
	delete(h.peers, p)
	h.mu.Unlock()
	p.close()

	h.logger.Info("peer disconnected",
		slog.String("id", p.id),
		slog.String("role", string(p.role)))
}

func (h *Hub) announceController(p *peer) {
	h.mu.Lock()
	_, seen := h.announced[p.id]
	h.announced[p.id] = struct{}{}
	h.mu.Unlock()
	if seen {
		h.logger.Debug("controller reconnected", slog.String("id", p.id))
		return
	}

	env, err := NewEnvelope(KindLandingProceed, map[string]string{"controller": p.id})
	if err != nil {
		h.logger.Warn("failed to build presence notification", slog.Any("error", err))
		return
	}
	env.Sender = "relay"
	data, err := env.Encode()
	if err != nil {
		h.logger.Warn("failed to encode presence notification", slog.Any("error", err))
		return
	}
	h.broadcast(data, p)
}

func (h *Hub) readPump(p *peer) {
	p.conn.SetReadLimit(h.opts.MaxMessage)
	for {
		_, data, err := p.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Debug("peer read failed", slog.String("id", p.id), slog.Any("error", err))
			}
			return
		}

		env, err := DecodeEnvelope(data)
		if err != nil {
			h.rejected.Add(1)
			h.logger.Debug("dropping malformed message",
				slog.String("id", p.id),
				slog.Any("error", err))
			continue
		}
		env.Sender = p.id
		out, err := env.Encode()
		if err != nil {
			h.rejected.Add(1)
			continue
		}

		exclude := p
		if h.opts.EchoSender {
			exclude = nil
		}
		h.broadcast(out, exclude)
	}
}

func (h *Hub) writePump(p *peer) {
	ping := time.NewTicker(h.opts.PingInterval)
	defer ping.Stop()
	defer p.close()

	for {
		select {
		case <-p.done:
			return
		case msg := <-p.send:
			_ = p.conn.SetWriteDeadline(time.Now().Add(h.opts.WriteTimeout))
			if err := p.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				h.logger.Debug("write to peer failed", slog.String("id", p.id), slog.Any("error", err))
				return
			}
		case <-ping.C:
			_ = p.conn.SetWriteDeadline(time.Now().Add(h.opts.WriteTimeout))
			if err := p.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// broadcast queues data for every peer except exclude. Full queues drop.
func (h *Hub) broadcast(data []byte, exclude *peer) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for p := range h.peers {
		if p == exclude {
			continue
		}
		select {
		case p.send <- data:
			h.relayed.Add(1)
		default:
			h.dropped.Add(1)
		}
	}
}

// Close disconnects every peer.
func (h *Hub) Close() {
	h.mu.RLock()
	peers := make([]*peer, 0, len(h.peers))
	for p := range h.peers {
		peers = append(peers, p)
	}
	h.mu.RUnlock()

	for _, p := range peers {
		p.close()
	}
}

// Stats snapshots the counters.
func (h *Hub) Stats() HubStats {
	h.mu.RLock()
	defer h.mu.RUnlock()

	stats := HubStats{
		Relayed:  h.relayed.Load(),
		Dropped:  h.dropped.Load(),
		Rejected: h.rejected.Load(),
	}
	for p := range h.peers {
		if p.role == RoleController {
			stats.Controllers++
		} else {
			stats.Displays++
		}
	}
	return stats
}

// HandleHealth writes Stats as JSON.
func (h *Hub) HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(h.Stats())
}
