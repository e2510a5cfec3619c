package bus

import (
	"context"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rotisserie/eris"
)

// ClientOptions configure a relay connection.
type ClientOptions struct {
	URL            string
	Role           Role
	ID             string
	ReconnectDelay time.Duration
	WriteTimeout   time.Duration
}

// Client is a reconnecting websocket peer. Messages received from the relay
// are dispatched to subscribers from the read goroutine; publishing while
// disconnected fails with ErrDisconnected and nothing is buffered.
type Client struct {
	opts   ClientOptions
	logger *slog.Logger
	reg    *registry
	dialer *websocket.Dialer

	mu   sync.Mutex
	conn *websocket.Conn
}

// NewClient validates opts; it does not dial until Run.
func NewClient(opts ClientOptions, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.URL == "" {
		return nil, eris.New("relay url is required")
	}
	if _, err := url.Parse(opts.URL); err != nil {
		return nil, eris.Wrapf(err, "parse relay url %q", opts.URL)
	}
	if opts.Role == "" {
		opts.Role = RoleDisplay
	}
	if opts.ID == "" {
		opts.ID = uuid.NewString()
	}
	if opts.ReconnectDelay <= 0 {
		opts.ReconnectDelay = 2 * time.Second
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 500 * time.Millisecond
	}
	return &Client{
		opts:   opts,
		logger: logger,
		reg:    newRegistry(),
		dialer: websocket.DefaultDialer,
	}, nil
}

// ID is the sender id this client dials with.
func (c *Client) ID() string {
	return c.opts.ID
}

// Connected reports whether a relay connection is currently up.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

func (c *Client) endpoint() (string, error) {
	u, err := url.Parse(c.opts.URL)
	if err != nil {
		return "", eris.Wrap(err, "parse relay url")
	}
	q := u.Query()
	q.Set("role", string(c.opts.Role))
	q.Set("id", c.opts.ID)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Run dials the relay and serves the connection, redialing after
// ReconnectDelay until ctx is cancelled.
func (c *Client) Run(ctx context.Context) error {
	endpoint, err := c.endpoint()
	if err != nil {
		return err
	}

	for {
		if err := c.serve(ctx, endpoint); err != nil && ctx.Err() == nil {
			c.logger.Warn("relay connection lost",
				slog.String("url", c.opts.URL),
				slog.Any("error", err))
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.opts.ReconnectDelay):
		}
	}
}

func (c *Client) serve(ctx context.Context, endpoint string) error {
	conn, _, err := c.dialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return eris.Wrapf(err, "dial relay %s", c.opts.URL)
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
	c.logger.Info("connected to relay",
		slog.String("url", c.opts.URL),
		slog.String("role", string(c.opts.Role)))

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(c.opts.WriteTimeout))
			conn.Close()
		case <-stop:
		}
	}()

	defer func() {
		c.mu.Lock()
		c.conn = nil
		c.mu.Unlock()
		conn.Close()
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return eris.Wrap(err, "read from relay")
		}
		env, err := DecodeEnvelope(data)
		if err != nil {
			c.logger.Debug("ignoring malformed relay message", slog.Any("error", err))
			continue
		}
		c.reg.dispatch(env)
	}
}

// Publish sends one envelope to the relay.
func (c *Client) Publish(ctx context.Context, kind string, payload any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	env, err := NewEnvelope(kind, payload)
	if err != nil {
		return err
	}
	env.Sender = c.opts.ID
	data, err := env.Encode()
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return ErrDisconnected
	}
	deadline := time.Now().Add(c.opts.WriteTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = c.conn.SetWriteDeadline(deadline)
	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return eris.Wrapf(err, "publish %s", kind)
	}
	return nil
}

// Subscribe registers h for envelopes received from the relay.
func (c *Client) Subscribe(kind string, h Handler) func() {
	return c.reg.add(kind, h)
}
