package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"mokjang/internal/api"
	"mokjang/internal/platform/metrics"
)

// ConnectionState classifies the push channel for display.
type ConnectionState int

const (
	StateDisconnected ConnectionState = iota
	StateConnecting
	StateConnected
)

func (s ConnectionState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "disconnected"
	}
}

// UpdateFunc receives each decoded attendance update as an independent,
// complete unit of work.
type UpdateFunc func(api.AttendanceUpdate)

// Channel maintains one persistent receive-only WebSocket to the backend.
// When the connection drops it reconnects with linear backoff: attempt N
// waits N × BaseDelay, and after MaxAttempts consecutive failures it stays
// terminally disconnected until the channel is rebuilt. Mutations never
// travel over this channel; the REST path is the only write path.
type Channel struct {
	url      string
	dialer   *websocket.Dialer
	onUpdate UpdateFunc
	logger   *slog.Logger
	metrics  *metrics.Metrics

	// BaseDelay and MaxAttempts tune the reconnect policy; set them
	// before Connect. Defaults: 1s and 5.
	BaseDelay   time.Duration
	MaxAttempts int

	mu       sync.Mutex
	state    ConnectionState
	attempts int
	conn     *websocket.Conn
	retry    *time.Timer
	closed   bool
}

// NewChannel builds a channel for the given ws:// URL. Messages invoke
// onUpdate; connection trouble is logged and reflected in State, never
// raised to the caller as a blocking error.
func NewChannel(wsURL string, onUpdate UpdateFunc, logger *slog.Logger, m *metrics.Metrics) *Channel {
	return &Channel{
		url:         wsURL,
		dialer:      websocket.DefaultDialer,
		onUpdate:    onUpdate,
		logger:      logger,
		metrics:     m,
		BaseDelay:   time.Second,
		MaxAttempts: 5,
	}
}

// Connect dials the channel and starts the read loop. It returns once the
// dial settles; reconnects after that happen in the background.
func (c *Channel) Connect(ctx context.Context) error {
	c.setState(StateConnecting)

	conn, resp, err := c.dialer.DialContext(ctx, c.url, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		c.setState(StateDisconnected)
		c.scheduleReconnect(ctx)
		return fmt.Errorf("dial push channel: %w", err)
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		conn.Close()
		return nil
	}
	c.conn = conn
	c.attempts = 0
	c.mu.Unlock()

	c.setState(StateConnected)
	c.logger.Info("push channel connected", "url", c.url)
	go c.readLoop(ctx, conn)
	return nil
}

// State returns the current connectivity classification.
func (c *Channel) State() ConnectionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Close tears the channel down and cancels any pending reconnect so no
// retry fires after teardown.
func (c *Channel) Close() error {
	c.mu.Lock()
	c.closed = true
	if c.retry != nil {
		c.retry.Stop()
		c.retry = nil
	}
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()

	if conn != nil {
		conn.Close()
	}
	c.setState(StateDisconnected)
	return nil
}

func (c *Channel) readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			c.logger.Info("push channel closed", "error", err.Error())
			break
		}
		c.handleMessage(raw)
	}
	conn.Close()
	c.setState(StateDisconnected)
	c.scheduleReconnect(ctx)
}

// handleMessage decodes one tagged payload. Malformed payloads are dropped
// and logged; unknown tags are ignored for forward compatibility.
func (c *Channel) handleMessage(raw []byte) {
	var env api.Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		c.logger.Warn("dropping malformed push message", "error", err.Error())
		return
	}
	switch env.Type {
	case api.TypeAttendanceUpdated:
		var upd api.AttendanceUpdate
		if err := json.Unmarshal(env.Data, &upd); err != nil {
			c.logger.Warn("dropping malformed attendance update", "error", err.Error())
			return
		}
		c.onUpdate(upd)
	case api.TypeError:
		c.logger.Warn("push channel server error", "message", env.Message)
	default:
	}
}

func (c *Channel) scheduleReconnect(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || ctx.Err() != nil {
		return
	}
	if c.attempts >= c.MaxAttempts {
		c.logger.Error("push channel exhausted reconnect attempts", "attempts", c.attempts)
		return
	}
	c.attempts++
	delay := time.Duration(c.attempts) * c.BaseDelay
	c.metrics.IncrementReconnects()
	c.logger.Info("scheduling push channel reconnect", "attempt", c.attempts, "max", c.MaxAttempts, "delay", delay)
	c.retry = time.AfterFunc(delay, func() {
		if err := c.Connect(ctx); err != nil {
			c.logger.Warn("push channel reconnect failed", "error", err.Error())
		}
	})
}

func (c *Channel) setState(state ConnectionState) {
	c.mu.Lock()
	c.state = state
	c.mu.Unlock()
	c.metrics.SetConnectionState(int(state))
}
