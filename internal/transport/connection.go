package transport

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/satelink/internal/logging"
)

// DefaultReconnectInterval is the delay between reconnection attempts.
const DefaultReconnectInterval = 15 * time.Second

// Connection wraps a Transport with automatic reconnection. The retry
// loop is unbounded on purpose: the driver is a long-lived monitoring
// service and only a terminal Close stops it.
type Connection struct {
	transport         *Transport
	reconnectInterval time.Duration
}

// NewConnection creates a reconnecting connection to the panel. A zero
// reconnectInterval selects the default.
func NewConnection(host string, port int, integrationKey string, reconnectInterval time.Duration) *Connection {
	if reconnectInterval <= 0 {
		reconnectInterval = DefaultReconnectInterval
	}
	return &Connection{
		transport:         New(host, port, integrationKey),
		reconnectInterval: reconnectInterval,
	}
}

// Connected reports whether the underlying transport is connected.
func (c *Connection) Connected() bool { return c.transport.Connected() }

// Closed reports whether the connection was terminally closed.
func (c *Connection) Closed() bool { return c.transport.Closed() }

// Connect performs a single connect attempt including the busy probe.
// It short-circuits once the connection is closed.
func (c *Connection) Connect(ctx context.Context) error {
	if c.transport.Closed() {
		logging.Debug("Connection is closed, skipping connect")
		return ErrClosed
	}

	logging.Debug("Connecting to panel",
		zap.String("host", c.transport.host),
		zap.Int("port", c.transport.port),
	)
	if err := c.transport.Connect(ctx); err != nil {
		logging.Warn("Connection failed", zap.Error(err))
		return err
	}
	if err := c.transport.CheckConnection(); err != nil {
		logging.Warn("Connection check failed", zap.Error(err))
		return err
	}

	logging.Info("Connected to panel")
	return nil
}

// EnsureConnected blocks until the transport is connected, retrying with
// the configured interval. It returns false when the connection is
// closed or the context is cancelled before a connect succeeds.
func (c *Connection) EnsureConnected(ctx context.Context) bool {
	if c.Connected() {
		return true
	}

	logging.Debug("Not connected, attempting reconnection")
	for !c.Connected() && !c.Closed() {
		if err := c.Connect(ctx); err != nil {
			logging.Warn("Connection failed, retrying",
				zap.Duration("retry_in", c.reconnectInterval),
			)
			select {
			case <-ctx.Done():
				return false
			case <-time.After(c.reconnectInterval):
			}
		}
	}
	return c.Connected()
}

// ReadFrame reads one raw frame from the panel.
func (c *Connection) ReadFrame() ([]byte, error) { return c.transport.ReadFrame() }

// SendFrame sends one raw frame to the panel.
func (c *Connection) SendFrame(frame []byte) error { return c.transport.SendFrame(frame) }

// Drop discards the current socket so the next EnsureConnected dials a
// fresh session.
func (c *Connection) Drop() { c.transport.Drop() }

// Close terminally closes the connection; the reconnect loop stops.
func (c *Connection) Close() error {
	if c.transport.Closed() {
		return nil
	}
	logging.Debug("Closing connection")
	err := c.transport.Close()
	logging.Info("Connection closed")
	return err
}
