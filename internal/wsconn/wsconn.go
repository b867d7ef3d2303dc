// Package wsconn implements the single-connection state machine every
// venue dialer is built from: Connecting -> Subscribing -> Running ->
// Backoff, self-healing until Stop is called.
package wsconn

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"nhooyr.io/websocket"
)

const (
	initialBackoff = 100 * time.Millisecond
	maxBackoff     = 30 * time.Second
)

// KeepAlive configures the periodic keep-alive frame a connection emits
// while Running. Exactly one of Text, JSON, or ProtocolPing should be
// set; Text/JSON take precedence over ProtocolPing when both are set.
type KeepAlive struct {
	Interval     time.Duration
	Text         []byte
	JSON         any
	ProtocolPing bool
}

// Config parameterizes one logical connection: URL, subscription
// payload, handshake headers, a caller-assigned identifier, and an
// optional keep-alive setting.
type Config struct {
	ID        uint64
	Label     string
	URL       string
	Subscribe []byte
	Headers   http.Header
	KeepAlive *KeepAlive
}

// TextHandler is invoked for each text frame, with the local arrival
// time stamped by the connection at the moment of arrival.
type TextHandler func(data []byte, arrival time.Time)

// BinaryHandler is invoked for each binary frame.
type BinaryHandler func(data []byte, arrival time.Time)

// Connection is a single reconnecting WebSocket client. The zero value
// is not usable; construct with New.
type Connection struct {
	cfg    Config
	log    *log.Logger
	onText TextHandler
	onBin  BinaryHandler

	sendCh chan []byte
	stopCh chan struct{}
	stopOnce sync.Once

	mu      sync.Mutex
	backoff time.Duration
}

// New returns a Connection in the Connecting state, not yet started.
func New(cfg Config, logger *log.Logger) *Connection {
	return &Connection{
		cfg:     cfg,
		log:     logger,
		sendCh:  make(chan []byte, 64),
		stopCh:  make(chan struct{}),
		backoff: initialBackoff,
	}
}

// Start runs the reconnect loop until ctx is canceled or Stop is called.
// It blocks the calling goroutine; callers run it in its own goroutine.
func (c *Connection) Start(ctx context.Context, onText TextHandler, onBinary BinaryHandler) error {
	c.onText = onText
	c.onBin = onBinary

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.stopCh:
			return nil
		default:
		}

		err := c.runOnce(ctx)
		if err == nil {
			continue
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		select {
		case <-c.stopCh:
			return nil
		default:
		}

		wait := c.nextBackoff()
		c.log.Warn("disconnected, backing off", "conn", c.cfg.Label, "id", c.cfg.ID, "err", err, "backoff", wait)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.stopCh:
			return nil
		case <-time.After(wait):
		}
	}
}

// Send enqueues a text frame for transmission by the write loop of the
// current or next Running connection. The queue holds 64 frames; when it
// is full the frame is dropped with a warning.
func (c *Connection) Send(text []byte) {
	select {
	case c.sendCh <- text:
	default:
		c.log.Warn("send queue full, dropping frame", "conn", c.cfg.Label, "id", c.cfg.ID)
	}
}

// Stop transitions the connection to Closed. It is idempotent and safe
// to call from any goroutine; it preempts every wait point (backoff
// sleep, frame read, keep-alive tick, caller send).
func (c *Connection) Stop() {
	c.stopOnce.Do(func() { close(c.stopCh) })
}

// ID returns the connection identifier it was constructed with.
func (c *Connection) ID() uint64 { return c.cfg.ID }

func (c *Connection) nextBackoff() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	wait := c.backoff
	c.backoff *= 2
	if c.backoff > maxBackoff {
		c.backoff = maxBackoff
	}
	return wait
}

func (c *Connection) resetBackoff() {
	c.mu.Lock()
	c.backoff = initialBackoff
	c.mu.Unlock()
}

// runOnce performs one Connecting -> Subscribing -> Running cycle. Any
// read error, close frame, or stream end returns a non-nil error,
// driving the outer loop back to Backoff.
func (c *Connection) runOnce(ctx context.Context) error {
	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	conn, _, err := websocket.Dial(dialCtx, c.cfg.URL, &websocket.DialOptions{HTTPHeader: c.cfg.Headers})
	cancel()
	if err != nil {
		return fmt.Errorf("dial %s: %w", c.cfg.Label, err)
	}
	defer conn.CloseNow()

	c.resetBackoff()
	c.log.Info("connected", "conn", c.cfg.Label, "id", c.cfg.ID)

	if len(c.cfg.Subscribe) > 0 {
		if err := conn.Write(ctx, websocket.MessageText, c.cfg.Subscribe); err != nil {
			return fmt.Errorf("subscribe %s: %w", c.cfg.Label, err)
		}
	}

	runCtx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()

	errCh := make(chan error, 3)
	go c.readLoop(runCtx, conn, errCh)
	go c.writeLoop(runCtx, conn, errCh)
	if c.cfg.KeepAlive != nil {
		go c.keepAliveLoop(runCtx, conn, errCh)
	}

	select {
	case <-c.stopCh:
		_ = conn.Close(websocket.StatusNormalClosure, "stop")
		return nil
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Connection) readLoop(ctx context.Context, conn *websocket.Conn, errCh chan<- error) {
	for {
		kind, data, err := conn.Read(ctx)
		if err != nil {
			select {
			case errCh <- err:
			default:
			}
			return
		}
		arrival := time.Now()
		switch kind {
		case websocket.MessageText:
			if c.onText != nil {
				c.onText(data, arrival)
			}
		case websocket.MessageBinary:
			if c.onBin != nil {
				c.onBin(data, arrival)
			}
		}
	}
}

func (c *Connection) writeLoop(ctx context.Context, conn *websocket.Conn, errCh chan<- error) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.stopCh:
			return
		case frame := <-c.sendCh:
			if err := conn.Write(ctx, websocket.MessageText, frame); err != nil {
				select {
				case errCh <- err:
				default:
				}
				return
			}
		}
	}
}

func (c *Connection) keepAliveLoop(ctx context.Context, conn *websocket.Conn, errCh chan<- error) {
	ka := c.cfg.KeepAlive
	ticker := time.NewTicker(ka.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.stopCh:
			return
		case <-ticker.C:
			if err := c.sendKeepAlive(ctx, conn, ka); err != nil {
				select {
				case errCh <- err:
				default:
				}
				return
			}
		}
	}
}

func (c *Connection) sendKeepAlive(ctx context.Context, conn *websocket.Conn, ka *KeepAlive) error {
	switch {
	case len(ka.Text) > 0:
		return conn.Write(ctx, websocket.MessageText, ka.Text)
	case ka.JSON != nil:
		payload, err := marshalJSON(ka.JSON)
		if err != nil {
			return nil // malformed keep-alive payload is a config bug, not a connection error
		}
		return conn.Write(ctx, websocket.MessageText, payload)
	case ka.ProtocolPing:
		return conn.Ping(ctx)
	}
	return nil
}
