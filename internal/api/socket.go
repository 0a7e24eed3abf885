package api

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	apierrors "github.com/diogo/mira/internal/errors"
	"github.com/diogo/mira/internal/models"
)

const (
	maxMessageSize  = 1 << 20
	writeWait       = 10 * time.Second
	eventBufferSize = 64
)

// ErrClientClosed is returned by Connect after Close
var ErrClientClosed = errors.New("socket client closed")

// EventKind identifies what happened on the socket
type EventKind int

const (
	EventOpen EventKind = iota
	EventMessage
	EventError
	EventClose
)

func (k EventKind) String() string {
	switch k {
	case EventOpen:
		return "open"
	case EventMessage:
		return "message"
	case EventError:
		return "error"
	case EventClose:
		return "close"
	default:
		return "unknown"
	}
}

// Event is delivered on the channel returned by Events.
// Reply is set for EventMessage, Err for EventError.
type Event struct {
	Kind  EventKind
	Reply models.Reply
	Err   error
}

// Dialer opens websocket connections. *websocket.Dialer satisfies it.
type Dialer interface {
	DialContext(ctx context.Context, urlStr string, requestHeader http.Header) (*websocket.Conn, *http.Response, error)
}

// Timer is a pending reconnect
type Timer interface {
	Stop() bool
}

// Scheduler runs f once after d
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type realScheduler struct{}

func (realScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// SocketClient keeps one connection to the assistant service open,
// reporting its lifecycle as events and dialing again after every close.
type SocketClient struct {
	url           string
	dialer        Dialer
	delay         time.Duration
	maxReconnects int
	scheduler     Scheduler
	log           zerolog.Logger

	events chan Event
	done   chan struct{}

	mu       sync.Mutex
	writeMu  sync.Mutex
	conn     *websocket.Conn
	ctx      context.Context
	timer    Timer
	dialing  bool
	closed   bool
	attempts int
}

// SocketOption configures a SocketClient
type SocketOption func(*SocketClient)

// WithDialer replaces the websocket dialer
func WithDialer(d Dialer) SocketOption {
	return func(c *SocketClient) {
		c.dialer = d
	}
}

// WithReconnectDelay sets the fixed wait between a close and the next dial
func WithReconnectDelay(d time.Duration) SocketOption {
	return func(c *SocketClient) {
		if d > 0 {
			c.delay = d
		}
	}
}

// WithMaxReconnects bounds consecutive reconnect attempts (0 = unlimited)
func WithMaxReconnects(n int) SocketOption {
	return func(c *SocketClient) {
		c.maxReconnects = n
	}
}

// WithScheduler replaces the timer used for reconnects
func WithScheduler(s Scheduler) SocketOption {
	return func(c *SocketClient) {
		c.scheduler = s
	}
}

// WithLogger sets the logger for connection diagnostics
func WithLogger(logger zerolog.Logger) SocketOption {
	return func(c *SocketClient) {
		c.log = logger
	}
}

// NewSocketClient creates a client for url. Nothing is dialed until Connect.
func NewSocketClient(url string, opts ...SocketOption) *SocketClient {
	c := &SocketClient{
		url: url,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: 10 * time.Second,
			ReadBufferSize:   1024,
			WriteBufferSize:  1024,
		},
		delay:     models.DefaultReconnectDelay,
		scheduler: realScheduler{},
		log:       zerolog.Nop(),
		events:    make(chan Event, eventBufferSize),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// URL returns the endpoint this client dials
func (c *SocketClient) URL() string {
	return c.url
}

// Events returns the event stream. It is never closed; stop reading after Close.
func (c *SocketClient) Events() <-chan Event {
	return c.events
}

// Done is closed once Close has been called
func (c *SocketClient) Done() <-chan struct{} {
	return c.done
}

// Sendable reports whether a connection is currently open
func (c *SocketClient) Sendable() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

// Connect dials the endpoint once. A failed dial is reported as an error
// event followed by a close event, and a reconnect is scheduled.
// ctx bounds the client: reconnects stop once it is done.
func (c *SocketClient) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClientClosed
	}
	if c.conn != nil || c.dialing {
		c.mu.Unlock()
		return nil
	}
	c.dialing = true
	c.ctx = ctx
	c.mu.Unlock()

	c.log.Debug().Str("url", c.url).Msg("dialing")
	conn, resp, err := c.dialer.DialContext(ctx, c.url, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}

	c.mu.Lock()
	c.dialing = false
	if err == nil && c.closed {
		c.mu.Unlock()
		_ = conn.Close()
		return ErrClientClosed
	}
	if err == nil {
		conn.SetReadLimit(maxMessageSize)
		c.conn = conn
		c.attempts = 0
	}
	c.mu.Unlock()

	if err != nil {
		cerr := apierrors.NewConnectionError(c.url, err)
		c.log.Warn().Err(err).Str("url", c.url).Msg("dial failed")
		c.emit(Event{Kind: EventError, Err: cerr})
		c.closedConnection()
		return cerr
	}

	c.log.Info().Str("url", c.url).Msg("connected")
	c.emit(Event{Kind: EventOpen})
	go c.readLoop(conn)
	return nil
}

// Send writes text as a single text frame. It returns ErrNotConnected
// while no connection is open.
func (c *SocketClient) Send(text string) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()

	if conn == nil {
		return apierrors.ErrNotConnected
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteMessage(websocket.TextMessage, []byte(text)); err != nil {
		return apierrors.NewConnectionError(c.url, err)
	}
	return nil
}

// Close cancels any pending reconnect and closes the connection
func (c *SocketClient) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	conn := c.conn
	c.conn = nil
	close(c.done)
	c.mu.Unlock()

	if conn == nil {
		return nil
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeWait))
	return conn.Close()
}

func (c *SocketClient) readLoop(conn *websocket.Conn) {
	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			c.mu.Lock()
			if c.conn == conn {
				c.conn = nil
			}
			closing := c.closed
			c.mu.Unlock()
			_ = conn.Close()

			if closing {
				return
			}

			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.log.Info().Str("url", c.url).Msg("connection closed by server")
			} else {
				c.log.Warn().Err(err).Str("url", c.url).Msg("connection lost")
				c.emit(Event{Kind: EventError, Err: apierrors.NewConnectionError(c.url, err)})
			}
			c.closedConnection()
			return
		}

		reply := models.ParseSocketReply(payload)
		if !reply.OK() {
			c.log.Debug().Err(reply.Err).Int("bytes", len(payload)).Msg("unusable reply")
		}
		c.emit(Event{Kind: EventMessage, Reply: reply})
	}
}

// closedConnection reports the close and schedules exactly one reconnect
func (c *SocketClient) closedConnection() {
	c.emit(Event{Kind: EventClose})

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	if c.ctx != nil && c.ctx.Err() != nil {
		c.log.Debug().Msg("context done, not reconnecting")
		return
	}
	if c.maxReconnects > 0 && c.attempts >= c.maxReconnects {
		c.log.Warn().Int("attempts", c.attempts).Msg("giving up reconnecting")
		return
	}

	c.attempts++
	ctx := c.ctx
	c.log.Debug().Dur("delay", c.delay).Int("attempt", c.attempts).Msg("reconnect scheduled")
	c.timer = c.scheduler.AfterFunc(c.delay, func() {
		c.reconnect(ctx)
	})
}

func (c *SocketClient) reconnect(ctx context.Context) {
	c.mu.Lock()
	c.timer = nil
	closed := c.closed
	c.mu.Unlock()

	if closed {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	_ = c.Connect(ctx)
}

func (c *SocketClient) emit(ev Event) {
	select {
	case c.events <- ev:
	case <-c.done:
	}
}
