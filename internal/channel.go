package internal

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// ChannelState is the lifecycle state of the push connection
type ChannelState int32

const (
	ChannelStateConnecting ChannelState = iota
	ChannelStateOpen
	ChannelStateRetryPending
	ChannelStateClosed
)

func (s ChannelState) String() string {
	switch s {
	case ChannelStateConnecting:
		return "connecting"
	case ChannelStateOpen:
		return "open"
	case ChannelStateRetryPending:
		return "retry-pending"
	default:
		return "closed"
	}
}

// ChannelEvent is published by the TaskChannel in arrival order
type ChannelEvent interface {
	channelEvent()
}

// ChannelConnecting is published before every dial
type ChannelConnecting struct {
	Attempt int
}

// ChannelOpened is published after a successful handshake
type ChannelOpened struct {
	Attempt int
}

// ChannelClosed is published after a failed dial or a disconnect. RetryIn is the
// delay before the next attempt.
type ChannelClosed struct {
	Err     error
	RetryIn time.Duration
}

// TaskFrame carries one decoded task event
type TaskFrame struct {
	Event TaskEvent
}

// ChannelFault reports a frame that could not be decoded. The connection stays open.
type ChannelFault struct {
	Err *ProtocolError
}

func (ChannelConnecting) channelEvent() {}
func (ChannelOpened) channelEvent()     {}
func (ChannelClosed) channelEvent()     {}
func (TaskFrame) channelEvent()         {}
func (ChannelFault) channelEvent()      {}

const (
	channelBuffer    = 64
	maxFrameBytes    = 1 << 20
	handshakeTimeout = 10 * time.Second
)

// TaskChannel keeps one logical push connection to the server and retries after a
// fixed delay whenever it drops. It never sends data frames.
type TaskChannel struct {
	url        string
	dialer     *websocket.Dialer
	header     http.Header
	retryDelay time.Duration

	events chan ChannelEvent
	state  atomic.Int32
}

// ChannelOption configures a TaskChannel
type ChannelOption func(*TaskChannel)

// WithRetryDelay sets the fixed reconnect delay
func WithRetryDelay(d time.Duration) ChannelOption {
	return func(c *TaskChannel) {
		if d > 0 {
			c.retryDelay = d
		}
	}
}

// WithDialer replaces the WebSocket dialer
func WithDialer(d *websocket.Dialer) ChannelOption {
	return func(c *TaskChannel) {
		c.dialer = d
	}
}

// WithHeader sets extra handshake headers
func WithHeader(h http.Header) ChannelOption {
	return func(c *TaskChannel) {
		c.header = h
	}
}

// NewTaskChannel creates a channel for the push endpoint at url
func NewTaskChannel(url string, opts ...ChannelOption) *TaskChannel {
	c := &TaskChannel{
		url: url,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: handshakeTimeout,
		},
		retryDelay: DefaultReconnectDelay,
		events:     make(chan ChannelEvent, channelBuffer),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.state.Store(int32(ChannelStateConnecting))
	return c
}

// Events returns the event stream. It is closed when Run returns.
func (c *TaskChannel) Events() <-chan ChannelEvent {
	return c.events
}

// State returns the current lifecycle state
func (c *TaskChannel) State() ChannelState {
	return ChannelState(c.state.Load())
}

// URL returns the push endpoint
func (c *TaskChannel) URL() string {
	return c.url
}

// Run connects and reconnects until ctx is cancelled
func (c *TaskChannel) Run(ctx context.Context) error {
	defer close(c.events)
	defer c.state.Store(int32(ChannelStateClosed))

	for attempt := 1; ; attempt++ {
		c.state.Store(int32(ChannelStateConnecting))
		if !c.emit(ctx, ChannelConnecting{Attempt: attempt}) {
			return nil
		}

		err := c.session(ctx, attempt)
		if ctx.Err() != nil {
			return nil
		}

		c.state.Store(int32(ChannelStateRetryPending))
		LogDebug("Push channel closed (%v), retrying in %s", err, c.retryDelay)
		if !c.emit(ctx, ChannelClosed{Err: err, RetryIn: c.retryDelay}) {
			return nil
		}

		timer := time.NewTimer(c.retryDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
	}
}

// Probe completes one handshake with the push endpoint and closes it again
func (c *TaskChannel) Probe(ctx context.Context) error {
	conn, resp, err := c.dialer.DialContext(ctx, c.url, c.header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return &TransportError{Op: "dial", Err: err}
	}
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	return conn.Close()
}

// session dials once and pumps frames until the connection drops
func (c *TaskChannel) session(ctx context.Context, attempt int) error {
	conn, resp, err := c.dialer.DialContext(ctx, c.url, c.header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return &TransportError{Op: "dial", Err: err}
	}
	conn.SetReadLimit(maxFrameBytes)

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			_ = conn.Close()
		case <-done:
			_ = conn.Close()
		}
	}()

	c.state.Store(int32(ChannelStateOpen))
	LogInfo("Push channel connected to %s", c.url)
	if !c.emit(ctx, ChannelOpened{Attempt: attempt}) {
		return ctx.Err()
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return &TransportError{Op: "read", Err: errRemoteClosed}
			}
			return &TransportError{Op: "read", Err: err}
		}

		ev, err := ParseTaskEvent(data)
		if errors.Is(err, ErrUntrackedEvent) {
			LogDebug("Skipping push frame without asset_id: %s", excerpt(data))
			continue
		}
		if err != nil {
			var perr *ProtocolError
			if errors.As(err, &perr) {
				LogError("Dropping malformed push frame: %v", perr)
				if !c.emit(ctx, ChannelFault{Err: perr}) {
					return ctx.Err()
				}
			}
			continue
		}
		if !c.emit(ctx, TaskFrame{Event: ev}) {
			return ctx.Err()
		}
	}
}

var errRemoteClosed = errors.New("connection closed by server")

func (c *TaskChannel) emit(ctx context.Context, ev ChannelEvent) bool {
	select {
	case c.events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}
