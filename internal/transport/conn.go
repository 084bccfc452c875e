// Package transport maintains the single logical socket connection to the
// real-time server for one authenticated session.
package transport

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/signaldesk/sigdesk-go/internal/model"
)

// ErrNotConnected is returned by Emit when no connection is established.
var ErrNotConnected = errors.New("transport: not connected")

// EventKind classifies lifecycle signals delivered on the event channel.
type EventKind string

const (
	KindConnected    EventKind = "connected"
	KindDisconnected EventKind = "disconnected"
	KindError        EventKind = "error"
	KindNamed        EventKind = "event"
)

// Event is a lifecycle signal or a raw named server event. ConnID identifies
// the connection instance that produced it; named events are never delivered
// before the connected signal carrying the same ConnID.
type Event struct {
	Kind    EventKind
	Name    string // named events only
	Payload []byte // named events only, raw JSON
	Err     string // error events only
	ConnID  string
}

// Conn owns one logical connection to the real-time server, reconnecting
// transparently on unexpected drops. Derived state (channels, typing) is
// not cleared on a transient reconnect, only on explicit Disconnect.
type Conn struct {
	serverURL string
	retryWait time.Duration
	verbose   bool

	events chan Event

	mu      sync.Mutex
	ws      *websocket.Conn
	status  model.ConnStatus
	token   string
	closed  chan struct{}
	closeFn *sync.Once

	writeMu sync.Mutex
}

// New creates a connection for the given websocket URL. No dialing happens
// until Connect.
func New(serverURL string, verbose bool) *Conn {
	return &Conn{
		serverURL: serverURL,
		retryWait: 2 * time.Second,
		verbose:   verbose,
		events:    make(chan Event, 256),
		status:    model.StatusDisconnected,
	}
}

// Events returns the lifecycle/event channel. All events for a session are
// delivered in order on this single channel.
func (c *Conn) Events() <-chan Event {
	return c.events
}

// Status returns the current connection status.
func (c *Conn) Status() model.ConnStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Connect opens the connection, carrying token in the handshake. Idempotent:
// a no-op while already connecting or connected. Dial failures are surfaced
// asynchronously as error events, never as a synchronous error.
func (c *Conn) Connect(token string) {
	c.mu.Lock()
	if c.status != model.StatusDisconnected {
		c.mu.Unlock()
		return
	}
	c.status = model.StatusConnecting
	c.token = token
	c.closed = make(chan struct{})
	c.closeFn = &sync.Once{}
	closed := c.closed
	c.mu.Unlock()

	go c.run(token, closed)
}

// Disconnect tears the session down: the socket is released, reconnects
// stop, and a final disconnected signal is emitted. The caller is expected
// to clear derived state.
func (c *Conn) Disconnect() {
	c.mu.Lock()
	if c.status == model.StatusDisconnected {
		c.mu.Unlock()
		return
	}
	c.status = model.StatusDisconnected
	ws := c.ws
	c.ws = nil
	closeFn := c.closeFn
	closed := c.closed
	c.mu.Unlock()

	closeFn.Do(func() { close(closed) })
	if ws != nil {
		ws.Close()
	}
	c.send(Event{Kind: KindDisconnected})
}

func (c *Conn) run(token string, closed chan struct{}) {
	for {
		select {
		case <-closed:
			return
		default:
		}

		ws, err := c.dial(token)
		if err != nil {
			c.send(Event{Kind: KindError, Err: err.Error()})
			if !c.waitRetry(closed) {
				return
			}
			continue
		}

		connID := uuid.New().String()
		c.mu.Lock()
		if c.status == model.StatusDisconnected {
			// Torn down while dialing.
			c.mu.Unlock()
			ws.Close()
			return
		}
		c.ws = ws
		c.status = model.StatusConnected
		c.mu.Unlock()

		// Some deployments only read the token from the handshake payload,
		// so send it again as the first frame.
		if frame, err := envelope("auth", map[string]any{"token": token}); err == nil {
			c.writeMu.Lock()
			ws.WriteMessage(websocket.TextMessage, frame)
			c.writeMu.Unlock()
		}

		c.send(Event{Kind: KindConnected, ConnID: connID})
		if c.verbose {
			fmt.Printf("[socket] connected (%s)\n", connID)
		}

		c.readLoop(ws, connID)

		c.mu.Lock()
		tornDown := c.status == model.StatusDisconnected
		c.ws = nil
		if !tornDown {
			c.status = model.StatusConnecting
		}
		c.mu.Unlock()
		ws.Close()

		if tornDown {
			// Disconnect already emitted the final signal.
			return
		}

		c.send(Event{Kind: KindDisconnected, ConnID: connID})
		if c.verbose {
			fmt.Printf("[socket] connection lost, retrying in %s\n", c.retryWait)
		}
		if !c.waitRetry(closed) {
			return
		}
	}
}

// dial carries the token both as an Authorization header and a query
// parameter; the server may honor either.
func (c *Conn) dial(token string) (*websocket.Conn, error) {
	u, err := url.Parse(c.serverURL)
	if err != nil {
		return nil, fmt.Errorf("invalid socket URL: %w", err)
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()

	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)

	dialer := &websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	ws, _, err := dialer.Dial(u.String(), header)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", c.serverURL, err)
	}
	return ws, nil
}

func (c *Conn) readLoop(ws *websocket.Conn, connID string) {
	for {
		_, raw, err := ws.ReadMessage()
		if err != nil {
			return
		}
		name, data, ok := parseFrame(raw)
		if !ok {
			continue
		}
		c.send(Event{Kind: KindNamed, Name: name, Payload: data, ConnID: connID})
	}
}

// waitRetry sleeps the fixed reconnect delay. Reports false when the session
// was torn down while waiting.
func (c *Conn) waitRetry(closed chan struct{}) bool {
	select {
	case <-closed:
		return false
	case <-time.After(c.retryWait):
		return true
	}
}

func (c *Conn) send(ev Event) {
	select {
	case c.events <- ev:
	default:
		// Slow consumer; drop rather than stall the socket.
		fmt.Printf("[socket] event buffer full, dropping %s\n", ev.Kind)
	}
}

// Emit sends a named event with the given payload fields.
func (c *Conn) Emit(event string, fields map[string]any) error {
	c.mu.Lock()
	ws := c.ws
	c.mu.Unlock()
	if ws == nil {
		return ErrNotConnected
	}

	frame, err := envelope(event, fields)
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return ws.WriteMessage(websocket.TextMessage, frame)
}

// JoinChannel subscribes this session to a channel's events.
func (c *Conn) JoinChannel(channelID string) error {
	return c.Emit("join-channel", map[string]any{"channelId": channelID})
}

// LeaveChannel unsubscribes this session from a channel's events.
func (c *Conn) LeaveChannel(channelID string) error {
	return c.Emit("leave-channel", map[string]any{"channelId": channelID})
}

// SendMessage sends a chat message; the server assigns the id and echoes it
// back as a new-message event.
func (c *Conn) SendMessage(channelID, content string, kind model.MessageKind) error {
	return c.Emit("send-message", map[string]any{
		"channelId": channelID,
		"content":   content,
		"kind":      string(kind),
	})
}

// SendTyping reports this user's typing state in a channel.
func (c *Conn) SendTyping(channelID string, isTyping bool) error {
	return c.Emit("typing", map[string]any{
		"channelId": channelID,
		"isTyping":  isTyping,
	})
}

// SendAIThinking broadcasts the AI-busy indicator for a channel.
func (c *Conn) SendAIThinking(channelID string, isThinking bool) error {
	return c.Emit("ai-thinking", map[string]any{
		"channelId":  channelID,
		"isThinking": isThinking,
	})
}

// SendSystemMessage injects an application-authored message into a channel.
func (c *Conn) SendSystemMessage(channelID, content, authorName string) error {
	return c.Emit("send-system-message", map[string]any{
		"channelId":  channelID,
		"content":    content,
		"authorName": authorName,
	})
}
