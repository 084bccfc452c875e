// Package client wires the transport, router, store and slash-command
// orchestrator into one session: the single source of truth the UI reads.
package client

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/signaldesk/sigdesk-go/internal/api"
	"github.com/signaldesk/sigdesk-go/internal/auth"
	"github.com/signaldesk/sigdesk-go/internal/command"
	"github.com/signaldesk/sigdesk-go/internal/config"
	"github.com/signaldesk/sigdesk-go/internal/intel"
	"github.com/signaldesk/sigdesk-go/internal/model"
	"github.com/signaldesk/sigdesk-go/internal/router"
	"github.com/signaldesk/sigdesk-go/internal/store"
	"github.com/signaldesk/sigdesk-go/internal/transport"
)

// systemAuthorName is the display name attached to application-authored
// messages.
const systemAuthorName = "signalDesk"

// ErrNotAuthenticated is returned by Connect when no token is stored.
var ErrNotAuthenticated = errors.New("client: not logged in")

// Socket is the transport surface the client drives. *transport.Conn
// implements it; tests substitute fakes.
type Socket interface {
	Connect(token string)
	Disconnect()
	Events() <-chan transport.Event
	Status() model.ConnStatus
	JoinChannel(channelID string) error
	LeaveChannel(channelID string) error
	SendMessage(channelID, content string, kind model.MessageKind) error
	SendTyping(channelID string, isTyping bool) error
	SendAIThinking(channelID string, isThinking bool) error
	SendSystemMessage(channelID, content, authorName string) error
}

// HistoryFetcher loads channel history from the REST backend.
type HistoryFetcher interface {
	Messages(ctx context.Context, channelID string, page, limit int) ([]model.Message, error)
}

// Options holds client collaborators.
type Options struct {
	Socket   Socket
	History  HistoryFetcher
	Contexts command.ContextFetcher
	AI       command.Asker
	Tokens   auth.TokenStore
	Rand     *rand.Rand // slash-command fallback selection
	Verbose  bool
}

// Client is one authenticated chat session.
type Client struct {
	socket   Socket
	history  HistoryFetcher
	tokens   auth.TokenStore
	store    *store.Store
	tracker  *intel.Tracker
	router   *router.Router
	commands *command.Orchestrator
	typing   *rate.Limiter
	verbose  bool

	mu        sync.Mutex
	started   bool
	stop      chan struct{}
	connState model.ConnectionState
}

// New creates a client from explicit collaborators.
func New(opts Options) *Client {
	s := store.New()
	c := &Client{
		socket:  opts.Socket,
		history: opts.History,
		tokens:  opts.Tokens,
		store:   s,
		tracker: intel.NewTracker(s),
		// Typing notifications fire on every keystroke upstream; one emit
		// every two seconds is plenty for the indicator.
		typing:    rate.NewLimiter(rate.Every(2*time.Second), 1),
		verbose:   opts.Verbose,
		connState: model.ConnectionState{Status: model.StatusDisconnected},
	}
	c.router = router.New(s,
		router.WithErrorHandler(c.setLastError),
		router.WithVerbose(opts.Verbose),
	)
	c.commands = command.New(command.Config{
		Contexts: opts.Contexts,
		AI:       opts.AI,
		Emitter:  (*emitter)(c),
		Rand:     opts.Rand,
		Verbose:  opts.Verbose,
	})
	return c
}

// FromConfig creates a production client: websocket transport plus REST
// collaborators from the loaded configuration.
func FromConfig(cfg *config.Config, tokens auth.TokenStore) *Client {
	rest := api.New(api.Config{
		BaseURL:        cfg.Server.APIURL,
		AIBaseURL:      cfg.Server.AIURL,
		RequestTimeout: cfg.RequestTimeout(),
		ResourceCeil:   cfg.ResourceTimeout(),
	}, tokens)

	return New(Options{
		Socket:   transport.New(cfg.Server.SocketURL, cfg.Logging.Verbose),
		History:  rest,
		Contexts: rest,
		AI:       rest,
		Tokens:   tokens,
		Verbose:  cfg.Logging.Verbose,
	})
}

// Connect opens the socket session using the stored token and starts the
// dispatch loop. Idempotent while a session is active.
func (c *Client) Connect() error {
	token, ok := c.tokens.Token()
	if !ok {
		return ErrNotAuthenticated
	}

	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return nil
	}
	c.started = true
	c.stop = make(chan struct{})
	c.connState = model.ConnectionState{Status: model.StatusConnecting}
	stop := c.stop
	c.mu.Unlock()

	c.socket.Connect(token)
	go c.dispatchLoop(stop)
	return nil
}

// Disconnect tears the session down and clears all derived state.
func (c *Client) Disconnect() {
	c.mu.Lock()
	if !c.started {
		c.mu.Unlock()
		return
	}
	c.started = false
	close(c.stop)
	c.connState = model.ConnectionState{Status: model.StatusDisconnected}
	c.mu.Unlock()

	c.socket.Disconnect()
	c.store.Clear()
}

// dispatchLoop is the single sequential context all socket-driven store
// mutations are marshalled onto. Lifecycle signals update the connection
// state; named events go through the router.
func (c *Client) dispatchLoop(stop chan struct{}) {
	for {
		select {
		case <-stop:
			return
		case ev := <-c.socket.Events():
			switch ev.Kind {
			case transport.KindConnected:
				c.setConnState(model.StatusConnected, "")
			case transport.KindDisconnected:
				c.setConnState(c.socket.Status(), "")
			case transport.KindError:
				c.setConnState(c.socket.Status(), ev.Err)
			case transport.KindNamed:
				c.router.Dispatch(ev.Name, ev.Payload)
			}
		}
	}
}

func (c *Client) setConnState(status model.ConnStatus, lastError string) {
	c.mu.Lock()
	c.connState.Status = status
	if lastError != "" || status == model.StatusConnected {
		c.connState.LastError = lastError
	}
	c.mu.Unlock()
	if c.verbose {
		fmt.Printf("[client] connection %s\n", status)
	}
}

func (c *Client) setLastError(msg string) {
	c.mu.Lock()
	c.connState.LastError = msg
	c.mu.Unlock()
}

// ConnectionState returns the current connection state.
func (c *Client) ConnectionState() model.ConnectionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connState
}

// OpenChannel joins a channel and merges its REST history into the store.
// Live events that arrived before the fetch completed are preserved by the
// merge. A fetch failure is returned to the caller; the store is untouched
// and the channel stays joined.
func (c *Client) OpenChannel(ctx context.Context, channelID string) error {
	if err := c.socket.JoinChannel(channelID); err != nil && !errors.Is(err, transport.ErrNotConnected) {
		return fmt.Errorf("join channel: %w", err)
	}
	return c.Refresh(ctx, channelID)
}

// Refresh re-fetches channel history and merges it into the store.
func (c *Client) Refresh(ctx context.Context, channelID string) error {
	messages, err := c.history.Messages(ctx, channelID, 1, 50)
	if err != nil {
		return fmt.Errorf("fetch history for %s: %w", channelID, err)
	}
	c.store.ReplaceHistory(channelID, messages)
	return nil
}

// CloseChannel unsubscribes from a channel's events. State is kept; the
// transcript reappears instantly if the channel is reopened.
func (c *Client) CloseChannel(channelID string) error {
	err := c.socket.LeaveChannel(channelID)
	if errors.Is(err, transport.ErrNotConnected) {
		return nil
	}
	return err
}

// Send delivers user input to a channel. Input starting with a recognized
// slash command runs the AI command flow; anything else is sent as a plain
// text message.
func (c *Client) Send(ctx context.Context, channelID, input string) error {
	if category, query, ok := command.ParseInput(input); ok {
		return c.commands.Execute(ctx, channelID, category, query)
	}
	return c.socket.SendMessage(channelID, input, model.KindText)
}

// SendTyping reports the local user's typing state, throttled so keystroke
// storms don't flood the socket.
func (c *Client) SendTyping(channelID string, isTyping bool) error {
	if isTyping && !c.typing.Allow() {
		return nil
	}
	err := c.socket.SendTyping(channelID, isTyping)
	if errors.Is(err, transport.ErrNotConnected) {
		return nil
	}
	return err
}

// Snapshot returns a read-only copy of a channel's state.
func (c *Client) Snapshot(channelID string) model.ChannelSnapshot {
	return c.store.Snapshot(channelID)
}

// PendingAICount returns the channel's badge count of messages the AI has
// not yet processed.
func (c *Client) PendingAICount(channelID string) int {
	return c.tracker.PendingCount(channelID)
}

// OnlineUsers returns the global online-user set.
func (c *Client) OnlineUsers() []string {
	return c.store.OnlineUsers()
}

// Subscribe registers a store change listener.
func (c *Client) Subscribe() <-chan store.Event {
	return c.store.Subscribe()
}

// emitter adapts the client to the command orchestrator's output surface.
type emitter Client

func (e *emitter) SendSystemMessage(channelID, content string) error {
	return e.socket.SendSystemMessage(channelID, content, systemAuthorName)
}

func (e *emitter) SetAIBusy(channelID string, busy bool) {
	e.store.SetAIBusy(channelID, busy)
	if err := e.socket.SendAIThinking(channelID, busy); err != nil && !errors.Is(err, transport.ErrNotConnected) && e.verbose {
		fmt.Printf("[client] ai-thinking emit failed: %v\n", err)
	}
}
