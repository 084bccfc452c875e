// Package router translates raw inbound socket payloads into validated
// commands against the store. Malformed payloads are dropped, never fatal:
// the server's event shapes are outside our trust boundary.
package router

import (
	"fmt"
	"time"

	"github.com/tidwall/gjson"

	"github.com/signaldesk/sigdesk-go/internal/model"
	"github.com/signaldesk/sigdesk-go/internal/store"
)

// Router dispatches named events to the store.
type Router struct {
	store   *store.Store
	now     func() time.Time
	onError func(message string) // server-sent error events
	verbose bool
}

// Option configures a Router.
type Option func(*Router)

// WithClock overrides the sync-timestamp clock, used in tests.
func WithClock(now func() time.Time) Option {
	return func(r *Router) { r.now = now }
}

// WithErrorHandler receives server-sent error event messages.
func WithErrorHandler(fn func(message string)) Option {
	return func(r *Router) { r.onError = fn }
}

// WithVerbose enables drop logging.
func WithVerbose(v bool) Option {
	return func(r *Router) { r.verbose = v }
}

// New creates a router writing into s.
func New(s *store.Store, opts ...Option) *Router {
	r := &Router{store: s, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Dispatch routes one named event. Unknown events and events missing
// required fields are dropped silently.
func (r *Router) Dispatch(name string, payload []byte) {
	switch name {
	case "new-message":
		msg, ok := parseMessage(payload)
		if !ok {
			r.drop(name)
			return
		}
		r.store.Append(msg)

	case "users:online":
		ids, ok := parseUserList(payload)
		if !ok {
			r.drop(name)
			return
		}
		r.store.SetOnlineUsers(ids)

	case "user-typing":
		channelID, ok1 := strField(payload, "channelId")
		userID, ok2 := strField(payload, "userId")
		isTyping, ok3 := boolField(payload, "isTyping")
		if !ok1 || !ok2 || !ok3 {
			r.drop(name)
			return
		}
		r.store.SetTyping(channelID, userID, isTyping)

	case "ai-status":
		channelID, ok1 := strField(payload, "channelId")
		isThinking, ok2 := boolField(payload, "isThinking")
		if !ok1 || !ok2 {
			r.drop(name)
			return
		}
		r.store.SetAIBusy(channelID, isThinking)

	case "signals-updated", "summary-updated":
		channelID, ok := strField(payload, "channelId")
		if !ok {
			r.drop(name)
			return
		}
		r.store.MarkSynced(channelID, r.now())

	case "notification":
		if r.verbose {
			fmt.Printf("[router] notification: %s\n", payload)
		}

	case "error":
		msg, ok := strField(payload, "message")
		if !ok {
			msg = "server error"
		}
		if r.onError != nil {
			r.onError(msg)
		}

	default:
		if r.verbose {
			fmt.Printf("[router] ignoring unknown event %q\n", name)
		}
	}
}

func (r *Router) drop(event string) {
	if r.verbose {
		fmt.Printf("[router] dropping malformed %s payload\n", event)
	}
}

func strField(payload []byte, path string) (string, bool) {
	v := gjson.GetBytes(payload, path)
	if v.Type != gjson.String || v.Str == "" {
		return "", false
	}
	return v.Str, true
}

func boolField(payload []byte, path string) (bool, bool) {
	v := gjson.GetBytes(payload, path)
	if !v.IsBool() {
		return false, false
	}
	return v.Bool(), true
}

// parseMessage validates the full message shape. All of id, channelId,
// authorId, content, kind and createdAt must be present and well-typed.
func parseMessage(payload []byte) (model.Message, bool) {
	var msg model.Message

	id, ok := strField(payload, "id")
	if !ok {
		return msg, false
	}
	channelID, ok := strField(payload, "channelId")
	if !ok {
		return msg, false
	}
	authorID, ok := strField(payload, "authorId")
	if !ok {
		return msg, false
	}
	content := gjson.GetBytes(payload, "content")
	if content.Type != gjson.String {
		return msg, false
	}
	kind, ok := parseKind(gjson.GetBytes(payload, "kind"))
	if !ok {
		return msg, false
	}
	createdAt, ok := parseTimestamp(gjson.GetBytes(payload, "createdAt"))
	if !ok {
		return msg, false
	}

	msg = model.Message{
		ID:        id,
		ChannelID: channelID,
		AuthorID:  authorID,
		Content:   content.Str,
		Kind:      kind,
		CreatedAt: createdAt,
	}
	if name := gjson.GetBytes(payload, "authorName"); name.Type == gjson.String {
		msg.AuthorName = name.Str
	}
	if att := gjson.GetBytes(payload, "attachment"); att.IsObject() {
		msg.Attachment = &model.Attachment{
			URL:       att.Get("url").String(),
			Name:      att.Get("name").String(),
			SizeBytes: att.Get("sizeBytes").Int(),
		}
	}
	return msg, true
}

func parseKind(v gjson.Result) (model.MessageKind, bool) {
	if v.Type != gjson.String {
		return "", false
	}
	switch k := model.MessageKind(v.Str); k {
	case model.KindText, model.KindImage, model.KindFile, model.KindSystem:
		return k, true
	}
	return "", false
}

// parseTimestamp accepts RFC3339 strings (with or without fractional
// seconds) and unix-millisecond numbers.
func parseTimestamp(v gjson.Result) (time.Time, bool) {
	switch v.Type {
	case gjson.String:
		if t, err := time.Parse(time.RFC3339Nano, v.Str); err == nil {
			return t, true
		}
		if t, err := time.Parse(time.RFC3339, v.Str); err == nil {
			return t, true
		}
		return time.Time{}, false
	case gjson.Number:
		ms := v.Int()
		if ms <= 0 {
			return time.Time{}, false
		}
		return time.UnixMilli(ms).UTC(), true
	}
	return time.Time{}, false
}

// parseUserList requires a JSON array; non-string elements are skipped.
func parseUserList(payload []byte) ([]string, bool) {
	v := gjson.ParseBytes(payload)
	if !v.IsArray() {
		return nil, false
	}
	var ids []string
	v.ForEach(func(_, item gjson.Result) bool {
		if item.Type == gjson.String {
			ids = append(ids, item.Str)
		}
		return true
	})
	return ids, true
}
