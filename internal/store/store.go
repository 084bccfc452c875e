// Package store is the authoritative, queryable state for all channels.
// It is the sole mutator of channel state; the transport/router issue
// commands against it and readers get immutable snapshots.
package store

import (
	"sort"
	"sync"
	"time"

	"github.com/signaldesk/sigdesk-go/internal/model"
)

// EventType identifies what part of a channel's state changed.
type EventType string

const (
	EventMessages EventType = "messages"
	EventTyping   EventType = "typing"
	EventAIBusy   EventType = "ai-busy"
	EventSynced   EventType = "synced"
	EventOnline   EventType = "online"
	EventCleared  EventType = "cleared"
)

// Event is a state-change notification. ChannelID is empty for global
// events (online set, wholesale clear).
type Event struct {
	Type      EventType
	ChannelID string
}

type channelState struct {
	messages   []model.Message
	index      map[string]struct{} // message ids present
	typing     map[string]struct{}
	aiBusy     bool
	lastSyncAt time.Time
}

// Store owns all per-channel state for one session.
type Store struct {
	mu       sync.RWMutex
	channels map[string]*channelState
	online   map[string]struct{}
	subs     []chan Event
}

// New creates an empty store.
func New() *Store {
	return &Store{
		channels: make(map[string]*channelState),
		online:   make(map[string]struct{}),
	}
}

// channel returns the state for id, creating it lazily. Callers hold mu.
func (s *Store) channel(id string) *channelState {
	cs, ok := s.channels[id]
	if !ok {
		cs = &channelState{
			index:  make(map[string]struct{}),
			typing: make(map[string]struct{}),
		}
		s.channels[id] = cs
	}
	return cs
}

// Append inserts msg at the end of its channel's sequence unless a message
// with the same id is already present. Reports whether the message was added.
func (s *Store) Append(msg model.Message) bool {
	s.mu.Lock()
	cs := s.channel(msg.ChannelID)
	if _, dup := cs.index[msg.ID]; dup {
		s.mu.Unlock()
		return false
	}
	cs.messages = append(cs.messages, msg)
	cs.index[msg.ID] = struct{}{}
	s.mu.Unlock()

	s.publish(Event{Type: EventMessages, ChannelID: msg.ChannelID})
	return true
}

// ReplaceHistory merges a REST-fetched batch into the channel. The contract
// is union, not replace: live messages already present that the batch does
// not contain are preserved, duplicates collapse by id, and the result is
// ordered by createdAt (ties by id) so the transcript stays stable no
// matter which side arrived first.
func (s *Store) ReplaceHistory(channelID string, batch []model.Message) {
	s.mu.Lock()
	cs := s.channel(channelID)

	merged := make([]model.Message, 0, len(cs.messages)+len(batch))
	seen := make(map[string]struct{}, len(cs.messages)+len(batch))
	for _, m := range batch {
		if _, dup := seen[m.ID]; dup {
			continue
		}
		seen[m.ID] = struct{}{}
		merged = append(merged, m)
	}
	for _, m := range cs.messages {
		if _, dup := seen[m.ID]; dup {
			continue
		}
		seen[m.ID] = struct{}{}
		merged = append(merged, m)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		if !merged[i].CreatedAt.Equal(merged[j].CreatedAt) {
			return merged[i].CreatedAt.Before(merged[j].CreatedAt)
		}
		return merged[i].ID < merged[j].ID
	})

	cs.messages = merged
	cs.index = seen
	s.mu.Unlock()

	s.publish(Event{Type: EventMessages, ChannelID: channelID})
}

// SetTyping adds or removes userID from the channel's typing set.
// Idempotent in both directions.
func (s *Store) SetTyping(channelID, userID string, isTyping bool) {
	s.mu.Lock()
	cs := s.channel(channelID)
	if isTyping {
		cs.typing[userID] = struct{}{}
	} else {
		delete(cs.typing, userID)
	}
	s.mu.Unlock()

	s.publish(Event{Type: EventTyping, ChannelID: channelID})
}

// SetAIBusy sets the channel's AI-busy flag.
func (s *Store) SetAIBusy(channelID string, busy bool) {
	s.mu.Lock()
	s.channel(channelID).aiBusy = busy
	s.mu.Unlock()

	s.publish(Event{Type: EventAIBusy, ChannelID: channelID})
}

// MarkSynced advances the channel's last-synchronized timestamp.
func (s *Store) MarkSynced(channelID string, at time.Time) {
	s.mu.Lock()
	s.channel(channelID).lastSyncAt = at
	s.mu.Unlock()

	s.publish(Event{Type: EventSynced, ChannelID: channelID})
}

// Snapshot returns a read-only copy of the channel's state. Mutating the
// returned value has no effect on the store.
func (s *Store) Snapshot(channelID string) model.ChannelSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := model.ChannelSnapshot{ChannelID: channelID}
	cs, ok := s.channels[channelID]
	if !ok {
		return snap
	}

	snap.Messages = make([]model.Message, len(cs.messages))
	copy(snap.Messages, cs.messages)
	snap.TypingUserIDs = make([]string, 0, len(cs.typing))
	for id := range cs.typing {
		snap.TypingUserIDs = append(snap.TypingUserIDs, id)
	}
	sort.Strings(snap.TypingUserIDs)
	snap.AIBusy = cs.aiBusy
	snap.LastSyncAt = cs.lastSyncAt
	return snap
}

// SetOnlineUsers replaces the global online-user set.
func (s *Store) SetOnlineUsers(userIDs []string) {
	s.mu.Lock()
	s.online = make(map[string]struct{}, len(userIDs))
	for _, id := range userIDs {
		s.online[id] = struct{}{}
	}
	s.mu.Unlock()

	s.publish(Event{Type: EventOnline})
}

// OnlineUsers returns the global online-user set, sorted.
func (s *Store) OnlineUsers() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, 0, len(s.online))
	for id := range s.online {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Clear drops all channel state and the online set. Used on explicit
// disconnect (full session teardown), never on transient reconnects.
func (s *Store) Clear() {
	s.mu.Lock()
	s.channels = make(map[string]*channelState)
	s.online = make(map[string]struct{})
	s.mu.Unlock()

	s.publish(Event{Type: EventCleared})
}

// Subscribe registers a state-change listener. Events are dropped rather
// than block the writer if the subscriber falls behind.
func (s *Store) Subscribe() <-chan Event {
	ch := make(chan Event, 64)
	s.mu.Lock()
	s.subs = append(s.subs, ch)
	s.mu.Unlock()
	return ch
}

func (s *Store) publish(ev Event) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, ch := range s.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}
