// Package intel derives per-channel "pending AI items" counts: messages the
// assistant has not yet accounted for in its last synchronization pass.
package intel

import (
	"time"

	"github.com/signaldesk/sigdesk-go/internal/model"
	"github.com/signaldesk/sigdesk-go/internal/store"
)

// Tracker computes pending-AI counts from store snapshots. The count is
// derived on every read rather than kept as a separate counter, so it can
// never drift from the underlying message list.
type Tracker struct {
	store *store.Store
}

// NewTracker creates a tracker over the given store.
func NewTracker(s *store.Store) *Tracker {
	return &Tracker{store: s}
}

// PendingCount returns the number of messages in the channel the AI has not
// yet processed.
func (t *Tracker) PendingCount(channelID string) int {
	snap := t.store.Snapshot(channelID)
	return CountPending(snap.Messages, snap.LastSyncAt)
}

// CountPending counts text messages from human authors created after
// lastSyncAt. A zero lastSyncAt means no sync has happened, so every
// qualifying message counts.
func CountPending(messages []model.Message, lastSyncAt time.Time) int {
	n := 0
	for _, m := range messages {
		if m.Kind != model.KindText || m.AuthorID == model.AISystemID {
			continue
		}
		if lastSyncAt.IsZero() || m.CreatedAt.After(lastSyncAt) {
			n++
		}
	}
	return n
}
