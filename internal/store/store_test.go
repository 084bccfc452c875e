package store

import (
	"testing"
	"time"

	"github.com/signaldesk/sigdesk-go/internal/model"
)

func msg(id, channel string, at time.Time) model.Message {
	return model.Message{
		ID:        id,
		ChannelID: channel,
		AuthorID:  "u1",
		Content:   "content " + id,
		Kind:      model.KindText,
		CreatedAt: at,
	}
}

func TestAppendDedup(t *testing.T) {
	s := New()
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	if !s.Append(msg("m1", "general", base)) {
		t.Fatal("first append should report added")
	}
	if s.Append(msg("m1", "general", base.Add(time.Minute))) {
		t.Fatal("duplicate id should be dropped")
	}

	snap := s.Snapshot("general")
	if len(snap.Messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(snap.Messages))
	}
	if !snap.Messages[0].CreatedAt.Equal(base) {
		t.Error("duplicate append must not overwrite the original")
	}
}

func TestAppendOrderIsArrival(t *testing.T) {
	s := New()
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	// Out-of-order timestamps still append at the tail.
	s.Append(msg("m2", "general", base.Add(time.Hour)))
	s.Append(msg("m1", "general", base))

	snap := s.Snapshot("general")
	if got := []string{snap.Messages[0].ID, snap.Messages[1].ID}; got[0] != "m2" || got[1] != "m1" {
		t.Errorf("expected arrival order [m2 m1], got %v", got)
	}
}

func TestReplaceHistoryMergesLiveMessages(t *testing.T) {
	s := New()
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	// A live message lands while the history fetch is in flight, and the
	// fetched batch contains that same message plus an older one.
	s.Append(msg("m1", "general", base.Add(100*time.Second)))
	s.ReplaceHistory("general", []model.Message{
		msg("m1", "general", base.Add(100*time.Second)),
		msg("m0", "general", base.Add(50*time.Second)),
	})

	snap := s.Snapshot("general")
	if len(snap.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(snap.Messages))
	}
	if snap.Messages[0].ID != "m0" || snap.Messages[1].ID != "m1" {
		t.Errorf("expected [m0 m1], got [%s %s]", snap.Messages[0].ID, snap.Messages[1].ID)
	}
}

func TestReplaceHistoryKeepsLiveOnlyMessages(t *testing.T) {
	s := New()
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	s.Append(msg("live", "general", base.Add(3*time.Minute)))
	s.ReplaceHistory("general", []model.Message{
		msg("h1", "general", base),
		msg("h2", "general", base.Add(time.Minute)),
	})

	snap := s.Snapshot("general")
	if len(snap.Messages) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(snap.Messages))
	}
	if snap.Messages[2].ID != "live" {
		t.Errorf("live-only message should survive the merge at its timestamp position, got tail %s", snap.Messages[2].ID)
	}
}

func TestReplaceHistoryTiesBreakByID(t *testing.T) {
	s := New()
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	s.ReplaceHistory("general", []model.Message{
		msg("b", "general", at),
		msg("a", "general", at),
	})

	snap := s.Snapshot("general")
	if snap.Messages[0].ID != "a" || snap.Messages[1].ID != "b" {
		t.Errorf("equal timestamps should order by id, got [%s %s]", snap.Messages[0].ID, snap.Messages[1].ID)
	}
}

func TestReplaceHistoryDedupsWithinBatch(t *testing.T) {
	s := New()
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	s.ReplaceHistory("general", []model.Message{
		msg("m1", "general", at),
		msg("m1", "general", at),
	})

	if got := len(s.Snapshot("general").Messages); got != 1 {
		t.Errorf("expected 1 message after in-batch dedup, got %d", got)
	}
}

func TestAppendAfterReplaceStillDedups(t *testing.T) {
	s := New()
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	s.ReplaceHistory("general", []model.Message{msg("m1", "general", at)})
	if s.Append(msg("m1", "general", at)) {
		t.Error("id present via history merge should still dedup")
	}
}

func TestSetTypingIdempotent(t *testing.T) {
	s := New()

	s.SetTyping("general", "u7", true)
	s.SetTyping("general", "u7", true)
	if got := s.Snapshot("general").TypingUserIDs; len(got) != 1 || got[0] != "u7" {
		t.Errorf("expected [u7], got %v", got)
	}

	s.SetTyping("general", "u7", false)
	s.SetTyping("general", "u7", false)
	if got := s.Snapshot("general").TypingUserIDs; len(got) != 0 {
		t.Errorf("expected empty typing set, got %v", got)
	}
}

func TestLazyChannelCreation(t *testing.T) {
	s := New()

	snap := s.Snapshot("never-touched")
	if len(snap.Messages) != 0 || snap.AIBusy || !snap.LastSyncAt.IsZero() {
		t.Error("untouched channel should snapshot as empty")
	}

	// First event for an unknown channel creates it.
	s.SetTyping("fresh", "u1", true)
	if got := s.Snapshot("fresh").TypingUserIDs; len(got) != 1 {
		t.Errorf("expected typing state on lazily created channel, got %v", got)
	}
}

func TestSnapshotIsolation(t *testing.T) {
	s := New()
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	s.Append(msg("m1", "general", at))

	snap := s.Snapshot("general")
	snap.Messages[0].Content = "mutated"
	snap.Messages = append(snap.Messages, msg("m2", "general", at))

	fresh := s.Snapshot("general")
	if len(fresh.Messages) != 1 || fresh.Messages[0].Content != "content m1" {
		t.Error("mutating a snapshot must not affect the store")
	}
}

func TestMarkSyncedAndAIBusy(t *testing.T) {
	s := New()
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	s.SetAIBusy("general", true)
	s.MarkSynced("general", at)

	snap := s.Snapshot("general")
	if !snap.AIBusy {
		t.Error("expected aiBusy true")
	}
	if !snap.LastSyncAt.Equal(at) {
		t.Errorf("expected lastSyncAt %v, got %v", at, snap.LastSyncAt)
	}

	s.SetAIBusy("general", false)
	if s.Snapshot("general").AIBusy {
		t.Error("expected aiBusy false")
	}
}

func TestOnlineUsersSorted(t *testing.T) {
	s := New()
	s.SetOnlineUsers([]string{"zoe", "amy", "mia"})
	got := s.OnlineUsers()
	want := []string{"amy", "mia", "zoe"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestClear(t *testing.T) {
	s := New()
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	s.Append(msg("m1", "general", at))
	s.SetOnlineUsers([]string{"u1"})
	s.MarkSynced("general", at)

	s.Clear()

	if len(s.Snapshot("general").Messages) != 0 {
		t.Error("expected messages cleared")
	}
	if len(s.OnlineUsers()) != 0 {
		t.Error("expected online set cleared")
	}
	if !s.Snapshot("general").LastSyncAt.IsZero() {
		t.Error("expected lastSyncAt reset")
	}
}

func TestSubscribeReceivesEvents(t *testing.T) {
	s := New()
	events := s.Subscribe()
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	s.Append(msg("m1", "general", at))

	select {
	case ev := <-events:
		if ev.Type != EventMessages || ev.ChannelID != "general" {
			t.Errorf("unexpected event %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("no event received")
	}
}

func TestPublishDoesNotBlockOnSlowSubscriber(t *testing.T) {
	s := New()
	s.Subscribe() // never drained

	done := make(chan struct{})
	go func() {
		for i := 0; i < 200; i++ {
			s.SetTyping("general", "u1", i%2 == 0)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a full subscriber channel")
	}
}
