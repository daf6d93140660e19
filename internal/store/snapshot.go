package store

import (
	"sync"
	"time"

	"galopen/internal/model"
)

// Snapshot is a point-in-time copy of the synced events.
type Snapshot struct {
	Events   []model.CalendarEvent `json:"events"`
	SyncedAt time.Time             `json:"synced_at"`
	Version  uint64                `json:"version"`
}

// IDs returns the set of event ids in the snapshot.
func (s Snapshot) IDs() map[string]struct{} {
	ids := make(map[string]struct{}, len(s.Events))
	for _, ev := range s.Events {
		ids[ev.ID] = struct{}{}
	}
	return ids
}

// SnapshotStore holds the latest successful sync. It is replaced wholesale and
// readers always get their own copy.
type SnapshotStore struct {
	mu   sync.Mutex
	snap Snapshot
}

// NewSnapshotStore returns an empty store at version 0.
func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{snap: Snapshot{Events: []model.CalendarEvent{}}}
}

// Replace installs events as the current snapshot and bumps the version.
func (s *SnapshotStore) Replace(events []model.CalendarEvent, syncedAt time.Time) Snapshot {
	events = cloneEvents(events)

	s.mu.Lock()
	s.snap = Snapshot{Events: events, SyncedAt: syncedAt, Version: s.snap.Version + 1}
	out := s.copyLocked()
	s.mu.Unlock()
	return out
}

// Get returns a copy of the current snapshot.
func (s *SnapshotStore) Get() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.copyLocked()
}

func (s *SnapshotStore) copyLocked() Snapshot {
	out := s.snap
	out.Events = cloneEvents(s.snap.Events)
	return out
}

// cloneEvents copies events including the instants behind EventTime.DateTime,
// so no caller shares memory with the store.
func cloneEvents(events []model.CalendarEvent) []model.CalendarEvent {
	out := make([]model.CalendarEvent, len(events))
	for i, ev := range events {
		ev.Start = cloneTime(ev.Start)
		ev.End = cloneTime(ev.End)
		out[i] = ev
	}
	return out
}

func cloneTime(t model.EventTime) model.EventTime {
	if t.DateTime != nil {
		dt := *t.DateTime
		t.DateTime = &dt
	}
	return t
}
