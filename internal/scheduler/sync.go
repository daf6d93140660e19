package scheduler

import (
	"context"
	"sync"
	"time"

	"galopen/internal/model"
	"galopen/internal/store"
)

// Fetcher returns the current event window from the calendar gateway.
type Fetcher interface {
	FetchTodayEvents(ctx context.Context) ([]model.CalendarEvent, error)
}

// Syncer refreshes the snapshot from the gateway. It is the only writer of the
// snapshot store; a failed fetch leaves the previous snapshot in place.
type Syncer struct {
	fetcher Fetcher
	snaps   *store.SnapshotStore
	now     func() time.Time
	mu      sync.Mutex
}

// NewSyncer creates a Syncer writing into snaps.
func NewSyncer(fetcher Fetcher, snaps *store.SnapshotStore) *Syncer {
	return &Syncer{fetcher: fetcher, snaps: snaps, now: time.Now}
}

// Sync fetches and installs a new snapshot.
func (s *Syncer) Sync(ctx context.Context) (store.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	events, err := s.fetcher.FetchTodayEvents(ctx)
	if err != nil {
		return s.snaps.Get(), err
	}
	return s.snaps.Replace(events, s.now().UTC()), nil
}

// Snapshot returns the last synced events without syncing.
func (s *Syncer) Snapshot() store.Snapshot {
	return s.snaps.Get()
}
