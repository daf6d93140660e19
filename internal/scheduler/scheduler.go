// Package scheduler runs the auto-join loop: it keeps the event snapshot fresh,
// opens each meeting link once shortly before the meeting starts and drives the
// tray countdown.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"galopen/internal/countdown"
	"galopen/internal/locale"
	"galopen/internal/model"
	"galopen/internal/notification"
	"galopen/internal/parse"
	"galopen/internal/store"
)

// NotificationTitle is the title of every auto-join notice.
const NotificationTitle = "Galopen"

// PermissionChecker gates every tick.
type PermissionChecker interface {
	CheckPermission(ctx context.Context) (model.Permission, error)
}

// SnapshotSyncer refreshes and serves the event snapshot.
type SnapshotSyncer interface {
	Sync(ctx context.Context) (store.Snapshot, error)
	Snapshot() store.Snapshot
}

// SettingsSource provides the live user settings.
type SettingsSource interface {
	GetSettings(ctx context.Context, defaults model.Settings) (model.Settings, error)
}

// Notifier queues a notice for delivery.
type Notifier interface {
	Notify(n notification.Notice) error
}

// Opener launches a meeting link.
type Opener interface {
	Open(ctx context.Context, url string) error
}

// Tray shows the countdown label.
type Tray interface {
	SetTitle(text, tooltip string, shown bool)
}

// JoinRecorder keeps the join history.
type JoinRecorder interface {
	RecordJoin(ctx context.Context, rec model.JoinRecord) error
}

// Config holds the cadences and tolerances of the loop.
type Config struct {
	Tick         time.Duration
	Poll         time.Duration
	GraceMinutes int
	PreOpenDelay time.Duration
	// Defaults are used when the settings source has nothing saved or fails.
	Defaults model.Settings
	Locale   locale.Locale
}

// Deps are the collaborators of a Scheduler.
type Deps struct {
	Permission PermissionChecker
	Syncer     SnapshotSyncer
	Settings   SettingsSource
	Notifier   Notifier
	Opener     Opener
	Tray       Tray
	Joins      JoinRecorder
}

// Scheduler is the auto-join state machine.
type Scheduler struct {
	cfg  Config
	deps Deps
	log  *logrus.Entry

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error

	// lastPoll is touched only by the goroutine running Tick. The zero value makes
	// the first tick poll.
	lastPoll time.Time

	mu     sync.Mutex
	opened map[string]struct{}
}

// New creates a Scheduler.
func New(cfg Config, deps Deps) *Scheduler {
	if cfg.Tick <= 0 {
		cfg.Tick = 10 * time.Second
	}
	if cfg.Poll <= 0 {
		cfg.Poll = 5 * time.Minute
	}
	if cfg.Locale == "" {
		cfg.Locale = locale.English
	}
	return &Scheduler{
		cfg:    cfg,
		deps:   deps,
		log:    logrus.WithField("component", "scheduler"),
		now:    time.Now,
		sleep:  sleepCtx,
		opened: make(map[string]struct{}),
	}
}

// Run ticks until ctx is cancelled. The first tick runs immediately.
func (s *Scheduler) Run(ctx context.Context) {
	s.log.WithFields(logrus.Fields{"tick": s.cfg.Tick, "poll": s.cfg.Poll}).Info("starting scheduler")

	s.Tick(ctx)

	timer := time.NewTimer(s.cfg.Tick)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("scheduler shutting down")
			return
		case <-timer.C:
			s.Tick(ctx)
			timer.Reset(s.cfg.Tick)
		}
	}
}

// Tick performs one iteration of the loop.
func (s *Scheduler) Tick(ctx context.Context) {
	status, err := s.deps.Permission.CheckPermission(ctx)
	if err != nil {
		s.log.WithError(err).Warn("permission check failed")
		return
	}
	if status != model.PermissionGranted {
		s.log.WithField("status", status).Debug("calendar access not granted, skipping tick")
		return
	}

	if s.lastPoll.IsZero() || s.now().Sub(s.lastPoll) >= s.cfg.Poll {
		// A failed sync keeps lastPoll so the next tick retries.
		if snap, err := s.deps.Syncer.Sync(ctx); err != nil {
			s.log.WithError(err).Error("calendar sync failed")
		} else {
			s.lastPoll = s.now()
			s.log.WithFields(logrus.Fields{"events": len(snap.Events), "version": snap.Version}).Debug("calendar synced")
		}
	}

	settings, err := s.deps.Settings.GetSettings(ctx, s.cfg.Defaults)
	if err != nil {
		s.log.WithError(err).Warn("could not read settings, using defaults")
		settings = s.cfg.Defaults
	}
	lead := max(settings.MinutesBefore, 0)

	snap := s.deps.Syncer.Snapshot()
	now := s.now()
	for _, ev := range snap.Events {
		if ctx.Err() != nil {
			return
		}
		start, ok := parse.StartTime(ev)
		if !ok || ev.IsAllDay {
			continue
		}
		if !s.qualifies(now, start, lead) || s.isOpened(ev.ID) {
			continue
		}
		link, ok := parse.MeetingURL(ev)
		if !ok {
			continue
		}
		s.join(ctx, ev, link, start)
	}

	s.prune(snap.IDs())

	now = s.now()
	next, _, _ := countdown.Next(now, snap.Events)
	label, shown := countdown.Label(now, snap.Events, settings.TrayCountdownMinutes, s.cfg.Locale)
	s.deps.Tray.SetTitle(label, next.Summary, shown)
}

// qualifies reports whether an event starting at start is inside the auto-open
// window: at most lead minutes ahead and no more than the grace window behind.
// Both distances are truncated toward zero.
func (s *Scheduler) qualifies(now, start time.Time, leadMinutes int) bool {
	until := start.Sub(now)
	secondsUntil := int64(until / time.Second)
	minutesUntil := int64(until / time.Minute)
	return secondsUntil <= int64(leadMinutes)*60 && minutesUntil >= -int64(s.cfg.GraceMinutes)
}

func (s *Scheduler) join(ctx context.Context, ev model.CalendarEvent, link string, start time.Time) {
	log := s.log.WithFields(logrus.Fields{"event_id": ev.ID, "title": ev.Summary, "url": link})

	notice := notification.Notice{Title: NotificationTitle, Body: s.cfg.Locale.Opening(ev.Summary), URL: link}
	if err := s.deps.Notifier.Notify(notice); err != nil {
		log.WithError(err).Warn("could not queue notification")
	}

	if err := s.sleep(ctx, s.cfg.PreOpenDelay); err != nil {
		return
	}

	if err := s.deps.Opener.Open(ctx, link); err != nil {
		log.WithError(err).Error("failed to open meeting link")
		return
	}
	log.Info("opened meeting link")

	s.mu.Lock()
	s.opened[ev.ID] = struct{}{}
	s.mu.Unlock()

	rec := model.JoinRecord{
		ID:         uuid.NewString(),
		EventID:    ev.ID,
		ExternalID: ev.ExternalID,
		Title:      ev.Summary,
		URL:        link,
		StartAt:    start.UTC(),
		OpenedAt:   s.now().UTC(),
	}
	if err := s.deps.Joins.RecordJoin(ctx, rec); err != nil {
		log.WithError(err).Warn("failed to record join")
	}
}

func (s *Scheduler) isOpened(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.opened[id]
	return ok
}

// prune forgets every opened id that is no longer in the snapshot. This is what
// resets the set across days.
func (s *Scheduler) prune(current map[string]struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id := range s.opened {
		if _, ok := current[id]; !ok {
			delete(s.opened, id)
		}
	}
}

// Opened returns the ids whose link has been opened.
func (s *Scheduler) Opened() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.opened))
	for id := range s.opened {
		ids = append(ids, id)
	}
	return ids
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
