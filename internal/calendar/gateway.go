package calendar

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"galopen/internal/model"
)

var (
	// ErrGatewayClosed is returned for calls made after Close.
	ErrGatewayClosed = errors.New("calendar gateway closed")
	// ErrProviderPanic wraps a panic recovered from a provider call.
	ErrProviderPanic = errors.New("calendar provider panicked")
	// ErrCallTimeout is returned when the caller stops waiting for a reply.
	ErrCallTimeout = errors.New("calendar call timed out")
)

// GatewayConfig tunes a Gateway. Zero values select the defaults.
type GatewayConfig struct {
	CallTimeout       time.Duration
	PermissionTimeout time.Duration
	Location          *time.Location
	Now               func() time.Time
}

type result struct {
	value any
	err   error
}

type request struct {
	ctx   context.Context
	op    string
	fn    func(ctx context.Context, p Provider) (any, error)
	reply chan result
}

// Gateway is the only path to a Provider. One worker goroutine owns the provider
// and runs requests in arrival order; panics inside the provider come back as
// errors wrapping ErrProviderPanic.
type Gateway struct {
	provider Provider
	cfg      GatewayConfig
	reqs     chan request
	done     chan struct{}
	once     sync.Once
	log      *logrus.Entry
}

// NewGateway starts the worker that owns p.
func NewGateway(p Provider, cfg GatewayConfig) *Gateway {
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 30 * time.Second
	}
	if cfg.PermissionTimeout <= 0 {
		cfg.PermissionTimeout = 5 * time.Minute
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	g := &Gateway{
		provider: p,
		cfg:      cfg,
		reqs:     make(chan request),
		done:     make(chan struct{}),
		log:      logrus.WithField("component", "calendar"),
	}
	go g.loop()
	return g
}

// Close stops the worker. A provider call in flight is left to finish on its own.
func (g *Gateway) Close() {
	g.once.Do(func() { close(g.done) })
}

func (g *Gateway) loop() {
	for {
		select {
		case <-g.done:
			return
		case r := <-g.reqs:
			r.reply <- g.invoke(r)
		}
	}
}

func (g *Gateway) invoke(r request) (res result) {
	defer func() {
		if v := recover(); v != nil {
			g.log.WithField("op", r.op).Errorf("provider panic: %v\n%s", v, debug.Stack())
			res = result{err: fmt.Errorf("%s: %w: %v", r.op, ErrProviderPanic, v)}
		}
	}()
	v, err := r.fn(r.ctx, g.provider)
	if err != nil {
		err = fmt.Errorf("%s: %w", r.op, err)
	}
	return result{value: v, err: err}
}

// call sends fn to the worker and waits for the reply, the caller's context, or
// the timeout.
func call[T any](ctx context.Context, g *Gateway, op string, timeout time.Duration, fn func(context.Context, Provider) (T, error)) (T, error) {
	var zero T
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	r := request{
		ctx: ctx,
		op:  op,
		fn: func(ctx context.Context, p Provider) (any, error) {
			return fn(ctx, p)
		},
		reply: make(chan result, 1),
	}

	select {
	case g.reqs <- r:
	case <-g.done:
		return zero, ErrGatewayClosed
	case <-ctx.Done():
		return zero, waitErr(ctx, op)
	}

	select {
	case res := <-r.reply:
		if res.err != nil {
			return zero, res.err
		}
		v, _ := res.value.(T)
		return v, nil
	case <-g.done:
		return zero, ErrGatewayClosed
	case <-ctx.Done():
		return zero, waitErr(ctx, op)
	}
}

func waitErr(ctx context.Context, op string) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", op, ErrCallTimeout)
	}
	return fmt.Errorf("%s: %w", op, ctx.Err())
}

// CheckPermission reports the provider's authorization state.
func (g *Gateway) CheckPermission(ctx context.Context) (model.Permission, error) {
	return call(ctx, g, "check permission", g.cfg.CallTimeout, func(ctx context.Context, p Provider) (model.Permission, error) {
		return p.CheckPermission(ctx)
	})
}

// RequestPermission asks the user for access. It may wait up to the permission
// timeout for an answer.
func (g *Gateway) RequestPermission(ctx context.Context) (bool, error) {
	return call(ctx, g, "request permission", g.cfg.PermissionTimeout, func(ctx context.Context, p Provider) (bool, error) {
		return p.RequestPermission(ctx)
	})
}

// ListCalendars returns the provider's calendars sorted by source and title.
func (g *Gateway) ListCalendars(ctx context.Context) ([]model.CalendarInfo, error) {
	cals, err := call(ctx, g, "list calendars", g.cfg.CallTimeout, func(ctx context.Context, p Provider) ([]model.CalendarInfo, error) {
		return p.ListCalendars(ctx)
	})
	if err != nil {
		return nil, err
	}
	return SortCalendars(cals), nil
}

// FetchTodayEvents returns today's and tomorrow's non-cancelled events sorted by start.
func (g *Gateway) FetchTodayEvents(ctx context.Context) ([]model.CalendarEvent, error) {
	start, end := TodayWindow(g.cfg.Now(), g.cfg.Location)
	events, err := call(ctx, g, "fetch events", g.cfg.CallTimeout, func(ctx context.Context, p Provider) ([]model.CalendarEvent, error) {
		return p.FetchEvents(ctx, start, end)
	})
	if err != nil {
		return nil, err
	}
	return NormalizeEvents(events, g.cfg.Location), nil
}
