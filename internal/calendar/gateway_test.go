package calendar

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"galopen/internal/model"
)

// mockProvider is a mock implementation of Provider.
type mockProvider struct {
	CheckPermissionFunc   func(ctx context.Context) (model.Permission, error)
	RequestPermissionFunc func(ctx context.Context) (bool, error)
	ListCalendarsFunc     func(ctx context.Context) ([]model.CalendarInfo, error)
	FetchEventsFunc       func(ctx context.Context, start, end time.Time) ([]model.CalendarEvent, error)
}

func (m *mockProvider) CheckPermission(ctx context.Context) (model.Permission, error) {
	if m.CheckPermissionFunc != nil {
		return m.CheckPermissionFunc(ctx)
	}
	return model.PermissionGranted, nil
}

func (m *mockProvider) RequestPermission(ctx context.Context) (bool, error) {
	if m.RequestPermissionFunc != nil {
		return m.RequestPermissionFunc(ctx)
	}
	return true, nil
}

func (m *mockProvider) ListCalendars(ctx context.Context) ([]model.CalendarInfo, error) {
	if m.ListCalendarsFunc != nil {
		return m.ListCalendarsFunc(ctx)
	}
	return nil, nil
}

func (m *mockProvider) FetchEvents(ctx context.Context, start, end time.Time) ([]model.CalendarEvent, error) {
	if m.FetchEventsFunc != nil {
		return m.FetchEventsFunc(ctx, start, end)
	}
	return nil, nil
}

func TestGateway_FetchTodayEvents(t *testing.T) {
	loc := time.FixedZone("JST", 9*60*60)
	now := time.Date(2024, 1, 1, 15, 30, 0, 0, loc)
	t1 := time.Date(2024, 1, 1, 17, 0, 0, 0, loc)
	t2 := time.Date(2024, 1, 1, 16, 0, 0, 0, loc)

	var gotStart, gotEnd time.Time
	p := &mockProvider{
		FetchEventsFunc: func(ctx context.Context, start, end time.Time) ([]model.CalendarEvent, error) {
			gotStart, gotEnd = start, end
			return []model.CalendarEvent{
				{ID: "late", Start: model.At(t1)},
				{ID: "gone", Start: model.At(t2), Status: model.StatusCancelled},
				{ID: "early", Start: model.At(t2), Status: model.StatusTentative},
				{ID: "allday", Start: model.OnDate(now), IsAllDay: true},
			}, nil
		},
	}
	g := NewGateway(p, GatewayConfig{Location: loc, Now: func() time.Time { return now }})
	defer g.Close()

	events, err := g.FetchTodayEvents(context.Background())
	require.NoError(t, err)

	assert.True(t, gotStart.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, loc)))
	assert.True(t, gotEnd.Equal(time.Date(2024, 1, 2, 23, 59, 59, 0, loc)))

	ids := make([]string, 0, len(events))
	for _, ev := range events {
		ids = append(ids, ev.ID)
	}
	assert.Equal(t, []string{"allday", "early", "late"}, ids)
}

func TestGateway_ProviderPanicBecomesError(t *testing.T) {
	p := &mockProvider{
		CheckPermissionFunc: func(ctx context.Context) (model.Permission, error) {
			panic("segfault in native code")
		},
	}
	g := NewGateway(p, GatewayConfig{})
	defer g.Close()

	_, err := g.CheckPermission(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrProviderPanic)
	assert.Contains(t, err.Error(), "segfault in native code")

	// The worker survives the panic.
	p.CheckPermissionFunc = nil
	status, err := g.CheckPermission(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.PermissionGranted, status)
}

func TestGateway_ProviderError(t *testing.T) {
	p := &mockProvider{
		ListCalendarsFunc: func(ctx context.Context) ([]model.CalendarInfo, error) {
			return nil, errors.New("store unavailable")
		},
	}
	g := NewGateway(p, GatewayConfig{})
	defer g.Close()

	_, err := g.ListCalendars(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "list calendars: store unavailable")
}

func TestGateway_Timeout(t *testing.T) {
	release := make(chan struct{})
	p := &mockProvider{
		RequestPermissionFunc: func(ctx context.Context) (bool, error) {
			<-release
			return true, nil
		},
	}
	g := NewGateway(p, GatewayConfig{PermissionTimeout: 20 * time.Millisecond})
	defer g.Close()
	defer close(release)

	_, err := g.RequestPermission(context.Background())
	assert.ErrorIs(t, err, ErrCallTimeout)
}

func TestGateway_Closed(t *testing.T) {
	g := NewGateway(&mockProvider{}, GatewayConfig{})
	g.Close()
	g.Close()

	_, err := g.CheckPermission(context.Background())
	assert.ErrorIs(t, err, ErrGatewayClosed)
}

func TestGateway_Serialized(t *testing.T) {
	var inFlight, maxInFlight int32
	p := &mockProvider{
		CheckPermissionFunc: func(ctx context.Context) (model.Permission, error) {
			n := atomic.AddInt32(&inFlight, 1)
			for {
				m := atomic.LoadInt32(&maxInFlight)
				if n <= m || atomic.CompareAndSwapInt32(&maxInFlight, m, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&inFlight, -1)
			return model.PermissionGranted, nil
		},
	}
	g := NewGateway(p, GatewayConfig{})
	defer g.Close()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := g.CheckPermission(context.Background())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), atomic.LoadInt32(&maxInFlight))
}

func TestSortCalendars(t *testing.T) {
	in := []model.CalendarInfo{
		{ID: "3", Title: "b", SourceName: "work"},
		{ID: "1", Title: "z", SourceName: "home"},
		{ID: "2", Title: "a", SourceName: "work"},
	}
	out := SortCalendars(in)
	assert.Equal(t, []string{"1", "2", "3"}, []string{out[0].ID, out[1].ID, out[2].ID})
	assert.Equal(t, "3", in[0].ID, "input is not modified")
}
