package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"galopen/config"
	"galopen/internal/model"
	"galopen/internal/store"
	"galopen/internal/tray"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type mockCalendar struct {
	CheckPermissionFunc   func(ctx context.Context) (model.Permission, error)
	RequestPermissionFunc func(ctx context.Context) (bool, error)
	ListCalendarsFunc     func(ctx context.Context) ([]model.CalendarInfo, error)
}

func (m *mockCalendar) CheckPermission(ctx context.Context) (model.Permission, error) {
	return m.CheckPermissionFunc(ctx)
}

func (m *mockCalendar) RequestPermission(ctx context.Context) (bool, error) {
	return m.RequestPermissionFunc(ctx)
}

func (m *mockCalendar) ListCalendars(ctx context.Context) ([]model.CalendarInfo, error) {
	return m.ListCalendarsFunc(ctx)
}

type mockSyncer struct {
	SyncFunc     func(ctx context.Context) (store.Snapshot, error)
	SnapshotFunc func() store.Snapshot
}

func (m *mockSyncer) Sync(ctx context.Context) (store.Snapshot, error) { return m.SyncFunc(ctx) }
func (m *mockSyncer) Snapshot() store.Snapshot                         { return m.SnapshotFunc() }

type mockStore struct {
	GetSettingsFunc        func(ctx context.Context, defaults model.Settings) (model.Settings, error)
	SaveSettingsFunc       func(ctx context.Context, s model.Settings) (model.Settings, error)
	RecordJoinFunc         func(ctx context.Context, rec model.JoinRecord) error
	ListJoinsFunc          func(ctx context.Context, limit int) ([]model.JoinRecord, error)
	GetSubscriptionFunc    func(ctx context.Context, endpoint string) (model.PushSubscription, error)
	UpsertSubscriptionFunc func(ctx context.Context, sub model.PushSubscription) error
	DeleteSubscriptionFunc func(ctx context.Context, endpoint string) error
	ListSubscriptionsFunc  func(ctx context.Context) ([]model.PushSubscription, error)
}

func (m *mockStore) GetSettings(ctx context.Context, defaults model.Settings) (model.Settings, error) {
	return m.GetSettingsFunc(ctx, defaults)
}

func (m *mockStore) SaveSettings(ctx context.Context, s model.Settings) (model.Settings, error) {
	return m.SaveSettingsFunc(ctx, s)
}

func (m *mockStore) RecordJoin(ctx context.Context, rec model.JoinRecord) error {
	return m.RecordJoinFunc(ctx, rec)
}

func (m *mockStore) ListJoins(ctx context.Context, limit int) ([]model.JoinRecord, error) {
	return m.ListJoinsFunc(ctx, limit)
}

func (m *mockStore) GetSubscription(ctx context.Context, endpoint string) (model.PushSubscription, error) {
	return m.GetSubscriptionFunc(ctx, endpoint)
}

func (m *mockStore) UpsertSubscription(ctx context.Context, sub model.PushSubscription) error {
	return m.UpsertSubscriptionFunc(ctx, sub)
}

func (m *mockStore) DeleteSubscription(ctx context.Context, endpoint string) error {
	return m.DeleteSubscriptionFunc(ctx, endpoint)
}

func (m *mockStore) ListSubscriptions(ctx context.Context) ([]model.PushSubscription, error) {
	return m.ListSubscriptionsFunc(ctx)
}

type mockTray struct {
	state tray.State
}

func (m *mockTray) State() tray.State { return m.state }

type mockAutostart struct {
	ApplyFunc func(enabled bool) error
}

func (m *mockAutostart) Apply(enabled bool) error { return m.ApplyFunc(enabled) }

func testServerConfig() config.ServerConfig {
	return config.ServerConfig{RateLimitPerSec: 1000, RateBurst: 1000, CacheTTLSeconds: 60}
}

func doRequest(t *testing.T, r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}
