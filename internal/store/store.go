package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"galopen/internal/model"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// Store defines the interface for all database operations.
type Store interface {
	// GetSettings returns the saved settings, or defaults when none were saved.
	GetSettings(ctx context.Context, defaults model.Settings) (model.Settings, error)
	SaveSettings(ctx context.Context, s model.Settings) (model.Settings, error)

	RecordJoin(ctx context.Context, rec model.JoinRecord) error
	ListJoins(ctx context.Context, limit int) ([]model.JoinRecord, error)

	GetSubscription(ctx context.Context, endpoint string) (model.PushSubscription, error)
	UpsertSubscription(ctx context.Context, sub model.PushSubscription) error
	DeleteSubscription(ctx context.Context, endpoint string) error
	ListSubscriptions(ctx context.Context) ([]model.PushSubscription, error)
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) GetSettings(ctx context.Context, defaults model.Settings) (model.Settings, error) {
	var settings model.Settings
	err := s.db.WithContext(ctx).First(&settings, model.SettingsRowID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return defaults, nil
	}
	if err != nil {
		return defaults, fmt.Errorf("failed to load settings: %w", err)
	}
	return settings, nil
}

func (s *gormStore) SaveSettings(ctx context.Context, settings model.Settings) (model.Settings, error) {
	settings.ID = model.SettingsRowID
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"minutes_before", "tray_countdown_minutes", "start_at_login", "updated_at"}),
	}).Create(&settings).Error
	if err != nil {
		return settings, fmt.Errorf("failed to save settings: %w", err)
	}
	return settings, nil
}

func (s *gormStore) RecordJoin(ctx context.Context, rec model.JoinRecord) error {
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return fmt.Errorf("failed to record join for event %s: %w", rec.EventID, err)
	}
	return nil
}

func (s *gormStore) ListJoins(ctx context.Context, limit int) ([]model.JoinRecord, error) {
	var joins []model.JoinRecord
	err := s.db.WithContext(ctx).Order("opened_at DESC").Limit(limit).Find(&joins).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list joins: %w", err)
	}
	return joins, nil
}

func (s *gormStore) GetSubscription(ctx context.Context, endpoint string) (model.PushSubscription, error) {
	var sub model.PushSubscription
	err := s.db.WithContext(ctx).First(&sub, "endpoint = ?", endpoint).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return sub, ErrNotFound
	}
	if err != nil {
		return sub, fmt.Errorf("failed to load subscription: %w", err)
	}
	return sub, nil
}

func (s *gormStore) UpsertSubscription(ctx context.Context, sub model.PushSubscription) error {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "endpoint"}},
		DoUpdates: clause.AssignmentColumns([]string{"p256dh", "auth"}),
	}).Create(&sub).Error
	if err != nil {
		return fmt.Errorf("failed to save subscription: %w", err)
	}
	return nil
}

func (s *gormStore) DeleteSubscription(ctx context.Context, endpoint string) error {
	res := s.db.WithContext(ctx).Where("endpoint = ?", endpoint).Delete(&model.PushSubscription{})
	if res.Error != nil {
		return fmt.Errorf("failed to delete subscription: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *gormStore) ListSubscriptions(ctx context.Context) ([]model.PushSubscription, error) {
	var subs []model.PushSubscription
	if err := s.db.WithContext(ctx).Find(&subs).Error; err != nil {
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}
	return subs, nil
}
