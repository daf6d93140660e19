package main

import (
	"context"
	"fmt"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"galopen/config"
	"galopen/internal/calendar"
	"galopen/internal/calendar/google"
	"galopen/internal/calendar/ical"
	"galopen/internal/db"
	"galopen/internal/model"
	"galopen/internal/notification"
	"galopen/internal/opener"
	"galopen/internal/store"
)

func newProvider(cfg *config.Config, browser *opener.Browser) (calendar.Provider, error) {
	switch cfg.Calendar.Provider {
	case "google":
		return google.New(cfg.Calendar.Google, browser.OpenURL), nil
	case "ical":
		return ical.New(cfg.Calendar.ICal.Sources, nil, time.Local), nil
	default:
		return nil, fmt.Errorf("unknown calendar provider %q", cfg.Calendar.Provider)
	}
}

func newGateway(cfg *config.Config, browser *opener.Browser) (*calendar.Gateway, error) {
	provider, err := newProvider(cfg, browser)
	if err != nil {
		return nil, err
	}
	return calendar.NewGateway(provider, calendar.GatewayConfig{
		CallTimeout:       cfg.Calendar.CallTimeout,
		PermissionTimeout: cfg.Calendar.PermissionTimeout,
		Location:          time.Local,
	}), nil
}

func openStore(cfg *config.Config) (store.Store, *gorm.DB, error) {
	gormDB, err := db.Init(&cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return store.NewGormStore(gormDB), gormDB, nil
}

func defaultSettings(cfg *config.Config) model.Settings {
	return model.Settings{
		ID:                   model.SettingsRowID,
		MinutesBefore:        cfg.Scheduler.DefaultMinutesBefore,
		TrayCountdownMinutes: cfg.Scheduler.DefaultTrayCountdownMinutes,
	}
}

func webpushOptions(cfg config.PushConfig) *webpush.Options {
	if !cfg.Enabled() {
		return nil
	}
	return &webpush.Options{
		VAPIDPublicKey:  cfg.PublicKey,
		VAPIDPrivateKey: cfg.PrivateKey,
		Subscriber:      cfg.Subject,
		TTL:             cfg.TTL,
	}
}

// newSenders returns the log sender plus every configured delivery channel.
func newSenders(ctx context.Context, cfg config.NotifyConfig, st store.Store) []notification.Sender {
	log := logrus.WithField("component", "main")
	senders := []notification.Sender{&notification.LogSender{Log: logrus.WithField("component", "notice")}}

	if opts := webpushOptions(cfg.Push); opts != nil {
		senders = append(senders, notification.NewPushSender(st, opts))
	} else {
		log.Info("web push disabled: vapid keys are not configured")
	}

	if cfg.SNS.TopicARN != "" {
		sns, err := notification.NewSNSSenderFromDefaults(ctx, cfg.SNS.Region, cfg.SNS.TopicARN)
		if err != nil {
			log.WithError(err).Warn("sns notifications disabled")
		} else {
			senders = append(senders, sns)
		}
	}

	if cfg.Discord.WebhookID != "" && cfg.Discord.WebhookToken != "" {
		discord, err := notification.NewDiscordSender(nil, cfg.Discord.WebhookID, cfg.Discord.WebhookToken)
		if err != nil {
			log.WithError(err).Warn("discord notifications disabled")
		} else {
			senders = append(senders, discord)
		}
	}
	return senders
}
