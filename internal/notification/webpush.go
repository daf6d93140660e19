package notification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/sirupsen/logrus"

	"galopen/internal/model"
	"galopen/internal/store"
)

// NotificationSender defines the interface for sending a web push notification.
type NotificationSender interface {
	Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// WebPushSender is a real implementation of NotificationSender using the webpush library.
type WebPushSender struct{}

// Send sends a notification using the webpush library.
func (s *WebPushSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotification(payload, sub, options)
}

// SubscriptionStore is the part of store.Store the push sender needs.
type SubscriptionStore interface {
	ListSubscriptions(ctx context.Context) ([]model.PushSubscription, error)
	DeleteSubscription(ctx context.Context, endpoint string) error
}

// PushSender delivers notices to every stored browser push subscription.
type PushSender struct {
	store   SubscriptionStore
	options *webpush.Options
	sender  NotificationSender
	log     *logrus.Entry
}

// NewPushSender creates a PushSender using the webpush library.
func NewPushSender(st SubscriptionStore, options *webpush.Options) *PushSender {
	return &PushSender{
		store:   st,
		options: options,
		sender:  &WebPushSender{},
		log:     logrus.WithField("component", "webpush"),
	}
}

// Name implements Sender.
func (p *PushSender) Name() string { return "webpush" }

// Send implements Sender. Expired subscriptions (HTTP 410) are deleted.
func (p *PushSender) Send(ctx context.Context, n Notice) error {
	subs, err := p.store.ListSubscriptions(ctx)
	if err != nil {
		return err
	}
	if len(subs) == 0 {
		return nil
	}

	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to marshal notice: %w", err)
	}

	var errs []error
	for _, sub := range subs {
		if err := p.sendOne(ctx, sub, payload); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (p *PushSender) sendOne(ctx context.Context, sub model.PushSubscription, payload []byte) error {
	// Manually construct the webpush.Subscription object
	wpSub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256DH,
			Auth:   sub.Auth,
		},
	}

	resp, err := p.sender.Send(payload, wpSub, p.options)
	if err != nil {
		return fmt.Errorf("sending to %s: %w", sub.Endpoint, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusGone:
		p.log.WithField("endpoint", sub.Endpoint).Info("subscription expired, deleting")
		if err := p.store.DeleteSubscription(ctx, sub.Endpoint); err != nil && !errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("deleting expired subscription %s: %w", sub.Endpoint, err)
		}
	case resp.StatusCode >= 400:
		return fmt.Errorf("sending to %s: push service returned %d", sub.Endpoint, resp.StatusCode)
	}
	return nil
}
