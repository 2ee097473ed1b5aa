// Package pushnotification delivers web-push alerts when tasks reach a
// terminal status.
package pushnotification

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	webpush "github.com/SherClockHolmes/webpush-go"

	"github.com/kazz187/labtrack/internal/checklist"
	"github.com/kazz187/labtrack/internal/config"
	"github.com/kazz187/labtrack/internal/pushsubscription"
)

const (
	notificationTTL = 86400
	// a subscription is dropped after this many consecutive failed deliveries
	maxFailures = 5
)

type NotificationPayload struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	URL   string `json:"url,omitempty"`
	Tag   string `json:"tag,omitempty"`
}

// SendFunc matches webpush.SendNotificationWithContext.
type SendFunc func(ctx context.Context, message []byte, s *webpush.Subscription, options *webpush.Options) (*http.Response, error)

type Sender struct {
	vapidEnv *config.VAPIDEnv
	repo     pushsubscription.Repository
	send     SendFunc
	now      func() time.Time
}

func NewSender(vapidEnv *config.VAPIDEnv, repo pushsubscription.Repository) *Sender {
	return &Sender{
		vapidEnv: vapidEnv,
		repo:     repo,
		send:     webpush.SendNotificationWithContext,
		now:      time.Now,
	}
}

// WithSendFunc replaces the transport, for tests.
func (s *Sender) WithSendFunc(fn SendFunc) *Sender {
	s.send = fn
	return s
}

func (s *Sender) Configured() bool {
	return s.vapidEnv.VAPIDPrivateKey != "" && s.vapidEnv.VAPIDPublicKey != ""
}

// SendToAll delivers payload to every stored subscription and returns the
// number of successful deliveries.
func (s *Sender) SendToAll(ctx context.Context, payload *NotificationPayload) int {
	if !s.Configured() {
		slog.WarnContext(ctx, "push notification: VAPID keys not configured, skipping")
		return 0
	}
	subs, err := s.repo.List(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "push notification: failed to list subscriptions", "error", err)
		return 0
	}
	return s.deliver(ctx, subs, payload)
}

// SendForStatus delivers payload to the subscriptions that want alerts for
// status.
func (s *Sender) SendForStatus(ctx context.Context, status checklist.Status, payload *NotificationPayload) int {
	if !s.Configured() {
		return 0
	}
	subs, err := s.repo.ListWanting(ctx, status)
	if err != nil {
		slog.ErrorContext(ctx, "push notification: failed to list subscriptions", "status", status, "error", err)
		return 0
	}
	return s.deliver(ctx, subs, payload)
}

func (s *Sender) deliver(ctx context.Context, subs []*pushsubscription.Subscription, payload *NotificationPayload) int {
	data, err := json.Marshal(payload)
	if err != nil {
		slog.ErrorContext(ctx, "push notification: failed to marshal payload", "error", err)
		return 0
	}
	sent := 0
	for _, sub := range subs {
		switch s.sendToSubscription(ctx, sub, data) {
		case delivered:
			sent++
			sub.Failures = 0
			sub.LastDeliveredAt = s.now()
			s.save(ctx, sub)
		case expired:
			slog.InfoContext(ctx, "push notification: subscription expired, removing", "endpoint", sub.Endpoint)
			s.remove(ctx, sub)
		case failed:
			sub.Failures++
			if sub.Failures >= maxFailures {
				slog.WarnContext(ctx, "push notification: too many failed deliveries, removing", "endpoint", sub.Endpoint, "failures", sub.Failures)
				s.remove(ctx, sub)
				continue
			}
			s.save(ctx, sub)
		}
	}
	return sent
}

func (s *Sender) save(ctx context.Context, sub *pushsubscription.Subscription) {
	if err := s.repo.Update(ctx, sub); err != nil {
		slog.ErrorContext(ctx, "push notification: failed to update subscription", "id", sub.ID, "error", err)
	}
}

func (s *Sender) remove(ctx context.Context, sub *pushsubscription.Subscription) {
	if err := s.repo.Delete(ctx, sub.ID); err != nil {
		slog.ErrorContext(ctx, "push notification: failed to delete subscription", "id", sub.ID, "error", err)
	}
}

type outcome int

const (
	delivered outcome = iota
	expired
	failed
)

func (s *Sender) sendToSubscription(ctx context.Context, sub *pushsubscription.Subscription, data []byte) outcome {
	wpSub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256dhKey,
			Auth:   sub.AuthKey,
		},
	}

	resp, err := s.send(ctx, data, wpSub, &webpush.Options{
		VAPIDPublicKey:  s.vapidEnv.VAPIDPublicKey,
		VAPIDPrivateKey: s.vapidEnv.VAPIDPrivateKey,
		Subscriber:      s.vapidEnv.VAPIDContact,
		TTL:             notificationTTL,
		Urgency:         webpush.UrgencyHigh,
	})
	if err != nil {
		slog.ErrorContext(ctx, "push notification: failed to send", "endpoint", sub.Endpoint, "error", err)
		return failed
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusGone || resp.StatusCode == http.StatusNotFound:
		return expired
	case resp.StatusCode >= 400:
		slog.WarnContext(ctx, "push notification: unexpected status", "endpoint", sub.Endpoint, "status", resp.StatusCode)
		return failed
	}
	return delivered
}
