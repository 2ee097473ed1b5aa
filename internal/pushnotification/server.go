package pushnotification

import (
	"fmt"
	"net/http"
	"slices"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/oklog/ulid/v2"

	"github.com/kazz187/labtrack/internal/auth"
	"github.com/kazz187/labtrack/internal/checklist"
	"github.com/kazz187/labtrack/internal/config"
	"github.com/kazz187/labtrack/internal/pushsubscription"
	"github.com/kazz187/labtrack/pkg/cerr"
	"github.com/kazz187/labtrack/pkg/rest"
)

type Server struct {
	vapidEnv *config.VAPIDEnv
	repo     pushsubscription.Repository
	sender   *Sender
}

func NewServer(vapidEnv *config.VAPIDEnv, repo pushsubscription.Repository, sender *Sender) *Server {
	return &Server{
		vapidEnv: vapidEnv,
		repo:     repo,
		sender:   sender,
	}
}

func (s *Server) Routes(r chi.Router) {
	r.Get("/push/vapid-public-key", rest.Handle(s.vapidPublicKey))
	r.Get("/push/subscriptions", rest.Handle(s.list))
	r.Post("/push/subscriptions", rest.Handle(s.register))
	r.Delete("/push/subscriptions", rest.Handle(s.unregister))
	r.With(auth.RequireRole(auth.RoleAdmin)).Post("/push/test", rest.Handle(s.sendTest))
}

func (s *Server) vapidPublicKey(_ *http.Request) (any, error) {
	if s.vapidEnv.VAPIDPublicKey == "" {
		return nil, cerr.NewError(cerr.FailedPrecondition, "VAPID keys not configured", nil)
	}
	return map[string]string{"publicKey": s.vapidEnv.VAPIDPublicKey}, nil
}

type subscriptionRequest struct {
	Endpoint string `json:"endpoint"`
	Keys     struct {
		P256dh string `json:"p256dh"`
		Auth   string `json:"auth"`
	} `json:"keys"`
	Statuses []checklist.Status `json:"statuses"`
}

// subscriptionView leaves out the endpoint keys.
type subscriptionView struct {
	ID              string             `json:"id"`
	Endpoint        string             `json:"endpoint"`
	Statuses        []checklist.Status `json:"statuses"`
	LastDeliveredAt *time.Time         `json:"lastDeliveredAt,omitempty"`
	CreatedAt       time.Time          `json:"createdAt"`
}

func viewOf(sub *pushsubscription.Subscription) subscriptionView {
	v := subscriptionView{
		ID:        sub.ID,
		Endpoint:  sub.Endpoint,
		Statuses:  sub.Statuses,
		CreatedAt: sub.CreatedAt,
	}
	if len(v.Statuses) == 0 {
		v.Statuses = pushsubscription.AlertStatuses
	}
	if !sub.LastDeliveredAt.IsZero() {
		v.LastDeliveredAt = &sub.LastDeliveredAt
	}
	return v
}

func (s *Server) list(r *http.Request) (any, error) {
	id, _ := auth.FromContext(r.Context())
	subs, err := s.repo.ListByUser(r.Context(), id.UserID)
	if err != nil {
		return nil, err
	}
	out := make([]subscriptionView, 0, len(subs))
	for _, sub := range subs {
		out = append(out, viewOf(sub))
	}
	return out, nil
}

// register stores a browser endpoint. Registering a known endpoint again
// refreshes its keys and alert statuses and moves it to the caller.
func (s *Server) register(r *http.Request) (any, error) {
	var req subscriptionRequest
	if err := rest.Decode(r, &req); err != nil {
		return nil, err
	}
	violations := map[string]string{}
	if req.Endpoint == "" {
		violations["endpoint"] = "is required"
	}
	if req.Keys.P256dh == "" {
		violations["keys.p256dh"] = "is required"
	}
	if req.Keys.Auth == "" {
		violations["keys.auth"] = "is required"
	}
	for i, st := range req.Statuses {
		if !slices.Contains(pushsubscription.AlertStatuses, st) {
			violations[fmt.Sprintf("statuses[%d]", i)] = "must be Disconnected or Completed"
		}
	}
	if len(violations) > 0 {
		return nil, cerr.NewInvalidArgumentError("invalid push subscription", violations)
	}
	id, _ := auth.FromContext(r.Context())

	existing, err := s.repo.FindByEndpoint(r.Context(), req.Endpoint)
	switch {
	case err == nil:
		existing.P256dhKey = req.Keys.P256dh
		existing.AuthKey = req.Keys.Auth
		existing.UserID = id.UserID
		existing.Statuses = req.Statuses
		existing.Failures = 0
		if err := s.repo.Update(r.Context(), existing); err != nil {
			return nil, err
		}
		return viewOf(existing), nil
	case !cerr.IsCode(err, cerr.NotFound):
		return nil, err
	}

	sub := &pushsubscription.Subscription{
		ID:        ulid.Make().String(),
		UserID:    id.UserID,
		Endpoint:  req.Endpoint,
		P256dhKey: req.Keys.P256dh,
		AuthKey:   req.Keys.Auth,
		Statuses:  req.Statuses,
		CreatedAt: time.Now(),
	}
	if err := s.repo.Create(r.Context(), sub); err != nil {
		return nil, err
	}
	return viewOf(sub), nil
}

type unregisterRequest struct {
	Endpoint string `json:"endpoint"`
}

// unregister removes one of the caller's endpoints. Admins may remove any.
func (s *Server) unregister(r *http.Request) (any, error) {
	var req unregisterRequest
	if err := rest.Decode(r, &req); err != nil {
		return nil, err
	}
	if req.Endpoint == "" {
		return nil, cerr.NewInvalidArgumentError("invalid push subscription", map[string]string{"endpoint": "is required"})
	}
	sub, err := s.repo.FindByEndpoint(r.Context(), req.Endpoint)
	if err != nil {
		return nil, err
	}
	id, _ := auth.FromContext(r.Context())
	if sub.UserID != id.UserID && id.Role != auth.RoleAdmin {
		return nil, cerr.NewError(cerr.NotFound, "push subscription not found", nil)
	}
	return nil, s.repo.Delete(r.Context(), sub.ID)
}

func (s *Server) sendTest(r *http.Request) (any, error) {
	if !s.sender.Configured() {
		return nil, cerr.NewError(cerr.FailedPrecondition, "VAPID keys not configured", nil)
	}
	sent := s.sender.SendToAll(r.Context(), &NotificationPayload{
		Title: "Lab tracker test",
		Body:  "Push notifications are working.",
	})
	return map[string]int{"sent": sent}, nil
}
