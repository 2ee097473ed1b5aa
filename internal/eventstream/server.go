package eventstream

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kazz187/labtrack/internal/eventbus"
	"github.com/kazz187/labtrack/pkg/cerr"
)

const (
	subscriberBuffer  = 64
	defaultHeartbeat  = 30 * time.Second
	eventStreamHeader = "text/event-stream"
)

// Server streams bus events to browsers as server-sent events.
type Server struct {
	eventBus  *eventbus.Bus
	heartbeat time.Duration
}

func NewServer(eventBus *eventbus.Bus) *Server {
	return &Server{eventBus: eventBus, heartbeat: defaultHeartbeat}
}

// WithHeartbeat overrides the keep-alive comment interval.
func (s *Server) WithHeartbeat(d time.Duration) *Server {
	s.heartbeat = d
	return s
}

func (s *Server) Routes(r chi.Router) {
	r.Get("/events", s.stream)
}

// typeFilter parses ?types=task.created,task.updated. An empty filter
// matches everything.
func typeFilter(r *http.Request) map[eventbus.Type]struct{} {
	filter := map[eventbus.Type]struct{}{}
	for _, raw := range r.URL.Query()["types"] {
		for t := range strings.SplitSeq(raw, ",") {
			if t = strings.TrimSpace(t); t != "" {
				filter[eventbus.Type(t)] = struct{}{}
			}
		}
	}
	return filter
}

func (s *Server) stream(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	rc := http.NewResponseController(w)

	filter := typeFilter(r)
	subID, ch := s.eventBus.Subscribe(subscriberBuffer)
	defer s.eventBus.Unsubscribe(subID)

	cerr.SetRawResponse(ctx)
	w.Header().Set("Content-Type", eventStreamHeader)
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	if _, err := fmt.Fprint(w, ": connected\n\n"); err != nil {
		return
	}
	if err := rc.Flush(); err != nil {
		slog.WarnContext(ctx, "event stream cannot flush", "error", err)
		return
	}

	ticker := time.NewTicker(s.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": heartbeat\n\n"); err != nil {
				return
			}
			if err := rc.Flush(); err != nil {
				return
			}
		case event, ok := <-ch:
			if !ok {
				return
			}
			if len(filter) > 0 {
				if _, match := filter[event.Type]; !match {
					continue
				}
			}
			if err := writeEvent(w, event); err != nil {
				slog.DebugContext(ctx, "event stream closed", "error", err)
				return
			}
			if err := rc.Flush(); err != nil {
				return
			}
		}
	}
}

func writeEvent(w http.ResponseWriter, event *eventbus.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "id: %s\nevent: %s\ndata: %s\n\n", event.ID, event.Type, data)
	return err
}
