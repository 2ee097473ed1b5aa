package whiteboard

import (
	"context"
	"net/http"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/oklog/ulid/v2"

	"github.com/kazz187/labtrack/internal/auth"
	"github.com/kazz187/labtrack/internal/eventbus"
	"github.com/kazz187/labtrack/pkg/cerr"
	"github.com/kazz187/labtrack/pkg/rest"
)

var colorPattern = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

type Server struct {
	repo     Repository
	eventBus *eventbus.Bus
	mu       sync.Mutex
}

func NewServer(repo Repository, eventBus *eventbus.Bus) *Server {
	return &Server{repo: repo, eventBus: eventBus}
}

func (s *Server) Routes(r chi.Router) {
	r.Get("/whiteboard", rest.Handle(s.get))
	r.Post("/whiteboard/entries", rest.Handle(s.upsert))
	r.Delete("/whiteboard/entries/{id}", rest.Handle(s.deleteEntry))
	r.Delete("/whiteboard/sections/{section}", rest.Handle(s.clearSection))
}

func (s *Server) get(r *http.Request) (any, error) {
	b, err := s.repo.Load(r.Context())
	if err != nil {
		return nil, err
	}
	b.Sort()
	return b, nil
}

// EntryRequest creates an entry when ID is empty and edits it otherwise.
type EntryRequest struct {
	ID      string  `json:"id"`
	Section *string `json:"section"`
	Text    *string `json:"text"`
	Color   *string `json:"color"`
	Pinned  *bool   `json:"pinned"`
}

func (s *Server) upsert(r *http.Request) (any, error) {
	var req EntryRequest
	if err := rest.Decode(r, &req); err != nil {
		return nil, err
	}
	id, _ := auth.FromContext(r.Context())
	return s.Upsert(r.Context(), req, id.Username)
}

// Upsert applies req to the board and returns the stored entry.
func (s *Server) Upsert(ctx context.Context, req EntryRequest, by string) (*Entry, error) {
	var entry *Entry
	err := s.modify(ctx, func(b *Board) error {
		if req.ID == "" {
			entry = &Entry{ID: ulid.Make().String()}
		} else {
			i := b.find(req.ID)
			if i < 0 {
				return cerr.NewError(cerr.NotFound, "whiteboard entry not found", nil)
			}
			entry = b.Entries[i]
		}
		if req.Section != nil {
			entry.Section = strings.TrimSpace(*req.Section)
		}
		if req.Text != nil {
			entry.Text = strings.TrimSpace(*req.Text)
		}
		if req.Color != nil {
			entry.Color = strings.TrimSpace(*req.Color)
		}
		if req.Pinned != nil {
			entry.Pinned = *req.Pinned
		}
		violations := map[string]string{}
		if entry.Section == "" {
			violations["section"] = "is required"
		}
		if entry.Text == "" {
			violations["text"] = "is required"
		}
		if entry.Color != "" && !colorPattern.MatchString(entry.Color) {
			violations["color"] = "must be #rrggbb"
		}
		if len(violations) > 0 {
			return cerr.NewInvalidArgumentError("invalid whiteboard entry", violations)
		}
		entry.UpdatedBy = by
		entry.UpdatedAt = time.Now()
		if req.ID == "" {
			b.Entries = append(b.Entries, entry)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *Server) deleteEntry(r *http.Request) (any, error) {
	id := chi.URLParam(r, "id")
	return nil, s.modify(r.Context(), func(b *Board) error {
		i := b.find(id)
		if i < 0 {
			return cerr.NewError(cerr.NotFound, "whiteboard entry not found", nil)
		}
		b.Entries = append(b.Entries[:i], b.Entries[i+1:]...)
		return nil
	})
}

func (s *Server) clearSection(r *http.Request) (any, error) {
	section := chi.URLParam(r, "section")
	removed := 0
	err := s.modify(r.Context(), func(b *Board) error {
		kept := b.Entries[:0]
		for _, e := range b.Entries {
			if e.Section == section {
				removed++
				continue
			}
			kept = append(kept, e)
		}
		b.Entries = kept
		return nil
	})
	if err != nil {
		return nil, err
	}
	return map[string]int{"removed": removed}, nil
}

func (s *Server) modify(ctx context.Context, fn func(b *Board) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, err := s.repo.Load(ctx)
	if err != nil {
		return err
	}
	if err := fn(b); err != nil {
		return err
	}
	b.UpdatedAt = time.Now()
	if err := s.repo.Save(ctx, b); err != nil {
		return err
	}
	s.eventBus.PublishNew(eventbus.WhiteboardUpdated, "whiteboard", nil)
	return nil
}
