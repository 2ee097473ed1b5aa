package activity

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kazz187/labtrack/internal/checklist"
	"github.com/kazz187/labtrack/internal/eventbus"
	"github.com/kazz187/labtrack/pkg/rest"
)

type Server struct {
	logger *Logger
	clock  checklist.Clock
}

func NewServer(logger *Logger, clock checklist.Clock) *Server {
	return &Server{logger: logger, clock: clock}
}

func (s *Server) Routes(r chi.Router) {
	r.Get("/activity", rest.Handle(s.list))
}

// list serves ?date=YYYY-MM-DD (default today), type and resourceId.
func (s *Server) list(r *http.Request) (any, error) {
	day, err := rest.QueryDate(r, "date")
	if err != nil {
		return nil, err
	}
	if day.IsZero() {
		day = checklist.Today(s.clock)
	}
	q := r.URL.Query()
	return s.logger.Read(r.Context(), day, Filter{
		Type:       eventbus.Type(q.Get("type")),
		ResourceID: q.Get("resourceId"),
	})
}
