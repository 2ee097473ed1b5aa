package internal

import (
	"context"
	"log/slog"
	"net"
	"net/http"

	"connectrpc.com/grpchealth"
	"github.com/go-chi/chi/v5"
	"github.com/rs/cors"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/kazz187/labtrack/internal/activity"
	"github.com/kazz187/labtrack/internal/auth"
	"github.com/kazz187/labtrack/internal/config"
	"github.com/kazz187/labtrack/internal/dashboard"
	"github.com/kazz187/labtrack/internal/eventstream"
	"github.com/kazz187/labtrack/internal/file"
	"github.com/kazz187/labtrack/internal/metrics"
	"github.com/kazz187/labtrack/internal/provider"
	"github.com/kazz187/labtrack/internal/pushnotification"
	"github.com/kazz187/labtrack/internal/report"
	"github.com/kazz187/labtrack/internal/staff"
	"github.com/kazz187/labtrack/internal/station"
	"github.com/kazz187/labtrack/internal/task"
	"github.com/kazz187/labtrack/internal/user"
	"github.com/kazz187/labtrack/internal/whiteboard"
	"github.com/kazz187/labtrack/pkg/cerr"
	"github.com/kazz187/labtrack/pkg/clog"
)

type Server struct {
	server                 *http.Server
	env                    *config.Env
	issuer                 *auth.Issuer
	metrics                *metrics.Metrics
	userServer             *user.Server
	taskServer             *task.Server
	stationServer          *station.Server
	staffServer            *staff.Server
	providerServer         *provider.Server
	whiteboardServer       *whiteboard.Server
	fileServer             *file.Server
	dashboardServer        *dashboard.Server
	reportGenerator        *report.Generator
	pushNotificationServer *pushnotification.Server
	eventStreamServer      *eventstream.Server
	activityServer         *activity.Server
}

func NewServer(
	env *config.Env,
	issuer *auth.Issuer,
	m *metrics.Metrics,
	userServer *user.Server,
	taskServer *task.Server,
	stationServer *station.Server,
	staffServer *staff.Server,
	providerServer *provider.Server,
	whiteboardServer *whiteboard.Server,
	fileServer *file.Server,
	dashboardServer *dashboard.Server,
	reportGenerator *report.Generator,
	pushNotificationServer *pushnotification.Server,
	eventStreamServer *eventstream.Server,
	activityServer *activity.Server,
) *Server {
	return &Server{
		env:                    env,
		issuer:                 issuer,
		metrics:                m,
		userServer:             userServer,
		taskServer:             taskServer,
		stationServer:          stationServer,
		staffServer:            staffServer,
		providerServer:         providerServer,
		whiteboardServer:       whiteboardServer,
		fileServer:             fileServer,
		dashboardServer:        dashboardServer,
		reportGenerator:        reportGenerator,
		pushNotificationServer: pushNotificationServer,
		eventStreamServer:      eventStreamServer,
		activityServer:         activityServer,
	}
}

// Handler builds the full HTTP handler tree. The API lives under /api; the
// health and metrics endpoints are unauthenticated.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		r.Use(
			clog.SlogChiMiddleware(),
			s.metrics.Middleware,
			cerr.NewConvertErrorChiMiddleware(),
		)
		r.NotFound(func(w http.ResponseWriter, r *http.Request) {
			cerr.SetNewJSONError(r.Context(), cerr.NotFound, "not found", nil)
		})

		s.userServer.PublicRoutes(r)
		r.Group(func(r chi.Router) {
			r.Use(auth.Authenticate(s.issuer))
			s.userServer.Routes(r)
			s.taskServer.Routes(r)
			s.stationServer.Routes(r)
			s.staffServer.Routes(r)
			s.providerServer.Routes(r)
			s.whiteboardServer.Routes(r)
			s.fileServer.Routes(r)
			s.dashboardServer.Routes(r)
			s.reportGenerator.Routes(r)
			s.pushNotificationServer.Routes(r)
			s.eventStreamServer.Routes(r)
			s.activityServer.Routes(r)
		})
	})

	mux := http.NewServeMux()
	mux.Handle("/health", &HealthChecker{})
	mux.Handle("/metrics", s.metrics.Handler())
	mux.Handle("/api/", r)
	mux.Handle(grpchealth.NewHandler(grpchealth.NewStaticChecker()))

	return cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodPatch,
			http.MethodDelete,
			http.MethodOptions,
		},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}).Handler(mux)
}

// ListenAndServe starts the HTTP server. ctx becomes the base context of
// every request so long-lived event streams end when it is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	addr := net.JoinHostPort(s.env.HTTPHost, s.env.HTTPPort)
	slog.Info("starting server", "addr", addr)

	s.server = &http.Server{
		Addr:        addr,
		Handler:     h2c.NewHandler(s.Handler(), &http2.Server{}),
		BaseContext: func(_ net.Listener) context.Context { return ctx },
	}
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

type HealthChecker struct{}

func (hc *HealthChecker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}
