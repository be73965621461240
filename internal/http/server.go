package http

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/handlers"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"teamfinance/internal/auth"
	"teamfinance/internal/core"
	"teamfinance/internal/log"
	"teamfinance/internal/middleware/ratelimit"
	"teamfinance/internal/middleware/security"
	"teamfinance/internal/middleware/trace"
	"teamfinance/internal/ports"
	"teamfinance/internal/services"
)

// Config holds the HTTP-facing settings.
type Config struct {
	Addr               string
	ReadTimeout        time.Duration
	WriteTimeout       time.Duration
	AllowedOrigins     []string
	RateLimitPerMinute int
	RecentLimit        int
	// Development exposes server error details in responses.
	Development bool
}

type Server struct {
	http.Server
	cfg       Config
	store     ports.Store
	teams     *services.TeamService
	entries   *services.EntryService
	dashboard *services.DashboardService
	auth      *auth.Authenticator
	limiter   *ratelimit.Limiter
	logger    *log.Logger
	started   time.Time

	shutdownOnce sync.Once
}

// NewServer wires services, middleware and routes, returning a
// ready-to-run http.Server. opts are passed to every service.
func NewServer(cfg Config, store ports.Store, authn *auth.Authenticator, logger *log.Logger, opts ...services.Option) *Server {
	if logger == nil {
		logger = log.Discard()
	}
	if authn == nil {
		authn = auth.New(auth.Config{}, logger)
	}
	if cfg.RecentLimit <= 0 {
		cfg.RecentLimit = core.DefaultRecentLimit
	}
	opts = append([]services.Option{services.WithLogger(logger)}, opts...)

	s := &Server{
		cfg:       cfg,
		store:     store,
		teams:     services.NewTeamService(store, opts...),
		entries:   services.NewEntryService(store, opts...),
		dashboard: services.NewDashboardService(store, opts...),
		auth:      authn,
		limiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: cfg.RateLimitPerMinute,
			WritesOnly:        true,
		}),
		logger:  logger.WithComponent(log.ComponentHTTP),
		started: time.Now(),
	}

	s.Server = http.Server{
		Addr:              cfg.Addr,
		Handler:           s.routes(),
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       120 * time.Second,
		ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}
	return s
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /categories", s.handleCategories)

	mux.Handle("GET /teams", s.authed(s.handleListTeams))
	mux.Handle("POST /teams", s.authed(s.handleCreateTeam))
	mux.Handle("DELETE /teams/{id}", s.authed(s.handleDeleteTeam))
	mux.Handle("POST /teams/{id}/members", s.authed(s.handleAddMember))

	for _, kind := range []core.Kind{core.KindIncome, core.KindExpense} {
		base := "/" + string(kind)
		mux.Handle("GET "+base, s.authed(s.handleListEntries(kind)))
		mux.Handle("POST "+base, s.authed(s.handleCreateEntry(kind)))
		mux.Handle("PUT "+base+"/{id}", s.authed(s.handleUpdateEntry(kind)))
		mux.Handle("DELETE "+base+"/{id}", s.authed(s.handleDeleteEntry(kind)))
	}

	mux.Handle("GET /dashboard", s.authed(s.handleDashboard))

	detector := security.NewDetector(s.logger)
	tracer := trace.NewMiddleware(s.logger, detector.ExtractClientIP)
	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())

	var h http.Handler = mux
	h = s.limiter.Middleware(detector.ExtractClientIP, s.handleRateLimited)(h)
	if len(s.cfg.AllowedOrigins) > 0 {
		h = handlers.CORS(
			handlers.AllowedOrigins(s.cfg.AllowedOrigins),
			handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete}),
			handlers.AllowedHeaders([]string{"Content-Type", "Authorization", auth.DefaultHeader, trace.HeaderRequestID}),
			handlers.ExposedHeaders([]string{trace.HeaderRequestID}),
		)(h)
	}
	h = detector.Middleware(h)
	h = headers.Middleware(h)
	h = handlers.RecoveryHandler(
		handlers.RecoveryLogger(slog.NewLogLogger(s.logger.Handler(), slog.LevelError)),
		handlers.PrintRecoveryStack(true),
	)(h)
	return tracer.Middleware(h)
}

// authed requires an acting user on the request.
func (s *Server) authed(fn http.HandlerFunc) http.Handler {
	return s.auth.Middleware(func(w http.ResponseWriter, r *http.Request, err error) {
		s.writeError(w, r, err)
	})(fn)
}

// Shutdown gracefully shuts down the server and cleanup routines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	s.writeReadError(w, r, err, nil)
}

// writeReadError answers a failed read with empty data alongside the
// error, so clients can render "no data" instead of special-casing a
// missing field.
func (s *Server) writeReadError(w http.ResponseWriter, r *http.Request, err error, empty any) {
	b := ErrorResponse(err, s.cfg.Development)
	if empty != nil {
		b.Data(empty)
	}
	if b.statusCode >= http.StatusInternalServerError {
		fields := log.NewFields().
			WithRequestID(trace.GetRequestID(r.Context())).
			WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, r.UserAgent(), r.Referer())
		log.NewStructuredLogger(log.FromContext(r.Context())).
			LogError(r.Context(), "Request failed", err, log.ComponentHTTP, r.Pattern, fields)
	}
	b.Write(w)
}

func (s *Server) handleRateLimited(w http.ResponseWriter, r *http.Request) {
	s.logger.WarnContext(r.Context(), "Rate limit exceeded", log.FieldMethod, r.Method, log.FieldPath, r.URL.Path)
	NewResponse().Status(http.StatusTooManyRequests).Fail("rate limit exceeded, try again later").Write(w)
}

func actingUser(r *http.Request) string {
	user, _ := auth.UserFromContext(r.Context())
	return user
}
