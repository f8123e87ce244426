package server

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/treefix50/recapadmin/internal/auth"
	"github.com/treefix50/recapadmin/internal/catalog"
	"github.com/treefix50/recapadmin/internal/importer"
	"github.com/treefix50/recapadmin/internal/reports"
)

const maxBodyBytes = 10 << 20

// Options configure the HTTP listener.
type Options struct {
	Addr string
	// CORS enables permissive cross-origin headers for the dashboard.
	CORS bool
	// LoginInterval is the minimum spacing between login attempts per client.
	LoginInterval   time.Duration
	ShutdownTimeout time.Duration
}

// Deps are the services the API exposes.
type Deps struct {
	Catalog  *catalog.Service
	Importer *importer.Importer
	Reports  *reports.Service
	Auth     *auth.Manager
	Logger   *zap.Logger
}

type Server struct {
	opts         Options
	catalog      *catalog.Service
	importer     *importer.Importer
	reports      *reports.Service
	authManager  *auth.Manager
	log          *zap.Logger
	loginLimiter *RateLimiter
	http         *http.Server
}

func New(opts Options, deps Deps) *Server {
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 3 * time.Second
	}
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}

	s := &Server{
		opts:         opts,
		catalog:      deps.Catalog,
		importer:     deps.Importer,
		reports:      deps.Reports,
		authManager:  deps.Auth,
		log:          log.Named("http"),
		loginLimiter: NewRateLimiter(opts.LoginInterval),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)

	mux.HandleFunc("/auth/login", s.handleAuthLogin)
	mux.HandleFunc("/auth/logout", s.handleAuthLogout)
	mux.HandleFunc("/auth/session", s.handleAuthSession)
	mux.HandleFunc("/auth/users", s.authenticated(s.handleAuthUsers))
	mux.HandleFunc("/auth/users/", s.authenticated(s.handleAuthUserPassword))

	mux.HandleFunc("/series", s.authenticated(s.handleSeries))
	mux.HandleFunc("/series/", s.authenticated(s.handleSeriesDetail))
	mux.HandleFunc("/import/preview", s.authenticated(s.handleImportPreview))
	mux.HandleFunc("/import", s.authenticated(s.handleImportNew))

	mux.HandleFunc("/reports", s.authenticated(s.handleReports))
	mux.HandleFunc("/reports/", s.authenticated(s.handleReportReview))

	s.http = &http.Server{
		Addr:              opts.Addr,
		Handler:           s.logMiddleware(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the fully wrapped request handler.
func (s *Server) Handler() http.Handler { return s.http.Handler }

func (s *Server) Start() error { return s.http.ListenAndServe() }

func (s *Server) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
	defer cancel()
	return s.http.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
