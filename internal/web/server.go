package web

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/hpungsan/sift/internal/config"
	"github.com/hpungsan/sift/internal/metrics"
	"github.com/hpungsan/sift/internal/suggest"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

// Deps carries the collaborators the UI needs besides the database.
type Deps struct {
	Suggestions suggest.Template
	Metrics     *metrics.Metrics // nil disables /metrics
	Logger      *slog.Logger
}

// NewServer creates and configures the HTTP server for the Sift web UI.
func NewServer(db *sql.DB, cfg *config.Config, deps Deps, version, bind string, port int) (*http.Server, error) {
	router, err := NewRouter(db, cfg, deps, version)
	if err != nil {
		return nil, err
	}
	return &http.Server{
		Addr:              fmt.Sprintf("%s:%d", bind, port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}, nil
}

// NewRouter builds the route table. Split from NewServer so tests can drive it
// through httptest.
func NewRouter(db *sql.DB, cfg *config.Config, deps Deps, version string) (http.Handler, error) {
	templateSub, err := fs.Sub(templateFS, "templates")
	if err != nil {
		return nil, fmt.Errorf("template sub-FS: %w", err)
	}
	staticSub, err := fs.Sub(staticFS, "static")
	if err != nil {
		return nil, fmt.Errorf("static sub-FS: %w", err)
	}

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	h := &Handlers{
		db:          db,
		cfg:         cfg,
		suggestions: deps.Suggestions,
		metrics:     deps.Metrics,
		renderer:    NewRenderer(templateSub, version, logger),
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(securityHeaders)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/inbox", http.StatusFound)
	})
	r.Route("/inbox", func(r chi.Router) {
		r.Get("/", h.HandleInbox)
		r.Post("/", h.HandleInboxAdd)
		r.Delete("/{id}", h.HandleInboxRemove)
	})
	r.Route("/records/{kind}", func(r chi.Router) {
		r.Get("/", h.HandleRecords)
		r.Delete("/{id}", h.HandleRecordDelete)
	})
	r.Get("/information/{id}/suggestions", h.HandleSuggestions)
	r.Post("/information/{id}/suggestions/{ideaID}", h.HandleSuggestionAccept)

	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())
	}

	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServerFS(staticSub)))

	return r, nil
}

// securityHeaders adds security-related HTTP headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Security-Policy", "default-src 'self'; script-src 'self'; style-src 'self'")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		next.ServeHTTP(w, r)
	})
}

// Run starts the HTTP server and handles graceful shutdown on SIGINT/SIGTERM.
func Run(srv *http.Server, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	logger.Info("sift UI running", "url", "http://"+srv.Addr)

	if strings.Contains(srv.Addr, "0.0.0.0") || strings.Contains(srv.Addr, "::") {
		logger.Warn("server is binding to all interfaces and may be accessible from the network")
	}

	select {
	case err := <-errCh:
		return err
	case <-sigCh:
		logger.Info("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	}
}
