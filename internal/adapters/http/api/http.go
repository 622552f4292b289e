// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"

	"golang.org/x/time/rate"

	"github.com/matthigger/oh-sched-web/internal/adapters/http/site"
	"github.com/matthigger/oh-sched-web/internal/app"
	"github.com/matthigger/oh-sched-web/pkg/logger"
)

// Runner executes one scheduling request. Using an interface keeps the
// handler layer loosely coupled to the app package implementation.
type Runner interface {
	Run(ctx context.Context, in app.Input) app.Result
}

// Server wires HTTP routes for the scheduler front-end.
type Server struct {
	runner         Runner
	outputRoot     string
	usageFile      string
	maxUploadBytes int64
	limiter        *rate.Limiter
	logger         logger.Logger

	healthHandler *HealthHandler
}

// NewServer creates a new API server around runner.
func NewServer(runner Runner, opts ...Option) *Server {
	s := &Server{
		runner:         runner,
		outputRoot:     "outputs",
		usageFile:      "usage.csv",
		maxUploadBytes: defaultMaxUploadBytes,
		limiter:        rate.NewLimiter(rate.Limit(defaultRunRate), defaultRunBurst),
		logger:         logger.Nop(),
		healthHandler:  NewHealthHandler(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	site.Register(ctx, mux)

	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /metrics", MetricsMiddleware(s.healthHandler.HandleMetrics, "metrics"))
	mux.HandleFunc("GET /{$}", MetricsMiddleware(s.HandleIndex, "index"))
	mux.HandleFunc("POST /{$}", MetricsMiddleware(RateLimitMiddleware(s.limiter, s.HandleRun), "run"))
	mux.HandleFunc("GET /download/{name}", MetricsMiddleware(s.HandleDownload, "download"))
	mux.HandleFunc("GET /download/{run}/{name}", MetricsMiddleware(s.HandleRunDownload, "download_run"))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// render executes a page template before writing anything so template
// failures still produce a clean 500.
func (s *Server) render(ctx context.Context, w http.ResponseWriter, status int, name string, data any) {
	var buf bytes.Buffer
	if err := pages.ExecuteTemplate(&buf, name, data); err != nil {
		s.logger.Error(ctx, "render page failed", logger.String("template", name), logger.Error(wrapKind("render", ErrRender, err)))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
