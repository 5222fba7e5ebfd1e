// Package api exposes reports over a read-only HTTP interface.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/sanspareilsmyn/mongolens/internal/aggregator"
	"github.com/sanspareilsmyn/mongolens/internal/config"
	"github.com/sanspareilsmyn/mongolens/internal/inspect"
	"github.com/sanspareilsmyn/mongolens/internal/session"
)

const (
	requestTimeout  = 60 * time.Second
	shutdownTimeout = 10 * time.Second
)

// Deps are the components the handlers read from.
type Deps struct {
	Session    *session.Session
	Aggregator *aggregator.Aggregator
	Inspector  *inspect.Inspector
	Options    aggregator.Options
}

// Server serves reports over HTTP.
type Server struct {
	cfg    config.HTTPConfig
	deps   Deps
	router *chi.Mux
	logger *zap.Logger
}

// New creates a Server with every route registered.
func New(cfg config.HTTPConfig, deps Deps, logger *zap.Logger) *Server {
	s := &Server{
		cfg:    cfg,
		deps:   deps,
		router: chi.NewRouter(),
		logger: logger.Named("api"),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.requestLogger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(requestTimeout))
}

func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)
	s.router.Handle("/metrics", promhttp.Handler())

	s.router.Get("/statistics", s.handleStatistics)
	s.router.Get("/database", s.handleDatabase)
	s.router.Get("/storage", s.handleStorage)
	s.router.Get("/server", s.handleServer)
	s.router.Get("/analysis", s.handleAnalysis)
	s.router.Get("/changes", s.handleChanges)

	s.router.Route("/collections", func(r chi.Router) {
		r.Get("/", s.handleCollections)
		r.Route("/{name}", func(r chi.Router) {
			r.Get("/statistics", s.handleCollectionStatistics)
			r.Get("/fields/{field}", s.handleFieldStatistics)
			r.Get("/cross", s.handleCrossStatistics)
			r.Get("/types", s.handleFieldTypes)
			r.Get("/distribution", s.handleDistribution)
		})
	})
}

// requestLogger logs every request through zap.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("Request served",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

// Run listens on the configured address until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Address,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", zap.String("address", s.cfg.Address))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("%w: %w", ErrServerFailed, err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("%w: %w", ErrServerFailed, err)
	}
	return nil
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		s.logger.Error("Failed to encode response", zap.Error(err))
		http.Error(w, `{"error":"encoding failed"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Warn("Request failed",
			zap.String("path", r.URL.Path),
			zap.Int("status", status),
			zap.Error(err),
		)
	}
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Session.Ping(r.Context()); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"session": s.deps.Session.ID.String(),
	})
}

func (s *Server) handleStatistics(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := aggregator.Request{
		Collections: splitList(q.Get("collections")),
		DocumentID:  q.Get("document"),
		CrossFields: [2]string{q.Get("fieldA"), q.Get("fieldB")},
		Options:     s.deps.Options,
	}
	if fields := splitList(q.Get("fields")); len(fields) > 0 {
		req.Options.Fields = fields
	}

	results, err := s.deps.Aggregator.Statistics(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, results)
}

func (s *Server) handleCollectionStatistics(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	req := aggregator.Request{
		Collections: []string{name},
		DocumentID:  r.URL.Query().Get("document"),
		Options:     s.deps.Options,
	}

	results, err := s.deps.Aggregator.Statistics(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	res := results[name]
	if res.Err != nil {
		s.writeError(w, r, res.Err)
		return
	}
	s.writeJSON(w, http.StatusOK, res.Report)
}

func (s *Server) handleFieldStatistics(w http.ResponseWriter, r *http.Request) {
	report, err := s.deps.Aggregator.FieldStatistics(r.Context(), chi.URLParam(r, "name"), chi.URLParam(r, "field"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleCrossStatistics(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	fieldA, fieldB := q.Get("fieldA"), q.Get("fieldB")
	if fieldA == "" || fieldB == "" {
		s.writeError(w, r, fmt.Errorf("%w: fieldA and fieldB are required", ErrMissingParameter))
		return
	}

	report, err := s.deps.Aggregator.CrossFieldStatistics(r.Context(), chi.URLParam(r, "name"), fieldA, fieldB)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleCollections(w http.ResponseWriter, r *http.Request) {
	infos, err := s.deps.Inspector.Collections(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, infos)
}

func (s *Server) handleFieldTypes(w http.ResponseWriter, r *http.Request) {
	report, err := s.deps.Inspector.FieldTypes(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleDistribution(w http.ResponseWriter, r *http.Request) {
	report, err := s.deps.Inspector.Distribution(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleDatabase(w http.ResponseWriter, r *http.Request) {
	info, err := s.deps.Inspector.DatabaseInfo(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, info)
}

func (s *Server) handleStorage(w http.ResponseWriter, r *http.Request) {
	report, err := s.deps.Inspector.StorageAnalysis(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleServer(w http.ResponseWriter, r *http.Request) {
	status, err := s.deps.Inspector.ServerStatus(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleAnalysis(w http.ResponseWriter, r *http.Request) {
	report, err := s.deps.Inspector.Complete(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleChanges(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.deps.Session.Changes().Snapshot())
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
