package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/JakeFAU/localnews/internal/id/uuid"
	"github.com/JakeFAU/localnews/internal/metrics"
	"github.com/JakeFAU/localnews/internal/news"
	"github.com/JakeFAU/localnews/internal/storage/memory"
)

// Paging defaults for /api/cities.
const (
	DefaultPage     = 0
	DefaultPageSize = 20
)

const requestTimeout = 60 * time.Second

// Server wires HTTP handlers to the article store and city catalog.
type Server struct {
	router  chi.Router
	store   news.ArticleStore
	catalog news.CityCatalog
	logger  *zap.Logger
	ready   atomic.Bool
}

// NewServer constructs a Server with middleware and routes. The server
// reports not-ready until SetReady(true) is called.
func NewServer(store news.ArticleStore, catalog news.CityCatalog, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		store:   store,
		catalog: catalog,
		logger:  logger.Named("api"),
	}
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(s.logger))
	r.Use(recoverMiddleware(s.logger))
	r.Use(metrics.Middleware)
	r.Use(timeoutMiddleware(requestTimeout))

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/cities", s.listCities)
		r.Route("/articles", func(r chi.Router) {
			r.Get("/", s.listArticles)
			r.Get("/global", s.topGlobal)
			r.Get("/local/{cityName}", s.topLocal)
		})
	})

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// SetReady flips the readiness probe.
func (s *Server) SetReady(ready bool) {
	s.ready.Store(ready)
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	if !s.ready.Load() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "ingesting"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) listCities(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := intParam(q.Get("page"), DefaultPage)
	if err != nil {
		writeError(w, http.StatusBadRequest, "page must be a non-negative integer")
		return
	}
	size, err := intParam(q.Get("size"), DefaultPageSize)
	if err != nil {
		writeError(w, http.StatusBadRequest, "size must be a non-negative integer")
		return
	}

	cities, err := s.catalog.FindByPrefix(r.Context(), q.Get("prefix"), page, size)
	if err != nil {
		if errors.Is(err, news.ErrInvalidPage) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.logger.Error("find cities failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to query cities")
		return
	}
	if cities == nil {
		cities = []news.City{}
	}
	writeJSON(w, http.StatusOK, cities)
}

func (s *Server) listArticles(w http.ResponseWriter, r *http.Request) {
	articles, err := s.store.All(r.Context())
	s.writeArticles(w, articles, err)
}

func (s *Server) topGlobal(w http.ResponseWriter, r *http.Request) {
	articles, err := s.store.TopGlobal(r.Context(), memory.DefaultGlobalLimit)
	s.writeArticles(w, articles, err)
}

func (s *Server) topLocal(w http.ResponseWriter, r *http.Request) {
	city := chi.URLParam(r, "cityName")
	articles, err := s.store.TopLocalForCity(r.Context(), city, memory.DefaultLocalLimit)
	s.writeArticles(w, articles, err)
}

func (s *Server) writeArticles(w http.ResponseWriter, articles []news.Article, err error) {
	if err != nil {
		s.logger.Error("read articles failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to read articles")
		return
	}
	if articles == nil {
		articles = []news.Article{}
	}
	writeJSON(w, http.StatusOK, articles)
}

// intParam parses an optional non-negative integer query value.
func intParam(raw string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("parse %q: %w", raw, err)
	}
	if n < 0 {
		return 0, news.ErrInvalidPage
	}
	return n, nil
}

type requestIDKey struct{}

// RequestID returns the id assigned to the request, if any.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func requestIDMiddleware(next http.Handler) http.Handler {
	ids := uuid.New()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get("X-Request-ID")
		if !uuid.Valid(reqID) {
			reqID = ids.NewID()
		}
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func loggingMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Info("request completed",
				zap.String("request_id", RequestID(r.Context())),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
			)
		})
	}
}

func recoverMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("panic recovered",
						zap.String("request_id", RequestID(r.Context())),
						zap.Any("panic", rec),
						zap.Stack("stack"),
					)
					writeError(w, http.StatusInternalServerError, "internal server error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

func timeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, "request timed out")
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
