// Package server provides the HTTP API for cohort.
package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hyperjump/cohort/internal/config"
	"github.com/hyperjump/cohort/internal/indexer"
	"github.com/hyperjump/cohort/internal/keyword"
	"github.com/hyperjump/cohort/internal/pipeline"
	"github.com/hyperjump/cohort/internal/search"
	"github.com/hyperjump/cohort/internal/storage"
	"go.uber.org/zap"
)

// WatchService manages watched import directories. It is satisfied by *watcher.Watcher.
type WatchService interface {
	Directories() []string
	AddDirectory(path string, syncExisting bool) error
	RemoveDirectory(path string) error
}

// Server is the HTTP server for the cohort API.
type Server struct {
	analyzer   *pipeline.Engine
	search     *search.Engine
	indexer    *indexer.Indexer
	storage    storage.Storage
	keyword    keyword.KeywordIndex
	config     *config.Config
	configPath string
	configMu   sync.Mutex
	watch      WatchService
	logger     *zap.Logger
	server     *http.Server
}

// Deps are the components a Server serves. Watch may be nil when no
// directories are watched; ConfigPath, when set, receives watch list changes.
type Deps struct {
	Analyzer   *pipeline.Engine
	Search     *search.Engine
	Indexer    *indexer.Indexer
	Storage    storage.Storage
	Keyword    keyword.KeywordIndex
	Config     *config.Config
	ConfigPath string
	Watch      WatchService
	Logger     *zap.Logger
}

// NewServer creates a server with the given dependencies.
func NewServer(d Deps) *Server {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		analyzer:   d.Analyzer,
		search:     d.Search,
		indexer:    d.Indexer,
		storage:    d.Storage,
		keyword:    d.Keyword,
		config:     d.Config,
		configPath: d.ConfigPath,
		watch:      d.Watch,
		logger:     logger,
	}
}

// Handler returns the API router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))

	r.Get("/health", s.handleHealth)
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Get("/schema", s.handleSchema)

		r.Get("/profiles", s.handleListProfiles)
		r.Post("/profiles", s.handleCreateProfile)
		r.Get("/profiles/{id}", s.handleGetProfile)
		r.Put("/profiles/{id}", s.handleReplaceProfile)
		r.Delete("/profiles/{id}", s.handleDeleteProfile)
		r.Get("/profiles/{id}/similar", s.handleSimilar)

		r.Post("/analyze", s.handleAnalyze)
		r.Get("/search", s.handleSearchGet)
		r.Post("/search", s.handleSearchPost)

		r.Get("/watch/directories", s.handleWatchDirectoriesList)
		r.Post("/watch/directories", s.handleWatchDirectoriesAdd)
		r.Delete("/watch/directories", s.handleWatchDirectoriesRemove)
	})
	return r
}

// requestLogger logs each request through zap at debug level.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())))
	})
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
