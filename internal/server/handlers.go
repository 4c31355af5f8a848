package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/hyperjump/cohort/internal/config"
	"github.com/hyperjump/cohort/internal/models"
	"github.com/hyperjump/cohort/internal/schema"
	"github.com/hyperjump/cohort/internal/search"
	"github.com/hyperjump/cohort/internal/storage"
	"go.uber.org/zap"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type schemaField struct {
	Name       string   `json:"name"`
	Kind       string   `json:"kind"`
	Domain     []string `json:"domain,omitempty"`
	Min        *int     `json:"min,omitempty"`
	Max        *int     `json:"max,omitempty"`
	AllowEmpty bool     `json:"allow_empty,omitempty"`
	Offset     int      `json:"offset"`
	Width      int      `json:"width"`
}

func (s *Server) handleSchema(w http.ResponseWriter, r *http.Request) {
	sc := s.analyzer.Schema()
	fields := make([]schemaField, len(sc.Fields))
	for i, f := range sc.Fields {
		offset, _ := sc.Offset(f.Name)
		fields[i] = schemaField{
			Name:       f.Name,
			Kind:       string(f.Kind),
			Domain:     f.Domain,
			AllowEmpty: f.AllowEmpty,
			Offset:     offset,
			Width:      f.Width(),
		}
		if f.Kind == schema.KindOrdinal {
			lo, hi := f.Min, f.Max
			fields[i].Min, fields[i].Max = &lo, &hi
		}
	}
	s.respondJSON(w, http.StatusOK, map[string]any{
		"version": sc.Version,
		"length":  sc.Length(),
		"fields":  fields,
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	count, err := s.storage.CountProfiles(ctx)
	if err != nil {
		s.logger.Error("status: count profiles failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	sc := s.analyzer.Schema()
	resp := map[string]any{
		"profiles":          count,
		"vector_index_size": s.search.VectorIndexSize(),
		"schema_version":    sc.Version,
		"vector_length":     sc.Length(),
	}
	if s.keyword != nil {
		if n, err := s.keyword.DocCount(); err == nil {
			resp["keyword_index_size"] = n
		}
	}
	if s.config != nil {
		st := s.config.Storage
		resp["config"] = map[string]any{
			"database_path":      st.DatabasePath,
			"bleve_index_path":   st.BleveIndexPath,
			"vector_index_path":  st.VectorIndexPath,
			"distance_threshold": s.config.Cluster.DistanceThreshold,
			"projection_seed":    s.config.Projection.Seed,
			"dimensions":         s.config.Projection.Dimensions,
		}
		if usage, err := storage.DiskUsage(st.DatabasePath, st.BleveIndexPath, st.VectorIndexPath); err == nil {
			resp["disk_usage_bytes"] = usage.Total
		}
	}
	if s.watch != nil {
		resp["watch_directories"] = s.watch.Directories()
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListProfiles(w http.ResponseWriter, r *http.Request) {
	offset, limit, ok := s.paging(w, r)
	if !ok {
		return
	}
	profiles, err := s.storage.ListProfiles(r.Context(), offset, limit)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	total, err := s.storage.CountProfiles(r.Context())
	if err != nil {
		s.respondErr(w, err)
		return
	}
	if profiles == nil {
		profiles = []*models.Profile{}
	}
	s.respondJSON(w, http.StatusOK, map[string]any{
		"profiles": profiles,
		"total":    total,
		"offset":   offset,
		"limit":    limit,
	})
}

// paging reads offset and limit query parameters, applying configured limits.
func (s *Server) paging(w http.ResponseWriter, r *http.Request) (offset, limit int, ok bool) {
	limit = 10
	maxLimit := 0
	if s.config != nil {
		limit = s.config.Search.DefaultLimit
		maxLimit = s.config.Search.MaxLimit
	}
	q := r.URL.Query()
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.respondError(w, http.StatusBadRequest, "invalid offset")
			return 0, 0, false
		}
		offset = n
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			s.respondError(w, http.StatusBadRequest, "invalid limit")
			return 0, 0, false
		}
		limit = n
	}
	if maxLimit > 0 && limit > maxLimit {
		limit = maxLimit
	}
	return offset, limit, true
}

func (s *Server) handleCreateProfile(w http.ResponseWriter, r *http.Request) {
	var input models.ProfileInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.logger.Debug("create profile request", zap.String("id", input.ID), zap.String("label", input.Label))
	if input.ID != "" {
		if _, err := s.storage.GetProfile(r.Context(), input.ID); err == nil {
			s.respondError(w, http.StatusConflict, "profile already exists")
			return
		}
	}
	s.storeProfile(w, r, &input, http.StatusCreated)
}

func (s *Server) handleReplaceProfile(w http.ResponseWriter, r *http.Request) {
	var input models.ProfileInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	input.ID = chi.URLParam(r, "id")
	s.logger.Debug("replace profile request", zap.String("id", input.ID))
	s.storeProfile(w, r, &input, http.StatusOK)
}

func (s *Server) storeProfile(w http.ResponseWriter, r *http.Request, input *models.ProfileInput, status int) {
	p, err := s.indexer.IndexProfile(r.Context(), input)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondJSON(w, status, p)
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	p, err := s.storage.GetProfile(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, p)
}

func (s *Server) handleDeleteProfile(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.logger.Debug("delete profile request", zap.String("id", id))
	if err := s.indexer.DeleteProfile(r.Context(), id); err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"id": id, "status": "deleted"})
}

func (s *Server) handleSimilar(w http.ResponseWriter, r *http.Request) {
	k := 0
	if v := r.URL.Query().Get("k"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			s.respondError(w, http.StatusBadRequest, "invalid k")
			return
		}
		k = n
	}
	matches, err := s.search.Similar(r.Context(), chi.URLParam(r, "id"), k)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	if matches == nil {
		matches = []*models.Match{}
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"matches": matches})
}

func (s *Server) handleWatchDirectoriesList(w http.ResponseWriter, r *http.Request) {
	if s.watch == nil {
		s.respondError(w, http.StatusNotImplemented, "watch not enabled")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"directories": s.watch.Directories()})
}

type watchAddRequest struct {
	Path string `json:"path"`
	Sync *bool  `json:"sync,omitempty"`
}

func (s *Server) handleWatchDirectoriesAdd(w http.ResponseWriter, r *http.Request) {
	if s.watch == nil {
		s.respondError(w, http.StatusNotImplemented, "watch not enabled")
		return
	}
	var req watchAddRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Path == "" {
		s.respondError(w, http.StatusBadRequest, "path is required")
		return
	}
	abs, err := filepath.Abs(req.Path)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid path")
		return
	}
	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			s.respondError(w, http.StatusNotFound, "directory not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !info.IsDir() {
		s.respondError(w, http.StatusBadRequest, "path is not a directory")
		return
	}
	syncExisting := true
	if req.Sync != nil {
		syncExisting = *req.Sync
	}
	s.logger.Debug("watch add directory request", zap.String("path", abs), zap.Bool("sync_existing", syncExisting))
	if err := s.watch.AddDirectory(abs, syncExisting); err != nil {
		s.logger.Error("watch add directory failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.persistWatchDirectories()
	s.respondJSON(w, http.StatusCreated, map[string]string{"path": abs, "status": "added"})
}

func (s *Server) handleWatchDirectoriesRemove(w http.ResponseWriter, r *http.Request) {
	if s.watch == nil {
		s.respondError(w, http.StatusNotImplemented, "watch not enabled")
		return
	}
	path := r.URL.Query().Get("path")
	if path == "" {
		var body struct {
			Path string `json:"path"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err == nil {
			path = body.Path
		}
	}
	if path == "" {
		s.respondError(w, http.StatusBadRequest, "path is required (query or body)")
		return
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid path")
		return
	}
	s.logger.Debug("watch remove directory request", zap.String("path", abs))
	if err := s.watch.RemoveDirectory(abs); err != nil {
		s.logger.Error("watch remove directory failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.persistWatchDirectories()
	s.respondJSON(w, http.StatusOK, map[string]string{"path": abs, "status": "removed"})
}

// persistWatchDirectories writes the current watch list back to the config file.
func (s *Server) persistWatchDirectories() {
	if s.configPath == "" || s.config == nil {
		return
	}
	s.configMu.Lock()
	defer s.configMu.Unlock()
	s.config.Watch.Directories = s.watch.Directories()
	if err := config.Save(s.configPath, s.config); err != nil {
		s.logger.Warn("failed to persist watch config", zap.Error(err))
	}
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}

// respondErr maps domain errors to status codes. Encoding failures carry the
// offending field.
func (s *Server) respondErr(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", zap.Error(err))
	}
	body := map[string]any{"error": err.Error()}
	var fe *models.FieldError
	if errors.As(err, &fe) {
		body["profile_id"] = fe.ProfileID
		body["field"] = fe.Field
		body["kind"] = fe.Kind.Error()
	}
	s.respondJSON(w, status, body)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrSchemaViolation),
		errors.Is(err, models.ErrDomainViolation),
		errors.Is(err, models.ErrRangeViolation),
		errors.Is(err, models.ErrShapeMismatch),
		errors.Is(err, models.ErrSchemaMismatch),
		errors.Is(err, models.ErrEmptyInput),
		errors.Is(err, models.ErrInvalidThreshold),
		errors.Is(err, models.ErrSeedRequired),
		errors.Is(err, search.ErrEmptyQuery):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
