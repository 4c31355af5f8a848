package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/hyperjump/cohort/internal/models"
	"github.com/hyperjump/cohort/internal/pipeline"
	"github.com/hyperjump/cohort/internal/search"
	"go.uber.org/zap"
)

// analyzeRequest selects the profiles and stages of one analysis. Profiles are
// analyzed inline when given; otherwise ProfileIDs are loaded from the store,
// or every stored profile when ProfileIDs is empty. Unset knobs come from config.
type analyzeRequest struct {
	Profiles    []*models.ProfileInput `json:"profiles,omitempty"`
	ProfileIDs  []string               `json:"profile_ids,omitempty"`
	Cluster     *bool                  `json:"cluster,omitempty"`
	Threshold   *float64               `json:"threshold,omitempty"`
	Project     *bool                  `json:"project,omitempty"`
	Dimensions  int                    `json:"dimensions,omitempty"`
	Seed        *uint64                `json:"seed,omitempty"`
	NInit       int                    `json:"n_init,omitempty"`
	MaxIter     int                    `json:"max_iter,omitempty"`
	Eps         float64                `json:"eps,omitempty"`
	SkipInvalid *bool                  `json:"skip_invalid,omitempty"`
}

func (s *Server) pipelineRequest(body *analyzeRequest) pipeline.Request {
	var req pipeline.Request
	if s.config != nil {
		req = pipeline.RequestFromConfig(s.config)
	} else {
		req = pipeline.Request{Cluster: true, Project: true}
	}
	if body.Cluster != nil {
		req.Cluster = *body.Cluster
	}
	if body.Threshold != nil {
		req.Threshold = body.Threshold
	}
	if body.Project != nil {
		req.Project = *body.Project
	}
	if body.Seed != nil {
		req.Projection.Seed = body.Seed
	}
	if body.Dimensions > 0 {
		req.Projection.Dimensions = body.Dimensions
	}
	if body.NInit > 0 {
		req.Projection.NInit = body.NInit
	}
	if body.MaxIter > 0 {
		req.Projection.MaxIter = body.MaxIter
	}
	if body.Eps > 0 {
		req.Projection.Eps = body.Eps
	}
	if body.SkipInvalid != nil {
		req.SkipInvalid = *body.SkipInvalid
	}
	return req
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var body analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	ctx := r.Context()

	var profiles []*models.Profile
	switch {
	case len(body.Profiles) > 0:
		profiles = make([]*models.Profile, len(body.Profiles))
		for i, in := range body.Profiles {
			id := in.ID
			if id == "" {
				id = fmt.Sprintf("profile-%d", i)
			}
			label := in.Label
			if label == "" {
				label = id
			}
			profiles[i] = &models.Profile{ID: id, Label: label, Fields: in.Fields}
		}
	case len(body.ProfileIDs) > 0:
		profiles = make([]*models.Profile, 0, len(body.ProfileIDs))
		for _, id := range body.ProfileIDs {
			p, err := s.storage.GetProfile(ctx, id)
			if err != nil {
				s.respondErr(w, err)
				return
			}
			profiles = append(profiles, p)
		}
	default:
		stored, err := s.storage.ListProfiles(ctx, 0, 0)
		if err != nil {
			s.respondErr(w, err)
			return
		}
		profiles = stored
	}

	req := s.pipelineRequest(&body)
	s.logger.Debug("analyze request",
		zap.Int("profiles", len(profiles)), zap.Bool("cluster", req.Cluster), zap.Bool("project", req.Project))
	analysis, err := s.analyzer.Run(ctx, profiles, req)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, analysis)
}

func (s *Server) handleSearchPost(w http.ResponseWriter, r *http.Request) {
	var q search.Query
	if err := json.NewDecoder(r.Body).Decode(&q); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.runSearch(w, r, &q)
}

func (s *Server) handleSearchGet(w http.ResponseWriter, r *http.Request) {
	v := r.URL.Query()
	q := search.Query{
		Text:  v.Get("q"),
		Like:  v.Get("like"),
		Fuzzy: v.Get("fuzzy") == "true" || v.Get("fuzzy") == "1",
	}
	for name, dst := range map[string]*int{"limit": &q.Limit, "offset": &q.Offset} {
		if raw := v.Get(name); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil {
				s.respondError(w, http.StatusBadRequest, "invalid "+name)
				return
			}
			*dst = n
		}
	}
	if raw := v.Get("min_score"); raw != "" {
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "invalid min_score")
			return
		}
		q.MinScore = f
	}
	s.runSearch(w, r, &q)
}

func (s *Server) runSearch(w http.ResponseWriter, r *http.Request, q *search.Query) {
	s.logger.Debug("search request", zap.String("text", q.Text), zap.String("like", q.Like), zap.Int("limit", q.Limit))
	resp, err := s.search.Search(r.Context(), q)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, resp)
}
