package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/sells-group/proximity-cli/internal/analysis"
	"github.com/sells-group/proximity-cli/internal/dataset"
	"github.com/sells-group/proximity-cli/internal/model"
	"github.com/sells-group/proximity-cli/internal/projects"
	"github.com/sells-group/proximity-cli/internal/store"
)

type bundleResponse struct {
	Subject  model.Subject                              `json:"subject"`
	RadiusKM float64                                    `json:"radius_km"`
	Total    int                                        `json:"total"`
	Counts   map[model.Category]int                     `json:"counts"`
	Results  map[model.Category][]model.ProximityResult `json:"results"`
	Buffer   json.RawMessage                            `json:"buffer,omitempty"`
	RunID    string                                     `json:"run_id,omitempty"`
}

type projectSummary struct {
	Name  string         `json:"name"`
	Sheet string         `json:"sheet"`
	Row   int            `json:"row"`
	Kind  string         `json:"kind"`
	Phase projects.Phase `json:"phase"`
}

type projectDetail struct {
	projectSummary
	Fields map[string]string `json:"fields"`
	Stages []projects.Stage  `json:"stages"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func newBundleResponse(b *model.ResultBundle, runID string) bundleResponse {
	resp := bundleResponse{
		Subject:  b.Subject,
		RadiusKM: b.RadiusKM,
		Total:    b.Total(),
		Counts:   b.Counts,
		Results:  b.Results,
		RunID:    runID,
	}
	if b.Buffer != nil {
		raw, err := dataset.EncodeGeometry(b.Buffer)
		if err != nil {
			zap.L().Warn("api: encode buffer", zap.Error(err))
		} else {
			resp.Buffer = raw
		}
	}
	return resp
}

func summarize(p projects.Project) projectSummary {
	return projectSummary{Name: p.Name(), Sheet: p.Sheet, Row: p.Row, Kind: p.Kind(), Phase: p.Phase()}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	features := make(map[model.Category]int, len(model.Categories))
	for _, c := range model.Categories {
		features[c] = s.opts.Datasets.Get(c).Len()
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "features": features})
}

func (s *Server) handleAnalysis(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	lon, err := coordinateParam(q, "lon", 180)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	lat, err := coordinateParam(q, "lat", 90)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	radius, err := radiusParam(q, s.opts.RadiusKM)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	record, ok := s.recordOrError(w, q)
	if !ok {
		return
	}

	subject := model.Subject{
		Name:     strings.TrimSpace(q.Get("name")),
		Lon:      lon,
		Lat:      lat,
		Permit:   strings.TrimSpace(q.Get("permit")),
		Operator: strings.TrimSpace(q.Get("operator")),
	}
	bundle, runID := s.analyze(r.Context(), subject, radius, record)
	writeJSON(w, http.StatusOK, newBundleResponse(bundle, runID))
}

func (s *Server) handleProjects(w http.ResponseWriter, r *http.Request) {
	reg, ok := s.registryOrError(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	limit, err := intParam(q, "limit", s.opts.ListLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	matches := reg.Search(q.Get("q"), q.Get("sheet"))
	out := make([]projectSummary, 0, min(len(matches), limit))
	for _, p := range matches {
		if len(out) == limit {
			break
		}
		out = append(out, summarize(p))
	}
	writeJSON(w, http.StatusOK, map[string]any{"total": len(matches), "projects": out})
}

func (s *Server) handleProject(w http.ResponseWriter, r *http.Request) {
	p, ok := s.projectOrError(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, projectDetail{
		projectSummary: summarize(p),
		Fields:         p.Fields,
		Stages:         projects.Stages(p),
	})
}

func (s *Server) handleProjectAnalysis(w http.ResponseWriter, r *http.Request) {
	p, ok := s.projectOrError(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	radius, err := radiusParam(q, s.opts.RadiusKM)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	record, ok := s.recordOrError(w, q)
	if !ok {
		return
	}
	subject, err := p.Subject()
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	bundle, runID := s.analyze(r.Context(), subject, radius, record)
	writeJSON(w, http.StatusOK, newBundleResponse(bundle, runID))
}

func (s *Server) handleProjectScan(w http.ResponseWriter, r *http.Request) {
	p, ok := s.projectOrError(w, r)
	if !ok {
		return
	}
	radius, err := radiusParam(r.URL.Query(), s.opts.ScanRadiusKM)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	subject, err := p.Subject()
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	writeJSON(w, http.StatusOK, analysis.QuickScan(subject, radius, s.opts.Datasets.Get(model.CategoryPlants)))
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if s.opts.Store == nil {
		writeError(w, http.StatusServiceUnavailable, errors.New("run log not configured"))
		return
	}
	q := r.URL.Query()
	limit, err := intParam(q, "limit", s.opts.ListLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	offset, err := offsetParam(q)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	filter := store.RunFilter{Subject: q.Get("subject"), Limit: limit, Offset: offset}
	runs, err := s.opts.Store.ListRuns(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	if s.opts.Store == nil {
		writeError(w, http.StatusServiceUnavailable, errors.New("run log not configured"))
		return
	}
	run, err := s.opts.Store.GetRun(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, err)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// recordOrError reads the record flag. Recording without a run log is 503.
func (s *Server) recordOrError(w http.ResponseWriter, q url.Values) (bool, bool) {
	record := boolParam(q, "record")
	if record && s.opts.Store == nil {
		writeError(w, http.StatusServiceUnavailable, errors.New("run log not configured"))
		return false, false
	}
	return record, true
}

func (s *Server) registryOrError(w http.ResponseWriter, r *http.Request) (*projects.Registry, bool) {
	if s.opts.Projects == nil {
		writeError(w, http.StatusServiceUnavailable, errors.New("project registry not configured"))
		return nil, false
	}
	reg, err := s.projectRegistry(r.Context())
	if err != nil {
		zap.L().Warn("api: load project registry", zap.Error(err))
		writeError(w, http.StatusBadGateway, err)
		return nil, false
	}
	return reg, true
}

func (s *Server) projectOrError(w http.ResponseWriter, r *http.Request) (projects.Project, bool) {
	reg, ok := s.registryOrError(w, r)
	if !ok {
		return projects.Project{}, false
	}
	name := chi.URLParam(r, "name")
	if decoded, err := url.PathUnescape(name); err == nil {
		name = decoded
	}
	p, found := reg.Find(name)
	if !found {
		writeError(w, http.StatusNotFound, errors.New("project not found: "+name))
		return projects.Project{}, false
	}
	return p, true
}

func coordinateParam(q url.Values, key string, limit float64) (float64, error) {
	raw := strings.TrimSpace(q.Get(key))
	if raw == "" {
		return 0, errors.New(key + " is required")
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, errors.New(key + " must be a number")
	}
	if v < -limit || v > limit {
		return 0, errors.New(key + " is out of range")
	}
	return v, nil
}

func radiusParam(q url.Values, def float64) (float64, error) {
	raw := strings.TrimSpace(q.Get("radius_km"))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || !analysis.ValidRadius(v) {
		return 0, errors.New("radius_km must be a positive number")
	}
	return v, nil
}

func intParam(q url.Values, key string, def int) (int, error) {
	raw := strings.TrimSpace(q.Get(key))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return 0, errors.New(key + " must be a positive integer")
	}
	return v, nil
}

func offsetParam(q url.Values) (int, error) {
	raw := strings.TrimSpace(q.Get("offset"))
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, errors.New("offset must be a non-negative integer")
	}
	return v, nil
}

func boolParam(q url.Values, key string) bool {
	v, _ := strconv.ParseBool(q.Get(key))
	return v
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Debug("api: write response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}
