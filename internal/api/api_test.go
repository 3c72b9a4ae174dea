package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"testing"

	"github.com/paulmach/orb"
	orbgeo "github.com/paulmach/orb/geo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"

	"github.com/sells-group/proximity-cli/internal/analysis"
	"github.com/sells-group/proximity-cli/internal/model"
	"github.com/sells-group/proximity-cli/internal/projects"
	"github.com/sells-group/proximity-cli/internal/store"
)

var center = orb.Point{-99.1332, 19.4326}

type sourceFunc func(ctx context.Context) (*projects.Registry, error)

func (f sourceFunc) Load(ctx context.Context) (*projects.Registry, error) { return f(ctx) }

func plant(km float64, props model.Properties) model.Feature {
	p := orbgeo.PointAtBearingAndDistance(center, 45, km*1000)
	return model.Feature{
		Geometry:   geom.NewPoint(geom.XY).MustSetCoords(geom.Coord{p[0], p[1]}),
		Properties: props,
	}
}

func testDatasets() analysis.Datasets {
	return analysis.Datasets{
		model.CategoryPlants: {Features: []model.Feature{
			plant(3, model.Properties{"Razón_social": "Central Norte", "Capacidad_operacion_MW": 100.0}),
			plant(30, model.Properties{"Razón_social": "Central Lejana", "Capacidad_autorizada_MW": 50.0}),
		}},
	}
}

func testRegistry() *projects.Registry {
	reg := projects.NewRegistry()
	reg.AddSheet(projects.SheetGeneration, []string{projects.ColProjectName, projects.ColLatitude, projects.ColLongitude}, []projects.Project{
		{Sheet: projects.SheetGeneration, Row: 2, Fields: map[string]string{
			projects.ColProjectName:  "Parque Solar Tepeyac",
			projects.ColLatitude:     "19.4326",
			projects.ColLongitude:    "-99.1332°",
			projects.ColTechnology:   "Solar",
			projects.ColPermitStatus: "Permiso otorgado",
		}},
		{Sheet: projects.SheetGeneration, Row: 3, Fields: map[string]string{
			projects.ColProjectName: "Sin Coordenadas",
		}},
	})
	return reg
}

func newTestServer(t *testing.T, opts Options) *httptest.Server {
	t.Helper()
	if opts.Datasets == nil {
		opts.Datasets = testDatasets()
	}
	srv := httptest.NewServer(New(opts).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func withRegistry() Options {
	reg := testRegistry()
	return Options{Projects: sourceFunc(func(context.Context) (*projects.Registry, error) { return reg, nil })}
}

func getJSON(t *testing.T, rawURL string, v any) int {
	t.Helper()
	resp, err := http.Get(rawURL)
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck
	if v != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
	}
	return resp.StatusCode
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, Options{})

	var body struct {
		Status   string                 `json:"status"`
		Features map[model.Category]int `json:"features"`
	}
	assert.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/health", &body))
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, 2, body.Features[model.CategoryPlants])
	assert.Equal(t, 0, body.Features[model.CategoryADVC])
}

func TestAnalysis(t *testing.T) {
	srv := newTestServer(t, Options{})

	var body bundleResponse
	status := getJSON(t, srv.URL+"/v1/analysis?lon=-99.1332&lat=19.4326&radius_km=10", &body)
	require.Equal(t, http.StatusOK, status)

	assert.InDelta(t, 10.0, body.RadiusKM, 1e-9)
	assert.Equal(t, 1, body.Total)
	assert.Equal(t, 1, body.Counts[model.CategoryPlants])
	require.Len(t, body.Results[model.CategoryPlants], 1)
	assert.Equal(t, "Central Norte", body.Results[model.CategoryPlants][0].Name)
	assert.InDelta(t, 3.0, body.Results[model.CategoryPlants][0].DistanceKM, 0.01)
	assert.NotNil(t, body.Results[model.CategoryRamsar])
	assert.Empty(t, body.RunID)

	var buffer struct {
		Type        string        `json:"type"`
		Coordinates [][][]float64 `json:"coordinates"`
	}
	require.NoError(t, json.Unmarshal(body.Buffer, &buffer))
	assert.Equal(t, "Polygon", buffer.Type)
	require.Len(t, buffer.Coordinates, 1)
	assert.Len(t, buffer.Coordinates[0], 65)
}

func TestAnalysis_DefaultRadius(t *testing.T) {
	srv := newTestServer(t, Options{RadiusKM: 50})

	var body bundleResponse
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/v1/analysis?lon=-99.1332&lat=19.4326", &body))
	assert.InDelta(t, 50.0, body.RadiusKM, 1e-9)
	assert.Equal(t, 2, body.Counts[model.CategoryPlants])
}

func TestAnalysis_BadParams(t *testing.T) {
	srv := newTestServer(t, Options{})

	tests := []struct {
		name  string
		query string
		want  string
	}{
		{"missing lon", "lat=19", "lon is required"},
		{"bad lat", "lon=-99&lat=norte", "lat must be a number"},
		{"lat out of range", "lon=-99&lat=91", "lat is out of range"},
		{"zero radius", "lon=-99&lat=19&radius_km=0", "radius_km"},
		{"infinite radius", "lon=-99&lat=19&radius_km=Inf", "radius_km"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body errorResponse
			assert.Equal(t, http.StatusBadRequest, getJSON(t, srv.URL+"/v1/analysis?"+tt.query, &body))
			assert.Contains(t, body.Error, tt.want)
		})
	}
}

func TestAnalysis_Record(t *testing.T) {
	srv := newTestServer(t, Options{Store: newRunStore(t)})

	var body bundleResponse
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/v1/analysis?lon=-99.1332&lat=19.4326&radius_km=10&name=Prueba&record=true", &body))
	require.NotEmpty(t, body.RunID)

	var runs struct {
		Runs []model.AnalysisRun `json:"runs"`
	}
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/v1/runs?subject=prueba", &runs))
	require.Len(t, runs.Runs, 1)
	assert.Equal(t, body.RunID, runs.Runs[0].ID)

	var run model.AnalysisRun
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/v1/runs/"+body.RunID, &run))
	assert.Equal(t, 1, run.Counts[model.CategoryPlants])
	require.Len(t, run.Results[model.CategoryPlants], 1)

	var missing errorResponse
	assert.Equal(t, http.StatusNotFound, getJSON(t, srv.URL+"/v1/runs/nope", &missing))
}

func newRunStore(t *testing.T) store.Store {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func TestRuns_Paging(t *testing.T) {
	srv := newTestServer(t, Options{Store: newRunStore(t)})

	recorded := make(map[string]bool)
	for range 3 {
		var body bundleResponse
		require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/v1/analysis?lon=-99.1332&lat=19.4326&name=Prueba&record=true", &body))
		require.NotEmpty(t, body.RunID)
		recorded[body.RunID] = true
	}

	seen := make(map[string]bool)
	for offset := range 3 {
		var page struct {
			Runs []model.AnalysisRun `json:"runs"`
		}
		u := fmt.Sprintf("%s/v1/runs?subject=prueba&limit=1&offset=%d", srv.URL, offset)
		require.Equal(t, http.StatusOK, getJSON(t, u, &page))
		require.Len(t, page.Runs, 1)
		assert.False(t, seen[page.Runs[0].ID], "offset %d repeated a run", offset)
		seen[page.Runs[0].ID] = true
	}
	assert.Equal(t, recorded, seen)

	var past struct {
		Runs []model.AnalysisRun `json:"runs"`
	}
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/v1/runs?limit=1&offset=3", &past))
	assert.Empty(t, past.Runs)
}

func TestRuns_BadOffset(t *testing.T) {
	srv := newTestServer(t, Options{Store: newRunStore(t)})

	for _, raw := range []string{"-1", "abc"} {
		var body errorResponse
		assert.Equal(t, http.StatusBadRequest, getJSON(t, srv.URL+"/v1/runs?offset="+raw, &body), raw)
		assert.Contains(t, body.Error, "offset")
	}
}

func TestRuns_NoStore(t *testing.T) {
	srv := newTestServer(t, Options{})
	assert.Equal(t, http.StatusServiceUnavailable, getJSON(t, srv.URL+"/v1/runs", nil))
}

func TestAnalysis_RecordWithoutStore(t *testing.T) {
	srv := newTestServer(t, withRegistry())

	var body errorResponse
	assert.Equal(t, http.StatusServiceUnavailable,
		getJSON(t, srv.URL+"/v1/analysis?lon=-99.1332&lat=19.4326&record=true", &body))
	assert.Contains(t, body.Error, "run log")

	assert.Equal(t, http.StatusServiceUnavailable,
		getJSON(t, srv.URL+"/v1/projects/"+url.PathEscape("Parque Solar Tepeyac")+"/analysis?record=true", nil))

	assert.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/v1/analysis?lon=-99.1332&lat=19.4326", nil))
}

func TestProjects(t *testing.T) {
	srv := newTestServer(t, withRegistry())

	var body struct {
		Total    int              `json:"total"`
		Projects []projectSummary `json:"projects"`
	}
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/v1/projects", &body))
	assert.Equal(t, 2, body.Total)
	require.Len(t, body.Projects, 2)
	assert.Equal(t, "Parque Solar Tepeyac", body.Projects[0].Name)
	assert.Equal(t, "Solar", body.Projects[0].Kind)

	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/v1/projects?q=tepeyac", &body))
	assert.Equal(t, 1, body.Total)

	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/v1/projects?limit=1", &body))
	assert.Equal(t, 2, body.Total)
	assert.Len(t, body.Projects, 1)
}

func TestProject_Detail(t *testing.T) {
	srv := newTestServer(t, withRegistry())

	var body projectDetail
	status := getJSON(t, srv.URL+"/v1/projects/"+url.PathEscape("parque solar TEPEYAC"), &body)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Parque Solar Tepeyac", body.Name)
	require.Len(t, body.Stages, 4)
	assert.Equal(t, projects.StatusGreen, body.Stages[2].Status)

	var missing errorResponse
	assert.Equal(t, http.StatusNotFound, getJSON(t, srv.URL+"/v1/projects/Inexistente", &missing))
	assert.Contains(t, missing.Error, "project not found")
}

func TestProject_AnalysisAndScan(t *testing.T) {
	srv := newTestServer(t, withRegistry())
	name := url.PathEscape("Parque Solar Tepeyac")

	var bundle bundleResponse
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/v1/projects/"+name+"/analysis?radius_km=10", &bundle))
	assert.Equal(t, "Parque Solar Tepeyac", bundle.Subject.Name)
	assert.Equal(t, 1, bundle.Counts[model.CategoryPlants])

	var scan analysis.ScanSummary
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/v1/projects/"+name+"/scan", &scan))
	assert.InDelta(t, analysis.DefaultScanRadiusKM, scan.RadiusKM, 1e-9)
	assert.Equal(t, 2, scan.Count)
	assert.InDelta(t, 150.0, scan.CapacityMW, 1e-9)

	var bad errorResponse
	assert.Equal(t, http.StatusUnprocessableEntity,
		getJSON(t, srv.URL+"/v1/projects/"+url.PathEscape("Sin Coordenadas")+"/analysis", &bad))
}

func TestProjects_RegistryErrors(t *testing.T) {
	srv := newTestServer(t, Options{})
	assert.Equal(t, http.StatusServiceUnavailable, getJSON(t, srv.URL+"/v1/projects", nil))

	calls := 0
	reg := testRegistry()
	flaky := sourceFunc(func(context.Context) (*projects.Registry, error) {
		calls++
		if calls == 1 {
			return nil, errors.New("sheet unavailable")
		}
		return reg, nil
	})
	srv = newTestServer(t, Options{Projects: flaky})

	var body errorResponse
	assert.Equal(t, http.StatusBadGateway, getJSON(t, srv.URL+"/v1/projects", &body))
	assert.Contains(t, body.Error, "sheet unavailable")

	assert.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/v1/projects", nil))
	assert.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/v1/projects", nil))
	assert.Equal(t, 2, calls)
}

func TestCORSPreflight(t *testing.T) {
	srv := newTestServer(t, Options{})

	req, err := http.NewRequest(http.MethodOptions, srv.URL+"/v1/analysis", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://tablero.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}
