package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcom-dev/elevation-api/internal/config"
	"github.com/jcom-dev/elevation-api/internal/elevation"
	"github.com/jcom-dev/elevation-api/internal/provider"
)

const testIndexDoc = `{
  "schema_version": "1.0.0",
  "bounds_crs": {"AU": "EPSG:28356", "NZ": "EPSG:2193"},
  "data_collections": [
    {
      "id": "brisbane-2019",
      "country": "AU",
      "name": "Brisbane 2019 LiDAR",
      "survey_year": 2019,
      "resolution_m": 1.0,
      "native_crs": 4326,
      "bounds_wgs84": {"min_x": 152.9, "max_x": 153.2, "min_y": -27.6, "max_y": -27.3, "crs": 4326},
      "data_type": "DEM",
      "files": []
    }
  ]
}`

func newTestHandlers(t *testing.T) *Handlers {
	t.Helper()

	dir := t.TempDir()
	idxPath := filepath.Join(dir, "index.json")
	require.NoError(t, os.WriteFile(idxPath, []byte(testIndexDoc), 0o644))

	cfg := &config.Config{
		Environment:     config.Development,
		SpatialIndexURI: idxPath,
		Countries:       map[string]bool{"AU": true, "NZ": true},
		PublicBuckets:   map[string]bool{},
		Sources: config.SourcesConfig{
			PrivateBucket: config.SourceConfig{Enabled: false},
			PublicBucket:  config.SourceConfig{Enabled: false},
			HTTPAPIA:      config.SourceConfig{Enabled: false},
			HTTPAPIB:      config.SourceConfig{Enabled: false},
		},
		BatchMaxPoints:   10,
		QueryConcurrency: 4,
	}

	p, err := provider.New(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close(context.Background()) })

	svc := elevation.New(p.Orchestrator(), p.QueryConcurrency(), p.BatchMaxPoints())
	return New(svc, p)
}

func newTestRouter(h *Handlers) http.Handler {
	r := chi.NewRouter()
	r.Get("/api/v1/elevation", h.GetElevation)
	r.Post("/api/v1/elevation/points", h.PostElevationPoints)
	r.Post("/api/v1/elevation/line", h.PostElevationLine)
	r.Post("/api/v1/elevation/path", h.PostElevationPath)
	r.Get("/api/v1/elevation/campaigns", h.ListCampaigns)
	r.Get("/api/v1/elevation/campaigns/{id}", h.GetCampaign)
	r.Get("/api/v1/health", h.Health)
	return r
}

func TestGetElevation_NoSourcesConfigured_ReturnsNullElevation(t *testing.T) {
	router := newTestRouter(newTestHandlers(t))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/elevation?lat=-27.4698&lon=153.0251", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body pointResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Nil(t, body.ElevationM)
	assert.NotNil(t, body.Message)
}

func TestGetElevation_InvalidCoordinates_BadRequest(t *testing.T) {
	router := newTestRouter(newTestHandlers(t))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/elevation?lat=999&lon=0", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPostElevationPoints_AcceptsLatLonAliases(t *testing.T) {
	router := newTestRouter(newTestHandlers(t))

	body := `{"points": [{"lat": 1, "lon": 2}, {"latitude": 3, "longitude": 4}]}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/elevation/points", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Points      []pointResponse `json:"points"`
		TotalPoints int             `json:"total_points"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Points, 2)
	assert.Equal(t, float64(1), resp.Points[0].Latitude)
	assert.Equal(t, float64(3), resp.Points[1].Latitude)
}

func TestPostElevationPoints_ExceedsBatchLimit(t *testing.T) {
	router := newTestRouter(newTestHandlers(t))

	points := make([]map[string]float64, 11)
	for i := range points {
		points[i] = map[string]float64{"lat": 0, "lon": 0}
	}
	payload, err := json.Marshal(map[string]interface{}{"points": points})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/elevation/points", bytes.NewBuffer(payload))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPostElevationLine_ReturnsNumPointsEntries(t *testing.T) {
	router := newTestRouter(newTestHandlers(t))

	body := `{"start_point": {"latitude": -27.4698, "longitude": 153.0251}, "end_point": {"latitude": -27.4700, "longitude": 153.0260}, "num_points": 5}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/elevation/line", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Points []pointResponse `json:"points"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Points, 5)
}

func TestListCampaigns_ReturnsMetadataWithoutFiles(t *testing.T) {
	router := newTestRouter(newTestHandlers(t))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/elevation/campaigns", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "brisbane-2019")
	assert.NotContains(t, rec.Body.String(), "files")
}

func TestGetCampaign_UnknownID_NotFound(t *testing.T) {
	router := newTestRouter(newTestHandlers(t))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/elevation/campaigns/does-not-exist", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealth_ReportsReadyAndCollectionCount(t *testing.T) {
	router := newTestRouter(newTestHandlers(t))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, float64(1), body["collection_count"])
}
