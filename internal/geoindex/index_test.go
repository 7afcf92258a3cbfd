package geoindex

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcom-dev/elevation-api/internal/geomodel"
)

const sampleIndex = `{
  "schema_version": "1.0.0",
  "bounds_crs": {"AU": "EPSG:28356", "NZ": "EPSG:2193"},
  "data_collections": [
    {
      "id": "au-brisbane-2019",
      "country": "AU",
      "name": "Brisbane LiDAR 2019",
      "survey_year": 2019,
      "resolution_m": 1.0,
      "native_crs": 28356,
      "bounds_wgs84": {"min_x": 152.9, "max_x": 153.2, "min_y": -27.6, "max_y": -27.3, "crs": 4326},
      "bounds_native": {"min_x": 480000, "max_x": 520000, "min_y": 6940000, "max_y": 6980000, "crs": 28356},
      "data_type": "DEM",
      "files": []
    },
    {
      "id": "nz-auckland-2021",
      "country": "NZ",
      "name": "Auckland LiDAR 2021",
      "survey_year": 2021,
      "resolution_m": 1.0,
      "native_crs": 2193,
      "bounds_wgs84": {"min_x": 174.6, "max_x": 174.9, "min_y": -37.0, "max_y": -36.7, "crs": 4326},
      "bounds_native": {"min_x": 1750000, "max_x": 1780000, "min_y": 5910000, "max_y": 5940000, "crs": 2193},
      "data_type": "DEM",
      "files": []
    }
  ]
}`

func TestParse_ValidDocument(t *testing.T) {
	idx, err := Parse([]byte(sampleIndex))
	require.NoError(t, err)
	assert.Len(t, idx.Collections, 2)
}

func TestParse_RejectsUnknownSchemaVersion(t *testing.T) {
	_, err := Parse([]byte(`{"schema_version":"9.9.9","bounds_crs":{"AU":"EPSG:28356"},"data_collections":[]}`))
	assert.Error(t, err)
}

func TestParse_RejectsMissingBoundsCRS(t *testing.T) {
	_, err := Parse([]byte(`{"schema_version":"1.0.0","data_collections":[]}`))
	assert.Error(t, err)
}

func TestCandidates_MatchesLinearScan(t *testing.T) {
	idx, err := Parse([]byte(sampleIndex))
	require.NoError(t, err)

	points := []geomodel.Point{
		{Lat: -27.4698, Lon: 153.0251}, // AU Brisbane
		{Lat: -36.8485, Lon: 174.7633}, // NZ Auckland
		{Lat: 0, Lon: 0},               // nowhere
	}

	for _, p := range points {
		rtreeResult := namesOf(idx.Candidates(p))
		scanResult := namesOf(idx.CandidatesLinearScan(p))
		assert.ElementsMatch(t, scanResult, rtreeResult, "point %+v", p)
	}
}

func TestCandidates_ClosedBoundsEdge(t *testing.T) {
	idx, err := Parse([]byte(sampleIndex))
	require.NoError(t, err)

	// Exactly on the Brisbane collection's min_x/min_y edge.
	edge := geomodel.Point{Lat: -27.6, Lon: 152.9}
	got := idx.Candidates(edge)
	require.Len(t, got, 1)
	assert.Equal(t, "au-brisbane-2019", got[0].ID)
}

func namesOf(cs []*geomodel.Collection) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.ID
	}
	return out
}
