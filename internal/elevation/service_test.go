package elevation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcom-dev/elevation-api/internal/breaker"
	"github.com/jcom-dev/elevation-api/internal/geomodel"
	"github.com/jcom-dev/elevation-api/internal/orchestrator"
	"github.com/jcom-dev/elevation-api/internal/sources"
)

type constSource struct {
	id      string
	outcome geomodel.ElevationOutcome
}

func (c *constSource) ID() string               { return c.id }
func (c *constSource) Kind() geomodel.SourceKind { return geomodel.SourceKindHTTPAPIA }
func (c *constSource) GetElevation(ctx context.Context, qp *geomodel.QueryPoint) geomodel.ElevationOutcome {
	return c.outcome
}
func (c *constSource) Health(ctx context.Context) sources.HealthStatus { return sources.HealthStatus{OK: true} }
func (c *constSource) Coverage() sources.Coverage                      { return sources.Coverage{} }

func newTestOrchestrator(outcome geomodel.ElevationOutcome) *orchestrator.Orchestrator {
	o := orchestrator.New()
	src := &constSource{id: "http_api_a", outcome: outcome}
	o.Add(geomodel.SourceDescriptor{ID: "http_api_a"}, src, breaker.NewMemoryBreaker(breaker.Config{FailureThreshold: 3, RecoveryTimeout: time.Second}), time.Second)
	return o
}

func TestLine_NumPointsTwo_ReturnsStartAndEndExactly(t *testing.T) {
	svc := New(newTestOrchestrator(geomodel.Found("http_api_a", 10, 1, geomodel.DataTypeDEM, "")), 4, 500)
	start, _ := geomodel.NewPoint(-27.4698, 153.0251)
	end, _ := geomodel.NewPoint(-27.4700, 153.0260)

	results, err := svc.Line(context.Background(), start, end, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, start.Lat, results[0].Latitude)
	assert.Equal(t, start.Lon, results[0].Longitude)
	assert.Equal(t, end.Lat, results[1].Latitude)
	assert.Equal(t, end.Lon, results[1].Longitude)
}

func TestLine_IntermediatePointsEvenlySpaced(t *testing.T) {
	svc := New(newTestOrchestrator(geomodel.Found("http_api_a", 10, 1, geomodel.DataTypeDEM, "")), 4, 500)
	start, _ := geomodel.NewPoint(0, 0)
	end, _ := geomodel.NewPoint(10, 0)

	results, err := svc.Line(context.Background(), start, end, 5)
	require.NoError(t, err)
	require.Len(t, results, 5)
	for i := 1; i < len(results); i++ {
		assert.InDelta(t, 2.5, results[i].Latitude-results[i-1].Latitude, 1e-9)
	}
}

func TestLine_RejectsFewerThanTwoPoints(t *testing.T) {
	svc := New(newTestOrchestrator(geomodel.NotCovered()), 4, 500)
	start, _ := geomodel.NewPoint(0, 0)
	end, _ := geomodel.NewPoint(1, 1)

	_, err := svc.Line(context.Background(), start, end, 1)
	assert.Error(t, err)
}

func TestBatch_PreservesInputOrder(t *testing.T) {
	svc := New(newTestOrchestrator(geomodel.Found("http_api_a", 10, 1, geomodel.DataTypeDEM, "")), 4, 500)

	var points []geomodel.Point
	for i := 0; i < 20; i++ {
		p, _ := geomodel.NewPoint(float64(i), float64(-i))
		points = append(points, p)
	}

	results, err := svc.Batch(context.Background(), points)
	require.NoError(t, err)
	require.Len(t, results, 20)
	for i, r := range results {
		assert.Equal(t, points[i].Lat, r.Latitude)
		assert.Equal(t, points[i].Lon, r.Longitude)
	}
}

func TestBatch_ExceedsLimitFails(t *testing.T) {
	svc := New(newTestOrchestrator(geomodel.NotCovered()), 4, 2)
	p, _ := geomodel.NewPoint(0, 0)

	_, err := svc.Batch(context.Background(), []geomodel.Point{p, p, p})
	assert.Error(t, err)
}

func TestBatch_NullElevationOnNoCoverage(t *testing.T) {
	svc := New(newTestOrchestrator(geomodel.NotCovered()), 4, 500)
	p, _ := geomodel.NewPoint(0, 0)

	results, err := svc.Batch(context.Background(), []geomodel.Point{p})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Nil(t, results[0].ElevationM)
	assert.NotEmpty(t, results[0].Message)
}
