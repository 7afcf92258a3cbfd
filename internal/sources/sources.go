// Package sources implements the four concrete data sources behind one
// capability: private_bucket, public_bucket, http_api_a, http_api_b. Each
// bucket source wraps the CRS transformer, spatial index, country
// handler registry, and raster sampler; each HTTP source wraps a
// timeout-configured *http.Client (url.Values query building, JSON
// decode, explicit Retry-After handling).
package sources

import (
	"context"

	"github.com/jcom-dev/elevation-api/internal/geomodel"
)

// HealthStatus is returned by DataSource.Health. The /api/v1/health
// endpoint reports breaker state instead and does not call it.
type HealthStatus struct {
	OK     bool
	Detail string
}

// Coverage describes a source's advertised spatial coverage, surfaced by
// introspection tooling; the core query path never calls it.
type Coverage struct {
	Description string
	HasBBox     bool
	MinLat      float64
	MaxLat      float64
	MinLon      float64
	MaxLon      float64
}

// DataSource is the uniform capability every concrete source must
// provide: get_elevation, health, coverage.
type DataSource interface {
	ID() string
	Kind() geomodel.SourceKind
	GetElevation(ctx context.Context, qp *geomodel.QueryPoint) geomodel.ElevationOutcome
	Health(ctx context.Context) HealthStatus
	Coverage() Coverage
}
