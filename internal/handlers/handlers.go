package handlers

import (
	"github.com/jcom-dev/elevation-api/internal/elevation"
	"github.com/jcom-dev/elevation-api/internal/provider"
)

// Handlers holds the HTTP surface's dependencies: the elevation driver and
// the provider it needs for the campaigns and health endpoints.
type Handlers struct {
	elevation *elevation.Service
	provider  *provider.Provider
}

// New builds a Handlers instance wired to an already-started Provider.
func New(svc *elevation.Service, p *provider.Provider) *Handlers {
	return &Handlers{elevation: svc, provider: p}
}

// pointResponse is the shared per-point JSON shape used by the single,
// points, line, and path endpoints alike.
type pointResponse struct {
	ElevationM    *float64 `json:"elevation_m"`
	Latitude      float64  `json:"latitude"`
	Longitude     float64  `json:"longitude"`
	DEMSourceUsed *string  `json:"dem_source_used"`
	ResolutionM   *float64 `json:"resolution_m"`
	DataType      *string  `json:"data_type"`
	Message       *string  `json:"message"`
}

func toPointResponse(r elevation.PointResult) pointResponse {
	resp := pointResponse{
		ElevationM:    r.ElevationM,
		Latitude:      r.Latitude,
		Longitude:     r.Longitude,
		DEMSourceUsed: r.DEMSourceUsed,
		ResolutionM:   r.ResolutionM,
		DataType:      r.DataType,
	}
	if r.Message != "" {
		msg := r.Message
		resp.Message = &msg
	}
	return resp
}

func toPointResponses(results []elevation.PointResult) []pointResponse {
	out := make([]pointResponse, len(results))
	for i, r := range results {
		out[i] = toPointResponse(r)
	}
	return out
}
