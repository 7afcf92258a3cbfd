package handlers

import (
	"encoding/json"
	"fmt"

	"github.com/jcom-dev/elevation-api/internal/geomodel"
)

// pointJSON accepts both the short (lat/lon) and long (latitude/longitude)
// key spellings a request body may use. encoding/json does not support
// per-field aliases natively, so both spellings are decoded into the same
// struct and reconciled in toPoint.
type pointJSON struct {
	Lat       *float64 `json:"lat"`
	Lon       *float64 `json:"lon"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

func (p pointJSON) toPoint() (geomodel.Point, error) {
	lat, ok := firstNonNil(p.Lat, p.Latitude)
	if !ok {
		return geomodel.Point{}, fmt.Errorf("missing lat/latitude")
	}
	lon, ok := firstNonNil(p.Lon, p.Longitude)
	if !ok {
		return geomodel.Point{}, fmt.Errorf("missing lon/longitude")
	}
	return geomodel.NewPoint(lat, lon)
}

func firstNonNil(a, b *float64) (float64, bool) {
	if a != nil {
		return *a, true
	}
	if b != nil {
		return *b, true
	}
	return 0, false
}

type pointsRequest struct {
	Points   []pointJSON `json:"points"`
	Polyline string      `json:"polyline"`
}

type lineRequest struct {
	StartPoint pointJSON `json:"start_point"`
	EndPoint   pointJSON `json:"end_point"`
	NumPoints  int       `json:"num_points"`
}

func decodeJSONBody(body []byte, v interface{}) error {
	if len(body) == 0 {
		return fmt.Errorf("empty request body")
	}
	return json.Unmarshal(body, v)
}
