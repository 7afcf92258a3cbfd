package handlers

import (
	"io"
	"net/http"
	"strconv"

	"github.com/jcom-dev/elevation-api/internal/elevation"
	"github.com/jcom-dev/elevation-api/internal/geomodel"
)

// GetElevation answers GET /api/v1/elevation?lat=<f>&lon=<f>.
func (h *Handlers) GetElevation(w http.ResponseWriter, r *http.Request) {
	lat, lon, ok := parseLatLonQuery(r)
	if !ok {
		RespondBadRequest(w, r, "lat and lon query parameters are required and must be valid numbers")
		return
	}

	p, err := geomodel.NewPoint(lat, lon)
	if err != nil {
		RespondBadRequest(w, r, err.Error())
		return
	}

	result := h.elevation.Point(r.Context(), p)
	RespondJSON(w, r, http.StatusOK, toPointResponse(result))
}

func parseLatLonQuery(r *http.Request) (lat, lon float64, ok bool) {
	latStr := r.URL.Query().Get("lat")
	if latStr == "" {
		latStr = r.URL.Query().Get("latitude")
	}
	lonStr := r.URL.Query().Get("lon")
	if lonStr == "" {
		lonStr = r.URL.Query().Get("longitude")
	}
	if latStr == "" || lonStr == "" {
		return 0, 0, false
	}

	var err error
	lat, err = strconv.ParseFloat(latStr, 64)
	if err != nil {
		return 0, 0, false
	}
	lon, err = strconv.ParseFloat(lonStr, 64)
	if err != nil {
		return 0, 0, false
	}
	return lat, lon, true
}

// PostElevationPoints answers POST /api/v1/elevation/points: a batch of
// points. Exceeding the configured batch limit fails the whole request
// with a validation error.
func (h *Handlers) PostElevationPoints(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		RespondBadRequest(w, r, "failed to read request body")
		return
	}

	var req pointsRequest
	if err := decodeJSONBody(body, &req); err != nil {
		RespondBadRequest(w, r, "invalid request body: "+err.Error())
		return
	}

	points, err := toPoints(req.Points)
	if err != nil {
		RespondBadRequest(w, r, err.Error())
		return
	}

	results, err := h.elevation.Batch(r.Context(), points)
	if err != nil {
		RespondBadRequest(w, r, err.Error())
		return
	}

	RespondJSON(w, r, http.StatusOK, map[string]interface{}{
		"points":       toPointResponses(results),
		"total_points": len(results),
	})
}

// PostElevationLine answers POST /api/v1/elevation/line: n evenly spaced
// points between a start and end point.
func (h *Handlers) PostElevationLine(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		RespondBadRequest(w, r, "failed to read request body")
		return
	}

	var req lineRequest
	if err := decodeJSONBody(body, &req); err != nil {
		RespondBadRequest(w, r, "invalid request body: "+err.Error())
		return
	}

	start, err := req.StartPoint.toPoint()
	if err != nil {
		RespondBadRequest(w, r, "start_point: "+err.Error())
		return
	}
	end, err := req.EndPoint.toPoint()
	if err != nil {
		RespondBadRequest(w, r, "end_point: "+err.Error())
		return
	}

	results, err := h.elevation.Line(r.Context(), start, end, req.NumPoints)
	if err != nil {
		RespondBadRequest(w, r, err.Error())
		return
	}

	RespondJSON(w, r, http.StatusOK, map[string]interface{}{
		"points":       toPointResponses(results),
		"total_points": len(results),
	})
}

// PostElevationPath answers POST /api/v1/elevation/path: one elevation per
// vertex, in order. Accepts either a JSON point list or a Google-style
// encoded polyline string under "polyline", a more compact wire format for
// the same ordered vertex list.
func (h *Handlers) PostElevationPath(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		RespondBadRequest(w, r, "failed to read request body")
		return
	}

	var req pointsRequest
	if err := decodeJSONBody(body, &req); err != nil {
		RespondBadRequest(w, r, "invalid request body: "+err.Error())
		return
	}

	var points []geomodel.Point
	if req.Polyline != "" {
		points, err = elevation.DecodePolyline(req.Polyline)
		if err != nil {
			RespondBadRequest(w, r, "polyline: "+err.Error())
			return
		}
	} else {
		points, err = toPoints(req.Points)
		if err != nil {
			RespondBadRequest(w, r, err.Error())
			return
		}
	}

	results, err := h.elevation.Path(r.Context(), points)
	if err != nil {
		RespondBadRequest(w, r, err.Error())
		return
	}

	RespondJSON(w, r, http.StatusOK, map[string]interface{}{
		"points":       toPointResponses(results),
		"total_points": len(results),
	})
}

func toPoints(raw []pointJSON) ([]geomodel.Point, error) {
	points := make([]geomodel.Point, 0, len(raw))
	for _, pj := range raw {
		p, err := pj.toPoint()
		if err != nil {
			return nil, err
		}
		points = append(points, p)
	}
	return points, nil
}
