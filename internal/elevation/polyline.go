package elevation

import (
	"fmt"

	"github.com/twpayne/go-polyline"

	"github.com/jcom-dev/elevation-api/internal/geomodel"
)

// DecodePolyline parses a Google-style encoded polyline string into the
// ordered vertex list the Path driver expects. The JSON point list remains
// the primary path input; an encoded polyline is an alternate, more
// compact wire format for the same operation.
func DecodePolyline(encoded string) ([]geomodel.Point, error) {
	coords, _, err := polyline.DecodeCoords([]byte(encoded))
	if err != nil {
		return nil, fmt.Errorf("decode polyline: %w", err)
	}

	points := make([]geomodel.Point, 0, len(coords))
	for _, c := range coords {
		if len(c) != 2 {
			return nil, fmt.Errorf("decoded coordinate has %d components, expected 2", len(c))
		}
		p, err := geomodel.NewPoint(c[0], c[1])
		if err != nil {
			return nil, fmt.Errorf("decoded point: %w", err)
		}
		points = append(points, p)
	}
	return points, nil
}
