package geomodel

import "fmt"

// BoundingBox is an axis-aligned rectangle meaningful only in its declared
// CRS (EPSG code). Mixing CRSs across a containment test is a contract
// violation the caller must avoid: BoundingBox does not itself check the
// CRS of the point it's asked to test, that's the caller's job (the
// spatial index and the country handler registry).
type BoundingBox struct {
	MinX, MaxX, MinY, MaxY float64
	CRS                    int
}

// NewBoundingBox validates min <= max on both axes.
func NewBoundingBox(minX, maxX, minY, maxY float64, crs int) (BoundingBox, error) {
	if minX > maxX {
		return BoundingBox{}, fmt.Errorf("bounding box min_x %v > max_x %v", minX, maxX)
	}
	if minY > maxY {
		return BoundingBox{}, fmt.Errorf("bounding box min_y %v > max_y %v", minY, maxY)
	}
	return BoundingBox{MinX: minX, MaxX: maxX, MinY: minY, MaxY: maxY, CRS: crs}, nil
}

// ContainsXY reports whether (x, y) lies within the box using closed
// intervals: a point exactly on an edge is contained.
func (b BoundingBox) ContainsXY(x, y float64) bool {
	return x >= b.MinX && x <= b.MaxX && y >= b.MinY && y <= b.MaxY
}
