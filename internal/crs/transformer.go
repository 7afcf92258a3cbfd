// Package crs converts points between WGS84 and the per-campaign projected
// coordinate systems (AU UTM zones, NZTM), with transformer objects cached
// by EPSG pair.
//
// Built on godal's spatial-reference/transform wrapper around GDAL's OSR
// and PROJ, the same library the raster sampler links for raster I/O, so
// no separate PROJ binding is introduced for this concern.
package crs

import (
	"fmt"
	"sync"

	"github.com/airbusgeo/godal"

	"github.com/jcom-dev/elevation-api/internal/geomodel"
)

// Supported EPSG codes: WGS84 geographic, NZTM, and the three Australian
// UTM zones that cover the mainland and Tasmania.
const (
	EPSGWGS84 = 4326
	EPSGNZTM  = 2193
	EPSGUTM54 = 28354
	EPSGUTM55 = 28355
	EPSGUTM56 = 28356
)

var supportedEPSG = map[int]bool{
	EPSGWGS84: true,
	EPSGNZTM:  true,
	EPSGUTM54: true,
	EPSGUTM55: true,
	EPSGUTM56: true,
}

// gdalMu serializes all GDAL/OSR/PROJ calls. GDAL's internal state is not
// thread-safe across concurrent calls from multiple goroutines, the same
// constraint the raster sampler observes for raster reads.
var gdalMu sync.Mutex

// transformerPair holds the two directions needed for transform/inverse
// between WGS84 and one projected CRS.
type transformerPair struct {
	forward *godal.Transform // WGS84 -> target
	inverse *godal.Transform // target -> WGS84
}

// Transformer caches constructed godal.Transform objects keyed by target
// EPSG (the source side is always WGS84), since PROJ initialisation is
// expensive.
type Transformer struct {
	mu    sync.RWMutex
	pairs map[int]*transformerPair // keyed by target EPSG, source is always WGS84
}

// New constructs an empty, ready-to-use Transformer. Pairs are built
// lazily on first use of a given EPSG code.
func New() *Transformer {
	return &Transformer{pairs: make(map[int]*transformerPair)}
}

// Transform converts a WGS84 Point into the given target EPSG. Fails with a
// wrapped error carrying geomodel.ErrCrsUnknown semantics if targetEPSG is
// not in the registered set.
func (t *Transformer) Transform(p geomodel.Point, targetEPSG int) (geomodel.ProjectedPoint, error) {
	if targetEPSG == EPSGWGS84 {
		return geomodel.ProjectedPoint{X: p.Lon, Y: p.Lat, EPSGCode: EPSGWGS84}, nil
	}
	if !supportedEPSG[targetEPSG] {
		return geomodel.ProjectedPoint{}, fmt.Errorf("crs unknown: epsg:%d is not a registered code", targetEPSG)
	}

	pair, err := t.pairFor(targetEPSG)
	if err != nil {
		return geomodel.ProjectedPoint{}, err
	}

	gdalMu.Lock()
	defer gdalMu.Unlock()

	xs := []float64{p.Lon}
	ys := []float64{p.Lat}
	if err := pair.forward.TransformEx(xs, ys, nil, nil); err != nil {
		return geomodel.ProjectedPoint{}, fmt.Errorf("transform wgs84 -> epsg:%d: %w", targetEPSG, err)
	}

	return geomodel.ProjectedPoint{X: xs[0], Y: ys[0], EPSGCode: targetEPSG}, nil
}

// Inverse converts a ProjectedPoint back to WGS84. Symmetric with
// Transform; round-trip error must stay within 1 mm for the supported
// EPSG set.
func (t *Transformer) Inverse(pp geomodel.ProjectedPoint) (geomodel.Point, error) {
	if pp.EPSGCode == EPSGWGS84 {
		return geomodel.Point{Lat: pp.Y, Lon: pp.X}, nil
	}
	if !supportedEPSG[pp.EPSGCode] {
		return geomodel.Point{}, fmt.Errorf("crs unknown: epsg:%d is not a registered code", pp.EPSGCode)
	}

	pair, err := t.pairFor(pp.EPSGCode)
	if err != nil {
		return geomodel.Point{}, err
	}

	gdalMu.Lock()
	defer gdalMu.Unlock()

	xs := []float64{pp.X}
	ys := []float64{pp.Y}
	if err := pair.inverse.TransformEx(xs, ys, nil, nil); err != nil {
		return geomodel.Point{}, fmt.Errorf("transform epsg:%d -> wgs84: %w", pp.EPSGCode, err)
	}

	return geomodel.Point{Lat: ys[0], Lon: xs[0]}, nil
}

func (t *Transformer) pairFor(targetEPSG int) (*transformerPair, error) {
	t.mu.RLock()
	pair, ok := t.pairs[targetEPSG]
	t.mu.RUnlock()
	if ok {
		return pair, nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	// Re-check after acquiring the write lock in case another goroutine
	// built the pair while we waited.
	if pair, ok := t.pairs[targetEPSG]; ok {
		return pair, nil
	}

	gdalMu.Lock()
	defer gdalMu.Unlock()

	wgs84, err := godal.NewSpatialRefFromEPSG(EPSGWGS84)
	if err != nil {
		return nil, fmt.Errorf("build wgs84 spatial ref: %w", err)
	}
	defer wgs84.Close()

	target, err := godal.NewSpatialRefFromEPSG(targetEPSG)
	if err != nil {
		return nil, fmt.Errorf("build epsg:%d spatial ref: %w", targetEPSG, err)
	}
	defer target.Close()

	forward, err := godal.NewTransform(wgs84, target)
	if err != nil {
		return nil, fmt.Errorf("build transform wgs84 -> epsg:%d: %w", targetEPSG, err)
	}

	inverse, err := godal.NewTransform(target, wgs84)
	if err != nil {
		forward.Close()
		return nil, fmt.Errorf("build transform epsg:%d -> wgs84: %w", targetEPSG, err)
	}

	built := &transformerPair{forward: forward, inverse: inverse}
	t.pairs[targetEPSG] = built
	return built, nil
}

// Close releases every cached transformer, part of the provider's
// scoped-resource release on shutdown.
func (t *Transformer) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()

	gdalMu.Lock()
	defer gdalMu.Unlock()

	for epsg, pair := range t.pairs {
		pair.forward.Close()
		pair.inverse.Close()
		delete(t.pairs, epsg)
	}
}
