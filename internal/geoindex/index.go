// Package geoindex implements an in-memory two-tier geometry index over
// collections (survey campaigns) and, within each collection, files
// (raster tiles).
//
// The coarse filter is an R-tree over each collection's WGS84 bounding
// box, built with github.com/tidwall/rtree. The fine filter, files within
// a collection, is a linear scan: collections rarely exceed a few
// thousand files, so a linear scan is simple and fast enough.
package geoindex

import (
	"encoding/json"
	"fmt"

	"github.com/tidwall/rtree"

	"github.com/jcom-dev/elevation-api/internal/geomodel"
)

// Index is the parsed, validated, queryable spatial index. Immutable after
// construction; concurrent reads are safe without external synchronisation.
type Index struct {
	SchemaVersion string
	BoundsCRS     map[string]int
	Collections   []*geomodel.Collection

	tree rtree.RTreeG[*geomodel.Collection]
}

// Parse validates and builds an Index from the raw bytes of the on-disk
// spatial index document. Startup must reject a document whose schema or
// CRS tags are missing or inconsistent.
func Parse(data []byte) (*Index, error) {
	var doc documentV1
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse spatial index: %w", err)
	}

	if doc.SchemaVersion == "" {
		return nil, fmt.Errorf("spatial index missing schema_version")
	}
	if !supportedSchemaVersions[doc.SchemaVersion] {
		return nil, fmt.Errorf("spatial index schema_version %q is not supported", doc.SchemaVersion)
	}

	boundsCRS, err := parseBoundsCRS(doc.BoundsCRS)
	if err != nil {
		return nil, err
	}

	idx := &Index{
		SchemaVersion: doc.SchemaVersion,
		BoundsCRS:     boundsCRS,
	}

	for _, c := range doc.DataCollections {
		collection, err := toCollection(c, boundsCRS)
		if err != nil {
			return nil, fmt.Errorf("collection %q: %w", c.ID, err)
		}
		idx.Collections = append(idx.Collections, collection)
	}

	for _, c := range idx.Collections {
		min := [2]float64{c.BoundsWGS84.MinX, c.BoundsWGS84.MinY}
		max := [2]float64{c.BoundsWGS84.MaxX, c.BoundsWGS84.MaxY}
		idx.tree.Insert(min, max, c)
	}

	return idx, nil
}

func parseBoundsCRS(raw map[string]string) (map[string]int, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("spatial index missing bounds_crs")
	}
	out := make(map[string]int, len(raw))
	for country, epsgTag := range raw {
		epsg, err := parseEPSGTag(epsgTag)
		if err != nil {
			return nil, fmt.Errorf("bounds_crs[%s]: %w", country, err)
		}
		out[country] = epsg
	}
	return out, nil
}

func parseEPSGTag(tag string) (int, error) {
	var epsg int
	if _, err := fmt.Sscanf(tag, "EPSG:%d", &epsg); err != nil {
		return 0, fmt.Errorf("invalid EPSG tag %q", tag)
	}
	return epsg, nil
}

func toCollection(c collectionDTO, boundsCRS map[string]int) (*geomodel.Collection, error) {
	country := geomodel.Country(c.Country)
	declaredCRS, ok := boundsCRS[c.Country]
	if !ok {
		return nil, fmt.Errorf("no bounds_crs entry for country %q", c.Country)
	}
	if c.NativeCRS != declaredCRS && c.NativeCRS != 4326 {
		return nil, fmt.Errorf("native_crs %d disagrees with country %q's declared CRS %d", c.NativeCRS, c.Country, declaredCRS)
	}

	boundsWGS84, err := toBoundingBox(c.BoundsWGS84)
	if err != nil {
		return nil, fmt.Errorf("bounds_wgs84: %w", err)
	}

	var boundsNative *geomodel.BoundingBox
	if c.NativeCRS != 4326 {
		if c.BoundsNative == nil {
			return nil, fmt.Errorf("bounds_native required when native_crs != 4326")
		}
		bb, err := toBoundingBox(*c.BoundsNative)
		if err != nil {
			return nil, fmt.Errorf("bounds_native: %w", err)
		}
		boundsNative = &bb
	}

	files := make([]geomodel.FileRef, 0, len(c.Files))
	for _, f := range c.Files {
		fb, err := toBoundingBox(f.Bounds)
		if err != nil {
			return nil, fmt.Errorf("file %q bounds: %w", f.URI, err)
		}
		files = append(files, geomodel.FileRef{
			URI:       f.URI,
			Bounds:    fb,
			SizeBytes: f.SizeBytes,
			Filename:  f.Filename,
		})
	}

	return &geomodel.Collection{
		ID:           c.ID,
		Country:      country,
		Name:         c.Name,
		SurveyYear:   c.SurveyYear,
		ResolutionM:  c.ResolutionM,
		NativeCRS:    c.NativeCRS,
		BoundsWGS84:  boundsWGS84,
		BoundsNative: boundsNative,
		DataType:     geomodel.DataType(c.DataType),
		Files:        files,
	}, nil
}

func toBoundingBox(dto bboxDTO) (geomodel.BoundingBox, error) {
	return geomodel.NewBoundingBox(dto.MinX, dto.MaxX, dto.MinY, dto.MaxY, dto.CRS)
}

// Candidates returns every collection whose WGS84 bounds contain the
// point, via the R-tree coarse filter.
func (idx *Index) Candidates(p geomodel.Point) []*geomodel.Collection {
	var out []*geomodel.Collection
	pt := [2]float64{p.Lon, p.Lat}
	idx.tree.Search(pt, pt, func(min, max [2]float64, data *geomodel.Collection) bool {
		out = append(out, data)
		return true
	})
	return out
}

// CandidatesLinearScan recomputes the same set as Candidates without the
// R-tree, scanning every collection's WGS84 bounds directly. It exists to
// verify the R-tree's result always matches a plain linear scan; it is not
// used on the request path.
func (idx *Index) CandidatesLinearScan(p geomodel.Point) []*geomodel.Collection {
	var out []*geomodel.Collection
	for _, c := range idx.Collections {
		if c.BoundsWGS84.ContainsXY(p.Lon, p.Lat) {
			out = append(out, c)
		}
	}
	return out
}

// FilesFor returns every file in the collection whose bounds contain the
// point, transformed to the file's own declared bounds CRS. A linear scan
// over the collection's files.
//
// projectedByEPSG must already hold the point projected into every EPSG a
// file in this collection might declare; callers (the country handler
// registry) are responsible for populating it via the CRS transformer so
// the transform-once invariant holds across the whole request, not just
// within one collection.
func (idx *Index) FilesFor(c *geomodel.Collection, wgs84 geomodel.Point, projectedByEPSG map[int]geomodel.ProjectedPoint) []geomodel.FileRef {
	var out []geomodel.FileRef
	for _, f := range c.Files {
		if f.Bounds.CRS == 4326 {
			if f.Bounds.ContainsXY(wgs84.Lon, wgs84.Lat) {
				out = append(out, f)
			}
			continue
		}
		pp, ok := projectedByEPSG[f.Bounds.CRS]
		if !ok {
			continue
		}
		if f.Bounds.ContainsXY(pp.X, pp.Y) {
			out = append(out, f)
		}
	}
	return out
}
