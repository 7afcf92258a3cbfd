// Package raster opens a remote GeoTIFF by object-storage URI, computes
// the pixel for a projected coordinate, and reads exactly one value.
//
// Open dataset handles are kept in a bounded, reference-counted LRU so a
// tile used by many requests in a row isn't reopened each time, and
// concurrent opens of the same tile are deduped with singleflight rather
// than racing each other through GDAL.
package raster

import (
	"container/list"
	"context"
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/airbusgeo/godal"
	"golang.org/x/sync/singleflight"

	"github.com/jcom-dev/elevation-api/internal/geomodel"
)

// gdalMu serializes GDAL dataset open/read calls across goroutines, the
// same discipline internal/crs applies: GDAL's internal state is not
// thread-safe across concurrent calls.
var gdalMu sync.Mutex

// BucketClassifier decides whether a bucket identifier embedded in a
// FileRef.URI is in the static public (unsigned-access) set, configured
// once at startup.
type BucketClassifier interface {
	IsPublicBucket(bucket string) bool
}

// Sampler reads elevation values out of raster tiles through a
// VSI-backed GDAL dataset handle cache.
type Sampler struct {
	classifier BucketClassifier

	mu      sync.Mutex
	entries map[string]*list.Element
	lru     *list.List
	maxOpen int

	sf singleflight.Group
}

// New builds a Sampler whose dataset-handle cache holds at most maxOpen
// concurrently open rasters, keyed by URI.
func New(classifier BucketClassifier, maxOpen int) *Sampler {
	if maxOpen <= 0 {
		maxOpen = 64
	}
	return &Sampler{
		classifier: classifier,
		entries:    make(map[string]*list.Element),
		lru:        list.New(),
		maxOpen:    maxOpen,
	}
}

// handle wraps one open GDAL dataset with its geotransform and declared
// nodata, reference-counted so an LRU eviction never invalidates an
// in-flight read.
type handle struct {
	uri string

	mu       sync.Mutex
	refCount int
	closed   bool

	ds         *godal.Dataset
	band       godal.Band
	gt         [6]float64
	sizeX      int
	sizeY      int
	nodata     float64
	hasNodata  bool
	epsgOfData int
}

type cacheEntry struct {
	uri string
	h   *handle
}

// Sample opens the raster, verifies its CRS matches the FileRef's
// declared bounds CRS, computes the pixel for pp, reads one value, and
// interprets nodata.
func (s *Sampler) Sample(ctx context.Context, file geomodel.FileRef, pp geomodel.ProjectedPoint) geomodel.ElevationOutcome {
	if pp.EPSGCode != file.Bounds.CRS {
		return geomodel.Error(geomodel.ErrCrsMismatch, "", fmt.Sprintf(
			"projected point epsg:%d does not match file bounds crs epsg:%d", pp.EPSGCode, file.Bounds.CRS))
	}

	h, err := s.acquire(ctx, file)
	if err != nil {
		return geomodel.Error(geomodel.ErrUpstream, "", err.Error())
	}
	defer s.release(h)

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return geomodel.Error(geomodel.ErrUpstream, "", "dataset handle closed concurrently with read")
	}

	if h.epsgOfData != file.Bounds.CRS {
		return geomodel.Error(geomodel.ErrCrsMismatch, "", fmt.Sprintf(
			"raster crs epsg:%d does not match declared bounds crs epsg:%d", h.epsgOfData, file.Bounds.CRS))
	}

	// North-up geotransform pixel math:
	// col = floor((x - origin_x) / pixel_w), row = floor((origin_y - y) / pixel_h).
	col := int(math.Floor((pp.X - h.gt[0]) / h.gt[1]))
	row := int(math.Floor((h.gt[3] - pp.Y) / -h.gt[5]))

	if col < 0 || col >= h.sizeX || row < 0 || row >= h.sizeY {
		return geomodel.NotCovered()
	}

	gdalMu.Lock()
	buf := make([]float64, 1)
	readErr := h.band.Read(col, row, buf, 1, 1)
	gdalMu.Unlock()
	if readErr != nil {
		return geomodel.Error(geomodel.ErrUpstream, "", fmt.Sprintf("read pixel: %v", readErr))
	}

	value := buf[0]
	if h.hasNodata && value == h.nodata {
		return geomodel.NoData("")
	}

	resolution := h.gt[1]
	return geomodel.Found("", value, resolution, geomodel.DataTypeDEM, "")
}

// acquire returns a reference-counted handle for file.URI, opening it via
// GDAL if it isn't already cached, deduping concurrent opens of the same
// URI with singleflight.
func (s *Sampler) acquire(ctx context.Context, file geomodel.FileRef) (*handle, error) {
	s.mu.Lock()
	if elem, ok := s.entries[file.URI]; ok {
		s.lru.MoveToFront(elem)
		h := elem.Value.(*cacheEntry).h
		s.mu.Unlock()
		h.mu.Lock()
		h.refCount++
		h.mu.Unlock()
		return h, nil
	}
	s.mu.Unlock()

	result, err, _ := s.sf.Do(file.URI, func() (interface{}, error) {
		s.mu.Lock()
		if elem, ok := s.entries[file.URI]; ok {
			h := elem.Value.(*cacheEntry).h
			s.mu.Unlock()
			return h, nil
		}
		s.mu.Unlock()

		h, err := s.open(file)
		if err != nil {
			return nil, err
		}

		s.mu.Lock()
		s.evictIfNeeded()
		elem := s.lru.PushFront(&cacheEntry{uri: file.URI, h: h})
		s.entries[file.URI] = elem
		s.mu.Unlock()
		return h, nil
	})
	if err != nil {
		return nil, err
	}

	h := result.(*handle)
	h.mu.Lock()
	h.refCount++
	h.mu.Unlock()
	return h, nil
}

// release decrements the handle's reference count. The handle stays in the
// LRU after release reaches zero; it is only closed when evicted.
func (s *Sampler) release(h *handle) {
	h.mu.Lock()
	h.refCount--
	h.mu.Unlock()
}

// evictIfNeeded drops the least-recently-used entries whose reference
// count is zero until the cache is within maxOpen. An entry still
// referenced by an in-flight read is skipped and retried on the next
// insertion.
func (s *Sampler) evictIfNeeded() {
	for s.lru.Len() >= s.maxOpen {
		victim := s.evictableTail()
		if victim == nil {
			return
		}
		entry := victim.Value.(*cacheEntry)
		s.lru.Remove(victim)
		delete(s.entries, entry.uri)

		entry.h.mu.Lock()
		if entry.h.refCount == 0 {
			entry.h.closed = true
			entry.h.ds.Close()
		} else {
			// Still referenced: re-list it so it can be found again, but
			// don't block eviction of other candidates. s.mu is already
			// held by the caller.
			entry.h.mu.Unlock()
			elem := s.lru.PushBack(entry)
			s.entries[entry.uri] = elem
			continue
		}
		entry.h.mu.Unlock()
	}
}

func (s *Sampler) evictableTail() *list.Element {
	for e := s.lru.Back(); e != nil; e = e.Prev() {
		entry := e.Value.(*cacheEntry)
		entry.h.mu.Lock()
		refs := entry.h.refCount
		entry.h.mu.Unlock()
		if refs == 0 {
			return e
		}
	}
	return nil
}

// open opens one raster via GDAL's VSI virtual filesystem, selecting the
// /vsis3/ (private, credentialed) or /vsicurl/ (public, unsigned) prefix
// based on the URI's bucket membership in the static public-bucket set.
func (s *Sampler) open(file geomodel.FileRef) (*handle, error) {
	vsiPath, err := s.vsiPath(file.URI)
	if err != nil {
		return nil, err
	}

	gdalMu.Lock()
	defer gdalMu.Unlock()

	ds, err := godal.Open(vsiPath, godal.RasterOnly())
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", vsiPath, err)
	}

	gt, err := ds.GeoTransform()
	if err != nil {
		ds.Close()
		return nil, fmt.Errorf("geotransform %s: %w", vsiPath, err)
	}

	bands := ds.Bands()
	if len(bands) == 0 {
		ds.Close()
		return nil, fmt.Errorf("no bands in %s", vsiPath)
	}
	band := bands[0]

	nodata, hasNodata := band.NoData()
	structure := ds.Structure()

	epsg := file.Bounds.CRS
	if sr := ds.SpatialRef(); sr != nil {
		defer sr.Close()
		if code, err := sr.AuthorityCode(""); err == nil && code != "" {
			var parsed int
			if _, scanErr := fmt.Sscanf(code, "%d", &parsed); scanErr == nil && parsed != 0 {
				epsg = parsed
			}
		}
	}

	return &handle{
		uri:        file.URI,
		ds:         ds,
		band:       band,
		gt:         gt,
		sizeX:      structure.SizeX,
		sizeY:      structure.SizeY,
		nodata:     nodata,
		hasNodata:  hasNodata,
		epsgOfData: epsg,
	}, nil
}

// vsiPath maps an s3://bucket/key URI to the GDAL virtual-filesystem path
// appropriate for that bucket's access class.
func (s *Sampler) vsiPath(uri string) (string, error) {
	const scheme = "s3://"
	if !strings.HasPrefix(uri, scheme) {
		return "", fmt.Errorf("unsupported uri scheme: %q", uri)
	}
	rest := strings.TrimPrefix(uri, scheme)
	parts := strings.SplitN(rest, "/", 2)
	if len(parts) != 2 || parts[0] == "" {
		return "", fmt.Errorf("malformed s3 uri: %q", uri)
	}
	bucket, key := parts[0], parts[1]

	if s.classifier != nil && s.classifier.IsPublicBucket(bucket) {
		return fmt.Sprintf("/vsicurl/https://%s.s3.amazonaws.com/%s", bucket, key), nil
	}
	return fmt.Sprintf("/vsis3/%s/%s", bucket, key), nil
}

// Close releases every cached dataset handle regardless of reference
// count, for use during provider shutdown only.
func (s *Sampler) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	gdalMu.Lock()
	defer gdalMu.Unlock()

	for e := s.lru.Front(); e != nil; e = e.Next() {
		entry := e.Value.(*cacheEntry)
		entry.h.mu.Lock()
		if !entry.h.closed {
			entry.h.closed = true
			entry.h.ds.Close()
		}
		entry.h.mu.Unlock()
	}
	s.entries = make(map[string]*list.Element)
	s.lru = list.New()
}
