package sources

import (
	"context"

	"github.com/jcom-dev/elevation-api/internal/countryhandlers"
	"github.com/jcom-dev/elevation-api/internal/crs"
	"github.com/jcom-dev/elevation-api/internal/geoindex"
	"github.com/jcom-dev/elevation-api/internal/geomodel"
	"github.com/jcom-dev/elevation-api/internal/raster"
)

// BucketSource implements both private_bucket and public_bucket: the
// raster path from projection, through the spatial index and country
// handler registry, to the raster sampler. The two kinds differ only in
// the SourceKind they report and (indirectly, via raster.Sampler's
// bucket classifier) which VSI prefix the sampler selects when opening a
// tile. The bucket membership check, not the source kind, decides
// credentialed vs unsigned access.
type BucketSource struct {
	id   string
	kind geomodel.SourceKind

	index       *geoindex.Index
	registry    *countryhandlers.Registry
	transformer *crs.Transformer
	sampler     *raster.Sampler
}

// NewBucketSource builds a raster-backed data source. kind must be
// SourceKindPrivateBucket or SourceKindPublicBucket.
func NewBucketSource(id string, kind geomodel.SourceKind, index *geoindex.Index, registry *countryhandlers.Registry, transformer *crs.Transformer, sampler *raster.Sampler) *BucketSource {
	return &BucketSource{
		id:          id,
		kind:        kind,
		index:       index,
		registry:    registry,
		transformer: transformer,
		sampler:     sampler,
	}
}

func (s *BucketSource) ID() string               { return s.id }
func (s *BucketSource) Kind() geomodel.SourceKind { return s.kind }

// GetElevation walks the raster path: candidates, then handler
// prioritisation, then per-collection file resolution, then sample the
// first file that actually covers the point. DEM is strictly preferred
// over DSM when both a DEM and a DSM collection cover the point.
func (s *BucketSource) GetElevation(ctx context.Context, qp *geomodel.QueryPoint) geomodel.ElevationOutcome {
	candidates := s.index.Candidates(qp.Point)
	if len(candidates) == 0 {
		return geomodel.NotCovered()
	}

	ordered := s.registry.PrioritiseAll(candidates)

	for _, collection := range ordered {
		handler, ok := s.registry.For(collection.Country)
		if !ok {
			continue
		}

		files, err := handler.Files(collection, qp, s.index, s.transformer)
		if err != nil {
			return geomodel.Error(geomodel.ErrCrsUnknown, s.id, err.Error())
		}
		if len(files) == 0 {
			continue
		}

		for _, file := range files {
			pp, ok := qp.Cached(file.Bounds.CRS)
			if !ok {
				var err error
				pp, err = s.transformer.Transform(qp.Point, file.Bounds.CRS)
				if err != nil {
					return geomodel.Error(geomodel.ErrCrsUnknown, s.id, err.Error())
				}
				qp.Store(file.Bounds.CRS, pp)
			}

			outcome := s.sampler.Sample(ctx, file, pp)
			switch outcome.Kind {
			case geomodel.OutcomeFound:
				outcome.SourceID = s.id
				outcome.DataType = collection.DataType
				outcome.Message = "sampled from " + collection.Name
				return outcome
			case geomodel.OutcomeNoData:
				return geomodel.NoData(s.id)
			case geomodel.OutcomeError:
				outcome.SourceID = s.id
				return outcome
			default: // NotCovered: try the next file/collection
				continue
			}
		}
	}

	return geomodel.NotCovered()
}

func (s *BucketSource) Health(ctx context.Context) HealthStatus {
	return HealthStatus{OK: true, Detail: "spatial index loaded"}
}

func (s *BucketSource) Coverage() Coverage {
	return Coverage{Description: string(s.kind) + " raster coverage per loaded spatial index"}
}
