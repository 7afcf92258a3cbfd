// Package countryhandlers holds country-specific policy over campaign
// prioritisation and file resolution. Adding a country is a configuration
// change: register a new Handler here, and nothing in the orchestrator
// needs to change.
package countryhandlers

import (
	"sort"

	"github.com/jcom-dev/elevation-api/internal/crs"
	"github.com/jcom-dev/elevation-api/internal/geoindex"
	"github.com/jcom-dev/elevation-api/internal/geomodel"
)

// Handler is the polymorphic interface dispatched by country tag.
type Handler interface {
	// Prioritise stable-sorts one country's own collections, highest
	// priority first, using that country's survey-year/resolution rules.
	Prioritise(collections []*geomodel.Collection) []*geomodel.Collection

	// PriorityBoost is the large additive bonus a country's group receives
	// relative to other countries when candidates span more than one
	// country, so the country tag always sorts ahead of survey year or
	// resolution. AU is the baseline (0); NZ's boost keeps NZ collections
	// ahead of any AU collection that incidentally intersects near the
	// border.
	PriorityBoost() int

	// Files resolves the candidate FileRefs for a collection at the given
	// point, projecting through the CRS transformer as needed before
	// asking the spatial index. Handlers never open rasters themselves.
	Files(collection *geomodel.Collection, qp *geomodel.QueryPoint, index *geoindex.Index, transformer *crs.Transformer) ([]geomodel.FileRef, error)
}

// Registry dispatches to the Handler registered for a collection's country
// tag. Unknown countries are simply never matched as candidates (the
// spatial index only contains collections for configured countries).
type Registry struct {
	handlers map[geomodel.Country]Handler
}

// NewRegistry builds a Registry pre-populated with the AU and NZ handlers.
// Call Register to add further countries without touching this package.
func NewRegistry() *Registry {
	r := &Registry{handlers: make(map[geomodel.Country]Handler)}
	r.Register(geomodel.CountryAU, NewAUHandler())
	r.Register(geomodel.CountryNZ, NewNZHandler())
	return r
}

// Register adds or replaces the handler for a country tag.
func (r *Registry) Register(country geomodel.Country, h Handler) {
	r.handlers[country] = h
}

// For returns the handler for a collection's country, or nil if none is
// registered.
func (r *Registry) For(country geomodel.Country) (Handler, bool) {
	h, ok := r.handlers[country]
	return h, ok
}

// PrioritiseAll groups candidates by country, lets each country's handler
// order its own group, then merges groups by descending PriorityBoost, so
// the country tag always wins over survey year or resolution: a NZ point's
// candidate list may contain AU collections that incidentally intersect
// near the border, but NZHandler's boost keeps every NZ collection ahead
// of every AU one regardless of survey year.
//
// Collections belonging to an unregistered country are dropped; the
// spatial index should never produce those in practice since collections
// are only loaded for configured countries (ENABLE_COUNTRY_X).
func (r *Registry) PrioritiseAll(candidates []*geomodel.Collection) []*geomodel.Collection {
	byCountry := make(map[geomodel.Country][]*geomodel.Collection)
	for _, c := range candidates {
		byCountry[c.Country] = append(byCountry[c.Country], c)
	}

	type group struct {
		boost       int
		collections []*geomodel.Collection
	}
	var groups []group
	for country, collections := range byCountry {
		h, ok := r.handlers[country]
		if !ok {
			continue
		}
		groups = append(groups, group{
			boost:       h.PriorityBoost(),
			collections: preferDEM(h.Prioritise(collections)),
		})
	}

	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].boost > groups[j].boost
	})

	var out []*geomodel.Collection
	for _, g := range groups {
		out = append(out, g.collections...)
	}
	return out
}

// preferDEM stable-reorders one country's already year/resolution-sorted
// collections so a DEM entry outranks a DSM entry that would otherwise
// come first: DEM is strictly preferred over DSM. Applied within a
// country's group, before groups are merged by PriorityBoost, so the
// NZ-never-falls-through-to-AU invariant holds regardless of data type.
func preferDEM(collections []*geomodel.Collection) []*geomodel.Collection {
	dems := make([]*geomodel.Collection, 0, len(collections))
	dsms := make([]*geomodel.Collection, 0, len(collections))
	for _, c := range collections {
		if c.DataType == geomodel.DataTypeDSM {
			dsms = append(dsms, c)
		} else {
			dems = append(dems, c)
		}
	}
	return append(dems, dsms...)
}

// resolveFiles is the shared implementation both AU and NZ handlers use:
// project the query point into the collection's native CRS (if needed),
// then delegate the containment check to the spatial index.
func resolveFiles(collection *geomodel.Collection, qp *geomodel.QueryPoint, index *geoindex.Index, transformer *crs.Transformer) ([]geomodel.FileRef, error) {
	projected := make(map[int]geomodel.ProjectedPoint)

	// Every distinct bounds CRS across this collection's files needs its
	// own projection; most collections only use one (Collection.NativeCRS),
	// but NZ files may independently declare WGS84 bounds.
	neededEPSG := map[int]bool{}
	if collection.NativeCRS != 4326 {
		neededEPSG[collection.NativeCRS] = true
	}
	for _, f := range collection.Files {
		if f.Bounds.CRS != 4326 {
			neededEPSG[f.Bounds.CRS] = true
		}
	}

	for epsg := range neededEPSG {
		if cached, ok := qp.Cached(epsg); ok {
			projected[epsg] = cached
			continue
		}
		pp, err := transformer.Transform(qp.Point, epsg)
		if err != nil {
			return nil, err
		}
		qp.Store(epsg, pp)
		projected[epsg] = pp
	}

	return index.FilesFor(collection, qp.Point, projected), nil
}
