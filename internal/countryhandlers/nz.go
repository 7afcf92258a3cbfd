package countryhandlers

import (
	"sort"

	"github.com/jcom-dev/elevation-api/internal/crs"
	"github.com/jcom-dev/elevation-api/internal/geoindex"
	"github.com/jcom-dev/elevation-api/internal/geomodel"
)

// nzPriorityBoost is large enough that no realistic AU survey-year/
// resolution combination can outrank it once Registry.PrioritiseAll merges
// groups by boost.
const nzPriorityBoost = 1_000_000

// NZHandler uses the same ordering keys as AUHandler (survey year
// descending, resolution ascending, id tiebreak) but reports a large
// PriorityBoost so a NZ point never falls through to an incidentally
// intersecting AU collection.
type NZHandler struct{}

func NewNZHandler() *NZHandler {
	return &NZHandler{}
}

func (h *NZHandler) Prioritise(collections []*geomodel.Collection) []*geomodel.Collection {
	out := make([]*geomodel.Collection, len(collections))
	copy(out, collections)

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]

		if (a.SurveyYear == nil) != (b.SurveyYear == nil) {
			return a.SurveyYear != nil
		}
		if a.SurveyYear != nil && b.SurveyYear != nil && *a.SurveyYear != *b.SurveyYear {
			return *a.SurveyYear > *b.SurveyYear
		}

		if a.ResolutionM != b.ResolutionM {
			return a.ResolutionM < b.ResolutionM
		}

		return a.ID < b.ID
	})

	return out
}

func (h *NZHandler) PriorityBoost() int {
	return nzPriorityBoost
}

func (h *NZHandler) Files(collection *geomodel.Collection, qp *geomodel.QueryPoint, index *geoindex.Index, transformer *crs.Transformer) ([]geomodel.FileRef, error) {
	// Some NZ files declare their own bounds CRS (WGS84) rather than
	// inheriting NZTM from the collection; resolveFiles already handles
	// mixed per-file CRS via FileRef.Bounds.CRS rather than assuming
	// Collection.NativeCRS.
	return resolveFiles(collection, qp, index, transformer)
}
