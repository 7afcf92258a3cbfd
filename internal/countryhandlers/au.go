package countryhandlers

import (
	"sort"

	"github.com/jcom-dev/elevation-api/internal/crs"
	"github.com/jcom-dev/elevation-api/internal/geoindex"
	"github.com/jcom-dev/elevation-api/internal/geomodel"
)

// AUHandler implements the Australian prioritisation policy: newest survey
// first, then finest resolution, then id as a final tiebreak. Road
// engineers prefer the most recent high-resolution LiDAR survey.
type AUHandler struct{}

func NewAUHandler() *AUHandler {
	return &AUHandler{}
}

func (h *AUHandler) Prioritise(collections []*geomodel.Collection) []*geomodel.Collection {
	out := make([]*geomodel.Collection, len(collections))
	copy(out, collections)

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]

		// survey year descending, null sorts last.
		if (a.SurveyYear == nil) != (b.SurveyYear == nil) {
			return a.SurveyYear != nil
		}
		if a.SurveyYear != nil && b.SurveyYear != nil && *a.SurveyYear != *b.SurveyYear {
			return *a.SurveyYear > *b.SurveyYear
		}

		// resolution ascending (finer first).
		if a.ResolutionM != b.ResolutionM {
			return a.ResolutionM < b.ResolutionM
		}

		// lexicographic id tiebreak.
		return a.ID < b.ID
	})

	return out
}

// PriorityBoost is the baseline: AU collections never receive the NZ boost.
func (h *AUHandler) PriorityBoost() int {
	return 0
}

func (h *AUHandler) Files(collection *geomodel.Collection, qp *geomodel.QueryPoint, index *geoindex.Index, transformer *crs.Transformer) ([]geomodel.FileRef, error) {
	return resolveFiles(collection, qp, index, transformer)
}
