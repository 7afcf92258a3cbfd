package countryhandlers

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jcom-dev/elevation-api/internal/geomodel"
)

func year(y int) *int { return &y }

func TestAUHandler_Prioritise_NewestFirst(t *testing.T) {
	h := NewAUHandler()
	c2014 := &geomodel.Collection{ID: "b-2014", SurveyYear: year(2014), ResolutionM: 1.0}
	c2019 := &geomodel.Collection{ID: "a-2019", SurveyYear: year(2019), ResolutionM: 1.0}
	c2009 := &geomodel.Collection{ID: "c-2009", SurveyYear: year(2009), ResolutionM: 1.0}

	out := h.Prioritise([]*geomodel.Collection{c2014, c2019, c2009})
	assert.Equal(t, []string{"a-2019", "b-2014", "c-2009"}, ids(out))
}

func TestAUHandler_Prioritise_NullYearSortsLast(t *testing.T) {
	h := NewAUHandler()
	withYear := &geomodel.Collection{ID: "has-year", SurveyYear: year(2020), ResolutionM: 1.0}
	noYear := &geomodel.Collection{ID: "no-year", SurveyYear: nil, ResolutionM: 0.5}

	out := h.Prioritise([]*geomodel.Collection{noYear, withYear})
	assert.Equal(t, []string{"has-year", "no-year"}, ids(out))
}

func TestAUHandler_Prioritise_ResolutionTiebreak(t *testing.T) {
	h := NewAUHandler()
	coarse := &geomodel.Collection{ID: "coarse", SurveyYear: year(2020), ResolutionM: 5.0}
	fine := &geomodel.Collection{ID: "fine", SurveyYear: year(2020), ResolutionM: 1.0}

	out := h.Prioritise([]*geomodel.Collection{coarse, fine})
	assert.Equal(t, []string{"fine", "coarse"}, ids(out))
}

func TestRegistry_PrioritiseAll_NZNeverFallsThroughToAU(t *testing.T) {
	r := NewRegistry()

	auNewer := &geomodel.Collection{ID: "au-newer", Country: geomodel.CountryAU, SurveyYear: year(2023), ResolutionM: 0.5}
	nzOlder := &geomodel.Collection{ID: "nz-older", Country: geomodel.CountryNZ, SurveyYear: year(2010), ResolutionM: 5.0}

	out := r.PrioritiseAll([]*geomodel.Collection{auNewer, nzOlder})
	assert.Equal(t, []string{"nz-older", "au-newer"}, ids(out))
}

func ids(cs []*geomodel.Collection) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.ID
	}
	return out
}
