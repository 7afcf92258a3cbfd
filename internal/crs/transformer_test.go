package crs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcom-dev/elevation-api/internal/geomodel"
)

func TestTransform_UnknownEPSG(t *testing.T) {
	tr := New()
	p, err := geomodel.NewPoint(-27.4698, 153.0251)
	require.NoError(t, err)

	_, err = tr.Transform(p, 99999)
	assert.Error(t, err)
}

func TestTransform_IdentityForWGS84(t *testing.T) {
	tr := New()
	p, err := geomodel.NewPoint(-36.8485, 174.7633)
	require.NoError(t, err)

	pp, err := tr.Transform(p, EPSGWGS84)
	require.NoError(t, err)
	assert.Equal(t, p.Lon, pp.X)
	assert.Equal(t, p.Lat, pp.Y)
	assert.Equal(t, EPSGWGS84, pp.EPSGCode)
}

func TestInverse_IdentityForWGS84(t *testing.T) {
	tr := New()
	pp := geomodel.ProjectedPoint{X: 153.0251, Y: -27.4698, EPSGCode: EPSGWGS84}

	p, err := tr.Inverse(pp)
	require.NoError(t, err)
	assert.Equal(t, pp.Y, p.Lat)
	assert.Equal(t, pp.X, p.Lon)
}
