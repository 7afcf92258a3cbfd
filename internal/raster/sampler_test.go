package raster

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type staticClassifier map[string]bool

func (c staticClassifier) IsPublicBucket(bucket string) bool { return c[bucket] }

func TestVSIPath_PrivateBucketUsesVsis3(t *testing.T) {
	s := New(staticClassifier{"public-dem": true}, 8)
	path, err := s.vsiPath("s3://private-dem/tiles/a.tif")
	assert.NoError(t, err)
	assert.Equal(t, "/vsis3/private-dem/tiles/a.tif", path)
}

func TestVSIPath_PublicBucketUsesVsicurl(t *testing.T) {
	s := New(staticClassifier{"public-dem": true}, 8)
	path, err := s.vsiPath("s3://public-dem/tiles/a.tif")
	assert.NoError(t, err)
	assert.Equal(t, "/vsicurl/https://public-dem.s3.amazonaws.com/tiles/a.tif", path)
}

func TestVSIPath_RejectsUnsupportedScheme(t *testing.T) {
	s := New(nil, 8)
	_, err := s.vsiPath("https://example.com/a.tif")
	assert.Error(t, err)
}

func TestVSIPath_RejectsMalformedURI(t *testing.T) {
	s := New(nil, 8)
	_, err := s.vsiPath("s3://")
	assert.Error(t, err)
}
