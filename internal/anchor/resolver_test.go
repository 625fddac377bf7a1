package anchor

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/address-audit/app/models"
	"github.com/address-audit/internal/recall"
)

type stubStore struct {
	anchors map[string]*models.Anchor
	err     error
}

func (s *stubStore) FindAnchorByKey(_ context.Context, keyText string) (*models.Anchor, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.anchors[keyText], nil
}

func f64(v float64) *float64 { return &v }

func testResolver(s *stubStore) *Resolver {
	return NewResolver(s, recall.Bucketer{Precision: 4}, zap.NewNop())
}

func TestIntersectionKey(t *testing.T) {
	assert.Equal(t, "天波路|科学大道", IntersectionKey("科学大道", "天波路"))
	assert.Equal(t, "天波路|科学大道", IntersectionKey("天波路", "科学大道"))
}

func TestBucketFromIntersectionWithOffset(t *testing.T) {
	s := &stubStore{anchors: map[string]*models.Anchor{
		"天波路|科学大道": {AnchorID: "a1", KeyText: "天波路|科学大道", Lat: f64(31.8204), Lon: f64(117.1292)},
	}}
	r := testResolver(s)

	dist := 40
	p := &models.ParsedAddress{
		Intersection: &models.Intersection{"科学大道", "天波路"},
		Direction:    "西北",
		DistanceM:    &dist,
	}
	bucket, err := r.Bucket(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, "31.8207_117.1289", bucket)
}

func TestBucketWithoutOffset(t *testing.T) {
	s := &stubStore{anchors: map[string]*models.Anchor{
		"天波路|科学大道": {AnchorID: "a1", KeyText: "天波路|科学大道", Lat: f64(31.8204), Lon: f64(117.1292)},
	}}
	r := testResolver(s)

	// No direction: the anchor's own bucket.
	p := &models.ParsedAddress{Intersection: &models.Intersection{"科学大道", "天波路"}}
	bucket, err := r.Bucket(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, "31.8204_117.1292", bucket)

	// Zero distance means no offset either.
	zero := 0
	p.Direction, p.DistanceM = "西北", &zero
	bucket, err = r.Bucket(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, "31.8204_117.1292", bucket)
}

func TestBucketFallsThroughToAOI(t *testing.T) {
	s := &stubStore{anchors: map[string]*models.Anchor{
		"名儒学校中学部": {AnchorID: "a3", KeyText: "名儒学校中学部", Lat: f64(31.8120), Lon: f64(117.1320)},
	}}
	r := testResolver(s)

	// The intersection anchor is missing; the AOI anchor resolves instead.
	p := &models.ParsedAddress{
		Intersection: &models.Intersection{"某路", "另一路"},
		AOI:          "名儒学校中学部",
	}
	bucket, err := r.Bucket(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, "31.812_117.132", bucket)
}

func TestBucketUnresolvable(t *testing.T) {
	r := testResolver(&stubStore{anchors: map[string]*models.Anchor{}})

	bucket, err := r.Bucket(context.Background(), &models.ParsedAddress{AOI: "不存在"})
	require.NoError(t, err)
	assert.Equal(t, "", bucket)

	// No reference at all.
	bucket, err = r.Bucket(context.Background(), &models.ParsedAddress{})
	require.NoError(t, err)
	assert.Equal(t, "", bucket)

	bucket, err = r.Bucket(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "", bucket)
}

func TestBucketAnchorWithoutCoords(t *testing.T) {
	s := &stubStore{anchors: map[string]*models.Anchor{
		"名儒学校中学部": {AnchorID: "a3", KeyText: "名儒学校中学部"},
	}}
	r := testResolver(s)

	bucket, err := r.Bucket(context.Background(), &models.ParsedAddress{AOI: "名儒学校中学部"})
	require.NoError(t, err)
	assert.Equal(t, "", bucket)
}

func TestBucketStoreError(t *testing.T) {
	r := testResolver(&stubStore{err: errors.New("connection reset")})

	_, err := r.Bucket(context.Background(), &models.ParsedAddress{AOI: "高新创新园"})
	assert.Error(t, err)
}
