package recall

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/address-audit/app/models"
	"github.com/address-audit/internal/alias"
)

func testCanon() *alias.Canonicalizer {
	return alias.NewCanonicalizer(
		alias.Map{"高新创新园": {"创新园"}},
		alias.Map{"创新大道": {"创新大街"}},
	)
}

func rec(rid string, lat, lon float64) *models.AddressRecord {
	return &models.AddressRecord{RID: rid, Lat: &lat, Lon: &lon}
}

func TestBucketStability(t *testing.T) {
	b := Bucketer{Precision: 4}

	assert.Equal(t, b.Bucket(31.8204, 117.1292), b.Bucket(31.8204, 117.1292))
	assert.Equal(t, "31.8204_117.1292", b.Bucket(31.8204, 117.1292))

	// Rounding, not truncation.
	assert.Equal(t, "31.8207_117.1289", b.Bucket(31.82065482, 117.1289001))
}

func TestNeighbors(t *testing.T) {
	b := Bucketer{Precision: 4}
	nbs := b.Neighbors("31.8204_117.1292")
	require.Len(t, nbs, 9)
	assert.Contains(t, nbs, "31.8204_117.1292")
	assert.Contains(t, nbs, "31.8203_117.1291")
	assert.Contains(t, nbs, "31.8205_117.1293")

	assert.True(t, b.InNeighborhood("31.8204_117.1292", "31.8205_117.1292"))
	assert.False(t, b.InNeighborhood("31.8204_117.1292", "31.8208_117.1292"))

	// Malformed keys degrade to themselves.
	assert.Equal(t, []string{"bogus"}, b.Neighbors("bogus"))
}

func TestCandidatesByStructuredFields(t *testing.T) {
	ix := NewIndex(4, testCanon())

	a := &models.AddressRecord{RID: "rid0001"}
	ix.Add(a, &models.ParsedAddress{District: "蜀山区", AOI: "高新创新园", Building: "F9A", Road: "创新大道"})
	b := &models.AddressRecord{RID: "rid0002"}
	ix.Add(b, &models.ParsedAddress{AOI: "创新园"})
	c := &models.AddressRecord{RID: "rid0003"}
	ix.Add(c, &models.ParsedAddress{Building: "f9a"})
	d := &models.AddressRecord{RID: "rid0004"}
	ix.Add(d, &models.ParsedAddress{District: "瑶海区"})

	seen := map[string]bool{"rid0001": true, "rid0002": true, "rid0003": true, "rid0004": true}

	// Alias variants share the AOI bucket; buildings fold case.
	query := &models.AddressRecord{RID: "rid0005"}
	got := ix.CandidatesFor(query, &models.ParsedAddress{AOI: "创新园", Building: "F9A"}, seen, "", 0)
	assert.Equal(t, []string{"rid0001", "rid0002", "rid0003"}, got)

	// Road alias recall.
	got = ix.CandidatesFor(query, &models.ParsedAddress{Road: "创新大街"}, seen, "", 0)
	assert.Equal(t, []string{"rid0001"}, got)
}

func TestCandidatesGeoNeighborhood(t *testing.T) {
	ix := NewIndex(4, testCanon())

	ix.Add(rec("rid0001", 31.8204, 117.1292), nil)
	ix.Add(rec("rid0002", 31.8205, 117.1293), nil) // adjacent bucket
	ix.Add(rec("rid0003", 31.9000, 117.2000), nil) // far away

	seen := map[string]bool{"rid0001": true, "rid0002": true, "rid0003": true}

	got := ix.CandidatesFor(rec("rid0009", 31.8204, 117.1292), nil, seen, "", 0)
	assert.Equal(t, []string{"rid0001", "rid0002"}, got)
}

func TestCandidatesAnchorBucket(t *testing.T) {
	ix := NewIndex(4, testCanon())
	ix.Add(rec("rid0001", 31.8207, 117.1289), nil)
	seen := map[string]bool{"rid0001": true}

	// The query record itself has no coords; the anchor bucket pulls in the
	// neighborhood.
	query := &models.AddressRecord{RID: "rid0009"}
	got := ix.CandidatesFor(query, nil, seen, "31.8207_117.1289", 0)
	assert.Equal(t, []string{"rid0001"}, got)
}

func TestCandidatesSeenCausality(t *testing.T) {
	ix := NewIndex(4, testCanon())
	ix.Add(&models.AddressRecord{RID: "rid0001"}, &models.ParsedAddress{AOI: "高新创新园"})
	ix.Add(&models.AddressRecord{RID: "rid0002"}, &models.ParsedAddress{AOI: "高新创新园"})

	query := &models.AddressRecord{RID: "rid0003"}
	p := &models.ParsedAddress{AOI: "高新创新园"}

	// Only already-processed records come back.
	got := ix.CandidatesFor(query, p, map[string]bool{"rid0001": true}, "", 0)
	assert.Equal(t, []string{"rid0001"}, got)

	got = ix.CandidatesFor(query, p, map[string]bool{}, "", 0)
	assert.Empty(t, got)
}

func TestCandidatesSelfExcludedAndTruncated(t *testing.T) {
	ix := NewIndex(4, testCanon())
	seen := make(map[string]bool)
	for _, rid := range []string{"rid0001", "rid0002", "rid0003", "rid0004"} {
		ix.Add(&models.AddressRecord{RID: rid}, &models.ParsedAddress{District: "蜀山区"})
		seen[rid] = true
	}

	self := &models.AddressRecord{RID: "rid0002"}
	p := &models.ParsedAddress{District: "蜀山区"}

	got := ix.CandidatesFor(self, p, seen, "", 0)
	assert.Equal(t, []string{"rid0001", "rid0003", "rid0004"}, got)

	// Truncation happens after the deterministic sort.
	got = ix.CandidatesFor(self, p, seen, "", 2)
	assert.Equal(t, []string{"rid0001", "rid0003"}, got)
}
