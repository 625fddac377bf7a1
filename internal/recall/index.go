// Package recall implements candidate generation: geo bucketing plus five
// inverted indexes (district, canonical AOI, building, canonical road, geo
// bucket) that pull a small candidate set out of the corpus before the
// expensive pair scoring runs.
package recall

import (
	"sort"
	"strconv"
	"strings"

	"github.com/address-audit/app/models"
	"github.com/address-audit/internal/alias"
	"github.com/address-audit/internal/textutil"
)

// Bucketer maps coordinates to grid keys at a fixed decimal precision.
// Identical coordinates always yield identical keys.
type Bucketer struct {
	Precision int
}

// Bucket returns "lat_lon" with both coordinates rounded to the configured
// precision.
func (b Bucketer) Bucket(lat, lon float64) string {
	return textutil.FormatCoord(lat, b.Precision) + "_" + textutil.FormatCoord(lon, b.Precision)
}

// RecordBucket buckets a record's own coordinates; empty when absent.
func (b Bucketer) RecordBucket(rec *models.AddressRecord) string {
	if !rec.HasCoords() {
		return ""
	}
	return b.Bucket(*rec.Lat, *rec.Lon)
}

// Neighbors returns the 3×3 grid of buckets around (and including) the given
// bucket, stepped by one grid cell. Malformed keys return themselves.
func (b Bucketer) Neighbors(bucket string) []string {
	parts := strings.SplitN(bucket, "_", 2)
	if len(parts) != 2 {
		return []string{bucket}
	}
	lat, err1 := strconv.ParseFloat(parts[0], 64)
	lon, err2 := strconv.ParseFloat(parts[1], 64)
	if err1 != nil || err2 != nil {
		return []string{bucket}
	}
	step := 1.0
	for i := 0; i < b.Precision; i++ {
		step /= 10
	}
	out := make([]string, 0, 9)
	for _, dLat := range []float64{-step, 0, step} {
		for _, dLon := range []float64{-step, 0, step} {
			out = append(out, b.Bucket(lat+dLat, lon+dLon))
		}
	}
	return out
}

// InNeighborhood reports whether bucket lies in the 3×3 neighborhood of
// center.
func (b Bucketer) InNeighborhood(center, bucket string) bool {
	for _, nb := range b.Neighbors(center) {
		if nb == bucket {
			return true
		}
	}
	return false
}

// Index is the set of inverted maps used for candidate recall. It is built
// once per pipeline run and read-only afterwards.
type Index struct {
	bucketer Bucketer
	canon    *alias.Canonicalizer

	district map[string][]string
	aoi      map[string][]string
	building map[string][]string
	road     map[string][]string
	geo      map[string][]string
}

// NewIndex creates an empty candidate index. The canonicalizer keeps alias
// variants of the same AOI or road in one bucket.
func NewIndex(precision int, canon *alias.Canonicalizer) *Index {
	return &Index{
		bucketer: Bucketer{Precision: precision},
		canon:    canon,
		district: make(map[string][]string),
		aoi:      make(map[string][]string),
		building: make(map[string][]string),
		road:     make(map[string][]string),
		geo:      make(map[string][]string),
	}
}

// Bucketer exposes the index's grid so callers share one precision.
func (ix *Index) Bucketer() Bucketer { return ix.bucketer }

// Add indexes one (record, parsed) pair under every available key.
func (ix *Index) Add(rec *models.AddressRecord, p *models.ParsedAddress) {
	rid := rec.RID
	if p != nil {
		if p.District != "" {
			ix.district[p.District] = append(ix.district[p.District], rid)
		}
		if p.AOI != "" {
			key := textutil.KeyNorm(ix.canon.AOI(p.AOI))
			ix.aoi[key] = append(ix.aoi[key], rid)
		}
		if p.Building != "" {
			key := strings.ToUpper(p.Building)
			ix.building[key] = append(ix.building[key], rid)
		}
		if p.Road != "" {
			key := textutil.KeyNorm(ix.canon.Road(p.Road))
			ix.road[key] = append(ix.road[key], rid)
		}
	}
	if g := ix.bucketer.RecordBucket(rec); g != "" {
		ix.geo[g] = append(ix.geo[g], rid)
	}
}

// CandidatesFor unions the memberships of every index the query record hits,
// expands the record's own geo bucket and the optional anchor bucket to their
// 3×3 neighborhoods, drops the query itself, and keeps only records already
// processed (the seen set enforces left-to-right causality). The result is
// sorted by rid for determinism and truncated to maxCandidates.
func (ix *Index) CandidatesFor(rec *models.AddressRecord, p *models.ParsedAddress,
	seen map[string]bool, anchorBucket string, maxCandidates int) []string {

	cand := make(map[string]bool)
	collect := func(rids []string) {
		for _, rid := range rids {
			cand[rid] = true
		}
	}

	if p != nil {
		if p.District != "" {
			collect(ix.district[p.District])
		}
		if p.AOI != "" {
			collect(ix.aoi[textutil.KeyNorm(ix.canon.AOI(p.AOI))])
		}
		if p.Building != "" {
			collect(ix.building[strings.ToUpper(p.Building)])
		}
		if p.Road != "" {
			collect(ix.road[textutil.KeyNorm(ix.canon.Road(p.Road))])
		}
	}
	if g := ix.bucketer.RecordBucket(rec); g != "" {
		for _, nb := range ix.bucketer.Neighbors(g) {
			collect(ix.geo[nb])
		}
	}
	if anchorBucket != "" {
		for _, nb := range ix.bucketer.Neighbors(anchorBucket) {
			collect(ix.geo[nb])
		}
	}

	delete(cand, rec.RID)
	out := make([]string, 0, len(cand))
	for rid := range cand {
		if seen[rid] {
			out = append(out, rid)
		}
	}
	sort.Strings(out)
	if maxCandidates > 0 && len(out) > maxCandidates {
		out = out[:maxCandidates]
	}
	return out
}
