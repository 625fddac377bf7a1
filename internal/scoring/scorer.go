// Package scoring extracts pairwise feature scores between two address
// records and folds them into a single weighted similarity with a tri-valued
// decision.
package scoring

import (
	"strings"

	"github.com/address-audit/app/models"
	"github.com/address-audit/internal/textutil"
)

// Default thresholds, used when the configured map omits a key.
const (
	DefaultSameThreshold   = 0.78
	DefaultUnsureThreshold = 0.55
)

// Feature names as they appear in weight maps and feature-score outputs.
const (
	FeatureDistrict       = "district"
	FeatureAOI            = "aoi"
	FeatureBuilding       = "building"
	FeatureFloor          = "floor"
	FeatureRoom           = "room"
	FeatureRoad           = "road"
	FeatureShop           = "shop"
	FeatureGeo            = "geo"
	FeatureRelativeAnchor = "relative_anchor"
)

// Scorer computes the weighted feature similarity of a record pair.
// Scoring is symmetric and a pure function of its inputs.
type Scorer struct {
	weights  map[string]float64
	sameTh   float64
	unsureTh float64
}

// NewScorer builds a Scorer from the configured weight and threshold maps.
func NewScorer(weights map[string]float64, thresholds map[string]float64) *Scorer {
	s := &Scorer{
		weights:  weights,
		sameTh:   DefaultSameThreshold,
		unsureTh: DefaultUnsureThreshold,
	}
	if v, ok := thresholds["same"]; ok {
		s.sameTh = v
	}
	if v, ok := thresholds["unsure"]; ok {
		s.unsureTh = v
	}
	return s
}

// ScorePair extracts feature scores for the pair and returns the weighted
// average plus the threshold decision. anchorBonus is the external
// relative-anchor evidence in [0,1]; the caller owns its computation.
func (s *Scorer) ScorePair(r1 *models.AddressRecord, p1 *models.ParsedAddress,
	r2 *models.AddressRecord, p2 *models.ParsedAddress, anchorBonus float64) models.MatchResult {

	fs := map[string]float64{
		FeatureDistrict:       exactMatch(p1.District, p2.District),
		FeatureAOI:            bigramTrigramSim(p1.AOI, p2.AOI),
		FeatureBuilding:       foldedMatch(p1.Building, p2.Building),
		FeatureFloor:          exactMatch(p1.Floor, p2.Floor),
		FeatureRoom:           exactMatch(p1.Room, p2.Room),
		FeatureRoad:           roadSim(p1, p2),
		FeatureShop:           bigramTrigramSim(p1.ShopName, p2.ShopName),
		FeatureGeo:            geoSim(r1, r2),
		FeatureRelativeAnchor: anchorBonus,
	}

	denom := 0.0
	num := 0.0
	for name, w := range s.weights {
		if w > 0 {
			denom += w
		}
		num += w * fs[name]
	}
	if denom == 0 {
		denom = 1.0
	}
	score := num / denom

	decision := models.DecisionDifferent
	switch {
	case score >= s.sameTh:
		decision = models.DecisionSame
	case score >= s.unsureTh:
		decision = models.DecisionUnsure
	}

	return models.MatchResult{
		Decision:      decision,
		Score:         score,
		FeatureScores: fs,
		Evidence:      map[string]interface{}{},
	}
}

func exactMatch(a, b string) float64 {
	if a != "" && b != "" && a == b {
		return 1.0
	}
	return 0.0
}

func foldedMatch(a, b string) float64 {
	if a != "" && b != "" && strings.EqualFold(a, b) {
		return 1.0
	}
	return 0.0
}

// bigramTrigramSim is the max of 2-gram and 3-gram Jaccard; 0 when either
// side is absent.
func bigramTrigramSim(a, b string) float64 {
	if a == "" || b == "" {
		return 0.0
	}
	sim := textutil.Jaccard(a, b, 2)
	if t := textutil.Jaccard(a, b, 3); t > sim {
		sim = t
	}
	return sim
}

// roadSim combines road-name bigram similarity with an exact road-number
// match; either alone is enough for full credit on the number side.
func roadSim(p1, p2 *models.ParsedAddress) float64 {
	sim := 0.0
	if p1.Road != "" && p2.Road != "" {
		sim = textutil.Jaccard(p1.Road, p2.Road, 2)
	}
	if p1.RoadNo != "" && p2.RoadNo != "" && p1.RoadNo == p2.RoadNo {
		sim = 1.0
	}
	return sim
}

func geoSim(r1, r2 *models.AddressRecord) float64 {
	if !r1.HasCoords() || !r2.HasCoords() {
		return 0.0
	}
	return textutil.GeoScore(textutil.Haversine(*r1.Lat, *r1.Lon, *r2.Lat, *r2.Lon))
}
