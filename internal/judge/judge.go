// Package judge arbitrates the scorer's ranked candidates into one final
// verdict. Hard-reject rules (district conflicts) and hard-accept rules
// (strong structural agreement) run first; an optional LLM arbitrator breaks
// the remaining ties, falling back to the best pre-score when it has no
// opinion.
package judge

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/address-audit/app/models"
	"github.com/address-audit/internal/conflict"
	"github.com/address-audit/internal/textutil"
)

// Pair bundles a record with its parsed fields.
type Pair struct {
	Record *models.AddressRecord
	Parsed *models.ParsedAddress
}

// Verdict is an arbitrator's opinion on the ranked candidate list.
type Verdict struct {
	Decision models.Decision
	BestIdx  int
	Score    float64
	Reason   string
}

// Arbitrator is the optional LLM tiebreak. Errors are treated as "no
// opinion" by the judge.
type Arbitrator interface {
	Arbitrate(ctx context.Context, query Pair, candidates []Pair, preScores []models.MatchResult) (*Verdict, error)
}

// Whitelist thresholds: AOI bigram similarity and geo score strong enough to
// corroborate a building+floor agreement.
const (
	whitelistAOISim   = 0.65
	whitelistGeoScore = 0.7
)

// Judge produces the final match decision for one query record.
type Judge struct {
	arbiter Arbitrator
	checker conflict.Checker
	logger  *zap.Logger
}

// New builds a Judge. arbiter may be nil; the judge then never consults an
// LLM regardless of the per-call flag.
func New(arbiter Arbitrator, logger *zap.Logger) *Judge {
	return &Judge{arbiter: arbiter, logger: logger}
}

// Judge runs the rule-then-arbitration pass over candidates, which must
// arrive sorted by pre-score descending. useLLM is forwarded per call from
// the API or CLI; constructor state never decides it.
func (j *Judge) Judge(ctx context.Context, query Pair, candidates []Pair,
	preScores []models.MatchResult, useLLM bool) models.MatchResult {

	var (
		best        *models.MatchResult
		bestIdx     = -1
		blacklisted = make([]bool, len(candidates))
		blackReason string
	)

	for i, cand := range candidates {
		if reason, bad := j.checker.PairReason(query.Record, query.Parsed, cand.Record, cand.Parsed); bad {
			blacklisted[i] = true
			blackReason = reason
			continue
		}

		if j.whitelisted(query, cand) {
			score := preScores[i].Score
			if score < 0.90 {
				score = 0.90
			}
			return models.MatchResult{
				Decision:      models.DecisionSame,
				Score:         score,
				FeatureScores: preScores[i].FeatureScores,
				Evidence: map[string]interface{}{
					"judge":    "rule_whitelist",
					"best_rid": cand.Record.RID,
				},
			}
		}

		if best == nil || preScores[i].Score > best.Score {
			ms := preScores[i]
			best = &ms
			bestIdx = i
		}
	}

	if useLLM && j.arbiter != nil && len(candidates) > 0 {
		if res, ok := j.llmVerdict(ctx, query, candidates, preScores, blacklisted); ok {
			return res
		}
	}

	if best != nil {
		best.Evidence = map[string]interface{}{
			"judge":    "best_prescore",
			"best_rid": candidates[bestIdx].Record.RID,
		}
		return *best
	}

	if blackReason != "" {
		return models.MatchResult{
			Decision:      models.DecisionDifferent,
			Score:         0.0,
			FeatureScores: map[string]float64{},
			Evidence:      map[string]interface{}{"judge": "blacklist", "reason": blackReason},
		}
	}

	return models.MatchResult{
		Decision:      models.DecisionDifferent,
		Score:         0.0,
		FeatureScores: map[string]float64{},
		Evidence:      map[string]interface{}{"judge": "empty_candidates"},
	}
}

// whitelisted is the hard-accept rule: same building and floor, corroborated
// by an exact room, close coordinates, or a similar AOI.
func (j *Judge) whitelisted(query, cand Pair) bool {
	qp, cp := query.Parsed, cand.Parsed
	if qp == nil || cp == nil {
		return false
	}
	buildingOk := qp.Building != "" && cp.Building != "" &&
		strings.EqualFold(qp.Building, cp.Building)
	floorOk := qp.Floor != "" && qp.Floor == cp.Floor
	if !buildingOk || !floorOk {
		return false
	}

	roomOk := qp.Room != "" && qp.Room == cp.Room
	aoiOk := qp.AOI != "" && cp.AOI != "" && textutil.Jaccard(qp.AOI, cp.AOI, 2) >= whitelistAOISim

	geoOk := false
	if query.Record.HasCoords() && cand.Record.HasCoords() {
		d := textutil.Haversine(*query.Record.Lat, *query.Record.Lon, *cand.Record.Lat, *cand.Record.Lon)
		geoOk = textutil.GeoScore(d) >= whitelistGeoScore
	}
	return roomOk || geoOk || aoiOk
}

// llmVerdict consults the arbitrator. The second result is false when the
// arbitrator failed or returned an unusable index, in which case the caller
// falls through to the pre-score path.
func (j *Judge) llmVerdict(ctx context.Context, query Pair, candidates []Pair,
	preScores []models.MatchResult, blacklisted []bool) (models.MatchResult, bool) {

	verdict, err := j.arbiter.Arbitrate(ctx, query, candidates, preScores)
	if err != nil {
		j.logger.Warn("llm arbitration failed, falling back to pre-score",
			zap.String("rid", query.Record.RID), zap.Error(err))
		return models.MatchResult{}, false
	}
	if verdict == nil || verdict.BestIdx < 0 || verdict.BestIdx >= len(candidates) {
		return models.MatchResult{}, false
	}

	chosen := candidates[verdict.BestIdx]
	if verdict.Decision == models.DecisionSame && blacklisted[verdict.BestIdx] {
		reason, _ := j.checker.PairReason(query.Record, query.Parsed, chosen.Record, chosen.Parsed)
		return models.MatchResult{
			Decision:      models.DecisionDifferent,
			Score:         0.0,
			FeatureScores: preScores[verdict.BestIdx].FeatureScores,
			Evidence:      map[string]interface{}{"judge": "blacklist", "reason": reason},
		}, true
	}

	return models.MatchResult{
		Decision:      verdict.Decision,
		Score:         verdict.Score,
		FeatureScores: preScores[verdict.BestIdx].FeatureScores,
		Evidence: map[string]interface{}{
			"judge":    "llm",
			"reason":   verdict.Reason,
			"best_rid": chosen.Record.RID,
		},
	}, true
}
