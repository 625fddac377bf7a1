package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/address-audit/app/config"
	"github.com/address-audit/app/models"
	"github.com/address-audit/app/responses"
	"github.com/address-audit/internal/scoring"
	"github.com/address-audit/internal/store"
	"github.com/address-audit/internal/textutil"
)

// EvaluateService measures resolution quality against the labeled pairs.
type EvaluateService struct {
	cfg    *config.Config
	repo   store.Repository
	logger *zap.Logger
}

func NewEvaluateService(cfg *config.Config, repo store.Repository, logger *zap.Logger) *EvaluateService {
	return &EvaluateService{cfg: cfg, repo: repo, logger: logger}
}

// EvaluateCurrent scores every labeled pair directly with the configured
// weights and thresholds; a pair is predicted positive iff the scorer says
// SAME. Pairs whose records are missing are skipped.
func (es *EvaluateService) EvaluateCurrent(ctx context.Context) (*responses.EvalMetrics, error) {
	pairs, err := es.loadPairs(ctx)
	if err != nil {
		return nil, err
	}

	scorer := scoring.NewScorer(es.cfg.Weights, es.cfg.Thresholds)
	m := scorePairs(scorer, pairs)
	es.logger.Info("evaluation complete",
		zap.Int("tp", m.TP), zap.Int("fp", m.FP),
		zap.Int("tn", m.TN), zap.Int("fn", m.FN),
		zap.Float64("f1", m.F1))
	return m, nil
}

// Grid-search space. Weight scales multiply the configured base weights.
var (
	sameGrid    = []float64{0.70, 0.74, 0.78, 0.82}
	unsureGrid  = []float64{0.50, 0.55, 0.60}
	weightGrids = []map[string]float64{
		{},
		{scoring.FeatureGeo: 1.5},
		{scoring.FeatureGeo: 0.5},
		{scoring.FeatureBuilding: 1.3, scoring.FeatureFloor: 1.3},
		{scoring.FeatureAOI: 1.5},
	}
)

type pairData struct {
	r1, r2 *models.AddressRecord
	p1, p2 *models.ParsedAddress
	label  int
}

// loadPairs materializes every labeled pair that still has both records.
// Records without a stored parse fall back to normalized text only.
func (es *EvaluateService) loadPairs(ctx context.Context) ([]pairData, error) {
	labels, err := es.repo.ListPairLabels(ctx)
	if err != nil {
		return nil, fmt.Errorf("load pair labels: %w", err)
	}
	if len(labels) == 0 {
		return nil, fmt.Errorf("no pair labels to evaluate")
	}

	pairs := make([]pairData, 0, len(labels))
	for _, lb := range labels {
		r1, err := es.repo.GetRecord(ctx, lb.RID1)
		if err != nil {
			return nil, err
		}
		r2, err := es.repo.GetRecord(ctx, lb.RID2)
		if err != nil {
			return nil, err
		}
		if r1 == nil || r2 == nil {
			continue
		}
		p1, err := es.repo.GetParsed(ctx, lb.RID1)
		if err != nil {
			return nil, err
		}
		p2, err := es.repo.GetParsed(ctx, lb.RID2)
		if err != nil {
			return nil, err
		}
		if p1 == nil {
			p1 = &models.ParsedAddress{NormText: textutil.Normalize(r1.RawAddress)}
		}
		if p2 == nil {
			p2 = &models.ParsedAddress{NormText: textutil.Normalize(r2.RawAddress)}
		}
		pairs = append(pairs, pairData{r1: r1, r2: r2, p1: p1, p2: p2, label: lb.Label})
	}
	return pairs, nil
}

// scorePairs runs one scorer over the pairs and tallies the confusion
// matrix, predicting positive on a SAME decision.
func scorePairs(scorer *scoring.Scorer, pairs []pairData) *responses.EvalMetrics {
	m := &responses.EvalMetrics{}
	for _, pd := range pairs {
		res := scorer.ScorePair(pd.r1, pd.p1, pd.r2, pd.p2, 0)
		pred := res.Decision == models.DecisionSame
		switch {
		case pred && pd.label == 1:
			m.TP++
		case pred && pd.label != 1:
			m.FP++
		case !pred && pd.label == 1:
			m.FN++
		default:
			m.TN++
		}
	}
	fillRates(m)
	return m
}

// GridSearch sweeps thresholds and weight scalings over the labeled pairs
// and returns the configuration with the best F1. Combinations where the
// unsure threshold is not strictly below the same threshold are skipped.
func (es *EvaluateService) GridSearch(ctx context.Context) (*responses.GridSearchResult, error) {
	pairs, err := es.loadPairs(ctx)
	if err != nil {
		return nil, err
	}

	best := &responses.GridSearchResult{}
	for _, scale := range weightGrids {
		weights := scaledWeights(es.cfg.Weights, scale)
		for _, sameTh := range sameGrid {
			for _, unsureTh := range unsureGrid {
				if unsureTh >= sameTh {
					continue
				}
				best.Combinations++
				scorer := scoring.NewScorer(weights, map[string]float64{"same": sameTh, "unsure": unsureTh})
				m := scorePairs(scorer, pairs)

				if best.BestThresholds == nil || m.F1 > best.Best.F1 {
					best.Best = *m
					best.BestWeights = weights
					best.BestThresholds = map[string]float64{"same": sameTh, "unsure": unsureTh}
				}
			}
		}
	}
	es.logger.Info("grid search complete",
		zap.Int("combinations", best.Combinations),
		zap.Float64("best_f1", best.Best.F1),
		zap.Any("best_thresholds", best.BestThresholds))
	return best, nil
}

func scaledWeights(base, scale map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(base))
	for name, w := range base {
		if s, ok := scale[name]; ok {
			w *= s
		}
		out[name] = w
	}
	return out
}

func fillRates(m *responses.EvalMetrics) {
	if m.TP+m.FP > 0 {
		m.Precision = float64(m.TP) / float64(m.TP+m.FP)
	}
	if m.TP+m.FN > 0 {
		m.Recall = float64(m.TP) / float64(m.TP+m.FN)
	}
	if m.Precision+m.Recall > 0 {
		m.F1 = 2 * m.Precision * m.Recall / (m.Precision + m.Recall)
	}
}
