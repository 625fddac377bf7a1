package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/address-audit/app/config"
	"github.com/address-audit/app/models"
	"github.com/address-audit/app/responses"
	"github.com/address-audit/internal/alias"
	"github.com/address-audit/internal/anchor"
	"github.com/address-audit/internal/cluster"
	"github.com/address-audit/internal/conflict"
	"github.com/address-audit/internal/external"
	"github.com/address-audit/internal/judge"
	"github.com/address-audit/internal/recall"
	"github.com/address-audit/internal/scoring"
	"github.com/address-audit/internal/store"
	"github.com/address-audit/internal/textutil"
)

// scoreConcurrency bounds the parallel pair scoring per query record.
const scoreConcurrency = 8

// Parser turns raw address text into structured fields. The pipeline treats
// errors and unavailability the same way: degrade, never abort.
type Parser interface {
	Parse(ctx context.Context, raw string) (*models.ParsedAddress, error)
	ParseBatch(ctx context.Context, raws []string) ([]*models.ParsedAddress, error)
	Available() bool
}

// PipelineService orchestrates the resolution run: parse, conflict-check,
// index, recall, score, judge, cluster. It also serves the stateless
// pair comparison.
type PipelineService struct {
	cfg     *config.Config
	repo    store.Repository
	parser  Parser
	canon   *alias.Canonicalizer
	scorer  *scoring.Scorer
	judge   *judge.Judge
	checker conflict.Checker
	cache   *ParseCacheService
	logger  *zap.Logger
}

// NewPipelineService wires the pipeline. parser, arbiter and cache may each
// be nil; the relevant step then degrades.
func NewPipelineService(cfg *config.Config, repo store.Repository, parser Parser,
	canon *alias.Canonicalizer, arbiter judge.Arbitrator, cache *ParseCacheService,
	logger *zap.Logger) *PipelineService {

	return &PipelineService{
		cfg:    cfg,
		repo:   repo,
		parser: parser,
		canon:  canon,
		scorer: scoring.NewScorer(cfg.Weights, cfg.Thresholds),
		judge:  judge.New(arbiter, logger),
		cache:  cache,
		logger: logger,
	}
}

// parseOne produces structured fields for one raw text, degrading from the
// configured parser through libpostal down to normalized text only.
func (ps *PipelineService) parseOne(ctx context.Context, raw string) *models.ParsedAddress {
	if ps.parser != nil && ps.parser.Available() {
		p, err := ps.parser.Parse(ctx, raw)
		if err == nil {
			ps.canon.Apply(p)
			return p
		}
		ps.logger.Warn("parse failed, degrading", zap.String("raw", raw), zap.Error(err))
	}

	if ps.cfg.Parser.UseLibpostalFallback {
		if p, ok := external.ParseFallback(raw); ok {
			ps.canon.Apply(p)
			return p
		}
	}

	return &models.ParsedAddress{
		NormText: textutil.Normalize(raw),
		ParsedAt: time.Now().UTC(),
	}
}

// parseMissing parses several raw texts, batching them through the
// configured parser in one call when there is more than one. Entries the
// batch did not cover degrade through parseOne individually.
func (ps *PipelineService) parseMissing(ctx context.Context, raws []string) []*models.ParsedAddress {
	out := make([]*models.ParsedAddress, len(raws))
	if ps.parser != nil && ps.parser.Available() && len(raws) > 1 {
		batch, err := ps.parser.ParseBatch(ctx, raws)
		if err != nil {
			ps.logger.Warn("batch parse failed, degrading to per-record parses",
				zap.Int("n", len(raws)), zap.Error(err))
		} else if len(batch) == len(raws) {
			for i, p := range batch {
				if p != nil {
					ps.canon.Apply(p)
					out[i] = p
				}
			}
		}
	}
	for i, raw := range raws {
		if out[i] == nil {
			out[i] = ps.parseOne(ctx, raw)
		}
	}
	return out
}

// Run executes one full resolution pass over every stored record, in
// insertion order. Records parsed by an earlier run are reused as-is.
// useLLM lets the judge consult the arbitrator for ambiguous candidates.
func (ps *PipelineService) Run(ctx context.Context, useLLM bool) (*responses.RunSummary, error) {
	records, err := ps.repo.ListRecords(ctx)
	if err != nil {
		return nil, fmt.Errorf("load records: %w", err)
	}

	// A run recomputes its derived tables from scratch.
	for _, col := range []string{store.ColConflicts, store.ColMatchLogs, store.ColClusters} {
		if err := ps.repo.Clear(ctx, col); err != nil {
			return nil, fmt.Errorf("reset %s: %w", col, err)
		}
	}

	recByRID := make(map[string]*models.AddressRecord, len(records))
	parsedByRID := make(map[string]*models.ParsedAddress, len(records))

	var missing []int
	var missingRaws []string
	for i := range records {
		rec := &records[i]
		p, err := ps.repo.GetParsed(ctx, rec.RID)
		if err != nil {
			return nil, fmt.Errorf("load parsed %s: %w", rec.RID, err)
		}
		if p == nil {
			missing = append(missing, i)
			missingRaws = append(missingRaws, rec.RawAddress)
		}
		recByRID[rec.RID] = rec
		parsedByRID[rec.RID] = p
	}
	if len(missing) > 0 {
		for k, p := range ps.parseMissing(ctx, missingRaws) {
			rid := records[missing[k]].RID
			if err := ps.repo.UpsertParsed(ctx, rid, p); err != nil {
				return nil, fmt.Errorf("persist parsed %s: %w", rid, err)
			}
			parsedByRID[rid] = p
		}
	}

	var conflicts []models.Conflict
	for i := range records {
		rec := &records[i]
		conflicts = append(conflicts, ps.checker.Check(rec, parsedByRID[rec.RID])...)
	}

	if err := ps.repo.InsertConflicts(ctx, conflicts); err != nil {
		return nil, fmt.Errorf("persist conflicts: %w", err)
	}

	ix := recall.NewIndex(ps.cfg.GridPrecision, ps.canon)
	ids := make([]string, 0, len(records))
	for i := range records {
		rec := &records[i]
		ix.Add(rec, parsedByRID[rec.RID])
		ids = append(ids, rec.RID)
	}

	resolver := anchor.NewResolver(ps.repo, ix.Bucketer(), ps.logger)
	uf := cluster.NewUnionFind(ids)
	seen := make(map[string]bool, len(records))

	for i := range records {
		rec := &records[i]
		p := parsedByRID[rec.RID]

		anchorBucket, err := resolver.Bucket(ctx, p)
		if err != nil {
			return nil, fmt.Errorf("resolve anchor for %s: %w", rec.RID, err)
		}

		candRIDs := ix.CandidatesFor(rec, p, seen, anchorBucket, ps.cfg.CandidateMax)
		if len(candRIDs) == 0 {
			seen[rec.RID] = true
			continue
		}
		pre, err := ps.scoreCandidates(ctx, rec, p, candRIDs, recByRID, parsedByRID, anchorBucket, ix.Bucketer())
		if err != nil {
			return nil, err
		}

		top := pre
		if len(top) > ps.cfg.CandidateTopNForLLM {
			top = top[:ps.cfg.CandidateTopNForLLM]
		}
		pairs := make([]judge.Pair, len(top))
		results := make([]models.MatchResult, len(top))
		for j, sc := range top {
			pairs[j] = judge.Pair{Record: recByRID[sc.rid], Parsed: parsedByRID[sc.rid]}
			results[j] = sc.res
		}

		final := ps.judge.Judge(ctx, judge.Pair{Record: rec, Parsed: p}, pairs, results, useLLM)

		if final.Decision == models.DecisionSame && len(top) > 0 {
			bestRID, _ := final.Evidence["best_rid"].(string)
			if bestRID == "" {
				bestRID = top[0].rid
			}
			uf.Union(rec.RID, bestRID)
		}

		if err := ps.repo.InsertMatchLog(ctx, buildMatchLog(rec.RID, candRIDs, pre, final)); err != nil {
			return nil, fmt.Errorf("persist match log %s: %w", rec.RID, err)
		}
		seen[rec.RID] = true
	}

	groups := uf.Groups()
	clusters := make(map[string][]string, len(groups))
	for root, members := range groups {
		clusters["cluster_"+root] = members
	}
	if err := ps.repo.WriteClusters(ctx, clusters); err != nil {
		return nil, fmt.Errorf("persist clusters: %w", err)
	}

	nGt1 := 0
	for _, members := range groups {
		if len(members) > 1 {
			nGt1++
		}
	}
	summary := &responses.RunSummary{
		NRecords:     len(records),
		NConflicts:   len(conflicts),
		NClustersGt1: nGt1,
	}
	ps.logger.Info("pipeline run complete",
		zap.Int("n_records", summary.NRecords),
		zap.Int("n_conflicts", summary.NConflicts),
		zap.Int("n_clusters_gt1", summary.NClustersGt1))
	return summary, nil
}

type scoredCandidate struct {
	rid string
	res models.MatchResult
}

// scoreCandidates scores every recalled candidate in parallel and returns
// them sorted by score descending, rid ascending.
func (ps *PipelineService) scoreCandidates(ctx context.Context, rec *models.AddressRecord,
	p *models.ParsedAddress, candRIDs []string, recByRID map[string]*models.AddressRecord,
	parsedByRID map[string]*models.ParsedAddress, anchorBucket string,
	bucketer recall.Bucketer) ([]scoredCandidate, error) {

	out := make([]scoredCandidate, len(candRIDs))
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(scoreConcurrency)
	for i, rid := range candRIDs {
		i, rid := i, rid
		g.Go(func() error {
			cand := recByRID[rid]
			bonus := 0.0
			if anchorBucket != "" {
				if cb := bucketer.RecordBucket(cand); cb != "" && bucketer.InNeighborhood(anchorBucket, cb) {
					bonus = 1.0
				}
			}
			out[i] = scoredCandidate{
				rid: rid,
				res: ps.scorer.ScorePair(rec, p, cand, parsedByRID[rid], bonus),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.SliceStable(out, func(a, b int) bool {
		if out[a].res.Score != out[b].res.Score {
			return out[a].res.Score > out[b].res.Score
		}
		return out[a].rid < out[b].rid
	})
	return out, nil
}

// buildMatchLog rounds scores to 4 decimals so the audit trail is stable
// across architectures.
func buildMatchLog(rid string, candRIDs []string, pre []scoredCandidate, final models.MatchResult) *models.MatchLog {
	preScores := make([]models.PreScore, len(pre))
	for i, sc := range pre {
		feats := make(map[string]float64, len(sc.res.FeatureScores))
		for name, v := range sc.res.FeatureScores {
			feats[name] = textutil.RoundTo(v, 4)
		}
		preScores[i] = models.PreScore{
			RID:      sc.rid,
			Decision: sc.res.Decision,
			Score:    textutil.RoundTo(sc.res.Score, 4),
			Features: feats,
		}
	}
	final.Score = textutil.RoundTo(final.Score, 4)
	return &models.MatchLog{
		RIDQuery:      rid,
		CandidateRIDs: candRIDs,
		PreScores:     preScores,
		Final:         final,
		CreatedAt:     time.Now().UTC(),
	}
}

// ComparePair judges two raw texts against each other without touching the
// stored corpus. Parses go through the cache when one is configured.
func (ps *PipelineService) ComparePair(ctx context.Context, addr1, addr2 string, useLLM bool) (*responses.CompareResponse, error) {
	addr1 = strings.TrimSpace(addr1)
	addr2 = strings.TrimSpace(addr2)
	if addr1 == "" || addr2 == "" {
		return nil, fmt.Errorf("both addresses are required")
	}

	p1 := ps.parseCached(ctx, addr1)
	p2 := ps.parseCached(ctx, addr2)
	r1 := &models.AddressRecord{RID: "addr1", RawAddress: addr1}
	r2 := &models.AddressRecord{RID: "addr2", RawAddress: addr2}

	pre := ps.scorer.ScorePair(r1, p1, r2, p2, 0)
	final := ps.judge.Judge(ctx,
		judge.Pair{Record: r1, Parsed: p1},
		[]judge.Pair{{Record: r2, Parsed: p2}},
		[]models.MatchResult{pre}, useLLM)

	return &responses.CompareResponse{
		Decision:      final.Decision,
		Score:         textutil.RoundTo(final.Score, 4),
		FeatureScores: pre.FeatureScores,
		Evidence:      final.Evidence,
		Addr1Parsed:   p1,
		Addr2Parsed:   p2,
		UseLLM:        useLLM,
	}, nil
}

func (ps *PipelineService) parseCached(ctx context.Context, raw string) *models.ParsedAddress {
	if ps.cache != nil {
		if p, ok := ps.cache.Get(ctx, raw); ok {
			return p
		}
	}
	p := ps.parseOne(ctx, raw)
	if ps.cache != nil {
		ps.cache.Set(ctx, raw, p)
	}
	return p
}
