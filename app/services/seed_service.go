package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/address-audit/app/responses"
	"github.com/address-audit/internal/search"
	"github.com/address-audit/internal/simulate"
	"github.com/address-audit/internal/store"
)

// SeedService resets the database and loads the synthetic corpus. The POI
// search index is populated best-effort when Meilisearch is configured.
type SeedService struct {
	repo     store.Repository
	poiIndex *search.POIIndex
	logger   *zap.Logger
}

// NewSeedService wires the seeder. poiIndex may be nil.
func NewSeedService(repo store.Repository, poiIndex *search.POIIndex, logger *zap.Logger) *SeedService {
	return &SeedService{repo: repo, poiIndex: poiIndex, logger: logger}
}

// Seed wipes every collection and writes the reference entities plus
// nEntities*variantsPerEntity noisy records and their ground-truth labels.
func (ss *SeedService) Seed(ctx context.Context, nEntities, variantsPerEntity int, seed int64) (*responses.SeedSummary, error) {
	for _, col := range store.AllCollections {
		if err := ss.repo.Clear(ctx, col); err != nil {
			return nil, fmt.Errorf("reset %s: %w", col, err)
		}
	}

	base := simulate.SeedBaseEntities()
	for i := range base.Roads {
		if err := ss.repo.UpsertRoad(ctx, &base.Roads[i]); err != nil {
			return nil, fmt.Errorf("seed road %s: %w", base.Roads[i].RoadID, err)
		}
	}
	for i := range base.POIs {
		if err := ss.repo.UpsertPOI(ctx, &base.POIs[i]); err != nil {
			return nil, fmt.Errorf("seed poi %s: %w", base.POIs[i].POIID, err)
		}
	}
	for i := range base.Anchors {
		if err := ss.repo.UpsertAnchor(ctx, &base.Anchors[i]); err != nil {
			return nil, fmt.Errorf("seed anchor %s: %w", base.Anchors[i].AnchorID, err)
		}
	}

	records, labels := simulate.GenerateAddressRecords(nEntities, variantsPerEntity, seed)
	for i := range records {
		if err := ss.repo.UpsertRecord(ctx, &records[i]); err != nil {
			return nil, fmt.Errorf("seed record %s: %w", records[i].RID, err)
		}
	}
	if err := ss.repo.InsertPairLabels(ctx, labels); err != nil {
		return nil, fmt.Errorf("seed pair labels: %w", err)
	}

	poiIndexed := false
	if ss.poiIndex != nil {
		if err := ss.poiIndex.Configure(); err != nil {
			ss.logger.Warn("poi index configure failed, skipping", zap.Error(err))
		} else if err := ss.poiIndex.SeedPOIs(base.POIs); err != nil {
			ss.logger.Warn("poi index seed failed, skipping", zap.Error(err))
		} else {
			poiIndexed = true
		}
	}

	summary := &responses.SeedSummary{
		NRoads:      len(base.Roads),
		NPOIs:       len(base.POIs),
		NAnchors:    len(base.Anchors),
		NRecords:    len(records),
		NPairLabels: len(labels),
		POIIndexed:  poiIndexed,
	}
	ss.logger.Info("seed complete",
		zap.Int("n_records", summary.NRecords),
		zap.Int("n_pair_labels", summary.NPairLabels),
		zap.Bool("poi_indexed", poiIndexed))
	return summary, nil
}
