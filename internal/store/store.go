// Package store is the tabular persistence boundary of the resolution
// engine. The pipeline is written against Repository; the Mongo
// implementation backs production runs and the in-memory one backs tests.
package store

import (
	"context"

	"github.com/address-audit/app/models"
)

// Collection (logical table) names shared by all implementations.
const (
	ColAddressRecords  = "address_records"
	ColParsedAddresses = "parsed_addresses"
	ColRoads           = "roads"
	ColPOIs            = "pois"
	ColAnchors         = "anchors"
	ColConflicts       = "conflicts"
	ColMatchLogs       = "match_logs"
	ColClusters        = "clusters"
	ColPairLabels      = "pair_labels"
)

// AllCollections lists every logical table, in seed-reset order.
var AllCollections = []string{
	ColAddressRecords, ColParsedAddresses, ColRoads, ColPOIs, ColAnchors,
	ColConflicts, ColMatchLogs, ColClusters, ColPairLabels,
}

// ClusterRow is one (cluster, member) row of the clusters table.
type ClusterRow struct {
	ClusterID string `json:"cluster_id" bson:"cluster_id"`
	RID       string `json:"rid" bson:"rid"`
}

// Repository is the keyed row store the pipeline owns exclusively for the
// duration of one run. Lookups that find nothing return (nil, nil); only
// transport or decode failures are errors.
type Repository interface {
	UpsertRecord(ctx context.Context, rec *models.AddressRecord) error
	ListRecords(ctx context.Context) ([]models.AddressRecord, error)
	GetRecord(ctx context.Context, rid string) (*models.AddressRecord, error)

	UpsertParsed(ctx context.Context, rid string, p *models.ParsedAddress) error
	GetParsed(ctx context.Context, rid string) (*models.ParsedAddress, error)

	UpsertRoad(ctx context.Context, road *models.Road) error
	ListRoads(ctx context.Context) ([]models.Road, error)
	UpsertPOI(ctx context.Context, poi *models.POI) error
	ListPOIs(ctx context.Context) ([]models.POI, error)
	UpsertAnchor(ctx context.Context, anc *models.Anchor) error
	FindAnchorByKey(ctx context.Context, keyText string) (*models.Anchor, error)

	InsertConflicts(ctx context.Context, conflicts []models.Conflict) error
	InsertMatchLog(ctx context.Context, log *models.MatchLog) error
	WriteClusters(ctx context.Context, clusters map[string][]string) error
	ListClusters(ctx context.Context) ([]ClusterRow, error)

	InsertPairLabels(ctx context.Context, labels []models.PairLabel) error
	ListPairLabels(ctx context.Context) ([]models.PairLabel, error)

	// Clear empties one logical table; seeding resets all of them.
	Clear(ctx context.Context, collection string) error
	Close(ctx context.Context) error
}
