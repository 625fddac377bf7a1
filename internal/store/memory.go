package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/address-audit/app/models"
)

// Memory is an in-process Repository. It keeps record insertion order, which
// is what makes pipeline runs over it deterministic.
type Memory struct {
	mu sync.Mutex

	recordOrder []string
	records     map[string]models.AddressRecord
	parsed      map[string]models.ParsedAddress
	roads       map[string]models.Road
	pois        map[string]models.POI
	anchors     map[string]models.Anchor
	conflicts   []models.Conflict
	matchLogs   []models.MatchLog
	clusters    []ClusterRow
	pairLabels  []models.PairLabel
}

// NewMemory returns an empty in-memory repository.
func NewMemory() *Memory {
	m := &Memory{}
	m.reset()
	return m
}

func (m *Memory) reset() {
	m.recordOrder = nil
	m.records = make(map[string]models.AddressRecord)
	m.parsed = make(map[string]models.ParsedAddress)
	m.roads = make(map[string]models.Road)
	m.pois = make(map[string]models.POI)
	m.anchors = make(map[string]models.Anchor)
	m.conflicts = nil
	m.matchLogs = nil
	m.clusters = nil
	m.pairLabels = nil
}

func (m *Memory) UpsertRecord(_ context.Context, rec *models.AddressRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := *rec
	if existing, ok := m.records[r.RID]; ok {
		r.CreatedAt = existing.CreatedAt
	} else {
		if r.CreatedAt.IsZero() {
			r.CreatedAt = time.Now().UTC()
		}
		m.recordOrder = append(m.recordOrder, r.RID)
	}
	m.records[r.RID] = r
	return nil
}

func (m *Memory) ListRecords(_ context.Context) ([]models.AddressRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.AddressRecord, 0, len(m.recordOrder))
	for _, rid := range m.recordOrder {
		out = append(out, m.records[rid])
	}
	return out, nil
}

func (m *Memory) GetRecord(_ context.Context, rid string) (*models.AddressRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.records[rid]; ok {
		return &r, nil
	}
	return nil, nil
}

func (m *Memory) UpsertParsed(_ context.Context, rid string, p *models.ParsedAddress) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	if cp.ParsedAt.IsZero() {
		cp.ParsedAt = time.Now().UTC()
	}
	m.parsed[rid] = cp
	return nil
}

func (m *Memory) GetParsed(_ context.Context, rid string) (*models.ParsedAddress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.parsed[rid]; ok {
		return &p, nil
	}
	return nil, nil
}

func (m *Memory) UpsertRoad(_ context.Context, road *models.Road) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.roads[road.RoadID] = *road
	return nil
}

func (m *Memory) ListRoads(_ context.Context) ([]models.Road, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Road, 0, len(m.roads))
	for _, r := range m.roads {
		out = append(out, r)
	}
	return out, nil
}

func (m *Memory) UpsertPOI(_ context.Context, poi *models.POI) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pois[poi.POIID] = *poi
	return nil
}

func (m *Memory) ListPOIs(_ context.Context) ([]models.POI, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.POI, 0, len(m.pois))
	for _, p := range m.pois {
		out = append(out, p)
	}
	return out, nil
}

func (m *Memory) UpsertAnchor(_ context.Context, anc *models.Anchor) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.anchors[anc.AnchorID] = *anc
	return nil
}

func (m *Memory) FindAnchorByKey(_ context.Context, keyText string) (*models.Anchor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.anchors {
		if a.KeyText == keyText {
			found := a
			return &found, nil
		}
	}
	return nil, nil
}

func (m *Memory) InsertConflicts(_ context.Context, conflicts []models.Conflict) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.conflicts = append(m.conflicts, conflicts...)
	return nil
}

func (m *Memory) InsertMatchLog(_ context.Context, log *models.MatchLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.matchLogs = append(m.matchLogs, *log)
	return nil
}

// MatchLogs returns the accumulated match logs; test helper.
func (m *Memory) MatchLogs() []models.MatchLog {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.MatchLog, len(m.matchLogs))
	copy(out, m.matchLogs)
	return out
}

func (m *Memory) WriteClusters(_ context.Context, clusters map[string][]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clusters = nil
	for cid, rids := range clusters {
		for _, rid := range rids {
			m.clusters = append(m.clusters, ClusterRow{ClusterID: cid, RID: rid})
		}
	}
	return nil
}

// Clusters returns the written cluster rows; test helper.
func (m *Memory) Clusters() []ClusterRow {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]ClusterRow, len(m.clusters))
	copy(out, m.clusters)
	return out
}

func (m *Memory) ListClusters(_ context.Context) ([]ClusterRow, error) {
	return m.Clusters(), nil
}

func (m *Memory) InsertPairLabels(_ context.Context, labels []models.PairLabel) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pairLabels = append(m.pairLabels, labels...)
	return nil
}

func (m *Memory) ListPairLabels(_ context.Context) ([]models.PairLabel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.PairLabel, len(m.pairLabels))
	copy(out, m.pairLabels)
	return out, nil
}

func (m *Memory) Clear(_ context.Context, collection string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch collection {
	case ColAddressRecords:
		m.recordOrder = nil
		m.records = make(map[string]models.AddressRecord)
	case ColParsedAddresses:
		m.parsed = make(map[string]models.ParsedAddress)
	case ColRoads:
		m.roads = make(map[string]models.Road)
	case ColPOIs:
		m.pois = make(map[string]models.POI)
	case ColAnchors:
		m.anchors = make(map[string]models.Anchor)
	case ColConflicts:
		m.conflicts = nil
	case ColMatchLogs:
		m.matchLogs = nil
	case ColClusters:
		m.clusters = nil
	case ColPairLabels:
		m.pairLabels = nil
	default:
		return fmt.Errorf("unknown collection: %s", collection)
	}
	return nil
}

func (m *Memory) Close(_ context.Context) error { return nil }

var _ Repository = (*Memory)(nil)
