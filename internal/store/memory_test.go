package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/address-audit/app/models"
)

func TestRecordRoundTrip(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	require.NoError(t, m.UpsertRecord(ctx, &models.AddressRecord{RID: "rid0001", RawAddress: "合肥市蜀山区创新大道66号"}))
	require.NoError(t, m.UpsertRecord(ctx, &models.AddressRecord{RID: "rid0002", RawAddress: "合肥市蜀山区科学大道88号"}))

	rec, err := m.GetRecord(ctx, "rid0001")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "合肥市蜀山区创新大道66号", rec.RawAddress)

	missing, err := m.GetRecord(ctx, "rid9999")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestListRecordsPreservesInsertionOrder(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	for _, rid := range []string{"rid0003", "rid0001", "rid0002"} {
		require.NoError(t, m.UpsertRecord(ctx, &models.AddressRecord{RID: rid}))
	}

	records, err := m.ListRecords(ctx)
	require.NoError(t, err)
	rids := make([]string, len(records))
	for i, r := range records {
		rids[i] = r.RID
	}
	assert.Equal(t, []string{"rid0003", "rid0001", "rid0002"}, rids)

	// Re-upserting must not duplicate or reorder.
	require.NoError(t, m.UpsertRecord(ctx, &models.AddressRecord{RID: "rid0003", Source: "manual"}))
	records, err = m.ListRecords(ctx)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "rid0003", records[0].RID)
	assert.Equal(t, "manual", records[0].Source)
}

func TestUpsertKeepsCreatedAt(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	created := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, m.UpsertRecord(ctx, &models.AddressRecord{RID: "rid0001", CreatedAt: created}))
	require.NoError(t, m.UpsertRecord(ctx, &models.AddressRecord{RID: "rid0001", Source: "crm"}))

	rec, err := m.GetRecord(ctx, "rid0001")
	require.NoError(t, err)
	assert.Equal(t, created, rec.CreatedAt)
}

func TestParsedRoundTrip(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	p := &models.ParsedAddress{District: "蜀山区", AOI: "高新创新园", Building: "F9A"}
	require.NoError(t, m.UpsertParsed(ctx, "rid0001", p))

	got, err := m.GetParsed(ctx, "rid0001")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "高新创新园", got.AOI)

	none, err := m.GetParsed(ctx, "rid0002")
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestFindAnchorByKey(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	lat, lon := 31.8204, 117.1292

	require.NoError(t, m.UpsertAnchor(ctx, &models.Anchor{
		AnchorID: "a1", KeyText: "天波路|科学大道", Lat: &lat, Lon: &lon,
	}))

	anc, err := m.FindAnchorByKey(ctx, "天波路|科学大道")
	require.NoError(t, err)
	require.NotNil(t, anc)
	assert.Equal(t, "a1", anc.AnchorID)

	missing, err := m.FindAnchorByKey(ctx, "不存在|路口")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestClustersRoundTrip(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	require.NoError(t, m.WriteClusters(ctx, map[string][]string{
		"rid0001": {"rid0001", "rid0002"},
		"rid0003": {"rid0003"},
	}))

	rows, err := m.ListClusters(ctx)
	require.NoError(t, err)
	assert.Len(t, rows, 3)

	// A rewrite replaces, never appends.
	require.NoError(t, m.WriteClusters(ctx, map[string][]string{"rid0001": {"rid0001"}}))
	rows, err = m.ListClusters(ctx)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestClearSingleCollection(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	require.NoError(t, m.UpsertRecord(ctx, &models.AddressRecord{RID: "rid0001"}))
	require.NoError(t, m.InsertPairLabels(ctx, []models.PairLabel{{RID1: "rid0001", RID2: "rid0002", Label: 1}}))

	require.NoError(t, m.Clear(ctx, ColPairLabels))
	labels, err := m.ListPairLabels(ctx)
	require.NoError(t, err)
	assert.Empty(t, labels)

	records, err := m.ListRecords(ctx)
	require.NoError(t, err)
	assert.Len(t, records, 1)

	assert.Error(t, m.Clear(ctx, "no_such_table"))
}

func TestClearAllCollections(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	require.NoError(t, m.UpsertRecord(ctx, &models.AddressRecord{RID: "rid0001"}))
	require.NoError(t, m.UpsertRoad(ctx, &models.Road{RoadID: "r1", Name: "创新大道"}))
	for _, col := range AllCollections {
		require.NoError(t, m.Clear(ctx, col))
	}

	records, err := m.ListRecords(ctx)
	require.NoError(t, err)
	assert.Empty(t, records)
	roads, err := m.ListRoads(ctx)
	require.NoError(t, err)
	assert.Empty(t, roads)
}
