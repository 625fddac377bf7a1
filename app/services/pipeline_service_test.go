package services

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/address-audit/app/config"
	"github.com/address-audit/app/models"
	"github.com/address-audit/internal/alias"
	"github.com/address-audit/internal/store"
)

func testCanon() *alias.Canonicalizer {
	return alias.NewCanonicalizer(
		alias.Map{"高新创新园": {"创新园", "合肥高新创新园"}},
		alias.Map{"创新大道": {"创新大街"}},
	)
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Parser.UseLibpostalFallback = false
	return cfg
}

func seedRecord(t *testing.T, repo *store.Memory, rid, grid string, lat, lon float64, p *models.ParsedAddress) {
	t.Helper()
	ctx := context.Background()
	rec := &models.AddressRecord{
		RID:          rid,
		Source:       "manual",
		RawAddress:   "合肥市蜀山区创新大道66号 高新创新园 F9A 2楼 203室",
		GridDistrict: grid,
		Lat:          &lat,
		Lon:          &lon,
	}
	require.NoError(t, repo.UpsertRecord(ctx, rec))
	require.NoError(t, repo.UpsertParsed(ctx, rid, p))
}

func sameLocationParsed() *models.ParsedAddress {
	return &models.ParsedAddress{
		District: "蜀山区",
		AOI:      "高新创新园",
		Road:     "创新大道",
		RoadNo:   "66",
		Building: "F9A",
		Floor:    "2",
		Room:     "203",
	}
}

func TestRunClustersTransitively(t *testing.T) {
	ctx := context.Background()
	repo := store.NewMemory()

	seedRecord(t, repo, "rid0001", "蜀山区", 31.8200, 117.1299, sameLocationParsed())
	seedRecord(t, repo, "rid0002", "蜀山区", 31.8201, 117.1300, sameLocationParsed())
	seedRecord(t, repo, "rid0003", "蜀山区", 31.8200, 117.1298, sameLocationParsed())
	// A different location whose grid district contradicts its parsed text.
	seedRecord(t, repo, "rid0004", "蜀山区", 31.9100, 117.2200, &models.ParsedAddress{
		District: "瑶海区",
		AOI:      "某某家园",
		Building: "B7",
	})

	ps := NewPipelineService(testConfig(), repo, nil, testCanon(), nil, nil, zap.NewNop())
	summary, err := ps.Run(ctx, false)
	require.NoError(t, err)

	assert.Equal(t, 4, summary.NRecords)
	assert.Equal(t, 1, summary.NConflicts)
	assert.Equal(t, 1, summary.NClustersGt1)

	rows, err := repo.ListClusters(ctx)
	require.NoError(t, err)
	byCluster := make(map[string][]string)
	for _, row := range rows {
		// Cluster ids are the union-find root with a cluster_ prefix.
		assert.True(t, strings.HasPrefix(row.ClusterID, "cluster_"), row.ClusterID)
		byCluster[row.ClusterID] = append(byCluster[row.ClusterID], row.RID)
	}
	var bigID string
	var big []string
	for id, members := range byCluster {
		if len(members) > 1 {
			bigID, big = id, members
		}
	}
	assert.ElementsMatch(t, []string{"rid0001", "rid0002", "rid0003"}, big)
	assert.Contains(t, big, strings.TrimPrefix(bigID, "cluster_"))
}

func TestRunCausalityInMatchLogs(t *testing.T) {
	ctx := context.Background()
	repo := store.NewMemory()

	seedRecord(t, repo, "rid0001", "蜀山区", 31.8200, 117.1299, sameLocationParsed())
	seedRecord(t, repo, "rid0002", "蜀山区", 31.8201, 117.1300, sameLocationParsed())
	seedRecord(t, repo, "rid0003", "蜀山区", 31.8200, 117.1298, sameLocationParsed())

	ps := NewPipelineService(testConfig(), repo, nil, testCanon(), nil, nil, zap.NewNop())
	_, err := ps.Run(ctx, false)
	require.NoError(t, err)

	logs := repo.MatchLogs()
	require.Len(t, logs, 2)
	byRID := make(map[string]models.MatchLog, len(logs))
	for _, lg := range logs {
		byRID[lg.RIDQuery] = lg
	}

	// Each record only ever sees the ones processed before it; the first
	// record recalls nothing and leaves no log at all.
	_, logged := byRID["rid0001"]
	assert.False(t, logged)
	assert.Equal(t, []string{"rid0001"}, byRID["rid0002"].CandidateRIDs)
	assert.Equal(t, []string{"rid0001", "rid0002"}, byRID["rid0003"].CandidateRIDs)

	assert.Equal(t, models.DecisionSame, byRID["rid0002"].Final.Decision)
	assert.Equal(t, "rule_whitelist", byRID["rid0002"].Final.Evidence["judge"])
	assert.GreaterOrEqual(t, byRID["rid0002"].Final.Score, 0.90)

	// Pre-scores are persisted rounded.
	require.NotEmpty(t, byRID["rid0003"].PreScores)
	for _, pre := range byRID["rid0003"].PreScores {
		assert.LessOrEqual(t, pre.Score, 1.0)
		assert.NotEmpty(t, pre.Features)
	}
}

func TestRunIsIdempotentOverDerivedTables(t *testing.T) {
	ctx := context.Background()
	repo := store.NewMemory()

	seedRecord(t, repo, "rid0001", "蜀山区", 31.8200, 117.1299, sameLocationParsed())
	seedRecord(t, repo, "rid0002", "蜀山区", 31.8201, 117.1300, sameLocationParsed())

	ps := NewPipelineService(testConfig(), repo, nil, testCanon(), nil, nil, zap.NewNop())
	first, err := ps.Run(ctx, false)
	require.NoError(t, err)
	second, err := ps.Run(ctx, false)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	// Derived tables are rebuilt, not appended to. Only rid0002 recalls a
	// candidate, so exactly one log survives each run.
	assert.Len(t, repo.MatchLogs(), 1)
}

type stubParser struct {
	byRaw      map[string]*models.ParsedAddress
	calls      int
	batchCalls int
}

func (s *stubParser) Available() bool { return true }

func (s *stubParser) Parse(_ context.Context, raw string) (*models.ParsedAddress, error) {
	s.calls++
	if p, ok := s.byRaw[raw]; ok {
		cp := *p
		return &cp, nil
	}
	return &models.ParsedAddress{}, nil
}

func (s *stubParser) ParseBatch(_ context.Context, raws []string) ([]*models.ParsedAddress, error) {
	s.batchCalls++
	out := make([]*models.ParsedAddress, len(raws))
	for i, raw := range raws {
		if p, ok := s.byRaw[raw]; ok {
			cp := *p
			out[i] = &cp
		} else {
			out[i] = &models.ParsedAddress{}
		}
	}
	return out, nil
}

func TestRunParsesMissingRecords(t *testing.T) {
	ctx := context.Background()
	repo := store.NewMemory()

	require.NoError(t, repo.UpsertRecord(ctx, &models.AddressRecord{
		RID:        "rid0001",
		RawAddress: "合肥市蜀山区创新大街66号",
	}))

	parser := &stubParser{byRaw: map[string]*models.ParsedAddress{
		"合肥市蜀山区创新大街66号": {District: "蜀山区", Road: "创新大街", RoadNo: "66"},
	}}

	ps := NewPipelineService(testConfig(), repo, parser, testCanon(), nil, nil, zap.NewNop())
	_, err := ps.Run(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, 1, parser.calls)

	// The parse is persisted with the road canonicalized.
	p, err := repo.GetParsed(ctx, "rid0001")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "创新大道", p.Road)

	// A second run reuses the stored parse.
	_, err = ps.Run(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, 1, parser.calls)
}

func TestRunBatchesMissingParses(t *testing.T) {
	ctx := context.Background()
	repo := store.NewMemory()

	require.NoError(t, repo.UpsertRecord(ctx, &models.AddressRecord{
		RID:        "rid0001",
		RawAddress: "合肥市蜀山区创新大街66号",
	}))
	require.NoError(t, repo.UpsertRecord(ctx, &models.AddressRecord{
		RID:        "rid0002",
		RawAddress: "瑶海区某某家园B7栋",
	}))

	parser := &stubParser{byRaw: map[string]*models.ParsedAddress{
		"合肥市蜀山区创新大街66号": {District: "蜀山区", Road: "创新大街", RoadNo: "66"},
		"瑶海区某某家园B7栋":    {District: "瑶海区", AOI: "某某家园", Building: "B7"},
	}}

	ps := NewPipelineService(testConfig(), repo, parser, testCanon(), nil, nil, zap.NewNop())
	_, err := ps.Run(ctx, false)
	require.NoError(t, err)

	// Two missing parses go out as one batch, no per-record calls.
	assert.Equal(t, 1, parser.batchCalls)
	assert.Equal(t, 0, parser.calls)

	p, err := repo.GetParsed(ctx, "rid0001")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "创新大道", p.Road)
}

func TestComparePair(t *testing.T) {
	ctx := context.Background()
	repo := store.NewMemory()

	parser := &stubParser{byRaw: map[string]*models.ParsedAddress{
		"高新创新园F9A栋2楼203室":  {District: "蜀山区", AOI: "高新创新园", Building: "F9A", Floor: "2", Room: "203"},
		"创新园f9a栋二楼203":     {District: "蜀山区", AOI: "创新园", Building: "f9a", Floor: "2", Room: "203"},
		"瑶海区某某家园B7栋":       {District: "瑶海区", AOI: "某某家园", Building: "B7"},
	}}

	ps := NewPipelineService(testConfig(), repo, parser, testCanon(), nil, nil, zap.NewNop())

	res, err := ps.ComparePair(ctx, "高新创新园F9A栋2楼203室", "创新园f9a栋二楼203", false)
	require.NoError(t, err)
	assert.Equal(t, models.DecisionSame, res.Decision)
	assert.Equal(t, "rule_whitelist", res.Evidence["judge"])
	assert.GreaterOrEqual(t, res.Score, 0.90)
	require.NotNil(t, res.Addr1Parsed)
	// Aliases are folded before scoring.
	assert.Equal(t, "高新创新园", res.Addr2Parsed.AOI)

	diff, err := ps.ComparePair(ctx, "高新创新园F9A栋2楼203室", "瑶海区某某家园B7栋", false)
	require.NoError(t, err)
	assert.Equal(t, models.DecisionDifferent, diff.Decision)
	assert.Equal(t, "blacklist", diff.Evidence["judge"])

	_, err = ps.ComparePair(ctx, "", "瑶海区某某家园B7栋", false)
	assert.Error(t, err)

	// Whitespace-only input is as empty as the empty string.
	_, err = ps.ComparePair(ctx, "  ", "瑶海区某某家园B7栋", false)
	assert.Error(t, err)
}

func TestComparePairUsesCache(t *testing.T) {
	ctx := context.Background()
	repo := store.NewMemory()

	parser := &stubParser{byRaw: map[string]*models.ParsedAddress{
		"地址甲": {District: "蜀山区", Building: "F9A", Floor: "2", Room: "203"},
		"地址乙": {District: "蜀山区", Building: "F9A", Floor: "2", Room: "203"},
	}}
	cache, err := NewParseCacheService(nil, zap.NewNop())
	require.NoError(t, err)

	ps := NewPipelineService(testConfig(), repo, parser, testCanon(), nil, cache, zap.NewNop())

	_, err = ps.ComparePair(ctx, "地址甲", "地址乙", false)
	require.NoError(t, err)
	assert.Equal(t, 2, parser.calls)

	_, err = ps.ComparePair(ctx, "地址甲", "地址乙", false)
	require.NoError(t, err)
	assert.Equal(t, 2, parser.calls, "repeat comparisons must hit the parse cache")
}
