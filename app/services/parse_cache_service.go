package services

import (
	"context"
	"encoding/json"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/address-audit/app/models"
	"github.com/address-audit/internal/textutil"
)

const (
	parseCacheSize   = 4096
	parseCacheTTL    = 24 * time.Hour
	parseCachePrefix = "parse:"
)

// ParseCacheService caches parsed addresses for the stateless compare path:
// an in-process LRU in front of an optional Redis. Redis failures degrade to
// L1-only with a warning, never an error.
type ParseCacheService struct {
	l1     *lru.Cache[string, *models.ParsedAddress]
	rdb    *redis.Client
	logger *zap.Logger
}

// NewParseCacheService builds the cache. rdb may be nil for L1-only mode.
func NewParseCacheService(rdb *redis.Client, logger *zap.Logger) (*ParseCacheService, error) {
	l1, err := lru.New[string, *models.ParsedAddress](parseCacheSize)
	if err != nil {
		return nil, err
	}
	return &ParseCacheService{l1: l1, rdb: rdb, logger: logger}, nil
}

// Key collapses raw text variants that normalize identically onto one entry.
func (pcs *ParseCacheService) Key(raw string) string {
	return parseCachePrefix + textutil.KeyNorm(textutil.Normalize(raw))
}

func (pcs *ParseCacheService) Get(ctx context.Context, raw string) (*models.ParsedAddress, bool) {
	key := pcs.Key(raw)
	if p, ok := pcs.l1.Get(key); ok {
		return p, true
	}
	if pcs.rdb == nil {
		return nil, false
	}

	b, err := pcs.rdb.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		pcs.logger.Warn("redis parse-cache read failed", zap.Error(err))
		return nil, false
	}
	var p models.ParsedAddress
	if err := json.Unmarshal(b, &p); err != nil {
		pcs.logger.Warn("redis parse-cache entry corrupt", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	pcs.l1.Add(key, &p)
	return &p, true
}

func (pcs *ParseCacheService) Set(ctx context.Context, raw string, p *models.ParsedAddress) {
	key := pcs.Key(raw)
	pcs.l1.Add(key, p)
	if pcs.rdb == nil {
		return
	}
	b, err := json.Marshal(p)
	if err != nil {
		return
	}
	if err := pcs.rdb.Set(ctx, key, b, parseCacheTTL).Err(); err != nil {
		pcs.logger.Warn("redis parse-cache write failed", zap.Error(err))
	}
}
