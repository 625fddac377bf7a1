// Package anchor grounds relative location descriptions ("40m northwest of
// 科学大道|天波路") to a geo bucket by looking up a reference point and
// applying the described offset.
package anchor

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/address-audit/app/models"
	"github.com/address-audit/internal/recall"
	"github.com/address-audit/internal/textutil"
)

// Store is the slice of the repository the resolver needs.
type Store interface {
	// FindAnchorByKey returns nil, nil when no anchor matches.
	FindAnchorByKey(ctx context.Context, keyText string) (*models.Anchor, error)
}

// IntersectionKey builds the canonical lookup key for a road crossing: both
// names sorted and joined with "|", so ("天波路","科学大道") and
// ("科学大道","天波路") resolve to the same anchor.
func IntersectionKey(a, b string) string {
	names := []string{a, b}
	sort.Strings(names)
	return strings.Join(names, "|")
}

// Resolver turns a parsed record's intersection or AOI reference into the
// geo bucket of the implied point.
type Resolver struct {
	store    Store
	bucketer recall.Bucketer
	logger   *zap.Logger
}

// NewResolver wires a Resolver against the anchor store and the shared grid.
func NewResolver(store Store, bucketer recall.Bucketer, logger *zap.Logger) *Resolver {
	return &Resolver{store: store, bucketer: bucketer, logger: logger}
}

// Bucket resolves the anchor bucket for a parsed record, or "" when the
// record has no resolvable reference. The intersection takes priority over
// the AOI. Store errors propagate; a missing anchor is not an error.
func (r *Resolver) Bucket(ctx context.Context, parsed *models.ParsedAddress) (string, error) {
	if parsed == nil {
		return "", nil
	}

	if parsed.Intersection != nil {
		a, b := parsed.Intersection[0], parsed.Intersection[1]
		if a != "" && b != "" {
			bucket, err := r.lookup(ctx, IntersectionKey(a, b), parsed)
			if err != nil || bucket != "" {
				return bucket, err
			}
		}
	}

	if parsed.AOI != "" {
		return r.lookup(ctx, parsed.AOI, parsed)
	}
	return "", nil
}

func (r *Resolver) lookup(ctx context.Context, key string, parsed *models.ParsedAddress) (string, error) {
	anc, err := r.store.FindAnchorByKey(ctx, key)
	if err != nil {
		return "", fmt.Errorf("find anchor %q: %w", key, err)
	}
	if !anc.HasCoords() {
		return "", nil
	}

	lat, lon := *anc.Lat, *anc.Lon
	if parsed.Direction != "" && parsed.DistanceM != nil && *parsed.DistanceM > 0 {
		lat, lon = textutil.OffsetLatLon(lat, lon, parsed.Direction, float64(*parsed.DistanceM))
	}
	bucket := r.bucketer.Bucket(lat, lon)
	r.logger.Debug("anchor resolved",
		zap.String("key", key),
		zap.String("bucket", bucket),
		zap.String("direction", parsed.Direction))
	return bucket, nil
}
