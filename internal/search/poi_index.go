// Package search maintains a best-effort Meilisearch index of the reference
// POIs and roads. It serves the admin lookup endpoint only; the resolution
// pipeline never depends on it, so an unreachable search server degrades to
// a warning.
package search

import (
	"fmt"
	"math"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/meilisearch/meilisearch-go"
	"github.com/xrash/smetrics"
	"go.uber.org/zap"

	"github.com/address-audit/app/models"
)

const poiIndexName = "pois"

// POIDoc is the document shape stored in Meilisearch.
type POIDoc struct {
	POIID    string   `json:"poi_id"`
	Name     string   `json:"name"`
	POIType  string   `json:"poi_type,omitempty"`
	District string   `json:"district,omitempty"`
	Lat      float64  `json:"lat"`
	Lon      float64  `json:"lon"`
	Aliases  []string `json:"aliases,omitempty"`
}

// POIHit is one re-ranked search result.
type POIHit struct {
	POIDoc
	Score float64 `json:"score"`
}

// POIIndex wraps the Meilisearch client for the pois index.
type POIIndex struct {
	client meilisearch.ServiceManager
	logger *zap.Logger
}

// NewPOIIndex connects to Meilisearch and verifies health.
func NewPOIIndex(host, apiKey string, logger *zap.Logger) (*POIIndex, error) {
	client := meilisearch.New(host, meilisearch.WithAPIKey(apiKey))
	if _, err := client.Health(); err != nil {
		return nil, fmt.Errorf("meilisearch health check: %w", err)
	}
	return &POIIndex{client: client, logger: logger}, nil
}

// Configure sets the searchable and filterable attributes. Called once
// during seeding.
func (px *POIIndex) Configure() error {
	index := px.client.Index(poiIndexName)
	_, err := index.UpdateSettings(&meilisearch.Settings{
		SearchableAttributes: []string{"name", "aliases"},
		FilterableAttributes: []string{"district", "poi_type"},
		SortableAttributes:   []string{"name"},
	})
	if err != nil {
		return fmt.Errorf("update pois index settings: %w", err)
	}
	return nil
}

// SeedPOIs pushes the reference POIs into the index.
func (px *POIIndex) SeedPOIs(pois []models.POI) error {
	if len(pois) == 0 {
		return nil
	}
	docs := make([]POIDoc, 0, len(pois))
	for _, p := range pois {
		docs = append(docs, POIDoc{
			POIID:    p.POIID,
			Name:     p.Name,
			POIType:  p.POIType,
			District: p.District,
			Lat:      p.Lat,
			Lon:      p.Lon,
			Aliases:  p.Aliases,
		})
	}
	index := px.client.Index(poiIndexName)
	if _, err := index.AddDocuments(docs, "poi_id"); err != nil {
		return fmt.Errorf("add poi documents: %w", err)
	}
	px.logger.Info("seeded poi search index", zap.Int("count", len(docs)))
	return nil
}

// Search queries the index, then re-ranks hits with Jaro-Winkler and
// length-normalized Levenshtein so near-misses like 创新园 vs 高新创新园
// sort sensibly.
func (px *POIIndex) Search(query, district string, limit int64) ([]POIHit, error) {
	if limit <= 0 {
		limit = 10
	}
	req := &meilisearch.SearchRequest{Limit: limit}
	if district != "" {
		req.Filter = fmt.Sprintf("district = %q", district)
	}

	result, err := px.client.Index(poiIndexName).Search(query, req)
	if err != nil {
		return nil, fmt.Errorf("search pois: %w", err)
	}

	hits := make([]POIHit, 0, len(result.Hits))
	for _, raw := range result.Hits {
		hitMap, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		doc := decodePOIHit(hitMap)
		hits = append(hits, POIHit{POIDoc: doc, Score: fuzzyScore(query, doc)})
	}

	// Stable order: score descending, then poi_id.
	for i := 0; i < len(hits)-1; i++ {
		for j := i + 1; j < len(hits); j++ {
			if hits[j].Score > hits[i].Score ||
				(hits[j].Score == hits[i].Score && hits[j].POIID < hits[i].POIID) {
				hits[i], hits[j] = hits[j], hits[i]
			}
		}
	}
	return hits, nil
}

func decodePOIHit(hit map[string]interface{}) POIDoc {
	doc := POIDoc{}
	if v, ok := hit["poi_id"].(string); ok {
		doc.POIID = v
	}
	if v, ok := hit["name"].(string); ok {
		doc.Name = v
	}
	if v, ok := hit["poi_type"].(string); ok {
		doc.POIType = v
	}
	if v, ok := hit["district"].(string); ok {
		doc.District = v
	}
	if v, ok := hit["lat"].(float64); ok {
		doc.Lat = v
	}
	if v, ok := hit["lon"].(float64); ok {
		doc.Lon = v
	}
	if arr, ok := hit["aliases"].([]interface{}); ok {
		for _, a := range arr {
			if s, ok := a.(string); ok {
				doc.Aliases = append(doc.Aliases, s)
			}
		}
	}
	return doc
}

// fuzzyScore is the max of Jaro-Winkler and length-normalized Levenshtein
// similarity over the name and every alias.
func fuzzyScore(query string, doc POIDoc) float64 {
	q := strings.ToLower(strings.TrimSpace(query))
	best := 0.0
	for _, name := range append([]string{doc.Name}, doc.Aliases...) {
		n := strings.ToLower(name)
		if n == "" {
			continue
		}
		if jw := smetrics.JaroWinkler(q, n, 0.7, 4); jw > best {
			best = jw
		}
		dist := levenshtein.ComputeDistance(q, n)
		maxLen := math.Max(float64(len([]rune(q))), float64(len([]rune(n))))
		if maxLen > 0 {
			if lev := 1.0 - float64(dist)/maxLen; lev > best {
				best = lev
			}
		}
	}
	return best
}
