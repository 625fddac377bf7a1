// Package alias maps AOI and road name variants onto their canonical form.
// Canonical names are the ones candidate indexing and pair scoring compare,
// so two records saying "创新园" and "高新创新园" land in the same bucket.
package alias

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/address-audit/app/models"
	"github.com/address-audit/internal/textutil"
)

// Map is the on-disk shape: canonical name -> aliases.
type Map map[string][]string

// LoadMap reads a canonical->aliases JSON file.
func LoadMap(path string) (Map, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read alias map %s: %w", path, err)
	}
	var m Map
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("decode alias map %s: %w", path, err)
	}
	return m, nil
}

// Index is the derived reverse lookup KeyNorm(alias) -> canonical. Every
// canonical name is also its own alias, which makes canonicalization
// idempotent.
type Index struct {
	reverse map[string]string
}

// NewIndex builds the reverse index from a canonical->aliases map.
func NewIndex(m Map) *Index {
	reverse := make(map[string]string, len(m)*2)
	for canonical, aliases := range m {
		reverse[textutil.KeyNorm(canonical)] = canonical
		for _, a := range aliases {
			reverse[textutil.KeyNorm(a)] = canonical
		}
	}
	return &Index{reverse: reverse}
}

// Canonical resolves a name to its canonical form. Unknown names pass
// through unchanged; downstream stays tolerant of unmapped values.
func (ix *Index) Canonical(name string) string {
	if name == "" {
		return ""
	}
	if canonical, ok := ix.reverse[textutil.KeyNorm(name)]; ok {
		return canonical
	}
	return name
}

// Canonicalizer applies the AOI and road alias indexes to a parsed record.
type Canonicalizer struct {
	aoi  *Index
	road *Index
}

// NewCanonicalizer builds a Canonicalizer from raw alias maps.
func NewCanonicalizer(aoiAliases, roadAliases Map) *Canonicalizer {
	return &Canonicalizer{
		aoi:  NewIndex(aoiAliases),
		road: NewIndex(roadAliases),
	}
}

// AOI canonicalizes an AOI name.
func (c *Canonicalizer) AOI(name string) string { return c.aoi.Canonical(name) }

// Road canonicalizes a road name.
func (c *Canonicalizer) Road(name string) string { return c.road.Canonical(name) }

// Apply rewrites the AOI and road fields of a parsed record in place.
func (c *Canonicalizer) Apply(p *models.ParsedAddress) {
	if p == nil {
		return
	}
	if p.AOI != "" {
		p.AOI = c.AOI(p.AOI)
	}
	if p.Road != "" {
		p.Road = c.Road(p.Road)
	}
}
