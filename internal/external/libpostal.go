//go:build cgo

// Package external binds optional native helpers. The libpostal fallback
// fills in coarse structured fields when no LLM parser is configured, so a
// run degrades instead of aborting.
package external

import (
	"github.com/openvenues/gopostal/expand"
	gpparser "github.com/openvenues/gopostal/parser"

	"github.com/address-audit/app/models"
	"github.com/address-audit/internal/textutil"
)

// ParseFallback runs libpostal over the raw text. The second result is false
// when nothing useful was extracted.
func ParseFallback(raw string) (*models.ParsedAddress, bool) {
	opts := expand.DefaultOptions()
	opts.Languages = []string{"zh"}
	best := raw
	if exps := expand.ExpandAddress(raw, opts); len(exps) > 0 {
		best = exps[0]
	}

	p := &models.ParsedAddress{NormText: textutil.Normalize(raw)}
	extracted := false
	for _, c := range gpparser.ParseAddress(best) {
		switch c.Label {
		case "house_number":
			p.RoadNo = c.Value
		case "road":
			p.Road = c.Value
		case "house":
			p.Building = c.Value
		case "unit":
			p.Unit = c.Value
		case "level":
			p.Floor = c.Value
		case "suburb":
			p.AOI = c.Value
		case "city_district":
			p.District = c.Value
		case "city":
			p.City = c.Value
		case "state":
			p.Province = c.Value
		default:
			continue
		}
		extracted = true
	}
	return p, extracted
}
