// Package conflict detects administrative-area disagreements, both within a
// single record (claimed or grid-derived district vs. the parsed one) and
// between a candidate pair (the judge's blacklist input).
package conflict

import (
	"fmt"

	"github.com/address-audit/app/models"
)

// Checker is stateless; the zero value is ready to use.
type Checker struct{}

// Check returns the per-record conflicts between what the record asserts and
// what its parsed text says. Both sides must be present to conflict.
func (Checker) Check(rec *models.AddressRecord, parsed *models.ParsedAddress) []models.Conflict {
	if rec == nil || parsed == nil || parsed.District == "" {
		return nil
	}
	var out []models.Conflict
	if rec.GridDistrict != "" && rec.GridDistrict != parsed.District {
		out = append(out, models.Conflict{
			RID:          rec.RID,
			ConflictType: models.ConflictGridDistrictMismatch,
			Detail:       fmt.Sprintf("grid_district=%s vs parsed_district=%s", rec.GridDistrict, parsed.District),
		})
	}
	if rec.DistrictClaim != "" && rec.DistrictClaim != parsed.District {
		out = append(out, models.Conflict{
			RID:          rec.RID,
			ConflictType: models.ConflictClaimDistrictMismatch,
			Detail:       fmt.Sprintf("district_claim=%s vs parsed_district=%s", rec.DistrictClaim, parsed.District),
		})
	}
	return out
}

// PairReason reports the first district-level divergence between two records,
// checked in the order grid vs. grid, claim vs. claim, parsed vs. parsed.
// The boolean is false when no divergence exists.
func (Checker) PairReason(r1 *models.AddressRecord, p1 *models.ParsedAddress,
	r2 *models.AddressRecord, p2 *models.ParsedAddress) (string, bool) {
	if r1.GridDistrict != "" && r2.GridDistrict != "" && r1.GridDistrict != r2.GridDistrict {
		return fmt.Sprintf("grid_district mismatch: %s vs %s", r1.GridDistrict, r2.GridDistrict), true
	}
	if r1.DistrictClaim != "" && r2.DistrictClaim != "" && r1.DistrictClaim != r2.DistrictClaim {
		return fmt.Sprintf("district_claim mismatch: %s vs %s", r1.DistrictClaim, r2.DistrictClaim), true
	}
	if p1 != nil && p2 != nil && p1.District != "" && p2.District != "" && p1.District != p2.District {
		return fmt.Sprintf("parsed district mismatch: %s vs %s", p1.District, p2.District), true
	}
	return "", false
}
