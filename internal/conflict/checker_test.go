package conflict

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/address-audit/app/models"
)

func TestCheckGridDistrictMismatch(t *testing.T) {
	var ck Checker
	rec := &models.AddressRecord{RID: "rid0001", GridDistrict: "瑶海区", DistrictClaim: "蜀山区"}
	parsed := &models.ParsedAddress{District: "蜀山区"}

	out := ck.Check(rec, parsed)
	require.Len(t, out, 1)
	assert.Equal(t, models.ConflictGridDistrictMismatch, out[0].ConflictType)
	assert.Equal(t, "rid0001", out[0].RID)
	assert.Equal(t, "grid_district=瑶海区 vs parsed_district=蜀山区", out[0].Detail)
}

func TestCheckBothMismatch(t *testing.T) {
	var ck Checker
	rec := &models.AddressRecord{RID: "rid0002", GridDistrict: "瑶海区", DistrictClaim: "包河区"}
	parsed := &models.ParsedAddress{District: "蜀山区"}

	out := ck.Check(rec, parsed)
	require.Len(t, out, 2)
	assert.Equal(t, models.ConflictGridDistrictMismatch, out[0].ConflictType)
	assert.Equal(t, models.ConflictClaimDistrictMismatch, out[1].ConflictType)
}

func TestCheckAbsentSidesDoNotConflict(t *testing.T) {
	var ck Checker

	assert.Nil(t, ck.Check(&models.AddressRecord{RID: "r"}, &models.ParsedAddress{District: "蜀山区"}))
	assert.Nil(t, ck.Check(&models.AddressRecord{RID: "r", GridDistrict: "蜀山区"}, &models.ParsedAddress{}))
	assert.Nil(t, ck.Check(nil, nil))
}

func TestPairReasonOrder(t *testing.T) {
	var ck Checker

	r1 := &models.AddressRecord{GridDistrict: "蜀山区", DistrictClaim: "蜀山区"}
	r2 := &models.AddressRecord{GridDistrict: "瑶海区", DistrictClaim: "包河区"}
	reason, bad := ck.PairReason(r1, nil, r2, nil)
	require.True(t, bad)
	assert.Equal(t, "grid_district mismatch: 蜀山区 vs 瑶海区", reason)

	// Without grid data the claim is compared next.
	r1.GridDistrict, r2.GridDistrict = "", ""
	reason, bad = ck.PairReason(r1, nil, r2, nil)
	require.True(t, bad)
	assert.Equal(t, "district_claim mismatch: 蜀山区 vs 包河区", reason)

	// Finally the parsed districts.
	r1.DistrictClaim, r2.DistrictClaim = "", ""
	p1 := &models.ParsedAddress{District: "蜀山区"}
	p2 := &models.ParsedAddress{District: "瑶海区"}
	reason, bad = ck.PairReason(r1, p1, r2, p2)
	require.True(t, bad)
	assert.Equal(t, "parsed district mismatch: 蜀山区 vs 瑶海区", reason)
}

func TestPairReasonAgreement(t *testing.T) {
	var ck Checker
	r1 := &models.AddressRecord{GridDistrict: "蜀山区"}
	r2 := &models.AddressRecord{GridDistrict: "蜀山区"}

	_, bad := ck.PairReason(r1, nil, r2, nil)
	assert.False(t, bad)

	// One-sided data never blacklists.
	_, bad = ck.PairReason(&models.AddressRecord{GridDistrict: "蜀山区"}, nil, &models.AddressRecord{}, nil)
	assert.False(t, bad)
}
