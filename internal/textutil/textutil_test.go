package textutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"full-width folding", "ＡＢＣ　１２３号", "abc 123号"},
		{"paren content dropped", "合肥市蜀山区创新大道（科学大道与天波路交口）", "合肥市蜀山区创新大道"},
		{"cjk brackets dropped", "蜀峰广场【一期】B栋", "蜀峰广场 b栋"},
		{"whitespace collapsed", "  合肥市   蜀山区\t创新大道 ", "合肥市 蜀山区 创新大道"},
		{"lowercased", "F9A栋", "f9a栋"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, Normalize(got), "Normalize must be idempotent")
		})
	}
}

func TestKeyNorm(t *testing.T) {
	assert.Equal(t, "高新创新园", KeyNorm("高新 创新园"))
	assert.Equal(t, "chuangxinave", KeyNorm("Chuangxin Ave"))
	assert.Equal(t, "", KeyNorm("   "))
}

func TestCharNgramSet(t *testing.T) {
	set := CharNgramSet("创新园", 2)
	require.Len(t, set, 2)
	assert.Contains(t, set, "创新")
	assert.Contains(t, set, "新园")

	// Shorter than n: whole string is the only member.
	short := CharNgramSet("园", 2)
	require.Len(t, short, 1)
	assert.Contains(t, short, "园")

	assert.Empty(t, CharNgramSet("", 2))
}

func TestJaccard(t *testing.T) {
	assert.Equal(t, 1.0, Jaccard("创新大道", "创新大道", 2))
	assert.Equal(t, 0.5, Jaccard("高新创新园", "创新园", 2))
	assert.Equal(t, 0.0, Jaccard("创新大道", "", 2))
	assert.Equal(t, 0.0, Jaccard("天波路", "文昌路", 2))

	// Whitespace does not change the gram set.
	assert.Equal(t, 1.0, Jaccard("创新 大道", "创新大道", 2))
}

func TestHaversine(t *testing.T) {
	assert.Equal(t, 0.0, Haversine(31.82, 117.13, 31.82, 117.13))

	// 0.0001° of latitude is roughly 11 meters.
	d := Haversine(31.8200, 117.1299, 31.8201, 117.1299)
	assert.InDelta(t, 11.1, d, 0.5)

	// Symmetric.
	assert.InDelta(t, d, Haversine(31.8201, 117.1299, 31.8200, 117.1299), 1e-9)
}

func TestGeoScore(t *testing.T) {
	tests := []struct {
		dist float64
		want float64
	}{
		{-1, 0.0},
		{0, 1.0},
		{30, 1.0},
		{31, 0.7},
		{80, 0.7},
		{81, 0.4},
		{200, 0.4},
		{201, 0.0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, GeoScore(tt.dist), "dist=%v", tt.dist)
	}
}

func TestGeoScoreOnNearbyPoints(t *testing.T) {
	// ~17m apart: full geo credit.
	a := Haversine(31.8200, 117.1299, 31.8201, 117.1300)
	assert.Equal(t, 1.0, GeoScore(a))

	// ~290m apart: no geo credit.
	b := Haversine(31.8200, 117.1299, 31.8220, 117.1320)
	assert.Equal(t, 0.0, GeoScore(b))
}

func TestDirectionVector(t *testing.T) {
	tests := []struct {
		dir        string
		vLat, vLon float64
	}{
		{"东", 0, 1},
		{"西", 0, -1},
		{"南", -1, 0},
		{"北", 1, 0},
		{"东北", 1, 1},
		{"西北", 1, -1},
		{"东南", -1, 1},
		{"西南", -1, -1},
		{"附近", 0, 0},
		{"", 0, 0},
	}
	for _, tt := range tests {
		vLat, vLon := DirectionVector(tt.dir)
		assert.Equal(t, tt.vLat, vLat, "dir=%s", tt.dir)
		assert.Equal(t, tt.vLon, vLon, "dir=%s", tt.dir)
	}
}

func TestOffsetLatLon(t *testing.T) {
	// Due north: latitude grows, longitude is untouched.
	lat, lon := OffsetLatLon(31.8204, 117.1292, "北", 111.0)
	assert.InDelta(t, 31.8204+0.001, lat, 1e-9)
	assert.Equal(t, 117.1292, lon)

	// Diagonal offsets are normalized so the total displacement is distM.
	lat2, lon2 := OffsetLatLon(31.8204, 117.1292, "西北", 40)
	d := Haversine(31.8204, 117.1292, lat2, lon2)
	assert.InDelta(t, 40, d, 2.0)
	assert.Greater(t, lat2, 31.8204)
	assert.Less(t, lon2, 117.1292)

	// Unknown direction leaves the point alone.
	lat3, lon3 := OffsetLatLon(31.8204, 117.1292, "附近", 40)
	assert.Equal(t, 31.8204, lat3)
	assert.Equal(t, 117.1292, lon3)
}

func TestRoundToAndFormatCoord(t *testing.T) {
	assert.Equal(t, 31.8207, RoundTo(31.82065, 4))
	assert.Equal(t, "31.8207", FormatCoord(31.82065, 4))
	assert.Equal(t, "117.1289", FormatCoord(117.1289001, 4))
	// Trailing zeros are trimmed by the shortest representation.
	assert.Equal(t, "31.82", FormatCoord(31.82000, 4))
}

func TestCNNumToInt(t *testing.T) {
	tests := []struct {
		in   string
		want int
		ok   bool
	}{
		{"三", 3, true},
		{"两", 2, true},
		{"十", 10, true},
		{"十五", 15, true},
		{"二十", 20, true},
		{"二十一", 21, true},
		{"12", 12, true},
		{"零", 0, true},
		{"", 0, false},
		{"abc", 0, false},
		{"百", 0, false},
	}
	for _, tt := range tests {
		got, ok := CNNumToInt(tt.in)
		assert.Equal(t, tt.ok, ok, "in=%q", tt.in)
		if tt.ok {
			assert.Equal(t, tt.want, got, "in=%q", tt.in)
		}
	}
}
