// Package textutil holds the text and geometry primitives shared by the
// resolution engine: normalization, character n-gram similarity, haversine
// distance and the coarse distance-to-score bucketing used for geo evidence.
package textutil

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/width"
)

var (
	parenRe   = regexp.MustCompile(`\([^)]*\)`)
	bracketRe = regexp.MustCompile(`\[[^\]]*\]`)
	spaceRe   = regexp.MustCompile(`\s+`)

	cjkBrackets = strings.NewReplacer("【", "[", "】", "]")
)

// Normalize cleans one raw address text: full-width parens, brackets and
// digits are folded to ASCII, single-level parenthesized content is dropped,
// whitespace runs collapse to one space, and the result is lowercased.
// Normalize is idempotent.
func Normalize(text string) string {
	t := strings.TrimSpace(text)
	// width.Narrow folds （）０-９ and other full-width forms; CJK
	// ideographs are untouched. 【】 are not width variants.
	t = width.Narrow.String(t)
	t = cjkBrackets.Replace(t)
	t = parenRe.ReplaceAllString(t, " ")
	t = bracketRe.ReplaceAllString(t, " ")
	t = spaceRe.ReplaceAllString(t, " ")
	return strings.TrimSpace(strings.ToLower(t))
}

// KeyNorm lowercases and strips all whitespace. It is the lookup key for
// alias maps and AOI/road index buckets.
func KeyNorm(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), "")
}

// CharNgramSet returns the set of rune n-grams of s with whitespace removed.
// Inputs shorter than n yield the whole string as the only member; the empty
// string yields an empty set.
func CharNgramSet(s string, n int) map[string]struct{} {
	s = strings.Join(strings.Fields(s), "")
	runes := []rune(s)
	set := make(map[string]struct{})
	if len(runes) < n {
		if len(runes) > 0 {
			set[s] = struct{}{}
		}
		return set
	}
	for i := 0; i+n <= len(runes); i++ {
		set[string(runes[i:i+n])] = struct{}{}
	}
	return set
}

// Jaccard is the n-gram Jaccard similarity of a and b in [0,1].
func Jaccard(a, b string, n int) float64 {
	if a == "" || b == "" {
		return 0.0
	}
	sa, sb := CharNgramSet(a, n), CharNgramSet(b, n)
	if len(sa) == 0 || len(sb) == 0 {
		return 0.0
	}
	inter := 0
	for g := range sa {
		if _, ok := sb[g]; ok {
			inter++
		}
	}
	union := len(sa) + len(sb) - inter
	if union < 1 {
		union = 1
	}
	return float64(inter) / float64(union)
}

const earthRadiusM = 6371000.0

// Haversine returns the great-circle distance between two WGS-84 points in
// meters.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dphi := (lat2 - lat1) * math.Pi / 180
	dl := (lon2 - lon1) * math.Pi / 180
	a := math.Sin(dphi/2)*math.Sin(dphi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dl/2)*math.Sin(dl/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusM * c
}

// GeoScore buckets a distance in meters into a coarse similarity score.
// Negative distances stand for "no distance available" and score 0.
func GeoScore(distM float64) float64 {
	switch {
	case distM < 0:
		return 0.0
	case distM <= 30:
		return 1.0
	case distM <= 80:
		return 0.7
	case distM <= 200:
		return 0.4
	default:
		return 0.0
	}
}

// DirectionVector maps a Chinese compass direction to (latComp, lonComp)
// with north/east positive. Unknown directions map to (0, 0).
func DirectionVector(direction string) (float64, float64) {
	switch strings.TrimSpace(direction) {
	case "东":
		return 0.0, 1.0
	case "西":
		return 0.0, -1.0
	case "南":
		return -1.0, 0.0
	case "北":
		return 1.0, 0.0
	case "东北":
		return 1.0, 1.0
	case "西北":
		return 1.0, -1.0
	case "东南":
		return -1.0, 1.0
	case "西南":
		return -1.0, -1.0
	default:
		return 0.0, 0.0
	}
}

// OffsetLatLon shifts a point by distM meters along a compass direction
// using the flat-earth approximation (1° lat ≈ 111 km, 1° lon scaled by
// cos(lat)). Good enough for the sub-kilometer offsets anchors describe.
// The 0.2 cosine floor keeps the longitude step finite near the poles.
func OffsetLatLon(lat, lon float64, direction string, distM float64) (float64, float64) {
	vLat, vLon := DirectionVector(direction)
	norm := math.Sqrt(vLat*vLat + vLon*vLon)
	if norm == 0 {
		norm = 1.0
	}
	vLat /= norm
	vLon /= norm

	dLat := distM * vLat / 111000.0
	dLon := distM * vLon / (111000.0 * math.Max(0.2, math.Cos(lat*math.Pi/180)))
	return lat + dLat, lon + dLon
}

// RoundTo rounds v to p decimal places.
func RoundTo(v float64, p int) float64 {
	scale := math.Pow(10, float64(p))
	return math.Round(v*scale) / scale
}

// FormatCoord renders a rounded coordinate with the shortest decimal
// representation, so geo-bucket keys are stable across runs.
func FormatCoord(v float64, p int) string {
	return strconv.FormatFloat(RoundTo(v, p), 'f', -1, 64)
}

var cnDigits = map[rune]int{
	'零': 0, '〇': 0,
	'一': 1, '二': 2, '两': 2, '三': 3, '四': 4,
	'五': 5, '六': 6, '七': 7, '八': 8, '九': 9,
	'十': 10,
}

// CNNumToInt converts a Chinese numeral (零..九, 十, 二十一 style up to 99)
// or an ASCII digit string to an integer. The second result is false when
// the input is not a recognized numeral.
func CNNumToInt(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n, true
	}
	runes := []rune(s)
	if len(runes) == 1 {
		if v, ok := cnDigits[runes[0]]; ok {
			return v, true
		}
		return 0, false
	}
	if !strings.ContainsRune(s, '十') {
		return 0, false
	}
	parts := strings.SplitN(s, "十", 2)
	if len(parts) != 2 {
		return 0, false
	}
	tens := 1
	if parts[0] != "" {
		left := []rune(parts[0])
		v, ok := cnDigits[left[0]]
		if !ok || len(left) != 1 {
			return 0, false
		}
		tens = v
	}
	ones := 0
	if parts[1] != "" {
		right := []rune(parts[1])
		v, ok := cnDigits[right[0]]
		if !ok || len(right) != 1 {
			return 0, false
		}
		ones = v
	}
	return tens*10 + ones, true
}
