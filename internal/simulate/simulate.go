// Package simulate builds the synthetic corpus used for seeding and
// evaluation: reference roads/POIs/anchors plus noisy address records with
// ground-truth pair labels.
package simulate

import (
	"fmt"
	"math/rand"

	"github.com/address-audit/app/models"
)

// BaseData is the reference knowledge seeded alongside the records.
type BaseData struct {
	Roads   []models.Road
	POIs    []models.POI
	Anchors []models.Anchor
}

func f64(v float64) *float64 { return &v }

// SeedBaseEntities returns the fixed road/POI/anchor reference set.
func SeedBaseEntities() BaseData {
	return BaseData{
		Roads: []models.Road{
			{RoadID: "r1", Name: "创新大道", District: "蜀山区", Aliases: []string{"创新大街", "Chuangxin Ave"}},
			{RoadID: "r2", Name: "科学大道", District: "蜀山区", Aliases: []string{"KeXue Ave"}},
			{RoadID: "r3", Name: "天波路", District: "蜀山区", Aliases: []string{"Tianbo Rd"}},
			{RoadID: "r4", Name: "文昌路", District: "蜀山区", Aliases: []string{}},
			{RoadID: "r5", Name: "永乐北路", District: "蜀山区", Aliases: []string{"永乐北街"}},
		},
		POIs: []models.POI{
			{POIID: "p1", Name: "高新创新园", POIType: "AOI", District: "蜀山区", Lat: 31.8200, Lon: 117.1299,
				Aliases: []string{"创新园", "合肥高新创新园", "高新区创新园"}},
			{POIID: "p2", Name: "蜀峰广场", POIType: "AOI", District: "蜀山区", Lat: 31.8160, Lon: 117.1250,
				Aliases: []string{"蜀峰广场一期", "蜀峰广场(一期)", "蜀峰广场·一期"}},
			{POIID: "p3", Name: "名儒学校中学部", POIType: "POI", District: "蜀山区", Lat: 31.8120, Lon: 117.1320,
				Aliases: []string{"名儒学校", "名儒中学部"}},
		},
		Anchors: []models.Anchor{
			// Intersection keys are the two road names sorted and joined
			// with "|", matching how lookups build them.
			{AnchorID: "a1", AnchorType: "intersection", KeyText: "天波路|科学大道", District: "蜀山区", Lat: f64(31.8204), Lon: f64(117.1292)},
			{AnchorID: "a2", AnchorType: "intersection", KeyText: "文昌路|永乐北路", District: "蜀山区", Lat: f64(31.8115), Lon: f64(117.1330)},
			{AnchorID: "a3", AnchorType: "poi", KeyText: "名儒学校中学部", District: "蜀山区", Lat: f64(31.8120), Lon: f64(117.1320)},
		},
	}
}

type entity struct {
	aoi, building, floor, room string
	road, roadNo, shop         string
	lat, lon                   float64
}

var floorCN = map[string]string{"1": "一", "2": "二", "3": "三", "4": "四", "5": "五"}

// GenerateAddressRecords produces nEntities synthetic locations with
// variantsPerEntity noisy text variants each, plus balanced pair labels.
// The rng seed makes the corpus reproducible.
func GenerateAddressRecords(nEntities, variantsPerEntity int, seed int64) ([]models.AddressRecord, []models.PairLabel) {
	rng := rand.New(rand.NewSource(seed))
	baseLat, baseLon := 31.8200, 117.1299

	pick := func(opts []string) string { return opts[rng.Intn(len(opts))] }

	entities := make([]entity, 0, nEntities)
	for i := 0; i < nEntities; i++ {
		entities = append(entities, entity{
			aoi:      pick([]string{"高新创新园", "蜀峰广场", "百盛山甄选自助餐厅-城南店", "创新园"}),
			building: pick([]string{"F9A", "F9B", "A12", "B7", "5#", "3#"}),
			floor:    pick([]string{"1", "2", "3", "4", "5"}),
			room:     pick([]string{"101", "203", "305", "508", "1203"}),
			road:     pick([]string{"创新大道", "科学大道", "文昌路"}),
			roadNo:   pick([]string{"66", "88", "110", "120", "188"}),
			shop:     pick([]string{"惠康大药房", "益康大药房", "便利店", "咖啡馆", "自助餐厅"}),
			lat:      baseLat + (rng.Float64()*2-1)*0.01,
			lon:      baseLon + (rng.Float64()*2-1)*0.01,
		})
	}

	variantText := func(e entity) string {
		floorStyle := pick([]string{
			e.floor + "楼", e.floor + "层", floorCN[e.floor] + "楼", floorCN[e.floor] + "层",
		})
		roomStyle := pick([]string{e.room + "室", "房" + e.room, e.room})
		buildingStyle := pick([]string{e.building, e.building + "栋", e.building + "号楼"})
		aoiStyle := e.aoi
		if e.aoi == "蜀峰广场" && rng.Intn(2) == 0 {
			aoiStyle = e.aoi + "一期"
		}
		inter := pick([]string{
			"（科学大道与天波路交口西北40米）",
			"（文昌路与永乐北路交叉口东南60米）",
			"（名儒学校中学部东侧110米）",
			"",
		})
		shopStyle := e.shop
		if (e.shop == "惠康大药房" || e.shop == "益康大药房") && rng.Float64() < 0.3 {
			shopStyle = pick([]string{"惠康大药房", "益康大药房"})
		}
		switch rng.Intn(3) {
		case 0:
			return fmt.Sprintf("合肥市蜀山区%s%s号 %s %s %s %s %s%s",
				e.road, e.roadNo, aoiStyle, buildingStyle, floorStyle, roomStyle, shopStyle, inter)
		case 1:
			return fmt.Sprintf("安徽省合肥市蜀山区%s%s%s%s（%s%s号附近）%s%s",
				aoiStyle, buildingStyle, floorStyle, roomStyle, e.road, e.roadNo, shopStyle, inter)
		default:
			return fmt.Sprintf("合肥蜀山区 %s %s %s %s %s%s",
				e.road, buildingStyle, floorStyle, roomStyle, shopStyle, inter)
		}
	}

	sources := []string{"gaode", "manual", "crm", "delivery", "network_grid", "poi"}

	var (
		records      []models.AddressRecord
		entityToRIDs [][]string
		ridCounter   int
	)
	for _, e := range entities {
		rids := make([]string, 0, variantsPerEntity)
		for v := 0; v < variantsPerEntity; v++ {
			ridCounter++
			rid := fmt.Sprintf("rid%04d", ridCounter)
			grid := "蜀山区"
			if rng.Float64() < 0.08 {
				grid = "瑶海区"
			}
			records = append(records, models.AddressRecord{
				RID:           rid,
				Source:        pick(sources),
				RawAddress:    variantText(e),
				DistrictClaim: "蜀山区",
				GridDistrict:  grid,
				Lat:           f64(e.lat + (rng.Float64()*2-1)*0.0002),
				Lon:           f64(e.lon + (rng.Float64()*2-1)*0.0002),
			})
			rids = append(rids, rid)
		}
		entityToRIDs = append(entityToRIDs, rids)
	}

	var labels []models.PairLabel
	for _, rids := range entityToRIDs {
		for i := 0; i < len(rids); i++ {
			for j := i + 1; j < len(rids); j++ {
				labels = append(labels, models.PairLabel{RID1: rids[i], RID2: rids[j], Label: 1})
			}
		}
	}

	allRIDs := make([]string, 0, len(records))
	for _, group := range entityToRIDs {
		allRIDs = append(allRIDs, group...)
	}
	sameCluster := func(a, b string) bool {
		for _, g := range entityToRIDs {
			inA, inB := false, false
			for _, rid := range g {
				if rid == a {
					inA = true
				}
				if rid == b {
					inB = true
				}
			}
			if inA && inB {
				return true
			}
		}
		return false
	}
	nPositives := len(labels)
	for i := 0; i < nPositives; i++ {
		a := allRIDs[rng.Intn(len(allRIDs))]
		b := allRIDs[rng.Intn(len(allRIDs))]
		if a == b || sameCluster(a, b) {
			continue
		}
		labels = append(labels, models.PairLabel{RID1: a, RID2: b, Label: 0})
	}

	rng.Shuffle(len(labels), func(i, j int) { labels[i], labels[j] = labels[j], labels[i] })
	return records, labels
}
