package models

import "time"

// AddressRecord is one raw address row as ingested from a data source.
// Records are immutable once written; the pipeline never mutates them.
type AddressRecord struct {
	RID           string                 `json:"rid" bson:"rid"`
	Source        string                 `json:"source" bson:"source"`
	RawAddress    string                 `json:"raw_address" bson:"raw_address"`
	DistrictClaim string                 `json:"district_claim,omitempty" bson:"district_claim,omitempty"`
	GridDistrict  string                 `json:"grid_district,omitempty" bson:"grid_district,omitempty"`
	Lat           *float64               `json:"lat,omitempty" bson:"lat,omitempty"`
	Lon           *float64               `json:"lon,omitempty" bson:"lon,omitempty"`
	Extra         map[string]interface{} `json:"extra,omitempty" bson:"extra,omitempty"`
	CreatedAt     time.Time              `json:"created_at" bson:"created_at"`
}

// HasCoords reports whether the record carries a usable coordinate pair.
// A record with only one of lat/lon is treated as having no coordinates.
func (r *AddressRecord) HasCoords() bool {
	return r != nil && r.Lat != nil && r.Lon != nil
}

// Intersection is an unordered pair of crossing road names.
type Intersection [2]string

// ParsedAddress is the structured decomposition of one raw address text.
// Empty string means the field is absent.
type ParsedAddress struct {
	NormText     string        `json:"norm_text" bson:"norm_text"`
	Province     string        `json:"province,omitempty" bson:"province,omitempty"`
	City         string        `json:"city,omitempty" bson:"city,omitempty"`
	District     string        `json:"district,omitempty" bson:"district,omitempty"`
	Street       string        `json:"street,omitempty" bson:"street,omitempty"`
	Road         string        `json:"road,omitempty" bson:"road,omitempty"`
	RoadNo       string        `json:"road_no,omitempty" bson:"road_no,omitempty"`
	AOI          string        `json:"aoi,omitempty" bson:"aoi,omitempty"`
	Building     string        `json:"building,omitempty" bson:"building,omitempty"`
	Unit         string        `json:"unit,omitempty" bson:"unit,omitempty"`
	Floor        string        `json:"floor,omitempty" bson:"floor,omitempty"`
	Room         string        `json:"room,omitempty" bson:"room,omitempty"`
	ShopName     string        `json:"shop_name,omitempty" bson:"shop_name,omitempty"`
	Intersection *Intersection `json:"intersection,omitempty" bson:"intersection,omitempty"`
	Direction    string        `json:"direction,omitempty" bson:"direction,omitempty"`
	DistanceM    *int          `json:"distance_m,omitempty" bson:"distance_m,omitempty"`
	ParsedAt     time.Time     `json:"parsed_at,omitempty" bson:"parsed_at,omitempty"`
}

// Road is a reference road entity used by seeding and the POI search index.
type Road struct {
	RoadID   string   `json:"road_id" bson:"road_id"`
	Name     string   `json:"name" bson:"name"`
	District string   `json:"district,omitempty" bson:"district,omitempty"`
	Aliases  []string `json:"aliases,omitempty" bson:"aliases,omitempty"`
}

// POI is a named place with coordinates. POIType distinguishes an AOI
// (area such as a campus or mall) from a point POI.
type POI struct {
	POIID    string   `json:"poi_id" bson:"poi_id"`
	Name     string   `json:"name" bson:"name"`
	POIType  string   `json:"poi_type,omitempty" bson:"poi_type,omitempty"`
	District string   `json:"district,omitempty" bson:"district,omitempty"`
	Lat      float64  `json:"lat" bson:"lat"`
	Lon      float64  `json:"lon" bson:"lon"`
	Aliases  []string `json:"aliases,omitempty" bson:"aliases,omitempty"`
}

// Anchor is a reference point used to ground relative descriptions such as
// "40m northwest of 科学大道|天波路". KeyText is either the sorted
// intersection key "a|b" or a POI/AOI name.
type Anchor struct {
	AnchorID   string   `json:"anchor_id" bson:"anchor_id"`
	AnchorType string   `json:"anchor_type,omitempty" bson:"anchor_type,omitempty"`
	KeyText    string   `json:"key_text" bson:"key_text"`
	District   string   `json:"district,omitempty" bson:"district,omitempty"`
	Lat        *float64 `json:"lat,omitempty" bson:"lat,omitempty"`
	Lon        *float64 `json:"lon,omitempty" bson:"lon,omitempty"`
}

// HasCoords reports whether the anchor can position a relative description.
func (a *Anchor) HasCoords() bool {
	return a != nil && a.Lat != nil && a.Lon != nil
}
