package models

import (
	"time"
)

// DefaultDataSource tags records that were entered by hand.
const DefaultDataSource = "manual_entry"

// Neighborhood is a persisted neighborhood record with its nine lifestyle scores.
type Neighborhood struct {
	ID      string  `json:"id" gorm:"primaryKey;column:id" bson:"_id"`
	Name    string  `json:"name" gorm:"column:name;not null" bson:"name"`
	City    string  `json:"city" gorm:"column:city;not null;index:idx_neighborhoods_location" bson:"city"`
	State   string  `json:"state" gorm:"column:state;not null;index:idx_neighborhoods_location" bson:"state"`
	ZipCode *string `json:"zipCode" gorm:"column:zip_code" bson:"zip_code"`

	Latitude    *float64 `json:"latitude" gorm:"column:latitude;index:idx_neighborhoods_coordinates" bson:"latitude"`
	Longitude   *float64 `json:"longitude" gorm:"column:longitude;index:idx_neighborhoods_coordinates" bson:"longitude"`
	BoundsNorth *float64 `json:"boundsNorth" gorm:"column:bounds_north" bson:"bounds_north"`
	BoundsSouth *float64 `json:"boundsSouth" gorm:"column:bounds_south" bson:"bounds_south"`
	BoundsEast  *float64 `json:"boundsEast" gorm:"column:bounds_east" bson:"bounds_east"`
	BoundsWest  *float64 `json:"boundsWest" gorm:"column:bounds_west" bson:"bounds_west"`

	SafetyScore          *int `json:"safetyScore" gorm:"column:safety_score" bson:"safety_score"`
	CostOfLivingScore    *int `json:"costOfLivingScore" gorm:"column:cost_of_living_score" bson:"cost_of_living_score"`
	WalkabilityScore     *int `json:"walkabilityScore" gorm:"column:walkability_score" bson:"walkability_score"`
	PublicTransportScore *int `json:"publicTransportScore" gorm:"column:public_transport_score" bson:"public_transport_score"`
	SchoolQualityScore   *int `json:"schoolQualityScore" gorm:"column:school_quality_score" bson:"school_quality_score"`
	NightlifeScore       *int `json:"nightlifeScore" gorm:"column:nightlife_score" bson:"nightlife_score"`
	FamilyFriendlyScore  *int `json:"familyFriendlyScore" gorm:"column:family_friendly_score" bson:"family_friendly_score"`
	DiversityScore       *int `json:"diversityScore" gorm:"column:diversity_score" bson:"diversity_score"`
	GreenSpaceScore      *int `json:"greenSpaceScore" gorm:"column:green_space_score" bson:"green_space_score"`

	Population   *int     `json:"population" gorm:"column:population" bson:"population"`
	MedianAge    *float64 `json:"medianAge" gorm:"column:median_age" bson:"median_age"`
	MedianIncome *int     `json:"medianIncome" gorm:"column:median_income" bson:"median_income"`
	AverageRent  *int     `json:"averageRent" gorm:"column:average_rent" bson:"average_rent"`
	CrimeRate    *float64 `json:"crimeRate" gorm:"column:crime_rate" bson:"crime_rate"`

	Description      string     `json:"description" gorm:"column:description" bson:"description"`
	KeyFeatures      StringList `json:"keyFeatures" gorm:"column:key_features;type:text" bson:"key_features"`
	PopularAmenities StringList `json:"popularAmenities" gorm:"column:popular_amenities;type:text" bson:"popular_amenities"`

	DataSource string    `json:"dataSource" gorm:"column:data_source;default:manual_entry" bson:"data_source"`
	IsActive   bool      `json:"isActive" gorm:"column:is_active;not null;index" bson:"is_active"`
	CreatedAt  time.Time `json:"createdAt" gorm:"column:created_at" bson:"created_at"`
	UpdatedAt  time.Time `json:"updatedAt" gorm:"column:updated_at" bson:"updated_at"`
}

// TableName pins the table name used by gorm.
func (Neighborhood) TableName() string {
	return "neighborhoods"
}

// Bounds is a geographic rectangle in degrees.
type Bounds struct {
	North float64 `json:"north" yaml:"north" form:"north"`
	South float64 `json:"south" yaml:"south" form:"south"`
	East  float64 `json:"east" yaml:"east" form:"east"`
	West  float64 `json:"west" yaml:"west" form:"west"`
}

// Rect returns the record's own bounding rectangle if all four edges are set.
func (n *Neighborhood) Rect() (Bounds, bool) {
	if n.BoundsNorth == nil || n.BoundsSouth == nil || n.BoundsEast == nil || n.BoundsWest == nil {
		return Bounds{}, false
	}
	return Bounds{
		North: *n.BoundsNorth,
		South: *n.BoundsSouth,
		East:  *n.BoundsEast,
		West:  *n.BoundsWest,
	}, true
}

// NeighborhoodInput is the caller-supplied payload for creating or fully
// updating a neighborhood. Scores are floats so that fractional and missing
// values reach the validator instead of failing at decode time.
type NeighborhoodInput struct {
	Name      string   `json:"name" yaml:"name"`
	City      string   `json:"city" yaml:"city"`
	State     string   `json:"state" yaml:"state"`
	ZipCode   string   `json:"zipCode" yaml:"zipCode"`
	Latitude  *float64 `json:"latitude" yaml:"latitude"`
	Longitude *float64 `json:"longitude" yaml:"longitude"`
	Bounds    *Bounds  `json:"bounds" yaml:"bounds"`

	SafetyScore          *float64 `json:"safetyScore" yaml:"safetyScore"`
	CostOfLivingScore    *float64 `json:"costOfLivingScore" yaml:"costOfLivingScore"`
	WalkabilityScore     *float64 `json:"walkabilityScore" yaml:"walkabilityScore"`
	PublicTransportScore *float64 `json:"publicTransportScore" yaml:"publicTransportScore"`
	SchoolQualityScore   *float64 `json:"schoolQualityScore" yaml:"schoolQualityScore"`
	NightlifeScore       *float64 `json:"nightlifeScore" yaml:"nightlifeScore"`
	FamilyFriendlyScore  *float64 `json:"familyFriendlyScore" yaml:"familyFriendlyScore"`
	DiversityScore       *float64 `json:"diversityScore" yaml:"diversityScore"`
	GreenSpaceScore      *float64 `json:"greenSpaceScore" yaml:"greenSpaceScore"`

	Population   *float64 `json:"population" yaml:"population"`
	MedianAge    *float64 `json:"medianAge" yaml:"medianAge"`
	MedianIncome *float64 `json:"medianIncome" yaml:"medianIncome"`
	AverageRent  *float64 `json:"averageRent" yaml:"averageRent"`
	CrimeRate    *float64 `json:"crimeRate" yaml:"crimeRate"`

	Description      string     `json:"description" yaml:"description"`
	KeyFeatures      StringList `json:"keyFeatures" yaml:"keyFeatures"`
	PopularAmenities StringList `json:"popularAmenities" yaml:"popularAmenities"`
	DataSource       string     `json:"dataSource" yaml:"dataSource"`
}

// FilterCriteria is a transient, per-query filter. Nil fields impose no constraint.
type FilterCriteria struct {
	MinSafety         *int    `json:"minSafety" form:"minSafety"`
	MaxCost           *int    `json:"maxCost" form:"maxCost"`
	MinWalkability    *int    `json:"minWalkability" form:"minWalkability"`
	MinTransport      *int    `json:"minTransport" form:"minTransport"`
	MinSchools        *int    `json:"minSchools" form:"minSchools"`
	MinNightlife      *int    `json:"minNightlife" form:"minNightlife"`
	MinFamilyFriendly *int    `json:"minFamilyFriendly" form:"minFamilyFriendly"`
	MinDiversity      *int    `json:"minDiversity" form:"minDiversity"`
	MinGreenSpace     *int    `json:"minGreenSpace" form:"minGreenSpace"`
	MaxBudget         *int    `json:"maxBudget" form:"maxBudget"`
	MinPopulation     *int    `json:"minPopulation" form:"minPopulation"`
	MaxPopulation     *int    `json:"maxPopulation" form:"maxPopulation"`
	Bounds            *Bounds `json:"bounds" form:"-"`
}

// DimensionStatistics summarizes one lifestyle dimension over the active records.
type DimensionStatistics struct {
	Min   int     `json:"min"`
	Max   int     `json:"max"`
	Mean  float64 `json:"mean"`
	Count int     `json:"count"`
}
