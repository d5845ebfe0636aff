package scoring

import (
	"errors"
	"fmt"
	"strings"

	"neighborfit/server/internal/models"
)

// Score bounds for every lifestyle dimension, inclusive.
const (
	MinScore = 1
	MaxScore = 10
)

// ErrUnknownDimension is returned for a dimension key outside the fixed set.
var ErrUnknownDimension = errors.New("unknown lifestyle dimension")

// Dimension identifies one of the nine lifestyle scores.
type Dimension string

const (
	Safety          Dimension = "safety"
	CostOfLiving    Dimension = "cost"
	Walkability     Dimension = "walkability"
	PublicTransport Dimension = "transport"
	SchoolQuality   Dimension = "schools"
	Nightlife       Dimension = "nightlife"
	FamilyFriendly  Dimension = "family"
	Diversity       Dimension = "diversity"
	GreenSpace      Dimension = "greenSpace"
)

type definition struct {
	dimension Dimension
	column    string
	wireName  string
	aliases   []string
	record    func(*models.Neighborhood) **int
	input     func(*models.NeighborhoodInput) **float64
}

var definitions = []definition{
	{
		dimension: Safety,
		column:    "safety_score",
		wireName:  "safetyScore",
		record:    func(n *models.Neighborhood) **int { return &n.SafetyScore },
		input:     func(in *models.NeighborhoodInput) **float64 { return &in.SafetyScore },
	},
	{
		dimension: CostOfLiving,
		column:    "cost_of_living_score",
		wireName:  "costOfLivingScore",
		aliases:   []string{"costOfLiving"},
		record:    func(n *models.Neighborhood) **int { return &n.CostOfLivingScore },
		input:     func(in *models.NeighborhoodInput) **float64 { return &in.CostOfLivingScore },
	},
	{
		dimension: Walkability,
		column:    "walkability_score",
		wireName:  "walkabilityScore",
		record:    func(n *models.Neighborhood) **int { return &n.WalkabilityScore },
		input:     func(in *models.NeighborhoodInput) **float64 { return &in.WalkabilityScore },
	},
	{
		dimension: PublicTransport,
		column:    "public_transport_score",
		wireName:  "publicTransportScore",
		aliases:   []string{"publicTransport"},
		record:    func(n *models.Neighborhood) **int { return &n.PublicTransportScore },
		input:     func(in *models.NeighborhoodInput) **float64 { return &in.PublicTransportScore },
	},
	{
		dimension: SchoolQuality,
		column:    "school_quality_score",
		wireName:  "schoolQualityScore",
		aliases:   []string{"schoolQuality"},
		record:    func(n *models.Neighborhood) **int { return &n.SchoolQualityScore },
		input:     func(in *models.NeighborhoodInput) **float64 { return &in.SchoolQualityScore },
	},
	{
		dimension: Nightlife,
		column:    "nightlife_score",
		wireName:  "nightlifeScore",
		record:    func(n *models.Neighborhood) **int { return &n.NightlifeScore },
		input:     func(in *models.NeighborhoodInput) **float64 { return &in.NightlifeScore },
	},
	{
		dimension: FamilyFriendly,
		column:    "family_friendly_score",
		wireName:  "familyFriendlyScore",
		aliases:   []string{"familyFriendly"},
		record:    func(n *models.Neighborhood) **int { return &n.FamilyFriendlyScore },
		input:     func(in *models.NeighborhoodInput) **float64 { return &in.FamilyFriendlyScore },
	},
	{
		dimension: Diversity,
		column:    "diversity_score",
		wireName:  "diversityScore",
		record:    func(n *models.Neighborhood) **int { return &n.DiversityScore },
		input:     func(in *models.NeighborhoodInput) **float64 { return &in.DiversityScore },
	},
	{
		dimension: GreenSpace,
		column:    "green_space_score",
		wireName:  "greenSpaceScore",
		record:    func(n *models.Neighborhood) **int { return &n.GreenSpaceScore },
		input:     func(in *models.NeighborhoodInput) **float64 { return &in.GreenSpaceScore },
	},
}

var lookup = buildLookup()

func buildLookup() map[string]int {
	m := make(map[string]int, len(definitions)*4)
	for i, d := range definitions {
		m[strings.ToLower(string(d.dimension))] = i
		m[strings.ToLower(d.column)] = i
		m[strings.ToLower(d.wireName)] = i
		for _, alias := range d.aliases {
			m[strings.ToLower(alias)] = i
		}
	}
	return m
}

// Dimensions returns the nine lifestyle dimensions in their fixed order.
func Dimensions() []Dimension {
	out := make([]Dimension, len(definitions))
	for i, d := range definitions {
		out[i] = d.dimension
	}
	return out
}

// ParseDimension resolves a dimension from its key, camelCase wire name or
// storage column, case-insensitively.
func ParseDimension(key string) (Dimension, error) {
	i, ok := lookup[strings.ToLower(strings.TrimSpace(key))]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownDimension, key)
	}
	return definitions[i].dimension, nil
}

// DimensionFieldName returns the storage column for a dimension key.
func DimensionFieldName(key string) (string, error) {
	d, err := ParseDimension(key)
	if err != nil {
		return "", err
	}
	return d.Column(), nil
}

func (d Dimension) def() *definition {
	i, ok := lookup[strings.ToLower(string(d))]
	if !ok {
		return nil
	}
	return &definitions[i]
}

// Column returns the storage column name, or "" for an unknown dimension.
func (d Dimension) Column() string {
	if def := d.def(); def != nil {
		return def.column
	}
	return ""
}

// WireName returns the camelCase payload field name, e.g. "safetyScore".
func (d Dimension) WireName() string {
	if def := d.def(); def != nil {
		return def.wireName
	}
	return ""
}

// Score reads the dimension's value from a record.
func (d Dimension) Score(n *models.Neighborhood) (int, bool) {
	def := d.def()
	if def == nil || n == nil {
		return 0, false
	}
	v := *def.record(n)
	if v == nil {
		return 0, false
	}
	return *v, true
}

// SetScore writes the dimension's value into a record.
func (d Dimension) SetScore(n *models.Neighborhood, value int) {
	if def := d.def(); def != nil {
		*def.record(n) = &value
	}
}

// InputScore reads the dimension's value from a payload.
func (d Dimension) InputScore(in *models.NeighborhoodInput) *float64 {
	if def := d.def(); def != nil {
		return *def.input(in)
	}
	return nil
}
