package neighborhood

import (
	"math"
	"strings"

	"neighborfit/server/internal/models"
	"neighborfit/server/internal/scoring"
)

// buildRecord maps a validated payload onto a record. Identity, activity and
// timestamps are left to the caller.
func buildRecord(in *models.NeighborhoodInput) *models.Neighborhood {
	n := &models.Neighborhood{
		Name:      strings.TrimSpace(in.Name),
		City:      strings.TrimSpace(in.City),
		State:     strings.TrimSpace(in.State),
		Latitude:  in.Latitude,
		Longitude: in.Longitude,

		Population:   roundedInt(in.Population),
		MedianAge:    in.MedianAge,
		MedianIncome: roundedInt(in.MedianIncome),
		AverageRent:  roundedInt(in.AverageRent),
		CrimeRate:    in.CrimeRate,

		Description:      in.Description,
		KeyFeatures:      in.KeyFeatures.Normalize(),
		PopularAmenities: in.PopularAmenities.Normalize(),
		DataSource:       in.DataSource,
	}

	if zip := strings.TrimSpace(in.ZipCode); zip != "" {
		n.ZipCode = &zip
	}
	if in.Bounds != nil {
		b := *in.Bounds
		n.BoundsNorth, n.BoundsSouth = &b.North, &b.South
		n.BoundsEast, n.BoundsWest = &b.East, &b.West
	}
	if n.DataSource == "" {
		n.DataSource = models.DefaultDataSource
	}

	for _, d := range scoring.Dimensions() {
		if v := d.InputScore(in); v != nil {
			d.SetScore(n, int(*v))
		}
	}
	return n
}

// mutableColumns lists every column a full update rewrites.
func mutableColumns(n *models.Neighborhood) map[string]interface{} {
	fields := map[string]interface{}{
		"name":              n.Name,
		"city":              n.City,
		"state":             n.State,
		"zip_code":          n.ZipCode,
		"latitude":          n.Latitude,
		"longitude":         n.Longitude,
		"bounds_north":      n.BoundsNorth,
		"bounds_south":      n.BoundsSouth,
		"bounds_east":       n.BoundsEast,
		"bounds_west":       n.BoundsWest,
		"population":        n.Population,
		"median_age":        n.MedianAge,
		"median_income":     n.MedianIncome,
		"average_rent":      n.AverageRent,
		"crime_rate":        n.CrimeRate,
		"description":       n.Description,
		"key_features":      n.KeyFeatures,
		"popular_amenities": n.PopularAmenities,
		"data_source":       n.DataSource,
	}
	for _, d := range scoring.Dimensions() {
		if v, ok := d.Score(n); ok {
			fields[d.Column()] = v
		}
	}
	return fields
}

func roundedInt(v *float64) *int {
	if v == nil {
		return nil
	}
	i := int(math.Round(*v))
	return &i
}
