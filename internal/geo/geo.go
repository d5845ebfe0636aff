package geo

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"neighborfit/server/internal/models"
	"neighborfit/server/internal/scoring"
)

// Bound converts a north/south/east/west rectangle to an orb.Bound.
func Bound(b models.Bounds) orb.Bound {
	return orb.Bound{
		Min: orb.Point{b.West, b.South},
		Max: orb.Point{b.East, b.North},
	}
}

// ValidateBounds rejects rectangles that are inverted or outside WGS84 ranges.
func ValidateBounds(b models.Bounds) error {
	if b.South > b.North {
		return fmt.Errorf("south (%v) must not exceed north (%v)", b.South, b.North)
	}
	if b.West > b.East {
		return fmt.Errorf("west (%v) must not exceed east (%v)", b.West, b.East)
	}
	if b.South < -90 || b.North > 90 {
		return fmt.Errorf("latitude must be within [-90, 90]")
	}
	if b.West < -180 || b.East > 180 {
		return fmt.Errorf("longitude must be within [-180, 180]")
	}
	return nil
}

// Location returns the record's coordinates as a point.
func Location(n *models.Neighborhood) (orb.Point, bool) {
	if n.Latitude == nil || n.Longitude == nil {
		return orb.Point{}, false
	}
	return orb.Point{*n.Longitude, *n.Latitude}, true
}

// Contains reports whether the record's coordinates fall inside b, edges included.
func Contains(b orb.Bound, n *models.Neighborhood) bool {
	p, ok := Location(n)
	if !ok {
		return false
	}
	return b.Contains(p)
}

// FeatureCollection renders records as GeoJSON. A record is drawn as a point
// when it has coordinates, otherwise as its bounding rectangle; records with
// neither are skipped.
func FeatureCollection(records []models.Neighborhood) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for i := range records {
		n := &records[i]

		var geometry orb.Geometry
		if p, ok := Location(n); ok {
			geometry = p
		} else if rect, ok := n.Rect(); ok {
			geometry = Bound(rect).ToPolygon()
		} else {
			continue
		}

		feature := geojson.NewFeature(geometry)
		feature.ID = n.ID
		feature.Properties = geojson.Properties{
			"name":  n.Name,
			"city":  n.City,
			"state": n.State,
		}
		for _, d := range scoring.Dimensions() {
			if v, ok := d.Score(n); ok {
				feature.Properties[string(d)] = v
			}
		}
		fc.Append(feature)
	}
	return fc
}
