package neighborhood

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"neighborfit/server/internal/geocoding"
	"neighborfit/server/internal/metrics"
	"neighborfit/server/internal/store"
)

// Locator resolves a place to latitude and longitude.
type Locator interface {
	Geocode(ctx context.Context, place geocoding.Place) (float64, float64, error)
}

// GeocodeResult counts the outcome of a coordinate backfill.
type GeocodeResult struct {
	Updated int `json:"updated"`
	Failed  int `json:"failed"`
}

// FillMissingCoordinates geocodes active records that lack a latitude or
// longitude. A lookup failure is logged and counted; only store errors and
// cancellation abort the run.
func (s *Service) FillMissingCoordinates(ctx context.Context, locator Locator) (GeocodeResult, error) {
	defer metrics.ObserveDuration("fill_coordinates", time.Now())

	records, err := s.store.FindWhere(ctx, store.Query{Conditions: []store.Condition{activeOnly()}})
	if err != nil {
		return GeocodeResult{}, fmt.Errorf("failed to list neighborhoods: %w", unavailable(err))
	}

	var result GeocodeResult
	for i := range records {
		n := &records[i]
		if n.Latitude != nil && n.Longitude != nil {
			continue
		}
		if err := ctx.Err(); err != nil {
			return result, err
		}

		place := geocoding.Place{Name: n.Name, City: n.City, State: n.State}
		if n.ZipCode != nil {
			place.ZipCode = *n.ZipCode
		}

		lat, lon, err := locator.Geocode(ctx, place)
		if err != nil {
			s.logger.WithError(err).WithFields(logrus.Fields{
				"neighborhood_id": n.ID,
				"name":            n.Name,
			}).Warn("Failed to geocode neighborhood")
			result.Failed++
			continue
		}

		_, err = s.store.Update(ctx, n.ID, map[string]interface{}{
			columnLatitude:  lat,
			columnLongitude: lon,
			"updated_at":    s.now(),
		})
		if err != nil {
			return result, fmt.Errorf("failed to store coordinates for %s: %w", n.ID, err)
		}
		result.Updated++
	}

	s.logger.WithFields(logrus.Fields{
		"updated": result.Updated,
		"failed":  result.Failed,
	}).Info("Coordinate backfill finished")
	return result, nil
}
