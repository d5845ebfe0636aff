package neighborhood

import (
	"context"
	"fmt"
	"time"

	"neighborfit/server/internal/metrics"
	"neighborfit/server/internal/models"
	"neighborfit/server/internal/scoring"
	"neighborfit/server/internal/store"
)

// ComputeStatistics summarizes every dimension over the active records. It
// returns nil when there are no active records; callers must check before
// indexing. Results are never cached.
func (s *Service) ComputeStatistics(ctx context.Context) (map[string]models.DimensionStatistics, error) {
	defer metrics.ObserveDuration("compute_statistics", time.Now())

	records, err := s.store.FindWhere(ctx, store.Query{
		Conditions: []store.Condition{activeOnly()},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load neighborhoods for statistics: %w", unavailable(err))
	}
	if len(records) == 0 {
		return nil, nil
	}
	return Aggregate(records), nil
}

// Aggregate computes min, max, mean and count per dimension, keyed by
// dimension name. Null scores are skipped, and a dimension with no values is
// left out of the result.
func Aggregate(records []models.Neighborhood) map[string]models.DimensionStatistics {
	stats := make(map[string]models.DimensionStatistics, len(scoring.Dimensions()))

	for _, d := range scoring.Dimensions() {
		var st models.DimensionStatistics
		sum := 0
		for i := range records {
			v, ok := d.Score(&records[i])
			if !ok {
				continue
			}
			if st.Count == 0 || v < st.Min {
				st.Min = v
			}
			if st.Count == 0 || v > st.Max {
				st.Max = v
			}
			sum += v
			st.Count++
		}
		if st.Count == 0 {
			continue
		}
		st.Mean = float64(sum) / float64(st.Count)
		stats[string(d)] = st
	}
	return stats
}
