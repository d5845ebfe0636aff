package neighborhood

import (
	"context"
	"fmt"
	"strings"
	"time"

	"neighborfit/server/internal/geo"
	"neighborfit/server/internal/metrics"
	"neighborfit/server/internal/models"
	"neighborfit/server/internal/scoring"
	"neighborfit/server/internal/store"
)

const (
	DefaultTopLimit    = 10
	DefaultBoundsLimit = 50

	columnActive      = "is_active"
	columnAverageRent = "average_rent"
	columnPopulation  = "population"
	columnCity        = "city"
	columnState       = "state"
	columnLatitude    = "latitude"
	columnLongitude   = "longitude"
)

// SortOrder selects the direction of TopByDimension.
type SortOrder int

const (
	Descending SortOrder = iota
	Ascending
)

// ParseSortOrder accepts "asc" or "desc"; anything else means descending.
func ParseSortOrder(s string) SortOrder {
	if strings.EqualFold(strings.TrimSpace(s), "asc") {
		return Ascending
	}
	return Descending
}

func (o SortOrder) String() string {
	if o == Ascending {
		return "asc"
	}
	return "desc"
}

func activeOnly() store.Condition {
	return store.Eq(columnActive, true)
}

// BuildFilterQuery turns criteria into a conjunctive store query over active
// records. Score thresholds are lower bounds except cost of living, where a
// lower score means cheaper, so maxCost bounds it from above.
func BuildFilterQuery(c models.FilterCriteria) store.Query {
	conditions := []store.Condition{activeOnly()}

	minimums := []struct {
		threshold *int
		dimension scoring.Dimension
	}{
		{c.MinSafety, scoring.Safety},
		{c.MinWalkability, scoring.Walkability},
		{c.MinTransport, scoring.PublicTransport},
		{c.MinSchools, scoring.SchoolQuality},
		{c.MinNightlife, scoring.Nightlife},
		{c.MinFamilyFriendly, scoring.FamilyFriendly},
		{c.MinDiversity, scoring.Diversity},
		{c.MinGreenSpace, scoring.GreenSpace},
	}
	for _, m := range minimums {
		if m.threshold != nil {
			conditions = append(conditions, store.Gte(m.dimension.Column(), *m.threshold))
		}
	}
	if c.MaxCost != nil {
		conditions = append(conditions, store.Lte(scoring.CostOfLiving.Column(), *c.MaxCost))
	}

	if c.MaxBudget != nil {
		conditions = append(conditions, store.Lte(columnAverageRent, *c.MaxBudget))
	}
	if c.MinPopulation != nil {
		conditions = append(conditions, store.Gte(columnPopulation, *c.MinPopulation))
	}
	if c.MaxPopulation != nil {
		conditions = append(conditions, store.Lte(columnPopulation, *c.MaxPopulation))
	}

	q := store.Query{Conditions: conditions}
	if c.Bounds != nil {
		b := geo.Bound(*c.Bounds)
		q.Within = &b
	}
	return q
}

// Filter returns the active records matching every criterion, in store order.
// A store failure yields an empty result; use FilterStrict to see the error.
func (s *Service) Filter(ctx context.Context, c models.FilterCriteria) []models.Neighborhood {
	records, err := s.FilterStrict(ctx, c)
	if err != nil {
		s.degraded("filter", err)
		return []models.Neighborhood{}
	}
	return records
}

// FilterStrict is Filter with the store error returned.
func (s *Service) FilterStrict(ctx context.Context, c models.FilterCriteria) ([]models.Neighborhood, error) {
	defer metrics.ObserveDuration("filter", time.Now())

	records, err := s.store.FindWhere(ctx, BuildFilterQuery(c))
	if err != nil {
		return nil, unavailable(err)
	}
	return nonNil(records), nil
}

// TopByDimension returns up to limit active records sorted by one dimension.
func (s *Service) TopByDimension(ctx context.Context, dimension string, order SortOrder, limit int) ([]models.Neighborhood, error) {
	defer metrics.ObserveDuration("top_by_dimension", time.Now())

	column, err := scoring.DimensionFieldName(dimension)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultTopLimit
	}

	records, err := s.store.FindWhere(ctx, store.Query{
		Conditions: []store.Condition{activeOnly()},
		OrderBy:    &store.Order{Field: column, Descending: order == Descending},
		Limit:      limit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to rank neighborhoods by %s: %w", dimension, unavailable(err))
	}
	return nonNil(records), nil
}

// FindInBounds returns up to limit active records located inside b. Like
// Filter it returns an empty result on store failure.
func (s *Service) FindInBounds(ctx context.Context, b models.Bounds, limit int) []models.Neighborhood {
	if limit <= 0 {
		limit = DefaultBoundsLimit
	}
	bound := geo.Bound(b)

	records, err := s.store.FindWhere(ctx, store.Query{
		Conditions: []store.Condition{activeOnly()},
		Within:     &bound,
		Limit:      limit,
	})
	if err != nil {
		s.degraded("find_in_bounds", err)
		return []models.Neighborhood{}
	}
	return nonNil(records)
}

// FindByLocation returns the active records for a city and state.
func (s *Service) FindByLocation(ctx context.Context, city, state string) ([]models.Neighborhood, error) {
	records, err := s.store.FindWhere(ctx, store.Query{
		Conditions: []store.Condition{
			store.Eq(columnCity, city),
			store.Eq(columnState, state),
			activeOnly(),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to find neighborhoods in %s, %s: %w", city, state, unavailable(err))
	}
	return nonNil(records), nil
}
