package neighborhood

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"neighborfit/server/internal/metrics"
	"neighborfit/server/internal/models"
	"neighborfit/server/internal/store"
)

const DefaultSearchLimit = 20

type searchStrategy struct {
	name string
	run  func(ctx context.Context, term string, limit, offset int) ([]models.Neighborhood, error)
}

// searchStrategies are tried in order; the first one that succeeds wins,
// even with zero results.
func (s *Service) searchStrategies() []searchStrategy {
	return []searchStrategy{
		{name: "fulltext", run: s.store.FullTextSearch},
		{name: "name_substring", run: s.searchByName},
	}
}

// Search matches term against name and description, falling back to a
// substring match on name alone. It never fails: when every strategy errors
// the result is empty.
func (s *Service) Search(ctx context.Context, term string, limit, offset int) []models.Neighborhood {
	defer metrics.ObserveDuration("search", time.Now())

	term = strings.TrimSpace(term)
	if term == "" {
		return []models.Neighborhood{}
	}
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	if offset < 0 {
		offset = 0
	}

	for _, strategy := range s.searchStrategies() {
		records, err := strategy.run(ctx, term, limit, offset)
		if err == nil {
			return nonNil(records)
		}

		if errors.Is(err, store.ErrFullTextUnsupported) {
			s.logger.WithField("strategy", strategy.name).Debug("Search strategy not supported by store")
			continue
		}
		s.logger.WithError(err).WithFields(logrus.Fields{
			"strategy": strategy.name,
			"term":     term,
		}).Warn("Search strategy failed, trying next")
		metrics.EngineDegradedTotal.WithLabelValues("search_" + strategy.name).Inc()
	}
	return []models.Neighborhood{}
}

func (s *Service) searchByName(ctx context.Context, term string, limit, offset int) ([]models.Neighborhood, error) {
	return s.store.FindWhere(ctx, store.Query{
		Conditions: []store.Condition{
			store.Contains("name", term),
			activeOnly(),
		},
		Limit:  limit,
		Offset: offset,
	})
}
