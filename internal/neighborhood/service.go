// Package neighborhood is the lifestyle scoring engine: it validates writes,
// filters and ranks records by score, aggregates per-dimension statistics
// and runs text search with a fallback.
package neighborhood

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"neighborfit/server/internal/metrics"
	"neighborfit/server/internal/models"
	"neighborfit/server/internal/scoring"
	"neighborfit/server/internal/store"
)

// Store is the record store the engine runs against.
type Store = store.RecordStore[models.Neighborhood]

// Service holds no state of its own between calls; it is safe for concurrent
// use as long as the store is.
type Service struct {
	store  Store
	logger *logrus.Logger
	now    func() time.Time
}

func NewService(s Store, logger *logrus.Logger) *Service {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}
	return &Service{
		store:  s,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Create validates the payload and inserts a new active record.
func (s *Service) Create(ctx context.Context, in *models.NeighborhoodInput) (*models.Neighborhood, error) {
	defer metrics.ObserveDuration("create", time.Now())

	if err := scoring.ValidateForCreate(in); err != nil {
		s.rejected(err)
		return nil, err
	}

	record := buildRecord(in)
	record.ID = uuid.NewString()
	record.IsActive = true
	record.CreatedAt = s.now()
	record.UpdatedAt = record.CreatedAt

	created, err := s.store.Insert(ctx, record)
	if err != nil {
		return nil, fmt.Errorf("failed to create neighborhood %q: %w", in.Name, err)
	}
	return created, nil
}

// Get returns a record by ID, active or not.
func (s *Service) Get(ctx context.Context, id string) (*models.Neighborhood, error) {
	records, err := s.store.FindWhere(ctx, store.Query{
		Conditions: []store.Condition{store.Eq("id", id)},
		Limit:      1,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get neighborhood %s: %w", id, err)
	}
	if len(records) == 0 {
		return nil, store.ErrNotFound
	}
	return &records[0], nil
}

// Update replaces every mutable field of a record. The payload must pass the
// same checks as a create.
func (s *Service) Update(ctx context.Context, id string, in *models.NeighborhoodInput) (*models.Neighborhood, error) {
	defer metrics.ObserveDuration("update", time.Now())

	if err := scoring.ValidateForCreate(in); err != nil {
		s.rejected(err)
		return nil, err
	}

	fields := mutableColumns(buildRecord(in))
	fields["updated_at"] = s.now()

	updated, err := s.store.Update(ctx, id, fields)
	if err != nil {
		return nil, fmt.Errorf("failed to update neighborhood %s: %w", id, err)
	}
	return updated, nil
}

// UpdateScores changes only the supplied scores.
func (s *Service) UpdateScores(ctx context.Context, id string, scores map[string]float64) (*models.Neighborhood, error) {
	defer metrics.ObserveDuration("update_scores", time.Now())

	if err := scoring.ValidateScoreUpdate(scores); err != nil {
		s.rejected(err)
		return nil, err
	}

	fields := make(map[string]interface{}, len(scores)+1)
	for key, v := range scores {
		column, err := scoring.DimensionFieldName(key)
		if err != nil {
			return nil, err
		}
		fields[column] = int(v)
	}
	fields["updated_at"] = s.now()

	updated, err := s.store.Update(ctx, id, fields)
	if err != nil {
		return nil, fmt.Errorf("failed to update scores for neighborhood %s: %w", id, err)
	}
	return updated, nil
}

func (s *Service) rejected(err error) {
	kind := "other"
	switch {
	case errors.Is(err, scoring.ErrMissingField):
		kind = "missing_field"
	case errors.Is(err, scoring.ErrOutOfRange):
		kind = "out_of_range"
	case errors.Is(err, scoring.ErrUnknownField):
		kind = "unknown_field"
	}
	metrics.ValidationFailuresTotal.WithLabelValues(kind).Inc()
}

// degraded records a store failure that a fail-open read path hides from its caller.
func (s *Service) degraded(operation string, err error) {
	s.logger.WithError(err).WithField("operation", operation).Error("Store query failed, returning empty result")
	metrics.EngineDegradedTotal.WithLabelValues(operation).Inc()
}

func unavailable(err error) error {
	if errors.Is(err, store.ErrUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %w", store.ErrUnavailable, err)
}

func nonNil(records []models.Neighborhood) []models.Neighborhood {
	if records == nil {
		return []models.Neighborhood{}
	}
	return records
}
