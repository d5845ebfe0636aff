package neighborhood

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"neighborfit/server/internal/database"
	"neighborfit/server/internal/models"
	"neighborfit/server/internal/store"
)

func newTestService(t *testing.T) (*Service, *database.Database) {
	t.Helper()

	db, err := database.NewTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo, err := database.NewNeighborhoodStore(db)
	require.NoError(t, err)

	return NewService(repo, quietLogger()), db
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func f(v float64) *float64 { return &v }
func ip(v int) *int        { return &v }

// uniformInput returns a complete payload with every score set to score.
func uniformInput(name string, score float64) *models.NeighborhoodInput {
	return &models.NeighborhoodInput{
		Name:                 name,
		City:                 "San Francisco",
		State:                "CA",
		SafetyScore:          f(score),
		CostOfLivingScore:    f(score),
		WalkabilityScore:     f(score),
		PublicTransportScore: f(score),
		SchoolQualityScore:   f(score),
		NightlifeScore:       f(score),
		FamilyFriendlyScore:  f(score),
		DiversityScore:       f(score),
		GreenSpaceScore:      f(score),
	}
}

func downtownTechDistrict() *models.NeighborhoodInput {
	return &models.NeighborhoodInput{
		Name:                 "Downtown Tech District",
		City:                 "San Francisco",
		State:                "CA",
		ZipCode:              "94103",
		Latitude:             f(37.7849),
		Longitude:            f(-122.4094),
		SafetyScore:          f(7),
		CostOfLivingScore:    f(2),
		WalkabilityScore:     f(9),
		PublicTransportScore: f(8),
		SchoolQualityScore:   f(6),
		NightlifeScore:       f(8),
		FamilyFriendlyScore:  f(4),
		DiversityScore:       f(9),
		GreenSpaceScore:      f(5),
		Population:           f(15000),
		AverageRent:          f(4500),
		Description:          "High-rise offices, startups and a busy cafe scene",
		KeyFeatures:          models.StringList{"Tech hub", "Public transit"},
	}
}

func mustCreate(t *testing.T, s *Service, in *models.NeighborhoodInput) *models.Neighborhood {
	t.Helper()
	n, err := s.Create(context.Background(), in)
	require.NoError(t, err)
	return n
}

func names(records []models.Neighborhood) []string {
	out := make([]string, len(records))
	for idx, r := range records {
		out[idx] = r.Name
	}
	return out
}

// mockStore is a store.RecordStore whose calls are scripted per test.
type mockStore struct {
	mock.Mock
}

func (m *mockStore) FindWhere(ctx context.Context, q store.Query) ([]models.Neighborhood, error) {
	args := m.Called(ctx, q)
	records, _ := args.Get(0).([]models.Neighborhood)
	return records, args.Error(1)
}

func (m *mockStore) Insert(ctx context.Context, record *models.Neighborhood) (*models.Neighborhood, error) {
	args := m.Called(ctx, record)
	out, _ := args.Get(0).(*models.Neighborhood)
	return out, args.Error(1)
}

func (m *mockStore) Update(ctx context.Context, id string, fields map[string]interface{}) (*models.Neighborhood, error) {
	args := m.Called(ctx, id, fields)
	out, _ := args.Get(0).(*models.Neighborhood)
	return out, args.Error(1)
}

func (m *mockStore) FullTextSearch(ctx context.Context, term string, limit, offset int) ([]models.Neighborhood, error) {
	args := m.Called(ctx, term, limit, offset)
	records, _ := args.Get(0).([]models.Neighborhood)
	return records, args.Error(1)
}
