package seed

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"neighborfit/server/internal/database"
	"neighborfit/server/internal/models"
	"neighborfit/server/internal/neighborhood"
	"neighborfit/server/internal/scoring"
)

func TestSamples(t *testing.T) {
	items, err := Samples()
	require.NoError(t, err)
	require.Len(t, items, 10)

	first := items[0]
	assert.Equal(t, "Downtown Tech District", first.Name)
	assert.Equal(t, "94105", first.ZipCode)
	require.NotNil(t, first.CostOfLivingScore)
	assert.Equal(t, 2.0, *first.CostOfLivingScore)
	assert.Equal(t, 4500.0, *first.AverageRent)
	assert.Equal(t, models.StringList{"Tech companies", "High-rise living", "Public transportation", "Restaurants"}, first.KeyFeatures)

	// Every bundled sample must pass create validation
	for _, item := range items {
		assert.NoError(t, scoring.ValidateForCreate(item), item.Name)
	}
}

func TestParse_Invalid(t *testing.T) {
	_, err := Parse([]byte("name: [unterminated"))
	assert.Error(t, err)
}

func TestRun_IsIdempotent(t *testing.T) {
	db, err := database.NewTestDB()
	require.NoError(t, err)
	defer db.Close()
	repo, err := database.NewNeighborhoodStore(db)
	require.NoError(t, err)

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	svc := neighborhood.NewService(repo, logger)
	ctx := context.Background()

	items, err := Samples()
	require.NoError(t, err)

	result, err := Run(ctx, svc, items, logger)
	require.NoError(t, err)
	assert.Equal(t, Result{Created: 10}, result)

	items, err = Samples()
	require.NoError(t, err)
	result, err = Run(ctx, svc, items, logger)
	require.NoError(t, err)
	assert.Equal(t, Result{Skipped: 10}, result)

	top, err := svc.TopByDimension(ctx, "safety", neighborhood.Descending, 1)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, "Family Friendly Suburbs", top[0].Name)
}
