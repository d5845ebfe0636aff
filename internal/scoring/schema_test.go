package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"neighborfit/server/internal/models"
)

func TestDimensions(t *testing.T) {
	assert.Equal(t, []Dimension{
		Safety, CostOfLiving, Walkability, PublicTransport, SchoolQuality,
		Nightlife, FamilyFriendly, Diversity, GreenSpace,
	}, Dimensions())
}

func TestDimensionFieldName(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{"safety", "safety_score"},
		{"cost", "cost_of_living_score"},
		{"costOfLiving", "cost_of_living_score"},
		{"costOfLivingScore", "cost_of_living_score"},
		{"transport", "public_transport_score"},
		{"publicTransport", "public_transport_score"},
		{"schools", "school_quality_score"},
		{"family", "family_friendly_score"},
		{"familyFriendly", "family_friendly_score"},
		{"greenSpace", "green_space_score"},
		{"GREENSPACE", "green_space_score"},
		{"diversity_score", "diversity_score"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			got, err := DimensionFieldName(tt.key)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDimensionFieldName_Unknown(t *testing.T) {
	for _, key := range []string{"parking", "parking_score", "", "name"} {
		_, err := DimensionFieldName(key)
		assert.ErrorIs(t, err, ErrUnknownDimension, key)
	}
}

func TestDimension_ScoreAccessors(t *testing.T) {
	n := &models.Neighborhood{}

	_, ok := Walkability.Score(n)
	assert.False(t, ok)

	Walkability.SetScore(n, 9)
	v, ok := Walkability.Score(n)
	assert.True(t, ok)
	assert.Equal(t, 9, v)
	require.NotNil(t, n.WalkabilityScore)
	assert.Equal(t, 9, *n.WalkabilityScore)

	_, ok = Dimension("parking").Score(n)
	assert.False(t, ok)
	assert.Equal(t, "", Dimension("parking").Column())
}

func TestDimension_WireName(t *testing.T) {
	assert.Equal(t, "safetyScore", Safety.WireName())
	assert.Equal(t, "greenSpaceScore", GreenSpace.WireName())

	in := &models.NeighborhoodInput{GreenSpaceScore: f(3)}
	require.NotNil(t, GreenSpace.InputScore(in))
	assert.Equal(t, 3.0, *GreenSpace.InputScore(in))
	assert.Nil(t, Safety.InputScore(in))
}
