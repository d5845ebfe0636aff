package scoring

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"neighborfit/server/internal/models"
)

func f(v float64) *float64 { return &v }

func completeInput() *models.NeighborhoodInput {
	return &models.NeighborhoodInput{
		Name:                 "Downtown Tech District",
		City:                 "San Francisco",
		State:                "CA",
		SafetyScore:          f(7),
		CostOfLivingScore:    f(2),
		WalkabilityScore:     f(9),
		PublicTransportScore: f(8),
		SchoolQualityScore:   f(6),
		NightlifeScore:       f(8),
		FamilyFriendlyScore:  f(4),
		DiversityScore:       f(9),
		GreenSpaceScore:      f(5),
	}
}

func TestValidateForCreate(t *testing.T) {
	in := completeInput()
	require.NoError(t, ValidateForCreate(in))
	assert.Equal(t, models.StringList{}, in.KeyFeatures)
	assert.Equal(t, models.StringList{}, in.PopularAmenities)
}

func TestValidateForCreate_ScoreBounds(t *testing.T) {
	tests := []struct {
		name  string
		value float64
		kind  error
	}{
		{"zero", 0, ErrOutOfRange},
		{"eleven", 11, ErrOutOfRange},
		{"fractional", 5.5, ErrOutOfRange},
		{"negative", -3, ErrOutOfRange},
		{"not a number", math.NaN(), ErrOutOfRange},
		{"lowest", 1, nil},
		{"highest", 10, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := completeInput()
			in.SchoolQualityScore = f(tt.value)

			err := ValidateForCreate(in)
			if tt.kind == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.kind)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, "schoolQualityScore", verr.Field)
			assert.Equal(t, "schoolQualityScore must be an integer between 1 and 10", verr.Error())
		})
	}
}

func TestValidateForCreate_EveryScoreRequired(t *testing.T) {
	for _, d := range Dimensions() {
		t.Run(string(d), func(t *testing.T) {
			in := completeInput()
			*d.def().input(in) = nil

			err := ValidateForCreate(in)
			assert.ErrorIs(t, err, ErrMissingField)
			assert.EqualError(t, err, d.WireName()+" is required")
		})
	}
}

func TestValidateForCreate_RequiredIdentity(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(in *models.NeighborhoodInput)
		message string
	}{
		{"name", func(in *models.NeighborhoodInput) { in.Name = "" }, "Neighborhood name is required"},
		{"city", func(in *models.NeighborhoodInput) { in.City = " " }, "City and state are required"},
		{"state", func(in *models.NeighborhoodInput) { in.State = "" }, "City and state are required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := completeInput()
			tt.mutate(in)
			err := ValidateForCreate(in)
			assert.ErrorIs(t, err, ErrMissingField)
			assert.EqualError(t, err, tt.message)
		})
	}

	assert.ErrorIs(t, ValidateForCreate(nil), ErrMissingField)
}

func TestValidateForCreate_NegativeDemographics(t *testing.T) {
	in := completeInput()
	in.Population = f(-10)

	err := ValidateForCreate(in)
	assert.ErrorIs(t, err, ErrOutOfRange)
	assert.EqualError(t, err, "population must not be negative")

	in = completeInput()
	in.CrimeRate = f(0)
	assert.NoError(t, ValidateForCreate(in))
}

func TestValidateScoreUpdate(t *testing.T) {
	assert.NoError(t, ValidateScoreUpdate(map[string]float64{}))
	assert.NoError(t, ValidateScoreUpdate(map[string]float64{"safetyScore": 9, "greenSpace": 1}))
	assert.NoError(t, ValidateScoreUpdate(map[string]float64{"walkability_score": 10}))

	err := ValidateScoreUpdate(map[string]float64{"nightlifeScore": 0})
	assert.ErrorIs(t, err, ErrOutOfRange)
	assert.EqualError(t, err, "nightlifeScore must be an integer between 1 and 10")

	err = ValidateScoreUpdate(map[string]float64{"safetyScore": 5, "parkingScore": 5})
	assert.ErrorIs(t, err, ErrUnknownField)
	assert.EqualError(t, err, "parkingScore is not a lifestyle score")
}
