package scoring

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"neighborfit/server/internal/models"
)

// Validation error kinds.
var (
	ErrMissingField = errors.New("missing field")
	ErrOutOfRange   = errors.New("value out of range")
	ErrUnknownField = errors.New("unknown field")
)

// ValidationError names the offending field of a rejected write.
type ValidationError struct {
	Kind    error
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Is lets errors.Is match on the kind sentinel.
func (e *ValidationError) Is(target error) bool {
	return e.Kind == target
}

func (e *ValidationError) Unwrap() error {
	return e.Kind
}

func missing(field, msg string) *ValidationError {
	return &ValidationError{Kind: ErrMissingField, Field: field, Message: msg}
}

func outOfRange(field string) *ValidationError {
	return &ValidationError{
		Kind:    ErrOutOfRange,
		Field:   field,
		Message: fmt.Sprintf("%s must be an integer between %d and %d", field, MinScore, MaxScore),
	}
}

// ValidateForCreate checks that a payload carries a name, city, state and all
// nine scores within bounds. Nil feature and amenity lists are replaced with
// empty ones.
func ValidateForCreate(in *models.NeighborhoodInput) error {
	if in == nil {
		return missing("name", "Neighborhood name is required")
	}
	if strings.TrimSpace(in.Name) == "" {
		return missing("name", "Neighborhood name is required")
	}
	if strings.TrimSpace(in.City) == "" {
		return missing("city", "City and state are required")
	}
	if strings.TrimSpace(in.State) == "" {
		return missing("state", "City and state are required")
	}

	for _, d := range Dimensions() {
		v := d.InputScore(in)
		field := d.WireName()
		if v == nil {
			return missing(field, field+" is required")
		}
		if !validScore(*v) {
			return outOfRange(field)
		}
	}

	demographics := []struct {
		field string
		value *float64
	}{
		{"population", in.Population},
		{"medianAge", in.MedianAge},
		{"medianIncome", in.MedianIncome},
		{"averageRent", in.AverageRent},
		{"crimeRate", in.CrimeRate},
	}
	for _, dm := range demographics {
		if dm.value != nil && (*dm.value < 0 || math.IsNaN(*dm.value) || math.IsInf(*dm.value, 0)) {
			return &ValidationError{
				Kind:    ErrOutOfRange,
				Field:   dm.field,
				Message: dm.field + " must not be negative",
			}
		}
	}

	in.KeyFeatures = in.KeyFeatures.Normalize()
	in.PopularAmenities = in.PopularAmenities.Normalize()
	return nil
}

// ValidateScoreUpdate checks only the supplied scores. Keys may be any form
// accepted by ParseDimension.
func ValidateScoreUpdate(scores map[string]float64) error {
	keys := make([]string, 0, len(scores))
	for key := range scores {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		v := scores[key]
		d, err := ParseDimension(key)
		if err != nil {
			return &ValidationError{
				Kind:    ErrUnknownField,
				Field:   key,
				Message: fmt.Sprintf("%s is not a lifestyle score", key),
			}
		}
		if !validScore(v) {
			return outOfRange(d.WireName())
		}
	}
	return nil
}

func validScore(v float64) bool {
	if math.IsNaN(v) || math.IsInf(v, 0) || v != math.Trunc(v) {
		return false
	}
	return v >= MinScore && v <= MaxScore
}
