// Package seed loads the bundled sample neighborhoods.
package seed

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"neighborfit/server/internal/models"
)

//go:embed neighborhoods.yaml
var sampleData []byte

// Service is the part of the neighborhood service seeding needs.
type Service interface {
	Create(ctx context.Context, in *models.NeighborhoodInput) (*models.Neighborhood, error)
	FindByLocation(ctx context.Context, city, state string) ([]models.Neighborhood, error)
}

// Result counts what a seed run did.
type Result struct {
	Created int `json:"created"`
	Skipped int `json:"skipped"`
}

// Samples returns a fresh copy of the bundled sample neighborhoods.
func Samples() ([]*models.NeighborhoodInput, error) {
	return Parse(sampleData)
}

// Parse decodes a YAML list of neighborhood payloads.
func Parse(data []byte) ([]*models.NeighborhoodInput, error) {
	var items []*models.NeighborhoodInput
	if err := yaml.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("failed to parse seed data: %w", err)
	}
	return items, nil
}

// Run creates every item that does not already exist. A neighborhood exists
// when an active record with the same name is found in the same city and state.
func Run(ctx context.Context, svc Service, items []*models.NeighborhoodInput, logger *logrus.Logger) (Result, error) {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}

	var result Result
	for _, item := range items {
		existing, err := svc.FindByLocation(ctx, item.City, item.State)
		if err != nil {
			return result, fmt.Errorf("failed to check existing neighborhoods: %w", err)
		}
		if containsName(existing, item.Name) {
			result.Skipped++
			logger.WithField("name", item.Name).Debug("Neighborhood already seeded")
			continue
		}

		if _, err := svc.Create(ctx, item); err != nil {
			return result, fmt.Errorf("failed to seed %q: %w", item.Name, err)
		}
		result.Created++
	}

	logger.WithFields(logrus.Fields{
		"created": result.Created,
		"skipped": result.Skipped,
	}).Info("Seeded sample neighborhoods")
	return result, nil
}

func containsName(records []models.Neighborhood, name string) bool {
	for _, r := range records {
		if strings.EqualFold(strings.TrimSpace(r.Name), strings.TrimSpace(name)) {
			return true
		}
	}
	return false
}
