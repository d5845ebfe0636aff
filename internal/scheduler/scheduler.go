package scheduler

import (
	"context"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"neighborfit/server/internal/metrics"
	"neighborfit/server/internal/models"
)

const reportTimeout = 30 * time.Second

// StatisticsSource computes the per-dimension statistics to report.
type StatisticsSource interface {
	ComputeStatistics(ctx context.Context) (map[string]models.DimensionStatistics, error)
}

// Scheduler periodically logs the lifestyle statistics and publishes each
// dimension's mean as a gauge.
type Scheduler struct {
	cron     *cron.Cron
	source   StatisticsSource
	logger   *logrus.Logger
	spec     string
	jobMutex sync.Mutex // Ensures reports do not overlap
}

// NewScheduler creates a scheduler for the given cron spec. An empty spec
// disables the periodic report.
func NewScheduler(source StatisticsSource, spec string, logger *logrus.Logger) *Scheduler {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
		logger.SetLevel(logrus.InfoLevel)
	}

	return &Scheduler{
		cron:   cron.New(),
		source: source,
		logger: logger,
		spec:   spec,
	}
}

// Start schedules the report and runs it once right away.
func (s *Scheduler) Start() error {
	if s.spec == "" {
		s.logger.Info("Statistics report disabled")
		return nil
	}

	schedule, err := cron.ParseStandard(s.spec)
	if err != nil {
		return fmt.Errorf("invalid statistics report schedule %q: %w", s.spec, err)
	}
	s.cron.Schedule(schedule, cron.FuncJob(s.runReport))
	s.cron.Start()

	go s.runReport()
	s.logger.WithField("schedule", s.spec).Info("Statistics report scheduled")
	return nil
}

// Stop waits for a running report to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.jobMutex.Lock()
	defer s.jobMutex.Unlock()
}

func (s *Scheduler) runReport() {
	if !s.jobMutex.TryLock() {
		s.logger.Debug("Skipping statistics report, previous run still in progress")
		return
	}
	defer s.jobMutex.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), reportTimeout)
	defer cancel()

	if err := s.Report(ctx); err != nil {
		s.logger.WithError(err).Error("Statistics report failed")
	}
}

// Report computes the statistics once, logs them and updates the gauges.
func (s *Scheduler) Report(ctx context.Context) error {
	stats, err := s.source.ComputeStatistics(ctx)
	if err != nil {
		return fmt.Errorf("failed to compute statistics: %w", err)
	}
	if stats == nil {
		s.logger.Info("No active neighborhoods to report on")
		return nil
	}

	dimensions := make([]string, 0, len(stats))
	for d := range stats {
		dimensions = append(dimensions, d)
	}
	sort.Strings(dimensions)

	for _, d := range dimensions {
		st := stats[d]
		metrics.DimensionMean.WithLabelValues(d).Set(st.Mean)
		s.logger.WithFields(logrus.Fields{
			"dimension": d,
			"min":       st.Min,
			"max":       st.Max,
			"mean":      st.Mean,
			"count":     st.Count,
		}).Info("Lifestyle statistics")
	}
	return nil
}
