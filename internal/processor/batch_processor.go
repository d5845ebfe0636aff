package processor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"neighborfit/server/config"
	"neighborfit/server/internal/metrics"
	"neighborfit/server/internal/models"
	"neighborfit/server/internal/queue"
	"neighborfit/server/internal/store"
)

// Creator validates and stores one neighborhood.
type Creator interface {
	Create(ctx context.Context, in *models.NeighborhoodInput) (*models.Neighborhood, error)
}

// BatchResult counts the outcome of one import batch.
type BatchResult struct {
	Created  int
	Rejected int
	Failed   int
}

// BatchProcessor imports queued batches through the neighborhood service
type BatchProcessor struct {
	creator Creator
	logger  *logrus.Logger
	config  *config.Config
	queue   *queue.ImportQueue
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewBatchProcessor creates a new batch processor instance
func NewBatchProcessor(creator Creator, q *queue.ImportQueue, cfg *config.Config, logger *logrus.Logger) *BatchProcessor {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &BatchProcessor{
		creator: creator,
		queue:   q,
		config:  cfg,
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start subscribes to the queue and runs the configured number of workers
func (p *BatchProcessor) Start() {
	p.queue.Subscribe(p.processBatch)
	p.queue.Start(p.config.BatchProcessing.ProcessorCount)
}

// Stop closes the queue, aborts pending retries and waits for the workers
func (p *BatchProcessor) Stop() {
	p.queue.Close()
	p.cancel()
	p.queue.Wait()
}

func (p *BatchProcessor) processBatch(batch *queue.ImportBatch) error {
	result := p.Process(batch)

	entry := p.logger.WithFields(logrus.Fields{
		"batch_id": batch.ID,
		"created":  result.Created,
		"rejected": result.Rejected,
		"failed":   result.Failed,
	})
	if result.Failed > 0 {
		entry.Error("Import batch finished with failures")
		return fmt.Errorf("failed to import %d of %d neighborhoods", result.Failed, len(batch.Items))
	}
	entry.Info("Import batch finished")
	return nil
}

// Process imports every item of a batch. Items rejected by validation or as
// duplicates are not retried; store outages are retried up to MaxRetries times.
func (p *BatchProcessor) Process(batch *queue.ImportBatch) BatchResult {
	var result BatchResult
	for i, item := range batch.Items {
		err := p.importOne(item)
		switch {
		case err == nil:
			result.Created++
			metrics.ImportedTotal.WithLabelValues("created").Inc()
		case retryable(err):
			result.Failed++
			metrics.ImportedTotal.WithLabelValues("failed").Inc()
			p.logger.WithError(err).WithFields(logrus.Fields{"batch_id": batch.ID, "index": i}).Error("Failed to import neighborhood")
		default:
			result.Rejected++
			metrics.ImportedTotal.WithLabelValues("rejected").Inc()
			p.logger.WithError(err).WithFields(logrus.Fields{"batch_id": batch.ID, "index": i}).Warn("Neighborhood rejected")
		}
	}
	return result
}

func (p *BatchProcessor) importOne(item *models.NeighborhoodInput) error {
	var err error
	for attempt := 0; attempt <= p.config.BatchProcessing.MaxRetries; attempt++ {
		if attempt > 0 {
			p.logger.Infof("Retrying import, attempt %d of %d", attempt, p.config.BatchProcessing.MaxRetries)
			if waitErr := p.wait(time.Duration(p.config.BatchProcessing.RetryDelay) * time.Second); waitErr != nil {
				return fmt.Errorf("import cancelled: %w: %w", store.ErrUnavailable, waitErr)
			}
		}

		_, err = p.creator.Create(p.ctx, item)
		if err == nil || !retryable(err) {
			return err
		}
	}
	return err
}

func (p *BatchProcessor) wait(d time.Duration) error {
	if d <= 0 {
		return p.ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-p.ctx.Done():
		return p.ctx.Err()
	case <-timer.C:
		return nil
	}
}

func retryable(err error) bool {
	return errors.Is(err, store.ErrUnavailable) || errors.Is(err, context.Canceled)
}
