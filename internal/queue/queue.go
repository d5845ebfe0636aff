package queue

import (
	"errors"
	"os"
	"sync"

	"github.com/sirupsen/logrus"

	"neighborfit/server/internal/models"
)

var (
	ErrQueueFull   = errors.New("queue is full")
	ErrQueueClosed = errors.New("queue is closed")
)

// ImportBatch is one bulk import request waiting to be processed.
type ImportBatch struct {
	ID    string
	Items []*models.NeighborhoodInput
}

// ImportQueue is an in-memory queue of import batches
type ImportQueue struct {
	items    chan *ImportBatch
	maxSize  int
	closed   bool
	mu       sync.RWMutex
	wg       sync.WaitGroup
	logger   *logrus.Logger
	handlers []func(*ImportBatch) error
}

// NewImportQueue creates a queue holding at most bufferSize pending batches
func NewImportQueue(bufferSize int, logger *logrus.Logger) *ImportQueue {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}
	return &ImportQueue{
		items:    make(chan *ImportBatch, bufferSize),
		maxSize:  bufferSize,
		logger:   logger,
		handlers: make([]func(*ImportBatch) error, 0),
	}
}

// Push adds a batch without blocking
func (q *ImportQueue) Push(batch *ImportBatch) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrQueueClosed
	}

	select {
	case q.items <- batch:
		q.logger.WithFields(logrus.Fields{
			"batch_id":   batch.ID,
			"batch_size": len(batch.Items),
		}).Debug("Pushed batch to queue")
		return nil
	default:
		return ErrQueueFull
	}
}

// Subscribe adds a handler that is called for each batch
func (q *ImportQueue) Subscribe(handler func(*ImportBatch) error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers = append(q.handlers, handler)
}

// Start runs workers goroutines that hand batches to the handlers
func (q *ImportQueue) Start(workers int) {
	if workers < 1 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		q.wg.Add(1)
		go q.process()
	}
}

func (q *ImportQueue) process() {
	defer q.wg.Done()
	for batch := range q.items {
		q.processBatch(batch)
	}
}

func (q *ImportQueue) processBatch(batch *ImportBatch) {
	q.mu.RLock()
	handlers := q.handlers
	q.mu.RUnlock()

	for _, handler := range handlers {
		if err := handler(batch); err != nil {
			q.logger.WithError(err).WithField("batch_id", batch.ID).Error("Handler failed to process batch")
		}
	}
}

// Close stops accepting batches. Workers finish the batches already queued.
func (q *ImportQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	q.closed = true
	close(q.items)
	return nil
}

// Wait blocks until the workers have drained the queue after Close
func (q *ImportQueue) Wait() {
	q.wg.Wait()
}

// Len returns the number of batches waiting
func (q *ImportQueue) Len() int {
	return len(q.items)
}

// IsClosed returns whether the queue has been closed
func (q *ImportQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
