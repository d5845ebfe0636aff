package api

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"neighborfit/server/internal/geo"
	"neighborfit/server/internal/models"
	"neighborfit/server/internal/neighborhood"
	"neighborfit/server/internal/queue"
	"neighborfit/server/internal/scoring"
	"neighborfit/server/internal/store"
)

type Handler struct {
	service     *neighborhood.Service
	store       neighborhood.Store
	importQueue *queue.ImportQueue
	locator     neighborhood.Locator
	logger      *logrus.Logger

	searchLimit   int
	maxImportSize int
}

// Options tunes request defaults and limits.
type Options struct {
	SearchLimit   int
	MaxImportSize int

	// Locator backs the coordinate backfill route; nil disables it.
	Locator neighborhood.Locator
}

func NewHandler(service *neighborhood.Service, s neighborhood.Store, importQueue *queue.ImportQueue, opts Options, logger *logrus.Logger) *Handler {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}
	if opts.SearchLimit <= 0 {
		opts.SearchLimit = neighborhood.DefaultSearchLimit
	}
	if opts.MaxImportSize <= 0 {
		opts.MaxImportSize = 100
	}

	return &Handler{
		service:       service,
		store:         s,
		importQueue:   importQueue,
		locator:       opts.Locator,
		logger:        logger,
		searchLimit:   opts.SearchLimit,
		maxImportSize: opts.MaxImportSize,
	}
}

func (h *Handler) CreateNeighborhood(c *gin.Context) {
	var in models.NeighborhoodInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid neighborhood payload"})
		return
	}
	if !h.validInputBounds(c, &in) {
		return
	}

	created, err := h.service.Create(c.Request.Context(), &in)
	if err != nil {
		h.respondError(c, err, "Failed to create neighborhood")
		return
	}

	c.JSON(http.StatusCreated, created)
}

func (h *Handler) GetNeighborhood(c *gin.Context) {
	n, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err, "Failed to get neighborhood")
		return
	}

	c.JSON(http.StatusOK, n)
}

func (h *Handler) UpdateNeighborhood(c *gin.Context) {
	var in models.NeighborhoodInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid neighborhood payload"})
		return
	}
	if !h.validInputBounds(c, &in) {
		return
	}

	updated, err := h.service.Update(c.Request.Context(), c.Param("id"), &in)
	if err != nil {
		h.respondError(c, err, "Failed to update neighborhood")
		return
	}

	c.JSON(http.StatusOK, updated)
}

func (h *Handler) UpdateScores(c *gin.Context) {
	var scores map[string]float64
	if err := c.ShouldBindJSON(&scores); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Scores must be a JSON object of numbers"})
		return
	}

	updated, err := h.service.UpdateScores(c.Request.Context(), c.Param("id"), scores)
	if err != nil {
		h.respondError(c, err, "Failed to update scores")
		return
	}

	c.JSON(http.StatusOK, updated)
}

// DeactivateNeighborhood hides a record from every read path without deleting it.
func (h *Handler) DeactivateNeighborhood(c *gin.Context) {
	_, err := h.store.Update(c.Request.Context(), c.Param("id"), map[string]interface{}{
		"is_active":  false,
		"updated_at": time.Now().UTC(),
	})
	if err != nil {
		h.respondError(c, err, "Failed to deactivate neighborhood")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Neighborhood deactivated"})
}

// ListNeighborhoods filters with criteria taken from the query string.
func (h *Handler) ListNeighborhoods(c *gin.Context) {
	var criteria models.FilterCriteria
	if err := c.ShouldBindQuery(&criteria); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid filter criteria"})
		return
	}

	c.JSON(http.StatusOK, h.service.Filter(c.Request.Context(), criteria))
}

func (h *Handler) FilterNeighborhoods(c *gin.Context) {
	var criteria models.FilterCriteria
	if err := c.ShouldBindJSON(&criteria); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid filter criteria"})
		return
	}
	if criteria.Bounds != nil {
		if err := geo.ValidateBounds(*criteria.Bounds); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	c.JSON(http.StatusOK, h.service.Filter(c.Request.Context(), criteria))
}

func (h *Handler) TopByDimension(c *gin.Context) {
	limit, err := queryInt(c, "limit", neighborhood.DefaultTopLimit)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	order := neighborhood.ParseSortOrder(c.Query("order"))
	records, err := h.service.TopByDimension(c.Request.Context(), c.Param("dimension"), order, limit)
	if err != nil {
		h.respondError(c, err, "Failed to rank neighborhoods")
		return
	}

	c.JSON(http.StatusOK, records)
}

func (h *Handler) SearchNeighborhoods(c *gin.Context) {
	limit, err := queryInt(c, "limit", h.searchLimit)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	offset, err := queryInt(c, "offset", 0)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, h.service.Search(c.Request.Context(), c.Query("q"), limit, offset))
}

func (h *Handler) FindInBounds(c *gin.Context) {
	for _, key := range []string{"north", "south", "east", "west"} {
		if c.Query(key) == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "north, south, east and west are required"})
			return
		}
	}

	var bounds models.Bounds
	if err := c.ShouldBindQuery(&bounds); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "north, south, east and west are required"})
		return
	}
	if err := geo.ValidateBounds(bounds); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	limit, err := queryInt(c, "limit", neighborhood.DefaultBoundsLimit)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, h.service.FindInBounds(c.Request.Context(), bounds, limit))
}

func (h *Handler) FindByLocation(c *gin.Context) {
	city, state := c.Query("city"), c.Query("state")
	if city == "" || state == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "City and state are required"})
		return
	}

	records, err := h.service.FindByLocation(c.Request.Context(), city, state)
	if err != nil {
		h.respondError(c, err, "Failed to find neighborhoods")
		return
	}

	c.JSON(http.StatusOK, records)
}

// GetStatistics replies null when there are no active neighborhoods.
func (h *Handler) GetStatistics(c *gin.Context) {
	stats, err := h.service.ComputeStatistics(c.Request.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to compute statistics")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Statistics are temporarily unavailable"})
		return
	}

	c.JSON(http.StatusOK, stats)
}

func (h *Handler) GetGeoJSON(c *gin.Context) {
	var criteria models.FilterCriteria
	if err := c.ShouldBindQuery(&criteria); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid filter criteria"})
		return
	}

	records := h.service.Filter(c.Request.Context(), criteria)
	c.JSON(http.StatusOK, geo.FeatureCollection(records))
}

// ImportNeighborhoods queues a batch for asynchronous creation.
func (h *Handler) ImportNeighborhoods(c *gin.Context) {
	var items []*models.NeighborhoodInput
	if err := c.ShouldBindJSON(&items); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Import payload must be a JSON array of neighborhoods"})
		return
	}
	if len(items) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Import payload is empty"})
		return
	}
	if len(items) > h.maxImportSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": fmt.Sprintf("At most %d neighborhoods can be imported at once", h.maxImportSize)})
		return
	}

	batch := &queue.ImportBatch{ID: uuid.NewString(), Items: items}
	if err := h.importQueue.Push(batch); err != nil {
		h.logger.WithError(err).WithField("batch_size", len(items)).Warn("Failed to queue import")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Import queue is not accepting batches"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"batchId": batch.ID, "queued": len(items)})
}

// UpdateCoordinates geocodes every active neighborhood missing coordinates.
func (h *Handler) UpdateCoordinates(c *gin.Context) {
	if h.locator == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Geocoding is not configured"})
		return
	}

	result, err := h.service.FillMissingCoordinates(c.Request.Context(), h.locator)
	if err != nil {
		h.respondError(c, err, "Failed to update coordinates")
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *Handler) validInputBounds(c *gin.Context, in *models.NeighborhoodInput) bool {
	if in.Bounds == nil {
		return true
	}
	if err := geo.ValidateBounds(*in.Bounds); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "field": "bounds"})
		return false
	}
	return true
}

func (h *Handler) respondError(c *gin.Context, err error, message string) {
	var verr *scoring.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": verr.Message, "field": verr.Field})
	case errors.Is(err, scoring.ErrUnknownDimension):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Neighborhood not found"})
	case errors.Is(err, store.ErrDuplicate):
		c.JSON(http.StatusConflict, gin.H{"error": "Neighborhood already exists"})
	case errors.Is(err, store.ErrUnavailable):
		h.logger.WithError(err).Error(message)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": message})
	default:
		h.logger.WithError(err).Error(message)
		c.JSON(http.StatusInternalServerError, gin.H{"error": message})
	}
}

func queryInt(c *gin.Context, key string, def int) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", key)
	}
	return v, nil
}
