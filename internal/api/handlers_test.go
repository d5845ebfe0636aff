package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"neighborfit/server/internal/database"
	"neighborfit/server/internal/geocoding"
	"neighborfit/server/internal/models"
	"neighborfit/server/internal/neighborhood"
	"neighborfit/server/internal/queue"
)

type testServer struct {
	router *gin.Engine
	queue  *queue.ImportQueue
}

func setupServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.NewTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo, err := database.NewNeighborhoodStore(db)
	require.NoError(t, err)

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	importQueue := queue.NewImportQueue(1, logger)
	handler := NewHandler(
		neighborhood.NewService(repo, logger),
		repo,
		importQueue,
		Options{SearchLimit: 20, MaxImportSize: 2},
		logger,
	)

	return &testServer{router: NewRouter(handler, nil), queue: importQueue}
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func payload(name string, score float64) map[string]interface{} {
	return map[string]interface{}{
		"name":                 name,
		"city":                 "San Francisco",
		"state":                "CA",
		"latitude":             37.7749,
		"longitude":            -122.4194,
		"safetyScore":          score,
		"costOfLivingScore":    score,
		"walkabilityScore":     score,
		"publicTransportScore": score,
		"schoolQualityScore":   score,
		"nightlifeScore":       score,
		"familyFriendlyScore":  score,
		"diversityScore":       score,
		"greenSpaceScore":      score,
	}
}

func (s *testServer) create(t *testing.T, name string, score float64) models.Neighborhood {
	t.Helper()
	w := s.do(t, http.MethodPost, "/api/neighborhoods", payload(name, score))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var n models.Neighborhood
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &n))
	return n
}

func decodeList(t *testing.T, w *httptest.ResponseRecorder) []models.Neighborhood {
	t.Helper()
	var records []models.Neighborhood
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &records))
	return records
}

func TestCreateAndGetNeighborhood(t *testing.T) {
	s := setupServer(t)
	created := s.create(t, "Mission District", 7)
	assert.NotEmpty(t, created.ID)
	assert.True(t, created.IsActive)

	w := s.do(t, http.MethodGet, "/api/neighborhoods/"+created.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var got models.Neighborhood
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "Mission District", got.Name)
	require.NotNil(t, got.SafetyScore)
	assert.Equal(t, 7, *got.SafetyScore)
}

func TestCreateNeighborhood_Validation(t *testing.T) {
	s := setupServer(t)

	body := payload("Mission District", 7)
	delete(body, "safetyScore")
	w := s.do(t, http.MethodPost, "/api/neighborhoods", body)
	require.Equal(t, http.StatusBadRequest, w.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "safetyScore", resp["field"])
	assert.Equal(t, "safetyScore is required", resp["error"])

	body = payload("Mission District", 11)
	w = s.do(t, http.MethodPost, "/api/neighborhoods", body)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPost, "/api/neighborhoods", "{not json")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	body = payload("Mission District", 5)
	body["bounds"] = map[string]float64{"north": 37.0, "south": 38.0, "east": -122.0, "west": -123.0}
	w = s.do(t, http.MethodPost, "/api/neighborhoods", body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetNeighborhood_NotFound(t *testing.T) {
	s := setupServer(t)
	w := s.do(t, http.MethodGet, "/api/neighborhoods/does-not-exist", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUpdateNeighborhood(t *testing.T) {
	s := setupServer(t)
	created := s.create(t, "Mission District", 5)

	body := payload("Mission District", 8)
	w := s.do(t, http.MethodPut, "/api/neighborhoods/"+created.ID, body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var updated models.Neighborhood
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &updated))
	assert.Equal(t, 8, *updated.WalkabilityScore)

	w = s.do(t, http.MethodPut, "/api/neighborhoods/missing", body)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUpdateScores(t *testing.T) {
	s := setupServer(t)
	created := s.create(t, "Mission District", 5)

	w := s.do(t, http.MethodPatch, "/api/neighborhoods/"+created.ID+"/scores", map[string]float64{"safety": 9})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var updated models.Neighborhood
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &updated))
	assert.Equal(t, 9, *updated.SafetyScore)
	assert.Equal(t, 5, *updated.NightlifeScore)

	w = s.do(t, http.MethodPatch, "/api/neighborhoods/"+created.ID+"/scores", map[string]float64{"safety": 10.5})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPatch, "/api/neighborhoods/"+created.ID+"/scores", map[string]float64{"parking": 5})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDeactivateNeighborhood(t *testing.T) {
	s := setupServer(t)
	created := s.create(t, "Mission District", 5)
	s.create(t, "Sunset District", 6)

	w := s.do(t, http.MethodDelete, "/api/neighborhoods/"+created.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodGet, "/api/neighborhoods", nil)
	require.Equal(t, http.StatusOK, w.Code)
	records := decodeList(t, w)
	require.Len(t, records, 1)
	assert.Equal(t, "Sunset District", records[0].Name)

	w = s.do(t, http.MethodDelete, "/api/neighborhoods/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListNeighborhoods_QueryCriteria(t *testing.T) {
	s := setupServer(t)
	s.create(t, "Quiet Hills", 3)
	s.create(t, "Safe Harbor", 8)

	w := s.do(t, http.MethodGet, "/api/neighborhoods?minSafety=5", nil)
	require.Equal(t, http.StatusOK, w.Code)
	records := decodeList(t, w)
	require.Len(t, records, 1)
	assert.Equal(t, "Safe Harbor", records[0].Name)

	w = s.do(t, http.MethodGet, "/api/neighborhoods?minSafety=high", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestFilterNeighborhoods(t *testing.T) {
	s := setupServer(t)
	s.create(t, "Quiet Hills", 3)
	s.create(t, "Safe Harbor", 8)

	w := s.do(t, http.MethodPost, "/api/neighborhoods/filter", map[string]interface{}{
		"minSafety": 5,
		"bounds":    map[string]float64{"north": 38, "south": 37, "east": -122, "west": -123},
	})
	require.Equal(t, http.StatusOK, w.Code)
	records := decodeList(t, w)
	require.Len(t, records, 1)
	assert.Equal(t, "Safe Harbor", records[0].Name)

	w = s.do(t, http.MethodPost, "/api/neighborhoods/filter", map[string]interface{}{})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeList(t, w), 2)

	w = s.do(t, http.MethodPost, "/api/neighborhoods/filter", map[string]interface{}{
		"bounds": map[string]float64{"north": 37, "south": 38, "east": -122, "west": -123},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTopByDimension(t *testing.T) {
	s := setupServer(t)
	s.create(t, "Low", 2)
	s.create(t, "High", 9)
	s.create(t, "Mid", 5)

	w := s.do(t, http.MethodGet, "/api/neighborhoods/top/safety?limit=2", nil)
	require.Equal(t, http.StatusOK, w.Code)
	records := decodeList(t, w)
	require.Len(t, records, 2)
	assert.Equal(t, "High", records[0].Name)
	assert.Equal(t, "Mid", records[1].Name)

	w = s.do(t, http.MethodGet, "/api/neighborhoods/top/safetyScore?order=asc", nil)
	require.Equal(t, http.StatusOK, w.Code)
	records = decodeList(t, w)
	require.Len(t, records, 3)
	assert.Equal(t, "Low", records[0].Name)

	w = s.do(t, http.MethodGet, "/api/neighborhoods/top/parking", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodGet, "/api/neighborhoods/top/safety?limit=ten", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSearchNeighborhoods(t *testing.T) {
	s := setupServer(t)
	s.create(t, "Tech Corridor", 5)
	s.create(t, "Old Town", 5)

	w := s.do(t, http.MethodGet, "/api/neighborhoods/search?q=tech", nil)
	require.Equal(t, http.StatusOK, w.Code)
	records := decodeList(t, w)
	require.Len(t, records, 1)
	assert.Equal(t, "Tech Corridor", records[0].Name)

	w = s.do(t, http.MethodGet, "/api/neighborhoods/search?q=", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decodeList(t, w))

	w = s.do(t, http.MethodGet, "/api/neighborhoods/search?q=tech&offset=x", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestFindInBounds(t *testing.T) {
	s := setupServer(t)
	s.create(t, "Mission District", 5)

	w := s.do(t, http.MethodGet, "/api/neighborhoods/bounds?north=38&south=37&east=-122&west=-123", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeList(t, w), 1)

	w = s.do(t, http.MethodGet, "/api/neighborhoods/bounds?north=41&south=40&east=-73&west=-74", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decodeList(t, w))

	w = s.do(t, http.MethodGet, "/api/neighborhoods/bounds?north=38&south=37", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodGet, "/api/neighborhoods/bounds?north=37&south=38&east=-122&west=-123", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestFindByLocation(t *testing.T) {
	s := setupServer(t)
	s.create(t, "Mission District", 5)

	w := s.do(t, http.MethodGet, "/api/neighborhoods/location?city=San%20Francisco&state=CA", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeList(t, w), 1)

	w = s.do(t, http.MethodGet, "/api/neighborhoods/location?city=San%20Francisco", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetStatistics(t *testing.T) {
	s := setupServer(t)

	w := s.do(t, http.MethodGet, "/api/neighborhoods/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "null", w.Body.String())

	s.create(t, "Low", 4)
	s.create(t, "High", 8)

	w = s.do(t, http.MethodGet, "/api/neighborhoods/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var stats map[string]models.DimensionStatistics
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Len(t, stats, 9)
	assert.Equal(t, models.DimensionStatistics{Min: 4, Max: 8, Mean: 6, Count: 2}, stats["safety"])
}

func TestGetGeoJSON(t *testing.T) {
	s := setupServer(t)
	s.create(t, "Mission District", 5)

	w := s.do(t, http.MethodGet, "/api/neighborhoods/geojson", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var fc struct {
		Type     string `json:"type"`
		Features []struct {
			Properties map[string]interface{} `json:"properties"`
		} `json:"features"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &fc))
	assert.Equal(t, "FeatureCollection", fc.Type)
	require.Len(t, fc.Features, 1)
	assert.Equal(t, "Mission District", fc.Features[0].Properties["name"])
}

func TestImportNeighborhoods(t *testing.T) {
	s := setupServer(t)

	w := s.do(t, http.MethodPost, "/api/neighborhoods/import", []interface{}{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPost, "/api/neighborhoods/import", payload("Not an array", 5))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	tooMany := []interface{}{payload("A", 5), payload("B", 5), payload("C", 5)}
	w = s.do(t, http.MethodPost, "/api/neighborhoods/import", tooMany)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)

	w = s.do(t, http.MethodPost, "/api/neighborhoods/import", []interface{}{payload("A", 5)})
	require.Equal(t, http.StatusAccepted, w.Code)

	var resp struct {
		BatchID string `json:"batchId"`
		Queued  int    `json:"queued"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.BatchID)
	assert.Equal(t, 1, resp.Queued)
	assert.Equal(t, 1, s.queue.Len())

	// The queue holds a single pending batch and nothing consumes it
	w = s.do(t, http.MethodPost, "/api/neighborhoods/import", []interface{}{payload("B", 5)})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	s := setupServer(t)
	s.do(t, http.MethodGet, "/api/neighborhoods", nil)

	w := s.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "neighborfit_http_requests_total")
}

type fixedLocator struct{ lat, lon float64 }

func (l fixedLocator) Geocode(ctx context.Context, place geocoding.Place) (float64, float64, error) {
	return l.lat, l.lon, nil
}

func TestUpdateCoordinates(t *testing.T) {
	s := setupServer(t)
	w := s.do(t, http.MethodPost, "/api/neighborhoods/update-coordinates", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	db, err := database.NewTestDB()
	require.NoError(t, err)
	defer db.Close()
	repo, err := database.NewNeighborhoodStore(db)
	require.NoError(t, err)

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	service := neighborhood.NewService(repo, logger)

	body := payload("Mission District", 5)
	delete(body, "latitude")
	delete(body, "longitude")
	located := &testServer{router: NewRouter(NewHandler(service, repo, queue.NewImportQueue(1, logger), Options{
		Locator: fixedLocator{lat: 37.76, lon: -122.41},
	}, logger), nil)}
	w = located.do(t, http.MethodPost, "/api/neighborhoods", body)
	require.Equal(t, http.StatusCreated, w.Code)

	w = located.do(t, http.MethodPost, "/api/neighborhoods/update-coordinates", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var result neighborhood.GeocodeResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, neighborhood.GeocodeResult{Updated: 1}, result)
}
