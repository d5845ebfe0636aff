package geocoding

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	DefaultBaseURL  = "https://nominatim.openstreetmap.org"
	cacheFileName   = "geocode_cache.json"
	defaultInterval = time.Second
)

// ErrNoResults is returned when the geocoding service knows no match for a place.
var ErrNoResults = errors.New("no geocoding results")

// Place is the free-text description of a neighborhood to locate.
type Place struct {
	Name    string
	City    string
	State   string
	ZipCode string
}

func (p Place) key() string {
	return strings.ToLower(strings.Join([]string{p.Name, p.City, p.State, p.ZipCode}, "|"))
}

func (p Place) query() string {
	parts := make([]string, 0, 3)
	for _, s := range []string{p.Name, p.City} {
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}
	region := strings.TrimSpace(strings.TrimSpace(p.State) + " " + strings.TrimSpace(p.ZipCode))
	if region != "" {
		parts = append(parts, region)
	}
	return strings.Join(parts, ", ")
}

// Options configures a Geocoder. Zero values fall back to the public
// Nominatim endpoint, one request per second and no disk cache. A negative
// Interval disables throttling.
type Options struct {
	BaseURL  string
	CacheDir string
	Interval time.Duration
	Client   *http.Client
}

// Geocoder resolves places to coordinates through Nominatim and remembers
// every answer in a JSON file cache.
type Geocoder struct {
	logger    *logrus.Logger
	baseURL   string
	cacheDir  string
	interval  time.Duration
	client    *http.Client
	cache     map[string][]float64
	cacheLock sync.RWMutex

	throttle sync.Mutex
	lastCall time.Time
}

func NewGeocoder(logger *logrus.Logger, opts Options) *Geocoder {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Interval < 0 {
		opts.Interval = 0
	} else if opts.Interval == 0 {
		opts.Interval = defaultInterval
	}
	if opts.Client == nil {
		opts.Client = &http.Client{Timeout: 10 * time.Second}
	}

	g := &Geocoder{
		logger:   logger,
		baseURL:  strings.TrimRight(opts.BaseURL, "/"),
		cacheDir: opts.CacheDir,
		interval: opts.Interval,
		client:   opts.Client,
		cache:    make(map[string][]float64),
	}

	if g.cacheDir != "" {
		if err := os.MkdirAll(g.cacheDir, 0o755); err != nil {
			logger.WithError(err).Warn("Could not create geocode cache directory")
		}
		g.loadCache()
	}

	return g
}

func (g *Geocoder) loadCache() {
	data, err := os.ReadFile(filepath.Join(g.cacheDir, cacheFileName))
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			g.logger.Warnf("Could not load geocode cache: %v", err)
		}
		return
	}

	if err := json.Unmarshal(data, &g.cache); err != nil {
		g.logger.Errorf("Failed to parse geocode cache: %v", err)
		return
	}

	g.logger.Infof("Loaded %d cached places", len(g.cache))
}

func (g *Geocoder) saveCache() {
	if g.cacheDir == "" {
		return
	}

	g.cacheLock.RLock()
	data, err := json.Marshal(g.cache)
	g.cacheLock.RUnlock()
	if err != nil {
		g.logger.Errorf("Failed to marshal geocode cache: %v", err)
		return
	}

	if err := os.WriteFile(filepath.Join(g.cacheDir, cacheFileName), data, 0o644); err != nil {
		g.logger.Errorf("Failed to save geocode cache: %v", err)
	}
}

type nominatimResponse []struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

// Geocode returns the latitude and longitude of a place.
func (g *Geocoder) Geocode(ctx context.Context, place Place) (float64, float64, error) {
	cacheKey := place.key()
	query := place.query()

	g.cacheLock.RLock()
	coords, ok := g.cache[cacheKey]
	g.cacheLock.RUnlock()
	if ok && len(coords) == 2 {
		g.logger.WithFields(logrus.Fields{
			"place":  query,
			"source": "cache",
		}).Debug("Found coordinates in cache")
		return coords[0], coords[1], nil
	}

	if err := g.wait(ctx); err != nil {
		return 0, 0, err
	}

	params := url.Values{
		"q":      []string{query},
		"format": []string{"json"},
		"limit":  []string{"1"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "NeighborFit/1.0")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := g.client.Do(req)
	if err != nil {
		return 0, 0, fmt.Errorf("geocoding request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, 0, fmt.Errorf("geocoding request failed with status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to read response: %w", err)
	}

	var result nominatimResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return 0, 0, fmt.Errorf("failed to parse response: %w", err)
	}
	if len(result) == 0 {
		return 0, 0, fmt.Errorf("%w for %q", ErrNoResults, query)
	}

	lat, err := strconv.ParseFloat(result[0].Lat, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid latitude %q: %w", result[0].Lat, err)
	}
	lon, err := strconv.ParseFloat(result[0].Lon, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid longitude %q: %w", result[0].Lon, err)
	}

	g.logger.WithFields(logrus.Fields{
		"place":     query,
		"latitude":  lat,
		"longitude": lon,
		"source":    "nominatim",
	}).Info("Successfully geocoded place")

	g.cacheLock.Lock()
	g.cache[cacheKey] = []float64{lat, lon}
	g.cacheLock.Unlock()
	g.saveCache()

	return lat, lon, nil
}

// wait spaces requests out to honor the Nominatim usage policy.
func (g *Geocoder) wait(ctx context.Context) error {
	g.throttle.Lock()
	defer g.throttle.Unlock()

	if delay := g.interval - time.Since(g.lastCall); delay > 0 && !g.lastCall.IsZero() {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
	g.lastCall = time.Now()
	return nil
}
