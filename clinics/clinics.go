// Package clinics finds medical facilities near a coordinate via the
// Overpass API and resolves human-readable addresses via Nominatim.
package clinics

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"
)

// DefaultRadiusKm is the search radius when the caller does not give
// one.
const DefaultRadiusKm = 5.0

// maxResults caps how many facilities a lookup returns.
const maxResults = 3

// Facility is one medical facility near the queried position.
type Facility struct {
	Name       string  `json:"name"`
	Type       string  `json:"type"`
	Lat        float64 `json:"latitude"`
	Lon        float64 `json:"longitude"`
	DistanceKm float64 `json:"distance_km"`
}

type Config struct {
	OverpassURL  string
	NominatimURL string
	UserAgent    string
	Timeout      time.Duration

	// GeocodeInterval is the minimum spacing between Nominatim
	// requests. The service's usage policy allows one per second.
	GeocodeInterval time.Duration
}

func DefaultConfig() Config {
	return Config{
		OverpassURL:     "https://overpass-api.de/api/interpreter",
		NominatimURL:    "https://nominatim.openstreetmap.org",
		UserAgent:       "MedSenseAI/1.0",
		Timeout:         30 * time.Second,
		GeocodeInterval: time.Second,
	}
}

type Client struct {
	cfg  Config
	http *http.Client
	log  *slog.Logger

	mu          sync.Mutex
	nextGeocode time.Time
}

func New(cfg Config, log *slog.Logger) *Client {
	if cfg.OverpassURL == "" {
		cfg.OverpassURL = DefaultConfig().OverpassURL
	}
	if cfg.NominatimURL == "" {
		cfg.NominatimURL = DefaultConfig().NominatimURL
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultConfig().UserAgent
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}
	if cfg.GeocodeInterval <= 0 {
		cfg.GeocodeInterval = DefaultConfig().GeocodeInterval
	}
	if log == nil {
		log = slog.Default()
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
		log:  log,
	}
}

type overpassResponse struct {
	Elements []overpassElement `json:"elements"`
}

type overpassElement struct {
	Type   string `json:"type"`
	Lat    float64
	Lon    float64
	Center *struct {
		Lat float64 `json:"lat"`
		Lon float64 `json:"lon"`
	} `json:"center"`
	Tags map[string]string `json:"tags"`
}

// FindNearby returns up to three facilities within radiusKm of the
// position, closest first. A non-positive radius uses the default.
func (c *Client) FindNearby(ctx context.Context, lat, lon, radiusKm float64) ([]Facility, error) {
	if radiusKm <= 0 {
		radiusKm = DefaultRadiusKm
	}
	query := fmt.Sprintf(`[out:json][timeout:25];
(
  node["amenity"~"^(hospital|clinic|doctors|pharmacy)$"](around:%d,%f,%f);
  way["amenity"~"^(hospital|clinic|doctors|pharmacy)$"](around:%d,%f,%f);
  relation["amenity"~"^(hospital|clinic|doctors|pharmacy)$"](around:%d,%f,%f);
);
out center meta;`,
		int(radiusKm*1000), lat, lon,
		int(radiusKm*1000), lat, lon,
		int(radiusKm*1000), lat, lon)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.OverpassURL, strings.NewReader(query))
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("overpass request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("overpass status: %d", resp.StatusCode)
	}

	var parsed overpassResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode overpass response: %w", err)
	}

	facilities := make([]Facility, 0, len(parsed.Elements))
	for _, el := range parsed.Elements {
		if len(el.Tags) == 0 {
			continue
		}
		fLat, fLon := el.Lat, el.Lon
		if el.Type != "node" {
			if el.Center == nil {
				continue
			}
			fLat, fLon = el.Center.Lat, el.Center.Lon
		}
		name := el.Tags["name"]
		if name == "" {
			name = "Medical Facility"
		}
		kind := el.Tags["amenity"]
		if kind == "" {
			kind = "clinic"
		}
		facilities = append(facilities, Facility{
			Name:       name,
			Type:       kind,
			Lat:        fLat,
			Lon:        fLon,
			DistanceKm: math.Round(haversineKm(lat, lon, fLat, fLon)*100) / 100,
		})
	}
	sort.Slice(facilities, func(i, j int) bool {
		return facilities[i].DistanceKm < facilities[j].DistanceKm
	})
	if len(facilities) > maxResults {
		facilities = facilities[:maxResults]
	}
	c.log.Debug("clinics_found", "count", len(facilities), "radius_km", radiusKm)
	return facilities, nil
}

type nominatimResponse struct {
	DisplayName string `json:"display_name"`
}

// pace reserves the next Nominatim slot and waits for it. Concurrent
// callers queue up GeocodeInterval apart; the first call is immediate.
func (c *Client) pace(ctx context.Context) error {
	c.mu.Lock()
	now := time.Now()
	wait := c.nextGeocode.Sub(now)
	if wait < 0 {
		wait = 0
	}
	c.nextGeocode = now.Add(wait + c.cfg.GeocodeInterval)
	c.mu.Unlock()
	if wait == 0 {
		return nil
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// ReverseGeocode turns a coordinate into a display address. It never
// fails: on any error the raw coordinate is formatted instead.
func (c *Client) ReverseGeocode(ctx context.Context, lat, lon float64) string {
	fallback := fmt.Sprintf("Location: %.4f, %.4f", lat, lon)

	if err := c.pace(ctx); err != nil {
		return fallback
	}

	q := url.Values{}
	q.Set("lat", fmt.Sprintf("%f", lat))
	q.Set("lon", fmt.Sprintf("%f", lon))
	q.Set("format", "json")
	q.Set("addressdetails", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.cfg.NominatimURL+"/reverse?"+q.Encode(), nil)
	if err != nil {
		return fallback
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn("reverse_geocode_failed", "error", err)
		return fallback
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		c.log.Warn("reverse_geocode_status", "status", resp.StatusCode)
		return fallback
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fallback
	}
	var parsed nominatimResponse
	if err := json.Unmarshal(body, &parsed); err != nil || parsed.DisplayName == "" {
		return fallback
	}
	return parsed.DisplayName
}

// haversineKm is the great-circle distance between two coordinates.
func haversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	const earthRadiusKm = 6371
	rad := func(deg float64) float64 { return deg * math.Pi / 180 }
	dLat := rad(lat2 - lat1)
	dLon := rad(lon2 - lon1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rad(lat1))*math.Cos(rad(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(a))
}
