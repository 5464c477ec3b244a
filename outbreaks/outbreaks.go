// Package outbreaks surfaces WHO Disease Outbreak News events relevant
// to a user's country.
package outbreaks

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const summaryLimit = 200

// Outbreak is one WHO event matched to a country.
type Outbreak struct {
	Disease  string `json:"disease"`
	Location string `json:"location"`
	Date     string `json:"date"`
	Summary  string `json:"summary"`
}

type Config struct {
	URL     string
	Timeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		URL:     "https://extranet.who.int/publicemergency/api/events",
		Timeout: 10 * time.Second,
	}
}

type Client struct {
	cfg  Config
	http *http.Client
	log  *slog.Logger
}

func New(cfg Config, log *slog.Logger) *Client {
	if cfg.URL == "" {
		cfg.URL = DefaultConfig().URL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}
	if log == nil {
		log = slog.Default()
	}
	return &Client{cfg: cfg, http: &http.Client{Timeout: cfg.Timeout}, log: log}
}

type donFeed struct {
	Events []donEvent `json:"events"`
}

type donEvent struct {
	Disease       string `json:"disease"`
	Location      string `json:"location"`
	DatePublished string `json:"date_published"`
	Summary       string `json:"summary"`
}

// CheckCountry returns current outbreaks whose location mentions the
// country. An empty country yields no matches without a network call.
func (c *Client) CheckCountry(ctx context.Context, country string) ([]Outbreak, error) {
	country = strings.TrimSpace(country)
	if country == "" {
		return nil, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.URL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("who don request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("who don status: %d", resp.StatusCode)
	}

	var feed donFeed
	if err := json.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return nil, fmt.Errorf("decode who don feed: %w", err)
	}

	needle := strings.ToLower(country)
	var matched []Outbreak
	for _, ev := range feed.Events {
		if !strings.Contains(strings.ToLower(ev.Location), needle) {
			continue
		}
		disease := ev.Disease
		if disease == "" {
			disease = "Unknown"
		}
		matched = append(matched, Outbreak{
			Disease:  disease,
			Location: ev.Location,
			Date:     ev.DatePublished,
			Summary:  truncateSummary(ev.Summary),
		})
	}
	c.log.Debug("outbreaks_checked", "country", country, "matches", len(matched))
	return matched, nil
}

func truncateSummary(s string) string {
	if len(s) <= summaryLimit {
		return s
	}
	return s[:summaryLimit] + "..."
}
