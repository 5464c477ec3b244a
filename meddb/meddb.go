// Package meddb consults the EndlessMedical differential-diagnosis API
// as a second opinion alongside the reasoning engine.
package meddb

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// termsPassphrase is the exact acceptance string the API requires
// before it answers any session.
const termsPassphrase = "I have read, understood and I accept and agree to comply with the Terms of Use of EndlessMedicalAPI and Endless Medical services. The Terms of Use are available on endlessmedical.com"

const maxConditions = 3

// Condition is one candidate diagnosis with its probability.
type Condition struct {
	Name        string  `json:"name"`
	Probability float64 `json:"probability"`
	CommonName  string  `json:"common_name"`
}

// Result is the outcome of one analysis session. Status is "success"
// when conditions were found and "no_conditions" when the analysis ran
// but produced none.
type Result struct {
	Conditions []Condition `json:"conditions"`
	Status     string      `json:"status"`
}

type Config struct {
	BaseURL string
	Timeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		BaseURL: "https://api.endlessmedical.com/v1/dx",
		Timeout: 15 * time.Second,
	}
}

type Client struct {
	cfg  Config
	http *http.Client
	log  *slog.Logger
}

func New(cfg Config, log *slog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultConfig().BaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}
	if log == nil {
		log = slog.Default()
	}
	return &Client{cfg: cfg, http: &http.Client{Timeout: cfg.Timeout}, log: log}
}

// Ping verifies the API accepts sessions.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.initSession(ctx)
	return err
}

// Diagnose runs one analysis session for the symptom text. It returns
// (nil, nil) when no feature could be derived from the symptoms, since
// an analysis without features is meaningless.
func (c *Client) Diagnose(ctx context.Context, symptoms string, age *int) (*Result, error) {
	features := featuresFor(symptoms, age)
	if len(features) == 0 {
		c.log.Debug("meddb_no_features", "symptoms_len", len(symptoms))
		return nil, nil
	}

	sessionID, err := c.initSession(ctx)
	if err != nil {
		return nil, err
	}
	if err := c.acceptTerms(ctx, sessionID); err != nil {
		return nil, err
	}

	applied := 0
	for _, f := range features {
		if err := c.updateFeature(ctx, sessionID, f); err != nil {
			c.log.Warn("meddb_feature_rejected", "feature", f.name, "error", err)
			continue
		}
		applied++
	}
	if applied == 0 {
		return nil, nil
	}

	return c.analyze(ctx, sessionID)
}

type feature struct {
	name  string
	value string
}

// featuresFor maps free-text symptoms onto the API's feature space.
// Only features the API reliably accepts are derived.
func featuresFor(symptoms string, age *int) []feature {
	var fs []feature
	if age != nil && *age > 0 {
		fs = append(fs, feature{"Age", strconv.Itoa(*age)})
	}
	lower := strings.ToLower(symptoms)
	has := func(words ...string) bool {
		for _, w := range words {
			if strings.Contains(lower, w) {
				return true
			}
		}
		return false
	}
	switch {
	case has("fever", "hot", "temperature", "high temp"):
		fs = append(fs, feature{"Temp", "38.5"})
	case has("chills", "cold", "shivering"):
		fs = append(fs, feature{"Chills", "1"})
	}
	if has("tired", "fatigue", "weakness", "weak") {
		fs = append(fs, feature{"GeneralizedFatigue", "1"})
	}
	return fs
}

type apiStatus struct {
	Status    string `json:"status"`
	SessionID string `json:"SessionID"`
	Error     string `json:"error"`
}

func (c *Client) initSession(ctx context.Context) (string, error) {
	var out apiStatus
	if err := c.call(ctx, http.MethodGet, "/InitSession", nil, &out); err != nil {
		return "", fmt.Errorf("init session: %w", err)
	}
	if out.Status != "ok" || out.SessionID == "" {
		return "", fmt.Errorf("init session rejected: status=%s", out.Status)
	}
	return out.SessionID, nil
}

func (c *Client) acceptTerms(ctx context.Context, sessionID string) error {
	params := url.Values{}
	params.Set("SessionID", sessionID)
	params.Set("passphrase", termsPassphrase)
	var out apiStatus
	if err := c.call(ctx, http.MethodPost, "/AcceptTermsOfUse", params, &out); err != nil {
		return fmt.Errorf("accept terms: %w", err)
	}
	if out.Status != "ok" {
		return fmt.Errorf("accept terms rejected: status=%s", out.Status)
	}
	return nil
}

func (c *Client) updateFeature(ctx context.Context, sessionID string, f feature) error {
	params := url.Values{}
	params.Set("SessionID", sessionID)
	params.Set("name", f.name)
	params.Set("value", f.value)
	var out apiStatus
	if err := c.call(ctx, http.MethodPost, "/UpdateFeature", params, &out); err != nil {
		return err
	}
	if out.Status != "ok" {
		return fmt.Errorf("feature rejected: status=%s", out.Status)
	}
	return nil
}

type analyzeResponse struct {
	Status   string           `json:"status"`
	Diseases []map[string]any `json:"Diseases"`
}

func (c *Client) analyze(ctx context.Context, sessionID string) (*Result, error) {
	params := url.Values{}
	params.Set("SessionID", sessionID)
	var out analyzeResponse
	if err := c.call(ctx, http.MethodGet, "/Analyze", params, &out); err != nil {
		return nil, fmt.Errorf("analyze: %w", err)
	}
	if out.Status != "ok" {
		return nil, fmt.Errorf("analyze rejected: status=%s", out.Status)
	}
	if len(out.Diseases) == 0 {
		return &Result{Status: "no_conditions"}, nil
	}

	diseases := out.Diseases
	if len(diseases) > maxConditions {
		diseases = diseases[:maxConditions]
	}
	var conditions []Condition
	for _, entry := range diseases {
		for name, raw := range entry {
			prob, ok := asProbability(raw)
			if !ok {
				continue
			}
			conditions = append(conditions, Condition{Name: name, Probability: prob, CommonName: name})
		}
	}
	c.log.Debug("meddb_conditions", "count", len(conditions))
	return &Result{Conditions: conditions, Status: "success"}, nil
}

// asProbability accepts both the numeric and string encodings the API
// uses for disease probabilities.
func asProbability(v any) (float64, bool) {
	switch p := v.(type) {
	case float64:
		return p, true
	case string:
		f, err := strconv.ParseFloat(p, 64)
		return f, err == nil
	}
	return 0, false
}

func (c *Client) call(ctx context.Context, method, path string, params url.Values, out any) error {
	endpoint := c.cfg.BaseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
