package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const defaultBaseURL = "https://graph.facebook.com/v19.0"

// Client talks to Meta's WhatsApp Cloud API: outbound text messages on
// behalf of the business number, plus the two-step media fetch (id to
// lookaside URL, then an authorized download).
type Client struct {
	http          *http.Client
	baseURL       string
	token         string
	phoneNumberID string
}

// NewClient builds a Graph API client. baseURL overrides the Graph host,
// mainly for tests; the zero value points at the production endpoint.
func NewClient(httpClient *http.Client, baseURL, token, phoneNumberID string) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	baseURL = strings.TrimSpace(strings.TrimRight(baseURL, "/"))
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		http:          httpClient,
		baseURL:       baseURL,
		token:         strings.TrimSpace(token),
		phoneNumberID: strings.TrimSpace(phoneNumberID),
	}
}

// Send delivers a text message to a WhatsApp user. The recipient is the
// phone number in international format, as it arrives in webhook events.
// Rate-limited and transiently failed sends are retried a few times
// before the error is surfaced.
func (c *Client) Send(ctx context.Context, recipient, text string) error {
	if c == nil || c.http == nil {
		return fmt.Errorf("whatsapp client is not initialized")
	}
	token := strings.TrimSpace(c.token)
	if token == "" {
		return fmt.Errorf("whatsapp access token is required")
	}
	phoneID := strings.TrimSpace(c.phoneNumberID)
	if phoneID == "" {
		return fmt.Errorf("whatsapp phone number id is required")
	}
	recipient = strings.TrimSpace(recipient)
	if recipient == "" {
		return fmt.Errorf("recipient is required")
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return fmt.Errorf("text is required")
	}

	type textBody struct {
		Body string `json:"body"`
	}
	type requestBody struct {
		MessagingProduct string   `json:"messaging_product"`
		To               string   `json:"to"`
		Type             string   `json:"type"`
		Text             textBody `json:"text"`
	}

	payload := requestBody{
		MessagingProduct: "whatsapp",
		To:               recipient,
		Type:             "text",
		Text:             textBody{Body: text},
	}
	const maxAttempts = 3
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		bodyRaw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal whatsapp payload: %w", err)
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+phoneID+"/messages", bytes.NewReader(bodyRaw))
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.http.Do(req)
		status := 0
		headers := http.Header{}
		if err != nil {
			lastErr = err
		} else {
			status = resp.StatusCode
			headers = resp.Header
			respRaw, readErr := io.ReadAll(resp.Body)
			_ = resp.Body.Close()
			if readErr != nil {
				lastErr = readErr
			} else if status == http.StatusOK {
				return nil
			} else {
				lastErr = fmt.Errorf("whatsapp send http %d: %s", status, graphErrorMessage(respRaw))
			}
		}

		if attempt >= maxAttempts {
			break
		}
		if status == 0 {
			status = http.StatusBadGateway
		}
		wait, retryable := retryDelay(status, headers, attempt)
		if !retryable {
			break
		}
		if err := sleepWithContext(ctx, wait); err != nil {
			return err
		}
	}
	return lastErr
}

// mediaURL resolves a media id from a webhook event into the lookaside
// URL the content can be downloaded from. The URL is short-lived.
func (c *Client) mediaURL(ctx context.Context, mediaID string) (string, error) {
	mediaID = strings.TrimSpace(mediaID)
	if mediaID == "" {
		return "", fmt.Errorf("media id is required")
	}
	token := strings.TrimSpace(c.token)
	if token == "" {
		return "", fmt.Errorf("whatsapp access token is required")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/"+url.PathEscape(mediaID), nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return "", readErr
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("whatsapp media lookup http %d: %s", resp.StatusCode, graphErrorMessage(raw))
	}
	var out struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("decode whatsapp media lookup: %w", err)
	}
	if strings.TrimSpace(out.URL) == "" {
		return "", fmt.Errorf("whatsapp media lookup: missing url")
	}
	return out.URL, nil
}

// downloadMedia fetches media content from a lookaside URL. The same
// bearer token authorizes the download.
func (c *Client) downloadMedia(ctx context.Context, mediaURL string, maxBytes int64) ([]byte, error) {
	if strings.TrimSpace(mediaURL) == "" {
		return nil, fmt.Errorf("media url is required")
	}
	if maxBytes <= 0 {
		maxBytes = 20 * 1024 * 1024
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, mediaURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+strings.TrimSpace(c.token))

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("whatsapp media download http %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > maxBytes {
		return nil, fmt.Errorf("whatsapp media too large (>%d bytes)", maxBytes)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("whatsapp download: empty media")
	}
	return data, nil
}

// graphErrorMessage pulls the human-readable message out of a Graph API
// error body, falling back to the raw body when it is not the usual
// {"error": {...}} shape.
func graphErrorMessage(raw []byte) string {
	var out struct {
		Error struct {
			Message string `json:"message"`
			Type    string `json:"type"`
			Code    int    `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(raw, &out); err == nil {
		if msg := strings.TrimSpace(out.Error.Message); msg != "" {
			return msg
		}
	}
	msg := strings.TrimSpace(string(raw))
	if msg == "" {
		msg = "unknown_error"
	}
	return msg
}

func retryDelay(status int, headers http.Header, attempt int) (time.Duration, bool) {
	switch {
	case status == http.StatusTooManyRequests:
		retryAfter := strings.TrimSpace(headers.Get("Retry-After"))
		if retryAfter == "" {
			return 1 * time.Second, true
		}
		secs, err := strconv.Atoi(retryAfter)
		if err != nil || secs <= 0 {
			return 1 * time.Second, true
		}
		return time.Duration(secs) * time.Second, true
	case status >= 500 && status <= 599:
		switch attempt {
		case 1:
			return 300 * time.Millisecond, true
		case 2:
			return 1 * time.Second, true
		default:
			return 2 * time.Second, true
		}
	default:
		return 0, false
	}
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
