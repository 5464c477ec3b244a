package builtin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"
)

// WebSearchMedicalTool queries DuckDuckGo's HTML endpoint for medical
// sources. The raw query is wrapped with medical terms so casual phrasing
// ("my head hurts") still lands on clinical pages.
type WebSearchMedicalTool struct {
	BaseURL      string
	Timeout      time.Duration
	MaxResults   int
	UserAgent    string
	MaxBodyBytes int64
}

func NewWebSearchMedicalTool(baseURL string, timeout time.Duration, maxResults int, userAgent string) *WebSearchMedicalTool {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = "https://duckduckgo.com/html/"
	}
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	if maxResults <= 0 {
		maxResults = 5
	}
	if strings.TrimSpace(userAgent) == "" {
		userAgent = "MedSenseAI/1.0"
	}

	return &WebSearchMedicalTool{
		BaseURL:      baseURL,
		Timeout:      timeout,
		MaxResults:   maxResults,
		UserAgent:    userAgent,
		MaxBodyBytes: 2 * 1024 * 1024,
	}
}

func (t *WebSearchMedicalTool) Name() string { return "web_search_medical" }

func (t *WebSearchMedicalTool) Description() string {
	return "Search the web for current medical information, research and treatment guidance. Returns a JSON list of results (title, url, snippet)."
}

func (t *WebSearchMedicalTool) ParameterSchema() string {
	s := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"query": map[string]any{
				"type":        "string",
				"description": "Symptoms or medical topic to research.",
			},
			"max_results": map[string]any{
				"type":        "integer",
				"description": "Optional max results to return.",
			},
		},
		"required": []string{"query"},
	}
	b, _ := json.MarshalIndent(s, "", "  ")
	return string(b)
}

type searchResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet,omitempty"`
}

func (t *WebSearchMedicalTool) Execute(ctx context.Context, params map[string]any) (string, error) {
	query, err := requireString(params, "query")
	if err != nil {
		return "", err
	}

	maxResults := t.MaxResults
	if v, ok := params["max_results"]; ok {
		if n, ok := asInt64(v); ok && n > 0 {
			maxResults = int(n)
		}
	}
	if maxResults > 20 {
		maxResults = 20
	}

	base, err := url.Parse(t.BaseURL)
	if err != nil {
		return "", fmt.Errorf("invalid base_url: %w", err)
	}
	u := *base
	qs := u.Query()
	qs.Set("q", fmt.Sprintf("medical research treatment %s symptoms diagnosis", query))
	u.RawQuery = qs.Encode()

	reqCtx, cancel := context.WithTimeout(ctx, t.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", t.UserAgent)

	httpClient := &http.Client{Timeout: t.Timeout}
	resp, err := httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 32*1024))
		return "", fmt.Errorf("web_search_medical non-2xx status=%d body=%s", resp.StatusCode, string(bytes.ToValidUTF8(body, []byte("[non-utf8]"))))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, t.MaxBodyBytes))
	if err != nil {
		return "", err
	}

	results, err := parseDuckDuckGoHTML(body)
	if err != nil {
		return "", err
	}
	if len(results) > maxResults {
		results = results[:maxResults]
	}

	out := map[string]any{
		"query":          query,
		"results_count":  len(results),
		"search_results": results,
	}
	b, _ := json.MarshalIndent(out, "", "  ")
	return string(b), nil
}

// parseDuckDuckGoHTML extracts title links (<a class="result__a">) and pairs
// each with the nearest following result__snippet block.
func parseDuckDuckGoHTML(htmlBytes []byte) ([]searchResult, error) {
	root, err := html.Parse(bytes.NewReader(htmlBytes))
	if err != nil {
		return nil, err
	}

	var out []searchResult

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n == nil {
			return
		}

		if n.Type == html.ElementNode && n.Data == "a" && hasClass(n, "result__a") {
			href := attr(n, "href")
			title := strings.TrimSpace(textContent(n))
			if href != "" && title != "" {
				out = append(out, searchResult{
					Title: title,
					URL:   normalizeDuckDuckGoResultURL(href),
				})
			}
			return
		}

		if n.Type == html.ElementNode && hasClass(n, "result__snippet") {
			if len(out) > 0 && out[len(out)-1].Snippet == "" {
				out[len(out)-1].Snippet = strings.TrimSpace(textContent(n))
			}
			return
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)

	return out, nil
}

func normalizeDuckDuckGoResultURL(href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}

	// Often: /l/?uddg=<encoded>
	u, err := url.Parse(href)
	if err != nil {
		return href
	}

	if u.Path == "/l/" {
		uddg := u.Query().Get("uddg")
		if uddg != "" {
			decoded, err := url.QueryUnescape(uddg)
			if err == nil && decoded != "" {
				return decoded
			}
		}
	}

	if u.Scheme == "" && strings.HasPrefix(href, "//") {
		return "https:" + href
	}

	return href
}

func hasClass(n *html.Node, want string) bool {
	want = strings.TrimSpace(want)
	if want == "" {
		return false
	}
	class := attr(n, "class")
	for _, part := range strings.Fields(class) {
		if part == want {
			return true
		}
	}
	return false
}

func attr(n *html.Node, name string) string {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val
		}
	}
	return ""
}

func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(x *html.Node) {
		if x == nil {
			return
		}
		if x.Type == html.TextNode {
			b.WriteString(x.Data)
		}
		for c := x.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(b.String()), " ")
}
