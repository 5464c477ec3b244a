package builtin

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"
)

const duckHTML = `<!DOCTYPE html>
<html><body>
<div class="result">
  <a class="result__a" href="/l/?uddg=https%3A%2F%2Fwww.mayoclinic.org%2Ffever">Fever - Symptoms and causes</a>
  <a class="result__snippet" href="/l/?uddg=https%3A%2F%2Fwww.mayoclinic.org%2Ffever">A fever is a temporary rise in body temperature.</a>
</div>
<div class="result">
  <a class="result__a" href="https://www.nhs.uk/conditions/fever/">Fever in adults</a>
  <div class="result__snippet">Most fevers get better on their own.</div>
</div>
<div class="result">
  <a class="result__a" href="//duckduckgo.com/l/?uddg=https%3A%2F%2Fwww.who.int%2Ffever">Fever factsheet</a>
</div>
</body></html>`

func TestWebSearchMedicalTool_ParsesResults(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(duckHTML))
	}))
	defer srv.Close()

	tool := NewWebSearchMedicalTool(srv.URL, 2*time.Second, 5, "test-agent")
	out, err := tool.Execute(context.Background(), map[string]any{"query": "fever and chills"})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}

	if want := "medical research treatment fever and chills symptoms diagnosis"; gotQuery != want {
		t.Fatalf("expected query %q, got %q", want, gotQuery)
	}

	var obs struct {
		Query        string         `json:"query"`
		ResultsCount int            `json:"results_count"`
		Results      []searchResult `json:"search_results"`
	}
	if err := json.Unmarshal([]byte(out), &obs); err != nil {
		t.Fatalf("observation is not valid JSON: %v", err)
	}
	if obs.Query != "fever and chills" {
		t.Fatalf("expected raw query in observation, got %q", obs.Query)
	}
	if obs.ResultsCount != 3 || len(obs.Results) != 3 {
		t.Fatalf("expected 3 results, got count=%d len=%d", obs.ResultsCount, len(obs.Results))
	}

	first := obs.Results[0]
	if first.Title != "Fever - Symptoms and causes" {
		t.Fatalf("unexpected first title %q", first.Title)
	}
	if first.URL != "https://www.mayoclinic.org/fever" {
		t.Fatalf("expected unwrapped redirect url, got %q", first.URL)
	}
	if first.Snippet != "A fever is a temporary rise in body temperature." {
		t.Fatalf("unexpected first snippet %q", first.Snippet)
	}
	if obs.Results[1].Snippet != "Most fevers get better on their own." {
		t.Fatalf("unexpected second snippet %q", obs.Results[1].Snippet)
	}
	if obs.Results[2].Snippet != "" {
		t.Fatalf("expected empty snippet for third result, got %q", obs.Results[2].Snippet)
	}
}

func TestWebSearchMedicalTool_MaxResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(duckHTML))
	}))
	defer srv.Close()

	tool := NewWebSearchMedicalTool(srv.URL, 2*time.Second, 5, "")
	out, err := tool.Execute(context.Background(), map[string]any{
		"query":       "fever",
		"max_results": 1,
	})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}

	var obs map[string]any
	if err := json.Unmarshal([]byte(out), &obs); err != nil {
		t.Fatalf("observation is not valid JSON: %v", err)
	}
	if n, _ := obs["results_count"].(float64); n != 1 {
		t.Fatalf("expected results_count 1, got %v", obs["results_count"])
	}
}

func TestWebSearchMedicalTool_MissingQuery(t *testing.T) {
	tool := NewWebSearchMedicalTool("", time.Second, 5, "")
	if _, err := tool.Execute(context.Background(), map[string]any{}); err == nil {
		t.Fatal("expected error for missing query")
	}
}

func TestWebSearchMedicalTool_Non2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "blocked", http.StatusForbidden)
	}))
	defer srv.Close()

	tool := NewWebSearchMedicalTool(srv.URL, 2*time.Second, 5, "")
	_, err := tool.Execute(context.Background(), map[string]any{"query": "fever"})
	if err == nil || !strings.Contains(err.Error(), "status=403") {
		t.Fatalf("expected non-2xx error, got %v", err)
	}
}

func TestNormalizeDuckDuckGoResultURL(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"/l/?uddg=" + url.QueryEscape("https://example.org/a b"), "https://example.org/a b"},
		{"https://example.org/direct", "https://example.org/direct"},
		{"//duckduckgo.com/about", "https://duckduckgo.com/about"},
		{"", ""},
	}
	for _, c := range cases {
		if got := normalizeDuckDuckGoResultURL(c.in); got != c.want {
			t.Fatalf("normalize(%q): expected %q, got %q", c.in, c.want, got)
		}
	}
}
