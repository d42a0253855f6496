package websearch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

const instantAnswerFixture = `{
	"Heading": "Gaming mouse",
	"AbstractText": "A gaming mouse is a pointing device optimized for games.",
	"AbstractURL": "https://example.org/gaming-mouse",
	"RelatedTopics": [
		{"Text": "Mouse A - lightweight wireless model", "FirstURL": "https://example.org/a"},
		{"Topics": [
			{"Text": "Mouse B - wired model with high polling rate", "FirstURL": "https://example.org/b"}
		]},
		{"Text": "", "FirstURL": "https://example.org/empty"},
		{"Text": "Mouse C - budget option", "FirstURL": "https://example.org/c"}
	]
}`

func TestSearchParsesInstantAnswers(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("q"); got != "gaming mouse" {
			t.Errorf("unexpected query: %q", got)
		}
		if got := r.URL.Query().Get("format"); got != "json" {
			t.Errorf("expected json format, got %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(instantAnswerFixture))
	}))
	defer server.Close()

	client, err := NewClient(Config{BaseURL: server.URL, MaxResults: 3})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	results, err := client.Search(context.Background(), "gaming mouse")
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results capped by MaxResults, got %d", len(results))
	}
	if results[0].Title != "Gaming mouse" || results[0].URL != "https://example.org/gaming-mouse" {
		t.Fatalf("unexpected abstract result: %+v", results[0])
	}
	if results[1].Title != "Mouse A" {
		t.Fatalf("expected title cut at separator, got %q", results[1].Title)
	}
	if results[2].URL != "https://example.org/b" {
		t.Fatalf("expected nested topic flattened, got %+v", results[2])
	}
}

func TestSearchEmptyResultIsValid(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"AbstractText": "", "RelatedTopics": []}`))
	}))
	defer server.Close()

	client, err := NewClient(Config{BaseURL: server.URL})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	results, err := client.Search(context.Background(), "nothing matches this")
	if err != nil {
		t.Fatalf("empty result set must not error, got %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected no results, got %d", len(results))
	}
}

func TestSearchHTTPErrorStatus(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer server.Close()

	client, err := NewClient(Config{BaseURL: server.URL})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	if _, err := client.Search(context.Background(), "anything"); err == nil {
		t.Fatal("expected error on non-2xx status")
	}
}

func TestSearchRejectsEmptyQuery(t *testing.T) {
	t.Parallel()

	client, err := NewClient(Config{BaseURL: "https://api.duckduckgo.com"})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	if _, err := client.Search(context.Background(), "   "); err == nil {
		t.Fatal("expected error for empty query")
	}
}

func TestNewClientValidation(t *testing.T) {
	t.Parallel()

	if _, err := NewClient(Config{}); err == nil {
		t.Fatal("expected error without base url")
	}
	if _, err := NewClient(Config{BaseURL: "://bad"}); err == nil {
		t.Fatal("expected error for malformed base url")
	}
}
