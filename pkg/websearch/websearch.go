// Package websearch implements the web-search capability against the
// DuckDuckGo instant-answer API. Only the analysis agent consumes it, under
// a per-turn call budget enforced by the caller.
package websearch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	contractx "github.com/relaylabs/agentrelay/agent/contract"
)

const maxResponseSizeBytes = 2 << 20

type Config struct {
	BaseURL    string        `split_words:"true" default:"https://api.duckduckgo.com"`
	MaxResults int           `split_words:"true" default:"5"`
	Timeout    time.Duration `split_words:"true" default:"10s"`
}

type Client struct {
	baseURL    string
	maxResults int
	httpClient *http.Client
}

var _ contractx.Searcher = (*Client)(nil)

func NewClient(cfg Config) (*Client, error) {
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		return nil, errors.New("websearch base url is required")
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, err
	}

	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = 5
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		maxResults: maxResults,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

func MustNew(cfg Config) *Client {
	client, err := NewClient(cfg)
	if err != nil {
		panic(err)
	}
	return client
}

type instantAnswerResponse struct {
	AbstractText  string         `json:"AbstractText"`
	AbstractURL   string         `json:"AbstractURL"`
	Heading       string         `json:"Heading"`
	RelatedTopics []relatedTopic `json:"RelatedTopics"`
}

type relatedTopic struct {
	Text     string         `json:"Text"`
	FirstURL string         `json:"FirstURL"`
	Topics   []relatedTopic `json:"Topics"`
}

// Search returns up to MaxResults hits for the query. An empty result set is
// valid and not an error.
func (c *Client) Search(ctx context.Context, query string) ([]contractx.SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New("search query is empty")
	}

	endpoint := fmt.Sprintf("%s/?q=%s&format=json&no_html=1&skip_disambig=1",
		c.baseURL, url.QueryEscape(query))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build search request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute search request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSizeBytes))
	if err != nil {
		return nil, fmt.Errorf("read search response: %w", err)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("search http status=%d", resp.StatusCode)
	}

	var parsed instantAnswerResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	results := make([]contractx.SearchResult, 0, c.maxResults)
	if parsed.AbstractText != "" {
		results = append(results, contractx.SearchResult{
			Title:   parsed.Heading,
			URL:     parsed.AbstractURL,
			Snippet: parsed.AbstractText,
		})
	}
	results = appendTopics(results, parsed.RelatedTopics, c.maxResults)
	return results, nil
}

func appendTopics(results []contractx.SearchResult, topics []relatedTopic, limit int) []contractx.SearchResult {
	for _, topic := range topics {
		if len(results) >= limit {
			break
		}
		if len(topic.Topics) > 0 {
			results = appendTopics(results, topic.Topics, limit)
			continue
		}
		if strings.TrimSpace(topic.Text) == "" {
			continue
		}
		results = append(results, contractx.SearchResult{
			Title:   firstSentence(topic.Text),
			URL:     topic.FirstURL,
			Snippet: topic.Text,
		})
	}
	return results
}

func firstSentence(text string) string {
	if idx := strings.Index(text, " - "); idx > 0 {
		return text[:idx]
	}
	return text
}
