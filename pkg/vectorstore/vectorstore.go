// Package vectorstore implements the document-retriever capability on top of
// a Qdrant collection. Query texts are embedded on the fly; retrieval never
// fails for "no results".
package vectorstore

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/qdrant/go-client/qdrant"

	contractx "github.com/relaylabs/agentrelay/agent/contract"
)

// Embedder turns a query text into a dense vector.
type Embedder interface {
	Embed(ctx context.Context, model, text string) ([]float32, error)
}

type Config struct {
	URL            string        `envconfig:"URL" split_words:"true" required:"true"`
	CollectionName string        `envconfig:"COLLECTION_NAME" split_words:"true" required:"true"`
	APIKey         string        `envconfig:"API_KEY" split_words:"true"`
	EmbeddingModel string        `envconfig:"EMBEDDING_MODEL" split_words:"true" default:"text-embedding-3-small"`
	Timeout        time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"10s"`
}

// Client implements contract.Retriever.
type Client struct {
	client         *qdrant.Client
	collectionName string
	embedder       Embedder
	embeddingModel string
	timeout        time.Duration
}

var _ contractx.Retriever = (*Client)(nil)

func New(cfg Config, embedder Embedder) (*Client, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, fmt.Errorf("qdrant url is required")
	}
	if embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}

	parsed := cfg.URL
	if !strings.HasPrefix(parsed, "http://") && !strings.HasPrefix(parsed, "https://") {
		parsed = "https://" + parsed
	}
	u, err := url.Parse(parsed)
	if err != nil {
		return nil, fmt.Errorf("failed to parse qdrant url: %w", err)
	}

	host := u.Hostname()
	port := 6334
	if u.Port() != "" {
		p, err := strconv.Atoi(u.Port())
		if err != nil {
			return nil, fmt.Errorf("invalid port: %w", err)
		}
		port = p
	}

	qdrantClient, err := qdrant.NewClient(&qdrant.Config{
		Host:   host,
		Port:   port,
		APIKey: cfg.APIKey,
		UseTLS: u.Scheme == "https",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		client:         qdrantClient,
		collectionName: strings.TrimSpace(cfg.CollectionName),
		embedder:       embedder,
		embeddingModel: strings.TrimSpace(cfg.EmbeddingModel),
		timeout:        timeout,
	}, nil
}

// Retrieve embeds the query and returns up to k passages ordered by score.
// An empty slice is a valid result.
func (c *Client) Retrieve(ctx context.Context, query string, k int) ([]contractx.Passage, error) {
	if k <= 0 {
		k = 5
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	vector, err := c.embedder.Embed(callCtx, c.embeddingModel, query)
	if err != nil {
		return nil, fmt.Errorf("embed retrieval query: %w", err)
	}

	limit := uint64(k)
	points, err := c.client.Query(callCtx, &qdrant.QueryPoints{
		CollectionName: c.collectionName,
		Query:          qdrant.NewQuery(vector...),
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant search failed: %w", err)
	}

	passages := make([]contractx.Passage, 0, len(points))
	for _, point := range points {
		p := contractx.Passage{Score: point.Score}
		for key, value := range point.Payload {
			switch key {
			case "content", "text":
				if s := value.GetStringValue(); s != "" {
					p.Text = s
				}
			case "source", "source_id":
				if s := value.GetStringValue(); s != "" {
					p.Source = s
				}
			}
		}
		if p.Text == "" {
			continue
		}
		passages = append(passages, p)
	}
	return passages, nil
}

func (c *Client) Close() error {
	return c.client.Close()
}
