// Package llmclient wraps the OpenAI-compatible chat completions API as the
// text-completion capability consumed by the routing, agent, summarization,
// and moderation paths.
package llmclient

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	contractx "github.com/relaylabs/agentrelay/agent/contract"
)

type Config struct {
	BaseURL            string        `envconfig:"BASE_URL" split_words:"true" default:"https://openrouter.ai/api/v1"`
	APIKey             string        `envconfig:"API_KEY" split_words:"true" required:"true"`
	Model              string        `envconfig:"MODEL" split_words:"true" required:"true"`
	MaxCompletionToken int           `envconfig:"MAX_COMPLETION_TOKEN" split_words:"true" default:"1024"`
	Temperature        float64       `envconfig:"TEMPERATURE" split_words:"true" default:"0.3"`
	Timeout            time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"30s"`
	SiteURL            string        `envconfig:"SITE_URL" split_words:"true"`
	SiteName           string        `envconfig:"SITE_NAME" split_words:"true"`

	// Per-purpose overrides; empty/negative means "use the default".
	RoutingModel          string  `envconfig:"ROUTING_MODEL" split_words:"true"`
	SummaryModel          string  `envconfig:"SUMMARY_MODEL" split_words:"true"`
	ModerationModel       string  `envconfig:"MODERATION_MODEL" split_words:"true"`
	RoutingTemperature    float64 `envconfig:"ROUTING_TEMPERATURE" split_words:"true" default:"-1"`
	SummaryTemperature    float64 `envconfig:"SUMMARY_TEMPERATURE" split_words:"true" default:"-1"`
	ModerationTemperature float64 `envconfig:"MODERATION_TEMPERATURE" split_words:"true" default:"-1"`
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return fmt.Errorf("%w: llm api key is required", contractx.ErrValidation)
	}
	if strings.TrimSpace(c.Model) == "" {
		return fmt.Errorf("%w: default model is required", contractx.ErrValidation)
	}
	return nil
}

func (c Config) modelFor(purpose contractx.CompletionPurpose) (string, float64) {
	model := strings.TrimSpace(c.Model)
	temp := c.Temperature

	switch purpose {
	case contractx.PurposeRouting:
		if v := strings.TrimSpace(c.RoutingModel); v != "" {
			model = v
		}
		if c.RoutingTemperature >= 0 {
			temp = c.RoutingTemperature
		}
	case contractx.PurposeSummary:
		if v := strings.TrimSpace(c.SummaryModel); v != "" {
			model = v
		}
		if c.SummaryTemperature >= 0 {
			temp = c.SummaryTemperature
		}
	case contractx.PurposeModeration:
		if v := strings.TrimSpace(c.ModerationModel); v != "" {
			model = v
		}
		if c.ModerationTemperature >= 0 {
			temp = c.ModerationTemperature
		}
	}
	return model, temp
}

// Client implements contract.Completer.
type Client struct {
	sdk     openaisdk.Client
	cfg     Config
	timeout time.Duration
}

var _ contractx.Completer = (*Client)(nil)

func New(cfg Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	opts := []option.RequestOption{
		option.WithAPIKey(strings.TrimSpace(cfg.APIKey)),
	}
	if trimmed := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"); trimmed != "" {
		opts = append(opts, option.WithBaseURL(trimmed))
	}
	if cfg.SiteURL != "" {
		opts = append(opts, option.WithHeader("HTTP-Referer", cfg.SiteURL))
	}
	if cfg.SiteName != "" {
		opts = append(opts, option.WithHeader("X-Title", cfg.SiteName))
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		sdk:     openaisdk.NewClient(opts...),
		cfg:     cfg,
		timeout: timeout,
	}, nil
}

func MustNew(cfg Config) *Client {
	client, err := New(cfg)
	if err != nil {
		panic(err)
	}
	return client
}

// Complete issues one chat completion call bounded by the configured timeout.
func (c *Client) Complete(ctx context.Context, req contractx.CompletionRequest) (string, error) {
	model, temp := c.cfg.modelFor(req.Purpose)

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = c.cfg.MaxCompletionToken
	}

	messages := make([]openaisdk.ChatCompletionMessageParamUnion, 0, 2)
	if strings.TrimSpace(req.System) != "" {
		messages = append(messages, openaisdk.SystemMessage(req.System))
	}
	messages = append(messages, openaisdk.UserMessage(req.Prompt))

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.sdk.Chat.Completions.New(callCtx, openaisdk.ChatCompletionNewParams{
		Model:       openaisdk.ChatModel(model),
		Messages:    messages,
		MaxTokens:   openaisdk.Int(int64(maxTokens)),
		Temperature: openaisdk.Float(temp),
	})
	if err != nil {
		return "", fmt.Errorf("llm completion (model=%s): %w", model, err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("llm completion returned no choices")
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
