// Package moderation applies the safety classifier to every candidate
// response before it is persisted or returned. The check is pure
// classification: idempotent and side-effect-free.
package moderation

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	contractx "github.com/relaylabs/agentrelay/agent/contract"
)

type Config struct {
	CheckTimeout time.Duration `envconfig:"CHECK_TIMEOUT" split_words:"true" default:"10s"`
}

// Gate wraps the moderation classifier with a bounded timeout. A classifier
// fault fails closed: the candidate is treated as rejected so unvetted text
// never reaches the user.
type Gate struct {
	classifier contractx.ModerationClassifier
	timeout    time.Duration
}

func NewGate(classifier contractx.ModerationClassifier, cfg Config) *Gate {
	timeout := cfg.CheckTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Gate{classifier: classifier, timeout: timeout}
}

// Check classifies one candidate response. It never returns an error;
// failures map to a rejection with an internal reason.
func (g *Gate) Check(ctx context.Context, candidate string) contractx.ModerationResult {
	if g.classifier == nil {
		return contractx.ModerationResult{Allowed: true}
	}

	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	result, err := g.classifier.Classify(callCtx, candidate)
	if err != nil {
		log.Warn().Err(err).Msg("moderation classifier failed, rejecting candidate")
		return contractx.ModerationResult{Allowed: false, Reason: "moderation classifier unavailable"}
	}
	return result
}

// LLMClassifier implements the moderation classifier on the completion
// capability with a strict JSON verdict.
type LLMClassifier struct {
	completer    contractx.Completer
	systemPrompt string
}

var _ contractx.ModerationClassifier = (*LLMClassifier)(nil)

func NewLLMClassifier(completer contractx.Completer, systemPrompt string) *LLMClassifier {
	return &LLMClassifier{completer: completer, systemPrompt: systemPrompt}
}

type verdict struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason"`
}

func (c *LLMClassifier) Classify(ctx context.Context, text string) (contractx.ModerationResult, error) {
	raw, err := c.completer.Complete(ctx, contractx.CompletionRequest{
		System:    c.systemPrompt,
		Prompt:    fmt.Sprintf("Candidate response:\n%s\n\nReturn only the JSON object:", text),
		MaxTokens: 128,
		Purpose:   contractx.PurposeModeration,
	})
	if err != nil {
		return contractx.ModerationResult{}, err
	}

	var v verdict
	if err := json.Unmarshal([]byte(extractJSON(raw)), &v); err != nil {
		return contractx.ModerationResult{}, fmt.Errorf("unparsable moderation verdict: %w", err)
	}
	return contractx.ModerationResult{Allowed: v.Allowed, Reason: strings.TrimSpace(v.Reason)}, nil
}

func extractJSON(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return raw
	}
	return raw[start : end+1]
}
