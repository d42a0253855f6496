package llmclient

import (
	"errors"
	"testing"

	contractx "github.com/relaylabs/agentrelay/agent/contract"
)

func TestNewValidatesConfig(t *testing.T) {
	t.Parallel()

	if _, err := New(Config{Model: "gpt-4o-mini"}); !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("expected ErrValidation without api key, got %v", err)
	}
	if _, err := New(Config{APIKey: "sk-test"}); !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("expected ErrValidation without model, got %v", err)
	}
	if _, err := New(Config{APIKey: "sk-test", Model: "gpt-4o-mini"}); err != nil {
		t.Fatalf("New() error = %v", err)
	}
}

func TestModelForPurposeOverrides(t *testing.T) {
	t.Parallel()

	cfg := Config{
		APIKey:                "sk-test",
		Model:                 "gpt-4o-mini",
		Temperature:           0.3,
		RoutingModel:          "gpt-4o-nano",
		RoutingTemperature:    0,
		SummaryTemperature:    -1,
		ModerationTemperature: -1,
	}

	model, temp := cfg.modelFor(contractx.PurposeRouting)
	if model != "gpt-4o-nano" {
		t.Fatalf("expected routing model override, got %q", model)
	}
	if temp != 0 {
		t.Fatalf("expected routing temperature 0, got %v", temp)
	}

	model, temp = cfg.modelFor(contractx.PurposeResponse)
	if model != "gpt-4o-mini" || temp != 0.3 {
		t.Fatalf("expected defaults for response purpose, got %q %v", model, temp)
	}

	model, temp = cfg.modelFor(contractx.PurposeSummary)
	if model != "gpt-4o-mini" || temp != 0.3 {
		t.Fatalf("expected fallthrough to defaults, got %q %v", model, temp)
	}
}
