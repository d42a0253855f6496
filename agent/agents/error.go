package agents

import (
	"context"
	"time"

	contractx "github.com/relaylabs/agentrelay/agent/contract"
)

// FallbackResponse is the fixed apologetic reply returned whenever a turn
// cannot be answered normally.
const FallbackResponse = "I'm sorry, I encountered a problem while processing your request. Please try again."

// ErrorAgent is the deterministic fallback variant. It performs no external
// calls and cannot fail.
type ErrorAgent struct{}

var _ contractx.Agent = (*ErrorAgent)(nil)

func NewErrorAgent() *ErrorAgent {
	return &ErrorAgent{}
}

func (a *ErrorAgent) Kind() contractx.AgentSelection {
	return contractx.AgentError
}

func (a *ErrorAgent) Execute(ctx context.Context, in contractx.AgentInput) (contractx.AgentOutput, error) {
	return contractx.AgentOutput{
		Response: FallbackResponse,
		Metadata: map[string]any{
			"agent_type":      string(contractx.AgentError),
			"processing_time": time.Now().UTC().Format(time.RFC3339),
		},
	}, nil
}
