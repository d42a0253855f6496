package agents

import (
	"context"
	"fmt"
	"time"

	contractx "github.com/relaylabs/agentrelay/agent/contract"
)

// ConversationAgent handles general dialogue from session and mid-term
// context. No retrieval.
type ConversationAgent struct {
	completer    contractx.Completer
	systemPrompt string
}

var _ contractx.Agent = (*ConversationAgent)(nil)

func NewConversationAgent(completer contractx.Completer, systemPrompt string) *ConversationAgent {
	return &ConversationAgent{completer: completer, systemPrompt: systemPrompt}
}

func (a *ConversationAgent) Kind() contractx.AgentSelection {
	return contractx.AgentConversation
}

func (a *ConversationAgent) Execute(ctx context.Context, in contractx.AgentInput) (contractx.AgentOutput, error) {
	prompt := fmt.Sprintf("%s\n\nUser message: %s", renderContext(in.Context), in.UserInput)

	response, err := withRetry(ctx, func(ctx context.Context) (string, error) {
		return a.completer.Complete(ctx, contractx.CompletionRequest{
			System:  a.systemPrompt,
			Prompt:  prompt,
			Purpose: contractx.PurposeResponse,
		})
	})
	if err != nil {
		return contractx.AgentOutput{}, fmt.Errorf("%w: conversation: %v", contractx.ErrAgentExecution, err)
	}

	return contractx.AgentOutput{
		Response: response,
		Metadata: map[string]any{
			"agent_type":      string(contractx.AgentConversation),
			"processing_time": time.Now().UTC().Format(time.RFC3339),
		},
	}, nil
}
