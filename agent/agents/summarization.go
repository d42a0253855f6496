package agents

import (
	"context"
	"fmt"
	"strings"
	"time"

	contractx "github.com/relaylabs/agentrelay/agent/contract"
	"github.com/relaylabs/agentrelay/agent/history"
)

// summarizeInputTokenBudget bounds the transcript handed to one summary
// call; older turns are cut first.
const summarizeInputTokenBudget = 6000

// SummarizationAgent condenses an ordered turn sequence into one text. The
// same contract serves user-facing "summarize the conversation" requests and
// the history store's mid-term compaction.
type SummarizationAgent struct {
	completer    contractx.Completer
	systemPrompt string
}

var (
	_ contractx.Agent      = (*SummarizationAgent)(nil)
	_ contractx.Summarizer = (*SummarizationAgent)(nil)
)

func NewSummarizationAgent(completer contractx.Completer, systemPrompt string) *SummarizationAgent {
	return &SummarizationAgent{completer: completer, systemPrompt: systemPrompt}
}

func (a *SummarizationAgent) Kind() contractx.AgentSelection {
	return contractx.AgentSummarization
}

// Execute answers a user-facing summarization request over the session plus
// mid-term context.
func (a *SummarizationAgent) Execute(ctx context.Context, in contractx.AgentInput) (contractx.AgentOutput, error) {
	turns := make([]contractx.ChatTurn, 0, len(in.Context.MidTermDigest)+len(in.Context.Recent))
	turns = append(turns, in.Context.MidTermDigest...)
	turns = append(turns, in.Context.Recent...)

	summary, err := a.SummarizeTurns(ctx, turns, in.Context.LongTermSummary)
	if err != nil {
		return contractx.AgentOutput{}, fmt.Errorf("%w: summarization: %v", contractx.ErrAgentExecution, err)
	}

	return contractx.AgentOutput{
		Response: summary,
		Metadata: map[string]any{
			"agent_type":       string(contractx.AgentSummarization),
			"processing_time":  time.Now().UTC().Format(time.RFC3339),
			"summarized_turns": len(turns),
		},
	}, nil
}

// SummarizeTurns merges the turns with the prior summary into one condensed
// text. Truncation, when the input budget forces it, deterministically drops
// the oldest turns first.
func (a *SummarizationAgent) SummarizeTurns(ctx context.Context, turns []contractx.ChatTurn, prior string) (string, error) {
	if len(turns) == 0 && strings.TrimSpace(prior) == "" {
		return "", nil
	}
	if len(turns) == 0 {
		return prior, nil
	}

	var b strings.Builder
	if strings.TrimSpace(prior) != "" {
		b.WriteString("Prior summary:\n")
		b.WriteString(prior)
		b.WriteString("\n\n")
	}
	b.WriteString("New conversation turns:\n")
	b.WriteString(renderTranscript(truncateOldestFirst(turns, summarizeInputTokenBudget)))

	return withRetry(ctx, func(ctx context.Context) (string, error) {
		return a.completer.Complete(ctx, contractx.CompletionRequest{
			System:  a.systemPrompt,
			Prompt:  b.String(),
			Purpose: contractx.PurposeSummary,
		})
	})
}

// truncateOldestFirst keeps the newest turns that fit the token budget.
func truncateOldestFirst(turns []contractx.ChatTurn, budget int) []contractx.ChatTurn {
	spent := 0
	kept := 0
	for i := len(turns) - 1; i >= 0; i-- {
		cost := history.EstimateTokens(turns[i].Text)
		if kept > 0 && spent+cost > budget {
			break
		}
		kept++
		spent += cost
	}
	return turns[len(turns)-kept:]
}
