package agents

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	contractx "github.com/relaylabs/agentrelay/agent/contract"
)

// AnalysisAgent handles comparative and methodological queries. It may issue
// external web searches, bounded by maxSearchCalls per turn; hitting the
// budget truncates further calls and the turn proceeds with partial results.
type AnalysisAgent struct {
	completer      contractx.Completer
	searcher       contractx.Searcher
	systemPrompt   string
	maxSearchCalls int
}

var _ contractx.Agent = (*AnalysisAgent)(nil)

func NewAnalysisAgent(completer contractx.Completer, searcher contractx.Searcher, systemPrompt string, maxSearchCalls int) *AnalysisAgent {
	if maxSearchCalls <= 0 {
		maxSearchCalls = 3
	}
	return &AnalysisAgent{
		completer:      completer,
		searcher:       searcher,
		systemPrompt:   systemPrompt,
		maxSearchCalls: maxSearchCalls,
	}
}

func (a *AnalysisAgent) Kind() contractx.AgentSelection {
	return contractx.AgentAnalysis
}

func (a *AnalysisAgent) Execute(ctx context.Context, in contractx.AgentInput) (contractx.AgentOutput, error) {
	findings, exhausted := a.research(ctx, in.UserInput)

	var prompt strings.Builder
	if len(findings) > 0 {
		prompt.WriteString("Web search findings:\n")
		prompt.WriteString(renderFindings(findings))
		prompt.WriteString("\n\n")
	}
	prompt.WriteString(renderContext(in.Context))
	prompt.WriteString("\n\nUser question: ")
	prompt.WriteString(in.UserInput)

	response, err := withRetry(ctx, func(ctx context.Context) (string, error) {
		return a.completer.Complete(ctx, contractx.CompletionRequest{
			System:  a.systemPrompt,
			Prompt:  prompt.String(),
			Purpose: contractx.PurposeResponse,
		})
	})
	if err != nil {
		return contractx.AgentOutput{}, fmt.Errorf("%w: analysis: %v", contractx.ErrAgentExecution, err)
	}

	metadata := map[string]any{
		"agent_type":      string(contractx.AgentAnalysis),
		"processing_time": time.Now().UTC().Format(time.RFC3339),
		"search_results":  len(findings),
	}
	if exhausted {
		metadata["search_budget_exhausted"] = true
	}
	return contractx.AgentOutput{Response: response, Metadata: metadata}, nil
}

// research runs the bounded search plan: the raw query first, then derived
// sub-queries up to the per-turn budget. Search failures degrade to fewer
// findings rather than failing the turn.
func (a *AnalysisAgent) research(ctx context.Context, userInput string) ([]contractx.SearchResult, bool) {
	if a.searcher == nil {
		return nil, false
	}

	queries := searchQueries(userInput)
	exhausted := len(queries) > a.maxSearchCalls
	if exhausted {
		log.Debug().Err(contractx.ErrCapabilityExhausted).
			Int("planned", len(queries)).Int("budget", a.maxSearchCalls).
			Msg("analysis search budget reached, truncating calls")
		queries = queries[:a.maxSearchCalls]
	}

	var findings []contractx.SearchResult
	for _, q := range queries {
		results, err := a.searcher.Search(ctx, q)
		if err != nil {
			log.Warn().Err(err).Str("query", q).Msg("web search failed, continuing with partial results")
			continue
		}
		findings = append(findings, results...)
	}
	return findings, exhausted
}

// searchQueries derives the query plan for one analysis turn: the raw input
// plus comparison-oriented variants when the phrasing suggests them.
func searchQueries(userInput string) []string {
	queries := []string{userInput}
	lower := strings.ToLower(userInput)
	if strings.Contains(lower, "compare") || strings.Contains(lower, " vs ") || strings.Contains(lower, "versus") {
		queries = append(queries, userInput+" comparison", userInput+" trade-offs")
	} else if strings.Contains(lower, "method") || strings.Contains(lower, "approach") {
		queries = append(queries, userInput+" methodology")
	}
	return queries
}

func renderFindings(findings []contractx.SearchResult) string {
	var b strings.Builder
	for i, f := range findings {
		fmt.Fprintf(&b, "[%d] %s (%s)\n%s\n", i+1, f.Title, f.URL, f.Snippet)
	}
	return strings.TrimRight(b.String(), "\n")
}
