package agents

import (
	"context"
	"fmt"
	"strings"
	"time"

	contractx "github.com/relaylabs/agentrelay/agent/contract"
)

const noDocumentsResponse = "I'm sorry, I couldn't find a relevant document for that. Could you rephrase or ask about something in the indexed material?"

// RAGAgent answers from the document corpus: retrieve top-k passages, inject
// them into a completion call, attach citation metadata. Empty retrieval is
// a valid state, not a failure.
type RAGAgent struct {
	completer    contractx.Completer
	retriever    contractx.Retriever
	systemPrompt string
	topK         int
}

var _ contractx.Agent = (*RAGAgent)(nil)

func NewRAGAgent(completer contractx.Completer, retriever contractx.Retriever, systemPrompt string, topK int) *RAGAgent {
	if topK <= 0 {
		topK = 5
	}
	return &RAGAgent{
		completer:    completer,
		retriever:    retriever,
		systemPrompt: systemPrompt,
		topK:         topK,
	}
}

func (a *RAGAgent) Kind() contractx.AgentSelection {
	return contractx.AgentRAG
}

func (a *RAGAgent) Execute(ctx context.Context, in contractx.AgentInput) (contractx.AgentOutput, error) {
	passages, err := a.retrieve(ctx, in.UserInput)
	if err != nil {
		return contractx.AgentOutput{}, fmt.Errorf("%w: rag retrieval: %v", contractx.ErrAgentExecution, err)
	}

	metadata := map[string]any{
		"agent_type":      string(contractx.AgentRAG),
		"processing_time": time.Now().UTC().Format(time.RFC3339),
		"retrieved_count": len(passages),
	}

	if len(passages) == 0 {
		metadata["citations"] = []string{}
		return contractx.AgentOutput{Response: noDocumentsResponse, Metadata: metadata}, nil
	}

	prompt := fmt.Sprintf("Context documents:\n%s\n\n%s\n\nUser question: %s",
		renderPassages(passages), renderContext(in.Context), in.UserInput)

	response, err := withRetry(ctx, func(ctx context.Context) (string, error) {
		return a.completer.Complete(ctx, contractx.CompletionRequest{
			System:  a.systemPrompt,
			Prompt:  prompt,
			Purpose: contractx.PurposeResponse,
		})
	})
	if err != nil {
		return contractx.AgentOutput{}, fmt.Errorf("%w: rag completion: %v", contractx.ErrAgentExecution, err)
	}

	metadata["citations"] = citations(passages)
	return contractx.AgentOutput{Response: response, Metadata: metadata}, nil
}

func (a *RAGAgent) retrieve(ctx context.Context, query string) ([]contractx.Passage, error) {
	if a.retriever == nil {
		return nil, nil
	}
	return withRetry(ctx, func(ctx context.Context) ([]contractx.Passage, error) {
		return a.retriever.Retrieve(ctx, query, a.topK)
	})
}

func renderPassages(passages []contractx.Passage) string {
	var b strings.Builder
	for i, p := range passages {
		fmt.Fprintf(&b, "[%d] (%s, score=%.2f)\n%s\n\n", i+1, p.Source, p.Score, p.Text)
	}
	return strings.TrimRight(b.String(), "\n")
}

func citations(passages []contractx.Passage) []string {
	seen := make(map[string]struct{}, len(passages))
	cites := make([]string, 0, len(passages))
	for _, p := range passages {
		if p.Source == "" {
			continue
		}
		if _, ok := seen[p.Source]; ok {
			continue
		}
		seen[p.Source] = struct{}{}
		cites = append(cites, p.Source)
	}
	return cites
}
