package agents

import (
	"context"
	"errors"
	"strings"
	"testing"

	contractx "github.com/relaylabs/agentrelay/agent/contract"
)

func TestRAGWithoutRetrieverReturnsNoDocuments(t *testing.T) {
	t.Parallel()

	completer := &fakeCompleter{resp: "should not be called"}
	agent := NewRAGAgent(completer, nil, "answer from docs", 5)

	out, err := agent.Execute(context.Background(), contractx.AgentInput{UserInput: "what does the paper say?"})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if out.Response != noDocumentsResponse {
		t.Fatalf("unexpected response: %q", out.Response)
	}
	if completer.calls != 0 {
		t.Fatalf("expected no completion call without documents, got %d", completer.calls)
	}
	if out.Metadata["retrieved_count"] != 0 {
		t.Fatalf("expected retrieved_count 0, got %v", out.Metadata["retrieved_count"])
	}
}

func TestRAGEmptyRetrievalIsNotAnError(t *testing.T) {
	t.Parallel()

	agent := NewRAGAgent(&fakeCompleter{}, &fakeRetriever{}, "answer from docs", 5)

	out, err := agent.Execute(context.Background(), contractx.AgentInput{UserInput: "anything in the docs?"})
	if err != nil {
		t.Fatalf("empty retrieval must not fail, got %v", err)
	}
	if out.Response != noDocumentsResponse {
		t.Fatalf("unexpected response: %q", out.Response)
	}
}

func TestRAGInjectsPassagesAndDeduplicatesCitations(t *testing.T) {
	t.Parallel()

	completer := &fakeCompleter{resp: "per the thesis, X holds"}
	retriever := &fakeRetriever{passages: []contractx.Passage{
		{Text: "claim one", Source: "thesis.pdf", Score: 0.91},
		{Text: "claim two", Source: "thesis.pdf", Score: 0.84},
		{Text: "claim three", Source: "appendix.pdf", Score: 0.70},
	}}
	agent := NewRAGAgent(completer, retriever, "answer from docs", 3)

	out, err := agent.Execute(context.Background(), contractx.AgentInput{UserInput: "what does the thesis claim?"})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if out.Response != "per the thesis, X holds" {
		t.Fatalf("unexpected response: %q", out.Response)
	}
	if out.Metadata["retrieved_count"] != 3 {
		t.Fatalf("expected retrieved_count 3, got %v", out.Metadata["retrieved_count"])
	}

	cites, ok := out.Metadata["citations"].([]string)
	if !ok {
		t.Fatalf("expected citations slice, got %T", out.Metadata["citations"])
	}
	if len(cites) != 2 || cites[0] != "thesis.pdf" || cites[1] != "appendix.pdf" {
		t.Fatalf("unexpected citations: %v", cites)
	}

	prompt := completer.prompts[0]
	if !strings.Contains(prompt, "claim one") || !strings.Contains(prompt, "claim three") {
		t.Fatalf("expected passages injected into prompt, got %q", prompt)
	}
}

func TestRAGRetrievalFailureWrapsAgentExecution(t *testing.T) {
	t.Parallel()

	retriever := &fakeRetriever{err: errors.New("qdrant unreachable")}
	agent := NewRAGAgent(&fakeCompleter{}, retriever, "answer from docs", 5)

	_, err := agent.Execute(context.Background(), contractx.AgentInput{UserInput: "query"})
	if !errors.Is(err, contractx.ErrAgentExecution) {
		t.Fatalf("expected ErrAgentExecution, got %v", err)
	}
	if retriever.calls != 2 {
		t.Fatalf("expected one retry before giving up, got %d calls", retriever.calls)
	}
}
