package agents

import (
	"context"
	"strings"
	"testing"

	contractx "github.com/relaylabs/agentrelay/agent/contract"
)

type fakeCompleter struct {
	resp     string
	err      error
	failures int
	calls    int
	prompts  []string
}

func (f *fakeCompleter) Complete(ctx context.Context, req contractx.CompletionRequest) (string, error) {
	f.calls++
	f.prompts = append(f.prompts, req.Prompt)
	if f.err != nil {
		return "", f.err
	}
	if f.failures > 0 {
		f.failures--
		return "", context.DeadlineExceeded
	}
	return f.resp, nil
}

type fakeRetriever struct {
	passages []contractx.Passage
	err      error
	calls    int
}

func (f *fakeRetriever) Retrieve(ctx context.Context, query string, k int) ([]contractx.Passage, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return append([]contractx.Passage(nil), f.passages...), nil
}

type fakeSearcher struct {
	results []contractx.SearchResult
	err     error
	calls   int
	queries []string
}

func (f *fakeSearcher) Search(ctx context.Context, query string) ([]contractx.SearchResult, error) {
	f.calls++
	f.queries = append(f.queries, query)
	if f.err != nil {
		return nil, f.err
	}
	return append([]contractx.SearchResult(nil), f.results...), nil
}

func TestNewPoolRequiresCompleter(t *testing.T) {
	t.Parallel()

	if _, err := NewPool(nil, nil, nil, Config{}); err == nil {
		t.Fatal("expected error without completer")
	}
}

func TestPoolUnknownSelectionResolvesToErrorAgent(t *testing.T) {
	t.Parallel()

	pool, err := NewPool(&fakeCompleter{resp: "ok"}, nil, nil, Config{})
	if err != nil {
		t.Fatalf("NewPool() error = %v", err)
	}

	agent := pool.Get(contractx.AgentSelection("oracle"))
	if agent.Kind() != contractx.AgentError {
		t.Fatalf("expected error agent for unknown selection, got %s", agent.Kind())
	}
}

func TestPoolDispatchesEachVariant(t *testing.T) {
	t.Parallel()

	pool, err := NewPool(&fakeCompleter{resp: "ok"}, &fakeRetriever{}, &fakeSearcher{}, Config{})
	if err != nil {
		t.Fatalf("NewPool() error = %v", err)
	}

	for _, sel := range []contractx.AgentSelection{
		contractx.AgentConversation,
		contractx.AgentRAG,
		contractx.AgentSummarization,
		contractx.AgentAnalysis,
		contractx.AgentError,
	} {
		if got := pool.Get(sel).Kind(); got != sel {
			t.Fatalf("expected %s variant, got %s", sel, got)
		}
	}
}

func TestPoolSummarizerIsSummarizationAgent(t *testing.T) {
	t.Parallel()

	pool, err := NewPool(&fakeCompleter{resp: "a summary"}, nil, nil, Config{})
	if err != nil {
		t.Fatalf("NewPool() error = %v", err)
	}

	turns := []contractx.ChatTurn{{Role: contractx.RoleUser, Text: "hello"}}
	summary, err := pool.Summarizer().SummarizeTurns(context.Background(), turns, "")
	if err != nil {
		t.Fatalf("SummarizeTurns() error = %v", err)
	}
	if summary != "a summary" {
		t.Fatalf("unexpected summary: %q", summary)
	}
}

func TestErrorAgentFixedResponse(t *testing.T) {
	t.Parallel()

	agent := NewErrorAgent()

	out, err := agent.Execute(context.Background(), contractx.AgentInput{UserInput: "anything"})
	if err != nil {
		t.Fatalf("error agent must not fail, got %v", err)
	}
	if out.Response != FallbackResponse {
		t.Fatalf("unexpected response: %q", out.Response)
	}
}

func TestConversationAgentIncludesContext(t *testing.T) {
	t.Parallel()

	completer := &fakeCompleter{resp: "nice to meet you"}
	agent := NewConversationAgent(completer, "be friendly")

	out, err := agent.Execute(context.Background(), contractx.AgentInput{
		UserInput: "hello!",
		Context: contractx.ContextBundle{
			LongTermSummary: "user prefers terse answers",
			Recent: []contractx.ChatTurn{
				{Role: contractx.RoleUser, Text: "earlier message"},
			},
		},
	})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if out.Response != "nice to meet you" {
		t.Fatalf("unexpected response: %q", out.Response)
	}
	if len(completer.prompts) != 1 {
		t.Fatalf("expected one completion call, got %d", len(completer.prompts))
	}
	prompt := completer.prompts[0]
	if !strings.Contains(prompt, "user prefers terse answers") || !strings.Contains(prompt, "earlier message") {
		t.Fatalf("expected memory tiers in prompt, got %q", prompt)
	}
}

func TestWithRetryRecoversFromTransientFailure(t *testing.T) {
	t.Parallel()

	completer := &fakeCompleter{resp: "second try", failures: 1}
	agent := NewConversationAgent(completer, "be friendly")

	out, err := agent.Execute(context.Background(), contractx.AgentInput{UserInput: "hi"})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if out.Response != "second try" {
		t.Fatalf("unexpected response: %q", out.Response)
	}
	if completer.calls != 2 {
		t.Fatalf("expected one retry, got %d calls", completer.calls)
	}
}
