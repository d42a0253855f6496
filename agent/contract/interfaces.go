package contract

import "context"

// Completer is the opaque text-completion capability.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// Retriever is the opaque document-retriever capability. An empty result is
// a valid state, not an error.
type Retriever interface {
	Retrieve(ctx context.Context, query string, k int) ([]Passage, error)
}

// Searcher is the opaque web-search capability used by the analysis agent.
type Searcher interface {
	Search(ctx context.Context, query string) ([]SearchResult, error)
}

// ModerationClassifier is the opaque safety classifier behind the gate.
type ModerationClassifier interface {
	Classify(ctx context.Context, text string) (ModerationResult, error)
}

// Agent is one response-generating variant. Execute must return a wrapped
// ErrAgentExecution on any failure rather than an uncontrolled error, so the
// orchestrator can fall back to the error agent.
type Agent interface {
	Kind() AgentSelection
	Execute(ctx context.Context, in AgentInput) (AgentOutput, error)
}

// Summarizer condenses an ordered sequence of turns into one text,
// prioritizing more recent turns in case of truncation. The history store
// uses it during tier compaction; the summarization agent uses the same
// contract for user-facing requests.
type Summarizer interface {
	SummarizeTurns(ctx context.Context, turns []ChatTurn, prior string) (string, error)
}
