// Package agents implements the five response-generating variants and the
// fixed dispatch table the orchestrator selects from. Adding a variant means
// extending contract.AgentSelection and the table built in NewPool.
package agents

import (
	"context"
	"fmt"
	"strings"
	"time"

	contractx "github.com/relaylabs/agentrelay/agent/contract"
	promptx "github.com/relaylabs/agentrelay/agent/prompt"
)

type Config struct {
	// AgentTimeout bounds one agent execution end to end, across retries.
	AgentTimeout time.Duration `envconfig:"AGENT_TIMEOUT" split_words:"true" default:"60s"`

	// RetrievalTopK is the number of passages the RAG agent injects.
	RetrievalTopK int `envconfig:"RETRIEVAL_TOP_K" split_words:"true" default:"5"`

	// MaxSearchCalls bounds external web-search fan-out per analysis turn.
	MaxSearchCalls int `envconfig:"MAX_SEARCH_CALLS" split_words:"true" default:"3"`
}

func (c Config) withDefaults() Config {
	if c.AgentTimeout <= 0 {
		c.AgentTimeout = 60 * time.Second
	}
	if c.RetrievalTopK <= 0 {
		c.RetrievalTopK = 5
	}
	if c.MaxSearchCalls <= 0 {
		c.MaxSearchCalls = 3
	}
	return c
}

// Pool is the closed dispatch table mapping selections to variants.
type Pool struct {
	agents  map[contractx.AgentSelection]contractx.Agent
	timeout time.Duration
}

// NewPool wires the five variants. The retriever and searcher may be nil;
// the corresponding agents then degrade (rag answers without documents,
// analysis skips research) instead of failing at dispatch time.
func NewPool(completer contractx.Completer, retriever contractx.Retriever, searcher contractx.Searcher, cfg Config) (*Pool, error) {
	if completer == nil {
		return nil, fmt.Errorf("completer is required")
	}
	cfg = cfg.withDefaults()
	prompts := promptx.LoadPromptSet()

	summarization := NewSummarizationAgent(completer, prompts.Summarization)

	pool := map[contractx.AgentSelection]contractx.Agent{
		contractx.AgentConversation:  NewConversationAgent(completer, prompts.Conversation),
		contractx.AgentRAG:           NewRAGAgent(completer, retriever, prompts.RAG, cfg.RetrievalTopK),
		contractx.AgentSummarization: summarization,
		contractx.AgentAnalysis:      NewAnalysisAgent(completer, searcher, prompts.Analysis, cfg.MaxSearchCalls),
		contractx.AgentError:         NewErrorAgent(),
	}

	return &Pool{agents: pool, timeout: cfg.AgentTimeout}, nil
}

// Get returns the variant for a selection; unknown selections resolve to the
// error agent so dispatch can never dead-end.
func (p *Pool) Get(sel contractx.AgentSelection) contractx.Agent {
	if agent, ok := p.agents[sel]; ok {
		return agent
	}
	return p.agents[contractx.AgentError]
}

// Execute dispatches one turn to the selected variant under the pool
// timeout. Failures come back wrapped in ErrAgentExecution.
func (p *Pool) Execute(ctx context.Context, sel contractx.AgentSelection, in contractx.AgentInput) (contractx.AgentOutput, error) {
	execCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	return p.Get(sel).Execute(execCtx, in)
}

// Summarizer exposes the summarization variant under its compaction-facing
// contract for the history store.
func (p *Pool) Summarizer() contractx.Summarizer {
	return p.agents[contractx.AgentSummarization].(*SummarizationAgent)
}

// renderTranscript flattens turns into a plain transcript block for prompts.
func renderTranscript(turns []contractx.ChatTurn) string {
	if len(turns) == 0 {
		return "(none)"
	}
	var b strings.Builder
	for _, turn := range turns {
		b.WriteString(string(turn.Role))
		b.WriteString(": ")
		b.WriteString(turn.Text)
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// renderContext builds the shared context preamble agents prepend to the
// user message.
func renderContext(bundle contractx.ContextBundle) string {
	var b strings.Builder
	b.WriteString("Long-term summary:\n")
	if strings.TrimSpace(bundle.LongTermSummary) == "" {
		b.WriteString("(none)")
	} else {
		b.WriteString(bundle.LongTermSummary)
	}
	b.WriteString("\n\nEarlier conversation (mid-term):\n")
	b.WriteString(renderTranscript(bundle.MidTermDigest))
	b.WriteString("\n\nRecent conversation:\n")
	b.WriteString(renderTranscript(bundle.Recent))
	return b.String()
}
