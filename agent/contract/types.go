package contract

import "time"

// AgentSelection identifies one of the fixed response-generating variants.
// The set is closed: adding a variant means extending this enumeration and
// the dispatch table in agent/agents.
type AgentSelection string

const (
	AgentConversation  AgentSelection = "conversation"
	AgentRAG           AgentSelection = "rag"
	AgentSummarization AgentSelection = "summarization"
	AgentAnalysis      AgentSelection = "analysis"
	AgentError         AgentSelection = "error"
)

func (a AgentSelection) Valid() bool {
	switch a {
	case AgentConversation, AgentRAG, AgentSummarization, AgentAnalysis, AgentError:
		return true
	}
	return false
}

// Role labels one side of a logged dialogue turn.
type Role string

const (
	RoleUser   Role = "user"
	RoleAgent  Role = "agent"
	RoleSystem Role = "system"
)

// ChatTurn is one immutable unit of dialogue. It is created once per message
// exchange and never mutated after creation.
type ChatTurn struct {
	ID        string         `json:"id"`
	Timestamp time.Time      `json:"timestamp"`
	Role      Role           `json:"role"`
	Text      string         `json:"text"`
	AgentUsed AgentSelection `json:"agent_used,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// ContextBundle is the read-only view of a user's memory tiers handed to the
// router and to agents.
type ContextBundle struct {
	Recent          []ChatTurn `json:"recent"`
	MidTermDigest   []ChatTurn `json:"mid_term_digest"`
	LongTermSummary string     `json:"long_term_summary"`

	// PreviousAgent is the variant that answered the immediately preceding
	// turn; the router uses it as a continuity tie-break.
	PreviousAgent AgentSelection `json:"previous_agent,omitempty"`
}

// RouteDecision is the router's output for one turn.
type RouteDecision struct {
	Agent      AgentSelection `json:"agent"`
	Confidence float64        `json:"confidence"`
	Reasoning  string         `json:"reasoning,omitempty"`

	// ByFallback is set when the decision came from the failure default
	// rather than a real classification.
	ByFallback bool `json:"by_fallback,omitempty"`
}

// AgentInput is the per-turn payload dispatched to an agent variant.
type AgentInput struct {
	UserInput string
	Context   ContextBundle
	Now       time.Time
}

// AgentOutput is what an agent variant produces on success.
type AgentOutput struct {
	Response string
	Metadata map[string]any
}

// ModerationResult is the moderation classifier's verdict for one candidate
// response.
type ModerationResult struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}

// Passage is one retrieved document fragment.
type Passage struct {
	Text   string  `json:"text"`
	Source string  `json:"source"`
	Score  float32 `json:"score"`
}

// SearchResult is one external web-search hit.
type SearchResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// Result is the structured outcome of processing one user message.
type Result struct {
	Response      string         `json:"response"`
	AgentUsed     AgentSelection `json:"agent_used"`
	RouteDecision string         `json:"route_decision"`
	Confidence    float64        `json:"confidence"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

// CompletionPurpose distinguishes the call sites that may want different
// models behind the same completion capability.
type CompletionPurpose string

const (
	PurposeRouting    CompletionPurpose = "routing"
	PurposeResponse   CompletionPurpose = "response"
	PurposeSummary    CompletionPurpose = "summary"
	PurposeModeration CompletionPurpose = "moderation"
)

// CompletionRequest carries a prompt to the text-completion capability.
type CompletionRequest struct {
	System    string
	Prompt    string
	MaxTokens int
	Purpose   CompletionPurpose
}
