// Package router classifies an incoming query into an agent selection,
// combining keyword heuristics with an optional completion-backed classifier
// for ambiguous inputs. Routing is never a fatal path: any failure resolves
// to the conversation agent.
package router

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	contractx "github.com/relaylabs/agentrelay/agent/contract"
)

type Config struct {
	// ConfidenceThreshold is the heuristic score below which the router
	// consults the classification completion call.
	ConfidenceThreshold float64 `envconfig:"CONFIDENCE_THRESHOLD" split_words:"true" default:"0.6"`

	ClassifyTimeout time.Duration `envconfig:"CLASSIFY_TIMEOUT" split_words:"true" default:"10s"`
}

func (c Config) withDefaults() Config {
	if c.ConfidenceThreshold <= 0 || c.ConfidenceThreshold > 1 {
		c.ConfidenceThreshold = 0.6
	}
	if c.ClassifyTimeout <= 0 {
		c.ClassifyTimeout = 10 * time.Second
	}
	return c
}

type Router struct {
	completer    contractx.Completer
	systemPrompt string
	cfg          Config
}

// New builds a Router. The completer may be nil; the router then runs on
// heuristics alone.
func New(completer contractx.Completer, systemPrompt string, cfg Config) *Router {
	return &Router{
		completer:    completer,
		systemPrompt: systemPrompt,
		cfg:          cfg.withDefaults(),
	}
}

// Route decides which agent handles the input. It never returns an error;
// ambiguity and classifier failures both default to conversation.
func (r *Router) Route(ctx context.Context, userInput string, bundle contractx.ContextBundle) contractx.RouteDecision {
	decision := scoreHeuristics(userInput, bundle.PreviousAgent)
	if decision.Confidence >= r.cfg.ConfidenceThreshold {
		return decision
	}

	if r.completer == nil {
		return defaultDecision("no classifier configured")
	}

	classified, err := r.classify(ctx, userInput, bundle)
	if err != nil {
		log.Warn().Err(err).Msg("routing classification failed, defaulting to conversation")
		return defaultDecision("classification failed")
	}
	return classified
}

func defaultDecision(reason string) contractx.RouteDecision {
	return contractx.RouteDecision{
		Agent:      contractx.AgentConversation,
		Confidence: 0,
		Reasoning:  reason,
		ByFallback: true,
	}
}

// keywordWeights maps each routable variant to its intent markers. Scores
// accumulate per hit and cap at 1.
var keywordWeights = map[contractx.AgentSelection][]struct {
	marker string
	weight float64
}{
	contractx.AgentSummarization: {
		{"summarize", 0.9}, {"summary", 0.8}, {"recap", 0.8}, {"tl;dr", 0.9},
	},
	contractx.AgentRAG: {
		{"document", 0.7}, {"the paper", 0.7}, {"thesis", 0.7},
		{"according to", 0.6}, {"in the docs", 0.8}, {"knowledge base", 0.8},
	},
	contractx.AgentAnalysis: {
		{"compare", 0.8}, {" vs ", 0.7}, {"versus", 0.7},
		{"difference between", 0.8}, {"trade-off", 0.8}, {"tradeoff", 0.8},
		{"pros and cons", 0.8}, {"methodology", 0.7}, {"analyze", 0.7},
	},
	contractx.AgentConversation: {
		{"hello", 0.9}, {"hi ", 0.8}, {"hey", 0.8}, {"thanks", 0.8},
		{"thank you", 0.8}, {"how are you", 0.9}, {"help", 0.5},
	},
}

// scoreHeuristics runs keyword scoring over the routable variants. Equal top
// scores break toward the previous turn's agent to avoid oscillation.
func scoreHeuristics(userInput string, previous contractx.AgentSelection) contractx.RouteDecision {
	q := " " + strings.ToLower(strings.TrimSpace(userInput)) + " "

	scores := make(map[contractx.AgentSelection]float64, len(keywordWeights))
	for agent, markers := range keywordWeights {
		var score float64
		for _, m := range markers {
			if strings.Contains(q, m.marker) {
				score += m.weight
			}
		}
		if score > 1 {
			score = 1
		}
		scores[agent] = score
	}

	best := contractx.AgentConversation
	bestScore := scores[best]
	for _, agent := range []contractx.AgentSelection{
		contractx.AgentSummarization,
		contractx.AgentRAG,
		contractx.AgentAnalysis,
	} {
		switch {
		case scores[agent] > bestScore:
			best, bestScore = agent, scores[agent]
		case scores[agent] == bestScore && scores[agent] > 0 && agent == previous:
			// continuity bias: keep the agent that answered last turn
			best = agent
		}
	}
	if best != previous && bestScore > 0 && scores[previous] == bestScore {
		best = previous
	}

	return contractx.RouteDecision{
		Agent:      best,
		Confidence: bestScore,
		Reasoning:  "keyword heuristics",
	}
}

type classifierOutput struct {
	Agent      string  `json:"agent"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
}

// classify asks the completion capability to pick an agent, with a bounded
// timeout and strict JSON parsing.
func (r *Router) classify(ctx context.Context, userInput string, bundle contractx.ContextBundle) (contractx.RouteDecision, error) {
	callCtx, cancel := context.WithTimeout(ctx, r.cfg.ClassifyTimeout)
	defer cancel()

	prompt := fmt.Sprintf("Recent conversation:\n%s\n\nUser input: %s\n\nReturn only the JSON object:",
		renderRecent(bundle.Recent), userInput)

	raw, err := r.completer.Complete(callCtx, contractx.CompletionRequest{
		System:    r.systemPrompt,
		Prompt:    prompt,
		MaxTokens: 256,
		Purpose:   contractx.PurposeRouting,
	})
	if err != nil {
		return contractx.RouteDecision{}, err
	}

	var out classifierOutput
	if err := json.Unmarshal([]byte(extractJSON(raw)), &out); err != nil {
		return contractx.RouteDecision{}, fmt.Errorf("%w: unparsable classifier output: %v", contractx.ErrRoutingAmbiguous, err)
	}

	agent := contractx.AgentSelection(strings.TrimSpace(out.Agent))
	if !agent.Valid() || agent == contractx.AgentError {
		return contractx.RouteDecision{}, fmt.Errorf("%w: classifier picked %q", contractx.ErrRoutingAmbiguous, out.Agent)
	}

	return contractx.RouteDecision{
		Agent:      agent,
		Confidence: out.Confidence,
		Reasoning:  out.Reasoning,
	}, nil
}

func renderRecent(turns []contractx.ChatTurn) string {
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

// extractJSON strips surrounding prose or code fences from a model reply.
func extractJSON(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return raw
	}
	return raw[start : end+1]
}
