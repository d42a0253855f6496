// Package orchestrator owns one execution per incoming message: route the
// query, dispatch the chosen agent, gate the output, persist the turns, and
// return a structured result. The pipeline is a fixed five-state machine;
// every path, including failures, terminates in DONE with a well-formed
// result.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/relaylabs/agentrelay/agent/agents"
	contractx "github.com/relaylabs/agentrelay/agent/contract"
	"github.com/relaylabs/agentrelay/agent/history"
	"github.com/relaylabs/agentrelay/agent/moderation"
	routerx "github.com/relaylabs/agentrelay/agent/router"
)

var (
	ErrInvalidUserID  = errors.New("user id is empty")
	ErrInvalidMessage = errors.New("message is empty")
)

// State enumerates the fixed execution pipeline.
type State string

const (
	StateRouting          State = "ROUTING"
	StateExecuting        State = "EXECUTING"
	StateModerating       State = "MODERATING"
	StateReroutingToError State = "REROUTING_TO_ERROR"
	StatePersisting       State = "PERSISTING"
	StateDone             State = "DONE"
)

// turnState is the transient working record for one execution. It is owned
// by that execution alone and only the derived chat turns are persisted.
type turnState struct {
	userID    string
	userInput string
	now       time.Time

	context  contractx.ContextBundle
	decision contractx.RouteDecision

	currentAgent contractx.AgentSelection
	output       contractx.AgentOutput
	moderation   contractx.ModerationResult
	rerouted     bool

	executed []State
	err      error
}

// HistoryView is the read contract returned by GetHistory.
type HistoryView struct {
	Session         []contractx.ChatTurn `json:"session"`
	MidTerm         []contractx.ChatTurn `json:"mid_term"`
	LongTermSummary string               `json:"long_term_summary"`
}

type Orchestrator struct {
	history history.Store
	router  *routerx.Router
	pool    *agents.Pool
	gate    *moderation.Gate

	locks *userLocks
	now   func() time.Time
}

func New(historyStore history.Store, router *routerx.Router, pool *agents.Pool, gate *moderation.Gate) (*Orchestrator, error) {
	if historyStore == nil {
		return nil, errors.New("history store is required")
	}
	if router == nil {
		return nil, errors.New("router is required")
	}
	if pool == nil {
		return nil, errors.New("agent pool is required")
	}
	if gate == nil {
		return nil, errors.New("moderation gate is required")
	}
	return &Orchestrator{
		history: historyStore,
		router:  router,
		pool:    pool,
		gate:    gate,
		locks:   newUserLocks(),
		now:     time.Now,
	}, nil
}

// ProcessMessage runs one turn through the state machine. Agent, routing,
// and moderation failures are absorbed into the error-agent fallback; only
// history store faults propagate as errors.
func (o *Orchestrator) ProcessMessage(ctx context.Context, userID, message string) (contractx.Result, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return contractx.Result{}, ErrInvalidUserID
	}
	message = strings.TrimSpace(message)
	if message == "" {
		return contractx.Result{}, ErrInvalidMessage
	}

	release := o.locks.acquire(userID)
	defer release()

	ts := &turnState{
		userID:    userID,
		userInput: message,
		now:       o.now().UTC(),
	}

	for state := StateRouting; state != StateDone; {
		ts.executed = append(ts.executed, state)
		state = o.step(ctx, state, ts)
	}

	if ts.err != nil {
		return contractx.Result{}, ts.err
	}
	return o.buildResult(ts), nil
}

// step is the transition function: one state in, the next state out.
func (o *Orchestrator) step(ctx context.Context, state State, ts *turnState) State {
	switch state {
	case StateRouting:
		return o.route(ctx, ts)
	case StateExecuting:
		return o.execute(ctx, ts)
	case StateModerating:
		return o.moderate(ctx, ts)
	case StateReroutingToError:
		return o.rerouteToError(ctx, ts)
	case StatePersisting:
		return o.persist(ctx, ts)
	default:
		return StateDone
	}
}

func (o *Orchestrator) route(ctx context.Context, ts *turnState) State {
	bundle, err := o.history.GetContext(ctx, ts.userID)
	if err != nil {
		ts.err = fmt.Errorf("load context for user=%s: %w", ts.userID, err)
		return StateDone
	}
	ts.context = bundle

	ts.decision = o.router.Route(ctx, ts.userInput, bundle)
	ts.currentAgent = ts.decision.Agent
	log.Debug().Str("user_id", ts.userID).
		Str("agent", string(ts.decision.Agent)).
		Float64("confidence", ts.decision.Confidence).
		Bool("by_fallback", ts.decision.ByFallback).
		Msg("route decision")
	return StateExecuting
}

func (o *Orchestrator) execute(ctx context.Context, ts *turnState) State {
	out, err := o.pool.Execute(ctx, ts.currentAgent, contractx.AgentInput{
		UserInput: ts.userInput,
		Context:   ts.context,
		Now:       ts.now,
	})
	if err != nil {
		log.Warn().Err(err).Str("user_id", ts.userID).
			Str("agent", string(ts.currentAgent)).
			Msg("agent execution failed, rerouting to error agent")
		return StateReroutingToError
	}
	ts.output = out
	return StateModerating
}

func (o *Orchestrator) moderate(ctx context.Context, ts *turnState) State {
	result := o.gate.Check(ctx, ts.output.Response)
	ts.moderation = result
	if result.Allowed {
		return StatePersisting
	}
	log.Info().Err(contractx.ErrModerationRejected).
		Str("user_id", ts.userID).
		Str("agent", string(ts.currentAgent)).
		Str("reason", result.Reason).
		Msg("candidate response rejected by moderation")
	return StateReroutingToError
}

// rerouteToError discards any candidate output and substitutes the error
// agent's fixed response. The error agent cannot fail.
func (o *Orchestrator) rerouteToError(ctx context.Context, ts *turnState) State {
	ts.rerouted = true
	ts.currentAgent = contractx.AgentError
	ts.output, _ = o.pool.Execute(ctx, contractx.AgentError, contractx.AgentInput{
		UserInput: ts.userInput,
		Context:   ts.context,
		Now:       ts.now,
	})
	return StatePersisting
}

// persist appends the user turn and the agent turn in one all-or-nothing
// write. A rejected candidate is never persisted; only the substituted
// response is, with the rejection reason kept in turn metadata for audit.
func (o *Orchestrator) persist(ctx context.Context, ts *turnState) State {
	userTurn := history.NewTurn(contractx.RoleUser, ts.userInput, "", nil, ts.now)

	agentMeta := make(map[string]any, len(ts.output.Metadata)+2)
	for k, v := range ts.output.Metadata {
		agentMeta[k] = v
	}
	agentMeta["route_decision"] = string(ts.decision.Agent)
	if ts.rerouted && !ts.moderation.Allowed && ts.moderation.Reason != "" {
		agentMeta["moderation_rejected"] = true
		agentMeta["moderation_reason"] = ts.moderation.Reason
	}
	agentTurn := history.NewTurn(contractx.RoleAgent, ts.output.Response, ts.currentAgent, agentMeta, o.now().UTC())

	if err := o.history.Append(ctx, ts.userID, userTurn, agentTurn); err != nil {
		ts.err = fmt.Errorf("persist turn for user=%s: %w", ts.userID, err)
	}
	return StateDone
}

func (o *Orchestrator) buildResult(ts *turnState) contractx.Result {
	metadata := make(map[string]any, len(ts.output.Metadata)+2)
	for k, v := range ts.output.Metadata {
		metadata[k] = v
	}
	executed := make([]string, 0, len(ts.executed))
	for _, s := range ts.executed {
		executed = append(executed, string(s))
	}
	metadata["executed_states"] = executed
	if ts.rerouted && !ts.moderation.Allowed {
		// audit trail lives in the persisted turn; callers only see the flag
		metadata["moderation_rejected"] = true
	}

	return contractx.Result{
		Response:      ts.output.Response,
		AgentUsed:     ts.currentAgent,
		RouteDecision: string(ts.decision.Agent),
		Confidence:    ts.decision.Confidence,
		Metadata:      metadata,
	}
}

// GetHistory returns the user's tiers. Two calls with no intervening
// ProcessMessage return identical results.
func (o *Orchestrator) GetHistory(ctx context.Context, userID string) (HistoryView, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return HistoryView{}, ErrInvalidUserID
	}

	entry, err := o.history.Load(ctx, userID)
	if err != nil {
		return HistoryView{}, err
	}
	return HistoryView{
		Session:         entry.Session,
		MidTerm:         entry.MidTerm,
		LongTermSummary: entry.LongTerm.Text,
	}, nil
}

// ClearHistory resets all three tiers for the user.
func (o *Orchestrator) ClearHistory(ctx context.Context, userID string) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return ErrInvalidUserID
	}

	release := o.locks.acquire(userID)
	defer release()

	return o.history.Clear(ctx, userID)
}

// Stats reports per-tier turn counts and last activity.
func (o *Orchestrator) Stats(ctx context.Context, userID string) (history.Stats, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return history.Stats{}, ErrInvalidUserID
	}
	return o.history.Stats(ctx, userID)
}
