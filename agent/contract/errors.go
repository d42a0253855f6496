package contract

import "errors"

var (
	// ErrRoutingAmbiguous marks a classification the router could not settle;
	// it is always recovered locally by defaulting to the conversation agent.
	ErrRoutingAmbiguous = errors.New("routing ambiguous")

	// ErrAgentExecution marks a failed agent run (timeout, provider error,
	// retrieval error); the orchestrator reroutes to the error agent.
	ErrAgentExecution = errors.New("agent execution failed")

	// ErrModerationRejected marks a candidate response the gate refused.
	ErrModerationRejected = errors.New("moderation rejected")

	// ErrHistoryUnavailable marks a history store fault; this is the only
	// class that crosses the orchestrator boundary.
	ErrHistoryUnavailable = errors.New("history store unavailable")

	// ErrCapabilityExhausted marks an external call budget hitting its limit
	// mid-turn; the agent proceeds with partial results.
	ErrCapabilityExhausted = errors.New("external capability exhausted")

	ErrValidation = errors.New("validation failed")
)
