package history

import (
	"time"

	"github.com/google/uuid"

	contractx "github.com/relaylabs/agentrelay/agent/contract"
)

// LongTermSummary is the single evolving summary for a user. Coverage is
// monotonically non-decreasing: CoveredUntil only ever moves forward and the
// text always incorporates everything summarized before.
type LongTermSummary struct {
	Text         string    `json:"text"`
	Version      int       `json:"version"`
	CoveredUntil time.Time `json:"covered_until"`
}

// Entry is the full memory record for one user: the three tiers plus
// bookkeeping. Exactly one entry exists per user id and only the history
// store mutates it.
type Entry struct {
	UserID       string              `json:"user_id"`
	Session      []contractx.ChatTurn `json:"session"`
	MidTerm      []contractx.ChatTurn `json:"mid_term"`
	LongTerm     LongTermSummary     `json:"long_term"`
	LastActivity time.Time           `json:"last_activity"`
	Version      int64               `json:"version"`
}

// Stats reports per-tier turn counts and recency for one user.
type Stats struct {
	SessionTurns    int       `json:"session_turns"`
	MidTermTurns    int       `json:"mid_term_turns"`
	LongTermVersion int       `json:"long_term_version"`
	LastActivity    time.Time `json:"last_activity"`
}

func NewEntry(userID string) *Entry {
	return &Entry{
		UserID:  userID,
		Session: make([]contractx.ChatTurn, 0, 8),
		MidTerm: make([]contractx.ChatTurn, 0, 8),
	}
}

// NewTurn builds an immutable turn record with a fresh id.
func NewTurn(role contractx.Role, text string, agent contractx.AgentSelection, metadata map[string]any, now time.Time) contractx.ChatTurn {
	return contractx.ChatTurn{
		ID:        uuid.NewString(),
		Timestamp: now.UTC(),
		Role:      role,
		Text:      text,
		AgentUsed: agent,
		Metadata:  metadata,
	}
}

func (e *Entry) appendTurn(turn contractx.ChatTurn) {
	e.Session = append(e.Session, turn)
	if turn.Timestamp.After(e.LastActivity) {
		e.LastActivity = turn.Timestamp
	}
}

// evictSessionOverflow moves the oldest excess session turns into mid-term,
// preserving order. No turn is dropped.
func (e *Entry) evictSessionOverflow(bound int) {
	if bound <= 0 || len(e.Session) <= bound {
		return
	}
	excess := len(e.Session) - bound
	e.MidTerm = append(e.MidTerm, e.Session[:excess]...)
	e.Session = append([]contractx.ChatTurn(nil), e.Session[excess:]...)
}

// expiredMidTerm returns the mid-term prefix older than the window cutoff.
// Turns are stored in order, so the expired slice is always a prefix.
func (e *Entry) expiredMidTerm(cutoff time.Time) []contractx.ChatTurn {
	n := 0
	for _, turn := range e.MidTerm {
		if !turn.Timestamp.Before(cutoff) {
			break
		}
		n++
	}
	if n == 0 {
		return nil
	}
	return e.MidTerm[:n]
}

// dropMidTermPrefix removes the first n mid-term turns after they have been
// folded into long-term.
func (e *Entry) dropMidTermPrefix(n int) {
	if n <= 0 {
		return
	}
	if n >= len(e.MidTerm) {
		e.MidTerm = e.MidTerm[:0]
		return
	}
	e.MidTerm = append([]contractx.ChatTurn(nil), e.MidTerm[n:]...)
}

func (e *Entry) stats() Stats {
	return Stats{
		SessionTurns:    len(e.Session),
		MidTermTurns:    len(e.MidTerm),
		LongTermVersion: e.LongTerm.Version,
		LastActivity:    e.LastActivity,
	}
}

// clone makes a deep-enough copy so a failed promotion never leaves the
// persisted entry half mutated.
func (e *Entry) clone() *Entry {
	cp := *e
	cp.Session = append([]contractx.ChatTurn(nil), e.Session...)
	cp.MidTerm = append([]contractx.ChatTurn(nil), e.MidTerm...)
	return &cp
}
