// Package history owns the three-tier conversational memory: the bounded
// current session, the time-windowed mid-term tier, and the single evolving
// long-term summary. Tier promotion is append-triggered and synchronous; a
// turn is visible in some tier at all times.
package history

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	contractx "github.com/relaylabs/agentrelay/agent/contract"
)

// ErrEntryNotFound is returned by drivers for users without a record yet.
var ErrEntryNotFound = errors.New("history entry not found")

// Driver is the persistence contract the tiered store runs on. Drivers hold
// the raw record; all tier semantics live in TieredStore.
type Driver interface {
	Load(ctx context.Context, userID string) (*Entry, error)
	Save(ctx context.Context, entry *Entry) error
	Delete(ctx context.Context, userID string) error
	Close() error
}

// Store is the orchestration-facing history contract.
type Store interface {
	Load(ctx context.Context, userID string) (*Entry, error)
	Append(ctx context.Context, userID string, turns ...contractx.ChatTurn) error
	GetContext(ctx context.Context, userID string) (contractx.ContextBundle, error)
	Clear(ctx context.Context, userID string) error
	Stats(ctx context.Context, userID string) (Stats, error)
}

type Config struct {
	SessionMaxTurns    int           `envconfig:"SESSION_MAX_TURNS" split_words:"true" default:"20"`
	MidTermWindow      time.Duration `envconfig:"MID_TERM_WINDOW" split_words:"true" default:"48h"`
	ContextRecentTurns int           `envconfig:"CONTEXT_RECENT_TURNS" split_words:"true" default:"10"`
	ContextTokenBudget int           `envconfig:"CONTEXT_TOKEN_BUDGET" split_words:"true" default:"4000"`
}

func (c Config) withDefaults() Config {
	if c.SessionMaxTurns <= 0 {
		c.SessionMaxTurns = 20
	}
	if c.MidTermWindow <= 0 {
		c.MidTermWindow = 48 * time.Hour
	}
	if c.ContextRecentTurns <= 0 {
		c.ContextRecentTurns = 10
	}
	if c.ContextTokenBudget <= 0 {
		c.ContextTokenBudget = 4000
	}
	return c
}

// TieredStore implements Store on top of a Driver, invoking the summarizer
// when mid-term content ages past the window.
type TieredStore struct {
	driver     Driver
	summarizer contractx.Summarizer
	cfg        Config
	now        func() time.Time
}

var _ Store = (*TieredStore)(nil)

func NewTieredStore(driver Driver, summarizer contractx.Summarizer, cfg Config) (*TieredStore, error) {
	if driver == nil {
		return nil, errors.New("history driver is required")
	}
	if summarizer == nil {
		return nil, errors.New("summarizer is required")
	}
	return &TieredStore{
		driver:     driver,
		summarizer: summarizer,
		cfg:        cfg.withDefaults(),
		now:        time.Now,
	}, nil
}

// Load returns the user's entry, creating an empty one for first contact.
// Driver faults surface as ErrHistoryUnavailable.
func (s *TieredStore) Load(ctx context.Context, userID string) (*Entry, error) {
	entry, err := s.driver.Load(ctx, userID)
	if err == nil {
		return entry, nil
	}
	if errors.Is(err, ErrEntryNotFound) {
		return NewEntry(userID), nil
	}
	return nil, fmt.Errorf("%w: %v", contractx.ErrHistoryUnavailable, err)
}

// Append adds turns to the session tier and runs the promotion check. The
// whole mutation persists in one save; on any fault nothing is persisted.
func (s *TieredStore) Append(ctx context.Context, userID string, turns ...contractx.ChatTurn) error {
	if len(turns) == 0 {
		return nil
	}

	entry, err := s.Load(ctx, userID)
	if err != nil {
		return err
	}

	next := entry.clone()
	for _, turn := range turns {
		next.appendTurn(turn)
	}
	s.promote(ctx, next)
	next.Version++

	if err := s.driver.Save(ctx, next); err != nil {
		return fmt.Errorf("%w: %v", contractx.ErrHistoryUnavailable, err)
	}
	return nil
}

// promote enforces the session bound and folds aged-out mid-term content
// into the long-term summary. A summarization failure leaves the expiring
// slice in mid-term so no turn is ever silently dropped; promotion retries
// on the next append.
func (s *TieredStore) promote(ctx context.Context, entry *Entry) {
	entry.evictSessionOverflow(s.cfg.SessionMaxTurns)

	cutoff := s.now().Add(-s.cfg.MidTermWindow)
	expired := entry.expiredMidTerm(cutoff)
	if len(expired) == 0 {
		return
	}

	merged, err := s.summarizer.SummarizeTurns(ctx, expired, entry.LongTerm.Text)
	if err != nil {
		log.Warn().Err(err).Str("user_id", entry.UserID).
			Int("expired_turns", len(expired)).
			Msg("mid-term compaction deferred, summarizer failed")
		return
	}

	last := expired[len(expired)-1].Timestamp
	entry.LongTerm.Text = merged
	entry.LongTerm.Version++
	if last.After(entry.LongTerm.CoveredUntil) {
		entry.LongTerm.CoveredUntil = last
	}
	entry.dropMidTermPrefix(len(expired))
}

// GetContext assembles the bundle consumed by the router and agents: recent
// session turns within the token budget, the mid-term digest, and the
// long-term summary.
func (s *TieredStore) GetContext(ctx context.Context, userID string) (contractx.ContextBundle, error) {
	entry, err := s.Load(ctx, userID)
	if err != nil {
		return contractx.ContextBundle{}, err
	}

	return contractx.ContextBundle{
		Recent:          recentWithinBudget(entry.Session, s.cfg.ContextRecentTurns, s.cfg.ContextTokenBudget),
		MidTermDigest:   append([]contractx.ChatTurn(nil), entry.MidTerm...),
		LongTermSummary: entry.LongTerm.Text,
		PreviousAgent:   previousAgent(entry.Session),
	}, nil
}

func (s *TieredStore) Clear(ctx context.Context, userID string) error {
	if err := s.driver.Delete(ctx, userID); err != nil {
		return fmt.Errorf("%w: %v", contractx.ErrHistoryUnavailable, err)
	}
	return nil
}

func (s *TieredStore) Stats(ctx context.Context, userID string) (Stats, error) {
	entry, err := s.Load(ctx, userID)
	if err != nil {
		return Stats{}, err
	}
	return entry.stats(), nil
}

// recentWithinBudget walks the session newest-first and keeps turns until
// either limit is hit, returning them in chronological order.
func recentWithinBudget(session []contractx.ChatTurn, maxTurns, tokenBudget int) []contractx.ChatTurn {
	kept := 0
	spent := 0
	for i := len(session) - 1; i >= 0; i-- {
		cost := EstimateTokens(session[i].Text)
		if kept >= maxTurns || (kept > 0 && spent+cost > tokenBudget) {
			break
		}
		kept++
		spent += cost
	}
	return append([]contractx.ChatTurn(nil), session[len(session)-kept:]...)
}

func previousAgent(session []contractx.ChatTurn) contractx.AgentSelection {
	for i := len(session) - 1; i >= 0; i-- {
		if session[i].Role == contractx.RoleAgent && session[i].AgentUsed.Valid() {
			return session[i].AgentUsed
		}
	}
	return ""
}
