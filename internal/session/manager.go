// Package session implements the Session Manager (spec §4.5): the
// NONE/AWAITING_ARG_i/COMPLETE state machine that drives multi-turn
// prompting for missing command arguments. Grounded directly on the
// teacher's internal/shared-dsl/session.Manager shape (map of handles
// behind a mutex, GetOrCreate-style lazy lookup) — here the handles
// are persisted model.Session values rather than in-memory structs, so
// state survives a restart (spec §9 "sessions live in the same
// durable document").
package session

import (
	"fmt"
	"time"

	"botcore/internal/model"
)

// Outcome discriminates what happened to an inbound message routed
// through an existing session.
type Outcome int

const (
	// OutcomeCancelled means the user typed "cancel"; no session remains.
	OutcomeCancelled Outcome = iota
	// OutcomeContinue means one parameter was bound (or skipped) and
	// another prompt should be shown.
	OutcomeContinue
	// OutcomeComplete means every pending parameter is now bound; the
	// router should execute the command.
	OutcomeComplete
	// OutcomeExpired means the session had gone stale and was silently
	// dropped; the inbound message should be treated as a fresh one.
	OutcomeExpired
	// OutcomeSkipRejected means "skip" was sent for a required (non-
	// optional) parameter; the prompt repeats unchanged.
	OutcomeSkipRejected
)

// StepResult is what Step returns.
type StepResult struct {
	Outcome    Outcome
	NextParam  string // set when Outcome is OutcomeContinue or OutcomeSkipRejected
	FinalArgs  map[string]any
	FinalRoles []string
}

// Store is the subset of the state manager sessions need: per-(chat,
// user) get/set/delete, scoped under the caller's already-held chat
// lock.
type Store interface {
	GetSession(chatID, userID string) (*model.Session, bool)
	SetSession(chatID, userID string, s *model.Session)
	DeleteSession(chatID, userID string)
}

// Manager drives the session state machine against a Store.
type Manager struct {
	store   Store
	timeout time.Duration
}

// New builds a Manager with the given idle-expiry timeout (spec §4.5:
// "5 minutes of inactivity", configurable via BOT_SESSION_TIMEOUT).
func New(store Store, timeout time.Duration) *Manager {
	return &Manager{store: store, timeout: timeout}
}

// Active returns the live session for (chatID, userID), transparently
// deleting and reporting none if it has expired (spec §5: "expired
// sessions are silently deleted").
func (m *Manager) Active(chatID, userID string, now time.Time) (*model.Session, bool) {
	s, ok := m.store.GetSession(chatID, userID)
	if !ok {
		return nil, false
	}
	if s.Expired(now, m.timeout) {
		m.store.DeleteSession(chatID, userID)
		return nil, false
	}
	return s, true
}

// Start creates a new session for a command missing one or more
// required parameters, pre-seeding already-bound args. pendingOptional
// is parallel to pendingParams and records which of them may be
// skipped (spec §4.5: "skip (if argi optional)").
func (m *Manager) Start(chatID, userID, scope, command string, syntaxIndex int, boundArgs map[string]any, pendingParams []string, pendingOptional []bool, effectiveRoles []string, now time.Time) *model.Session {
	s := &model.Session{
		ChatID: chatID, UserID: userID, Scope: scope, Command: command,
		SyntaxIndex: syntaxIndex, Args: boundArgs, PendingParams: pendingParams,
		PendingOptional: pendingOptional,
		CurrentIndex:    0, EffectiveRoles: effectiveRoles, StartedAt: now, LastActivity: now,
	}
	m.store.SetSession(chatID, userID, s)
	return s
}

// Step advances a live session with one inbound message body, per the
// spec §4.5 state machine. Callers must already know a session exists
// (via Active) before calling Step.
func (m *Manager) Step(s *model.Session, body string, now time.Time) StepResult {
	s.LastActivity = now

	switch body {
	case "cancel":
		m.store.DeleteSession(s.ChatID, s.UserID)
		return StepResult{Outcome: OutcomeCancelled}
	case "skip":
		if !s.CurrentOptional() {
			return StepResult{Outcome: OutcomeSkipRejected, NextParam: s.CurrentParam()}
		}
		return m.advance(s, nil)
	default:
		return m.advance(s, body)
	}
}

// advance stores value (nil for skip, spec §4.5 "Skip stores null")
// for the current pending parameter and moves to the next one or
// completes.
func (m *Manager) advance(s *model.Session, value any) StepResult {
	param := s.CurrentParam()
	if param == "" {
		// Defensive: no pending parameters left; treat as complete.
		return m.complete(s)
	}
	if s.Args == nil {
		s.Args = map[string]any{}
	}
	s.Args[param] = value
	s.CurrentIndex++

	if s.CurrentIndex >= len(s.PendingParams) {
		return m.complete(s)
	}
	m.store.SetSession(s.ChatID, s.UserID, s)
	return StepResult{Outcome: OutcomeContinue, NextParam: s.CurrentParam()}
}

func (m *Manager) complete(s *model.Session) StepResult {
	m.store.DeleteSession(s.ChatID, s.UserID)
	return StepResult{Outcome: OutcomeComplete, FinalArgs: s.Args, FinalRoles: s.EffectiveRoles}
}

// Cancel forcibly drops a session (e.g. the router replacing it with a
// fresh command); returns an error if none exists.
func (m *Manager) Cancel(chatID, userID string) error {
	if _, ok := m.store.GetSession(chatID, userID); !ok {
		return fmt.Errorf("session: no active session for %s/%s", chatID, userID)
	}
	m.store.DeleteSession(chatID, userID)
	return nil
}
