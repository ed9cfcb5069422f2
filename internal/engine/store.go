package engine

import (
	"sync"
	"time"
)

// TurnRole identifies the author of a history entry.
type TurnRole string

const (
	RoleUser TurnRole = "user"
	RoleBot  TurnRole = "bot"
)

// Turn is one append-only history entry for a session.
type Turn struct {
	Role      TurnRole  `json:"role"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// SessionContext is the single most-recent-turn summary kept per session.
// Each turn overwrites it wholesale; only the scorer's continuity bonus ever
// reads it back.
type SessionContext struct {
	LastCategory   string    `json:"last_category"`
	LastSeverity   string    `json:"last_severity"`
	FollowupTopics []string  `json:"followup_topics,omitempty"`
	LastIntent     string    `json:"last_intent,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

// SessionStore holds per-session conversational state. Implementations must
// be safe for concurrent use; the engine performs no locking of its own
// around store calls.
type SessionStore interface {
	Context(sessionID string) (SessionContext, bool)
	PutContext(sessionID string, sc SessionContext)
	AppendTurn(sessionID string, turn Turn)
	History(sessionID string) []Turn
}

// DefaultHistoryLimit bounds per-session history in the default store. The
// engine never reads its own history, so trimming old turns only affects
// external inspection.
const DefaultHistoryLimit = 200

// MemoryStore is the default in-process SessionStore. Sessions are created
// lazily on first use and live until the process exits; history is retained
// as a ring of at most maxTurns entries (0 means unbounded).
type MemoryStore struct {
	mu       sync.RWMutex
	maxTurns int
	sessions map[string]*sessionState
}

type sessionState struct {
	context    SessionContext
	hasContext bool
	history    []Turn
}

func NewMemoryStore(maxTurns int) *MemoryStore {
	return &MemoryStore{
		maxTurns: maxTurns,
		sessions: make(map[string]*sessionState),
	}
}

func (s *MemoryStore) Context(sessionID string) (SessionContext, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.sessions[sessionID]
	if !ok || !state.hasContext {
		return SessionContext{}, false
	}
	return state.context, true
}

func (s *MemoryStore) PutContext(sessionID string, sc SessionContext) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state := s.session(sessionID)
	state.context = sc
	state.hasContext = true
}

func (s *MemoryStore) AppendTurn(sessionID string, turn Turn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state := s.session(sessionID)
	state.history = append(state.history, turn)
	if s.maxTurns > 0 && len(state.history) > s.maxTurns {
		overflow := len(state.history) - s.maxTurns
		state.history = append(state.history[:0:0], state.history[overflow:]...)
	}
}

// History returns a copy of the session's turn log, oldest first.
func (s *MemoryStore) History(sessionID string) []Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.sessions[sessionID]
	if !ok {
		return nil
	}
	history := make([]Turn, len(state.history))
	copy(history, state.history)
	return history
}

func (s *MemoryStore) session(sessionID string) *sessionState {
	state, ok := s.sessions[sessionID]
	if !ok {
		state = &sessionState{}
		s.sessions[sessionID] = state
	}
	return state
}
