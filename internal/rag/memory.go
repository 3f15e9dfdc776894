package rag

import (
	"strings"
	"sync"
	"time"

	"github.com/moodlemate/moodlemate/internal/log"
)

// Conversation roles. AddMessage normalizes case but stores whatever
// the caller supplies, so History can render roles it has never seen.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is a single conversation entry. Immutable once appended.
type Turn struct {
	Role      string
	Content   string
	Timestamp time.Time
}

// MemoryStats is a read-only snapshot of the memory state.
type MemoryStats struct {
	TotalSessions     int `json:"total_sessions"`
	TotalMessages     int `json:"total_messages"`
	MaxHistoryLength  int `json:"max_history_length"`
	SessionTimeoutHrs int `json:"session_timeout_hours"`
}

// Memory is the volatile per-session conversation log. State lives in
// process memory only and is lost on restart. A single mutex guards
// all mutation; append plus the truncation check is one atomic unit
// per call.
type Memory struct {
	mu       sync.Mutex
	sessions map[string][]Turn

	maxHistoryLength int
	sessionTimeout   time.Duration
	logger           log.Logger

	// now is swappable for expiry tests.
	now func() time.Time
}

// NewMemory creates a Memory with the given truncation cap and expiry
// window.
func NewMemory(maxHistoryLength int, sessionTimeout time.Duration, logger log.Logger) *Memory {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Memory{
		sessions:         make(map[string][]Turn),
		maxHistoryLength: maxHistoryLength,
		sessionTimeout:   sessionTimeout,
		logger:           logger.With("component", "memory"),
		now:              time.Now,
	}
}

// AddMessage appends a turn to the session, creating the session on
// first use. Once the session exceeds twice the history cap it is
// truncated to the most recent cap turns, so truncation cost is
// amortized over many appends.
func (m *Memory) AddMessage(sessionID, role, content string) {
	role = strings.ToLower(strings.TrimSpace(role))

	m.mu.Lock()
	defer m.mu.Unlock()

	turns := append(m.sessions[sessionID], Turn{
		Role:      role,
		Content:   content,
		Timestamp: m.now(),
	})
	if len(turns) > m.maxHistoryLength*2 {
		turns = turns[len(turns)-m.maxHistoryLength:]
	}
	m.sessions[sessionID] = turns
}

// History renders the most recent maxMessages turns as "Label: text"
// lines in chronological order. Unknown sessions yield an empty
// string.
func (m *Memory) History(sessionID string, maxMessages int) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	turns, ok := m.sessions[sessionID]
	if !ok {
		return ""
	}
	if maxMessages > 0 && len(turns) > maxMessages {
		turns = turns[len(turns)-maxMessages:]
	}

	lines := make([]string, 0, len(turns))
	for _, turn := range turns {
		lines = append(lines, roleLabel(turn.Role)+": "+turn.Content)
	}
	return strings.Join(lines, "\n")
}

// ClearSession removes a session entirely and reports whether it
// existed.
func (m *Memory) ClearSession(sessionID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[sessionID]; !ok {
		return false
	}
	delete(m.sessions, sessionID)
	m.logger.Info("session cleared", "session_id", sessionID)
	return true
}

// CleanupExpiredSessions removes every session whose last turn is
// older than the timeout, plus any empty session, and returns the
// number removed. O(total sessions); run it from a timer, not the
// request path.
func (m *Memory) CleanupExpiredSessions() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	removed := 0
	for id, turns := range m.sessions {
		if len(turns) == 0 || now.Sub(turns[len(turns)-1].Timestamp) > m.sessionTimeout {
			delete(m.sessions, id)
			removed++
		}
	}
	if removed > 0 {
		m.logger.Info("expired sessions removed", "count", removed)
	}
	return removed
}

// Stats returns a point-in-time snapshot of session and message
// counts plus the configured limits.
func (m *Memory) Stats() MemoryStats {
	m.mu.Lock()
	defer m.mu.Unlock()

	total := 0
	for _, turns := range m.sessions {
		total += len(turns)
	}
	return MemoryStats{
		TotalSessions:     len(m.sessions),
		TotalMessages:     total,
		MaxHistoryLength:  m.maxHistoryLength,
		SessionTimeoutHrs: int(m.sessionTimeout / time.Hour),
	}
}

// roleLabel maps a stored role to its rendered label. Roles outside
// the known set are rendered capitalized as-is rather than rejected.
func roleLabel(role string) string {
	switch role {
	case RoleUser:
		return "User"
	case RoleAssistant:
		return "Assistant"
	case "":
		return "Unknown"
	default:
		r := []rune(role)
		return strings.ToUpper(string(r[:1])) + string(r[1:])
	}
}
