// Package session keeps per-session conversation history in memory.
package session

import (
	"sync"
	"time"

	"github.com/dayuer/nanobus/internal/messages"
)

// Session holds a conversation's message history.
type Session struct {
	Key       string
	CreatedAt time.Time
	UpdatedAt time.Time

	mu       sync.RWMutex
	messages []messages.AgentMessage
}

// Add appends messages to the history. System messages are never stored:
// the system prompt is rebuilt for every task.
func (s *Session) Add(msgs ...messages.AgentMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range msgs {
		switch m.Type {
		case messages.TypeSystem:
			continue
		case messages.TypeText, messages.TypeToolCall, messages.TypeToolResult,
			messages.TypeArtifact, messages.TypeUserAttachment:
			s.messages = append(s.messages, m)
		default:
			// Unknown types are stored as text so nothing is silently lost.
			m.Type = messages.TypeText
			s.messages = append(s.messages, m)
		}
	}
	s.UpdatedAt = time.Now()
}

// History returns a copy of the last maxMessages messages; maxMessages <= 0
// returns everything. The window never starts on a tool message, which would
// be orphaned from its tool call.
func (s *Session) History(maxMessages int) []messages.AgentMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()

	start := 0
	if maxMessages > 0 && len(s.messages) > maxMessages {
		start = len(s.messages) - maxMessages
	}
	for start < len(s.messages) && s.messages[start].Role == messages.RoleTool {
		start++
	}
	out := make([]messages.AgentMessage, len(s.messages)-start)
	copy(out, s.messages[start:])
	return out
}

// Len returns the number of stored messages.
func (s *Session) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages)
}

// Clear removes all messages.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = nil
	s.UpdatedAt = time.Now()
}

// Manager owns all sessions of the process.
type Manager struct {
	mu    sync.Mutex
	cache map[string]*Session
}

// NewManager creates an empty session manager.
func NewManager() *Manager {
	return &Manager{cache: make(map[string]*Session)}
}

// GetOrCreate returns an existing session or creates a new one.
func (m *Manager) GetOrCreate(key string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.cache[key]; ok {
		return s
	}
	now := time.Now()
	s := &Session{Key: key, CreatedAt: now, UpdatedAt: now}
	m.cache[key] = s
	return s
}

// Delete drops a session. It reports whether the session existed.
func (m *Manager) Delete(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.cache[key]
	delete(m.cache, key)
	return ok
}

// Keys returns the keys of all known sessions.
func (m *Manager) Keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.cache))
	for k := range m.cache {
		keys = append(keys, k)
	}
	return keys
}
