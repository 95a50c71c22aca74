package session

import (
	"errors"
	"fmt"
	"log"
	"time"

	"mapworkbench/internal/editor"
	"mapworkbench/internal/service/storage"
)

var ErrNotFound = errors.New("session not found")

// Manager keeps the open editor sessions in memory. Sessions are never
// persisted; saving goes through the composition service.
type Manager struct {
	storage storage.Storage[string, *editor.Session]
	now     func() time.Time
}

func NewManager() *Manager {
	return &Manager{
		storage: storage.NewMemoryStorage[string, *editor.Session](),
		now:     time.Now,
	}
}

// Add registers a new session
func (m *Manager) Add(s *editor.Session) *editor.Session {
	m.storage.Set(s.ID(), s)
	m.storage.Touch(s.ID(), m.now())
	log.Printf("[SESSION] Opened %s", s)
	return s
}

// Get returns a session and marks it as used
func (m *Manager) Get(id string) (*editor.Session, error) {
	s, ok := m.storage.Touch(id, m.now())
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return s, nil
}

// Delete closes a session
func (m *Manager) Delete(id string) error {
	if !m.storage.Delete(id) {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	log.Printf("[SESSION] Closed %s", id)
	return nil
}

// Count returns the number of open sessions
func (m *Manager) Count() int { return m.storage.Count() }

// Sweep closes sessions unused for longer than idle and returns how many
func (m *Manager) Sweep(idle time.Duration) int {
	stale := m.storage.DeleteIdle(m.now().Add(-idle))
	// sessions are not archived, the dirty flags are unused
	m.storage.ClearDirty(m.storage.DirtyKeys())

	if len(stale) > 0 {
		log.Printf("[SESSION] Swept %d idle sessions, %d open", len(stale), m.storage.Count())
	}
	return len(stale)
}
