// Package history keeps a bounded linear undo stack of document snapshots.
package history

import (
	"time"

	"github.com/google/uuid"

	"github.com/starford/lumina/internal/models"
)

// Manager holds snapshots and a cursor. It is not safe for concurrent use;
// the editor store serializes access.
type Manager struct {
	limit   int
	entries []models.Snapshot
	index   int
	now     func() time.Time
}

// New returns an empty manager. limit <= 0 keeps every snapshot.
func New(limit int) *Manager {
	return &Manager{limit: limit, index: -1, now: time.Now}
}

// Commit records a deep copy of doc as the newest entry. Any redo entries
// are discarded and the oldest entries are evicted past the limit.
func (m *Manager) Commit(action string, doc models.Document) models.Snapshot {
	s := models.Snapshot{
		ID:        uuid.NewString(),
		Timestamp: m.now(),
		Action:    action,
		State:     doc.Clone(),
	}
	m.entries = append(m.entries[:m.index+1], s)
	m.index = len(m.entries) - 1
	m.evict()
	return s
}

// evict trims the stack to the limit. Entries older than the cursor go
// first; if that is not enough, the newest redo entries are dropped. The
// entry under the cursor always survives.
func (m *Manager) evict() {
	if m.limit <= 0 || len(m.entries) <= m.limit {
		return
	}
	drop := min(len(m.entries)-m.limit, max(m.index, 0))
	clear(m.entries[:drop])
	m.entries = append(m.entries[:0], m.entries[drop:]...)
	m.index -= drop
	if len(m.entries) > m.limit {
		clear(m.entries[m.limit:])
		m.entries = m.entries[:m.limit]
	}
}

// Undo moves the cursor back and returns that snapshot's state.
func (m *Manager) Undo() (models.Document, bool) {
	if !m.CanUndo() {
		return models.Document{}, false
	}
	m.index--
	return m.entries[m.index].State.Clone(), true
}

// Redo moves the cursor forward and returns that snapshot's state.
func (m *Manager) Redo() (models.Document, bool) {
	if !m.CanRedo() {
		return models.Document{}, false
	}
	m.index++
	return m.entries[m.index].State.Clone(), true
}

func (m *Manager) CanUndo() bool { return m.index > 0 }
func (m *Manager) CanRedo() bool { return m.index >= 0 && m.index < len(m.entries)-1 }
func (m *Manager) Len() int      { return len(m.entries) }
func (m *Manager) Index() int    { return m.index }
func (m *Manager) Limit() int    { return m.limit }

// Current returns the entry under the cursor.
func (m *Manager) Current() (models.Snapshot, bool) {
	if m.index < 0 {
		return models.Snapshot{}, false
	}
	return m.entries[m.index], true
}

// Entries returns deep copies of all snapshots.
func (m *Manager) Entries() []models.Snapshot {
	out := make([]models.Snapshot, len(m.entries))
	for i, e := range m.entries {
		e.State = e.State.Clone()
		out[i] = e
	}
	return out
}

// SetLimit changes the capacity, evicting immediately if needed.
func (m *Manager) SetLimit(limit int) {
	m.limit = limit
	m.evict()
}

// Reset drops every entry.
func (m *Manager) Reset() {
	m.entries = nil
	m.index = -1
}
