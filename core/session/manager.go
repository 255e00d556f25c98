package session

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"ytbot/logger"
)

// Manager owns the per-chat sessions.
type Manager struct {
	store TrackStore
	now   func() time.Time
	log   *zap.Logger

	mu       sync.Mutex
	sessions map[int64]*Session
}

// NewManager creates a manager backed by store; nil means in-memory.
func NewManager(store TrackStore) *Manager {
	if store == nil {
		store = NewMemoryTrackStore()
	}
	return &Manager{
		store:    store,
		now:      time.Now,
		log:      logger.Component("session"),
		sessions: make(map[int64]*Session),
	}
}

// Get returns the chat's session, creating an idle one on first use.
func (m *Manager) Get(chatID int64) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[chatID]
	if !ok {
		s = newSession(chatID, m.store, m.now)
		m.sessions[chatID] = s
	}
	return s
}

// Lookup returns the chat's session without creating one.
func (m *Manager) Lookup(chatID int64) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[chatID]
	return s, ok
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Snapshot lists all sessions ordered by chat ID.
func (m *Manager) Snapshot() []Info {
	m.mu.Lock()
	list := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		list = append(list, s)
	}
	m.mu.Unlock()

	infos := make([]Info, 0, len(list))
	for _, s := range list {
		infos = append(infos, s.Info())
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].ChatID < infos[j].ChatID })
	return infos
}

// EvictIdle drops idle sessions untouched for longer than ttl, together with
// their stored tracks. Active sessions are never evicted.
func (m *Manager) EvictIdle(ctx context.Context, ttl time.Duration) int {
	cutoff := m.now().Add(-ttl)

	m.mu.Lock()
	var evicted []int64
	for id, s := range m.sessions {
		if s.idleSince(cutoff) {
			delete(m.sessions, id)
			evicted = append(evicted, id)
		}
	}
	m.mu.Unlock()

	for _, id := range evicted {
		if err := m.store.DeleteTracks(ctx, id); err != nil {
			m.log.Warn("failed to delete tracks of evicted session", zap.Int64("chatID", id), zap.Error(err))
		}
	}
	if len(evicted) > 0 {
		m.log.Debug("evicted idle sessions", zap.Int("count", len(evicted)))
	}
	return len(evicted)
}

// RunJanitor evicts idle sessions every interval until ctx is done.
func (m *Manager) RunJanitor(ctx context.Context, ttl, interval time.Duration) {
	if ttl <= 0 {
		return
	}
	if interval <= 0 {
		interval = ttl / 4
		if interval < time.Minute {
			interval = time.Minute
		}
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.EvictIdle(ctx, ttl)
		}
	}
}
