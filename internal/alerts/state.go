package alerts

import (
	"container/list"
	"context"
	"sync"
)

// --------------------------------------------------------------------------
// GameStateStore
// --------------------------------------------------------------------------

// GameStateStore holds the last-seen state per game key. Entries are never
// removed.
type GameStateStore struct {
	mu     sync.RWMutex
	states map[string]GameState
}

// NewGameStateStore returns an empty store.
func NewGameStateStore() *GameStateStore {
	return &GameStateStore{states: make(map[string]GameState)}
}

// Get returns the stored state for key.
func (s *GameStateStore) Get(key string) (GameState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.states[key]
	return st, ok
}

// Put overwrites the state for its game key. States without a tracked team
// are ignored.
func (s *GameStateStore) Put(st GameState) {
	if st.ChicagoTeamID == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[st.Key()] = st
}

// Len returns the number of tracked games.
func (s *GameStateStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.states)
}

// --------------------------------------------------------------------------
// SeenItemStore
// --------------------------------------------------------------------------

// SeenStore records news links that have already been processed.
type SeenStore interface {
	// SeenAndRecord atomically checks whether link was seen and records it
	// if not. Returns true if link was already seen.
	SeenAndRecord(ctx context.Context, link string) (bool, error)
	Size(ctx context.Context) (int64, error)
}

// MemorySeenStore is an in-process SeenStore. With maxSize > 0 the oldest
// links are evicted once the bound is reached; with maxSize <= 0 it never
// forgets.
type MemorySeenStore struct {
	mu      sync.Mutex
	seen    map[string]*list.Element
	order   *list.List // front is the oldest link
	maxSize int
}

// NewMemorySeenStore creates a store bounded to maxSize links (0 = unbounded).
func NewMemorySeenStore(maxSize int) *MemorySeenStore {
	return &MemorySeenStore{
		seen:    make(map[string]*list.Element),
		order:   list.New(),
		maxSize: maxSize,
	}
}

func (m *MemorySeenStore) SeenAndRecord(_ context.Context, link string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.seen[link]; ok {
		return true, nil
	}
	if m.maxSize > 0 && len(m.seen) >= m.maxSize {
		if oldest := m.order.Front(); oldest != nil {
			delete(m.seen, oldest.Value.(string))
			m.order.Remove(oldest)
		}
	}
	m.seen[link] = m.order.PushBack(link)
	return false, nil
}

func (m *MemorySeenStore) Size(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.seen)), nil
}
