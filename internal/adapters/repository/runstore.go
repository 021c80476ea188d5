package repository

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/okian/covcall/internal/screening"
	"github.com/okian/covcall/pkg/metrics"
)

// DefaultHistory is the number of runs kept when no option is given.
const DefaultHistory = 20

// MemoryRunStore is a bounded in-memory RunStore. Results are stored as
// given and must be treated as read-only by callers.
type MemoryRunStore struct {
	mu      sync.RWMutex
	history int
	byID    map[uuid.UUID]*screening.Result
	order   []uuid.UUID // oldest first
}

var _ RunStore = (*MemoryRunStore)(nil)

// NewMemoryRunStore creates a run store.
func NewMemoryRunStore(opts ...Option) *MemoryRunStore {
	s := &MemoryRunStore{
		history: DefaultHistory,
		byID:    make(map[uuid.UUID]*screening.Result),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Put implements RunStore.
func (s *MemoryRunStore) Put(_ context.Context, res *screening.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[res.RunID]; !ok {
		s.order = append(s.order, res.RunID)
	}
	s.byID[res.RunID] = res

	for len(s.order) > s.history {
		delete(s.byID, s.order[0])
		s.order = s.order[1:]
	}
	metrics.UpdateStoredRuns(len(s.order))
	return nil
}

// Get implements RunStore.
func (s *MemoryRunStore) Get(_ context.Context, id uuid.UUID) (*screening.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return res, nil
}

// Latest implements RunStore.
func (s *MemoryRunStore) Latest(_ context.Context) (*screening.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.order) == 0 {
		return nil, ErrNotFound
	}
	return s.byID[s.order[len(s.order)-1]], nil
}

// Count implements RunStore.
func (s *MemoryRunStore) Count(_ context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}
