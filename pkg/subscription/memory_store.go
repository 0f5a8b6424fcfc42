package subscription

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/plankit/pkg/billing"
)

// MemoryStore is an in-process Store for tests and single-instance
// deployments. Records are stored by value so callers cannot mutate shared
// state behind the store's back.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[uuid.UUID]Record
}

// NewMemoryStore creates an empty in-memory record store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[uuid.UUID]Record),
	}
}

func (s *MemoryStore) Get(ctx context.Context, userID uuid.UUID) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, exists := s.records[userID]
	if !exists {
		return nil, ErrRecordNotFound
	}
	return &record, nil
}

func (s *MemoryStore) Save(ctx context.Context, record *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[record.UserID] = *record
	return nil
}

func (s *MemoryStore) ListOverdue(ctx context.Context, updatedBefore time.Time) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var overdue []Record
	for _, record := range s.records {
		switch {
		case (record.Status == StatusTrialing || record.Status == StatusPastDue) &&
			record.UpdatedAt.Before(updatedBefore):
			overdue = append(overdue, record)
		case (record.Status == StatusNone || record.Status.Terminal()) &&
			record.Tier != billing.TierFree:
			overdue = append(overdue, record)
		}
	}
	return overdue, nil
}
