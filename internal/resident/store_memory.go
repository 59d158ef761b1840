package resident

import (
	"context"
	"sync"
	"time"

	"popreg/pkg/platform/sentinel"
)

// InMemoryStore is a map-backed Store for tests and local development.
type InMemoryStore struct {
	mu        sync.RWMutex
	nextID    int64
	residents map[int64]Resident
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{nextID: 1, residents: make(map[int64]Resident)}
}

func (s *InMemoryStore) GetByID(ctx context.Context, id int64) (*Resident, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.residents[id]
	if !ok || r.Deleted {
		return nil, sentinel.ErrNotFound
	}
	return &r, nil
}

func (s *InMemoryStore) GetByUserID(ctx context.Context, userID int64) (*Resident, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.residents {
		if r.UserID == userID && !r.Deleted {
			return &r, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryStore) GetByIDCard(ctx context.Context, idCard string) (*Resident, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.residents {
		if r.IDCard == idCard && !r.Deleted {
			return &r, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryStore) Create(ctx context.Context, r *Resident) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.residents {
		if existing.IDCard == r.IDCard && !existing.Deleted {
			return sentinel.ErrConflict
		}
	}
	r.ID = s.nextID
	s.nextID++
	now := time.Now()
	r.CreatedAt = now
	r.UpdatedAt = now
	s.residents[r.ID] = *r
	return nil
}

func (s *InMemoryStore) Update(ctx context.Context, r *Resident) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.residents[r.ID]
	if !ok || existing.Deleted {
		return sentinel.ErrNotFound
	}
	for id, other := range s.residents {
		if id != r.ID && other.IDCard == r.IDCard && !other.Deleted {
			return sentinel.ErrConflict
		}
	}
	r.UpdatedAt = time.Now()
	s.residents[r.ID] = *r
	return nil
}

func (s *InMemoryStore) Delete(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.residents[id]
	if !ok || r.Deleted {
		return sentinel.ErrNotFound
	}
	r.Deleted = true
	r.UpdatedAt = time.Now()
	s.residents[id] = r
	return nil
}
