package storage

import (
	"context"
	"sync"
)

// MemStore is an in-memory implementation of Store. It is used in tests and
// as the backing store when persistence across restarts is not wanted.
type MemStore struct {
	mu          sync.RWMutex
	record      *Record
	watchers    map[int]chan struct{}
	nextWatcher int
}

// NewMemStore creates a new in-memory session store.
func NewMemStore() *MemStore {
	return &MemStore{
		watchers: make(map[int]chan struct{}),
	}
}

// Load returns a copy of the stored record.
func (s *MemStore) Load() (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.record == nil {
		return nil, nil
	}
	record := *s.record
	return &record, nil
}

// Save replaces the stored record and signals watchers.
func (s *MemStore) Save(record *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if record == nil {
		s.record = nil
	} else {
		// Copy to avoid external modifications
		copied := *record
		s.record = &copied
	}
	s.notifyLocked()
	return nil
}

// Clear removes the stored record and signals watchers.
func (s *MemStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.record == nil {
		return nil
	}
	s.record = nil
	s.notifyLocked()
	return nil
}

// Watch subscribes to record changes until ctx is cancelled.
func (s *MemStore) Watch(ctx context.Context) (<-chan struct{}, error) {
	ch := make(chan struct{}, 1)

	s.mu.Lock()
	id := s.nextWatcher
	s.nextWatcher++
	s.watchers[id] = ch
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		delete(s.watchers, id)
		s.mu.Unlock()
	}()

	return ch, nil
}

func (s *MemStore) notifyLocked() {
	for _, ch := range s.watchers {
		select {
		case ch <- struct{}{}:
		default: // watcher already has a pending signal
		}
	}
}
