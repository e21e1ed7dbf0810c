package persistence

import (
	"context"
	"sync"
	"time"

	"github.com/akriventsev/agentapi/framework/core"
)

// MemoryStore хранилище в памяти. Журнал событий ограничен maxEvents
// записями, старые записи вытесняются.
type MemoryStore struct {
	mu        sync.RWMutex
	resources map[string]Resource
	events    []EventRecord
	maxEvents int
}

// NewMemoryStore создает хранилище в памяти
func NewMemoryStore(maxEvents int) *MemoryStore {
	if maxEvents <= 0 {
		maxEvents = 1000
	}
	return &MemoryStore{
		resources: make(map[string]Resource),
		maxEvents: maxEvents,
	}
}

// SaveResource сохраняет или обновляет ресурс
func (s *MemoryStore) SaveResource(ctx context.Context, id string, data core.Params) (Resource, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	resource := Resource{ID: id, Data: data, CreatedAt: now, UpdatedAt: now}
	if existing, ok := s.resources[id]; ok {
		resource.CreatedAt = existing.CreatedAt
	}
	s.resources[id] = resource
	return resource, nil
}

// LoadResource возвращает ресурс по идентификатору
func (s *MemoryStore) LoadResource(ctx context.Context, id string) (Resource, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	resource, ok := s.resources[id]
	return resource, ok, nil
}

// DeleteResource удаляет ресурс
func (s *MemoryStore) DeleteResource(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.resources, id)
	return nil
}

// AppendEvent дописывает запись в журнал событий
func (s *MemoryStore) AppendEvent(ctx context.Context, record EventRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.events = append(s.events, record)
	if len(s.events) > s.maxEvents {
		s.events = append([]EventRecord(nil), s.events[len(s.events)-s.maxEvents:]...)
	}
	return nil
}

// RecentEvents возвращает последние записи журнала от новых к старым
func (s *MemoryStore) RecentEvents(ctx context.Context, limit int) ([]EventRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 || limit > len(s.events) {
		limit = len(s.events)
	}

	result := make([]EventRecord, 0, limit)
	for i := len(s.events) - 1; i >= len(s.events)-limit; i-- {
		result = append(result, s.events[i])
	}
	return result, nil
}

// Dispose освобождает ресурсы хранилища
func (s *MemoryStore) Dispose(ctx context.Context) error {
	return nil
}
