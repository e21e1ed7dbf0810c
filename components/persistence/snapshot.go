package persistence

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// snapshot сериализуемая форма состояния хранилища
type snapshot struct {
	Resources []Resource    `json:"resources"`
	Events    []EventRecord `json:"events"`
}

// Snapshot выгружает состояние хранилища (реализация core.Snapshotter)
func (s *MemoryStore) Snapshot(ctx context.Context) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := snapshot{
		Resources: make([]Resource, 0, len(s.resources)),
		Events:    append([]EventRecord(nil), s.events...),
	}
	for _, resource := range s.resources {
		snap.Resources = append(snap.Resources, resource)
	}
	return json.Marshal(snap)
}

// Restore восстанавливает состояние из снимка, замещая текущее
// (реализация core.Snapshotter)
func (s *MemoryStore) Restore(ctx context.Context, data []byte) error {
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("failed to decode snapshot: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.resources = make(map[string]Resource, len(snap.Resources))
	for _, resource := range snap.Resources {
		s.resources[resource.ID] = resource
	}
	s.events = snap.Events
	if len(s.events) > s.maxEvents {
		s.events = s.events[len(s.events)-s.maxEvents:]
	}
	return nil
}

// Snapshot выгружает состояние хранилища (реализация core.Snapshotter)
func (s *RedisStore) Snapshot(ctx context.Context) ([]byte, error) {
	snap := snapshot{}

	iter := s.client.Scan(ctx, 0, resourceKeyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		raw, err := s.client.Get(ctx, iter.Val()).Bytes()
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", iter.Val(), err)
		}
		var resource Resource
		if err := json.Unmarshal(raw, &resource); err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", iter.Val(), err)
		}
		snap.Resources = append(snap.Resources, resource)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan resources: %w", err)
	}

	raws, err := s.client.LRange(ctx, eventsKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read event journal: %w", err)
	}
	// Журнал хранится от новых к старым; снимок держит хронологический
	// порядок
	for i := len(raws) - 1; i >= 0; i-- {
		var record EventRecord
		if err := json.Unmarshal([]byte(raws[i]), &record); err != nil {
			return nil, fmt.Errorf("failed to decode event record: %w", err)
		}
		snap.Events = append(snap.Events, record)
	}

	return json.Marshal(snap)
}

// Restore восстанавливает состояние из снимка, замещая текущее
// (реализация core.Snapshotter)
func (s *RedisStore) Restore(ctx context.Context, data []byte) error {
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("failed to decode snapshot: %w", err)
	}

	iter := s.client.Scan(ctx, 0, resourceKeyPrefix+"*", 0).Iterator()
	var stale []string
	for iter.Next(ctx) {
		stale = append(stale, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan resources: %w", err)
	}

	pipe := s.client.TxPipeline()
	if len(stale) > 0 {
		pipe.Del(ctx, stale...)
	}
	pipe.Del(ctx, eventsKey)
	for _, resource := range snap.Resources {
		raw, err := json.Marshal(resource)
		if err != nil {
			return fmt.Errorf("failed to encode resource %s: %w", resource.ID, err)
		}
		pipe.Set(ctx, resourceKeyPrefix+resource.ID, raw, 0)
	}
	for _, record := range snap.Events {
		raw, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("failed to encode event record: %w", err)
		}
		pipe.LPush(ctx, eventsKey, raw)
	}
	pipe.LTrim(ctx, eventsKey, 0, s.maxEvents-1)

	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return fmt.Errorf("failed to restore snapshot: %w", err)
	}
	return nil
}
