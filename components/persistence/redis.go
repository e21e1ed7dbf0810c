package persistence

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/akriventsev/agentapi/framework/core"
)

const (
	resourceKeyPrefix = "agentapi:resource:"
	eventsKey         = "agentapi:events"
)

// RedisStore хранилище поверх Redis. Ресурсы хранятся как JSON-строки,
// журнал событий как список с обрезкой до maxEvents записей. LPUSH
// кладет новые записи в голову списка, поэтому LRANGE с головы
// возвращает журнал от новых к старым.
type RedisStore struct {
	client    *redis.Client
	maxEvents int64
}

// NewRedisStore подключается к Redis и проверяет доступность
func NewRedisStore(ctx context.Context, addr, password string, db, maxEvents int) (*RedisStore, error) {
	if maxEvents <= 0 {
		maxEvents = 1000
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}

	return &RedisStore{client: client, maxEvents: int64(maxEvents)}, nil
}

// SaveResource сохраняет или обновляет ресурс
func (s *RedisStore) SaveResource(ctx context.Context, id string, data core.Params) (Resource, error) {
	now := time.Now()
	resource := Resource{ID: id, Data: data, CreatedAt: now, UpdatedAt: now}

	if existing, ok, err := s.LoadResource(ctx, id); err != nil {
		return Resource{}, err
	} else if ok {
		resource.CreatedAt = existing.CreatedAt
	}

	raw, err := json.Marshal(resource)
	if err != nil {
		return Resource{}, fmt.Errorf("failed to encode resource %s: %w", id, err)
	}
	if err := s.client.Set(ctx, resourceKeyPrefix+id, raw, 0).Err(); err != nil {
		return Resource{}, fmt.Errorf("failed to save resource %s: %w", id, err)
	}
	return resource, nil
}

// LoadResource возвращает ресурс по идентификатору
func (s *RedisStore) LoadResource(ctx context.Context, id string) (Resource, bool, error) {
	raw, err := s.client.Get(ctx, resourceKeyPrefix+id).Bytes()
	if err == redis.Nil {
		return Resource{}, false, nil
	}
	if err != nil {
		return Resource{}, false, fmt.Errorf("failed to load resource %s: %w", id, err)
	}

	var resource Resource
	if err := json.Unmarshal(raw, &resource); err != nil {
		return Resource{}, false, fmt.Errorf("failed to decode resource %s: %w", id, err)
	}
	return resource, true, nil
}

// DeleteResource удаляет ресурс
func (s *RedisStore) DeleteResource(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, resourceKeyPrefix+id).Err(); err != nil {
		return fmt.Errorf("failed to delete resource %s: %w", id, err)
	}
	return nil
}

// AppendEvent дописывает запись в журнал событий
func (s *RedisStore) AppendEvent(ctx context.Context, record EventRecord) error {
	raw, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to encode event record: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.LPush(ctx, eventsKey, raw)
	pipe.LTrim(ctx, eventsKey, 0, s.maxEvents-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to append event record: %w", err)
	}
	return nil
}

// RecentEvents возвращает последние записи журнала от новых к старым
func (s *RedisStore) RecentEvents(ctx context.Context, limit int) ([]EventRecord, error) {
	if limit <= 0 {
		limit = int(s.maxEvents)
	}

	raws, err := s.client.LRange(ctx, eventsKey, 0, int64(limit)-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read event records: %w", err)
	}

	records := make([]EventRecord, 0, len(raws))
	for _, raw := range raws {
		var record EventRecord
		if err := json.Unmarshal([]byte(raw), &record); err != nil {
			return nil, fmt.Errorf("failed to decode event record: %w", err)
		}
		records = append(records, record)
	}
	return records, nil
}

// Dispose закрывает подключение к Redis
func (s *RedisStore) Dispose(ctx context.Context) error {
	return s.client.Close()
}
