// Package events предоставляет внутрипроцессную шину событий.
package events

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/akriventsev/agentapi/framework/core"
)

// Event уведомление, опубликованное в шину
type Event struct {
	ID         string
	Type       string
	Payload    core.Params
	OccurredAt time.Time
}

// Handler обработчик событий. Обработчику разрешено блокироваться;
// его ошибка логируется и никогда не доходит до публикующего.
type Handler func(ctx context.Context, event Event) error

// subscription подписка с порядковым номером регистрации
type subscription struct {
	id      uint64
	handler Handler
}

// Bus шина событий с семантикой снимка: publish копирует текущий список
// подписчиков до вызова, поэтому подписки, добавленные обработчиками во
// время публикации, для этой публикации не вызываются.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[string][]*subscription
	nextID      uint64
	logger      zerolog.Logger
}

// NewBus создает новую шину событий
func NewBus(logger zerolog.Logger) *Bus {
	return &Bus{
		subscribers: make(map[string][]*subscription),
		logger:      logger,
	}
}

// Subscription активная подписка на тип события
type Subscription struct {
	bus       *Bus
	eventType string
	id        uint64
}

// Cancel отменяет подписку
func (s *Subscription) Cancel() {
	s.bus.unsubscribe(s.eventType, s.id)
}

// Subscribe подписывает обработчик на тип события. Порядок вызова
// обработчиков при публикации равен порядку подписки.
func (b *Bus) Subscribe(eventType string, handler Handler) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	sub := &subscription{id: b.nextID, handler: handler}
	b.subscribers[eventType] = append(b.subscribers[eventType], sub)

	return &Subscription{bus: b, eventType: eventType, id: sub.id}
}

func (b *Bus) unsubscribe(eventType string, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.subscribers[eventType]
	for i, sub := range subs {
		if sub.id == id {
			b.subscribers[eventType] = append(subs[:i], subs[i+1:]...)
			return
		}
	}
}

// Publish доставляет событие всем подписчикам, зарегистрированным до
// вызова, в порядке подписки. Доставка fire-and-forget: ошибки
// обработчиков логируются и не прерывают доставку остальным.
func (b *Bus) Publish(ctx context.Context, eventType string, payload core.Params) {
	b.mu.RLock()
	snapshot := make([]*subscription, len(b.subscribers[eventType]))
	copy(snapshot, b.subscribers[eventType])
	b.mu.RUnlock()

	if len(snapshot) == 0 {
		return
	}

	event := Event{
		ID:         uuid.New().String(),
		Type:       eventType,
		Payload:    payload,
		OccurredAt: time.Now(),
	}

	for _, sub := range snapshot {
		if err := sub.handler(ctx, event); err != nil {
			b.logger.Warn().
				Str("event_type", eventType).
				Str("event_id", event.ID).
				Err(err).
				Msg("event handler failed")
		}
	}
}

// SubscriberCount возвращает число подписчиков на тип события
func (b *Bus) SubscriberCount(eventType string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers[eventType])
}
