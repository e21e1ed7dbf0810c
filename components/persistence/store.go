// Package persistence предоставляет хранилище ресурсов и журнала
// событий со сменными драйверами.
package persistence

import (
	"context"
	"time"

	"github.com/akriventsev/agentapi/framework/core"
)

// Resource именованная запись с произвольными данными
type Resource struct {
	ID        string      `json:"id"`
	Data      core.Params `json:"data"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// EventRecord запись журнала событий
type EventRecord struct {
	ID        string      `json:"id"`
	Type      string      `json:"type"`
	Payload   core.Params `json:"payload"`
	Timestamp time.Time   `json:"timestamp"`
}

// Store хранилище ресурсов и журнала событий. Повторное сохранение
// ресурса обновляет данные, сохраняя время создания. RecentEvents
// возвращает записи от новых к старым. Освобождение ресурсов идет
// через core.Disposable: жизненный цикл компонента вызывает Dispose
// у экземпляра при остановке.
type Store interface {
	SaveResource(ctx context.Context, id string, data core.Params) (Resource, error)
	LoadResource(ctx context.Context, id string) (Resource, bool, error)
	DeleteResource(ctx context.Context, id string) error
	AppendEvent(ctx context.Context, record EventRecord) error
	RecentEvents(ctx context.Context, limit int) ([]EventRecord, error)
	core.Disposable
}
