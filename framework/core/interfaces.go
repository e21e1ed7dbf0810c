// Package core предоставляет базовые интерфейсы для всех компонентов рантайма.
package core

import "context"

// Disposable интерфейс для компонентов, требующих очистки ресурсов
type Disposable interface {
	// Dispose освобождает ресурсы компонента
	Dispose(ctx context.Context) error
}

// HealthCheckable интерфейс для проверки здоровья компонентов
type HealthCheckable interface {
	// HealthCheck проверяет здоровье компонента
	HealthCheck(ctx context.Context) error
}

// Snapshotter интерфейс для компонентов, умеющих выгружать и
// восстанавливать свое состояние (используется подсистемой бэкапов)
type Snapshotter interface {
	// Snapshot выгружает состояние в сериализуемую форму
	Snapshot(ctx context.Context) ([]byte, error)
	// Restore восстанавливает состояние из снимка
	Restore(ctx context.Context, data []byte) error
}
