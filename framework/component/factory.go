// Package component предоставляет явный реестр типов компонентов.
package component

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/akriventsev/agentapi/framework/config"
	"github.com/akriventsev/agentapi/framework/core"
	"github.com/akriventsev/agentapi/framework/events"
)

// RuntimeContext срез поверхности рантайма, доступный компонентам при
// конструировании. Передается явно вместо глобального синглтона, чтобы
// в тестах могли сосуществовать независимые экземпляры рантайма.
type RuntimeContext interface {
	// Publish публикует событие в шину рантайма
	Publish(ctx context.Context, eventType string, payload core.Params)
	// Subscribe подписывает обработчик на тип события
	Subscribe(eventType string, handler events.Handler) *events.Subscription
	// Logger возвращает логгер рантайма
	Logger() zerolog.Logger
}

// Constructor рецепт конструирования компонента указанного типа
type Constructor func(rc RuntimeContext, name string, cfg config.Component) (*Component, error)

// TypeRegistry явное отображение строки типа на конструктор. Новые виды
// компонентов добавляются регистрацией, без модификации ядра.
type TypeRegistry struct {
	mu           sync.RWMutex
	constructors map[string]Constructor
	order        []string
}

// NewTypeRegistry создает новый реестр типов
func NewTypeRegistry() *TypeRegistry {
	return &TypeRegistry{
		constructors: make(map[string]Constructor),
	}
}

// Register регистрирует конструктор для типа. Повторная регистрация
// типа - ошибка.
func (r *TypeRegistry) Register(ctype string, ctor Constructor) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.constructors[ctype]; exists {
		return core.NewErrorf(core.ErrAlreadyExists, "component type %s already registered", ctype)
	}
	r.constructors[ctype] = ctor
	r.order = append(r.order, ctype)
	return nil
}

// New конструирует компонент зарегистрированного типа
func (r *TypeRegistry) New(rc RuntimeContext, ctype, name string, cfg config.Component) (*Component, error) {
	r.mu.RLock()
	ctor, exists := r.constructors[ctype]
	r.mu.RUnlock()

	if !exists {
		return nil, core.NewErrorf(core.ErrComponentNotFound, "component type %s is not registered", ctype)
	}
	return ctor(rc, name, cfg)
}

// Types возвращает зарегистрированные типы в порядке регистрации
func (r *TypeRegistry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, len(r.order))
	copy(types, r.order)
	return types
}
