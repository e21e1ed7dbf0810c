// Package registry предоставляет реестр компонентов и резолвер зависимостей.
package registry

import (
	"sync"

	"github.com/akriventsev/agentapi/framework/component"
	"github.com/akriventsev/agentapi/framework/core"
)

// Registry реестр сконструированных компонентов. Карта компонентов
// мутируется только в фазе BUILDING; после этого она доступна только
// для чтения, и блокировка при чтении не требуется по построению.
type Registry struct {
	mu         sync.RWMutex
	components map[string]*component.Component
	order      []string
}

// New создает новый реестр
func New() *Registry {
	return &Registry{
		components: make(map[string]*component.Component),
	}
}

// Register регистрирует компонент. Повторная регистрация идентификатора -
// ошибка, а не перезапись.
func (r *Registry) Register(c *component.Component) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.components[c.ID()]; exists {
		return core.NewErrorf(core.ErrAlreadyExists, "component %s already registered", c.ID())
	}
	r.components[c.ID()] = c
	r.order = append(r.order, c.ID())
	return nil
}

// Get возвращает компонент по идентификатору
func (r *Registry) Get(id string) (*component.Component, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, exists := r.components[id]
	return c, exists
}

// IDs возвращает идентификаторы компонентов в порядке регистрации
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, len(r.order))
	copy(ids, r.order)
	return ids
}

// Components возвращает компоненты в порядке регистрации
func (r *Registry) Components() []*component.Component {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]*component.Component, 0, len(r.order))
	for _, id := range r.order {
		result = append(result, r.components[id])
	}
	return result
}

// Len возвращает число зарегистрированных компонентов
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}
