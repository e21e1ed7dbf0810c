// Package component предоставляет модель компонента рантайма.
package component

import (
	"context"
	"sort"
	"sync"

	"github.com/akriventsev/agentapi/framework/core"
)

// InitHook хук инициализации компонента
type InitHook func(ctx context.Context, c *Component) error

// StopHook хук остановки компонента
type StopHook func(ctx context.Context, c *Component) error

// Contract проверка связываемой зависимости, выполняется на этапе
// разрешения графа, а не при каждом обращении
type Contract func(instance interface{}) error

// Component именованная типизированная единица поведения с объявленными
// зависимостями и жизненным циклом
type Component struct {
	id    string
	ctype string

	capabilities    map[string]*Capability
	dependencyNames []string
	contracts       map[string]Contract
	dependencies    map[string]*Component
	instance        interface{}

	initHook InitHook
	stopHook StopHook

	mu    sync.RWMutex
	state core.ComponentState
}

// New создает новый компонент с указанным идентификатором и типом
func New(id, ctype string) *Component {
	return &Component{
		id:           id,
		ctype:        ctype,
		capabilities: make(map[string]*Capability),
		contracts:    make(map[string]Contract),
		dependencies: make(map[string]*Component),
		state:        core.StateCreated,
	}
}

// WithCapability добавляет способность. Повторная регистрация имени
// перекрывает предыдущую (осознанная политика слияния: поток плагинов
// может затенять встроенные способности).
func (c *Component) WithCapability(cap *Capability) *Component {
	c.capabilities[cap.Name()] = cap
	return c
}

// WithDependencies объявляет зависимости компонента. Порядок объявления
// сохраняется, дубликаты отбрасываются.
func (c *Component) WithDependencies(names ...string) *Component {
	for _, name := range names {
		seen := false
		for _, existing := range c.dependencyNames {
			if existing == name {
				seen = true
				break
			}
		}
		if !seen {
			c.dependencyNames = append(c.dependencyNames, name)
		}
	}
	return c
}

// WithDependencyContract добавляет проверку контракта для зависимости.
// Контракт выполняется резолвером во время связывания.
func (c *Component) WithDependencyContract(name string, contract Contract) *Component {
	c.WithDependencies(name)
	c.contracts[name] = contract
	return c
}

// WithInstance прикрепляет прикладной объект компонента
func (c *Component) WithInstance(instance interface{}) *Component {
	c.instance = instance
	return c
}

// WithInitHook устанавливает хук инициализации
func (c *Component) WithInitHook(hook InitHook) *Component {
	c.initHook = hook
	return c
}

// WithStopHook устанавливает хук остановки
func (c *Component) WithStopHook(hook StopHook) *Component {
	c.stopHook = hook
	return c
}

// ID возвращает идентификатор компонента
func (c *Component) ID() string {
	return c.id
}

// Type возвращает тип компонента (ключ регистрации конструктора)
func (c *Component) Type() string {
	return c.ctype
}

// State возвращает текущее состояние жизненного цикла
func (c *Component) State() core.ComponentState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Instance возвращает прикладной объект компонента
func (c *Component) Instance() interface{} {
	return c.instance
}

// Capability возвращает способность по имени
func (c *Component) Capability(name string) (*Capability, bool) {
	cap, ok := c.capabilities[name]
	return cap, ok
}

// Capabilities возвращает имена способностей в отсортированном порядке
func (c *Component) Capabilities() []string {
	names := make([]string, 0, len(c.capabilities))
	for name := range c.capabilities {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DependencyNames возвращает объявленные зависимости в порядке объявления
func (c *Component) DependencyNames() []string {
	names := make([]string, len(c.dependencyNames))
	copy(names, c.dependencyNames)
	return names
}

// Dependency возвращает связанную зависимость по имени
func (c *Component) Dependency(name string) (*Component, bool) {
	dep, ok := c.dependencies[name]
	return dep, ok
}

// Contract возвращает контракт зависимости, если он объявлен
func (c *Component) Contract(name string) (Contract, bool) {
	contract, ok := c.contracts[name]
	return contract, ok
}

// Wire связывает зависимость. Вызывается резолвером ровно один раз
// для каждого объявленного имени, до перехода в INITIALIZING.
func (c *Component) Wire(name string, dep *Component) {
	c.dependencies[name] = dep
}

// Transition переводит компонент в состояние target, проверяя
// допустимость перехода
func (c *Component) Transition(target core.ComponentState) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if target == core.StateFailed {
		if c.state.Terminal() {
			return core.NewErrorf(core.ErrInvalidState,
				"component %s: cannot fail from terminal state %s", c.id, c.state)
		}
		c.state = core.StateFailed
		return nil
	}

	if !c.state.CanTransitionTo(target) {
		return core.NewErrorf(core.ErrInvalidState,
			"component %s: invalid transition %s -> %s", c.id, c.state, target)
	}
	c.state = target
	return nil
}

// Init выполняет хук инициализации, переводя компонент
// CREATED -> INITIALIZING -> READY (или FAILED при ошибке хука)
func (c *Component) Init(ctx context.Context) error {
	if err := c.Transition(core.StateInitializing); err != nil {
		return err
	}
	if c.initHook != nil {
		if err := c.initHook(ctx, c); err != nil {
			_ = c.Transition(core.StateFailed)
			return core.Wrap(err, core.ErrInitialization, "component "+c.id)
		}
	}
	return c.Transition(core.StateReady)
}

// Stop выполняет хук остановки и освобождает экземпляр, если тот
// реализует core.Disposable, переводя компонент
// READY -> STOPPING -> STOPPED. Ошибка хука или освобождения
// фиксируется, компонент завершает жизнь в FAILED.
func (c *Component) Stop(ctx context.Context) error {
	if err := c.Transition(core.StateStopping); err != nil {
		return err
	}
	if c.stopHook != nil {
		if err := c.stopHook(ctx, c); err != nil {
			_ = c.Transition(core.StateFailed)
			return core.Wrap(err, core.ErrStop, "component "+c.id)
		}
	}
	if d, ok := c.instance.(core.Disposable); ok {
		if err := d.Dispose(ctx); err != nil {
			_ = c.Transition(core.StateFailed)
			return core.Wrap(err, core.ErrStop, "component "+c.id)
		}
	}
	return c.Transition(core.StateStopped)
}

// InstanceAs возвращает типизированную ссылку на прикладной объект
// компонента
func InstanceAs[T any](c *Component) (T, error) {
	var zero T
	typed, ok := c.instance.(T)
	if !ok {
		return zero, core.NewErrorf(core.ErrValidation,
			"component %s: instance has wrong type", c.id)
	}
	return typed, nil
}
