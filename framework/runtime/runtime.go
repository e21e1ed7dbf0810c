// Package runtime предоставляет координатор жизненного цикла:
// сборку компонентов из конфигурации, запуск в порядке зависимостей,
// диспетчеризацию способностей и остановку в обратном порядке.
package runtime

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/akriventsev/agentapi/framework/component"
	"github.com/akriventsev/agentapi/framework/config"
	"github.com/akriventsev/agentapi/framework/core"
	"github.com/akriventsev/agentapi/framework/events"
	"github.com/akriventsev/agentapi/framework/logging"
	"github.com/akriventsev/agentapi/framework/registry"
)

// ExecutionObserver наблюдатель диспетчеризации способностей
// (используется подсистемой метрик)
type ExecutionObserver interface {
	// ExecutionStarted вызывается после прохождения валидации,
	// непосредственно перед запуском обработчика
	ExecutionStarted(componentID, capability string)
	// ExecutionFinished вызывается после завершения обработчика
	ExecutionFinished(componentID, capability string, duration time.Duration, err error)
}

// Runtime экземпляр рантайма. Владеет реестром и шиной событий;
// они не переживают экземпляр. Глобального синглтона нет: экземпляр
// передается явно, независимые экземпляры сосуществуют в тестах.
type Runtime struct {
	id       string
	registry *registry.Registry
	bus      *events.Bus
	logger   zerolog.Logger
	observer ExecutionObserver

	mu         sync.RWMutex
	state      core.RuntimeState
	startOrder []string
	started    []string
}

// Builder построитель рантайма
type Builder struct {
	types    *component.TypeRegistry
	cfg      config.Config
	logger   zerolog.Logger
	observer ExecutionObserver
	hasLog   bool
}

// NewBuilder создает новый построитель
func NewBuilder() *Builder {
	return &Builder{
		types: component.NewTypeRegistry(),
		cfg:   make(config.Config),
	}
}

// WithTypes устанавливает реестр типов компонентов
func (b *Builder) WithTypes(types *component.TypeRegistry) *Builder {
	b.types = types
	return b
}

// WithConfig устанавливает конфигурационное отображение
func (b *Builder) WithConfig(cfg config.Config) *Builder {
	b.cfg = cfg
	return b
}

// WithLogger устанавливает логгер
func (b *Builder) WithLogger(logger zerolog.Logger) *Builder {
	b.logger = logger
	b.hasLog = true
	return b
}

// WithExecutionObserver устанавливает наблюдателя диспетчеризации
func (b *Builder) WithExecutionObserver(observer ExecutionObserver) *Builder {
	b.observer = observer
	return b
}

// Build конструирует компоненты из конфигурации через реестр типов,
// регистрирует их и разрешает зависимости. Записи с enabled: false
// пропускаются. Имена конфигурации обходятся в отсортированном порядке,
// фиксируя порядок регистрации детерминированно.
func (b *Builder) Build(ctx context.Context) (*Runtime, error) {
	logger := b.logger
	if !b.hasLog {
		logger = logging.Nop()
	}

	r := &Runtime{
		id:       uuid.New().String(),
		registry: registry.New(),
		logger:   logger,
		observer: b.observer,
		state:    core.RuntimeBuilding,
	}
	r.bus = events.NewBus(logger)

	names := make([]string, 0, len(b.cfg))
	for name := range b.cfg {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		cfg := b.cfg[name]
		if !cfg.IsEnabled() {
			r.logger.Debug().Str("component", name).Msg("component disabled, skipping")
			continue
		}

		c, err := b.types.New(r, cfg.Type, name, cfg)
		if err != nil {
			r.fail()
			return nil, err
		}
		c.WithDependencies(cfg.Dependencies...)

		if err := r.registry.Register(c); err != nil {
			r.fail()
			return nil, err
		}
	}

	order, err := r.registry.Resolve()
	if err != nil {
		r.fail()
		return nil, err
	}
	r.startOrder = order

	r.logger.Debug().Strs("order", order).Msg("dependency resolution complete")
	return r, nil
}

// ID возвращает идентификатор экземпляра рантайма
func (r *Runtime) ID() string {
	return r.id
}

// State возвращает агрегатное состояние рантайма
func (r *Runtime) State() core.RuntimeState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state
}

// StartOrder возвращает вычисленный порядок запуска
func (r *Runtime) StartOrder() []string {
	order := make([]string, len(r.startOrder))
	copy(order, r.startOrder)
	return order
}

// Component возвращает компонент по идентификатору
func (r *Runtime) Component(id string) (*component.Component, bool) {
	return r.registry.Get(id)
}

// Components возвращает идентификаторы компонентов в порядке регистрации
func (r *Runtime) Components() []string {
	return r.registry.IDs()
}

// Health опрашивает компоненты, экземпляры которых реализуют
// core.HealthCheckable, в порядке запуска. Возвращает отображение
// идентификатора компонента в результат проверки; компоненты без
// проверки здоровья в отображение не попадают.
func (r *Runtime) Health(ctx context.Context) map[string]error {
	report := make(map[string]error)
	for _, id := range r.StartOrder() {
		c, ok := r.registry.Get(id)
		if !ok {
			continue
		}
		if hc, ok := c.Instance().(core.HealthCheckable); ok {
			report[id] = hc.HealthCheck(ctx)
		}
	}
	return report
}

// Logger возвращает логгер рантайма (реализация component.RuntimeContext)
func (r *Runtime) Logger() zerolog.Logger {
	return r.logger
}

// Publish публикует событие в шину (реализация component.RuntimeContext)
func (r *Runtime) Publish(ctx context.Context, eventType string, payload core.Params) {
	r.bus.Publish(ctx, eventType, payload)
}

// Subscribe подписывает обработчик на тип события
// (реализация component.RuntimeContext)
func (r *Runtime) Subscribe(eventType string, handler events.Handler) *events.Subscription {
	return r.bus.Subscribe(eventType, handler)
}

// transition переводит рантайм в состояние target
func (r *Runtime) transition(target core.RuntimeState) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.state.CanTransitionTo(target) {
		return core.NewErrorf(core.ErrInvalidState,
			"runtime: invalid transition %s -> %s", r.state, target)
	}
	r.state = target
	return nil
}

// fail безусловно переводит рантайм в FAILED
func (r *Runtime) fail() {
	r.mu.Lock()
	r.state = core.RuntimeFailed
	r.mu.Unlock()
}

// Start инициализирует компоненты строго последовательно в топологическом
// порядке: хук компонента N выполняется до конца прежде, чем начнется
// инициализация N+1, поэтому зависимости к началу инициализации зависимого
// уже готовы. Ошибка хука (или отмена контекста) откатывает уже
// запущенные компоненты в обратном порядке и переводит рантайм в FAILED.
func (r *Runtime) Start(ctx context.Context) error {
	if err := r.transition(core.RuntimeStarting); err != nil {
		return err
	}

	for _, id := range r.startOrder {
		if err := ctx.Err(); err != nil {
			r.rollback(id, err)
			return core.Wrap(err, core.ErrInitialization, "startup cancelled")
		}

		c, _ := r.registry.Get(id)
		r.logger.Debug().Str("component", id).Msg("initializing component")

		if err := c.Init(ctx); err != nil {
			r.rollback(id, err)
			return err
		}

		r.mu.Lock()
		r.started = append(r.started, id)
		r.mu.Unlock()
	}

	if err := r.transition(core.RuntimeRunning); err != nil {
		return err
	}
	r.logger.Info().Int("components", len(r.started)).Msg("runtime running")
	return nil
}

// rollback останавливает уже запущенные компоненты в обратном порядке
// (best-effort) и переводит рантайм в FAILED
func (r *Runtime) rollback(failedID string, cause error) {
	r.logger.Error().Str("component", failedID).Err(cause).
		Msg("startup failed, rolling back started components")

	// Откат не должен зависеть от отмененного контекста запуска
	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, err := range r.stopStarted(stopCtx) {
		r.logger.Warn().Err(err).Msg("rollback stop failed")
	}
	r.fail()
}

// stopStarted останавливает запущенные компоненты в порядке, обратном
// запуску. Ошибки хуков собираются, остановка остальных продолжается.
func (r *Runtime) stopStarted(ctx context.Context) []error {
	r.mu.Lock()
	started := make([]string, len(r.started))
	copy(started, r.started)
	r.started = nil
	r.mu.Unlock()

	var errs []error
	for i := len(started) - 1; i >= 0; i-- {
		c, _ := r.registry.Get(started[i])
		r.logger.Debug().Str("component", started[i]).Msg("stopping component")
		if err := c.Stop(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

// Stop останавливает компоненты в порядке, обратном топологическому.
// Ошибки хуков остановки фиксируются и агрегируются в одну ошибку после
// завершения остановки всех компонентов; отказ одного компонента не
// мешает остановке остальных. Чистая остановка завершается в STOPPED,
// остановка с ошибками - в FAILED.
func (r *Runtime) Stop(ctx context.Context) error {
	r.mu.RLock()
	state := r.state
	r.mu.RUnlock()
	if state.Terminal() {
		return nil
	}

	if err := r.transition(core.RuntimeStopping); err != nil {
		return err
	}

	errs := r.stopStarted(ctx)
	if len(errs) > 0 {
		r.fail()
		messages := make([]string, len(errs))
		for i, err := range errs {
			messages[i] = err.Error()
		}
		return core.NewErrorf(core.ErrStop,
			"shutdown completed with %d error(s): %s", len(errs), strings.Join(messages, "; "))
	}

	if err := r.transition(core.RuntimeStopped); err != nil {
		return err
	}
	r.logger.Info().Msg("runtime stopped")
	return nil
}

// Execute вызывает способность компонента:
// execute(componentId, capabilityName, params) -> result.
// Доступно только в состоянии RUNNING. Ошибка обработчика оборачивается
// с сохранением идентификатора компонента и имени способности; отмена
// контекста доходит только до вызывающего.
func (r *Runtime) Execute(ctx context.Context, componentID, capabilityName string, params core.Params) (core.Result, error) {
	if state := r.State(); state != core.RuntimeRunning {
		return nil, core.NewErrorf(core.ErrInvalidState,
			"capability dispatch requires RUNNING runtime, current state: %s", state)
	}

	c, exists := r.registry.Get(componentID)
	if !exists {
		return nil, core.NewErrorf(core.ErrComponentNotFound, "component %s not found", componentID)
	}

	cap, exists := c.Capability(capabilityName)
	if !exists {
		return nil, core.NewErrorf(core.ErrCapabilityNotFound,
			"component %s has no capability %s", componentID, capabilityName)
	}

	if err := cap.Validate(params); err != nil {
		return nil, err
	}

	if r.observer != nil {
		r.observer.ExecutionStarted(componentID, capabilityName)
	}
	start := time.Now()
	result, err := cap.Invoke(ctx, params)
	if r.observer != nil {
		r.observer.ExecutionFinished(componentID, capabilityName, time.Since(start), err)
	}

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, core.Wrap(ctxErr, core.ErrOperationCancelled,
				fmt.Sprintf("capability %s.%s cancelled", componentID, capabilityName))
		}
		return nil, core.Wrap(err, core.ErrCapabilityExecution,
			fmt.Sprintf("capability %s.%s failed", componentID, capabilityName))
	}
	return result, nil
}

// Run ограниченное владение рантаймом: собирает, запускает, передает
// работающий экземпляр в fn и гарантирует остановку на любом пути
// выхода (нормальный возврат, ошибка, отмена контекста).
func Run(ctx context.Context, b *Builder, fn func(ctx context.Context, r *Runtime) error) (err error) {
	r, buildErr := b.Build(ctx)
	if buildErr != nil {
		return buildErr
	}
	if startErr := r.Start(ctx); startErr != nil {
		return startErr
	}

	defer func() {
		// Остановка выполняется даже при отмененном контексте вызова
		stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
		defer cancel()
		if stopErr := r.Stop(stopCtx); stopErr != nil && err == nil {
			err = stopErr
		}
	}()

	return fn(ctx, r)
}
