package backup

import (
	"context"
	"sync"
	"time"

	"github.com/akriventsev/agentapi/framework/component"
	"github.com/akriventsev/agentapi/framework/config"
	"github.com/akriventsev/agentapi/framework/core"
)

// TypeName имя типа компонента архивирования
const TypeName = "backup"

// EventCreated тип события об успешном создании архива
const EventCreated = "backup.created"

// Register регистрирует тип компонента архивирования.
//
// Настройки: dir, retention, interval (пустая длительность отключает
// периодическое архивирование). Каждая объявленная зависимость должна
// выгружать свое состояние; ее снимок попадает в архив под именем
// зависимости.
func Register(types *component.TypeRegistry) error {
	return types.Register(TypeName, func(rc component.RuntimeContext, name string, cfg config.Component) (*component.Component, error) {
		var (
			manager *Manager
			loop    *periodicLoop
		)

		createBackup := component.NewCapability("create_backup",
			func(ctx context.Context, params core.Params) (core.Result, error) {
				archive, err := manager.Create(ctx)
				if err != nil {
					return nil, err
				}
				rc.Publish(ctx, EventCreated, core.Params{"name": archive})
				return core.Result{"name": archive}, nil
			})

		listBackups := component.NewCapability("list_backups",
			func(ctx context.Context, params core.Params) (core.Result, error) {
				names, err := manager.List()
				if err != nil {
					return nil, err
				}
				items := make([]interface{}, len(names))
				for i, n := range names {
					items[i] = n
				}
				return core.Result{"backups": items, "count": len(items)}, nil
			})

		restoreBackup := component.NewCapability("restore_backup",
			func(ctx context.Context, params core.Params) (core.Result, error) {
				archive, _ := params["name"].(string)
				if err := manager.Restore(ctx, archive); err != nil {
					return nil, err
				}
				return core.Result{"restored": true, "name": archive}, nil
			}).WithSchema(component.Schema{"name": component.Required})

		c := component.New(name, TypeName).
			WithCapability(createBackup).
			WithCapability(listBackups).
			WithCapability(restoreBackup)

		c.WithInitHook(func(ctx context.Context, c *component.Component) error {
			m, err := NewManager(cfg.String("dir", "./backups"), cfg.Int("retention", 10))
			if err != nil {
				return err
			}

			// Зависимости инициализированы раньше по порядку запуска,
			// их экземпляры уже доступны
			for _, depName := range c.DependencyNames() {
				dep, _ := c.Dependency(depName)
				source, err := component.InstanceAs[core.Snapshotter](dep)
				if err != nil {
					return core.NewErrorf(core.ErrValidation,
						"backup dependency %s does not expose state snapshots", depName)
				}
				if err := m.AddSource(depName, source); err != nil {
					return err
				}
			}

			manager = m
			c.WithInstance(manager)

			if interval := cfg.Duration("interval", 0); interval > 0 {
				loop = newPeriodicLoop(rc, manager, interval)
				loop.Start()
			}
			return nil
		})

		c.WithStopHook(func(ctx context.Context, c *component.Component) error {
			if loop != nil {
				loop.Stop()
			}
			return nil
		})
		return c, nil
	})
}

// periodicLoop фоновый цикл периодического архивирования
type periodicLoop struct {
	rc       component.RuntimeContext
	manager  *Manager
	interval time.Duration

	stop chan struct{}
	wg   sync.WaitGroup
}

func newPeriodicLoop(rc component.RuntimeContext, manager *Manager, interval time.Duration) *periodicLoop {
	return &periodicLoop{
		rc:       rc,
		manager:  manager,
		interval: interval,
		stop:     make(chan struct{}),
	}
}

func (l *periodicLoop) Start() {
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()

		ticker := time.NewTicker(l.interval)
		defer ticker.Stop()

		for {
			select {
			case <-l.stop:
				return
			case <-ticker.C:
				ctx := context.Background()
				logger := l.rc.Logger()
				archive, err := l.manager.Create(ctx)
				if err != nil {
					logger.Error().Err(err).Msg("scheduled backup failed")
					continue
				}
				logger.Info().Str("backup", archive).Msg("scheduled backup created")
				l.rc.Publish(ctx, EventCreated, core.Params{"name": archive})
			}
		}
	}()
}

func (l *periodicLoop) Stop() {
	close(l.stop)
	l.wg.Wait()
}
