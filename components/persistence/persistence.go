package persistence

import (
	"context"
	"time"

	"github.com/akriventsev/agentapi/framework/component"
	"github.com/akriventsev/agentapi/framework/config"
	"github.com/akriventsev/agentapi/framework/core"
	"github.com/akriventsev/agentapi/framework/events"
)

// TypeName имя типа компонента постоянного хранилища
const TypeName = "persistence"

// EventMetrics тип события с показателями системы, записываемого в журнал
const EventMetrics = "system.metrics"

// openStore создает драйвер хранилища из конфигурации
func openStore(ctx context.Context, cfg config.Component) (Store, error) {
	maxEvents := cfg.Int("max_events", 1000)

	switch driver := cfg.String("driver", "memory"); driver {
	case "memory":
		return NewMemoryStore(maxEvents), nil
	case "redis":
		return NewRedisStore(ctx,
			cfg.String("redis_addr", "localhost:6379"),
			cfg.String("redis_password", ""),
			cfg.Int("redis_db", 0),
			maxEvents,
		)
	default:
		return nil, core.NewErrorf(core.ErrValidation, "unknown persistence driver: %s", driver)
	}
}

// Register регистрирует тип компонента постоянного хранилища.
//
// Настройки: driver (memory или redis), redis_addr, redis_password,
// redis_db, max_events. Компонент подписывается на события с
// показателями системы и пишет их в журнал хранилища.
func Register(types *component.TypeRegistry) error {
	return types.Register(TypeName, func(rc component.RuntimeContext, name string, cfg config.Component) (*component.Component, error) {
		var (
			store Store
			sub   *events.Subscription
		)

		saveResource := component.NewCapability("save_resource",
			func(ctx context.Context, params core.Params) (core.Result, error) {
				id, _ := params["id"].(string)

				var data core.Params
				switch v := params["data"].(type) {
				case core.Params:
					data = v
				case map[string]interface{}:
					data = core.Params(v)
				}

				resource, err := store.SaveResource(ctx, id, data)
				if err != nil {
					return nil, err
				}
				return core.Result{
					"id":         resource.ID,
					"created_at": resource.CreatedAt.Format(time.RFC3339),
					"updated_at": resource.UpdatedAt.Format(time.RFC3339),
				}, nil
			}).WithSchema(component.Schema{
			"id":   component.Required,
			"data": component.Optional,
		})

		loadResource := component.NewCapability("load_resource",
			func(ctx context.Context, params core.Params) (core.Result, error) {
				id, _ := params["id"].(string)

				resource, found, err := store.LoadResource(ctx, id)
				if err != nil {
					return nil, err
				}
				if !found {
					return core.Result{"found": false}, nil
				}
				return core.Result{
					"found":      true,
					"id":         resource.ID,
					"data":       map[string]interface{}(resource.Data),
					"created_at": resource.CreatedAt.Format(time.RFC3339),
					"updated_at": resource.UpdatedAt.Format(time.RFC3339),
				}, nil
			}).WithSchema(component.Schema{"id": component.Required})

		deleteResource := component.NewCapability("delete_resource",
			func(ctx context.Context, params core.Params) (core.Result, error) {
				id, _ := params["id"].(string)
				if err := store.DeleteResource(ctx, id); err != nil {
					return nil, err
				}
				return core.Result{"deleted": true}, nil
			}).WithSchema(component.Schema{"id": component.Required})

		recentEvents := component.NewCapability("recent_events",
			func(ctx context.Context, params core.Params) (core.Result, error) {
				limit := 100
				if v, ok := params.Int("limit"); ok {
					limit = v
				}

				records, err := store.RecentEvents(ctx, limit)
				if err != nil {
					return nil, err
				}

				items := make([]map[string]interface{}, len(records))
				for i, record := range records {
					items[i] = map[string]interface{}{
						"id":        record.ID,
						"type":      record.Type,
						"payload":   map[string]interface{}(record.Payload),
						"timestamp": record.Timestamp.Format(time.RFC3339),
					}
				}
				return core.Result{"events": items, "count": len(items)}, nil
			}).WithSchema(component.Schema{"limit": component.Optional})

		c := component.New(name, TypeName).
			WithCapability(saveResource).
			WithCapability(loadResource).
			WithCapability(deleteResource).
			WithCapability(recentEvents).
			WithInitHook(func(ctx context.Context, c *component.Component) error {
				opened, err := openStore(ctx, cfg)
				if err != nil {
					return err
				}
				store = opened
				c.WithInstance(store)

				sub = rc.Subscribe(EventMetrics, func(ctx context.Context, e events.Event) error {
					return store.AppendEvent(ctx, EventRecord{
						ID:        e.ID,
						Type:      e.Type,
						Payload:   e.Payload,
						Timestamp: e.OccurredAt,
					})
				})
				return nil
			}).
			WithStopHook(func(ctx context.Context, c *component.Component) error {
				// хранилище освобождается жизненным циклом через core.Disposable
				if sub != nil {
					sub.Cancel()
				}
				return nil
			})
		return c, nil
	})
}
