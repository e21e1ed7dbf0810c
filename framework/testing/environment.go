// Package testing предоставляет утилиты для тестирования приложений на
// базе рантайма.
package testing

import (
	"context"
	"testing"

	"github.com/akriventsev/agentapi/framework/component"
	"github.com/akriventsev/agentapi/framework/config"
	"github.com/akriventsev/agentapi/framework/core"
	"github.com/akriventsev/agentapi/framework/logging"
	"github.com/akriventsev/agentapi/framework/runtime"
)

// Environment тестовая среда с запущенным рантаймом
type Environment struct {
	Runtime *runtime.Runtime
}

// NewEnvironment собирает и запускает рантайм из указанных типов и
// конфигурации. Остановка регистрируется через t.Cleanup. Если сборка
// или запуск завершаются с ошибкой, тест завершается с t.Fatalf.
func NewEnvironment(t *testing.T, types *component.TypeRegistry, cfg config.Config) *Environment {
	t.Helper()

	builder := runtime.NewBuilder().
		WithTypes(types).
		WithConfig(cfg).
		WithLogger(logging.Nop())

	r, err := builder.Build(context.Background())
	if err != nil {
		t.Fatalf("failed to build test runtime: %v", err)
	}
	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("failed to start test runtime: %v", err)
	}

	t.Cleanup(func() {
		_ = r.Stop(context.Background())
	})

	return &Environment{Runtime: r}
}

// EchoType регистрирует в реестре тип "echo": компонент с одноименной
// способностью, возвращающей полученные параметры. Удобен как заглушка
// зависимости в тестах.
func EchoType(types *component.TypeRegistry) error {
	return types.Register("echo", func(rc component.RuntimeContext, name string, cfg config.Component) (*component.Component, error) {
		c := component.New(name, "echo")
		c.WithCapability(component.NewCapability("echo", func(ctx context.Context, params core.Params) (core.Result, error) {
			result := make(core.Result, len(params))
			for k, v := range params {
				result[k] = v
			}
			return result, nil
		}))
		return c, nil
	})
}
