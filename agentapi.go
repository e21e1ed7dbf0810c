// Package agentapi предоставляет композиционный рантайм для агентных
// компонентов.
//
// Основные возможности:
//   - Реестр компонентов с конструированием по типу
//   - Разрешение зависимостей с топологическим порядком запуска
//   - Диспетчеризация способностей с проверкой схемы параметров
//   - Внутрипроцессная шина событий с семантикой снимка
//   - Жизненный цикл с откатом при отказе инициализации
//
// Пример использования:
//
//	types := agentapi.DefaultTypes()
//	builder := runtime.NewBuilder().WithTypes(types).WithConfig(cfg)
//	err := runtime.Run(ctx, builder, func(ctx context.Context, r *runtime.Runtime) error {
//	    result, err := r.Execute(ctx, "planner", "plan_project", params)
//	    ...
//	})
package agentapi

import (
	"github.com/akriventsev/agentapi/components/agents"
	"github.com/akriventsev/agentapi/components/backup"
	"github.com/akriventsev/agentapi/components/monitoring"
	"github.com/akriventsev/agentapi/components/persistence"
	"github.com/akriventsev/agentapi/components/security"
	"github.com/akriventsev/agentapi/framework/component"
)

// Version представляет версию рантайма
const (
	Version = "1.0.0"
	Major   = 1
	Minor   = 0
	Patch   = 0
)

// Metadata содержит метаданные о рантайме
type Metadata struct {
	Name        string
	Version     string
	Description string
	License     string
}

// GetMetadata возвращает метаданные рантайма
func GetMetadata() Metadata {
	return Metadata{
		Name:        "AgentAPI",
		Version:     Version,
		Description: "Composition runtime for agent components",
		License:     "MIT",
	}
}

// DefaultTypes возвращает реестр со всеми встроенными типами компонентов
func DefaultTypes() (*component.TypeRegistry, error) {
	types := component.NewTypeRegistry()

	registrations := []func(*component.TypeRegistry) error{
		monitoring.Register,
		security.Register,
		persistence.Register,
		backup.Register,
		agents.RegisterPlanner,
		agents.RegisterBuild,
		agents.RegisterCodegen,
	}
	for _, register := range registrations {
		if err := register(types); err != nil {
			return nil, err
		}
	}
	return types, nil
}
