// Package component предоставляет модель компонента и его способностей.
package component

import (
	"context"
	"sort"
	"strings"

	"github.com/akriventsev/agentapi/framework/core"
)

// Presence обязательность параметра в схеме способности
type Presence string

const (
	Required Presence = "required"
	Optional Presence = "optional"
)

// Schema схема параметров способности: имя параметра -> обязательность.
// Неизвестные ключи пропускаются без проверки, чтобы способности
// оставались совместимыми вперед.
type Schema map[string]Presence

// Handler обработчик вызова способности
type Handler func(ctx context.Context, params core.Params) (core.Result, error)

// Capability именованная операция компонента с проверяемой схемой параметров
type Capability struct {
	name    string
	schema  Schema
	handler Handler
}

// NewCapability создает новую способность
func NewCapability(name string, handler Handler) *Capability {
	return &Capability{
		name:    name,
		handler: handler,
		schema:  make(Schema),
	}
}

// WithSchema устанавливает схему параметров
func (c *Capability) WithSchema(schema Schema) *Capability {
	c.schema = schema
	return c
}

// Name возвращает имя способности
func (c *Capability) Name() string {
	return c.name
}

// Schema возвращает схему параметров
func (c *Capability) Schema() Schema {
	return c.schema
}

// Validate проверяет параметры по схеме. Все отсутствующие обязательные
// ключи перечисляются в одной ошибке.
func (c *Capability) Validate(params core.Params) error {
	var missing []string
	for key, presence := range c.schema {
		if presence != Required {
			continue
		}
		if _, ok := params[key]; !ok {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return core.NewErrorf(core.ErrValidation,
			"capability %s: missing required parameters: %s", c.name, strings.Join(missing, ", "))
	}
	return nil
}

// Invoke проверяет параметры и вызывает обработчик. Обработчик никогда
// не вызывается при отсутствии обязательных параметров.
func (c *Capability) Invoke(ctx context.Context, params core.Params) (core.Result, error) {
	if err := c.Validate(params); err != nil {
		return nil, err
	}
	return c.handler(ctx, params)
}

// Spec описатель способности, поступающий из внешнего источника
// (поток обнаруженных плагинов). Ядру не важно, откуда он взялся.
type Spec struct {
	Name    string
	Handler Handler
	Schema  Schema
}

// AttachCapabilities прикрепляет обнаруженные способности к компоненту.
// Совпадающие имена перекрывают ранее зарегистрированные (last wins).
func AttachCapabilities(c *Component, specs ...Spec) {
	for _, spec := range specs {
		c.WithCapability(NewCapability(spec.Name, spec.Handler).WithSchema(spec.Schema))
	}
}
