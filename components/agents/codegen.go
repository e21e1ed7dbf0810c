package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/akriventsev/agentapi/framework/component"
	"github.com/akriventsev/agentapi/framework/config"
	"github.com/akriventsev/agentapi/framework/core"
)

// CodegenTypeName имя типа компонента генератора кода
const CodegenTypeName = "codegen_agent"

// RegisterCodegen регистрирует тип компонента генератора кода.
//
// Компонент порождает заготовки Go-кода: HTTP-обработчики, модели
// данных, сервисные типы с CRUD-операциями и табличные тесты к ним.
func RegisterCodegen(types *component.TypeRegistry) error {
	return types.Register(CodegenTypeName, func(rc component.RuntimeContext, name string, cfg config.Component) (*component.Component, error) {
		generateHandler := component.NewCapability("generate_handler",
			func(ctx context.Context, params core.Params) (core.Result, error) {
				endpoint, _ := params["name"].(string)
				if endpoint == "" {
					endpoint = "example"
				}
				method, _ := params["method"].(string)
				if method == "" {
					method = "GET"
				}
				return core.Result{
					"code":     renderHandler(endpoint, strings.ToUpper(method)),
					"language": "go",
				}, nil
			}).WithSchema(component.Schema{
			"name":   component.Optional,
			"method": component.Optional,
		})

		generateModel := component.NewCapability("generate_model",
			func(ctx context.Context, params core.Params) (core.Result, error) {
				model, _ := params["name"].(string)
				if model == "" {
					model = "Example"
				}
				return core.Result{
					"code":     renderModel(model, fieldSpecs(params["fields"])),
					"language": "go",
				}, nil
			}).WithSchema(component.Schema{
			"name":   component.Optional,
			"fields": component.Optional,
		})

		generateService := component.NewCapability("generate_service",
			func(ctx context.Context, params core.Params) (core.Result, error) {
				service, _ := params["name"].(string)
				if service == "" {
					service = "ExampleService"
				}
				operations := stringItems(params["operations"])
				if len(operations) == 0 {
					operations = []string{"create", "get", "update", "delete"}
				}
				return core.Result{
					"code":     renderService(service, operations),
					"language": "go",
				}, nil
			}).WithSchema(component.Schema{
			"name":       component.Optional,
			"operations": component.Optional,
		})

		generateTests := component.NewCapability("generate_tests",
			func(ctx context.Context, params core.Params) (core.Result, error) {
				target, _ := params["name"].(string)
				if target == "" {
					target = "Example"
				}
				methods := stringItems(params["methods"])
				if len(methods) == 0 {
					methods = []string{"Create", "Get"}
				}
				return core.Result{
					"code":     renderTests(target, methods),
					"language": "go",
				}, nil
			}).WithSchema(component.Schema{
			"name":    component.Optional,
			"methods": component.Optional,
		})

		c := component.New(name, CodegenTypeName).
			WithCapability(generateHandler).
			WithCapability(generateModel).
			WithCapability(generateService).
			WithCapability(generateTests)
		return c, nil
	})
}

// fieldSpec поле генерируемой модели
type fieldSpec struct {
	Name string
	Type string
}

func fieldSpecs(raw interface{}) []fieldSpec {
	items, ok := raw.([]interface{})
	if !ok {
		return nil
	}
	fields := make([]fieldSpec, 0, len(items))
	for _, item := range items {
		entry, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		name, _ := entry["name"].(string)
		if name == "" {
			continue
		}
		ftype, _ := entry["type"].(string)
		if ftype == "" {
			ftype = "string"
		}
		fields = append(fields, fieldSpec{Name: name, Type: ftype})
	}
	return fields
}

func stringItems(raw interface{}) []string {
	items, ok := raw.([]interface{})
	if !ok {
		return nil
	}
	result := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			result = append(result, s)
		}
	}
	return result
}

// exported превращает имя в экспортируемый Go-идентификатор
func exported(name string) string {
	if name == "" {
		return name
	}
	return strings.ToUpper(name[:1]) + name[1:]
}

func renderHandler(endpoint, method string) string {
	handler := exported(endpoint)
	return fmt.Sprintf(`package api

import (
	"encoding/json"
	"net/http"
)

// Handle%[1]s обрабатывает %[2]s /%[3]s
func Handle%[1]s(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.Method%[4]s {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "ok",
	})
}
`, handler, method, endpoint, exported(strings.ToLower(method)))
}

func renderModel(model string, fields []fieldSpec) string {
	if len(fields) == 0 {
		fields = []fieldSpec{{Name: "id", Type: "int"}, {Name: "name", Type: "string"}}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "package model\n\n// %s модель данных\ntype %s struct {\n", model, model)
	for _, field := range fields {
		fmt.Fprintf(&b, "\t%s %s `json:\"%s\"`\n", exported(field.Name), field.Type, field.Name)
	}
	b.WriteString("}\n")
	return b.String()
}

func renderService(service string, operations []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, `package service

import "context"

// %[1]s сервис предметной области
type %[1]s struct {
}

func New%[1]s() *%[1]s {
	return &%[1]s{}
}
`, service)

	for _, op := range operations {
		switch op {
		case "create":
			fmt.Fprintf(&b, `
func (s *%s) Create(ctx context.Context, data map[string]interface{}) (int, error) {
	return 0, nil
}
`, service)
		case "get":
			fmt.Fprintf(&b, `
func (s *%s) Get(ctx context.Context, id int) (map[string]interface{}, error) {
	return nil, nil
}
`, service)
		case "update":
			fmt.Fprintf(&b, `
func (s *%s) Update(ctx context.Context, id int, data map[string]interface{}) error {
	return nil
}
`, service)
		case "delete":
			fmt.Fprintf(&b, `
func (s *%s) Delete(ctx context.Context, id int) error {
	return nil
}
`, service)
		}
	}
	return b.String()
}

func renderTests(target string, methods []string) string {
	var b strings.Builder
	b.WriteString("package service\n\nimport \"testing\"\n")
	for _, method := range methods {
		fmt.Fprintf(&b, `
func Test%[1]s_%[2]s(t *testing.T) {
	s := New%[1]s()
	_ = s
	t.Skip("not implemented")
}
`, target, exported(method))
	}
	return b.String()
}
