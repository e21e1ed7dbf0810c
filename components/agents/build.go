package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/akriventsev/agentapi/framework/component"
	"github.com/akriventsev/agentapi/framework/config"
	"github.com/akriventsev/agentapi/framework/core"
)

// BuildTypeName имя типа компонента генератора артефактов сборки
const BuildTypeName = "build_agent"

// TechnologyAdvisor источник рекомендаций по стеку. Реализуется
// планировщиком и связывается с генератором через контракт зависимости.
type TechnologyAdvisor interface {
	SuggestTechnologies(requirements string) []string
}

// RegisterBuild регистрирует тип компонента генератора артефактов.
//
// Настройка planner задает имя компонента-планировщика; его
// рекомендации определяют набор сервисов docker-compose, когда список
// сервисов не задан явно.
func RegisterBuild(types *component.TypeRegistry) error {
	return types.Register(BuildTypeName, func(rc component.RuntimeContext, name string, cfg config.Component) (*component.Component, error) {
		plannerName := cfg.String("planner", "planner")

		c := component.New(name, BuildTypeName)
		c.WithDependencyContract(plannerName, func(instance interface{}) error {
			if _, ok := instance.(TechnologyAdvisor); !ok {
				return fmt.Errorf("component %s does not advise on technology stacks", plannerName)
			}
			return nil
		})

		advisor := func() TechnologyAdvisor {
			dep, _ := c.Dependency(plannerName)
			instance, _ := component.InstanceAs[TechnologyAdvisor](dep)
			return instance
		}

		generateDockerfile := component.NewCapability("generate_dockerfile",
			func(ctx context.Context, params core.Params) (core.Result, error) {
				language, _ := params["language"].(string)
				if language == "" {
					language = "go"
				}
				return core.Result{
					"content":  renderDockerfile(language),
					"filename": "Dockerfile",
				}, nil
			}).WithSchema(component.Schema{"language": component.Optional})

		generateCompose := component.NewCapability("generate_compose",
			func(ctx context.Context, params core.Params) (core.Result, error) {
				services := serviceNames(params["services"])
				if len(services) == 0 {
					requirements, _ := params["requirements"].(string)
					services = servicesFromStack(advisor().SuggestTechnologies(requirements))
				}
				return core.Result{
					"content":  renderCompose(services),
					"filename": "docker-compose.yml",
					"services": asInterfaces(services),
				}, nil
			}).WithSchema(component.Schema{
			"services":     component.Optional,
			"requirements": component.Optional,
		})

		generateManifest := component.NewCapability("generate_manifest",
			func(ctx context.Context, params core.Params) (core.Result, error) {
				project, _ := params["project"].(string)
				if project == "" {
					project = "app"
				}
				replicas := 2
				if v, ok := params.Int("replicas"); ok {
					replicas = v
				}
				manifests := renderManifests(project, replicas)

				files := make([]interface{}, 0, len(manifests))
				for _, filename := range []string{"namespace.yaml", "deployment.yaml", "service.yaml"} {
					files = append(files, filename)
				}
				return core.Result{
					"manifests": manifests,
					"files":     files,
				}, nil
			}).WithSchema(component.Schema{
			"project":  component.Optional,
			"replicas": component.Optional,
		})

		c.WithCapability(generateDockerfile).
			WithCapability(generateCompose).
			WithCapability(generateManifest)
		return c, nil
	})
}

func serviceNames(raw interface{}) []string {
	items, ok := raw.([]interface{})
	if !ok {
		return nil
	}
	services := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			services = append(services, s)
		}
	}
	return services
}

// servicesFromStack выводит сервисы docker-compose из рекомендованного
// стека: приложение присутствует всегда, базы и брокеры добавляются по
// рекомендациям
func servicesFromStack(stack []string) []string {
	services := []string{"app"}
	for _, tech := range stack {
		switch tech {
		case "PostgreSQL":
			services = append(services, "postgres")
		case "Redis":
			services = append(services, "redis")
		case "Kafka":
			services = append(services, "kafka")
		}
	}
	return services
}

func asInterfaces(items []string) []interface{} {
	result := make([]interface{}, len(items))
	for i, item := range items {
		result[i] = item
	}
	return result
}

func renderDockerfile(language string) string {
	switch language {
	case "go":
		return strings.TrimSpace(`
FROM golang:1.25-alpine AS build

WORKDIR /src
COPY go.mod go.sum ./
RUN go mod download
COPY . .
RUN CGO_ENABLED=0 go build -o /out/app ./cmd/app

FROM alpine:latest
COPY --from=build /out/app /usr/local/bin/app
ENTRYPOINT ["app"]
`)
	case "python":
		return strings.TrimSpace(`
FROM python:3.11-slim

WORKDIR /app
COPY requirements.txt .
RUN pip install --no-cache-dir -r requirements.txt
COPY . .
CMD ["python", "main.py"]
`)
	default:
		return strings.TrimSpace(fmt.Sprintf(`
# Dockerfile for %s application
FROM alpine:latest

WORKDIR /app
COPY . .
CMD ["echo", "configure build steps for %s"]
`, language, language))
	}
}

// renderManifests собирает базовый набор манифестов Kubernetes:
// пространство имен, Deployment и Service под общим именем проекта
func renderManifests(project string, replicas int) map[string]interface{} {
	namespace := fmt.Sprintf(`apiVersion: v1
kind: Namespace
metadata:
  name: %s
`, project)

	deployment := fmt.Sprintf(`apiVersion: apps/v1
kind: Deployment
metadata:
  name: %[1]s
  namespace: %[1]s
spec:
  replicas: %[2]d
  selector:
    matchLabels:
      app: %[1]s
  template:
    metadata:
      labels:
        app: %[1]s
    spec:
      containers:
      - name: %[1]s
        image: %[1]s:latest
        ports:
        - containerPort: 8080
`, project, replicas)

	service := fmt.Sprintf(`apiVersion: v1
kind: Service
metadata:
  name: %[1]s-service
  namespace: %[1]s
spec:
  selector:
    app: %[1]s
  ports:
  - protocol: TCP
    port: 80
    targetPort: 8080
  type: ClusterIP
`, project)

	return map[string]interface{}{
		"namespace.yaml":  namespace,
		"deployment.yaml": deployment,
		"service.yaml":    service,
	}
}

func renderCompose(services []string) string {
	var b strings.Builder
	b.WriteString("services:\n")

	for _, service := range services {
		switch service {
		case "postgres":
			b.WriteString(`  postgres:
    image: postgres:16
    environment:
      POSTGRES_PASSWORD: postgres
    ports:
      - "5432:5432"
`)
		case "redis":
			b.WriteString(`  redis:
    image: redis:7
    ports:
      - "6379:6379"
`)
		case "kafka":
			b.WriteString(`  kafka:
    image: bitnami/kafka:latest
    ports:
      - "9092:9092"
`)
		default:
			fmt.Fprintf(&b, `  %s:
    build: .
    ports:
      - "8080:8080"
`, service)
		}
	}
	return b.String()
}
