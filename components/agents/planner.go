// Package agents содержит прикладные агентные компоненты: планировщик
// проектов и генератор артефактов сборки.
package agents

import (
	"context"
	"sort"
	"strings"

	"github.com/akriventsev/agentapi/framework/component"
	"github.com/akriventsev/agentapi/framework/config"
	"github.com/akriventsev/agentapi/framework/core"
)

// PlannerTypeName имя типа компонента планировщика
const PlannerTypeName = "planner_agent"

// EventPlanReady тип события о готовом плане проекта
const EventPlanReady = "planner.plan_ready"

// Planner составляет планы проектов и разбирает требования
type Planner struct {
	technologies map[string][]string
}

// NewPlanner создает планировщик
func NewPlanner() *Planner {
	return &Planner{
		technologies: map[string][]string{
			"web":    {"React", "Gin", "PostgreSQL"},
			"api":    {"Gin", "PostgreSQL", "Redis"},
			"data":   {"Kafka", "ClickHouse", "Grafana"},
			"mobile": {"React Native", "Firebase"},
		},
	}
}

// SuggestTechnologies подбирает стек по ключевым словам требований.
// Результат отсортирован и стабилен для одинакового входа.
func (p *Planner) SuggestTechnologies(requirements string) []string {
	lower := strings.ToLower(requirements)

	seen := make(map[string]bool)
	for key, techs := range p.technologies {
		if !strings.Contains(lower, key) {
			continue
		}
		for _, tech := range techs {
			seen[tech] = true
		}
	}

	if len(seen) == 0 {
		return []string{"Go", "PostgreSQL"}
	}

	suggested := make([]string, 0, len(seen))
	for tech := range seen {
		suggested = append(suggested, tech)
	}
	sort.Strings(suggested)
	return suggested
}

// PlanProject строит поэтапный план по требованиям
func (p *Planner) PlanProject(requirements string) core.Result {
	phases := []interface{}{
		map[string]interface{}{
			"name":     "Analysis",
			"duration": "1-2 days",
			"tasks":    []interface{}{"Requirements analysis", "Tech stack selection"},
		},
		map[string]interface{}{
			"name":     "Design",
			"duration": "2-3 days",
			"tasks":    []interface{}{"Architecture design", "API design"},
		},
		map[string]interface{}{
			"name":     "Development",
			"duration": "5-10 days",
			"tasks":    []interface{}{"Core implementation", "Testing"},
		},
		map[string]interface{}{
			"name":     "Deployment",
			"duration": "1-2 days",
			"tasks":    []interface{}{"CI/CD setup", "Production deployment"},
		},
	}

	technologies := p.SuggestTechnologies(requirements)
	recommended := make([]interface{}, len(technologies))
	for i, tech := range technologies {
		recommended[i] = tech
	}

	return core.Result{
		"phases":       phases,
		"resources":    []interface{}{"2-3 developers", "1 architect", "1 tester"},
		"technologies": map[string]interface{}{"recommended": recommended},
	}
}

// AnalyzeRequirements извлекает структуру требований из текста
func (p *Planner) AnalyzeRequirements(text string) core.Result {
	functional := []interface{}{"Data processing", "API endpoints"}
	if strings.Contains(strings.ToLower(text), "auth") {
		functional = append([]interface{}{"User authentication"}, functional...)
	}

	return core.Result{
		"functional_requirements":     functional,
		"non_functional_requirements": []interface{}{"Performance", "Security", "Scalability"},
		"constraints":                 []interface{}{"Budget limitations", "Time constraints"},
		"risks":                       []interface{}{"Technical complexity", "Timeline pressure"},
	}
}

// RegisterPlanner регистрирует тип компонента планировщика
func RegisterPlanner(types *component.TypeRegistry) error {
	return types.Register(PlannerTypeName, func(rc component.RuntimeContext, name string, cfg config.Component) (*component.Component, error) {
		planner := NewPlanner()

		planProject := component.NewCapability("plan_project",
			func(ctx context.Context, params core.Params) (core.Result, error) {
				requirements, _ := params["requirements"].(string)
				plan := planner.PlanProject(requirements)
				rc.Publish(ctx, EventPlanReady, core.Params{"planner": name})
				return plan, nil
			}).WithSchema(component.Schema{"requirements": component.Required})

		analyzeRequirements := component.NewCapability("analyze_requirements",
			func(ctx context.Context, params core.Params) (core.Result, error) {
				text, _ := params["text"].(string)
				return planner.AnalyzeRequirements(text), nil
			}).WithSchema(component.Schema{"text": component.Required})

		c := component.New(name, PlannerTypeName).
			WithCapability(planProject).
			WithCapability(analyzeRequirements).
			WithInstance(planner)
		return c, nil
	})
}
