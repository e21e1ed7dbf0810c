// Package registry предоставляет разрешение графа зависимостей.
package registry

import (
	"sort"
	"strings"

	"github.com/akriventsev/agentapi/framework/core"
)

// Resolve проверяет граф зависимостей, связывает зависимости каждого
// компонента и возвращает топологический порядок запуска (зависимости
// раньше зависимых). Порядок, обращенный, переиспользуется для остановки.
//
// Аварийные исходы, в порядке проверки:
//   - объявленное имя без соответствующего компонента -> MISSING_DEPENDENCY
//   - цикл в графе -> CYCLIC_DEPENDENCY с путем цикла
//   - зависимость не проходит контракт -> MISSING_DEPENDENCY
//
// Любая из ошибок прерывает разрешение без частичного связывания.
func (r *Registry) Resolve() ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	// Проверка отсутствующих целей
	for _, id := range r.order {
		for _, dep := range r.components[id].DependencyNames() {
			if _, exists := r.components[dep]; !exists {
				return nil, core.NewErrorf(core.ErrMissingDependency,
					"component %s depends on %s which is not registered", id, dep)
			}
		}
	}

	// Обнаружение циклов через DFS с маркером "в обходе"
	if err := r.detectCycles(); err != nil {
		return nil, err
	}

	// Проверка контрактов до связывания, чтобы исключить частичное
	// связывание при отказе
	for _, id := range r.order {
		c := r.components[id]
		for _, dep := range c.DependencyNames() {
			contract, ok := c.Contract(dep)
			if !ok {
				continue
			}
			if err := contract(r.components[dep].Instance()); err != nil {
				return nil, core.Wrap(err, core.ErrMissingDependency,
					"component "+id+": dependency "+dep+" rejected by contract")
			}
		}
	}

	// Связывание
	for _, id := range r.order {
		c := r.components[id]
		for _, dep := range c.DependencyNames() {
			c.Wire(dep, r.components[dep])
		}
	}

	return r.topologicalOrder(), nil
}

// detectCycles обходит граф в глубину; обратное ребро в вершину,
// находящуюся в обходе, означает цикл
func (r *Registry) detectCycles() error {
	visited := make(map[string]bool)
	visiting := make(map[string]bool)
	var path []string

	var dfs func(id string) error
	dfs = func(id string) error {
		visited[id] = true
		visiting[id] = true
		path = append(path, id)

		for _, dep := range r.components[id].DependencyNames() {
			if visiting[dep] {
				return core.NewErrorf(core.ErrCyclicDependency,
					"cyclic dependency detected: %s", cyclePath(path, dep))
			}
			if !visited[dep] {
				if err := dfs(dep); err != nil {
					return err
				}
			}
		}

		visiting[id] = false
		path = path[:len(path)-1]
		return nil
	}

	for _, id := range r.order {
		if !visited[id] {
			if err := dfs(id); err != nil {
				return err
			}
		}
	}
	return nil
}

// cyclePath вырезает из пути обхода участок цикла и замыкает его
func cyclePath(path []string, repeated string) string {
	start := 0
	for i, id := range path {
		if id == repeated {
			start = i
			break
		}
	}
	cycle := append([]string{}, path[start:]...)
	cycle = append(cycle, repeated)
	return strings.Join(cycle, " -> ")
}

// topologicalOrder строит порядок запуска алгоритмом Кана. Компоненты
// без взаимных ограничений упорядочиваются по порядку регистрации для
// детерминизма.
func (r *Registry) topologicalOrder() []string {
	regIndex := make(map[string]int, len(r.order))
	for i, id := range r.order {
		regIndex[id] = i
	}

	inDegree := make(map[string]int, len(r.order))
	dependents := make(map[string][]string, len(r.order))
	for _, id := range r.order {
		deps := r.components[id].DependencyNames()
		inDegree[id] = len(deps)
		for _, dep := range deps {
			dependents[dep] = append(dependents[dep], id)
		}
	}

	var queue []string
	for _, id := range r.order {
		if inDegree[id] == 0 {
			queue = append(queue, id)
		}
	}

	result := make([]string, 0, len(r.order))
	for len(queue) > 0 {
		sort.Slice(queue, func(i, j int) bool {
			return regIndex[queue[i]] < regIndex[queue[j]]
		})

		current := queue[0]
		queue = queue[1:]
		result = append(result, current)

		for _, dependent := range dependents[current] {
			inDegree[dependent]--
			if inDegree[dependent] == 0 {
				queue = append(queue, dependent)
			}
		}
	}

	return result
}
