// Package core предоставляет базовые типы для всех компонентов рантайма.
package core

// Params параметры вызова способности
type Params map[string]interface{}

// Result результат вызова способности
type Result map[string]interface{}

// String возвращает строковый параметр
func (p Params) String(key string) (string, bool) {
	val, ok := p[key]
	if !ok {
		return "", false
	}
	s, ok := val.(string)
	return s, ok
}

// Int возвращает целочисленный параметр
func (p Params) Int(key string) (int, bool) {
	val, ok := p[key]
	if !ok {
		return 0, false
	}
	switch v := val.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	}
	return 0, false
}

// ComponentState состояние жизненного цикла компонента
type ComponentState string

const (
	StateCreated      ComponentState = "created"
	StateInitializing ComponentState = "initializing"
	StateReady        ComponentState = "ready"
	StateStopping     ComponentState = "stopping"
	StateStopped      ComponentState = "stopped"
	StateFailed       ComponentState = "failed"
)

// componentTransitions допустимые переходы состояний компонента
var componentTransitions = map[ComponentState][]ComponentState{
	StateCreated:      {StateInitializing, StateFailed},
	StateInitializing: {StateReady, StateFailed},
	StateReady:        {StateStopping, StateFailed},
	StateStopping:     {StateStopped, StateFailed},
}

// Terminal проверяет, является ли состояние терминальным
func (s ComponentState) Terminal() bool {
	return s == StateStopped || s == StateFailed
}

// CanTransitionTo проверяет допустимость перехода в состояние target
func (s ComponentState) CanTransitionTo(target ComponentState) bool {
	for _, next := range componentTransitions[s] {
		if next == target {
			return true
		}
	}
	return false
}

// RuntimeState агрегатное состояние рантайма
type RuntimeState string

const (
	RuntimeBuilding RuntimeState = "building"
	RuntimeStarting RuntimeState = "starting"
	RuntimeRunning  RuntimeState = "running"
	RuntimeStopping RuntimeState = "stopping"
	RuntimeStopped  RuntimeState = "stopped"
	RuntimeFailed   RuntimeState = "failed"
)

// runtimeTransitions допустимые переходы состояний рантайма
var runtimeTransitions = map[RuntimeState][]RuntimeState{
	RuntimeBuilding: {RuntimeStarting, RuntimeFailed},
	RuntimeStarting: {RuntimeRunning, RuntimeStopping, RuntimeFailed},
	RuntimeRunning:  {RuntimeStopping, RuntimeFailed},
	RuntimeStopping: {RuntimeStopped, RuntimeFailed},
}

// Terminal проверяет, является ли состояние терминальным
func (s RuntimeState) Terminal() bool {
	return s == RuntimeStopped || s == RuntimeFailed
}

// CanTransitionTo проверяет допустимость перехода в состояние target
func (s RuntimeState) CanTransitionTo(target RuntimeState) bool {
	for _, next := range runtimeTransitions[s] {
		if next == target {
			return true
		}
	}
	return false
}
