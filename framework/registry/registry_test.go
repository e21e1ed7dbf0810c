package registry

import (
	"strings"
	"testing"

	"github.com/akriventsev/agentapi/framework/component"
	"github.com/akriventsev/agentapi/framework/core"
)

func TestRegistry_Register(t *testing.T) {
	r := New()

	if err := r.Register(component.New("a", "test")); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if err := r.Register(component.New("b", "test")); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	err := r.Register(component.New("a", "other"))
	if err == nil {
		t.Fatal("duplicate id must be rejected")
	}
	if !core.IsCode(err, core.ErrAlreadyExists) {
		t.Errorf("expected ALREADY_EXISTS, got %v", err)
	}

	if r.Len() != 2 {
		t.Errorf("expected 2 components, got %d", r.Len())
	}
	ids := r.IDs()
	if len(ids) != 2 || ids[0] != "a" || ids[1] != "b" {
		t.Errorf("expected registration order [a b], got %v", ids)
	}

	if _, ok := r.Get("a"); !ok {
		t.Error("registered component must be retrievable")
	}
	if _, ok := r.Get("missing"); ok {
		t.Error("unknown id must not resolve")
	}
}

func TestResolve_TopologicalOrder(t *testing.T) {
	r := New()
	// c -> b -> a, регистрация в обратном порядке: порядок запуска
	// определяется графом зависимостей, а не регистрацией
	mustRegister(t, r, component.New("c", "test").WithDependencies("b"))
	mustRegister(t, r, component.New("b", "test").WithDependencies("a"))
	mustRegister(t, r, component.New("a", "test"))

	order, err := r.Resolve()
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if len(order) != 3 || order[0] != "a" || order[1] != "b" || order[2] != "c" {
		t.Errorf("expected [a b c], got %v", order)
	}

	// После разрешения зависимости должны быть связаны
	c, _ := r.Get("c")
	if dep, ok := c.Dependency("b"); !ok || dep.ID() != "b" {
		t.Error("c must hold a wired handle to b")
	}
}

func TestResolve_Deterministic(t *testing.T) {
	build := func() *Registry {
		r := New()
		mustRegister(t, r, component.New("a", "test"))
		mustRegister(t, r, component.New("b", "test"))
		mustRegister(t, r, component.New("c", "test").WithDependencies("a", "b"))
		return r
	}

	first, err := build().Resolve()
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	for i := 0; i < 10; i++ {
		got, err := build().Resolve()
		if err != nil {
			t.Fatalf("resolve failed: %v", err)
		}
		for j := range first {
			if got[j] != first[j] {
				t.Fatalf("order changed between runs: %v vs %v", first, got)
			}
		}
	}

	// Независимые компоненты сохраняют порядок регистрации
	if first[0] != "a" || first[1] != "b" {
		t.Errorf("ties must break by registration order, got %v", first)
	}
}

func TestResolve_MissingDependency(t *testing.T) {
	r := New()
	mustRegister(t, r, component.New("b", "test").WithDependencies("ghost"))

	_, err := r.Resolve()
	if err == nil {
		t.Fatal("expected missing dependency error")
	}
	if !core.IsCode(err, core.ErrMissingDependency) {
		t.Errorf("expected MISSING_DEPENDENCY, got %v", err)
	}
	if !strings.Contains(err.Error(), "ghost") {
		t.Errorf("error must name the missing dependency: %v", err)
	}
}

func TestResolve_Cycle(t *testing.T) {
	r := New()
	mustRegister(t, r, component.New("a", "test").WithDependencies("b"))
	mustRegister(t, r, component.New("b", "test").WithDependencies("a"))

	_, err := r.Resolve()
	if err == nil {
		t.Fatal("expected cycle error")
	}
	if !core.IsCode(err, core.ErrCyclicDependency) {
		t.Errorf("expected CYCLIC_DEPENDENCY, got %v", err)
	}
	msg := err.Error()
	if !strings.Contains(msg, "a") || !strings.Contains(msg, "b") || !strings.Contains(msg, "->") {
		t.Errorf("error must show the cycle path: %v", err)
	}
}

func TestResolve_SelfCycle(t *testing.T) {
	r := New()
	mustRegister(t, r, component.New("a", "test").WithDependencies("a"))

	_, err := r.Resolve()
	if !core.IsCode(err, core.ErrCyclicDependency) {
		t.Errorf("expected CYCLIC_DEPENDENCY for self-dependency, got %v", err)
	}
}

func TestResolve_ContractRejection(t *testing.T) {
	r := New()
	mustRegister(t, r, component.New("store", "memory_store"))
	mustRegister(t, r, component.New("api", "api").
		WithDependencies("store").
		WithDependencyContract("store", func(instance interface{}) error {
			return core.NewErrorf(core.ErrMissingDependency,
				"store does not satisfy the required interface")
		}))

	_, err := r.Resolve()
	if err == nil {
		t.Fatal("expected contract rejection")
	}
	if !core.IsCode(err, core.ErrMissingDependency) {
		t.Errorf("expected MISSING_DEPENDENCY, got %v", err)
	}

	// Отказ разрешения не должен оставлять частичного связывания
	api, _ := r.Get("api")
	if _, ok := api.Dependency("store"); ok {
		t.Error("failed resolve must not wire dependencies")
	}
}

func mustRegister(t *testing.T, r *Registry, c *component.Component) {
	t.Helper()
	if err := r.Register(c); err != nil {
		t.Fatalf("register %s: %v", c.ID(), err)
	}
}
