package core

import (
	"errors"
	"fmt"
	"testing"
)

func TestComponentState_Transitions(t *testing.T) {
	cases := []struct {
		from    ComponentState
		to      ComponentState
		allowed bool
	}{
		{StateCreated, StateInitializing, true},
		{StateInitializing, StateReady, true},
		{StateReady, StateStopping, true},
		{StateStopping, StateStopped, true},
		{StateCreated, StateReady, false},
		{StateReady, StateInitializing, false},
		{StateStopped, StateInitializing, false},
		{StateCreated, StateFailed, true},
		{StateInitializing, StateFailed, true},
		{StateReady, StateFailed, true},
		{StateStopping, StateFailed, true},
	}

	for _, c := range cases {
		if got := c.from.CanTransitionTo(c.to); got != c.allowed {
			t.Errorf("%s -> %s: expected %v, got %v", c.from, c.to, c.allowed, got)
		}
	}
}

func TestComponentState_Terminal(t *testing.T) {
	if !StateStopped.Terminal() {
		t.Error("stopped must be terminal")
	}
	if !StateFailed.Terminal() {
		t.Error("failed must be terminal")
	}
	if StateReady.Terminal() {
		t.Error("ready must not be terminal")
	}
}

func TestRuntimeState_Transitions(t *testing.T) {
	if !RuntimeBuilding.CanTransitionTo(RuntimeStarting) {
		t.Error("building -> starting must be allowed")
	}
	if !RuntimeStarting.CanTransitionTo(RuntimeStopping) {
		t.Error("starting -> stopping must be allowed (startup rollback)")
	}
	if RuntimeRunning.CanTransitionTo(RuntimeStarting) {
		t.Error("running -> starting must not be allowed")
	}
	if RuntimeStopped.CanTransitionTo(RuntimeRunning) {
		t.Error("stopped is terminal")
	}
}

func TestRuntimeError_Error(t *testing.T) {
	err := NewError(ErrComponentNotFound, "component agent-1 not found")
	expected := "[COMPONENT_NOT_FOUND] component agent-1 not found"
	if err.Error() != expected {
		t.Errorf("expected %q, got %q", expected, err.Error())
	}
}

func TestRuntimeError_Wrap(t *testing.T) {
	cause := fmt.Errorf("connection refused")
	err := Wrap(cause, ErrInitialization, "failed to initialize component store")

	if !errors.Is(err, cause) {
		t.Error("wrapped error must match its cause via errors.Is")
	}
	if err.Unwrap() != cause {
		t.Error("Unwrap must return the cause")
	}
}

func TestRuntimeError_Is(t *testing.T) {
	err := NewError(ErrValidation, "missing required parameter: name")

	if !errors.Is(err, NewError(ErrValidation, "other message")) {
		t.Error("errors with the same code must match")
	}
	if errors.Is(err, NewError(ErrComponentNotFound, "x")) {
		t.Error("errors with different codes must not match")
	}
}

func TestIsCode(t *testing.T) {
	inner := NewError(ErrValidation, "missing required parameter: name")
	outer := Wrap(inner, ErrCapabilityExecution, "capability greet failed")

	if !IsCode(outer, ErrCapabilityExecution) {
		t.Error("outer code must be detected")
	}
	if !IsCode(outer, ErrValidation) {
		t.Error("inner code must be detected through the chain")
	}
	if IsCode(outer, ErrCyclicDependency) {
		t.Error("absent code must not be detected")
	}
	if IsCode(nil, ErrValidation) {
		t.Error("nil error carries no code")
	}
}

func TestParams_Getters(t *testing.T) {
	p := Params{"name": "users", "count": 3, "ratio": 1.5}

	if v, ok := p.String("name"); !ok || v != "users" {
		t.Errorf("expected 'users', got %q (%v)", v, ok)
	}
	if _, ok := p.String("count"); ok {
		t.Error("non-string value must not be returned as string")
	}
	if v, ok := p.Int("count"); !ok || v != 3 {
		t.Errorf("expected 3, got %d (%v)", v, ok)
	}
	if v, ok := p.Int("ratio"); !ok || v != 1 {
		t.Errorf("float must truncate to int, got %d (%v)", v, ok)
	}
	if _, ok := p.Int("missing"); ok {
		t.Error("missing key must not be returned")
	}
}
