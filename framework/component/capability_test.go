package component

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/akriventsev/agentapi/framework/core"
)

func TestCapability_Invoke(t *testing.T) {
	cap := NewCapability("greet", func(ctx context.Context, params core.Params) (core.Result, error) {
		name, _ := params.String("name")
		return core.Result{"greeting": "hello, " + name}, nil
	}).WithSchema(Schema{"name": Required})

	result, err := cap.Invoke(context.Background(), core.Params{"name": "x"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result["greeting"] != "hello, x" {
		t.Errorf("expected 'hello, x', got %v", result["greeting"])
	}
}

func TestCapability_Validate_MissingRequired(t *testing.T) {
	invoked := 0
	cap := NewCapability("greet", func(ctx context.Context, params core.Params) (core.Result, error) {
		invoked++
		return core.Result{}, nil
	}).WithSchema(Schema{"name": Required})

	_, err := cap.Invoke(context.Background(), core.Params{})
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !core.IsCode(err, core.ErrValidation) {
		t.Errorf("expected VALIDATION_ERROR, got %v", err)
	}
	if !strings.Contains(err.Error(), "name") {
		t.Errorf("error must name the missing key, got %q", err.Error())
	}
	if invoked != 0 {
		t.Errorf("handler must never run with missing required parameters, ran %d times", invoked)
	}
}

func TestCapability_Validate_ListsAllMissingKeys(t *testing.T) {
	cap := NewCapability("deploy", nil).WithSchema(Schema{
		"image":   Required,
		"target":  Required,
		"replica": Optional,
	})

	err := cap.Validate(core.Params{})
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, key := range []string{"image", "target"} {
		if !strings.Contains(err.Error(), key) {
			t.Errorf("error must name missing key %q, got %q", key, err.Error())
		}
	}
	if strings.Contains(err.Error(), "replica") {
		t.Errorf("optional key must not be reported missing: %q", err.Error())
	}
}

func TestCapability_Validate_UnknownKeysPassThrough(t *testing.T) {
	var received core.Params
	cap := NewCapability("greet", func(ctx context.Context, params core.Params) (core.Result, error) {
		received = params
		return core.Result{}, nil
	}).WithSchema(Schema{"name": Required})

	_, err := cap.Invoke(context.Background(), core.Params{"name": "x", "extra": 42})
	if err != nil {
		t.Fatalf("unknown keys must pass through, got error: %v", err)
	}
	if received["extra"] != 42 {
		t.Error("unknown key must reach the handler unchanged")
	}
}

func TestCapability_OptionalMayBeAbsent(t *testing.T) {
	cap := NewCapability("greet", func(ctx context.Context, params core.Params) (core.Result, error) {
		return core.Result{}, nil
	}).WithSchema(Schema{"name": Required, "title": Optional})

	if _, err := cap.Invoke(context.Background(), core.Params{"name": "x"}); err != nil {
		t.Fatalf("absent optional parameter must pass validation: %v", err)
	}
}

func TestAttachCapabilities(t *testing.T) {
	c := New("agent-1", "test")
	AttachCapabilities(c,
		Spec{Name: "a", Handler: func(ctx context.Context, p core.Params) (core.Result, error) {
			return core.Result{"from": "a"}, nil
		}},
		Spec{Name: "b", Handler: func(ctx context.Context, p core.Params) (core.Result, error) {
			return core.Result{"from": "b"}, nil
		}, Schema: Schema{"x": Required}},
	)

	if len(c.Capabilities()) != 2 {
		t.Fatalf("expected 2 capabilities, got %d", len(c.Capabilities()))
	}
	cap, ok := c.Capability("b")
	if !ok {
		t.Fatal("capability b must be attached")
	}
	if cap.Schema()["x"] != Required {
		t.Error("schema from the attach descriptor must be carried onto the capability")
	}
}

func TestComponent_DuplicateCapability_LastWins(t *testing.T) {
	c := New("agent-1", "test")

	c.WithCapability(NewCapability("greet", func(ctx context.Context, p core.Params) (core.Result, error) {
		return core.Result{"version": 1}, nil
	}))
	c.WithCapability(NewCapability("greet", func(ctx context.Context, p core.Params) (core.Result, error) {
		return core.Result{"version": 2}, nil
	}))

	if len(c.Capabilities()) != 1 {
		t.Fatalf("duplicate names must merge, got %d capabilities", len(c.Capabilities()))
	}
	cap, _ := c.Capability("greet")
	result, err := cap.Invoke(context.Background(), core.Params{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result["version"] != 2 {
		t.Errorf("last registration must win, got version %v", result["version"])
	}
}

func TestCapability_HandlerError(t *testing.T) {
	cap := NewCapability("fail", func(ctx context.Context, p core.Params) (core.Result, error) {
		return nil, fmt.Errorf("boom")
	})

	_, err := cap.Invoke(context.Background(), core.Params{})
	if err == nil || err.Error() != "boom" {
		t.Errorf("handler error must propagate unchanged from Invoke, got %v", err)
	}
}
