package hook

import (
	"context"
	"errors"
	"log/slog"
	"testing"
)

func TestRegistry_Trigger_RunsInRegistrationOrder(t *testing.T) {
	t.Parallel()

	r := NewRegistry(slog.Default())

	var order []string
	makeHandler := func(name string) Handler {
		return func(_ context.Context, _ Payload) error {
			order = append(order, name)
			return nil
		}
	}

	r.Register(EventLayerLoaded, makeHandler("first"))
	r.Register(EventLayerLoaded, makeHandler("second"))
	r.Register(EventLayerLoaded, makeHandler("third"))

	if err := r.Trigger(context.Background(), EventLayerLoaded, Payload{}); err != nil {
		t.Fatalf("Trigger: %v", err)
	}

	if len(order) != 3 || order[0] != "first" || order[1] != "second" || order[2] != "third" {
		t.Errorf("execution order = %v, want [first second third]", order)
	}
}

func TestRegistry_Register_DuplicateHandlerFiresTwice(t *testing.T) {
	t.Parallel()

	r := NewRegistry(slog.Default())

	calls := 0
	h := func(_ context.Context, _ Payload) error {
		calls++
		return nil
	}

	r.Register(EventLayerLoaded, h)
	r.Register(EventLayerLoaded, h)

	_ = r.Trigger(context.Background(), EventLayerLoaded, Payload{"layer": "core"})

	if calls != 2 {
		t.Errorf("handler calls = %d, want 2 (no deduplication)", calls)
	}
}

func TestRegistry_Trigger_HandlerErrorDoesNotStopOthers(t *testing.T) {
	t.Parallel()

	r := NewRegistry(slog.Default())
	sentinel := errors.New("observer broke")

	ran := false
	r.Register(EventMainPromptBuilt, func(_ context.Context, _ Payload) error {
		return sentinel
	})
	r.Register(EventMainPromptBuilt, func(_ context.Context, _ Payload) error {
		ran = true
		return nil
	})

	err := r.Trigger(context.Background(), EventMainPromptBuilt, Payload{})
	if !ran {
		t.Error("second handler did not run after first errored")
	}
	if !errors.Is(err, sentinel) {
		t.Errorf("Trigger error = %v, want wrapped %v", err, sentinel)
	}
}

func TestRegistry_Trigger_CollectsAllErrors(t *testing.T) {
	t.Parallel()

	r := NewRegistry(slog.Default())
	errA := errors.New("a")
	errB := errors.New("b")

	r.Register(EventConfigLoaded, func(_ context.Context, _ Payload) error { return errA })
	r.Register(EventConfigLoaded, func(_ context.Context, _ Payload) error { return errB })

	err := r.Trigger(context.Background(), EventConfigLoaded, Payload{})
	if !errors.Is(err, errA) || !errors.Is(err, errB) {
		t.Errorf("Trigger error = %v, want both %v and %v", err, errA, errB)
	}
}

func TestRegistry_Trigger_NoHandlersIsNoop(t *testing.T) {
	t.Parallel()

	r := NewRegistry(nil)
	if err := r.Trigger(context.Background(), EventSubagentPromptBuilt, nil); err != nil {
		t.Errorf("Trigger with no handlers = %v, want nil", err)
	}
}

func TestRegistry_Register_NilHandlerIgnored(t *testing.T) {
	t.Parallel()

	r := NewRegistry(nil)
	r.Register(EventLayerLoaded, nil)
	if n := r.HandlerCount(EventLayerLoaded); n != 0 {
		t.Errorf("HandlerCount = %d, want 0", n)
	}
}
