package presets

import (
	"errors"
	"testing"
)

func TestCELEvaluatorReadsSnapshot(t *testing.T) {
	evaluator := NewCELEvaluator()
	ctx := EvalContext{
		Snapshot: map[string]any{
			"render": map[string]any{
				"sun": map[string]any{"energy": 2.0},
			},
		},
		PresetID: "boost",
	}

	result, err := evaluator.Evaluate(ctx, "render.sun.energy * 1.5")
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if result != 3.0 {
		t.Fatalf("expected 3.0, got %v", result)
	}
}

func TestCELEvaluatorCallFunction(t *testing.T) {
	registry := NewFunctionRegistry()
	if err := registry.Register("double", func(args ...any) (any, error) {
		f, ok := toFloat64(args[0])
		if !ok {
			return nil, errors.New("double wants a number")
		}
		return f * 2, nil
	}); err != nil {
		t.Fatalf("register: %v", err)
	}

	evaluator := NewCELEvaluator(CELWithFunctionRegistry(registry))
	result, err := evaluator.Evaluate(EvalContext{}, `call("double", 2.5)`)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if result != 5.0 {
		t.Fatalf("expected 5.0, got %v", result)
	}
}

func TestCELEvaluatorCachesPrograms(t *testing.T) {
	cache := newCountingCache()
	evaluator := NewCELEvaluator(CELWithProgramCache(cache))
	ctx := EvalContext{Snapshot: map[string]any{"x": 2.0}}

	for i := 0; i < 2; i++ {
		if _, err := evaluator.Evaluate(ctx, "x + 1.0"); err != nil {
			t.Fatalf("evaluate: %v", err)
		}
	}
	if cache.misses != 1 || cache.hits != 1 {
		t.Fatalf("expected 1 miss and 1 hit, got %d/%d", cache.misses, cache.hits)
	}
}

func TestCELEvaluatorWrapsErrors(t *testing.T) {
	evaluator := NewCELEvaluator()

	_, err := evaluator.Evaluate(EvalContext{PresetID: "warm"}, "1 +")
	if err == nil {
		t.Fatalf("expected syntax error")
	}
	var evalErr *EvaluationError
	if !errors.As(err, &evalErr) {
		t.Fatalf("expected EvaluationError, got %T", err)
	}
	if evalErr.Engine != "cel" || evalErr.PresetID != "warm" {
		t.Fatalf("unexpected error metadata %+v", evalErr)
	}
}

func TestStackWithCELEvaluator(t *testing.T) {
	defs := []Preset{
		{
			ID: "boost",
			Properties: []PresetProperty{
				{Path: "render.sun.energy", Expr: "render.sun.energy * 2.0"},
			},
		},
	}
	stack, config, _ := newStackFixture(t, defs, WithEvaluator(NewCELEvaluator()))
	mustCommit(t, stack, "boost")

	if got := floatAt(t, config, "render.sun.energy"); got != 2 {
		t.Fatalf("expected 2, got %v", got)
	}
}
