package presets

import (
	"errors"
	"sync"
	"testing"
)

type countingCache struct {
	mu       sync.Mutex
	programs map[string]any
	hits     int
	misses   int
}

func newCountingCache() *countingCache {
	return &countingCache{programs: map[string]any{}}
}

func (c *countingCache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	program, ok := c.programs[key]
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	return program, ok
}

func (c *countingCache) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.programs[key] = value
}

func TestExprEvaluatorReadsSnapshot(t *testing.T) {
	evaluator := NewExprEvaluator()
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

func TestExprEvaluatorCustomFunctions(t *testing.T) {
	registry := NewFunctionRegistry()
	if err := registry.Register("clamp01", func(args ...any) (any, error) {
		if len(args) != 1 {
			return nil, errors.New("clamp01 wants one argument")
		}
		f, ok := toFloat64(args[0])
		if !ok {
			return nil, errors.New("clamp01 wants a number")
		}
		if f < 0 {
			return 0.0, nil
		}
		if f > 1 {
			return 1.0, nil
		}
		return f, nil
	}); err != nil {
		t.Fatalf("register: %v", err)
	}

	evaluator := NewExprEvaluator(ExprWithFunctionRegistry(registry))
	result, err := evaluator.Evaluate(EvalContext{}, "clamp01(2.5)")
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if result != 1.0 {
		t.Fatalf("expected clamp to 1.0, got %v", result)
	}
}

func TestExprEvaluatorUsesProgramCache(t *testing.T) {
	cache := newCountingCache()
	evaluator := NewExprEvaluator(ExprWithProgramCache(cache))
	ctx := EvalContext{Snapshot: map[string]any{"x": 2}}

	for i := 0; i < 3; i++ {
		if _, err := evaluator.Evaluate(ctx, "x + 1"); err != nil {
			t.Fatalf("evaluate: %v", err)
		}
	}
	if cache.misses != 1 || cache.hits != 2 {
		t.Fatalf("expected 1 miss and 2 hits, got %d/%d", cache.misses, cache.hits)
	}
}

func TestExprEvaluatorCompileReusesProgram(t *testing.T) {
	evaluator := NewExprEvaluator()
	rule, err := evaluator.Compile("x * 2")
	if err != nil {
		t.Fatalf("compile: %v", err)
	}

	for _, x := range []int{1, 5} {
		result, err := rule.Evaluate(EvalContext{Snapshot: map[string]any{"x": x}})
		if err != nil {
			t.Fatalf("evaluate: %v", err)
		}
		if result != x*2 {
			t.Fatalf("expected %d, got %v", x*2, result)
		}
	}
}

func TestExprEvaluatorWrapsErrors(t *testing.T) {
	evaluator := NewExprEvaluator()

	if _, err := evaluator.Evaluate(EvalContext{}, ""); err == nil {
		t.Fatalf("expected empty expression rejection")
	}

	_, err := evaluator.Evaluate(EvalContext{PresetID: "warm"}, "1 +")
	if err == nil {
		t.Fatalf("expected syntax error")
	}
	var evalErr *EvaluationError
	if !errors.As(err, &evalErr) {
		t.Fatalf("expected EvaluationError, got %T", err)
	}
	if evalErr.Engine != "expr" || evalErr.Expr != "1 +" {
		t.Fatalf("unexpected error metadata %+v", evalErr)
	}
}
