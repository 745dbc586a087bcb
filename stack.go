package presets

import (
	"errors"
	"fmt"
	"time"

	"github.com/goliatone/go-presets/pkg/activity"
)

// maxStackUID bounds uid allocation. The allocator reuses freed uids, so
// hitting the bound means a stack is holding a million live elements.
const maxStackUID = 1_000_000

var (
	// ErrMissingRegistry indicates NewStack was called without a property
	// registry.
	ErrMissingRegistry = errors.New("presets: registry is required")
	// ErrMissingCatalog indicates NewStack was called without a catalog.
	ErrMissingCatalog = errors.New("presets: catalog is required")
	// ErrMissingConfig indicates NewStack was called without a live
	// configuration.
	ErrMissingConfig = errors.New("presets: config is required")
	// ErrMissingMaterializer indicates NewStack was called without a resource
	// backend.
	ErrMissingMaterializer = errors.New("presets: materializer is required")
	// ErrNothingStaged indicates CommitStaged was called with an empty
	// staging slot.
	ErrNothingStaged = errors.New("presets: nothing staged")
	// ErrUIDSpaceExhausted indicates uid allocation ran past the bound.
	ErrUIDSpaceExhausted = errors.New("presets: stack uid space exhausted")
)

// OpStatus reports the outcome class of an element-addressed operation,
// separating "worked" from "no such element" without overloading error.
type OpStatus int

const (
	// StatusOK means the operation found its target and completed.
	StatusOK OpStatus = iota
	// StatusNotFound means no element matched the requested identifier.
	StatusNotFound
	// StatusOutOfRange means the requested index does not address an
	// element.
	StatusOutOfRange
)

// String implements fmt.Stringer.
func (s OpStatus) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusNotFound:
		return "not_found"
	case StatusOutOfRange:
		return "out_of_range"
	default:
		return fmt.Sprintf("OpStatus(%d)", int(s))
	}
}

// Stack is the ordered preset override stack over one live configuration.
// Elements apply in index order and unapply in strict reverse; the staged
// element sits outside the committed list (applied last, unapplied first).
// Every structural mutation runs inside an unapply-mutate-reapply bracket so
// saved baselines always reflect the pre-apply world.
//
// Stack is not safe for concurrent use. Hosts drive it from a single
// update loop.
type Stack struct {
	registry *Registry
	catalog  Catalog
	config   Config
	tracker  *resourceTracker

	cfg     stackConfig
	emitter *activity.Emitter

	enabled  bool
	elements []*StackElement
	staged   *StackElement
}

// NewStack wires a stack over its four collaborators. The stack starts
// enabled and empty.
func NewStack(registry *Registry, catalog Catalog, config Config, backend Materializer, opts ...Option) (*Stack, error) {
	if registry == nil {
		return nil, ErrMissingRegistry
	}
	if catalog == nil {
		return nil, ErrMissingCatalog
	}
	if config == nil {
		return nil, ErrMissingConfig
	}
	if backend == nil {
		return nil, ErrMissingMaterializer
	}

	cfg := applyStackOptions(opts)
	return &Stack{
		registry: registry,
		catalog:  catalog,
		config:   config,
		tracker:  newResourceTracker(backend),
		cfg:      cfg,
		emitter:  activity.NewEmitter(cfg.hooks, cfg.activity),
		enabled:  true,
	}, nil
}

// Enabled reports whether the stack's overrides are live.
func (s *Stack) Enabled() bool {
	return s.enabled
}

// Len returns the number of committed elements. The staged element is not
// counted.
func (s *Stack) Len() int {
	return len(s.elements)
}

// Elements returns read-only views of the committed elements in apply order.
func (s *Stack) Elements() []ElementView {
	if len(s.elements) == 0 {
		return nil
	}
	out := make([]ElementView, len(s.elements))
	for i, elem := range s.elements {
		out[i] = elem.view()
	}
	return out
}

// Element returns a read-only view of the committed element at index.
func (s *Stack) Element(index int) (ElementView, bool) {
	if index < 0 || index >= len(s.elements) {
		return ElementView{}, false
	}
	return s.elements[index].view(), true
}

// Staged returns a read-only view of the staged element, if any.
func (s *Stack) Staged() (ElementView, bool) {
	if s.staged == nil {
		return ElementView{}, false
	}
	return s.staged.view(), true
}

// ResourceRefCount reports the live reference count for a logical resource
// id. Zero means no applied element holds it.
func (s *Stack) ResourceRefCount(logicalID string) int {
	return s.tracker.refCount(logicalID)
}

// Enable turns the stack on and applies every eligible element in order,
// staged last. Enabling an enabled stack is a no-op.
func (s *Stack) Enable() error {
	if s.enabled {
		return nil
	}
	start := s.cfg.clock()
	s.enabled = true
	err := s.reapplyAll()
	s.logOp("enable", "", noUID, start, err)
	s.emit(activity.StackEnabledEvent(s.stackEventInput("", noUID)))
	return err
}

// Disable unapplies everything in strict reverse order, staged first, and
// turns the stack off. Disabling a disabled stack is a no-op.
func (s *Stack) Disable() error {
	if !s.enabled {
		return nil
	}
	start := s.cfg.clock()
	err := s.unapplyAll()
	s.enabled = false
	s.logOp("disable", "", noUID, start, err)
	s.emit(activity.StackDisabledEvent(s.stackEventInput("", noUID)))
	return err
}

// Stage resolves id and installs it in the staging slot, replacing (and
// unapplying) any previous staged element. Staging the already-staged preset
// is a no-op: the preview and its materialized resources stay untouched.
// Staging StageNone is equivalent to Unstage. A resolution failure leaves the
// stack untouched.
func (s *Stack) Stage(id string) error {
	if id == StageNone {
		return s.Unstage()
	}
	if s.staged != nil && s.staged.identifier == id {
		return nil
	}

	start := s.cfg.clock()
	if _, err := resolvePreset(s.catalog, id); err != nil {
		s.logOp("stage", id, noUID, start, err)
		return err
	}

	if err := s.Unstage(); err != nil {
		return err
	}

	elem := newStackElement()
	elem.identifier = id
	s.staged = elem

	var err error
	if s.enabled {
		err = s.applyElement(elem)
	}
	s.logOp("stage", id, noUID, start, err)
	s.emit(activity.PresetStagedEvent(s.stackEventInput(id, noUID)))
	return err
}

// Unstage unapplies and drops the staged element. No-op when nothing is
// staged.
func (s *Stack) Unstage() error {
	if s.staged == nil {
		return nil
	}
	start := s.cfg.clock()
	id := s.staged.identifier
	err := s.unapplyElement(s.staged)
	if cerr := s.staged.clear(s.applyEnv()); cerr != nil {
		err = errors.Join(err, cerr)
	}
	s.staged = nil
	s.logOp("unstage", id, noUID, start, err)
	return err
}

// CommitStaged promotes the staged element into the committed list, assigning
// it a stack uid. The element's applied effect and resource references
// transfer; nothing is unapplied or reapplied. Returns the new uid.
func (s *Stack) CommitStaged() (int, error) {
	if s.staged == nil {
		return noUID, ErrNothingStaged
	}

	start := s.cfg.clock()
	uid, err := s.allocateUID()
	if err != nil {
		s.logOp("commit", s.staged.identifier, noUID, start, err)
		return noUID, err
	}

	elem := newStackElement()
	elem.copyFrom(s.staged)
	elem.uid = uid
	s.elements = append(s.elements, elem)

	id := elem.identifier
	s.staged.reset()
	s.staged = nil

	s.logOp("commit", id, uid, start, nil)
	s.emit(activity.PresetCommittedEvent(s.stackEventInput(id, uid)))
	return uid, nil
}

// allocateUID returns the smallest non-negative uid not held by any committed
// element.
func (s *Stack) allocateUID() (int, error) {
	used := make(map[int]struct{}, len(s.elements))
	for _, elem := range s.elements {
		used[elem.uid] = struct{}{}
	}
	for candidate := 0; candidate <= maxStackUID; candidate++ {
		if _, taken := used[candidate]; !taken {
			return candidate, nil
		}
	}
	return noUID, ErrUIDSpaceExhausted
}

// Remove unapplies the whole stack, drops the element at index, and reapplies
// the remainder. The removed element's values restore and its resource
// references release as part of the bracket.
func (s *Stack) Remove(index int) (OpStatus, error) {
	if index < 0 || index >= len(s.elements) {
		return StatusOutOfRange, nil
	}

	start := s.cfg.clock()
	id := s.elements[index].identifier
	uid := s.elements[index].uid

	err := s.bracket(func() {
		s.elements = append(s.elements[:index], s.elements[index+1:]...)
	})
	s.logOp("remove", id, uid, start, err)
	s.emit(activity.PresetRemovedEvent(s.stackEventInput(id, uid)))
	return StatusOK, err
}

// RemoveKeepResources drops the element at index without unapplying it: its
// written values stay in the configuration as the new baseline and its
// materialized resources survive with their keep flag set. This is the
// "bake the preset in" path.
func (s *Stack) RemoveKeepResources(index int) (OpStatus, error) {
	if index < 0 || index >= len(s.elements) {
		return StatusOutOfRange, nil
	}

	start := s.cfg.clock()
	elem := s.elements[index]
	elem.markKeep()
	for _, rec := range elem.resources {
		s.tracker.release(rec)
	}
	s.elements = append(s.elements[:index], s.elements[index+1:]...)

	s.logOp("remove_keep", elem.identifier, elem.uid, start, nil)
	s.emit(activity.PresetRemovedEvent(s.stackEventInput(elem.identifier, elem.uid)))
	return StatusOK, nil
}

// RemoveWhere drops every committed element whose identifier is in ids,
// inside a single bracket. Returns the number of elements removed.
func (s *Stack) RemoveWhere(ids ...string) (int, error) {
	if len(ids) == 0 || len(s.elements) == 0 {
		return 0, nil
	}

	target := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		target[id] = struct{}{}
	}

	start := s.cfg.clock()
	removed := 0
	err := s.bracket(func() {
		kept := s.elements[:0]
		for _, elem := range s.elements {
			if _, hit := target[elem.identifier]; hit {
				removed++
				s.emit(activity.PresetRemovedEvent(s.stackEventInput(elem.identifier, elem.uid)))
				continue
			}
			kept = append(kept, elem)
		}
		s.elements = kept
	})
	s.logOp("remove_where", "", noUID, start, err)
	return removed, err
}

// MoveUp swaps the element at index with its predecessor, moving it one step
// earlier in apply order. Moving the first element is a no-op.
func (s *Stack) MoveUp(index int) (OpStatus, error) {
	if index < 0 || index >= len(s.elements) {
		return StatusOutOfRange, nil
	}
	if index == 0 {
		return StatusOK, nil
	}
	err := s.reorder(index, index-1)
	return StatusOK, err
}

// MoveDown swaps the element at index with its successor, moving it one step
// later in apply order. Moving the last element is a no-op.
func (s *Stack) MoveDown(index int) (OpStatus, error) {
	if index < 0 || index >= len(s.elements) {
		return StatusOutOfRange, nil
	}
	if index == len(s.elements)-1 {
		return StatusOK, nil
	}
	err := s.reorder(index, index+1)
	return StatusOK, err
}

func (s *Stack) reorder(from, to int) error {
	start := s.cfg.clock()
	id := s.elements[from].identifier
	uid := s.elements[from].uid
	err := s.bracket(func() {
		s.elements[from], s.elements[to] = s.elements[to], s.elements[from]
	})
	s.logOp("reorder", id, uid, start, err)
	return err
}

// Activate marks the element at index active so it participates in apply
// passes again.
func (s *Stack) Activate(index int) (OpStatus, error) {
	return s.setElementFlag(index, "activate", func(e *StackElement) bool {
		return e.active
	}, func(e *StackElement) {
		e.active = true
	})
}

// Deactivate marks the element at index inactive. It unapplies as part of the
// bracket and stays dormant until activated again.
func (s *Stack) Deactivate(index int) (OpStatus, error) {
	return s.setElementFlag(index, "deactivate", func(e *StackElement) bool {
		return !e.active
	}, func(e *StackElement) {
		e.active = false
	})
}

// SetElementEnabled toggles the per-element enabled flag, the user-facing
// counterpart of the host-facing active flag.
func (s *Stack) SetElementEnabled(index int, enabled bool) (OpStatus, error) {
	return s.setElementFlag(index, "set_enabled", func(e *StackElement) bool {
		return e.enabled == enabled
	}, func(e *StackElement) {
		e.enabled = enabled
	})
}

// setElementFlag flips a per-element flag inside a bracket. Flag writes that
// would not change anything skip the bracket entirely.
func (s *Stack) setElementFlag(index int, op string, unchanged func(*StackElement) bool, mutate func(*StackElement)) (OpStatus, error) {
	if index < 0 || index >= len(s.elements) {
		return StatusOutOfRange, nil
	}

	elem := s.elements[index]
	if unchanged(elem) {
		return StatusOK, nil
	}

	start := s.cfg.clock()
	err := s.bracket(func() {
		mutate(elem)
	})
	s.logOp(op, elem.identifier, elem.uid, start, err)
	return StatusOK, err
}

// Validate drops every committed element whose identifier fails the isValid
// probe, unapplying before removal so their overrides never leak into the
// baseline. A staged element that fails the probe is unstaged. Returns the
// identifiers removed.
func (s *Stack) Validate(isValid func(id string) bool) ([]string, error) {
	if isValid == nil {
		return nil, fmt.Errorf("presets: validity probe is required")
	}

	start := s.cfg.clock()
	var errs []error
	var removed []string

	if s.staged != nil && !isValid(s.staged.identifier) {
		removed = append(removed, s.staged.identifier)
		if err := s.Unstage(); err != nil {
			errs = append(errs, err)
		}
	}

	invalid := false
	for _, elem := range s.elements {
		if !isValid(elem.identifier) {
			invalid = true
			break
		}
	}
	if invalid {
		err := s.bracket(func() {
			kept := s.elements[:0]
			for _, elem := range s.elements {
				if !isValid(elem.identifier) {
					removed = append(removed, elem.identifier)
					continue
				}
				kept = append(kept, elem)
			}
			s.elements = kept
		})
		if err != nil {
			errs = append(errs, err)
		}
	}

	err := errors.Join(errs...)
	s.logOp("validate", "", noUID, start, err)
	input := s.stackEventInput("", noUID)
	if len(removed) > 0 {
		input.Metadata = map[string]any{"removed": append([]string(nil), removed...)}
	}
	s.emit(activity.StackValidatedEvent(input))
	return removed, err
}

// bracket runs mutate between a full unapply and a full reapply. While the
// stack is disabled nothing is applied, so the bracket degenerates to the
// mutation alone.
func (s *Stack) bracket(mutate func()) error {
	if !s.enabled {
		mutate()
		return nil
	}
	var errs []error
	if err := s.unapplyAll(); err != nil {
		errs = append(errs, err)
	}
	mutate()
	if err := s.reapplyAll(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// unapplyAll unapplies the staged element, then every committed element in
// reverse index order. Restore errors are collected rather than aborting the
// sweep so the stack never stops half-unwound.
func (s *Stack) unapplyAll() error {
	var errs []error
	if s.staged != nil {
		if err := s.unapplyElement(s.staged); err != nil {
			errs = append(errs, err)
		}
	}
	for i := len(s.elements) - 1; i >= 0; i-- {
		if err := s.unapplyElement(s.elements[i]); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *Stack) unapplyElement(elem *StackElement) error {
	if !elem.applied {
		return nil
	}
	err := elem.unapply(s.applyEnv())
	if err == nil {
		s.emit(activity.PresetUnappliedEvent(s.stackEventInput(elem.identifier, elem.uid)))
	}
	return err
}

// reapplyAll applies every eligible committed element in index order, then
// the staged element. Disabled or inactive elements are skipped. A failed
// apply is recorded and the sweep continues so later elements still land.
func (s *Stack) reapplyAll() error {
	if !s.enabled {
		return nil
	}
	var errs []error
	for _, elem := range s.elements {
		if !elem.enabled || !elem.active {
			continue
		}
		if err := s.applyElement(elem); err != nil {
			errs = append(errs, err)
		}
	}
	if s.staged != nil {
		if err := s.applyElement(s.staged); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *Stack) applyElement(elem *StackElement) error {
	if elem.applied {
		return nil
	}
	start := s.cfg.clock()
	preset, err := resolvePreset(s.catalog, elem.identifier)
	if err == nil {
		err = elem.apply(preset, s.applyEnv())
	}
	s.logOp("apply", elem.identifier, elem.uid, start, err)
	if err == nil {
		s.emit(activity.PresetAppliedEvent(s.stackEventInput(elem.identifier, elem.uid)))
	}
	return err
}

func (s *Stack) applyEnv() applyEnv {
	return applyEnv{
		config:   s.config,
		tracker:  s.tracker,
		evaluate: s.evaluateProperty,
	}
}

// evaluateProperty computes a dynamic property value: the expression runs
// against a nested snapshot of the live configuration and the result is
// coerced to the path's registered kind.
func (s *Stack) evaluateProperty(preset Preset, prop PresetProperty) (Value, error) {
	evaluator := s.resolveEvaluator()
	ctx := EvalContext{
		Snapshot: snapshotConfig(s.config, s.registry.Paths()),
		PresetID: preset.ID,
	}
	result, err := evaluator.Evaluate(ctx, prop.Expr)
	if err != nil {
		return Unset(), wrapEvaluationError("expr", prop.Expr, preset.ID, err)
	}

	kind := s.registry.KindOf(prop.Path)
	if kind == KindUnset && prop.Value.IsSet() {
		kind = prop.Value.Kind()
	}
	if kind == KindUnset {
		return CoerceValue(KindUnset, result)
	}
	value, err := CoerceValue(kind, result)
	if err != nil {
		return Unset(), wrapEvaluationError("expr", prop.Expr, preset.ID, err)
	}
	return value, nil
}

// resolveEvaluator returns the configured evaluator, constructing a default
// expr-lang engine on first use.
func (s *Stack) resolveEvaluator() Evaluator {
	if s.cfg.evaluator != nil {
		return s.cfg.evaluator
	}
	var opts []ExprEvaluatorOption
	if s.cfg.programCache != nil {
		opts = append(opts, ExprWithProgramCache(s.cfg.programCache))
	}
	if s.cfg.functions != nil {
		opts = append(opts, ExprWithFunctionRegistry(s.cfg.functions))
	}
	s.cfg.evaluator = NewExprEvaluator(opts...)
	return s.cfg.evaluator
}

func (s *Stack) logOp(op, presetID string, uid int, start time.Time, err error) {
	logger := s.cfg.logger
	if logger == nil {
		return
	}
	logger.LogOperation(OperationLogEvent{
		Op:       op,
		PresetID: presetID,
		StackUID: uid,
		Duration: s.cfg.clock().Sub(start),
		Err:      err,
	})
}
