// Package env implements the abstract environment (spec §3, §4.D): a
// persistent, structurally-shared map from path to value, paired with the
// path condition under which it was reached. Persistence is what lets
// fixed-point iteration keep prior-iteration snapshots around cheaply
// (spec §9 design note on memory discipline).
package env

import (
	"github.com/benbjohnson/immutable"

	"github.com/uet-master/hepha/internal/path"
	"github.com/uet-master/hepha/internal/value"
)

// Environment maps paths to abstract values at one program point, plus the
// boolean condition known to hold on entry to (and, once computed, on exit
// from) that point.
type Environment struct {
	bindings       *immutable.Map[string, binding]
	EntryCondition value.Value
	ExitCondition  value.Value
}

type binding struct {
	Path  path.Path
	Value value.Value
}

// New returns the empty environment, path condition TRUE.
func New() Environment {
	return Environment{
		bindings:       immutable.NewMap[string, binding](nil),
		EntryCondition: value.ConstBool(true),
		ExitCondition:  value.ConstBool(true),
	}
}

// Get looks up the value bound to p, if any.
func (e Environment) Get(p path.Path) (value.Value, bool) {
	b, ok := e.bindings.Get(p.PathKey())
	if !ok {
		return value.Value{}, false
	}
	return b.Value, true
}

// StrongUpdate rebinds p to v, replacing any prior binding outright — used
// when the write is known to target exactly one location (spec §4.D).
func (e Environment) StrongUpdate(p path.Path, v value.Value) Environment {
	next := e.bindings.Set(p.PathKey(), binding{Path: p, Value: v})
	return Environment{bindings: next, EntryCondition: e.EntryCondition, ExitCondition: e.ExitCondition}
}

// WeakUpdate joins v into whatever p already holds, used when the write
// target is only known up to an alias set (an indexed write through an
// unresolved index, a pointer that may alias several locations).
func (e Environment) WeakUpdate(p path.Path, v value.Value) Environment {
	if old, ok := e.Get(p); ok {
		return e.StrongUpdate(p, JoinValues(old, v, p))
	}
	return e.StrongUpdate(p, v)
}

// Remove deletes p's binding, used when a path goes out of scope (a local
// at function return, a heap block at deallocation).
func (e Environment) Remove(p path.Path) Environment {
	next := e.bindings.Delete(p.PathKey())
	return Environment{bindings: next, EntryCondition: e.EntryCondition, ExitCondition: e.ExitCondition}
}

// Paths returns every bound path, order unspecified — callers that need a
// deterministic order should sort by PathKey.
func (e Environment) Paths() []path.Path {
	out := make([]path.Path, 0, e.bindings.Len())
	itr := e.bindings.Iterator()
	for !itr.Done() {
		_, b, _ := itr.Next()
		out = append(out, b.Path)
	}
	return out
}

// Len reports the number of bound paths.
func (e Environment) Len() int { return e.bindings.Len() }

// JoinValues computes the least-upper-bound of two values bound to the
// same path on different incoming control-flow edges. Identical values
// join to themselves; otherwise a symbolic Join node is built, tagged
// with path so that joins at different paths are never conflated.
func JoinValues(a, b value.Value, p path.Path) value.Value {
	if a.String() == b.String() {
		return a
	}
	if a.IsBottom() {
		return b
	}
	if b.IsBottom() {
		return a
	}
	return value.MakeFrom(value.Join{Left: a, Right: b, Path: p}, a.Height, b.Height)
}

// Join merges two environments reached along different edges into the
// environment that holds at their confluence point: every path bound in
// either side is bound in the result, joined where both sides disagree,
// and the entry condition becomes "came from a OR came from b".
func Join(a, b Environment) Environment {
	result := New()
	seen := make(map[string]bool)

	ai := a.bindings.Iterator()
	for !ai.Done() {
		_, ab, _ := ai.Next()
		seen[ab.Path.PathKey()] = true
		if bv, ok := b.Get(ab.Path); ok {
			result = result.StrongUpdate(ab.Path, JoinValues(ab.Value, bv, ab.Path))
		} else {
			result = result.StrongUpdate(ab.Path, ab.Value)
		}
	}
	bi := b.bindings.Iterator()
	for !bi.Done() {
		_, bb, _ := bi.Next()
		if seen[bb.Path.PathKey()] {
			continue
		}
		result = result.StrongUpdate(bb.Path, bb.Value)
	}

	result.EntryCondition = joinConditions(a.EntryCondition, b.EntryCondition)
	return result
}

func joinConditions(a, b value.Value) value.Value {
	if ab, ok := a.AsBoolIfKnown(); ok {
		if ab {
			return a
		}
		return b
	}
	if bb, ok := b.AsBoolIfKnown(); ok {
		if bb {
			return b
		}
		return a
	}
	return value.MakeFrom(value.BinaryOp{Op: "LogicalOr", Left: a, Right: b}, a.Height, b.Height)
}

// ConditionalJoin builds the environment that holds after an if/else whose
// condition is cond: every path present in either branch is bound to
// cond's ConditionalExpressionOf the two branch values, collapsing to the
// taken branch when cond is a known constant (spec §4.D).
func ConditionalJoin(cond value.Value, thenEnv, elseEnv Environment) Environment {
	result := New()
	seen := make(map[string]bool)

	ti := thenEnv.bindings.Iterator()
	for !ti.Done() {
		_, tb, _ := ti.Next()
		seen[tb.Path.PathKey()] = true
		ev, ok := elseEnv.Get(tb.Path)
		if !ok {
			ev = tb.Value
		}
		result = result.StrongUpdate(tb.Path, cond.ConditionalExpressionOf(tb.Value, ev))
	}
	ei := elseEnv.bindings.Iterator()
	for !ei.Done() {
		_, eb, _ := ei.Next()
		if seen[eb.Path.PathKey()] {
			continue
		}
		result = result.StrongUpdate(eb.Path, cond.ConditionalExpressionOf(eb.Value, eb.Value))
	}
	return result
}

// Subset reports whether every binding in a is also present (structurally
// equal) in b — the fixed-point visitor's convergence test (spec §4.E):
// once Subset(prev, next) holds for every block, iteration stops.
func Subset(a, b Environment) bool {
	itr := a.bindings.Iterator()
	for !itr.Done() {
		_, ab, _ := itr.Next()
		bv, ok := b.Get(ab.Path)
		if !ok {
			return false
		}
		if ab.Value.String() != bv.String() {
			return false
		}
	}
	return true
}

// Widen computes the widened successor of prev -> next across a loop
// back-edge: a path whose value changed between iterations is replaced
// with a typed unknown rather than joined again, forcing convergence in a
// bounded number of steps (spec §4.E, widening-from-iteration-3).
func Widen(prev, next Environment, widenPath func(p path.Path, old, new value.Value) value.Value) Environment {
	result := New()
	itr := next.bindings.Iterator()
	for !itr.Done() {
		_, nb, _ := itr.Next()
		ob, ok := prev.Get(nb.Path)
		if !ok {
			result = result.StrongUpdate(nb.Path, nb.Value)
			continue
		}
		if ob.String() == nb.Value.String() {
			result = result.StrongUpdate(nb.Path, nb.Value)
			continue
		}
		result = result.StrongUpdate(nb.Path, widenPath(nb.Path, ob, nb.Value))
	}
	result.EntryCondition = next.EntryCondition
	return result
}
