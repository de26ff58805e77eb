// Package smt provides the condition oracle the body visitor consults to
// decide whether a branch condition is statically known, and whether one
// path condition implies another (spec §4.F condition resolution, §9
// design note framing the solver as an opaque external collaborator: the
// transfer engine only needs a decision, never the solver's internals).
//
// No SMT solver binding ships in this module's dependency graph — nothing
// in the example pack imports one, and the interpreter's own correctness
// does not depend on which decision procedure answers Decide/Implies, only
// on it answering conservatively. Oracle is kept as a narrow interface so
// a real solver-backed implementation can be substituted without touching
// internal/transfer.
package smt

import "github.com/uet-master/hepha/internal/value"

// Oracle answers boolean questions about path conditions.
type Oracle interface {
	// Decide reports whether cond is statically known to be true or false
	// under the accumulated path condition pathCondition. ok is false when
	// neither can be established.
	Decide(pathCondition, cond value.Value) (truth bool, ok bool)

	// Implies reports whether pathCondition logically implies cond.
	Implies(pathCondition, cond value.Value) bool
}

// TrivialOracle decides only the cases internal/value's own ImpliesValue
// can already see (known constants, structural equality, boolean algebra
// short-circuits) — a conservative stand-in used until a real solver is
// wired in. It never produces a wrong answer; it simply answers "unknown"
// more often than a full decision procedure would.
type TrivialOracle struct {
	// cache memoizes Decide/Implies results within one analysis run,
	// keyed by the string rendition of (pathCondition, cond) — cheap
	// because value.Value.String() is already how the rest of the
	// package compares expressions structurally.
	cache map[string]cacheEntry
}

type cacheEntry struct {
	truth bool
	ok    bool
}

// NewTrivialOracle returns a TrivialOracle with a fresh cache.
func NewTrivialOracle() *TrivialOracle {
	return &TrivialOracle{cache: make(map[string]cacheEntry)}
}

func (o *TrivialOracle) key(pathCondition, cond value.Value) string {
	return pathCondition.String() + " |- " + cond.String()
}

func (o *TrivialOracle) Decide(pathCondition, cond value.Value) (bool, bool) {
	k := o.key(pathCondition, cond)
	if e, ok := o.cache[k]; ok {
		return e.truth, e.ok
	}

	truth, ok := decide(pathCondition, cond)
	o.cache[k] = cacheEntry{truth: truth, ok: ok}
	return truth, ok
}

func (o *TrivialOracle) Implies(pathCondition, cond value.Value) bool {
	if pathCondition.ImpliesValue(cond) {
		return true
	}
	truth, ok := o.Decide(pathCondition, cond)
	return ok && truth
}

func decide(pathCondition, cond value.Value) (bool, bool) {
	if b, ok := cond.AsBoolIfKnown(); ok {
		return b, true
	}
	if pathCondition.ImpliesValue(cond) {
		return true, true
	}
	if pathCondition.ImpliesNot(cond) {
		return false, true
	}
	return false, false
}
