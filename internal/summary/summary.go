// Package summary implements the function summary and its store (spec §3,
// §6): a summary records, per parameter path and per side-effect target,
// the abstract value a call site can substitute in via
// internal/path.RefineParametersAndPaths / internal/value's
// RefineParametersAndPaths, so a caller does not need to re-analyze a
// callee's body on every call site once its summary has converged.
package summary

import (
	"sync"

	"github.com/uet-master/hepha/internal/env"
	"github.com/uet-master/hepha/internal/path"
	"github.com/uet-master/hepha/internal/value"
)

// Effect records one write a function made to a path rooted outside its
// own locals (a static, a heap block, a parameter-rooted location) —
// the only writes a caller needs to know about to re-apply at a call site
// (spec §4.A IsRootedByNonLocalStructure).
type Effect struct {
	Target path.Path
	Value  value.Value
}

// Summary is what internal/transfer caches and reapplies at a call site
// instead of inlining a callee's body outright.
type Summary struct {
	DefID        string
	ResultValue  value.Value
	ResultPath   path.Path
	Effects      []Effect
	ExitEnv      env.Environment
	Precondition value.Value
}

// Store is a DefID-keyed summary cache, safe for concurrent readers; spec
// §5 runs the analyzer single-threaded, but the CLI driver and LSP server
// both query a shared Store from their own goroutines, so writes are
// still guarded.
type Store struct {
	mu        sync.RWMutex
	summaries map[string]Summary
	// inProgress guards against infinite recursion on mutually recursive
	// functions: a DefID present here has an analysis frame already on the
	// call stack, so a re-entrant request for it gets the conservative
	// "unknown" treatment instead of looping forever (spec §5 resource
	// model, recursion guard).
	inProgress map[string]bool
}

// NewStore returns an empty summary store.
func NewStore() *Store {
	return &Store{summaries: make(map[string]Summary), inProgress: make(map[string]bool)}
}

// Get looks up a converged summary for defID.
func (s *Store) Get(defID string) (Summary, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sm, ok := s.summaries[defID]
	return sm, ok
}

// Put stores (or replaces) defID's summary.
func (s *Store) Put(defID string, sm Summary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.summaries[defID] = sm
}

// Enter marks defID as currently being analyzed, returning false if it
// already was (the caller should then fall back to an uninterpreted call
// rather than recurse).
func (s *Store) Enter(defID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inProgress[defID] {
		return false
	}
	s.inProgress[defID] = true
	return true
}

// Leave clears defID's in-progress marker.
func (s *Store) Leave(defID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inProgress, defID)
}

// Instantiate rewrites a stored summary's result value and effects against
// one call site's actual argument paths, replacement result path, and
// fresh local-numbering offset (so the callee's Local(n) paths never
// collide with the caller's own locals), using internal/path's and
// internal/value's RefineParametersAndPaths.
func Instantiate(sm Summary, args []path.Path, resultPath path.Path, freshOffset int, argValues []value.Value, depth int) (value.Value, []Effect) {
	substPath := func(p value.PathRef) value.PathRef {
		pp, ok := p.(path.Path)
		if !ok {
			return p
		}
		return path.RefineParametersAndPaths(pp, args, resultPath, freshOffset)
	}
	substValue := func(v value.Value) value.Value {
		if p, ok := v.Expr.(value.InitialParameterValue); ok {
			if idx, ok := paramIndex(p); ok && idx < len(argValues) {
				return argValues[idx]
			}
		}
		return v
	}

	result := sm.ResultValue.RefineParametersAndPaths(substPath, substValue, depth)

	effects := make([]Effect, len(sm.Effects))
	for i, e := range sm.Effects {
		refinedTarget := path.RefineParametersAndPaths(e.Target, args, resultPath, freshOffset)
		effects[i] = Effect{
			Target: refinedTarget,
			Value:  e.Value.RefineParametersAndPaths(substPath, substValue, depth),
		}
	}
	return result, effects
}

func paramIndex(p value.InitialParameterValue) (int, bool) {
	if pp, ok := p.Path.(path.Parameter); ok {
		return pp.Index, true
	}
	return 0, false
}
