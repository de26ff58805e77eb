// Package fixpoint implements the fixed-point visitor (spec §4.E): a
// worklist iteration over a function's control-flow graph that converges
// on a stable in/out environment per block, widening at loop headers
// (found via internal/ir's dominator-based back-edge detection) so loops
// with unbounded trip counts still terminate analysis in bounded time.
package fixpoint

import (
	"fmt"
	"time"

	"github.com/uet-master/hepha/internal/config"
	"github.com/uet-master/hepha/internal/env"
	"github.com/uet-master/hepha/internal/ir"
	"github.com/uet-master/hepha/internal/path"
	"github.com/uet-master/hepha/internal/value"
)

// Transfer computes a block's out-environment given its in-environment.
// Supplied by internal/transfer; this package knows nothing about
// instruction semantics, only about CFG shape and convergence.
type Transfer func(block *ir.BasicBlock, in env.Environment) (env.Environment, error)

// Result holds the converged in/out environment for every reachable
// block.
type Result struct {
	In  map[*ir.BasicBlock]env.Environment
	Out map[*ir.BasicBlock]env.Environment
}

// Run iterates fn to a fixed point starting from entryEnv at fn.Entry.
func Run(fn *ir.Function, entryEnv env.Environment, transfer Transfer, cfg config.Options) (*Result, error) {
	result := &Result{In: make(map[*ir.BasicBlock]env.Environment), Out: make(map[*ir.BasicBlock]env.Environment)}
	if fn.Entry == nil {
		return result, nil
	}
	if fn.ImmediateDominator == nil {
		fn.ComputeDominators()
	}
	anchors := fn.BackEdgeTargets()
	visits := make(map[*ir.BasicBlock]int)

	limit := cfg.MaxFixpointIterations
	if limit <= 0 {
		limit = config.DefaultMaxFixpointIterations
	}

	worklist := []*ir.BasicBlock{fn.Entry}
	queued := map[*ir.BasicBlock]bool{fn.Entry: true}
	start := time.Now()

	for len(worklist) > 0 {
		if cfg.BodyAnalysisTimeout > 0 && time.Since(start) > cfg.BodyAnalysisTimeout {
			// Body budget spent: return the environments computed so far.
			break
		}
		b := worklist[0]
		worklist = worklist[1:]
		queued[b] = false

		curIn := entryEnv
		if b != fn.Entry {
			curIn = joinPredecessors(b, result.Out)
		}

		if anchors[b] {
			visits[b]++
			if prev, ok := result.In[b]; ok && visits[b] > 2 {
				curIn = env.Widen(prev, curIn, widenPath)
			}
			if visits[b] > limit {
				// Bail conservatively: stop re-deriving this header and
				// accept its last computed environment, rather than loop
				// forever on a loop whose widening never stabilizes.
				continue
			}
		}
		result.In[b] = curIn

		newOut, err := transfer(b, curIn)
		if err != nil {
			return nil, fmt.Errorf("fixpoint: block %s: %w", b.Label, err)
		}

		prevOut, hadOut := result.Out[b]
		result.Out[b] = newOut
		if hadOut && envEqual(prevOut, newOut) {
			continue
		}

		for _, succ := range b.Successors {
			if !queued[succ] {
				worklist = append(worklist, succ)
				queued[succ] = true
			}
		}
	}

	return result, nil
}

func envEqual(a, b env.Environment) bool {
	return env.Subset(a, b) && env.Subset(b, a)
}

func joinPredecessors(b *ir.BasicBlock, out map[*ir.BasicBlock]env.Environment) env.Environment {
	if cond, thenBlock, elseBlock, ok := conditionalDiamond(b); ok {
		headerOut, hadHeader := out[cond.Block]
		thenOut, hadThen := out[thenBlock]
		elseOut, hadElse := out[elseBlock]
		if hadHeader && hadThen && hadElse {
			condVal, ok := headerOut.Get(path.Local{Index: cond.Condition.ID, Type: cond.Condition.Type})
			if ok {
				return env.ConditionalJoin(condVal, thenOut, elseOut)
			}
		}
	}

	var acc env.Environment
	has := false
	for _, pred := range b.Predecessors {
		po, ok := out[pred]
		if !ok {
			continue
		}
		if !has {
			acc = po
			has = true
			continue
		}
		acc = env.Join(acc, po)
	}
	if !has {
		return env.New()
	}
	return acc
}

// conditionalDiamond recognizes b as the merge point of a plain if/else:
// exactly two predecessors, each reached from no block but a single shared
// header whose BranchTerminator splits straight to both of them. Detecting
// this shape lets the merge use env.ConditionalJoin (precise, conditional
// on the branch's own condition) instead of the unconditional env.Join used
// for every other merge — loop headers and multi-way merges fall through to
// the plain join (spec §4.D, §4.E).
func conditionalDiamond(b *ir.BasicBlock) (header *ir.BranchTerminator, thenBlock, elseBlock *ir.BasicBlock, ok bool) {
	if len(b.Predecessors) != 2 {
		return nil, nil, nil, false
	}
	p0, p1 := b.Predecessors[0], b.Predecessors[1]
	if len(p0.Predecessors) != 1 || len(p1.Predecessors) != 1 {
		return nil, nil, nil, false
	}
	if p0.Predecessors[0] != p1.Predecessors[0] {
		return nil, nil, nil, false
	}
	h := p0.Predecessors[0]
	br, ok := h.Terminator.(*ir.BranchTerminator)
	if !ok || br.Condition == nil {
		return nil, nil, nil, false
	}
	if br.TrueBlock == p0 && br.FalseBlock == p1 {
		return br, p0, p1, true
	}
	if br.TrueBlock == p1 && br.FalseBlock == p0 {
		return br, p1, p0, true
	}
	return nil, nil, nil, false
}

// widenPath is the default widening callback: a path whose value changed
// between iterations is replaced by a typed unknown named after the path
// itself, rather than joined again, so widening strictly loses precision
// and therefore converges (spec §4.E).
func widenPath(p path.Path, old, newv value.Value) value.Value {
	return value.MakeTypedUnknown(nil, p)
}
