// Package transfer implements the body visitor / transfer engine (spec
// §4.F): it executes one basic block's instructions and terminator
// against an incoming Environment, producing the outgoing one. This is
// where the path algebra (internal/path), value algebra (internal/value),
// environment (internal/env), type resolver (internal/resolve), heap
// model (internal/heap), tag propagation (internal/tags) and condition
// oracle (internal/smt) all meet the concrete instruction set that
// internal/ir's builder already emits.
package transfer

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/uet-master/hepha/internal/config"
	"github.com/uet-master/hepha/internal/env"
	"github.com/uet-master/hepha/internal/fixpoint"
	"github.com/uet-master/hepha/internal/heap"
	"github.com/uet-master/hepha/internal/ir"
	"github.com/uet-master/hepha/internal/path"
	"github.com/uet-master/hepha/internal/resolve"
	"github.com/uet-master/hepha/internal/smt"
	"github.com/uet-master/hepha/internal/summary"
	"github.com/uet-master/hepha/internal/tags"
	"github.com/uet-master/hepha/internal/value"
)

// heapAllocAlignment is the width every symbolic heap layout is recorded
// at: every scalar this IR's type system tracks is at most a u256, so a
// single alignment class covers every allocation site without needing
// per-element-type layout negotiation.
const heapAllocAlignment = 32

// heapModules names the standard-library container namespaces whose
// operations allocate or resize heap-backed storage, keyed the way
// internal/lang/stdlib's module table actually spells them ("Table", and
// "vector" both bare and under its "std::vector" path — there is no "Vec"
// or "Box" module in this stdlib).
var heapModules = map[string]bool{"Table": true, "vector": true, "std::vector": true}

// allocKind classifies a qualified call's Function name into the heap
// lifecycle operation it performs, or "" when module isn't a recognized
// container namespace (spec §4.F heap allocation / DeAlloc / ReAlloc
// effects). Names are grounded in internal/lang/stdlib's actual Table and
// vector function tables: "empty" constructs the backing block,
// "push_back"/"insert"/"append" may grow it, and "delete" is the only
// stdlib operation that drops a tracked entry outright.
func allocKind(module, function string) string {
	if !heapModules[module] {
		return ""
	}
	name := strings.ToLower(function)
	switch {
	case name == "delete" || name == "drop" || name == "free" || name == "clear":
		return "dealloc"
	case name == "push_back" || name == "insert" || name == "append" || name == "grow" || name == "resize" || name == "with_capacity":
		return "realloc"
	case name == "new" || name == "empty" || strings.Contains(name, "alloc"):
		return "alloc"
	default:
		return ""
	}
}

// State is the per-analysis-run context threaded through every block's
// transfer — the parts of the engine that persist across blocks and
// across fixed-point iterations (the heap allocator's site table, the
// oracle's memoization cache) rather than living in the Environment
// itself.
type State struct {
	Registry  *resolve.Registry
	Heap      *heap.Allocator
	Oracle    smt.Oracle
	Cfg       config.Options
	Summaries *summary.Store
	callSeq   int
}

// NewState returns a State with fresh, empty sub-components.
func NewState(cfg config.Options) *State {
	return &State{
		Registry:  resolve.NewRegistry(),
		Heap:      heap.NewAllocator(),
		Oracle:    smt.NewTrivialOracle(),
		Cfg:       cfg,
		Summaries: summary.NewStore(),
	}
}

func localPath(v *ir.Value) path.Path {
	return path.Local{Index: v.ID, Type: v.Type}
}

// valueOf resolves an SSA operand to its abstract value, falling back to a
// typed unknown named by the operand's own local path when the
// environment has no binding yet (entry-seeded parameters excepted).
func (st *State) valueOf(in env.Environment, v *ir.Value) value.Value {
	if v == nil {
		return value.Value{Expr: value.Top{}}
	}
	if got, ok := in.Get(localPath(v)); ok {
		return got
	}
	return value.MakeTypedUnknown(v.Type, localPath(v))
}

func (st *State) bind(in env.Environment, v *ir.Value, result value.Value) env.Environment {
	if v == nil {
		return in
	}
	return in.StrongUpdate(localPath(v), result)
}

// addressPath resolves an operand used as a memory/storage address to the
// path it denotes: if the operand's abstract value is a Reference, that
// reference's path; otherwise a Computed path named by the address
// expression itself, so an unresolved address still gets a consistent,
// if conservative, identity across repeated visits.
func (st *State) addressPath(in env.Environment, v *ir.Value) path.Path {
	av := st.valueOf(in, v)
	if ref, ok := av.Expr.(value.Reference); ok {
		if p, ok := ref.Path.(path.Path); ok {
			return p
		}
	}
	return path.Computed{Value: av}
}

// Seed builds the entry environment of fn: every parameter is bound, at
// both its Parameter path and its defining SSA local, to its symbolic
// initial value, and every promoted constant sub-body is itself run to a
// fixed point so its value is already resolved and available under its
// PromotedConstant path before the body proper runs (spec §4.F entry
// seeding, §8 promotion preservation). This IR has no closure or
// coroutine construct — every function is a free top-level item — so
// there are no upvars to prepopulate here.
func (st *State) Seed(fn *ir.Function) env.Environment {
	e := env.New()
	for i, p := range fn.Params {
		if p.Value == nil {
			continue
		}
		iv := value.MakeInitialParameterValue(p.Type, path.Parameter{Index: i})
		e = e.StrongUpdate(path.Parameter{Index: i}, iv)
		e = e.StrongUpdate(localPath(p.Value), iv)
	}
	for ord, pc := range fn.PromotedConstants {
		e = st.seedPromotedConstant(e, pc, ord)
	}
	return e
}

// seedPromotedConstant runs pc (a constant sub-body lifted out of fn) to a
// fixed point and binds its result at PromotedConstant{ord}. A result that
// is itself a reference into pc's own stack frame is promoted into a
// fresh heap block first, since that frame is gone the moment Seed
// returns (spec §4.F promoted-reference materialization).
func (st *State) seedPromotedConstant(e env.Environment, pc *ir.Function, ord int) env.Environment {
	if pc == nil || pc.Entry == nil {
		return e
	}
	pc.ComputeDominators()
	result, err := fixpoint.Run(pc, st.Seed(pc), st.Step, st.Cfg)
	if err != nil {
		return e
	}
	for _, b := range pc.Blocks {
		out, ok := result.Out[b]
		if !ok {
			continue
		}
		rv, ok := out.Get(path.Result{})
		if !ok {
			continue
		}
		final, next := st.PromoteReference(out, e, fmt.Sprintf("promoted#%d", ord), rv)
		return next.StrongUpdate(path.PromotedConstant{Ordinal: ord}, final)
	}
	return e
}

// PromoteReference copies the storage reachable through v (a reference)
// into a fresh heap block rooted in dest, so the promoted value outlives
// the stack frame (src) that computed it. Reference-to-reference chains
// recurse; a slice pointer's length, tracked as a sibling path alongside
// its address, travels with it; a string-literal pointee expands into
// per-byte ConstantIndex entries so offset/element reads against the
// promoted copy still resolve (spec §4.F promoted-reference
// materialization). v itself is returned unchanged when it isn't a
// reference.
func (st *State) PromoteReference(src, dest env.Environment, siteKey string, v value.Value) (value.Value, env.Environment) {
	ref, ok := v.Expr.(value.Reference)
	if !ok {
		return v, dest
	}
	srcPath, ok := ref.Path.(path.Path)
	if !ok {
		return v, dest
	}
	root, _ := st.Heap.Alloc(siteKey, value.ConstInt(1, 64, false), heapAllocAlignment)
	next := dest

	if pointee, found := src.Get(srcPath); found {
		switch p := pointee.Expr.(type) {
		case value.Reference:
			var inner value.Value
			inner, next = st.PromoteReference(src, next, siteKey+".*", pointee)
			next = next.StrongUpdate(root, inner)
		case value.CompileTimeConstant:
			if p.Domain == value.DomainString {
				for i := 0; i < len(p.Str); i++ {
					child := path.NewQualified(root, path.ConstantIndex{Offset: i}, st.Cfg, &ir.IntType{Bits: 8})
					next = next.StrongUpdate(child, value.ConstInt(int64(p.Str[i]), 8, false))
				}
			} else {
				next = next.StrongUpdate(root, pointee)
			}
		default:
			next = next.StrongUpdate(root, pointee)
		}
	}

	for _, bp := range src.Paths() {
		if bp.PathKey() == srcPath.PathKey() || !path.IsRootedBy(bp, srcPath) {
			continue
		}
		if bv, ok := src.Get(bp); ok {
			next = next.StrongUpdate(path.ReplaceRoot(bp, srcPath, root), bv)
		}
	}

	return value.MakeReference(root), next
}

// typeOfPath recovers p's static type by walking its Qualified chain
// through the registry's selector-resolution methods, bottoming out at a
// root whose type is carried directly (Local, Static). It is the only way
// a Qualified path's type becomes knowable again once the concrete
// *ir.Value that named it has gone out of scope (spec §4.C).
func (st *State) typeOfPath(p path.Path) (ir.Type, bool) {
	switch v := p.(type) {
	case path.Local:
		return v.Type, v.Type != nil
	case path.Static:
		return v.Type, v.Type != nil
	case path.Qualified:
		parentType, ok := st.typeOfPath(v.Parent)
		if !ok {
			return nil, false
		}
		switch sel := v.Selector.(type) {
		case path.Field:
			t, err := st.Registry.FieldType(parentType, sel.N)
			return t, err == nil
		case path.UnionField:
			t, err := st.Registry.UnionFieldType(parentType, sel.Index)
			return t, err == nil
		case path.Deref:
			return st.Registry.DerefType(parentType), true
		case path.IndexSel, path.ConstantIndex:
			t, err := st.Registry.IndexElementType(parentType)
			return t, err == nil
		case path.Downcast:
			t, err := st.Registry.DowncastType(parentType, sel.Variant)
			return t, err == nil
		case path.Discriminant:
			t, err := st.Registry.DiscriminantType(parentType)
			return t, err == nil
		default:
			return nil, false
		}
	default:
		return nil, false
	}
}

// isTransparentWrapperField0 is the callback internal/path.Canonicalize
// uses to decide whether a Field(0) projection flattens through a
// single-field struct wrapper, resolved via typeOfPath since Canonicalize
// only ever sees paths, never the *ir.Value a type would otherwise come
// from directly.
func (st *State) isTransparentWrapperField0(parent path.Path) bool {
	t, ok := st.typeOfPath(parent)
	return ok && st.Registry.IsTransparentWrapper(t)
}

// Step runs block's instructions then its terminator against in, in
// program order, returning the block's out-environment.
func (st *State) Step(block *ir.BasicBlock, in env.Environment) (env.Environment, error) {
	cur := in
	for _, inst := range block.Instructions {
		next, err := st.stepInstruction(inst, cur)
		if err != nil {
			return env.Environment{}, fmt.Errorf("transfer: block %s: %w", block.Label, err)
		}
		cur = next
	}
	if block.Terminator != nil {
		next, err := st.stepTerminator(block.Terminator, cur)
		if err != nil {
			return env.Environment{}, fmt.Errorf("transfer: block %s terminator: %w", block.Label, err)
		}
		cur = next
	}
	return cur, nil
}

func (st *State) stepInstruction(inst ir.Instruction, in env.Environment) (env.Environment, error) {
	switch v := inst.(type) {
	case *ir.ConstantInstruction:
		return st.bind(in, v.Result, st.constantValue(v)), nil

	case *ir.BinaryInstruction:
		left := st.valueOf(in, v.Left)
		right := st.valueOf(in, v.Right)
		result := dispatchBinary(v.Op, left, right)
		result = tags.PropagateBinary(v.Op, left, right, result)
		return st.bind(in, v.Result, result), nil

	case *ir.CheckedArithInstruction:
		return st.stepCheckedArith(v, in), nil

	case *ir.LoadInstruction:
		p := st.addressPath(in, v.Address)
		next := st.recordOffsetViolation(in, p)
		result, ok := next.Get(p)
		if !ok {
			var t ir.Type
			if v.Result != nil {
				t = v.Result.Type
			}
			result = value.MakeTypedUnknown(t, p)
		}
		return st.bind(next, v.Result, result), nil

	case *ir.StoreInstruction:
		return st.stepStore(v, in), nil

	case *ir.StorageLoadInstruction:
		p := st.storageSlotPath(in, v.SlotNum, v.Slot)
		result, ok := in.Get(p)
		if !ok {
			var t ir.Type
			if v.Result != nil {
				t = v.Result.Type
			}
			result = value.MakeTypedUnknown(t, p)
		}
		return st.bind(in, v.Result, result), nil

	case *ir.StorageStoreInstruction:
		p := st.storageSlotPath(in, v.SlotNum, v.Slot)
		val := st.valueOf(in, v.Value)
		return in.StrongUpdate(p, val), nil

	case *ir.KeyedStorageLoadInstruction:
		p := st.keyedStoragePath(in, v.BaseSlot, v.Key, nil)
		result, ok := in.Get(p)
		if !ok {
			var t ir.Type
			if v.Result != nil {
				t = v.Result.Type
			}
			result = value.MakeTypedUnknown(t, p)
		}
		return st.bind(in, v.Result, result), nil

	case *ir.KeyedStorageStoreInstruction:
		p := st.keyedStoragePath(in, v.BaseSlot, v.Key, nil)
		val := st.valueOf(in, v.Value)
		keyVal := st.valueOf(in, v.Key)
		if _, known := keyVal.Expr.(value.CompileTimeConstant); !known {
			// A symbolic key may alias any other key already bound under
			// this base slot, so the write can only narrow what's already
			// known there, never replace it outright (spec §4.D weak
			// update through aliases).
			return in.WeakUpdate(p, val), nil
		}
		return in.StrongUpdate(p, val), nil

	case *ir.StorageAddrInstruction:
		p := st.storageAddrPath(in, v.BaseSlot, v.Keys)
		return st.bind(in, v.Result, value.MakeReference(p)), nil

	case *ir.CallInstruction:
		return st.stepCall(v, in), nil

	case *ir.SenderInstruction:
		p := path.Static{Key: "msg.sender"}
		result, ok := in.Get(p)
		if !ok {
			var t ir.Type
			if v.Result != nil {
				t = v.Result.Type
			}
			result = value.MakeTypedUnknown(t, p)
		}
		return st.bind(in, v.Result, result), nil

	case *ir.RequireInstruction:
		cond := st.valueOf(in, v.Condition)
		return conjoinExit(in, cond), nil

	case *ir.AssumeInstruction:
		cond := st.valueOf(in, v.Predicate)
		return conjoinExit(in, cond), nil

	case *ir.EmitInstruction, *ir.LogInstruction, *ir.TopicAddrInstruction,
		*ir.ABIEncU256Instruction, *ir.EventSignatureInstruction, *ir.PhiInstruction:
		return st.stepOpaque(inst, in), nil

	default:
		return in, nil
	}
}

// stepOpaque handles instructions whose precise semantics fall outside
// this analyzer's modeled domain (ABI/event encoding, phi nodes already
// resolved by the IR builder's join points): any result gets a typed
// unknown, any operand tags still flow through so taint tracking is not
// silently broken by an unmodeled instruction.
func (st *State) stepOpaque(inst ir.Instruction, in env.Environment) env.Environment {
	result := inst.GetResult()
	if result == nil {
		return in
	}
	unknown := value.MakeTypedUnknown(result.Type, localPath(result))
	for _, operand := range inst.GetOperands() {
		unknown = tags.PropagateUnary("Cast", st.valueOf(in, operand), unknown)
	}
	return st.bind(in, result, unknown)
}

// stepCall dispatches a call instruction to the heap lifecycle handler
// when it names a recognized allocating container operation, to summary
// instantiation when the callee has a converged summary, and otherwise
// builds an UninterpretedCall placeholder (spec §4.F call transfer).
func (st *State) stepCall(v *ir.CallInstruction, in env.Environment) env.Environment {
	if kind := allocKind(v.Module, v.Function); kind != "" {
		return st.stepHeapCall(v, kind, in)
	}

	argValues := make([]value.Value, len(v.Args))
	argPaths := make([]path.Path, len(v.Args))
	for i, a := range v.Args {
		argValues[i] = st.valueOf(in, a)
		if a != nil {
			argPaths[i] = localPath(a)
		} else {
			argPaths[i] = path.PhantomData{}
		}
	}
	var resultType ir.Type
	var resultPath path.Path = path.PhantomData{}
	if v.Result != nil {
		resultType = v.Result.Type
		resultPath = localPath(v.Result)
	}

	if sm, ok := st.Summaries.Get(v.Function); ok {
		return st.stepSummonedCall(v, sm, argPaths, argValues, resultPath, in)
	}

	call := value.Value{Expr: value.UninterpretedCall{Callee: v.Function, Args: argValues, ResultType: resultType, Path: resultPath}, Height: 1}
	call = tags.PropagateUnary("UninterpretedCall", foldArgs(argValues), call)
	return st.bind(in, v.Result, call)
}

// stepSummonedCall reapplies a callee's converged summary at this call
// site: arguments and the result path are substituted into the summary's
// recorded effects and result value, and each effect's refined target is
// canonicalized before being applied — a Deref through a now-known
// Reference collapses, and a Field(0) projection through a transparent
// wrapper flattens — so the bound path matches the one later reads of the
// same location will resolve to (spec §4.F call transfer, tpath
// canonicalization).
func (st *State) stepSummonedCall(v *ir.CallInstruction, sm summary.Summary, argPaths []path.Path, argValues []value.Value, resultPath path.Path, in env.Environment) env.Environment {
	out := in
	st.callSeq++
	offset := st.callSeq * 1_000_000
	result, effects := summary.Instantiate(sm, argPaths, resultPath, offset, argValues, st.Cfg.MaxExpressionHeight)
	lookup := func(p path.Path) (value.Value, bool) { return out.Get(p) }
	for _, eff := range effects {
		tpath := path.Canonicalize(eff.Target, lookup, st.isTransparentWrapperField0)
		out = out.StrongUpdate(tpath, eff.Value)
	}
	if v.Result != nil {
		out = out.StrongUpdate(resultPath, result)
	}
	return out
}

// stepHeapCall executes an allocation-shaped call against the heap model:
// "alloc" mints a fresh block, "realloc" grows an existing one and clears
// its zeroed flag, "dealloc" frees it, purging every environment path
// still rooted at the freed block and flagging a double-free when the
// site was already deallocated (spec §3 heap model, §4.F DeAlloc/ReAlloc
// effects, §8 double-free scenario). The transfer engine never returns a
// Go error for a soundness finding like this (§7) — a double-free is
// instead recorded as a tagged marker binding that probes.HeapViolationProbe
// later reads off the converged environment.
func (st *State) stepHeapCall(v *ir.CallInstruction, kind string, in env.Environment) env.Environment {
	siteKey := fmt.Sprintf("%s#%d", v.Function, v.ID)
	argValues := make([]value.Value, len(v.Args))
	for i, a := range v.Args {
		argValues[i] = st.valueOf(in, a)
	}
	length := value.ConstInt(0, 64, false)
	if len(argValues) > 0 {
		length = argValues[len(argValues)-1]
	}

	switch kind {
	case "alloc":
		root, _ := st.Heap.Alloc(siteKey, length, heapAllocAlignment)
		return st.bind(in, v.Result, value.MakeReference(root))

	case "realloc":
		root, _, ok := st.Heap.Realloc(siteKey, length, heapAllocAlignment)
		if !ok {
			root, _ = st.Heap.Alloc(siteKey, length, heapAllocAlignment)
		}
		return st.bind(in, v.Result, value.MakeReference(root))

	case "dealloc":
		doubleFree := st.Heap.IsDeallocated(siteKey)
		blockVal, hadBlock := st.Heap.Block(siteKey)
		_, hadLayout := st.Heap.Dealloc(siteKey)
		next := in
		if doubleFree {
			marker := path.Static{Key: "heap.double_free#" + siteKey}
			next = next.StrongUpdate(marker, value.MakeTagged(value.ConstBool(true), value.Tag{TypeID: "heap.double_free"}))
		}
		if hadBlock && hadLayout {
			root := path.HeapBlockRoot{Value: blockVal}
			for _, bp := range next.Paths() {
				if path.IsRootedBy(bp, root) {
					next = next.Remove(bp)
				}
			}
		}
		if v.Result != nil {
			next = st.bind(next, v.Result, value.ConstBool(true))
		}
		return next

	default:
		return in
	}
}

// recordOffsetViolation checks an IndexSel access rooted at a heap block
// against that block's recorded layout and, when the oracle can prove the
// access falls outside it, binds a tagged violation marker
// probes.HeapViolationProbe later surfaces (spec §4.F offset bounds
// checking, §8 scenario). Anything else — an access not rooted in a heap
// block, or one the oracle can't decide — passes through unchanged.
func (st *State) recordOffsetViolation(in env.Environment, p path.Path) env.Environment {
	q, ok := p.(path.Qualified)
	if !ok {
		return in
	}
	idx, ok := q.Selector.(path.IndexSel)
	if !ok {
		return in
	}
	root, ok := q.Parent.(path.HeapBlockRoot)
	if !ok {
		return in
	}
	hb, ok := root.Value.Expr.(value.HeapBlock)
	if !ok {
		return in
	}
	layout, ok := st.Heap.Layout(hb.Address)
	if !ok {
		return in
	}
	check := CheckOffset(st.Oracle, in.EntryCondition, layout, idx.Value, 1)
	if check.Proven && !check.InBounds {
		marker := path.Static{Key: fmt.Sprintf("heap.offset_violation#%d", hb.Address)}
		return in.StrongUpdate(marker, value.MakeTagged(value.ConstBool(true), value.Tag{TypeID: "heap.offset_out_of_bounds"}))
	}
	return in
}

// stepStore implements the three assignment mechanisms of §4.F: an exact
// selector (ConstantIndex/ConstantSlice, or any other precise projection)
// is a single strong update since the path key itself already names the
// exact location; a SliceSel(count) target expands into per-index writes
// when count is small enough to track, or a conditional join against the
// prior value otherwise; a symbolically-indexed write is a weak update
// since it may alias other tracked indices; and whenever the stored value
// is itself a reference, every path already tracked under its pointee is
// copied across to the destination (the recursive copy/move of keys
// rooted by the source). Union-sibling members are kept byte-consistent
// through TransmuteUnionMember whenever the target is itself a union
// field.
func (st *State) stepStore(v *ir.StoreInstruction, in env.Environment) env.Environment {
	p := st.addressPath(in, v.Address)
	val := st.valueOf(in, v.Value)
	next := st.recordOffsetViolation(in, p)

	if q, ok := p.(path.Qualified); ok {
		if sel, ok := q.Selector.(path.SliceSel); ok {
			return st.expandSliceAssignment(next, q.Parent, sel, val)
		}
	}

	if isAliasingIndex(p) {
		next = next.WeakUpdate(p, val)
	} else {
		next = next.StrongUpdate(p, val)
	}
	next = st.applyUnionSiblingUpdate(next, p, val)
	next = st.copyRootedKeys(next, p, val)
	return next
}

// expandSliceAssignment is §4.F's target-pattern mechanism: writing val
// across parent[..count]. A count within the tracked-elements budget
// expands into that many exact point writes; past the budget, every
// already-tracked ConstantIndex sibling under parent is instead
// conditionally joined against its prior value on "index < count", since
// enumerating every index is no longer affordable.
func (st *State) expandSliceAssignment(in env.Environment, parent path.Path, sel path.SliceSel, val value.Value) env.Environment {
	limit := st.Cfg.MaxElementsToTrack
	if limit <= 0 {
		limit = config.DefaultMaxElementsToTrack
	}
	next := in
	if sel.Count >= 0 && sel.Count < limit {
		for i := 0; i < sel.Count; i++ {
			child := path.NewQualified(parent, path.ConstantIndex{Offset: i}, st.Cfg, nil)
			next = next.StrongUpdate(child, val)
		}
		return next
	}

	countVal := value.ConstInt(int64(sel.Count), 64, false)
	for _, bp := range next.Paths() {
		bq, ok := bp.(path.Qualified)
		if !ok || bq.Parent.PathKey() != parent.PathKey() {
			continue
		}
		ci, ok := bq.Selector.(path.ConstantIndex)
		if !ok {
			continue
		}
		old, _ := next.Get(bp)
		inBound := value.LessThan(value.ConstInt(int64(ci.Offset), 64, false), countVal)
		next = next.StrongUpdate(bp, inBound.ConditionalExpressionOf(val, old))
	}
	return next
}

// isAliasingIndex reports whether p's last selector is an IndexSel whose
// index isn't a known constant — such a write may alias any other
// currently-tracked index, so it must weak-update rather than replace
// (spec §4.D).
func isAliasingIndex(p path.Path) bool {
	q, ok := p.(path.Qualified)
	if !ok {
		return false
	}
	idx, ok := q.Selector.(path.IndexSel)
	if !ok {
		return false
	}
	_, known := idx.Value.Expr.(value.CompileTimeConstant)
	return !known
}

// applyUnionSiblingUpdate keeps every other member of the union p's
// parent denotes byte-consistent with the member just written, the way a
// union's members all alias the same storage (spec §4.F union aliasing).
// It is a no-op unless p's last selector is itself a UnionField.
func (st *State) applyUnionSiblingUpdate(in env.Environment, p path.Path, val value.Value) env.Environment {
	q, ok := p.(path.Qualified)
	if !ok {
		return in
	}
	uf, ok := q.Selector.(path.UnionField)
	if !ok {
		return in
	}
	parentType, ok := st.typeOfPath(q.Parent)
	if !ok {
		return in
	}
	u, ok := parentType.(*ir.UnionType)
	if !ok || uf.Index < 0 || uf.Index >= len(u.Members) {
		return in
	}
	next := in
	for i, m := range u.Members {
		if i == uf.Index {
			continue
		}
		transmuted, err := TransmuteUnionMember(st.Registry, parentType, val, m.Name)
		if err != nil {
			continue
		}
		siblingPath := path.NewQualified(q.Parent, path.UnionField{Index: i, Total: len(u.Members)}, st.Cfg, m.Type)
		next = next.WeakUpdate(siblingPath, transmuted)
	}
	return next
}

// copyRootedKeys is §4.F's recursive copy/move mechanism: when val is a
// reference, every path already tracked under its pointee is re-parented
// under dest, so an aggregate whose fields were independently tracked as
// separate paths keeps them all reachable through its new location too.
func (st *State) copyRootedKeys(in env.Environment, dest path.Path, val value.Value) env.Environment {
	ref, ok := val.Expr.(value.Reference)
	if !ok {
		return in
	}
	srcRoot, ok := ref.Path.(path.Path)
	if !ok {
		return in
	}
	next := in
	for _, bp := range in.Paths() {
		if bp.PathKey() == srcRoot.PathKey() || !path.IsRootedBy(bp, srcRoot) {
			continue
		}
		if bv, ok := in.Get(bp); ok {
			next = next.StrongUpdate(path.ReplaceRoot(bp, srcRoot, dest), bv)
		}
	}
	return next
}

func foldArgs(args []value.Value) value.Value {
	if len(args) == 0 {
		return value.Value{Expr: value.Top{}}
	}
	acc := args[0]
	for _, a := range args[1:] {
		acc = value.MakeFrom(value.BinaryOp{Op: "UninterpretedCall", Left: acc, Right: a}, acc.Height, a.Height)
	}
	return acc
}

func conjoinExit(in env.Environment, cond value.Value) env.Environment {
	next := in
	next.ExitCondition = value.MakeFrom(value.BinaryOp{Op: "And", Left: in.ExitCondition, Right: cond}, in.ExitCondition.Height, cond.Height)
	return next
}

func (st *State) storageSlotPath(in env.Environment, slotNum int, slot *ir.Value) path.Path {
	if slotNum >= 0 {
		return path.Static{Key: fmt.Sprintf("slot%d", slotNum)}
	}
	return path.Computed{Value: st.valueOf(in, slot)}
}

func (st *State) keyedStoragePath(in env.Environment, baseSlot int, key *ir.Value, resultType ir.Type) path.Path {
	base := path.Static{Key: fmt.Sprintf("slot%d", baseSlot)}
	keyVal := st.valueOf(in, key)
	return path.NewQualified(base, path.IndexSel{Value: keyVal}, st.Cfg, resultType)
}

func (st *State) storageAddrPath(in env.Environment, baseSlot int, keys []*ir.Value) path.Path {
	p := path.Path(path.Static{Key: fmt.Sprintf("slot%d", baseSlot)})
	for _, k := range keys {
		p = path.NewQualified(p, path.IndexSel{Value: st.valueOf(in, k)}, st.Cfg, nil)
	}
	return p
}

func (st *State) constantValue(c *ir.ConstantInstruction) value.Value {
	switch raw := c.Value.(type) {
	case bool:
		return value.ConstBool(raw)
	case string:
		return value.ConstString(raw)
	case int:
		return intConstant(int64(raw), c.Type)
	case int64:
		return intConstant(raw, c.Type)
	case *big.Int:
		bits, signed := widthOf(c.Type)
		return value.Value{Expr: value.CompileTimeConstant{Domain: value.DomainInt, Int: raw, Bits: bits, Signed: signed}}
	default:
		var t ir.Type
		if c.Result != nil {
			t = c.Result.Type
		}
		return value.MakeTypedUnknown(t, path.PhantomData{})
	}
}

func intConstant(n int64, t ir.Type) value.Value {
	bits, signed := widthOf(t)
	return value.ConstInt(n, bits, signed)
}

func widthOf(t ir.Type) (int, bool) {
	if it, ok := t.(*ir.IntType); ok {
		return it.Bits, false
	}
	return 256, false
}

// dispatchBinary recognizes both the literal source operators the AST
// carries ("+" "==" "&&" ...) and the uppercase mnemonics the compound
// assignment lowering uses ("ADD" "SUB" "MUL" "DIV" "MOD"), since both
// forms reach BinaryInstruction.Op depending on which builder path
// produced the instruction.
func dispatchBinary(op string, a, b value.Value) value.Value {
	switch op {
	case "+", "ADD":
		return value.Add(a, b)
	case "-", "SUB":
		return value.Sub(a, b)
	case "*", "MUL":
		return value.Mul(a, b)
	case "/", "DIV":
		return value.Div(a, b)
	case "%", "MOD":
		return value.Rem(a, b)
	case "&":
		return value.BitAnd(a, b)
	case "|":
		return value.BitOr(a, b)
	case "^":
		return value.BitXor(a, b)
	case "<<":
		return value.UnsignedShiftLeft(a, b)
	case ">>":
		return value.UnsignedShiftRight(a, b)
	case "==":
		return value.Equals(a, b)
	case "!=":
		eq := value.Equals(a, b)
		if bv, ok := eq.AsBoolIfKnown(); ok {
			return value.ConstBool(!bv)
		}
		return value.MakeFrom(value.UnaryOp{Op: "LogicalNot", Operand: eq}, eq.Height)
	case "<":
		return value.LessThan(a, b)
	case "<=":
		return value.LessOrEqual(a, b)
	case ">":
		return value.GreaterThan(a, b)
	case ">=":
		return value.GreaterOrEqual(a, b)
	case "&&":
		if ab, ok := a.AsBoolIfKnown(); ok {
			if !ab {
				return value.ConstBool(false)
			}
			return b
		}
		return value.MakeFrom(value.BinaryOp{Op: "&&", Left: a, Right: b}, a.Height, b.Height)
	case "||":
		if ab, ok := a.AsBoolIfKnown(); ok {
			if ab {
				return value.ConstBool(true)
			}
			return b
		}
		return value.MakeFrom(value.BinaryOp{Op: "||", Left: a, Right: b}, a.Height, b.Height)
	default:
		return value.MakeFrom(value.BinaryOp{Op: op, Left: a, Right: b}, a.Height, b.Height)
	}
}

// stepCheckedArith computes both the arithmetic result and its overflow
// flag (spec §8 arithmetic-overflow scenario): ResultOk is true exactly
// when the unbounded result fits the operand width.
func (st *State) stepCheckedArith(v *ir.CheckedArithInstruction, in env.Environment) env.Environment {
	left := st.valueOf(in, v.Left)
	right := st.valueOf(in, v.Right)

	lc, lok := left.Expr.(value.CompileTimeConstant)
	rc, rok := right.Expr.(value.CompileTimeConstant)

	next := in
	if lok && rok && lc.Domain == value.DomainInt && rc.Domain == value.DomainInt {
		var unbounded *big.Int
		switch v.Op {
		case "ADD_CHK":
			unbounded = new(big.Int).Add(lc.Int, rc.Int)
		case "SUB_CHK":
			unbounded = new(big.Int).Sub(lc.Int, rc.Int)
		case "MUL_CHK":
			unbounded = new(big.Int).Mul(lc.Int, rc.Int)
		case "DIV_CHK":
			if rc.Int.Sign() == 0 {
				next = st.bind(next, v.ResultOk, value.ConstBool(false))
				return st.bind(next, v.ResultVal, value.ConstInt(0, lc.Bits, lc.Signed))
			}
			unbounded = new(big.Int).Quo(lc.Int, rc.Int)
		default:
			unbounded = lc.Int
		}
		bits := lc.Bits
		fits := fitsWidth(unbounded, bits, lc.Signed)
		truncated := value.UnsignedModulo(value.Value{Expr: value.CompileTimeConstant{Domain: value.DomainInt, Int: unbounded, Bits: bits, Signed: lc.Signed}}, bits)
		next = st.bind(next, v.ResultVal, truncated)
		next = st.bind(next, v.ResultOk, value.ConstBool(fits))
		return next
	}

	kind := map[string]string{"ADD_CHK": "AddOverflows", "SUB_CHK": "SubOverflows", "MUL_CHK": "MulOverflows", "DIV_CHK": "Div"}[v.Op]
	resultVal := dispatchBinary(symbolicOpOf(v.Op), left, right)
	resultVal = tags.PropagateBinary(symbolicOpOf(v.Op), left, right, resultVal)
	resultOk := value.MakeFrom(value.UnaryOp{Op: kind, Operand: resultVal}, resultVal.Height)
	resultOk = tags.PropagateUnary(kind, resultVal, resultOk)
	next = st.bind(next, v.ResultVal, resultVal)
	next = st.bind(next, v.ResultOk, resultOk)
	return next
}

func symbolicOpOf(checkedOp string) string {
	switch checkedOp {
	case "ADD_CHK":
		return "Add"
	case "SUB_CHK":
		return "Sub"
	case "MUL_CHK":
		return "Mul"
	case "DIV_CHK":
		return "Div"
	default:
		return checkedOp
	}
}

func fitsWidth(n *big.Int, bits int, signed bool) bool {
	if signed {
		max := new(big.Int).Lsh(big.NewInt(1), uint(bits-1))
		min := new(big.Int).Neg(max)
		max.Sub(max, big.NewInt(1))
		return n.Cmp(min) >= 0 && n.Cmp(max) <= 0
	}
	max := new(big.Int).Lsh(big.NewInt(1), uint(bits))
	return n.Sign() >= 0 && n.Cmp(max) < 0
}

func (st *State) stepTerminator(term ir.Terminator, in env.Environment) (env.Environment, error) {
	switch v := term.(type) {
	case *ir.ReturnTerminator:
		if v.Value == nil {
			return in, nil
		}
		return in.StrongUpdate(path.Result{}, st.valueOf(in, v.Value)), nil

	case *ir.BranchTerminator:
		cond := st.valueOf(in, v.Condition)
		next := in
		next.ExitCondition = cond
		return next, nil

	case *ir.AssertTerminator:
		cond := st.valueOf(in, v.Condition)
		expected := value.ConstBool(v.Expected)
		return conjoinExit(in, value.Equals(cond, expected)), nil

	case *ir.DropTerminator:
		p := st.addressPath(in, v.Place)
		if v.Replacement != nil {
			return in.StrongUpdate(p, st.valueOf(in, v.Replacement)), nil
		}
		return in.Remove(p), nil

	case *ir.JumpTerminator, *ir.SwitchTerminator, *ir.UnreachableTerminator, *ir.RevertInstruction:
		return in, nil

	default:
		return in, nil
	}
}
