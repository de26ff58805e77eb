// Package probes implements the five vulnerability probes named by the
// overview (reentrancy, time manipulation, bad randomness, numerical
// precision, arithmetic overflow), the heap double-free/offset-bounds
// probes consuming internal/heap and internal/transfer's tagged findings,
// plus the --constant-time probe that resolves spec.md's second Open
// Question. Each probe is grounded in
// original_source/checker/src/contract_errors.rs's per-class checkers:
// that file's ReentrancyChecker pattern-matches raw MIR places and
// statements rather than re-deriving everything from the abstract
// environment, and these probes follow the same style — they read
// BodyState's raw instruction/block bookkeeping first, falling back to
// the converged Environment (internal/env) only where a probe genuinely
// needs a computed value (overflow, constant-time taint).
package probes

import (
	"strings"

	"github.com/uet-master/hepha/internal/diagnostics"
	"github.com/uet-master/hepha/internal/env"
	"github.com/uet-master/hepha/internal/ir"
	"github.com/uet-master/hepha/internal/path"
	"github.com/uet-master/hepha/internal/value"
)

// Probe is the common shape every vulnerability check implements (spec
// §6): Check runs the detection and caches the span of whatever it
// found, Span returns it.
type Probe interface {
	Check() bool
	Span() diagnostics.Span
}

// BodyState is the long-lived, per-function scratch state the probes
// read, populated once a function's fixed point has converged — the Go
// analogue of checker/src/body_visitor.rs's public fields.
type BodyState struct {
	Function *ir.Function
	File     string

	// Order lists every block's label in builder order; Index is its
	// inverse, used the way contract_errors.rs compares `bb <= last_bb`.
	Order []string
	Index map[string]int

	BlockStatements  map[string][]ir.Instruction
	LamportTransfers map[string]*ir.CallInstruction

	// BalanceVariable is the local the body visitor believes holds a
	// user's balance (e.g. the operand of a storage load feeding a
	// lamport-transfer call's amount argument); nil when no such local
	// was identified, in which case ReentrancyProbe degrades to "not
	// found" rather than false-positive.
	BalanceVariable path.Path

	// Out is every block's exit Environment from the converged fixed
	// point (internal/fixpoint.Result.Out), keyed by label.
	Out map[string]env.Environment
}

// NewBodyState walks fn's blocks once, recording statement lists and any
// call that looks like an external value transfer.
func NewBodyState(fn *ir.Function, file string, out map[string]env.Environment) *BodyState {
	st := &BodyState{
		Function:         fn,
		File:             file,
		Index:            make(map[string]int),
		BlockStatements:  make(map[string][]ir.Instruction),
		LamportTransfers: make(map[string]*ir.CallInstruction),
		Out:              out,
	}
	for i, b := range fn.Blocks {
		st.Order = append(st.Order, b.Label)
		st.Index[b.Label] = i
		st.BlockStatements[b.Label] = b.Instructions
		for _, instr := range b.Instructions {
			if call, ok := instr.(*ir.CallInstruction); ok && isValueTransfer(call.Function) {
				st.LamportTransfers[b.Label] = call
			}
		}
	}
	return st
}

func isValueTransfer(name string) bool {
	lower := strings.ToLower(name)
	switch {
	case strings.Contains(lower, "transfer"):
		return true
	case strings.Contains(lower, "send"):
		return true
	case strings.HasSuffix(lower, ".call"):
		return true
	default:
		return false
	}
}

func localKey(v *ir.Value) string {
	if v == nil {
		return ""
	}
	return path.Local{Index: v.ID, Type: v.Type}.PathKey()
}

// touchesPath reports whether instr reads or writes the local identified
// by key, the Go equivalent of comparing two mir::Place.local values.
func touchesPath(instr ir.Instruction, key string) bool {
	if key == "" {
		return false
	}
	if r := instr.GetResult(); r != nil && localKey(r) == key {
		return true
	}
	for _, op := range instr.GetOperands() {
		if localKey(op) == key {
			return true
		}
	}
	return false
}

// flowsIntoGuard walks v's SSA def-use chain (ir.Value.Uses) looking for
// any use by a terminator — a branch condition, switch value, or assert
// condition all count, since all three gate control flow on v.
func flowsIntoGuard(v *ir.Value) bool {
	seen := make(map[int]bool)
	var walk func(v *ir.Value) bool
	walk = func(v *ir.Value) bool {
		if v == nil || seen[v.ID] {
			return false
		}
		seen[v.ID] = true
		for _, u := range v.Uses {
			if u.User == nil {
				continue
			}
			if u.User.IsTerminator() {
				return true
			}
			if r := u.User.GetResult(); r != nil && walk(r) {
				return true
			}
		}
		return false
	}
	return walk(v)
}

// flowsIntoModulus reports whether v is ever used as the divisor operand
// of a modulo/remainder instruction — the "seed % n" pattern that turns
// a weak randomness source into an attacker-predictable index even when
// it never reaches a branch.
func flowsIntoModulus(v *ir.Value) bool {
	if v == nil {
		return false
	}
	for _, u := range v.Uses {
		bin, ok := u.User.(*ir.BinaryInstruction)
		if !ok {
			continue
		}
		if (bin.Op == "%" || bin.Op == "MOD") && bin.Right == v {
			return true
		}
	}
	return false
}

func spanFor(file string) diagnostics.Span { return diagnostics.Span{File: file} }

// ReentrancyProbe flags a LOAD-then-external-call-then-STORE/arithmetic
// pattern against the same balance local, grounded directly on
// contract_errors.rs's ReentrancyChecker.check(): once an external value
// transfer has happened, any later block that still reads or writes the
// balance local before the function returns is flagged, since an
// attacker-controlled callee can re-enter before the balance update
// lands.
type ReentrancyProbe struct {
	St   *BodyState
	span diagnostics.Span
}

func NewReentrancyProbe(st *BodyState) *ReentrancyProbe { return &ReentrancyProbe{St: st} }

func (p *ReentrancyProbe) Check() bool {
	if len(p.St.LamportTransfers) == 0 || p.St.BalanceVariable == nil {
		return false
	}
	lastIdx := -1
	for label := range p.St.LamportTransfers {
		if idx := p.St.Index[label]; idx > lastIdx {
			lastIdx = idx
		}
	}
	want := p.St.BalanceVariable.PathKey()
	for _, label := range p.St.Order {
		if p.St.Index[label] <= lastIdx {
			continue
		}
		for _, instr := range p.St.BlockStatements[label] {
			if touchesPath(instr, want) {
				p.span = spanFor(p.St.File)
				return true
			}
		}
	}
	return false
}

func (p *ReentrancyProbe) Span() diagnostics.Span { return p.span }

// weakRandomnessSources names call targets whose result is attacker- or
// validator-influenceable and therefore unsafe as a randomness seed
// (spec's bad-randomness class, grounded on the fixture names under
// contracts/bad_randomness/ — block hash and difficulty are the
// textbook weak sources for this kind of contract).
var weakRandomnessSources = []string{"blockhash", "block.hash", "difficulty", "block.difficulty", "prevrandao"}

func isWeakRandomnessSource(name string) bool {
	lower := strings.ToLower(name)
	for _, s := range weakRandomnessSources {
		if strings.Contains(lower, s) {
			return true
		}
	}
	return false
}

// BadRandomnessProbe flags a weak randomness source whose result either
// reaches a branch guard (an outcome an attacker can bias by choosing
// when to transact) or is reduced with modulo (a lottery/shuffle index).
type BadRandomnessProbe struct {
	St   *BodyState
	span diagnostics.Span
}

func NewBadRandomnessProbe(st *BodyState) *BadRandomnessProbe { return &BadRandomnessProbe{St: st} }

func (p *BadRandomnessProbe) Check() bool {
	for _, label := range p.St.Order {
		for _, instr := range p.St.BlockStatements[label] {
			call, ok := instr.(*ir.CallInstruction)
			if !ok || call.Result == nil || !isWeakRandomnessSource(call.Function) {
				continue
			}
			if flowsIntoGuard(call.Result) || flowsIntoModulus(call.Result) {
				p.span = spanFor(p.St.File)
				return true
			}
		}
	}
	return false
}

func (p *BadRandomnessProbe) Span() diagnostics.Span { return p.span }

// timeSources names call targets that read block-supplied time, which a
// block producer can nudge within the consensus-allowed drift window.
var timeSources = []string{"timestamp", "block.time", "now("}

func isTimeSource(name string) bool {
	lower := strings.ToLower(name)
	for _, s := range timeSources {
		if strings.Contains(lower, s) {
			return true
		}
	}
	return false
}

// TimeManipulationProbe flags a block timestamp read whose value reaches
// a branch guard — a miner/validator can shift the timestamp within the
// protocol's slack and flip that branch.
type TimeManipulationProbe struct {
	St   *BodyState
	span diagnostics.Span
}

func NewTimeManipulationProbe(st *BodyState) *TimeManipulationProbe {
	return &TimeManipulationProbe{St: st}
}

func (p *TimeManipulationProbe) Check() bool {
	for _, label := range p.St.Order {
		for _, instr := range p.St.BlockStatements[label] {
			call, ok := instr.(*ir.CallInstruction)
			if !ok || call.Result == nil || !isTimeSource(call.Function) {
				continue
			}
			if flowsIntoGuard(call.Result) {
				p.span = spanFor(p.St.File)
				return true
			}
		}
	}
	return false
}

func (p *TimeManipulationProbe) Span() diagnostics.Span { return p.span }

func isDivOp(op string) bool { return op == "/" || op == "DIV" }
func isMulOp(op string) bool { return op == "*" || op == "MUL" }

// NumericalPrecisionProbe flags the classic division-before-multiplication
// ordering: `(a / b) * c` truncates before scaling back up and loses
// precision a reordered `(a * c) / b` would have kept.
type NumericalPrecisionProbe struct {
	St   *BodyState
	span diagnostics.Span
}

func NewNumericalPrecisionProbe(st *BodyState) *NumericalPrecisionProbe {
	return &NumericalPrecisionProbe{St: st}
}

func (p *NumericalPrecisionProbe) Check() bool {
	for _, label := range p.St.Order {
		for _, instr := range p.St.BlockStatements[label] {
			div, ok := instr.(*ir.BinaryInstruction)
			if !ok || !isDivOp(div.Op) || div.Result == nil {
				continue
			}
			for _, u := range div.Result.Uses {
				if mul, ok := u.User.(*ir.BinaryInstruction); ok && isMulOp(mul.Op) {
					p.span = spanFor(p.St.File)
					return true
				}
			}
		}
	}
	return false
}

func (p *NumericalPrecisionProbe) Span() diagnostics.Span { return p.span }

// OverflowProbe flags a CheckedArithInstruction whose ResultOk flag
// converged to a statically-known false in the exit environment — the
// analyzer has proven the operation always overflows on every path that
// reaches it, directly consuming internal/transfer's checked-arithmetic
// width modeling.
type OverflowProbe struct {
	St   *BodyState
	span diagnostics.Span
}

func NewOverflowProbe(st *BodyState) *OverflowProbe { return &OverflowProbe{St: st} }

func (p *OverflowProbe) Check() bool {
	for _, label := range p.St.Order {
		e, ok := p.St.Out[label]
		if !ok {
			continue
		}
		for _, instr := range p.St.BlockStatements[label] {
			ca, ok := instr.(*ir.CheckedArithInstruction)
			if !ok || ca.ResultOk == nil {
				continue
			}
			v, ok := e.Get(path.Local{Index: ca.ResultOk.ID, Type: ca.ResultOk.Type})
			if !ok {
				continue
			}
			if b, known := v.AsBoolIfKnown(); known && !b {
				p.span = spanFor(p.St.File)
				return true
			}
		}
	}
	return false
}

func (p *OverflowProbe) Span() diagnostics.Span { return p.span }

// ConstantTimeProbe resolves spec.md's second Open Question: it flags
// any flow of a value tagged with TypeName into a branch guard, read off
// each block's converged ExitCondition (internal/transfer sets
// ExitCondition from the literal branch condition value, which still
// carries whatever tags its computation propagated).
type ConstantTimeProbe struct {
	St       *BodyState
	TypeName string
	span     diagnostics.Span
}

func NewConstantTimeProbe(st *BodyState, typeName string) *ConstantTimeProbe {
	return &ConstantTimeProbe{St: st, TypeName: typeName}
}

func (p *ConstantTimeProbe) Check() bool {
	tag := value.Tag{TypeID: p.TypeName}
	for _, label := range p.St.Order {
		e, ok := p.St.Out[label]
		if !ok {
			continue
		}
		if e.ExitCondition.HasTag(tag) {
			p.span = spanFor(p.St.File)
			return true
		}
	}
	return false
}

func (p *ConstantTimeProbe) Span() diagnostics.Span { return p.span }

// HeapViolationProbe flags any environment path left carrying typeID by
// the fixed point's converged exit environments — internal/transfer tags
// a marker binding with "heap.double_free" when a DeAlloc call site
// revisits an already-freed block, and with "heap.offset_out_of_bounds"
// when CheckOffset proves an indexed heap access falls outside its
// block's recorded layout (spec §4.F, §8 double-free/offset scenarios).
// The transfer engine never returns a Go error for either condition (spec
// §7); this probe is how a converged finding actually surfaces.
type HeapViolationProbe struct {
	St     *BodyState
	TypeID string
	span   diagnostics.Span
}

func NewHeapViolationProbe(st *BodyState, typeID string) *HeapViolationProbe {
	return &HeapViolationProbe{St: st, TypeID: typeID}
}

func (p *HeapViolationProbe) Check() bool {
	tag := value.Tag{TypeID: p.TypeID}
	for _, label := range p.St.Order {
		e, ok := p.St.Out[label]
		if !ok {
			continue
		}
		for _, bp := range e.Paths() {
			v, ok := e.Get(bp)
			if ok && v.HasTag(tag) {
				p.span = spanFor(p.St.File)
				return true
			}
		}
	}
	return false
}

func (p *HeapViolationProbe) Span() diagnostics.Span { return p.span }

// All returns every probe wired up against st, in the fixed order the
// overview names the five vulnerability classes, then the two heap
// violation probes (double free, offset out of bounds), plus the
// constant-time probe last when typeName is non-empty (--constant-time
// was passed).
func All(st *BodyState, typeName string) []Probe {
	probes := []Probe{
		NewReentrancyProbe(st),
		NewTimeManipulationProbe(st),
		NewBadRandomnessProbe(st),
		NewNumericalPrecisionProbe(st),
		NewOverflowProbe(st),
		NewHeapViolationProbe(st, "heap.double_free"),
		NewHeapViolationProbe(st, "heap.offset_out_of_bounds"),
	}
	if typeName != "" {
		probes = append(probes, NewConstantTimeProbe(st, typeName))
	}
	return probes
}

// InferBalanceVariable guesses which storage slot ReentrancyProbe should
// watch, the way contract_errors.rs's check() is always called against a
// single known-in-advance "balance" mir::Place: it looks for a storage
// slot whose name mentions "balance", falling back to the first slot
// declared on the contract when none matches so the probe still has a
// concrete target on contracts that name the field differently.
func InferBalanceVariable(storage []*ir.StorageSlot) path.Path {
	for _, slot := range storage {
		if strings.Contains(strings.ToLower(slot.Name), "balance") {
			return path.Static{Key: slot.Name, Type: slot.Type}
		}
	}
	if len(storage) > 0 {
		return path.Static{Key: storage[0].Name, Type: storage[0].Type}
	}
	return nil
}
