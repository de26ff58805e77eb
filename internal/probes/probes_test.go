package probes

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uet-master/hepha/internal/env"
	"github.com/uet-master/hepha/internal/ir"
	"github.com/uet-master/hepha/internal/path"
	"github.com/uet-master/hepha/internal/value"
)

func u64() *ir.IntType { return &ir.IntType{Bits: 64} }

func wireUses(fn *ir.Function) {
	for _, b := range fn.Blocks {
		for _, instr := range b.Instructions {
			for _, op := range instr.GetOperands() {
				if op == nil {
					continue
				}
				op.Uses = append(op.Uses, &ir.Use{Value: op, User: instr, Block: b})
			}
		}
		if b.Terminator != nil {
			for _, op := range b.Terminator.GetOperands() {
				if op == nil {
					continue
				}
				op.Uses = append(op.Uses, &ir.Use{Value: op, User: b.Terminator, Block: b})
			}
		}
	}
}

func TestReentrancyProbeFlagsWriteAfterTransfer(t *testing.T) {
	balance := &ir.Value{ID: 0, Type: u64()}
	amount := &ir.Value{ID: 1, Type: u64()}
	newBalance := &ir.Value{ID: 2, Type: u64()}

	callBlock := &ir.BasicBlock{Label: "bb0", Instructions: []ir.Instruction{
		&ir.CallInstruction{ID: 10, Function: "Evm.transfer", Args: []*ir.Value{amount}},
	}}
	updateBlock := &ir.BasicBlock{Label: "bb1", Instructions: []ir.Instruction{
		&ir.BinaryInstruction{ID: 11, Result: newBalance, Op: "-", Left: balance, Right: amount},
	}}
	fn := &ir.Function{Name: "withdraw", Blocks: []*ir.BasicBlock{callBlock, updateBlock}}

	st := NewBodyState(fn, "c.ka", nil)
	st.BalanceVariable = path.Local{Index: 0, Type: u64()}

	p := NewReentrancyProbe(st)
	assert.True(t, p.Check())
}

func TestReentrancyProbeClearWhenNoTransfer(t *testing.T) {
	fn := &ir.Function{Name: "pure", Blocks: []*ir.BasicBlock{{Label: "bb0"}}}
	st := NewBodyState(fn, "c.ka", nil)
	st.BalanceVariable = path.Local{Index: 0, Type: u64()}

	assert.False(t, NewReentrancyProbe(st).Check())
}

func TestBadRandomnessProbeFlagsBlockhashIntoBranch(t *testing.T) {
	seed := &ir.Value{ID: 0, Type: u64()}
	block := &ir.BasicBlock{Label: "bb0"}
	block.Instructions = []ir.Instruction{
		&ir.CallInstruction{ID: 10, Result: seed, Function: "Evm.blockhash"},
	}
	block.Terminator = &ir.BranchTerminator{ID: 11, Condition: seed}
	fn := &ir.Function{Name: "lottery", Blocks: []*ir.BasicBlock{block}}
	wireUses(fn)

	st := NewBodyState(fn, "c.ka", nil)
	assert.True(t, NewBadRandomnessProbe(st).Check())
}

func TestBadRandomnessProbeFlagsModulusEvenWithoutBranch(t *testing.T) {
	seed := &ir.Value{ID: 0, Type: u64()}
	winner := &ir.Value{ID: 1, Type: u64()}
	n := &ir.Value{ID: 2, Type: u64()}
	block := &ir.BasicBlock{Label: "bb0"}
	block.Instructions = []ir.Instruction{
		&ir.CallInstruction{ID: 10, Result: seed, Function: "Block.difficulty"},
		&ir.BinaryInstruction{ID: 11, Result: winner, Op: "%", Left: seed, Right: n},
	}
	// note: Right must be the seed for the modulus heuristic; swap roles
	block.Instructions[1] = &ir.BinaryInstruction{ID: 11, Result: winner, Op: "MOD", Left: n, Right: seed}
	fn := &ir.Function{Name: "pick", Blocks: []*ir.BasicBlock{block}}
	wireUses(fn)

	st := NewBodyState(fn, "c.ka", nil)
	assert.True(t, NewBadRandomnessProbe(st).Check())
}

func TestTimeManipulationProbeFlagsTimestampIntoBranch(t *testing.T) {
	ts := &ir.Value{ID: 0, Type: u64()}
	block := &ir.BasicBlock{Label: "bb0"}
	block.Instructions = []ir.Instruction{
		&ir.CallInstruction{ID: 10, Result: ts, Function: "Context.timestamp"},
	}
	block.Terminator = &ir.BranchTerminator{ID: 11, Condition: ts}
	fn := &ir.Function{Name: "deadline", Blocks: []*ir.BasicBlock{block}}
	wireUses(fn)

	st := NewBodyState(fn, "c.ka", nil)
	assert.True(t, NewTimeManipulationProbe(st).Check())
}

func TestNumericalPrecisionProbeFlagsDivThenMul(t *testing.T) {
	a := &ir.Value{ID: 0, Type: u64()}
	b := &ir.Value{ID: 1, Type: u64()}
	c := &ir.Value{ID: 2, Type: u64()}
	ratio := &ir.Value{ID: 3, Type: u64()}
	scaled := &ir.Value{ID: 4, Type: u64()}

	block := &ir.BasicBlock{Label: "bb0"}
	block.Instructions = []ir.Instruction{
		&ir.BinaryInstruction{ID: 10, Result: ratio, Op: "/", Left: a, Right: b},
		&ir.BinaryInstruction{ID: 11, Result: scaled, Op: "*", Left: ratio, Right: c},
	}
	fn := &ir.Function{Name: "share", Blocks: []*ir.BasicBlock{block}}
	wireUses(fn)

	st := NewBodyState(fn, "c.ka", nil)
	assert.True(t, NewNumericalPrecisionProbe(st).Check())
}

func TestNumericalPrecisionProbeClearWhenMulComesFirst(t *testing.T) {
	a := &ir.Value{ID: 0, Type: u64()}
	b := &ir.Value{ID: 1, Type: u64()}
	c := &ir.Value{ID: 2, Type: u64()}
	scaled := &ir.Value{ID: 3, Type: u64()}
	ratio := &ir.Value{ID: 4, Type: u64()}

	block := &ir.BasicBlock{Label: "bb0"}
	block.Instructions = []ir.Instruction{
		&ir.BinaryInstruction{ID: 10, Result: scaled, Op: "*", Left: a, Right: c},
		&ir.BinaryInstruction{ID: 11, Result: ratio, Op: "/", Left: scaled, Right: b},
	}
	fn := &ir.Function{Name: "share_safe", Blocks: []*ir.BasicBlock{block}}
	wireUses(fn)

	st := NewBodyState(fn, "c.ka", nil)
	assert.False(t, NewNumericalPrecisionProbe(st).Check())
}

func TestOverflowProbeFlagsStaticallyKnownOverflow(t *testing.T) {
	resVal := &ir.Value{ID: 0, Type: &ir.IntType{Bits: 8}}
	resOk := &ir.Value{ID: 1, Type: &ir.BoolType{}}
	block := &ir.BasicBlock{Label: "bb0"}
	block.Instructions = []ir.Instruction{
		&ir.CheckedArithInstruction{ID: 10, ResultVal: resVal, ResultOk: resOk, Op: "ADD_CHK"},
	}
	fn := &ir.Function{Name: "add_checked", Blocks: []*ir.BasicBlock{block}}

	out := map[string]env.Environment{
		"bb0": env.New().StrongUpdate(path.Local{Index: 1, Type: &ir.BoolType{}}, value.ConstBool(false)),
	}
	st := NewBodyState(fn, "c.ka", out)
	require.True(t, NewOverflowProbe(st).Check())
}

func TestOverflowProbeClearWhenUnknown(t *testing.T) {
	resVal := &ir.Value{ID: 0, Type: &ir.IntType{Bits: 8}}
	resOk := &ir.Value{ID: 1, Type: &ir.BoolType{}}
	block := &ir.BasicBlock{Label: "bb0"}
	block.Instructions = []ir.Instruction{
		&ir.CheckedArithInstruction{ID: 10, ResultVal: resVal, ResultOk: resOk, Op: "ADD_CHK"},
	}
	fn := &ir.Function{Name: "add_checked", Blocks: []*ir.BasicBlock{block}}

	st := NewBodyState(fn, "c.ka", map[string]env.Environment{"bb0": env.New()})
	assert.False(t, NewOverflowProbe(st).Check())
}

func TestConstantTimeProbeFlagsTaggedExitCondition(t *testing.T) {
	fn := &ir.Function{Name: "secret_branch", Blocks: []*ir.BasicBlock{{Label: "bb0"}}}
	tagged := value.ConstBool(true).AddTag(value.Tag{TypeID: "Secret"})
	e := env.New()
	e.ExitCondition = tagged

	st := NewBodyState(fn, "c.ka", map[string]env.Environment{"bb0": e})
	assert.True(t, NewConstantTimeProbe(st, "Secret").Check())
}

func TestInferBalanceVariablePrefersNameMatch(t *testing.T) {
	storage := []*ir.StorageSlot{
		{Slot: 0, Name: "owner", Type: u64()},
		{Slot: 1, Name: "balances", Type: u64()},
	}
	got := InferBalanceVariable(storage)
	require.NotNil(t, got)
	assert.Equal(t, "balances", got.(path.Static).Key)
}

func TestInferBalanceVariableFallsBackToFirstSlot(t *testing.T) {
	storage := []*ir.StorageSlot{{Slot: 0, Name: "owner", Type: u64()}}
	got := InferBalanceVariable(storage)
	require.NotNil(t, got)
	assert.Equal(t, "owner", got.(path.Static).Key)
}

func TestInferBalanceVariableNilWhenNoStorage(t *testing.T) {
	assert.Nil(t, InferBalanceVariable(nil))
}

func TestAllIncludesConstantTimeProbeOnlyWhenRequested(t *testing.T) {
	fn := &ir.Function{Name: "f", Blocks: []*ir.BasicBlock{{Label: "bb0"}}}
	st := NewBodyState(fn, "c.ka", nil)

	assert.Len(t, All(st, ""), 5)
	assert.Len(t, All(st, "Secret"), 6)
}
