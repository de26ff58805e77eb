package value

import (
	"math/big"

	"github.com/uet-master/hepha/internal/ir"
)

// BinaryOp is the symbolic result of an arithmetic/comparison/bitwise
// operator whose operands did not both fold to constants. The builders in
// this package set Op to a TagPropagation kind name ("Add", "Sub",
// "BitAnd", ...); internal/transfer also builds BinaryOps that keep the
// source spelling ("&&", "||", or an operator it does not recognize).
type BinaryOp struct {
	Op          string
	Left, Right Value
}

func (BinaryOp) isExpression() {}
func (b BinaryOp) String() string { return "(" + b.Left.String() + " " + b.Op + " " + b.Right.String() + ")" }

// UnaryOp is the symbolic result of a unary operator (Neg, BitNot,
// LogicalNot, Cast, Transmute, Offset-as-unary) over a non-constant
// operand.
type UnaryOp struct {
	Op      string
	Operand Value
	Target  ir.Type // populated for Cast/Transmute
}

func (UnaryOp) isExpression() {}
func (u UnaryOp) String() string { return u.Op + "(" + u.Operand.String() + ")" }

func asInt(v Value) (*big.Int, int, bool, bool) {
	c, ok := v.Expr.(CompileTimeConstant)
	if !ok || c.Domain != DomainInt {
		return nil, 0, false, false
	}
	return c.Int, c.Bits, c.Signed, true
}

func foldOrBuild(op string, a, b Value, fold func(x, y *big.Int) *big.Int) Value {
	ax, bits, signed, aok := asInt(a)
	bx, _, _, bok := asInt(b)
	if aok && bok {
		return Value{Expr: CompileTimeConstant{Domain: DomainInt, Int: fold(ax, bx), Bits: bits, Signed: signed}, Height: maxHeight(a, b)}
	}
	return MakeFrom(BinaryOp{Op: op, Left: a, Right: b}, a.Height, b.Height)
}

func maxHeight(vs ...Value) int {
	h := 0
	for _, v := range vs {
		if v.Height > h {
			h = v.Height
		}
	}
	return h
}

// Add returns a + b, constant-folded when both operands are known ints.
func Add(a, b Value) Value {
	return foldOrBuild("Add", a, b, func(x, y *big.Int) *big.Int { return new(big.Int).Add(x, y) })
}

// Sub returns a - b.
func Sub(a, b Value) Value {
	return foldOrBuild("Sub", a, b, func(x, y *big.Int) *big.Int { return new(big.Int).Sub(x, y) })
}

// Mul returns a * b.
func Mul(a, b Value) Value {
	return foldOrBuild("Mul", a, b, func(x, y *big.Int) *big.Int { return new(big.Int).Mul(x, y) })
}

// Div returns a / b (truncating).
func Div(a, b Value) Value {
	return foldOrBuild("Div", a, b, func(x, y *big.Int) *big.Int {
		if y.Sign() == 0 {
			return big.NewInt(0)
		}
		return new(big.Int).Quo(x, y)
	})
}

// Rem returns a % b.
func Rem(a, b Value) Value {
	return foldOrBuild("Rem", a, b, func(x, y *big.Int) *big.Int {
		if y.Sign() == 0 {
			return big.NewInt(0)
		}
		return new(big.Int).Rem(x, y)
	})
}

// BitAnd, BitOr, BitXor implement the corresponding bitwise operators.
func BitAnd(a, b Value) Value {
	return foldOrBuild("BitAnd", a, b, func(x, y *big.Int) *big.Int { return new(big.Int).And(x, y) })
}
func BitOr(a, b Value) Value {
	return foldOrBuild("BitOr", a, b, func(x, y *big.Int) *big.Int { return new(big.Int).Or(x, y) })
}
func BitXor(a, b Value) Value {
	return foldOrBuild("BitXor", a, b, func(x, y *big.Int) *big.Int { return new(big.Int).Xor(x, y) })
}

// UnsignedShiftLeft and UnsignedShiftRight implement §4.B's named shifts.
func UnsignedShiftLeft(a, b Value) Value {
	return foldOrBuild("Shl", a, b, func(x, y *big.Int) *big.Int { return new(big.Int).Lsh(x, uint(y.Uint64())) })
}
func UnsignedShiftRight(a, b Value) Value {
	return foldOrBuild("Shr", a, b, func(x, y *big.Int) *big.Int { return new(big.Int).Rsh(x, uint(y.Uint64())) })
}

// UnsignedModulo implements the §4.B named operation used by byte-exact
// transmutation to truncate an over-wide source field into a narrower
// target field.
func UnsignedModulo(a Value, bits int) Value {
	x, _, _, ok := asInt(a)
	if !ok {
		return MakeFrom(UnaryOp{Op: "UnsignedModulo", Operand: a}, a.Height)
	}
	mod := new(big.Int).Lsh(big.NewInt(1), uint(bits))
	r := new(big.Int).Mod(x, mod)
	return Value{Expr: CompileTimeConstant{Domain: DomainInt, Int: r, Bits: bits, Signed: false}, Height: a.Height}
}

func cmp(op string, a, b Value, want func(c int) bool) Value {
	ax, _, _, aok := asInt(a)
	bx, _, _, bok := asInt(b)
	if aok && bok {
		return ConstBool(want(ax.Cmp(bx)))
	}
	return MakeFrom(BinaryOp{Op: op, Left: a, Right: b}, a.Height, b.Height)
}

// Equals, LessThan, LessOrEqual, GreaterThan, GreaterOrEqual implement the
// §4.B comparison operators; Ne is Equals negated at the call site.
func Equals(a, b Value) Value { return cmp("Equals", a, b, func(c int) bool { return c == 0 }) }
func LessThan(a, b Value) Value { return cmp("LessThan", a, b, func(c int) bool { return c < 0 }) }
func LessOrEqual(a, b Value) Value { return cmp("LessOrEqual", a, b, func(c int) bool { return c <= 0 }) }
func GreaterThan(a, b Value) Value { return cmp("GreaterThan", a, b, func(c int) bool { return c > 0 }) }
func GreaterOrEqual(a, b Value) Value { return cmp("GreaterOrEqual", a, b, func(c int) bool { return c >= 0 }) }

// AsBoolIfKnown returns (truth, true) when v is provably a known boolean
// constant, else (false, false).
func (v Value) AsBoolIfKnown() (bool, bool) {
	if c, ok := v.Expr.(CompileTimeConstant); ok && c.Domain == DomainBool {
		return c.Bool, true
	}
	return false, false
}

// ImpliesValue reports whether v, taken as a boolean condition, provably
// implies other. Only the trivial cases (identical conditions, known
// constants) are decided here; anything else is left to the condition
// oracle in internal/smt.
func (v Value) ImpliesValue(other Value) bool {
	if b, ok := v.AsBoolIfKnown(); ok && !b {
		return true // FALSE implies anything
	}
	if b, ok := other.AsBoolIfKnown(); ok && b {
		return true // anything implies TRUE
	}
	return v.structurallyEqual(other)
}

// ImpliesNot reports whether v provably implies not(other).
func (v Value) ImpliesNot(other Value) bool {
	if b, ok := v.AsBoolIfKnown(); ok && !b {
		return true
	}
	if b, ok := other.AsBoolIfKnown(); ok && !b {
		return true
	}
	return false
}

func (v Value) structurallyEqual(other Value) bool {
	return v.String() == other.String()
}

// RefineWith specializes v under path condition cond, bumping depth. A
// Variable or InitialParameterValue is left untouched (it has no
// sub-structure to specialize); composite expressions recurse into their
// operands. This mirrors the teacher-adjacent idea of refinement without
// requiring a full constraint solver for every shape.
func (v Value) RefineWith(cond Value, depth int) Value {
	if depth <= 0 {
		return v
	}
	switch e := v.Expr.(type) {
	case ConditionalExpression:
		if cond.structurallyEqual(e.Condition) {
			return e.Consequent
		}
		if cond.ImpliesNot(e.Condition) {
			return e.Alternate
		}
		return MakeFrom(ConditionalExpression{
			Condition:  e.Condition,
			Consequent: e.Consequent.RefineWith(cond, depth-1),
			Alternate:  e.Alternate.RefineWith(cond, depth-1),
		}, e.Consequent.Height, e.Alternate.Height)
	case BinaryOp:
		return MakeFrom(BinaryOp{Op: e.Op, Left: e.Left.RefineWith(cond, depth-1), Right: e.Right.RefineWith(cond, depth-1)}, e.Left.Height, e.Right.Height)
	case Tagged:
		return e.Operand.RefineWith(cond, depth-1).AddTag(e.Tag)
	default:
		return v
	}
}

// RefineParametersAndPaths is the call-inlining workhorse (spec §4.F): it
// substitutes every parameter-rooted path/value with the caller-side
// actual argument, and rewrites every other path through substPath (which
// the caller implements with internal/path.RefineParametersAndPaths so
// that locals get a fresh variable offset per call site).
func (v Value) RefineParametersAndPaths(substPath func(PathRef) PathRef, substValue func(Value) Value, depth int) Value {
	if depth <= 0 {
		return v
	}
	switch e := v.Expr.(type) {
	case InitialParameterValue:
		return substValue(v)
	case Variable:
		return Value{Expr: Variable{Path: substPath(e.Path), Type: e.Type}, Height: v.Height}
	case Reference:
		return Value{Expr: Reference{Path: substPath(e.Path)}, Height: v.Height}
	case BinaryOp:
		return MakeFrom(BinaryOp{Op: e.Op, Left: e.Left.RefineParametersAndPaths(substPath, substValue, depth-1), Right: e.Right.RefineParametersAndPaths(substPath, substValue, depth-1)}, e.Left.Height, e.Right.Height)
	case UnaryOp:
		return MakeFrom(UnaryOp{Op: e.Op, Operand: e.Operand.RefineParametersAndPaths(substPath, substValue, depth-1), Target: e.Target}, e.Operand.Height)
	case Tagged:
		return e.Operand.RefineParametersAndPaths(substPath, substValue, depth-1).AddTag(e.Tag)
	case ConditionalExpression:
		return MakeFrom(ConditionalExpression{
			Condition:  e.Condition.RefineParametersAndPaths(substPath, substValue, depth-1),
			Consequent: e.Consequent.RefineParametersAndPaths(substPath, substValue, depth-1),
			Alternate:  e.Alternate.RefineParametersAndPaths(substPath, substValue, depth-1),
		}, e.Consequent.Height, e.Alternate.Height)
	case UninterpretedCall:
		args := make([]Value, len(e.Args))
		for i, a := range e.Args {
			args[i] = a.RefineParametersAndPaths(substPath, substValue, depth-1)
		}
		return Value{Expr: UninterpretedCall{Callee: e.Callee, Args: args, ResultType: e.ResultType, Path: substPath(e.Path)}, Height: v.Height}
	default:
		return v
	}
}

// ConditionalExpressionOf builds "if v then consequent else alternate",
// collapsing to the matching branch when v is a known boolean.
func (v Value) ConditionalExpressionOf(consequent, alternate Value) Value {
	if b, ok := v.AsBoolIfKnown(); ok {
		if b {
			return consequent
		}
		return alternate
	}
	return MakeFrom(ConditionalExpression{Condition: v, Consequent: consequent, Alternate: alternate}, consequent.Height, alternate.Height)
}

// Transmute widens/truncates v according to target's bit width (spec
// §4.B). A reference transmuted to a pointer-width integer preserves the
// underlying heap identity by returning an Offset naming the same heap
// block's address as the low bits — exact alignment-preserving behavior
// is implemented in internal/transfer, which knows about heap blocks;
// here we only handle the bit-width conversion of known integers and the
// generic symbolic fallback.
func (v Value) Transmute(target ir.Type) Value {
	it, ok := target.(*ir.IntType)
	if !ok {
		return MakeFrom(UnaryOp{Op: "Transmute", Operand: v, Target: target}, v.Height)
	}
	if x, bits, signed, ok := asInt(v); ok {
		_ = bits
		_ = signed
		return UnsignedModulo(Value{Expr: CompileTimeConstant{Domain: DomainInt, Int: x, Bits: it.Bits, Signed: signed}}, it.Bits)
	}
	return MakeFrom(UnaryOp{Op: "Transmute", Operand: v, Target: target}, v.Height)
}
