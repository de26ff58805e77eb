// Package value implements the abstract value algebra (spec §3, §4.B): a
// symbolic over-approximation of a runtime value, paired with a height that
// bounds recursion depth so join/widen terminate.
package value

import (
	"fmt"
	"math/big"

	"github.com/uet-master/hepha/internal/config"
	"github.com/uet-master/hepha/internal/ir"
)

// PathRef is the minimal surface a symbolic path must expose so that a
// Value can name one (InitialParameterValue, Variable, Reference) without
// this package importing internal/path — internal/path already needs to
// hold Values (HeapBlock roots, Computed roots, Offset roots), so the
// dependency can only run one way.
type PathRef interface {
	PathKey() string
	String() string
}

// Expression is the closed sum of value shapes from spec §3.
type Expression interface {
	isExpression()
	String() string
}

// Value is (expression, height). Height increases on every non-trivial
// combination; operations that would exceed config.MaxExpressionHeight
// fall back to a typed unknown (spec §4.B).
type Value struct {
	Expr   Expression
	Height int
}

func (v Value) String() string {
	if v.Expr == nil {
		return "<nil>"
	}
	return v.Expr.String()
}

// IsTop reports whether v is the Top expression.
func (v Value) IsTop() bool { _, ok := v.Expr.(Top); return ok }

// IsBottom reports whether v is the Bottom expression.
func (v Value) IsBottom() bool { _, ok := v.Expr.(Bottom); return ok }

// --- Expression variants -------------------------------------------------

// Top is the universal over-approximation: "could be anything".
type Top struct{}

func (Top) isExpression() {}
func (Top) String() string { return "TOP" }

// Bottom is the empty abstract value: "this code is unreachable".
type Bottom struct{}

func (Bottom) isExpression() {}
func (Bottom) String() string { return "BOTTOM" }

// ConstantDomain discriminates CompileTimeConstant payloads.
type ConstantDomain int

const (
	DomainBool ConstantDomain = iota
	DomainInt
	DomainChar
	DomainString
	DomainFunctionRef
)

// CompileTimeConstant is a literal value known at analysis time.
type CompileTimeConstant struct {
	Domain   ConstantDomain
	Bool     bool
	Int      *big.Int
	Bits     int
	Signed   bool
	Char     rune
	Str      string
	FuncName string
}

func (CompileTimeConstant) isExpression() {}
func (c CompileTimeConstant) String() string {
	switch c.Domain {
	case DomainBool:
		return fmt.Sprintf("%t", c.Bool)
	case DomainInt:
		return fmt.Sprintf("%s_%s%d", c.Int.String(), signedPrefix(c.Signed), c.Bits)
	case DomainChar:
		return fmt.Sprintf("%q", c.Char)
	case DomainString:
		return fmt.Sprintf("%q", c.Str)
	case DomainFunctionRef:
		return "fn:" + c.FuncName
	default:
		return "<const>"
	}
}

func signedPrefix(signed bool) string {
	if signed {
		return "i"
	}
	return "u"
}

// ConstInt builds an integer CompileTimeConstant.
func ConstInt(n int64, bits int, signed bool) Value {
	return Value{Expr: CompileTimeConstant{Domain: DomainInt, Int: big.NewInt(n), Bits: bits, Signed: signed}}
}

// ConstBool builds a boolean CompileTimeConstant.
func ConstBool(b bool) Value {
	return Value{Expr: CompileTimeConstant{Domain: DomainBool, Bool: b}}
}

// ConstString builds a string CompileTimeConstant.
func ConstString(s string) Value {
	return Value{Expr: CompileTimeConstant{Domain: DomainString, Str: s}}
}

// InitialParameterValue is the symbolic input value of a parameter at
// function entry.
type InitialParameterValue struct {
	Path PathRef
	Type ir.Type
}

func (InitialParameterValue) isExpression() {}
func (p InitialParameterValue) String() string { return "param(" + p.Path.String() + ")" }

// Variable is an unknown whose identity is the path itself.
type Variable struct {
	Path PathRef
	Type ir.Type
}

func (Variable) isExpression() {}
func (v Variable) String() string { return "var(" + v.Path.String() + ")" }

// Reference is a pointer-like value naming the path it points to.
type Reference struct {
	Path PathRef
}

func (Reference) isExpression() {}
func (r Reference) String() string { return "&" + r.Path.String() }

// HeapBlockSource discriminates how a HeapBlockLayout came to be.
type HeapBlockSource int

const (
	SourceAlloc HeapBlockSource = iota
	SourceReAlloc
	SourceDeAlloc
)

func (s HeapBlockSource) String() string {
	switch s {
	case SourceAlloc:
		return "alloc"
	case SourceReAlloc:
		return "realloc"
	case SourceDeAlloc:
		return "dealloc"
	default:
		return "?"
	}
}

// HeapBlock is the analyzer's symbolic handle to one allocation site,
// independent of runtime address (spec glossary).
type HeapBlock struct {
	Address  int // allocation-site counter, unique within the analysis
	IsZeroed bool
}

func (HeapBlock) isExpression() {}
func (h HeapBlock) String() string { return fmt.Sprintf("heap#%d", h.Address) }

// HeapBlockLayout records the length/alignment a HeapBlock was most
// recently allocated, reallocated or deallocated with.
type HeapBlockLayout struct {
	Length    Value
	Alignment int
	Source    HeapBlockSource
}

func (HeapBlockLayout) isExpression() {}
func (l HeapBlockLayout) String() string {
	return fmt.Sprintf("layout(len=%s,align=%d,%s)", l.Length, l.Alignment, l.Source)
}

// Offset is pointer arithmetic: left (a pointer) shifted by right.
type Offset struct {
	Left  Value
	Right Value
}

func (Offset) isExpression() {}
func (o Offset) String() string { return fmt.Sprintf("(%s + %s)", o.Left, o.Right) }

// Tag is a monotonic marker controlled by a propagation mask (spec §4.G).
// PropagationSet is defined here, rather than in a separate tags package,
// because Tagged must be constructible without importing back up from a
// higher-level package — the propagation *rules* (internal/tags) consume
// this type, they do not own it.
type PropagationSet uint64

type Tag struct {
	TypeID string
	Mask   PropagationSet
}

// Tagged wraps a value with one attached tag; tags accumulate by nesting
// (the outermost Tagged is the most recently attached).
type Tagged struct {
	Tag     Tag
	Operand Value
}

func (Tagged) isExpression() {}
func (t Tagged) String() string { return fmt.Sprintf("tag(%s)[%s]", t.Tag.TypeID, t.Operand) }

// HasTag reports whether v carries tag t anywhere in its Tagged chain.
func (v Value) HasTag(t Tag) bool {
	cur := v
	for {
		tg, ok := cur.Expr.(Tagged)
		if !ok {
			return false
		}
		if tg.Tag.TypeID == t.TypeID {
			return true
		}
		cur = tg.Operand
	}
}

// AddTag attaches t to v. Monotonic: the result always HasTag(t), and
// every tag v already carried is still present (spec §8 persistent-map
// monotonicity-in-tags invariant).
func (v Value) AddTag(t Tag) Value {
	if v.HasTag(t) {
		return v
	}
	return Value{Expr: Tagged{Tag: t, Operand: v}, Height: v.Height + 1}
}

// Join is the least-upper-bound combinator produced by Environment.Join;
// Path names which environment path this join was computed for, so two
// Joins for different paths are never considered structurally equal even
// if their operands happen to coincide.
type Join struct {
	Left  Value
	Right Value
	Path  PathRef
}

func (Join) isExpression() {}
func (j Join) String() string { return fmt.Sprintf("join(%s, %s)", j.Left, j.Right) }

// ConditionalExpression is "if Condition then Consequent else Alternate".
type ConditionalExpression struct {
	Condition  Value
	Consequent Value
	Alternate  Value
}

func (ConditionalExpression) isExpression() {}
func (c ConditionalExpression) String() string {
	return fmt.Sprintf("(%s ? %s : %s)", c.Condition, c.Consequent, c.Alternate)
}

// UninterpretedCall stands in for a call whose callee has no summary and
// cannot be inlined, so later refinement can still observe
// argument-dependent behavior.
type UninterpretedCall struct {
	Callee     string
	Args       []Value
	ResultType ir.Type
	Path       PathRef
}

func (UninterpretedCall) isExpression() {}
func (u UninterpretedCall) String() string { return "call:" + u.Callee + "(...)" }

// UnknownTagField is returned by ExtractTagFieldOfNonScalarValueAt for
// parameter-rooted paths that have no recorded tag-field entry yet, so it
// remains symbolic rather than collapsing to "definitely untagged".
type UnknownTagField struct {
	Path PathRef
}

func (UnknownTagField) isExpression() {}
func (u UnknownTagField) String() string { return "unknown_tag(" + u.Path.String() + ")" }

// MakeFrom builds a Value from an expression, computing height as one more
// than the deepest operand height it can see, capped by config.
func MakeFrom(expr Expression, operandHeights ...int) Value {
	h := 0
	for _, oh := range operandHeights {
		if oh > h {
			h = oh
		}
	}
	return Value{Expr: expr, Height: h + 1}
}

// MakeTypedUnknown produces the conservative fallback used whenever an
// operation would exceed a height or length budget.
func MakeTypedUnknown(t ir.Type, p PathRef) Value {
	return Value{Expr: Variable{Path: p, Type: t}, Height: 0}
}

// MakeReference builds a Reference value naming p.
func MakeReference(p PathRef) Value {
	return Value{Expr: Reference{Path: p}, Height: 1}
}

// MakeInitialParameterValue builds the symbolic entry value of a parameter.
func MakeInitialParameterValue(t ir.Type, p PathRef) Value {
	return Value{Expr: InitialParameterValue{Path: p, Type: t}, Height: 0}
}

// MakeTagged attaches tag to operand, height-bumped.
func MakeTagged(operand Value, tag Tag) Value {
	return operand.AddTag(tag)
}

// clampHeight enforces config.MaxExpressionHeight, falling back to a typed
// unknown named by fallbackPath/fallbackType when exceeded.
func clampHeight(v Value, fallbackType ir.Type, fallbackPath PathRef, cfg config.Options) Value {
	limit := cfg.MaxExpressionHeight
	if limit <= 0 {
		limit = config.DefaultMaxExpressionHeight
	}
	if v.Height > limit {
		return MakeTypedUnknown(fallbackType, fallbackPath)
	}
	return v
}
