package transfer

import (
	"github.com/uet-master/hepha/internal/ir"
	"github.com/uet-master/hepha/internal/resolve"
	"github.com/uet-master/hepha/internal/smt"
	"github.com/uet-master/hepha/internal/value"
)

// TransmuteUnionMember reinterprets v, currently understood as the member
// named fromMember of unionType, as the member named toMember — a
// byte-exact reinterpretation: a value written through a wider member and
// read back through a narrower one truncates (UnsignedModulo), and the
// reverse zero-extends, so the two reads of the same storage agree on
// every bit the narrower member actually occupies (spec §4.F union
// aliasing / byte-exact transmutation).
func TransmuteUnionMember(reg *resolve.Registry, unionType ir.Type, v value.Value, toMember string) (value.Value, error) {
	u, ok := unionType.(*ir.UnionType)
	if !ok {
		return value.Value{}, errNotUnion(unionType)
	}
	target, ok := u.Member(toMember)
	if !ok {
		return value.Value{}, errNoMember(u.Name, toMember)
	}
	return v.Transmute(target.Type), nil
}

func errNotUnion(t ir.Type) error {
	return &typeError{msg: "transfer: " + t.String() + " is not a union"}
}

func errNoMember(unionName, member string) error {
	return &typeError{msg: "transfer: union " + unionName + " has no member " + member}
}

type typeError struct{ msg string }

func (e *typeError) Error() string { return e.msg }

// OffsetCheck is the result of checking a pointer-arithmetic offset
// against a heap block's recorded layout.
type OffsetCheck struct {
	// InBounds is true only when the oracle could prove offset+width <=
	// layout.Length (and offset >= 0); false covers both "proven out of
	// bounds" and "could not prove in bounds" — both are reported as
	// findings by the probes layer, which is free to distinguish them via
	// Proven.
	InBounds bool
	// Proven is true when the oracle reached a definite answer either way;
	// false means the access is conservatively flagged as unverified
	// rather than as a confirmed violation.
	Proven bool
}

// CheckOffset decides whether accessing width bits at offset into a block
// laid out with layout.Length bytes is in bounds, consulting oracle for
// the comparison since offset and length are themselves symbolic values
// in general (spec §4.F offset bounds checking).
func CheckOffset(oracle smt.Oracle, pathCondition value.Value, layout value.HeapBlockLayout, offset value.Value, widthBytes int) OffsetCheck {
	nonNegative := value.GreaterOrEqual(offset, value.ConstInt(0, 64, false))
	end := value.Add(offset, value.ConstInt(int64(widthBytes), 64, false))
	withinLength := value.LessOrEqual(end, layout.Length)

	if nb, ok := nonNegative.AsBoolIfKnown(); ok && !nb {
		return OffsetCheck{InBounds: false, Proven: true}
	}
	if wb, ok := withinLength.AsBoolIfKnown(); ok {
		return OffsetCheck{InBounds: wb, Proven: true}
	}

	if oracle.Implies(pathCondition, withinLength) {
		return OffsetCheck{InBounds: true, Proven: true}
	}
	negatedWithin := value.Value{Expr: value.UnaryOp{Op: "LogicalNot", Operand: withinLength}, Height: withinLength.Height + 1}
	if oracle.Implies(pathCondition, negatedWithin) {
		return OffsetCheck{InBounds: false, Proven: true}
	}
	return OffsetCheck{InBounds: false, Proven: false}
}
