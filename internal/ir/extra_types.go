package ir

import "strings"

// Additional Type implementations needed by the type/projection resolver
// (internal/resolve) to follow projection chains the original distilled IR
// never had to express: struct/enum field access, downcasts, pointers and
// box-like wrappers.

// StructField describes one field of a StructType in declaration order.
type StructField struct {
	Name string
	Type Type
}

// StructType is a nominal product type. Field 0 through a transparent
// wrapper (a single-field struct whose storage equals its field's storage)
// is unwrapped by path.Canonicalize, which recognizes the wrapper through
// resolve.Registry.IsTransparentWrapper.
type StructType struct {
	Name   string
	Fields []StructField
}

func (s *StructType) String() string { return s.Name }

// IsTransparentWrapper reports whether this struct has exactly one field,
// making its storage identical to that field's storage.
func (s *StructType) IsTransparentWrapper() bool { return len(s.Fields) == 1 }

// EnumVariant describes one variant of an EnumType as a tuple of field
// types, mirroring Downcast's tuple-of-variant-field-types projection.
type EnumVariant struct {
	Name   string
	Fields []Type
}

// EnumType is a tagged union; Discriminant resolves to DiscriminantType,
// Downcast(variant) resolves to a TupleType of that variant's fields.
type EnumType struct {
	Name    string
	Variants []EnumVariant
	Repr    string // integer width backing the discriminant, e.g. "u8"
}

func (e *EnumType) String() string { return e.Name }

// Variant looks up a variant by name.
func (e *EnumType) Variant(name string) (EnumVariant, bool) {
	for _, v := range e.Variants {
		if v.Name == name {
			return v, true
		}
	}
	return EnumVariant{}, false
}

// PointerType is a raw or reference pointer to Elem; Deref strips it.
type PointerType struct {
	Elem   Type
	Slice  bool // true for a slice pointer, decomposed as (ptr, len) at Field(0)/Field(1)
	Mutable bool
}

func (p *PointerType) String() string {
	prefix := "&"
	if p.Mutable {
		prefix = "&mut "
	}
	if p.Slice {
		return prefix + "[" + p.Elem.String() + "]"
	}
	return prefix + p.Elem.String()
}

// BoxType is a box-like owning pointer; Deref unboxes it the same way it
// strips a PointerType.
type BoxType struct {
	Elem Type
}

func (b *BoxType) String() string { return "Box<" + b.Elem.String() + ">" }

// DiscriminantType is the sentinel integer type produced by the
// Discriminant selector, sized according to the enum's repr.
type DiscriminantType struct {
	Bits int
}

func (d *DiscriminantType) String() string { return "Discr" + itoa(d.Bits) }

// LayoutType is the sentinel type of a Layout selector.
type LayoutType struct{}

func (*LayoutType) String() string { return "Layout" }

// TagFieldType is the fixed dummy integer type of a TagField selector.
type TagFieldType struct{}

func (*TagFieldType) String() string { return "TagField" }

// UnitType is the zero-sized tuple type, distinct from TupleType{} only for
// readability at call sites.
type UnitType struct{}

func (*UnitType) String() string { return "()" }

// UnionMember describes one overlapping interpretation of a UnionType's
// storage.
type UnionMember struct {
	Name string
	Type Type
}

// UnionType is a set of types sharing the same byte storage starting at
// offset zero; a write through one member and a read through another goes
// through UnsignedModulo/zero-extension at the narrower width (spec §4.F
// byte-exact transmutation).
type UnionType struct {
	Name    string
	Members []UnionMember
}

func (u *UnionType) String() string { return u.Name }

// Member looks up a union member by name.
func (u *UnionType) Member(name string) (UnionMember, bool) {
	for _, m := range u.Members {
		if m.Name == name {
			return m, true
		}
	}
	return UnionMember{}, false
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var b strings.Builder
	digits := []byte{}
	for n > 0 {
		digits = append(digits, byte('0'+n%10))
		n /= 10
	}
	for i := len(digits) - 1; i >= 0; i-- {
		b.WriteByte(digits[i])
	}
	return b.String()
}
