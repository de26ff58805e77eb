// Package resolve implements the type/projection resolver (spec §4.C): it
// answers "what does selector S mean against a value of type T", the
// question internal/path's Canonicalize and internal/transfer's body
// visitor both need answered without hard-coding struct/enum/union layout
// knowledge into the path or value algebras themselves.
package resolve

import (
	"fmt"

	"github.com/uet-master/hepha/internal/ir"
)

// Registry holds the struct/enum/union definitions gathered from a parsed
// program, keyed by name, so a Type that only carries a name (as produced
// by the IR builder for user-defined types) can be resolved to its full
// shape.
type Registry struct {
	structs map[string]*ir.StructType
	enums   map[string]*ir.EnumType
	unions  map[string]*ir.UnionType
}

// NewRegistry builds an empty resolver; call AddStruct/AddEnum/AddUnion as
// the IR builder discovers type declarations.
func NewRegistry() *Registry {
	return &Registry{
		structs: make(map[string]*ir.StructType),
		enums:   make(map[string]*ir.EnumType),
		unions:  make(map[string]*ir.UnionType),
	}
}

func (r *Registry) AddStruct(s *ir.StructType) { r.structs[s.Name] = s }
func (r *Registry) AddEnum(e *ir.EnumType)     { r.enums[e.Name] = e }
func (r *Registry) AddUnion(u *ir.UnionType)   { r.unions[u.Name] = u }

// Struct looks up a struct type by name.
func (r *Registry) Struct(name string) (*ir.StructType, bool) {
	s, ok := r.structs[name]
	return s, ok
}

// Enum looks up an enum type by name.
func (r *Registry) Enum(name string) (*ir.EnumType, bool) {
	e, ok := r.enums[name]
	return e, ok
}

// Union looks up a union type by name.
func (r *Registry) Union(name string) (*ir.UnionType, bool) {
	u, ok := r.unions[name]
	return u, ok
}

// FieldType resolves a Field(n) selector's result type against t, following
// through StructType field order or TupleType element order.
func (r *Registry) FieldType(t ir.Type, n int) (ir.Type, error) {
	switch v := t.(type) {
	case *ir.StructType:
		if n < 0 || n >= len(v.Fields) {
			return nil, fmt.Errorf("resolve: field %d out of range on %s (%d fields)", n, v.Name, len(v.Fields))
		}
		return v.Fields[n].Type, nil
	case *ir.TupleType:
		if n < 0 || n >= len(v.Elements) {
			return nil, fmt.Errorf("resolve: field %d out of range on tuple (%d elements)", n, len(v.Elements))
		}
		return v.Elements[n], nil
	case *ir.PointerType:
		if v.Slice {
			switch n {
			case 0:
				return &ir.PointerType{Elem: v.Elem, Mutable: v.Mutable}, nil
			case 1:
				return &ir.IntType{Bits: 64}, nil
			}
		}
		return nil, fmt.Errorf("resolve: field %d invalid on non-slice pointer", n)
	default:
		return nil, fmt.Errorf("resolve: type %s has no fields", t.String())
	}
}

// UnionFieldType resolves a UnionField(index) selector against a named
// union type.
func (r *Registry) UnionFieldType(t ir.Type, index int) (ir.Type, error) {
	u, ok := r.asUnion(t)
	if !ok {
		return nil, fmt.Errorf("resolve: type %s is not a union", t.String())
	}
	if index < 0 || index >= len(u.Members) {
		return nil, fmt.Errorf("resolve: union member %d out of range on %s", index, u.Name)
	}
	return u.Members[index].Type, nil
}

// UnionWidth returns the storage width of the widest member, the bound the
// byte-exact transmute logic truncates or zero-extends every other member
// against.
func (r *Registry) UnionWidth(t ir.Type) (int, error) {
	u, ok := r.asUnion(t)
	if !ok {
		return 0, fmt.Errorf("resolve: type %s is not a union", t.String())
	}
	max := 0
	for _, m := range u.Members {
		if it, ok := m.Type.(*ir.IntType); ok && it.Bits > max {
			max = it.Bits
		}
	}
	return max, nil
}

func (r *Registry) asUnion(t ir.Type) (*ir.UnionType, bool) {
	u, ok := t.(*ir.UnionType)
	return u, ok
}

// DerefType resolves a Deref selector's result type — the pointee of a
// PointerType or BoxType, or t itself if t is neither (a reference encoded
// directly as its pointee's type at the IR level).
func (r *Registry) DerefType(t ir.Type) ir.Type {
	switch v := t.(type) {
	case *ir.PointerType:
		return v.Elem
	case *ir.BoxType:
		return v.Elem
	default:
		return t
	}
}

// DowncastType resolves Downcast(variant) against an enum type, returning
// the tuple-of-fields type of that variant.
func (r *Registry) DowncastType(t ir.Type, variant string) (ir.Type, error) {
	e, ok := t.(*ir.EnumType)
	if !ok {
		return nil, fmt.Errorf("resolve: type %s is not an enum", t.String())
	}
	v, ok := e.Variant(variant)
	if !ok {
		return nil, fmt.Errorf("resolve: enum %s has no variant %s", e.Name, variant)
	}
	return &ir.TupleType{Elements: v.Fields}, nil
}

// DiscriminantType resolves the Discriminant selector against an enum.
func (r *Registry) DiscriminantType(t ir.Type) (ir.Type, error) {
	e, ok := t.(*ir.EnumType)
	if !ok {
		return nil, fmt.Errorf("resolve: type %s is not an enum", t.String())
	}
	bits := 8
	if it, ok := BuiltinBits(e.Repr); ok {
		bits = it
	}
	return &ir.DiscriminantType{Bits: bits}, nil
}

// BuiltinBits maps a repr name ("u8", "u16", ...) to its bit width.
func BuiltinBits(repr string) (int, bool) {
	switch repr {
	case "u8":
		return 8, true
	case "u16":
		return 16, true
	case "u32":
		return 32, true
	case "u64":
		return 64, true
	case "u128":
		return 128, true
	case "u256":
		return 256, true
	default:
		return 0, false
	}
}

// IsTransparentWrapper reports whether t is a single-field struct, the
// shape internal/path.Canonicalize flattens a Field(0) projection through.
func (r *Registry) IsTransparentWrapper(t ir.Type) bool {
	s, ok := t.(*ir.StructType)
	return ok && s.IsTransparentWrapper()
}

// IndexElementType resolves IndexSel/ConstantIndex against a slice pointer
// or tuple-of-homogeneous-elements type.
func (r *Registry) IndexElementType(t ir.Type) (ir.Type, error) {
	switch v := t.(type) {
	case *ir.PointerType:
		return v.Elem, nil
	default:
		return nil, fmt.Errorf("resolve: type %s is not indexable", t.String())
	}
}
