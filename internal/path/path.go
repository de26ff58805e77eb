// Package path implements the symbolic path algebra (spec §3, §4.A): a
// Path names a memory location the way the abstract interpreter tracks it
// — a parameter slot, a local, a field/index/deref projection chain, a
// heap allocation, and so on.
package path

import (
	"fmt"
	"strings"

	"github.com/uet-master/hepha/internal/config"
	"github.com/uet-master/hepha/internal/ir"
	"github.com/uet-master/hepha/internal/value"
)

// Path is the closed sum of location shapes from spec §3. It satisfies
// value.PathRef so a Value can name the path it denotes (Variable,
// Reference, InitialParameterValue) without value importing this package.
type Path interface {
	isPath()
	PathKey() string
	String() string
}

// Parameter is the nth function input.
type Parameter struct{ Index int }

func (Parameter) isPath() {}
func (p Parameter) PathKey() string { return fmt.Sprintf("p%d", p.Index) }
func (p Parameter) String() string  { return fmt.Sprintf("param#%d", p.Index) }

// Local is the nth local, with its declared/cached type handle.
type Local struct {
	Index int
	Type  ir.Type
}

func (Local) isPath() {}
func (l Local) PathKey() string { return fmt.Sprintf("l%d", l.Index) }
func (l Local) String() string  { return fmt.Sprintf("local#%d", l.Index) }

// Result is the return slot.
type Result struct{}

func (Result) isPath() {}
func (Result) PathKey() string { return "ret" }
func (Result) String() string  { return "result" }

// Static is process-wide named storage (a contract storage slot).
type Static struct {
	Key   string
	DefID *string
	Type  ir.Type
}

func (Static) isPath() {}
func (s Static) PathKey() string { return "static:" + s.Key }
func (s Static) String() string  { return "static(" + s.Key + ")" }

// HeapBlockRoot is the root of a block obtained from the allocator model;
// one block per allocation site per analysis location (spec §3 heap model).
type HeapBlockRoot struct{ Value value.Value }

func (HeapBlockRoot) isPath() {}
func (h HeapBlockRoot) PathKey() string { return "heap:" + h.Value.String() }
func (h HeapBlockRoot) String() string  { return "*" + h.Value.String() }

// PromotedConstant is the root of a constant promoted from a function body.
type PromotedConstant struct{ Ordinal int }

func (PromotedConstant) isPath() {}
func (p PromotedConstant) PathKey() string { return fmt.Sprintf("promoted%d", p.Ordinal) }
func (p PromotedConstant) String() string  { return fmt.Sprintf("promoted#%d", p.Ordinal) }

// Computed is a path whose identity is a value expression — used to name
// string literals and references returned from expressions.
type Computed struct{ Value value.Value }

func (Computed) isPath() {}
func (c Computed) PathKey() string { return "computed:" + c.Value.String() }
func (c Computed) String() string  { return "computed(" + c.Value.String() + ")" }

// OffsetRoot is a pointer-arithmetic root.
type OffsetRoot struct{ Value value.Value }

func (OffsetRoot) isPath() {}
func (o OffsetRoot) PathKey() string { return "offset:" + o.Value.String() }
func (o OffsetRoot) String() string  { return "offset(" + o.Value.String() + ")" }

// PhantomData is the sentinel no-storage path.
type PhantomData struct{}

func (PhantomData) isPath() {}
func (PhantomData) PathKey() string { return "phantom" }
func (PhantomData) String() string  { return "phantom" }

// Qualified is parent.Selector — a projection one step further than parent.
type Qualified struct {
	Parent   Path
	Selector Selector
}

func (Qualified) isPath() {}
func (q Qualified) PathKey() string { return q.Parent.PathKey() + "." + q.Selector.key() }
func (q Qualified) String() string  { return q.Parent.String() + q.Selector.String() }

// Selector is the closed sum of projection kinds from spec §3.
type Selector interface {
	isSelector()
	key() string
	String() string
}

type Deref struct{}

func (Deref) isSelector() {}
func (Deref) key() string    { return "*" }
func (Deref) String() string { return ".*" }

type Field struct{ N int }

func (Field) isSelector()    {}
func (f Field) key() string    { return fmt.Sprintf("f%d", f.N) }
func (f Field) String() string { return fmt.Sprintf(".%d", f.N) }

type UnionField struct{ Index, Total int }

func (UnionField) isSelector() {}
func (u UnionField) key() string { return fmt.Sprintf("u%d/%d", u.Index, u.Total) }
func (u UnionField) String() string { return fmt.Sprintf(".union%d", u.Index) }

type IndexSel struct{ Value value.Value }

func (IndexSel) isSelector() {}
func (i IndexSel) key() string { return "[" + i.Value.String() + "]" }
func (i IndexSel) String() string { return "[" + i.Value.String() + "]" }

type ConstantIndex struct {
	Offset  int
	FromEnd bool
}

func (ConstantIndex) isSelector() {}
func (c ConstantIndex) key() string {
	if c.FromEnd {
		return fmt.Sprintf("[-%d]", c.Offset)
	}
	return fmt.Sprintf("[%d]", c.Offset)
}
func (c ConstantIndex) String() string { return c.key() }

type SliceSel struct{ Count int }

func (SliceSel) isSelector() {}
func (s SliceSel) key() string    { return fmt.Sprintf("[..%d]", s.Count) }
func (s SliceSel) String() string { return s.key() }

type ConstantSlice struct {
	From, To int
	FromEnd  bool
}

func (ConstantSlice) isSelector() {}
func (c ConstantSlice) key() string { return fmt.Sprintf("[%d:%d:%t]", c.From, c.To, c.FromEnd) }
func (c ConstantSlice) String() string { return c.key() }

type Downcast struct {
	Variant string
	Ordinal int
	Type    ir.Type
}

func (Downcast) isSelector() {}
func (d Downcast) key() string    { return "as:" + d.Variant }
func (d Downcast) String() string { return " as " + d.Variant }

type Discriminant struct{}

func (Discriminant) isSelector() {}
func (Discriminant) key() string    { return "discr" }
func (Discriminant) String() string { return ".discriminant" }

type Layout struct{}

func (Layout) isSelector() {}
func (Layout) key() string    { return "layout" }
func (Layout) String() string { return ".layout" }

type TagField struct{}

func (TagField) isSelector() {}
func (TagField) key() string    { return "tagfield" }
func (TagField) String() string { return ".tag" }

type Function struct{}

func (Function) isSelector() {}
func (Function) key() string    { return "fn" }
func (Function) String() string { return ".fn" }

// depth counts the Qualified chain length, used against MAX_PATH_LENGTH.
func depth(p Path) int {
	n := 0
	for {
		q, ok := p.(Qualified)
		if !ok {
			return n
		}
		n++
		p = q.Parent
	}
}

// Truncated returns the synthetic unknown path used when a projection
// chain would exceed config.MaxPathLength (spec §4.A error mode).
func Truncated(t ir.Type) Path {
	return Computed{Value: value.MakeTypedUnknown(t, PhantomData{})}
}

// NewQualified appends selector to parent, truncating to a synthetic
// unknown if the result would exceed the configured maximum path length.
func NewQualified(parent Path, sel Selector, cfg config.Options, resultType ir.Type) Path {
	limit := cfg.MaxPathLength
	if limit <= 0 {
		limit = config.DefaultMaxPathLength
	}
	if depth(parent)+1 > limit {
		return Truncated(resultType)
	}
	return Qualified{Parent: parent, Selector: sel}
}

// IsRootedBy reports whether other is a prefix of p (spec §4.A invariant ii).
func IsRootedBy(p, other Path) bool {
	for cur := p; ; {
		if cur.PathKey() == other.PathKey() {
			return true
		}
		q, ok := cur.(Qualified)
		if !ok {
			return false
		}
		cur = q.Parent
	}
}

// Root returns the innermost non-Qualified path at the base of p's chain.
func Root(p Path) Path {
	for {
		q, ok := p.(Qualified)
		if !ok {
			return p
		}
		p = q.Parent
	}
}

// IsRootedByNonLocalStructure reports whether p's root is a static, heap
// block, or parameter — used to decide whether a side effect escapes the
// current call (spec §4.A).
func IsRootedByNonLocalStructure(p Path) bool {
	switch Root(p).(type) {
	case Static, HeapBlockRoot, Parameter:
		return true
	default:
		return false
	}
}

// ReplaceRoot re-parents p's tree: every occurrence of old at the root of
// p's chain is replaced with new.
func ReplaceRoot(p, old, newRoot Path) Path {
	if p.PathKey() == old.PathKey() {
		return newRoot
	}
	q, ok := p.(Qualified)
	if !ok {
		return p
	}
	return Qualified{Parent: ReplaceRoot(q.Parent, old, newRoot), Selector: q.Selector}
}

// Canonicalize rewrites p through its canonical form: Deref(Reference(q))
// collapses to q (using lookup to see what value, if any, is currently
// stored at a candidate reference path), and Field(0) flattens through a
// transparent wrapper when isTransparentWrapper says the parent's type is
// a single-field struct.
func Canonicalize(p Path, lookup func(Path) (value.Value, bool), isTransparentWrapperField0 func(parent Path) bool) Path {
	q, ok := p.(Qualified)
	if !ok {
		return p
	}
	parent := Canonicalize(q.Parent, lookup, isTransparentWrapperField0)

	if _, isDeref := q.Selector.(Deref); isDeref {
		if v, found := lookup(parent); found {
			if ref, isRef := v.Expr.(value.Reference); isRef {
				if rp, ok := ref.Path.(Path); ok {
					return Canonicalize(rp, lookup, isTransparentWrapperField0)
				}
			}
		}
	}

	if f, isField := q.Selector.(Field); isField && f.N == 0 && isTransparentWrapperField0(parent) {
		return parent
	}

	return Qualified{Parent: parent, Selector: q.Selector}
}

// RefineParametersAndPaths substitutes, inside p, every Parameter(n) with
// args[n], re-anchors Result to resultPath, and offsets every Local by
// freshOffset so multiple inlined call sites don't alias each other's
// locals (spec §4.A/§4.F).
func RefineParametersAndPaths(p Path, args []Path, resultPath Path, freshOffset int) Path {
	switch v := p.(type) {
	case Parameter:
		if v.Index >= 0 && v.Index < len(args) {
			return args[v.Index]
		}
		return p
	case Result:
		return resultPath
	case Local:
		return Local{Index: v.Index + freshOffset, Type: v.Type}
	case Qualified:
		return Qualified{
			Parent:   RefineParametersAndPaths(v.Parent, args, resultPath, freshOffset),
			Selector: v.Selector,
		}
	default:
		return p
	}
}

// Render renders a human-readable rendition of a selector chain, used by
// diagnostics.
func Render(p Path) string {
	var b strings.Builder
	b.WriteString(p.String())
	return b.String()
}
