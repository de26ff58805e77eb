// Package heap implements the allocation-site-keyed heap model (spec §3
// glossary, §4.F): every allocating instruction gets one stable HeapBlock
// identity, reused across fixed-point iterations, so re-visiting the same
// allocation site during widening yields the same symbolic block rather
// than an ever-growing stream of fresh ones that would block convergence.
package heap

import (
	"github.com/uet-master/hepha/internal/path"
	"github.com/uet-master/hepha/internal/value"
)

// Allocator hands out HeapBlock identities keyed by allocation site, and
// records each block's current layout (length, alignment, source).
type Allocator struct {
	counter int
	sites   map[string]value.HeapBlock
	layouts map[int]value.HeapBlockLayout
}

// NewAllocator returns an empty allocator.
func NewAllocator() *Allocator {
	return &Allocator{
		sites:   make(map[string]value.HeapBlock),
		layouts: make(map[int]value.HeapBlockLayout),
	}
}

// Alloc returns the HeapBlock for allocation site siteKey (a stable string
// naming the allocating instruction, typically "funcName@blockLabel#idx"),
// minting a new block identity the first time siteKey is seen and
// returning the same one on every later visit (spec §8 heap-block
// determinism property).
func (a *Allocator) Alloc(siteKey string, length value.Value, alignment int) (path.HeapBlockRoot, value.Value) {
	block, ok := a.sites[siteKey]
	if !ok {
		block = value.HeapBlock{Address: a.counter, IsZeroed: true}
		a.counter++
		a.sites[siteKey] = block
	}
	blockValue := value.Value{Expr: block, Height: 0}
	a.layouts[block.Address] = value.HeapBlockLayout{Length: length, Alignment: alignment, Source: value.SourceAlloc}
	return path.HeapBlockRoot{Value: blockValue}, blockValue
}

// Realloc updates siteKey's block to a new length/alignment, clearing the
// zeroed flag: a grown region's new tail bytes are not guaranteed zero the
// way a fresh allocation's are (spec supplemented behavior grounded in the
// allocator's realloc semantics — a block that survives Realloc can no
// longer be assumed zero-initialized).
func (a *Allocator) Realloc(siteKey string, length value.Value, alignment int) (path.HeapBlockRoot, value.Value, bool) {
	block, ok := a.sites[siteKey]
	if !ok {
		return path.HeapBlockRoot{}, value.Value{}, false
	}
	block.IsZeroed = false
	a.sites[siteKey] = block
	a.layouts[block.Address] = value.HeapBlockLayout{Length: length, Alignment: alignment, Source: value.SourceReAlloc}
	blockValue := value.Value{Expr: block, Height: 0}
	return path.HeapBlockRoot{Value: blockValue}, blockValue, true
}

// Dealloc marks siteKey's block as freed. A second Dealloc of the block
// before any Alloc/Realloc reuses its identity is the double-free condition
// the fixed-point visitor's probes check for (spec §8 scenario).
func (a *Allocator) Dealloc(siteKey string) (value.HeapBlockLayout, bool) {
	block, ok := a.sites[siteKey]
	if !ok {
		return value.HeapBlockLayout{}, false
	}
	layout, hadLayout := a.layouts[block.Address]
	a.layouts[block.Address] = value.HeapBlockLayout{Length: layout.Length, Alignment: layout.Alignment, Source: value.SourceDeAlloc}
	return a.layouts[block.Address], hadLayout
}

// IsDeallocated reports whether siteKey's block was most recently
// deallocated (no intervening Alloc/Realloc reusing the identity).
func (a *Allocator) IsDeallocated(siteKey string) bool {
	block, ok := a.sites[siteKey]
	if !ok {
		return false
	}
	layout, ok := a.layouts[block.Address]
	return ok && layout.Source == value.SourceDeAlloc
}

// Layout returns the most recently recorded layout for a block address.
func (a *Allocator) Layout(address int) (value.HeapBlockLayout, bool) {
	l, ok := a.layouts[address]
	return l, ok
}

// Block returns the HeapBlock value minted for siteKey, if any has been
// allocated yet. Call transfer uses this at deallocation time to recover
// the block's identity so it can purge every environment path still
// rooted at it (spec §4.F DeAlloc effect).
func (a *Allocator) Block(siteKey string) (value.Value, bool) {
	block, ok := a.sites[siteKey]
	if !ok {
		return value.Value{}, false
	}
	return value.Value{Expr: block, Height: 0}, true
}
