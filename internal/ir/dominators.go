package ir

// ComputeDominators populates fn.ImmediateDominator using the iterative
// algorithm of Cooper, Harvey & Kennedy ("A Simple, Fast Dominance
// Algorithm"), over the reverse-postorder numbering of fn.Blocks starting
// at fn.Entry. The fixed-point visitor (internal/fixpoint) consumes this
// map to find loop anchors (the targets of back-edges) and to break them
// out of the plain topological order.
func (fn *Function) ComputeDominators() {
	if fn.Entry == nil || len(fn.Blocks) == 0 {
		return
	}

	order, rpo := reversePostorder(fn.Entry)

	idom := make(map[*BasicBlock]*BasicBlock, len(order))
	idom[fn.Entry] = fn.Entry

	changed := true
	for changed {
		changed = false
		for _, b := range order {
			if b == fn.Entry {
				continue
			}
			var newIdom *BasicBlock
			for _, p := range b.Predecessors {
				if idom[p] == nil {
					continue
				}
				if newIdom == nil {
					newIdom = p
					continue
				}
				newIdom = intersect(p, newIdom, idom, rpo)
			}
			if newIdom != nil && idom[b] != newIdom {
				idom[b] = newIdom
				changed = true
			}
		}
	}
	idom[fn.Entry] = nil

	fn.ImmediateDominator = idom
}

func intersect(a, b *BasicBlock, idom map[*BasicBlock]*BasicBlock, rpo map[*BasicBlock]int) *BasicBlock {
	for a != b {
		for rpo[a] > rpo[b] {
			a = idom[a]
		}
		for rpo[b] > rpo[a] {
			b = idom[b]
		}
	}
	return a
}

// reversePostorder walks the CFG depth-first from entry and returns both
// the block order and each block's index within it.
func reversePostorder(entry *BasicBlock) ([]*BasicBlock, map[*BasicBlock]int) {
	visited := make(map[*BasicBlock]bool)
	var postorder []*BasicBlock

	var visit func(b *BasicBlock)
	visit = func(b *BasicBlock) {
		if visited[b] {
			return
		}
		visited[b] = true
		for _, s := range b.Successors {
			visit(s)
		}
		postorder = append(postorder, b)
	}
	visit(entry)

	n := len(postorder)
	order := make([]*BasicBlock, n)
	index := make(map[*BasicBlock]int, n)
	for i := 0; i < n; i++ {
		order[i] = postorder[n-1-i]
		index[order[i]] = i
	}
	return order, index
}

// Dominates reports whether a dominates b (reflexive and transitive
// closure of ImmediateDominator).
func (fn *Function) Dominates(a, b *BasicBlock) bool {
	if fn.ImmediateDominator == nil {
		return a == b
	}
	for cur := b; cur != nil; cur = fn.ImmediateDominator[cur] {
		if cur == a {
			return true
		}
		if fn.ImmediateDominator[cur] == cur {
			break
		}
	}
	return false
}

// BackEdgeTargets returns the set of blocks that are the target of some
// back-edge (an edge b -> h where h dominates b) — the loop anchors (spec
// §4.E).
func (fn *Function) BackEdgeTargets() map[*BasicBlock]bool {
	anchors := make(map[*BasicBlock]bool)
	for _, b := range fn.Blocks {
		for _, s := range b.Successors {
			if fn.Dominates(s, b) {
				anchors[s] = true
			}
		}
	}
	return anchors
}
