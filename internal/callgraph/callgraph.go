// Package callgraph builds the static call graph over internal/ir's
// functions (spec §6): which function calls which, used to order summary
// computation bottom-up (callees before callers) and to detect the
// recursive cycles internal/summary's Store.Enter/Leave guards against.
package callgraph

import "github.com/uet-master/hepha/internal/ir"

// Node is one function in the graph.
type Node struct {
	Func *ir.Function
	ID   int
	In   []*Edge
	Out  []*Edge
}

// Edge is one static call site from Caller to Callee.
type Edge struct {
	Caller *Node
	Callee *Node
	Site   *ir.CallInstruction
}

// Graph is the whole-program call graph, keyed by function name (spec's
// functions are uniquely named within a crate's analysis unit).
type Graph struct {
	Nodes map[string]*Node
}

// New returns an empty Graph.
func New() *Graph {
	return &Graph{Nodes: make(map[string]*Node)}
}

// CreateNode returns fn's node, creating it on first reference.
func (g *Graph) CreateNode(fn *ir.Function) *Node {
	if n, ok := g.Nodes[fn.Name]; ok {
		return n
	}
	n := &Node{Func: fn, ID: len(g.Nodes)}
	g.Nodes[fn.Name] = n
	return n
}

// AddEdge records a static call from caller to callee at site.
func AddEdge(caller *Node, site *ir.CallInstruction, callee *Node) {
	e := &Edge{Caller: caller, Callee: callee, Site: site}
	caller.Out = append(caller.Out, e)
	callee.In = append(callee.In, e)
}

// Build walks every function's instructions looking for static call sites
// (a CallInstruction whose Function name resolves to one of fns) and
// records an edge for each. Calls to names outside fns (externals,
// builtins, unresolved function values) are left as leaves with no
// outgoing edge — internal/transfer treats those conservatively as
// uninterpreted.
func Build(fns []*ir.Function) *Graph {
	g := New()
	byName := make(map[string]*ir.Function, len(fns))
	for _, fn := range fns {
		byName[fn.Name] = fn
		g.CreateNode(fn)
	}

	for _, fn := range fns {
		caller := g.CreateNode(fn)
		if fn.Entry == nil {
			continue
		}
		for _, b := range fn.Blocks {
			for _, instr := range b.Instructions {
				call, ok := instr.(*ir.CallInstruction)
				if !ok {
					continue
				}
				callee, ok := byName[call.Function]
				if !ok {
					continue
				}
				AddEdge(caller, call, g.CreateNode(callee))
			}
		}
	}
	return g
}

// PostOrder returns every node reachable from roots in post-order —
// every callee appears before its caller, except within a cycle, where
// nodes appear together in an arbitrary but deterministic (first-seen)
// order. This is the order internal/summary's computation should follow
// so each function's summary is available before its callers need it,
// falling back to the recursion guard for the cyclic case.
func PostOrder(g *Graph, roots []*Node) []*Node {
	visited := make(map[string]bool, len(g.Nodes))
	onStack := make(map[string]bool, len(g.Nodes))
	var order []*Node

	var visit func(n *Node)
	visit = func(n *Node) {
		if visited[n.Func.Name] || onStack[n.Func.Name] {
			return
		}
		onStack[n.Func.Name] = true
		for _, e := range n.Out {
			visit(e.Callee)
		}
		onStack[n.Func.Name] = false
		visited[n.Func.Name] = true
		order = append(order, n)
	}
	for _, r := range roots {
		visit(r)
	}
	return order
}

// Roots returns every node with no incoming edge — the entry points of
// the call graph. Whether a function is external is not consulted, and
// --single-func is applied by the caller, not here.
func Roots(g *Graph) []*Node {
	var roots []*Node
	for _, n := range g.Nodes {
		if len(n.In) == 0 {
			roots = append(roots, n)
		}
	}
	return roots
}

// StronglyConnected reports whether a and b participate in a mutual-
// recursion cycle (a appears in b's reachable set and vice versa) — the
// condition under which internal/summary must fall back to the
// recursion guard instead of waiting for a converged summary.
func StronglyConnected(a, b *Node) bool {
	return reaches(a, b) && reaches(b, a)
}

func reaches(from, to *Node) bool {
	if from == to {
		return true
	}
	seen := make(map[string]bool)
	var walk func(n *Node) bool
	walk = func(n *Node) bool {
		if seen[n.Func.Name] {
			return false
		}
		seen[n.Func.Name] = true
		for _, e := range n.Out {
			if e.Callee == to || walk(e.Callee) {
				return true
			}
		}
		return false
	}
	return walk(from)
}
