package graphir

import (
	"sort"

	"github.com/neuralground/qmk/internal/qmkerr"
)

// TopoSort orders a graph's nodes by Kahn's algorithm over the
// combined dependency graph: explicit Deps plus qubit/event
// read-after-write and write-after-read edges (§4.7 step 2). Ties are
// broken by stable node-id order — fixing the teacher's
// qc/dag/dag.go calculateTopoSort, whose initial-queue population
// iterates a Go map and is therefore non-deterministic; this port
// seeds the ready queue from a sorted id slice instead.
func TopoSort(g *Graph) ([]*Node, error) {
	preds, succs := buildEdges(g)

	indegree := make(map[string]int, len(g.Nodes))
	for _, n := range g.Nodes {
		indegree[n.ID] = len(preds[n.ID])
	}

	var ready []string
	for _, n := range g.Nodes {
		if indegree[n.ID] == 0 {
			ready = append(ready, n.ID)
		}
	}
	sort.Strings(ready)

	var order []*Node
	for len(ready) > 0 {
		id := ready[0]
		ready = ready[1:]
		n, _ := g.Node(id)
		order = append(order, n)

		var newlyReady []string
		for _, succ := range succs[id] {
			indegree[succ]--
			if indegree[succ] == 0 {
				newlyReady = append(newlyReady, succ)
			}
		}
		sort.Strings(newlyReady)
		ready = mergeSorted(ready, newlyReady)
	}

	if len(order) != len(g.Nodes) {
		return nil, qmkerr.New(qmkerr.GraphCyclic, "dependency graph contains a cycle")
	}
	return order, nil
}

// mergeSorted merges two already-sorted string slices, preserving the
// total order (used to keep the ready queue sorted without re-sorting
// the whole thing on every pop).
func mergeSorted(a, b []string) []string {
	if len(b) == 0 {
		return a
	}
	out := make([]string, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		if a[i] <= b[j] {
			out = append(out, a[i])
			i++
		} else {
			out = append(out, b[j])
			j++
		}
	}
	out = append(out, a[i:]...)
	out = append(out, b[j:]...)
	return out
}

// DependencyEdges exposes buildEdges's predecessor/successor adjacency
// for callers outside the scheduler (e.g. the REV Analyzer) that need
// the same explicit-Deps-plus-resource-touch-order dependency graph
// TopoSort uses, rather than rebuilding it themselves.
func DependencyEdges(g *Graph) (preds, succs map[string][]string) {
	return buildEdges(g)
}

// buildEdges derives predecessor/successor adjacency from explicit
// Deps plus per-qubit, per-channel and per-event last-writer chains
// (every node touching a qubit or channel follows the previous one;
// a node reading an event through Inputs or its guard follows the
// event's producer), in node declaration order. Absent a
// grounding source for this (kernel/simulator/scheduler.py is missing
// from the filtered retrieval pack), this mirrors rev_analyzer.py's
// _build_dependency_graph approach of deriving edges from declared
// deps plus resource touch order.
func buildEdges(g *Graph) (preds, succs map[string][]string) {
	preds = make(map[string][]string, len(g.Nodes))
	succs = make(map[string][]string, len(g.Nodes))

	addEdge := func(from, to string) {
		if from == "" || from == to {
			return
		}
		for _, p := range preds[to] {
			if p == from {
				return
			}
		}
		preds[to] = append(preds[to], from)
		succs[from] = append(succs[from], to)
	}

	lastWriter := make(map[string]string) // resource key -> node id

	for _, n := range g.Nodes {
		for _, dep := range n.Deps {
			addEdge(dep, n.ID)
		}

		touched := make([]string, 0, len(n.VQs)+len(n.Inputs)+len(n.Produces))
		for _, vq := range n.VQs {
			touched = append(touched, "vq:"+vq)
		}
		for _, ch := range n.Chs {
			touched = append(touched, "ch:"+ch)
		}
		for _, ev := range n.Inputs {
			touched = append(touched, "ev:"+ev)
		}
		// Guard events are read just like Inputs.
		var addGuard func(gd *Guard)
		addGuard = func(gd *Guard) {
			if gd == nil {
				return
			}
			if gd.IsLeaf() {
				touched = append(touched, "ev:"+gd.Event)
				return
			}
			for i := range gd.Conditions {
				addGuard(&gd.Conditions[i])
			}
		}
		addGuard(n.Guard)

		for _, key := range touched {
			if writer, ok := lastWriter[key]; ok {
				addEdge(writer, n.ID)
			}
		}

		for _, vq := range n.VQs {
			lastWriter["vq:"+vq] = n.ID
		}
		for _, ch := range n.Chs {
			lastWriter["ch:"+ch] = n.ID
		}
		for _, ev := range n.Produces {
			lastWriter["ev:"+ev] = n.ID
		}
	}

	return preds, succs
}
