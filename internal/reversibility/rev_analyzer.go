// Package reversibility implements the REV Segment Analyzer and
// Uncomputation Engine (§4.9, C10): identifying maximal runs of
// unitary operations bounded by irreversible boundaries, and
// generating the inverse operation sequence for a reversible segment
// so it can be rolled back or migrated. Grounded on
// original_source/kernel/reversibility/{rev_analyzer,
// uncomputation_engine}.py.
package reversibility

import (
	"github.com/neuralground/qmk/internal/graphir"
)

// Segment is a maximal run of unitary operations between irreversible
// boundaries in a Graph IR program.
type Segment struct {
	ID           int
	NodeIDs      []string
	EntryNodes   []string
	ExitNodes    []string
	QubitsUsed   []string
	IsReversible bool
}

// Len reports the number of operations in the segment.
func (s Segment) Len() int { return len(s.NodeIDs) }

// Analyzer identifies REV segments in a Graph IR program.
type Analyzer struct {
	graph    *graphir.Graph
	forward  map[string][]string
	backward map[string][]string
	segments []Segment
}

// NewAnalyzer builds an Analyzer over g, reusing the same explicit-
// Deps-plus-resource-touch-order dependency graph the scheduler's
// TopoSort derives (graphir.DependencyEdges), since the Go Graph IR
// carries no separate "edges" field the way the grounding source's
// JSON graphs do.
func NewAnalyzer(g *graphir.Graph) *Analyzer {
	preds, succs := graphir.DependencyEdges(g)
	return &Analyzer{graph: g, forward: succs, backward: preds}
}

// Analyze walks the graph in topological order and partitions it into
// REV segments, returning them in discovery order.
func (a *Analyzer) Analyze() ([]Segment, error) {
	order, err := graphir.TopoSort(a.graph)
	if err != nil {
		return nil, err
	}

	a.segments = nil
	var current []string
	segID := 0

	flush := func() {
		if len(current) == 0 {
			return
		}
		a.segments = append(a.segments, a.buildSegment(segID, current))
		segID++
		current = nil
	}

	for _, n := range order {
		switch {
		case graphir.IrreversibleOps[n.Op]:
			flush()
		case graphir.UnitaryOps[n.Op]:
			current = append(current, n.ID)
		}
	}
	flush()

	return a.segments, nil
}

func (a *Analyzer) buildSegment(id int, nodeIDs []string) Segment {
	nodeSet := make(map[string]bool, len(nodeIDs))
	for _, id := range nodeIDs {
		nodeSet[id] = true
	}

	var entry, exit []string
	for _, id := range nodeIDs {
		for _, dep := range a.backward[id] {
			if !nodeSet[dep] {
				entry = append(entry, id)
				break
			}
		}
		for _, succ := range a.forward[id] {
			if !nodeSet[succ] {
				exit = append(exit, id)
				break
			}
		}
	}

	qubitSet := make(map[string]bool)
	allUnitary := true
	for _, id := range nodeIDs {
		n, ok := a.graph.Node(id)
		if !ok {
			continue
		}
		for _, q := range n.VQs {
			qubitSet[q] = true
		}
		if !graphir.UnitaryOps[n.Op] {
			allUnitary = false
		}
	}
	qubits := make([]string, 0, len(qubitSet))
	for q := range qubitSet {
		qubits = append(qubits, q)
	}

	return Segment{
		ID:           id,
		NodeIDs:      nodeIDs,
		EntryNodes:   entry,
		ExitNodes:    exit,
		QubitsUsed:   qubits,
		IsReversible: allUnitary,
	}
}

// GetSegmentByNode returns the segment containing nodeID, if any.
func (a *Analyzer) GetSegmentByNode(nodeID string) (Segment, bool) {
	for _, seg := range a.segments {
		for _, id := range seg.NodeIDs {
			if id == nodeID {
				return seg, true
			}
		}
	}
	return Segment{}, false
}

// GetReversibleSegments returns only the segments that are fully unitary.
func (a *Analyzer) GetReversibleSegments() []Segment {
	var out []Segment
	for _, seg := range a.segments {
		if seg.IsReversible {
			out = append(out, seg)
		}
	}
	return out
}

// SegmentStats summarizes the segment population of an analyzed graph.
type SegmentStats struct {
	TotalSegments        int
	ReversibleSegments   int
	IrreversibleSegments int
	TotalNodes           int
	ReversibleNodes      int
	AvgSegmentLength     float64
	MaxSegmentLength     int
	QubitsInRevSegments  int
}

// GetSegmentStats computes aggregate statistics over the last Analyze call.
func (a *Analyzer) GetSegmentStats() SegmentStats {
	reversible := a.GetReversibleSegments()

	var totalNodes, reversibleNodes, maxLen int
	for _, seg := range a.segments {
		totalNodes += seg.Len()
		if seg.Len() > maxLen {
			maxLen = seg.Len()
		}
	}
	for _, seg := range reversible {
		reversibleNodes += seg.Len()
	}

	qubits := make(map[string]bool)
	for _, seg := range reversible {
		for _, q := range seg.QubitsUsed {
			qubits[q] = true
		}
	}

	var avg float64
	if len(a.segments) > 0 {
		avg = float64(totalNodes) / float64(len(a.segments))
	}

	return SegmentStats{
		TotalSegments:        len(a.segments),
		ReversibleSegments:   len(reversible),
		IrreversibleSegments: len(a.segments) - len(reversible),
		TotalNodes:           totalNodes,
		ReversibleNodes:      reversibleNodes,
		AvgSegmentLength:     avg,
		MaxSegmentLength:     maxLen,
		QubitsInRevSegments:  len(qubits),
	}
}

// ValidateSegment checks that seg's nodes all exist, are unitary, and
// form a connected subgraph.
func (a *Analyzer) ValidateSegment(seg Segment) (bool, string) {
	for _, id := range seg.NodeIDs {
		n, ok := a.graph.Node(id)
		if !ok {
			return false, "node " + id + " not found in graph"
		}
		if !graphir.UnitaryOps[n.Op] {
			return false, "node " + id + " has non-unitary op: " + string(n.Op)
		}
	}
	if !a.isConnectedSubgraph(seg.NodeIDs) {
		return false, "segment nodes do not form a connected subgraph"
	}
	return true, ""
}

func (a *Analyzer) isConnectedSubgraph(nodeIDs []string) bool {
	if len(nodeIDs) == 0 {
		return true
	}
	nodeSet := make(map[string]bool, len(nodeIDs))
	for _, id := range nodeIDs {
		nodeSet[id] = true
	}

	visited := make(map[string]bool)
	queue := []string{nodeIDs[0]}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if visited[cur] {
			continue
		}
		visited[cur] = true
		neighbors := append(append([]string(nil), a.forward[cur]...), a.backward[cur]...)
		for _, n := range neighbors {
			if nodeSet[n] && !visited[n] {
				queue = append(queue, n)
			}
		}
	}
	return len(visited) == len(nodeIDs)
}
