package reversibility

import (
	"context"

	"github.com/neuralground/qmk/internal/executor"
	"github.com/neuralground/qmk/internal/graphir"
	"github.com/neuralground/qmk/internal/qmkerr"
)

// gateInverses maps a self-inverse or paired gate opcode to its
// inverse. S has no entry: its inversion is handled separately via the
// Args["dagger"] toggle, mirroring the grounding source's S/S_DAG pair
// (the Graph IR has no dedicated S_DAG opcode; see DESIGN.md/C9).
var gateInverses = map[graphir.Opcode]graphir.Opcode{
	graphir.OpApplyH:    graphir.OpApplyH,
	graphir.OpApplyX:    graphir.OpApplyX,
	graphir.OpApplyY:    graphir.OpApplyY,
	graphir.OpApplyZ:    graphir.OpApplyZ,
	graphir.OpApplyCNOT: graphir.OpApplyCNOT,
}

func isRotation(op graphir.Opcode) bool {
	return op == graphir.OpApplyRX || op == graphir.OpApplyRY || op == graphir.OpApplyRZ
}

func isDagger(n *graphir.Node) bool {
	d, _ := n.Args["dagger"].(bool)
	return d
}

// LogEntry records one uncompute_segment invocation.
type LogEntry struct {
	SegmentID     int
	OriginalNodes []string
	InverseOps    []string
	Qubits        []string
}

// Engine generates and applies inverse operation sequences for
// reversible segments. Grounded on
// original_source/kernel/reversibility/uncomputation_engine.py.
type Engine struct {
	log []LogEntry
}

// NewEngine constructs an empty Engine.
func NewEngine() *Engine { return &Engine{} }

// UncomputeSegment generates the inverse operation sequence for seg in
// reverse execution order, given the original node definitions.
func (e *Engine) UncomputeSegment(seg Segment, nodes map[string]*graphir.Node) ([]*graphir.Node, error) {
	if !seg.IsReversible {
		return nil, qmkerr.Withf(qmkerr.UncomputationInvalidSegment,
			map[string]any{"segment_id": seg.ID}, "segment %d is not reversible", seg.ID)
	}

	inverse := make([]*graphir.Node, 0, len(seg.NodeIDs))
	for i := len(seg.NodeIDs) - 1; i >= 0; i-- {
		id := seg.NodeIDs[i]
		n, ok := nodes[id]
		if !ok {
			return nil, qmkerr.Withf(qmkerr.UncomputationInvalidSegment,
				map[string]any{"node_id": id}, "node %q not found", id)
		}
		inv, err := createInverseNode(n, id)
		if err != nil {
			return nil, err
		}
		inverse = append(inverse, inv)
	}

	ids := make([]string, len(inverse))
	for i, n := range inverse {
		ids[i] = n.ID
	}
	e.log = append(e.log, LogEntry{
		SegmentID:     seg.ID,
		OriginalNodes: append([]string(nil), seg.NodeIDs...),
		InverseOps:    ids,
		Qubits:        append([]string(nil), seg.QubitsUsed...),
	})

	return inverse, nil
}

func createInverseNode(n *graphir.Node, originalID string) (*graphir.Node, error) {
	inv := &graphir.Node{
		ID:   "inv_" + originalID,
		VQs:  append([]string(nil), n.VQs...),
		Args: map[string]any{"original_node": originalID},
	}

	switch {
	case n.Op == graphir.OpApplyS:
		inv.Op = graphir.OpApplyS
		inv.Args["dagger"] = !isDagger(n)
	case isRotation(n.Op):
		inv.Op = n.Op
		theta, _ := n.Args["theta"].(float64)
		inv.Args["theta"] = -theta
	default:
		target, ok := gateInverses[n.Op]
		if !ok {
			return nil, qmkerr.New(qmkerr.UncomputationInvalidSegment,
				"no known inverse for op %q", n.Op)
		}
		inv.Op = target
	}

	return inv, nil
}

// ApplyUncomputation executes inverse operations in order by chaining
// them into a minimal Graph IR program and running it through ex.
func (e *Engine) ApplyUncomputation(ctx context.Context, inverseOps []*graphir.Node, ex *executor.Executor) (executor.Result, error) {
	g := graphir.NewGraph()
	var prev string
	for _, n := range inverseOps {
		if prev != "" {
			n.Deps = append(n.Deps, prev)
		}
		if !g.AddNode(n) {
			return executor.Result{}, qmkerr.New(qmkerr.DuplicateNodeId, "duplicate inverse node id %q", n.ID)
		}
		prev = n.ID
	}
	result := ex.Execute(ctx, g)
	if result.Err != nil {
		return result, result.Err
	}
	return result, nil
}

// VerifyUncomputation regenerates the inverse sequence for seg and
// checks it has the expected shape: one inverse per original node,
// each touching the same qubits as its original in reverse order.
func (e *Engine) VerifyUncomputation(seg Segment, nodes map[string]*graphir.Node) (bool, error) {
	inverse, err := e.UncomputeSegment(seg, nodes)
	if err != nil {
		return false, err
	}
	if len(inverse) != len(seg.NodeIDs) {
		return false, nil
	}

	for i := 0; i < len(seg.NodeIDs); i++ {
		origID := seg.NodeIDs[len(seg.NodeIDs)-1-i]
		orig := nodes[origID]
		inv := inverse[i]
		if !stringSliceEqual(orig.VQs, inv.VQs) {
			return false, nil
		}
	}
	return true, nil
}

func stringSliceEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Cost summarizes the estimated expense of uncomputing a segment.
type Cost struct {
	NumOperations      int
	OperationCounts    map[graphir.Opcode]int
	EstimatedTimeUnits int
	QubitsAffected     int
	SegmentLength      int
}

// GetUncomputationCost estimates the cost of uncomputing seg: one time
// unit per single-qubit gate, ten per CNOT, matching the grounding
// source's simplified cost model.
func (e *Engine) GetUncomputationCost(seg Segment, nodes map[string]*graphir.Node) (Cost, error) {
	inverse, err := e.UncomputeSegment(seg, nodes)
	if err != nil {
		return Cost{}, err
	}

	counts := make(map[graphir.Opcode]int)
	timeCost := 0
	for _, n := range inverse {
		counts[n.Op]++
		if n.Op == graphir.OpApplyCNOT {
			timeCost += 10
		} else {
			timeCost++
		}
	}

	return Cost{
		NumOperations:      len(inverse),
		OperationCounts:    counts,
		EstimatedTimeUnits: timeCost,
		QubitsAffected:     len(seg.QubitsUsed),
		SegmentLength:      seg.Len(),
	}, nil
}

// CanUncompute reports whether seg is eligible for uncomputation.
func CanUncompute(seg Segment) (bool, string) {
	if !seg.IsReversible {
		return false, "segment contains irreversible operations"
	}
	if seg.Len() == 0 {
		return false, "segment is empty"
	}
	return true, ""
}

// GetUncomputationLog returns a copy of every UncomputeSegment call's log entry.
func (e *Engine) GetUncomputationLog() []LogEntry {
	return append([]LogEntry(nil), e.log...)
}

// ClearLog discards the uncomputation log.
func (e *Engine) ClearLog() { e.log = nil }
