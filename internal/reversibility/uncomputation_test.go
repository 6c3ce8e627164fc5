package reversibility

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neuralground/qmk/internal/executor"
	"github.com/neuralground/qmk/internal/graphir"
	"github.com/neuralground/qmk/internal/qecprofile"
	"github.com/neuralground/qmk/internal/resourcemgr"
)

func mustProfile(t *testing.T) qecprofile.Profile {
	t.Helper()
	return qecprofile.SurfaceCodeProfile(3, 1e-3)
}

func analyzedSegment(t *testing.T, src string) (Segment, map[string]*graphir.Node) {
	t.Helper()
	g, err := graphir.Assemble(src)
	require.NoError(t, err)

	a := NewAnalyzer(g)
	segs, err := a.Analyze()
	require.NoError(t, err)
	require.Len(t, segs, 1)

	nodes := make(map[string]*graphir.Node)
	for _, n := range g.Nodes {
		nodes[n.ID] = n
	}
	return segs[0], nodes
}

func TestUncomputeSegmentReversesOrderAndInvertsGates(t *testing.T) {
	seg, nodes := analyzedSegment(t, bellProgram)

	eng := NewEngine()
	inv, err := eng.UncomputeSegment(seg, nodes)
	require.NoError(t, err)
	require.Len(t, inv, 2)

	assert.Equal(t, "inv_cnot1", inv[0].ID)
	assert.Equal(t, graphir.OpApplyCNOT, inv[0].Op)
	assert.Equal(t, "inv_h1", inv[1].ID)
	assert.Equal(t, graphir.OpApplyH, inv[1].Op)

	log := eng.GetUncomputationLog()
	require.Len(t, log, 1)
	assert.Equal(t, []string{"h1", "cnot1"}, log[0].OriginalNodes)
}

func TestUncomputeSegmentRejectsIrreversibleSegment(t *testing.T) {
	eng := NewEngine()
	_, err := eng.UncomputeSegment(Segment{IsReversible: false}, nil)
	assert.Error(t, err)
}

func TestCreateInverseNodeTogglesSDagger(t *testing.T) {
	n := &graphir.Node{ID: "s1", Op: graphir.OpApplyS, VQs: []string{"q0"}}
	inv, err := createInverseNode(n, "s1")
	require.NoError(t, err)
	assert.True(t, isDagger(inv))

	inv2, err := createInverseNode(inv, "s1dag")
	require.NoError(t, err)
	assert.False(t, isDagger(inv2))
}

func TestCreateInverseNodeNegatesRotationAngle(t *testing.T) {
	n := &graphir.Node{ID: "r1", Op: graphir.OpApplyRZ, VQs: []string{"q0"}, Args: map[string]any{"theta": 0.75}}
	inv, err := createInverseNode(n, "r1")
	require.NoError(t, err)
	assert.Equal(t, -0.75, inv.Args["theta"])
}

func TestApplyUncomputationExecutesInverseChain(t *testing.T) {
	seg, nodes := analyzedSegment(t, bellProgram)

	eng := NewEngine()
	inv, err := eng.UncomputeSegment(seg, nodes)
	require.NoError(t, err)

	rm := resourcemgr.New(64, nil)
	_, allocErr := rm.AllocLogicalQubits([]string{"q0", "q1"}, mustProfile(t))
	require.NoError(t, allocErr)

	ex := executor.New(rm, graphir.CapAlloc, graphir.CapLink, graphir.CapTeleport, graphir.CapMagic)
	result, err := eng.ApplyUncomputation(context.Background(), inv, ex)
	require.NoError(t, err)
	assert.Equal(t, executor.Completed, result.Status)
}

const sPhaseProgram = `
alloc: ALLOC_LQ profile="logical:surface_code(d=3)" -> q0
x1: APPLY_X q0
s1: APPLY_S q0
m0: MEASURE_Z q0 -> ev0
free: FREE_LQ q0
`

// TestApplyUncomputationRestoresPhaseAfterSGate exercises the one
// segment shape TestApplyUncomputationExecutesInverseChain doesn't:
// a segment containing a non-self-inverse gate (S). The inverse
// sequence's generated S-dagger node must actually run as S-dagger
// through the real executor, not as a second forward S.
func TestApplyUncomputationRestoresPhaseAfterSGate(t *testing.T) {
	seg, nodes := analyzedSegment(t, sPhaseProgram)
	require.Equal(t, []string{"x1", "s1"}, seg.NodeIDs)

	eng := NewEngine()
	inv, err := eng.UncomputeSegment(seg, nodes)
	require.NoError(t, err)
	require.Len(t, inv, 2)
	assert.True(t, isDagger(inv[0]))

	rm := resourcemgr.New(64, nil)
	_, allocErr := rm.AllocLogicalQubits([]string{"q0"}, mustProfile(t))
	require.NoError(t, allocErr)

	ex := executor.New(rm, graphir.CapAlloc)

	q, err := rm.GetLogicalQubit("q0")
	require.NoError(t, err)
	require.NoError(t, q.ApplyGate("X", false, 0))
	require.NoError(t, q.ApplyGate("S", false, 0))
	assert.InDelta(t, math.Pi/2, q.Phase(), 1e-9)

	result, err := eng.ApplyUncomputation(context.Background(), inv, ex)
	require.NoError(t, err)
	assert.Equal(t, executor.Completed, result.Status)
	assert.InDelta(t, 0, q.Phase(), 1e-9)
}

func TestGetUncomputationCostCountsCnotHeavier(t *testing.T) {
	seg, nodes := analyzedSegment(t, bellProgram)

	eng := NewEngine()
	cost, err := eng.GetUncomputationCost(seg, nodes)
	require.NoError(t, err)
	assert.Equal(t, 2, cost.NumOperations)
	assert.Equal(t, 11, cost.EstimatedTimeUnits) // 1 CNOT (10) + 1 H (1)
}

func TestCanUncomputeRejectsEmptyAndIrreversible(t *testing.T) {
	ok, reason := CanUncompute(Segment{IsReversible: true})
	assert.False(t, ok)
	assert.Contains(t, reason, "empty")

	ok, reason = CanUncompute(Segment{IsReversible: false, NodeIDs: []string{"a"}})
	assert.False(t, ok)
	assert.Contains(t, reason, "irreversible")
}
