package reversibility

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neuralground/qmk/internal/graphir"
)

const bellProgram = `
alloc: ALLOC_LQ profile="logical:surface_code(d=3)" -> q0, q1
h1: APPLY_H q0
cnot1: APPLY_CNOT q0, q1
m0: MEASURE_Z q0 -> ev0
free: FREE_LQ q0, q1
`

func TestAnalyzeFindsSingleReversibleSegment(t *testing.T) {
	g, err := graphir.Assemble(bellProgram)
	require.NoError(t, err)

	a := NewAnalyzer(g)
	segs, err := a.Analyze()
	require.NoError(t, err)
	require.Len(t, segs, 1)

	seg := segs[0]
	assert.ElementsMatch(t, []string{"h1", "cnot1"}, seg.NodeIDs)
	assert.True(t, seg.IsReversible)
	assert.ElementsMatch(t, []string{"q0", "q1"}, seg.QubitsUsed)
}

func TestGetSegmentByNodeAndReversibleSegments(t *testing.T) {
	g, err := graphir.Assemble(bellProgram)
	require.NoError(t, err)

	a := NewAnalyzer(g)
	_, err = a.Analyze()
	require.NoError(t, err)

	seg, ok := a.GetSegmentByNode("cnot1")
	require.True(t, ok)
	assert.Equal(t, 0, seg.ID)

	_, ok = a.GetSegmentByNode("alloc")
	assert.False(t, ok)

	assert.Len(t, a.GetReversibleSegments(), 1)
}

func TestSegmentStats(t *testing.T) {
	g, err := graphir.Assemble(bellProgram)
	require.NoError(t, err)

	a := NewAnalyzer(g)
	_, err = a.Analyze()
	require.NoError(t, err)

	stats := a.GetSegmentStats()
	assert.Equal(t, 1, stats.TotalSegments)
	assert.Equal(t, 1, stats.ReversibleSegments)
	assert.Equal(t, 0, stats.IrreversibleSegments)
	assert.Equal(t, 2, stats.TotalNodes)
	assert.Equal(t, 2, stats.QubitsInRevSegments)
}

func TestValidateSegmentRejectsUnknownNode(t *testing.T) {
	g, err := graphir.Assemble(bellProgram)
	require.NoError(t, err)

	a := NewAnalyzer(g)
	_, err = a.Analyze()
	require.NoError(t, err)

	bad := Segment{NodeIDs: []string{"missing"}}
	ok, reason := a.ValidateSegment(bad)
	assert.False(t, ok)
	assert.Contains(t, reason, "not found")
}

func TestNoSegmentBetweenConsecutiveIrreversibleOps(t *testing.T) {
	src := `
alloc: ALLOC_LQ profile="logical:surface_code(d=3)" -> q0
m0: MEASURE_Z q0 -> ev0
free: FREE_LQ q0
`
	g, err := graphir.Assemble(src)
	require.NoError(t, err)

	a := NewAnalyzer(g)
	segs, err := a.Analyze()
	require.NoError(t, err)
	assert.Empty(t, segs)
}
