package graphir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const bellProgram = `
.version 0.1
.caps CAP_ALLOC

alloc: ALLOC_LQ profile="logical:surface_code(d=3)" -> q0, q1
h1: APPLY_H q0
cnot1: APPLY_CNOT q0, q1
m0: MEASURE_Z q0 -> ev0
m1: MEASURE_Z q1 -> ev1
cond: APPLY_X q1 if ev0==1
free: FREE_LQ q0, q1
`

func TestAssembleBasicProgram(t *testing.T) {
	g, err := Assemble(bellProgram)
	require.NoError(t, err)
	require.Len(t, g.Nodes, 7)

	alloc, ok := g.Node("alloc")
	require.True(t, ok)
	assert.Equal(t, OpAllocLQ, alloc.Op)
	assert.ElementsMatch(t, []string{"q0", "q1"}, alloc.VQs)
	assert.Equal(t, "logical:surface_code(d=3)", alloc.Args["profile"])

	cond, ok := g.Node("cond")
	require.True(t, ok)
	require.NotNil(t, cond.Guard)
	assert.True(t, cond.Guard.IsLeaf())
	assert.Equal(t, "ev0", cond.Guard.Event)
	assert.Equal(t, 1, cond.Guard.Equals)

	assert.ElementsMatch(t, []string{"q0", "q1"}, g.Resources.VQs)
	assert.ElementsMatch(t, []string{"ev0", "ev1"}, g.Resources.Events)
}

func TestAssembleDuplicateNodeIdFails(t *testing.T) {
	_, err := Assemble("a: APPLY_H q0\na: APPLY_X q0\n")
	require.Error(t, err)
}

func TestAssembleCompositeGuard(t *testing.T) {
	g, err := Assemble("m0: MEASURE_Z q0 -> ev0\nm1: MEASURE_Z q1 -> ev1\ncond: APPLY_X q0 if ev0==1 && ev1==0\n")
	require.NoError(t, err)
	cond, _ := g.Node("cond")
	require.NotNil(t, cond.Guard)
	assert.Equal(t, "and", cond.Guard.Type)
	require.Len(t, cond.Guard.Conditions, 2)
}

func TestRoundTripDisassembleReassemble(t *testing.T) {
	g1, err := Assemble(bellProgram)
	require.NoError(t, err)

	text := Disassemble(g1)
	g2, err := Assemble(text)
	require.NoError(t, err)

	require.Len(t, g2.Nodes, len(g1.Nodes))
	for i, n1 := range g1.Nodes {
		n2 := g2.Nodes[i]
		assert.Equal(t, n1.ID, n2.ID)
		assert.Equal(t, n1.Op, n2.Op)
		assert.Equal(t, n1.VQs, n2.VQs)
		assert.Equal(t, n1.Produces, n2.Produces)
	}
	assert.ElementsMatch(t, g1.Resources.VQs, g2.Resources.VQs)
}
