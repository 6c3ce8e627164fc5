package graphir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTopoSortRespectsQubitOrder(t *testing.T) {
	g, err := Assemble(bellProgram)
	require.NoError(t, err)

	order, err := TopoSort(g)
	require.NoError(t, err)
	require.Len(t, order, len(g.Nodes))

	pos := make(map[string]int, len(order))
	for i, n := range order {
		pos[n.ID] = i
	}
	assert.Less(t, pos["alloc"], pos["h1"])
	assert.Less(t, pos["h1"], pos["cnot1"])
	assert.Less(t, pos["cnot1"], pos["m0"])
	assert.Less(t, pos["m0"], pos["cond"])
	assert.Less(t, pos["cond"], pos["free"])
}

func TestTopoSortDeterministicAcrossRuns(t *testing.T) {
	g, err := Assemble(bellProgram)
	require.NoError(t, err)

	order1, err := TopoSort(g)
	require.NoError(t, err)
	order2, err := TopoSort(g)
	require.NoError(t, err)

	for i := range order1 {
		assert.Equal(t, order1[i].ID, order2[i].ID)
	}
}

func TestTopoSortDetectsCycle(t *testing.T) {
	g := NewGraph()
	g.AddNode(&Node{ID: "a", Op: OpApplyH, VQs: []string{"q0"}, Deps: []string{"b"}})
	g.AddNode(&Node{ID: "b", Op: OpApplyX, VQs: []string{"q0"}, Deps: []string{"a"}})

	_, err := TopoSort(g)
	require.Error(t, err)
}
