package circuitir

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

func TestFromGraphLinearizesInTopoOrder(t *testing.T) {
	g, err := graphir.Assemble(bellProgram)
	require.NoError(t, err)

	c, err := FromGraph(g)
	require.NoError(t, err)
	require.Len(t, c.Instructions, 5)

	ids := make([]string, len(c.Instructions))
	for i, in := range c.Instructions {
		ids[i] = in.ID
	}
	assert.Equal(t, []string{"alloc", "h1", "cnot1", "m0", "free"}, ids)
}

func TestToGraphRoundTripPreservesOrder(t *testing.T) {
	g1, err := graphir.Assemble(bellProgram)
	require.NoError(t, err)
	c, err := FromGraph(g1)
	require.NoError(t, err)

	g2, err := ToGraph(c)
	require.NoError(t, err)
	order, err := graphir.TopoSort(g2)
	require.NoError(t, err)

	ids := make([]string, len(order))
	for i, n := range order {
		ids[i] = n.ID
	}
	assert.Equal(t, []string{"alloc", "h1", "cnot1", "m0", "free"}, ids)
}

func TestGateCountAndTCount(t *testing.T) {
	g, err := graphir.Assemble("a: APPLY_H q0\nb: APPLY_T q0\nc: APPLY_T q0\nd: MEASURE_Z q0 -> ev0\n")
	require.NoError(t, err)
	c, err := FromGraph(g)
	require.NoError(t, err)

	assert.Equal(t, 3, c.GateCount())
	assert.Equal(t, 2, c.TCount())
}

func TestCloneDoesNotAliasInstructions(t *testing.T) {
	g, err := graphir.Assemble(bellProgram)
	require.NoError(t, err)
	c, err := FromGraph(g)
	require.NoError(t, err)

	clone := c.Clone()
	clone.Instructions[0].ID = "mutated"
	assert.Equal(t, "alloc", c.Instructions[0].ID)
}

type fakePass struct {
	name   string
	always bool
}

func (p *fakePass) Name() string                { return p.name }
func (p *fakePass) ShouldRun(c *Circuit) bool    { return p.always || c.GateCount() > 0 }
func (p *fakePass) Run(c *Circuit) (*Circuit, Metrics) {
	return c, Metrics{GatesRemoved: 1}
}

func TestPassManagerRunsConfiguredSequenceAndAggregates(t *testing.T) {
	reg := NewPassRegistry()
	require.NoError(t, reg.Register("fake1", func() Pass { return &fakePass{name: "fake1", always: true} }))
	require.NoError(t, reg.Register("fake2", func() Pass { return &fakePass{name: "fake2", always: true} }))

	g, err := graphir.Assemble(bellProgram)
	require.NoError(t, err)
	c, err := FromGraph(g)
	require.NoError(t, err)

	mgr := NewPassManager(reg, "fake1", "fake2")
	_, report, err := mgr.Run(c)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Total.GatesRemoved)
	assert.Len(t, report.PerPass, 2)
}

func TestPassManagerRunsPassRegardlessOfShouldRun(t *testing.T) {
	reg := NewPassRegistry()
	require.NoError(t, reg.Register("never", func() Pass { return &fakePass{name: "never", always: false} }))

	c := &Circuit{QubitSet: []string{"q0"}}
	mgr := NewPassManager(reg, "never")
	_, report, err := mgr.Run(c)
	require.NoError(t, err)
	require.Contains(t, report.PerPass, "never")
	assert.Equal(t, 1, report.PerPass["never"].GatesRemoved)
}

func TestPassSequencePresets(t *testing.T) {
	assert.Empty(t, PassSequence(LevelNone))
	assert.NotEmpty(t, PassSequence(LevelBasic))
	assert.Greater(t, len(PassSequence(LevelStandard)), len(PassSequence(LevelBasic)))
	assert.Greater(t, len(PassSequence(LevelAggressive)), len(PassSequence(LevelStandard)))
}

func TestRegistryRejectsDuplicateAndUnknown(t *testing.T) {
	reg := NewPassRegistry()
	require.NoError(t, reg.Register("p", func() Pass { return &fakePass{name: "p"} }))
	assert.Error(t, reg.Register("p", func() Pass { return &fakePass{name: "p"} }))

	_, err := reg.Create("missing")
	assert.Error(t, err)
}
