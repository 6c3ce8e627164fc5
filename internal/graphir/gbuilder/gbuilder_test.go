package gbuilder

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/neuralground/qmk/internal/executor"
	"github.com/neuralground/qmk/internal/graphir"
	"github.com/neuralground/qmk/internal/resourcemgr"
)

func TestBuilderProducesAnAssemblableBellGraph(t *testing.T) {
	assert := assert.New(t)

	g, err := New().
		Alloc(`logical:surface_code(d=3)`, "q0", "q1").
		H("q0").
		CNOT("q0", "q1").
		MeasureZ("q0", "m0").
		MeasureZ("q1", "m1").
		Free("q0", "q1").
		Build()
	assert.NoError(err)
	assert.Len(g.Nodes, 6)
	assert.ElementsMatch([]string{"q0", "q1"}, g.Resources.VQs)
	assert.ElementsMatch([]string{"m0", "m1"}, g.Resources.Events)
}

func TestBuilderLatchesFirstDuplicateNodeError(t *testing.T) {
	assert := assert.New(t)

	b := New()
	b.g.AddNode(&graphir.Node{ID: "alloc1", Op: graphir.OpAllocLQ})

	_, err := b.Alloc("logical:surface_code(d=3)", "q0").Build()
	assert.Error(err)

	// once latched, further calls are no-ops
	before := err
	_, err = b.H("q0").Build()
	assert.Equal(before, err)
}

func TestBuiltGraphExecutesABellPair(t *testing.T) {
	assert := assert.New(t)

	seed := int64(7)
	rm := resourcemgr.New(4096, &seed)
	ex := executor.New(rm, graphir.CapAlloc)

	g, err := New().
		Alloc(`logical:surface_code(d=3)`, "q0", "q1").
		H("q0").
		CNOT("q0", "q1").
		MeasureZ("q0", "m0").
		MeasureZ("q1", "m1").
		Free("q0", "q1").
		Build()
	assert.NoError(err)

	result := ex.Execute(context.Background(), g)
	assert.NoError(result.Err)
	assert.Equal(result.Events["m0"], result.Events["m1"])
}
