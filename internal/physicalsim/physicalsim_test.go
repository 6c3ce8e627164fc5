package physicalsim_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/neuralground/qmk/internal/executor"
	"github.com/neuralground/qmk/internal/graphir"
	"github.com/neuralground/qmk/internal/physicalsim"
	"github.com/neuralground/qmk/internal/resourcemgr"
)

const bellGraph = `
alloc: ALLOC_LQ profile="logical:surface_code(d=3)" -> q0, q1
h: APPLY_H q0
cnot: APPLY_CNOT q0, q1
m0: MEASURE_Z q0 -> m0
m1: MEASURE_Z q1 -> m1
free: FREE_LQ q0, q1
`

const ghzGraph = `
alloc: ALLOC_LQ profile="logical:surface_code(d=3)" -> q0, q1, q2
h: APPLY_H q0
c1: APPLY_CNOT q0, q1
c2: APPLY_CNOT q1, q2
m0: MEASURE_Z q0 -> m0
m1: MEASURE_Z q1 -> m1
m2: MEASURE_Z q2 -> m2
free: FREE_LQ q0, q1, q2
`

// TestDiscreteExecutorAgreesWithExactSimulationOnBellPair cross-checks
// the discrete-state executor's Bell-pair correlation against an
// exact statevector simulation of the same circuit: both must always
// measure the two qubits into the same classical value.
func TestDiscreteExecutorAgreesWithExactSimulationOnBellPair(t *testing.T) {
	assert := assert.New(t)

	seed := int64(11)
	g, err := graphir.Assemble(bellGraph)
	assert.NoError(err)

	rm := resourcemgr.New(4096, &seed)
	ex := executor.New(rm, graphir.CapAlloc)
	result := ex.Execute(context.Background(), g)
	assert.NoError(result.Err)
	assert.Equal(result.Events["m0"], result.Events["m1"])

	correlated, total, err := physicalsim.BellPairCorrelation(64)
	assert.NoError(err)
	assert.Equal(total, correlated)
}

// TestDiscreteExecutorAgreesWithExactSimulationOnGHZ is the three-qubit
// analogue: a GHZ state always measures all qubits equal.
func TestDiscreteExecutorAgreesWithExactSimulationOnGHZ(t *testing.T) {
	assert := assert.New(t)

	seed := int64(13)
	g, err := graphir.Assemble(ghzGraph)
	assert.NoError(err)

	rm := resourcemgr.New(4096, &seed)
	ex := executor.New(rm, graphir.CapAlloc)
	result := ex.Execute(context.Background(), g)
	assert.NoError(result.Err)
	assert.Equal(result.Events["m0"], result.Events["m1"])
	assert.Equal(result.Events["m1"], result.Events["m2"])

	correlated, total, err := physicalsim.GHZCorrelation(64)
	assert.NoError(err)
	assert.Equal(total, correlated)
}
