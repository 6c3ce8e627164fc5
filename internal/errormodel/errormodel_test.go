package errormodel

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeterminism(t *testing.T) {
	seed := int64(42)
	m1 := New(&seed)
	m2 := New(&seed)

	for i := 0; i < 20; i++ {
		p1 := m1.ApplyGateNoise("q0", 0.1, float64(i))
		p2 := m2.ApplyGateNoise("q0", 0.1, float64(i))
		assert.Equal(t, p1, p2)
	}
}

func TestApplyGateNoiseZeroRate(t *testing.T) {
	seed := int64(1)
	m := New(&seed)
	for i := 0; i < 50; i++ {
		assert.Equal(t, "", m.ApplyGateNoise("q0", 0, 0))
	}
}

func TestApplyGateNoiseCertain(t *testing.T) {
	seed := int64(1)
	m := New(&seed)
	p := m.ApplyGateNoise("q0", 1.0, 0)
	assert.Contains(t, []string{"X", "Y", "Z"}, p)
}

func TestApplyIdleNoiseUsesProductFormula(t *testing.T) {
	seed := int64(7)
	m := New(&seed)
	// probability = idleErrorRate * duration, clamped to 1
	hit := m.ApplyIdleNoise("q0", 2.0, 1.0, 0) // prob = 2, clamped to 1: certain
	assert.True(t, hit)
}

func TestTPhiInfiniteWhenT2EqualsTwiceT1(t *testing.T) {
	tphi := TPhi(100, 200)
	assert.True(t, math.IsInf(tphi, 1))
}

func TestApplyMeasurementError(t *testing.T) {
	seed := int64(3)
	m := New(&seed)
	out := m.ApplyMeasurementError("q0", 0, 1.0, 0) // certain flip
	assert.Equal(t, 1, out)
	out2 := m.ApplyMeasurementError("q0", 0, 0.0, 0) // never flips
	assert.Equal(t, 0, out2)
}

func TestErrorBreakdown(t *testing.T) {
	seed := int64(9)
	m := New(&seed)
	m.ApplyGateNoise("q0", 1.0, 0)
	m.ApplyT1Decay("q0", 1.0, 1e9, 1) // certain decay
	m.ApplyMeasurementError("q0", 0, 1.0, 2)

	b := m.ErrorBreakdown()
	require.Equal(t, 1, b.Depolarizing)
	require.Equal(t, 1, b.Coherence)
	require.Equal(t, 1, b.Measurement)
	require.Equal(t, 3, b.Total)
}
