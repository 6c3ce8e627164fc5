package logicalqubit

import (
	"testing"

	"github.com/neuralground/qmk/internal/qecprofile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testProfile() qecprofile.Profile {
	return qecprofile.SurfaceCodeProfile(5, 1e-4)
}

func TestHadamardRewriteTable(t *testing.T) {
	seed := int64(1)
	q := New("q0", testProfile(), &seed)
	require.Equal(t, Zero, q.State())

	require.NoError(t, q.ApplyGate("H", false, 0))
	assert.Equal(t, Plus, q.State())

	require.NoError(t, q.ApplyGate("H", false, 1))
	assert.Equal(t, Zero, q.State())
}

func TestXGate(t *testing.T) {
	seed := int64(1)
	q := New("q0", testProfile(), &seed)
	require.NoError(t, q.ApplyGate("X", false, 0))
	assert.Equal(t, One, q.State())
	require.NoError(t, q.ApplyGate("X", false, 1))
	assert.Equal(t, Zero, q.State())
}

func TestUnknownGateErrors(t *testing.T) {
	seed := int64(1)
	q := New("q0", testProfile(), &seed)
	err := q.ApplyGate("BOGUS", false, 0)
	require.Error(t, err)
}

func TestMeasureZComputationalBasisDeterministic(t *testing.T) {
	seed := int64(2)
	q := New("q0", testProfile(), &seed)
	require.NoError(t, q.ApplyGate("X", false, 0))
	out, err := q.Measure(BasisZ, 1, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, out)
}

func TestMeasureXPlusStateDeterministic(t *testing.T) {
	seed := int64(3)
	q := New("q0", testProfile(), &seed)
	require.NoError(t, q.ApplyGate("H", false, 0))
	out, err := q.Measure(BasisX, 1, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, out) // |+> measured in X basis is certainly 0
}

func TestReset(t *testing.T) {
	seed := int64(4)
	q := New("q0", testProfile(), &seed)
	require.NoError(t, q.ApplyGate("H", false, 0))
	q.Reset(1)
	assert.Equal(t, Zero, q.State())
	assert.Equal(t, 0.0, q.Phase())
}

func TestBellStateEntanglementAndCorrelatedMeasurement(t *testing.T) {
	tracker := NewEntanglementTracker()
	seedA, seedB := int64(10), int64(11)
	a := New("qA", testProfile(), &seedA)
	b := New("qB", testProfile(), &seedB)

	require.NoError(t, a.ApplyGate("H", false, 0))
	ApplyCNOT(tracker, a, b, 1)

	assert.True(t, tracker.IsEntangled("qA"))
	assert.True(t, tracker.IsEntangled("qB"))
	assert.Equal(t, Plus, a.State())
	assert.Equal(t, Plus, b.State())

	grpA := tracker.GetGroup("qA")
	outA, err := a.Measure(BasisZ, 2, grpA)
	require.NoError(t, err)

	grpB := tracker.GetGroup("qB")
	outB, err := b.Measure(BasisZ, 2, grpB)
	require.NoError(t, err)

	assert.Equal(t, outA, outB, "Bell pair outcomes must be correlated")
}

func TestGHZEntanglementGroupMerge(t *testing.T) {
	tracker := NewEntanglementTracker()
	s1, s2, s3 := int64(20), int64(21), int64(22)
	a := New("qA", testProfile(), &s1)
	b := New("qB", testProfile(), &s2)
	c := New("qC", testProfile(), &s3)

	require.NoError(t, a.ApplyGate("H", false, 0))
	ApplyCNOT(tracker, a, b, 1)
	ApplyCNOT(tracker, a, c, 2)

	stats := tracker.Statistics()
	require.Equal(t, 1, stats.NumGroups)
	assert.Equal(t, 3, stats.GroupSizes[0])

	grp := tracker.GetGroup("qA")
	outA, err := a.Measure(BasisZ, 3, grp)
	require.NoError(t, err)
	outB, err := b.Measure(BasisZ, 3, tracker.GetGroup("qB"))
	require.NoError(t, err)
	outC, err := c.Measure(BasisZ, 3, tracker.GetGroup("qC"))
	require.NoError(t, err)

	assert.Equal(t, outA, outB)
	assert.Equal(t, outA, outC)
}

func TestSWAPExchangesStates(t *testing.T) {
	tracker := NewEntanglementTracker()
	s1, s2 := int64(30), int64(31)
	a := New("qA", testProfile(), &s1)
	b := New("qB", testProfile(), &s2)

	require.NoError(t, a.ApplyGate("X", false, 0))
	ApplySWAP(tracker, a, b, 1)

	assert.Equal(t, Zero, a.State())
	assert.Equal(t, One, b.State())
}

func TestTelemetryCountsGates(t *testing.T) {
	seed := int64(40)
	q := New("q0", testProfile(), &seed)
	require.NoError(t, q.ApplyGate("H", false, 0))
	require.NoError(t, q.ApplyGate("X", false, 1))
	_, err := q.Measure(BasisZ, 2, nil)
	require.NoError(t, err)

	tel := q.Telemetry()
	assert.Equal(t, 2, tel.GateCount)
	assert.Equal(t, 1, tel.MeasurementCount)
	assert.Greater(t, tel.LogicalErrorRate, 0.0)
}
