package resourcemgr

import (
	"errors"
	"testing"

	"github.com/neuralground/qmk/internal/qecprofile"
	"github.com/neuralground/qmk/internal/qmkerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllocAndFree(t *testing.T) {
	seed := int64(1)
	m := New(1000, &seed)
	profile := qecprofile.SurfaceCodeProfile(3, 1e-3)

	allocated, err := m.AllocLogicalQubits([]string{"q0", "q1"}, profile)
	require.NoError(t, err)
	require.Len(t, allocated, 2)

	usage := m.ResourceUsage()
	assert.Equal(t, 2, usage.LogicalQubitsAllocated)
	assert.Equal(t, 2*profile.PhysicalQubitCount, usage.PhysicalQubitsUsed)

	m.FreeLogicalQubits([]string{"q0"})
	usage = m.ResourceUsage()
	assert.Equal(t, 1, usage.LogicalQubitsAllocated)
	assert.Equal(t, profile.PhysicalQubitCount, usage.PhysicalQubitsUsed)
}

func TestAllocQuotaExceeded(t *testing.T) {
	m := New(10, nil)
	profile := qecprofile.SurfaceCodeProfile(9, 1e-3) // 162 physical qubits

	_, err := m.AllocLogicalQubits([]string{"q0"}, profile)
	require.Error(t, err)
	var qerr *qmkerr.Error
	require.True(t, errors.As(err, &qerr))
	assert.Equal(t, qmkerr.QuotaExceeded, qerr.Code)
}

func TestAllocIdTaken(t *testing.T) {
	m := New(10000, nil)
	profile := qecprofile.SurfaceCodeProfile(3, 1e-3)
	_, err := m.AllocLogicalQubits([]string{"q0"}, profile)
	require.NoError(t, err)

	_, err = m.AllocLogicalQubits([]string{"q0"}, profile)
	require.Error(t, err)
	var qerr *qmkerr.Error
	require.True(t, errors.As(err, &qerr))
	assert.Equal(t, qmkerr.IdTaken, qerr.Code)
}

func TestGetLogicalQubitNotLive(t *testing.T) {
	m := New(10000, nil)
	_, err := m.GetLogicalQubit("ghost")
	require.Error(t, err)
	var qerr *qmkerr.Error
	require.True(t, errors.As(err, &qerr))
	assert.Equal(t, qmkerr.IdNotLive, qerr.Code)
}

func TestOpenAndCloseChannel(t *testing.T) {
	m := New(10000, nil)
	profile := qecprofile.SurfaceCodeProfile(3, 1e-3)
	_, err := m.AllocLogicalQubits([]string{"a", "b"}, profile)
	require.NoError(t, err)

	require.NoError(t, m.OpenChannel("ch0", "a", "b", 0.99))
	assert.Equal(t, 1, m.ResourceUsage().ChannelsOpen)

	m.CloseChannel("ch0")
	assert.Equal(t, 0, m.ResourceUsage().ChannelsOpen)
}

func TestOpenChannelRequiresLiveQubits(t *testing.T) {
	m := New(10000, nil)
	err := m.OpenChannel("ch0", "a", "b", 0.99)
	require.Error(t, err)
}

func TestPerQubitSeedsAreDerivedDeterministically(t *testing.T) {
	seed := int64(100)
	m1 := New(10000, &seed)
	m2 := New(10000, &seed)
	profile := qecprofile.SurfaceCodeProfile(3, 1e-3)

	_, err := m1.AllocLogicalQubits([]string{"a", "b"}, profile)
	require.NoError(t, err)
	_, err = m2.AllocLogicalQubits([]string{"a", "b"}, profile)
	require.NoError(t, err)

	qa1, _ := m1.GetLogicalQubit("a")
	qa2, _ := m2.GetLogicalQubit("a")
	require.NoError(t, qa1.ApplyGate("H", false, 0))
	require.NoError(t, qa2.ApplyGate("H", false, 0))
	out1, err := qa1.Measure(0, 1, nil)
	require.NoError(t, err)
	out2, err := qa2.Measure(0, 1, nil)
	require.NoError(t, err)
	assert.Equal(t, out1, out2)
}

func TestAdvanceTime(t *testing.T) {
	m := New(10000, nil)
	m.AdvanceTime(5.0)
	m.AdvanceTime(2.5)
	assert.Equal(t, 7.5, m.CurrentTimeUs())
}

func TestReset(t *testing.T) {
	m := New(10000, nil)
	profile := qecprofile.SurfaceCodeProfile(3, 1e-3)
	_, err := m.AllocLogicalQubits([]string{"a"}, profile)
	require.NoError(t, err)
	m.AdvanceTime(10)

	m.Reset()
	assert.Equal(t, 0, m.ResourceUsage().LogicalQubitsAllocated)
	assert.Equal(t, 0.0, m.CurrentTimeUs())
}
