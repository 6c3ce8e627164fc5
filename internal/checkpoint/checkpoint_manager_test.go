package checkpoint

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neuralground/qmk/internal/logicalqubit"
	"github.com/neuralground/qmk/internal/qecprofile"
	"github.com/neuralground/qmk/internal/resourcemgr"
)

func newRMWithQubit(t *testing.T, vqID string) *resourcemgr.Manager {
	t.Helper()
	rm := resourcemgr.New(64, nil)
	_, err := rm.AllocLogicalQubits([]string{vqID}, qecprofile.SurfaceCodeProfile(3, 1e-3))
	require.NoError(t, err)
	return rm
}

func TestCreateAndRestoreCheckpointRoundTripsState(t *testing.T) {
	rm := newRMWithQubit(t, "q0")
	q, err := rm.GetLogicalQubit("q0")
	require.NoError(t, err)
	require.NoError(t, q.ApplyGate("H", false, 0))
	require.Equal(t, logicalqubit.Plus, q.State())

	mgr := NewManager(10)
	ck := mgr.CreateCheckpoint("job1", 0, "n1", rm, nil)
	require.Len(t, ck.QubitStates, 1)

	require.NoError(t, q.ApplyGate("X", false, 100))
	require.NotEqual(t, logicalqubit.Plus, q.State())

	require.NoError(t, mgr.RestoreCheckpoint(ck.CheckpointID, rm))
	q2, err := rm.GetLogicalQubit("q0")
	require.NoError(t, err)
	assert.Equal(t, logicalqubit.Plus, q2.State())
}

func TestRestoreCheckpointUnknownIDErrors(t *testing.T) {
	mgr := NewManager(10)
	rm := resourcemgr.New(64, nil)
	err := mgr.RestoreCheckpoint("missing", rm)
	assert.Error(t, err)
}

func TestCreateCheckpointEvictsOldestAtCapacity(t *testing.T) {
	rm := newRMWithQubit(t, "q0")
	mgr := NewManager(2)

	first := mgr.CreateCheckpoint("job1", 0, "n1", rm, nil)
	mgr.CreateCheckpoint("job1", 1, "n2", rm, nil)
	mgr.CreateCheckpoint("job1", 2, "n3", rm, nil)

	_, ok := mgr.GetCheckpoint(first.CheckpointID)
	assert.False(t, ok)
	assert.Len(t, mgr.ListCheckpoints(""), 2)
}

func TestListCheckpointsFiltersByJob(t *testing.T) {
	rm := newRMWithQubit(t, "q0")
	mgr := NewManager(10)
	mgr.CreateCheckpoint("jobA", 0, "n1", rm, nil)
	mgr.CreateCheckpoint("jobB", 0, "n1", rm, nil)

	assert.Len(t, mgr.ListCheckpoints("jobA"), 1)
	assert.Len(t, mgr.ListCheckpoints("jobB"), 1)
	assert.Len(t, mgr.ListCheckpoints(""), 2)
}

func TestDeleteCheckpointRemovesFromJobIndex(t *testing.T) {
	rm := newRMWithQubit(t, "q0")
	mgr := NewManager(10)
	ck := mgr.CreateCheckpoint("jobA", 0, "n1", rm, nil)

	mgr.DeleteCheckpoint(ck.CheckpointID)
	_, ok := mgr.GetCheckpoint(ck.CheckpointID)
	assert.False(t, ok)
	assert.Empty(t, mgr.ListCheckpoints("jobA"))
}
