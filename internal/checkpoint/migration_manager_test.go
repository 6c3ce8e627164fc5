package checkpoint

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neuralground/qmk/internal/graphir"
	"github.com/neuralground/qmk/internal/qecprofile"
	"github.com/neuralground/qmk/internal/resourcemgr"
)

const migrationProgram = `alloc: ALLOC_LQ profile="logical:surface_code(d=3)" -> q0, q1
h1: APPLY_H q0
fence1: FENCE_EPOCH
cnot1: APPLY_CNOT q0, q1
m0: MEASURE_Z q0 -> ev0
free: FREE_LQ q0, q1
`

func TestIdentifyMigrationPointsFindsFenceMeasureAndBoundary(t *testing.T) {
	g, err := graphir.Assemble(migrationProgram)
	require.NoError(t, err)

	mm := NewMigrationManager(NewManager(10))
	points := mm.IdentifyMigrationPoints(g)

	byNode := make(map[string]MigrationPoint)
	for _, p := range points {
		byNode[p.NodeID] = p
	}

	fence, ok := byNode["fence1"]
	require.True(t, ok)
	assert.True(t, fence.IsFence)
	assert.True(t, fence.CanMigrate)
	assert.ElementsMatch(t, []string{"q0", "q1"}, fence.QubitsLive)

	measure, ok := byNode["m0"]
	require.True(t, ok)
	assert.False(t, measure.IsFence)
	assert.True(t, measure.CanMigrate)

	free, ok := byNode["free"]
	require.True(t, ok)
	assert.ElementsMatch(t, []string{"q0", "q1"}, free.QubitsLive)
}

func TestInitiateAndCompleteMigrationRoundTripsState(t *testing.T) {
	rm := resourcemgr.New(64, nil)
	_, err := rm.AllocLogicalQubits([]string{"q0"}, qecprofile.SurfaceCodeProfile(3, 1e-3))
	require.NoError(t, err)
	q, _ := rm.GetLogicalQubit("q0")
	require.NoError(t, q.ApplyGate("H", false, 0))

	mm := NewMigrationManager(NewManager(10))
	point := MigrationPoint{NodeID: "n1", Epoch: 0, CanMigrate: true, QubitsLive: []string{"q0"}}

	record, err := mm.InitiateMigration("job1", point, "ctxA", "ctxB", rm)
	require.NoError(t, err)
	assert.False(t, record.Completed)

	rm2 := resourcemgr.New(64, nil)
	_, err = mm.CompleteMigration(record.MigrationID, rm2, true, nil)
	require.NoError(t, err)

	valid, reason := mm.ValidateMigration(record.MigrationID)
	assert.True(t, valid, reason)

	q2, err := rm2.GetLogicalQubit("q0")
	require.NoError(t, err)
	assert.Equal(t, q.State(), q2.State())
}

func TestInitiateMigrationRejectsWhenCannotMigrate(t *testing.T) {
	rm := resourcemgr.New(64, nil)
	mm := NewMigrationManager(NewManager(10))
	_, err := mm.InitiateMigration("job1", MigrationPoint{CanMigrate: false, Reason: "no live qubits"}, "a", "b", rm)
	assert.Error(t, err)
}

func TestRollbackMigrationRestoresCheckpoint(t *testing.T) {
	rm := resourcemgr.New(64, nil)
	_, err := rm.AllocLogicalQubits([]string{"q0"}, qecprofile.SurfaceCodeProfile(3, 1e-3))
	require.NoError(t, err)
	q, _ := rm.GetLogicalQubit("q0")
	require.NoError(t, q.ApplyGate("H", false, 0))

	mm := NewMigrationManager(NewManager(10))
	point := MigrationPoint{NodeID: "n1", CanMigrate: true, QubitsLive: []string{"q0"}}
	record, err := mm.InitiateMigration("job1", point, "a", "b", rm)
	require.NoError(t, err)

	require.NoError(t, q.ApplyGate("X", false, 10))

	restored, err := mm.RollbackMigration(record.MigrationID, rm)
	require.NoError(t, err)
	assert.Contains(t, restored, "q0")
}

func TestGetMigrationStatsComputesSuccessRate(t *testing.T) {
	rm := resourcemgr.New(64, nil)
	_, err := rm.AllocLogicalQubits([]string{"q0"}, qecprofile.SurfaceCodeProfile(3, 1e-3))
	require.NoError(t, err)

	mm := NewMigrationManager(NewManager(10))
	point := MigrationPoint{NodeID: "n1", CanMigrate: true, QubitsLive: []string{"q0"}}

	rec1, err := mm.InitiateMigration("job1", point, "a", "b", rm)
	require.NoError(t, err)
	_, err = mm.CompleteMigration(rec1.MigrationID, rm, true, nil)
	require.NoError(t, err)

	rec2, err := mm.InitiateMigration("job1", point, "a", "b", rm)
	require.NoError(t, err)
	_, err = mm.CompleteMigration(rec2.MigrationID, rm, false, assertErr{})
	require.NoError(t, err)

	stats := mm.GetMigrationStats()
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 1, stats.Successful)
	assert.Equal(t, 1, stats.Failed)
	assert.Equal(t, 0.5, stats.SuccessRate)
}

func TestListMigrationsFiltersByJob(t *testing.T) {
	rm := resourcemgr.New(64, nil)
	_, err := rm.AllocLogicalQubits([]string{"q0"}, qecprofile.SurfaceCodeProfile(3, 1e-3))
	require.NoError(t, err)

	mm := NewMigrationManager(NewManager(10))
	point := MigrationPoint{NodeID: "n1", CanMigrate: true, QubitsLive: []string{"q0"}}
	_, err = mm.InitiateMigration("jobA", point, "a", "b", rm)
	require.NoError(t, err)
	_, err = mm.InitiateMigration("jobB", point, "a", "b", rm)
	require.NoError(t, err)

	assert.Len(t, mm.ListMigrations("jobA"), 1)
	assert.Len(t, mm.ListMigrations(""), 2)
}

type assertErr struct{}

func (assertErr) Error() string { return "synthetic failure" }
