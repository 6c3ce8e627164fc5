package checkpoint

import (
	"fmt"
	"time"

	"github.com/neuralground/qmk/internal/graphir"
	"github.com/neuralground/qmk/internal/qmkerr"
	"github.com/neuralground/qmk/internal/resourcemgr"
)

// MigrationPoint is a valid place in a program's execution at which a
// job's state may be migrated between execution contexts: a FENCE_EPOCH
// node, a measurement, or a resource boundary (FREE_LQ/CLOSE_CHAN).
type MigrationPoint struct {
	NodeID     string
	Epoch      int
	IsFence    bool
	QubitsLive []string
	CanMigrate bool
	Reason     string
}

// MigrationRecord tracks one migration attempt from initiation through
// completion or rollback.
type MigrationRecord struct {
	MigrationID  string
	JobID        string
	FromContext  string
	ToContext    string
	CheckpointID string
	Point        MigrationPoint
	StartedAt    time.Time
	CompletedAt  time.Time
	Completed    bool
	Success      bool
	Error        string
}

// MigrationManager identifies migration points in a Graph IR program
// and drives state transfer across them, backed by a checkpoint
// Manager for the underlying snapshots.
type MigrationManager struct {
	checkpoints *Manager
	records     map[string]*MigrationRecord
	counter     int
}

// NewMigrationManager constructs a MigrationManager over the given
// checkpoint Manager.
func NewMigrationManager(checkpoints *Manager) *MigrationManager {
	return &MigrationManager{checkpoints: checkpoints, records: make(map[string]*MigrationRecord)}
}

// IdentifyMigrationPoints scans g for FENCE_EPOCH, measurement, and
// resource-boundary nodes and reports which qubits are live at each.
func (mm *MigrationManager) IdentifyMigrationPoints(g *graphir.Graph) []MigrationPoint {
	order, err := graphir.TopoSort(g)
	if err != nil {
		return nil
	}

	liveAt := liveQubitsByNode(order)

	var points []MigrationPoint
	for epoch, n := range order {
		isFence := n.Op == graphir.OpFenceEpoch
		isMeasurement := n.Op == graphir.OpMeasureZ || n.Op == graphir.OpMeasureX
		isBoundary := n.Op == graphir.OpFreeLQ || n.Op == graphir.OpCloseChan
		if !isFence && !isMeasurement && !isBoundary {
			continue
		}

		live := liveAt[n.ID]
		canMigrate := true
		reason := ""
		if len(live) == 0 {
			canMigrate = false
			reason = "no live qubits"
		}

		points = append(points, MigrationPoint{
			NodeID:     n.ID,
			Epoch:      epoch,
			IsFence:    isFence,
			QubitsLive: live,
			CanMigrate: canMigrate,
			Reason:     reason,
		})
	}
	return points
}

// liveQubitsByNode computes, for each node in topological order, the
// set of logical qubits allocated-and-not-yet-freed as of that node: an
// ALLOC_LQ node's own qubits count as live at it, and a FREE_LQ node's
// qubits are still live at it and leave the set only after it.
// Epoch is taken as the node's position in topological order rather
// than a recursive max-depth-over-deps walk: the Go Graph IR has no
// populated Deps field for assembled programs (see
// internal/graphir.DependencyEdges), and topological position is an
// equally valid, simpler proxy for "how far into execution" a node is.
func liveQubitsByNode(order []*graphir.Node) map[string][]string {
	live := make(map[string][]string, len(order))
	allocated := make(map[string]bool)

	for _, n := range order {
		if n.Op == graphir.OpAllocLQ {
			for _, vq := range n.VQs {
				allocated[vq] = true
			}
		}

		snapshot := make([]string, 0, len(allocated))
		for vq := range allocated {
			snapshot = append(snapshot, vq)
		}
		live[n.ID] = snapshot

		if n.Op == graphir.OpFreeLQ {
			for _, vq := range n.VQs {
				delete(allocated, vq)
			}
		}
	}
	return live
}

// InitiateMigration creates a checkpoint at point and records the
// start of a migration from fromContext to toContext.
func (mm *MigrationManager) InitiateMigration(jobID string, point MigrationPoint, fromContext, toContext string, rm *resourcemgr.Manager) (*MigrationRecord, error) {
	if !point.CanMigrate {
		return nil, qmkerr.New(qmkerr.MigrationCannotProceed, "cannot migrate at %s: %s", point.NodeID, point.Reason)
	}

	migrationID := fmt.Sprintf("mig_%s_%d", jobID, mm.counter)
	mm.counter++

	ck := mm.checkpoints.CreateCheckpoint(jobID, point.Epoch, point.NodeID, rm, map[string]string{
		"migration_id": migrationID,
		"from_context": fromContext,
		"to_context":   toContext,
	})

	record := &MigrationRecord{
		MigrationID:  migrationID,
		JobID:        jobID,
		FromContext:  fromContext,
		ToContext:    toContext,
		CheckpointID: ck.CheckpointID,
		Point:        point,
		StartedAt:    time.Now(),
	}
	mm.records[migrationID] = record
	return record, nil
}

// CompleteMigration restores the migration's checkpoint into rm (the
// destination context's resource manager) on success, and marks the
// record completed.
func (mm *MigrationManager) CompleteMigration(migrationID string, rm *resourcemgr.Manager, success bool, migrationErr error) (*MigrationRecord, error) {
	record, ok := mm.records[migrationID]
	if !ok {
		return nil, qmkerr.New(qmkerr.MigrationCannotProceed, "migration %q not found", migrationID)
	}

	if success {
		if err := mm.checkpoints.RestoreCheckpoint(record.CheckpointID, rm); err != nil {
			return nil, err
		}
	}

	record.CompletedAt = time.Now()
	record.Completed = true
	record.Success = success
	if migrationErr != nil {
		record.Error = migrationErr.Error()
	}
	return record, nil
}

// ValidateMigration checks that a completed migration's checkpoint
// still exists and covers exactly the qubits that were live at its
// migration point.
func (mm *MigrationManager) ValidateMigration(migrationID string) (bool, string) {
	record, ok := mm.records[migrationID]
	if !ok {
		return false, fmt.Sprintf("migration %q not found", migrationID)
	}
	if !record.Success {
		return false, fmt.Sprintf("migration failed: %s", record.Error)
	}
	if !record.Completed {
		return false, "migration not completed"
	}

	ck, ok := mm.checkpoints.GetCheckpoint(record.CheckpointID)
	if !ok {
		return false, "checkpoint lost during migration"
	}

	expected := make(map[string]bool, len(record.Point.QubitsLive))
	for _, q := range record.Point.QubitsLive {
		expected[q] = true
	}
	actual := make(map[string]bool, len(ck.QubitStates))
	for _, qs := range ck.QubitStates {
		actual[qs.VQID] = true
	}
	if len(expected) != len(actual) {
		return false, "qubit mismatch between migration point and checkpoint"
	}
	for q := range expected {
		if !actual[q] {
			return false, "qubit mismatch between migration point and checkpoint"
		}
	}
	return true, ""
}

// RollbackMigration restores rm to the migration's pre-migration
// checkpoint.
func (mm *MigrationManager) RollbackMigration(migrationID string, rm *resourcemgr.Manager) ([]string, error) {
	record, ok := mm.records[migrationID]
	if !ok {
		return nil, qmkerr.New(qmkerr.MigrationCannotProceed, "migration %q not found", migrationID)
	}
	ck, ok := mm.checkpoints.GetCheckpoint(record.CheckpointID)
	if !ok {
		return nil, qmkerr.New(qmkerr.CheckpointNotFound, "checkpoint %q not found", record.CheckpointID)
	}
	return rm.RestoreQubits(ck.QubitStates)
}

// MigrationStats summarizes migration activity across all jobs.
type MigrationStats struct {
	Total               int
	Successful          int
	Failed              int
	InProgress          int
	SuccessRate         float64
	AvgMigrationTimeSec float64
}

// GetMigrationStats aggregates statistics over every recorded migration.
func (mm *MigrationManager) GetMigrationStats() MigrationStats {
	var stats MigrationStats
	stats.Total = len(mm.records)

	var totalDuration float64
	var completedCount int
	for _, r := range mm.records {
		if r.Success {
			stats.Successful++
		}
		if r.Completed && !r.Success {
			stats.Failed++
		}
		if !r.Completed {
			stats.InProgress++
		}
		if r.Completed {
			completedCount++
			totalDuration += r.CompletedAt.Sub(r.StartedAt).Seconds()
		}
	}
	if stats.Total > 0 {
		stats.SuccessRate = float64(stats.Successful) / float64(stats.Total)
	}
	if completedCount > 0 {
		stats.AvgMigrationTimeSec = totalDuration / float64(completedCount)
	}
	return stats
}

// ListMigrations returns every recorded migration, optionally filtered
// to a single job.
func (mm *MigrationManager) ListMigrations(jobID string) []*MigrationRecord {
	var out []*MigrationRecord
	for _, r := range mm.records {
		if jobID == "" || r.JobID == jobID {
			out = append(out, r)
		}
	}
	return out
}
