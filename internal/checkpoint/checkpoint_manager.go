// Package checkpoint implements the Checkpoint Manager and Migration
// Manager (§4.10, C11): point-in-time snapshots of a Resource
// Manager's live logical qubits, and the bookkeeping needed to move a
// job's execution across a migration point and roll it back on
// failure. Grounded on original_source/kernel/reversibility/
// {checkpoint_manager,migration_manager,rollback_executor}.py.
package checkpoint

import (
	"fmt"
	"sort"
	"time"

	"github.com/neuralground/qmk/internal/qmkerr"
	"github.com/neuralground/qmk/internal/resourcemgr"
)

// Checkpoint is a point-in-time snapshot of a job's live logical
// qubits at a given graph node and epoch.
type Checkpoint struct {
	CheckpointID string
	JobID        string
	Epoch        int
	NodeID       string
	QubitStates  []resourcemgr.QubitSnapshot
	Metadata     map[string]string
	CreatedAt    time.Time
}

// Manager creates, restores, and evicts checkpoints, bounded to
// MaxCheckpoints total (oldest evicted first, matching the grounding
// source's _evict_oldest_checkpoint).
type Manager struct {
	maxCheckpoints int
	checkpoints    map[string]*Checkpoint
	jobCheckpoints map[string][]string
	counter        int
}

// NewManager constructs a Manager. maxCheckpoints<=0 falls back to the
// grounding source's default of 100.
func NewManager(maxCheckpoints int) *Manager {
	if maxCheckpoints <= 0 {
		maxCheckpoints = 100
	}
	return &Manager{
		maxCheckpoints: maxCheckpoints,
		checkpoints:    make(map[string]*Checkpoint),
		jobCheckpoints: make(map[string][]string),
	}
}

// CreateCheckpoint snapshots rm's live qubits under jobID/epoch/nodeID,
// evicting the oldest checkpoint first if at capacity.
func (m *Manager) CreateCheckpoint(jobID string, epoch int, nodeID string, rm *resourcemgr.Manager, metadata map[string]string) *Checkpoint {
	if len(m.checkpoints) >= m.maxCheckpoints {
		m.evictOldest()
	}

	id := fmt.Sprintf("ckpt_%s_%d", jobID, m.counter)
	m.counter++

	ck := &Checkpoint{
		CheckpointID: id,
		JobID:        jobID,
		Epoch:        epoch,
		NodeID:       nodeID,
		QubitStates:  rm.SnapshotQubits(),
		Metadata:     metadata,
		CreatedAt:    time.Now(),
	}
	m.checkpoints[id] = ck
	m.jobCheckpoints[jobID] = append(m.jobCheckpoints[jobID], id)
	return ck
}

// RestoreCheckpoint writes ck's qubit states back into rm.
func (m *Manager) RestoreCheckpoint(checkpointID string, rm *resourcemgr.Manager) error {
	ck, ok := m.checkpoints[checkpointID]
	if !ok {
		return qmkerr.New(qmkerr.CheckpointNotFound, "checkpoint %q not found", checkpointID)
	}
	_, err := rm.RestoreQubits(ck.QubitStates)
	return err
}

// GetCheckpoint returns a checkpoint by id.
func (m *Manager) GetCheckpoint(checkpointID string) (*Checkpoint, bool) {
	ck, ok := m.checkpoints[checkpointID]
	return ck, ok
}

// ListCheckpoints returns every checkpoint, optionally filtered to a
// single job, oldest first.
func (m *Manager) ListCheckpoints(jobID string) []*Checkpoint {
	var ids []string
	if jobID != "" {
		ids = m.jobCheckpoints[jobID]
	} else {
		for id := range m.checkpoints {
			ids = append(ids, id)
		}
	}
	out := make([]*Checkpoint, 0, len(ids))
	for _, id := range ids {
		if ck, ok := m.checkpoints[id]; ok {
			out = append(out, ck)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// DeleteCheckpoint removes a checkpoint by id.
func (m *Manager) DeleteCheckpoint(checkpointID string) {
	ck, ok := m.checkpoints[checkpointID]
	if !ok {
		return
	}
	delete(m.checkpoints, checkpointID)
	ids := m.jobCheckpoints[ck.JobID]
	for i, id := range ids {
		if id == checkpointID {
			m.jobCheckpoints[ck.JobID] = append(ids[:i], ids[i+1:]...)
			break
		}
	}
}

func (m *Manager) evictOldest() {
	var oldestID string
	var oldest time.Time
	first := true
	for id, ck := range m.checkpoints {
		if first || ck.CreatedAt.Before(oldest) {
			oldestID, oldest = id, ck.CreatedAt
			first = false
		}
	}
	if oldestID != "" {
		m.DeleteCheckpoint(oldestID)
	}
}
