package checkpoint

import (
	"context"
	"time"

	"github.com/neuralground/qmk/internal/executor"
	"github.com/neuralground/qmk/internal/graphir"
	"github.com/neuralground/qmk/internal/qmkerr"
	"github.com/neuralground/qmk/internal/resourcemgr"
	"github.com/neuralground/qmk/internal/reversibility"
)

// CheckpointStrategy names a policy for choosing checkpoint points in a
// graph, as computed by DetermineCheckpointPoints. RollbackExecutor
// does not take a strategy: ExecuteGraphWithRollback always takes one
// pre-execution checkpoint and no mid-run checkpoints.
type CheckpointStrategy string

const (
	// StrategyAuto selects every measurement, reset, or channel close.
	StrategyAuto CheckpointStrategy = "auto"
	// StrategyBeforeMeasure selects only measurements.
	StrategyBeforeMeasure CheckpointStrategy = "before_measure"
	// StrategyNever selects no points.
	StrategyNever CheckpointStrategy = "never"
)

// HistoryEntry records one rollback-relevant action taken by a
// RollbackExecutor.
type HistoryEntry struct {
	JobID        string
	Action       string // "checkpoint" | "rollback" | "execute"
	CheckpointID string
	Success      bool
	Detail       string
	At           time.Time
}

// RollbackExecutor wraps an executor.Executor with automatic
// checkpoint-and-rollback: it snapshots a job's resource manager
// before risky regions of a program and restores that snapshot if
// execution subsequently fails.
type RollbackExecutor struct {
	base        *executor.Executor
	rm          *resourcemgr.Manager
	checkpoints *Manager
	uncomputer  *reversibility.Engine
	history     []HistoryEntry
}

// NewRollbackExecutor constructs a RollbackExecutor over base (which
// must already be wired to rm) and a checkpoint Manager.
func NewRollbackExecutor(base *executor.Executor, rm *resourcemgr.Manager, checkpoints *Manager) *RollbackExecutor {
	return &RollbackExecutor{base: base, rm: rm, checkpoints: checkpoints, uncomputer: reversibility.NewEngine()}
}

func (re *RollbackExecutor) record(jobID, action, checkpointID string, success bool, detail string) {
	re.history = append(re.history, HistoryEntry{
		JobID: jobID, Action: action, CheckpointID: checkpointID,
		Success: success, Detail: detail, At: time.Now(),
	})
}

// ExecuteGraphWithRollback runs g for jobID, checkpointing beforehand
// and rolling back to that checkpoint on failure. It retries up to
// maxRetries additional times after a rollback before giving up and
// returning the last failing Result.
func (re *RollbackExecutor) ExecuteGraphWithRollback(ctx context.Context, g *graphir.Graph, jobID string, maxRetries int) executor.Result {
	ck := re.checkpoints.CreateCheckpoint(jobID, 0, "entry", re.rm, nil)
	re.record(jobID, "checkpoint", ck.CheckpointID, true, "pre-execution checkpoint")

	var result executor.Result
	for attempt := 0; attempt <= maxRetries; attempt++ {
		result = re.base.Execute(ctx, g)
		if result.Status == executor.Completed {
			return result
		}

		err := re.checkpoints.RestoreCheckpoint(ck.CheckpointID, re.rm)
		re.record(jobID, "rollback", ck.CheckpointID, err == nil, "restore after execution failure")
		if err != nil {
			return result
		}
	}
	return result
}

// ExecuteSegmentWithRollback runs a single REV segment's nodes (in
// segment order) as a standalone graph for jobID, checkpointing first
// and restoring that checkpoint if the segment fails.
func (re *RollbackExecutor) ExecuteSegmentWithRollback(ctx context.Context, seg reversibility.Segment, nodes map[string]*graphir.Node, jobID string, epoch int) (executor.Result, error) {
	g, err := segmentGraph(seg, nodes)
	if err != nil {
		return executor.Result{}, err
	}

	nodeID := "segment"
	if len(seg.EntryNodes) > 0 {
		nodeID = seg.EntryNodes[0]
	}
	ck := re.checkpoints.CreateCheckpoint(jobID, epoch, nodeID, re.rm, nil)
	re.record(jobID, "checkpoint", ck.CheckpointID, true, "pre-segment checkpoint")

	result := re.base.Execute(ctx, g)
	if result.Status == executor.Completed {
		return result, nil
	}

	restoreErr := re.checkpoints.RestoreCheckpoint(ck.CheckpointID, re.rm)
	re.record(jobID, "rollback", ck.CheckpointID, restoreErr == nil, "restore after segment failure")
	return result, restoreErr
}

// UncomputeAndRollback generates and runs the inverse operation
// sequence for seg, restoring rm to the checkpoint taken immediately
// before applying it if the uncomputation itself fails.
func (re *RollbackExecutor) UncomputeAndRollback(ctx context.Context, seg reversibility.Segment, nodes map[string]*graphir.Node, jobID string) (executor.Result, error) {
	if !seg.IsReversible {
		return executor.Result{}, qmkerr.New(qmkerr.UncomputationInvalidSegment, "segment %d is not reversible", seg.ID)
	}

	ck := re.checkpoints.CreateCheckpoint(jobID, 0, "uncompute", re.rm, nil)
	re.record(jobID, "checkpoint", ck.CheckpointID, true, "pre-uncomputation checkpoint")

	inv, err := re.uncomputer.UncomputeSegment(seg, nodes)
	if err != nil {
		return executor.Result{}, err
	}

	result, err := re.uncomputer.ApplyUncomputation(ctx, inv, re.base)
	if err != nil || result.Status != executor.Completed {
		restoreErr := re.checkpoints.RestoreCheckpoint(ck.CheckpointID, re.rm)
		re.record(jobID, "rollback", ck.CheckpointID, restoreErr == nil, "restore after uncomputation failure")
		if restoreErr != nil {
			return result, restoreErr
		}
	}
	return result, err
}

// segmentGraph builds a minimal Graph IR program containing exactly
// seg's nodes, linked in segment order via explicit Deps so TopoSort
// preserves that order.
func segmentGraph(seg reversibility.Segment, nodes map[string]*graphir.Node) (*graphir.Graph, error) {
	g := graphir.NewGraph()
	var prev string
	for _, id := range seg.NodeIDs {
		n, ok := nodes[id]
		if !ok {
			return nil, qmkerr.New(qmkerr.UncomputationInvalidSegment, "segment references unknown node %q", id)
		}
		cp := *n
		if prev != "" {
			cp.Deps = append(append([]string(nil), cp.Deps...), prev)
		}
		g.AddNode(&cp)
		prev = id
	}
	return g, nil
}

// DetermineCheckpointPoints reports, in order, the ids of the nodes of
// order that strategy selects as checkpoint points. It only computes
// the list; nothing in this package checkpoints at those nodes.
func DetermineCheckpointPoints(order []*graphir.Node, strategy CheckpointStrategy) []string {
	if strategy == StrategyNever {
		return nil
	}
	var points []string
	for _, n := range order {
		switch n.Op {
		case graphir.OpMeasureZ, graphir.OpMeasureX:
			points = append(points, n.ID)
		case graphir.OpReset, graphir.OpCloseChan:
			if strategy == StrategyAuto {
				points = append(points, n.ID)
			}
		}
	}
	return points
}

// GetRollbackHistory returns every recorded history entry, optionally
// filtered to a single job.
func (re *RollbackExecutor) GetRollbackHistory(jobID string) []HistoryEntry {
	if jobID == "" {
		return append([]HistoryEntry(nil), re.history...)
	}
	var out []HistoryEntry
	for _, h := range re.history {
		if h.JobID == jobID {
			out = append(out, h)
		}
	}
	return out
}

// ClearHistory discards all recorded history entries.
func (re *RollbackExecutor) ClearHistory() { re.history = nil }
