// Package executor implements the Scheduler + Executor (§4.7, C7): it
// takes a topologically-ordered Graph IR program, checks capabilities
// and guards, and dispatches each node against a Resource Manager and
// its logical qubits. Grounded on
// original_source/kernel/simulator/enhanced_executor.py.
package executor

import (
	"context"
	"fmt"

	"github.com/neuralground/qmk/internal/graphir"
	"github.com/neuralground/qmk/internal/logicalqubit"
	"github.com/neuralground/qmk/internal/qecprofile"
	"github.com/neuralground/qmk/internal/qmkerr"
	"github.com/neuralground/qmk/internal/resourcemgr"
)

// Status is the terminal state of an Execute call.
type Status string

const (
	Completed Status = "COMPLETED"
	Failed    Status = "FAILED"
)

// LogEntry is one line of the execution trace, mirroring the
// grounding source's tuple-based execution_log.
type LogEntry struct {
	Kind   string
	NodeID string
	Detail map[string]any
}

// Result is the outcome of executing a graph.
type Result struct {
	Status       Status
	Events       map[string]int
	Telemetry    resourcemgr.Telemetry
	ExecutionLog []LogEntry
	Err          error
}

// Executor runs Graph IR programs against a Resource Manager. An
// Executor is single-use per Execute call's event store but the
// Resource Manager (and the logical qubits/entanglement groups it
// owns) persists across calls, matching the grounding source's
// long-lived EnhancedExecutor holding one EnhancedResourceManager.
type Executor struct {
	rm   *resourcemgr.Manager
	caps map[graphir.Capability]bool

	events       map[string]int
	executionLog []LogEntry
}

// New constructs an Executor with the given Resource Manager and
// statically-granted session capabilities (in addition to any
// capabilities a graph or node declares for itself).
func New(rm *resourcemgr.Manager, grantedCaps ...graphir.Capability) *Executor {
	caps := make(map[graphir.Capability]bool, len(grantedCaps))
	for _, c := range grantedCaps {
		caps[c] = true
	}
	return &Executor{rm: rm, caps: caps}
}

// Execute runs every node of g in deterministic topological order,
// returning a Result. Execution stops at the first node that errors;
// the Result's Status is then Failed and Err is populated. ctx is
// checked for cancellation between nodes.
func (e *Executor) Execute(ctx context.Context, g *graphir.Graph) Result {
	e.events = make(map[string]int)
	e.executionLog = nil

	order, err := graphir.TopoSort(g)
	if err != nil {
		return e.fail(err)
	}

	for _, n := range order {
		select {
		case <-ctx.Done():
			return e.fail(ctx.Err())
		default:
		}

		if err := e.checkCapabilities(n, g.Caps); err != nil {
			return e.fail(err)
		}

		ok, err := e.checkGuard(n.Guard)
		if err != nil {
			return e.fail(err)
		}
		if !ok {
			e.log("SKIP", n.ID, map[string]any{"op": n.Op, "reason": "guard_failed"})
			continue
		}

		if err := e.executeNode(n); err != nil {
			return e.fail(err)
		}
	}

	return Result{
		Status:       Completed,
		Events:       e.events,
		Telemetry:    e.rm.Telemetry(),
		ExecutionLog: e.executionLog,
	}
}

func (e *Executor) fail(err error) Result {
	return Result{
		Status:       Failed,
		Events:       e.events,
		Telemetry:    e.rm.Telemetry(),
		ExecutionLog: e.executionLog,
		Err:          err,
	}
}

func (e *Executor) log(kind, nodeID string, detail map[string]any) {
	e.executionLog = append(e.executionLog, LogEntry{Kind: kind, NodeID: nodeID, Detail: detail})
}

// checkCapabilities verifies that every capability graphir.RequiredCaps
// demands for n.Op is present among the node's own Caps, the graph's
// global Caps, or the executor's statically-granted Caps.
func (e *Executor) checkCapabilities(n *graphir.Node, globalCaps []graphir.Capability) error {
	required := graphir.RequiredCaps[n.Op]
	if len(required) == 0 {
		return nil
	}

	available := make(map[graphir.Capability]bool, len(n.Caps)+len(globalCaps)+len(e.caps))
	for _, c := range n.Caps {
		available[c] = true
	}
	for _, c := range globalCaps {
		available[c] = true
	}
	for c, granted := range e.caps {
		if granted {
			available[c] = true
		}
	}

	var missing []graphir.Capability
	for _, c := range required {
		if !available[c] {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return qmkerr.Withf(qmkerr.CapabilityDenied, map[string]any{"node": n.ID, "op": n.Op, "missing": missing},
			"missing capabilities for %s: %v", n.Op, missing)
	}
	return nil
}

// checkGuard evaluates g against the accumulated event store. A nil
// guard always passes. An event referenced by a guard that has not
// yet been produced raises EventNotProduced: this is a deliberate
// divergence from the grounding source, which silently treats a
// missing event as guard-false (see DESIGN.md). A well-formed program
// only ever guards on an event produced by a measurement node that
// precedes it in topological order, so this should never fire in
// practice; when it does, it means the program's dependency graph is
// unsound.
func (e *Executor) checkGuard(g *graphir.Guard) (bool, error) {
	if g == nil {
		return true, nil
	}
	switch g.Type {
	case "and":
		for _, c := range g.Conditions {
			ok, err := e.checkGuard(&c)
			if err != nil || !ok {
				return false, err
			}
		}
		return true, nil
	case "or":
		for _, c := range g.Conditions {
			ok, err := e.checkGuard(&c)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	default:
		v, ok := e.events[g.Event]
		if !ok {
			return false, qmkerr.New(qmkerr.EventNotProduced, "guard references event %q which has not been produced", g.Event)
		}
		return v == g.Equals, nil
	}
}

func (e *Executor) executeNode(n *graphir.Node) error {
	switch {
	case n.Op == graphir.OpAllocLQ:
		return e.execAlloc(n)
	case n.Op == graphir.OpFreeLQ:
		return e.execFree(n)
	case n.Op == graphir.OpFenceEpoch:
		e.log("FENCE", n.ID, nil)
		return nil
	case n.Op == graphir.OpBarRegion:
		e.log("BARRIER", n.ID, map[string]any{"tag": n.Args["tag"]})
		return nil
	case isApplyGate(n.Op):
		return e.execGate(n)
	case isMeasurement(n.Op):
		return e.execMeasurement(n)
	case n.Op == graphir.OpReset:
		return e.execReset(n)
	case n.Op == graphir.OpCondPauli:
		return e.execCondPauli(n)
	case n.Op == graphir.OpOpenChan:
		return e.execOpenChan(n)
	case n.Op == graphir.OpCloseChan:
		return e.execCloseChan(n)
	case n.Op == graphir.OpTeleportCNOT:
		return e.execTeleportCNOT(n)
	case n.Op == graphir.OpInjectTState:
		e.log("INJECT_T", n.ID, nil)
		return nil
	case n.Op == graphir.OpSetPolicy:
		e.log("SET_POLICY", n.ID, map[string]any{"args": n.Args})
		return nil
	default:
		return qmkerr.New(qmkerr.UnknownOpcode, "unknown operation %q", n.Op)
	}
}

func isApplyGate(op graphir.Opcode) bool {
	switch op {
	case graphir.OpApplyH, graphir.OpApplyX, graphir.OpApplyY, graphir.OpApplyZ,
		graphir.OpApplyS, graphir.OpApplyT, graphir.OpApplyRX, graphir.OpApplyRY, graphir.OpApplyRZ,
		graphir.OpApplyCNOT, graphir.OpApplyCZ, graphir.OpApplySWAP:
		return true
	}
	return false
}

func isMeasurement(op graphir.Opcode) bool {
	switch op {
	case graphir.OpMeasureZ, graphir.OpMeasureX, graphir.OpMeasureY, graphir.OpMeasureBell:
		return true
	}
	return false
}

func (e *Executor) execAlloc(n *graphir.Node) error {
	profileStr, _ := n.Args["profile"].(string)
	if profileStr == "" {
		profileStr = "logical:surface_code(d=9)"
	}
	profile, err := qecprofile.ParseProfileString(profileStr)
	if err != nil {
		return err
	}
	allocated, err := e.rm.AllocLogicalQubits(n.VQs, profile)
	if err != nil {
		return err
	}
	e.log("ALLOC", n.ID, map[string]any{"vqs": n.VQs, "family": profile.Family, "allocated": allocated})
	return nil
}

func (e *Executor) execFree(n *graphir.Node) error {
	e.rm.FreeLogicalQubits(n.VQs)
	e.log("FREE", n.ID, map[string]any{"vqs": n.VQs})
	return nil
}

func (e *Executor) execGate(n *graphir.Node) error {
	gateType := string(n.Op)[len("APPLY_"):]
	dagger, _ := n.Args["dagger"].(bool)

	switch len(n.VQs) {
	case 1:
		q, err := e.rm.GetLogicalQubit(n.VQs[0])
		if err != nil {
			return err
		}
		if err := q.ApplyGate(gateType, dagger, e.rm.CurrentTimeUs()); err != nil {
			return err
		}
		e.rm.AdvanceTime(q.Profile.LogicalCycleTimeUs)
		e.log("GATE", n.ID, map[string]any{"gate": gateType, "vq": n.VQs[0], "dagger": dagger})
		return nil

	case 2:
		q1, err := e.rm.GetLogicalQubit(n.VQs[0])
		if err != nil {
			return err
		}
		q2, err := e.rm.GetLogicalQubit(n.VQs[1])
		if err != nil {
			return err
		}

		switch gateType {
		case "CNOT":
			logicalqubit.ApplyCNOT(e.rm.Tracker(), q1, q2, e.rm.CurrentTimeUs())
		case "CZ":
			logicalqubit.ApplyCZ(e.rm.Tracker(), q1, q2, e.rm.CurrentTimeUs())
		case "SWAP":
			logicalqubit.ApplySWAP(e.rm.Tracker(), q1, q2, e.rm.CurrentTimeUs())
		default:
			return qmkerr.New(qmkerr.UnknownOpcode, "unsupported two-qubit gate %q", gateType)
		}

		cycle := q1.Profile.LogicalCycleTimeUs
		if q2.Profile.LogicalCycleTimeUs > cycle {
			cycle = q2.Profile.LogicalCycleTimeUs
		}
		e.rm.AdvanceTime(cycle)
		e.log("GATE", n.ID, map[string]any{"gate": gateType, "vqs": n.VQs})
		return nil

	default:
		return qmkerr.New(qmkerr.MeasurementArity, "invalid number of qubits for %s: %d", n.Op, len(n.VQs))
	}
}

func (e *Executor) execMeasurement(n *graphir.Node) error {
	if n.Op == graphir.OpMeasureBell {
		if len(n.VQs) != 2 {
			return qmkerr.New(qmkerr.MeasurementArity, "bell measurement requires exactly 2 qubits, got %d", len(n.VQs))
		}
		q1, err := e.rm.GetLogicalQubit(n.VQs[0])
		if err != nil {
			return err
		}
		q2, err := e.rm.GetLogicalQubit(n.VQs[1])
		if err != nil {
			return err
		}

		bit1, bit2, err := logicalqubit.MeasureBellBasis(e.rm.Tracker(), q1, q2, e.rm.CurrentTimeUs())
		if err != nil {
			return err
		}

		if len(n.Produces) >= 2 {
			e.events[n.Produces[0]] = bit1
			e.events[n.Produces[1]] = bit2
		} else if len(n.Produces) == 1 {
			e.events[n.Produces[0]] = bit1*2 + bit2
		}

		cycle := q1.Profile.LogicalCycleTimeUs
		if q2.Profile.LogicalCycleTimeUs > cycle {
			cycle = q2.Profile.LogicalCycleTimeUs
		}
		e.rm.AdvanceTime(cycle)
		e.log("MEASURE_BELL", n.ID, map[string]any{"vqs": n.VQs, "outcomes": [2]int{bit1, bit2}, "events": n.Produces})
		return nil
	}

	if len(n.VQs) != 1 {
		return qmkerr.New(qmkerr.MeasurementArity, "single-qubit measurement requires exactly 1 qubit, got %d", len(n.VQs))
	}

	var basis logicalqubit.Basis
	switch n.Op {
	case graphir.OpMeasureX:
		basis = logicalqubit.BasisX
	case graphir.OpMeasureY:
		basis = logicalqubit.BasisY
	default:
		basis = logicalqubit.BasisZ
	}

	q, err := e.rm.GetLogicalQubit(n.VQs[0])
	if err != nil {
		return err
	}
	grp := e.rm.Tracker().GetGroup(q.QubitID)
	outcome, err := q.Measure(basis, e.rm.CurrentTimeUs(), grp)
	if err != nil {
		return err
	}

	if len(n.Produces) > 0 {
		e.events[n.Produces[0]] = outcome
	}
	e.rm.AdvanceTime(q.Profile.LogicalCycleTimeUs)
	e.log("MEASURE", n.ID, map[string]any{"vq": n.VQs[0], "basis": basis, "outcome": outcome, "events": n.Produces})
	return nil
}

func (e *Executor) execReset(n *graphir.Node) error {
	for _, vq := range n.VQs {
		q, err := e.rm.GetLogicalQubit(vq)
		if err != nil {
			return err
		}
		q.Reset(e.rm.CurrentTimeUs())
		e.rm.AdvanceTime(q.Profile.LogicalCycleTimeUs)
	}
	e.log("RESET", n.ID, map[string]any{"vqs": n.VQs})
	return nil
}

func (e *Executor) execCondPauli(n *graphir.Node) error {
	mask, _ := n.Args["mask"].(string)
	if mask == "" {
		mask = "X"
	}
	if len(n.Inputs) == 0 {
		return nil
	}
	value, ok := e.events[n.Inputs[0]]
	if !ok {
		return qmkerr.New(qmkerr.EventNotProduced, "COND_PAULI references event %q which has not been produced", n.Inputs[0])
	}
	if value == 1 {
		for _, vq := range n.VQs {
			q, err := e.rm.GetLogicalQubit(vq)
			if err != nil {
				return err
			}
			if err := q.ApplyGate(mask, false, e.rm.CurrentTimeUs()); err != nil {
				return err
			}
			e.rm.AdvanceTime(q.Profile.LogicalCycleTimeUs)
		}
	}
	e.log("COND_PAULI", n.ID, map[string]any{"mask": mask, "vqs": n.VQs, "value": value})
	return nil
}

func (e *Executor) execOpenChan(n *graphir.Node) error {
	if len(n.Chs) != 1 || len(n.VQs) != 2 {
		return qmkerr.New(qmkerr.ParseError, "OPEN_CHAN requires 1 channel and 2 qubits")
	}
	fidelity := 0.99
	if f, ok := n.Args["fidelity"]; ok {
		if ff, ok := toFloat(f); ok {
			fidelity = ff
		}
	}
	if err := e.rm.OpenChannel(n.Chs[0], n.VQs[0], n.VQs[1], fidelity); err != nil {
		return err
	}
	e.log("OPEN_CHAN", n.ID, map[string]any{"ch": n.Chs[0], "vqs": n.VQs})
	return nil
}

func (e *Executor) execCloseChan(n *graphir.Node) error {
	for _, ch := range n.Chs {
		e.rm.CloseChannel(ch)
	}
	e.log("CLOSE_CHAN", n.ID, map[string]any{"chs": n.Chs})
	return nil
}

func (e *Executor) execTeleportCNOT(n *graphir.Node) error {
	if len(n.VQs) != 2 {
		return qmkerr.New(qmkerr.MeasurementArity, "TELEPORT_CNOT requires exactly 2 qubits, got %d", len(n.VQs))
	}
	control, err := e.rm.GetLogicalQubit(n.VQs[0])
	if err != nil {
		return err
	}
	target, err := e.rm.GetLogicalQubit(n.VQs[1])
	if err != nil {
		return err
	}
	logicalqubit.ApplyCNOT(e.rm.Tracker(), control, target, e.rm.CurrentTimeUs())

	cycle := control.Profile.LogicalCycleTimeUs
	if target.Profile.LogicalCycleTimeUs > cycle {
		cycle = target.Profile.LogicalCycleTimeUs
	}
	e.rm.AdvanceTime(cycle)
	e.log("TELEPORT_CNOT", n.ID, map[string]any{"vqs": n.VQs})
	return nil
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	default:
		return 0, false
	}
}

// String renders a Result for debugging/logging.
func (r Result) String() string {
	return fmt.Sprintf("Result{status=%s, events=%d, log=%d, err=%v}", r.Status, len(r.Events), len(r.ExecutionLog), r.Err)
}
