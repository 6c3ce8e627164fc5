// Package logicalqubit implements the discrete-state logical qubit
// model: a logical qubit protected by an error-correcting code,
// tracked as one of four basis states {Zero, One, Plus, Minus} with a
// global phase, plus the entanglement-group bookkeeping multi-qubit
// correlated measurement requires. Grounded on
// original_source/kernel/simulator/logical_qubit.py and
// entanglement_tracker.py.
package logicalqubit

import (
	"math"
	"math/rand"

	"github.com/neuralground/qmk/internal/errormodel"
	"github.com/neuralground/qmk/internal/qecprofile"
	"github.com/neuralground/qmk/internal/qmkerr"
)

// State is the logical qubit's discrete computational-basis state.
type State int

const (
	Zero State = iota
	One
	Plus
	Minus
)

func (s State) String() string {
	switch s {
	case Zero:
		return "ZERO"
	case One:
		return "ONE"
	case Plus:
		return "PLUS"
	case Minus:
		return "MINUS"
	default:
		return "UNKNOWN"
	}
}

// Telemetry is the per-qubit statistics snapshot returned by Telemetry().
type Telemetry struct {
	QubitID          string               `json:"qubit_id"`
	Family           qecprofile.Family    `json:"family"`
	Distance         int                  `json:"distance"`
	PhysicalQubits   int                  `json:"physical_qubits"`
	GateCount        int                  `json:"gate_count"`
	MeasurementCount int                  `json:"measurement_count"`
	DecoderCycles    int                  `json:"decoder_cycles"`
	CorrectionCount  int                  `json:"correction_count"`
	SyndromeWeight   int                  `json:"syndrome_weight"`
	ErrorBreakdown   errormodel.Breakdown `json:"error_breakdown"`
	LogicalErrorRate float64              `json:"logical_error_rate"`
	TotalTimeUs      float64              `json:"total_time_us"`
}

// LogicalQubit is a single logical qubit under QEC protection. It owns
// its own error model and RNG stream (derived from the executor's
// per-qubit seed, per §5 Determinism); entanglement membership lives
// externally in an EntanglementTracker, addressed by QubitID — there
// is deliberately no pairwise entangled_with fast path (see
// DESIGN.md's resolved Open Question: the group-based path is
// authoritative).
type LogicalQubit struct {
	QubitID string
	Profile qecprofile.Profile

	state State
	phase float64

	errorModel *errormodel.Model
	rng        *rand.Rand

	syndromeWeight  int
	decoderCycles   int
	correctionCount int

	currentTimeUs  float64
	lastGateTimeUs float64

	gateCount        int
	measurementCount int

	measurementOutcome *int // cached outcome when ungrouped (single-qubit collapse)
}

// New constructs a logical qubit in state |0> at time 0.
func New(qubitID string, profile qecprofile.Profile, seed *int64) *LogicalQubit {
	var rngSeed int64
	if seed == nil {
		rngSeed = rand.Int63()
	} else {
		rngSeed = *seed
	}
	return &LogicalQubit{
		QubitID:    qubitID,
		Profile:    profile,
		state:      Zero,
		errorModel: errormodel.New(&rngSeed),
		rng:        rand.New(rand.NewSource(rngSeed)),
	}
}

// State reports the qubit's current discrete basis state.
func (q *LogicalQubit) State() State { return q.state }

// Phase reports the accumulated (unobservable) global phase, in radians.
func (q *LogicalQubit) Phase() float64 { return q.phase }

// CurrentTimeUs reports the qubit's logical clock.
func (q *LogicalQubit) CurrentTimeUs() float64 { return q.currentTimeUs }

func (q *LogicalQubit) applyIdleSince(timeUs float64) {
	idleDuration := timeUs - q.lastGateTimeUs
	if idleDuration <= 0 {
		return
	}
	q.errorModel.ApplyIdleNoise(q.QubitID, q.Profile.IdleErrorRate, idleDuration, q.lastGateTimeUs)
}

// ApplyGate applies a single-qubit logical gate (H, X, Y, Z, S, T) at
// timeUs, running idle-noise accrual, gate-noise sampling, the
// rewrite-table state update, and a decoder cycle. dagger selects the
// inverse rotation for gates where that differs (S/S-dagger); it is
// ignored by self-inverse gates.
func (q *LogicalQubit) ApplyGate(gateType string, dagger bool, timeUs float64) error {
	q.applyIdleSince(timeUs)

	if p := q.errorModel.ApplyGateNoise(q.QubitID, q.Profile.PhysicalGateErrorRate, timeUs); p != "" {
		q.syndromeWeight++
	}

	if err := q.applyLogicalGate(gateType, dagger); err != nil {
		return err
	}

	q.runDecoderCycle()

	q.currentTimeUs = timeUs + q.Profile.LogicalCycleTimeUs
	q.lastGateTimeUs = q.currentTimeUs
	q.gateCount++
	return nil
}

func (q *LogicalQubit) applyLogicalGate(gateType string, dagger bool) error {
	switch gateType {
	case "H":
		switch q.state {
		case Zero:
			q.state = Plus
		case One:
			q.state = Minus
		case Plus:
			q.state = Zero
		case Minus:
			q.state = One
		}
	case "X":
		switch q.state {
		case Zero:
			q.state = One
		case One:
			q.state = Zero
		// Plus/Minus unaffected by X.
		}
	case "Z":
		switch q.state {
		case Plus:
			q.state = Minus
		case Minus:
			q.state = Plus
		case One:
			q.phase += math.Pi
		// Zero unaffected.
		}
	case "Y":
		// Y = iXZ up to global phase, tracked via sequential application.
		if err := q.applyLogicalGate("X", false); err != nil {
			return err
		}
		if err := q.applyLogicalGate("Z", false); err != nil {
			return err
		}
	case "S":
		if q.state == One {
			if dagger {
				q.phase -= math.Pi / 2
			} else {
				q.phase += math.Pi / 2
			}
		}
		// Plus/Minus stay in superposition (simplified model).
	case "T":
		if q.state == One {
			if dagger {
				q.phase -= math.Pi / 4
			} else {
				q.phase += math.Pi / 4
			}
		}
	default:
		return qmkerr.New(qmkerr.UnknownOpcode, "unknown logical gate %q", gateType)
	}
	return nil
}

// runDecoderCycle corrects accumulated syndrome weight when it is
// within the code's correctable threshold (floor(d/2)), else leaves it
// standing as an uncorrected logical error.
func (q *LogicalQubit) runDecoderCycle() {
	q.decoderCycles++
	threshold := q.Profile.CodeDistance / 2
	if q.syndromeWeight == 0 {
		return
	}
	if q.syndromeWeight <= threshold {
		q.syndromeWeight = 0
		q.correctionCount++
	}
}

// Basis selects a measurement basis.
type Basis int

const (
	BasisZ Basis = iota
	BasisX
	BasisY
)

// Measure collapses the qubit by sampling the true outcome in the
// requested basis, then passing it through the measurement error
// channel. grp is nil for an unentangled qubit; when non-nil it
// supplies (and latches) the group's shared outcome for Z-basis
// measurement, correlating GHZ-style multi-qubit states.
func (q *LogicalQubit) Measure(basis Basis, timeUs float64, grp *Group) (int, error) {
	q.applyIdleSince(timeUs)

	var trueOutcome int
	switch basis {
	case BasisZ:
		trueOutcome = q.measureZ(grp)
	case BasisX:
		trueOutcome = q.measureX()
	case BasisY:
		trueOutcome = q.measureY()
	default:
		return 0, qmkerr.New(qmkerr.MeasurementArity, "unknown measurement basis %d", basis)
	}

	observed := q.errorModel.ApplyMeasurementError(q.QubitID, trueOutcome, q.Profile.MeasurementErrorRate, timeUs)

	if observed == 0 {
		q.state = Zero
	} else {
		q.state = One
	}

	q.currentTimeUs = timeUs + q.Profile.LogicalCycleTimeUs
	q.lastGateTimeUs = q.currentTimeUs
	q.measurementCount++
	return observed, nil
}

func (q *LogicalQubit) measureZ(grp *Group) int {
	switch q.state {
	case Zero:
		return 0
	case One:
		return 1
	default: // Plus, Minus: 50/50, unless correlated via an entanglement group.
		if grp != nil {
			if grp.IsMeasured() {
				return *grp.Outcome
			}
			outcome := q.rng.Intn(2)
			grp.SetMeasurement(outcome)
			return outcome
		}
		if q.measurementOutcome != nil {
			return *q.measurementOutcome
		}
		outcome := q.rng.Intn(2)
		q.measurementOutcome = &outcome
		return outcome
	}
}

func (q *LogicalQubit) measureX() int {
	switch q.state {
	case Plus:
		return 0
	case Minus:
		return 1
	default: // Zero, One: 50/50 in the conjugate basis.
		return q.rng.Intn(2)
	}
}

// measureY is a spec supplement (§4.3) absent from the grounding
// source: {Zero,One,Plus,Minus} are all equal-weight in the Y basis,
// so the outcome is uniformly random regardless of state.
func (q *LogicalQubit) measureY() int {
	return q.rng.Intn(2)
}

// AngleMeasure is a spec supplement (§4.3): measurement in the basis
// rotated by angle theta (radians) from Z. Probability of outcome 1 is
// sin^2(theta/2) for |0>, cos^2(theta/2) for |1>, and 1/2 for |+>/|->.
// theta=0 therefore matches BasisZ, but at theta=pi/2 |+>/|-> give a
// random outcome rather than BasisX's definite one; theta is not
// snapped to the nearest eigenbasis.
func (q *LogicalQubit) AngleMeasure(theta, timeUs float64) (int, error) {
	q.applyIdleSince(timeUs)

	var trueOutcome int
	switch q.state {
	case Zero:
		p1 := math.Sin(theta/2) * math.Sin(theta/2)
		if q.rng.Float64() < p1 {
			trueOutcome = 1
		}
	case One:
		p1 := math.Cos(theta/2) * math.Cos(theta/2)
		if q.rng.Float64() < p1 {
			trueOutcome = 1
		}
	default:
		trueOutcome = q.rng.Intn(2)
	}

	observed := q.errorModel.ApplyMeasurementError(q.QubitID, trueOutcome, q.Profile.MeasurementErrorRate, timeUs)
	if observed == 0 {
		q.state = Zero
	} else {
		q.state = One
	}
	q.currentTimeUs = timeUs + q.Profile.LogicalCycleTimeUs
	q.lastGateTimeUs = q.currentTimeUs
	q.measurementCount++
	return observed, nil
}

// Reset restores the qubit to |0>, clearing phase and syndrome.
func (q *LogicalQubit) Reset(timeUs float64) {
	q.state = Zero
	q.phase = 0
	q.syndromeWeight = 0
	q.measurementOutcome = nil
	q.currentTimeUs = timeUs + q.Profile.LogicalCycleTimeUs
	q.lastGateTimeUs = q.currentTimeUs
}

// Snapshot is the minimal restorable state captured for a checkpoint:
// the discrete basis state and accumulated phase. Telemetry counters
// (gate/measurement counts, decoder stats) are deliberately excluded,
// matching the grounding source's checkpoint_manager.py, which
// deep-copies only qubit.state.
type Snapshot struct {
	State State
	Phase float64
}

// Snapshot captures q's restorable state.
func (q *LogicalQubit) Snapshot() Snapshot {
	return Snapshot{State: q.state, Phase: q.phase}
}

// Restore writes a previously captured Snapshot back onto q.
func (q *LogicalQubit) Restore(s Snapshot) {
	q.state = s.State
	q.phase = s.Phase
}

// LogicalErrorRate reports the QEC profile's logical error probability.
func (q *LogicalQubit) LogicalErrorRate() float64 { return q.Profile.LogicalErrorRate() }

// Telemetry reports the qubit's accumulated statistics.
func (q *LogicalQubit) Telemetry() Telemetry {
	return Telemetry{
		QubitID:          q.QubitID,
		Family:           q.Profile.Family,
		Distance:         q.Profile.CodeDistance,
		PhysicalQubits:   q.Profile.PhysicalQubitCount,
		GateCount:        q.gateCount,
		MeasurementCount: q.measurementCount,
		DecoderCycles:    q.decoderCycles,
		CorrectionCount:  q.correctionCount,
		SyndromeWeight:   q.syndromeWeight,
		ErrorBreakdown:   q.errorModel.ErrorBreakdown(),
		LogicalErrorRate: q.LogicalErrorRate(),
		TotalTimeUs:      q.currentTimeUs,
	}
}
