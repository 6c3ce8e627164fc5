// Package errormodel implements the per-qubit noise sampler: idle
// depolarizing noise, T1/T2 coherence noise, gate depolarizing noise,
// and measurement readout noise, plus an ordered error log.
package errormodel

import (
	"math"
	"math/rand"
)

// Kind identifies the class of a sampled error event.
type Kind string

const (
	KindDepolarizing Kind = "depolarizing"
	KindT1Decay      Kind = "T1_decay"
	KindT2Dephasing  Kind = "T2_dephasing"
	KindMeasurement  Kind = "measurement"
)

// Event is one sampled error, appended to the ordered log.
type Event struct {
	Kind      Kind
	QubitID   string
	TimeUs    float64
	Corrected bool
}

// Model is the composite per-qubit error model: depolarizing gate/idle
// noise, T1/T2 coherence noise, and measurement readout noise, each
// drawing from an independently-derived RNG stream (see DESIGN.md for
// why this deviates from the grounding source's single shared seed).
type Model struct {
	gateRand *rand.Rand
	t1t2Rand *rand.Rand
	measRand *rand.Rand

	history []Event
}

// New constructs a Model. A nil seed pointer yields a process-random,
// non-reproducible model; a non-nil seed makes the model fully
// deterministic for a given operation schedule (§4.2 Determinism).
func New(seed *int64) *Model {
	if seed == nil {
		s := rand.Int63()
		return &Model{
			gateRand: rand.New(rand.NewSource(s)),
			t1t2Rand: rand.New(rand.NewSource(s + 1)),
			measRand: rand.New(rand.NewSource(s + 2)),
		}
	}
	return &Model{
		gateRand: rand.New(rand.NewSource(*seed)),
		t1t2Rand: rand.New(rand.NewSource(*seed + 1)),
		measRand: rand.New(rand.NewSource(*seed + 2)),
	}
}

// History returns the ordered error log.
func (m *Model) History() []Event { return append([]Event(nil), m.history...) }

// UncorrectedCount returns the number of logged errors not marked
// corrected.
func (m *Model) UncorrectedCount() int {
	n := 0
	for _, e := range m.history {
		if !e.Corrected {
			n++
		}
	}
	return n
}

func (m *Model) record(kind Kind, qubitID string, timeUs float64) {
	m.history = append(m.history, Event{Kind: kind, QubitID: qubitID, TimeUs: timeUs})
}

// ApplyGateNoise samples depolarizing gate error with probability
// gateErrorRate; on a hit it returns one of {"X","Y","Z"} chosen
// uniformly, else "".
func (m *Model) ApplyGateNoise(qubitID string, gateErrorRate, timeUs float64) string {
	if m.gateRand.Float64() >= gateErrorRate {
		return ""
	}
	paulis := [...]string{"X", "Y", "Z"}
	p := paulis[m.gateRand.Intn(len(paulis))]
	m.record(KindDepolarizing, qubitID, timeUs)
	return p
}

// ApplyIdleNoise samples idle depolarizing error over a duration,
// using the spec's literal p_idle*Δt probability (clamped to [0,1]),
// rather than the grounding source's compound 1-(1-p)^Δt form — see
// SPEC_FULL.md §4.2.
func (m *Model) ApplyIdleNoise(qubitID string, idleErrorRate, durationUs, timeUs float64) bool {
	prob := idleErrorRate * durationUs
	if prob > 1 {
		prob = 1
	}
	if prob < 0 {
		prob = 0
	}
	if m.gateRand.Float64() < prob {
		m.record(KindDepolarizing, qubitID, timeUs)
		return true
	}
	return false
}

// ApplyT1Decay samples amplitude damping over durationUs given T1Us.
func (m *Model) ApplyT1Decay(qubitID string, t1Us, durationUs, timeUs float64) bool {
	decayProb := 1 - math.Exp(-durationUs/t1Us)
	if m.t1t2Rand.Float64() < decayProb {
		m.record(KindT1Decay, qubitID, timeUs)
		return true
	}
	return false
}

// TPhi computes the pure-dephasing time constant from T1/T2, returning
// +Inf when T2 >= 2*T1 (no pure dephasing channel).
func TPhi(t1Us, t2Us float64) float64 {
	if t2Us >= 2*t1Us {
		return math.Inf(1)
	}
	return 1.0 / (1.0/t2Us - 1.0/(2*t1Us))
}

// ApplyT2Dephasing samples pure dephasing over durationUs.
func (m *Model) ApplyT2Dephasing(qubitID string, t1Us, t2Us, durationUs, timeUs float64) bool {
	tPhi := TPhi(t1Us, t2Us)
	if math.IsInf(tPhi, 1) {
		return false
	}
	dephaseProb := 1 - math.Exp(-durationUs/tPhi)
	if m.t1t2Rand.Float64() < dephaseProb {
		m.record(KindT2Dephasing, qubitID, timeUs)
		return true
	}
	return false
}

// ApplyMeasurementError flips trueOutcome with probability measErrorRate.
func (m *Model) ApplyMeasurementError(qubitID string, trueOutcome int, measErrorRate, timeUs float64) int {
	if m.measRand.Float64() < measErrorRate {
		m.record(KindMeasurement, qubitID, timeUs)
		return 1 - trueOutcome
	}
	return trueOutcome
}

// Breakdown reports the error-count breakdown used in telemetry.
type Breakdown struct {
	Depolarizing int `json:"depolarizing"`
	Coherence    int `json:"coherence"`
	Measurement  int `json:"measurement"`
	Total        int `json:"total"`
}

// ErrorBreakdown tallies the history by category, matching the
// telemetry shape `{depolarizing, coherence, measurement, total}`.
func (m *Model) ErrorBreakdown() Breakdown {
	var b Breakdown
	for _, e := range m.history {
		switch e.Kind {
		case KindDepolarizing:
			b.Depolarizing++
		case KindT1Decay, KindT2Dephasing:
			b.Coherence++
		case KindMeasurement:
			b.Measurement++
		}
	}
	b.Total = b.Depolarizing + b.Coherence + b.Measurement
	return b
}
