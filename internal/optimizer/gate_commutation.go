package optimizer

import (
	"github.com/neuralground/qmk/internal/circuitir"
)

// commuteDistanceBound is the maximum number of positions a gate may
// be moved by a single commutation search, matching the "fixed
// distance bound" of spec §4.8. No standalone commutation pass file
// exists in the grounding source; this follows the same
// adjacency-window style as gate_cancellation.py's pairwise scan,
// widened to a bounded window.
const commuteDistanceBound = 4

// GateCommutation moves a single-qubit gate past a gate on disjoint
// qubits, or two two-qubit gates sharing only a control qubit, to
// expose adjacent cancellation/fusion opportunities for later passes.
// It never reorders a gate past a measurement that shares any of its
// qubits.
type GateCommutation struct{}

func (p *GateCommutation) Name() string { return "GateCommutation" }

func (p *GateCommutation) ShouldRun(c *circuitir.Circuit) bool { return c.GateCount() >= 2 }

func (p *GateCommutation) Run(c *circuitir.Circuit) (*circuitir.Circuit, circuitir.Metrics) {
	instrs := append([]circuitir.Instruction(nil), c.Instructions...)
	metrics := circuitir.Metrics{}

	for i := 0; i < len(instrs); i++ {
		if !isGate(instrs[i].Op) {
			continue
		}
		// Bubble instrs[i] one slot at a time toward a later gate it
		// could usefully sit next to, stopping the moment it would
		// cross something it cannot commute past or hit the bound.
		pos := i
		for pos+1 < len(instrs) && pos-i < commuteDistanceBound {
			next := instrs[pos+1]
			if next.Op == instrs[pos].Op && qubitsEqual(next.Qubits, instrs[pos].Qubits) {
				// Now adjacent to a matching gate; count it only if this
				// gate moved to get here.
				if pos > i {
					metrics.PatternsMatched++
				}
				break
			}
			if !p.canCommutePast(instrs[pos], next) {
				break
			}
			instrs[pos], instrs[pos+1] = instrs[pos+1], instrs[pos]
			pos++
		}
	}

	result := c.Clone()
	result.Instructions = instrs
	return result, metrics
}

// canCommutePast reports whether gate a may move past gate b: b is a
// gate (never a measurement), and either they touch disjoint qubits,
// or both are two-qubit gates sharing only a control-role qubit.
func (p *GateCommutation) canCommutePast(a, b circuitir.Instruction) bool {
	if !isGate(b.Op) {
		return false
	}
	if !sharesQubit(a.Qubits, b.Qubits) {
		return true
	}
	if len(a.Qubits) == 2 && len(b.Qubits) == 2 && a.Qubits[0] == b.Qubits[0] && a.Qubits[1] != b.Qubits[1] {
		return true
	}
	return false
}
