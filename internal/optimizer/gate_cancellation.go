package optimizer

import (
	"math"

	"github.com/neuralground/qmk/internal/circuitir"
	"github.com/neuralground/qmk/internal/graphir"
)

// GateCancellation removes adjacent inverse gate pairs that have no
// net effect on the circuit: self-inverse gates {H,X,Y,Z,CNOT,CZ,SWAP}
// applied twice in a row on the same qubits, S/S† and T/T† pairs, and
// opposite-angle rotation pairs (RZ(θ), RZ(-θ)) within tolerance
// 1e-10. Grounded on
// original_source/qir/optimizer/passes/gate_cancellation.py.
type GateCancellation struct{}

func (p *GateCancellation) Name() string { return "GateCancellation" }

func (p *GateCancellation) ShouldRun(c *circuitir.Circuit) bool { return c.GateCount() >= 2 }

func (p *GateCancellation) Run(c *circuitir.Circuit) (*circuitir.Circuit, circuitir.Metrics) {
	instrs := c.Instructions
	out := make([]circuitir.Instruction, 0, len(instrs))
	metrics := circuitir.Metrics{}

	i := 0
	for i < len(instrs) {
		if i+1 < len(instrs) && p.canCancel(instrs[i], instrs[i+1]) {
			metrics.GatesRemoved += 2
			metrics.PatternsMatched++
			if instrs[i].Op == graphir.OpApplyCNOT || instrs[i].Op == graphir.OpApplyCZ {
				metrics.CnotRemoved += 2
			}
			if instrs[i].Op == graphir.OpApplyT {
				metrics.TGatesRemoved += 2
			}
			i += 2
			continue
		}
		out = append(out, instrs[i])
		i++
	}

	result := c.Clone()
	result.Instructions = out
	return result, metrics
}

func (p *GateCancellation) canCancel(a, b circuitir.Instruction) bool {
	if !qubitsEqual(a.Qubits, b.Qubits) {
		return false
	}
	if !isGate(a.Op) || !isGate(b.Op) {
		return false
	}

	if a.Op == b.Op && selfInverseGates[a.Op] {
		return true
	}

	if a.Op == b.Op && (a.Op == graphir.OpApplyS || a.Op == graphir.OpApplyT) && isDagger(a) != isDagger(b) {
		return true
	}

	if a.Op == b.Op && rotationGates[a.Op] {
		if math.Abs(theta(a)+theta(b)) < angleTolerance {
			return true
		}
	}

	return false
}
