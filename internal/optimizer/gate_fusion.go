package optimizer

import (
	"github.com/neuralground/qmk/internal/circuitir"
	"github.com/neuralground/qmk/internal/graphir"
)

// GateFusion merges adjacent gates on the same qubit(s) into a single
// equivalent gate: S·S -> Z, T·T -> S, and RZ/RY/RX(θ1)·(θ2) ->
// (θ1+θ2) mod 2π. Runs to a fixed point, since a fusion can expose a
// new fusable pair. Grounded on
// original_source/qir/optimizer/passes/gate_fusion.py.
type GateFusion struct{}

func (p *GateFusion) Name() string { return "GateFusion" }

func (p *GateFusion) ShouldRun(c *circuitir.Circuit) bool { return c.GateCount() >= 2 }

func (p *GateFusion) Run(c *circuitir.Circuit) (*circuitir.Circuit, circuitir.Metrics) {
	instrs := append([]circuitir.Instruction(nil), c.Instructions...)
	metrics := circuitir.Metrics{}

	for {
		fused, count := p.fusePass(instrs)
		if count == 0 {
			instrs = fused
			break
		}
		metrics.GatesRemoved += count
		metrics.GatesAdded += count / 2 // each fused pair becomes one gate
		metrics.PatternsMatched += count / 2
		instrs = fused
	}

	result := c.Clone()
	result.Instructions = instrs
	return result, metrics
}

func (p *GateFusion) fusePass(instrs []circuitir.Instruction) ([]circuitir.Instruction, int) {
	out := make([]circuitir.Instruction, 0, len(instrs))
	removed := 0

	i := 0
	for i < len(instrs) {
		if i+1 < len(instrs) {
			if fused, ok := p.tryFuse(instrs[i], instrs[i+1]); ok {
				out = append(out, fused)
				removed += 2
				i += 2
				continue
			}
		}
		out = append(out, instrs[i])
		i++
	}
	return out, removed
}

func (p *GateFusion) tryFuse(a, b circuitir.Instruction) (circuitir.Instruction, bool) {
	if !qubitsEqual(a.Qubits, b.Qubits) {
		return circuitir.Instruction{}, false
	}

	if a.Op == graphir.OpApplyS && b.Op == graphir.OpApplyS && !isDagger(a) && !isDagger(b) {
		out := a
		out.Op = graphir.OpApplyZ
		out.Args = nil
		return out, true
	}
	if a.Op == graphir.OpApplyT && b.Op == graphir.OpApplyT && !isDagger(a) && !isDagger(b) {
		out := a
		out.Op = graphir.OpApplyS
		out.Args = nil
		return out, true
	}
	if a.Op == b.Op && rotationGates[a.Op] {
		return withTheta(a, normalizeAngle(theta(a)+theta(b))), true
	}

	return circuitir.Instruction{}, false
}
