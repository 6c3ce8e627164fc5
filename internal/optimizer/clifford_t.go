package optimizer

import (
	"github.com/neuralground/qmk/internal/circuitir"
	"github.com/neuralground/qmk/internal/graphir"
)

// CliffordTOptimization commutes T gates on the same qubit together
// past intervening gates on disjoint qubits, then collapses any
// resulting run of four consecutive T gates into a single S gate
// (T^4 -> S per spec §4.8's literal rule), reporting the circuit's
// initial/final T-count in Custom. Grounded on
// original_source/qir/optimizer/passes/clifford_t_optimization.py.
type CliffordTOptimization struct{}

func (p *CliffordTOptimization) Name() string { return "CliffordTOptimization" }

func (p *CliffordTOptimization) ShouldRun(c *circuitir.Circuit) bool { return c.TCount() > 0 }

func (p *CliffordTOptimization) Run(c *circuitir.Circuit) (*circuitir.Circuit, circuitir.Metrics) {
	initialT := c.TCount()
	instrs := p.commuteTGatesTogether(c.Instructions)
	instrs, collapsed := p.collapseTRuns(instrs)

	result := c.Clone()
	result.Instructions = instrs
	finalT := result.TCount()

	metrics := circuitir.Metrics{
		GatesRemoved:  collapsed * 4,
		GatesAdded:    collapsed,
		TGatesRemoved: collapsed * 4,
		Custom: map[string]any{
			"initial_t_count": initialT,
			"final_t_count":   finalT,
		},
	}
	return result, metrics
}

// commuteTGatesTogether bubbles each APPLY_T instruction as far
// forward as it can move past gates on disjoint qubits, so same-qubit
// T gates end up adjacent for collapseTRuns.
func (p *CliffordTOptimization) commuteTGatesTogether(in []circuitir.Instruction) []circuitir.Instruction {
	instrs := append([]circuitir.Instruction(nil), in...)
	for i := 0; i < len(instrs); i++ {
		if instrs[i].Op != graphir.OpApplyT || isDagger(instrs[i]) {
			continue
		}
		pos := i
		for pos+1 < len(instrs) {
			next := instrs[pos+1]
			if next.Op == graphir.OpApplyT && !isDagger(next) && qubitsEqual(next.Qubits, instrs[pos].Qubits) {
				break // already adjacent to a same-qubit T, stop here
			}
			if sharesQubit(instrs[pos].Qubits, next.Qubits) {
				break
			}
			instrs[pos], instrs[pos+1] = instrs[pos+1], instrs[pos]
			pos++
		}
	}
	return instrs
}

func (p *CliffordTOptimization) collapseTRuns(in []circuitir.Instruction) ([]circuitir.Instruction, int) {
	out := make([]circuitir.Instruction, 0, len(in))
	collapsed := 0

	i := 0
	for i < len(in) {
		if i+3 < len(in) && p.isPlainTRun(in[i:i+4]) {
			s := in[i]
			s.Op = graphir.OpApplyS
			s.Args = nil
			out = append(out, s)
			collapsed++
			i += 4
			continue
		}
		out = append(out, in[i])
		i++
	}
	return out, collapsed
}

func (p *CliffordTOptimization) isPlainTRun(window []circuitir.Instruction) bool {
	qubit := window[0].Qubits
	for _, in := range window {
		if in.Op != graphir.OpApplyT || isDagger(in) || !qubitsEqual(in.Qubits, qubit) {
			return false
		}
	}
	return true
}
