package optimizer

import (
	"github.com/neuralground/qmk/internal/circuitir"
	"github.com/neuralground/qmk/internal/graphir"
)

// MeasurementDeferral moves a measurement later in program order until
// it meets a subsequent use of the same qubit (another gate or
// measurement touching it), never moving it past a consumer of the
// event it produces (a guard or COND_PAULI reading that event). There
// is no standalone file for this pass in the grounding source; it is
// implemented per spec §4.8 following
// measurement_canonicalization_v2.py's per-qubit history-walk style.
type MeasurementDeferral struct{}

func (p *MeasurementDeferral) Name() string { return "MeasurementDeferral" }

func (p *MeasurementDeferral) ShouldRun(c *circuitir.Circuit) bool {
	for _, in := range c.Instructions {
		if isMeasurementOp(in.Op) {
			return true
		}
	}
	return false
}

func (p *MeasurementDeferral) Run(c *circuitir.Circuit) (*circuitir.Circuit, circuitir.Metrics) {
	instrs := append([]circuitir.Instruction(nil), c.Instructions...)
	metrics := circuitir.Metrics{}

	for i := 0; i < len(instrs); i++ {
		if !isMeasurementOp(instrs[i].Op) {
			continue
		}
		pos := i
		for pos+1 < len(instrs) {
			next := instrs[pos+1]
			if sharesQubit(instrs[pos].Qubits, next.Qubits) {
				break // met a use of the measured qubit
			}
			if consumesAnyEvent(next, instrs[pos].Produces) {
				break // would move past a consumer of its event
			}
			instrs[pos], instrs[pos+1] = instrs[pos+1], instrs[pos]
			pos++
			metrics.PatternsMatched++
		}
	}

	result := c.Clone()
	result.Instructions = instrs
	return result, metrics
}

func isMeasurementOp(op graphir.Opcode) bool {
	switch op {
	case graphir.OpMeasureZ, graphir.OpMeasureX, graphir.OpMeasureY, graphir.OpMeasureBell:
		return true
	}
	return false
}

func consumesAnyEvent(in circuitir.Instruction, events []string) bool {
	for _, want := range events {
		for _, got := range in.Inputs {
			if got == want {
				return true
			}
		}
		if g := in.Guard; g != nil && guardReferences(g, want) {
			return true
		}
	}
	return false
}

func guardReferences(g *graphir.Guard, event string) bool {
	if g.IsLeaf() {
		return g.Event == event
	}
	for i := range g.Conditions {
		if guardReferences(&g.Conditions[i], event) {
			return true
		}
	}
	return false
}
