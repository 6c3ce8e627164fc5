package optimizer

import (
	"github.com/neuralground/qmk/internal/circuitir"
	"github.com/neuralground/qmk/internal/graphir"
)

// MeasurementCanonicalization detects a basis-change-then-measure
// pattern with no interfering gate in between and rewrites it to a
// direct measurement in that basis, dropping the basis-change gates:
// H, MEASURE_Z -> MEASURE_X, and S† (dagger), H, MEASURE_Z ->
// MEASURE_Y. Grounded on
// original_source/qir/optimizer/passes/measurement_canonicalization_v2.py's
// per-qubit pattern scan (non-adjacent gates on other qubits may
// freely sit between the pattern's steps; only another gate on the
// *same* qubit blocks the match).
type MeasurementCanonicalization struct{}

func (p *MeasurementCanonicalization) Name() string { return "MeasurementCanonicalization" }

func (p *MeasurementCanonicalization) ShouldRun(c *circuitir.Circuit) bool {
	for _, in := range c.Instructions {
		if in.Op == graphir.OpMeasureZ {
			return true
		}
	}
	return false
}

func (p *MeasurementCanonicalization) Run(c *circuitir.Circuit) (*circuitir.Circuit, circuitir.Metrics) {
	instrs := c.Instructions
	metrics := circuitir.Metrics{}
	remove := make(map[int]bool)
	rewriteTo := make(map[int]graphir.Opcode)

	for i, in := range instrs {
		if in.Op != graphir.OpMeasureZ || len(in.Qubits) != 1 {
			continue
		}
		qubit := in.Qubits[0]

		// Walk backward over the same qubit's history, skipping
		// instructions on other qubits entirely.
		var history []int
		for j := i - 1; j >= 0; j-- {
			if remove[j] {
				continue
			}
			if !qubitsEqual(instrs[j].Qubits, []string{qubit}) {
				continue
			}
			history = append(history, j)
			if len(history) >= 2 {
				break
			}
		}

		switch {
		case len(history) >= 2 && instrs[history[0]].Op == graphir.OpApplyH &&
			instrs[history[1]].Op == graphir.OpApplyS && isDagger(instrs[history[1]]):
			remove[history[0]] = true
			remove[history[1]] = true
			rewriteTo[i] = graphir.OpMeasureY
			metrics.PatternsMatched++
			metrics.GatesRemoved += 2
		case len(history) >= 1 && instrs[history[0]].Op == graphir.OpApplyH:
			remove[history[0]] = true
			rewriteTo[i] = graphir.OpMeasureX
			metrics.PatternsMatched++
			metrics.GatesRemoved++
		}
	}

	out := make([]circuitir.Instruction, 0, len(instrs))
	for i, in := range instrs {
		if remove[i] {
			continue
		}
		if op, ok := rewriteTo[i]; ok {
			in.Op = op
		}
		out = append(out, in)
	}

	result := c.Clone()
	result.Instructions = out
	return result, metrics
}
