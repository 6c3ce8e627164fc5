// Package optimizer implements the eight Optimizer Passes (§4.8, C9)
// over Circuit IR. Grounded per-pass on
// original_source/qir/optimizer/passes/{gate_cancellation,gate_fusion,
// template_matching,measurement_canonicalization_v2,swap_insertion,
// clifford_t_optimization}.py; gate_commutation and measurement_deferral
// have no standalone file in the grounding source (folded into
// gate_cancellation.py's adjacency-window commuting helper and
// measurement_canonicalization_v2.py respectively) and are implemented
// here as standalone passes per the spec's pass table, following the
// same window/distance-bounded commuting check style as
// gate_cancellation.py.
//
// The Graph IR (and therefore Circuit IR) has no dedicated S†/T†
// opcode the way the grounding source's InstructionType enum does;
// S† and T† are represented as an APPLY_S/APPLY_T instruction carrying
// Args["dagger"] = true, a convention introduced here and used
// consistently by every pass in this package that needs to recognize
// an inverse Clifford phase gate.
package optimizer

import (
	"math"

	"github.com/neuralground/qmk/internal/circuitir"
	"github.com/neuralground/qmk/internal/graphir"
)

const angleTolerance = 1e-10

func init() {
	Register(circuitir.DefaultRegistry())
}

// Register installs all eight passes into reg under their spec-table
// names, the names PassSequence's presets refer to.
func Register(reg *circuitir.PassRegistry) {
	reg.MustRegister("gate_cancellation", func() circuitir.Pass { return &GateCancellation{} })
	reg.MustRegister("gate_commutation", func() circuitir.Pass { return &GateCommutation{} })
	reg.MustRegister("gate_fusion", func() circuitir.Pass { return &GateFusion{} })
	reg.MustRegister("template_matching", func() circuitir.Pass { return &TemplateMatching{} })
	reg.MustRegister("measurement_deferral", func() circuitir.Pass { return &MeasurementDeferral{} })
	reg.MustRegister("measurement_canonicalization", func() circuitir.Pass { return &MeasurementCanonicalization{} })
	reg.MustRegister("clifford_t_optimization", func() circuitir.Pass { return &CliffordTOptimization{} })
	reg.MustRegister("swap_insertion", func() circuitir.Pass { return &SwapInsertion{} })
}

func qubitsEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func sharesQubit(a, b []string) bool {
	for _, x := range a {
		for _, y := range b {
			if x == y {
				return true
			}
		}
	}
	return false
}

func isDagger(in circuitir.Instruction) bool {
	d, _ := in.Args["dagger"].(bool)
	return d
}

func withDagger(in circuitir.Instruction, d bool) circuitir.Instruction {
	out := in
	args := make(map[string]any, len(in.Args)+1)
	for k, v := range in.Args {
		args[k] = v
	}
	args["dagger"] = d
	out.Args = args
	return out
}

func theta(in circuitir.Instruction) float64 {
	switch v := in.Args["theta"].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return 0
}

func withTheta(in circuitir.Instruction, t float64) circuitir.Instruction {
	out := in
	args := make(map[string]any, len(in.Args)+1)
	for k, v := range in.Args {
		args[k] = v
	}
	args["theta"] = t
	out.Args = args
	return out
}

var selfInverseGates = map[graphir.Opcode]bool{
	graphir.OpApplyH:    true,
	graphir.OpApplyX:    true,
	graphir.OpApplyY:    true,
	graphir.OpApplyZ:    true,
	graphir.OpApplyCNOT: true,
	graphir.OpApplyCZ:   true,
	graphir.OpApplySWAP: true,
}

var rotationGates = map[graphir.Opcode]bool{
	graphir.OpApplyRX: true,
	graphir.OpApplyRY: true,
	graphir.OpApplyRZ: true,
}

func isGate(op graphir.Opcode) bool {
	return graphir.IsApplyOp(op)
}

func normalizeAngle(theta float64) float64 {
	twoPi := 2 * math.Pi
	t := math.Mod(theta, twoPi)
	if t < 0 {
		t += twoPi
	}
	return t
}
