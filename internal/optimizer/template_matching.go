package optimizer

import (
	"github.com/neuralground/qmk/internal/circuitir"
	"github.com/neuralground/qmk/internal/graphir"
)

// template is a fixed single-qubit gate pattern and its replacement,
// matched positionally against a run of same-qubit instructions.
// Adapted from the grounding source's GateTemplate.pattern list of
// (gate_type, qubit_role) tuples, specialized to same-qubit
// single-qubit templates (the two templates spec §4.8 names are both
// single-qubit).
type template struct {
	name        string
	pattern     []graphir.Opcode
	replacement []graphir.Opcode // nil means "pattern vanishes entirely"
}

var templates = []template{
	{name: "H-Z-H->X", pattern: []graphir.Opcode{graphir.OpApplyH, graphir.OpApplyZ, graphir.OpApplyH}, replacement: []graphir.Opcode{graphir.OpApplyX}},
	{name: "S^4->I", pattern: []graphir.Opcode{graphir.OpApplyS, graphir.OpApplyS, graphir.OpApplyS, graphir.OpApplyS}, replacement: nil},
}

// TemplateMatching replaces a library of fixed gate-sequence patterns
// with cheaper equivalents (e.g. H-Z-H -> X, S^4 -> I). Grounded on
// original_source/qir/optimizer/passes/template_matching.py.
type TemplateMatching struct{}

func (p *TemplateMatching) Name() string { return "TemplateMatching" }

func (p *TemplateMatching) ShouldRun(c *circuitir.Circuit) bool { return c.GateCount() >= 3 }

func (p *TemplateMatching) Run(c *circuitir.Circuit) (*circuitir.Circuit, circuitir.Metrics) {
	instrs := c.Instructions
	out := make([]circuitir.Instruction, 0, len(instrs))
	metrics := circuitir.Metrics{}

	i := 0
	for i < len(instrs) {
		if tpl, replacement, consumed := p.matchAt(instrs, i); consumed > 0 {
			metrics.PatternsMatched++
			metrics.GatesRemoved += consumed
			metrics.GatesAdded += len(replacement)
			_ = tpl
			for _, op := range replacement {
				r := instrs[i]
				r.Op = op
				r.Args = nil
				out = append(out, r)
			}
			i += consumed
			continue
		}
		out = append(out, instrs[i])
		i++
	}

	result := c.Clone()
	result.Instructions = out
	return result, metrics
}

func (p *TemplateMatching) matchAt(instrs []circuitir.Instruction, start int) (string, []graphir.Opcode, int) {
	for _, tpl := range templates {
		if start+len(tpl.pattern) > len(instrs) {
			continue
		}
		qubit := instrs[start].Qubits
		ok := true
		for k, op := range tpl.pattern {
			in := instrs[start+k]
			if in.Op != op || !qubitsEqual(in.Qubits, qubit) || isDagger(in) {
				ok = false
				break
			}
		}
		if ok {
			return tpl.name, tpl.replacement, len(tpl.pattern)
		}
	}
	return "", nil, 0
}
