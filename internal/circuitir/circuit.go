// Package circuitir implements the Circuit IR + Pass Manager (§4.8,
// C8): a flat, ordered instruction list over a fixed qubit set,
// produced by linearizing a Graph IR program's topological schedule.
// The Operation/linearization shape is adapted from the teacher's
// qc/circuit package (qc/circuit/circuit.go's FromDAG), generalized
// from gate-struct/qubit-index operations to opcode/string-id
// instructions.
package circuitir

import (
	"github.com/neuralground/qmk/internal/graphir"
	"github.com/neuralground/qmk/internal/qmkerr"
)

// Instruction is one Circuit IR entry: a Graph IR node stripped of its
// DAG position and re-expressed as a position in a flat sequence.
type Instruction struct {
	ID       string
	Op       graphir.Opcode
	Args     map[string]any
	Qubits   []string
	Channels []string
	Inputs   []string
	Produces []string
	Guard    *graphir.Guard
}

// Circuit is a flat ordered instruction list over a fixed qubit set.
type Circuit struct {
	QubitSet     []string
	Instructions []Instruction
}

// Clone returns a deep-enough copy for passes to mutate freely without
// aliasing the original circuit's instruction slice.
func (c *Circuit) Clone() *Circuit {
	out := &Circuit{
		QubitSet:     append([]string(nil), c.QubitSet...),
		Instructions: make([]Instruction, len(c.Instructions)),
	}
	copy(out.Instructions, c.Instructions)
	return out
}

// GateCount reports the number of single- or two-qubit unitary
// instructions (the APPLY_* opcodes graphir.IsApplyOp accepts;
// TELEPORT_CNOT is not counted), used by passes' should-run heuristics.
func (c *Circuit) GateCount() int {
	n := 0
	for _, in := range c.Instructions {
		if graphir.IsApplyOp(in.Op) {
			n++
		}
	}
	return n
}

// TCount reports the number of APPLY_T instructions.
func (c *Circuit) TCount() int {
	n := 0
	for _, in := range c.Instructions {
		if in.Op == graphir.OpApplyT {
			n++
		}
	}
	return n
}

// FromGraph linearizes g's topological schedule into a flat Circuit
// IR, the Graph IR -> Circuit IR half of the IR Converters (C12).
func FromGraph(g *graphir.Graph) (*Circuit, error) {
	order, err := graphir.TopoSort(g)
	if err != nil {
		return nil, err
	}
	c := &Circuit{QubitSet: append([]string(nil), g.Resources.VQs...)}
	for _, n := range order {
		c.Instructions = append(c.Instructions, Instruction{
			ID:       n.ID,
			Op:       n.Op,
			Args:     n.Args,
			Qubits:   append([]string(nil), n.VQs...),
			Channels: append([]string(nil), n.Chs...),
			Inputs:   append([]string(nil), n.Inputs...),
			Produces: append([]string(nil), n.Produces...),
			Guard:    n.Guard,
		})
	}
	return c, nil
}

// ToGraph rebuilds a Graph IR program from a linearized Circuit IR,
// the Circuit IR -> Graph IR half of the IR Converters (C12).
// Sequential order is preserved as an explicit Deps chain so the
// round-tripped graph's unique topological order matches c's
// instruction order.
func ToGraph(c *Circuit) (*graphir.Graph, error) {
	g := graphir.NewGraph()
	var prevID string
	for _, in := range c.Instructions {
		n := &graphir.Node{
			ID:       in.ID,
			Op:       in.Op,
			Args:     in.Args,
			VQs:      append([]string(nil), in.Qubits...),
			Chs:      append([]string(nil), in.Channels...),
			Inputs:   append([]string(nil), in.Inputs...),
			Produces: append([]string(nil), in.Produces...),
			Guard:    in.Guard,
		}
		if prevID != "" {
			n.Deps = append(n.Deps, prevID)
		}
		if !g.AddNode(n) {
			return nil, qmkerr.New(qmkerr.DuplicateNodeId, "duplicate node id %q", in.ID)
		}
		prevID = in.ID
	}
	g.Resources.VQs = append([]string(nil), c.QubitSet...)
	return g, nil
}
