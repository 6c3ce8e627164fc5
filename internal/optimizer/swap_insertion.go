package optimizer

import (
	"github.com/neuralground/qmk/internal/circuitir"
	"github.com/neuralground/qmk/internal/graphir"
)

// Topology is a hardware connectivity graph over physical qubit ids,
// adapted from the grounding source's HardwareTopology.
type Topology struct {
	adjacency map[string][]string
}

// NewTopology builds a Topology from an edge list.
func NewTopology(edges [][2]string) *Topology {
	t := &Topology{adjacency: make(map[string][]string)}
	for _, e := range edges {
		t.adjacency[e[0]] = append(t.adjacency[e[0]], e[1])
		t.adjacency[e[1]] = append(t.adjacency[e[1]], e[0])
	}
	return t
}

// LinearTopology builds a 1-D chain q0-q1-...-qn-1 over the given
// physical qubit ids, the simplest nontrivial connectivity constraint.
func LinearTopology(ids []string) *Topology {
	var edges [][2]string
	for i := 0; i+1 < len(ids); i++ {
		edges = append(edges, [2]string{ids[i], ids[i+1]})
	}
	return NewTopology(edges)
}

// AreConnected reports whether a and b are directly connected.
func (t *Topology) AreConnected(a, b string) bool {
	for _, n := range t.adjacency[a] {
		if n == b {
			return true
		}
	}
	return false
}

// ShortestPath returns a BFS shortest path from a to b inclusive of
// both endpoints, or nil if unreachable.
func (t *Topology) ShortestPath(a, b string) []string {
	if a == b {
		return []string{a}
	}
	visited := map[string]bool{a: true}
	prev := map[string]string{}
	queue := []string{a}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, n := range t.adjacency[cur] {
			if visited[n] {
				continue
			}
			visited[n] = true
			prev[n] = cur
			if n == b {
				return reconstructPath(prev, a, b)
			}
			queue = append(queue, n)
		}
	}
	return nil
}

func reconstructPath(prev map[string]string, a, b string) []string {
	path := []string{b}
	cur := b
	for cur != a {
		cur = prev[cur]
		path = append([]string{cur}, path...)
	}
	return path
}

// SwapInsertion routes two-qubit gates against a hardware Topology by
// inserting SWAPs along a BFS shortest path when the gate's qubits are
// not directly connected, updating the logical->physical map as it
// goes. Grounded on
// original_source/qir/optimizer/passes/swap_insertion.py. A nil or
// zero-value Topology (the zero value for the registry-constructed
// pass) is treated as fully connected, so SwapInsertion is a no-op
// unless a caller explicitly supplies a constrained topology via
// NewSwapInsertion.
type SwapInsertion struct {
	Topology *Topology
}

// NewSwapInsertion constructs a SwapInsertion pass bound to topo.
func NewSwapInsertion(topo *Topology) *SwapInsertion { return &SwapInsertion{Topology: topo} }

func (p *SwapInsertion) Name() string { return "SwapInsertion" }

func (p *SwapInsertion) ShouldRun(c *circuitir.Circuit) bool {
	if p.Topology == nil {
		return false
	}
	for _, in := range c.Instructions {
		if len(in.Qubits) == 2 && graphir.IsApplyOp(in.Op) {
			return true
		}
	}
	return false
}

func (p *SwapInsertion) Run(c *circuitir.Circuit) (*circuitir.Circuit, circuitir.Metrics) {
	mapping := make(map[string]string, len(c.QubitSet))
	for _, q := range c.QubitSet {
		mapping[q] = q
	}

	out := make([]circuitir.Instruction, 0, len(c.Instructions))
	metrics := circuitir.Metrics{}

	for _, in := range c.Instructions {
		if len(in.Qubits) == 2 && graphir.IsApplyOp(in.Op) {
			physA, physB := mapping[in.Qubits[0]], mapping[in.Qubits[1]]
			if !p.Topology.AreConnected(physA, physB) {
				path := p.Topology.ShortestPath(physA, physB)
				for i := 0; i+1 < len(path)-1; i++ {
					logA := logicalFor(mapping, path[i])
					logB := logicalFor(mapping, path[i+1])
					out = append(out, circuitir.Instruction{
						ID:     in.ID + "_swap_" + path[i] + "_" + path[i+1],
						Op:     graphir.OpApplySWAP,
						Qubits: []string{logA, logB},
					})
					mapping[logA], mapping[logB] = mapping[logB], mapping[logA]
					metrics.SwapGatesAdded++
					metrics.GatesAdded++
				}
			}
		}
		out = append(out, in)
	}

	result := c.Clone()
	result.Instructions = out
	return result, metrics
}

func logicalFor(mapping map[string]string, physical string) string {
	for logical, phys := range mapping {
		if phys == physical {
			return logical
		}
	}
	return physical
}
