// Package graphir implements the Graph IR (§4.6): a directed acyclic
// node list over opcodes, resource declarations, capability
// requirements, and guards, plus its text assembler/disassembler and
// macro preprocessor. Node/edge bookkeeping is adapted from the
// teacher's qc/dag package (qc/dag/dag.go), generalized from
// gate/qubit-index nodes to opcode/string-id Graph IR nodes.
package graphir

// Opcode identifies a Graph IR node's operation.
type Opcode string

const (
	OpAllocLQ       Opcode = "ALLOC_LQ"
	OpFreeLQ        Opcode = "FREE_LQ"
	OpApplyH        Opcode = "APPLY_H"
	OpApplyX        Opcode = "APPLY_X"
	OpApplyY        Opcode = "APPLY_Y"
	OpApplyZ        Opcode = "APPLY_Z"
	OpApplyS        Opcode = "APPLY_S"
	OpApplyT        Opcode = "APPLY_T"
	OpApplyCNOT     Opcode = "APPLY_CNOT"
	OpApplyCZ       Opcode = "APPLY_CZ"
	OpApplySWAP     Opcode = "APPLY_SWAP"
	OpApplyRX       Opcode = "APPLY_RX"
	OpApplyRY       Opcode = "APPLY_RY"
	OpApplyRZ       Opcode = "APPLY_RZ"
	OpMeasureZ      Opcode = "MEASURE_Z"
	OpMeasureX      Opcode = "MEASURE_X"
	OpMeasureY      Opcode = "MEASURE_Y"
	OpMeasureBell   Opcode = "MEASURE_BELL"
	OpReset         Opcode = "RESET"
	OpCondPauli     Opcode = "COND_PAULI"
	OpOpenChan      Opcode = "OPEN_CHAN"
	OpCloseChan     Opcode = "CLOSE_CHAN"
	OpTeleportCNOT  Opcode = "TELEPORT_CNOT"
	OpInjectTState  Opcode = "INJECT_T_STATE"
	OpFenceEpoch    Opcode = "FENCE_EPOCH"
	OpBarRegion     Opcode = "BAR_REGION"
	OpSetPolicy     Opcode = "SET_POLICY"
)

// IrreversibleOps is the Irreversible opcode partition used by the REV
// Analyzer (§4.9, C10): the full set including ALLOC_LQ/FREE_LQ (the
// spec's set, broader than the grounding source's enhanced_executor.py
// constant — see DESIGN.md).
var IrreversibleOps = map[Opcode]bool{
	OpMeasureZ:  true,
	OpMeasureX:  true,
	OpMeasureY:  true,
	OpReset:     true,
	OpCloseChan: true,
	OpAllocLQ:   true,
	OpFreeLQ:    true,
}

// UnitaryOps is the Unitary opcode partition.
var UnitaryOps = map[Opcode]bool{
	OpApplyH:    true,
	OpApplyX:    true,
	OpApplyY:    true,
	OpApplyZ:    true,
	OpApplyS:    true,
	OpApplyRZ:   true,
	OpApplyRY:   true,
	OpApplyRX:   true,
	OpApplyCNOT: true,
	OpOpenChan:  true, // spec's literal Unitary set names "LINK", the OPEN_CHAN synonym
}

// IsApplyOp reports whether op is one of the APPLY_* single/two-qubit
// gate opcodes, the broader "this touches a unitary gate" test used by
// Circuit IR/optimizer passes (distinct from the narrower UnitaryOps
// partition the REV Analyzer uses, which excludes T/CZ/SWAP per the
// spec's literal Unitary set).
func IsApplyOp(op Opcode) bool {
	switch op {
	case OpApplyH, OpApplyX, OpApplyY, OpApplyZ, OpApplyS, OpApplyT,
		OpApplyCNOT, OpApplyCZ, OpApplySWAP, OpApplyRX, OpApplyRY, OpApplyRZ:
		return true
	}
	return false
}

// Capability is a named execution privilege a session may or may not hold.
type Capability string

const (
	CapAlloc    Capability = "CAP_ALLOC"
	CapLink     Capability = "CAP_LINK"
	CapTeleport Capability = "CAP_TELEPORT"
	CapMagic    Capability = "CAP_MAGIC"
)

// RequiredCaps is the closed opcode -> required-capability-set mapping
// consulted by the executor's capability check (§4.7 step 1).
var RequiredCaps = map[Opcode][]Capability{
	OpAllocLQ:      {CapAlloc},
	OpOpenChan:     {CapLink},
	OpTeleportCNOT: {CapTeleport},
	OpInjectTState: {CapMagic},
}

// Guard is the evaluated condition gating a node's execution: either a
// single equality {Event, Equals}, or a boolean combination of the
// same shape (§4.6).
type Guard struct {
	Event string // leaf form
	Equals int

	Type       string  // "and" | "or" for composite guards; "" for a leaf
	Conditions []Guard // composite children
}

// IsLeaf reports whether g is a single equality rather than a
// composite and/or combination.
func (g Guard) IsLeaf() bool { return g.Type == "" }

// Node is one Graph IR vertex.
type Node struct {
	ID   string
	Op   Opcode
	Args map[string]any

	VQs      []string // qubit operands
	Chs      []string // channel operands
	Inputs   []string // event operands read
	Produces []string // event operands written

	Guard *Guard
	Caps  []Capability

	// Deps is the explicit dependency list from the assembler (`edges`/
	// `deps` fields in the grounding source); the scheduler additionally
	// derives last-writer edges over VQs, Chs, Inputs and guard events.
	Deps []string
}

// Resources is the graph-level resource declaration.
type Resources struct {
	VQs    []string
	Chs    []string
	Events []string
}

// Graph is a complete Graph IR program: a resource declaration, a
// graph-level capability grant, and the node list.
type Graph struct {
	Version   string
	Caps      []Capability
	Resources Resources
	Metadata  map[string]string
	Nodes     []*Node

	nodeIndex map[string]*Node
}

// NewGraph constructs an empty graph.
func NewGraph() *Graph {
	return &Graph{Metadata: make(map[string]string), nodeIndex: make(map[string]*Node)}
}

// AddNode appends n to the graph and indexes it by id. Returns false
// if the id is already present (caller should raise DuplicateNodeId).
func (g *Graph) AddNode(n *Node) bool {
	if g.nodeIndex == nil {
		g.nodeIndex = make(map[string]*Node)
	}
	if _, exists := g.nodeIndex[n.ID]; exists {
		return false
	}
	g.Nodes = append(g.Nodes, n)
	g.nodeIndex[n.ID] = n
	return true
}

// Node looks up a node by id.
func (g *Graph) Node(id string) (*Node, bool) {
	n, ok := g.nodeIndex[id]
	return n, ok
}
