// Package gbuilder is a fluent, programmatic constructor for Graph IR
// graphs, for callers that want to build a program directly in Go
// rather than through the text assembler. Grounded on the pack's
// dag-builder bail-out-on-first-error chaining pattern, generalized
// from gate/qubit-index operations to Graph IR opcode/string-id nodes.
package gbuilder

import (
	"fmt"

	"github.com/neuralground/qmk/internal/graphir"
	"github.com/neuralground/qmk/internal/qmkerr"
)

// Builder incrementally constructs a Graph. Each method returns the
// Builder to allow chaining; the first error encountered is latched
// and all further calls become no-ops, so callers only need to check
// the error once at Build().
type Builder struct {
	g       *graphir.Graph
	counter int
	err     error
}

// New starts a new graph under construction.
func New() *Builder {
	return &Builder{g: graphir.NewGraph()}
}

func (b *Builder) nextID(prefix string) string {
	b.counter++
	return fmt.Sprintf("%s%d", prefix, b.counter)
}

func (b *Builder) add(n *graphir.Node) *Builder {
	if b.err != nil {
		return b
	}
	if !b.g.AddNode(n) {
		b.err = qmkerr.New(qmkerr.DuplicateNodeId, "duplicate node id %q", n.ID)
	}
	return b
}

// Alloc appends an ALLOC_LQ node allocating vqIDs under the given
// profile string, requiring CAP_ALLOC.
func (b *Builder) Alloc(profile string, vqIDs ...string) *Builder {
	return b.add(&graphir.Node{
		ID:   b.nextID("alloc"),
		Op:   graphir.OpAllocLQ,
		Args: map[string]any{"profile": profile},
		VQs:  vqIDs,
		Caps: []graphir.Capability{graphir.CapAlloc},
	})
}

// Free appends a FREE_LQ node.
func (b *Builder) Free(vqIDs ...string) *Builder {
	return b.add(&graphir.Node{ID: b.nextID("free"), Op: graphir.OpFreeLQ, VQs: vqIDs})
}

func (b *Builder) gate1(op graphir.Opcode, vq string) *Builder {
	return b.add(&graphir.Node{ID: b.nextID(string(op)), Op: op, VQs: []string{vq}})
}

// H appends an APPLY_H node.
func (b *Builder) H(vq string) *Builder { return b.gate1(graphir.OpApplyH, vq) }

// X appends an APPLY_X node.
func (b *Builder) X(vq string) *Builder { return b.gate1(graphir.OpApplyX, vq) }

// Y appends an APPLY_Y node.
func (b *Builder) Y(vq string) *Builder { return b.gate1(graphir.OpApplyY, vq) }

// Z appends an APPLY_Z node.
func (b *Builder) Z(vq string) *Builder { return b.gate1(graphir.OpApplyZ, vq) }

// S appends an APPLY_S node.
func (b *Builder) S(vq string) *Builder { return b.gate1(graphir.OpApplyS, vq) }

// T appends an APPLY_T node.
func (b *Builder) T(vq string) *Builder { return b.gate1(graphir.OpApplyT, vq) }

func (b *Builder) gate2(op graphir.Opcode, a, c string) *Builder {
	return b.add(&graphir.Node{ID: b.nextID(string(op)), Op: op, VQs: []string{a, c}})
}

// CNOT appends an APPLY_CNOT node (control, target).
func (b *Builder) CNOT(control, target string) *Builder {
	return b.gate2(graphir.OpApplyCNOT, control, target)
}

// CZ appends an APPLY_CZ node.
func (b *Builder) CZ(control, target string) *Builder {
	return b.gate2(graphir.OpApplyCZ, control, target)
}

// SWAP appends an APPLY_SWAP node.
func (b *Builder) SWAP(a, c string) *Builder { return b.gate2(graphir.OpApplySWAP, a, c) }

// MeasureZ appends a MEASURE_Z node producing the named event.
func (b *Builder) MeasureZ(vq, event string) *Builder {
	return b.add(&graphir.Node{ID: b.nextID("mz"), Op: graphir.OpMeasureZ, VQs: []string{vq}, Produces: []string{event}})
}

// MeasureX appends a MEASURE_X node producing the named event.
func (b *Builder) MeasureX(vq, event string) *Builder {
	return b.add(&graphir.Node{ID: b.nextID("mx"), Op: graphir.OpMeasureX, VQs: []string{vq}, Produces: []string{event}})
}

// MeasureY appends a MEASURE_Y node producing the named event.
func (b *Builder) MeasureY(vq, event string) *Builder {
	return b.add(&graphir.Node{ID: b.nextID("my"), Op: graphir.OpMeasureY, VQs: []string{vq}, Produces: []string{event}})
}

// Reset appends a RESET node.
func (b *Builder) Reset(vq string) *Builder {
	return b.add(&graphir.Node{ID: b.nextID("reset"), Op: graphir.OpReset, VQs: []string{vq}})
}

// FenceEpoch appends a FENCE_EPOCH synchronization node.
func (b *Builder) FenceEpoch() *Builder {
	return b.add(&graphir.Node{ID: b.nextID("fence"), Op: graphir.OpFenceEpoch})
}

// Build finalizes the graph, resolving resource declarations from the
// accumulated node operands.
func (b *Builder) Build() (*graphir.Graph, error) {
	if b.err != nil {
		return nil, b.err
	}
	b.resolveResources()
	return b.g, nil
}

func (b *Builder) resolveResources() {
	vqs := make(map[string]struct{})
	events := make(map[string]struct{})
	for _, n := range b.g.Nodes {
		for _, vq := range n.VQs {
			vqs[vq] = struct{}{}
		}
		for _, e := range n.Produces {
			events[e] = struct{}{}
		}
		for _, e := range n.Inputs {
			events[e] = struct{}{}
		}
	}
	res := graphir.Resources{}
	for vq := range vqs {
		res.VQs = append(res.VQs, vq)
	}
	for e := range events {
		res.Events = append(res.Events, e)
	}
	b.g.Resources = res
}
