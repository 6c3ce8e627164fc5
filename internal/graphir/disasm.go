package graphir

import (
	"fmt"
	"sort"
	"strings"
)

// Disassemble renders a Graph back to assembler text, preserving node
// order and resource declarations so that text -> IR -> text -> IR
// round-trips to the identity on parsed fields (§8). Grounded on
// original_source/qvm/tools/qvm_disasm.py.
func Disassemble(g *Graph) string {
	var b strings.Builder

	fmt.Fprintf(&b, ".version %s\n", g.Version)
	if len(g.Caps) > 0 {
		caps := make([]string, len(g.Caps))
		for i, c := range g.Caps {
			caps[i] = string(c)
		}
		fmt.Fprintf(&b, ".caps %s\n", strings.Join(caps, " "))
	}

	keys := make([]string, 0, len(g.Metadata))
	for k := range g.Metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, ".metadata %s=%q\n", k, g.Metadata[k])
	}

	b.WriteString("\n")
	for _, n := range g.Nodes {
		b.WriteString(formatNode(n))
		b.WriteString("\n")
	}
	return b.String()
}

func formatNode(n *Node) string {
	var operands []string

	if len(n.Args) > 0 {
		operands = append(operands, formatArgs(n.Args))
	}

	if n.Op == OpAllocLQ {
		// vqs double as this node's produced outputs; rendered via ->.
	} else {
		operands = append(operands, n.VQs...)
	}
	operands = append(operands, n.Chs...)
	operands = append(operands, n.Inputs...)

	line := fmt.Sprintf("%s: %s", n.ID, n.Op)
	if len(operands) > 0 {
		line += " " + strings.Join(operands, ", ")
	}

	var produces []string
	if n.Op == OpAllocLQ {
		produces = n.VQs
	} else {
		produces = n.Produces
	}
	if len(produces) > 0 {
		line += " -> " + strings.Join(produces, ", ")
	}

	if n.Guard != nil {
		line += " " + formatGuard(*n.Guard)
	}

	if len(n.Caps) > 0 {
		caps := make([]string, len(n.Caps))
		for i, c := range n.Caps {
			caps[i] = string(c)
		}
		line += " [" + strings.Join(caps, ", ") + "]"
	}

	return line
}

func formatGuard(g Guard) string {
	if g.IsLeaf() {
		return fmt.Sprintf("if %s==%d", g.Event, g.Equals)
	}
	parts := make([]string, len(g.Conditions))
	for i, c := range g.Conditions {
		parts[i] = fmt.Sprintf("%s==%d", c.Event, c.Equals)
	}
	sep := " && "
	if g.Type == "or" {
		sep = " || "
	}
	return "if " + strings.Join(parts, sep)
}

func formatArgs(args map[string]any) string {
	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		v := args[k]
		if s, ok := v.(string); ok {
			parts = append(parts, fmt.Sprintf("%s=%q", k, s))
		} else {
			parts = append(parts, fmt.Sprintf("%s=%v", k, v))
		}
	}
	return strings.Join(parts, ", ")
}
