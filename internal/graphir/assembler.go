package graphir

import (
	"sort"
	"strconv"
	"strings"

	"github.com/neuralground/qmk/internal/qmkerr"
)

// Assemble parses expanded assembler text into a Graph. Grounded on
// original_source/qvm/tools/qvm_asm.py's AssemblyParser; the guard
// grammar is generalized to support the full and/or nesting described
// in §4.6 rather than the source's flat &&/|| special case.
func Assemble(text string) (*Graph, error) {
	g := NewGraph()
	g.Version = "0.1"

	vqSet := make(map[string]struct{})
	chSet := make(map[string]struct{})
	evSet := make(map[string]struct{})

	for _, raw := range strings.Split(text, "\n") {
		line := stripComment(raw)
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, ".") {
			if err := parseDirective(g, line); err != nil {
				return nil, err
			}
			continue
		}

		idx := strings.Index(line, ":")
		if idx < 0 {
			continue
		}
		label := strings.TrimSpace(line[:idx])
		rest := strings.TrimSpace(line[idx+1:])

		node, err := parseNodeLine(label, rest)
		if err != nil {
			return nil, err
		}

		if !g.AddNode(node) {
			return nil, qmkerr.New(qmkerr.DuplicateNodeId, "duplicate node id %q", label)
		}

		for _, vq := range node.VQs {
			vqSet[vq] = struct{}{}
		}
		for _, ch := range node.Chs {
			chSet[ch] = struct{}{}
		}
		for _, ev := range node.Inputs {
			evSet[ev] = struct{}{}
		}
		for _, ev := range node.Produces {
			evSet[ev] = struct{}{}
		}
	}

	g.Resources = Resources{VQs: sortedKeys(vqSet), Chs: sortedKeys(chSet), Events: sortedKeys(evSet)}
	return g, nil
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func stripComment(line string) string {
	inQuotes := false
	for i, c := range line {
		if c == '"' {
			inQuotes = !inQuotes
		}
		if c == ';' && !inQuotes {
			return line[:i]
		}
	}
	return line
}

func parseDirective(g *Graph, line string) error {
	fields := strings.SplitN(strings.TrimPrefix(line, "."), " ", 2)
	directive := fields[0]
	value := ""
	if len(fields) > 1 {
		value = strings.TrimSpace(fields[1])
	}

	switch directive {
	case "version":
		g.Version = value
	case "caps":
		for _, c := range strings.Fields(value) {
			g.Caps = append(g.Caps, Capability(c))
		}
	case "metadata":
		if kv := strings.SplitN(value, "=", 2); len(kv) == 2 {
			g.Metadata[strings.TrimSpace(kv[0])] = strings.Trim(strings.TrimSpace(kv[1]), `"`)
		}
	default:
		return qmkerr.New(qmkerr.ParseError, "unknown directive %q", directive)
	}
	return nil
}

// parseNodeLine parses `OPCODE args... [-> outputs] [if GUARD] [CAPS]`.
func parseNodeLine(label, rest string) (*Node, error) {
	caps, rest := extractCaps(rest)
	guard, rest, err := extractGuard(rest)
	if err != nil {
		return nil, err
	}
	producesRaw, rest := extractOutputs(rest)

	fields := strings.SplitN(rest, " ", 2)
	if fields[0] == "" {
		return nil, qmkerr.New(qmkerr.ParseError, "node %q missing opcode", label)
	}
	opcode := Opcode(fields[0])
	argsStr := ""
	if len(fields) > 1 {
		argsStr = strings.TrimSpace(fields[1])
	}

	args, positional, err := parseArgs(argsStr)
	if err != nil {
		return nil, err
	}

	n := &Node{ID: label, Op: opcode, Args: args, Guard: guard, Caps: caps}

	var produces []string
	var vqs []string
	if opcode == OpAllocLQ {
		vqs = append(vqs, producesRaw...)
	} else {
		produces = producesRaw
	}

	for _, tok := range positional {
		switch {
		case strings.HasPrefix(tok, "ch"):
			n.Chs = append(n.Chs, tok)
		case strings.HasPrefix(tok, "ev"):
			n.Inputs = append(n.Inputs, tok)
		default:
			vqs = append(vqs, tok)
		}
	}

	n.VQs = vqs
	n.Produces = produces
	return n, nil
}

func extractCaps(rest string) ([]Capability, string) {
	rest = strings.TrimRight(rest, " ")
	if !strings.HasSuffix(rest, "]") {
		return nil, rest
	}
	open := strings.LastIndex(rest, "[")
	if open < 0 {
		return nil, rest
	}
	inner := rest[open+1 : len(rest)-1]
	var caps []Capability
	for _, c := range strings.Split(inner, ",") {
		c = strings.TrimSpace(c)
		if c != "" {
			caps = append(caps, Capability(c))
		}
	}
	return caps, strings.TrimSpace(rest[:open])
}

// extractGuard finds a trailing "if <condition>" clause and parses it
// into the Guard grammar (§4.6): a leaf equality, or a same-shape
// and/or composite using "&&"/"||" as the textual connective.
func extractGuard(rest string) (*Guard, string, error) {
	idx := findKeyword(rest, "if")
	if idx < 0 {
		return nil, rest, nil
	}
	cond := strings.TrimSpace(rest[idx+2:])
	rest = strings.TrimSpace(rest[:idx])

	g, err := parseGuardExpr(cond)
	if err != nil {
		return nil, rest, err
	}
	return g, rest, nil
}

func parseGuardExpr(cond string) (*Guard, error) {
	if strings.Contains(cond, "&&") {
		parts := strings.Split(cond, "&&")
		children := make([]Guard, 0, len(parts))
		for _, p := range parts {
			leaf, err := parseGuardLeaf(strings.TrimSpace(p))
			if err != nil {
				return nil, err
			}
			children = append(children, *leaf)
		}
		return &Guard{Type: "and", Conditions: children}, nil
	}
	if strings.Contains(cond, "||") {
		parts := strings.Split(cond, "||")
		children := make([]Guard, 0, len(parts))
		for _, p := range parts {
			leaf, err := parseGuardLeaf(strings.TrimSpace(p))
			if err != nil {
				return nil, err
			}
			children = append(children, *leaf)
		}
		return &Guard{Type: "or", Conditions: children}, nil
	}
	return parseGuardLeaf(cond)
}

func parseGuardLeaf(cond string) (*Guard, error) {
	idx := strings.Index(cond, "==")
	if idx < 0 {
		return nil, qmkerr.New(qmkerr.GuardMalformed, "malformed guard condition %q", cond)
	}
	event := strings.TrimSpace(cond[:idx])
	valStr := strings.TrimSpace(cond[idx+2:])
	val, err := strconv.Atoi(valStr)
	if err != nil {
		return nil, qmkerr.New(qmkerr.GuardMalformed, "malformed guard value in %q", cond)
	}
	return &Guard{Event: event, Equals: val}, nil
}

func extractOutputs(rest string) ([]string, string) {
	idx := strings.Index(rest, "->")
	if idx < 0 {
		return nil, rest
	}
	outStr := strings.TrimSpace(rest[idx+2:])
	var outs []string
	for _, o := range strings.Split(outStr, ",") {
		o = strings.TrimSpace(o)
		if o != "" {
			outs = append(outs, o)
		}
	}
	return outs, strings.TrimSpace(rest[:idx])
}

// parseArgs splits a comma-separated argument string into key=value
// pairs and bare positional tokens, respecting quoted strings.
func parseArgs(argsStr string) (map[string]any, []string, error) {
	if argsStr == "" {
		return nil, nil, nil
	}
	parts := splitRespectingQuotes(argsStr)

	args := make(map[string]any)
	var positional []string
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if eq := strings.Index(part, "="); eq >= 0 && !strings.HasPrefix(part, `"`) {
			key := strings.TrimSpace(part[:eq])
			val := strings.TrimSpace(part[eq+1:])
			args[key] = parseArgValue(val)
		} else {
			positional = append(positional, part)
		}
	}
	return args, positional, nil
}

func parseArgValue(val string) any {
	if strings.HasPrefix(val, `"`) && strings.HasSuffix(val, `"`) && len(val) >= 2 {
		return val[1 : len(val)-1]
	}
	if i, err := strconv.Atoi(val); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(val, 64); err == nil {
		return f
	}
	return val
}

func splitRespectingQuotes(s string) []string {
	var parts []string
	var cur strings.Builder
	inQuotes := false
	for _, c := range s {
		switch {
		case c == '"':
			inQuotes = !inQuotes
			cur.WriteRune(c)
		case c == ',' && !inQuotes:
			parts = append(parts, cur.String())
			cur.Reset()
		default:
			cur.WriteRune(c)
		}
	}
	if cur.Len() > 0 {
		parts = append(parts, cur.String())
	}
	return parts
}

// findKeyword finds the last occurrence of word as a standalone
// keyword (surrounded by spaces or string boundaries) in s, used to
// locate the "if" clause without matching it inside identifiers.
func findKeyword(s, word string) int {
	last := -1
	for i := 0; i+len(word) <= len(s); i++ {
		if s[i:i+len(word)] != word {
			continue
		}
		leftOK := i == 0 || s[i-1] == ' '
		rightOK := i+len(word) == len(s) || s[i+len(word)] == ' '
		if leftOK && rightOK {
			last = i
		}
	}
	return last
}
