package graphir

import (
	"sort"
	"strconv"
	"strings"

	"github.com/neuralground/qmk/internal/formula"
	"github.com/neuralground/qmk/internal/qmkerr"
)

// IncludeResolver resolves a .include "name" directive to file
// contents. The caller supplies this (backed by a filesystem, an
// embedded asset set, or an in-memory map in tests) — the Graph IR
// package itself has no filesystem dependency.
type IncludeResolver func(name string) (string, bool)

type macroDef struct {
	params []string
	body   []string
}

// preprocessor implements the macro preprocessor (§4.6): .include,
// .param, .set, .for/.endfor, .if/.elif/.else/.endif, .macro/
// .endmacro, and {expr} interpolation. Grounded on
// original_source/qvm/tools/qvm_asm_macros.py, reimplemented as a
// single recursive-descent pass over lines (rather than the source's
// seven sequential whole-file phases) so nesting and scoping fall out
// of normal call-stack recursion instead of ad hoc depth counters.
type preprocessor struct {
	variables map[string]any
	params    map[string]any
	macros    map[string]macroDef
	resolver  IncludeResolver
	including map[string]bool
}

// Preprocess expands .include/.param/.set/.for/.if/.macro directives
// and {expr} interpolation in assembly text, returning the fully
// expanded text ready for Assemble.
func Preprocess(text string, params map[string]any, resolver IncludeResolver) (string, error) {
	p := &preprocessor{
		variables: make(map[string]any),
		params:    params,
		macros:    make(map[string]macroDef),
		resolver:  resolver,
		including: make(map[string]bool),
	}
	if p.params == nil {
		p.params = make(map[string]any)
	}
	lines, err := p.expand(strings.Split(text, "\n"), "")
	if err != nil {
		return "", err
	}
	return strings.Join(lines, "\n"), nil
}

func (p *preprocessor) context() formula.Context {
	ctx := make(formula.Context, len(p.variables)+len(p.params))
	for k, v := range p.variables {
		ctx[k] = v
	}
	for k, v := range p.params {
		ctx[k] = v
	}
	return ctx
}

// expand processes lines in source order, recursing into block
// directives. includeName names the current file for cycle detection
// (empty for the top-level/inline text).
func (p *preprocessor) expand(lines []string, includeName string) ([]string, error) {
	var out []string
	i := 0
	for i < len(lines) {
		line := lines[i]
		stripped := strings.TrimSpace(line)

		switch {
		case strings.HasPrefix(stripped, ".include"):
			name, err := parseIncludeName(stripped)
			if err != nil {
				return nil, err
			}
			if p.including[name] {
				return nil, qmkerr.New(qmkerr.IncludeCycle, "include cycle at %q", name)
			}
			if p.resolver == nil {
				return nil, qmkerr.New(qmkerr.IncludeMissing, "no include resolver configured, cannot resolve %q", name)
			}
			content, ok := p.resolver(name)
			if !ok {
				return nil, qmkerr.New(qmkerr.IncludeMissing, "include file not found: %q", name)
			}
			p.including[name] = true
			expanded, err := p.expand(strings.Split(content, "\n"), name)
			delete(p.including, name)
			if err != nil {
				return nil, err
			}
			out = append(out, expanded...)
			i++

		case strings.HasPrefix(stripped, ".param"):
			name, expr, err := parseAssignment(stripped, ".param")
			if err != nil {
				return nil, err
			}
			if _, overridden := p.params[name]; !overridden {
				p.variables[name] = p.evalValue(expr)
			} else {
				p.variables[name] = p.params[name]
			}
			i++

		case strings.HasPrefix(stripped, ".set"):
			name, expr, err := parseAssignment(stripped, ".set")
			if err != nil {
				return nil, err
			}
			p.variables[name] = p.evalValue(p.substitute(expr))
			i++

		case strings.HasPrefix(stripped, ".macro"):
			name, params, body, next, err := p.collectBlock(lines, i, ".macro", ".endmacro")
			if err != nil {
				return nil, err
			}
			p.macros[name] = macroDef{params: params, body: body}
			i = next

		case strings.HasPrefix(stripped, ".for"):
			varName, iterExpr, body, next, err := p.collectFor(lines, i)
			if err != nil {
				return nil, err
			}
			expanded, err := p.expandFor(varName, iterExpr, body, includeName)
			if err != nil {
				return nil, err
			}
			out = append(out, expanded...)
			i = next

		case strings.HasPrefix(stripped, ".if"):
			branches, next, err := p.collectIf(lines, i)
			if err != nil {
				return nil, err
			}
			expanded, err := p.expandIf(branches, includeName)
			if err != nil {
				return nil, err
			}
			out = append(out, expanded...)
			i = next

		default:
			if macroLine, ok := p.tryExpandMacroCall(stripped); ok {
				out = append(out, macroLine...)
			} else {
				out = append(out, p.substitute(line))
			}
			i++
		}
	}
	return out, nil
}

func parseIncludeName(line string) (string, error) {
	rest := strings.TrimSpace(strings.TrimPrefix(line, ".include"))
	if !strings.HasPrefix(rest, `"`) || !strings.HasSuffix(rest, `"`) || len(rest) < 2 {
		return "", qmkerr.New(qmkerr.ParseError, "malformed .include directive %q", line)
	}
	return rest[1 : len(rest)-1], nil
}

func parseAssignment(line, directive string) (name, expr string, err error) {
	rest := strings.TrimSpace(strings.TrimPrefix(line, directive))
	eq := strings.Index(rest, "=")
	if eq < 0 {
		return "", "", qmkerr.New(qmkerr.ParseError, "malformed %s directive %q", directive, line)
	}
	return strings.TrimSpace(rest[:eq]), strings.TrimSpace(rest[eq+1:]), nil
}

// evalValue evaluates expr as a numeric formula; if that fails (e.g.
// it is a quoted string literal, or an identifier bound to a string),
// falls back to a plain string value, matching the source's permissive
// "keep as string if evaluation fails" behavior.
func (p *preprocessor) evalValue(expr string) any {
	trimmed := strings.TrimSpace(expr)
	if strings.HasPrefix(trimmed, `"`) && strings.HasSuffix(trimmed, `"`) && len(trimmed) >= 2 {
		return trimmed[1 : len(trimmed)-1]
	}
	if v, err := formula.EvalNumeric(trimmed, p.context()); err == nil {
		return v
	}
	return trimmed
}

// substitute replaces every {expr} occurrence with its evaluated value.
func (p *preprocessor) substitute(line string) string {
	var b strings.Builder
	i := 0
	for i < len(line) {
		if line[i] == '{' {
			if end := strings.IndexByte(line[i:], '}'); end >= 0 {
				expr := line[i+1 : i+end]
				b.WriteString(p.renderExpr(expr))
				i += end + 1
				continue
			}
		}
		b.WriteByte(line[i])
		i++
	}
	return b.String()
}

func (p *preprocessor) renderExpr(expr string) string {
	ctx := p.context()
	if v, err := formula.EvalNumeric(expr, ctx); err == nil {
		return formatNumber(v)
	}
	if v, ok := ctx[strings.TrimSpace(expr)]; ok {
		return toStringValue(v)
	}
	return "{" + expr + "}"
}

func formatNumber(v float64) string {
	if v == float64(int64(v)) {
		return strconv.FormatInt(int64(v), 10)
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func toStringValue(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return formatNumber(t)
	case int:
		return strconv.Itoa(t)
	default:
		return ""
	}
}

// collectBlock collects a named block directive's body between a
// `.directive NAME(args)` opener and a matching closer, handling
// nested blocks of the same directive.
func (p *preprocessor) collectBlock(lines []string, start int, opener, closer string) (name string, params, body []string, next int, err error) {
	header := strings.TrimSpace(lines[start])
	rest := strings.TrimSpace(strings.TrimPrefix(header, opener))
	paren := strings.IndexByte(rest, '(')
	if paren < 0 || !strings.HasSuffix(rest, ")") {
		return "", nil, nil, 0, qmkerr.New(qmkerr.ParseError, "malformed %s directive %q", opener, header)
	}
	name = strings.TrimSpace(rest[:paren])
	argStr := rest[paren+1 : len(rest)-1]
	if argStr != "" {
		for _, a := range strings.Split(argStr, ",") {
			params = append(params, strings.TrimSpace(a))
		}
	}

	depth := 1
	i := start + 1
	for i < len(lines) {
		s := strings.TrimSpace(lines[i])
		if strings.HasPrefix(s, opener) {
			depth++
		} else if strings.HasPrefix(s, closer) {
			depth--
			if depth == 0 {
				return name, params, body, i + 1, nil
			}
		}
		body = append(body, lines[i])
		i++
	}
	return "", nil, nil, 0, qmkerr.New(qmkerr.ParseError, "unterminated %s block %q", opener, name)
}

func (p *preprocessor) collectFor(lines []string, start int) (varName, iterExpr string, body []string, next int, err error) {
	header := strings.TrimSpace(lines[start])
	rest := strings.TrimSpace(strings.TrimPrefix(header, ".for"))
	inIdx := strings.Index(rest, " in ")
	if inIdx < 0 {
		return "", "", nil, 0, qmkerr.New(qmkerr.ParseError, "malformed .for directive %q", header)
	}
	varName = strings.TrimSpace(rest[:inIdx])
	iterExpr = strings.TrimSpace(rest[inIdx+4:])

	depth := 1
	i := start + 1
	for i < len(lines) {
		s := strings.TrimSpace(lines[i])
		if strings.HasPrefix(s, ".for") {
			depth++
		} else if strings.HasPrefix(s, ".endfor") {
			depth--
			if depth == 0 {
				return varName, iterExpr, body, i + 1, nil
			}
		}
		body = append(body, lines[i])
		i++
	}
	return "", "", nil, 0, qmkerr.New(qmkerr.ParseError, "unterminated .for block")
}

func (p *preprocessor) expandFor(varName, iterExpr string, body []string, includeName string) ([]string, error) {
	values, err := p.evalIterable(iterExpr)
	if err != nil {
		return nil, err
	}

	old, hadOld := p.variables[varName]
	var out []string
	for _, v := range values {
		p.variables[varName] = v
		expanded, err := p.expand(body, includeName)
		if err != nil {
			return nil, err
		}
		out = append(out, expanded...)
	}
	if hadOld {
		p.variables[varName] = old
	} else {
		delete(p.variables, varName)
	}
	return out, nil
}

// evalIterable evaluates "start..end" (inclusive) or a comma-separated
// enumerated list of values.
func (p *preprocessor) evalIterable(expr string) ([]any, error) {
	if strings.Contains(expr, "..") {
		parts := strings.SplitN(expr, "..", 2)
		start, err := formula.EvalNumeric(strings.TrimSpace(parts[0]), p.context())
		if err != nil {
			return nil, qmkerr.Wrap(qmkerr.FormulaError, err)
		}
		end, err := formula.EvalNumeric(strings.TrimSpace(parts[1]), p.context())
		if err != nil {
			return nil, qmkerr.Wrap(qmkerr.FormulaError, err)
		}
		var out []any
		for v := int(start); v <= int(end); v++ {
			out = append(out, float64(v))
		}
		return out, nil
	}

	var out []any
	for _, item := range strings.Split(expr, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, p.evalValue(item))
	}
	return out, nil
}

type ifBranch struct {
	cond   string // empty for else
	isElse bool
	body   []string
}

func (p *preprocessor) collectIf(lines []string, start int) (branches []ifBranch, next int, err error) {
	header := strings.TrimSpace(lines[start])
	cond := strings.TrimSpace(strings.TrimPrefix(header, ".if"))
	branches = []ifBranch{{cond: cond}}

	depth := 1
	i := start + 1
	for i < len(lines) {
		s := strings.TrimSpace(lines[i])
		switch {
		case strings.HasPrefix(s, ".if"):
			depth++
			branches[len(branches)-1].body = append(branches[len(branches)-1].body, lines[i])
		case strings.HasPrefix(s, ".elif") && depth == 1:
			branches = append(branches, ifBranch{cond: strings.TrimSpace(strings.TrimPrefix(s, ".elif"))})
		case strings.HasPrefix(s, ".else") && depth == 1:
			branches = append(branches, ifBranch{isElse: true})
		case strings.HasPrefix(s, ".endif"):
			depth--
			if depth == 0 {
				return branches, i + 1, nil
			}
			branches[len(branches)-1].body = append(branches[len(branches)-1].body, lines[i])
		default:
			branches[len(branches)-1].body = append(branches[len(branches)-1].body, lines[i])
		}
		i++
	}
	return nil, 0, qmkerr.New(qmkerr.ParseError, "unterminated .if block")
}

func (p *preprocessor) expandIf(branches []ifBranch, includeName string) ([]string, error) {
	for _, br := range branches {
		if br.isElse {
			return p.expand(br.body, includeName)
		}
		ok, err := formula.EvalBool(p.substitute(br.cond), p.context())
		if err != nil {
			continue // unresolvable condition: skip, matching the source's permissive behavior
		}
		if ok {
			return p.expand(br.body, includeName)
		}
	}
	return nil, nil
}

// tryExpandMacroCall recognizes a standalone `NAME(arg, arg, ...)`
// line as a call to a previously-defined .macro and returns its
// substituted body.
func (p *preprocessor) tryExpandMacroCall(line string) ([]string, bool) {
	open := strings.IndexByte(line, '(')
	if open <= 0 || !strings.HasSuffix(line, ")") {
		return nil, false
	}
	name := line[:open]
	if !isIdent(name) {
		return nil, false
	}
	def, ok := p.macros[name]
	if !ok {
		return nil, false
	}

	argStr := line[open+1 : len(line)-1]
	var args []string
	if argStr != "" {
		for _, a := range strings.Split(argStr, ",") {
			args = append(args, strings.Trim(strings.TrimSpace(a), `"`))
		}
	}

	type saved struct {
		val any
		had bool
	}
	savedVars := make(map[string]saved, len(def.params))
	for i, param := range def.params {
		v, had := p.variables[param]
		savedVars[param] = saved{v, had}
		if i < len(args) {
			p.variables[param] = args[i]
		}
	}

	out := make([]string, 0, len(def.body))
	for _, bl := range def.body {
		out = append(out, p.substitute(bl))
	}

	for param, s := range savedVars {
		if s.had {
			p.variables[param] = s.val
		} else {
			delete(p.variables, param)
		}
	}
	return out, true
}

func isIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		if r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
			continue
		}
		if i > 0 && r >= '0' && r <= '9' {
			continue
		}
		return false
	}
	return true
}

// sortedMacroNames returns the defined macro names in sorted order.
// Nothing in the package calls it.
func (p *preprocessor) sortedMacroNames() []string {
	names := make([]string, 0, len(p.macros))
	for n := range p.macros {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
