package graphir

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPreprocessSetAndInterpolation(t *testing.T) {
	src := ".set n = 3\nh{n}: APPLY_H q0\n"
	out, err := Preprocess(src, nil, nil)
	require.NoError(t, err)
	assert.Contains(t, out, "h3: APPLY_H q0")
}

func TestPreprocessParamDefaultAndOverride(t *testing.T) {
	src := ".param depth = 5\nd{depth}: APPLY_H q0\n"

	out, err := Preprocess(src, nil, nil)
	require.NoError(t, err)
	assert.Contains(t, out, "d5: APPLY_H q0")

	out2, err := Preprocess(src, map[string]any{"depth": 9.0}, nil)
	require.NoError(t, err)
	assert.Contains(t, out2, "d9: APPLY_H q0")
}

func TestPreprocessForLoop(t *testing.T) {
	src := ".for i in 0..2\nh{i}: APPLY_H q{i}\n.endfor\n"
	out, err := Preprocess(src, nil, nil)
	require.NoError(t, err)

	assert.Contains(t, out, "h0: APPLY_H q0")
	assert.Contains(t, out, "h1: APPLY_H q1")
	assert.Contains(t, out, "h2: APPLY_H q2")
}

func TestPreprocessIfElif(t *testing.T) {
	src := `.param mode = "a"
.if mode == "a"
chosen: APPLY_H q0
.elif mode == "b"
chosen: APPLY_X q0
.else
chosen: APPLY_Z q0
.endif
`
	out, err := Preprocess(src, nil, nil)
	require.NoError(t, err)
	assert.Contains(t, out, "chosen: APPLY_H q0")
	assert.NotContains(t, out, "chosen: APPLY_X q0")
}

func TestPreprocessMacroExpansion(t *testing.T) {
	src := ".macro BELL(a, b)\nh: APPLY_H {a}\ncnot: APPLY_CNOT {a}, {b}\n.endmacro\nBELL(q0, q1)\n"
	out, err := Preprocess(src, nil, nil)
	require.NoError(t, err)
	assert.Contains(t, out, "APPLY_H q0")
	assert.Contains(t, out, "APPLY_CNOT q0, q1")
}

func TestPreprocessInclude(t *testing.T) {
	resolver := func(name string) (string, bool) {
		if name == "common.qasm" {
			return "common: APPLY_H q0\n", true
		}
		return "", false
	}
	src := ".include \"common.qasm\"\nafter: APPLY_X q0\n"
	out, err := Preprocess(src, nil, resolver)
	require.NoError(t, err)
	assert.True(t, strings.Contains(out, "common: APPLY_H q0"))
	assert.True(t, strings.Contains(out, "after: APPLY_X q0"))
}

func TestPreprocessIncludeMissingFails(t *testing.T) {
	_, err := Preprocess(".include \"nope.qasm\"\n", nil, func(string) (string, bool) { return "", false })
	require.Error(t, err)
}

func TestPreprocessNestedForLoops(t *testing.T) {
	src := ".for i in 0..1\n.for j in 0..1\nn{i}{j}: APPLY_H q0\n.endfor\n.endfor\n"
	out, err := Preprocess(src, nil, nil)
	require.NoError(t, err)
	for _, want := range []string{"n00:", "n01:", "n10:", "n11:"} {
		assert.Contains(t, out, want)
	}
}

func TestFullPipelineAssembleAfterPreprocess(t *testing.T) {
	src := ".for i in 0..2\nh{i}: APPLY_H q{i}\n.endfor\n"
	expanded, err := Preprocess(src, nil, nil)
	require.NoError(t, err)

	g, err := Assemble(expanded)
	require.NoError(t, err)
	assert.Len(t, g.Nodes, 3)
}
