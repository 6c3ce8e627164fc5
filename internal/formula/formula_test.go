package formula

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvalNumeric(t *testing.T) {
	tests := []struct {
		name string
		expr string
		ctx  Context
		want float64
	}{
		{"literal", "3", nil, 3},
		{"arithmetic", "2 + 3 * 4", nil, 14},
		{"parens", "(2 + 3) * 4", nil, 20},
		{"variable", "codeDistance * 2", Context{"codeDistance": 9.0}, 18},
		{"division", "10 / 4", nil, 2.5},
		{"time-literal-ns", "50 ns", nil, 0.05},
		{"time-literal-us", "100 us", nil, 100},
		{"negative", "-5 + 3", nil, -2},
		{"named-plus-literal", "oneQubitGateTime + 10 ns", Context{"oneQubitGateTime": 1.0}, 1.01},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := EvalNumeric(tt.expr, tt.ctx)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestEvalNumericErrors(t *testing.T) {
	tests := []string{
		"codeDistance * 2", // undefined variable
		"3 +",              // syntax error
		"5 fortnights",     // unknown unit
		"3 / 0",            // division by zero
	}
	for _, expr := range tests {
		t.Run(expr, func(t *testing.T) {
			_, err := EvalNumeric(expr, nil)
			require.Error(t, err)
			var ferr *Error
			require.ErrorAs(t, err, &ferr)
		})
	}
}

func TestEvalBool(t *testing.T) {
	tests := []struct {
		expr string
		ctx  Context
		want bool
	}{
		{"n == 3", Context{"n": 3.0}, true},
		{"n != 3", Context{"n": 3.0}, false},
		{"n > 2 and n < 5", Context{"n": 3.0}, true},
		{"n > 2 and n > 5", Context{"n": 3.0}, false},
		{"n > 2 or n > 5", Context{"n": 1.0}, false},
		{"not (n == 3)", Context{"n": 3.0}, false},
		{`s[0] == "a"`, Context{"s": "abc"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, err := EvalBool(tt.expr, tt.ctx)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseTimeLiteral(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"50ns", 0.05},
		{"50 ns", 0.05},
		{"1us", 1},
		{"1µs", 1},
		{"2ms", 2000},
		{"1s", 1e6},
		{"1.5ms", 1500},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTimeLiteral(tt.in)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestParseTimeLiteralUnknownUnit(t *testing.T) {
	_, err := ParseTimeLiteral("5 fortnights")
	require.Error(t, err)
}
