package logicalqubit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateEntanglementFormsGroup(t *testing.T) {
	tr := NewEntanglementTracker()
	g := tr.CreateEntanglement([]string{"a", "b"})
	assert.Equal(t, 2, g.Len())
	assert.True(t, tr.IsEntangled("a"))
	assert.True(t, tr.IsEntangled("b"))
	assert.Same(t, g, tr.GetGroup("a"))
	assert.Same(t, g, tr.GetGroup("b"))
}

func TestCreateEntanglementMergesExistingGroups(t *testing.T) {
	tr := NewEntanglementTracker()
	tr.CreateEntanglement([]string{"a", "b"})
	tr.CreateEntanglement([]string{"c", "d"})
	merged := tr.CreateEntanglement([]string{"b", "c"})

	stats := tr.Statistics()
	require.Equal(t, 1, stats.NumGroups)
	assert.Equal(t, 4, merged.Len())
	assert.Equal(t, tr.GetGroup("a"), tr.GetGroup("d"))
}

func TestBreakEntanglementRemovesQubitAndGCsEmptyGroup(t *testing.T) {
	tr := NewEntanglementTracker()
	tr.CreateEntanglement([]string{"a", "b"})
	tr.BreakEntanglement("a")
	assert.False(t, tr.IsEntangled("a"))
	assert.True(t, tr.IsEntangled("b"))

	tr.BreakEntanglement("b")
	assert.False(t, tr.IsEntangled("b"))
	assert.Equal(t, 0, tr.Statistics().NumGroups)
}

func TestGetEntangledQubitsExcludesSelf(t *testing.T) {
	tr := NewEntanglementTracker()
	tr.CreateEntanglement([]string{"a", "b", "c"})
	others := tr.GetEntangledQubits("a")
	assert.ElementsMatch(t, []string{"b", "c"}, others)
}

func TestSetMeasurementLatchesFirstOutcomeOnly(t *testing.T) {
	g := newGroup()
	g.addQubit("a")
	g.SetMeasurement(1)
	g.SetMeasurement(0)
	require.True(t, g.IsMeasured())
	assert.Equal(t, 1, *g.Outcome)
}

func TestStatisticsReportsGroupSizes(t *testing.T) {
	tr := NewEntanglementTracker()
	tr.CreateEntanglement([]string{"a", "b"})
	tr.CreateEntanglement([]string{"c", "d", "e"})

	stats := tr.Statistics()
	assert.Equal(t, 2, stats.NumGroups)
	assert.Equal(t, 5, stats.NumEntangledQubits)
	assert.Equal(t, 3, stats.MaxGroupSize)
	assert.ElementsMatch(t, []int{2, 3}, stats.GroupSizes)
}
