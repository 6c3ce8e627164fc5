package logicalqubit

// Group is a set of qubit ids sharing a (possibly latched) correlated
// measurement outcome. Grounded on
// original_source/kernel/simulator/entanglement_tracker.py.
type Group struct {
	QubitIDs  map[string]struct{}
	Outcome   *int
}

func newGroup() *Group {
	return &Group{QubitIDs: make(map[string]struct{})}
}

func (g *Group) addQubit(id string) { g.QubitIDs[id] = struct{}{} }
func (g *Group) removeQubit(id string) { delete(g.QubitIDs, id) }
func (g *Group) Len() int { return len(g.QubitIDs) }
func (g *Group) IsMeasured() bool { return g.Outcome != nil }

// SetMeasurement latches the group's shared outcome; subsequent calls
// are no-ops (first measurement wins).
func (g *Group) SetMeasurement(v int) {
	if g.Outcome == nil {
		o := v
		g.Outcome = &o
	}
}

// EntanglementTracker maintains disjoint entanglement groups. It is
// internally single-threaded; external synchronization is the
// executor's responsibility (§4.4).
type EntanglementTracker struct {
	qubitToGroup map[string]*Group
	groups       []*Group
}

// NewEntanglementTracker constructs an empty tracker.
func NewEntanglementTracker() *EntanglementTracker {
	return &EntanglementTracker{qubitToGroup: make(map[string]*Group)}
}

// CreateEntanglement forms or merges groups so that every qubit in ids
// shares a single group. Existing latched outcomes are preserved by
// adopting the first non-nil one found among the merged groups.
func (t *EntanglementTracker) CreateEntanglement(ids []string) *Group {
	var existing []*Group
	seen := make(map[*Group]struct{})
	for _, id := range ids {
		if g, ok := t.qubitToGroup[id]; ok {
			if _, dup := seen[g]; !dup {
				seen[g] = struct{}{}
				existing = append(existing, g)
			}
		}
	}

	var merged *Group
	if len(existing) > 0 {
		merged = existing[0]
		for _, g := range existing[1:] {
			for id := range g.QubitIDs {
				merged.addQubit(id)
				t.qubitToGroup[id] = merged
			}
			if merged.Outcome == nil && g.Outcome != nil {
				merged.Outcome = g.Outcome
			}
			t.removeGroup(g)
		}
	} else {
		merged = newGroup()
		t.groups = append(t.groups, merged)
	}

	for _, id := range ids {
		merged.addQubit(id)
		t.qubitToGroup[id] = merged
	}
	return merged
}

func (t *EntanglementTracker) removeGroup(g *Group) {
	for i, cand := range t.groups {
		if cand == g {
			t.groups = append(t.groups[:i], t.groups[i+1:]...)
			return
		}
	}
}

// GetGroup returns the group containing id, or nil.
func (t *EntanglementTracker) GetGroup(id string) *Group { return t.qubitToGroup[id] }

// IsEntangled reports whether id belongs to any group.
func (t *EntanglementTracker) IsEntangled(id string) bool {
	_, ok := t.qubitToGroup[id]
	return ok
}

// GetEntangledQubits returns the other members of id's group.
func (t *EntanglementTracker) GetEntangledQubits(id string) []string {
	g, ok := t.qubitToGroup[id]
	if !ok {
		return nil
	}
	var out []string
	for other := range g.QubitIDs {
		if other != id {
			out = append(out, other)
		}
	}
	return out
}

// BreakEntanglement removes id from its group, garbage-collecting the
// group if it becomes empty.
func (t *EntanglementTracker) BreakEntanglement(id string) {
	g, ok := t.qubitToGroup[id]
	if !ok {
		return
	}
	g.removeQubit(id)
	delete(t.qubitToGroup, id)
	if g.Len() == 0 {
		t.removeGroup(g)
	}
}

// Stats mirrors entanglement_tracker.py's get_statistics().
type Stats struct {
	NumGroups          int
	NumEntangledQubits int
	GroupSizes         []int
	MaxGroupSize       int
}

// Statistics reports aggregate entanglement telemetry.
func (t *EntanglementTracker) Statistics() Stats {
	s := Stats{NumGroups: len(t.groups), NumEntangledQubits: len(t.qubitToGroup)}
	for _, g := range t.groups {
		s.GroupSizes = append(s.GroupSizes, g.Len())
		if g.Len() > s.MaxGroupSize {
			s.MaxGroupSize = g.Len()
		}
	}
	return s
}
