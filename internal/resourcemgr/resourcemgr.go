// Package resourcemgr implements the Resource Manager (§4.4): logical
// qubit allocation against a physical-qubit quota, entanglement
// channel bookkeeping, and simulation-time advancement. Grounded on
// original_source/kernel/simulator/enhanced_resource_manager.py.
package resourcemgr

import (
	"github.com/neuralground/qmk/internal/logicalqubit"
	"github.com/neuralground/qmk/internal/qecprofile"
	"github.com/neuralground/qmk/internal/qmkerr"
)

// Channel is an open entanglement channel between two logical qubits.
type Channel struct {
	ChannelID string  `json:"channel_id"`
	VQA       string  `json:"vq_a"`
	VQB       string  `json:"vq_b"`
	Fidelity  float64 `json:"fidelity"`
	Uses      int     `json:"uses"`
}

// Usage is the current physical-resource utilization snapshot.
type Usage struct {
	LogicalQubitsAllocated  int     `json:"logical_qubits_allocated"`
	PhysicalQubitsUsed      int     `json:"physical_qubits_used"`
	PhysicalQubitsAvailable int     `json:"physical_qubits_available"`
	Utilization             float64 `json:"utilization"`
	ChannelsOpen            int     `json:"channels_open"`
}

// Manager tracks logical qubit allocation against a physical-qubit
// quota, entanglement channels, and simulation time. A Manager is not
// safe for concurrent use; the executor serializes access (§5).
type Manager struct {
	maxPhysicalQubits int
	seed              *int64
	seedCounter       int64

	logicalQubits map[string]*logicalqubit.LogicalQubit
	tracker       *logicalqubit.EntanglementTracker
	channels      map[string]*Channel

	physicalQubitsUsed     int
	peakPhysicalQubitsUsed int
	currentTimeUs          float64
}

// New constructs a Manager with the given physical-qubit quota. A nil
// seed yields non-reproducible per-qubit RNG streams; a non-nil seed
// derives per-qubit seeds as seed+seedCounter, incrementing on every
// allocation (matching the grounding source's qubit_seed scheme).
func New(maxPhysicalQubits int, seed *int64) *Manager {
	return &Manager{
		maxPhysicalQubits: maxPhysicalQubits,
		seed:              seed,
		logicalQubits:     make(map[string]*logicalqubit.LogicalQubit),
		tracker:           logicalqubit.NewEntanglementTracker(),
		channels:          make(map[string]*Channel),
	}
}

// Tracker returns the manager's entanglement tracker, for use by
// two-qubit gate dispatch in the executor.
func (m *Manager) Tracker() *logicalqubit.EntanglementTracker { return m.tracker }

// Reset clears all allocated qubits, channels, and simulation time.
func (m *Manager) Reset() {
	m.logicalQubits = make(map[string]*logicalqubit.LogicalQubit)
	m.tracker = logicalqubit.NewEntanglementTracker()
	m.channels = make(map[string]*Channel)
	m.physicalQubitsUsed = 0
	m.peakPhysicalQubitsUsed = 0
	m.currentTimeUs = 0
	m.seedCounter = 0
}

// Allocation is the per-qubit result of AllocLogicalQubits.
type Allocation struct {
	VQID               string
	PhysicalQubitCount int
}

// AllocLogicalQubits allocates vqIDs under profile, failing atomically
// (no partial allocation) if the quota would be exceeded or any id is
// already live.
func (m *Manager) AllocLogicalQubits(vqIDs []string, profile qecprofile.Profile) ([]Allocation, error) {
	required := len(vqIDs) * profile.PhysicalQubitCount
	if m.physicalQubitsUsed+required > m.maxPhysicalQubits {
		return nil, qmkerr.Withf(qmkerr.QuotaExceeded,
			map[string]any{"required": required, "available": m.maxPhysicalQubits - m.physicalQubitsUsed},
			"insufficient physical qubits: need %d, have %d available",
			required, m.maxPhysicalQubits-m.physicalQubitsUsed)
	}

	for _, id := range vqIDs {
		if _, exists := m.logicalQubits[id]; exists {
			return nil, qmkerr.New(qmkerr.IdTaken, "virtual qubit %q already allocated", id)
		}
	}

	allocated := make([]Allocation, 0, len(vqIDs))
	for _, id := range vqIDs {
		var qubitSeed *int64
		if m.seed != nil {
			s := *m.seed + m.seedCounter
			qubitSeed = &s
		}
		m.seedCounter++

		m.logicalQubits[id] = logicalqubit.New(id, profile, qubitSeed)
		m.physicalQubitsUsed += profile.PhysicalQubitCount
		if m.physicalQubitsUsed > m.peakPhysicalQubitsUsed {
			m.peakPhysicalQubitsUsed = m.physicalQubitsUsed
		}
		allocated = append(allocated, Allocation{VQID: id, PhysicalQubitCount: profile.PhysicalQubitCount})
	}
	return allocated, nil
}

// PeakPhysicalQubitsUsed reports the high-water mark of physical qubit
// usage since the last Reset, for the status operation's
// peak_resources field (§6).
func (m *Manager) PeakPhysicalQubitsUsed() int { return m.peakPhysicalQubitsUsed }

// FreeLogicalQubits frees vqIDs and reclaims their physical resources.
// Unknown ids are silently ignored (matching the grounding source:
// already-freed or never-allocated ids are not an error here; the
// executor is responsible for rejecting FREE_LQ on a not-live id via
// IdNotLive before reaching the resource manager).
func (m *Manager) FreeLogicalQubits(vqIDs []string) {
	for _, id := range vqIDs {
		q, ok := m.logicalQubits[id]
		if !ok {
			continue
		}
		m.physicalQubitsUsed -= q.Profile.PhysicalQubitCount
		delete(m.logicalQubits, id)
		m.tracker.BreakEntanglement(id)
	}
}

// GetLogicalQubit returns the live logical qubit for vqID, or
// IdNotLive if it is not currently allocated.
func (m *Manager) GetLogicalQubit(vqID string) (*logicalqubit.LogicalQubit, error) {
	q, ok := m.logicalQubits[vqID]
	if !ok {
		return nil, qmkerr.New(qmkerr.IdNotLive, "virtual qubit %q not allocated", vqID)
	}
	return q, nil
}

// IsLive reports whether vqID is currently allocated.
func (m *Manager) IsLive(vqID string) bool {
	_, ok := m.logicalQubits[vqID]
	return ok
}

// OpenChannel opens an entanglement channel between two live qubits.
func (m *Manager) OpenChannel(channelID, vqA, vqB string, fidelity float64) error {
	if _, exists := m.channels[channelID]; exists {
		return qmkerr.New(qmkerr.IdTaken, "channel %q already open", channelID)
	}
	if _, err := m.GetLogicalQubit(vqA); err != nil {
		return err
	}
	if _, err := m.GetLogicalQubit(vqB); err != nil {
		return err
	}
	m.channels[channelID] = &Channel{ChannelID: channelID, VQA: vqA, VQB: vqB, Fidelity: fidelity}
	return nil
}

// CloseChannel closes an entanglement channel, if open.
func (m *Manager) CloseChannel(channelID string) {
	delete(m.channels, channelID)
}

// ResourceUsage reports the current utilization snapshot.
func (m *Manager) ResourceUsage() Usage {
	return Usage{
		LogicalQubitsAllocated:  len(m.logicalQubits),
		PhysicalQubitsUsed:      m.physicalQubitsUsed,
		PhysicalQubitsAvailable: m.maxPhysicalQubits - m.physicalQubitsUsed,
		Utilization:             float64(m.physicalQubitsUsed) / float64(m.maxPhysicalQubits),
		ChannelsOpen:            len(m.channels),
	}
}

// Telemetry is the comprehensive resource-manager snapshot (§6
// /v1/telemetry).
type Telemetry struct {
	ResourceUsage    Usage                             `json:"resource_usage"`
	Qubits           map[string]logicalqubit.Telemetry `json:"qubits"`
	Channels         map[string]Channel                `json:"channels"`
	SimulationTimeUs float64                            `json:"simulation_time_us"`
}

// Telemetry reports the comprehensive telemetry payload.
func (m *Manager) Telemetry() Telemetry {
	qubits := make(map[string]logicalqubit.Telemetry, len(m.logicalQubits))
	for id, q := range m.logicalQubits {
		qubits[id] = q.Telemetry()
	}
	channels := make(map[string]Channel, len(m.channels))
	for id, c := range m.channels {
		channels[id] = *c
	}
	return Telemetry{
		ResourceUsage:    m.ResourceUsage(),
		Qubits:           qubits,
		Channels:         channels,
		SimulationTimeUs: m.currentTimeUs,
	}
}

// AdvanceTime advances the simulation clock by deltaUs.
func (m *Manager) AdvanceTime(deltaUs float64) { m.currentTimeUs += deltaUs }

// CurrentTimeUs reports the simulation clock.
func (m *Manager) CurrentTimeUs() float64 { return m.currentTimeUs }

// QubitSnapshot pairs a live qubit's id with its restorable state and
// profile, the per-qubit unit a checkpoint persists.
type QubitSnapshot struct {
	VQID    string
	State   logicalqubit.Snapshot
	Profile qecprofile.Profile
}

// SnapshotQubits captures every currently live logical qubit's
// restorable state, mirroring the grounding source's
// CheckpointManager._snapshot_qubits.
func (m *Manager) SnapshotQubits() []QubitSnapshot {
	out := make([]QubitSnapshot, 0, len(m.logicalQubits))
	for id, q := range m.logicalQubits {
		out = append(out, QubitSnapshot{VQID: id, State: q.Snapshot(), Profile: q.Profile})
	}
	return out
}

// RestoreQubits writes each snapshot's state back onto its qubit if
// still live, and re-allocates (under the given profile) any snapshot
// whose qubit is not currently live, mirroring
// CheckpointManager._restore_qubits. It returns the ids actually
// restored or re-allocated.
func (m *Manager) RestoreQubits(snaps []QubitSnapshot) ([]string, error) {
	restored := make([]string, 0, len(snaps))
	for _, s := range snaps {
		if q, ok := m.logicalQubits[s.VQID]; ok {
			q.Restore(s.State)
			restored = append(restored, s.VQID)
			continue
		}
		if _, err := m.AllocLogicalQubits([]string{s.VQID}, s.Profile); err != nil {
			return restored, err
		}
		m.logicalQubits[s.VQID].Restore(s.State)
		restored = append(restored, s.VQID)
	}
	return restored, nil
}
