package logicalqubit

// ApplyCNOT applies a CNOT gate between control and target at timeUs,
// updating the discrete-state rewrite table and forming or dissolving
// entanglement group membership in tracker. Grounded on
// TwoQubitGate.apply_cnot in logical_qubit.py, adapted to route all
// entanglement bookkeeping through the tracker (the group-based path
// is authoritative — see DESIGN.md's resolved Open Question on the
// pairwise entangled_with fast path).
func ApplyCNOT(tracker *EntanglementTracker, control, target *LogicalQubit, timeUs float64) {
	if g := tracker.GetGroup(control.QubitID); g != nil && g == tracker.GetGroup(target.QubitID) && g.Len() == 2 {
		if disentangleCNOT(control, target) {
			tracker.BreakEntanglement(control.QubitID)
			tracker.BreakEntanglement(target.QubitID)
			finishTwoQubit(control, target, timeUs)
			return
		}
	}

	switch control.state {
	case Zero:
		// control |0>: target unchanged.
	case One:
		_ = target.applyLogicalGate("X", false)
	case Plus, Minus:
		applyCNOTSuperposition(tracker, control, target)
	}

	finishTwoQubit(control, target, timeUs)
}

// disentangleCNOT handles the four two-qubit Bell-state combinations
// a CNOT can collapse back to computational basis, matching the
// source's entangled-pair disentanglement table used by superdense
// coding. Returns false (no match) when the joint state isn't one of
// the four recognized Bell combinations, in which case the caller
// falls through to ordinary CNOT semantics.
func disentangleCNOT(control, target *LogicalQubit) bool {
	switch {
	case control.state == Minus && target.state == Plus:
		control.state, target.state = One, One
	case control.state == Minus && target.state == Minus:
		control.state, target.state = One, Zero
	case control.state == Plus && target.state == Plus:
		control.state, target.state = Zero, Zero
	case control.state == Plus && target.state == Minus:
		control.state, target.state = Zero, One
	default:
		return false
	}
	return true
}

func applyCNOTSuperposition(tracker *EntanglementTracker, control, target *LogicalQubit) {
	switch target.state {
	case Zero:
		// (|0>+|1>)|0> -> |00>+|11>: Bell state, both remain Plus.
		control.state = Plus
		target.state = Plus
		tracker.CreateEntanglement([]string{control.QubitID, target.QubitID})
	case One:
		// (|0>+|1>)|1> -> |01>+|10>.
		control.state = Plus
		target.state = Minus
		tracker.CreateEntanglement([]string{control.QubitID, target.QubitID})
	case Minus:
		// Phase kickback: target stays |->, control picks up a phase flip.
		if control.state == Plus {
			control.state = Minus
		} else {
			control.state = Plus
		}
	case Plus:
		control.state = Plus
		target.state = Plus
		tracker.CreateEntanglement([]string{control.QubitID, target.QubitID})
	}
}

func finishTwoQubit(control, target *LogicalQubit, timeUs float64) {
	control.errorModel.ApplyGateNoise(control.QubitID, control.Profile.PhysicalGateErrorRate, timeUs)
	target.errorModel.ApplyGateNoise(target.QubitID, target.Profile.PhysicalGateErrorRate, timeUs)

	control.runDecoderCycle()
	target.runDecoderCycle()

	cycle := control.Profile.LogicalCycleTimeUs
	if target.Profile.LogicalCycleTimeUs > cycle {
		cycle = target.Profile.LogicalCycleTimeUs
	}
	control.currentTimeUs = timeUs + cycle
	target.currentTimeUs = timeUs + cycle
	control.lastGateTimeUs = control.currentTimeUs
	target.lastGateTimeUs = target.currentTimeUs

	control.gateCount++
	target.gateCount++
}

// ApplyCZ applies a Controlled-Z gate as H(target), CNOT, H(target).
func ApplyCZ(tracker *EntanglementTracker, control, target *LogicalQubit, timeUs float64) {
	_ = target.applyLogicalGate("H", false)
	ApplyCNOT(tracker, control, target, timeUs)
	_ = target.applyLogicalGate("H", false)
}

// ApplySWAP applies a SWAP gate via three CNOTs.
func ApplySWAP(tracker *EntanglementTracker, a, b *LogicalQubit, timeUs float64) {
	ApplyCNOT(tracker, a, b, timeUs)
	ApplyCNOT(tracker, b, a, timeUs)
	ApplyCNOT(tracker, a, b, timeUs)
}

// MeasureBellBasis is a spec supplement (§4.3) not present in the
// filtered source: a joint two-outcome measurement of a qubit pair in
// the Bell basis, used by quantum teleportation programs. It collapses
// both qubits to computational basis and reports (bit1, bit2) where
// bit1 is the parity (XOR) outcome and bit2 distinguishes the phase
// sector, matching the standard teleportation correction convention.
func MeasureBellBasis(tracker *EntanglementTracker, a, b *LogicalQubit, timeUs float64) (int, int, error) {
	_ = a.applyLogicalGate("H", false)
	ApplyCNOT(tracker, a, b, timeUs)

	bit2, err := a.Measure(BasisZ, timeUs, tracker.GetGroup(a.QubitID))
	if err != nil {
		return 0, 0, err
	}
	tracker.BreakEntanglement(a.QubitID)

	bit1, err := b.Measure(BasisZ, timeUs, tracker.GetGroup(b.QubitID))
	if err != nil {
		return 0, 0, err
	}
	tracker.BreakEntanglement(b.QubitID)

	return bit1, bit2, nil
}
