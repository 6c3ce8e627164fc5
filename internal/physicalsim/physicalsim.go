// Package physicalsim is an optional exact-statevector cross-check
// backend, used only by tests that want to confirm the discrete-state
// executor (internal/executor) agrees with a real quantum-mechanical
// simulation on a small reference circuit. It is not part of the
// executor's own execution path: the executor's discrete-state model
// is authoritative for Graph IR semantics; this package exists only to
// catch a divergence between that model and physical reality on
// circuits small enough to simulate exactly.
//
// The gate dispatch and shot-parallel worker pool below are a fresh,
// narrow rewrite for this purpose: they run the handful of small
// reference circuits the cross-check tests need directly on
// github.com/itsubaki/q's exact statevector simulator, instead of
// carrying a general-purpose gate/circuit/DAG/runner-registry stack
// for a single optional backend.
package physicalsim

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/itsubaki/q"
)

type gate struct {
	name   string
	qubits []int
}

// circuit is this package's own minimal gate-level program
// representation: just enough to build the small reference circuits
// the cross-check tests need.
type circuit struct {
	qubits int
	gates  []gate
}

func bellCircuit() circuit {
	return circuit{
		qubits: 2,
		gates: []gate{
			{"H", []int{0}},
			{"CNOT", []int{0, 1}},
		},
	}
}

func ghzCircuit() circuit {
	return circuit{
		qubits: 3,
		gates: []gate{
			{"H", []int{0}},
			{"CNOT", []int{0, 1}},
			{"CNOT", []int{1, 2}},
		},
	}
}

// runOnce plays c exactly once on a fresh statevector and measures
// every qubit in the Z basis, returning the outcomes in qubit order.
func runOnce(c circuit) ([]int, error) {
	sim := q.New()
	qs := sim.ZeroWith(c.qubits)

	for _, g := range c.gates {
		switch g.name {
		case "H":
			sim.H(qs[g.qubits[0]])
		case "CNOT":
			sim.CNOT(qs[g.qubits[0]], qs[g.qubits[1]])
		default:
			return nil, fmt.Errorf("physicalsim: unsupported gate %q", g.name)
		}
	}

	bits := make([]int, c.qubits)
	for i, qb := range qs {
		if sim.Measure(qb).IsOne() {
			bits[i] = 1
		}
	}
	return bits, nil
}

// runCorrelation runs c shots times across a static-partition worker
// pool and reports how many of those runs measured every qubit into
// the same classical value.
func runCorrelation(c circuit, shots int) (correlated int, total int, err error) {
	workers := runtime.NumCPU()
	if workers > shots {
		workers = shots
	}
	if workers < 1 {
		workers = 1
	}
	per := shots / workers
	extra := shots % workers

	var mu sync.Mutex
	var wg sync.WaitGroup
	errCh := make(chan error, 1)

	for w := 0; w < workers; w++ {
		n := per
		if w < extra {
			n++
		}
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for i := 0; i < n; i++ {
				bits, runErr := runOnce(c)
				if runErr != nil {
					select {
					case errCh <- runErr:
					default:
					}
					return
				}
				agree := true
				for _, b := range bits[1:] {
					if b != bits[0] {
						agree = false
						break
					}
				}
				mu.Lock()
				total++
				if agree {
					correlated++
				}
				mu.Unlock()
			}
		}(n)
	}

	wg.Wait()
	close(errCh)
	if runErr, ok := <-errCh; ok {
		return 0, 0, runErr
	}
	return correlated, total, nil
}

// BellPairCorrelation runs an H/CNOT Bell-pair circuit shots times on
// the exact statevector backend and reports how many of those runs
// measured the two qubits into the same classical value, the same
// correlation invariant the executor's Graph IR Bell-program tests
// check on the discrete-state backend.
func BellPairCorrelation(shots int) (correlated int, total int, err error) {
	return runCorrelation(bellCircuit(), shots)
}

// GHZCorrelation runs an H/CNOT/CNOT three-qubit GHZ circuit shots
// times, reporting how many runs measured all three qubits into the
// same classical value.
func GHZCorrelation(shots int) (correlated int, total int, err error) {
	return runCorrelation(ghzCircuit(), shots)
}
