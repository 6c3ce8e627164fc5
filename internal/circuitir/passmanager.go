package circuitir

import (
	"fmt"
	"sync"
)

// Metrics is the per-pass reporting shape (§4.8).
type Metrics struct {
	GatesRemoved    int
	GatesAdded      int
	SwapGatesAdded  int
	CnotRemoved     int
	TGatesRemoved   int
	PatternsMatched int
	ExecutionTimeMs float64
	Custom          map[string]any
}

// Pass is a pure Circuit -> Circuit transform plus a metrics
// side-channel (§4.8).
type Pass interface {
	Name() string
	ShouldRun(c *Circuit) bool
	Run(c *Circuit) (*Circuit, Metrics)
}

// PassFactory constructs a fresh Pass instance, mirroring the
// teacher's RunnerFactory (qc/simulator/registry.go).
type PassFactory func() Pass

// PassRegistry manages named pass factories, thread-safe for
// concurrent registration/creation. Adapted from the teacher's
// RunnerRegistry (qc/simulator/registry.go), generalized from
// OneShotRunner factories to optimizer Pass factories.
type PassRegistry struct {
	mu        sync.RWMutex
	factories map[string]PassFactory
}

// NewPassRegistry constructs an empty registry.
func NewPassRegistry() *PassRegistry {
	return &PassRegistry{factories: make(map[string]PassFactory)}
}

// Register adds a pass factory under name. Errors if name is empty,
// factory is nil, or name is already registered.
func (r *PassRegistry) Register(name string, factory PassFactory) error {
	if name == "" {
		return fmt.Errorf("pass name cannot be empty")
	}
	if factory == nil {
		return fmt.Errorf("pass factory cannot be nil")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.factories[name]; exists {
		return fmt.Errorf("pass %q is already registered", name)
	}
	r.factories[name] = factory
	return nil
}

// MustRegister is like Register but panics on failure, for use in
// init() functions where a registration failure is fatal.
func (r *PassRegistry) MustRegister(name string, factory PassFactory) {
	if err := r.Register(name, factory); err != nil {
		panic(fmt.Sprintf("failed to register pass %q: %v", name, err))
	}
}

// Create instantiates the pass registered under name.
func (r *PassRegistry) Create(name string) (Pass, error) {
	r.mu.RLock()
	factory, exists := r.factories[name]
	r.mu.RUnlock()
	if !exists {
		return nil, fmt.Errorf("unknown pass: %q", name)
	}
	pass := factory()
	if pass == nil {
		return nil, fmt.Errorf("pass factory for %q returned nil", name)
	}
	return pass, nil
}

// ListPasses returns all registered pass names.
func (r *PassRegistry) ListPasses() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	return names
}

var defaultRegistry = NewPassRegistry()

// RegisterPass registers a pass factory with the default registry.
func RegisterPass(name string, factory PassFactory) error {
	return defaultRegistry.Register(name, factory)
}

// MustRegisterPass is like RegisterPass but panics on failure.
func MustRegisterPass(name string, factory PassFactory) {
	defaultRegistry.MustRegister(name, factory)
}

// DefaultRegistry returns the package-level default pass registry.
func DefaultRegistry() *PassRegistry { return defaultRegistry }

// OptimizationLevel selects a preset pass sequence.
type OptimizationLevel string

const (
	LevelNone       OptimizationLevel = "None"
	LevelBasic      OptimizationLevel = "Basic"
	LevelStandard   OptimizationLevel = "Standard"
	LevelAggressive OptimizationLevel = "Aggressive"
)

// PassSequence returns the ordered pass names a level runs.
func PassSequence(level OptimizationLevel) []string {
	switch level {
	case LevelBasic:
		return []string{"gate_cancellation", "gate_fusion"}
	case LevelStandard:
		return []string{
			"gate_cancellation", "gate_commutation", "gate_fusion",
			"measurement_canonicalization", "template_matching",
		}
	case LevelAggressive:
		return []string{
			"gate_cancellation", "gate_commutation", "gate_fusion",
			"measurement_canonicalization", "template_matching",
			"measurement_deferral", "clifford_t_optimization", "swap_insertion",
		}
	default:
		return nil
	}
}

// PassManager runs a configured sequence of passes over a Circuit,
// aggregating per-pass metrics.
type PassManager struct {
	registry *PassRegistry
	names    []string
}

// NewPassManager builds a manager that runs the named passes, in
// order, resolved against registry.
func NewPassManager(registry *PassRegistry, names ...string) *PassManager {
	return &PassManager{registry: registry, names: names}
}

// ForLevel builds a manager running registry's preset sequence for level.
func ForLevel(registry *PassRegistry, level OptimizationLevel) *PassManager {
	return NewPassManager(registry, PassSequence(level)...)
}

// Report is the pass manager's aggregate run result.
type Report struct {
	PerPass map[string]Metrics
	Total   Metrics
}

// Run executes the manager's configured passes in sequence over c,
// returning the final Circuit and an aggregated Report. ShouldRun is a
// cheap pre-check a caller may use to skip a pass up front; Run itself
// always calls every configured pass, since a pass whose heuristic does
// not hold is expected to return its input unchanged with zeroed
// metrics rather than be omitted from the report.
func (m *PassManager) Run(c *Circuit) (*Circuit, Report, error) {
	report := Report{PerPass: make(map[string]Metrics, len(m.names))}
	current := c
	for _, name := range m.names {
		pass, err := m.registry.Create(name)
		if err != nil {
			return nil, report, err
		}
		next, metrics := pass.Run(current)
		report.PerPass[name] = metrics
		report.Total.GatesRemoved += metrics.GatesRemoved
		report.Total.GatesAdded += metrics.GatesAdded
		report.Total.SwapGatesAdded += metrics.SwapGatesAdded
		report.Total.CnotRemoved += metrics.CnotRemoved
		report.Total.TGatesRemoved += metrics.TGatesRemoved
		report.Total.PatternsMatched += metrics.PatternsMatched
		report.Total.ExecutionTimeMs += metrics.ExecutionTimeMs
		current = next
	}
	return current, report, nil
}
