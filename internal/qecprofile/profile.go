// Package qecprofile implements QEC Profile arithmetic: the immutable
// resource/error-rate description of a logical qubit's error-correcting
// code at a given code distance.
package qecprofile

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/neuralground/qmk/internal/formula"
	"github.com/neuralground/qmk/internal/qmkerr"
)

// Family identifies a code family by its canonical tag.
type Family string

const (
	SurfaceCode Family = "surface_code"
	SHYPS       Family = "SHYPS"
	BaconShor   Family = "bacon_shor"
	QLDPC       Family = "QLDPC"
)

// Profile is an immutable QEC profile. Two profiles with equal fields
// are interchangeable; Profile values are shared freely across logical
// qubits.
type Profile struct {
	Family                 Family
	CodeDistance           int
	PhysicalQubitCount     int
	LogicalCycleTimeUs     float64
	PhysicalGateErrorRate  float64
	MeasurementErrorRate   float64
	IdleErrorRate          float64
	T1Us                   float64
	T2Us                   float64
	DecoderType            string
	DecoderCycleTimeUs     float64
	// ErrorThreshold is p_th in the logical-error-rate formula. Stored
	// per-profile (rather than hard-coded globally) so a future family
	// could carry a different threshold; every standard factory below
	// populates it with 0.01, matching the grounding source.
	ErrorThreshold float64
}

// Validate checks the QEC Profile invariant T2 <= 2*T1.
func (p Profile) Validate() error {
	if p.T2Us > 2*p.T1Us {
		return qmkerr.New(qmkerr.FormulaError, "invalid profile: T2 (%.3f) > 2*T1 (%.3f)", p.T2Us, 2*p.T1Us)
	}
	return nil
}

// LogicalErrorRate computes (p/p_th)^((d+1)/2) clamped to [0,1].
func (p Profile) LogicalErrorRate() float64 {
	pth := p.ErrorThreshold
	if pth <= 0 {
		pth = 0.01
	}
	pg := p.PhysicalGateErrorRate
	if pg >= pth {
		return 1.0
	}
	exp := float64(p.CodeDistance+1) / 2.0
	rate := math.Pow(pg/pth, exp)
	if rate < 0 {
		return 0
	}
	if rate > 1 {
		return 1
	}
	return rate
}

const defaultErrorThreshold = 0.01

// SurfaceCodeProfile builds a surface-code profile at distance d with
// the given physical gate error rate. physical = 2*d^2, cycle = 0.1*d.
func SurfaceCodeProfile(d int, gateError float64) Profile {
	return Profile{
		Family:                SurfaceCode,
		CodeDistance:          d,
		PhysicalQubitCount:    2 * d * d,
		LogicalCycleTimeUs:    0.1 * float64(d),
		PhysicalGateErrorRate: gateError,
		MeasurementErrorRate:  gateError * 10,
		IdleErrorRate:         gateError / 10,
		T1Us:                  100.0,
		T2Us:                  80.0,
		DecoderType:           "MWPM",
		DecoderCycleTimeUs:    0.1,
		ErrorThreshold:        defaultErrorThreshold,
	}
}

// SHYPSProfile builds a SHYPS profile at distance d.
// physical = floor(1.5*d^2), cycle = 0.12*d.
func SHYPSProfile(d int, gateError float64) Profile {
	return Profile{
		Family:                SHYPS,
		CodeDistance:          d,
		PhysicalQubitCount:    int(1.5 * float64(d) * float64(d)),
		LogicalCycleTimeUs:    0.12 * float64(d),
		PhysicalGateErrorRate: gateError,
		MeasurementErrorRate:  gateError * 10,
		IdleErrorRate:         gateError / 10,
		T1Us:                  100.0,
		T2Us:                  80.0,
		DecoderType:           "MWPM",
		DecoderCycleTimeUs:    0.12,
		ErrorThreshold:        defaultErrorThreshold,
	}
}

// BaconShorProfile builds a Bacon-Shor profile at distance d.
// physical = d^2, cycle = 0.08*d.
func BaconShorProfile(d int, gateError float64) Profile {
	return Profile{
		Family:                BaconShor,
		CodeDistance:          d,
		PhysicalQubitCount:    d * d,
		LogicalCycleTimeUs:    0.08 * float64(d),
		PhysicalGateErrorRate: gateError,
		MeasurementErrorRate:  gateError * 10,
		IdleErrorRate:         gateError / 10,
		T1Us:                  100.0,
		T2Us:                  80.0,
		DecoderType:           "gauge_fixing",
		DecoderCycleTimeUs:    0.08,
		ErrorThreshold:        defaultErrorThreshold,
	}
}

// QLDPCProfile builds a quantum-LDPC profile at distance d and encoding
// rate. physical = floor(d^2/rate), cycle = 0.15*d.
func QLDPCProfile(d int, gateError, rate float64) Profile {
	return Profile{
		Family:                QLDPC,
		CodeDistance:          d,
		PhysicalQubitCount:    int(float64(d) * float64(d) / rate),
		LogicalCycleTimeUs:    0.15 * float64(d),
		PhysicalGateErrorRate: gateError,
		MeasurementErrorRate:  gateError * 10,
		IdleErrorRate:         gateError / 10,
		T1Us:                  100.0,
		T2Us:                  80.0,
		DecoderType:           "BP",
		DecoderCycleTimeUs:    0.15,
		ErrorThreshold:        defaultErrorThreshold,
	}
}

const defaultGateError = 1e-3

// ParseProfileString parses "logical:<family>(d=<int>[, rate=<float>])"
// per §6, case-insensitive on family.
func ParseProfileString(s string) (Profile, error) {
	s = strings.TrimSpace(s)
	const prefix = "logical:"
	if !strings.HasPrefix(strings.ToLower(s), prefix) {
		return Profile{}, qmkerr.New(qmkerr.ParseError, "profile string %q missing %q prefix", s, prefix)
	}
	rest := s[len(prefix):]
	open := strings.IndexByte(rest, '(')
	if open < 0 || !strings.HasSuffix(rest, ")") {
		return Profile{}, qmkerr.New(qmkerr.ParseError, "malformed profile string %q", s)
	}
	familyTok := strings.TrimSpace(rest[:open])
	argsStr := rest[open+1 : len(rest)-1]

	d := -1
	rate := 0.1
	for _, part := range strings.Split(argsStr, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		kv := strings.SplitN(part, "=", 2)
		if len(kv) != 2 {
			return Profile{}, qmkerr.New(qmkerr.ParseError, "malformed profile argument %q", part)
		}
		key := strings.TrimSpace(kv[0])
		val := strings.TrimSpace(kv[1])
		switch key {
		case "d":
			n, err := strconv.Atoi(val)
			if err != nil {
				return Profile{}, qmkerr.New(qmkerr.ParseError, "invalid code distance %q", val)
			}
			d = n
		case "rate":
			f, err := strconv.ParseFloat(val, 64)
			if err != nil {
				return Profile{}, qmkerr.New(qmkerr.ParseError, "invalid rate %q", val)
			}
			rate = f
		default:
			return Profile{}, qmkerr.New(qmkerr.ParseError, "unknown profile argument %q", key)
		}
	}
	if d <= 0 {
		return Profile{}, qmkerr.New(qmkerr.ParseError, "profile string %q missing code distance", s)
	}

	switch strings.ToLower(familyTok) {
	case "surface_code", "surface":
		return SurfaceCodeProfile(d, defaultGateError), nil
	case "shyps":
		return SHYPSProfile(d, defaultGateError), nil
	case "bacon_shor":
		return BaconShorProfile(d, defaultGateError), nil
	case "qldpc":
		return QLDPCProfile(d, defaultGateError, rate), nil
	default:
		return Profile{}, qmkerr.New(qmkerr.ProfileUnknownFamily, "unknown code family %q", familyTok)
	}
}

// FormulaVariables is the fixed variable set the formula evaluator
// supports for profile construction, per §4.1.
type FormulaVariables struct {
	CodeDistance                 float64
	OneQubitGateTime             float64
	TwoQubitGateTime             float64
	OneQubitMeasurementTime      float64
	TwoQubitJointMeasurementTime float64
}

func (v FormulaVariables) context() formula.Context {
	return formula.Context{
		"codeDistance":                 v.CodeDistance,
		"oneQubitGateTime":              v.OneQubitGateTime,
		"twoQubitGateTime":              v.TwoQubitGateTime,
		"oneQubitMeasurementTime":       v.OneQubitMeasurementTime,
		"twoQubitJointMeasurementTime": v.TwoQubitJointMeasurementTime,
	}
}

// EvalFormula evaluates a profile-construction formula string against
// the fixed variable set, per §4.1.
func EvalFormula(expr string, vars FormulaVariables) (float64, error) {
	v, err := formula.EvalNumeric(expr, vars.context())
	if err != nil {
		return 0, qmkerr.Wrap(qmkerr.FormulaError, err)
	}
	return v, nil
}

func (p Profile) String() string {
	return fmt.Sprintf("logical:%s(d=%d)", p.Family, p.CodeDistance)
}
