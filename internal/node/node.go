// Package node implements the stages of a voice's signal chain.
//
// Every node exposes a small closed set of modulatable parameters. How a
// control block combines with a parameter's base value is fixed per
// parameter:
//
//	Oscillator  freq       base + control, per sample
//	FM          freq       base + control, per sample
//	FM          index      replaced by control[0], per block
//	Filter      cutoff     replaced by control[0], per block
//	Filter      resonance  replaced by control[0], per block
//	VCA         gain       replaced by control, per sample
//
// A control block passed to Modulate applies to the next Process call only.
package node

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"
)

var (
	ErrUnknownParam = errors.New("unknown parameter")
	ErrInvalidValue = errors.New("invalid parameter value")
)

type Param int

const (
	Freq Param = iota
	Cutoff
	Resonance
	Gain
	Index
)

func (p Param) String() string {
	switch p {
	case Freq:
		return "freq"
	case Cutoff:
		return "cutoff"
	case Resonance:
		return "resonance"
	case Gain:
		return "gain"
	case Index:
		return "index"
	default:
		return fmt.Sprintf("param(%d)", int(p))
	}
}

func ParseParam(name string) (Param, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "freq", "frequency":
		return Freq, nil
	case "cutoff":
		return Cutoff, nil
	case "resonance", "q":
		return Resonance, nil
	case "gain":
		return Gain, nil
	case "index":
		return Index, nil
	}
	return 0, fmt.Errorf("%w %q", ErrUnknownParam, name)
}

// Node is one stage of a signal chain. in is nil for the first node.
type Node interface {
	Process(in, out []float32)
	Params() []Param
	Get(p Param) float64
	Set(p Param, v float64) error
	Modulate(p Param, ctl []float32) error
	Reset()
}

// Lookup resolves a parameter name against the parameters n exposes.
func Lookup(n Node, name string) (Param, error) {
	p, err := ParseParam(name)
	if err != nil {
		return 0, err
	}
	if !slices.Contains(n.Params(), p) {
		return 0, fmt.Errorf("%w %q on %T", ErrUnknownParam, name, n)
	}
	return p, nil
}

func unknown(n Node, p Param) error {
	return fmt.Errorf("%w %s on %T", ErrUnknownParam, p, n)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
