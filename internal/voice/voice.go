package voice

import (
	"errors"
	"fmt"
	"math"
	"sync/atomic"
)

var (
	ErrEmptyChain         = errors.New("voice has no nodes")
	ErrTargetNotInChain   = errors.New("modulation target is not part of the voice chain")
	ErrDuplicateBinding   = errors.New("modulator already bound to this parameter")
	ErrNoOscillator       = errors.New("voice has no oscillator")
	ErrSampleRateMismatch = errors.New("sample rate mismatch")
)

// GateState is the lifecycle of a voice. Removed is terminal.
type GateState int32

const (
	Inactive GateState = iota
	Active
	Releasing
	Removed
)

func (s GateState) String() string {
	switch s {
	case Inactive:
		return "inactive"
	case Active:
		return "active"
	case Releasing:
		return "releasing"
	case Removed:
		return "removed"
	default:
		return fmt.Sprintf("gate(%d)", int32(s))
	}
}

// Sounding reports whether a voice in this state produces output.
func (s GateState) Sounding() bool { return s == Active || s == Releasing }

// Voice is an independently triggerable sound source. Render is called from
// the audio goroutine; TriggerOn and TriggerOff must be called from the same
// goroutine as Render once the voice is playing. State may be read from any
// goroutine.
type Voice interface {
	TriggerOn()
	TriggerOff()
	Render(dst []float32)
	State() GateState
	SampleRate() int
}

// Validator is implemented by voices that can check their configuration
// before they are registered.
type Validator interface {
	Validate() error
}

// Modulator is a control-signal source: *envelope.ADSR or *lfo.LFO.
type Modulator interface {
	Render(dst []float32)
	TriggerOn()
	TriggerOff()
	// Finished reports that a gated modulator has completed its release.
	Finished() bool
	// Gated reports whether the modulator holds its voice open until it
	// finishes.
	Gated() bool
}

type gate struct{ v atomic.Int32 }

func (g *gate) load() GateState   { return GateState(g.v.Load()) }
func (g *gate) store(s GateState) { g.v.Store(int32(s)) }

// Validate checks v if it implements Validator.
func Validate(v Voice) error {
	if val, ok := v.(Validator); ok {
		return val.Validate()
	}
	return nil
}

// finiteBlock reports whether every sample is a finite number.
func finiteBlock(b []float32) bool {
	for _, v := range b {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			return false
		}
	}
	return true
}

func grow(b []float32, n int) []float32 {
	if cap(b) < n {
		return make([]float32, n)
	}
	return b[:n]
}
