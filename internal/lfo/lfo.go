package lfo

import (
	"errors"
	"fmt"
	"math"

	"github.com/cbegin/synth8-go/internal/wave"
)

var ErrInvalidParams = errors.New("invalid lfo parameters")

// Params configures an LFO. The output swings over [Center-Depth, Center+Depth].
type Params struct {
	Rate      float64 // oscillation rate in Hz
	Depth     float64 // modulation depth (units depend on the target parameter)
	Center    float64 // offset added to every sample
	Waveform  wave.Waveform
	Retrigger bool // restart the phase on TriggerOn
}

func DefaultParams() Params {
	return Params{Rate: 5, Depth: 1, Waveform: wave.Sine}
}

// LFO is a free-running low-frequency oscillator used as a control signal.
// It runs as long as its voice renders and never reports completion.
type LFO struct {
	gen       *wave.Generator
	depth     float64
	center    float64
	rateHz    float64
	waveform  wave.Waveform
	retrigger bool
}

func New(sampleRate int, p Params) (*LFO, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("%w: sample rate must be positive", ErrInvalidParams)
	}
	l := &LFO{gen: wave.NewGenerator(sampleRate), retrigger: p.Retrigger, center: p.Center}
	if err := l.Set(p.Depth, p.Rate, p.Waveform); err != nil {
		return nil, err
	}
	return l, nil
}

// Set configures depth, rate and waveform.
func (l *LFO) Set(depth, rateHz float64, waveform wave.Waveform) error {
	if rateHz < 0 || math.IsNaN(rateHz) || math.IsInf(rateHz, 0) {
		return fmt.Errorf("%w: rate %g", ErrInvalidParams, rateHz)
	}
	if math.IsNaN(depth) || math.IsInf(depth, 0) {
		return fmt.Errorf("%w: depth %g", ErrInvalidParams, depth)
	}
	if !waveform.Valid() {
		return fmt.Errorf("%w: %v", wave.ErrUnknownWaveform, waveform)
	}
	l.depth = depth
	l.rateHz = rateHz
	l.waveform = waveform
	return nil
}

func (l *LFO) SetCenter(c float64) { l.center = c }

// Sample advances the LFO by one sample and returns Center + Depth*shape.
// A zero-rate LFO holds its phase.
func (l *LFO) Sample() float64 {
	if l.rateHz == 0 {
		return l.center + l.depth*wave.Shape(l.waveform, l.gen.Phase())
	}
	return l.center + l.depth*l.gen.Next(l.waveform, l.rateHz)
}

// Render fills dst with consecutive samples.
func (l *LFO) Render(dst []float32) {
	for i := range dst {
		dst[i] = float32(l.Sample())
	}
}

// Active returns true if the LFO has non-zero depth and rate.
func (l *LFO) Active() bool {
	return l.depth != 0 && l.rateHz != 0
}

func (l *LFO) TriggerOn() {
	if l.retrigger {
		l.Reset()
	}
}

func (l *LFO) TriggerOff() {}

func (l *LFO) Finished() bool { return false }

// Gated is false: an LFO never holds a voice open through a release.
func (l *LFO) Gated() bool { return false }

// Reset zeros the LFO phase.
func (l *LFO) Reset() {
	l.gen.Reset()
}
