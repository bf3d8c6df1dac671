package node

import (
	"fmt"
	"math"
)

const (
	// MinCutoff is the lowest cutoff the filter runs at.
	MinCutoff = 10.0
	// DefaultResonance is the Butterworth Q.
	DefaultResonance = math.Sqrt2 / 2
	MinResonance     = 0.1
	MaxResonance     = 20.0
)

// Filter is a two-pole low-pass biquad. Coefficients are recomputed once per
// block; the sample and output history carries across blocks.
type Filter struct {
	sampleRate float64
	cutoff     float64
	resonance  float64
	cutoffMod  []float32
	resMod     []float32

	// coefficients normalized by a0, and the cutoff/q they were built for
	b0, b1, b2, a1, a2 float64
	coefCutoff         float64
	coefQ              float64

	x1, x2, y1, y2 float64
}

func NewFilter(sampleRate int, cutoff float64) (*Filter, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("%w: sample rate %d", ErrInvalidValue, sampleRate)
	}
	f := &Filter{sampleRate: float64(sampleRate), resonance: DefaultResonance}
	if err := f.Set(Cutoff, cutoff); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *Filter) Params() []Param { return []Param{Cutoff, Resonance} }

func (f *Filter) Get(p Param) float64 {
	switch p {
	case Cutoff:
		return f.cutoff
	case Resonance:
		return f.resonance
	}
	return 0
}

// Set clamps cutoff into [MinCutoff, Nyquist) and resonance into
// [MinResonance, MaxResonance].
func (f *Filter) Set(p Param, v float64) error {
	if !finite(v) {
		return fmt.Errorf("%w: %s = %g", ErrInvalidValue, p, v)
	}
	switch p {
	case Cutoff:
		f.cutoff = f.clampCutoff(v)
	case Resonance:
		f.resonance = clamp(v, MinResonance, MaxResonance)
	default:
		return unknown(f, p)
	}
	return nil
}

func (f *Filter) Modulate(p Param, ctl []float32) error {
	switch p {
	case Cutoff:
		f.cutoffMod = ctl
	case Resonance:
		f.resMod = ctl
	default:
		return unknown(f, p)
	}
	return nil
}

func (f *Filter) maxCutoff() float64 { return 0.499 * f.sampleRate }

func (f *Filter) clampCutoff(v float64) float64 {
	return clamp(v, MinCutoff, f.maxCutoff())
}

func (f *Filter) blockParams() (cutoff, q float64) {
	cutoff, q = f.cutoff, f.resonance
	if len(f.cutoffMod) > 0 {
		if v := float64(f.cutoffMod[0]); finite(v) {
			cutoff = f.clampCutoff(v)
		}
	}
	if len(f.resMod) > 0 {
		if v := float64(f.resMod[0]); finite(v) {
			q = clamp(v, MinResonance, MaxResonance)
		}
	}
	f.cutoffMod, f.resMod = nil, nil
	return cutoff, q
}

func (f *Filter) design(cutoff, q float64) {
	if cutoff == f.coefCutoff && q == f.coefQ {
		return
	}
	w0 := 2 * math.Pi * cutoff / f.sampleRate
	cosW, sinW := math.Cos(w0), math.Sin(w0)
	alpha := sinW / (2 * q)
	a0 := 1 + alpha
	f.b0 = (1 - cosW) / 2 / a0
	f.b1 = (1 - cosW) / a0
	f.b2 = f.b0
	f.a1 = -2 * cosW / a0
	f.a2 = (1 - alpha) / a0
	f.coefCutoff, f.coefQ = cutoff, q
}

func (f *Filter) Process(in, out []float32) {
	cutoff, q := f.blockParams()
	if in == nil {
		clear(out)
		return
	}
	f.design(cutoff, q)
	for i := range out {
		x := float64(in[i])
		y := f.b0*x + f.b1*f.x1 + f.b2*f.x2 - f.a1*f.y1 - f.a2*f.y2
		f.x2, f.x1 = f.x1, x
		f.y2, f.y1 = f.y1, y
		out[i] = float32(y)
	}
	if !finite(f.y1) || !finite(f.y2) {
		clear(out)
		f.Reset()
	}
}

// Reset clears the filter history.
func (f *Filter) Reset() {
	f.x1, f.x2, f.y1, f.y2 = 0, 0, 0, 0
}
