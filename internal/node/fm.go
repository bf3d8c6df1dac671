package node

import (
	"fmt"
	"math"

	"github.com/viterin/vek/vek32"

	"github.com/cbegin/synth8-go/internal/wave"
)

// FM is a two-operator source: a sine modulator running at freq*ratio bends
// the phase of a carrier of any waveform. Like Oscillator it adds its input
// to its output.
type FM struct {
	sampleRate float64
	freq       float64
	ratio      float64
	index      float64
	feedback   float64
	waveform   wave.Waveform

	carPhase float64
	modPhase float64
	prevMod  float64

	freqMod  []float32
	indexMod []float32
}

// NewFM returns an FM source. index is the peak phase deviation in radians;
// feedback in [0, 1] feeds the modulator back into itself.
func NewFM(sampleRate int, freq, ratio, index, feedback float64, w wave.Waveform) (*FM, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("%w: sample rate %d", ErrInvalidValue, sampleRate)
	}
	if !w.Valid() {
		return nil, fmt.Errorf("%w: %v", wave.ErrUnknownWaveform, w)
	}
	if !(ratio > 0) || !finite(ratio) {
		return nil, fmt.Errorf("%w: ratio must be positive, got %g", ErrInvalidValue, ratio)
	}
	if !(feedback >= 0 && feedback <= 1) {
		return nil, fmt.Errorf("%w: feedback %g outside [0, 1]", ErrInvalidValue, feedback)
	}
	f := &FM{sampleRate: float64(sampleRate), ratio: ratio, feedback: feedback, waveform: w}
	if err := f.Set(Freq, freq); err != nil {
		return nil, err
	}
	if err := f.Set(Index, index); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *FM) Params() []Param { return []Param{Freq, Index} }

func (f *FM) Get(p Param) float64 {
	switch p {
	case Freq:
		return f.freq
	case Index:
		return f.index
	}
	return 0
}

func (f *FM) Set(p Param, v float64) error {
	switch p {
	case Freq:
		if !(v > 0) || !finite(v) {
			return fmt.Errorf("%w: freq must be positive, got %g", ErrInvalidValue, v)
		}
		f.freq = v
	case Index:
		if !(v >= 0) || !finite(v) {
			return fmt.Errorf("%w: index must be >= 0, got %g", ErrInvalidValue, v)
		}
		f.index = v
	default:
		return unknown(f, p)
	}
	return nil
}

func (f *FM) Modulate(p Param, ctl []float32) error {
	switch p {
	case Freq:
		f.freqMod = ctl
	case Index:
		f.indexMod = ctl
	default:
		return unknown(f, p)
	}
	return nil
}

func (f *FM) Process(in, out []float32) {
	index := f.index
	if len(f.indexMod) > 0 {
		index = math.Max(float64(f.indexMod[0]), 0)
	}
	mod := f.freqMod
	if len(mod) < len(out) {
		mod = nil
	}
	for i := range out {
		freq := f.freq
		if mod != nil {
			freq += float64(mod[i])
		}
		m := math.Sin(2*math.Pi*f.modPhase + f.feedback*f.prevMod*math.Pi)
		f.prevMod = m
		_, p := math.Modf(f.carPhase + index*m/(2*math.Pi))
		if p < 0 {
			p++
		}
		out[i] = float32(wave.Shape(f.waveform, p))
		f.carPhase = f.advance(f.carPhase, freq)
		f.modPhase = f.advance(f.modPhase, freq*f.ratio)
	}
	f.freqMod, f.indexMod = nil, nil
	if in != nil {
		vek32.Add_Inplace(out, in[:len(out)])
	}
}

func (f *FM) advance(phase, freq float64) float64 {
	freq = clamp(freq, wave.MinFreq, f.sampleRate)
	_, phase = math.Modf(phase + freq/f.sampleRate)
	return phase
}

// Reset restarts both operators.
func (f *FM) Reset() { f.carPhase, f.modPhase, f.prevMod = 0, 0, 0 }
