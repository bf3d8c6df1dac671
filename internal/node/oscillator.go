package node

import (
	"fmt"

	"github.com/viterin/vek/vek32"

	"github.com/cbegin/synth8-go/internal/wave"
)

// Oscillator is a signal source. When it sits after another node its output
// is added to its input, so consecutive oscillators layer.
type Oscillator struct {
	gen      *wave.Generator
	freq     float64
	waveform wave.Waveform
	freqMod  []float32
}

func NewOscillator(sampleRate int, freq float64, w wave.Waveform) (*Oscillator, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("%w: sample rate %d", ErrInvalidValue, sampleRate)
	}
	if !w.Valid() {
		return nil, fmt.Errorf("%w: %v", wave.ErrUnknownWaveform, w)
	}
	o := &Oscillator{gen: wave.NewGenerator(sampleRate), waveform: w}
	if err := o.Set(Freq, freq); err != nil {
		return nil, err
	}
	return o, nil
}

func (o *Oscillator) Waveform() wave.Waveform { return o.waveform }

func (o *Oscillator) Params() []Param { return []Param{Freq} }

func (o *Oscillator) Get(p Param) float64 {
	if p == Freq {
		return o.freq
	}
	return 0
}

func (o *Oscillator) Set(p Param, v float64) error {
	if p != Freq {
		return unknown(o, p)
	}
	if !(v > 0) || !finite(v) {
		return fmt.Errorf("%w: freq must be positive, got %g", ErrInvalidValue, v)
	}
	o.freq = v
	return nil
}

func (o *Oscillator) Modulate(p Param, ctl []float32) error {
	if p != Freq {
		return unknown(o, p)
	}
	o.freqMod = ctl
	return nil
}

func (o *Oscillator) Process(in, out []float32) {
	if mod := o.freqMod; len(mod) >= len(out) {
		for i := range out {
			out[i] = float32(o.gen.Next(o.waveform, o.freq+float64(mod[i])))
		}
	} else {
		o.gen.Fill(out, o.waveform, o.freq)
	}
	o.freqMod = nil
	if in != nil {
		vek32.Add_Inplace(out, in[:len(out)])
	}
}

// Reset restarts the phase.
func (o *Oscillator) Reset() { o.gen.Reset() }
