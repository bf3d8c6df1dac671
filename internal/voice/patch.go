package voice

import (
	"github.com/cbegin/synth8-go/internal/envelope"
	"github.com/cbegin/synth8-go/internal/lfo"
	"github.com/cbegin/synth8-go/internal/wave"
)

// FMParams shapes an FM source: the modulator runs at Ratio times the note
// frequency and deviates the carrier phase by up to Index radians.
type FMParams struct {
	Ratio    float64
	Index    float64
	Feedback float64
}

// Patch describes a single-source voice: oscillator (or FM source when FM is
// set), optional low-pass, optional amplitude envelope and optional vibrato
// LFO, in that order.
type Patch struct {
	Waveform wave.Waveform
	FM       *FMParams
	Cutoff   float64 // 0 leaves the filter out
	Envelope *envelope.Params
	LFO      *lfo.Params
	HardSync bool
}

// KeyboardPatch is the sine keyboard instrument: 500 Hz low-pass, a soft
// envelope and a light 5 Hz vibrato.
func KeyboardPatch() Patch {
	return Patch{
		Waveform: wave.Sine,
		Cutoff:   500,
		Envelope: &envelope.Params{Attack: 0.05, Decay: 0.1, Sustain: 0.6, Release: 0.4},
		LFO:      &lfo.Params{Rate: 5, Depth: 2, Waveform: wave.Sine},
	}
}

// Build creates a voice playing freq.
func (p Patch) Build(sampleRate int, freq float64) (*Chain, error) {
	var opts []ChainOption
	if p.HardSync {
		opts = append(opts, WithHardSync())
	}
	c := NewChain(sampleRate, opts...)
	if p.FM != nil {
		if _, err := c.FM(freq, *p.FM, p.Waveform); err != nil {
			return nil, err
		}
	} else if _, err := c.Oscillator(freq, p.Waveform); err != nil {
		return nil, err
	}
	if p.Cutoff > 0 {
		if _, err := c.Lowpass(p.Cutoff); err != nil {
			return nil, err
		}
	}
	if p.Envelope != nil {
		if _, err := c.ADSR(*p.Envelope); err != nil {
			return nil, err
		}
	}
	if p.LFO != nil {
		if _, err := c.LFO(*p.LFO); err != nil {
			return nil, err
		}
	}
	return c, nil
}
