package voice

import (
	"github.com/cbegin/synth8-go/internal/envelope"
	"github.com/cbegin/synth8-go/internal/lfo"
	"github.com/cbegin/synth8-go/internal/node"
	"github.com/cbegin/synth8-go/internal/wave"
)

// Oscillator appends an oscillator running at the chain's sample rate.
func (c *Chain) Oscillator(freq float64, w wave.Waveform) (*node.Oscillator, error) {
	osc, err := node.NewOscillator(c.sampleRate, freq, w)
	if err != nil {
		return nil, err
	}
	c.Connect(osc)
	return osc, nil
}

// FM appends a two-operator FM source.
func (c *Chain) FM(freq float64, p FMParams, w wave.Waveform) (*node.FM, error) {
	f, err := node.NewFM(c.sampleRate, freq, p.Ratio, p.Index, p.Feedback, w)
	if err != nil {
		return nil, err
	}
	c.Connect(f)
	return f, nil
}

func (c *Chain) Lowpass(cutoff float64) (*node.Filter, error) {
	f, err := node.NewFilter(c.sampleRate, cutoff)
	if err != nil {
		return nil, err
	}
	c.Connect(f)
	return f, nil
}

func (c *Chain) Amp(gain float64) (*node.VCA, error) {
	v, err := node.NewVCA(gain)
	if err != nil {
		return nil, err
	}
	c.Connect(v)
	return v, nil
}

// ADSR adds an envelope driving the gain of the chain's final VCA. A VCA is
// appended when the chain does not already end in one.
func (c *Chain) ADSR(p envelope.Params) (*envelope.ADSR, error) {
	env, err := envelope.New(c.sampleRate, p)
	if err != nil {
		return nil, err
	}
	var amp *node.VCA
	if n := len(c.nodes); n > 0 {
		amp, _ = c.nodes[n-1].(*node.VCA)
	}
	if amp == nil {
		if amp, err = c.Amp(0); err != nil {
			return nil, err
		}
	}
	if err := c.Modulate(env, amp, "gain"); err != nil {
		return nil, err
	}
	return env, nil
}

// LFO adds a low-frequency oscillator bound to the frequency of the first
// oscillator or FM source in the chain.
func (c *Chain) LFO(p lfo.Params) (*lfo.LFO, error) {
	var osc node.Node
	for _, n := range c.nodes {
		switch n.(type) {
		case *node.Oscillator, *node.FM:
			osc = n
		}
		if osc != nil {
			break
		}
	}
	if osc == nil {
		return nil, ErrNoOscillator
	}
	l, err := lfo.New(c.sampleRate, p)
	if err != nil {
		return nil, err
	}
	if err := c.Modulate(l, osc, "freq"); err != nil {
		return nil, err
	}
	return l, nil
}
