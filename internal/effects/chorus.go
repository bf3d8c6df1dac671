package effects

import (
	"github.com/cbegin/synth8-go/internal/lfo"
	"github.com/cbegin/synth8-go/internal/wave"
)

// Chorus is a delay line whose read position is swept by a sine LFO.
type Chorus struct {
	buf      []float32
	pos      int
	size     int
	sweep    *lfo.LFO // delay offset in samples
	feedback float32
	wet      float32
}

// NewChorus creates a chorus/flanger effect.
// delayMs: base delay time in ms (typically 5-30ms)
// feedback: feedback amount 0..0.9
// depthMs: modulation depth in ms
// rateHz: modulation rate in Hz (typically 0.1-5Hz)
// wet: wet/dry mix 0..1
func NewChorus(sampleRate int, delayMs, feedback, depthMs float32, rateHz float64, wet float32) (*Chorus, error) {
	baseSamples := int(float64(delayMs) * float64(sampleRate) / 1000.0)
	depthSamples := float64(depthMs) * float64(sampleRate) / 1000.0
	size := max(baseSamples+int(depthSamples)+2, 4)
	sweep, err := lfo.New(sampleRate, lfo.Params{
		Rate:     rateHz,
		Depth:    depthSamples,
		Center:   float64(size / 2),
		Waveform: wave.Sine,
	})
	if err != nil {
		return nil, err
	}
	return &Chorus{
		buf:      make([]float32, size),
		size:     size,
		sweep:    sweep,
		feedback: clamp(feedback, 0, 0.9),
		wet:      clamp(wet, 0, 1),
	}, nil
}

func (c *Chorus) Process(block []float32) {
	for i, x := range block {
		c.buf[c.pos] = x

		// fractional read behind the write head
		readPos := float32(c.pos) - float32(c.sweep.Sample())
		for readPos < 0 {
			readPos += float32(c.size)
		}
		idx := int(readPos) % c.size
		frac := readPos - float32(int(readPos))
		idx2 := idx + 1
		if idx2 >= c.size {
			idx2 = 0
		}
		del := c.buf[idx]*(1-frac) + c.buf[idx2]*frac

		c.buf[c.pos] += del * c.feedback
		c.pos++
		if c.pos >= c.size {
			c.pos = 0
		}
		block[i] = x*(1-c.wet) + del*c.wet
	}
}

func (c *Chorus) Reset() {
	clear(c.buf)
	c.pos = 0
	c.sweep.Reset()
}
