package wave

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

const twoPi = math.Pi * 2

// MinFreq is the frequency used in place of non-positive or NaN frequencies.
const MinFreq = 1e-3

var ErrUnknownWaveform = errors.New("unknown waveform")

type Waveform int

const (
	Sine Waveform = iota
	Square
	Saw
	Triangle
)

func (w Waveform) String() string {
	switch w {
	case Sine:
		return "sine"
	case Square:
		return "square"
	case Saw:
		return "saw"
	case Triangle:
		return "triangle"
	default:
		return fmt.Sprintf("waveform(%d)", int(w))
	}
}

// ParseWaveform maps a waveform name to its Waveform.
func ParseWaveform(name string) (Waveform, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "sine", "sin":
		return Sine, nil
	case "square", "sqr":
		return Square, nil
	case "saw", "sawtooth":
		return Saw, nil
	case "triangle", "tri":
		return Triangle, nil
	}
	return 0, fmt.Errorf("%w %q (expected sine|square|saw|triangle)", ErrUnknownWaveform, name)
}

// Valid reports whether w is one of the enumerated waveforms.
func (w Waveform) Valid() bool {
	return w >= Sine && w <= Triangle
}

// Shape evaluates the waveform at phase p in [0, 1). The result is in [-1, 1].
func Shape(w Waveform, p float64) float64 {
	switch w {
	case Square:
		if p < 0.5 {
			return 1
		}
		return -1
	case Saw:
		return 2*p - 1
	case Triangle:
		return 4*math.Abs(p-0.5) - 1
	default:
		return math.Sin(twoPi * p)
	}
}

// Generator is a phase accumulator. The phase survives across calls, so a
// signal rendered in several blocks is identical to one rendered in a single
// block of the combined length.
type Generator struct {
	sampleRate float64
	phase      float64
}

func NewGenerator(sampleRate int) *Generator {
	return &Generator{sampleRate: float64(sampleRate)}
}

// Next returns the waveform at the current phase and advances it by
// freq/sampleRate.
func (g *Generator) Next(w Waveform, freq float64) float64 {
	v := Shape(w, g.phase)
	g.advance(freq)
	return v
}

// Fill renders len(dst) samples at a constant frequency.
func (g *Generator) Fill(dst []float32, w Waveform, freq float64) {
	for i := range dst {
		dst[i] = float32(Shape(w, g.phase))
		g.advance(freq)
	}
}

func (g *Generator) advance(freq float64) {
	if !(freq > MinFreq) {
		freq = MinFreq
	} else if freq > g.sampleRate {
		freq = g.sampleRate
	}
	_, g.phase = math.Modf(g.phase + freq/g.sampleRate)
}

func (g *Generator) Phase() float64 { return g.phase }

// SetPhase sets the phase, wrapped into [0, 1).
func (g *Generator) SetPhase(p float64) {
	_, p = math.Modf(p)
	if p < 0 {
		p++
	}
	g.phase = p
}

func (g *Generator) Reset() { g.phase = 0 }

func (g *Generator) SampleRate() int { return int(g.sampleRate) }
