package effects

import (
	"errors"
	"fmt"
	"strings"
)

var ErrUnknownEffect = errors.New("unknown effect")

// Effector processes a mono block in place.
type Effector interface {
	Process(block []float32)
	Reset()
}

// Chain applies a sequence of effects in order.
type Chain struct {
	effects []Effector
}

func NewChain(effects ...Effector) *Chain {
	return &Chain{effects: effects}
}

func (c *Chain) Process(block []float32) {
	for _, e := range c.effects {
		e.Process(block)
	}
}

func (c *Chain) Reset() {
	for _, e := range c.effects {
		e.Reset()
	}
}

func (c *Chain) Add(e Effector) {
	c.effects = append(c.effects, e)
}

func (c *Chain) Len() int { return len(c.effects) }

// Spec names an effect and its positional parameters. Missing parameters
// take the effect's defaults.
type Spec struct {
	Type   string    `yaml:"type"`
	Params []float64 `yaml:"params,omitempty"`
}

// Build creates one effect from its name and positional parameters:
//
//	delay      ms, feedback, wet
//	reverb     room, feedback, wet
//	chorus     ms, feedback, depth ms, rate Hz, wet
//	distortion pre gain, post gain, lpf Hz
//	compressor threshold dB, ratio, attack ms, release ms, makeup dB
//	limiter    ceiling, release ms
func Build(kind string, params []float64, sampleRate int) (Effector, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("effect sample rate %d must be positive", sampleRate)
	}
	getParam := func(idx int, def float64) float64 {
		if idx < len(params) {
			return params[idx]
		}
		return def
	}
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "delay":
		return NewDelay(sampleRate,
			getParam(0, 250),
			float32(getParam(1, 0.4)),
			float32(getParam(2, 0.3)),
		), nil
	case "reverb":
		return NewReverb(sampleRate,
			float32(getParam(0, 0.5)),
			float32(getParam(1, 0.7)),
			float32(getParam(2, 0.25)),
		), nil
	case "chorus":
		return NewChorus(sampleRate,
			float32(getParam(0, 15)),
			float32(getParam(1, 0.3)),
			float32(getParam(2, 3)),
			getParam(3, 1.5),
			float32(getParam(4, 0.4)),
		)
	case "dist", "distortion":
		return NewDistortion(sampleRate,
			float32(getParam(0, 4)),
			float32(getParam(1, 0.5)),
			float32(getParam(2, 8000)),
		), nil
	case "comp", "compressor":
		return NewCompressor(sampleRate,
			float32(getParam(0, -20)),
			float32(getParam(1, 4)),
			float32(getParam(2, 5)),
			float32(getParam(3, 100)),
			float32(getParam(4, 6)),
		), nil
	case "limit", "limiter":
		return NewLimiter(sampleRate,
			float32(getParam(0, 1)),
			float32(getParam(1, 50)),
		), nil
	}
	return nil, fmt.Errorf("%w %q", ErrUnknownEffect, kind)
}

// BuildChain builds effects in order. An empty list yields a nil chain.
func BuildChain(specs []Spec, sampleRate int) (*Chain, error) {
	if len(specs) == 0 {
		return nil, nil
	}
	chain := NewChain()
	for i, s := range specs {
		e, err := Build(s.Type, s.Params, sampleRate)
		if err != nil {
			return nil, fmt.Errorf("effect %d: %w", i, err)
		}
		chain.Add(e)
	}
	return chain, nil
}

func clamp(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
