package effects

import "math"

// Limiter is a peak limiter: the envelope jumps to any louder sample and
// decays with the release time, and the gain keeps |out| <= ceiling.
type Limiter struct {
	ceiling float32
	release float32
	env     float32
}

func NewLimiter(sampleRate int, ceiling, releaseMs float32) *Limiter {
	if !(ceiling > 0) {
		ceiling = 1
	}
	return &Limiter{
		ceiling: ceiling,
		release: coefficient(releaseMs, float64(sampleRate)),
	}
}

func (l *Limiter) Process(block []float32) {
	for i, x := range block {
		a := float32(math.Abs(float64(x)))
		if a > l.env {
			l.env = a
		} else {
			l.env += l.release * (a - l.env)
		}
		if l.env > l.ceiling {
			block[i] = x * (l.ceiling / l.env)
		}
	}
}

func (l *Limiter) Reset() {
	l.env = 0
}
