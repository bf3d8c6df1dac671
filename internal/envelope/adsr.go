package envelope

import (
	"errors"
	"fmt"
	"math"
)

var ErrInvalidParams = errors.New("invalid envelope parameters")

type Stage int

const (
	Idle Stage = iota
	Attack
	Decay
	Sustain
	Release
	Done
)

func (s Stage) String() string {
	switch s {
	case Idle:
		return "idle"
	case Attack:
		return "attack"
	case Decay:
		return "decay"
	case Sustain:
		return "sustain"
	case Release:
		return "release"
	case Done:
		return "done"
	default:
		return fmt.Sprintf("stage(%d)", int(s))
	}
}

// Params holds stage times in seconds and the sustain level in [0, 1].
type Params struct {
	Attack  float64
	Decay   float64
	Sustain float64
	Release float64
}

func DefaultParams() Params {
	return Params{
		Attack:  0.01,
		Decay:   0.1,
		Sustain: 0.7,
		Release: 0.3,
	}
}

func (p Params) validate() error {
	for _, v := range []float64{p.Attack, p.Decay, p.Release} {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: stage times must be finite and >= 0 (got a=%g d=%g r=%g)", ErrInvalidParams, p.Attack, p.Decay, p.Release)
		}
	}
	if !(p.Sustain >= 0 && p.Sustain <= 1) {
		return fmt.Errorf("%w: sustain level %g outside [0, 1]", ErrInvalidParams, p.Sustain)
	}
	return nil
}

// ADSR is a linear attack-decay-sustain-release envelope. Every timed stage is
// a straight segment from the level at which the stage was entered to the
// stage target, so retriggering or releasing mid-stage never jumps.
type ADSR struct {
	sampleRate float64
	params     Params

	stage  Stage
	level  float64 // value of the next sample
	entry  float64
	target float64
	length int
	pos    int
}

func New(sampleRate int, p Params) (*ADSR, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("%w: sample rate must be positive", ErrInvalidParams)
	}
	if err := p.validate(); err != nil {
		return nil, err
	}
	return &ADSR{sampleRate: float64(sampleRate), params: p}, nil
}

func (e *ADSR) Params() Params { return e.params }

// SetParams replaces the stage times; the current segment keeps its length.
func (e *ADSR) SetParams(p Params) error {
	if err := p.validate(); err != nil {
		return err
	}
	e.params = p
	return nil
}

func (e *ADSR) Stage() Stage   { return e.stage }
func (e *ADSR) Level() float64 { return e.level }

// Finished reports whether the release has run to completion.
func (e *ADSR) Finished() bool { return e.stage == Done }

// Gated is always true: an ADSR holds its voice open until the release ends.
func (e *ADSR) Gated() bool { return true }

// ReleaseSamples is the number of samples a release takes.
func (e *ADSR) ReleaseSamples() int { return e.samples(e.params.Release) }

func (e *ADSR) TriggerOn() { e.enter(Attack) }

func (e *ADSR) TriggerOff() {
	if e.stage == Idle || e.stage == Done || e.stage == Release {
		return
	}
	e.enter(Release)
}

func (e *ADSR) Reset() {
	e.stage = Idle
	e.level = 0
	e.pos, e.length = 0, 0
}

func (e *ADSR) samples(sec float64) int {
	return int(math.Round(sec * e.sampleRate))
}

func (e *ADSR) enter(s Stage) {
	e.stage = s
	e.entry = e.level
	e.pos = 0
	switch s {
	case Attack:
		e.target, e.length = 1, e.samples(e.params.Attack)
	case Decay:
		e.target, e.length = e.params.Sustain, e.samples(e.params.Decay)
	case Release:
		e.target, e.length = 0, e.samples(e.params.Release)
	case Sustain:
		e.level = e.params.Sustain
		return
	default:
		e.level = 0
		return
	}
	if e.length <= 0 {
		e.finishStage()
	}
}

func (e *ADSR) finishStage() {
	e.level = e.target
	switch e.stage {
	case Attack:
		e.enter(Decay)
	case Decay:
		e.enter(Sustain)
	case Release:
		e.enter(Done)
	}
}

// Render writes len(dst) envelope samples. A block that crosses stage
// boundaries is evaluated segment by segment.
func (e *ADSR) Render(dst []float32) {
	i := 0
	for i < len(dst) {
		switch e.stage {
		case Attack, Decay, Release:
			n := e.length - e.pos
			if rem := len(dst) - i; n > rem {
				n = rem
			}
			slope := (e.target - e.entry) / float64(e.length)
			for k := 0; k < n; k++ {
				dst[i+k] = float32(e.entry + slope*float64(e.pos+k))
			}
			i += n
			e.pos += n
			if e.pos >= e.length {
				e.finishStage()
			} else {
				e.level = e.entry + slope*float64(e.pos)
			}
		default:
			v := float32(e.level)
			for ; i < len(dst); i++ {
				dst[i] = v
			}
		}
	}
}
