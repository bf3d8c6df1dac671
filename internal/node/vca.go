package node

import (
	"fmt"

	"github.com/viterin/vek/vek32"
)

// VCA scales its input by a gain. A modulated gain is a per-sample curve that
// replaces the static gain for one block.
type VCA struct {
	gain    float64
	gainMod []float32
}

func NewVCA(gain float64) (*VCA, error) {
	v := &VCA{}
	if err := v.Set(Gain, gain); err != nil {
		return nil, err
	}
	return v, nil
}

func (v *VCA) Params() []Param { return []Param{Gain} }

func (v *VCA) Get(p Param) float64 {
	if p == Gain {
		return v.gain
	}
	return 0
}

// Set clamps negative gains to 0.
func (v *VCA) Set(p Param, g float64) error {
	if p != Gain {
		return unknown(v, p)
	}
	if !finite(g) {
		return fmt.Errorf("%w: gain %g", ErrInvalidValue, g)
	}
	v.gain = max(g, 0)
	return nil
}

// Modulate installs a gain curve. The curve is clamped to >= 0 in place.
func (v *VCA) Modulate(p Param, ctl []float32) error {
	if p != Gain {
		return unknown(v, p)
	}
	v.gainMod = ctl
	return nil
}

func (v *VCA) Process(in, out []float32) {
	mod := v.gainMod
	v.gainMod = nil
	if in == nil {
		clear(out)
		return
	}
	n := len(out)
	if len(mod) >= n {
		mod = mod[:n]
		for i, g := range mod {
			if !(g > 0) {
				mod[i] = 0
			}
		}
		vek32.Mul_Into(out, in[:n], mod)
		return
	}
	copy(out, in[:n])
	vek32.MulNumber_Inplace(out, float32(v.gain))
}

func (v *VCA) Reset() {}
