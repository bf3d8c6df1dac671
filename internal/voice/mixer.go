package voice

import (
	"fmt"
	"math"
	"slices"

	"github.com/viterin/vek/vek32"
)

// Mixer plays several voices as one. The sum of the members that are sounding
// at the start of a block is scaled by gain/sqrt(k), which keeps the RMS level
// of k uncorrelated voices near that of one.
//
// Members that reach Removed are dropped. Once every member has been dropped
// the mixer itself is Removed; triggering it again brings the dropped members
// back.
type Mixer struct {
	sampleRate int
	gain       float64
	gate       gate

	voices  []Voice
	retired []Voice
	buf     []float32
}

func NewMixer(sampleRate int, gain float64, voices ...Voice) (*Mixer, error) {
	if math.IsNaN(gain) || math.IsInf(gain, 0) || gain < 0 {
		return nil, fmt.Errorf("mixer gain %g must be finite and >= 0", gain)
	}
	m := &Mixer{sampleRate: sampleRate, gain: gain}
	for _, v := range voices {
		if err := m.Add(v); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Mixer) SampleRate() int  { return m.sampleRate }
func (m *Mixer) State() GateState { return m.gate.load() }
func (m *Mixer) Len() int         { return len(m.voices) }

// Add appends a member. Members must share the mixer's sample rate.
func (m *Mixer) Add(v Voice) error {
	if v.SampleRate() != m.sampleRate {
		return fmt.Errorf("%w: member at %d Hz in %d Hz mixer", ErrSampleRateMismatch, v.SampleRate(), m.sampleRate)
	}
	m.voices = append(m.voices, v)
	return nil
}

// Remove drops a member and reports whether it was present.
func (m *Mixer) Remove(v Voice) bool {
	if i := slices.Index(m.voices, v); i >= 0 {
		m.voices = slices.Delete(m.voices, i, i+1)
		return true
	}
	if i := slices.Index(m.retired, v); i >= 0 {
		m.retired = slices.Delete(m.retired, i, i+1)
		return true
	}
	return false
}

func (m *Mixer) Validate() error {
	for i, v := range m.voices {
		if err := Validate(v); err != nil {
			return fmt.Errorf("mixer member %d: %w", i, err)
		}
	}
	return nil
}

func (m *Mixer) TriggerOn() {
	if m.gate.load() == Removed {
		m.voices = append(m.voices, m.retired...)
		m.retired = nil
	}
	m.gate.store(Active)
	for _, v := range m.voices {
		v.TriggerOn()
	}
}

func (m *Mixer) TriggerOff() {
	if m.gate.load() != Active {
		return
	}
	for _, v := range m.voices {
		v.TriggerOff()
	}
	m.gate.store(Releasing)
	m.settle()
}

func (m *Mixer) Render(dst []float32) {
	clear(dst)
	st := m.gate.load()
	if !st.Sounding() {
		return
	}
	m.buf = grow(m.buf, len(dst))
	k := 0
	for _, v := range m.voices {
		if !v.State().Sounding() {
			continue
		}
		k++
		v.Render(m.buf)
		vek32.Add_Inplace(dst, m.buf)
	}
	if k > 0 {
		vek32.MulNumber_Inplace(dst, float32(m.gain/math.Sqrt(float64(k))))
	}

	live := m.voices[:0]
	for _, v := range m.voices {
		if v.State() == Removed {
			m.retired = append(m.retired, v)
			continue
		}
		live = append(live, v)
	}
	clear(m.voices[len(live):])
	m.voices = live

	if st == Releasing {
		m.settle()
	}
}

// settle ends the release once no member is still sounding.
func (m *Mixer) settle() {
	for _, v := range m.voices {
		if v.State().Sounding() {
			return
		}
	}
	if len(m.voices) == 0 && len(m.retired) > 0 {
		m.gate.store(Removed)
		return
	}
	m.gate.store(Inactive)
}
