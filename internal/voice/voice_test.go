package voice

import (
	"errors"
	"math"
	"testing"

	"github.com/cbegin/synth8-go/internal/envelope"
	"github.com/cbegin/synth8-go/internal/lfo"
	"github.com/cbegin/synth8-go/internal/node"
	"github.com/cbegin/synth8-go/internal/wave"
)

const sr = 1000

// level is a voice that renders a constant while sounding.
type level struct {
	amp   float32
	state GateState
}

func (l *level) TriggerOn()       { l.state = Active }
func (l *level) TriggerOff()      { l.state = Inactive }
func (l *level) State() GateState { return l.state }
func (l *level) SampleRate() int  { return sr }
func (l *level) Render(dst []float32) {
	for i := range dst {
		if l.state.Sounding() {
			dst[i] = l.amp
		} else {
			dst[i] = 0
		}
	}
}

// fading is a constant voice whose release lasts a fixed number of blocks.
type fading struct {
	amp    float32
	blocks int
	left   int
	state  GateState
}

func (f *fading) TriggerOn() { f.state = Active }
func (f *fading) TriggerOff() {
	if f.state == Active {
		f.state, f.left = Releasing, f.blocks
	}
}
func (f *fading) State() GateState { return f.state }
func (f *fading) SampleRate() int  { return sr }
func (f *fading) Render(dst []float32) {
	for i := range dst {
		dst[i] = 0
		if f.state.Sounding() {
			dst[i] = f.amp
		}
	}
	if f.state == Releasing {
		if f.left--; f.left <= 0 {
			f.state = Removed
		}
	}
}

func sineChain(t *testing.T, freq float64) *Chain {
	t.Helper()
	c := NewChain(sr)
	if _, err := c.Oscillator(freq, wave.Sine); err != nil {
		t.Fatal(err)
	}
	return c
}

func TestChainValidate(t *testing.T) {
	if err := NewChain(sr).Validate(); !errors.Is(err, ErrEmptyChain) {
		t.Fatalf("empty chain: got %v", err)
	}
	if err := sineChain(t, 100).Validate(); err != nil {
		t.Fatal(err)
	}
}

func TestChainModulateErrors(t *testing.T) {
	c := sineChain(t, 100)
	stray, _ := node.NewVCA(1)
	env, _ := envelope.New(sr, envelope.DefaultParams())
	if err := c.Modulate(env, stray, "gain"); !errors.Is(err, ErrTargetNotInChain) {
		t.Errorf("stray target: got %v", err)
	}
	osc := c.Nodes()[0]
	if err := c.Modulate(env, osc, "cutoff"); !errors.Is(err, node.ErrUnknownParam) {
		t.Errorf("bad param: got %v", err)
	}
	if err := c.Modulate(env, osc, "freq"); err != nil {
		t.Fatal(err)
	}
	if err := c.Modulate(env, osc, "freq"); !errors.Is(err, ErrDuplicateBinding) {
		t.Errorf("duplicate binding: got %v", err)
	}
	if _, err := NewChain(sr).LFO(lfo.DefaultParams()); !errors.Is(err, ErrNoOscillator) {
		t.Errorf("LFO without oscillator: got %v", err)
	}
}

func TestChainSilentUntilTriggered(t *testing.T) {
	c := sineChain(t, 100)
	buf := make([]float32, 64)
	buf[3] = 1
	c.Render(buf)
	for i, v := range buf {
		if v != 0 {
			t.Fatalf("inactive voice sample %d = %f", i, v)
		}
	}
	c.TriggerOn()
	if c.State() != Active {
		t.Fatalf("state %v after TriggerOn", c.State())
	}
	c.Render(buf)
	if buf[2] < 0.9 {
		t.Fatalf("active voice sample 2 = %f, want ~0.95", buf[2])
	}
}

func TestChainWithoutEnvelopeStopsOnRelease(t *testing.T) {
	c := sineChain(t, 100)
	c.TriggerOn()
	c.TriggerOff()
	if c.State() != Inactive {
		t.Fatalf("state %v, want inactive", c.State())
	}
	buf := make([]float32, 32)
	for i := 0; i < 50; i++ {
		c.Render(buf)
	}
	if c.State() != Inactive {
		t.Fatalf("voice without envelope must never be removed, state %v", c.State())
	}
	c.TriggerOn()
	if c.State() != Active {
		t.Fatalf("retrigger: state %v", c.State())
	}
}

func TestChainEnvelopeReleaseRemovesVoice(t *testing.T) {
	c := sineChain(t, 50)
	env, err := c.ADSR(envelope.Params{Attack: 0.005, Decay: 0.005, Sustain: 0.5, Release: 0.02})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := c.Nodes()[1].(*node.VCA); !ok {
		t.Fatalf("ADSR should append a VCA, nodes %T", c.Nodes())
	}
	const block = 8
	buf := make([]float32, block)
	c.TriggerOn()
	for i := 0; i < 10; i++ {
		c.Render(buf)
	}
	c.TriggerOff()
	c.TriggerOff()
	if c.State() != Releasing {
		t.Fatalf("state %v, want releasing", c.State())
	}
	releaseBlocks := (env.ReleaseSamples() + block - 1) / block
	blocks := 0
	for c.State() != Removed {
		c.Render(buf)
		blocks++
		if blocks > releaseBlocks+1 {
			t.Fatalf("voice not removed %d blocks after release", blocks)
		}
	}
	c.TriggerOn()
	if c.State() != Removed {
		t.Fatal("removed voice must not retrigger")
	}
	buf[0] = 1
	c.Render(buf)
	if buf[0] != 0 {
		t.Fatal("removed voice must render silence")
	}
}

func TestChainSumsModulatorsOnOneParameter(t *testing.T) {
	ref := sineChain(t, 440)
	c := sineChain(t, 400)
	osc := c.Nodes()[0]
	for i := 0; i < 2; i++ {
		l, err := lfo.New(sr, lfo.Params{Rate: 0, Depth: 0, Center: 20, Waveform: wave.Sine})
		if err != nil {
			t.Fatal(err)
		}
		if err := c.Modulate(l, osc, "freq"); err != nil {
			t.Fatal(err)
		}
	}
	ref.TriggerOn()
	c.TriggerOn()
	want := make([]float32, 100)
	got := make([]float32, 100)
	ref.Render(want)
	c.Render(got)
	for i := range want {
		if math.Abs(float64(got[i]-want[i])) > 1e-4 {
			t.Fatalf("sample %d: got %f, want %f", i, got[i], want[i])
		}
	}
}

func TestChainHardSync(t *testing.T) {
	free := sineChain(t, 30)
	synced := NewChain(sr, WithHardSync())
	_, _ = synced.Oscillator(30, wave.Sine)
	a := make([]float32, 7)
	b := make([]float32, 7)
	for _, c := range []*Chain{free, synced} {
		c.TriggerOn()
		c.Render(a)
		c.TriggerOn()
	}
	free.Render(a)
	synced.Render(b)
	if b[0] != 0 {
		t.Errorf("hard-synced voice should restart at phase 0, got %f", b[0])
	}
	if a[0] == 0 {
		t.Errorf("free-running voice should keep its phase")
	}
}

func TestMixerScalesBySqrtOfSoundingMembers(t *testing.T) {
	for _, k := range []int{1, 2, 3, 8} {
		var members []Voice
		for i := 0; i < k; i++ {
			members = append(members, &level{amp: 1})
		}
		m, err := NewMixer(sr, 1, members...)
		if err != nil {
			t.Fatal(err)
		}
		m.TriggerOn()
		buf := make([]float32, 16)
		m.Render(buf)
		want := math.Sqrt(float64(k))
		for i, v := range buf {
			if math.Abs(float64(v)-want) > 1e-5 {
				t.Fatalf("k=%d sample %d: got %f, want %f", k, i, v, want)
			}
		}
	}
}

func TestMixerCountsOnlySoundingMembers(t *testing.T) {
	a, b := &level{amp: 1}, &level{amp: 1}
	m, _ := NewMixer(sr, 2, a, b)
	m.TriggerOn()
	b.state = Inactive
	buf := make([]float32, 4)
	m.Render(buf)
	if buf[0] != 2 {
		t.Fatalf("one sounding member at gain 2: got %f", buf[0])
	}
}

func TestMixerEmptyIsSilent(t *testing.T) {
	m, _ := NewMixer(sr, 1)
	m.TriggerOn()
	buf := []float32{1, 1, 1}
	m.Render(buf)
	for _, v := range buf {
		if v != 0 {
			t.Fatal("empty mixer should render zeros")
		}
	}
}

func TestMixerRemovedAfterAllMembersRelease(t *testing.T) {
	var members []Voice
	for _, f := range []float64{100, 150, 200} {
		c := sineChain(t, f)
		if _, err := c.ADSR(envelope.Params{Release: 0.01, Sustain: 1}); err != nil {
			t.Fatal(err)
		}
		members = append(members, c)
	}
	m, _ := NewMixer(sr, 1, members...)
	buf := make([]float32, 8)
	m.TriggerOn()
	m.Render(buf)
	m.TriggerOff()
	if m.State() != Releasing {
		t.Fatalf("state %v, want releasing", m.State())
	}
	for i := 0; i < 10 && m.State() != Removed; i++ {
		m.Render(buf)
	}
	if m.State() != Removed || m.Len() != 0 {
		t.Fatalf("state %v with %d members, want removed and empty", m.State(), m.Len())
	}
}

func TestMixerWithoutEnvelopesReturnsToInactive(t *testing.T) {
	m, _ := NewMixer(sr, 1, sineChain(t, 100), sineChain(t, 200))
	m.TriggerOn()
	m.TriggerOff()
	if m.State() != Inactive || m.Len() != 2 {
		t.Fatalf("state %v len %d", m.State(), m.Len())
	}
}

func TestMixerRejectsSampleRateMismatch(t *testing.T) {
	m, _ := NewMixer(sr, 1)
	if err := m.Add(NewChain(sr * 2)); !errors.Is(err, ErrSampleRateMismatch) {
		t.Fatalf("got %v", err)
	}
	if _, err := NewMixer(sr, -1); err == nil {
		t.Fatal("negative gain accepted")
	}
	if err := Validate(mustMixer(t, NewChain(sr))); !errors.Is(err, ErrEmptyChain) {
		t.Fatalf("mixer validation should surface member errors, got %v", err)
	}
}

func mustMixer(t *testing.T, voices ...Voice) *Mixer {
	t.Helper()
	m, err := NewMixer(sr, 1, voices...)
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func TestKeyboardPatchBuild(t *testing.T) {
	c, err := KeyboardPatch().Build(sr, 261.63)
	if err != nil {
		t.Fatal(err)
	}
	nodes := c.Nodes()
	if len(nodes) != 3 {
		t.Fatalf("want oscillator, filter, vca; got %T", nodes)
	}
	if _, ok := nodes[1].(*node.Filter); !ok {
		t.Errorf("second node %T, want filter", nodes[1])
	}
	if len(c.Modulators()) != 2 {
		t.Errorf("want envelope and lfo, got %d modulators", len(c.Modulators()))
	}
	if _, err := (Patch{Waveform: wave.Sine}).Build(sr, 0); !errors.Is(err, node.ErrInvalidValue) {
		t.Errorf("zero frequency: got %v", err)
	}
}

func TestFMPatchBuild(t *testing.T) {
	p := KeyboardPatch()
	p.FM = &FMParams{Ratio: 2, Index: 1.6}
	c, err := p.Build(sr, 220)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := c.Nodes()[0].(*node.FM); !ok {
		t.Fatalf("first node %T, want FM source", c.Nodes()[0])
	}
	if len(c.Modulators()) != 2 {
		t.Fatalf("vibrato did not bind to the FM source: %d modulators", len(c.Modulators()))
	}
	c.TriggerOn()
	buf := make([]float32, 256)
	c.Render(buf)
	for i, v := range buf {
		if math.IsNaN(float64(v)) {
			t.Fatalf("sample %d is NaN", i)
		}
	}
}

func TestNestedMixers(t *testing.T) {
	a, b := &fading{amp: 1, blocks: 1}, &fading{amp: 1, blocks: 1}
	c := &fading{amp: 1, blocks: 2}
	inner := mustMixer(t, a, b)
	outer := mustMixer(t, inner, c)
	want := (math.Sqrt2 + 1) / math.Sqrt2

	buf := make([]float32, 4)
	outer.TriggerOn()
	outer.Render(buf)
	if math.Abs(float64(buf[0])-want) > 1e-5 {
		t.Fatalf("nested sum %f, want %f", buf[0], want)
	}

	outer.TriggerOff()
	outer.Render(buf)
	if inner.State() != Removed || inner.Len() != 0 {
		t.Fatalf("inner: state %v len %d, want removed and empty", inner.State(), inner.Len())
	}
	if outer.State() != Releasing || outer.Len() != 1 {
		t.Fatalf("outer after first release block: state %v len %d", outer.State(), outer.Len())
	}
	outer.Render(buf)
	if outer.State() != Removed || outer.Len() != 0 {
		t.Fatalf("outer: state %v len %d, want removed and empty", outer.State(), outer.Len())
	}

	// Triggering the removed mixer brings every member back.
	outer.TriggerOn()
	outer.Render(buf)
	if outer.Len() != 2 || inner.Len() != 2 || math.Abs(float64(buf[0])-want) > 1e-5 {
		t.Fatalf("retriggered: outer len %d inner len %d sample %f", outer.Len(), inner.Len(), buf[0])
	}
}

func TestChainRetriggerAfterRemoved(t *testing.T) {
	c := sineChain(t, 100)
	if _, err := c.ADSR(envelope.Params{Sustain: 1, Release: 0.01}); err != nil {
		t.Fatal(err)
	}
	buf := make([]float32, 8)
	c.TriggerOn()
	c.Render(buf)
	c.TriggerOff()
	for i := 0; i < 10 && c.State() != Removed; i++ {
		c.Render(buf)
	}
	if c.State() != Removed {
		t.Fatalf("state %v, want removed", c.State())
	}
	c.TriggerOn()
	if c.State() != Active {
		t.Fatalf("state %v after retrigger, want active", c.State())
	}
	c.Render(buf)
	peak := float32(0)
	for _, v := range buf {
		peak = max(peak, v, -v)
	}
	if peak < 0.5 {
		t.Fatalf("retriggered voice silent: %v", buf)
	}
}
