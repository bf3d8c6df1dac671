package lfo

import (
	"errors"
	"math"
	"testing"

	"github.com/cbegin/synth8-go/internal/wave"
)

func newLFO(t *testing.T, sr int, p Params) *LFO {
	t.Helper()
	l, err := New(sr, p)
	if err != nil {
		t.Fatalf("new lfo: %v", err)
	}
	return l
}

func TestLFOTriangleBasicShape(t *testing.T) {
	l := newLFO(t, 100, Params{Rate: 1, Depth: 1, Waveform: wave.Triangle})

	samples := make([]float32, 100)
	l.Render(samples)

	// At phase 0, triangle should be +depth
	if math.Abs(float64(samples[0])-1.0) > 0.05 {
		t.Errorf("triangle at phase 0: got %f, want 1.0", samples[0])
	}
	// At phase 0.25 (sample 25), should be ~0
	if math.Abs(float64(samples[25])) > 0.05 {
		t.Errorf("triangle at phase 0.25: got %f, want ~0", samples[25])
	}
	// At phase 0.5 (sample 50), should be -1.0
	if math.Abs(float64(samples[50])+1.0) > 0.05 {
		t.Errorf("triangle at phase 0.5: got %f, want -1.0", samples[50])
	}
}

func TestLFOSquareShape(t *testing.T) {
	l := newLFO(t, 100, Params{Rate: 1, Depth: 2, Waveform: wave.Square})

	v := l.Sample()
	if math.Abs(v-2.0) > 0.01 {
		t.Errorf("square first half: got %f, want 2.0", v)
	}
	for i := 1; i < 60; i++ {
		l.Sample()
	}
	v = l.Sample()
	if math.Abs(v-(-2.0)) > 0.01 {
		t.Errorf("square second half: got %f, want -2.0", v)
	}
}

func TestLFOCenterOffsetsRange(t *testing.T) {
	l := newLFO(t, 1000, Params{Rate: 5, Depth: 0.25, Center: 0.5, Waveform: wave.Sine})
	buf := make([]float32, 1000)
	l.Render(buf)
	lo, hi := float32(1), float32(0)
	for _, v := range buf {
		lo = min(lo, v)
		hi = max(hi, v)
	}
	if math.Abs(float64(lo)-0.25) > 0.01 || math.Abs(float64(hi)-0.75) > 0.01 {
		t.Errorf("range = [%f, %f], want [0.25, 0.75]", lo, hi)
	}
}

func TestLFOZeroDepthReturnsCenter(t *testing.T) {
	l := newLFO(t, 44100, Params{Rate: 5, Center: 3, Waveform: wave.Triangle})
	if v := l.Sample(); v != 3 {
		t.Errorf("zero depth should return the center, got %f", v)
	}
}

func TestLFOActive(t *testing.T) {
	l := newLFO(t, 44100, Params{})
	if l.Active() {
		t.Error("default LFO should not be active")
	}
	if err := l.Set(1.0, 5.0, wave.Triangle); err != nil {
		t.Fatal(err)
	}
	if !l.Active() {
		t.Error("configured LFO should be active")
	}
	_ = l.Set(0, 5.0, wave.Triangle)
	if l.Active() {
		t.Error("zero-depth LFO should not be active")
	}
}

func TestLFORetrigger(t *testing.T) {
	free := newLFO(t, 100, Params{Rate: 1, Depth: 1, Waveform: wave.Saw})
	sync := newLFO(t, 100, Params{Rate: 1, Depth: 1, Waveform: wave.Saw, Retrigger: true})
	buf := make([]float32, 30)
	free.Render(buf)
	sync.Render(buf)
	free.TriggerOn()
	sync.TriggerOn()
	if v := sync.Sample(); math.Abs(v+1) > 1e-9 {
		t.Errorf("retriggered saw should restart at -1, got %f", v)
	}
	if v := free.Sample(); math.Abs(v+1) < 0.1 {
		t.Errorf("free-running LFO should not restart, got %f", v)
	}
	if free.Finished() || free.Gated() {
		t.Error("LFO must never finish or gate a voice")
	}
}

func TestLFOInvalidParams(t *testing.T) {
	if _, err := New(44100, Params{Rate: -1}); !errors.Is(err, ErrInvalidParams) {
		t.Errorf("negative rate: got %v", err)
	}
	if _, err := New(44100, Params{Rate: 1, Waveform: wave.Waveform(42)}); !errors.Is(err, wave.ErrUnknownWaveform) {
		t.Errorf("bad waveform: got %v", err)
	}
	if _, err := New(0, DefaultParams()); !errors.Is(err, ErrInvalidParams) {
		t.Errorf("zero sample rate: got %v", err)
	}
}
