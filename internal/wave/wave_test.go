package wave

import (
	"errors"
	"math"
	"testing"
)

func TestBlocksMatchSingleRender(t *testing.T) {
	for _, w := range []Waveform{Sine, Square, Saw, Triangle} {
		for _, freq := range []float64{27.5, 440, 1234.5, 9000} {
			t.Run(w.String(), func(t *testing.T) {
				const n, k = 64, 7
				whole := make([]float32, n*k)
				NewGenerator(48000).Fill(whole, w, freq)

				g := NewGenerator(48000)
				for b := 0; b < k; b++ {
					block := make([]float32, n)
					g.Fill(block, w, freq)
					for i, v := range block {
						if v != whole[b*n+i] {
							t.Fatalf("block %d sample %d: got %f, want %f", b, i, v, whole[b*n+i])
						}
					}
				}
			})
		}
	}
}

func TestShapes(t *testing.T) {
	cases := []struct {
		w     Waveform
		phase float64
		want  float64
	}{
		{Sine, 0, 0},
		{Sine, 0.25, 1},
		{Sine, 0.75, -1},
		{Square, 0, 1},
		{Square, 0.49, 1},
		{Square, 0.5, -1},
		{Saw, 0, -1},
		{Saw, 0.5, 0},
		{Saw, 0.75, 0.5},
		{Triangle, 0, 1},
		{Triangle, 0.5, -1},
		{Triangle, 0.25, 0},
	}
	for _, tc := range cases {
		if got := Shape(tc.w, tc.phase); math.Abs(got-tc.want) > 1e-9 {
			t.Errorf("%s at %.2f: got %f, want %f", tc.w, tc.phase, got, tc.want)
		}
	}
}

func TestOutputRange(t *testing.T) {
	for _, w := range []Waveform{Sine, Square, Saw, Triangle} {
		buf := make([]float32, 4800)
		NewGenerator(48000).Fill(buf, w, 333.3)
		for i, v := range buf {
			if v < -1 || v > 1 {
				t.Fatalf("%s sample %d out of range: %f", w, i, v)
			}
		}
	}
}

func TestNonPositiveFrequencyIsClamped(t *testing.T) {
	for _, freq := range []float64{0, -100, math.NaN(), math.Inf(1)} {
		g := NewGenerator(44100)
		buf := make([]float32, 128)
		g.Fill(buf, Sine, freq)
		for i, v := range buf {
			if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
				t.Fatalf("freq %v: sample %d not finite", freq, i)
			}
		}
		if p := g.Phase(); p < 0 || p >= 1 || math.IsNaN(p) {
			t.Fatalf("freq %v: phase out of range: %f", freq, p)
		}
	}
}

func TestPhaseWraps(t *testing.T) {
	g := NewGenerator(100)
	for i := 0; i < 1000; i++ {
		g.Next(Saw, 7)
		if p := g.Phase(); p < 0 || p >= 1 {
			t.Fatalf("phase out of [0,1): %f", p)
		}
	}
	g.SetPhase(-0.25)
	if math.Abs(g.Phase()-0.75) > 1e-12 {
		t.Fatalf("SetPhase(-0.25) = %f, want 0.75", g.Phase())
	}
}

func TestParseWaveform(t *testing.T) {
	for name, want := range map[string]Waveform{"sine": Sine, "SQUARE": Square, " saw ": Saw, "triangle": Triangle} {
		got, err := ParseWaveform(name)
		if err != nil || got != want {
			t.Errorf("ParseWaveform(%q) = %v, %v; want %v", name, got, err, want)
		}
	}
	if _, err := ParseWaveform("noise"); !errors.Is(err, ErrUnknownWaveform) {
		t.Errorf("expected ErrUnknownWaveform, got %v", err)
	}
}
