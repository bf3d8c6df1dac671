package effects

import (
	"errors"
	"math"
	"testing"
)

func impulse(n int) []float32 {
	b := make([]float32, n)
	b[0] = 1
	return b
}

func TestDelayProducesOutput(t *testing.T) {
	d := NewDelay(44100, 100, 0.5, 0.5)
	block := impulse(4410 + 8)
	d.Process(block)
	if math.Abs(float64(block[4410])) < 0.01 {
		t.Errorf("expected delayed output at 100ms, got %f", block[4410])
	}
	if block[0] != 0.5 {
		t.Errorf("dry path at wet 0.5: got %f", block[0])
	}
}

func TestDelaySplitBlocksMatch(t *testing.T) {
	a := NewDelay(8000, 3, 0.6, 0.5)
	b := NewDelay(8000, 3, 0.6, 0.5)
	whole := impulse(200)
	split := impulse(200)
	a.Process(whole)
	for off := 0; off < len(split); off += 7 {
		b.Process(split[off:min(off+7, len(split))])
	}
	for i := range whole {
		if whole[i] != split[i] {
			t.Fatalf("sample %d: %f != %f", i, whole[i], split[i])
		}
	}
}

func TestReverbProducesOutput(t *testing.T) {
	r := NewReverb(44100, 0.5, 0.7, 0.5)
	block := impulse(10000)
	r.Process(block)
	var maxOut float32
	for _, v := range block[1:] {
		maxOut = max(maxOut, v)
	}
	if maxOut < 0.001 {
		t.Error("expected reverb tail")
	}
}

func TestDistortionClips(t *testing.T) {
	d := NewDistortion(44100, 10, 0.5, 0)
	block := []float32{0.5, -0.5, 2}
	d.Process(block)
	for i, v := range block {
		if math.Abs(float64(v)) > 0.5 {
			t.Errorf("sample %d: distortion output should be bounded by post gain, got %f", i, v)
		}
		if math.Abs(float64(v)) < 0.01 {
			t.Errorf("sample %d: expected non-zero output", i)
		}
	}
}

func TestChorusStaysFinite(t *testing.T) {
	c, err := NewChorus(44100, 15, 0.3, 3, 1.5, 0.4)
	if err != nil {
		t.Fatal(err)
	}
	block := make([]float32, 4096)
	for i := range block {
		block[i] = float32(math.Sin(float64(i) * 0.05))
	}
	c.Process(block)
	for i, v := range block {
		if math.IsNaN(float64(v)) || math.Abs(float64(v)) > 2 {
			t.Fatalf("sample %d = %f", i, v)
		}
	}
	if _, err := NewChorus(44100, 15, 0.3, 3, -1, 0.4); err == nil {
		t.Fatal("negative rate accepted")
	}
}

func TestCompressorReducesLoud(t *testing.T) {
	c := NewCompressor(44100, -10, 4, 1, 50, 0)
	block := make([]float32, 1000)
	for i := range block {
		block[i] = 1
	}
	c.Process(block)
	if out := block[len(block)-1]; out >= 1.0 {
		t.Errorf("compressor should reduce loud signals, got %f", out)
	}
}

func TestLimiterHoldsCeiling(t *testing.T) {
	l := NewLimiter(44100, 0.5, 20)
	block := make([]float32, 2000)
	for i := range block {
		block[i] = float32(3 * math.Sin(float64(i)*0.01))
	}
	l.Process(block)
	for i, v := range block {
		if math.Abs(float64(v)) > 0.5+1e-6 {
			t.Fatalf("sample %d = %f exceeds ceiling", i, v)
		}
	}
	quiet := []float32{0.1, -0.2}
	NewLimiter(44100, 1, 20).Process(quiet)
	if quiet[0] != 0.1 || quiet[1] != -0.2 {
		t.Errorf("signal under the ceiling must pass untouched, got %v", quiet)
	}
}

func TestBuild(t *testing.T) {
	for _, kind := range []string{"delay", "reverb", "chorus", "dist", "distortion", "comp", "compressor", "limit", "Limiter"} {
		if _, err := Build(kind, nil, 44100); err != nil {
			t.Errorf("Build(%q): %v", kind, err)
		}
	}
	if _, err := Build("flanger9000", nil, 44100); !errors.Is(err, ErrUnknownEffect) {
		t.Errorf("unknown effect: got %v", err)
	}
	chain, err := BuildChain([]Spec{{Type: "distortion", Params: []float64{2, 1, 0}}, {Type: "limiter"}}, 44100)
	if err != nil {
		t.Fatal(err)
	}
	if chain.Len() != 2 {
		t.Fatalf("chain has %d effects", chain.Len())
	}
	block := []float32{0.5, 0.5}
	chain.Process(block)
	if block[0] == 0 {
		t.Error("chain should produce output")
	}
	if c, err := BuildChain(nil, 44100); c != nil || err != nil {
		t.Errorf("empty spec list: %v %v", c, err)
	}
}
