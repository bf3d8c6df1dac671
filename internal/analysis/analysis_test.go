package analysis

import (
	"errors"
	"math"
	"testing"
)

func sine(freq float64, sampleRate, n int, amp float64) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(amp * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate)))
	}
	return out
}

func TestPeakAndRMS(t *testing.T) {
	x := []float32{0.5, -2, 1}
	if p := Peak(x); p != 2 {
		t.Errorf("peak %f, want 2", p)
	}
	if Peak(nil) != 0 || RMS(nil) != 0 {
		t.Error("empty input should measure 0")
	}
	if r := RMS(sine(1000, 48000, 48000, 1)); math.Abs(r-1/math.Sqrt2) > 1e-3 {
		t.Errorf("rms of unit sine %f", r)
	}
	if x[1] != -2 {
		t.Error("Peak must not modify its input")
	}
}

func TestZeroCrossingRate(t *testing.T) {
	for _, f := range []float64{110, 440, 1234} {
		got := ZeroCrossingRate(sine(f, 44100, 44100, 0.8), 44100)
		if math.Abs(got-f) > 1 {
			t.Errorf("%g Hz: estimated %g", f, got)
		}
	}
	if ZeroCrossingRate(make([]float32, 100), 44100) != 0 {
		t.Error("silence has no pitch")
	}
}

func TestDominantFrequency(t *testing.T) {
	x := sine(440, 44100, 8192, 1)
	for i, v := range sine(3000, 44100, 8192, 0.2) {
		x[i] += v
	}
	got, err := DominantFrequency(x, 44100, 8192)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(got-440) > 44100.0/8192 {
		t.Errorf("dominant %g Hz, want ~440", got)
	}
	if _, err := DominantFrequency(x, 44100, 1000); !errors.Is(err, ErrSize) {
		t.Errorf("non power of two: got %v", err)
	}
}

func TestLogBands(t *testing.T) {
	mags, err := Spectrum(sine(1000, 48000, 2048, 1), 2048)
	if err != nil {
		t.Fatal(err)
	}
	bands := LogBands(mags, 48000, 32, 18000)
	if len(bands) != 32 {
		t.Fatalf("%d bands", len(bands))
	}
	loudest := 0
	for i, v := range bands {
		if v < 0 || v > 1 {
			t.Fatalf("band %d = %f outside [0,1]", i, v)
		}
		if v > bands[loudest] {
			loudest = i
		}
	}
	if loudest == 0 {
		t.Error("1 kHz tone should not peak in the lowest band")
	}
}

func TestRingSnapshot(t *testing.T) {
	r := NewRing(4)
	r.Tap([]float32{1, 1, 2, 2, 3, 3, 4, 4, 5, 5, 6, 6})
	got := r.Snapshot(3)
	want := []float32{4, 5, 6}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("snapshot %v, want %v", got, want)
		}
	}
	if len(r.Snapshot(10)) != 4 {
		t.Error("snapshot larger than the ring should be clipped")
	}
}
