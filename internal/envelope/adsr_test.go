package envelope

import (
	"errors"
	"math"
	"testing"
)

const sr = 1000

func render(e *ADSR, n int) []float32 {
	out := make([]float32, n)
	e.Render(out)
	return out
}

func TestStageLevels(t *testing.T) {
	e, err := New(sr, Params{Attack: 0.1, Decay: 0.2, Sustain: 0.5, Release: 0.3})
	if err != nil {
		t.Fatal(err)
	}
	if got := render(e, 10); got[0] != 0 || got[9] != 0 {
		t.Fatalf("idle envelope should be silent, got %v", got)
	}
	e.TriggerOn()
	out := render(e, 1000)
	check := func(idx int, want float64) {
		t.Helper()
		if math.Abs(float64(out[idx])-want) > 0.01 {
			t.Errorf("sample %d: got %f, want %f", idx, out[idx], want)
		}
	}
	check(0, 0)
	check(50, 0.5)
	check(100, 1)
	check(200, 0.75)
	check(300, 0.5)
	check(999, 0.5)
	if e.Stage() != Sustain {
		t.Fatalf("stage = %s, want sustain", e.Stage())
	}
}

func TestBlockSizeDoesNotChangeCurve(t *testing.T) {
	p := Params{Attack: 0.013, Decay: 0.037, Sustain: 0.4, Release: 0.021}
	whole, _ := New(sr, p)
	whole.TriggerOn()
	ref := render(whole, 200)

	for _, block := range []int{1, 7, 16, 64} {
		e, _ := New(sr, p)
		e.TriggerOn()
		var got []float32
		for len(got) < 200 {
			n := block
			if len(got)+n > 200 {
				n = 200 - len(got)
			}
			got = append(got, render(e, n)...)
		}
		for i := range ref {
			if math.Abs(float64(got[i]-ref[i])) > 1e-6 {
				t.Fatalf("block %d: sample %d = %f, want %f", block, i, got[i], ref[i])
			}
		}
	}
}

func TestReleaseMonotonicAndFinishes(t *testing.T) {
	for _, offAt := range []int{5, 40, 150, 500} {
		e, _ := New(sr, Params{Attack: 0.02, Decay: 0.1, Sustain: 0.6, Release: 0.25})
		e.TriggerOn()
		render(e, offAt)
		start := e.Level()
		e.TriggerOff()
		if e.Stage() != Release {
			t.Fatalf("stage after TriggerOff = %s", e.Stage())
		}
		out := render(e, e.ReleaseSamples())
		if math.Abs(float64(out[0])-start) > 1e-6 {
			t.Errorf("release starts at %f, want %f", out[0], start)
		}
		for i := 1; i < len(out); i++ {
			if out[i] > out[i-1] {
				t.Fatalf("release not monotonic at %d: %f > %f", i, out[i], out[i-1])
			}
		}
		if !e.Finished() {
			t.Fatalf("envelope should be finished after %d samples", e.ReleaseSamples())
		}
		if tail := render(e, 10); tail[0] != 0 {
			t.Errorf("finished envelope should be silent, got %f", tail[0])
		}
	}
}

func TestRetriggerStartsFromCurrentLevel(t *testing.T) {
	e, _ := New(sr, Params{Attack: 0.1, Decay: 0.1, Sustain: 0.8, Release: 0.5})
	e.TriggerOn()
	render(e, 300)
	e.TriggerOff()
	render(e, 100)
	level := e.Level()
	if level <= 0 {
		t.Fatalf("expected a release in progress, level=%f", level)
	}
	e.TriggerOn()
	out := render(e, 2)
	if math.Abs(float64(out[0])-level) > 1e-6 {
		t.Fatalf("retrigger jumped from %f to %f", level, out[0])
	}
	if out[1] < out[0] {
		t.Fatalf("retriggered attack should rise")
	}
}

func TestZeroLengthStages(t *testing.T) {
	e, _ := New(sr, Params{Attack: 0, Decay: 0, Sustain: 0.3, Release: 0})
	e.TriggerOn()
	if e.Stage() != Sustain {
		t.Fatalf("zero attack/decay should land in sustain, got %s", e.Stage())
	}
	if out := render(e, 4); out[0] != float32(0.3) {
		t.Fatalf("sustain level = %f", out[0])
	}
	e.TriggerOff()
	if !e.Finished() {
		t.Fatal("zero release should finish immediately")
	}
}

func TestTriggerOffWhileIdleIsNoop(t *testing.T) {
	e, _ := New(sr, DefaultParams())
	e.TriggerOff()
	if e.Stage() != Idle {
		t.Fatalf("stage = %s, want idle", e.Stage())
	}
}

func TestInvalidParams(t *testing.T) {
	for _, p := range []Params{
		{Attack: -1, Sustain: 0.5},
		{Sustain: 1.5},
		{Release: math.NaN(), Sustain: 0.5},
	} {
		if _, err := New(sr, p); !errors.Is(err, ErrInvalidParams) {
			t.Errorf("New(%+v): expected ErrInvalidParams, got %v", p, err)
		}
	}
	if _, err := New(0, DefaultParams()); !errors.Is(err, ErrInvalidParams) {
		t.Errorf("zero sample rate should be rejected")
	}
}
