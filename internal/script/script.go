// Package script drives an Engine from Lua.
//
//	add_voice(id, freq [, key [, opts]])
//	add_chord(id, {freqs...} [, key [, opts]])
//	remove_voice(id)
//	voice_on(id) / voice_off(id)
//	key(k, pressed)
//	state(id)        -- "inactive", "active", "releasing", "removed" or nil
//	sleep(seconds)
//	play() / stop()
//
// opts may set waveform, cutoff, hardsync, attack, decay, sustain, release,
// vibrato_rate, vibrato_depth, fm_ratio, fm_index and fm_feedback.
// envelope=false, vibrato=false and fm=false drop those stages from the patch.
package script

import (
	"context"
	"fmt"
	"time"

	lua "github.com/yuin/gopher-lua"

	synth8 "github.com/cbegin/synth8-go"
	"github.com/cbegin/synth8-go/internal/envelope"
	"github.com/cbegin/synth8-go/internal/keys"
	"github.com/cbegin/synth8-go/internal/lfo"
	"github.com/cbegin/synth8-go/internal/voice"
	"github.com/cbegin/synth8-go/internal/wave"
)

type Option func(*Runner)

// WithSleep replaces the wall-clock sleep used by sleep().
func WithSleep(fn func(context.Context, time.Duration) error) Option {
	return func(r *Runner) { r.sleep = fn }
}

// WithPatch sets the patch voices start from before opts are applied.
func WithPatch(p voice.Patch) Option {
	return func(r *Runner) { r.patch = p }
}

type Runner struct {
	engine *synth8.Engine
	patch  voice.Patch
	sleep  func(context.Context, time.Duration) error
	ctx    context.Context
}

func New(e *synth8.Engine, opts ...Option) *Runner {
	r := &Runner{engine: e, patch: voice.KeyboardPatch(), sleep: sleepContext}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunFile executes the script at path until it returns or ctx is done.
func (r *Runner) RunFile(ctx context.Context, path string) error {
	return r.run(ctx, func(L *lua.LState) error { return L.DoFile(path) })
}

func (r *Runner) RunString(ctx context.Context, src string) error {
	return r.run(ctx, func(L *lua.LState) error { return L.DoString(src) })
}

func (r *Runner) run(ctx context.Context, do func(*lua.LState) error) error {
	L := lua.NewState()
	defer L.Close()
	L.SetContext(ctx)
	r.ctx = ctx
	for name, fn := range map[string]lua.LGFunction{
		"add_voice":    r.addVoice,
		"add_chord":    r.addChord,
		"remove_voice": r.removeVoice,
		"voice_on":     r.voiceOn,
		"voice_off":    r.voiceOff,
		"key":          r.key,
		"state":        r.state,
		"sleep":        r.sleepFn,
		"play":         r.play,
		"stop":         r.stop,
	} {
		L.SetGlobal(name, L.NewFunction(fn))
	}
	return do(L)
}

func (r *Runner) addVoice(L *lua.LState) int {
	id := L.CheckString(1)
	freq := float64(L.CheckNumber(2))
	key := L.OptString(3, "")
	patch, err := r.patchFrom(L.OptTable(4, nil))
	if err != nil {
		L.RaiseError("add_voice %q: %v", id, err)
	}
	sr := r.engine.SampleRate()
	build := func() (voice.Voice, error) { return patch.Build(sr, freq) }
	if err := r.engine.AddInstrument(id, key, build); err != nil {
		L.RaiseError("add_voice %q: %v", id, err)
	}
	return 0
}

func (r *Runner) addChord(L *lua.LState) int {
	id := L.CheckString(1)
	tbl := L.CheckTable(2)
	key := L.OptString(3, "")
	patch, err := r.patchFrom(L.OptTable(4, nil))
	if err != nil {
		L.RaiseError("add_chord %q: %v", id, err)
	}
	var freqs []float64
	for i := 1; i <= tbl.Len(); i++ {
		n, ok := tbl.RawGetInt(i).(lua.LNumber)
		if !ok {
			L.ArgError(2, "frequencies must be numbers")
		}
		freqs = append(freqs, float64(n))
	}
	sr := r.engine.SampleRate()
	build := func() (voice.Voice, error) {
		m, err := voice.NewMixer(sr, 1)
		if err != nil {
			return nil, err
		}
		for _, f := range freqs {
			c, err := patch.Build(sr, f)
			if err != nil {
				return nil, err
			}
			if err := m.Add(c); err != nil {
				return nil, err
			}
		}
		return m, nil
	}
	if err := r.engine.AddInstrument(id, key, build); err != nil {
		L.RaiseError("add_chord %q: %v", id, err)
	}
	return 0
}

func (r *Runner) removeVoice(L *lua.LState) int {
	if err := r.engine.RemoveVoice(L.CheckString(1)); err != nil {
		L.RaiseError("remove_voice: %v", err)
	}
	return 0
}

// voice_on and voice_off return false plus a message for an unknown voice;
// the script keeps running.
func (r *Runner) voiceOn(L *lua.LState) int {
	return pushResult(L, r.engine.VoiceOn(L.CheckString(1)))
}

func (r *Runner) voiceOff(L *lua.LState) int {
	return pushResult(L, r.engine.VoiceOff(L.CheckString(1)))
}

func pushResult(L *lua.LState, err error) int {
	if err != nil {
		L.Push(lua.LFalse)
		L.Push(lua.LString(err.Error()))
		return 2
	}
	L.Push(lua.LTrue)
	return 1
}

func (r *Runner) key(L *lua.LState) int {
	r.engine.HandleKey(keys.KeyEvent{Key: L.CheckString(1), Pressed: L.OptBool(2, true)})
	return 0
}

func (r *Runner) state(L *lua.LState) int {
	s, ok := r.engine.VoiceState(L.CheckString(1))
	if !ok {
		L.Push(lua.LNil)
		return 1
	}
	L.Push(lua.LString(s.String()))
	return 1
}

func (r *Runner) sleepFn(L *lua.LState) int {
	sec := float64(L.CheckNumber(1))
	if sec < 0 {
		L.ArgError(1, "negative duration")
	}
	if err := r.sleep(r.ctx, time.Duration(sec*float64(time.Second))); err != nil {
		L.RaiseError("sleep: %v", err)
	}
	return 0
}

func (r *Runner) play(L *lua.LState) int {
	if err := r.engine.Play(); err != nil {
		L.RaiseError("play: %v", err)
	}
	return 0
}

func (r *Runner) stop(L *lua.LState) int {
	if err := r.engine.Stop(); err != nil {
		L.RaiseError("stop: %v", err)
	}
	return 0
}

func (r *Runner) patchFrom(t *lua.LTable) (voice.Patch, error) {
	p := r.patch
	if p.Envelope != nil {
		env := *p.Envelope
		p.Envelope = &env
	}
	if p.LFO != nil {
		l := *p.LFO
		p.LFO = &l
	}
	if p.FM != nil {
		fm := *p.FM
		p.FM = &fm
	}
	if t == nil {
		return p, nil
	}
	if v := t.RawGetString("waveform"); v != lua.LNil {
		w, err := wave.ParseWaveform(lua.LVAsString(v))
		if err != nil {
			return p, err
		}
		p.Waveform = w
	}
	p.Cutoff = number(t, "cutoff", p.Cutoff)
	if v := t.RawGetString("hardsync"); v != lua.LNil {
		p.HardSync = lua.LVAsBool(v)
	}

	if t.RawGetString("envelope") == lua.LFalse {
		p.Envelope = nil
	} else {
		env := envelope.DefaultParams()
		if p.Envelope != nil {
			env = *p.Envelope
		}
		env.Attack = number(t, "attack", env.Attack)
		env.Decay = number(t, "decay", env.Decay)
		env.Sustain = number(t, "sustain", env.Sustain)
		env.Release = number(t, "release", env.Release)
		if p.Envelope != nil || has(t, "attack", "decay", "sustain", "release") {
			p.Envelope = &env
		}
	}

	if t.RawGetString("vibrato") == lua.LFalse {
		p.LFO = nil
	} else {
		l := lfo.DefaultParams()
		if p.LFO != nil {
			l = *p.LFO
		}
		l.Rate = number(t, "vibrato_rate", l.Rate)
		l.Depth = number(t, "vibrato_depth", l.Depth)
		if p.LFO != nil || has(t, "vibrato_rate", "vibrato_depth") {
			p.LFO = &l
		}
	}
	if t.RawGetString("fm") == lua.LFalse {
		p.FM = nil
	} else if p.FM != nil || has(t, "fm_ratio", "fm_index", "fm_feedback") {
		fm := voice.FMParams{Ratio: 1, Index: 1}
		if p.FM != nil {
			fm = *p.FM
		}
		fm.Ratio = number(t, "fm_ratio", fm.Ratio)
		fm.Index = number(t, "fm_index", fm.Index)
		fm.Feedback = number(t, "fm_feedback", fm.Feedback)
		p.FM = &fm
	}
	if p.Cutoff < 0 {
		return p, fmt.Errorf("cutoff %g must not be negative", p.Cutoff)
	}
	return p, nil
}

func number(t *lua.LTable, name string, def float64) float64 {
	if n, ok := t.RawGetString(name).(lua.LNumber); ok {
		return float64(n)
	}
	return def
}

func has(t *lua.LTable, names ...string) bool {
	for _, name := range names {
		if t.RawGetString(name) != lua.LNil {
			return true
		}
	}
	return false
}
