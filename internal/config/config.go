// Package config loads synth8 session files.
package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	synth8 "github.com/cbegin/synth8-go"
	"github.com/cbegin/synth8-go/internal/audio"
	"github.com/cbegin/synth8-go/internal/effects"
	"github.com/cbegin/synth8-go/internal/envelope"
	"github.com/cbegin/synth8-go/internal/keys"
	"github.com/cbegin/synth8-go/internal/lfo"
	"github.com/cbegin/synth8-go/internal/node"
	"github.com/cbegin/synth8-go/internal/voice"
	"github.com/cbegin/synth8-go/internal/wave"
)

var ErrInvalid = errors.New("invalid config")

//go:embed default.yml
var defaultConfig []byte

type (
	Config struct {
		Audio      Audio              `yaml:"audio"`
		Instrument Instrument         `yaml:"instrument"`
		Layout     map[string]float64 `yaml:"layout"`
		Effects    []effects.Spec     `yaml:"effects"`
	}

	Audio struct {
		SampleRate int     `yaml:"samplerate"`
		BlockSize  int     `yaml:"blocksize"`
		Backend    string  `yaml:"backend"`
		Gain       float64 `yaml:"gain"`
		QueueSize  int     `yaml:"queuesize"`
	}

	// Instrument is the voice built for every key of the layout.
	Instrument struct {
		Waveform string    `yaml:"waveform"`
		FM       *FM       `yaml:"fm"`
		Cutoff   float64   `yaml:"cutoff"`
		HardSync bool      `yaml:"hardsync"`
		Envelope *Envelope `yaml:"envelope"`
		LFO      *LFO      `yaml:"lfo"`
	}

	FM struct {
		Ratio    float64 `yaml:"ratio"`
		Index    float64 `yaml:"index"`
		Feedback float64 `yaml:"feedback"`
	}

	Envelope struct {
		Attack  float64 `yaml:"attack"`
		Decay   float64 `yaml:"decay"`
		Sustain float64 `yaml:"sustain"`
		Release float64 `yaml:"release"`
	}

	LFO struct {
		Rate     float64 `yaml:"rate"`
		Depth    float64 `yaml:"depth"`
		Center   float64 `yaml:"center"`
		Waveform string  `yaml:"waveform"`
	}
)

// Default returns the built-in session: the QWERTY layout playing a filtered
// sine with envelope and vibrato.
func Default() *Config {
	cfg, err := decode(bytes.NewReader(defaultConfig), nil)
	if err != nil {
		panic(fmt.Errorf("failed to decode default config: %w", err))
	}
	return cfg
}

// Load reads a session file on top of the defaults. Unknown fields are
// rejected. A layout in the file replaces the default layout.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	cfg, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func Parse(r io.Reader) (*Config, error) {
	cfg, err := decode(r, Default())
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decode(r io.Reader, base *Config) (*Config, error) {
	cfg := base
	if cfg == nil {
		cfg = &Config{}
	}
	var layout struct {
		Layout map[string]float64 `yaml:"layout"`
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, &layout); err != nil {
		return nil, err
	}
	if layout.Layout != nil {
		cfg.Layout = nil
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	a := c.Audio
	if a.SampleRate <= 0 || a.BlockSize <= 0 || a.QueueSize <= 0 {
		return fmt.Errorf("%w: samplerate, blocksize and queuesize must be positive", ErrInvalid)
	}
	if math.IsNaN(a.Gain) || a.Gain < 0 {
		return fmt.Errorf("%w: gain %g", ErrInvalid, a.Gain)
	}
	if b := strings.ToLower(a.Backend); b != "" && !slices.Contains(audio.Backends(), b) {
		return fmt.Errorf("%w: backend %q", ErrInvalid, a.Backend)
	}
	for k, f := range c.Layout {
		if len([]rune(k)) != 1 {
			return fmt.Errorf("%w: layout key %q must be a single character", ErrInvalid, k)
		}
		if !(f > 0) {
			return fmt.Errorf("%w: layout key %q frequency %g", ErrInvalid, k, f)
		}
	}
	if _, err := c.Instrument.Patch(); err != nil {
		return fmt.Errorf("%w: instrument: %v", ErrInvalid, err)
	}
	for i, s := range c.Effects {
		if _, err := effects.Build(s.Type, s.Params, a.SampleRate); err != nil {
			return fmt.Errorf("%w: effect %d: %v", ErrInvalid, i, err)
		}
	}
	return nil
}

// Patch converts the instrument section into a voice patch.
func (in Instrument) Patch() (voice.Patch, error) {
	w, err := wave.ParseWaveform(in.Waveform)
	if err != nil {
		return voice.Patch{}, err
	}
	p := voice.Patch{Waveform: w, Cutoff: in.Cutoff, HardSync: in.HardSync}
	if in.Cutoff < 0 {
		return voice.Patch{}, fmt.Errorf("cutoff %g", in.Cutoff)
	}
	if fm := in.FM; fm != nil {
		p.FM = &voice.FMParams{Ratio: fm.Ratio, Index: fm.Index, Feedback: fm.Feedback}
		if _, err := node.NewFM(1000, 1, fm.Ratio, fm.Index, fm.Feedback, w); err != nil {
			return voice.Patch{}, err
		}
	}
	if e := in.Envelope; e != nil {
		p.Envelope = &envelope.Params{Attack: e.Attack, Decay: e.Decay, Sustain: e.Sustain, Release: e.Release}
		if _, err := envelope.New(1000, *p.Envelope); err != nil {
			return voice.Patch{}, err
		}
	}
	if l := in.LFO; l != nil {
		lw, err := wave.ParseWaveform(l.Waveform)
		if err != nil {
			return voice.Patch{}, err
		}
		p.LFO = &lfo.Params{Rate: l.Rate, Depth: l.Depth, Center: l.Center, Waveform: lw}
		if _, err := lfo.New(1000, *p.LFO); err != nil {
			return voice.Patch{}, err
		}
	}
	return p, nil
}

// KeyLayout returns the layout with normalized keys.
func (c *Config) KeyLayout() keys.Layout {
	out := make(keys.Layout, len(c.Layout))
	for k, f := range c.Layout {
		out[keys.Normalize(k)] = f
	}
	return out
}

// EngineOptions translates the audio and effects sections. Extra options are
// applied last, so callers can override the transport or logger.
func (c *Config) EngineOptions(extra ...synth8.Option) ([]synth8.Option, error) {
	a := c.Audio
	opts := []synth8.Option{
		synth8.WithSampleRate(a.SampleRate),
		synth8.WithBlockSize(a.BlockSize),
		synth8.WithGain(a.Gain),
		synth8.WithQueueSize(a.QueueSize),
		synth8.WithBackend(a.Backend),
	}
	chain, err := effects.BuildChain(c.Effects, a.SampleRate)
	if err != nil {
		return nil, err
	}
	if chain != nil {
		opts = append(opts, synth8.WithEffects(chain))
	}
	return append(opts, extra...), nil
}

// Install registers one instrument per layout key. Voice ids are the
// upper-cased key.
func (c *Config) Install(e *synth8.Engine) error {
	patch, err := c.Instrument.Patch()
	if err != nil {
		return err
	}
	layout := c.KeyLayout()
	sr := e.SampleRate()
	for _, k := range layout.Keys() {
		freq := layout[k]
		build := func() (voice.Voice, error) { return patch.Build(sr, freq) }
		if err := e.AddInstrument(strings.ToUpper(k), k, build); err != nil {
			return fmt.Errorf("key %q: %w", k, err)
		}
	}
	return nil
}
