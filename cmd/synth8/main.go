package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"time"

	synth8 "github.com/cbegin/synth8-go"
	"github.com/cbegin/synth8-go/internal/audio"
	"github.com/cbegin/synth8-go/internal/config"
	"github.com/cbegin/synth8-go/internal/keys"
	"github.com/cbegin/synth8-go/internal/script"
)

// defaultScript plays a C major arpeggio and chord on the configured patch.
const defaultScript = `
play()
add_voice("C4", 261.63)
add_voice("E4", 329.63)
add_voice("G4", 392.00)
add_chord("Cmaj", {261.63, 329.63, 392.00, 523.25})
for _, id in ipairs({"C4", "E4", "G4"}) do
  voice_on(id)
  sleep(0.25)
  voice_off(id)
end
voice_on("Cmaj")
sleep(1.0)
voice_off("Cmaj")
sleep(0.6)
stop()
`

func main() {
	var (
		configPath = flag.String("config", "", "path to a YAML session file")
		backend    = flag.String("backend", "", "audio backend: "+strings.Join(audio.Backends(), "|"))
		sampleRate = flag.Int("sample-rate", 0, "output sample rate (overrides config)")
		volume     = flag.Float64("volume", -1, "master gain (overrides config)")
		scriptPath = flag.String("script", "", "run a Lua control script instead of the keyboard")
		wavPath    = flag.String("wav", "", "render the script offline to a WAV file")
		hold       = flag.Duration("hold", keys.DefaultHold, "terminal key hold before release")
	)
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			log.Fatal(err)
		}
	}
	if *backend != "" {
		cfg.Audio.Backend = *backend
	}
	if *sampleRate > 0 {
		cfg.Audio.SampleRate = *sampleRate
	}
	if *volume >= 0 {
		cfg.Audio.Gain = *volume
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	switch {
	case *wavPath != "":
		if err := renderWAV(ctx, cfg, *scriptPath, *wavPath); err != nil {
			log.Fatal(err)
		}
	case *scriptPath != "":
		if err := runScript(ctx, cfg, *scriptPath); err != nil {
			log.Fatal(err)
		}
	default:
		if err := runKeyboard(ctx, cfg, *hold); err != nil {
			log.Fatal(err)
		}
	}
}

func newEngine(cfg *config.Config, extra ...synth8.Option) (*synth8.Engine, error) {
	opts, err := cfg.EngineOptions(append([]synth8.Option{synth8.WithLogger(log.Default())}, extra...)...)
	if err != nil {
		return nil, err
	}
	return synth8.New(opts...)
}

func runScript(ctx context.Context, cfg *config.Config, path string) error {
	e, err := newEngine(cfg)
	if err != nil {
		return err
	}
	defer e.Stop()
	patch, err := cfg.Instrument.Patch()
	if err != nil {
		return err
	}
	return script.New(e, script.WithPatch(patch)).RunFile(ctx, path)
}

// renderWAV runs the script against a manual transport; every sleep renders
// that much audio instead of waiting.
func renderWAV(ctx context.Context, cfg *config.Config, path, out string) error {
	m := audio.NewManual()
	e, err := newEngine(cfg, synth8.WithTransport(m))
	if err != nil {
		return err
	}
	patch, err := cfg.Instrument.Patch()
	if err != nil {
		return err
	}
	var samples []float32
	sleep := func(_ context.Context, d time.Duration) error {
		frames := int(d.Seconds() * float64(e.SampleRate()))
		buf, err := m.Pull(frames)
		if errors.Is(err, audio.ErrNotStarted) {
			buf, err = make([]float32, frames*2), nil
		}
		if err != nil {
			return err
		}
		samples = append(samples, buf...)
		return nil
	}
	r := script.New(e, script.WithPatch(patch), script.WithSleep(sleep))
	if path == "" {
		err = r.RunString(ctx, defaultScript)
	} else {
		err = r.RunFile(ctx, path)
	}
	if err != nil {
		return err
	}
	if err := os.WriteFile(out, synth8.EncodeWAVFloat32LE(samples, e.SampleRate(), 2), 0o644); err != nil {
		return err
	}
	fmt.Printf("wrote %s (%.2fs)\n", out, float64(len(samples)/2)/float64(e.SampleRate()))
	return nil
}

func runKeyboard(ctx context.Context, cfg *config.Config, hold time.Duration) error {
	e, err := newEngine(cfg)
	if err != nil {
		return err
	}
	if err := cfg.Install(e); err != nil {
		return err
	}
	if err := e.Play(); err != nil {
		return err
	}
	defer e.Stop()

	layout := cfg.KeyLayout()
	fmt.Println("synth8 keyboard (Esc or Ctrl-C to quit)")
	for _, k := range layout.Keys() {
		fmt.Printf("  %s  %7.2f Hz\n", k, layout[k])
	}

	term, err := keys.OpenStdin(hold, e.HandleKey)
	if err != nil {
		return err
	}
	defer term.Close()
	select {
	case <-term.Done():
	case <-ctx.Done():
	}
	return nil
}
