package synth8

import (
	"fmt"
	"io"
	"log"
	"math"
	"time"

	"github.com/cbegin/synth8-go/internal/audio"
	"github.com/cbegin/synth8-go/internal/effects"
)

const (
	DefaultSampleRate = 44100
	DefaultBlockSize  = 512
	DefaultQueueSize  = 256

	// stopTimeout bounds how long Stop waits for an in-flight block.
	stopTimeout = 500 * time.Millisecond
)

type Option func(*engineConfig)

type engineConfig struct {
	sampleRate int
	blockSize  int
	gain       float64
	queueSize  int
	transport  audio.Transport
	backend    string
	logger     *log.Logger
	effects    *effects.Chain
	sampleTap  func([]float32)
}

func defaultEngineConfig() engineConfig {
	return engineConfig{
		sampleRate: DefaultSampleRate,
		blockSize:  DefaultBlockSize,
		gain:       1,
		queueSize:  DefaultQueueSize,
	}
}

func (c *engineConfig) validate() error {
	switch {
	case c.sampleRate <= 0:
		return fmt.Errorf("%w: sample rate %d", ErrInvalidOption, c.sampleRate)
	case c.blockSize <= 0:
		return fmt.Errorf("%w: block size %d", ErrInvalidOption, c.blockSize)
	case c.queueSize <= 0:
		return fmt.Errorf("%w: queue size %d", ErrInvalidOption, c.queueSize)
	case math.IsNaN(c.gain) || math.IsInf(c.gain, 0) || c.gain < 0:
		return fmt.Errorf("%w: gain %g", ErrInvalidOption, c.gain)
	}
	return nil
}

func WithSampleRate(sampleRate int) Option {
	return func(cfg *engineConfig) {
		cfg.sampleRate = sampleRate
	}
}

// WithBlockSize sets the number of samples rendered per internal block.
// Control commands take effect on block boundaries.
func WithBlockSize(n int) Option {
	return func(cfg *engineConfig) {
		cfg.blockSize = n
	}
}

// WithGain sets the master gain applied after the sqrt(k) normalization.
func WithGain(gain float64) Option {
	return func(cfg *engineConfig) {
		cfg.gain = gain
	}
}

func WithQueueSize(n int) Option {
	return func(cfg *engineConfig) {
		cfg.queueSize = n
	}
}

// WithTransport sets the audio output. It takes precedence over WithBackend.
func WithTransport(t audio.Transport) Option {
	return func(cfg *engineConfig) {
		cfg.transport = t
	}
}

// WithBackend selects a transport by name: ebiten, oto, portaudio, manual or
// null.
func WithBackend(name string) Option {
	return func(cfg *engineConfig) {
		cfg.backend = name
	}
}

// WithLogger receives control errors that have no caller to return to, such
// as a key event for a voice that has gone. Nil discards.
func WithLogger(l *log.Logger) Option {
	return func(cfg *engineConfig) {
		cfg.logger = l
	}
}

// WithEffects runs a master effects chain over every mono block.
func WithEffects(chain *effects.Chain) Option {
	return func(cfg *engineConfig) {
		cfg.effects = chain
	}
}

// WithSampleTap installs a callback invoked with each generated stereo buffer.
// The callback runs on the audio thread; keep work brief and non-blocking.
func WithSampleTap(tap func([]float32)) Option {
	return func(cfg *engineConfig) {
		cfg.sampleTap = tap
	}
}

func discardLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}
