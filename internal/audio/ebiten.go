package audio

import (
	"fmt"
	"sync"
	"time"

	ebitaudio "github.com/hajimehoshi/ebiten/v2/audio"
)

var (
	audioContextOnce sync.Once
	audioContext     *ebitaudio.Context
	audioSampleRate  int
)

// ebiten allows a single audio context per process.
func sharedAudioContext(sampleRate int) (*ebitaudio.Context, error) {
	audioContextOnce.Do(func() {
		audioSampleRate = sampleRate
		audioContext = ebitaudio.NewContext(sampleRate)
	})
	if audioSampleRate != sampleRate {
		return nil, fmt.Errorf("audio context already initialized at %d Hz (requested %d Hz)", audioSampleRate, sampleRate)
	}
	return audioContext, nil
}

// Ebiten plays through ebiten's audio context.
type Ebiten struct {
	sampleRate int

	mu     sync.Mutex
	player *ebitaudio.Player
}

func NewEbiten(sampleRate int) *Ebiten {
	return &Ebiten{sampleRate: sampleRate}
}

func (e *Ebiten) Start(src SampleSource) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.player != nil {
		return nil
	}
	ctx, err := sharedAudioContext(e.sampleRate)
	if err != nil {
		return err
	}
	pl, err := ctx.NewPlayerF32(NewStreamReader(src))
	if err != nil {
		return err
	}
	pl.Play()
	e.player = pl
	return nil
}

func (e *Ebiten) Stop() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.player == nil {
		return nil
	}
	e.player.Pause()
	err := e.player.Close()
	e.player = nil
	return err
}

// Position returns what the listener is hearing now, or 0 when stopped.
func (e *Ebiten) Position() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.player == nil {
		return 0
	}
	return e.player.Position()
}
