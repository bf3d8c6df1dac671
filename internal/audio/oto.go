package audio

import (
	"fmt"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
)

var (
	otoOnce       sync.Once
	otoContext    *oto.Context
	otoErr        error
	otoSampleRate int
)

func sharedOtoContext(sampleRate int, buffer time.Duration) (*oto.Context, error) {
	otoOnce.Do(func() {
		otoSampleRate = sampleRate
		ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
			SampleRate:   sampleRate,
			ChannelCount: 2,
			Format:       oto.FormatFloat32LE,
			BufferSize:   buffer,
		})
		if err != nil {
			otoErr = err
			return
		}
		<-ready
		otoContext = ctx
	})
	if otoErr != nil {
		return nil, otoErr
	}
	if otoSampleRate != sampleRate {
		return nil, fmt.Errorf("oto context already initialized at %d Hz (requested %d Hz)", otoSampleRate, sampleRate)
	}
	return otoContext, nil
}

// Oto plays through an oto v3 context without pulling in ebiten.
type Oto struct {
	sampleRate int
	blockSize  int

	mu     sync.Mutex
	player *oto.Player
}

func NewOto(sampleRate, blockSize int) *Oto {
	return &Oto{sampleRate: sampleRate, blockSize: blockSize}
}

func (o *Oto) Start(src SampleSource) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.player != nil {
		return nil
	}
	// two blocks of device buffering
	buffer := time.Duration(2*o.blockSize) * time.Second / time.Duration(o.sampleRate)
	ctx, err := sharedOtoContext(o.sampleRate, buffer)
	if err != nil {
		return err
	}
	o.player = ctx.NewPlayer(NewStreamReader(src))
	o.player.Play()
	return nil
}

func (o *Oto) Stop() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.player == nil {
		return nil
	}
	o.player.Pause()
	err := o.player.Close()
	o.player = nil
	return err
}
