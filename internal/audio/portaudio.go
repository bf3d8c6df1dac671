//go:build portaudio

package audio

import (
	"sync"

	"github.com/gordonklaus/portaudio"
)

// PortAudio opens the default output device and renders from its callback.
type PortAudio struct {
	sampleRate int
	blockSize  int

	mu     sync.Mutex
	stream *portaudio.Stream
}

func newPortAudio(sampleRate, blockSize int) (Transport, error) {
	return &PortAudio{sampleRate: sampleRate, blockSize: blockSize}, nil
}

func (p *PortAudio) Start(src SampleSource) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stream != nil {
		return nil
	}
	if err := portaudio.Initialize(); err != nil {
		return err
	}
	stream, err := portaudio.OpenDefaultStream(0, 2, float64(p.sampleRate), p.blockSize, func(out []float32) {
		src.Process(out)
	})
	if err != nil {
		portaudio.Terminate()
		return err
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return err
	}
	p.stream = stream
	return nil
}

func (p *PortAudio) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stream == nil {
		return nil
	}
	err := p.stream.Stop()
	if cerr := p.stream.Close(); err == nil {
		err = cerr
	}
	p.stream = nil
	if terr := portaudio.Terminate(); err == nil {
		err = terr
	}
	return err
}
