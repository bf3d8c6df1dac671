package audio

import (
	"sync"
	"time"
)

// Manual is a transport driven by its caller: nothing is rendered until Pull.
type Manual struct {
	mu  sync.Mutex
	src SampleSource
}

func NewManual() *Manual { return &Manual{} }

func (m *Manual) Start(src SampleSource) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.src = src
	return nil
}

func (m *Manual) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.src = nil
	return nil
}

func (m *Manual) Started() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.src != nil
}

// Pull renders frames stereo frames into a new buffer.
func (m *Manual) Pull(frames int) ([]float32, error) {
	buf := make([]float32, frames*2)
	return buf, m.PullInto(buf)
}

// PullInto fills dst with interleaved stereo frames.
func (m *Manual) PullInto(dst []float32) error {
	m.mu.Lock()
	src := m.src
	m.mu.Unlock()
	if src == nil {
		return ErrNotStarted
	}
	src.Process(dst)
	return nil
}

// Null renders in real time and discards the output, so voices advance as
// they would on a device.
type Null struct {
	sampleRate int
	blockSize  int

	mu   sync.Mutex
	quit chan struct{}
	done chan struct{}
}

func NewNull(sampleRate, blockSize int) *Null {
	return &Null{sampleRate: sampleRate, blockSize: blockSize}
}

func (n *Null) Start(src SampleSource) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.quit != nil {
		return nil
	}
	n.quit = make(chan struct{})
	n.done = make(chan struct{})
	period := time.Duration(n.blockSize) * time.Second / time.Duration(n.sampleRate)
	go n.run(src, period, n.quit, n.done)
	return nil
}

func (n *Null) run(src SampleSource, period time.Duration, quit, done chan struct{}) {
	defer close(done)
	buf := make([]float32, n.blockSize*2)
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-quit:
			return
		case <-ticker.C:
			src.Process(buf)
		}
	}
}

func (n *Null) Stop() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.quit == nil {
		return nil
	}
	close(n.quit)
	<-n.done
	n.quit, n.done = nil, nil
	return nil
}
