package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
)

var (
	ErrUnknownBackend = errors.New("unknown audio backend")
	ErrUnavailable    = errors.New("audio backend not available in this build")
	ErrNotStarted     = errors.New("transport not started")
)

// SampleSource fills dst with interleaved stereo float32 frames.
type SampleSource interface {
	Process(dst []float32)
}

// Transport pulls audio from a SampleSource and delivers it to an output.
// Start fails before any sample is requested when the device cannot be
// opened. Stop is idempotent and returns once no further Process call will
// begin.
type Transport interface {
	Start(src SampleSource) error
	Stop() error
}

// Backend names accepted by NewBackend.
const (
	BackendEbiten    = "ebiten"
	BackendOto       = "oto"
	BackendPortAudio = "portaudio"
	BackendManual    = "manual"
	BackendNull      = "null"
)

func Backends() []string {
	return []string{BackendEbiten, BackendOto, BackendPortAudio, BackendManual, BackendNull}
}

// NewBackend creates the named transport. An empty name selects ebiten.
func NewBackend(name string, sampleRate, blockSize int) (Transport, error) {
	if sampleRate <= 0 || blockSize <= 0 {
		return nil, fmt.Errorf("sample rate %d and block size %d must be positive", sampleRate, blockSize)
	}
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", BackendEbiten:
		return NewEbiten(sampleRate), nil
	case BackendOto:
		return NewOto(sampleRate, blockSize), nil
	case BackendPortAudio:
		return newPortAudio(sampleRate, blockSize)
	case BackendManual:
		return NewManual(), nil
	case BackendNull:
		return NewNull(sampleRate, blockSize), nil
	default:
		return nil, fmt.Errorf("%w %q (have %s)", ErrUnknownBackend, name, strings.Join(Backends(), ", "))
	}
}

// StreamReader adapts a SampleSource to an io.Reader producing float32
// little-endian stereo bytes.
type StreamReader struct {
	mu     sync.Mutex
	source SampleSource
	buf    []float32
}

func NewStreamReader(source SampleSource) *StreamReader {
	return &StreamReader{source: source}
}

func (r *StreamReader) Read(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	frames := len(p) / 8
	if frames == 0 {
		return 0, nil
	}
	need := frames * 2
	if cap(r.buf) < need {
		r.buf = make([]float32, need)
	}
	r.buf = r.buf[:need]
	r.source.Process(r.buf)
	for i := 0; i < need; i++ {
		binary.LittleEndian.PutUint32(p[i*4:], math.Float32bits(r.buf[i]))
	}
	return frames * 8, nil
}

func (r *StreamReader) Close() error { return nil }
