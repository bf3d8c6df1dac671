package analysis

import "sync"

// Ring keeps the most recent mono samples of a stereo stream for display.
// Tap runs on the audio goroutine and only copies.
type Ring struct {
	mu       sync.Mutex
	buf      []float32
	writePos int
}

func NewRing(size int) *Ring {
	return &Ring{buf: make([]float32, max(size, 1))}
}

// Tap appends interleaved stereo frames, averaged to mono.
func (r *Ring) Tap(stereo []float32) {
	r.mu.Lock()
	for i := 0; i+1 < len(stereo); i += 2 {
		r.buf[r.writePos] = (stereo[i] + stereo[i+1]) * 0.5
		r.writePos = (r.writePos + 1) % len(r.buf)
	}
	r.mu.Unlock()
}

// Snapshot copies the latest n samples, oldest first.
func (r *Ring) Snapshot(n int) []float32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	size := len(r.buf)
	n = min(n, size)
	out := make([]float32, n)
	start := (r.writePos - n + size) % size
	for i := range out {
		out[i] = r.buf[(start+i)%size]
	}
	return out
}
