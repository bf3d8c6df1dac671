//go:build !portaudio

package audio

import "fmt"

func newPortAudio(int, int) (Transport, error) {
	return nil, fmt.Errorf("%w: rebuild with -tags portaudio", ErrUnavailable)
}
