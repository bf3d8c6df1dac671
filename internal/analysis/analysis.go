// Package analysis measures rendered audio: level, pitch and spectrum.
package analysis

import (
	"errors"
	"math"
	"math/cmplx"
	"sync"

	"github.com/ktye/fft"
	"github.com/viterin/vek/vek32"
)

var ErrSize = errors.New("fft size must be a power of two and no larger than the input")

// Peak returns the largest absolute sample value.
func Peak(x []float32) float32 {
	if len(x) == 0 {
		return 0
	}
	abs := make([]float32, len(x))
	copy(abs, x)
	vek32.Abs_Inplace(abs)
	return vek32.Max(abs)
}

func RMS(x []float32) float64 {
	if len(x) == 0 {
		return 0
	}
	sq := make([]float32, len(x))
	vek32.Mul_Into(sq, x, x)
	return math.Sqrt(float64(vek32.Mean(sq)))
}

// ZeroCrossingRate estimates the fundamental of a periodic signal from the
// number of rising zero crossings per second.
func ZeroCrossingRate(x []float32, sampleRate int) float64 {
	first, last, n := -1, -1, 0
	for i := 1; i < len(x); i++ {
		if x[i-1] <= 0 && x[i] > 0 {
			if first < 0 {
				first = i
			}
			last = i
			n++
		}
	}
	if n < 2 {
		return 0
	}
	return float64(n-1) * float64(sampleRate) / float64(last-first)
}

// FindZeroCrossing returns the first rising zero crossing within searchLen
// samples, or 0.
func FindZeroCrossing(x []float32, searchLen int) int {
	searchLen = min(searchLen, len(x)-2)
	for i := 1; i < searchLen; i++ {
		if x[i-1] <= 0 && x[i] > 0 {
			return i
		}
	}
	return 0
}

var (
	plansMu sync.Mutex
	plans   = map[int]fft.FFT{}
)

func plan(n int) (fft.FFT, error) {
	plansMu.Lock()
	defer plansMu.Unlock()
	if p, ok := plans[n]; ok {
		return p, nil
	}
	p, err := fft.New(n)
	if err != nil {
		return p, err
	}
	plans[n] = p
	return p, nil
}

// Spectrum returns the magnitudes of bins 0..n/2 of the Hann-windowed last n
// samples of x, normalized by n.
func Spectrum(x []float32, n int) ([]float64, error) {
	if n < 2 || n&(n-1) != 0 || n > len(x) {
		return nil, ErrSize
	}
	p, err := plan(n)
	if err != nil {
		return nil, err
	}
	buf := make([]complex128, n)
	tail := x[len(x)-n:]
	for i := range buf {
		w := 0.5 * (1.0 - math.Cos(2.0*math.Pi*float64(i)/float64(n-1)))
		buf[i] = complex(float64(tail[i])*w, 0)
	}
	buf = p.Transform(buf)
	mags := make([]float64, n/2+1)
	for i := range mags {
		mags[i] = cmplx.Abs(buf[i]) / float64(n)
	}
	return mags, nil
}

// DominantFrequency returns the frequency of the strongest non-DC bin,
// refined by parabolic interpolation over its neighbours.
func DominantFrequency(x []float32, sampleRate, n int) (float64, error) {
	mags, err := Spectrum(x, n)
	if err != nil {
		return 0, err
	}
	best := 1
	for i := 2; i < len(mags)-1; i++ {
		if mags[i] > mags[best] {
			best = i
		}
	}
	offset := 0.0
	if best > 0 && best < len(mags)-1 {
		a, b, c := mags[best-1], mags[best], mags[best+1]
		if d := a - 2*b + c; d != 0 {
			offset = 0.5 * (a - c) / d
		}
	}
	return (float64(best) + offset) * float64(sampleRate) / float64(n), nil
}

// LogBands folds a spectrum into count bars spaced logarithmically from the
// first bin up to maxHz, each scaled to 0..1 over an 80 dB range.
func LogBands(mags []float64, sampleRate, count int, maxHz float64) []float64 {
	bands := make([]float64, count)
	half := len(mags) - 1
	if half < 2 || count <= 0 {
		return bands
	}
	maxBin := min(int(float64(half)*maxHz/(float64(sampleRate)/2)), half)
	maxBin = max(maxBin, 2)
	logMin, logMax := 0.0, math.Log(float64(maxBin))
	for i := range bands {
		start := int(math.Exp(logMin + float64(i)/float64(count)*(logMax-logMin)))
		end := int(math.Exp(logMin + float64(i+1)/float64(count)*(logMax-logMin)))
		end = min(max(end, start+1), half)
		if start >= end {
			continue
		}
		sum := 0.0
		for b := start; b < end; b++ {
			sum += mags[b]
		}
		db := 20.0 * math.Log10(sum/float64(end-start)+1e-10)
		bands[i] = min(max((db+80.0)/80.0, 0), 1)
	}
	return bands
}
