package synth8

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Render renders seconds of interleaved stereo output without a transport.
// Commands queued before the call take effect on the first block, so a
// sequence of VoiceOn, Render, VoiceOff, Render plays a note offline.
func (e *Engine) Render(seconds float64) ([]float32, error) {
	if !(seconds >= 0) || math.IsInf(seconds, 0) {
		return nil, fmt.Errorf("%w: render length %g s", ErrInvalidOption, seconds)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running.Load() {
		return nil, ErrRunning
	}
	frames := int(float64(e.sampleRate) * seconds)
	out := make([]float32, frames*2)
	e.fill(out)
	return out, nil
}

// EncodeWAVFloat32LE wraps interleaved samples in a RIFF/WAVE container
// with a 32-bit IEEE float fmt chunk.
func EncodeWAVFloat32LE(samples []float32, sampleRate int, channels int) []byte {
	const headerSize = 44
	data := len(samples) * 4
	out := make([]byte, 0, headerSize+data)
	out = riffChunk(out, headerSize-8+data)
	out = fmtChunk(out, sampleRate, channels)
	out = dataChunk(out, samples)
	return out
}

const wavFormatFloat = 3

func riffChunk(b []byte, size int) []byte {
	b = append(b, "RIFF"...)
	b = binary.LittleEndian.AppendUint32(b, uint32(size))
	return append(b, "WAVE"...)
}

func fmtChunk(b []byte, sampleRate, channels int) []byte {
	frame := channels * 4
	b = append(b, "fmt "...)
	b = binary.LittleEndian.AppendUint32(b, 16)
	b = binary.LittleEndian.AppendUint16(b, wavFormatFloat)
	b = binary.LittleEndian.AppendUint16(b, uint16(channels))
	b = binary.LittleEndian.AppendUint32(b, uint32(sampleRate))
	b = binary.LittleEndian.AppendUint32(b, uint32(sampleRate*frame))
	b = binary.LittleEndian.AppendUint16(b, uint16(frame))
	return binary.LittleEndian.AppendUint16(b, 32)
}

func dataChunk(b []byte, samples []float32) []byte {
	b = append(b, "data"...)
	b = binary.LittleEndian.AppendUint32(b, uint32(len(samples)*4))
	for _, s := range samples {
		b = binary.LittleEndian.AppendUint32(b, math.Float32bits(s))
	}
	return b
}
