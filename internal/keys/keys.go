// Package keys turns keyboard input into press and release events and holds
// the default note layout.
package keys

import (
	"sort"
	"strings"
)

// KeyEvent is a key going down or up. Key is a single lower-case character
// for printable keys.
type KeyEvent struct {
	Key     string
	Pressed bool
}

func Press(key string) KeyEvent   { return KeyEvent{Key: Normalize(key), Pressed: true} }
func Release(key string) KeyEvent { return KeyEvent{Key: Normalize(key)} }

// Normalize lower-cases a key name so "Z" and "z" map to the same voice.
func Normalize(key string) string { return strings.ToLower(key) }

// Layout maps keys to note frequencies in Hz.
type Layout map[string]float64

// DefaultLayout is one chromatic octave and a third on the bottom QWERTY
// row, C4 on 'z' up to E5 on '/'.
func DefaultLayout() Layout {
	return Layout{
		"z": 261.63, // C4
		"s": 277.18,
		"x": 293.66,
		"d": 311.13,
		"c": 329.63,
		"v": 349.23,
		"g": 369.99,
		"b": 392.00,
		"h": 415.30,
		"n": 440.00, // A4
		"j": 466.16,
		"m": 493.88,
		",": 523.25, // C5
		".": 587.33,
		"/": 659.26,
	}
}

// Keys returns the layout's keys from lowest to highest note.
func (l Layout) Keys() []string {
	out := make([]string, 0, len(l))
	for k := range l {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool {
		if l[out[i]] != l[out[j]] {
			return l[out[i]] < l[out[j]]
		}
		return out[i] < out[j]
	})
	return out
}
