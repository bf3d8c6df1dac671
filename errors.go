package synth8

import (
	"errors"

	"github.com/cbegin/synth8-go/internal/voice"
)

var (
	ErrDuplicateID   = errors.New("voice id already registered")
	ErrSampleRate    = errors.New("voice sample rate does not match engine")
	ErrEmptyChain    = voice.ErrEmptyChain
	ErrUnknownVoice  = errors.New("unknown voice id")
	ErrQueueFull     = errors.New("control queue full")
	ErrNilVoice      = errors.New("voice is nil")
	ErrInvalidOption = errors.New("invalid engine option")
	ErrRunning       = errors.New("engine is running")
)
