// Package synth8 is a small modular synthesizer. Voices are chains of
// oscillators, filters and amplifiers driven by envelopes and LFOs; the
// Engine mixes them in real time and maps keyboard keys to them.
package synth8

import (
	"fmt"
	"log"
	"math"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/viterin/vek/vek32"

	"github.com/cbegin/synth8-go/internal/audio"
	"github.com/cbegin/synth8-go/internal/effects"
	"github.com/cbegin/synth8-go/internal/keys"
	"github.com/cbegin/synth8-go/internal/voice"
)

type (
	Voice     = voice.Voice
	GateState = voice.GateState
	KeyEvent  = keys.KeyEvent
)

type opKind uint8

const (
	opAdd opKind = iota
	opRemove
	opOn
	opOff
)

type command struct {
	op opKind
	e  *entry
}

// entry is one registered voice. pending counts TriggerOn commands queued
// for it; the render goroutine sets it to retired once the voice leaves the
// live set, and never retires an entry with a trigger still queued.
type entry struct {
	id      string
	key     string
	v       voice.Voice
	pending atomic.Int32
}

const retired = -1

func (en *entry) gone() bool {
	p := en.pending.Load()
	return p == retired || (p == 0 && en.v.State() == voice.Removed)
}

// hold reserves a queued TriggerOn. It fails once the entry is retired.
func (en *entry) hold() bool {
	for {
		p := en.pending.Load()
		if p == retired {
			return false
		}
		if en.pending.CompareAndSwap(p, p+1) {
			return true
		}
	}
}

type instrument struct {
	key   string
	build func() (voice.Voice, error)
}

// Engine owns the voice registry and renders the mix.
//
// Control methods may be called from any goroutine. They validate against
// the control-side registry and queue commands; the render goroutine applies
// queued commands at the start of each block and never waits on a lock held
// by the control side.
type Engine struct {
	sampleRate int
	blockSize  int
	gain       float64
	logger     *log.Logger
	transport  audio.Transport
	effects    *effects.Chain
	sampleTap  func([]float32)

	mu          sync.Mutex
	registry    map[string]*entry
	keymap      map[string]string
	pressed     map[string]bool
	instruments map[string]*instrument

	cmds     chan command
	running  atomic.Bool
	inFlight atomic.Int32

	// render goroutine only
	live    []*entry
	scratch []float32
	mono    []float32
	monoPos int
}

func New(opts ...Option) (*Engine, error) {
	cfg := defaultEngineConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	t := cfg.transport
	if t == nil {
		var err error
		if t, err = audio.NewBackend(cfg.backend, cfg.sampleRate, cfg.blockSize); err != nil {
			return nil, err
		}
	}
	logger := cfg.logger
	if logger == nil {
		logger = discardLogger()
	}
	return &Engine{
		sampleRate:  cfg.sampleRate,
		blockSize:   cfg.blockSize,
		gain:        cfg.gain,
		logger:      logger,
		transport:   t,
		effects:     cfg.effects,
		sampleTap:   cfg.sampleTap,
		registry:    make(map[string]*entry),
		keymap:      make(map[string]string),
		pressed:     make(map[string]bool),
		instruments: make(map[string]*instrument),
		cmds:        make(chan command, cfg.queueSize),
		scratch:     make([]float32, cfg.blockSize),
		mono:        make([]float32, cfg.blockSize),
		monoPos:     cfg.blockSize,
	}, nil
}

func (e *Engine) SampleRate() int { return e.sampleRate }
func (e *Engine) BlockSize() int  { return e.blockSize }
func (e *Engine) Running() bool   { return e.running.Load() }

// Transport returns the audio output the engine plays through.
func (e *Engine) Transport() audio.Transport { return e.transport }

func (e *Engine) checkVoice(v voice.Voice, id string) error {
	if v == nil {
		return fmt.Errorf("%w: %q", ErrNilVoice, id)
	}
	if v.SampleRate() != e.sampleRate {
		return fmt.Errorf("%w: voice %q at %d Hz, engine at %d Hz", ErrSampleRate, id, v.SampleRate(), e.sampleRate)
	}
	if err := voice.Validate(v); err != nil {
		return fmt.Errorf("voice %q: %w", id, err)
	}
	return nil
}

// AddVoice registers v under id and, when key is not empty, maps the key to
// it. Keys are case-insensitive; a key already mapped is re-pointed to id.
func (e *Engine) AddVoice(v voice.Voice, id, key string) error {
	if err := e.checkVoice(v, id); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.addLocked(v, id, key)
}

func (e *Engine) addLocked(v voice.Voice, id, key string) error {
	e.reapLocked()
	if _, ok := e.registry[id]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateID, id)
	}
	en := &entry{id: id, key: keys.Normalize(key), v: v}
	if err := e.push(command{op: opAdd, e: en}); err != nil {
		return err
	}
	e.registry[id] = en
	if en.key != "" {
		e.keymap[en.key] = id
	}
	return nil
}

// AddInstrument registers a voice built by build and keeps build so that
// triggering id after its voice has been removed builds a fresh one.
func (e *Engine) AddInstrument(id, key string, build func() (voice.Voice, error)) error {
	if build == nil {
		return fmt.Errorf("%w: %q has no builder", ErrNilVoice, id)
	}
	v, err := build()
	if err != nil {
		return fmt.Errorf("build voice %q: %w", id, err)
	}
	if err := e.checkVoice(v, id); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.addLocked(v, id, key); err != nil {
		return err
	}
	e.instruments[id] = &instrument{key: key, build: build}
	return nil
}

// RemoveVoice unregisters id and any key mapped to it. Removing an unknown id
// is a no-op.
func (e *Engine) RemoveVoice(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.reapLocked()
	delete(e.instruments, id)
	en, ok := e.registry[id]
	if !ok {
		e.unmapLocked(id)
		return nil
	}
	if err := e.push(command{op: opRemove, e: en}); err != nil {
		return err
	}
	delete(e.registry, id)
	e.unmapLocked(id)
	return nil
}

// VoiceOn triggers id. An unknown id is reported as ErrUnknownVoice and
// leaves the engine untouched.
func (e *Engine) VoiceOn(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.triggerLocked(id, opOn)
}

func (e *Engine) VoiceOff(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.triggerLocked(id, opOff)
}

func (e *Engine) triggerLocked(id string, op opKind) error {
	e.reapLocked()
	en := e.registry[id]
	if op == opOn {
		if en != nil && !en.hold() {
			// Retired since the reap above.
			e.reapLocked()
			en = nil
		}
		if inst, ok := e.instruments[id]; ok && en == nil {
			if err := e.respawnLocked(id, inst); err != nil {
				return err
			}
			en = e.registry[id]
			en.hold()
		}
	}
	if en == nil {
		return fmt.Errorf("%w: %q", ErrUnknownVoice, id)
	}
	if err := e.push(command{op: op, e: en}); err != nil {
		if op == opOn {
			en.pending.Add(-1)
		}
		return err
	}
	return nil
}

func (e *Engine) respawnLocked(id string, inst *instrument) error {
	v, err := inst.build()
	if err != nil {
		return fmt.Errorf("rebuild voice %q: %w", id, err)
	}
	if err := e.checkVoice(v, id); err != nil {
		return err
	}
	return e.addLocked(v, id, inst.key)
}

// reapLocked drops registry entries whose voices the render goroutine has
// retired.
func (e *Engine) reapLocked() {
	for id, en := range e.registry {
		if !en.gone() {
			continue
		}
		delete(e.registry, id)
		if _, ok := e.instruments[id]; !ok {
			e.unmapLocked(id)
		}
	}
}

func (e *Engine) unmapLocked(id string) {
	for k, target := range e.keymap {
		if target == id {
			delete(e.keymap, k)
		}
	}
}

func (e *Engine) push(c command) error {
	select {
	case e.cmds <- c:
		return nil
	default:
		return ErrQueueFull
	}
}

func (e *Engine) HasVoice(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.reapLocked()
	_, ok := e.registry[id]
	return ok
}

// VoiceIDs returns the registered ids in sorted order.
func (e *Engine) VoiceIDs() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.reapLocked()
	ids := make([]string, 0, len(e.registry))
	for id := range e.registry {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (e *Engine) VoiceState(id string) (GateState, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.reapLocked()
	en, ok := e.registry[id]
	if !ok {
		return voice.Removed, false
	}
	return en.v.State(), true
}

// Play starts the transport. Calling Play while running is a no-op.
func (e *Engine) Play() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running.Load() {
		return nil
	}
	e.running.Store(true)
	if err := e.transport.Start(e); err != nil {
		e.running.Store(false)
		return fmt.Errorf("start audio: %w", err)
	}
	return nil
}

// Stop stops the transport and waits, bounded, for a block in progress to
// finish. It is safe to call more than once.
func (e *Engine) Stop() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.running.Swap(false) {
		return nil
	}
	err := e.transport.Stop()
	deadline := time.Now().Add(stopTimeout)
	for e.inFlight.Load() > 0 && time.Now().Before(deadline) {
		time.Sleep(100 * time.Microsecond)
	}
	clear(e.pressed)
	if err != nil {
		return fmt.Errorf("stop audio: %w", err)
	}
	return nil
}

// Process fills dst with interleaved stereo frames. It is the engine's
// audio.SampleSource and renders silence while the engine is stopped.
func (e *Engine) Process(dst []float32) {
	e.inFlight.Add(1)
	defer e.inFlight.Add(-1)
	if !e.running.Load() {
		clear(dst)
		return
	}
	e.fill(dst)
}

// fill copies mono blocks into both channels, rendering a new block each
// time the previous one is used up.
func (e *Engine) fill(dst []float32) {
	i := 0
	for ; i+1 < len(dst); i += 2 {
		if e.monoPos == len(e.mono) {
			e.renderBlock(e.mono)
			e.monoPos = 0
		}
		s := e.mono[e.monoPos]
		e.monoPos++
		dst[i], dst[i+1] = s, s
	}
	if i < len(dst) {
		dst[i] = 0
	}
	if e.sampleTap != nil {
		e.sampleTap(dst)
	}
}

// RenderBlock applies queued commands and renders len(dst) mono samples as a
// single block. It must not run concurrently with a started transport.
func (e *Engine) RenderBlock(dst []float32) {
	e.renderBlock(dst)
}

func (e *Engine) renderBlock(dst []float32) {
	e.drain()
	clear(dst)
	if cap(e.scratch) < len(dst) {
		e.scratch = make([]float32, len(dst))
	}
	buf := e.scratch[:len(dst)]
	k := 0
	for _, en := range e.live {
		if !en.v.State().Sounding() {
			continue
		}
		k++
		en.v.Render(buf)
		vek32.Add_Inplace(dst, buf)
	}
	if k > 0 {
		vek32.MulNumber_Inplace(dst, float32(e.gain/math.Sqrt(float64(k))))
	}
	if e.effects != nil {
		e.effects.Process(dst)
	}
	for i, v := range dst {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			dst[i] = 0
		}
	}
	e.prune()
}

func (e *Engine) drain() {
	for range cap(e.cmds) {
		select {
		case c := <-e.cmds:
			e.apply(c)
		default:
			return
		}
	}
}

func (e *Engine) apply(c command) {
	switch c.op {
	case opAdd:
		e.live = append(e.live, c.e)
	case opRemove:
		for i, en := range e.live {
			if en == c.e {
				e.live = append(e.live[:i], e.live[i+1:]...)
				break
			}
		}
		c.e.pending.Store(retired)
	case opOn:
		// A voice that went Removed while this trigger was queued is
		// still live and comes back to Active.
		if c.e.pending.Load() > 0 {
			c.e.pending.Add(-1)
			c.e.v.TriggerOn()
		}
	case opOff:
		if c.e.pending.Load() != retired {
			c.e.v.TriggerOff()
		}
	}
}

func (e *Engine) prune() {
	kept := e.live[:0]
	for _, en := range e.live {
		if en.v.State() == voice.Removed && en.pending.CompareAndSwap(0, retired) {
			continue
		}
		kept = append(kept, en)
	}
	clear(e.live[len(kept):])
	e.live = kept
}
