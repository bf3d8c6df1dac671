package keys

import (
	"io"
	"os"
	"sync"
	"time"

	"golang.org/x/term"
)

// DefaultHold is how long a key counts as held after its last byte arrives.
// It has to outlast the terminal's initial auto-repeat delay.
const DefaultHold = 600 * time.Millisecond

const (
	keyCtrlC = 0x03
	keyEsc   = 0x1b
)

type held struct {
	timer *time.Timer
	gen   int
}

// Terminal reads keys from a byte stream. Terminals only report presses, so
// each key is released DefaultHold after its last byte; auto-repeat keeps
// a held key down. Ctrl-C, Esc and end of input close Done.
type Terminal struct {
	r       io.Reader
	hold    time.Duration
	handler func(KeyEvent)

	mu     sync.Mutex
	held   map[string]*held
	closed bool

	done     chan struct{}
	doneOnce sync.Once
	restore  func()
}

// NewTerminal starts reading r and calls handler for every event. handler
// may be called from several goroutines, never concurrently for one key.
func NewTerminal(r io.Reader, hold time.Duration, handler func(KeyEvent)) *Terminal {
	if hold <= 0 {
		hold = DefaultHold
	}
	t := &Terminal{
		r:       r,
		hold:    hold,
		handler: handler,
		held:    make(map[string]*held),
		done:    make(chan struct{}),
	}
	go t.read()
	return t
}

// OpenStdin switches stdin to raw mode and reads keys from it. Close restores
// the terminal.
func OpenStdin(hold time.Duration, handler func(KeyEvent)) (*Terminal, error) {
	fd := int(os.Stdin.Fd())
	old, err := term.MakeRaw(fd)
	if err != nil {
		return nil, err
	}
	t := NewTerminal(os.Stdin, hold, handler)
	t.restore = func() { _ = term.Restore(fd, old) }
	return t, nil
}

// Done is closed when the user asks to quit or input ends.
func (t *Terminal) Done() <-chan struct{} { return t.done }

func (t *Terminal) read() {
	buf := make([]byte, 16)
	for {
		n, err := t.r.Read(buf)
		for _, b := range buf[:n] {
			switch {
			case b == keyCtrlC || b == keyEsc:
				t.quit()
				return
			case b >= 0x20 && b < 0x7f:
				t.key(Normalize(string(rune(b))))
			}
		}
		if err != nil {
			t.quit()
			return
		}
	}
}

func (t *Terminal) key(k string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	h, ok := t.held[k]
	if ok {
		h.timer.Stop()
		h.gen++
	} else {
		h = &held{}
		t.held[k] = h
		t.handler(KeyEvent{Key: k, Pressed: true})
	}
	gen := h.gen
	h.timer = time.AfterFunc(t.hold, func() { t.expire(k, gen) })
}

func (t *Terminal) expire(k string, gen int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	h, ok := t.held[k]
	if !ok || h.gen != gen || t.closed {
		return
	}
	delete(t.held, k)
	t.handler(KeyEvent{Key: k})
}

func (t *Terminal) quit() {
	t.doneOnce.Do(func() { close(t.done) })
}

// Close releases every held key and restores the terminal. The reader
// goroutine exits on the next byte or end of input.
func (t *Terminal) Close() error {
	t.mu.Lock()
	if !t.closed {
		t.closed = true
		for k, h := range t.held {
			h.timer.Stop()
			t.handler(KeyEvent{Key: k})
		}
		clear(t.held)
	}
	t.mu.Unlock()
	t.quit()
	if t.restore != nil {
		t.restore()
		t.restore = nil
	}
	return nil
}
