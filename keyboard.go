package synth8

import "github.com/cbegin/synth8-go/internal/keys"

// HandleKey turns a key event into VoiceOn or VoiceOff for the mapped voice.
// Unmapped keys are ignored and a press of a key already down is dropped, so
// auto-repeat does not retrigger. Control errors are logged, not returned.
func (e *Engine) HandleKey(ev KeyEvent) {
	k := keys.Normalize(ev.Key)
	e.mu.Lock()
	defer e.mu.Unlock()
	e.reapLocked()
	if ev.Pressed {
		if e.pressed[k] {
			return
		}
		id, ok := e.keymap[k]
		if !ok {
			return
		}
		e.pressed[k] = true
		if err := e.triggerLocked(id, opOn); err != nil {
			delete(e.pressed, k)
			e.logger.Printf("key %q: %v", k, err)
		}
		return
	}
	if !e.pressed[k] {
		return
	}
	delete(e.pressed, k)
	id, ok := e.keymap[k]
	if !ok {
		return
	}
	if err := e.triggerLocked(id, opOff); err != nil {
		e.logger.Printf("key %q: %v", k, err)
	}
}

// Keys returns the current key to voice id mapping.
func (e *Engine) Keys() map[string]string {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.reapLocked()
	out := make(map[string]string, len(e.keymap))
	for k, id := range e.keymap {
		out[k] = id
	}
	return out
}
