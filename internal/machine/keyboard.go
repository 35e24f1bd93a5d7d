// Package machine uses a computer keyboard (preferably NKRO) as a steno
// machine.
//
// Keyboard owns the OS capture, compiles the keymap into a BindingTable,
// keeps the OS suppression set in sync with it and feeds key events through
// an Accumulator, which recognizes strokes.
//
// Accumulator states, derived from its fields:
//
//	idle          no key held
//	accumulating  keys held, a new key went down since the last stroke
//	draining      a stroke was recognized, the rest of the chord is being
//	              released; releases are ignored until the next new key press
//
// A stroke completes on the first release after a new key press and contains
// every held key, the released one included. The arpeggiate key is bound as
// a no-op, so releasing it completes whatever else is held through the same
// path.
package machine

import (
	"fmt"
	"sync"

	"stenokb/internal/capture"
	"stenokb/internal/config"
)

// Keymap supplies raw bindings: physical key name to steno key name,
// "no-op" or "arpeggiate".
type Keymap interface {
	Bindings() map[string]string
}

type State int

const (
	StateStopped State = iota
	StateInitializing
	StateReady
	StateError
)

func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// Option describes a machine option for configuration front ends.
type Option struct {
	Default interface{}
	Parse   func(string) (interface{}, error)
}

// OptionInfo returns the options understood by the keyboard machine.
func OptionInfo() map[string]Option {
	return map[string]Option{
		"arpeggiate": {
			Default: false,
			Parse: func(s string) (interface{}, error) {
				return config.ParseBoolString(s)
			},
		},
	}
}

type Options struct {
	Arpeggiate bool
	// NewCapture builds the OS capture on each Start. Defaults to capture.New.
	NewCapture func() capture.Capture
	// OnStroke receives every recognized stroke with its chord sequence
	// number (see SuppressStroke). It runs inside the key handler and must
	// not call back into the Keyboard.
	OnStroke func(s Stroke, seq uint64)
	// OnState is called outside the machine lock after each state change.
	OnState func(State)
	Debug   bool
}

type Keyboard struct {
	opts Options

	mu            sync.Mutex
	keymap        Keymap
	arpeggiate    bool
	table         BindingTable
	arpeggiateKey string
	suppressed    bool
	capture       capture.Capture
	acc           *Accumulator
	state         State
}

func NewKeyboard(km Keymap, opts Options) *Keyboard {
	if opts.NewCapture == nil {
		debug := opts.Debug
		opts.NewCapture = func() capture.Capture {
			return capture.New(capture.Options{Debug: debug})
		}
	}
	k := &Keyboard{
		opts:       opts,
		keymap:     km,
		arpeggiate: opts.Arpeggiate,
		acc:        NewAccumulator(),
	}
	k.updateBindings()
	return k
}

// Start installs the keyboard capture. On failure the machine goes through
// the error state and nothing is left running.
func (k *Keyboard) Start() error {
	k.mu.Lock()
	if k.capture != nil {
		k.mu.Unlock()
		return nil
	}
	k.state = StateInitializing
	c := k.opts.NewCapture()
	c.SetHandlers(k.keyDown, k.keyUp)
	k.capture = c
	k.pushSuppression()
	k.mu.Unlock()
	k.notifyState(StateInitializing)

	if err := c.Start(); err != nil {
		c.Cancel()
		k.mu.Lock()
		current := k.capture == c
		if current {
			k.capture = nil
			k.state = StateError
		}
		k.mu.Unlock()
		// A concurrent Stop already reported the stopped state.
		if current {
			k.notifyState(StateError)
		}
		return fmt.Errorf("start capture: %w", err)
	}

	k.mu.Lock()
	if k.capture != c {
		k.mu.Unlock()
		// Stopped while the hook was being installed.
		c.Cancel()
		return nil
	}
	k.state = StateReady
	k.mu.Unlock()
	k.notifyState(StateReady)
	return nil
}

// Stop clears OS suppression and removes the capture. Calling it on a
// stopped machine only reports the stopped state.
func (k *Keyboard) Stop() {
	k.mu.Lock()
	c := k.capture
	if c != nil {
		k.suppressed = false
		k.pushSuppression()
		k.capture = nil
	}
	k.state = StateStopped
	k.mu.Unlock()
	k.notifyState(StateStopped)

	// Cancel outside the lock: the capture may be blocked delivering an
	// event to keyDown/keyUp.
	if c != nil {
		c.Cancel()
	}
}

// SetSuppression toggles OS suppression of bound keys. While stopped only
// the flag changes; it is applied on the next Start.
func (k *Keyboard) SetSuppression(enabled bool) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.suppressed = enabled
	k.pushSuppression()
}

func (k *Keyboard) SetKeymap(km Keymap) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.keymap = km
	k.updateBindings()
}

func (k *Keyboard) SetArpeggiate(enabled bool) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.arpeggiate = enabled
	k.updateBindings()
}

// SuppressLastStroke calls emit with the number of key presses that made
// up the last recognized stroke, so that many backspaces can undo it. The
// count is consumed: a second call before the next stroke reports 0.
func (k *Keyboard) SuppressLastStroke(emit func(count int)) {
	var n int
	k.mu.Lock()
	k.acc.SuppressLastStroke(func(count int) { n = count })
	k.mu.Unlock()
	emit(n)
}

// SuppressStroke is SuppressLastStroke for the chord numbered seq. If another
// chord completed since, emit is not called and false is returned.
func (k *Keyboard) SuppressStroke(seq uint64, emit func(count int)) bool {
	var n int
	k.mu.Lock()
	if k.acc.Seq() != seq {
		k.mu.Unlock()
		return false
	}
	k.acc.SuppressLastStroke(func(count int) { n = count })
	k.mu.Unlock()
	emit(n)
	return true
}

func (k *Keyboard) State() State {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.state
}

// ArpeggiateKey returns the physical key bound to arpeggiate, if arpeggiate
// is enabled and bound.
func (k *Keyboard) ArpeggiateKey() (string, bool) {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.arpeggiateKey, k.arpeggiateKey != ""
}

func (k *Keyboard) Phase() Phase {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.acc.Phase()
}

// updateBindings and pushSuppression expect k.mu to be held.
func (k *Keyboard) updateBindings() {
	var raw map[string]string
	if k.keymap != nil {
		raw = k.keymap.Bindings()
	}
	k.table, k.arpeggiateKey, _ = Rebuild(raw, k.arpeggiate)
	if k.opts.Debug {
		fmt.Printf("[machine] bindings rebuilt: %d keys, arpeggiate=%v key=%q\n", len(k.table), k.arpeggiate, k.arpeggiateKey)
	}
	k.pushSuppression()
}

func (k *Keyboard) pushSuppression() {
	if k.capture == nil {
		return
	}
	k.capture.SuppressKeyboard(SuppressedKeys(k.table, k.suppressed))
}

func (k *Keyboard) notifyState(s State) {
	if k.opts.OnState != nil {
		k.opts.OnState(s)
	}
}

func (k *Keyboard) keyDown(key string) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.acc.KeyDown(key)
}

func (k *Keyboard) keyUp(key string) {
	k.mu.Lock()
	defer k.mu.Unlock()
	stroke, ok := k.acc.KeyUp(key, k.table)
	if !ok {
		return
	}
	if k.opts.Debug {
		fmt.Printf("[machine] stroke %s\n", stroke)
	}
	if k.opts.OnStroke != nil {
		k.opts.OnStroke(stroke, k.acc.Seq())
	}
}
