// Package capture installs an OS-wide keyboard hook, reports raw key
// presses and releases by key name and swallows a configurable set of keys.
package capture

import "errors"

var ErrUnsupported = errors.New("keyboard capture is only supported on Windows")

// Capture is the OS keyboard hook. Handlers are called from the hook thread,
// one event at a time.
type Capture interface {
	SetHandlers(down, up func(key string))
	// SuppressKeyboard replaces the set of swallowed keys.
	SuppressKeyboard(keys []string)
	Start() error
	Cancel()
}

type Options struct {
	Debug bool
}

func New(opts Options) Capture {
	return newPlatformCapture(opts)
}
