// Package keymap holds the keyboard layout of the steno machine: which
// physical keys produce which steno keys.
//
// A keymap is written action first, the way users think about it:
//
//	"S-":         ["q", "a"]
//	"arpeggiate": ["space"]
//	"no-op":      ["z", "x"]
//
// and compiled into key-first bindings for the machine.
package keymap

import (
	"sort"

	"stenokb/internal/capture"
)

type Keymap struct {
	actions map[string][]string
}

// New builds a keymap from action -> keys. Key names are normalized.
func New(actions map[string][]string) *Keymap {
	m := &Keymap{actions: make(map[string][]string, len(actions))}
	for action, keys := range actions {
		norm := make([]string, 0, len(keys))
		for _, k := range keys {
			if k = capture.CanonicalName(k); k != "" {
				norm = append(norm, k)
			}
		}
		m.actions[action] = norm
	}
	return m
}

// Bindings returns key -> action. A key listed under several actions keeps
// the last action in sorted action order.
func (m *Keymap) Bindings() map[string]string {
	names := m.Actions()
	out := make(map[string]string)
	for _, action := range names {
		for _, k := range m.actions[action] {
			out[k] = action
		}
	}
	return out
}

func (m *Keymap) Actions() []string {
	names := make([]string, 0, len(m.actions))
	for a := range m.actions {
		names = append(names, a)
	}
	sort.Strings(names)
	return names
}

// Keys returns the keys bound to action.
func (m *Keymap) Keys(action string) []string {
	return append([]string(nil), m.actions[action]...)
}

// Default is the standard English stenotype layout on a QWERTY keyboard.
func Default() *Keymap {
	return New(map[string][]string{
		"#":          {"1", "2", "3", "4", "5", "6", "7", "8", "9", "0", "-", "="},
		"S-":         {"q", "a"},
		"T-":         {"w"},
		"K-":         {"s"},
		"P-":         {"e"},
		"W-":         {"d"},
		"H-":         {"r"},
		"R-":         {"f"},
		"A-":         {"c"},
		"O-":         {"v"},
		"*":          {"t", "y", "g", "h"},
		"-E":         {"n"},
		"-U":         {"m"},
		"-F":         {"u"},
		"-R":         {"j"},
		"-P":         {"i"},
		"-B":         {"k"},
		"-L":         {"o"},
		"-G":         {"l"},
		"-T":         {"p"},
		"-S":         {";"},
		"-D":         {"["},
		"-Z":         {"'"},
		"arpeggiate": {"space"},
		"no-op":      {"z", "x", "b", ",", ".", "/", "]", "\\"},
	})
}
