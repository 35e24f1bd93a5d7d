package machine

import (
	"errors"
	"sort"
	"strings"
)

// ErrNullKey is the panic value for key events without a key name. It means
// the capture layer is broken; it is never returned as an error.
var ErrNullKey = errors.New("machine: key event without key")

// stenoOrder is the English stenotype key order used to sort strokes.
var stenoOrder = map[string]int{}

func init() {
	for i, k := range []string{
		"#", "S-", "T-", "K-", "P-", "W-", "H-", "R-", "A-", "O-", "*",
		"-E", "-U", "-F", "-R", "-P", "-B", "-L", "-G", "-T", "-S", "-D", "-Z",
	} {
		stenoOrder[k] = i
	}
}

// Stroke is a set of steno keys pressed together, in steno order. Keys
// outside the English layout sort after it, alphabetically.
type Stroke []string

func newStroke(set map[string]struct{}) Stroke {
	s := make(Stroke, 0, len(set))
	for k := range set {
		s = append(s, k)
	}
	sort.Slice(s, func(i, j int) bool {
		oi, iok := stenoOrder[s[i]]
		oj, jok := stenoOrder[s[j]]
		switch {
		case iok && jok:
			return oi < oj
		case iok != jok:
			return iok
		default:
			return s[i] < s[j]
		}
	})
	return s
}

func (s Stroke) Contains(key string) bool {
	for _, k := range s {
		if k == key {
			return true
		}
	}
	return false
}

func (s Stroke) String() string {
	return strings.Join(s, " ")
}

type Phase int

const (
	// PhaseIdle: no key is held.
	PhaseIdle Phase = iota
	// PhaseAccumulating: keys are held and no stroke has been recognized yet.
	PhaseAccumulating
	// PhaseDraining: a stroke was recognized and the rest of the chord is
	// being released; releases do not complete strokes until a new key goes down.
	PhaseDraining
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseAccumulating:
		return "accumulating"
	case PhaseDraining:
		return "draining"
	default:
		return "unknown"
	}
}

// Accumulator turns key events into strokes. It is not safe for concurrent
// use; Keyboard serializes access to it.
type Accumulator struct {
	held map[string]struct{}
	// key down events since the last recognized stroke
	downCount     int
	lastDownCount int
	ignore        bool
	// completing releases so far, no-op chords included
	seq uint64
}

func NewAccumulator() *Accumulator {
	return &Accumulator{held: make(map[string]struct{})}
}

// KeyDown records a key press. Auto-repeat of an already held key only
// bumps the down counter.
func (a *Accumulator) KeyDown(key string) {
	if key == "" {
		panic(ErrNullKey)
	}
	a.downCount++
	if _, ok := a.held[key]; !ok {
		a.held[key] = struct{}{}
		a.ignore = false
	}
}

// KeyUp records a key release. The first release after a new key press
// completes the stroke made of every held key, the released one included.
// ok is false when no stroke was recognized or the chord had no steno keys.
func (a *Accumulator) KeyUp(key string, table BindingTable) (stroke Stroke, ok bool) {
	if key == "" {
		panic(ErrNullKey)
	}
	if a.ignore {
		delete(a.held, key)
		return nil, false
	}
	a.lastDownCount = a.downCount
	a.seq++
	steno := make(map[string]struct{}, len(a.held))
	for k := range a.held {
		if s, bound := table.Lookup(k); bound {
			steno[s] = struct{}{}
		}
	}
	if len(steno) > 0 {
		stroke, ok = newStroke(steno), true
	}
	delete(a.held, key)
	a.downCount = 0
	a.ignore = true
	return stroke, ok
}

// SuppressLastStroke hands the down-event count of the last recognized
// stroke to emit, then forgets it.
func (a *Accumulator) SuppressLastStroke(emit func(count int)) {
	emit(a.lastDownCount)
	a.lastDownCount = 0
}

// Seq identifies the last completed chord. It advances on every completing
// release, also for chords without steno keys, so it names the chord whose
// count SuppressLastStroke reports.
func (a *Accumulator) Seq() uint64 {
	return a.seq
}

func (a *Accumulator) Phase() Phase {
	switch {
	case len(a.held) == 0:
		return PhaseIdle
	case a.ignore:
		return PhaseDraining
	default:
		return PhaseAccumulating
	}
}

// Held returns the held physical keys in sorted order.
func (a *Accumulator) Held() []string {
	out := make([]string, 0, len(a.held))
	for k := range a.held {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
