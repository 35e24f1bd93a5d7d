// Package keyboard types synthetic keystrokes, used to take back output of a
// stroke that has been undone.
package keyboard

import (
	"fmt"

	"github.com/micmonay/keybd_event"
)

type KeySimulator interface {
	Backspaces(n int) error
}

type SystemKeySimulator struct {
	Debug bool
}

func NewSystemKeySimulator(debug bool) KeySimulator {
	return &SystemKeySimulator{Debug: debug}
}

func (s *SystemKeySimulator) Backspaces(n int) error {
	if n <= 0 {
		return nil
	}
	kb, err := keybd_event.NewKeyBonding()
	if err != nil {
		return err
	}
	kb.SetKeys(keybd_event.VK_BACKSPACE)
	for i := 0; i < n; i++ {
		if err := kb.Launching(); err != nil {
			return fmt.Errorf("backspace %d/%d: %w", i+1, n, err)
		}
	}
	if s.Debug {
		fmt.Printf("[keyboard] sent %d backspaces\n", n)
	}
	return nil
}

// Corrector adapts a KeySimulator to the machine's undo hook, which has no
// error return.
func Corrector(sim KeySimulator, debug bool) func(count int) {
	return func(count int) {
		if err := sim.Backspaces(count); err != nil && debug {
			fmt.Printf("[keyboard] backspaces failed: %v\n", err)
		}
	}
}
