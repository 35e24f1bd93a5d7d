package capture

import "sync"

// hookState tracks the hook thread of one capture. Cancel may arrive before
// the hook is installed; the thread then has to remove the hook itself.
type hookState struct {
	mu        sync.Mutex
	threadID  uintptr
	cancelled bool
}

func (s *hookState) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.threadID = 0
	s.cancelled = false
}

// installed records the hook thread. It reports false when the capture was
// cancelled in the meantime and the hook must be removed right away.
func (s *hookState) installed(tid uintptr) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancelled {
		return false
	}
	s.threadID = tid
	return true
}

func (s *hookState) removed() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.threadID = 0
}

// cancel marks the capture cancelled and returns the thread to stop, or 0
// when no hook is running.
func (s *hookState) cancel() uintptr {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelled = true
	return s.threadID
}
