//go:build windows

package capture

import (
	"fmt"
	"runtime"
	"sync"
	"syscall"
	"time"
	"unsafe"
)

const (
	whKeyboardLL  = 13
	llkhfInjected = 0x00000010
	wmQuit        = 0x0012
	wmKeyDown     = 0x0100
	wmKeyUp       = 0x0101
	wmSysKeyDown  = 0x0104
	wmSysKeyUp    = 0x0105

	installTimeout = 2 * time.Second
)

var (
	user32                 = syscall.NewLazyDLL("user32.dll")
	kernel32               = syscall.NewLazyDLL("kernel32.dll")
	procSetWindowsHookExW  = user32.NewProc("SetWindowsHookExW")
	procUnhookWindowsHook  = user32.NewProc("UnhookWindowsHookEx")
	procCallNextHookEx     = user32.NewProc("CallNextHookEx")
	procGetMessageW        = user32.NewProc("GetMessageW")
	procPostThreadMessageW = user32.NewProc("PostThreadMessageW")
	procGetCurrentThreadID = kernel32.NewProc("GetCurrentThreadId")
)

type kbdllHookStruct struct {
	VkCode      uint32
	ScanCode    uint32
	Flags       uint32
	Time        uint32
	DwExtraInfo uintptr
}

type platformCapture struct {
	opts Options

	mu         sync.Mutex
	down, up   func(key string)
	suppressed map[uint32]bool
	hook       hookState
}

// The hook procedure is a plain C callback, so the capture it serves has to
// be reachable from package state. Only one capture can be installed at a time.
var (
	activeMu      sync.Mutex
	activeCapture *platformCapture

	hookCallbackOnce sync.Once
	hookCallback     uintptr
)

func newPlatformCapture(opts Options) Capture {
	return &platformCapture{
		opts:       opts,
		suppressed: make(map[uint32]bool),
	}
}

func (c *platformCapture) SetHandlers(down, up func(key string)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.down, c.up = down, up
}

func (c *platformCapture) SuppressKeyboard(keys []string) {
	m := make(map[uint32]bool, len(keys))
	for _, k := range keys {
		vk, err := VirtualKey(k)
		if err != nil {
			if c.opts.Debug {
				fmt.Printf("[capture] cannot suppress %q: %v\n", k, err)
			}
			continue
		}
		m[vk] = true
	}
	c.mu.Lock()
	c.suppressed = m
	c.mu.Unlock()
	if c.opts.Debug {
		fmt.Printf("[capture] suppressing %d keys\n", len(m))
	}
}

func (c *platformCapture) Start() error {
	activeMu.Lock()
	if activeCapture != nil {
		activeMu.Unlock()
		return fmt.Errorf("another keyboard capture is already running")
	}
	activeCapture = c
	activeMu.Unlock()

	c.hook.reset()

	hookCallbackOnce.Do(func() {
		hookCallback = syscall.NewCallback(lowLevelKeyboardProc)
	})

	errCh := make(chan error, 1)
	go func() {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		defer clearActive(c)

		tid, _, _ := procGetCurrentThreadID.Call()
		h, _, e := procSetWindowsHookExW.Call(uintptr(whKeyboardLL), hookCallback, 0, 0)
		if h == 0 {
			errCh <- fmt.Errorf("SetWindowsHookExW failed: %v", e)
			return
		}
		if !c.hook.installed(tid) {
			// Start already gave up on this hook.
			procUnhookWindowsHook.Call(h)
			errCh <- fmt.Errorf("keyboard capture cancelled during install")
			return
		}
		errCh <- nil

		var msg struct {
			Hwnd    uintptr
			Message uint32
			WParam  uintptr
			LParam  uintptr
			Time    uint32
			PtX     int32
			PtY     int32
		}
		for {
			ret, _, _ := procGetMessageW.Call(uintptr(unsafe.Pointer(&msg)), 0, 0, 0)
			// 0 is WM_QUIT, -1 an error.
			if int32(ret) <= 0 {
				break
			}
		}
		procUnhookWindowsHook.Call(h)
		c.hook.removed()
		if c.opts.Debug {
			fmt.Println("[capture] hook removed")
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-time.After(installTimeout):
		c.Cancel()
		return fmt.Errorf("timeout installing low-level keyboard hook")
	}
}

// Cancel asks the hook thread to remove the hook. It does not wait, so it
// is safe to call from a key handler. A hook still being installed removes
// itself as soon as SetWindowsHookExW returns.
func (c *platformCapture) Cancel() {
	tid := c.hook.cancel()
	if tid == 0 {
		return
	}
	procPostThreadMessageW.Call(tid, wmQuit, 0, 0)
}

func clearActive(c *platformCapture) {
	activeMu.Lock()
	if activeCapture == c {
		activeCapture = nil
	}
	activeMu.Unlock()
}

func lowLevelKeyboardProc(nCode int, wParam uintptr, lParam uintptr) uintptr {
	activeMu.Lock()
	c := activeCapture
	activeMu.Unlock()
	if c == nil || nCode < 0 {
		return callNextHook(nCode, wParam, lParam)
	}
	k := (*kbdllHookStruct)(unsafe.Pointer(lParam))

	// Let synthesized input through untouched, including our own backspaces.
	if (k.Flags & llkhfInjected) != 0 {
		return callNextHook(nCode, wParam, lParam)
	}
	name, ok := KeyName(k.VkCode)
	if !ok {
		return callNextHook(nCode, wParam, lParam)
	}

	c.mu.Lock()
	down, up := c.down, c.up
	suppressed := c.suppressed[k.VkCode]
	c.mu.Unlock()

	switch uint32(wParam) {
	case wmKeyDown, wmSysKeyDown:
		if down != nil {
			down(name)
		}
	case wmKeyUp, wmSysKeyUp:
		if up != nil {
			up(name)
		}
	}
	if suppressed {
		return 1
	}
	return callNextHook(nCode, wParam, lParam)
}

func callNextHook(nCode int, wParam uintptr, lParam uintptr) uintptr {
	ret, _, _ := procCallNextHookEx.Call(0, uintptr(nCode), wParam, lParam)
	return ret
}
