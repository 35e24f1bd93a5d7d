//go:build !windows

package capture

type unsupportedCapture struct{}

func newPlatformCapture(opts Options) Capture {
	return &unsupportedCapture{}
}

func (c *unsupportedCapture) SetHandlers(down, up func(key string)) {}

func (c *unsupportedCapture) SuppressKeyboard(keys []string) {}

func (c *unsupportedCapture) Start() error {
	return ErrUnsupported
}

func (c *unsupportedCapture) Cancel() {}
