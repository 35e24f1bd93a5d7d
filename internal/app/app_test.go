package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"stenokb/internal/capture"
	"stenokb/internal/config"
	"stenokb/internal/machine"
	"stenokb/internal/strokelog"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type fakeLog struct {
	mu      sync.Mutex
	records []strokelog.Record
	undone  []string
}

func (f *fakeLog) Append(ctx context.Context, r strokelog.Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, r)
	return nil
}

func (f *fakeLog) MarkUndone(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.undone = append(f.undone, id)
	return nil
}

func (f *fakeLog) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.records)
}

func (f *fakeLog) undoneIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.undone...)
}

type fakeDoer struct {
	fn func(*http.Request) (*http.Response, error)
}

func (d fakeDoer) Do(req *http.Request) (*http.Response, error) {
	return d.fn(req)
}

type fakeUndoer struct {
	mu    sync.Mutex
	seq   uint64
	count int
	calls int
}

func (u *fakeUndoer) SuppressStroke(seq uint64, emit func(count int)) bool {
	u.mu.Lock()
	if seq != u.seq {
		u.mu.Unlock()
		return false
	}
	n := u.count
	u.count = 0
	u.calls++
	u.mu.Unlock()
	emit(n)
	return true
}

func (u *fakeUndoer) getCalls() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.calls
}

func baseConfig() config.Config {
	cfg := config.Default()
	cfg.ForwardEndpoint = "https://example/stroke"
	cfg.MaxRetry = 1
	return cfg
}

func okReply(body string) (*http.Response, error) {
	return &http.Response{StatusCode: 200, Body: io.NopCloser(strings.NewReader(body))}, nil
}

func TestStrokesAreLoggedAndPrinted(t *testing.T) {
	cfg := baseConfig()
	cfg.ForwardEndpoint = ""
	log := &fakeLog{}
	a, err := New(cfg, nil, log, nil)
	if err != nil {
		t.Fatal(err)
	}
	out := &syncBuffer{}
	a.SetOutput(out)
	a.Start()
	defer a.Close()

	a.HandleStroke(machine.Stroke{"S-", "-Z"}, 1)
	a.HandleStroke(machine.Stroke{"*"}, 2)
	waitFor(t, func() bool { return log.count() == 2 })

	log.mu.Lock()
	first := log.records[0]
	log.mu.Unlock()
	if first.Session != a.Session() || first.ID == "" {
		t.Fatalf("bad record: %+v", first)
	}
	waitFor(t, func() bool { return strings.Contains(out.String(), "[stroke] S- -Z\n[stroke] *\n") })
}

func TestForwardPayload(t *testing.T) {
	cfg := baseConfig()
	cfg.ExtraConfig = `{"layout":"qwerty"}`
	got := make(chan map[string]interface{}, 1)
	doer := fakeDoer{fn: func(req *http.Request) (*http.Response, error) {
		var body map[string]interface{}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			return nil, err
		}
		got <- body
		return okReply(`{}`)
	}}
	a, err := New(cfg, doer, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	a.SetOutput(io.Discard)
	a.Start()
	defer a.Close()

	a.HandleStroke(machine.Stroke{"T-"}, 1)
	select {
	case body := <-got:
		if body["layout"] != "qwerty" || body["machine"] != "Keyboard" || body["session"] != a.Session() {
			t.Fatalf("unexpected payload: %v", body)
		}
		keys, _ := body["keys"].([]interface{})
		if len(keys) != 1 || keys[0] != "T-" {
			t.Fatalf("keys=%v", body["keys"])
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("stroke not forwarded")
	}
}

func TestUndoReplyTakesBackLatestStroke(t *testing.T) {
	cfg := baseConfig()
	log := &fakeLog{}
	doer := fakeDoer{fn: func(req *http.Request) (*http.Response, error) {
		return okReply(`{"undo":true}`)
	}}
	var mu sync.Mutex
	var corrections []int
	a, err := New(cfg, doer, log, func(n int) {
		mu.Lock()
		corrections = append(corrections, n)
		mu.Unlock()
	})
	if err != nil {
		t.Fatal(err)
	}
	u := &fakeUndoer{seq: 1, count: 4}
	a.AttachMachine(u)
	a.SetOutput(io.Discard)
	a.Start()
	defer a.Close()

	a.HandleStroke(machine.Stroke{"S-"}, 1)
	waitFor(t, func() bool { return len(log.undoneIDs()) == 1 })
	mu.Lock()
	defer mu.Unlock()
	if len(corrections) != 1 || corrections[0] != 4 {
		t.Fatalf("corrections=%v", corrections)
	}
}

func TestUndoSkippedWhenStrokeIsStale(t *testing.T) {
	cfg := baseConfig()
	release := make(chan struct{})
	first := true
	var mu sync.Mutex
	doer := fakeDoer{fn: func(req *http.Request) (*http.Response, error) {
		mu.Lock()
		isFirst := first
		first = false
		mu.Unlock()
		if isFirst {
			<-release
			return okReply(`{"undo":true}`)
		}
		return okReply(`{}`)
	}}
	log := &fakeLog{}
	a, err := New(cfg, doer, log, nil)
	if err != nil {
		t.Fatal(err)
	}
	u := &fakeUndoer{seq: 2}
	a.AttachMachine(u)
	a.SetOutput(io.Discard)
	a.Start()
	defer a.Close()

	a.HandleStroke(machine.Stroke{"S-"}, 1)
	// A newer stroke arrives before the reply to the first one.
	a.HandleStroke(machine.Stroke{"T-"}, 2)
	close(release)
	waitFor(t, func() bool { return log.count() == 2 })
	time.Sleep(50 * time.Millisecond)
	if u.getCalls() != 0 {
		t.Fatalf("stale stroke was undone")
	}
	if len(log.undoneIDs()) != 0 {
		t.Fatalf("stale stroke marked undone")
	}
}

type chordCapture struct {
	mu       sync.Mutex
	down, up func(string)
}

func (c *chordCapture) SetHandlers(down, up func(string)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.down, c.up = down, up
}

func (c *chordCapture) SuppressKeyboard(keys []string) {}

func (c *chordCapture) Start() error { return nil }

func (c *chordCapture) Cancel() {}

func (c *chordCapture) play(events ...string) {
	c.mu.Lock()
	down, up := c.down, c.up
	c.mu.Unlock()
	for _, e := range events {
		if strings.HasPrefix(e, "+") {
			down(e[1:])
		} else {
			up(e[1:])
		}
	}
}

func newUndoHarness(t *testing.T, gate chan struct{}) (*App, *machine.Keyboard, *chordCapture, func() []int) {
	t.Helper()
	var mu sync.Mutex
	var backspaces []int
	doer := fakeDoer{fn: func(req *http.Request) (*http.Response, error) {
		var body map[string]interface{}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			return nil, err
		}
		keys, _ := body["keys"].([]interface{})
		if len(keys) == 2 {
			<-gate
			return okReply(`{"undo":true}`)
		}
		return okReply(`{}`)
	}}
	a, err := New(baseConfig(), doer, nil, func(n int) {
		mu.Lock()
		backspaces = append(backspaces, n)
		mu.Unlock()
	})
	if err != nil {
		t.Fatal(err)
	}
	a.SetOutput(io.Discard)
	fc := &chordCapture{}
	kb := machine.NewKeyboard(staticKeymap{"a": "S-", "b": "T-", "c": "K-", "z": "no-op"}, machine.Options{
		NewCapture: func() capture.Capture { return fc },
		OnStroke:   a.HandleStroke,
	})
	a.AttachMachine(kb)
	if err := kb.Start(); err != nil {
		t.Fatal(err)
	}
	a.Start()
	t.Cleanup(func() {
		a.Close()
		kb.Stop()
	})
	return a, kb, fc, func() []int {
		mu.Lock()
		defer mu.Unlock()
		return append([]int(nil), backspaces...)
	}
}

type staticKeymap map[string]string

func (m staticKeymap) Bindings() map[string]string { return m }

func TestUndoSendsPressCountOfForwardedStroke(t *testing.T) {
	gate := make(chan struct{})
	close(gate)
	_, _, fc, backspaces := newUndoHarness(t, gate)

	// a and b pressed, b auto-repeats once: three presses.
	fc.play("+a", "+b", "+b", "-a", "-b")
	waitFor(t, func() bool { return len(backspaces()) == 1 })
	if got := backspaces(); got[0] != 3 {
		t.Fatalf("backspaces=%v", got)
	}
}

func TestUndoSkippedAfterNoOpChord(t *testing.T) {
	gate := make(chan struct{})
	a, _, fc, backspaces := newUndoHarness(t, gate)

	fc.play("+a", "+b", "-a", "-b")
	// A no-op chord completes before the undo reply arrives.
	fc.play("+z", "-z")
	close(gate)
	time.Sleep(100 * time.Millisecond)
	a.Close()
	if got := backspaces(); len(got) != 0 {
		t.Fatalf("undo of an older chord sent backspaces %v", got)
	}
}

func TestForwardFailureDoesNotStopQueue(t *testing.T) {
	cfg := baseConfig()
	log := &fakeLog{}
	doer := fakeDoer{fn: func(req *http.Request) (*http.Response, error) {
		return nil, fmt.Errorf("network down")
	}}
	a, err := New(cfg, doer, log, nil)
	if err != nil {
		t.Fatal(err)
	}
	a.SetOutput(io.Discard)
	a.Start()
	defer a.Close()

	for i := 0; i < 5; i++ {
		a.HandleStroke(machine.Stroke{"S-"}, uint64(i+1))
	}
	waitFor(t, func() bool { return log.count() == 5 })
}

func TestCloseCancelsInFlightForward(t *testing.T) {
	cfg := baseConfig()
	started := make(chan struct{}, 1)
	doer := fakeDoer{fn: func(req *http.Request) (*http.Response, error) {
		select {
		case started <- struct{}{}:
		default:
		}
		<-req.Context().Done()
		return nil, req.Context().Err()
	}}
	a, err := New(cfg, doer, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	a.SetOutput(io.Discard)
	a.Start()

	a.HandleStroke(machine.Stroke{"S-"}, 1)
	<-started
	done := make(chan struct{})
	go func() {
		a.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("close blocked on in-flight request")
	}
	// Strokes after close are ignored.
	a.HandleStroke(machine.Stroke{"T-"}, 2)
}

func TestInvalidExtraConfig(t *testing.T) {
	cfg := baseConfig()
	cfg.ExtraConfig = "{nope"
	if _, err := New(cfg, nil, nil, nil); err == nil {
		t.Fatalf("expected error")
	}
}

func waitFor(t *testing.T, check func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if check() {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("timeout waiting for condition")
}
