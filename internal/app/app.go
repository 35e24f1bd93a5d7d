package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"stenokb/internal/config"
	"stenokb/internal/machine"
	"stenokb/internal/netclient"
	"stenokb/internal/request"
	"stenokb/internal/response"
	"stenokb/internal/strokelog"
)

// StrokeLog is the durable stroke log; *strokelog.Store satisfies it.
type StrokeLog interface {
	Append(ctx context.Context, r strokelog.Record) error
	MarkUndone(ctx context.Context, id string) error
}

// Undoer takes back a stroke by its chord sequence number, refusing when a
// later chord has completed; *machine.Keyboard satisfies it.
type Undoer interface {
	SuppressStroke(seq uint64, emit func(count int)) bool
}

type queuedStroke struct {
	rec strokelog.Record
	seq uint64
}

// App fans recognized strokes out to the paper tape, the stroke log and the
// forward endpoint. Strokes arrive from the key handler and are processed
// in order on one goroutine so the handler never blocks on I/O.
type App struct {
	cfg      config.Config
	httpDoer netclient.Doer
	strokes  StrokeLog
	correct  func(count int)
	extra    map[string]interface{}
	session  string
	out      io.Writer

	eventCh chan queuedStroke
	stopCh  chan struct{}

	mu            sync.Mutex
	undoer        Undoer
	currentCancel context.CancelFunc
	closed        bool
	wg            sync.WaitGroup
}

// New builds the app. httpDoer and strokes may be nil to disable
// forwarding and logging; correct types the backspaces of an undo.
func New(cfg config.Config, httpDoer netclient.Doer, strokes StrokeLog, correct func(count int)) (*App, error) {
	globalExtra, err := request.ParseExtraConfig(cfg.ExtraConfig)
	if err != nil {
		return nil, fmt.Errorf("invalid ExtraConfig JSON: %w", err)
	}
	size := cfg.QueueSize
	if size <= 0 {
		size = 64
	}
	return &App{
		cfg:      cfg,
		httpDoer: httpDoer,
		strokes:  strokes,
		correct:  correct,
		extra:    request.MergeExtra(map[string]interface{}{"machine": "Keyboard"}, globalExtra),
		session:  uuid.NewString(),
		out:      os.Stdout,
		eventCh:  make(chan queuedStroke, size),
		stopCh:   make(chan struct{}),
	}, nil
}

// SetOutput redirects the paper tape.
func (a *App) SetOutput(w io.Writer) {
	a.out = w
}

// AttachMachine sets the machine undo requests are sent to.
func (a *App) AttachMachine(u Undoer) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.undoer = u
}

func (a *App) Session() string {
	return a.session
}

func (a *App) Start() {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		for {
			select {
			case <-a.stopCh:
				return
			case q := <-a.eventCh:
				a.handleStroke(q)
			}
		}
	}()
}

func (a *App) Close() {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	a.closed = true
	close(a.stopCh)
	if a.currentCancel != nil {
		a.currentCancel()
		a.currentCancel = nil
	}
	a.mu.Unlock()
	a.wg.Wait()
}

// HandleStroke queues a stroke. It is the machine's stroke callback and
// runs inside the key handler, so it never blocks: when the queue is full
// the stroke is dropped. seq is the machine's chord number, used to undo it.
func (a *App) HandleStroke(s machine.Stroke, seq uint64) {
	rec := strokelog.Record{
		ID:      uuid.NewString(),
		Session: a.session,
		Time:    time.Now(),
		Keys:    append([]string(nil), s...),
	}
	a.mu.Lock()
	closed := a.closed
	a.mu.Unlock()
	if closed {
		return
	}

	select {
	case a.eventCh <- queuedStroke{rec: rec, seq: seq}:
	default:
		if a.cfg.DEBUG {
			fmt.Printf("[app] queue full, dropped stroke %s\n", strings.Join(rec.Keys, " "))
		}
	}
}

// HandleState prints machine status changes.
func (a *App) HandleState(s machine.State) {
	fmt.Printf("[machine] state=%s\n", s)
}

func (a *App) setCurrentCancel(cancel context.CancelFunc) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.currentCancel = cancel
}

func (a *App) clearCurrentCancel() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.currentCancel = nil
}

func (a *App) handleStroke(q queuedStroke) {
	rec := q.rec
	fmt.Fprintf(a.out, "[stroke] %s\n", strings.Join(rec.Keys, " "))

	ctx, cancel := context.WithCancel(context.Background())
	a.setCurrentCancel(cancel)
	defer func() {
		cancel()
		a.clearCurrentCancel()
	}()

	if a.strokes != nil {
		if err := a.strokes.Append(ctx, rec); err != nil && a.cfg.DEBUG {
			fmt.Printf("[log] %v\n", err)
		}
	}

	endpoint := strings.TrimSpace(a.cfg.ForwardEndpoint)
	if a.httpDoer == nil || endpoint == "" {
		return
	}
	payload := request.BuildStrokePayload(request.StrokeInput{
		ID:      rec.ID,
		Session: rec.Session,
		Time:    rec.Time,
		Keys:    rec.Keys,
		Extra:   a.extra,
	})
	resBody, err := netclient.Forward(ctx, a.httpDoer, netclient.Delivery{
		Endpoint: endpoint,
		Token:    strings.TrimSpace(a.cfg.Token),
		StrokeID: rec.ID,
		Payload:  payload,
	}, netclient.RetryOptions{
		MaxRetry:  a.cfg.MaxRetry,
		BaseDelay: time.Duration(a.cfg.RetryBaseDelay * float64(time.Second)),
		Debug:     a.cfg.DEBUG,
	})
	if err != nil {
		if a.cfg.DEBUG {
			fmt.Printf("[forward] failed: %v\n", err)
		}
		return
	}
	if response.WantsUndo(resBody, a.cfg.UndoPath) {
		a.undo(ctx, rec, q.seq)
	}
}

// undo takes back rec, but only while its chord is still the machine's last
// one: a later chord, even one without steno keys, owns the press count.
func (a *App) undo(ctx context.Context, rec strokelog.Record, seq uint64) {
	a.mu.Lock()
	u := a.undoer
	a.mu.Unlock()
	taken := false
	if u != nil {
		taken = u.SuppressStroke(seq, func(count int) {
			if a.correct != nil {
				a.correct(count)
			}
		})
	}
	if !taken {
		if a.cfg.DEBUG {
			fmt.Printf("[app] undo of %s skipped\n", rec.ID)
		}
		return
	}
	fmt.Fprintf(a.out, "[stroke] undo %s\n", strings.Join(rec.Keys, " "))
	if a.strokes != nil {
		if err := a.strokes.MarkUndone(ctx, rec.ID); err != nil && a.cfg.DEBUG {
			fmt.Printf("[log] %v\n", err)
		}
	}
}
