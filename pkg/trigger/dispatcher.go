package trigger

import (
	"context"
	"errors"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sudorandom/screenshot-automator/pkg/capture"
)

// ErrCaptureInFlight is returned when a capture is requested while another
// one is still running. The request is dropped.
var ErrCaptureInFlight = errors.New("capture already in flight")

// Capturer performs one capture.
type Capturer interface {
	Capture(ctx context.Context, kind capture.TriggerKind) (string, error)
}

// Outcome is the result of a dispatched capture.
type Outcome struct {
	Kind     capture.TriggerKind
	Path     string
	Err      error
	Duration time.Duration
}

// Dispatcher runs captures off the render loop, one at a time.
type Dispatcher struct {
	ctx      context.Context
	cancel   context.CancelFunc
	capturer Capturer
	inFlight atomic.Bool

	// closeMu orders wg.Add against Close so no capture starts once Close
	// is waiting.
	closeMu sync.Mutex
	closed  bool
	wg      sync.WaitGroup

	mu        sync.Mutex
	listeners []func(Outcome)
}

func NewDispatcher(ctx context.Context, c Capturer) *Dispatcher {
	ctx, cancel := context.WithCancel(ctx)
	return &Dispatcher{ctx: ctx, cancel: cancel, capturer: c}
}

// OnOutcome registers fn to be called after every capture attempt. fn runs
// on the capture goroutine.
func (d *Dispatcher) OnOutcome(fn func(Outcome)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.listeners = append(d.listeners, fn)
}

// Submit starts a capture in the background. It returns false when the
// request was dropped because a capture is running or the dispatcher is
// closed. Safe to call from the render loop.
func (d *Dispatcher) Submit(kind capture.TriggerKind) bool {
	if !d.begin() {
		return false
	}
	go func() {
		defer d.wg.Done()
		d.run(d.ctx, kind)
	}()
	return true
}

// Capture runs a capture and waits for its result. It must not be called
// from the render loop.
func (d *Dispatcher) Capture(ctx context.Context, kind capture.TriggerKind) (string, error) {
	if err := d.ctx.Err(); err != nil {
		return "", err
	}
	if !d.begin() {
		if err := d.ctx.Err(); err != nil {
			return "", err
		}
		return "", ErrCaptureInFlight
	}
	defer d.wg.Done()

	ctx, stop := mergeCancel(ctx, d.ctx)
	defer stop()
	o := d.run(ctx, kind)
	return o.Path, o.Err
}

// begin claims the in-flight slot and registers the capture with wg. It
// fails once the dispatcher is closed or while another capture runs.
func (d *Dispatcher) begin() bool {
	d.closeMu.Lock()
	defer d.closeMu.Unlock()
	if d.closed || d.ctx.Err() != nil || !d.inFlight.CompareAndSwap(false, true) {
		return false
	}
	d.wg.Add(1)
	return true
}

func (d *Dispatcher) run(ctx context.Context, kind capture.TriggerKind) Outcome {
	start := time.Now()
	path, err := d.capturer.Capture(ctx, kind)
	d.inFlight.Store(false)

	o := Outcome{Kind: kind, Path: path, Err: err, Duration: time.Since(start)}
	d.mu.Lock()
	listeners := append([]func(Outcome){}, d.listeners...)
	d.mu.Unlock()
	for _, fn := range listeners {
		fn(o)
	}
	return o
}

// Busy reports whether a capture is running.
func (d *Dispatcher) Busy() bool { return d.inFlight.Load() }

// Done is closed once the dispatcher is closed.
func (d *Dispatcher) Done() <-chan struct{} { return d.ctx.Done() }

// Close cancels any running capture and waits for it to return.
func (d *Dispatcher) Close() {
	d.closeMu.Lock()
	d.closed = true
	d.closeMu.Unlock()

	d.cancel()
	d.wg.Wait()
}

// LogOutcome is an OnOutcome listener that logs results. A missing camera is
// not worth reporting.
func LogOutcome(o Outcome) {
	switch {
	case o.Err == nil:
		log.Printf("Captured %s screenshot in %v: %s", o.Kind, o.Duration.Round(time.Millisecond), o.Path)
	case errors.Is(o.Err, capture.ErrNoCamera), errors.Is(o.Err, context.Canceled):
	default:
		log.Printf("Error capturing %s screenshot: %v", o.Kind, o.Err)
	}
}

func mergeCancel(ctx, other context.Context) (context.Context, context.CancelFunc) {
	merged, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(other, cancel)
	return merged, func() {
		stop()
		cancel()
	}
}
