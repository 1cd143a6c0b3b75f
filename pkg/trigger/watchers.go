package trigger

import (
	"sync/atomic"
	"time"

	"github.com/sudorandom/screenshot-automator/pkg/capture"
)

// Watchers bundles the key combo and periodic timer that feed a Dispatcher.
// Tick must be called from the render loop once per update.
type Watchers[K comparable] struct {
	dispatcher *Dispatcher
	combo      *KeyCombo[K]
	timer      Periodic
	period     func() time.Duration
	resetTimer atomic.Bool
}

func NewWatchers[K comparable](d *Dispatcher, keys []K, period func() time.Duration) *Watchers[K] {
	w := &Watchers[K]{
		dispatcher: d,
		combo:      NewKeyCombo(keys),
		period:     period,
	}
	d.OnOutcome(func(o Outcome) {
		// The timer restarts after every automatic attempt and after manual
		// captures so the two do not land back to back.
		if o.Kind == capture.Automatic || o.Kind == capture.Manual {
			w.resetTimer.Store(true)
		}
	})
	return w
}

// SetKeys swaps the manual capture combo. Safe to call from any goroutine.
func (w *Watchers[K]) SetKeys(keys []K) {
	w.combo.SetKeys(keys)
}

// Tick advances both watchers by dt. pressed reports the live key state.
func (w *Watchers[K]) Tick(dt time.Duration, pressed func(K) bool) {
	select {
	case <-w.dispatcher.Done():
		return
	default:
	}

	if w.resetTimer.Swap(false) {
		w.timer.Reset()
	}

	if w.combo.Tick(pressed) {
		w.dispatcher.Submit(capture.Manual)
	}

	var period time.Duration
	if w.period != nil {
		period = w.period()
	}
	if w.timer.Tick(dt, period) && !w.dispatcher.Submit(capture.Automatic) {
		w.timer.Reset()
	}
}

// ComboState exposes the key combo state.
func (w *Watchers[K]) ComboState() ComboState { return w.combo.State() }

// TimerElapsed exposes the periodic accumulator.
func (w *Watchers[K]) TimerElapsed() time.Duration { return w.timer.Elapsed() }
