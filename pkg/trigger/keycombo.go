// Package trigger turns key combos, timers and remote requests into capture
// requests, allowing a single capture in flight at a time.
package trigger

import "sync"

// ComboState is the state of a KeyCombo.
type ComboState int

const (
	// Idle waits for every key of the combo to be held at once.
	Idle ComboState = iota
	// ArmedWaitingForRelease waits for every key to be released before the
	// combo can fire again.
	ArmedWaitingForRelease
)

func (s ComboState) String() string {
	if s == Idle {
		return "Idle"
	}
	return "ArmedWaitingForRelease"
}

// KeyCombo fires once when all of its keys go down together. It starts
// waiting for a release so keys held at startup do not fire.
type KeyCombo[K comparable] struct {
	mu    sync.Mutex
	keys  []K
	state ComboState
}

func NewKeyCombo[K comparable](keys []K) *KeyCombo[K] {
	return &KeyCombo[K]{keys: append([]K(nil), keys...), state: ArmedWaitingForRelease}
}

// SetKeys replaces the combo and requires a full release before it fires.
func (c *KeyCombo[K]) SetKeys(keys []K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.keys = append([]K(nil), keys...)
	c.state = ArmedWaitingForRelease
}

// Tick advances the state machine with the current key state and reports
// whether the combo fired.
func (c *KeyCombo[K]) Tick(pressed func(K) bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.keys) == 0 {
		return false
	}

	switch c.state {
	case Idle:
		for _, k := range c.keys {
			if !pressed(k) {
				return false
			}
		}
		c.state = ArmedWaitingForRelease
		return true
	default:
		for _, k := range c.keys {
			if pressed(k) {
				return false
			}
		}
		c.state = Idle
		return false
	}
}

func (c *KeyCombo[K]) State() ComboState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}
