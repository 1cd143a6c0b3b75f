package trigger

import "time"

// Periodic accumulates elapsed time and fires once the period is reached.
// After firing it stays quiet until Reset.
type Periodic struct {
	elapsed time.Duration
	fired   bool
}

// Tick adds dt and reports whether the timer fired. A period of zero or less
// disables the timer.
func (p *Periodic) Tick(dt, period time.Duration) bool {
	if period <= 0 || p.fired {
		return false
	}
	p.elapsed += dt
	if p.elapsed >= period {
		p.fired = true
		return true
	}
	return false
}

// Reset zeroes the accumulator and re-arms the timer.
func (p *Periodic) Reset() {
	p.elapsed = 0
	p.fired = false
}

func (p *Periodic) Elapsed() time.Duration { return p.elapsed }
