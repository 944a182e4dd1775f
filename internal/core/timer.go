package core

import "time"

// FixedStep paces coupled simulation steps at a steady steps-per-second rate
// independently of the render loop.
type FixedStep struct {
	step        time.Duration
	accumulator time.Duration
	last        time.Time
}

// NewFixedStep constructs a FixedStep controller targeting the given rate.
func NewFixedStep(sps int) *FixedStep {
	fs := &FixedStep{}
	fs.SetRate(sps)
	fs.accumulator = fs.step
	return fs
}

// SetRate changes the step rate. Non-positive rates fall back to one step per second.
func (f *FixedStep) SetRate(sps int) {
	if sps <= 0 {
		sps = 1
	}
	f.step = time.Second / time.Duration(sps)
}

// Due reports whether a step should run at the provided instant.
func (f *FixedStep) Due(now time.Time) bool {
	if f.last.IsZero() {
		f.last = now
	}
	f.accumulator += now.Sub(f.last)
	f.last = now
	if f.accumulator >= f.step {
		f.accumulator -= f.step
		if f.accumulator > f.step {
			// drop backlog after a stall instead of bursting
			f.accumulator = f.step
		}
		return true
	}
	return false
}

// ShouldStep is Due evaluated at the current wall-clock time.
func (f *FixedStep) ShouldStep() bool { return f.Due(time.Now()) }
