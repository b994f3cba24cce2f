package watch

import (
	"context"
	"time"
)

// debouncer coalesces bursts of change notifications into single build
// triggers. A quiet window delays the build until notifications stop
// arriving; the max delay bounds how long a steady stream of changes
// can postpone it.
//
// All state is owned by the Run goroutine. Notify only touches the
// channel and is safe from any goroutine.
type debouncer struct {
	quietWindow time.Duration
	maxDelay    time.Duration
	trigger     chan string

	pending    bool
	changes    int
	lastReason string
}

func newDebouncer(quietWindow time.Duration) *debouncer {
	return &debouncer{
		quietWindow: quietWindow,
		maxDelay:    10 * quietWindow,
		trigger:     make(chan string, 64),
	}
}

// Notify records one change without blocking. When the channel is full
// the change simply rides the trigger already pending.
func (d *debouncer) Notify(reason string) {
	select {
	case d.trigger <- reason:
	default:
	}
}

// Run delivers coalesced build requests to emit until ctx is done.
// emit is called on the Run goroutine, so builds never overlap and
// notifications arriving during a build queue up for the next one.
func (d *debouncer) Run(ctx context.Context, emit func(reason string, changes int)) {
	quietTimer := newStoppedTimer()
	maxTimer := newStoppedTimer()

	var quietC, maxC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return

		case reason := <-d.trigger:
			if !d.pending {
				d.pending = true
				d.changes = 0
				resetTimer(maxTimer, d.maxDelay)
				maxC = maxTimer.C
			}
			d.changes++
			d.lastReason = reason
			resetTimer(quietTimer, d.quietWindow)
			quietC = quietTimer.C

		case <-quietC:
			quietC, maxC = nil, nil
			d.emit(emit)

		case <-maxC:
			quietC, maxC = nil, nil
			d.emit(emit)
		}
	}
}

func (d *debouncer) emit(fn func(reason string, changes int)) {
	if !d.pending {
		return
	}
	reason, changes := d.lastReason, d.changes
	d.pending = false
	d.changes = 0
	fn(reason, changes)
}

func newStoppedTimer() *time.Timer {
	t := time.NewTimer(time.Hour)
	stopTimer(t)
	return t
}

func stopTimer(t *time.Timer) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
}

func resetTimer(t *time.Timer, after time.Duration) {
	stopTimer(t)
	t.Reset(after)
}
