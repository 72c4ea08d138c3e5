package netid

import (
	"time"

	"github.com/benbjohnson/clock"
)

// ClockTicker is the default interfaces.Ticker implementation, backed by
// benbjohnson/clock so tests can advance virtual time deterministically
// instead of sleeping on the wall clock (grounded on the dep2p pack's use
// of benbjohnson/clock for fakeable timers; the teacher declares this
// dependency but never wires it — this is that wiring).
type ClockTicker struct {
	clock clock.Clock
}

// NewClockTicker wraps clock.New() (the real wall clock). Tests should
// construct NewClockTickerWithClock(clock.NewMock()) instead.
func NewClockTicker() *ClockTicker {
	return &ClockTicker{clock: clock.New()}
}

// NewClockTickerWithClock wraps an arbitrary clock.Clock, letting tests
// inject a clock.Mock.
func NewClockTickerWithClock(c clock.Clock) *ClockTicker {
	return &ClockTicker{clock: c}
}

// QueueTimedJob schedules job to run once after delay, on its own
// goroutine, matching the fire-and-forget semantics of
// `node.getTicker().queueTimedJob(this, period)`.
func (t *ClockTicker) QueueTimedJob(job func(), delay time.Duration) {
	t.clock.AfterFunc(delay, job)
}

// Clock exposes the underlying clock.Clock for components that need to
// read Now() the same way the ticker does. The Prober and Engine read the
// wall clock directly and do not use it.
func (t *ClockTicker) Clock() clock.Clock {
	return t.clock
}
