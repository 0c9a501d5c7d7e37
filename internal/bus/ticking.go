package bus

import "github.com/jasonKoogler/score-sim/internal/sched"

// Ticker is implemented by anything that has per-period work to do. It is
// the single method a TickingComponent drives.
type Ticker interface {
	Tick()
}

// TickingComponent is a self-rescheduling unit: at each period it runs its
// Tick and, unless stopped, posts the next tick event. Concurrency model is
// single-threaded cooperative — ticks never run concurrently with each
// other because the owning Scheduler dispatches one event callback at a
// time (spec §4.3).
type TickingComponent struct {
	scheduler *sched.Scheduler
	period    uint64
	priority  int
	ticker    Ticker
	started   bool
	stopped   bool
	handle    *sched.Handle
}

// NewTickingComponent builds a ticking wrapper around ticker, driven by
// scheduler every period cycles, with the given event priority for
// same-cycle ordering.
func NewTickingComponent(scheduler *sched.Scheduler, period uint64, priority int, ticker Ticker) *TickingComponent {
	return &TickingComponent{scheduler: scheduler, period: period, priority: priority, ticker: ticker}
}

// Start schedules the first tick at time t, if not already started. Calling
// Start again after the first call is a no-op.
func (t *TickingComponent) Start(at uint64) error {
	if t.started {
		return nil
	}
	t.started = true
	t.stopped = false
	h, err := t.scheduler.Schedule(at, t.priority, t.fire)
	if err != nil {
		return err
	}
	t.handle = h
	return nil
}

// Stop prevents further self-rescheduling. It is idempotent and
// cancellation-safe: a tick event already queued when Stop is called is
// dropped at dispatch via the scheduler's cancelled flag.
func (t *TickingComponent) Stop() {
	t.stopped = true
	if t.handle != nil {
		t.handle.Cancel()
	}
}

func (t *TickingComponent) fire() {
	if t.stopped {
		return
	}
	t.ticker.Tick()
	if t.stopped {
		return
	}
	h, err := t.scheduler.Schedule(t.scheduler.CurrentTime()+t.period, t.priority, t.fire)
	if err != nil {
		// Misuse surfaces only on genuine past-time scheduling, which cannot
		// happen for a self-reschedule at current_time + period > current_time.
		return
	}
	t.handle = h
}

// Period returns the ticking component's self-rescheduling period.
func (t *TickingComponent) Period() uint64 { return t.period }
