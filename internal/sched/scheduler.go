// Package sched implements the discrete-event scheduler that drives every
// ticking component in the simulator. All simulated work happens inside
// event callbacks dispatched by a single Scheduler; there are no OS threads,
// no locks, and no concurrent ticks.
package sched

import (
	"container/heap"
	"fmt"
)

// Callback is invoked when a scheduled event fires.
type Callback func()

// event is an immutable (once queued) record of future work. Ordering:
// earlier Time first; ties broken by higher Priority, then by FIFO
// insertion order (seq).
type event struct {
	time      uint64
	priority  int
	seq       uint64
	callback  Callback
	cancelled bool
	index     int // heap.Interface bookkeeping
}

// Handle lets a caller cancel an event it previously scheduled. Cancellation
// is safe at any time: a cancelled event is simply skipped at dispatch.
type Handle struct {
	ev *event
}

// Cancel marks the event as cancelled. Once executed or already cancelled,
// this is a no-op.
func (h *Handle) Cancel() {
	if h == nil || h.ev == nil {
		return
	}
	h.ev.cancelled = true
}

// Cancelled reports whether the event has been cancelled.
func (h *Handle) Cancelled() bool {
	return h == nil || h.ev == nil || h.ev.cancelled
}

type eventHeap []*event

func (h eventHeap) Len() int { return len(h) }

func (h eventHeap) Less(i, j int) bool {
	if h[i].time != h[j].time {
		return h[i].time < h[j].time
	}
	if h[i].priority != h[j].priority {
		return h[i].priority > h[j].priority // higher priority first
	}
	return h[i].seq < h[j].seq // FIFO
}

func (h eventHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *eventHeap) Push(x any) {
	ev := x.(*event)
	ev.index = len(*h)
	*h = append(*h, ev)
}

func (h *eventHeap) Pop() any {
	old := *h
	n := len(old)
	ev := old[n-1]
	old[n-1] = nil
	ev.index = -1
	*h = old[:n-1]
	return ev
}

// Scheduler is a min-heap of timed events driving the simulation clock.
type Scheduler struct {
	queue       eventHeap
	currentTime uint64
	nextSeq     uint64
}

// New returns an empty Scheduler with current_time == 0.
func New() *Scheduler {
	s := &Scheduler{}
	heap.Init(&s.queue)
	return s
}

// CurrentTime returns the time of the most recently dispatched event (or 0
// before the first Run/RunFor call). It is non-decreasing across Run calls.
func (s *Scheduler) CurrentTime() uint64 {
	return s.currentTime
}

// PendingCount returns the number of events still in the queue, including
// cancelled ones that have not yet been popped and discarded.
func (s *Scheduler) PendingCount() int {
	return s.queue.Len()
}

// Schedule posts a future callback at the given absolute time with the given
// priority (higher runs first among same-time events). Scheduling at a time
// strictly before CurrentTime() is rejected: this is a misuse error, never
// silently executed.
func (s *Scheduler) Schedule(time uint64, priority int, cb Callback) (*Handle, error) {
	if time < s.currentTime {
		return nil, fmt.Errorf("sched: cannot schedule event at time %d before current time %d", time, s.currentTime)
	}
	if cb == nil {
		return nil, fmt.Errorf("sched: cannot schedule a nil callback")
	}
	ev := &event{time: time, priority: priority, seq: s.nextSeq, callback: cb}
	s.nextSeq++
	heap.Push(&s.queue, ev)
	return &Handle{ev: ev}, nil
}

// ScheduleNow schedules a callback at the current time with priority 0.
func (s *Scheduler) ScheduleNow(cb Callback) (*Handle, error) {
	return s.Schedule(s.currentTime, 0, cb)
}

// Run dispatches events in (time, priority, FIFO) order until the queue is
// empty or the next pending event's time exceeds maxTime. If maxTime is nil,
// the scheduler runs until the queue is empty. Cancelled events are
// discarded without invoking their callback.
func (s *Scheduler) Run(maxTime *uint64) error {
	for s.queue.Len() > 0 {
		next := s.queue[0]
		if maxTime != nil && next.time > *maxTime {
			return nil
		}
		ev := heap.Pop(&s.queue).(*event)
		if ev.cancelled {
			continue
		}
		s.currentTime = ev.time
		ev.callback()
	}
	return nil
}

// RunFor dispatches up to count non-cancelled events, then stops. Cancelled
// events popped along the way do not count against the budget.
func (s *Scheduler) RunFor(count int) error {
	executed := 0
	for executed < count && s.queue.Len() > 0 {
		ev := heap.Pop(&s.queue).(*event)
		if ev.cancelled {
			continue
		}
		s.currentTime = ev.time
		ev.callback()
		executed++
	}
	return nil
}

// Reset empties the queue and returns current_time to 0, without
// reallocating the underlying storage.
func (s *Scheduler) Reset() {
	s.queue = s.queue[:0]
	s.currentTime = 0
	s.nextSeq = 0
}
