// Package conn implements the two inter-component Connection kinds from
// spec §3/§4.4: Wire (combinational, lightly buffered) and ReadyValid
// (FIFO-buffered with backpressure). Both are themselves TickingComponents
// with their own period.
package conn

import (
	"fmt"

	"github.com/jasonKoogler/score-sim/internal/bus"
	"github.com/jasonKoogler/score-sim/internal/sched"
)

// Wire is a combinational edge from one output port to one input port, with
// a 2-deep internal slot (current, next) to prevent silent overwrite of a
// packet in flight. If Dest is nil, the Wire operates in "polling" mode: it
// buffers delivered packets in its own slots for a consumer (e.g. SCore
// writeback, spec §4.14) to inspect directly via Current/DrainCurrent
// rather than through a bound destination port.
type Wire struct {
	name      string
	scheduler *sched.Scheduler
	ticking   *bus.TickingComponent
	observer  bus.Observer

	Source *bus.Port
	Dest   *bus.Port // optional
	latency uint64

	current *bus.Packet
	next    *bus.Packet
}

// NewWire builds a Wire with the given period (its own tick rate) and
// delivery latency, reading from source and, if dest is non-nil, writing to
// it.
func NewWire(name string, scheduler *sched.Scheduler, period uint64, priority int, source, dest *bus.Port, latency uint64) *Wire {
	w := &Wire{name: name, scheduler: scheduler, Source: source, Dest: dest, latency: latency, observer: bus.NoopObserver{}}
	w.ticking = bus.NewTickingComponent(scheduler, period, priority, w)
	return w
}

// Name identifies the connection for tracing.
func (w *Wire) Name() string { return w.name }

// SetObserver attaches a trace Observer; nil restores the no-op default.
func (w *Wire) SetObserver(o bus.Observer) { w.observer = bus.OrDefault(o) }

// Start begins the Wire's own ticking at time t.
func (w *Wire) Start(t uint64) error { return w.ticking.Start(t) }

// Stop halts the Wire's self-rescheduling.
func (w *Wire) Stop() { w.ticking.Stop() }

// Current peeks the connection's current buffered packet (polling mode).
func (w *Wire) Current() (bus.Packet, bool) {
	if w.current == nil {
		return bus.Packet{}, false
	}
	return *w.current, true
}

// DrainCurrent clears the current slot after a consumer has observed it,
// allowing a buffered "next" packet to promote on the following tick.
func (w *Wire) DrainCurrent() {
	w.current = nil
}

// Tick implements the Wire algorithm from spec §3.
func (w *Wire) Tick() {
	// 1. Promote next -> current if there is room.
	if w.current == nil && w.next != nil {
		w.current = w.next
		w.next = nil
	}

	// 2. Read at most one new packet from the source.
	pkt, ok := w.Source.Read()
	if !ok {
		return
	}

	if w.Dest != nil {
		w.deliver(pkt)
		return
	}

	// No destination bound: buffer for external polling.
	switch {
	case w.current == nil:
		w.current = &pkt
	case w.next == nil:
		w.next = &pkt
	default:
		// Sustained overflow: overwrite next. Lossy by design (spec §9 note 3).
		w.next = &pkt
	}
}

func (w *Wire) deliver(pkt bus.Packet) {
	at := w.scheduler.CurrentTime() + w.latency
	pkt.Timestamp = at
	observer := w.observer
	name := w.name
	dest := w.Dest
	_, _ = w.scheduler.Schedule(at, 0, func() {
		dest.Write(pkt)
		observer.ConnectionTransfer(name, pkt)
	})
}

// String supports %v formatting in diagnostics.
func (w *Wire) String() string {
	return fmt.Sprintf("Wire(%s)", w.name)
}
