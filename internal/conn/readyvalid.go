package conn

import (
	"github.com/jasonKoogler/score-sim/internal/bus"
	"github.com/jasonKoogler/score-sim/internal/sched"
)

// ReadyValid is a FIFO-buffered connection with external ready and valid
// signal ports enforcing backpressure (spec §3/§4.4). Both signal ports
// must be bound before the first tick; an unbound signal port is a misuse
// error and Start panics, before any tick is scheduled.
type ReadyValid struct {
	name      string
	scheduler *sched.Scheduler
	ticking   *bus.TickingComponent
	observer  bus.Observer

	Source *bus.Port
	Dest   *bus.Port
	Ready  *bus.Port // external: true => downstream may accept
	Valid  *bus.Port // external: true => upstream has data to offer

	bufferSize int
	latency    uint64
	buffer     []bus.Packet

	bankConflicts int
	started       bool
}

// NewReadyValid builds a ReadyValid connection with the given FIFO
// capacity and delivery latency. Ready and Valid ports must be attached
// with SetReady/SetValid before Start.
func NewReadyValid(name string, scheduler *sched.Scheduler, period uint64, priority int, source, dest *bus.Port, bufferSize int, latency uint64) *ReadyValid {
	rv := &ReadyValid{
		name: name, scheduler: scheduler, Source: source, Dest: dest,
		bufferSize: bufferSize, latency: latency, observer: bus.NoopObserver{},
	}
	rv.ticking = bus.NewTickingComponent(scheduler, period, priority, rv)
	return rv
}

// Name identifies the connection for tracing.
func (rv *ReadyValid) Name() string { return rv.name }

// SetObserver attaches a trace Observer; nil restores the no-op default.
func (rv *ReadyValid) SetObserver(o bus.Observer) { rv.observer = bus.OrDefault(o) }

// SetReady binds the external ready signal port.
func (rv *ReadyValid) SetReady(p *bus.Port) { rv.Ready = p }

// SetValid binds the external valid signal port.
func (rv *ReadyValid) SetValid(p *bus.Port) { rv.Valid = p }

// Start begins the connection's own ticking at time t. Panics if Ready or
// Valid has not been bound, per spec §4.4.
func (rv *ReadyValid) Start(t uint64) error {
	if rv.Ready == nil {
		panic("conn: ReadyValid " + rv.name + " started with unbound ready port")
	}
	if rv.Valid == nil {
		panic("conn: ReadyValid " + rv.name + " started with unbound valid port")
	}
	rv.started = true
	return rv.ticking.Start(t)
}

// Stop halts the connection's self-rescheduling.
func (rv *ReadyValid) Stop() { rv.ticking.Stop() }

// Occupancy returns the number of packets currently buffered.
func (rv *ReadyValid) Occupancy() int { return len(rv.buffer) }

// BankConflicts returns the count of attempted enqueues made while the
// buffer was already at capacity.
func (rv *ReadyValid) BankConflicts() int { return rv.bankConflicts }

// Tick implements the ReadyValid algorithm from spec §3.
func (rv *ReadyValid) Tick() {
	if !rv.started {
		panic("conn: ReadyValid " + rv.name + " ticked before Start")
	}

	validSignal := peekBool(rv.Valid)
	readySignal := peekBool(rv.Ready)

	// (i) Enqueue from source into the buffer.
	if validSignal {
		if len(rv.buffer) < rv.bufferSize {
			if pkt, ok := rv.Source.Read(); ok {
				rv.buffer = append(rv.buffer, pkt)
			}
		} else {
			rv.bankConflicts++
		}
	}

	// (ii) Dequeue to the destination.
	if readySignal && len(rv.buffer) > 0 && rv.Dest != nil && !rv.Dest.HasData() {
		pkt := rv.buffer[0]
		rv.buffer = rv.buffer[1:]
		rv.deliver(pkt)
	}
}

func (rv *ReadyValid) deliver(pkt bus.Packet) {
	at := rv.scheduler.CurrentTime() + rv.latency
	pkt.Timestamp = at
	observer := rv.observer
	name := rv.name
	dest := rv.Dest
	_, _ = rv.scheduler.Schedule(at, 0, func() {
		dest.Write(pkt)
		observer.ConnectionTransfer(name, pkt)
	})
}

func peekBool(p *bus.Port) bool {
	if p == nil {
		return false
	}
	pkt, ok := p.Peek()
	if !ok {
		return false
	}
	return pkt.BoolValue
}
