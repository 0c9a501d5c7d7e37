// Package pipeline implements the generic N-stage pipeline engine from
// spec §4.5: per-stage transform functions, per-stage latencies, and
// per-stage stall predicates, driven one tick per period by the scheduler.
// Every functional unit (ALU, BRU, MLU, DVU, LSU) and SCore's own
// fetch/dispatch/writeback stages are instances of this engine with
// different stage functions plugged in (spec §9 "Stage functions with
// captured state": stage behavior lives in typed closures, not in
// polymorphic subclasses).
package pipeline

import (
	"fmt"

	"github.com/jasonKoogler/score-sim/internal/bus"
	"github.com/jasonKoogler/score-sim/internal/sched"
)

// StageFn transforms the packet occupying a stage. It is invoked once per
// cycle a packet resides in (or is about to enter) a stage — including
// while the stage is held by latency or a stall predicate — so stateful,
// iterative units (DVU) can make per-cycle progress in place (spec §4.5
// "Why"). Stage 0's function additionally acts as the loader: it receives
// whatever packet (if any) was read from the `in` port — or a zero,
// Valid=false Packet if none — and may synthesize output from
// component-internal state instead; a result with Valid==false means
// "nothing to install this cycle".
type StageFn func(bus.Packet) bus.Packet

// StallFn reports whether a stage refuses to accept a given packet this
// cycle. Evaluated only for stages 1..N-1; stage 0 has no stall predicate.
type StallFn func(bus.Packet) bool

func identityStage(pkt bus.Packet) bus.Packet { return pkt }
func neverStall(bus.Packet) bool              { return false }

type slot struct {
	occupied  bool
	pkt       bus.Packet
	entryTime uint64
}

// Pipeline is the generic N-stage engine.
type Pipeline struct {
	name      string
	scheduler *sched.Scheduler
	ticking   *bus.TickingComponent
	observer  bus.Observer

	numStages int
	period    uint64

	stageFns  []StageFn
	latencies []uint64
	stalls    []StallFn
	slots     []slot

	// In is read by stage 0's loader; Out receives the drained result of
	// the last stage; StallIn is the global stall signal (spec §4.5 step 1).
	In      *bus.Port
	Out     *bus.Port
	StallIn *bus.Port

	totalProcessed uint64
	totalStalls    uint64
}

// New constructs a Pipeline with the given self-tick period and number of
// stages, with default identity stage functions, never-stall predicates,
// and unit (1-cycle) latencies. numStages == 0 is a misuse error.
func New(name string, scheduler *sched.Scheduler, period uint64, numStages int, owner bus.Component) (*Pipeline, error) {
	if numStages <= 0 {
		return nil, fmt.Errorf("pipeline %s: num_stages must be positive, got %d", name, numStages)
	}

	p := &Pipeline{
		name:      name,
		scheduler: scheduler,
		period:    period,
		numStages: numStages,
		observer:  bus.NoopObserver{},
		stageFns:  make([]StageFn, numStages),
		latencies: make([]uint64, numStages),
		stalls:    make([]StallFn, numStages),
		slots:     make([]slot, numStages),
	}
	for i := 0; i < numStages; i++ {
		p.stageFns[i] = identityStage
		p.stalls[i] = neverStall
		p.latencies[i] = 1
	}

	p.In = bus.NewPort(name+".in", bus.In, owner)
	p.Out = bus.NewPort(name+".out", bus.Out, owner)
	p.StallIn = bus.NewPort(name+".stall", bus.In, owner)

	p.ticking = bus.NewTickingComponent(scheduler, period, 0, p)
	return p, nil
}

// Name identifies the pipeline for tracing.
func (p *Pipeline) Name() string { return p.name }

// SetObserver attaches a trace Observer; nil restores the no-op default.
func (p *Pipeline) SetObserver(o bus.Observer) { p.observer = bus.OrDefault(o) }

// SetStageFn installs the transform function for stage i.
func (p *Pipeline) SetStageFn(i int, f StageFn) {
	p.stageFns[i] = f
}

// SetStageLatency sets how many cycles a packet must reside in stage i
// before it is eligible to advance to stage i+1.
func (p *Pipeline) SetStageLatency(i int, cycles uint64) {
	p.latencies[i] = cycles
}

// SetStageStall installs the stall predicate for stage i (i >= 1).
func (p *Pipeline) SetStageStall(i int, f StallFn) {
	p.stalls[i] = f
}

// Start begins the pipeline's own ticking at time t.
func (p *Pipeline) Start(t uint64) error { return p.ticking.Start(t) }

// Stop halts the pipeline's self-rescheduling.
func (p *Pipeline) Stop() { p.ticking.Stop() }

// Flush clears every stage slot without reallocating.
func (p *Pipeline) Flush() {
	for i := range p.slots {
		p.slots[i] = slot{}
	}
}

// IsEmpty reports whether every stage slot is unoccupied.
func (p *Pipeline) IsEmpty() bool {
	return p.Occupancy() == 0
}

// IsFull reports whether every stage slot is occupied.
func (p *Pipeline) IsFull() bool {
	return p.Occupancy() == p.numStages
}

// Occupancy returns the number of currently occupied stage slots.
func (p *Pipeline) Occupancy() int {
	n := 0
	for _, s := range p.slots {
		if s.occupied {
			n++
		}
	}
	return n
}

// TotalProcessed returns the lifetime count of packets drained from the
// last stage to the output port.
func (p *Pipeline) TotalProcessed() uint64 { return p.totalProcessed }

// TotalStalls returns the lifetime count of stall events: the global stall
// signal firing, plus every stage-to-stage transfer blocked by latency,
// structural hazard, or stall predicate.
func (p *Pipeline) TotalStalls() uint64 { return p.totalStalls }

// NumStages returns the configured stage count.
func (p *Pipeline) NumStages() int { return p.numStages }

// StageOccupied reports whether stage i currently holds a packet, for
// inspection by owning components (e.g. DVU polling its iteration stage).
func (p *Pipeline) StageOccupied(i int) (bus.Packet, bool) {
	if !p.slots[i].occupied {
		return bus.Packet{}, false
	}
	return p.slots[i].pkt, true
}

// Tick implements the per-period algorithm of spec §4.5.
func (p *Pipeline) Tick() {
	now := p.scheduler.CurrentTime()

	// 1. Global stall signal.
	if sig, ok := p.StallIn.Peek(); ok && sig.Valid && sig.BoolValue {
		p.totalStalls++
		return
	}

	// 2. Drain the last stage to the output port.
	last := p.numStages - 1
	if p.slots[last].occupied {
		pkt := p.slots[last].pkt
		pkt.Timestamp = now
		p.Out.Write(pkt)
		p.slots[last] = slot{}
		p.totalProcessed++
	}

	// 3. Propagate stages N-1 down to 1, back-to-front.
	for i := p.numStages - 1; i >= 1; i-- {
		src := i - 1
		if !p.slots[src].occupied {
			continue
		}

		elapsed := now - p.slots[src].entryTime
		switch {
		case elapsed < p.latencies[src]:
			p.slots[src].pkt = p.stageFns[i](p.slots[src].pkt)
			p.totalStalls++
		case p.slots[i].occupied:
			p.slots[src].pkt = p.stageFns[i](p.slots[src].pkt)
			p.totalStalls++
		case p.stalls[i](p.slots[src].pkt):
			p.slots[src].pkt = p.stageFns[i](p.slots[src].pkt)
			p.totalStalls++
		default:
			out := p.stageFns[i](p.slots[src].pkt)
			p.slots[i] = slot{occupied: true, pkt: out, entryTime: now}
			p.slots[src] = slot{}
			p.observer.StageEntry(p.name, i, out)
		}
	}

	// 4. Load stage 0.
	if !p.slots[0].occupied {
		var in bus.Packet
		if pkt, ok := p.In.Read(); ok {
			in = pkt
		}
		result := p.stageFns[0](in)
		if result.Valid {
			result.Timestamp = now
			p.slots[0] = slot{occupied: true, pkt: result, entryTime: now}
			p.observer.StageEntry(p.name, 0, result)
		}
	}
}
