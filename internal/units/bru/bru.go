// Package bru implements the single-lane branch/jump/system resolver
// (spec §4.7). It is a degenerate one-stage instance of the generic
// pipeline engine: BRU has no multi-cycle latency, so its contract is
// expressed as a pure function wrapped by a single-stage pipeline for
// port-compatibility with the rest of the functional-unit fleet.
package bru

import (
	"github.com/jasonKoogler/score-sim/internal/bus"
	"github.com/jasonKoogler/score-sim/internal/pipeline"
	"github.com/jasonKoogler/score-sim/internal/sched"
)

// BRU is the branch resolver.
type BRU struct {
	name string
	pipe *pipeline.Pipeline
}

type bruOwner struct{ name string }

func (o bruOwner) Name() string { return o.name }

// New constructs a BRU ticking at the given period.
func New(name string, scheduler *sched.Scheduler, period uint64) (*BRU, error) {
	pipe, err := pipeline.New(name, scheduler, period, 1, bruOwner{name})
	if err != nil {
		return nil, err
	}
	b := &BRU{name: name, pipe: pipe}
	pipe.SetStageFn(0, func(pkt bus.Packet) bus.Packet {
		if pkt.Kind != bus.KindBRUCmd || !pkt.Valid {
			return bus.Packet{}
		}
		res := resolve(pkt.BRUCmd)
		return bus.Packet{Kind: bus.KindBRURes, Valid: true, Timestamp: pkt.Timestamp, BRURes: res}
	})
	return b, nil
}

// Name identifies the unit for tracing.
func (b *BRU) Name() string { return b.name }

// In accepts BRUCmd packets.
func (b *BRU) In() *bus.Port { return b.pipe.In }

// Out emits BRURes packets.
func (b *BRU) Out() *bus.Port { return b.pipe.Out }

// SetObserver attaches a trace Observer to the underlying pipeline.
func (b *BRU) SetObserver(o bus.Observer) { b.pipe.SetObserver(o) }

// Start begins ticking at time t.
func (b *BRU) Start(t uint64) error { return b.pipe.Start(t) }

// Stop halts self-rescheduling.
func (b *BRU) Stop() { b.pipe.Stop() }

// Flush clears the in-flight slot.
func (b *BRU) Flush() { b.pipe.Flush() }

// TotalProcessed is the lifetime count of results written to Out.
func (b *BRU) TotalProcessed() uint64 { return b.pipe.TotalProcessed() }

// resolve implements the pure branch/jump/system evaluation of spec §4.7.
// Target-address computation from immediates is out of scope for this
// core: the dispatcher supplies pc_next directly.
func resolve(cmd bus.BRUCmd) bus.BRURes {
	res := bus.BRURes{Rd: cmd.Rd}

	switch cmd.Op {
	case bus.BRUJal, bus.BRUJalr:
		res.LinkData = cmd.PC + 4
		res.LinkValid = true
		res.Taken = true
		res.Target = cmd.PCNext
	case bus.BRUBeq:
		res.Taken = cmd.Rs1 == cmd.Rs2
		res.Target = cmd.PCNext
	case bus.BRUBne:
		res.Taken = cmd.Rs1 != cmd.Rs2
		res.Target = cmd.PCNext
	case bus.BRUBlt:
		res.Taken = int32(cmd.Rs1) < int32(cmd.Rs2)
		res.Target = cmd.PCNext
	case bus.BRUBge:
		res.Taken = int32(cmd.Rs1) >= int32(cmd.Rs2)
		res.Target = cmd.PCNext
	case bus.BRUBltu:
		res.Taken = cmd.Rs1 < cmd.Rs2
		res.Target = cmd.PCNext
	case bus.BRUBgeu:
		res.Taken = cmd.Rs1 >= cmd.Rs2
		res.Target = cmd.PCNext
	case bus.BRUEcall, bus.BRUMret:
		res.Taken = true
		res.Target = cmd.PCNext
	}

	return res
}
