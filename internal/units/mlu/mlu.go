// Package mlu implements the 3-stage multiply unit (spec §4.8): MUL,
// MULH, MULHSU, MULHU, selecting the low or high 32 bits of a
// pre-sign-extended 64-bit product.
package mlu

import (
	"github.com/jasonKoogler/score-sim/internal/bus"
	"github.com/jasonKoogler/score-sim/internal/pipeline"
	"github.com/jasonKoogler/score-sim/internal/sched"
)

// MLU is the multiplier functional unit.
type MLU struct {
	name string
	pipe *pipeline.Pipeline
}

type mluOwner struct{ name string }

func (o mluOwner) Name() string { return o.name }

// New constructs an MLU ticking at the given period.
func New(name string, scheduler *sched.Scheduler, period uint64) (*MLU, error) {
	pipe, err := pipeline.New(name, scheduler, period, 3, mluOwner{name})
	if err != nil {
		return nil, err
	}
	m := &MLU{name: name, pipe: pipe}
	pipe.SetStageFn(2, selectHalf)
	return m, nil
}

// Name identifies the unit for tracing.
func (m *MLU) Name() string { return m.name }

// In accepts MLUCmd packets.
func (m *MLU) In() *bus.Port { return m.pipe.In }

// Out emits MLURes packets.
func (m *MLU) Out() *bus.Port { return m.pipe.Out }

// SetObserver attaches a trace Observer to the underlying pipeline.
func (m *MLU) SetObserver(o bus.Observer) { m.pipe.SetObserver(o) }

// Start begins ticking at time t.
func (m *MLU) Start(t uint64) error { return m.pipe.Start(t) }

// Stop halts self-rescheduling.
func (m *MLU) Stop() { m.pipe.Stop() }

// Flush clears all in-flight stage slots.
func (m *MLU) Flush() { m.pipe.Flush() }

// Occupancy reports how many stage slots currently hold a packet.
func (m *MLU) Occupancy() int { return m.pipe.Occupancy() }

// TotalProcessed is the lifetime count of results written to Out.
func (m *MLU) TotalProcessed() uint64 { return m.pipe.TotalProcessed() }

// ComputeProduct64 forms the 64-bit product a command should carry before
// it reaches MLU, sign-extended per op (spec §4.8 "Incoming command
// presents product: i64 already sign-extended appropriately").
func ComputeProduct64(op bus.MLUOp, a, b uint32) int64 {
	switch op {
	case bus.MLUMulhu:
		return int64(uint64(a) * uint64(b))
	case bus.MLUMulhsu:
		return int64(int64(int32(a)) * int64(b))
	default: // MUL, MULH: signed x signed
		return int64(int32(a)) * int64(int32(b))
	}
}

// selectHalf is the stage-2 transform: the caller (decoder/dispatcher) has
// already formed Product64 as a fully sign-extended 64-bit product per the
// op's signedness rules; this stage only picks which 32 bits survive.
func selectHalf(pkt bus.Packet) bus.Packet {
	if pkt.Kind != bus.KindMLUCmd {
		return pkt
	}
	cmd := pkt.MLUCmd
	var v uint32
	switch cmd.Op {
	case bus.MLUMul:
		v = uint32(cmd.Product64)
	default: // MULH, MULHSU, MULHU
		v = uint32(cmd.Product64 >> 32)
	}
	pkt.Kind = bus.KindMLURes
	pkt.MLURes = bus.MLURes{Value: v, Rd: cmd.Rd}
	return pkt
}
