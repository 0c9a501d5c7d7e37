// Package alu implements the INTU functional unit: a 3-stage
// decode/execute/writeback pipeline evaluating RV32I arithmetic/logic,
// RV32M MUL/DIV convenience ops, the ZBB bit-manipulation extension, and
// the MAC/PASS_A/PASS_B extras (spec §4.6).
package alu

import (
	"math/bits"

	"github.com/jasonKoogler/score-sim/internal/bus"
	"github.com/jasonKoogler/score-sim/internal/pipeline"
	"github.com/jasonKoogler/score-sim/internal/sched"
)

// ALU is the 3-stage integer/bit-manipulation executor. Its result is
// exposed on the generic pipeline's Out port and mirrored onto RdOut and
// DataOut so it can be wired directly into the register file (spec §4.6
// "duplicated via dedicated rd_out and data_out ports").
type ALU struct {
	name    string
	pipe    *pipeline.Pipeline
	ticking *bus.TickingComponent

	RdOut   *bus.Port
	DataOut *bus.Port

	accumulator uint64
}

// New constructs an ALU ticking at the given period.
func New(name string, scheduler *sched.Scheduler, period uint64) (*ALU, error) {
	pipe, err := pipeline.New(name, scheduler, period, 3, aluOwner{name})
	if err != nil {
		return nil, err
	}

	a := &ALU{
		name:    name,
		pipe:    pipe,
		RdOut:   bus.NewPort(name+".rd_out", bus.Out, aluOwner{name}),
		DataOut: bus.NewPort(name+".data_out", bus.Out, aluOwner{name}),
	}

	pipe.SetStageFn(1, a.execute)
	a.ticking = bus.NewTickingComponent(scheduler, period, 0, a)
	return a, nil
}

type aluOwner struct{ name string }

func (o aluOwner) Name() string { return o.name }

// Name identifies the unit for tracing.
func (a *ALU) Name() string { return a.name }

// In accepts ALUCmd packets.
func (a *ALU) In() *bus.Port { return a.pipe.In }

// Out emits ALURes packets.
func (a *ALU) Out() *bus.Port { return a.pipe.Out }

// SetObserver attaches a trace Observer to the underlying pipeline.
func (a *ALU) SetObserver(o bus.Observer) { a.pipe.SetObserver(o) }

// Start begins ticking at time t.
func (a *ALU) Start(t uint64) error { return a.ticking.Start(t) }

// Stop halts self-rescheduling.
func (a *ALU) Stop() { a.ticking.Stop() }

// Flush clears all in-flight stage slots.
func (a *ALU) Flush() { a.pipe.Flush() }

// Occupancy reports how many stage slots currently hold a packet.
func (a *ALU) Occupancy() int { return a.pipe.Occupancy() }

// TotalProcessed is the lifetime count of results written to Out.
func (a *ALU) TotalProcessed() uint64 { return a.pipe.TotalProcessed() }

// Tick drives the underlying pipeline and mirrors a freshly drained result
// onto RdOut/DataOut for the same cycle.
func (a *ALU) Tick() {
	before := a.pipe.TotalProcessed()
	a.pipe.Tick()
	if a.pipe.TotalProcessed() == before {
		return
	}
	pkt, ok := a.pipe.Out.Peek()
	if !ok {
		return
	}
	a.RdOut.Write(bus.NewInt(int64(pkt.ALURes.Rd), pkt.Timestamp))
	a.DataOut.Write(bus.NewInt(int64(pkt.ALURes.Value), pkt.Timestamp))
}

// execute is the stage-1 transform: it computes the pure ALU function and
// re-tags the packet as an ALURes result for stage 2 to carry to Out.
func (a *ALU) execute(pkt bus.Packet) bus.Packet {
	if pkt.Kind != bus.KindALUCmd {
		return pkt
	}
	res := a.compute(pkt.ALUCmd)
	pkt.Kind = bus.KindALURes
	pkt.ALURes = res
	return pkt
}

// compute implements execute_operation(a, b, op): deterministic and
// referentially transparent (spec §8 "ALU pure-function contract").
func (a *ALU) compute(cmd bus.ALUCmd) bus.ALURes {
	x, y := cmd.A, cmd.B
	shamt := y & 0x1F

	var v uint32
	switch cmd.Op {
	case bus.ALUAdd:
		v = x + y
	case bus.ALUSub:
		v = x - y
	case bus.ALUSlt:
		if int32(x) < int32(y) {
			v = 1
		}
	case bus.ALUSltu:
		if x < y {
			v = 1
		}
	case bus.ALUXor:
		v = x ^ y
	case bus.ALUOr:
		v = x | y
	case bus.ALUAnd:
		v = x & y
	case bus.ALUSll:
		v = x << shamt
	case bus.ALUSrl:
		v = x >> shamt
	case bus.ALUSra:
		v = uint32(int32(x) >> shamt)
	case bus.ALULui:
		v = y
	case bus.ALUMul:
		v = x * y
	case bus.ALUDiv:
		if y == 0 {
			v = 0
		} else {
			v = uint32(int32(x) / int32(y))
		}
	case bus.ALUAndn:
		v = x &^ y
	case bus.ALUOrn:
		v = x | ^y
	case bus.ALUXnor:
		v = ^(x ^ y)
	case bus.ALUClz:
		v = clz32(x)
	case bus.ALUCtz:
		v = ctz32(x)
	case bus.ALUCpop:
		v = uint32(bits.OnesCount32(x))
	case bus.ALUMax:
		if int32(x) > int32(y) {
			v = x
		} else {
			v = y
		}
	case bus.ALUMaxu:
		if x > y {
			v = x
		} else {
			v = y
		}
	case bus.ALUMin:
		if int32(x) < int32(y) {
			v = x
		} else {
			v = y
		}
	case bus.ALUMinu:
		if x < y {
			v = x
		} else {
			v = y
		}
	case bus.ALUSextb:
		v = uint32(int32(int8(x)))
	case bus.ALUSexth:
		v = uint32(int32(int16(x)))
	case bus.ALURol:
		v = bits.RotateLeft32(x, int(shamt))
	case bus.ALURor:
		v = bits.RotateLeft32(x, -int(shamt))
	case bus.ALUOrcb:
		v = orcb32(x)
	case bus.ALURev8:
		v = bits.ReverseBytes32(x)
	case bus.ALUZexth:
		v = x & 0xFFFF
	case bus.ALUMac:
		a.accumulator += uint64(x) * uint64(y)
		v = uint32(a.accumulator)
	case bus.ALUPassA:
		v = x
	case bus.ALUPassB:
		v = y
	}

	return bus.ALURes{Value: v, Rd: cmd.Rd}
}

// clz32 counts leading zero bits; clz32(0) == 32 per spec §4.6.
func clz32(x uint32) uint32 {
	return uint32(bits.LeadingZeros32(x))
}

// ctz32 counts trailing zero bits; ctz32(0) == 32 per spec §4.6.
func ctz32(x uint32) uint32 {
	return uint32(bits.TrailingZeros32(x))
}

// orcb32 is the ZBB "OR-combine, bytes" operation: each byte of the result
// is 0xFF if the corresponding input byte is nonzero, else 0x00.
func orcb32(x uint32) uint32 {
	var out uint32
	for i := 0; i < 4; i++ {
		b := (x >> (8 * i)) & 0xFF
		if b != 0 {
			out |= 0xFF << (8 * i)
		}
	}
	return out
}
