// Package dvu implements the 3-stage iterative divide unit (spec §4.9):
// DIV, DIVU, REM, REMU via 8-bits-per-cycle restoring division. The
// middle stage holds a packet for 4 cycles using the generic pipeline's
// stall-predicate mechanism (spec §4.5 "Why": applying the stage function
// even while stalled lets iterative units accumulate per-cycle progress).
package dvu

import (
	"github.com/jasonKoogler/score-sim/internal/bus"
	"github.com/jasonKoogler/score-sim/internal/pipeline"
	"github.com/jasonKoogler/score-sim/internal/sched"
)

const bitsPerStep = 8
const stepsToFinish = 32 / bitsPerStep // 4

// DVU is the divide functional unit.
type DVU struct {
	name string
	pipe *pipeline.Pipeline

	divByZeroCount uint64
}

type dvuOwner struct{ name string }

func (o dvuOwner) Name() string { return o.name }

// New constructs a DVU ticking at the given period.
func New(name string, scheduler *sched.Scheduler, period uint64) (*DVU, error) {
	pipe, err := pipeline.New(name, scheduler, period, 3, dvuOwner{name})
	if err != nil {
		return nil, err
	}
	d := &DVU{name: name, pipe: pipe}

	pipe.SetStageFn(0, d.decode)
	pipe.SetStageFn(2, d.iterateOrFormat)
	pipe.SetStageStall(2, stillIterating)
	return d, nil
}

// Name identifies the unit for tracing.
func (d *DVU) Name() string { return d.name }

// In accepts DVUCmd packets.
func (d *DVU) In() *bus.Port { return d.pipe.In }

// Out emits DVURes packets.
func (d *DVU) Out() *bus.Port { return d.pipe.Out }

// SetObserver attaches a trace Observer to the underlying pipeline.
func (d *DVU) SetObserver(o bus.Observer) { d.pipe.SetObserver(o) }

// Start begins ticking at time t.
func (d *DVU) Start(t uint64) error { return d.pipe.Start(t) }

// Stop halts self-rescheduling.
func (d *DVU) Stop() { d.pipe.Stop() }

// Flush clears all in-flight stage slots.
func (d *DVU) Flush() { d.pipe.Flush() }

// Occupancy reports how many stage slots currently hold a packet.
func (d *DVU) Occupancy() int { return d.pipe.Occupancy() }

// TotalProcessed is the lifetime count of results written to Out.
func (d *DVU) TotalProcessed() uint64 { return d.pipe.TotalProcessed() }

// DivByZeroCount is the lifetime count of divisions by zero observed.
func (d *DVU) DivByZeroCount() uint64 { return d.divByZeroCount }

// decode is stage 0: detect divisor zero, record operand signs, take
// absolute values, and prime the iteration countdown.
func (d *DVU) decode(pkt bus.Packet) bus.Packet {
	if !pkt.Valid || pkt.Kind != bus.KindDVUCmd {
		return bus.Packet{}
	}
	cmd := pkt.DVUCmd

	cmd.DivByZero = cmd.Divisor == 0
	switch cmd.Op {
	case bus.DVUDiv, bus.DVURem:
		cmd.NegDividend = int32(cmd.Dividend) < 0
		cmd.NegDivisor = int32(cmd.Divisor) < 0
		cmd.AbsDividend = absInt32(cmd.Dividend)
		cmd.AbsDivisor = absInt32(cmd.Divisor)
	default: // DIVU, REMU
		cmd.AbsDividend = cmd.Dividend
		cmd.AbsDivisor = cmd.Divisor
	}

	cmd.Remaining = stepsToFinish
	cmd.PartialRemainder = 0
	cmd.Quotient = 0

	if cmd.DivByZero {
		d.divByZeroCount++
		cmd.Remaining = 0
	}

	pkt.DVUCmd = cmd
	pkt.Valid = true
	return pkt
}

// stillIterating is the stall predicate gating entry into stage 2: the
// packet remains held in stage 1 while restoring division has steps left.
func stillIterating(pkt bus.Packet) bool {
	return pkt.Kind == bus.KindDVUCmd && pkt.DVUCmd.Remaining > 0
}

// iterateOrFormat is invoked once per cycle the packet sits in stage 1. If
// iteration remains, it performs one 8-bit restoring-division step; once
// done, it re-applies sign per spec §4.9 and emits the final DVURes. The
// function is idempotent once finished, since it re-runs once more on the
// cycle the packet actually transfers into stage 2.
func (d *DVU) iterateOrFormat(pkt bus.Packet) bus.Packet {
	if pkt.Kind != bus.KindDVUCmd {
		return pkt
	}
	cmd := pkt.DVUCmd

	if cmd.Remaining > 0 {
		restoringStep(&cmd)
		pkt.DVUCmd = cmd
		return pkt
	}

	res := format(cmd)
	pkt.Kind = bus.KindDVURes
	pkt.DVURes = res
	return pkt
}

// restoringStep advances the restoring-division algorithm by one 8-bit
// chunk: shift 8 bits of the dividend into the partial remainder, then
// compare/subtract/set each of the 8 quotient bits in turn.
func restoringStep(cmd *bus.DVUCmd) {
	for i := 0; i < bitsPerStep; i++ {
		bitIndex := 31 - (stepsToFinish-cmd.Remaining)*bitsPerStep - i
		bit := (cmd.AbsDividend >> uint(bitIndex)) & 1

		cmd.PartialRemainder = (cmd.PartialRemainder << 1) | bit
		cmd.Quotient <<= 1
		if cmd.PartialRemainder >= cmd.AbsDivisor {
			cmd.PartialRemainder -= cmd.AbsDivisor
			cmd.Quotient |= 1
		}
	}
	cmd.Remaining--
}

// format re-applies sign per spec §4.9: quotient sign is the XOR of
// operand signs, remainder sign follows the dividend; division by zero
// yields an all-ones quotient and the untouched dividend as remainder.
func format(cmd bus.DVUCmd) bus.DVURes {
	if cmd.DivByZero {
		switch cmd.Op {
		case bus.DVUDiv, bus.DVUDivu:
			return bus.DVURes{Value: 0xFFFFFFFF, Rd: cmd.Rd}
		default: // REM, REMU
			return bus.DVURes{Value: cmd.Dividend, Rd: cmd.Rd}
		}
	}

	switch cmd.Op {
	case bus.DVUDiv:
		q := cmd.Quotient
		if cmd.NegDividend != cmd.NegDivisor {
			q = -q
		}
		return bus.DVURes{Value: q, Rd: cmd.Rd}
	case bus.DVUDivu:
		return bus.DVURes{Value: cmd.Quotient, Rd: cmd.Rd}
	case bus.DVURem:
		r := cmd.PartialRemainder
		if cmd.NegDividend {
			r = -r
		}
		return bus.DVURes{Value: r, Rd: cmd.Rd}
	default: // REMU
		return bus.DVURes{Value: cmd.PartialRemainder, Rd: cmd.Rd}
	}
}

func absInt32(x uint32) uint32 {
	s := int32(x)
	if s < 0 {
		return uint32(-s)
	}
	return uint32(s)
}
