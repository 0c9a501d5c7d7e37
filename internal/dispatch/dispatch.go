// Package dispatch implements the in-order dispatch controller of spec
// §4.13: per-lane hazard detection against the register scoreboard,
// per-unit once-per-cycle resource gating for MLU/DVU/LSU, and the
// stop-on-first-deny / stop-after-control-flow in-order rules.
package dispatch

import (
	"github.com/jasonKoogler/score-sim/internal/bus"
	"github.com/jasonKoogler/score-sim/internal/decode"
	"github.com/jasonKoogler/score-sim/internal/ibuf"
	"github.com/jasonKoogler/score-sim/internal/regfile"
	"github.com/jasonKoogler/score-sim/internal/units/mlu"
)

// Ports bundles the functional-unit input ports the controller issues
// commands onto.
type Ports struct {
	ALU *bus.Port
	BRU *bus.Port
	MLU *bus.Port
	DVU *bus.Port
	LSU *bus.Port
}

// Controller is the dispatch controller.
type Controller struct {
	numLanes int
	reg      *regfile.RegisterFile
	ports    Ports
	observer bus.Observer

	instructionsDispatched uint64
	hazardStalls           uint64
	resourceStalls         uint64
}

// New constructs a dispatch controller issuing into the given unit ports,
// allowing up to numLanes dispatches per cycle.
func New(numLanes int, reg *regfile.RegisterFile, ports Ports) *Controller {
	if numLanes <= 0 {
		numLanes = 1
	}
	return &Controller{numLanes: numLanes, reg: reg, ports: ports, observer: bus.NoopObserver{}}
}

// SetObserver attaches a trace Observer; nil restores the no-op default.
func (c *Controller) SetObserver(o bus.Observer) { c.observer = bus.OrDefault(o) }

// InstructionsDispatched is the lifetime count of successfully dispatched
// instructions.
func (c *Controller) InstructionsDispatched() uint64 { return c.instructionsDispatched }

// HazardStalls is the lifetime count of dispatch denials due to a RAW
// scoreboard hazard.
func (c *Controller) HazardStalls() uint64 { return c.hazardStalls }

// ResourceStalls is the lifetime count of dispatch denials due to a busy
// functional-unit resource (once-per-cycle MLU/DVU/LSU, or a full input
// port).
func (c *Controller) ResourceStalls() uint64 { return c.resourceStalls }

// DispatchCycle runs one dispatch cycle against the front of fb, issuing
// at most numLanes instructions subject to the in-order stop rules, and
// returns how many were dispatched.
func (c *Controller) DispatchCycle(fb *ibuf.FetchBuffer) int {
	var mluBusy, dvuBusy, lsuBusy bool
	dispatched := 0

	for lane := 0; lane < c.numLanes; lane++ {
		entry, ok := fb.Front()
		if !ok {
			break
		}
		inst := decode.Decode(entry.PC, entry.Word)

		allowed, reason := c.canDispatch(inst, lane, mluBusy, dvuBusy, lsuBusy)
		c.observer.DispatchDecision("dispatch", lane, allowed, reason)
		if !allowed {
			if reason == "raw-hazard" {
				c.hazardStalls++
			} else {
				c.resourceStalls++
			}
			break
		}

		fb.PopFront()
		c.issue(inst)
		switch inst.OpType {
		case decode.OpMLU:
			mluBusy = true
		case decode.OpDVU:
			dvuBusy = true
		case decode.OpLSU:
			lsuBusy = true
		}

		dispatched++
		c.instructionsDispatched++

		if inst.IsControlFlow() || inst.OpType == decode.OpCSR || inst.OpType == decode.OpFence {
			break
		}
	}

	return dispatched
}

// canDispatch implements the per-candidate test of spec §4.13.
func (c *Controller) canDispatch(inst decode.Instruction, lane int, mluBusy, dvuBusy, lsuBusy bool) (bool, string) {
	if lane > 0 && (inst.OpType == decode.OpCSR || inst.OpType == decode.OpFence) {
		return false, "special-slot-zero-only"
	}
	if inst.Rs1 != 0 && c.reg.IsBusy(inst.Rs1) {
		return false, "raw-hazard"
	}
	if inst.Rs2 != 0 && c.reg.IsBusy(inst.Rs2) {
		return false, "raw-hazard"
	}
	switch inst.OpType {
	case decode.OpMLU:
		if mluBusy {
			return false, "mlu-busy"
		}
		if c.ports.MLU.HasData() {
			return false, "mlu-port-full"
		}
	case decode.OpDVU:
		if dvuBusy {
			return false, "dvu-busy"
		}
		if c.ports.DVU.HasData() {
			return false, "dvu-port-full"
		}
	case decode.OpLSU:
		if lsuBusy {
			return false, "lsu-busy"
		}
		if c.ports.LSU.HasData() {
			return false, "lsu-port-full"
		}
	case decode.OpALU:
		if c.ports.ALU.HasData() {
			return false, "alu-port-full"
		}
	case decode.OpBRU:
		if c.ports.BRU.HasData() {
			return false, "bru-port-full"
		}
	}
	return true, ""
}

// issue writes the unit's input port and marks the destination busy.
func (c *Controller) issue(inst decode.Instruction) {
	a := c.reg.Read(inst.Rs1)
	b := c.reg.Read(inst.Rs2)

	switch inst.OpType {
	case decode.OpALU:
		c.ports.ALU.Write(bus.Packet{Kind: bus.KindALUCmd, Valid: true, ALUCmd: bus.ALUCmd{A: a, B: b, Op: inst.ALUOp, Rd: inst.Rd}})
	case decode.OpBRU:
		c.ports.BRU.Write(bus.Packet{Kind: bus.KindBRUCmd, Valid: true, BRUCmd: bus.BRUCmd{
			PC: inst.Addr, PCNext: inst.Addr + uint32(inst.Imm), Op: inst.BRUOp, Rs1: a, Rs2: b, Rd: inst.Rd,
		}})
	case decode.OpMLU:
		prod := mlu.ComputeProduct64(inst.MLUOp, a, b)
		c.ports.MLU.Write(bus.Packet{Kind: bus.KindMLUCmd, Valid: true, MLUCmd: bus.MLUCmd{Op: inst.MLUOp, Rd: inst.Rd, Product64: prod}})
	case decode.OpDVU:
		c.ports.DVU.Write(bus.Packet{Kind: bus.KindDVUCmd, Valid: true, DVUCmd: bus.DVUCmd{Op: inst.DVUOp, Dividend: a, Divisor: b, Rd: inst.Rd}})
	case decode.OpLSU:
		c.ports.LSU.Write(bus.Packet{Kind: bus.KindMemReq, Valid: true, MemReq: bus.MemReq{
			Op: inst.MemOp, Address: a + uint32(inst.Imm), Data: b, Rd: inst.Rd,
		}})
	}

	// Conditional branches decode rd from B-type immediate bits, not a
	// real destination register: only JAL/JALR (link_valid) write one.
	marksDest := inst.OpType != decode.OpBRU || inst.BRUOp == bus.BRUJal || inst.BRUOp == bus.BRUJalr
	if inst.Rd != 0 && marksDest {
		c.reg.SetBusy(inst.Rd)
	}
}
