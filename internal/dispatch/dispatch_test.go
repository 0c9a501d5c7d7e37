package dispatch

import (
	"testing"

	"github.com/jasonKoogler/score-sim/internal/bus"
	"github.com/jasonKoogler/score-sim/internal/ibuf"
	"github.com/jasonKoogler/score-sim/internal/regfile"
)

type owner struct{ name string }

func (o owner) Name() string { return o.name }

func newTestPorts() Ports {
	return Ports{
		ALU: bus.NewPort("alu.in", bus.In, owner{"alu"}),
		BRU: bus.NewPort("bru.in", bus.In, owner{"bru"}),
		MLU: bus.NewPort("mlu.in", bus.In, owner{"mlu"}),
		DVU: bus.NewPort("dvu.in", bus.In, owner{"dvu"}),
		LSU: bus.NewPort("lsu.in", bus.In, owner{"lsu"}),
	}
}

func encodeRType(opcode, rd, rs1, rs2 uint32) uint32 {
	return (rs2 << 20) | (rs1 << 15) | (rd << 7) | opcode
}

func TestSingleALUDispatch(t *testing.T) {
	reg := regfile.New(32, 16, 8, false)
	reg.Write(1, 5)
	reg.Write(2, 7)
	ports := newTestPorts()
	c := New(2, reg, ports)

	fb := ibuf.NewFetchBuffer(8)
	fb.Push(ibuf.Entry{PC: 0, Word: encodeRType(0x33, 3, 1, 2)})

	n := c.DispatchCycle(fb)
	if n != 1 {
		t.Fatalf("DispatchCycle() dispatched %d, want 1", n)
	}
	pkt, ok := ports.ALU.Read()
	if !ok || pkt.ALUCmd.A != 5 || pkt.ALUCmd.B != 7 {
		t.Fatalf("ALU command = %+v ok=%v, want a=5 b=7", pkt.ALUCmd, ok)
	}
	if !reg.IsBusy(3) {
		t.Errorf("x3 should be marked busy after dispatch")
	}
}

func TestRAWHazardStopsDispatch(t *testing.T) {
	reg := regfile.New(32, 16, 8, false)
	reg.SetBusy(1) // x1 already has an in-flight destination
	ports := newTestPorts()
	c := New(2, reg, ports)

	fb := ibuf.NewFetchBuffer(8)
	fb.Push(ibuf.Entry{PC: 0, Word: encodeRType(0x33, 3, 1, 2)})
	fb.Push(ibuf.Entry{PC: 4, Word: encodeRType(0x33, 4, 0, 0)})

	n := c.DispatchCycle(fb)
	if n != 0 {
		t.Fatalf("DispatchCycle() dispatched %d, want 0 (RAW hazard on x1)", n)
	}
	if fb.Len() != 2 {
		t.Errorf("fetch buffer should be untouched, len = %d", fb.Len())
	}
	if c.HazardStalls() != 1 {
		t.Errorf("HazardStalls() = %d, want 1", c.HazardStalls())
	}
}

func TestBranchStopsDispatchAfterItself(t *testing.T) {
	reg := regfile.New(32, 16, 8, false)
	ports := newTestPorts()
	c := New(3, reg, ports)

	fb := ibuf.NewFetchBuffer(8)
	fb.Push(ibuf.Entry{PC: 0, Word: encodeRType(0x33, 3, 1, 2)})
	fb.Push(ibuf.Entry{PC: 4, Word: 0x63}) // BEQ
	fb.Push(ibuf.Entry{PC: 8, Word: encodeRType(0x33, 5, 1, 2)})

	n := c.DispatchCycle(fb)
	if n != 2 {
		t.Fatalf("DispatchCycle() dispatched %d, want 2 (stop after the branch)", n)
	}
	if fb.Len() != 1 {
		t.Errorf("third instruction should remain buffered, len = %d", fb.Len())
	}
}

func TestMLUExclusivePerCycle(t *testing.T) {
	reg := regfile.New(32, 16, 8, false)
	ports := newTestPorts()
	c := New(2, reg, ports)

	mul := encodeRType(0x33, 3, 1, 2) | (1 << 25)
	fb := ibuf.NewFetchBuffer(8)
	fb.Push(ibuf.Entry{PC: 0, Word: mul})
	fb.Push(ibuf.Entry{PC: 4, Word: mul})

	n := c.DispatchCycle(fb)
	if n != 1 {
		t.Fatalf("DispatchCycle() dispatched %d, want 1 (MLU accepts at most one per cycle)", n)
	}
	if fb.Len() != 1 {
		t.Errorf("second MUL should remain buffered, len = %d", fb.Len())
	}
	if c.ResourceStalls() != 1 {
		t.Errorf("ResourceStalls() = %d, want 1", c.ResourceStalls())
	}
}

func TestCSROnlyInLaneZero(t *testing.T) {
	reg := regfile.New(32, 16, 8, false)
	ports := newTestPorts()
	c := New(3, reg, ports)

	fb := ibuf.NewFetchBuffer(8)
	fb.Push(ibuf.Entry{PC: 0, Word: encodeRType(0x33, 3, 1, 2)})
	fb.Push(ibuf.Entry{PC: 4, Word: 0x73}) // CSR/system

	n := c.DispatchCycle(fb)
	if n != 1 {
		t.Fatalf("DispatchCycle() dispatched %d, want 1 (CSR denied in lane 1)", n)
	}
}
