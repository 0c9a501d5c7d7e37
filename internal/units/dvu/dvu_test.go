package dvu

import (
	"testing"

	"github.com/jasonKoogler/score-sim/internal/bus"
	"github.com/jasonKoogler/score-sim/internal/sched"
)

func runFor(t *testing.T, s *sched.Scheduler, n uint64) {
	t.Helper()
	max := s.CurrentTime() + n
	if err := s.Run(&max); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
}

func submit(d *DVU, op bus.DVUOp, dividend, divisor uint32, rd int) {
	d.In().Write(bus.Packet{Kind: bus.KindDVUCmd, Valid: true, DVUCmd: bus.DVUCmd{Op: op, Dividend: dividend, Divisor: divisor, Rd: rd}})
}

func TestDIVUSimple(t *testing.T) {
	s := sched.New()
	d, err := New("dvu0", s, 1)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := d.Start(0); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	submit(d, bus.DVUDivu, 100, 7, 9)
	runFor(t, s, 8)

	pkt, ok := d.Out().Read()
	if !ok {
		t.Fatalf("expected a result within 8 cycles")
	}
	if pkt.DVURes.Value != 100/7 {
		t.Errorf("DIVU(100,7) = %d, want %d", pkt.DVURes.Value, 100/7)
	}
}

func TestDIVSignedNegativeQuotient(t *testing.T) {
	s := sched.New()
	d, err := New("dvu0", s, 1)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := d.Start(0); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	dividend := int32(-20)
	submit(d, bus.DVUDiv, uint32(dividend), 3, 1)
	runFor(t, s, 8)

	pkt, ok := d.Out().Read()
	if !ok {
		t.Fatalf("expected a result")
	}
	if int32(pkt.DVURes.Value) != -6 {
		t.Errorf("DIV(-20,3) = %d, want -6", int32(pkt.DVURes.Value))
	}
}

func TestDivByZero(t *testing.T) {
	s := sched.New()
	d, err := New("dvu0", s, 1)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := d.Start(0); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	submit(d, bus.DVUDivu, 42, 0, 2)
	runFor(t, s, 8)

	pkt, ok := d.Out().Read()
	if !ok {
		t.Fatalf("expected a result")
	}
	if pkt.DVURes.Value != 0xFFFFFFFF {
		t.Errorf("DIVU(_,0) = %#x, want 0xFFFFFFFF", pkt.DVURes.Value)
	}
	if d.DivByZeroCount() != 1 {
		t.Errorf("DivByZeroCount() = %d, want 1", d.DivByZeroCount())
	}
}

func TestREMUsesDividendSign(t *testing.T) {
	s := sched.New()
	d, err := New("dvu0", s, 1)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := d.Start(0); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	dividend := int32(-10)
	submit(d, bus.DVURem, uint32(dividend), 3, 1)
	runFor(t, s, 8)

	pkt, ok := d.Out().Read()
	if !ok {
		t.Fatalf("expected a result")
	}
	if int32(pkt.DVURes.Value) != -1 {
		t.Errorf("REM(-10,3) = %d, want -1", int32(pkt.DVURes.Value))
	}
}
