package alu

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

func TestALUAddThroughPipeline(t *testing.T) {
	s := sched.New()
	a, err := New("alu0", s, 1)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := a.Start(0); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	a.In().Write(bus.Packet{Kind: bus.KindALUCmd, Valid: true, ALUCmd: bus.ALUCmd{A: 5, B: 7, Op: bus.ALUAdd, Rd: 3}})

	runFor(t, s, 3)
	pkt, ok := a.Out().Read()
	if !ok {
		t.Fatalf("expected a result after 3 cycles")
	}
	if pkt.ALURes.Value != 12 || pkt.ALURes.Rd != 3 {
		t.Fatalf("ALURes = %+v, want value=12 rd=3", pkt.ALURes)
	}

	rdPkt, ok := a.RdOut.Read()
	if !ok || rdPkt.IntValue != 3 {
		t.Errorf("RdOut = %+v ok=%v, want rd=3", rdPkt, ok)
	}
	dataPkt, ok := a.DataOut.Read()
	if !ok || dataPkt.IntValue != 12 {
		t.Errorf("DataOut = %+v ok=%v, want 12", dataPkt, ok)
	}
}

func TestComputeTable(t *testing.T) {
	a := &ALU{}
	cases := []struct {
		name     string
		cmd      bus.ALUCmd
		wantVal  uint32
	}{
		{"SUB", bus.ALUCmd{A: 10, B: 3, Op: bus.ALUSub}, 7},
		{"SLT true", bus.ALUCmd{A: ^uint32(0), B: 1, Op: bus.ALUSlt}, 1}, // -1 < 1
		{"SLTU false", bus.ALUCmd{A: ^uint32(0), B: 1, Op: bus.ALUSltu}, 0},
		{"SLL masks shamt", bus.ALUCmd{A: 1, B: 32, Op: bus.ALUSll}, 1}, // 32 & 0x1F == 0
		{"SRA sign-extends", bus.ALUCmd{A: 0x80000000, B: 4, Op: bus.ALUSra}, 0xF8000000},
		{"DIV by zero is 0", bus.ALUCmd{A: 10, B: 0, Op: bus.ALUDiv}, 0},
		{"CLZ of 0 is 32", bus.ALUCmd{A: 0, Op: bus.ALUClz}, 32},
		{"CTZ of 0 is 32", bus.ALUCmd{A: 0, Op: bus.ALUCtz}, 32},
		{"ANDN", bus.ALUCmd{A: 0xFF, B: 0x0F, Op: bus.ALUAndn}, 0xF0},
		{"MAXU", bus.ALUCmd{A: 3, B: 9, Op: bus.ALUMaxu}, 9},
		{"ROL by 4", bus.ALUCmd{A: 0x0000000F, B: 4, Op: bus.ALURol}, 0x000000F0},
		{"SEXTB negative", bus.ALUCmd{A: 0x80, Op: bus.ALUSextb}, 0xFFFFFF80},
		{"PASS_A", bus.ALUCmd{A: 42, B: 99, Op: bus.ALUPassA}, 42},
		{"PASS_B", bus.ALUCmd{A: 42, B: 99, Op: bus.ALUPassB}, 99},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := a.compute(c.cmd)
			if got.Value != c.wantVal {
				t.Errorf("compute(%+v) = %#x, want %#x", c.cmd, got.Value, c.wantVal)
			}
		})
	}
}

func TestMACAccumulates(t *testing.T) {
	a := &ALU{}
	r1 := a.compute(bus.ALUCmd{A: 2, B: 3, Op: bus.ALUMac})
	if r1.Value != 6 {
		t.Fatalf("first MAC = %d, want 6", r1.Value)
	}
	r2 := a.compute(bus.ALUCmd{A: 4, B: 5, Op: bus.ALUMac})
	if r2.Value != 26 {
		t.Fatalf("second MAC = %d, want 26 (6 + 4*5)", r2.Value)
	}
}
