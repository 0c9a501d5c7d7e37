package core

import (
	"testing"

	"github.com/jasonKoogler/score-sim/internal/sched"
)

func TestNewRejectsZeroLanes(t *testing.T) {
	scheduler := sched.New()
	params := defaultParams()
	params.NumLanes = 0

	_, err := New(scheduler, params)
	if err == nil {
		t.Fatalf("New() with NumLanes = 0 should return an error")
	}
}

func TestLoadAndReadRegister(t *testing.T) {
	scheduler := sched.New()
	score, err := New(scheduler, defaultParams())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	score.WriteRegister(5, 42)
	if got := score.ReadRegister(5); got != 42 {
		t.Errorf("ReadRegister(5) = %d, want 42", got)
	}
}

func TestRegisterZeroIsAlwaysZero(t *testing.T) {
	scheduler := sched.New()
	score, err := New(scheduler, defaultParams())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	score.WriteRegister(0, 99)
	if got := score.ReadRegister(0); got != 0 {
		t.Errorf("ReadRegister(0) = %d, want 0 (x0 must stay hardwired to zero)", got)
	}
}

func TestLoadAndReadData(t *testing.T) {
	scheduler := sched.New()
	score, err := New(scheduler, defaultParams())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	score.LoadData(16, 0xDEADBEEF)
	if got := score.ReadData(16); got != 0xDEADBEEF {
		t.Errorf("ReadData(16) = %#x, want 0xDEADBEEF", got)
	}
}

func TestInjectBypassesInstructionBuffer(t *testing.T) {
	scheduler := sched.New()
	score, err := New(scheduler, defaultParams())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	// Never loaded into the instruction buffer, only injected.
	score.Inject(0, encodeADD(3, 1, 2))
	score.WriteRegister(1, 2)
	score.WriteRegister(2, 3)

	runCycles(scheduler, score, 10)

	if got := score.ReadRegister(3); got != 5 {
		t.Errorf("ReadRegister(3) = %d, want 5 after injected ADD", got)
	}
}

func TestResetClearsState(t *testing.T) {
	scheduler := sched.New()
	score, err := New(scheduler, defaultParams())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	score.LoadInstruction(0, encodeADD(3, 1, 2))
	score.WriteRegister(1, 5)
	score.WriteRegister(2, 7)
	runCycles(scheduler, score, 10)

	if score.InstructionsRetired() == 0 {
		t.Fatalf("expected at least one retirement before reset")
	}

	score.Reset()

	if score.InstructionsRetired() != 0 {
		t.Errorf("InstructionsRetired() = %d after Reset(), want 0", score.InstructionsRetired())
	}
	if score.PC() != 0 {
		t.Errorf("PC() = %d after Reset(), want 0", score.PC())
	}
	if score.ReadRegister(3) != 0 {
		t.Errorf("ReadRegister(3) = %d after Reset(), want 0 (register file reset)", score.ReadRegister(3))
	}

	// A second reset from the same state must be indistinguishable from the first.
	score.Reset()
	if score.InstructionsRetired() != 0 || score.PC() != 0 {
		t.Errorf("second Reset() changed state: retired=%d pc=%d", score.InstructionsRetired(), score.PC())
	}
}

func TestStartStopIsIdempotentAcrossRuns(t *testing.T) {
	scheduler := sched.New()
	score, err := New(scheduler, defaultParams())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	score.LoadInstruction(0, encodeADD(3, 1, 2))
	score.WriteRegister(1, 1)
	score.WriteRegister(2, 1)

	if err := score.Start(0); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	max := uint64(10)
	if err := scheduler.Run(&max); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	score.Stop()

	if got := score.ReadRegister(3); got != 2 {
		t.Errorf("ReadRegister(3) = %d, want 2", got)
	}
}
