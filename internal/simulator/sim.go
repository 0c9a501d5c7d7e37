package simulator

import (
	"fmt"
	"time"

	"github.com/jasonKoogler/score-sim/internal/config"
	"github.com/jasonKoogler/score-sim/internal/core"
	"github.com/jasonKoogler/score-sim/internal/sched"
)

// Statistics contains the metrics gathered from a run of the core.
type Statistics struct {
	TotalCycles            uint64
	InstructionsDispatched uint64
	InstructionsRetired    uint64
	IPC                    float64 // instructions retired per cycle
	HazardStalls           uint64
	ResourceStalls         uint64
	DivByZeroCount         uint64
	LSUBankConflicts       uint64
}

// simulator wraps a single Scheduler and SCore into the harness-facing API
// the CLI drives (spec §6 "new_core(scheduler, config)" plus a top-level
// run/stats surface). Non-goal: no multi-core.
type simulator struct {
	config *config.Config
	sched  *sched.Scheduler
	score  *core.Score
	stats  Statistics
}

// New constructs a Scheduler and SCore from cfg.
func New(cfg *config.Config) (*simulator, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil configuration provided")
	}

	scheduler := sched.New()
	score, err := core.New(scheduler, core.Params{
		NumLanes:             cfg.NumLanes,
		NumRegisters:         cfg.NumRegisters,
		NumReadPorts:         cfg.NumReadPorts,
		NumWritePorts:        cfg.NumWritePorts,
		UseRegfileForwarding: cfg.UseRegfileForwarding,
		ALUPeriod:            cfg.ALUPeriod,
		BRUPeriod:            cfg.BRUPeriod,
		MLUPeriod:            cfg.MLUPeriod,
		DVUPeriod:            cfg.DVUPeriod,
		LSUPeriod:            cfg.LSUPeriod,
		RegfilePeriod:        cfg.RegfilePeriod,
		ConnectionLatency:    cfg.ConnectionLatency,
		BufferSize:           cfg.BufferSize,
		FetchBufferDepth:     cfg.FetchBufferDepth,
		LSUNumBanks:          cfg.LSUNumBanks,
		LSUBankCapacity:      cfg.LSUBankCapacity,
		LSUBankLatency:       cfg.LSUBankLatency,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize core: %w", err)
	}

	return &simulator{
		config: cfg,
		sched:  scheduler,
		score:  score,
	}, nil
}

// Score exposes the underlying core so the CLI can load instructions and
// data before running.
func (s *simulator) Score() *core.Score { return s.score }

// LoadInstruction loads a word into the instruction buffer at addr.
func (s *simulator) LoadInstruction(addr, word uint32) { s.score.LoadInstruction(addr, word) }

// LoadData preloads a word of LSU-backed memory at addr.
func (s *simulator) LoadData(addr, value uint32) { s.score.LoadData(addr, value) }

// Run starts the core at the configured start time and advances the
// scheduler for the given number of cycles.
func (s *simulator) Run(cycles uint64) error {
	if cycles == 0 {
		return fmt.Errorf("cycle count must be greater than 0")
	}

	if err := s.score.Start(s.config.StartTime); err != nil {
		return fmt.Errorf("failed to start core: %w", err)
	}

	start := time.Now()
	maxTime := s.config.StartTime + cycles
	if err := s.sched.Run(&maxTime); err != nil {
		return fmt.Errorf("scheduler run failed: %w", err)
	}
	duration := time.Since(start)

	s.score.Stop()
	s.calculateStatistics(cycles)

	fmt.Printf("Simulated %d cycles in %v (%.2f cycles/second)\n", cycles, duration, float64(cycles)/duration.Seconds())

	return nil
}

// RunUntil starts the core and advances the scheduler until maxTime is
// reached (spec §6 "-max-time" semantics).
func (s *simulator) RunUntil(maxTime uint64) error {
	if err := s.score.Start(s.config.StartTime); err != nil {
		return fmt.Errorf("failed to start core: %w", err)
	}

	if err := s.sched.Run(&maxTime); err != nil {
		return fmt.Errorf("scheduler run failed: %w", err)
	}

	s.score.Stop()
	s.calculateStatistics(maxTime - s.config.StartTime)
	return nil
}

func (s *simulator) calculateStatistics(cycles uint64) {
	s.stats.TotalCycles = cycles
	s.stats.InstructionsDispatched = s.score.InstructionsDispatched()
	s.stats.InstructionsRetired = s.score.InstructionsRetired()
	s.stats.HazardStalls = s.score.HazardStalls()
	s.stats.ResourceStalls = s.score.ResourceStalls()
	s.stats.DivByZeroCount = s.score.DivByZeroCount()
	s.stats.LSUBankConflicts = s.score.LSUBankConflicts()

	if cycles > 0 {
		s.stats.IPC = float64(s.stats.InstructionsRetired) / float64(cycles)
	}
}

// GetStatistics returns a copy of the statistics from the most recent Run.
func (s *simulator) GetStatistics() Statistics {
	return s.stats
}

// Reset clears the statistics and calls the core's Reset, which leaves some
// core counters and memory in place (see core.Score.Reset).
func (s *simulator) Reset() {
	s.score.Reset()
	s.stats = Statistics{}
}
