package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/jasonKoogler/score-sim/internal/config"
	"github.com/jasonKoogler/score-sim/internal/simulator"
)

func main() {
	configPath := flag.String("config", "configs/default.yaml", "Path to the configuration file")
	verbose := flag.Bool("v", false, "Enable verbose output")
	numCycles := flag.Uint64("cycles", 1000, "Number of cycles to simulate")
	maxTime := flag.Uint64("max-time", 0, "Run until this scheduler timestamp instead of a cycle count (0 disables)")
	programPath := flag.String("program", "", "Path to a flat instruction image (\"0xADDR 0xWORD\" per line)")
	flag.Parse()

	logger := log.New(os.Stdout, "", log.LstdFlags)
	if *verbose {
		logger.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)
	}

	logger.Println("SCore Pipeline Simulator")

	var cfg *config.Config
	if _, err := os.Stat(*configPath); err == nil {
		cfg, err = config.LoadConfig(*configPath)
		if err != nil {
			logger.Fatalf("Failed to load configuration: %v", err)
		}
	} else {
		logger.Printf("No config file at %s, using defaults", *configPath)
		cfg = config.DefaultConfig()
	}

	fmt.Println("\nConfiguration Summary:")
	fmt.Printf("	Lanes: %d\n", cfg.NumLanes)
	fmt.Printf("	Registers: %d (%d read ports, %d write ports, forwarding=%v)\n",
		cfg.NumRegisters, cfg.NumReadPorts, cfg.NumWritePorts, cfg.UseRegfileForwarding)
	fmt.Printf("	Unit periods: alu=%d bru=%d mlu=%d dvu=%d lsu=%d regfile=%d\n",
		cfg.ALUPeriod, cfg.BRUPeriod, cfg.MLUPeriod, cfg.DVUPeriod, cfg.LSUPeriod, cfg.RegfilePeriod)
	fmt.Printf("	LSU banks: %d x %d words, bank latency %d\n",
		cfg.LSUNumBanks, cfg.LSUBankCapacity, cfg.LSUBankLatency)
	fmt.Printf("	Fetch buffer depth: %d\n", cfg.FetchBufferDepth)

	sim, err := simulator.New(cfg)
	if err != nil {
		logger.Fatalf("Failed to initialize simulator: %v", err)
	}

	if *programPath != "" {
		n, err := loadProgram(sim, *programPath)
		if err != nil {
			logger.Fatalf("Failed to load program: %v", err)
		}
		logger.Printf("Loaded %d instructions from %s", n, *programPath)
	}

	if *maxTime > 0 {
		logger.Printf("Running until time %d...", *maxTime)
		if err := sim.RunUntil(*maxTime); err != nil {
			logger.Fatalf("Simulation failed: %v", err)
		}
	} else {
		if *numCycles == 0 {
			logger.Fatalf("Invalid cycle count: %d", *numCycles)
		}
		logger.Printf("Running for %d cycles...", *numCycles)
		if err := sim.Run(*numCycles); err != nil {
			logger.Fatalf("Simulation failed: %v", err)
		}
	}

	stats := sim.GetStatistics()
	fmt.Println("\nSimulation Statistics:")
	fmt.Printf("	Total Cycles: %d\n", stats.TotalCycles)
	fmt.Printf("	Instructions Dispatched: %d\n", stats.InstructionsDispatched)
	fmt.Printf("	Instructions Retired: %d\n", stats.InstructionsRetired)
	fmt.Printf("	IPC: %.3f\n", stats.IPC)
	fmt.Printf("	Hazard Stalls: %d\n", stats.HazardStalls)
	fmt.Printf("	Resource Stalls: %d\n", stats.ResourceStalls)
	fmt.Printf("	Div-by-zero Count: %d\n", stats.DivByZeroCount)
	fmt.Printf("	LSU Bank Conflicts: %d\n", stats.LSUBankConflicts)
}

// loadProgram parses a flat instruction image, one "0xADDR 0xWORD" pair per
// line, and loads each word into the core's instruction buffer.
func loadProgram(sim interface {
	LoadInstruction(addr, word uint32)
}, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open program file: %w", err)
	}
	defer f.Close()

	count := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 2 {
			return count, fmt.Errorf("malformed program line %q: want \"0xADDR 0xWORD\"", line)
		}
		addr, err := strconv.ParseUint(fields[0], 0, 32)
		if err != nil {
			return count, fmt.Errorf("bad address %q: %w", fields[0], err)
		}
		word, err := strconv.ParseUint(fields[1], 0, 32)
		if err != nil {
			return count, fmt.Errorf("bad word %q: %w", fields[1], err)
		}
		sim.LoadInstruction(uint32(addr), uint32(word))
		count++
	}
	if err := scanner.Err(); err != nil {
		return count, fmt.Errorf("failed to read program file: %w", err)
	}

	return count, nil
}
