// Package core implements SCore, the 3-stage scalar instruction pipeline
// (spec §4.14) that wires together the instruction/fetch buffers, the
// register file, the decoder, the dispatch controller, and the five
// functional units into one cycle-accurate core.
package core

import (
	"fmt"

	"github.com/jasonKoogler/score-sim/internal/bus"
	"github.com/jasonKoogler/score-sim/internal/conn"
	"github.com/jasonKoogler/score-sim/internal/dispatch"
	"github.com/jasonKoogler/score-sim/internal/ibuf"
	"github.com/jasonKoogler/score-sim/internal/pipeline"
	"github.com/jasonKoogler/score-sim/internal/regfile"
	"github.com/jasonKoogler/score-sim/internal/sched"
	"github.com/jasonKoogler/score-sim/internal/units/alu"
	"github.com/jasonKoogler/score-sim/internal/units/bru"
	"github.com/jasonKoogler/score-sim/internal/units/dvu"
	"github.com/jasonKoogler/score-sim/internal/units/lsu"
	"github.com/jasonKoogler/score-sim/internal/units/mlu"
)

// Params configures the functional units and connections a Score assembles.
// It mirrors the configuration surface of spec §6 "new_core(scheduler,
// config)".
type Params struct {
	NumLanes             int
	NumRegisters         int
	NumReadPorts         int
	NumWritePorts        int
	UseRegfileForwarding bool

	ALUPeriod     uint64
	BRUPeriod     uint64
	MLUPeriod     uint64
	DVUPeriod     uint64
	LSUPeriod     uint64
	RegfilePeriod uint64

	ConnectionLatency uint64
	BufferSize        int
	FetchBufferDepth  int

	LSUNumBanks     int
	LSUBankCapacity int
	LSUBankLatency  uint64
}

// writeback tracks one functional unit's polled result Wire, deduplicating
// retirement of the same buffered packet across repeated polls (spec
// §4.14 "deduplicated by (connection_index, timestamp)").
type writeback struct {
	wire     *conn.Wire
	lastSeen uint64
	seen     bool
}

// Score is the 3-stage SCore pipeline: fetch/decode, dispatch, writeback.
type Score struct {
	scheduler  *sched.Scheduler
	pipe       *pipeline.Pipeline
	ticking    *bus.TickingComponent
	regTicking *bus.TickingComponent
	observer   bus.Observer

	ibuffer  *ibuf.InstructionBuffer
	fetchBuf *ibuf.FetchBuffer
	reg      *regfile.RegisterFile

	alu *alu.ALU
	bru *bru.BRU
	mlu *mlu.MLU
	dvu *dvu.DVU
	lsu *lsu.LSU

	dispatcher *dispatch.Controller

	writebacks []writeback

	pc                     uint32
	instructionsRetired    uint64
	instructionsDispatched uint64
}

type scoreOwner struct{}

func (scoreOwner) Name() string { return "score" }

// New assembles a Score: all five functional units, their writeback Wires,
// the register file, the instruction/fetch buffers, and the dispatch
// controller, all driven from the given scheduler.
func New(scheduler *sched.Scheduler, p Params) (*Score, error) {
	if p.NumLanes <= 0 {
		return nil, fmt.Errorf("core: num_lanes must be positive, got %d", p.NumLanes)
	}

	s := &Score{
		scheduler: scheduler,
		observer:  bus.NoopObserver{},
		ibuffer:   ibuf.New(),
		fetchBuf:  ibuf.NewFetchBuffer(p.FetchBufferDepth),
		reg:       regfile.New(p.NumRegisters, p.NumReadPorts, p.NumWritePorts, p.UseRegfileForwarding),
	}

	var err error
	if s.alu, err = alu.New("alu", scheduler, p.ALUPeriod); err != nil {
		return nil, fmt.Errorf("core: %w", err)
	}
	if s.bru, err = bru.New("bru", scheduler, p.BRUPeriod); err != nil {
		return nil, fmt.Errorf("core: %w", err)
	}
	if s.mlu, err = mlu.New("mlu", scheduler, p.MLUPeriod); err != nil {
		return nil, fmt.Errorf("core: %w", err)
	}
	if s.dvu, err = dvu.New("dvu", scheduler, p.DVUPeriod); err != nil {
		return nil, fmt.Errorf("core: %w", err)
	}
	if s.lsu, err = lsu.New("lsu", scheduler, p.LSUPeriod, p.LSUNumBanks, p.LSUBankCapacity, p.LSUBankLatency); err != nil {
		return nil, fmt.Errorf("core: %w", err)
	}

	s.dispatcher = dispatch.New(p.NumLanes, s.reg, dispatch.Ports{
		ALU: s.alu.In(), BRU: s.bru.In(), MLU: s.mlu.In(), DVU: s.dvu.In(), LSU: s.lsu.In(),
	})

	corePeriod := p.ALUPeriod
	if corePeriod == 0 {
		corePeriod = 1
	}
	s.writebacks = []writeback{
		{wire: conn.NewWire("alu.wb", scheduler, corePeriod, 0, s.alu.Out(), nil, p.ConnectionLatency)},
		{wire: conn.NewWire("bru.wb", scheduler, corePeriod, 0, s.bru.Out(), nil, p.ConnectionLatency)},
		{wire: conn.NewWire("mlu.wb", scheduler, corePeriod, 0, s.mlu.Out(), nil, p.ConnectionLatency)},
		{wire: conn.NewWire("dvu.wb", scheduler, corePeriod, 0, s.dvu.Out(), nil, p.ConnectionLatency)},
		{wire: conn.NewWire("lsu.wb", scheduler, corePeriod, 0, s.lsu.Out(), nil, p.ConnectionLatency)},
	}

	pipe, err := pipeline.New("score", scheduler, corePeriod, 3, scoreOwner{})
	if err != nil {
		return nil, fmt.Errorf("core: %w", err)
	}
	pipe.SetStageFn(0, s.fetchDecode)
	pipe.SetStageFn(1, s.dispatchStage)
	pipe.SetStageFn(2, s.writebackStage)
	s.pipe = pipe

	regfilePeriod := p.RegfilePeriod
	if regfilePeriod == 0 {
		regfilePeriod = 1
	}
	s.regTicking = bus.NewTickingComponent(scheduler, regfilePeriod, 0, regCycleTicker{s.reg})

	s.ticking = bus.NewTickingComponent(scheduler, corePeriod, 0, s)
	return s, nil
}

// regCycleTicker drives RegisterFile.BeginCycle on the configured
// regfile_period, independent of the core's own 3-stage cadence (spec §6
// "regfile_period").
type regCycleTicker struct{ reg *regfile.RegisterFile }

func (t regCycleTicker) Tick() { t.reg.BeginCycle() }

// SetObserver attaches a trace Observer to the core and every functional
// unit and dispatcher it owns; nil restores the no-op default.
func (s *Score) SetObserver(o bus.Observer) {
	s.observer = bus.OrDefault(o)
	s.alu.SetObserver(o)
	s.bru.SetObserver(o)
	s.mlu.SetObserver(o)
	s.dvu.SetObserver(o)
	s.lsu.SetObserver(o)
	s.dispatcher.SetObserver(o)
}

// Start begins the core and every component it owns ticking at time t.
// Producers (functional units, then their writeback wires) are started
// before the core's own pipeline, matching spec §5's "initialization
// order must match dataflow direction" ordering requirement.
func (s *Score) Start(t uint64) error {
	if err := s.alu.Start(t); err != nil {
		return err
	}
	if err := s.bru.Start(t); err != nil {
		return err
	}
	if err := s.mlu.Start(t); err != nil {
		return err
	}
	if err := s.dvu.Start(t); err != nil {
		return err
	}
	if err := s.lsu.Start(t); err != nil {
		return err
	}
	for _, wb := range s.writebacks {
		if err := wb.wire.Start(t); err != nil {
			return err
		}
	}
	if err := s.regTicking.Start(t); err != nil {
		return err
	}
	return s.ticking.Start(t)
}

// Stop halts self-rescheduling for the core and every component it owns.
func (s *Score) Stop() {
	s.alu.Stop()
	s.bru.Stop()
	s.mlu.Stop()
	s.dvu.Stop()
	s.lsu.Stop()
	for _, wb := range s.writebacks {
		wb.wire.Stop()
	}
	s.regTicking.Stop()
	s.ticking.Stop()
}

// Reset clears the PC, the dispatched/retired counters, the fetch buffer,
// the register file, every pipeline's stage slots, and the writeback dedup
// state. Two successive resets are indistinguishable from one (spec §8
// "reset() is idempotent"). It does not clear the dispatcher's hazard and
// resource stall counters, the DVU and LSU counters, the LSU's data memory
// and bank-busy flags, the instruction buffer, or packets still held in
// unit ports and writeback wires.
func (s *Score) Reset() {
	s.pc = 0
	s.instructionsRetired = 0
	s.instructionsDispatched = 0
	s.fetchBuf.Flush()
	s.reg.Reset()
	s.alu.Flush()
	s.bru.Flush()
	s.mlu.Flush()
	s.dvu.Flush()
	s.lsu.Flush()
	s.pipe.Flush()
	for i := range s.writebacks {
		s.writebacks[i].seen = false
		s.writebacks[i].lastSeen = 0
	}
}

// LoadInstruction installs word at address pc in the instruction buffer
// (spec §6 "core.load_instruction").
func (s *Score) LoadInstruction(pc, word uint32) { s.ibuffer.Load(pc, word) }

// LoadData writes val to addr in the LSU's banked data store (spec §6
// "core.load_data").
func (s *Score) LoadData(addr, val uint32) { s.lsu.WriteWord(addr, val) }

// ReadData reads addr from the LSU's banked data store (spec §6
// "core.read_data").
func (s *Score) ReadData(addr uint32) uint32 { return s.lsu.ReadWord(addr) }

// ReadRegister reads architectural register r (spec §6 "core.read_register").
func (s *Score) ReadRegister(r int) uint32 { return s.reg.Read(r) }

// WriteRegister writes architectural register r (spec §6
// "core.write_register").
func (s *Score) WriteRegister(r int, v uint32) { s.reg.Write(r, v) }

// Inject pushes (pc, word) directly onto the fetch buffer, bypassing the
// instruction buffer and PC advance (spec §6 "core.inject").
func (s *Score) Inject(pc, word uint32) {
	if s.fetchBuf.HasRoom() {
		s.fetchBuf.Push(ibuf.Entry{PC: pc, Word: word})
	}
}

// InstructionsDispatched is the lifetime count of successfully dispatched
// instructions.
func (s *Score) InstructionsDispatched() uint64 { return s.instructionsDispatched }

// DivByZeroCount is the lifetime count of divisions by zero observed by
// the DVU.
func (s *Score) DivByZeroCount() uint64 { return s.dvu.DivByZeroCount() }

// LSUBankConflicts is the lifetime count of LSU accesses that observed
// their target bank still servicing a prior access.
func (s *Score) LSUBankConflicts() uint64 { return s.lsu.BankConflicts() }

// HazardStalls is the lifetime count of dispatch denials due to a RAW
// scoreboard hazard.
func (s *Score) HazardStalls() uint64 { return s.dispatcher.HazardStalls() }

// ResourceStalls is the lifetime count of dispatch denials due to a busy
// functional-unit resource.
func (s *Score) ResourceStalls() uint64 { return s.dispatcher.ResourceStalls() }

// InstructionsRetired is the lifetime count of instructions that wrote
// back a result (or completed a store) and cleared their scoreboard entry.
func (s *Score) InstructionsRetired() uint64 { return s.instructionsRetired }

// PC returns the current fetch program counter.
func (s *Score) PC() uint32 { return s.pc }

// Tick drives the 3-stage pipeline (writeback, dispatch, fetch/decode, in
// that propagation order — spec §4.5 step 3 runs stage N-1 down to 1
// before stage 0 loads). The register file's own per-cycle forwarding
// snapshot is cleared independently by regTicking at regfile_period.
func (s *Score) Tick() {
	s.pipe.Tick()
}

// fetchDecode is stage 0: if the fetch buffer has room, fetch the word at
// pc from the instruction buffer, push it, and advance pc by 4. The input
// pkt is unused; the stage returns a stub packet purely so the pipeline
// engine's bookkeeping advances a slot into stage 1 (spec §4.14 "stage 0").
func (s *Score) fetchDecode(bus.Packet) bus.Packet {
	if s.fetchBuf.HasRoom() {
		word := s.ibuffer.Fetch(s.pc)
		s.fetchBuf.Push(ibuf.Entry{PC: s.pc, Word: word})
		s.pc += 4
	}
	return bus.Packet{Kind: bus.KindInvalid, Valid: true}
}

// dispatchStage is stage 1: invoke the dispatch controller against the
// fetch buffer. It always returns a valid stub packet so stage 2
// continues to fire (spec §4.14 "stage 1").
func (s *Score) dispatchStage(bus.Packet) bus.Packet {
	n := s.dispatcher.DispatchCycle(s.fetchBuf)
	s.instructionsDispatched += uint64(n)
	return bus.Packet{Kind: bus.KindInvalid, Valid: true}
}

// writebackStage is stage 2: poll every functional unit's writeback Wire,
// retire any freshly observed result, and drain the Wire's current slot
// (spec §4.14 "stage 2").
func (s *Score) writebackStage(pkt bus.Packet) bus.Packet {
	for i := range s.writebacks {
		s.pollWriteback(&s.writebacks[i])
	}
	return pkt
}

func (s *Score) pollWriteback(wb *writeback) {
	result, ok := wb.wire.Current()
	if !ok {
		return
	}
	if wb.seen && result.Timestamp == wb.lastSeen {
		wb.wire.DrainCurrent()
		return
	}
	wb.lastSeen = result.Timestamp
	wb.seen = true

	if rd, value, retires := retireFields(result); retires {
		s.reg.Write(rd, value)
		if rd != 0 {
			s.reg.ClearBusy(rd)
		}
		s.instructionsRetired++
		s.observer.Retire(wb.wire.Name(), rd, value)
	} else if result.Kind == bus.KindMemResp {
		// A store completes without writing a register.
		s.instructionsRetired++
	}
	wb.wire.DrainCurrent()
}

// retireFields extracts (rd, value, writesBack) from a functional unit's
// result packet. Conditional branches and stores carry no destination
// register and do not retire a writeback.
func retireFields(pkt bus.Packet) (rd int, value uint32, writesBack bool) {
	switch pkt.Kind {
	case bus.KindALURes:
		return pkt.ALURes.Rd, pkt.ALURes.Value, true
	case bus.KindBRURes:
		if !pkt.BRURes.LinkValid {
			return 0, 0, false
		}
		return pkt.BRURes.Rd, pkt.BRURes.LinkData, true
	case bus.KindMLURes:
		return pkt.MLURes.Rd, pkt.MLURes.Value, true
	case bus.KindDVURes:
		return pkt.DVURes.Rd, pkt.DVURes.Value, true
	case bus.KindMemResp:
		if pkt.MemResp.Rd == 0 {
			return 0, 0, false
		}
		return pkt.MemResp.Rd, pkt.MemResp.Data, true
	default:
		return 0, 0, false
	}
}
