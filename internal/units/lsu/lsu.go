// Package lsu implements the 3-stage load/store unit (spec §4.10):
// address decode, interleaved-bank access, and response, over scalar
// byte/half/word loads and stores plus the "first element only" vector
// variants.
package lsu

import (
	"github.com/jasonKoogler/score-sim/internal/bus"
	"github.com/jasonKoogler/score-sim/internal/pipeline"
	"github.com/jasonKoogler/score-sim/internal/sched"
)

const (
	DefaultNumBanks     = 8
	DefaultBankCapacity = 1024
	DefaultBankLatency  = 2
)

// LSU is the load/store functional unit. It owns the banked data memory
// directly: num_banks and bank_capacity are LSU configuration, not an
// external collaborator, for this core (spec §1 lists a data-memory
// oracle as the core's external contract; SCore's load_data/read_data
// test affordances delegate straight into this store).
type LSU struct {
	name string
	pipe *pipeline.Pipeline

	numBanks     int
	bankCapacity int
	bankLatency  uint64
	banks        [][]uint32

	bankBusy      []bool
	bankConflicts uint64
}

type lsuOwner struct{ name string }

func (o lsuOwner) Name() string { return o.name }

// New constructs an LSU ticking at the given period, with num_banks banks
// of bank_capacity words each, each access taking bank_latency cycles.
func New(name string, scheduler *sched.Scheduler, period uint64, numBanks, bankCapacity int, bankLatency uint64) (*LSU, error) {
	if numBanks <= 0 {
		numBanks = DefaultNumBanks
	}
	if bankCapacity <= 0 {
		bankCapacity = DefaultBankCapacity
	}

	pipe, err := pipeline.New(name, scheduler, period, 3, lsuOwner{name})
	if err != nil {
		return nil, err
	}

	l := &LSU{
		name:         name,
		pipe:         pipe,
		numBanks:     numBanks,
		bankCapacity: bankCapacity,
		bankLatency:  bankLatency,
		banks:        make([][]uint32, numBanks),
	}
	for i := range l.banks {
		l.banks[i] = make([]uint32, bankCapacity)
	}
	l.bankBusy = make([]bool, numBanks)

	pipe.SetStageFn(0, l.decode)
	pipe.SetStageFn(1, l.beginAccess)
	pipe.SetStageFn(2, l.completeAccess)
	pipe.SetStageStall(2, l.stillAccessing)
	return l, nil
}

// Name identifies the unit for tracing.
func (l *LSU) Name() string { return l.name }

// In accepts MemReq packets.
func (l *LSU) In() *bus.Port { return l.pipe.In }

// Out emits MemResp packets.
func (l *LSU) Out() *bus.Port { return l.pipe.Out }

// SetObserver attaches a trace Observer to the underlying pipeline.
func (l *LSU) SetObserver(o bus.Observer) { l.pipe.SetObserver(o) }

// Start begins ticking at time t.
func (l *LSU) Start(t uint64) error { return l.pipe.Start(t) }

// Stop halts self-rescheduling.
func (l *LSU) Stop() { l.pipe.Stop() }

// Flush clears all in-flight stage slots.
func (l *LSU) Flush() { l.pipe.Flush() }

// Occupancy reports how many stage slots currently hold a packet.
func (l *LSU) Occupancy() int { return l.pipe.Occupancy() }

// TotalProcessed is the lifetime count of results written to Out.
func (l *LSU) TotalProcessed() uint64 { return l.pipe.TotalProcessed() }

// BankConflicts is the lifetime count of accesses that observed their
// target bank still servicing a prior access.
func (l *LSU) BankConflicts() uint64 { return l.bankConflicts }

// ReadWord exposes the banked store for test scaffolding and for SCore's
// load_data/read_data affordances, bypassing the pipeline entirely.
func (l *LSU) ReadWord(addr uint32) uint32 {
	bank, bankAddr := l.addressOf(addr)
	if int(bankAddr) >= l.bankCapacity {
		return 0
	}
	return l.banks[bank][bankAddr]
}

// WriteWord writes the banked store directly, for test scaffolding and
// SCore's load_data affordance.
func (l *LSU) WriteWord(addr, v uint32) {
	bank, bankAddr := l.addressOf(addr)
	if int(bankAddr) >= l.bankCapacity {
		return
	}
	l.banks[bank][bankAddr] = v
}

func (l *LSU) addressOf(addr uint32) (bank int, bankAddr uint32) {
	n := uint32(l.numBanks)
	return int(addr % n), addr / n
}

// decode is stage 0: compute the bank/bank_addr mapping.
func (l *LSU) decode(pkt bus.Packet) bus.Packet {
	if !pkt.Valid || pkt.Kind != bus.KindMemReq {
		return bus.Packet{}
	}
	req := pkt.MemReq
	req.Bank, req.BankAddr = l.addressOf(req.Address)
	pkt.MemReq = req
	pkt.Valid = true
	return pkt
}

// beginAccess is invoked (possibly repeatedly, while structurally
// blocked from entering stage 1) on a packet leaving stage 0. It is
// idempotent: AccessStarted guards the one-time bank-conflict check and
// latency countdown initialization.
func (l *LSU) beginAccess(pkt bus.Packet) bus.Packet {
	if pkt.Kind != bus.KindMemReq || pkt.MemReq.AccessStarted {
		return pkt
	}
	req := pkt.MemReq

	if l.bankBusy[req.Bank] {
		l.bankConflicts++
	}
	l.bankBusy[req.Bank] = true
	req.Remaining = int(l.bankLatency)
	req.AccessStarted = true
	pkt.MemReq = req
	return pkt
}

// stillAccessing is the stall predicate gating entry into stage 2: the
// packet remains held in stage 1 until the bank's access latency elapses.
func (l *LSU) stillAccessing(pkt bus.Packet) bool {
	return pkt.Kind == bus.KindMemReq && pkt.MemReq.Remaining > 0
}

// completeAccess is invoked once per cycle the packet sits in stage 1.
// While access remains outstanding it counts down; once done it performs
// the actual bank read or write and emits the response.
func (l *LSU) completeAccess(pkt bus.Packet) bus.Packet {
	if pkt.Kind != bus.KindMemReq {
		return pkt
	}
	req := pkt.MemReq

	if req.Remaining > 0 {
		req.Remaining--
		pkt.MemReq = req
		if req.Remaining == 0 {
			l.bankBusy[req.Bank] = false
		}
		return pkt
	}

	resp := l.access(req)
	pkt.Kind = bus.KindMemResp
	pkt.MemResp = resp
	return pkt
}

// access performs the actual bank read or write for a finished request.
// Out-of-range addresses return 0 on load and silently drop on store
// (spec §4.14 "LSU out-of-range address" failure semantics).
func (l *LSU) access(req bus.MemReq) bus.MemResp {
	inRange := int(req.BankAddr) < l.bankCapacity
	resp := bus.MemResp{Address: req.Address, RequestID: req.RequestID, Rd: req.Rd}

	switch req.Op {
	case bus.MemLB, bus.MemLBU:
		var word uint32
		if inRange {
			word = l.banks[req.Bank][req.BankAddr]
		}
		if req.Op == bus.MemLB {
			resp.Data = uint32(int32(int8(word)))
		} else {
			resp.Data = word & 0xFF
		}
	case bus.MemLH, bus.MemLHU:
		var word uint32
		if inRange {
			word = l.banks[req.Bank][req.BankAddr]
		}
		if req.Op == bus.MemLH {
			resp.Data = uint32(int32(int16(word)))
		} else {
			resp.Data = word & 0xFFFF
		}
	case bus.MemLW, bus.MemVecLoadUnitStride, bus.MemVecLoadStrided:
		if inRange {
			resp.Data = l.banks[req.Bank][req.BankAddr]
		}
	case bus.MemSB:
		if inRange {
			word := l.banks[req.Bank][req.BankAddr]
			l.banks[req.Bank][req.BankAddr] = (word &^ 0xFF) | (req.Data & 0xFF)
		}
		resp.Rd = 0
	case bus.MemSH:
		if inRange {
			word := l.banks[req.Bank][req.BankAddr]
			l.banks[req.Bank][req.BankAddr] = (word &^ 0xFFFF) | (req.Data & 0xFFFF)
		}
		resp.Rd = 0
	case bus.MemSW, bus.MemVecStoreUnitStride, bus.MemVecStoreStrided:
		if inRange {
			l.banks[req.Bank][req.BankAddr] = req.Data
		}
		resp.Rd = 0
	}

	return resp
}
