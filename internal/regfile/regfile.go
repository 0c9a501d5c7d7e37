// Package regfile implements the 32-entry architectural register bank
// with a RAW/WAW hazard scoreboard and optional write-through forwarding
// (spec §4.11).
package regfile

// RegisterFile is the architectural register bank. Register 0 is
// hardwired to zero: writes are discarded, reads return 0, and its
// scoreboard bit is never set.
type RegisterFile struct {
	numRegisters int
	numReadPorts int
	numWritePorts int
	forwarding   bool

	regs       []uint32
	scoreboard []bool

	forwardedWrites map[int]uint32

	readPortUses  int
	writePortUses int
	portExhaustions uint64
}

// New constructs a register file of numRegisters entries with the given
// declared read/write port counts and write-through forwarding mode.
func New(numRegisters, numReadPorts, numWritePorts int, forwarding bool) *RegisterFile {
	if numRegisters <= 0 {
		numRegisters = 32
	}
	return &RegisterFile{
		numRegisters:    numRegisters,
		numReadPorts:    numReadPorts,
		numWritePorts:   numWritePorts,
		forwarding:      forwarding,
		regs:            make([]uint32, numRegisters),
		scoreboard:      make([]bool, numRegisters),
		forwardedWrites: make(map[int]uint32),
	}
}

// BeginCycle clears the per-cycle forwarding snapshot and port-use
// counters. SCore calls this from its own ticker once every regfile
// period, ahead of its dispatch and writeback stages in that cycle.
func (r *RegisterFile) BeginCycle() {
	for k := range r.forwardedWrites {
		delete(r.forwardedWrites, k)
	}
	r.readPortUses = 0
	r.writePortUses = 0
}

// Read returns the value of register r. Write updates the register at
// once, so a read always returns the most recent write, with or without
// forwarding; with forwarding enabled the value comes from the per-cycle
// snapshot, which holds the same value. A read never returns the value a
// register held before a write made earlier in the same cycle.
func (r *RegisterFile) Read(reg int) uint32 {
	r.countReadPort()
	if reg == 0 || reg < 0 || reg >= r.numRegisters {
		return 0
	}
	if r.forwarding {
		if v, ok := r.forwardedWrites[reg]; ok {
			return v
		}
	}
	return r.regs[reg]
}

// Write sets register r to v. Writes to register 0 or out-of-range
// indices are silently ignored.
func (r *RegisterFile) Write(reg int, v uint32) {
	r.countWritePort()
	if reg == 0 || reg < 0 || reg >= r.numRegisters {
		return
	}
	r.regs[reg] = v
	if r.forwarding {
		r.forwardedWrites[reg] = v
	}
}

// IsBusy reports whether register r has an in-flight destination.
func (r *RegisterFile) IsBusy(reg int) bool {
	if reg == 0 || reg < 0 || reg >= r.numRegisters {
		return false
	}
	return r.scoreboard[reg]
}

// SetBusy marks register r as having an in-flight destination.
func (r *RegisterFile) SetBusy(reg int) {
	if reg == 0 || reg < 0 || reg >= r.numRegisters {
		return
	}
	r.scoreboard[reg] = true
}

// ClearBusy clears register r's in-flight marker.
func (r *RegisterFile) ClearBusy(reg int) {
	if reg == 0 || reg < 0 || reg >= r.numRegisters {
		return
	}
	r.scoreboard[reg] = false
}

// PortExhaustions is the lifetime count of reads and writes made beyond
// the declared read or write port count within one cycle. Not
// enforced for correctness (spec §4.11): every read/write still
// succeeds, only counted.
func (r *RegisterFile) PortExhaustions() uint64 { return r.portExhaustions }

func (r *RegisterFile) countReadPort() {
	r.readPortUses++
	if r.readPortUses > r.numReadPorts {
		r.portExhaustions++
	}
}

func (r *RegisterFile) countWritePort() {
	r.writePortUses++
	if r.writePortUses > r.numWritePorts {
		r.portExhaustions++
	}
}

// Reset returns the register file to its post-construction state without
// reallocating the backing slices.
func (r *RegisterFile) Reset() {
	for i := range r.regs {
		r.regs[i] = 0
		r.scoreboard[i] = false
	}
	for k := range r.forwardedWrites {
		delete(r.forwardedWrites, k)
	}
	r.readPortUses = 0
	r.writePortUses = 0
	r.portExhaustions = 0
}
