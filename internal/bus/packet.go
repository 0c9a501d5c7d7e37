// Package bus defines the data that flows between simulator components
// (Packet), the slots components expose to carry it (Port), the
// self-rescheduling component base (TickingComponent), and an Observer hook
// for tracing. It is the shared vocabulary the rest of the simulator is
// built on.
package bus

// Kind discriminates the closed set of payloads a Packet can carry. The
// packet zoo is finite, so a tagged struct with per-kind fields is used in
// place of the source's RTTI-style downcasts.
type Kind int

const (
	KindInvalid Kind = iota
	KindInt
	KindBool
	KindALUCmd
	KindALURes
	KindBRUCmd
	KindBRURes
	KindMLUCmd
	KindMLURes
	KindDVUCmd
	KindDVURes
	KindMemReq
	KindMemResp
)

func (k Kind) String() string {
	switch k {
	case KindInvalid:
		return "Invalid"
	case KindInt:
		return "Int"
	case KindBool:
		return "Bool"
	case KindALUCmd:
		return "ALUCmd"
	case KindALURes:
		return "ALURes"
	case KindBRUCmd:
		return "BRUCmd"
	case KindBRURes:
		return "BRURes"
	case KindMLUCmd:
		return "MLUCmd"
	case KindMLURes:
		return "MLURes"
	case KindDVUCmd:
		return "DVUCmd"
	case KindDVURes:
		return "DVURes"
	case KindMemReq:
		return "MemReq"
	case KindMemResp:
		return "MemResp"
	default:
		return "Unknown"
	}
}

// ALUOp enumerates the operations the ALU/INTU functional unit accepts:
// RV32I integer arithmetic/logic, RV32M MUL/DIV convenience ops, the
// standard ZBB bit-manipulation extension, and the MAC/PASS_A/PASS_B
// extras described in spec §4.6.
type ALUOp int

const (
	ALUAdd ALUOp = iota
	ALUSub
	ALUSlt
	ALUSltu
	ALUXor
	ALUOr
	ALUAnd
	ALUSll
	ALUSrl
	ALUSra
	ALULui
	ALUMul
	ALUDiv
	ALUAndn
	ALUOrn
	ALUXnor
	ALUClz
	ALUCtz
	ALUCpop
	ALUMax
	ALUMaxu
	ALUMin
	ALUMinu
	ALUSextb
	ALUSexth
	ALURol
	ALURor
	ALUOrcb
	ALURev8
	ALUZexth
	ALUMac
	ALUPassA
	ALUPassB
)

// BRUOp enumerates the branch/jump/system operations BRU resolves.
type BRUOp int

const (
	BRUBeq BRUOp = iota
	BRUBne
	BRUBlt
	BRUBge
	BRUBltu
	BRUBgeu
	BRUJal
	BRUJalr
	BRUEcall
	BRUMret
)

// MLUOp enumerates the multiply-unit operations.
type MLUOp int

const (
	MLUMul MLUOp = iota
	MLUMulh
	MLUMulhsu
	MLUMulhu
)

// DVUOp enumerates the divide-unit operations.
type DVUOp int

const (
	DVUDiv DVUOp = iota
	DVUDivu
	DVURem
	DVURemu
)

// MemOp enumerates LSU load/store operations, including the unit-stride and
// strided vector variants (whose required behavior is "process the first
// element only" per spec §4.10 — full vector semantics are out of scope).
type MemOp int

const (
	MemLB MemOp = iota
	MemLH
	MemLW
	MemLBU
	MemLHU
	MemSB
	MemSH
	MemSW
	MemVecLoadUnitStride
	MemVecLoadStrided
	MemVecStoreUnitStride
	MemVecStoreStrided
)

// ALUCmd is the ALU input command packet.
type ALUCmd struct {
	A, B uint32
	Op   ALUOp
	Rd   int
}

// ALURes is the ALU output result packet.
type ALURes struct {
	Value uint32
	Rd    int
}

// BRUCmd is the BRU input command packet. Target-address computation from
// immediates is out of scope for this core: the dispatcher supplies
// PCNext directly (spec §4.7).
type BRUCmd struct {
	PC, PCNext uint32
	Op         BRUOp
	Rs1, Rs2   uint32
	Rd         int
}

// BRURes is the BRU output result packet.
type BRURes struct {
	LinkData  uint32
	Rd        int
	LinkValid bool
	Taken     bool
	Target    uint32
}

// MLUCmd is the MLU input command packet. Product64 arrives already
// sign-extended per the op's signedness (spec §4.8); stage 2 selects the
// low or high 32 bits.
type MLUCmd struct {
	Rd        int
	Op        MLUOp
	Product64 int64
}

// MLURes is the MLU output result packet.
type MLURes struct {
	Value uint32
	Rd    int
}

// DVUCmd is the DVU input command packet. The fields after Divisor are
// iterative scratch state the DVU pipeline's middle stage mutates in place
// across cycles (spec §4.9 "stage 1 iteration"); they are not part of the
// logical command but ride along on it because the generic pipeline engine
// only has the packet itself to carry per-cycle progress in.
type DVUCmd struct {
	Rd                int
	Op                DVUOp
	Dividend, Divisor uint32

	Remaining        int
	PartialRemainder uint32
	Quotient         uint32
	DivByZero        bool
	NegDividend      bool
	NegDivisor       bool
	AbsDividend      uint32
	AbsDivisor       uint32
}

// DVURes is the DVU output result packet.
type DVURes struct {
	Value uint32
	Rd    int
}

// MemReq is an LSU-bound memory request packet. The fields after Rd are
// scratch state the LSU pipeline's bank-access stage mutates in place
// across cycles (spec §4.10 "stage 1 holds until the bank produces its
// response"), mirroring DVUCmd's iteration scratch.
type MemReq struct {
	Op        MemOp
	Address   uint32
	Data      uint32
	RequestID uint64
	Rd        int

	AccessStarted bool
	Bank          int
	BankAddr      uint32
	Remaining     int
}

// MemResp is an LSU-issued memory response packet. Rd is 0 for stores.
type MemResp struct {
	Data      uint32
	Address   uint32
	RequestID uint64
	Rd        int
}

// Packet is the polymorphic payload that flows between ports. Only the
// field selected by Kind is meaningful; all fields are plain values, so a
// Packet is trivially and losslessly copyable (Clone just returns *p).
type Packet struct {
	Kind      Kind
	Timestamp uint64
	Valid     bool

	IntValue  int64
	BoolValue bool

	ALUCmd  ALUCmd
	ALURes  ALURes
	BRUCmd  BRUCmd
	BRURes  BRURes
	MLUCmd  MLUCmd
	MLURes  MLURes
	DVUCmd  DVUCmd
	DVURes  DVURes
	MemReq  MemReq
	MemResp MemResp
}

// Clone returns an independent, lossless copy of the packet.
func (p Packet) Clone() Packet {
	return p
}

// NewInt builds a valid raw-integer packet.
func NewInt(v int64, timestamp uint64) Packet {
	return Packet{Kind: KindInt, Timestamp: timestamp, Valid: true, IntValue: v}
}

// NewBool builds a valid boolean signal packet.
func NewBool(v bool, timestamp uint64) Packet {
	return Packet{Kind: KindBool, Timestamp: timestamp, Valid: true, BoolValue: v}
}
