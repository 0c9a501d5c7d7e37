// Package ibuf implements the instruction buffer (a random-access,
// address-indexed instruction-word oracle) and the fetch buffer FIFO
// that sits between SCore's fetch and dispatch stages (spec §3, §4.14).
package ibuf

// InstructionBuffer is the pre-populated address-to-word instruction
// memory oracle. Addresses with no loaded word read back as zero, which
// decodes to the INVALID op type.
type InstructionBuffer struct {
	words map[uint32]uint32
}

// New constructs an empty instruction buffer.
func New() *InstructionBuffer {
	return &InstructionBuffer{words: make(map[uint32]uint32)}
}

// Load installs word at address pc.
func (b *InstructionBuffer) Load(pc, word uint32) {
	b.words[pc] = word
}

// Fetch returns the word at address pc, or 0 if never loaded.
func (b *InstructionBuffer) Fetch(pc uint32) uint32 {
	return b.words[pc]
}

// Reset empties the buffer without reallocating the underlying map.
func (b *InstructionBuffer) Reset() {
	for k := range b.words {
		delete(b.words, k)
	}
}

// Entry is one (pc, word) pair waiting to be dispatched.
type Entry struct {
	PC   uint32
	Word uint32
}

// FetchBuffer is the FIFO between fetch and dispatch. Depth is an
// implementation knob (spec §3 default 8).
type FetchBuffer struct {
	depth   int
	entries []Entry
}

// NewFetchBuffer constructs a fetch buffer of the given maximum depth.
func NewFetchBuffer(depth int) *FetchBuffer {
	if depth <= 0 {
		depth = 8
	}
	return &FetchBuffer{depth: depth, entries: make([]Entry, 0, depth)}
}

// HasRoom reports whether another entry can be pushed without exceeding
// the configured depth.
func (f *FetchBuffer) HasRoom() bool { return len(f.entries) < f.depth }

// Push appends an entry to the back of the buffer. The caller must check
// HasRoom first; Push on a full buffer is a no-op.
func (f *FetchBuffer) Push(e Entry) {
	if !f.HasRoom() {
		return
	}
	f.entries = append(f.entries, e)
}

// Front returns the entry at the head of the buffer without removing it.
func (f *FetchBuffer) Front() (Entry, bool) {
	if len(f.entries) == 0 {
		return Entry{}, false
	}
	return f.entries[0], true
}

// PopFront removes and returns the head entry.
func (f *FetchBuffer) PopFront() (Entry, bool) {
	e, ok := f.Front()
	if !ok {
		return Entry{}, false
	}
	f.entries = f.entries[1:]
	return e, true
}

// Len returns the number of entries currently buffered.
func (f *FetchBuffer) Len() int { return len(f.entries) }

// IsEmpty reports whether the buffer holds no entries.
func (f *FetchBuffer) IsEmpty() bool { return len(f.entries) == 0 }

// Flush empties the buffer without reallocating.
func (f *FetchBuffer) Flush() { f.entries = f.entries[:0] }
