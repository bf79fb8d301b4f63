package emulator

import (
	"github.com/ezrec/legv8/cpu"
)

const (
	HISTORY_LIMIT = 1 << 16 // Default maximum undo depth, in micro-steps.
)

// memoryUndo is the prior content of a doubleword overwritten by a store.
type memoryUndo struct {
	Address uint64
	Value   uint64
	Mapped  bool
}

// Snapshot is the engine state before a micro-step. Data memory is not
// copied: a store records the doubleword it overwrote instead.
type Snapshot struct {
	Register cpu.RegisterFile
	Pc       uint64
	Flags    cpu.Flags

	MicroStepIndex int    // Stages of the in-flight instruction already done.
	Address        uint64 // Address of the instruction in flight.
	InFlight       bool   // Set if an instruction was part way through.
	Latch          Latch  // Values in flight.
	Finished       bool
	Retired        int

	memory *memoryUndo
}

// History is a bounded stack of snapshots. When full, pushing discards
// the oldest snapshot.
type History struct {
	Limit int // Maximum depth; zero selects HISTORY_LIMIT.

	data  []Snapshot
	start int
	count int
}

func (h *History) limit() int {
	if h.Limit <= 0 {
		return HISTORY_LIMIT
	}
	return h.Limit
}

// Push adds a snapshot to the top of the stack.
func (h *History) Push(snap Snapshot) {
	switch {
	case h.count < len(h.data):
		h.data[(h.start+h.count)%len(h.data)] = snap
		h.count++
	case len(h.data) < h.limit():
		h.data = append(h.data, snap)
		h.count++
	default:
		h.data[h.start] = snap
		h.start = (h.start + 1) % len(h.data)
	}
}

// Pop removes the most recent snapshot.
func (h *History) Pop() (snap Snapshot, ok bool) {
	top := h.top()
	if top == nil {
		return
	}
	snap, ok = *top, true
	*top = Snapshot{}
	h.count--
	return
}

// top returns the most recent snapshot, or nil.
func (h *History) top() *Snapshot {
	if h.count == 0 {
		return nil
	}
	return &h.data[(h.start+h.count-1)%len(h.data)]
}

// Peek returns the most recent snapshot.
func (h *History) Peek() (snap Snapshot, ok bool) {
	top := h.top()
	if top == nil {
		return
	}
	return *top, true
}

func (h *History) Len() int {
	return h.count
}

func (h *History) Empty() bool {
	return h.count == 0
}

func (h *History) Full() bool {
	return h.count == h.limit()
}

func (h *History) Reset() {
	clear(h.data)
	h.data = h.data[:0]
	h.start = 0
	h.count = 0
}
