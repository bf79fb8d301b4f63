package cpu

import (
	"iter"
	"maps"
	"slices"
)

// Memory is a sparse data memory of doublewords, keyed by byte address.
type Memory struct {
	Default uint64 // Value read from unmapped addresses.

	data map[uint64]uint64
}

func (mem *Memory) check(address uint64, width int) (err error) {
	switch {
	case width != DOUBLEWORD:
		err = ErrMemoryWidth
	case address%DOUBLEWORD != 0:
		err = ErrMisaligned
	}
	if err != nil {
		err = &ErrMemory{Address: address, Err: err}
	}
	return
}

// Read returns the value at an aligned address.
func (mem *Memory) Read(address uint64, width int) (value uint64, err error) {
	err = mem.check(address, width)
	if err != nil {
		return
	}

	value, ok := mem.data[address]
	if !ok {
		value = mem.Default
	}

	return
}

// Write stores a value at an aligned address.
func (mem *Memory) Write(address uint64, width int, value uint64) (err error) {
	err = mem.check(address, width)
	if err != nil {
		return
	}

	if mem.data == nil {
		mem.data = make(map[uint64]uint64)
	}
	mem.data[address] = value

	return
}

// Peek returns the stored value at an address, and whether it is mapped.
func (mem *Memory) Peek(address uint64) (value uint64, mapped bool) {
	value, mapped = mem.data[address]
	return
}

// Restore puts back a value previously returned by Peek.
func (mem *Memory) Restore(address uint64, value uint64, mapped bool) {
	if !mapped {
		delete(mem.data, address)
		return
	}
	if mem.data == nil {
		mem.data = make(map[uint64]uint64)
	}
	mem.data[address] = value
}

// Len returns the number of mapped doublewords.
func (mem *Memory) Len() int {
	return len(mem.data)
}

// Reset unmaps all of memory.
func (mem *Memory) Reset() {
	clear(mem.data)
}

// All yields the mapped doublewords in address order.
func (mem *Memory) All() iter.Seq2[uint64, uint64] {
	return func(yield func(uint64, uint64) bool) {
		for _, address := range slices.Sorted(maps.Keys(mem.data)) {
			if !yield(address, mem.data[address]) {
				return
			}
		}
	}
}
