// Package api exposes emulator sessions as JSON request/response
// operations, over HTTP and WebSocket.
package api

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/ezrec/legv8/cpu"
)

// Hex formats a value as a 0x prefixed upper case hex string.
func Hex(value uint64) string {
	return fmt.Sprintf("0x%X", value)
}

type keyValue struct {
	Key   string
	Value string
}

// OrderedMap is a JSON object whose keys are emitted in insertion order.
type OrderedMap []keyValue

// Set appends a key.
func (om *OrderedMap) Set(key string, value string) {
	*om = append(*om, keyValue{Key: key, Value: value})
}

// Get returns the value of a key.
func (om OrderedMap) Get(key string) (value string, ok bool) {
	for _, kv := range om {
		if kv.Key == key {
			return kv.Value, true
		}
	}
	return
}

func (om OrderedMap) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte('{')
	for n, kv := range om {
		if n > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(kv.Key)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(kv.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')

	return buf.Bytes(), nil
}

// CpuState is the architectural state, as seen by a client.
type CpuState struct {
	Pc         string     `json:"pc"`
	Registers  OrderedMap `json:"registers"`
	DataMemory OrderedMap `json:"data_memory"`
	Flags      string     `json:"flags"`
}

// NewCpuState captures the state of a CPU. Registers are in display order,
// and memory is in address order.
func NewCpuState(c *cpu.Cpu) (state CpuState) {
	state.Pc = Hex(c.Pc)
	state.Flags = c.Flags.String()
	state.Registers = OrderedMap{}
	for reg, value := range c.Register.All() {
		state.Registers.Set(reg.String(), Hex(value))
	}
	state.DataMemory = OrderedMap{}
	for address, value := range c.Memory.All() {
		state.DataMemory.Set(Hex(address), Hex(value))
	}
	return
}
