package cpu

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProgram_At(t *testing.T) {
	assert := assert.New(t)

	prog, err := assemble(
		"ADDI X1, XZR, #1",
		"ADDI X2, XZR, #2",
	)
	assert.NoError(err)

	inst, ok := prog.At(0)
	assert.True(ok)
	assert.Equal(1, inst.LineNo)

	inst, ok = prog.At(4)
	assert.True(ok)
	assert.Equal(2, inst.LineNo)

	_, ok = prog.At(2)
	assert.False(ok)

	_, ok = prog.At(8)
	assert.False(ok)

	var none *Program
	_, ok = none.At(0)
	assert.False(ok)
}

func TestProgram_Words(t *testing.T) {
	assert := assert.New(t)

	prog, err := assemble("NOP", "NOP")
	assert.NoError(err)

	var addresses []uint64
	for address, word := range prog.Words() {
		addresses = append(addresses, address)
		assert.Equal(uint32(ENC_NOP), word)
	}
	assert.Equal([]uint64{0, 4}, addresses)
	assert.Equal(8, len(prog.Binary()))
}
