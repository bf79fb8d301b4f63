package cpu

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFlagsHolds(t *testing.T) {
	assert := assert.New(t)

	// Flags after comparing (by subtraction) a against b.
	compare := func(a, b uint64) Flags {
		return Alu(ALU_SUB, a, b).Flags
	}

	table := [](struct {
		a, b  uint64
		holds []Cond
	}){
		{5, 5, []Cond{COND_EQ, COND_LE, COND_GE, COND_HS, COND_LS, COND_PL, COND_VC, COND_AL}},
		{3, 5, []Cond{COND_NE, COND_LT, COND_LE, COND_LO, COND_LS, COND_MI, COND_VC, COND_AL}},
		{5, 3, []Cond{COND_NE, COND_GT, COND_GE, COND_HI, COND_HS, COND_PL, COND_VC, COND_AL}},
		{^uint64(0), 1, []Cond{COND_NE, COND_LT, COND_LE, COND_HI, COND_HS, COND_MI, COND_VC, COND_AL}},
	}

	for _, entry := range table {
		flags := compare(entry.a, entry.b)
		for cond := COND_EQ; cond <= COND_AL; cond++ {
			expected := false
			for _, c := range entry.holds {
				expected = expected || c == cond
			}
			assert.Equal(expected, flags.Holds(cond), "%v cmp %v: %v (%v)", int64(entry.a), int64(entry.b), cond, flags)
		}
	}
}

func TestParseCond(t *testing.T) {
	assert := assert.New(t)

	cond, ok := ParseCond("cs")
	assert.True(ok)
	assert.Equal(COND_HS, cond)

	cond, ok = ParseCond("Le")
	assert.True(ok)
	assert.Equal(COND_LE, cond)

	_, ok = ParseCond("ZZ")
	assert.False(ok)

	assert.Equal("-Z-V", Flags{Z: true, V: true}.String())
}
