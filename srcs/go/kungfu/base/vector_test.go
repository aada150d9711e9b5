package base

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Vector_Slice(t *testing.T) {
	v := NewVector(6, U64)
	xs := v.AsU64()
	for i := range xs {
		xs[i] = uint64(i * 10)
	}
	s := v.Slice(2, 5)
	require.Equal(t, 3, s.Count)
	assert.Equal(t, 24, len(s.Data))
	assert.Equal(t, []uint64{20, 30, 40}, s.AsU64())

	// slices share storage with the parent
	s.AsU64()[0] = 7
	assert.Equal(t, uint64(7), xs[2])
}

func Test_Vector_AsU64(t *testing.T) {
	v := NewVector(2, U64)
	v.AsU64()[1] = 0x0102
	assert.Equal(t, []byte{0, 0, 0, 0, 0, 0, 0, 0, 2, 1, 0, 0, 0, 0, 0, 0}, v.Data)
	assert.Nil(t, NewVector(0, U64).AsU64())
	assert.Equal(t, 8, U64.Size())
	assert.Equal(t, "u64", U64.String())
}
