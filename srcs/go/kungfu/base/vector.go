package base

import (
	"fmt"
	"unsafe"
)

// Vector is a typed view over a contiguous byte buffer.
// Collective operations only see Data, Count and Type are for the caller.
type Vector struct {
	Data  []byte
	Count int
	Type  DataType
}

func NewVector(count int, dtype DataType) *Vector {
	return &Vector{
		Data:  make([]byte, count*dtype.Size()),
		Count: count,
		Type:  dtype,
	}
}

// Slice returns the elements [begin, end) of v, sharing its storage.
func (v *Vector) Slice(begin, end int) *Vector {
	n := v.Type.Size()
	return &Vector{Data: v.Data[begin*n : end*n], Count: end - begin, Type: v.Type}
}

func (v *Vector) AsU64() []uint64 {
	if v.Type != U64 {
		panic(fmt.Sprintf("vector of %s used as %s", v.Type, U64))
	}
	if v.Count == 0 {
		return nil
	}
	return unsafe.Slice((*uint64)(unsafe.Pointer(unsafe.SliceData(v.Data))), v.Count)
}
