package base

// DataType names the element type of a Vector, gather itself only moves bytes.
type DataType int32

const (
	U64 DataType = iota
)

var dtypes = []struct {
	name string
	size int
}{
	U64: {"u64", 8},
}

func (t DataType) Size() int {
	return dtypes[t].size
}

func (t DataType) String() string {
	return dtypes[t].name
}
