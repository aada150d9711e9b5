package app

import (
	"fmt"
	"time"

	"github.com/lsds/kungfu-gather/srcs/go/kungfu/base"
	"github.com/lsds/kungfu-gather/srcs/go/kungfu/collective"
)

// runRounds gathers count uint64 per rank, rotating the root over all ranks in every round.
// Rank j contributes j + k * size in call k, the root checks every segment.
// It returns the number of bytes received by this rank as root.
func runRounds(c collective.Context, count, rounds int, timeout time.Duration) (int64, error) {
	np := c.Size()
	x := base.NewVector(count, base.U64)
	y := base.NewVector(count*np, base.U64)
	var received int64
	for r := 0; r < rounds; r++ {
		for root := 0; root < np; root++ {
			k := r*np + root
			fill(x.AsU64(), uint64(c.Rank()+k*np))
			opts := collective.NewGatherOptions(c)
			opts.SetInput(x.Data)
			opts.SetRoot(root)
			if timeout > 0 {
				opts.SetTimeout(timeout)
			}
			if c.Rank() == root {
				opts.SetOutput(y.Data)
			}
			if err := collective.Gather(opts); err != nil {
				return received, err
			}
			if c.Rank() != root {
				continue
			}
			if err := verify(y, count, np, k); err != nil {
				return received, fmt.Errorf("call %d with root %d: %v", k, root, err)
			}
			received += int64(len(y.Data) - len(x.Data))
		}
	}
	return received, nil
}

func fill(x []uint64, v uint64) {
	for i := range x {
		x[i] = v
	}
}

func verify(y *base.Vector, count, np, k int) error {
	for j := 0; j < np; j++ {
		want := uint64(j + k*np)
		for i, v := range y.Slice(j*count, (j+1)*count).AsU64() {
			if v != want {
				return fmt.Errorf("segment %d element %d: got %d, want %d", j, i, v, want)
			}
		}
	}
	return nil
}
