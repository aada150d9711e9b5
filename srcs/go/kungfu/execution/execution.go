package execution

import (
	"golang.org/x/sync/errgroup"
)

// RankFunc is the per-rank step of a collective operation.
type RankFunc func(rank int) error

// Par runs f for every rank in ranks in parallel, with at most limit running at once if limit > 0.
// All calls run to completion, the first error is returned.
func (f RankFunc) Par(ranks []int, limit int) error {
	var g errgroup.Group
	if limit > 0 {
		g.SetLimit(limit)
	}
	for _, r := range ranks {
		g.Go(func() error { return f(r) })
	}
	return g.Wait()
}

// Seq runs f for every rank in ranks in order, it stops at the first error.
func (f RankFunc) Seq(ranks []int) error {
	for _, r := range ranks {
		if err := f(r); err != nil {
			return err
		}
	}
	return nil
}
