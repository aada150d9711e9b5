package app

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/lsds/kungfu-gather/srcs/go/kungfu/collective"
	"github.com/lsds/kungfu-gather/srcs/go/kungfu/collective/inproc"
	"github.com/lsds/kungfu-gather/srcs/go/kungfu/env"
	"github.com/lsds/kungfu-gather/srcs/go/kungfu/execution"
	"github.com/lsds/kungfu-gather/srcs/go/kungfu/peer"
	"github.com/lsds/kungfu-gather/srcs/go/log"
	"github.com/lsds/kungfu-gather/srcs/go/plan"
	"github.com/lsds/kungfu-gather/srcs/go/utils"
	"github.com/spf13/cobra"
)

type benchFlags struct {
	np        int
	count     int
	rounds    int
	timeout   time.Duration
	portRange string
	inproc    bool
}

func newBenchCmd() *cobra.Command {
	var f benchFlags
	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Run all ranks of a group in this process and measure gather throughput",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBench(cmd, f)
		},
	}
	flags := cmd.Flags()
	flags.IntVar(&f.np, "np", 4, "number of ranks")
	flags.IntVar(&f.count, "count", 1<<10, "uint64 elements contributed by every rank")
	flags.IntVar(&f.rounds, "rounds", 10, "rounds, the root visits every rank once per round")
	flags.DurationVar(&f.timeout, "timeout", 0, "timeout of every gather, 0 uses the default")
	flags.StringVar(&f.portRange, "port-range", "20000-21000", "ports of the loopback peers")
	flags.BoolVar(&f.inproc, "inproc", false, "use in-process channels instead of loopback TCP")
	return cmd
}

func (f benchFlags) validate() error {
	if f.np < 1 {
		return fmt.Errorf("invalid --np %d", f.np)
	}
	if f.count < 1 {
		return fmt.Errorf("invalid --count %d", f.count)
	}
	if f.rounds < 1 {
		return fmt.Errorf("invalid --rounds %d", f.rounds)
	}
	return nil
}

func runBench(cmd *cobra.Command, f benchFlags) error {
	if err := f.validate(); err != nil {
		return err
	}
	var total int64
	run := func(c collective.Context) error {
		n, err := runRounds(c, f.count, f.rounds, f.timeout)
		atomic.AddInt64(&total, n)
		return err
	}
	d, err := utils.Measure(func() error {
		if f.inproc {
			return inproc.Spawn(f.np, defaultTimeout(f.timeout), func(c *inproc.Context) error { return run(c) })
		}
		return runTCP(f, run)
	})
	if err != nil {
		return err
	}
	calls := f.rounds * f.np
	fmt.Fprintf(cmd.OutOrStdout(), "%s of %s per rank to %s in %s, %s\n",
		utils.Pluralize(calls, "gather", "gathers"),
		utils.ShowSize(int64(f.count*8)),
		utils.Pluralize(f.np, "rank", "ranks"),
		d, utils.ShowRate(utils.Rate(total, d)))
	return nil
}

func runTCP(f benchFlags, run func(collective.Context) error) error {
	pr, err := plan.ParsePortRange(f.portRange)
	if err != nil {
		return err
	}
	cfgs, err := env.SingleMachineGroup(f.np, *pr)
	if err != nil {
		return err
	}
	ps := make([]*peer.Peer, f.np)
	for i, cfg := range cfgs {
		cfg.Timeout = f.timeout
		p, err := peer.NewFromConfig(cfg)
		if err != nil {
			return err
		}
		if err := p.Start(); err != nil {
			return err
		}
		defer p.Close()
		ps[i] = p
	}
	log.Infof("started %s in group %s", utils.Pluralize(f.np, "peer", "peers"), cfgs[0].Group)
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout(f.timeout))
	defer cancel()
	var rankRun execution.RankFunc = func(rank int) error {
		if err := ps[rank].WaitPeers(ctx); err != nil {
			return err
		}
		if err := run(ps[rank]); err != nil {
			return fmt.Errorf("rank %d: %w", rank, err)
		}
		return nil
	}
	ranks := make([]int, f.np)
	for i := range ranks {
		ranks[i] = i
	}
	return rankRun.Par(ranks, 0)
}
