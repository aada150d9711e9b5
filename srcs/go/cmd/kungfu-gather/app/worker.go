package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/lsds/kungfu-gather/srcs/go/kungfu/config"
	"github.com/lsds/kungfu-gather/srcs/go/kungfu/env"
	"github.com/lsds/kungfu-gather/srcs/go/kungfu/peer"
	"github.com/lsds/kungfu-gather/srcs/go/log"
	"github.com/lsds/kungfu-gather/srcs/go/utils"
	"github.com/spf13/cobra"
)

type workerFlags struct {
	configFile string
	mpi        bool
	count      int
	rounds     int
	timeout    time.Duration
}

func newWorkerCmd() *cobra.Command {
	var f workerFlags
	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Run one rank, the group is read from --config or the KUNGFU_* environment",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWorker(cmd, f)
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&f.configFile, "config", "", "YAML peer config")
	flags.BoolVar(&f.mpi, "mpi", false, "take rank and size from mpirun, all ranks on this host")
	flags.IntVar(&f.count, "count", 1<<10, "uint64 elements contributed by this rank")
	flags.IntVar(&f.rounds, "rounds", 1, "rounds, the root visits every rank once per round")
	flags.DurationVar(&f.timeout, "timeout", 0, "timeout of every gather, 0 uses the default")
	return cmd
}

func loadConfig(f workerFlags) (*env.Config, error) {
	switch {
	case len(f.configFile) > 0:
		return env.LoadFile(f.configFile)
	case f.mpi:
		return env.ParseConfigFromOpenMPIEnv()
	default:
		return env.ParseConfigFromEnv()
	}
}

func runWorker(cmd *cobra.Command, f workerFlags) error {
	cfg, err := loadConfig(f)
	if err != nil {
		return err
	}
	p, err := peer.NewFromConfig(cfg)
	if err != nil {
		return err
	}
	if err := p.Start(); err != nil {
		return err
	}
	defer p.Close()
	stop := utils.Trap(func(sig os.Signal) {
		log.Warnf("%s received, closing %s", sig, p.Self())
		p.Close()
		os.Exit(1)
	})
	defer stop()
	log.SetPrefix(fmt.Sprintf("rank=%d ", p.Rank()))

	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout(f.timeout))
	defer cancel()
	if err := p.WaitPeers(ctx); err != nil {
		return err
	}
	var received int64
	d, err := utils.Measure(func() error {
		received, err = runRounds(p, f.count, f.rounds, f.timeout)
		return err
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "rank %d: %s as root in %s, %s\n",
		p.Rank(), utils.ShowSize(received), d, utils.ShowRate(utils.Rate(received, d)))
	return nil
}

func defaultTimeout(d time.Duration) time.Duration {
	if d > 0 {
		return d
	}
	return config.CollectiveTimeout
}
