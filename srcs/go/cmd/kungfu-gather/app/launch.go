package app

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/lsds/kungfu-gather/srcs/go/kungfu/config"
	"github.com/lsds/kungfu-gather/srcs/go/kungfu/env"
	"github.com/lsds/kungfu-gather/srcs/go/log"
	"github.com/lsds/kungfu-gather/srcs/go/plan"
	"github.com/lsds/kungfu-gather/srcs/go/proc"
	"github.com/lsds/kungfu-gather/srcs/go/runner/local"
	"github.com/lsds/kungfu-gather/srcs/go/utils"
	"github.com/spf13/cobra"
)

type launchFlags struct {
	np        int
	portRange string
	timeout   time.Duration
	logDir    string
	quiet     bool
	prog      string
}

func newLaunchCmd() *cobra.Command {
	var f launchFlags
	cmd := &cobra.Command{
		Use:   "launch [flags] [-- command...]",
		Short: "Start a group of worker processes on this machine",
		Long: `Start np processes, each told its rank through the KUNGFU_* environment.
The command defaults to the worker subcommand of this program.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLaunch(cmd, f, args)
		},
	}
	flags := cmd.Flags()
	flags.IntVar(&f.np, "np", 4, "number of processes")
	flags.StringVar(&f.portRange, "port-range", plan.DefaultPortRange.String(), "ports of the peers")
	flags.DurationVar(&f.timeout, "timeout", 0, "default timeout of collective calls in the workers")
	flags.StringVar(&f.logDir, "logdir", "", "write the output of every process to this directory")
	flags.BoolVarP(&f.quiet, "quiet", "q", false, "do not stream the output of the processes")
	flags.StringVar(&f.prog, "prog", "", "program to run, defaults to this executable")
	return cmd
}

func runLaunch(cmd *cobra.Command, f launchFlags, args []string) error {
	if f.np < 1 {
		return fmt.Errorf("invalid --np %d", f.np)
	}
	pr, err := plan.ParsePortRange(f.portRange)
	if err != nil {
		return err
	}
	cfgs, err := env.SingleMachineGroup(f.np, *pr)
	if err != nil {
		return err
	}
	for _, cfg := range cfgs {
		cfg.Timeout = f.timeout
	}
	prog := f.prog
	if len(args) > 0 {
		prog, args = args[0], args[1:]
	} else {
		if len(prog) == 0 {
			if prog, err = os.Executable(); err != nil {
				return err
			}
		}
		args = []string{"worker"}
	}
	extra := proc.Envs{}
	if cmd.Flags().Changed("log-level") {
		extra[config.LogLevelEnvKey] = strings.ToUpper(logLevel)
	}
	ps := proc.PeerProcs(cfgs, prog, args, extra)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	stop := utils.Trap(func(sig os.Signal) {
		log.Warnf("%s received, stopping %s", sig, utils.Pluralize(f.np, "process", "processes"))
		cancel()
	})
	defer stop()
	log.Infof("launching %s of %s in group %s", utils.Pluralize(f.np, "process", "processes"), prog, cfgs[0].Group)
	defer utils.NewStopWatch().Stop(func(d time.Duration) { log.Infof("launch took %s", d) })
	return local.LocalRunAll(ctx, ps, f.logDir, !f.quiet, cmd.OutOrStdout())
}
