package app

import (
	"github.com/lsds/kungfu-gather/srcs/go/log"
	"github.com/spf13/cobra"
)

var logLevel string

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "kungfu-gather",
		Short:         "Run and benchmark the gather collective",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("log-level") {
				return nil
			}
			level, err := log.ParseLevel(logLevel)
			if err != nil {
				return err
			}
			log.SetLevel(level)
			return nil
		},
	}
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "INFO", "DEBUG, INFO, WARN or ERROR")
	cmd.AddCommand(newBenchCmd(), newWorkerCmd(), newLaunchCmd())
	return cmd
}

// Execute runs the command line of the process.
func Execute() error {
	return newRootCmd().Execute()
}
