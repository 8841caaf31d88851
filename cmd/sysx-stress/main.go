// Command sysx-stress hammers one sysx.RWLock with concurrent readers and
// writers and reports how many critical sections each worker completed.
package main

import (
	"context"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/llxisdsh/sysx"
	"github.com/llxisdsh/sysx/internal/stress"
)

// newRootCmd builds the command. Flag, argument and logger setup errors are
// printed by cobra; once the logger exists, a failed run is reported through
// it only.
func newRootCmd(newLogger func(verbose bool) (*zap.Logger, error)) *cobra.Command {
	var (
		opts     stress.Options
		fallback bool
		verbose  bool
	)

	cmd := &cobra.Command{
		Use:           "sysx-stress",
		Short:         "Run concurrent readers and writers against a sysx.RWLock",
		Args:          cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger, err := newLogger(verbose)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()
			cmd.SilenceErrors = true

			sysx.Init(
				sysx.WithLogger(logger),
				sysx.WithFallbackRWLock(fallback),
			)
			defer sysx.Shutdown()

			opts.Logger = logger
			start := time.Now()
			report, err := stress.Run(cmd.Context(), opts)
			fields := []zap.Field{
				zap.Duration("elapsed", time.Since(start)),
				zap.Ints("reads", report.Reads),
				zap.Ints("writes", report.Writes),
				zap.Int("totalReads", report.TotalReads()),
				zap.Int("totalWrites", report.TotalWrites()),
			}
			if err != nil {
				logger.Error("stress run failed", append(fields, zap.Error(err))...)
				return err
			}
			logger.Info("stress run finished", fields...)
			return nil
		},
	}

	f := cmd.Flags()
	f.DurationVar(&opts.Duration, "duration", 10*time.Second, "how long to run")
	f.IntVar(&opts.Readers, "readers", 2, "number of reader workers")
	f.IntVar(&opts.Writers, "writers", 2, "number of writer workers")
	f.DurationVar(&opts.Interval, "interval", 10*time.Millisecond, "pause before each lock attempt")
	f.BoolVar(&fallback, "fallback", false, "use the mutex + counters reader-writer variant")
	f.BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	return cmd
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd(newLogger).ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
