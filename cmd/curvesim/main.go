// Command curvesim drives an in-memory Market through the engine's seven
// operations, for manual exploration and scripted scenario replay. It
// never touches a network: custody is backed by pkg/custody.Ledger, and
// "now" is a simulated timestamp (fixed or counted by each subcommand, with
// fund taking the elapsed span from --elapsed-seconds) rather than read
// from the clock.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type globalOpts struct {
	logLevel string
}

func newRootCmd() *cobra.Command {
	opts := &globalOpts{}

	root := &cobra.Command{
		Use:   "curvesim",
		Short: "In-memory simulator for the bonding-curve/perp AMM engine",
	}

	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "info", "log level (debug|info|warn|error)")

	root.AddCommand(
		newLaunchCmd(opts),
		newLaunchOnCurveCmd(opts),
		newFundCmd(opts),
		newFuzzCmd(opts),
		newQuoteCmd(opts),
	)

	return root
}

func parseLogLevel(lvl string) zerolog.Level {
	switch strings.ToLower(lvl) {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

func newLogger(cmd *cobra.Command, opts *globalOpts) zerolog.Logger {
	return zerolog.New(cmd.ErrOrStderr()).Level(parseLogLevel(opts.logLevel)).With().Timestamp().Logger()
}
