package main

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/spf13/cobra"

	"github.com/facemelt-labs/perpcore/pkg/config"
	"github.com/facemelt-labs/perpcore/pkg/custody"
	"github.com/facemelt-labs/perpcore/pkg/orchestrator"
)

func newFundCmd(opts *globalOpts) *cobra.Command {
	var (
		solReserve   uint64
		tokenReserve uint64
		collateral   uint64
		leverage     uint64
		elapsedSecs  int64
	)

	cmd := &cobra.Command{
		Use:   "fund",
		Short: "Open a leveraged position, let funding accrue for a span of time, then close it",
		RunE: func(cmd *cobra.Command, args []string) error {
			log := newLogger(cmd, opts)
			cfg := config.Default(config.WithLogger(log))

			authority, err := solana.NewRandomPrivateKey()
			if err != nil {
				return err
			}
			ledger := custody.NewLedger()
			market := orchestrator.New(randomKey(), randomKey(), authority.PublicKey(), cfg, ledger, ledger)

			ctx := context.Background()
			if _, err := market.Launch(ctx, authority.PublicKey(), solReserve, tokenReserve, 0); err != nil {
				return fmt.Errorf("launch: %w", err)
			}

			trader, err := solana.NewRandomPrivateKey()
			if err != nil {
				return err
			}
			opened, err := market.LeverageSwap(ctx, trader.PublicKey(), collateral, 0, leverage, 1, true, 0)
			if err != nil {
				return fmt.Errorf("leverage_swap: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "opened position size=%d collateral=%d leverage=%d\n", opened.Size, opened.Collateral, opened.Leverage)

			closed, err := market.ClosePosition(ctx, trader.PublicKey(), 1, elapsedSecs)
			if err != nil {
				return fmt.Errorf("close_position after %ds: %w", elapsedSecs, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "closed after %ds: received=%d (collateral was %d)\n", elapsedSecs, closed.UserReceived, opened.Collateral)
			return nil
		},
	}

	cmd.Flags().Uint64Var(&solReserve, "sol", config.DefaultTargetSol, "virtual SOL reserve to seed")
	cmd.Flags().Uint64Var(&tokenReserve, "tokens", config.DefaultTotalSupply, "virtual token reserve to seed")
	cmd.Flags().Uint64Var(&collateral, "collateral", 1_000_000, "collateral deposited when opening the position")
	cmd.Flags().Uint64Var(&leverage, "leverage", 50, "leverage multiplier in tenths (10-100)")
	cmd.Flags().Int64Var(&elapsedSecs, "elapsed-seconds", 3600*24, "seconds of funding accrual before closing")

	return cmd
}
