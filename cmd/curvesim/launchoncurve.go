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

func newLaunchOnCurveCmd(opts *globalOpts) *cobra.Command {
	var buySol uint64

	cmd := &cobra.Command{
		Use:   "launch-on-curve",
		Short: "Launch a token on the bonding curve and make one buy (by default large enough to graduate it)",
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
			launched, err := market.LaunchOnCurve(ctx, authority.PublicKey(), 0, 0, 0, 0)
			if err != nil {
				return fmt.Errorf("launch_on_curve: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "curve launched total_supply=%d target_sol=%d target_tokens_sold=%d\n",
				launched.TotalSupply, launched.TargetSol, launched.TargetTokensSold)

			buyer, err := solana.NewRandomPrivateKey()
			if err != nil {
				return err
			}
			result, err := market.SwapOnCurve(ctx, buyer.PublicKey(), buySol, true, 1)
			if err != nil {
				return fmt.Errorf("swap_on_curve: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "bought tokens_out=%d tokens_sold=%d sol_raised=%d\n",
				result.Swapped.AmountOut, result.Swapped.TokensSoldOnCurve, result.Swapped.SolRaisedOnCurve)

			if result.Graduated != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "graduated to AMM: sol_raised=%d tokens_for_lp=%d\n",
					result.Graduated.SolRaised, result.Graduated.TokensForLP)
			}
			return nil
		},
	}

	cmd.Flags().Uint64Var(&buySol, "buy-sol", config.DefaultTargetSol, "lamports of SOL to spend buying on the curve")

	return cmd
}
