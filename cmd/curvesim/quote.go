package main

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/spf13/cobra"

	"github.com/facemelt-labs/perpcore/pkg/config"
	"github.com/facemelt-labs/perpcore/pkg/custody"
	"github.com/facemelt-labs/perpcore/pkg/orchestrator"
	"github.com/facemelt-labs/perpcore/pkg/quote"
)

func newQuoteCmd(opts *globalOpts) *cobra.Command {
	var (
		solReserve   uint64
		tokenReserve uint64
		onCurve      bool
		amountIn     uint64
		slippageBps  uint64
	)

	cmd := &cobra.Command{
		Use:   "quote",
		Short: "Preview a buy's output and price impact without executing it",
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
			var result quote.Result
			if onCurve {
				if _, err := market.LaunchOnCurve(ctx, authority.PublicKey(), 0, 0, 0, 0); err != nil {
					return fmt.Errorf("launch_on_curve: %w", err)
				}
				result, err = quote.CurveBuyQuote(market.Curve, amountIn, slippageBps)
			} else {
				if _, err := market.Launch(ctx, authority.PublicKey(), solReserve, tokenReserve, 0); err != nil {
					return fmt.Errorf("launch: %w", err)
				}
				result, err = quote.PoolBuyQuote(market.Pool, amountIn, true, slippageBps)
			}
			if err != nil {
				return fmt.Errorf("quote: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "expected_out=%d min_out=%d price_impact_bps=%d spot_price=%d execution_price=%d\n",
				result.ExpectedOut, result.MinOut, result.PriceImpactBps, result.SpotPrice, result.ExecutionPrice)
			return nil
		},
	}

	cmd.Flags().Uint64Var(&solReserve, "sol", config.DefaultTargetSol, "virtual SOL reserve to seed (AMM launch only)")
	cmd.Flags().Uint64Var(&tokenReserve, "tokens", config.DefaultTotalSupply, "virtual token reserve to seed (AMM launch only)")
	cmd.Flags().BoolVar(&onCurve, "curve", false, "preview against a freshly launched bonding curve instead of an AMM pool")
	cmd.Flags().Uint64Var(&amountIn, "amount-sol", config.DefaultTargetSol/100, "lamports of SOL to preview spending")
	cmd.Flags().Uint64Var(&slippageBps, "slippage-bps", 50, "slippage tolerance in basis points for min_out")

	return cmd
}
