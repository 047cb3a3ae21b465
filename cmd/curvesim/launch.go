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

func newLaunchCmd(opts *globalOpts) *cobra.Command {
	var (
		solAmount   uint64
		tokenAmount uint64
		swapSol     uint64
	)

	cmd := &cobra.Command{
		Use:   "launch",
		Short: "Launch a market directly into AMM phase and run a sample swap",
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
			launched, err := market.Launch(ctx, authority.PublicKey(), solAmount, tokenAmount, 0)
			if err != nil {
				return fmt.Errorf("launch: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "launched pool=%s virtual_sol=%d\n", launched.Pool, launched.VirtualSolReserve)

			if swapSol > 0 {
				trader, err := solana.NewRandomPrivateKey()
				if err != nil {
					return err
				}
				swapped, err := market.Swap(ctx, trader.PublicKey(), swapSol, 0, true, 1)
				if err != nil {
					return fmt.Errorf("swap: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "swap amount_in=%d amount_out=%d\n", swapped.AmountIn, swapped.AmountOut)
			}
			return nil
		},
	}

	cmd.Flags().Uint64Var(&solAmount, "sol", config.DefaultTargetSol, "virtual SOL reserve to seed")
	cmd.Flags().Uint64Var(&tokenAmount, "tokens", config.DefaultTotalSupply, "virtual token reserve to seed")
	cmd.Flags().Uint64Var(&swapSol, "swap-sol", 0, "if set, immediately swap this much SOL in against the new pool")

	return cmd
}

func randomKey() solana.PublicKey {
	key, err := solana.NewRandomPrivateKey()
	if err != nil {
		panic(err)
	}
	return key.PublicKey()
}
