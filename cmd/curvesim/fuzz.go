package main

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/gagliardetto/solana-go"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/facemelt-labs/perpcore/pkg/config"
	"github.com/facemelt-labs/perpcore/pkg/custody"
	"github.com/facemelt-labs/perpcore/pkg/orchestrator"
)

func newFuzzCmd(opts *globalOpts) *cobra.Command {
	var (
		solReserve   uint64
		tokenReserve uint64
		iterations   int
		ratePerSec   float64
		seed         int64
	)

	cmd := &cobra.Command{
		Use:   "fuzz",
		Short: "Throw randomized spot swaps and leveraged opens at a freshly launched AMM",
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

			limiter := rate.NewLimiter(rate.Limit(ratePerSec), 1)
			rng := rand.New(rand.NewSource(seed))

			var swaps, opens, closes, liquidations, skipped int
			var now int64
			for i := 0; i < iterations; i++ {
				if err := limiter.Wait(ctx); err != nil {
					return fmt.Errorf("rate limiter: %w", err)
				}
				now++

				trader, err := solana.NewRandomPrivateKey()
				if err != nil {
					return err
				}

				amountCap := int64(solReserve / 1000)
				if amountCap < 1 {
					amountCap = 1
				}
				amountIn := uint64(rng.Int63n(amountCap)) + 1
				inputIsSol := rng.Intn(2) == 0

				switch rng.Intn(4) {
				case 0:
					if _, err := market.Swap(ctx, trader.PublicKey(), amountIn, 0, inputIsSol, now); err != nil {
						skipped++
						continue
					}
					swaps++
				case 1:
					leverage := uint64(10 + rng.Intn(91))
					if _, err := market.LeverageSwap(ctx, trader.PublicKey(), amountIn, 0, leverage, uint64(i), inputIsSol, now); err != nil {
						skipped++
						continue
					}
					opens++
				case 2:
					key := pickOpenPosition(market, rng)
					if key == nil {
						skipped++
						continue
					}
					if _, err := market.ClosePosition(ctx, key.Owner, key.Nonce, now); err != nil {
						skipped++
						continue
					}
					closes++
				default:
					key := pickOpenPosition(market, rng)
					if key == nil {
						skipped++
						continue
					}
					if _, err := market.Liquidate(ctx, trader.PublicKey(), key.Owner, key.Nonce, now); err != nil {
						skipped++
						continue
					}
					liquidations++
				}
			}

			fmt.Fprintf(cmd.OutOrStdout(), "swaps=%d opens=%d closes=%d liquidations=%d skipped=%d open_positions_remaining=%d\n",
				swaps, opens, closes, liquidations, skipped, len(market.Positions))
			return nil
		},
	}

	cmd.Flags().Uint64Var(&solReserve, "sol", config.DefaultTargetSol, "virtual SOL reserve to seed")
	cmd.Flags().Uint64Var(&tokenReserve, "tokens", config.DefaultTotalSupply, "virtual token reserve to seed")
	cmd.Flags().IntVar(&iterations, "iterations", 200, "number of randomized actions to take")
	cmd.Flags().Float64Var(&ratePerSec, "rate", 50, "actions per second to throttle to")
	cmd.Flags().Int64Var(&seed, "seed", 1, "deterministic RNG seed")

	return cmd
}

type positionRef struct {
	Owner solana.PublicKey
	Nonce uint64
}

func pickOpenPosition(market *orchestrator.Market, rng *rand.Rand) *positionRef {
	if len(market.Positions) == 0 {
		return nil
	}
	target := rng.Intn(len(market.Positions))
	i := 0
	for key := range market.Positions {
		if i == target {
			return &positionRef{Owner: key.Owner, Nonce: key.Nonce}
		}
		i++
	}
	return nil
}
