// check-owner: prints the owner and held deposits of a deployed receipt
// contract, the pre-flight check before running `infinity contract withdraw`.
//
// Run from the module root:
//
//	go run ./scripts/check-owner sepolia 0xContract
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/Mohsinsiddi/infinity/internal/chain"
	"github.com/Mohsinsiddi/infinity/internal/contract"
	"github.com/Mohsinsiddi/infinity/internal/rpc"
	"github.com/rs/zerolog"
)

func main() {
	if len(os.Args) != 3 {
		fmt.Fprintln(os.Stderr, "usage: check-owner <chain> <contract-address>")
		os.Exit(2)
	}
	if err := run(os.Args[1], os.Args[2]); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(chainName, address string) error {
	c, err := chain.NewRegistry().GetByName(chainName)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	url, err := rpc.NewSelector(rpc.StrategyFastest).Best(ctx, c.RPCs)
	if err != nil {
		return err
	}
	client, err := contract.NewClient(contract.Config{
		Address: address,
		ChainID: c.ChainID,
		Reader:  chain.NewEVMClient(url),
		Logger:  zerolog.Nop(),
	})
	if err != nil {
		return err
	}

	if err := client.CheckDeployed(ctx); err != nil {
		return fmt.Errorf("%w on %s", err, c.DisplayName)
	}
	owner, err := client.ReadOwner(ctx)
	if err != nil {
		return fmt.Errorf("reading owner: %w", err)
	}
	bal, err := client.Balance(ctx)
	if err != nil {
		return fmt.Errorf("reading balance: %w", err)
	}

	fmt.Printf("Contract  %s\n", client.Address())
	fmt.Printf("Network   %s (%d) via %s\n", c.DisplayName, c.ChainID, url)
	fmt.Printf("Owner     %s\n", owner)
	fmt.Printf("Deposits  %s %s\n", bal.ETH, c.Currency.Symbol)
	return nil
}
