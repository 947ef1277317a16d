// check-balances: queries the native balance of investor wallets on every
// supported network in parallel and prints a summary table.
//
// Run from the module root:
//
//	go run ./scripts/check-balances 0xInvestor1 0xInvestor2
package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"text/tabwriter"
	"time"

	"github.com/Mohsinsiddi/infinity/internal/chain"
	"github.com/Mohsinsiddi/infinity/internal/rpc"
	"github.com/ethereum/go-ethereum/common"
)

const rpcTimeout = 12 * time.Second

type result struct {
	chain   string
	testnet bool
	wallet  string // short form
	balance string
	symbol  string
	err     string
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: check-balances <address>...")
		os.Exit(2)
	}
	var wallets []string
	for _, a := range os.Args[1:] {
		if !common.IsHexAddress(a) {
			fmt.Fprintf(os.Stderr, "%q is not an address\n", a)
			os.Exit(2)
		}
		wallets = append(wallets, common.HexToAddress(a).Hex())
	}

	reg := chain.NewRegistry()
	sel := rpc.NewSelector(rpc.StrategyFailover)

	var (
		mu      sync.Mutex
		results []result
		wg      sync.WaitGroup
	)

	for _, c := range reg.All() {
		wg.Add(1)
		go func(c chain.Chain) {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), rpcTimeout)
			defer cancel()

			url, err := sel.Best(ctx, c.RPCs)
			client := chain.NewEVMClient(url)

			for _, wallet := range wallets {
				r := result{
					chain:   c.Name,
					testnet: c.IsTestnet,
					wallet:  shortAddr(wallet),
					symbol:  c.Currency.Symbol,
					balance: "—",
				}
				if err != nil {
					r.err = "unreachable"
				} else if bal, berr := client.GetBalance(ctx, wallet); berr != nil {
					r.err = shortErr(berr)
				} else {
					r.balance = trimZeros(bal.ETH)
				}

				mu.Lock()
				results = append(results, r)
				mu.Unlock()
			}
		}(c)
	}

	wg.Wait()
	printTable(results)
}

// ── output ────────────────────────────────────────────────────────────────────

func printTable(results []result) {
	// Testnets first, then by chain name and wallet.
	sort.Slice(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.testnet != b.testnet {
			return a.testnet
		}
		if a.chain != b.chain {
			return a.chain < b.chain
		}
		return a.wallet < b.wallet
	})

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)

	fmt.Fprintln(w, "CHAIN\tWALLET\tBALANCE\tSYMBOL\tNOTE")
	fmt.Fprintln(w, strings.Repeat("-", 10)+"\t"+
		strings.Repeat("-", 14)+"\t"+
		strings.Repeat("-", 24)+"\t"+
		strings.Repeat("-", 6)+"\t"+
		strings.Repeat("-", 12))

	lastChain := ""
	for _, r := range results {
		if r.chain != lastChain {
			if lastChain != "" {
				fmt.Fprintln(w, "\t\t\t\t")
			}
			lastChain = r.chain
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", r.chain, r.wallet, r.balance, r.symbol, r.err)
	}
	w.Flush()
}

// ── helpers ───────────────────────────────────────────────────────────────────

func shortAddr(addr string) string {
	if len(addr) < 10 {
		return addr
	}
	return addr[:6] + "…" + addr[len(addr)-4:]
}

func shortErr(err error) string {
	s := err.Error()
	if len(s) > 30 {
		return s[:30] + "…"
	}
	return s
}

// trimZeros removes trailing zeros after decimal: "0.050000000000000000" → "0.05"
func trimZeros(s string) string {
	if !strings.Contains(s, ".") {
		return s
	}
	s = strings.TrimRight(s, "0")
	s = strings.TrimRight(s, ".")
	if s == "" || s == "-" {
		return "0"
	}
	return s
}
