package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/Mohsinsiddi/infinity/internal/chain"
	"github.com/Mohsinsiddi/infinity/internal/config"
	"github.com/Mohsinsiddi/infinity/internal/contract"
	"github.com/Mohsinsiddi/infinity/internal/ui"
	"github.com/spf13/cobra"
)

var contractCmd = &cobra.Command{
	Use:   "contract",
	Short: "Inspect and administer the receipt contract",
}

var contractInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show the contract address, owner and balance",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		c, net, err := newContractClient(ctx, newRegistry())
		if err != nil {
			return err
		}

		spin := ui.NewSpinner("Reading contract on " + net.DisplayName + "...")
		spin.Start()
		if err := c.CheckDeployed(ctx); err != nil {
			spin.Stop()
			return fmt.Errorf("%w on %s; check contract_address and preferred_chain", err, net.DisplayName)
		}
		owner, ownerErr := c.ReadOwner(ctx)
		bal, balErr := c.Balance(ctx)
		spin.Stop()
		if err := errors.Join(ownerErr, balErr); err != nil {
			return err
		}

		pairs := [][2]string{
			{"Address", ui.Addr(c.Address())},
			{"Network", net.DisplayName},
			{"Owner", ui.Addr(owner)},
			{"Balance", bal.ETH + " " + net.Currency.Symbol},
		}
		if net.Explorer != "" {
			pairs = append(pairs, [2]string{"Explorer", net.Explorer + "/address/" + c.Address()})
		}
		fmt.Println(ui.KeyValueBlock("Receipt Contract", pairs))
		return nil
	},
}

var contractOwnerCmd = &cobra.Command{
	Use:   "owner",
	Short: "Print the contract owner",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		c, _, err := newContractClient(ctx, newRegistry())
		if err != nil {
			return err
		}
		owner, err := c.ReadOwner(ctx)
		if err != nil {
			return err
		}
		fmt.Println(ui.Addr(owner))
		return nil
	},
}

var contractWithdrawCmd = &cobra.Command{
	Use:   "withdraw",
	Short: "Withdraw the contract balance to the owner",
	Long: `Send the contract's native balance to its owner.

The connected wallet must be the owner and the contract must hold a
balance; otherwise nothing is sent.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		reg := newRegistry()
		c, net, err := newContractClient(ctx, reg)
		if err != nil {
			return err
		}
		conn, release := openConnector(ctx, reg)
		defer release()
		s, p, err := requireSession(ctx, conn)
		if err != nil {
			return err
		}

		fmt.Println(ui.Info("Confirm the withdrawal in " + s.WalletID.Name() + "; waiting for the receipt..."))
		res, err := c.Withdraw(ctx, p, *s)
		if err != nil {
			return err
		}
		fmt.Println(ui.KeyValueBlock("Withdrawal Confirmed", [][2]string{
			{"Amount", chain.WeiToETH(res.Amount) + " " + net.Currency.Symbol},
			{"To", ui.Addr(s.Account)},
			{"Tx", ui.Addr(res.TxHash)},
		}))
		if u := net.TxURL(res.TxHash); u != "" {
			fmt.Println(ui.Hint(u))
		}
		return nil
	},
}

func init() {
	contractCmd.AddCommand(contractInfoCmd, contractOwnerCmd, contractWithdrawCmd)
}

// newContractClient builds a client for the configured contract on the
// preferred chain.
func newContractClient(ctx context.Context, reg *chain.Registry) (*contract.Client, chain.Chain, error) {
	if cfg.ContractAddress == "" {
		return nil, chain.Chain{}, errors.New("no contract configured; set INFINITY_CONTRACT or `infinity config set contract_address <address>`")
	}
	net, err := reg.GetByName(cfg.PreferredChain)
	if err != nil {
		return nil, chain.Chain{}, fmt.Errorf("preferred chain %q: %w", cfg.PreferredChain, err)
	}
	rpc, err := rpcClient(ctx, *net)
	if err != nil {
		return nil, chain.Chain{}, err
	}
	c, err := contract.NewClient(contract.Config{
		Address:        cfg.ContractAddress,
		ChainID:        net.ChainID,
		Reader:         rpc,
		GasLimit:       config.GasLimitMint,
		PollInterval:   config.ReceiptPollPeriod,
		ConfirmTimeout: config.TxConfirmTimeout,
		Logger:         appLog,
	})
	if err != nil {
		return nil, chain.Chain{}, err
	}
	return c, *net, nil
}
