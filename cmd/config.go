package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/Mohsinsiddi/infinity/internal/ui"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configShowCmd = &cobra.Command{
	Use:     "show",
	Aliases: []string{"list"},
	Short:   "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return err
		}
		fmt.Printf("%s\n\n", ui.StyleTitle.Render("Current Configuration"))
		fmt.Println(string(data))
		fmt.Println(ui.Meta("Config directory: " + cfg.Dir()))
		if cfg.Storage.Enabled() {
			fmt.Println(ui.Meta("Storage: " + cfg.Storage.Endpoint + " / " + cfg.Storage.Bucket))
		} else {
			fmt.Println(ui.Meta("Storage: demo mode (INFINITY_STORAGE_* not set)"))
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: `Set a scalar configuration value by its JSON key.

Keys: api_url, listen_addr, database_path, preferred_chain, contract_address,
gateway_url, dapp_url, default_wallet, price_currency, log_level, log_pretty,
rpc_strategy.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]
		if key == "preferred_chain" {
			if _, err := newRegistry().GetByName(value); err != nil {
				return fmt.Errorf("unknown chain %q; run `infinity network list`", value)
			}
		}
		if err := cfg.Set(key, value); err != nil {
			return err
		}
		if err := cfg.Save(); err != nil {
			return err
		}
		fmt.Println(ui.Success(fmt.Sprintf("%s set to %q", key, value)))
		return nil
	},
}

var configSetRPCCmd = &cobra.Command{
	Use:   "set-rpc <chain> <url>",
	Short: "Add an RPC endpoint for a chain",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		chainName, url := args[0], args[1]
		if _, err := newRegistry().GetByName(chainName); err != nil {
			return fmt.Errorf("unknown chain %q; run `infinity network list`", chainName)
		}
		if err := cfg.AddRPC(chainName, url); err != nil {
			fmt.Println(ui.Warn(err.Error()))
			return nil
		}
		if err := cfg.Save(); err != nil {
			return err
		}
		fmt.Println(ui.Success(fmt.Sprintf("RPC %s added for %s", url, chainName)))
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd, configSetCmd, configSetRPCCmd)
}
