package cmd

import (
	"fmt"
	"net/url"

	"github.com/Mohsinsiddi/infinity/internal/config"
	"github.com/Mohsinsiddi/infinity/internal/ui"
	"github.com/Mohsinsiddi/infinity/internal/wallet"
	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
)

const skipProvider = "skip"

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Interactive setup",
	Long: `Set the preferred network, API server, receipt contract and price
currency, and optionally expose the default signing wallet as a wallet
provider.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println(ui.Banner())

		vals, err := ui.RunForm("Infinity setup", setupFields(cfg), validateSetup)
		if err != nil {
			return err
		}
		if vals == nil {
			fmt.Println(ui.Meta("Setup cancelled."))
			return nil
		}

		if err := applySetup(cfg, vals); err != nil {
			return err
		}
		if brand := vals["provider"]; brand != "" && brand != skipProvider {
			if err := attachDefaultWallet(brand); err != nil {
				fmt.Println(ui.Warn(err.Error()))
			}
		}
		if err := cfg.Save(); err != nil {
			return fmt.Errorf("saving config: %w", err)
		}

		fmt.Println(ui.Success("Infinity configured. Run `infinity wallet connect` to start."))
		return nil
	},
}

func setupFields(c *config.Config) []ui.FormField {
	brands := []string{skipProvider}
	for _, b := range wallet.SupportedWallets() {
		brands = append(brands, string(b.ID))
	}
	return []ui.FormField{
		{Key: "preferred_chain", Label: "Preferred network", Choices: c.SupportedChains, Default: c.PreferredChain},
		{Key: "api_url", Label: "API server", Default: c.APIURL},
		{Key: "contract_address", Label: "Receipt contract", Hint: "0x address, blank to set later", Default: c.ContractAddress, Optional: true},
		{Key: "price_currency", Label: "Price currency", Choices: []string{"USD", "EUR", "GBP"}, Default: c.PriceCurrency},
		{Key: "provider", Label: "Expose default wallet as", Choices: brands, Default: skipProvider},
	}
}

func validateSetup(v ui.FormValues) (string, error) {
	if u, err := url.Parse(v["api_url"]); err != nil || u.Scheme == "" || u.Host == "" {
		return "api_url", fmt.Errorf("API server must be an http(s) URL")
	}
	if a := v["contract_address"]; a != "" && !common.IsHexAddress(a) {
		return "contract_address", fmt.Errorf("%q is not an address", a)
	}
	return "", nil
}

func applySetup(c *config.Config, v ui.FormValues) error {
	for _, key := range []string{"preferred_chain", "api_url", "contract_address", "price_currency"} {
		if err := c.Set(key, v[key]); err != nil {
			return err
		}
	}
	return nil
}

// attachDefaultWallet registers the default signing wallet as a keystore
// provider under brand.
func attachDefaultWallet(brand string) error {
	id, err := wallet.ParseWalletID(brand)
	if err != nil {
		return err
	}
	w, err := loadSigningWallet(newWalletManager(), "")
	if err != nil {
		return fmt.Errorf("provider not attached: %w", err)
	}
	entry, err := providerEntry(id, w.Name, "", "")
	if err != nil {
		return err
	}
	cfg.AddProvider(entry)
	fmt.Println(ui.Success(fmt.Sprintf("%s now signs as %s", id.Name(), w.Name)))
	return nil
}
