package cmd

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/Mohsinsiddi/infinity/internal/api"
	"github.com/Mohsinsiddi/infinity/internal/chain"
	"github.com/Mohsinsiddi/infinity/internal/config"
	"github.com/Mohsinsiddi/infinity/internal/contract"
	"github.com/Mohsinsiddi/infinity/internal/domain"
	"github.com/Mohsinsiddi/infinity/internal/invest"
	"github.com/Mohsinsiddi/infinity/internal/network"
	"github.com/Mohsinsiddi/infinity/internal/ui"
	"github.com/Mohsinsiddi/infinity/internal/wallet"
	"github.com/spf13/cobra"
)

var (
	investTemplate string
	investAmount   string
	investTerm     string
	investAPY      string
	investSpecial  string
	investPreview  bool
	investYes      bool
)

var investCmd = &cobra.Command{
	Use:   "invest",
	Short: "Create an investment and mint its receipt token",
	Long: `Walk through the four investment steps:

  1. Select a template
  2. Enter the terms (amount, term, target APY, special terms)
  3. Generate the contract document and store it
  4. Deposit the principal and mint the soulbound receipt

Terms given as flags skip the form. The connected wallet signs the deposit
and, optionally, a proof of ownership saved alongside the investment.

Examples:
  infinity invest
  infinity invest --template real-estate --amount 2.5 --term "12 months" --apy 8`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		reg := newRegistry()

		guard, err := newGuard(reg)
		if err != nil {
			return err
		}
		cc, net, err := newContractClient(ctx, reg)
		if err != nil {
			return err
		}
		conn, release := openConnector(ctx, reg)
		defer release()

		s, p, err := requireSession(ctx, conn)
		if err != nil {
			return err
		}
		if err := ensurePreferredChain(ctx, guard, reg, p, s); err != nil {
			return err
		}

		client := newAPIClient()
		resp, err := client.Templates(ctx)
		if err != nil {
			return fmt.Errorf("loading templates: %w", err)
		}
		wiz := invest.NewWizard(resp.Templates, invest.NewPipeline(client, config.ContractVersion, appLog))

		// Step 1
		id, err := chooseTemplate(wiz.Templates(), net.Currency.Symbol)
		if err != nil || id == "" {
			return err
		}
		if err := wiz.SelectTemplate(id); err != nil {
			return err
		}
		if err := wiz.Next(); err != nil {
			return err
		}
		tmpl, _ := wiz.Selected()

		// Step 2
		in, ok, err := collectTerms(tmpl, net.Currency.Symbol)
		if err != nil || !ok {
			return err
		}
		if _, err := wiz.SubmitTerms(in, s.Account, s.ChainID); err != nil {
			return err
		}

		// Step 3
		if err := generateWithRetry(ctx, wiz); err != nil {
			return err
		}
		if err := wiz.Next(); err != nil {
			return err
		}

		// Step 4
		sum, err := wiz.Summary()
		if err != nil {
			return err
		}
		fmt.Println(ui.KeyValueBlock("Investment Summary", summaryPairs(sum, net.Currency.Symbol)))
		if sum.StorageIsDemo {
			fmt.Println(ui.Warn("Storage ran in demo mode; the locator is not pinned anywhere."))
		}
		if investPreview {
			previewBundle(wiz.Bundle())
		}

		prompt := fmt.Sprintf("Deposit %s %s and mint the receipt?", sum.Principal.String(), net.Currency.Symbol)
		if !investYes && !ui.Confirm(prompt) {
			fmt.Println(ui.Meta("Deposit cancelled."))
			return nil
		}

		res, err := mintWithRetry(ctx, cc, p, *s, sum, wiz.Bundle())
		if err != nil {
			return err
		}

		pairs := [][2]string{
			{"Token ID", res.TokenID.String()},
			{"Tx", ui.Addr(res.TxHash)},
			{"Block", fmt.Sprintf("%d", res.BlockNumber)},
			{"Matures", res.Maturity.Format("2006-01-02")},
		}
		fmt.Println(ui.KeyValueBlock("Receipt Minted", pairs))
		if u := net.TxURL(res.TxHash); u != "" {
			fmt.Println(ui.Hint(u))
		}

		sig, err := wallet.PersonalSign(ctx, p, api.OwnershipMessage(res.TxHash), s.Account)
		if err != nil {
			fmt.Println(ui.Warn("Ownership signature skipped: " + err.Error()))
			sig = ""
		}
		saved, err := client.SaveInvestment(ctx, api.SaveRequest{
			Account:    s.Account,
			Investment: savedInvestment(wiz.Bundle(), res, net.Name, sig),
		})
		switch {
		case err != nil:
			fmt.Println(ui.Warn("Could not record the investment: " + err.Error()))
			fmt.Println(ui.Hint("The receipt token is on-chain; the dashboard will show it once indexed."))
		case saved.Duplicate:
			fmt.Println(ui.Meta("Investment was already recorded."))
		default:
			fmt.Println(ui.Success("Investment recorded"))
		}

		out, err := renderDashboard(ctx, newDashboardLoader(net), s.Account, net)
		if err != nil {
			fmt.Println(ui.Warn("Dashboard unavailable: " + err.Error()))
		} else {
			fmt.Print(out)
		}
		wiz.Reset()
		return nil
	},
}

func init() {
	investCmd.Flags().StringVarP(&investTemplate, "template", "t", "", "template id")
	investCmd.Flags().StringVar(&investAmount, "amount", "", "principal in the chain's native currency")
	investCmd.Flags().StringVar(&investTerm, "term", "", `investment term, e.g. "12 months"`)
	investCmd.Flags().StringVar(&investAPY, "apy", "", "target APY in percent")
	investCmd.Flags().StringVar(&investSpecial, "special", "", "special terms")
	investCmd.Flags().BoolVar(&investPreview, "preview", false, "open the contract document before depositing")
	investCmd.Flags().BoolVarP(&investYes, "yes", "y", false, "skip the deposit confirmation")
}

// ensurePreferredChain moves the wallet to the preferred network when it is
// elsewhere and refreshes s.ChainID from the provider.
func ensurePreferredChain(ctx context.Context, g *network.Guard, reg *chain.Registry, p wallet.Provider, s *wallet.Session) error {
	preferred := g.Preferred()
	if id, err := chain.ParseChainID(s.ChainID); err == nil && id == preferred.ChainID {
		return nil
	}
	fmt.Println(ui.Warn(fmt.Sprintf("Wallet is on %s; investments are made on %s.", reg.DisplayNameFor(s.ChainID), preferred.DisplayName)))

	outcome, err := g.SwitchToPreferredChain(ctx, p)
	if err != nil {
		return err
	}
	fmt.Println(outcomeLine(outcome, preferred))
	if outcome != network.Switched && outcome != network.AlreadyOn {
		return fmt.Errorf("%w: switch to %s to invest", contract.ErrWrongChain, preferred.DisplayName)
	}

	current, err := wallet.ChainID(ctx, p)
	if err != nil {
		return err
	}
	s.ChainID = current
	if id, err := chain.ParseChainID(current); err != nil || id != preferred.ChainID {
		return fmt.Errorf("%w: still on %s", contract.ErrWrongChain, reg.DisplayNameFor(current))
	}
	return nil
}

// chooseTemplate returns --template or asks. An empty id means cancelled.
func chooseTemplate(templates []domain.Template, symbol string) (string, error) {
	if investTemplate != "" {
		return investTemplate, nil
	}
	items := make([]ui.PickerItem, 0, len(templates))
	for _, t := range templates {
		items = append(items, ui.PickerItem{
			Label:    t.Name,
			SubLabel: templateSubLabel(t, symbol),
			Value:    t.ID,
		})
	}
	return ui.PickItem("Select an investment template", items)
}

func templateSubLabel(t domain.Template, symbol string) string {
	return fmt.Sprintf("%s to %s %s · %s%% to %s%% APY",
		t.MinAmount, t.MaxAmount, symbol, t.TargetAPYRange.Min, t.TargetAPYRange.Max)
}

// collectTerms reads the terms from flags, or from the form when none were
// given. ok is false when the form was cancelled.
func collectTerms(tmpl domain.Template, symbol string) (invest.TermsInput, bool, error) {
	if investAmount != "" || investTerm != "" || investAPY != "" {
		return invest.TermsInput{
			Amount:       investAmount,
			Term:         investTerm,
			APY:          investAPY,
			SpecialTerms: investSpecial,
		}, true, nil
	}
	vals, err := ui.RunForm("Investment terms: "+tmpl.Name, termsFields(tmpl, symbol), termsValidator(tmpl))
	if err != nil {
		return invest.TermsInput{}, false, err
	}
	if vals == nil {
		return invest.TermsInput{}, false, nil
	}
	return termsInput(vals), true, nil
}

func termsFields(tmpl domain.Template, symbol string) []ui.FormField {
	var def string
	if len(tmpl.TermsOptions) > 0 {
		def = tmpl.TermsOptions[0]
	}
	return []ui.FormField{
		{Key: "amount", Label: "Amount", Hint: fmt.Sprintf("%s to %s %s", tmpl.MinAmount, tmpl.MaxAmount, symbol)},
		{Key: "term", Label: "Term", Choices: tmpl.TermsOptions, Default: def},
		{Key: "apy", Label: "Target APY", Hint: fmt.Sprintf("%s%% to %s%%", tmpl.TargetAPYRange.Min, tmpl.TargetAPYRange.Max)},
		{Key: "special", Label: "Special terms", Optional: true},
	}
}

func termsInput(v ui.FormValues) invest.TermsInput {
	return invest.TermsInput{
		Amount:       v["amount"],
		Term:         v["term"],
		APY:          v["apy"],
		SpecialTerms: v["special"],
	}
}

// termsValidator sends the form back to whichever field failed.
func termsValidator(tmpl domain.Template) ui.FormValidator {
	return func(v ui.FormValues) (string, error) {
		_, _, err := invest.ValidateTerms(tmpl, termsInput(v))
		var ve *invest.ValidationError
		if errors.As(err, &ve) {
			return ve.Field, err
		}
		return "", err
	}
}

// generateWithRetry runs contract generation, offering a retry after each
// failure.
func generateWithRetry(ctx context.Context, wiz *invest.Wizard) error {
	var spin *ui.Spinner
	wiz.Progress().OnChange = func(ph invest.Phase, st invest.Status) {
		if st == invest.StatusProcessing && spin != nil {
			spin.SetMessage(phaseMessage(ph))
		}
	}
	defer func() { wiz.Progress().OnChange = nil }()

	for {
		spin = ui.NewSpinner("Preparing contract...")
		spin.Start()
		_, err := wiz.Generate(ctx)
		spin.Stop()
		fmt.Println(phaseTable(wiz.Progress().Snapshot()))
		if err == nil {
			fmt.Println(ui.Success("Contract generated"))
			return nil
		}
		fmt.Println(ui.Err(err.Error()))
		if ctx.Err() != nil || !ui.Confirm("Retry generation?") {
			return err
		}
	}
}

// phaseMessage is the spinner text while ph runs.
func phaseMessage(ph invest.Phase) string {
	name := ph.String()
	return strings.ToUpper(name[:1]) + name[1:] + "..."
}

// phaseTable renders one row per generation phase.
func phaseTable(statuses []invest.Status) string {
	t := ui.NewTable([]ui.Column{
		{Title: "Phase", Width: 22},
		{Title: "Status", Width: 12},
	})
	for i, ph := range invest.Phases() {
		if i >= len(statuses) {
			break
		}
		t.AddRow(ui.Row{ph.String(), statusLabel(statuses[i])})
	}
	return t.Render()
}

func statusLabel(s invest.Status) string {
	switch s {
	case invest.StatusCompleted:
		return ui.StyleSuccess.Render("✓ " + string(s))
	case invest.StatusError:
		return ui.StyleError.Render("✗ " + string(s))
	case invest.StatusProcessing:
		return ui.StyleWarning.Render("… " + string(s))
	}
	return ui.Meta(string(s))
}

func summaryPairs(s invest.Summary, symbol string) [][2]string {
	storage := s.StorageLocator
	if s.StorageIsDemo {
		storage += " (demo)"
	}
	return [][2]string{
		{"Template", s.TemplateName},
		{"Principal", s.Principal.String() + " " + symbol},
		{"Term", s.Term},
		{"Target APY", s.APY.String() + "%"},
		{"Expected Return", s.ExpectedReturn.StringFixed(4) + " " + symbol},
		{"Document", fmt.Sprintf("%s (%d KB)", s.DocumentHash, s.DocumentSizeKB)},
		{"Storage", storage},
	}
}

func previewBundle(b *invest.Bundle) {
	target, err := invest.Preview(b, filepath.Join(cfg.Dir(), "documents"), cfg.GatewayURL)
	if err != nil {
		fmt.Println(ui.Warn("Preview unavailable: " + err.Error()))
		return
	}
	fmt.Println(ui.Hint(target))
	if err := ui.OpenBrowser(target); err != nil {
		appLog.Debug().Err(err).Str("target", target).Msg("could not open preview")
	}
}

// mintWithRetry deposits through the wallet. A failed mint leaves the bundle
// intact so the same document can be deposited again. Once a deposit has been
// submitted it is never sent a second time unless it reverted: an unconfirmed
// one is only waited on again.
func mintWithRetry(ctx context.Context, cc *contract.Client, p wallet.Provider, s wallet.Session, sum invest.Summary, b *invest.Bundle) (*contract.MintResult, error) {
	var pending *contract.MintResult
	for {
		var (
			res *contract.MintResult
			err error
		)
		if pending != nil {
			fmt.Println(ui.Info("Waiting for deposit " + pending.TxHash + "..."))
			res, err = cc.AwaitMint(ctx, pending, s.Account)
		} else {
			fmt.Println(ui.Info("Confirm the deposit in " + s.WalletID.Name() + "; waiting for the receipt..."))
			res, err = cc.Mint(ctx, p, s, sum.Principal, b)
		}
		if err == nil {
			return res, nil
		}
		if errors.Is(err, wallet.ErrUserRejected) {
			fmt.Println(ui.Warn("Deposit rejected in the wallet."))
		} else {
			fmt.Println(ui.Err(err.Error()))
		}
		if ctx.Err() != nil || errors.Is(err, contract.ErrWrongChain) {
			return nil, err
		}

		if errors.Is(err, contract.ErrNotMined) {
			pending = res
			fmt.Println(ui.Warn("The deposit was sent as " + pending.TxHash + " but is not confirmed yet. Do not deposit again; check the hash on the explorer."))
			if !ui.Confirm("Keep waiting for it?") {
				return nil, err
			}
			continue
		}
		var te *contract.TxError
		if errors.As(err, &te) && !te.Resendable() {
			return nil, err
		}
		pending = nil
		if !ui.Confirm("Retry deposit?") {
			return nil, err
		}
	}
}

// savedInvestment is the record posted after a successful mint.
func savedInvestment(b *invest.Bundle, res *contract.MintResult, networkName, sig string) api.SavedInvestment {
	t := b.Terms
	return api.SavedInvestment{
		TxHash:         res.TxHash,
		TokenID:        res.TokenID.String(),
		TemplateID:     t.Template.ID,
		TemplateName:   t.Template.Name,
		ContractType:   t.Template.ContractType,
		Amount:         t.Amount,
		TargetAPY:      t.TargetAPY,
		Term:           t.Term,
		StartTime:      res.StartTime,
		MaturityTime:   res.Maturity,
		StorageLocator: b.StorageLocator,
		TermsHash:      b.DocumentHash,
		Network:        networkName,
		Signature:      sig,
	}
}
