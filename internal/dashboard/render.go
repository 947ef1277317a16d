package dashboard

import (
	"fmt"
	"strings"

	"github.com/Mohsinsiddi/infinity/internal/ui"
)

// Render formats v for the terminal. symbol is the native currency symbol.
func Render(v View, symbol string) string {
	var sb strings.Builder
	sb.WriteString(ui.StyleTitle.Render("Portfolio "+ui.TruncateAddr(v.Investor)) + "\n")

	if len(v.Rows) == 0 {
		sb.WriteString(ui.Meta("No investments yet. Run `infinity invest` to create one.") + "\n")
		return sb.String()
	}

	t := ui.NewTable([]ui.Column{
		{Title: "Token", Width: 7},
		{Title: "Product", Width: 26},
		{Title: "Principal", Width: 14},
		{Title: "APY", Width: 7},
		{Title: "Progress", Width: 18},
		{Title: "Days left", Width: 9},
		{Title: "Status", Width: 9},
	})
	for _, r := range v.Rows {
		name := r.TemplateName
		if name == "" {
			name = r.ContractType
		}
		t.AddRow(ui.Row{
			"#" + r.TokenID,
			name,
			r.Principal.String() + " " + symbol,
			r.TargetAPY.StringFixed(2) + "%",
			ui.ProgressBar(r.Progress, 10) + fmt.Sprintf(" %3.0f%%", r.Progress),
			fmt.Sprintf("%d", r.DaysRemaining),
			string(r.Status),
		})
	}
	sb.WriteString(t.Render())
	sb.WriteString("\n")

	pairs := [][2]string{
		{"Positions", fmt.Sprintf("%d (%d active, %d completed)", v.Totals.Count, v.Totals.Active, v.Totals.Completed)},
		{"Total principal", v.Totals.Principal.String() + " " + symbol},
		{"Weighted APY", v.Totals.WeightedAPY.StringFixed(2) + "%"},
		{"Expected at maturity", v.Totals.Expected.StringFixed(4) + " " + symbol},
	}
	if v.Totals.Value != nil {
		pairs = append(pairs, [2]string{"Value", v.Totals.Value.StringFixed(2) + " " + strings.ToUpper(v.Totals.Currency)})
	}
	sb.WriteString(ui.KeyValueBlock("Totals", pairs))
	sb.WriteString("\n")
	sb.WriteString(ui.Meta("Updated " + v.UpdatedAt.Format("2006-01-02 15:04:05")))
	sb.WriteString("\n")
	return sb.String()
}
