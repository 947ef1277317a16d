package document

import (
	"bytes"
	"fmt"

	"github.com/go-pdf/fpdf"
)

// StandardClauses appear in every contract.
var StandardClauses = []string{
	"The investor's principal is committed for the full term and may not be withdrawn early.",
	"Target APY is an objective, not a guarantee; actual returns depend on asset performance.",
	"Ownership of this position is recorded by a non-transferable token (SBT) minted to the investor's address.",
	"The serialized terms referenced by the document hash below are the authoritative record of this agreement.",
	"Disputes are resolved under the governing law stated in the fund's offering memorandum.",
}

// Render produces the PDF contract for a serialized payload.
func Render(payload []byte) ([]byte, error) {
	p, err := Decode(payload)
	if err != nil {
		return nil, err
	}
	hash := Hash(payload)

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetCreationDate(p.GeneratedAt)
	pdf.SetModificationDate(p.GeneratedAt)
	pdf.SetCatalogSort(true)
	pdf.SetTitle("Investment Agreement", true)
	pdf.SetAuthor("Infinity Ventures", true)
	pdf.SetMargins(20, 20, 20)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.SetTextColor(128, 128, 128)
		pdf.CellFormat(0, 10, fmt.Sprintf("%s  |  page %d", p.ContractVersion, pdf.PageNo()), "", 0, "C", false, 0, "")
	})
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 20)
	pdf.CellFormat(0, 12, "Investment Agreement", "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(0, 7, tr(p.Template.Name), "", 1, "C", false, 0, "")
	pdf.Ln(6)

	section := func(title string) {
		pdf.SetFont("Helvetica", "B", 13)
		pdf.CellFormat(0, 8, title, "B", 1, "L", false, 0, "")
		pdf.Ln(2)
		pdf.SetFont("Helvetica", "", 11)
	}
	row := func(label, value string) {
		pdf.SetFont("Helvetica", "B", 11)
		pdf.CellFormat(45, 7, label, "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 11)
		pdf.MultiCell(0, 7, tr(value), "", "L", false)
	}

	section("Parties")
	row("Manager", "Infinity Ventures")
	row("Investor", p.Investor)
	row("Network", p.Network)
	pdf.Ln(4)

	section("Terms")
	row("Principal", p.Amount.String())
	row("Term", p.Term)
	row("Target APY", p.TargetAPY.String()+"%")
	row("Contract type", p.Template.ContractType)
	row("Created", p.CreatedAt.UTC().Format("2006-01-02 15:04 MST"))
	if p.SpecialTerms != "" {
		row("Special terms", p.SpecialTerms)
	}
	pdf.Ln(4)

	section("Standard clauses")
	for i, c := range StandardClauses {
		pdf.MultiCell(0, 6, tr(fmt.Sprintf("%d. %s", i+1, c)), "", "L", false)
		pdf.Ln(1)
	}
	pdf.Ln(6)

	section("Signatures")
	y := pdf.GetY() + 14
	pdf.Line(20, y, 90, y)
	pdf.Line(120, y, 190, y)
	pdf.SetY(y + 1)
	pdf.CellFormat(100, 6, "Infinity Ventures", "", 0, "L", false, 0, "")
	pdf.CellFormat(0, 6, "Investor", "", 1, "L", false, 0, "")
	pdf.Ln(8)

	pdf.SetFont("Courier", "", 8)
	pdf.MultiCell(0, 5, "Document hash: "+hash, "", "L", false)
	pdf.MultiCell(0, 5, "Generated: "+p.GeneratedAt.UTC().Format("2006-01-02T15:04:05Z"), "", "L", false)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("rendering contract: %w", err)
	}
	return buf.Bytes(), nil
}

// SizeKB is the artifact size rounded up to whole kilobytes.
func SizeKB(blob []byte) int {
	return (len(blob) + 1023) / 1024
}
