package export

import (
	"fmt"
	"io"
	"strings"
	"unicode"

	"investment-calculator/internal/models"

	"github.com/go-pdf/fpdf"
)

const (
	pageWidth  = 190.0
	labelWidth = 110.0
	rowHeight  = 7.0
)

// PDF renders a one-document report of the analysis.
func PDF(w io.Writer, a models.Analysis) error {
	inputs, outputs, err := Sections(a)
	if err != nil {
		return err
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle("Investment analysis", true)
	pdf.SetMargins(10, 12, 10)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(pageWidth, 10, tr(titleFor(a.CalculatorType)), "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(pageWidth, 6, tr(a.Address), "", 1, "L", false, 0, "")
	pdf.SetTextColor(110, 110, 110)
	pdf.CellFormat(pageWidth, 6, fmt.Sprintf("Version %d, created %s, updated %s",
		a.Version, a.CreatedAt.Format("Jan 2, 2006"), a.UpdatedAt.Format("Jan 2, 2006")), "", 1, "L", false, 0, "")
	pdf.SetTextColor(0, 0, 0)
	pdf.Ln(4)

	table(pdf, tr, "Inputs", inputs)
	table(pdf, tr, "Results", outputs)
	block(pdf, tr, "Notes", a.Notes)
	block(pdf, tr, "AI insight", a.AISummary)

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	return nil
}

func titleFor(t models.CalculatorType) string {
	switch t {
	case models.CalculatorMortgage:
		return "Mortgage analysis"
	case models.CalculatorRental:
		return "Rental property analysis"
	case models.CalculatorAirbnb:
		return "Short-term rental analysis"
	case models.CalculatorWholesale:
		return "Wholesale deal analysis"
	}
	return "Investment analysis"
}

func table(pdf *fpdf.Fpdf, tr func(string) string, heading string, fields []Field) {
	if len(fields) == 0 {
		return
	}
	pdf.SetFont("Helvetica", "B", 13)
	pdf.CellFormat(pageWidth, 8, heading, "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	pdf.SetFillColor(242, 244, 247)
	for i, f := range fields {
		fill := i%2 == 0
		pdf.CellFormat(labelWidth, rowHeight, tr(label(f.Key)), "", 0, "L", fill, 0, "")
		pdf.CellFormat(pageWidth-labelWidth, rowHeight, tr(f.Value), "", 1, "R", fill, 0, "")
	}
	pdf.Ln(4)
}

func block(pdf *fpdf.Fpdf, tr func(string) string, heading, text string) {
	if strings.TrimSpace(text) == "" {
		return
	}
	pdf.SetFont("Helvetica", "B", 13)
	pdf.CellFormat(pageWidth, 8, heading, "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.MultiCell(pageWidth, 5, tr(text), "", "L", false)
	pdf.Ln(3)
}

// label turns "monthlyCashFlow" into "Monthly Cash Flow".
func label(key string) string {
	var b strings.Builder
	var prev rune
	for _, r := range key {
		switch {
		case r == '.':
			b.WriteString(" / ")
			prev = ' '
			continue
		case unicode.IsUpper(r) && unicode.IsLower(prev):
			b.WriteByte(' ')
		}
		b.WriteRune(r)
		prev = r
	}
	s := []rune(b.String())
	if len(s) == 0 {
		return ""
	}
	s[0] = unicode.ToUpper(s[0])
	return string(s)
}
