package receipt

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"finportal/internal/models"
)

// Generator renders receipt PDFs in memory.
type Generator struct {
	Company  string
	FontPath string // optional TTF; core Helvetica is used when empty or missing
}

func NewGenerator(company, fontPath string) *Generator {
	return &Generator{Company: company, FontPath: fontPath}
}

func (g *Generator) PDF(r models.ReceiptData) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(fmt.Sprintf("%s %s", Title(r.TransactionType), r.ReceiptNumber), true)
	pdf.SetAuthor(g.Company, true)
	pdf.SetMargins(20, 20, 20)
	pdf.SetAutoPageBreak(true, 20)
	font := g.setupFont(pdf)
	pdf.AddPage()

	pdf.SetFont(font, "B", 18)
	pdf.CellFormat(0, 10, g.Company, "", 1, "C", false, 0, "")
	pdf.SetFont(font, "", 12)
	pdf.CellFormat(0, 7, Title(r.TransactionType), "", 1, "C", false, 0, "")
	hr(pdf)
	pdf.Ln(3)

	sectionTitle(pdf, font, "Details")
	kvLine(pdf, font, "Receipt No.", r.ReceiptNumber)
	kvLine(pdf, font, "Date", r.Date.Format("02.01.2006 15:04 MST"))
	kvLine(pdf, font, "Customer", r.CustomerName)
	if r.CustomerEmail != "" {
		kvLine(pdf, font, "Email", r.CustomerEmail)
	}
	pdf.Ln(2)
	hr(pdf)

	sectionTitle(pdf, font, "Transaction")
	kvLine(pdf, font, "Type", strings.ToUpper(r.TransactionType[:1])+r.TransactionType[1:])
	kvLine(pdf, font, "Amount", FormatAmount(r.Amount)+" "+r.Currency)
	if r.Method != "" {
		kvLine(pdf, font, "Method", r.Method)
	}
	kvLine(pdf, font, "Status", strings.ToUpper(r.Status))
	if r.Reference != "" {
		kvLine(pdf, font, "Reference", r.Reference)
	}
	if r.Description != "" {
		pdf.Ln(1)
		pdf.SetFont(font, "", 11)
		pdf.MultiCell(0, 6, r.Description, "", "L", false)
	}
	pdf.Ln(2)
	hr(pdf)

	pdf.SetFont(font, "", 9)
	pdf.MultiCell(0, 5, "This receipt was generated electronically and is valid without a signature.", "", "L", false)

	pdf.AliasNbPages("")
	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont(font, "", 9)
		pdf.CellFormat(0, 10, fmt.Sprintf("Page %d/{nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
	})

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render receipt pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func (g *Generator) setupFont(pdf *gofpdf.Fpdf) string {
	if g.FontPath == "" {
		return "Helvetica"
	}
	if _, err := os.Stat(g.FontPath); err != nil {
		return "Helvetica"
	}
	pdf.AddUTF8Font("Receipt", "", g.FontPath)
	pdf.AddUTF8Font("Receipt", "B", g.FontPath)
	return "Receipt"
}

func sectionTitle(pdf *gofpdf.Fpdf, font, s string) {
	pdf.SetFont(font, "B", 12)
	pdf.CellFormat(0, 7, s, "", 1, "L", false, 0, "")
	pdf.SetFont(font, "", 11)
}

func kvLine(pdf *gofpdf.Fpdf, font, key, val string) {
	pdf.SetFont(font, "B", 11)
	pdf.CellFormat(45, 6, key+":", "", 0, "L", false, 0, "")
	pdf.SetFont(font, "", 11)
	pdf.CellFormat(0, 6, val, "", 1, "L", false, 0, "")
}

func hr(pdf *gofpdf.Fpdf) {
	y := pdf.GetY() + 1.5
	pdf.SetLineWidth(0.2)
	pdf.Line(20, y, 190, y)
	pdf.SetY(y + 2)
}
