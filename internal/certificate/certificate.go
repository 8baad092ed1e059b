// Package certificate renders marriage certificates as PDF documents.
package certificate

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/google/uuid"
)

// Certificate holds everything printed on the document.
type Certificate struct {
	Number        string
	IssuedAt      time.Time
	PartnerOne    string
	PartnerTwo    string
	MarriageDate  *time.Time
	MarriagePlace string
	Witnesses     []string
	Officiant     string
}

type Renderer interface {
	Render(w io.Writer, c Certificate) error
}

// PDFRenderer lays the certificate out on one A4 landscape page.
type PDFRenderer struct{}

func (PDFRenderer) Render(w io.Writer, c Certificate) error {
	pdf := fpdf.New("L", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle("Marriage Certificate "+c.Number, true)
	pdf.SetAuthor("Fiqhi", true)
	pdf.AddPage()

	pdf.SetLineWidth(1.2)
	pdf.Rect(10, 10, 277, 190, "D")
	pdf.SetLineWidth(0.3)
	pdf.Rect(14, 14, 269, 182, "D")

	pdf.SetY(28)
	pdf.SetFont("Helvetica", "B", 30)
	pdf.CellFormat(0, 16, "Certificate of Marriage", "", 1, "C", false, 0, "")

	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(0, 8, tr("No. "+c.Number), "", 1, "C", false, 0, "")
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "", 14)
	pdf.CellFormat(0, 9, "This is to certify that", "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "B", 20)
	pdf.CellFormat(0, 12, tr(c.PartnerOne), "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 14)
	pdf.CellFormat(0, 9, "and", "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "B", 20)
	pdf.CellFormat(0, 12, tr(c.PartnerTwo), "", 1, "C", false, 0, "")

	pdf.SetFont("Helvetica", "", 14)
	pdf.CellFormat(0, 10, tr(ceremonyLine(c)), "", 1, "C", false, 0, "")
	pdf.Ln(6)

	pdf.SetFont("Helvetica", "", 11)
	if len(c.Witnesses) > 0 {
		pdf.CellFormat(0, 7, tr("Witnesses: "+strings.Join(c.Witnesses, ", ")), "", 1, "C", false, 0, "")
	}
	if c.Officiant != "" {
		pdf.CellFormat(0, 7, tr("Officiated by "+c.Officiant), "", 1, "C", false, 0, "")
	}

	pdf.SetY(178)
	pdf.SetFont("Helvetica", "I", 10)
	pdf.CellFormat(0, 6, "Issued "+c.IssuedAt.Format("2 January 2006"), "", 1, "C", false, 0, "")

	return pdf.Output(w)
}

func ceremonyLine(c Certificate) string {
	line := "were united in marriage"
	if c.MarriageDate != nil {
		line += " on " + c.MarriageDate.Format("2 January 2006")
	}
	if c.MarriagePlace != "" {
		line += " at " + c.MarriagePlace
	}
	return line
}

// NewNumber returns a certificate number such as MC-20261016-4F1A2B.
func NewNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
	return fmt.Sprintf("MC-%s-%s", now.UTC().Format("20060102"), suffix)
}
