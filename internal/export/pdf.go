package export

import (
	"bytes"
	"time"

	"github.com/jung-kurt/gofpdf"

	"github.com/avramid/go-medcab-backend/internal/domain"
)

// column widths in mm, tuned for A4 portrait with 10mm margins.
var pdfWidths = []float64{55, 28, 24, 63, 20}

// PDF renders drugs as an A4 table with a title and header row.
// Expiration dates are formatted in loc.
func PDF(title string, drugs []domain.Drug, loc *time.Location) ([]byte, error) {
	if loc == nil {
		loc = time.UTC
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 12, 10)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(0, 10, title, "", 1, "L", false, 0, "")
	pdf.Ln(2)

	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetFillColor(230, 230, 230)
	for i, h := range header {
		pdf.CellFormat(pdfWidths[i], 7, h, "1", 0, "L", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 9)
	for _, d := range drugs {
		for i, cell := range row(d, loc) {
			pdf.CellFormat(pdfWidths[i], 6, cell, "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
