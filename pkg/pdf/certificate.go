package pdf

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// CertificateData is everything printed on a retirement certificate.
type CertificateData struct {
	Serial         string
	RetirementID   uint64
	TokenID        uint64
	Owner          string
	Amount         uint64
	RetiredAt      time.Time
	CertificateURI string
	IsCertificated bool
}

// RenderCertificate produces the downloadable retirement certificate.
func RenderCertificate(data CertificateData) ([]byte, error) {
	doc := gofpdf.New("P", "mm", "A4", "")
	doc.SetTitle("Carbon Credit Retirement Certificate", false)
	doc.AddPage()

	doc.SetFont("Helvetica", "B", 22)
	doc.CellFormat(0, 14, "Certificate of Carbon Credit Retirement", "", 1, "C", false, 0, "")
	doc.Ln(4)

	doc.SetFont("Helvetica", "", 11)
	doc.CellFormat(0, 8, fmt.Sprintf("Serial: %s", data.Serial), "", 1, "C", false, 0, "")
	doc.Ln(8)

	rows := [][2]string{
		{"Retirement ID", fmt.Sprintf("%d", data.RetirementID)},
		{"Project Token ID", fmt.Sprintf("%d", data.TokenID)},
		{"Retired By", data.Owner},
		{"Credits Retired", fmt.Sprintf("%d", data.Amount)},
		{"Retired At", data.RetiredAt.Format(time.RFC3339)},
		{"Certificate URI", data.CertificateURI},
	}
	doc.SetFont("Helvetica", "", 12)
	for _, row := range rows {
		doc.SetFont("Helvetica", "B", 12)
		doc.CellFormat(60, 10, row[0], "1", 0, "L", false, 0, "")
		doc.SetFont("Helvetica", "", 12)
		doc.CellFormat(0, 10, row[1], "1", 1, "L", false, 0, "")
	}
	doc.Ln(10)

	status := "PENDING AUDITOR CERTIFICATION"
	if data.IsCertificated {
		status = "CERTIFIED BY AUDITOR"
	}
	doc.SetFont("Helvetica", "B", 14)
	doc.CellFormat(0, 12, status, "", 1, "C", false, 0, "")

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, fmt.Errorf("render certificate %s: %w", data.Serial, err)
	}
	return buf.Bytes(), nil
}
