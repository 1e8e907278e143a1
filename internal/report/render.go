package report

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/go-pdf/fpdf"
)

const (
	marginMM   = 15.0
	bodyFamily = "body"
	monoFamily = "mono"
	chartWidth = 180.0
)

// Render lays doc out on A4 pages and returns the PDF bytes. Text is wrapped,
// never truncated. On any renderer error no bytes are returned.
func Render(doc Document, fonts *Fonts) ([]byte, error) {
	if fonts == nil || len(fonts.Regular) == 0 {
		return nil, fmt.Errorf("%w: no fonts loaded", ErrMissingResource)
	}
	mono := fonts.Mono
	if len(mono) == 0 {
		mono = fonts.Regular
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(marginMM, marginMM, marginMM)
	pdf.SetAutoPageBreak(true, marginMM)
	pdf.AddUTF8FontFromBytes(bodyFamily, "", fonts.Regular)
	pdf.AddUTF8FontFromBytes(monoFamily, "", mono)
	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("%w: load fonts: %v", ErrMissingResource, err)
	}
	pdf.SetTitle(doc.Title, true)
	pdf.SetCreator("effluent", true)
	pdf.SetSubject("rapport "+doc.ID, true)
	pdf.SetFooterFunc(func() {
		pdf.SetY(-10)
		pdf.SetFont(bodyFamily, "", 8)
		pdf.CellFormat(0, 5, fmt.Sprintf("Pagina %d", pdf.PageNo()), "", 0, "C", false, 0, "")
	})

	pdf.AddPage()
	pdf.SetFont(bodyFamily, "", 18)
	pdf.MultiCell(0, 9, doc.Title, "", "L", false)
	pdf.SetFont(bodyFamily, "", 10)
	pdf.MultiCell(0, 5, "Bronbestand: "+doc.Source, "", "L", false)
	if !doc.Generated.IsZero() {
		pdf.MultiCell(0, 5, "Gegenereerd: "+doc.Generated.Format("2006-01-02 15:04"), "", "L", false)
	}
	pdf.Ln(4)

	heading(pdf, "Beschrijvende statistieken")
	pdf.SetFont(monoFamily, "", 7.5)
	for _, line := range doc.Stats {
		pdf.MultiCell(0, 3.8, line, "", "L", false)
	}
	pdf.Ln(3)

	if len(doc.Anomalies) > 0 || doc.AnomalyNarrative != "" {
		heading(pdf, fmt.Sprintf("Anomalieën (buiten gemiddelde ± %gσ)", doc.BandWidth))
		pdf.SetFont(bodyFamily, "", 10)
		for _, line := range doc.Anomalies {
			pdf.MultiCell(0, 5, "• "+line, "", "L", false)
		}
		if doc.AnomalyNarrative != "" {
			pdf.Ln(2)
			paragraph(pdf, strings.Split(doc.AnomalyNarrative, "\n"))
		}
		pdf.Ln(3)
	}

	for i, s := range doc.Sections {
		heading(pdf, s.Heading)
		if png, ok := doc.Charts[s.Heading]; ok && len(png) > 0 {
			name := fmt.Sprintf("chart-%d", i)
			pdf.RegisterImageOptionsReader(name, fpdf.ImageOptions{ImageType: "PNG"}, bytes.NewReader(png))
			pdf.ImageOptions(name, marginMM, pdf.GetY(), chartWidth, 0, true, fpdf.ImageOptions{ImageType: "PNG"}, 0, "")
			pdf.Ln(2)
		}
		pdf.SetFont(bodyFamily, "", 10)
		if s.Failed {
			pdf.SetTextColor(170, 30, 30)
		}
		paragraph(pdf, s.Lines)
		pdf.SetTextColor(0, 0, 0)
		pdf.Ln(3)
	}

	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("write pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func heading(pdf *fpdf.Fpdf, text string) {
	pdf.SetFont(bodyFamily, "", 13)
	pdf.MultiCell(0, 7, text, "", "L", false)
	pdf.Ln(1)
}

func paragraph(pdf *fpdf.Fpdf, lines []string) {
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			pdf.Ln(3)
			continue
		}
		pdf.MultiCell(0, 5, line, "", "L", false)
	}
}
