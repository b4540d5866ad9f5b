package export

import (
	"bytes"

	"github.com/go-pdf/fpdf"
)

func renderPDF(doc Document) ([]byte, error) {
	p := fpdf.New("P", "mm", "A4", "")
	p.SetTitle(doc.title(), true)
	p.SetMargins(20, 20, 20)
	p.SetAutoPageBreak(true, 20)
	tr := p.UnicodeTranslatorFromDescriptor("")
	p.AddPage()

	p.SetFont("Helvetica", "B", 18)
	p.MultiCell(0, 9, tr(doc.title()), "", "L", false)
	p.Ln(3)

	if doc.Summary != "" {
		p.SetFont("Helvetica", "I", 11)
		p.MultiCell(0, 6, tr(doc.Summary), "", "L", false)
		p.Ln(4)
	}

	for _, s := range doc.sections() {
		p.SetFont("Helvetica", "B", 14)
		p.MultiCell(0, 8, tr(s.Header), "", "L", false)
		p.SetFont("Helvetica", "", 11)
		for _, beat := range s.Beats {
			p.MultiCell(0, 6, tr("- "+beat), "", "L", false)
		}
		p.Ln(4)
	}

	var buf bytes.Buffer
	if err := p.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
