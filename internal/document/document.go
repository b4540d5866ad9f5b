// Package document extracts plain text from uploaded source material.
package document

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"

	"github.com/starford/beatsheet/internal/apperr"
)

// Supported MIME types.
const (
	MIMEText = "text/plain"
	MIMEPDF  = "application/pdf"
	MIMEDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

var extTypes = map[string]string{
	".txt":  MIMEText,
	".text": MIMEText,
	".md":   MIMEText,
	".pdf":  MIMEPDF,
	".docx": MIMEDOCX,
}

// DetectType resolves the MIME type of an upload. The declared type wins
// unless it is empty or generic, in which case the file extension decides.
func DetectType(filename, declared string) string {
	if declared != "" {
		if mt, _, err := mime.ParseMediaType(declared); err == nil {
			declared = mt
		}
	}
	if declared != "" && declared != "application/octet-stream" {
		return declared
	}
	if mt, ok := extTypes[strings.ToLower(filepath.Ext(filename))]; ok {
		return mt
	}
	return declared
}

// Extract returns the text content of data interpreted as mimeType.
func Extract(data []byte, mimeType string) (string, error) {
	var (
		text string
		err  error
	)
	switch mimeType {
	case MIMEText:
		if !utf8.Valid(data) {
			return "", fmt.Errorf("%w: text is not valid UTF-8", apperr.ErrExtraction)
		}
		text = string(data)
	case MIMEPDF:
		text, err = extractPDF(data)
	case MIMEDOCX:
		text, err = extractDOCX(data)
	default:
		return "", fmt.Errorf("%w: %q", apperr.ErrUnsupportedFormat, mimeType)
	}
	if err != nil {
		return "", fmt.Errorf("%w: %w", apperr.ErrExtraction, err)
	}
	return normalizeWhitespace(text), nil
}

func extractPDF(raw []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}

	var b strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		content, pageErr := p.GetPlainText(nil)
		if pageErr != nil {
			continue
		}
		b.WriteString(content)
		b.WriteString("\n")
	}
	if strings.TrimSpace(b.String()) == "" {
		return "", errors.New("no extractable text found in pdf")
	}
	return b.String(), nil
}

func extractDOCX(raw []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return "", fmt.Errorf("open docx zip: %w", err)
	}

	var xmlData []byte
	for _, f := range zr.File {
		if f.Name != "word/document.xml" {
			continue
		}
		rc, openErr := f.Open()
		if openErr != nil {
			return "", fmt.Errorf("open document.xml: %w", openErr)
		}
		xmlData, err = io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return "", fmt.Errorf("read document.xml: %w", err)
		}
		break
	}
	if len(xmlData) == 0 {
		return "", errors.New("word/document.xml not found")
	}

	decoder := xml.NewDecoder(bytes.NewReader(xmlData))
	var b strings.Builder
	inText := false
	for {
		tok, tokenErr := decoder.Token()
		if tokenErr == io.EOF {
			break
		}
		if tokenErr != nil {
			return "", fmt.Errorf("decode document.xml: %w", tokenErr)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "p":
				if b.Len() > 0 {
					b.WriteString("\n")
				}
			case "tab":
				b.WriteString(" ")
			}
		case xml.EndElement:
			if t.Name.Local == "t" {
				inText = false
			}
		case xml.CharData:
			if inText {
				b.Write(t)
			}
		}
	}
	return b.String(), nil
}

// normalizeWhitespace collapses runs of spaces and drops blank lines.
func normalizeWhitespace(text string) string {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line == "" {
			continue
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}
