// Package export renders outlines to downloadable documents and archives them.
package export

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/starford/beatsheet/internal/apperr"
	"github.com/starford/beatsheet/internal/outline"
)

// Format is an export file format.
type Format string

// Formats.
const (
	FormatTXT  Format = "txt"
	FormatPDF  Format = "pdf"
	FormatDOCX Format = "docx"
)

var contentTypes = map[Format]string{
	FormatTXT:  "text/plain; charset=utf-8",
	FormatPDF:  "application/pdf",
	FormatDOCX: "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
}

// ParseFormat accepts a format name case-insensitively; empty means txt.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	if f == "" {
		return FormatTXT, nil
	}
	if _, ok := contentTypes[f]; !ok {
		return "", fmt.Errorf("%w: export format %q", apperr.ErrUnsupportedFormat, s)
	}
	return f, nil
}

// ContentType returns the MIME type served for f.
func ContentType(f Format) string {
	return contentTypes[f]
}

// Document is the exported content.
type Document struct {
	Title   string
	Summary string
	Outline outline.Outline
}

func (d Document) title() string {
	if t := strings.TrimSpace(d.Title); t != "" {
		return t
	}
	return "Story Outline"
}

// sections returns the acts in display order with their beats.
func (d Document) sections() []section {
	out := make([]section, 0, outline.ActCount)
	for _, act := range outline.AllActs {
		out = append(out, section{Header: act.Header(), Beats: d.Outline.Acts.Get(act)})
	}
	return out
}

type section struct {
	Header string
	Beats  []string
}

// Render produces the bytes of doc in format f.
func Render(f Format, doc Document) ([]byte, error) {
	var (
		data []byte
		err  error
	)
	switch f {
	case FormatTXT:
		data = renderText(doc)
	case FormatPDF:
		data, err = renderPDF(doc)
	case FormatDOCX:
		data, err = renderDOCX(doc)
	default:
		return nil, fmt.Errorf("%w: export format %q", apperr.ErrUnsupportedFormat, f)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperr.ErrExport, err)
	}
	return data, nil
}

func renderText(doc Document) []byte {
	var b strings.Builder
	b.WriteString(doc.title())
	b.WriteString("\n\n")
	if s := strings.TrimSpace(doc.Summary); s != "" {
		b.WriteString(s)
		b.WriteString("\n\n")
	}
	body := doc.Outline.Text
	if body == "" {
		body = outline.Render(doc.Outline.Acts)
	}
	b.WriteString(body)
	if !strings.HasSuffix(body, "\n") {
		b.WriteString("\n")
	}
	return []byte(b.String())
}

// Filename builds a download name from title and format.
func Filename(title string, f Format) string {
	return slug(title) + "." + string(f)
}

func slug(title string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(title) {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	s := strings.Trim(b.String(), "-")
	if len(s) > 60 {
		s = strings.Trim(s[:60], "-")
	}
	if s == "" {
		return "outline"
	}
	return s
}
