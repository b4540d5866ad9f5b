package export

import (
	"strings"

	"github.com/starford/beatsheet/internal/outline"
)

// Markdown renders doc as a Markdown document with one section per act.
// An outline without parsed beats is emitted as its raw text.
func Markdown(doc Document) string {
	var b strings.Builder
	b.WriteString("# ")
	b.WriteString(doc.title())
	b.WriteString("\n\n")
	if s := strings.TrimSpace(doc.Summary); s != "" {
		b.WriteString(s)
		b.WriteString("\n\n")
	}
	if doc.Outline.Acts.Count() == 0 {
		b.WriteString(doc.Outline.Text)
		b.WriteString("\n")
		return b.String()
	}
	for _, act := range outline.AllActs {
		b.WriteString("## ")
		b.WriteString(act.Header())
		b.WriteString("\n\n")
		for _, beat := range doc.Outline.Acts.Get(act) {
			b.WriteString("- ")
			b.WriteString(beat)
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
	return b.String()
}
