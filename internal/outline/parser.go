package outline

import (
	"strings"
)

// Keywords is a set of lowercased structural words that never count as beats.
type Keywords map[string]struct{}

// NewKeywords builds a keyword set; matching is case-insensitive.
func NewKeywords(words ...string) Keywords {
	k := make(Keywords, len(words))
	for _, w := range words {
		k[strings.ToLower(strings.TrimSpace(w))] = struct{}{}
	}
	return k
}

func (k Keywords) has(s string) bool {
	_, ok := k[strings.ToLower(strings.TrimSpace(s))]
	return ok
}

// DefaultKeywords are the section labels models echo back from the prompt.
var DefaultKeywords = NewKeywords(
	"setup",
	"rising action",
	"climax",
	"resolution",
	"climax & resolution",
	"climax and resolution",
)

const keyBeatPrefix = "key beat"

// ParseBeats turns one act's worth of model text into beat strings.
// It never fails: lines it does not understand are dropped or kept verbatim.
func ParseBeats(text string, keywords Keywords) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		if beat, ok := parseBeatLine(line, keywords); ok {
			out = append(out, beat)
		}
	}
	return out
}

func parseBeatLine(line string, keywords Keywords) (string, bool) {
	s := strings.TrimSpace(line)
	if s == "" || keywords.has(s) {
		return "", false
	}
	// Bolded headers like "- **Setup**".
	if strings.HasPrefix(s, "- **") && strings.HasSuffix(s, "**") {
		return "", false
	}
	s = strings.TrimSpace(strings.TrimPrefix(s, "- "))

	if strings.HasPrefix(strings.ToLower(s), keyBeatPrefix) {
		_, after, found := strings.Cut(s, ":")
		if !found {
			return "", false
		}
		s = strings.TrimSpace(after)
	}
	if s == "" || keywords.has(s) {
		return "", false
	}
	return s, true
}

// SectionOptions controls how text is split into acts.
type SectionOptions struct {
	Keywords Keywords
	// DefaultActOne assigns lines seen before the first act header to Act I.
	// When false those lines are discarded.
	DefaultActOne bool
}

// Section splits a full model response into acts and parses each act's beats.
func Section(text string, opts SectionOptions) ActBeats {
	keywords := opts.Keywords
	if keywords == nil {
		keywords = DefaultKeywords
	}

	var buffers [ActCount][]string
	var current Act
	if opts.DefaultActOne {
		current = ActSetup
	}
	for _, line := range strings.Split(text, "\n") {
		if act, ok := ClassifyActHeader(line); ok {
			current = act
			continue
		}
		if !current.Valid() {
			continue
		}
		buffers[current.index()] = append(buffers[current.index()], line)
	}

	var acts ActBeats
	for i, buf := range buffers {
		acts[i] = ParseBeats(strings.Join(buf, "\n"), keywords)
	}
	return acts
}

// stripActHeaders drops header lines from a single-act response.
func stripActHeaders(text string) string {
	lines := strings.Split(text, "\n")
	kept := lines[:0:0]
	for _, line := range lines {
		if _, ok := ClassifyActHeader(line); ok {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}
