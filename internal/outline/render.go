package outline

import (
	"strings"
)

// ActBeats holds the ordered beats of each act, indexed by story order.
type ActBeats [ActCount][]string

// Get returns the beats of act a.
func (b ActBeats) Get(a Act) []string {
	if !a.Valid() {
		return nil
	}
	return b[a.index()]
}

// Count returns the total number of beats across all acts.
func (b ActBeats) Count() int {
	n := 0
	for _, beats := range b {
		n += len(beats)
	}
	return n
}

// Clone returns a deep copy.
func (b ActBeats) Clone() ActBeats {
	var out ActBeats
	for i, beats := range b {
		if beats != nil {
			out[i] = append([]string(nil), beats...)
		}
	}
	return out
}

// Truncate caps every act at n beats.
func (b ActBeats) Truncate(n int) ActBeats {
	for i := range b {
		b[i] = truncate(b[i], n)
	}
	return b
}

func truncate(beats []string, n int) []string {
	if n >= 0 && len(beats) > n {
		return beats[:n]
	}
	return beats
}

// Render produces the canonical outline text used for display, follow-up
// prompts and plain-text export.
func Render(acts ActBeats) string {
	var b strings.Builder
	for i, act := range AllActs {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(act.Header())
		b.WriteString("\n")
		for j, beat := range acts[i] {
			if j > 0 {
				b.WriteString("\n")
			}
			b.WriteString("- ")
			b.WriteString(beat)
		}
	}
	return b.String()
}

// Outline is the working outline of a session.
type Outline struct {
	Acts ActBeats
	// Text is the displayed outline. Once beats exist it is Render(Acts).
	Text string
	// Raw is the last model response, kept verbatim.
	Raw string
}

// Empty reports whether there is nothing worth preserving.
func (o Outline) Empty() bool {
	return strings.TrimSpace(o.Text) == ""
}

// Clone returns a deep copy.
func (o Outline) Clone() Outline {
	o.Acts = o.Acts.Clone()
	return o
}

// newOutline installs parsed acts, falling back to the raw response when
// nothing could be recovered so the user can still see and edit it.
func newOutline(acts ActBeats, raw string) Outline {
	o := Outline{Acts: acts, Raw: raw}
	if acts.Count() == 0 {
		o.Text = strings.TrimSpace(raw)
	} else {
		o.Text = Render(acts)
	}
	return o
}
