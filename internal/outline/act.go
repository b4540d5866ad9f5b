// Package outline implements the three-act outline model: beat parsing,
// canonical rendering, prompt construction, version history and the
// session controller that ties them together.
package outline

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/starford/beatsheet/internal/apperr"
)

// Act is one of the three fixed narrative sections.
type Act int

// The three acts, in story order.
const (
	ActSetup Act = iota + 1
	ActRising
	ActClimax
)

// ActCount is the number of acts in an outline.
const ActCount = 3

// AllActs lists the acts in story order.
var AllActs = [ActCount]Act{ActSetup, ActRising, ActClimax}

// Valid reports whether a is one of the three acts.
func (a Act) Valid() bool {
	return a >= ActSetup && a <= ActClimax
}

// Name returns the act's section name, e.g. "Rising Action".
func (a Act) Name() string {
	switch a {
	case ActSetup:
		return "Setup"
	case ActRising:
		return "Rising Action"
	case ActClimax:
		return "Climax & Resolution"
	}
	return ""
}

// Numeral returns the roman numeral of the act.
func (a Act) Numeral() string {
	switch a {
	case ActSetup:
		return "I"
	case ActRising:
		return "II"
	case ActClimax:
		return "III"
	}
	return ""
}

// Header returns the canonical header line, e.g. "Act II - Rising Action".
func (a Act) Header() string {
	return "Act " + a.Numeral() + " - " + a.Name()
}

func (a Act) String() string {
	if !a.Valid() {
		return fmt.Sprintf("Act(%d)", int(a))
	}
	return a.Header()
}

func (a Act) index() int {
	return int(a) - 1
}

// ParseAct accepts "1".."3", roman numerals, or the section name.
func ParseAct(s string) (Act, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "i", "setup", "act i", "act1":
		return ActSetup, nil
	case "2", "ii", "rising", "rising action", "act ii", "act2":
		return ActRising, nil
	case "3", "iii", "climax", "climax & resolution", "act iii", "act3":
		return ActClimax, nil
	}
	return 0, fmt.Errorf("%w: unknown act %q", apperr.ErrValidation, s)
}

var actHeaderRe = regexp.MustCompile(`(?i)\bact\s+(iii|ii|i)\b`)

// ClassifyActHeader reports whether line announces an act, and which one.
// It is the only place act headers are recognised.
func ClassifyActHeader(line string) (Act, bool) {
	m := actHeaderRe.FindStringSubmatch(line)
	if m == nil {
		return 0, false
	}
	switch strings.ToLower(m[1]) {
	case "i":
		return ActSetup, true
	case "ii":
		return ActRising, true
	default:
		return ActClimax, true
	}
}
