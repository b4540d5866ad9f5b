package outline

import (
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/beatsheet/internal/apperr"
)

// Beat-count bounds per act.
const (
	MinBeatsPerAct     = 2
	MaxBeatsPerAct     = 6
	DefaultBeatsPerAct = 3
)

// Brief is the user's input for one generation.
type Brief struct {
	Premise      string `json:"premise"`
	Document     string `json:"document"`
	BeatsPerAct  int    `json:"beats_per_act"`
	Instructions string `json:"instructions,omitempty"`
}

// Validate checks the beat-count bounds.
func (b Brief) Validate() error {
	err := validation.ValidateStruct(&b,
		validation.Field(&b.BeatsPerAct, validation.Required, validation.Min(MinBeatsPerAct), validation.Max(MaxBeatsPerAct)),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrValidation, err)
	}
	return nil
}

// HasMaterial reports whether there is a premise or document text to work from.
func (b Brief) HasMaterial() bool {
	return strings.TrimSpace(b.Premise) != "" || strings.TrimSpace(b.Document) != ""
}

// Material joins premise and document text.
func (b Brief) Material() string {
	return strings.TrimSpace(b.Premise + "\n\n" + b.Document)
}

func (b Brief) withDefaults(fallback int) Brief {
	if b.BeatsPerAct == 0 {
		b.BeatsPerAct = fallback
	}
	if b.BeatsPerAct == 0 {
		b.BeatsPerAct = DefaultBeatsPerAct
	}
	return b
}

func errNoMaterial() error {
	return fmt.Errorf("%w: enter a story idea or upload a document", apperr.ErrValidation)
}
