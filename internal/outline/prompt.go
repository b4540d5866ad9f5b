package outline

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/starford/beatsheet/internal/apperr"
)

// Mode selects which prompt is built.
type Mode int

// Prompt modes.
const (
	// ModeGenerate asks for a complete outline from the brief.
	ModeGenerate Mode = iota
	// ModeRegenerateAct asks for a single act, given the current outline.
	ModeRegenerateAct
	// ModeRevise asks for a complete outline reworked per user instructions.
	ModeRevise
)

func (m Mode) String() string {
	switch m {
	case ModeGenerate:
		return "generate"
	case ModeRegenerateAct:
		return "regenerate_act"
	case ModeRevise:
		return "revise"
	}
	return "unknown"
}

// PromptRequest carries everything a prompt may embed.
type PromptRequest struct {
	Mode  Mode
	Brief Brief
	// Act is the act to rewrite in ModeRegenerateAct.
	Act Act
	// Current is the rendered current outline.
	Current string
}

const outlineGuidelines = `Guidelines:
- Use hierarchical bullet formatting.
- Do NOT include a summary or explanations.
- Keep the outline tight and structured like a screenplay or novel planner.
- Focus purely on plot beats and story flow.`

// BuildPrompt composes the text sent to the model.
func BuildPrompt(req PromptRequest) (string, error) {
	beats := req.Brief.BeatsPerAct
	if beats < MinBeatsPerAct || beats > MaxBeatsPerAct {
		return "", fmt.Errorf("%w: beats per act must be between %d and %d", apperr.ErrValidation, MinBeatsPerAct, MaxBeatsPerAct)
	}

	var b strings.Builder
	switch req.Mode {
	case ModeGenerate:
		if !req.Brief.HasMaterial() {
			return "", errNoMaterial()
		}
		b.WriteString("Create a clear, detailed story outline based on the following material:\n\n")
		b.WriteString(req.Brief.Material())
		b.WriteString("\n\n")
		writeFullFormat(&b, beats)

	case ModeRegenerateAct:
		if !req.Act.Valid() {
			return "", fmt.Errorf("%w: unknown act", apperr.ErrValidation)
		}
		writeMaterial(&b, req.Brief)
		writeCurrent(&b, req.Current)
		fmt.Fprintf(&b, "Rewrite ONLY %s. Respond with that act's section alone, with exactly %d beats, in this format:\n\n", req.Act.Header(), beats)
		writeActFormat(&b, req.Act, beats)
		b.WriteString("\nDo not repeat the other acts.\n\n")
		b.WriteString(outlineGuidelines)
		if instr := strings.TrimSpace(req.Brief.Instructions); instr != "" {
			b.WriteString("\n\nAdditional instructions:\n")
			b.WriteString(instr)
		}

	case ModeRevise:
		instr := strings.TrimSpace(req.Brief.Instructions)
		if instr == "" {
			return "", fmt.Errorf("%w: revision instructions are required", apperr.ErrValidation)
		}
		writeMaterial(&b, req.Brief)
		writeCurrent(&b, req.Current)
		b.WriteString("Revise the outline according to these instructions:\n")
		b.WriteString(instr)
		b.WriteString("\n\n")
		writeFullFormat(&b, beats)

	default:
		return "", fmt.Errorf("%w: unknown prompt mode %d", apperr.ErrValidation, int(req.Mode))
	}
	return b.String(), nil
}

func writeMaterial(b *strings.Builder, brief Brief) {
	if !brief.HasMaterial() {
		return
	}
	b.WriteString("Story material:\n")
	b.WriteString(brief.Material())
	b.WriteString("\n\n")
}

func writeCurrent(b *strings.Builder, current string) {
	b.WriteString("Current Outline:\n")
	b.WriteString(strings.TrimSpace(current))
	b.WriteString("\n\n")
}

func writeFullFormat(b *strings.Builder, beats int) {
	fmt.Fprintf(b, "Your outline must follow this format, with exactly %d beats per act:\n\n", beats)
	for _, act := range AllActs {
		writeActFormat(b, act, beats)
	}
	b.WriteString("\n")
	b.WriteString(outlineGuidelines)
}

func writeActFormat(b *strings.Builder, act Act, beats int) {
	b.WriteString(act.Header())
	b.WriteString("\n")
	for i := 1; i <= beats; i++ {
		b.WriteString("- Key beat " + strconv.Itoa(i) + ": ...\n")
	}
}
