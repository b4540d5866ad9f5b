package outline

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/starford/beatsheet/internal/apperr"
)

type stubCompleter struct {
	responses []string
	err       error
	calls     int
	prompts   []string
}

func (c *stubCompleter) Complete(_ context.Context, prompt string) (string, error) {
	c.calls++
	c.prompts = append(c.prompts, prompt)
	if c.err != nil {
		return "", c.err
	}
	if len(c.responses) == 0 {
		return "", nil
	}
	r := c.responses[0]
	if len(c.responses) > 1 {
		c.responses = c.responses[1:]
	}
	return r, nil
}

func fixedClock() func() time.Time {
	t := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)
	return func() time.Time {
		t = t.Add(time.Minute)
		return t
	}
}

const fiveBeatResponse = `Act I - Setup
- Key beat 1: one
- Key beat 2: two
- Key beat 3: three
- Key beat 4: four
- Key beat 5: five
Act II - Rising Action
- Key beat 1: rising
Act III - Climax & Resolution
- Key beat 1: climax`

func newTestSession(c Completer) *Session {
	return NewSession(c, WithClock(fixedClock()))
}

func generated(t *testing.T, c *stubCompleter) *Session {
	t.Helper()
	s := newTestSession(c)
	if err := s.Generate(context.Background(), Brief{Premise: "A botanist finds a glowing plant", BeatsPerAct: 3}); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	return s
}

func TestGenerate_TruncatesToBeatsPerAct(t *testing.T) {
	c := &stubCompleter{responses: []string{fiveBeatResponse}}
	s := generated(t, c)

	got := s.Current().Acts.Get(ActSetup)
	want := []string{"one", "two", "three"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("act I = %q, want %q", got, want)
	}
	if s.State() != StateGenerated {
		t.Errorf("state = %v, want generated", s.State())
	}
	if s.Text() != Render(s.Current().Acts) {
		t.Errorf("text is not the canonical render: %q", s.Text())
	}
	if s.Current().Raw != fiveBeatResponse {
		t.Error("raw response not kept")
	}
}

func TestGenerate_FirstGenerationTakesNoSnapshot(t *testing.T) {
	c := &stubCompleter{responses: []string{fiveBeatResponse}}
	s := generated(t, c)
	if n := len(s.Versions()); n != 0 {
		t.Errorf("versions = %d, want 0", n)
	}

	if err := s.Generate(context.Background(), s.Brief()); err != nil {
		t.Fatalf("second Generate: %v", err)
	}
	if n := len(s.Versions()); n != 1 {
		t.Errorf("versions = %d, want 1", n)
	}
}

func TestGenerate_RequiresMaterial(t *testing.T) {
	c := &stubCompleter{responses: []string{fiveBeatResponse}}
	s := newTestSession(c)

	err := s.Generate(context.Background(), Brief{Premise: "  ", BeatsPerAct: 3})
	if !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("err = %v, want validation", err)
	}
	if c.calls != 0 {
		t.Errorf("model calls = %d, want 0", c.calls)
	}
	if s.State() != StateEmpty {
		t.Errorf("state = %v, want empty", s.State())
	}
}

func TestGenerate_DocumentOnly(t *testing.T) {
	c := &stubCompleter{responses: []string{fiveBeatResponse}}
	s := newTestSession(c)
	if err := s.Generate(context.Background(), Brief{Document: "Chapter one text", BeatsPerAct: 2}); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if !strings.Contains(c.prompts[0], "Chapter one text") {
		t.Error("prompt is missing the document text")
	}
}

func TestGenerate_BeatsOutOfRange(t *testing.T) {
	c := &stubCompleter{responses: []string{fiveBeatResponse}}
	s := newTestSession(c)
	for _, n := range []int{1, 7} {
		err := s.Generate(context.Background(), Brief{Premise: "x", BeatsPerAct: n})
		if !errors.Is(err, apperr.ErrValidation) {
			t.Errorf("beats=%d: err = %v, want validation", n, err)
		}
	}
	if c.calls != 0 {
		t.Errorf("model calls = %d, want 0", c.calls)
	}
}

func TestGenerate_ModelFailureLeavesStateUnchanged(t *testing.T) {
	c := &stubCompleter{responses: []string{fiveBeatResponse}}
	s := generated(t, c)
	before := s.Current()

	c.err = errors.New("connection refused")
	err := s.Generate(context.Background(), s.Brief())
	if !errors.Is(err, apperr.ErrModelCall) {
		t.Fatalf("err = %v, want model call error", err)
	}
	if !reflect.DeepEqual(s.Current(), before) {
		t.Error("current outline changed after failed generation")
	}
	if n := len(s.Versions()); n != 0 {
		t.Errorf("versions = %d, want 0 after failure", n)
	}
}

func TestGenerate_EmptyResponseIsModelError(t *testing.T) {
	c := &stubCompleter{responses: []string{"   \n"}}
	s := newTestSession(c)
	err := s.Generate(context.Background(), Brief{Premise: "x", BeatsPerAct: 3})
	if !errors.Is(err, apperr.ErrModelCall) {
		t.Fatalf("err = %v, want model call error", err)
	}
}

func TestGenerate_CancelledContext(t *testing.T) {
	c := &stubCompleter{responses: []string{fiveBeatResponse}}
	s := newTestSession(c)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := s.Generate(ctx, Brief{Premise: "x", BeatsPerAct: 3})
	if !errors.Is(err, apperr.ErrModelCall) || !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want cancelled model call", err)
	}
	if s.State() != StateEmpty {
		t.Errorf("state = %v, want empty", s.State())
	}
}

func TestGenerate_UnparseableResponseKeepsRawText(t *testing.T) {
	c := &stubCompleter{responses: []string{"Sorry, I can only write haiku."}}
	s := newTestSession(c)
	if err := s.Generate(context.Background(), Brief{Premise: "x", BeatsPerAct: 3}); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if s.Text() != "Sorry, I can only write haiku." {
		t.Errorf("text = %q", s.Text())
	}
	if s.State() != StateGenerated {
		t.Errorf("state = %v, want generated", s.State())
	}
}

func TestRegenerateAct_OnlyTouchesTargetAct(t *testing.T) {
	c := &stubCompleter{responses: []string{
		fiveBeatResponse,
		"Act II - Rising Action\n- Key beat 1: new one\n- Key beat 2: new two\n- Key beat 3: new three\n- Key beat 4: dropped",
	}}
	s := generated(t, c)
	before := s.current.Acts

	if err := s.RegenerateAct(context.Background(), ActRising); err != nil {
		t.Fatalf("RegenerateAct: %v", err)
	}
	after := s.current.Acts

	if &before[0][0] != &after[0][0] || &before[2][0] != &after[2][0] {
		t.Error("acts I and III were replaced")
	}
	want := []string{"new one", "new two", "new three"}
	if !reflect.DeepEqual(after.Get(ActRising), want) {
		t.Errorf("act II = %q, want %q", after.Get(ActRising), want)
	}
	if !strings.Contains(c.prompts[1], "Current Outline:\n"+Render(before)) {
		t.Error("regenerate prompt is missing the current outline")
	}
	if n := len(s.Versions()); n != 1 {
		t.Errorf("versions = %d, want 1", n)
	}
}

func TestRegenerateAct_RequiresOutline(t *testing.T) {
	c := &stubCompleter{responses: []string{fiveBeatResponse}}
	s := newTestSession(c)
	if err := s.RegenerateAct(context.Background(), ActSetup); !errors.Is(err, apperr.ErrInvalidState) {
		t.Errorf("err = %v, want invalid state", err)
	}
	if c.calls != 0 {
		t.Errorf("model calls = %d, want 0", c.calls)
	}
}

func TestRevise_BlankInstructions(t *testing.T) {
	c := &stubCompleter{responses: []string{fiveBeatResponse}}
	s := generated(t, c)
	if err := s.Revise(context.Background(), " \n\t"); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("err = %v, want validation", err)
	}
	if c.calls != 1 {
		t.Errorf("model calls = %d, want 1", c.calls)
	}
}

func TestRevise_ReplacesOutline(t *testing.T) {
	c := &stubCompleter{responses: []string{
		fiveBeatResponse,
		"Act I\n- a\nAct II\n- b\nAct III\n- c",
	}}
	s := generated(t, c)
	if err := s.Revise(context.Background(), "Make the ending hopeful"); err != nil {
		t.Fatalf("Revise: %v", err)
	}
	if got := s.Current().Acts; !reflect.DeepEqual(got, ActBeats{{"a"}, {"b"}, {"c"}}) {
		t.Errorf("acts = %q", got)
	}
	if !strings.Contains(c.prompts[1], "Make the ending hopeful") {
		t.Error("instructions missing from prompt")
	}
	if len(s.Versions()) != 1 {
		t.Errorf("versions = %d, want 1", len(s.Versions()))
	}
}

func TestEditBeat_NoSnapshot(t *testing.T) {
	c := &stubCompleter{responses: []string{fiveBeatResponse}}
	s := generated(t, c)
	if err := s.EditBeat(ActClimax, 0, "A better climax"); err != nil {
		t.Fatalf("EditBeat: %v", err)
	}
	if got := s.Current().Acts.Get(ActClimax)[0]; got != "A better climax" {
		t.Errorf("beat = %q", got)
	}
	if !strings.Contains(s.Text(), "- A better climax") {
		t.Errorf("text not re-rendered: %q", s.Text())
	}
	if len(s.Versions()) != 0 {
		t.Error("edit created a snapshot")
	}
	if err := s.EditBeat(ActClimax, 5, "x"); !errors.Is(err, apperr.ErrIndexOutOfRange) {
		t.Errorf("err = %v, want index out of range", err)
	}
}

func TestEditBeat_FoldsLineBreaks(t *testing.T) {
	c := &stubCompleter{responses: []string{fiveBeatResponse}}
	s := generated(t, c)
	if err := s.EditBeat(ActSetup, 0, "first line\nsecond line"); err != nil {
		t.Fatalf("EditBeat: %v", err)
	}
	if err := s.AppendBeat(ActSetup, "  trailing\r\n  beat "); err != nil {
		t.Fatalf("AppendBeat: %v", err)
	}
	want := []string{"first line second line", "two", "three", "trailing beat"}
	if got := s.Current().Acts.Get(ActSetup); !reflect.DeepEqual(got, want) {
		t.Errorf("beats = %q, want %q", got, want)
	}
	reparsed := Section(s.Text(), SectionOptions{})
	if !reflect.DeepEqual(reparsed, s.Current().Acts) {
		t.Errorf("re-parsed acts = %q, want %q", reparsed, s.Current().Acts)
	}
}

func TestRevise_InstructionsDoNotCarryOver(t *testing.T) {
	c := &stubCompleter{responses: []string{
		fiveBeatResponse,
		fiveBeatResponse,
		"- new opening\n- second\n- third",
	}}
	s := generated(t, c)
	if err := s.Revise(context.Background(), "Make Act III hopeful"); err != nil {
		t.Fatalf("Revise: %v", err)
	}
	if err := s.RegenerateAct(context.Background(), ActSetup); err != nil {
		t.Fatalf("RegenerateAct: %v", err)
	}
	if strings.Contains(c.prompts[2], "Make Act III hopeful") {
		t.Error("revision instructions leaked into act regeneration")
	}
	if s.Brief().Instructions != "" {
		t.Errorf("instructions = %q, want empty", s.Brief().Instructions)
	}
}

func TestMoveAndDeleteBeat(t *testing.T) {
	c := &stubCompleter{responses: []string{fiveBeatResponse}}
	s := generated(t, c)
	if err := s.MoveBeat(ActSetup, 0, 2); err != nil {
		t.Fatalf("MoveBeat: %v", err)
	}
	if got := s.Current().Acts.Get(ActSetup); !reflect.DeepEqual(got, []string{"two", "three", "one"}) {
		t.Errorf("after move = %q", got)
	}
	if err := s.DeleteBeat(ActSetup, 1); err != nil {
		t.Fatalf("DeleteBeat: %v", err)
	}
	if got := s.Current().Acts.Get(ActSetup); !reflect.DeepEqual(got, []string{"two", "one"}) {
		t.Errorf("after delete = %q", got)
	}
	if err := s.AppendBeat(ActSetup, "four"); err != nil {
		t.Fatalf("AppendBeat: %v", err)
	}
	if got := s.Current().Acts.Get(ActSetup); !reflect.DeepEqual(got, []string{"two", "one", "four"}) {
		t.Errorf("after append = %q", got)
	}
}

func TestEditsDoNotLeakIntoSnapshots(t *testing.T) {
	c := &stubCompleter{responses: []string{fiveBeatResponse}}
	s := generated(t, c)
	if err := s.Generate(context.Background(), s.Brief()); err != nil {
		t.Fatal(err)
	}
	if err := s.EditBeat(ActSetup, 0, "edited"); err != nil {
		t.Fatal(err)
	}
	snap, err := s.history.Get(1)
	if err != nil {
		t.Fatal(err)
	}
	if snap.Outline.Acts.Get(ActSetup)[0] != "one" {
		t.Errorf("snapshot mutated by edit: %q", snap.Outline.Acts.Get(ActSetup))
	}
}

func TestClear_KeepsHistory(t *testing.T) {
	c := &stubCompleter{responses: []string{fiveBeatResponse}}
	s := generated(t, c)
	_ = s.Generate(context.Background(), s.Brief())
	if err := s.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if s.State() != StateEmpty {
		t.Errorf("state = %v, want empty", s.State())
	}
	if len(s.Versions()) != 1 {
		t.Errorf("versions = %d, want 1", len(s.Versions()))
	}
	if err := s.Clear(); !errors.Is(err, apperr.ErrInvalidState) {
		t.Errorf("clear on empty: err = %v", err)
	}
}

func TestSelectAndExitVersionView(t *testing.T) {
	c := &stubCompleter{responses: []string{fiveBeatResponse, "Act I\n- x\nAct II\n- y\nAct III\n- z"}}
	s := generated(t, c)
	first := s.Text()
	_ = s.Generate(context.Background(), s.Brief())
	current := s.Text()

	snap, err := s.SelectVersion(1)
	if err != nil {
		t.Fatalf("SelectVersion: %v", err)
	}
	if snap.Outline.Text != first {
		t.Errorf("snapshot text = %q, want %q", snap.Outline.Text, first)
	}
	if s.State() != StateViewingHistory {
		t.Errorf("state = %v, want viewing_history", s.State())
	}
	if s.Displayed().Text != first {
		t.Error("displayed outline is not the snapshot")
	}
	if s.Text() != current {
		t.Error("selecting a version changed the current outline")
	}
	if err := s.Generate(context.Background(), s.Brief()); !errors.Is(err, apperr.ErrInvalidState) {
		t.Errorf("generate while viewing: err = %v", err)
	}

	s.ExitVersionView()
	if s.State() != StateGenerated {
		t.Errorf("state = %v, want generated", s.State())
	}
	if _, err := s.SelectVersion(9); !errors.Is(err, apperr.ErrIndexOutOfRange) {
		t.Errorf("err = %v, want index out of range", err)
	}
}

func TestRestoreVersion(t *testing.T) {
	c := &stubCompleter{responses: []string{fiveBeatResponse, "Act I\n- x\nAct II\n- y\nAct III\n- z"}}
	s := generated(t, c)
	_ = s.Generate(context.Background(), s.Brief())

	snap, _ := s.history.Get(1)
	if err := s.RestoreVersion(1); err != nil {
		t.Fatalf("RestoreVersion: %v", err)
	}
	if s.Text() != snap.Outline.Text {
		t.Errorf("text = %q, want %q", s.Text(), snap.Outline.Text)
	}
	if Render(s.Current().Acts) != snap.Outline.Text {
		t.Error("rendered beats differ from the snapshot text")
	}
	// The discarded outline is saved, and nothing is truncated.
	if n := len(s.Versions()); n != 2 {
		t.Errorf("versions = %d, want 2", n)
	}
	if err := s.RestoreVersion(1); err != nil {
		t.Fatal(err)
	}
	if n := len(s.Versions()); n != 2 {
		t.Errorf("restoring the same text again: versions = %d, want 2", n)
	}
}

func TestRestoreVersion_FromEmpty(t *testing.T) {
	c := &stubCompleter{responses: []string{fiveBeatResponse}}
	s := generated(t, c)
	_ = s.Generate(context.Background(), s.Brief())
	_ = s.Clear()
	if err := s.RestoreVersion(1); err != nil {
		t.Fatalf("RestoreVersion: %v", err)
	}
	if s.State() != StateGenerated {
		t.Errorf("state = %v, want generated", s.State())
	}
	if n := len(s.Versions()); n != 1 {
		t.Errorf("versions = %d, want 1", n)
	}
}

func TestSetBrief(t *testing.T) {
	s := newTestSession(nil)
	if err := s.SetBrief(Brief{Premise: "p"}); err != nil {
		t.Fatalf("SetBrief: %v", err)
	}
	if s.Brief().BeatsPerAct != DefaultBeatsPerAct {
		t.Errorf("beats = %d, want default", s.Brief().BeatsPerAct)
	}
	if err := s.SetBrief(Brief{BeatsPerAct: 9}); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("err = %v, want validation", err)
	}
}

func TestNoCompleterIsModelError(t *testing.T) {
	s := newTestSession(nil)
	err := s.Generate(context.Background(), Brief{Premise: "p", BeatsPerAct: 3})
	if !errors.Is(err, apperr.ErrModelCall) {
		t.Errorf("err = %v, want model call error", err)
	}
}
