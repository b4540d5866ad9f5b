package outline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/starford/beatsheet/internal/apperr"
)

// Completer executes a prompt against a language model.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// State is the session's position in the edit lifecycle.
type State int

// Session states.
const (
	StateEmpty State = iota
	StateGenerated
	StateViewingHistory
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateGenerated:
		return "generated"
	case StateViewingHistory:
		return "viewing_history"
	}
	return "unknown"
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithKeywords overrides the structural keywords dropped while parsing.
func WithKeywords(k Keywords) SessionOption {
	return func(s *Session) {
		s.keywords = k
	}
}

// WithDefaultActOne assigns text before the first act header to Act I.
func WithDefaultActOne(enabled bool) SessionOption {
	return func(s *Session) {
		s.defaultActOne = enabled
	}
}

// WithHistoryLimit caps the number of stored snapshots; zero is unbounded.
func WithHistoryLimit(n int) SessionOption {
	return func(s *Session) {
		s.historyLimit = n
	}
}

// WithDefaultBeats sets the beats-per-act target used when a brief leaves it unset.
func WithDefaultBeats(n int) SessionOption {
	return func(s *Session) {
		s.defaultBeats = n
	}
}

// WithClock sets the time source used for snapshot labels.
func WithClock(now func() time.Time) SessionOption {
	return func(s *Session) {
		s.now = now
	}
}

// Session owns one user's brief, current outline and version history.
// It is not safe for concurrent use; callers serialise actions per session.
type Session struct {
	completer     Completer
	keywords      Keywords
	defaultActOne bool
	historyLimit  int
	defaultBeats  int
	now           func() time.Time

	brief   Brief
	current Outline
	history *History
	viewing int
}

// NewSession creates an empty session that calls c for generations.
func NewSession(c Completer, opts ...SessionOption) *Session {
	s := &Session{
		completer:    c,
		keywords:     DefaultKeywords,
		defaultBeats: DefaultBeatsPerAct,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.history = NewHistory(s.historyLimit, s.now)
	s.brief.BeatsPerAct = s.defaultBeats
	return s
}

// State returns the lifecycle state.
func (s *Session) State() State {
	switch {
	case s.viewing > 0:
		return StateViewingHistory
	case s.current.Empty():
		return StateEmpty
	default:
		return StateGenerated
	}
}

// Brief returns the stored brief.
func (s *Session) Brief() Brief {
	return s.brief
}

// SetBrief validates and stores b without generating.
func (s *Session) SetBrief(b Brief) error {
	b = b.withDefaults(s.defaultBeats)
	if err := b.Validate(); err != nil {
		return err
	}
	s.brief = b
	return nil
}

// Current returns a copy of the current outline.
func (s *Session) Current() Outline {
	return s.current.Clone()
}

// Text returns the current outline text.
func (s *Session) Text() string {
	return s.current.Text
}

// Displayed returns the snapshot being viewed, or the current outline.
func (s *Session) Displayed() Outline {
	if s.viewing > 0 {
		if o, err := s.history.Restore(s.viewing); err == nil {
			return o
		}
	}
	return s.Current()
}

// Viewing returns the selected snapshot index, or 0 when showing Current.
func (s *Session) Viewing() int {
	return s.viewing
}

// Generate builds a complete outline from brief and replaces the current one.
func (s *Session) Generate(ctx context.Context, brief Brief) error {
	if s.viewing > 0 {
		return errViewing()
	}
	brief = brief.withDefaults(s.defaultBeats)
	if err := brief.Validate(); err != nil {
		return err
	}
	if !brief.HasMaterial() {
		return errNoMaterial()
	}
	prompt, err := BuildPrompt(PromptRequest{Mode: ModeGenerate, Brief: brief})
	if err != nil {
		return err
	}
	raw, err := s.complete(ctx, prompt)
	if err != nil {
		return err
	}
	acts := Section(raw, s.sectionOptions()).Truncate(brief.BeatsPerAct)
	s.install(newOutline(acts, raw))
	s.brief = brief
	return nil
}

// RegenerateAct rewrites one act, leaving the other two untouched.
func (s *Session) RegenerateAct(ctx context.Context, act Act) error {
	if err := s.requireGenerated(); err != nil {
		return err
	}
	if !act.Valid() {
		return fmt.Errorf("%w: unknown act", apperr.ErrValidation)
	}
	prompt, err := BuildPrompt(PromptRequest{
		Mode:    ModeRegenerateAct,
		Brief:   s.brief,
		Act:     act,
		Current: Render(s.current.Acts),
	})
	if err != nil {
		return err
	}
	raw, err := s.complete(ctx, prompt)
	if err != nil {
		return err
	}
	beats := truncate(ParseBeats(stripActHeaders(raw), s.keywords), s.brief.BeatsPerAct)

	acts := s.current.Acts
	acts[act.index()] = beats
	next := newOutline(acts, raw)
	s.install(next)
	return nil
}

// Revise regenerates the whole outline following the user's instructions.
func (s *Session) Revise(ctx context.Context, instructions string) error {
	if strings.TrimSpace(instructions) == "" {
		return fmt.Errorf("%w: revision instructions are required", apperr.ErrValidation)
	}
	if err := s.requireGenerated(); err != nil {
		return err
	}
	brief := s.brief
	brief.Instructions = instructions
	prompt, err := BuildPrompt(PromptRequest{
		Mode:    ModeRevise,
		Brief:   brief,
		Current: Render(s.current.Acts),
	})
	if err != nil {
		return err
	}
	raw, err := s.complete(ctx, prompt)
	if err != nil {
		return err
	}
	acts := Section(raw, s.sectionOptions()).Truncate(brief.BeatsPerAct)
	s.install(newOutline(acts, raw))
	return nil
}

// Clear empties the current outline. History is kept.
func (s *Session) Clear() error {
	if err := s.requireGenerated(); err != nil {
		return err
	}
	s.current = Outline{}
	return nil
}

// EditBeat replaces the text of one beat. Edits are not snapshotted.
func (s *Session) EditBeat(act Act, pos int, text string) error {
	beats, err := s.beatsAt(act, pos)
	if err != nil {
		return err
	}
	text = beatText(text)
	if text == "" {
		return fmt.Errorf("%w: beat text is required", apperr.ErrValidation)
	}
	beats[pos] = text
	s.rerender()
	return nil
}

// DeleteBeat removes one beat.
func (s *Session) DeleteBeat(act Act, pos int) error {
	beats, err := s.beatsAt(act, pos)
	if err != nil {
		return err
	}
	s.current.Acts[act.index()] = append(beats[:pos:pos], beats[pos+1:]...)
	s.rerender()
	return nil
}

// MoveBeat moves a beat to position to within its act.
func (s *Session) MoveBeat(act Act, from, to int) error {
	beats, err := s.beatsAt(act, from)
	if err != nil {
		return err
	}
	if to < 0 || to >= len(beats) {
		return fmt.Errorf("%w: beat %d in %s", apperr.ErrIndexOutOfRange, to, act)
	}
	beat := beats[from]
	rest := append(beats[:from:from], beats[from+1:]...)
	moved := make([]string, 0, len(beats))
	moved = append(moved, rest[:to]...)
	moved = append(moved, beat)
	moved = append(moved, rest[to:]...)
	s.current.Acts[act.index()] = moved
	s.rerender()
	return nil
}

// AppendBeat adds a beat at the end of an act.
func (s *Session) AppendBeat(act Act, text string) error {
	if err := s.requireGenerated(); err != nil {
		return err
	}
	if !act.Valid() {
		return fmt.Errorf("%w: unknown act", apperr.ErrValidation)
	}
	text = beatText(text)
	if text == "" {
		return fmt.Errorf("%w: beat text is required", apperr.ErrValidation)
	}
	s.current.Acts[act.index()] = append(s.current.Acts[act.index()], text)
	s.rerender()
	return nil
}

// Versions lists the stored snapshots.
func (s *Session) Versions() []VersionInfo {
	return s.history.List()
}

// RenameVersion relabels a snapshot.
func (s *Session) RenameVersion(index int, label string) error {
	return s.history.Rename(index, label)
}

// SelectVersion shows a snapshot read-only without touching the current outline.
func (s *Session) SelectVersion(index int) (Snapshot, error) {
	snap, err := s.history.Get(index)
	if err != nil {
		return Snapshot{}, err
	}
	s.viewing = index
	return snap, nil
}

// ExitVersionView returns to the current outline.
func (s *Session) ExitVersionView() {
	s.viewing = 0
}

// RestoreVersion installs a snapshot as the current outline. A non-empty
// current outline that differs from the snapshot is saved first.
func (s *Session) RestoreVersion(index int) error {
	restored, err := s.history.Restore(index)
	if err != nil {
		return err
	}
	if s.current.Text != restored.Text {
		s.history.Snapshot(s.current)
	}
	s.current = restored
	s.viewing = 0
	return nil
}

func (s *Session) sectionOptions() SectionOptions {
	return SectionOptions{Keywords: s.keywords, DefaultActOne: s.defaultActOne}
}

// install snapshots the outgoing outline and makes next current.
func (s *Session) install(next Outline) {
	s.history.Snapshot(s.current)
	s.current = next
}

func (s *Session) rerender() {
	s.current.Text = Render(s.current.Acts)
}

func (s *Session) complete(ctx context.Context, prompt string) (string, error) {
	if s.completer == nil {
		return "", fmt.Errorf("%w: no model configured", apperr.ErrModelCall)
	}
	raw, err := s.completer.Complete(ctx, prompt)
	if err != nil {
		if errors.Is(err, apperr.ErrModelCall) {
			return "", err
		}
		return "", fmt.Errorf("%w: %w", apperr.ErrModelCall, err)
	}
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %w", apperr.ErrModelCall, err)
	}
	if strings.TrimSpace(raw) == "" {
		return "", fmt.Errorf("%w: empty model response", apperr.ErrModelCall)
	}
	return raw, nil
}

func (s *Session) requireGenerated() error {
	switch s.State() {
	case StateGenerated:
		return nil
	case StateViewingHistory:
		return errViewing()
	default:
		return fmt.Errorf("%w: no outline has been generated", apperr.ErrInvalidState)
	}
}

func (s *Session) beatsAt(act Act, pos int) ([]string, error) {
	if err := s.requireGenerated(); err != nil {
		return nil, err
	}
	if !act.Valid() {
		return nil, fmt.Errorf("%w: unknown act", apperr.ErrValidation)
	}
	beats := s.current.Acts[act.index()]
	if pos < 0 || pos >= len(beats) {
		return nil, fmt.Errorf("%w: beat %d in %s", apperr.ErrIndexOutOfRange, pos, act)
	}
	return beats, nil
}

func errViewing() error {
	return fmt.Errorf("%w: exit the version view first", apperr.ErrInvalidState)
}

// beatText folds user input onto one line so a beat renders as one bullet.
func beatText(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
