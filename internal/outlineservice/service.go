// Package outlineservice hosts isolated outline sessions keyed by identity
// and coordinates them with extraction, export and live events.
package outlineservice

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/starford/beatsheet/internal/apperr"
	"github.com/starford/beatsheet/internal/document"
	"github.com/starford/beatsheet/internal/export"
	"github.com/starford/beatsheet/internal/metrics"
	"github.com/starford/beatsheet/internal/models"
	"github.com/starford/beatsheet/internal/outline"
	"github.com/starford/beatsheet/internal/sse"
)

// Publisher receives live session events.
type Publisher interface {
	Publish(event sse.Event)
}

// Option configures a Service.
type Option func(*Service)

// WithPublisher sets the live event sink.
func WithPublisher(p Publisher) Option {
	return func(s *Service) {
		s.events = p
	}
}

// WithArchive keeps a copy of every export.
func WithArchive(a *export.Archive) Option {
	return func(s *Service) {
		s.archive = a
	}
}

// WithSessionOptions applies opts to every new session.
func WithSessionOptions(opts ...outline.SessionOption) Option {
	return func(s *Service) {
		s.sessionOpts = append(s.sessionOpts, opts...)
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

type entry struct {
	// action serialises operations on the session.
	action  sync.Mutex
	session *outline.Session
	created time.Time

	viewMu sync.RWMutex
	view   View
}

func (e *entry) snapshot() View {
	e.viewMu.RLock()
	defer e.viewMu.RUnlock()
	return e.view
}

func (e *entry) setBusy(busy bool) {
	e.viewMu.Lock()
	e.view.Busy = busy
	e.viewMu.Unlock()
}

// Service owns all live sessions.
type Service struct {
	completer   outline.Completer
	sessionOpts []outline.SessionOption
	events      Publisher
	archive     *export.Archive
	now         func() time.Time

	mu       sync.RWMutex
	sessions map[string]*entry
}

// NewService creates a service whose sessions call c for generations.
func NewService(c outline.Completer, opts ...Option) *Service {
	s := &Service{
		completer: c,
		now:       time.Now,
		sessions:  make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ArchiveEnabled reports whether exports are archived.
func (s *Service) ArchiveEnabled() bool {
	return s.archive != nil
}

// Archive returns the export archive, or nil.
func (s *Service) Archive() *export.Archive {
	return s.archive
}

// Create starts a new session, optionally storing brief.
func (s *Service) Create(_ context.Context, brief *outline.Brief) (View, error) {
	sess := outline.NewSession(s.completer, s.sessionOpts...)
	if brief != nil {
		if err := sess.SetBrief(*brief); err != nil {
			return View{}, err
		}
	}
	id := uuid.NewString()
	now := s.now()
	e := &entry{session: sess, created: now}
	e.view = buildView(id, sess, now, now)

	s.mu.Lock()
	s.sessions[id] = e
	n := len(s.sessions)
	s.mu.Unlock()

	metrics.ActiveSessions.Set(float64(n))
	slog.Info("session created", slog.String("session", id))
	return e.view, nil
}

// Get returns the latest state without waiting on running actions.
func (s *Service) Get(_ context.Context, id string) (View, error) {
	e, err := s.lookup(id)
	if err != nil {
		return View{}, err
	}
	return e.snapshot(), nil
}

// Delete drops a session.
func (s *Service) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	_, ok := s.sessions[id]
	delete(s.sessions, id)
	n := len(s.sessions)
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: session %s", apperr.ErrNotFound, id)
	}
	metrics.ActiveSessions.Set(float64(n))
	s.publish(sse.TypeSessionDeleted, id, map[string]string{"session": id})
	return nil
}

// SetBrief stores the brief without generating.
func (s *Service) SetBrief(ctx context.Context, id string, brief outline.Brief) (View, error) {
	return s.mutate(ctx, id, "", func(_ context.Context, sess *outline.Session) error {
		return sess.SetBrief(brief)
	})
}

// AttachDocument extracts text from an upload and stores it on the brief.
func (s *Service) AttachDocument(ctx context.Context, id, filename, declaredType string, data []byte) (View, error) {
	mimeType := document.DetectType(filename, declaredType)
	text, err := document.Extract(data, mimeType)
	metrics.DocumentsTotal.WithLabelValues(mimeLabel(mimeType), metrics.Status(err)).Inc()
	if err != nil {
		return View{}, err
	}
	return s.mutate(ctx, id, "", func(_ context.Context, sess *outline.Session) error {
		b := sess.Brief()
		b.Document = text
		return sess.SetBrief(b)
	})
}

// Generate builds a full outline. A nil brief reuses the stored one.
func (s *Service) Generate(ctx context.Context, id string, brief *outline.Brief) (View, error) {
	return s.mutate(ctx, id, outline.ModeGenerate.String(), func(ctx context.Context, sess *outline.Session) error {
		b := sess.Brief()
		if brief != nil {
			b = *brief
			if b.Document == "" {
				b.Document = sess.Brief().Document
			}
		}
		return sess.Generate(ctx, b)
	})
}

// RegenerateAct rewrites one act.
func (s *Service) RegenerateAct(ctx context.Context, id string, act outline.Act) (View, error) {
	return s.mutate(ctx, id, outline.ModeRegenerateAct.String(), func(ctx context.Context, sess *outline.Session) error {
		return sess.RegenerateAct(ctx, act)
	})
}

// Revise regenerates the full outline following instructions.
func (s *Service) Revise(ctx context.Context, id, instructions string) (View, error) {
	return s.mutate(ctx, id, outline.ModeRevise.String(), func(ctx context.Context, sess *outline.Session) error {
		return sess.Revise(ctx, instructions)
	})
}

// EditBeat replaces one beat.
func (s *Service) EditBeat(ctx context.Context, id string, act outline.Act, pos int, text string) (View, error) {
	return s.mutate(ctx, id, "", func(_ context.Context, sess *outline.Session) error {
		return sess.EditBeat(act, pos, text)
	})
}

// AppendBeat adds a beat at the end of an act.
func (s *Service) AppendBeat(ctx context.Context, id string, act outline.Act, text string) (View, error) {
	return s.mutate(ctx, id, "", func(_ context.Context, sess *outline.Session) error {
		return sess.AppendBeat(act, text)
	})
}

// DeleteBeat removes a beat.
func (s *Service) DeleteBeat(ctx context.Context, id string, act outline.Act, pos int) (View, error) {
	return s.mutate(ctx, id, "", func(_ context.Context, sess *outline.Session) error {
		return sess.DeleteBeat(act, pos)
	})
}

// MoveBeat reorders a beat within its act.
func (s *Service) MoveBeat(ctx context.Context, id string, act outline.Act, from, to int) (View, error) {
	return s.mutate(ctx, id, "", func(_ context.Context, sess *outline.Session) error {
		return sess.MoveBeat(act, from, to)
	})
}

// Clear empties the current outline.
func (s *Service) Clear(ctx context.Context, id string) (View, error) {
	return s.mutate(ctx, id, "", func(_ context.Context, sess *outline.Session) error {
		return sess.Clear()
	})
}

// Versions lists the session's snapshots.
func (s *Service) Versions(_ context.Context, id string) (VersionList, error) {
	e, err := s.lookup(id)
	if err != nil {
		return VersionList{}, err
	}
	e.action.Lock()
	defer e.action.Unlock()
	return VersionList{Viewing: e.session.Viewing(), Versions: e.session.Versions()}, nil
}

// RenameVersion relabels a snapshot.
func (s *Service) RenameVersion(ctx context.Context, id string, index int, label string) (View, error) {
	return s.mutate(ctx, id, "", func(_ context.Context, sess *outline.Session) error {
		return sess.RenameVersion(index, label)
	})
}

// SelectVersion shows a snapshot read-only.
func (s *Service) SelectVersion(ctx context.Context, id string, index int) (View, error) {
	return s.mutate(ctx, id, "", func(_ context.Context, sess *outline.Session) error {
		_, err := sess.SelectVersion(index)
		return err
	})
}

// ExitVersionView returns to the current outline.
func (s *Service) ExitVersionView(ctx context.Context, id string) (View, error) {
	return s.mutate(ctx, id, "", func(_ context.Context, sess *outline.Session) error {
		sess.ExitVersionView()
		return nil
	})
}

// RestoreVersion makes a snapshot current.
func (s *Service) RestoreVersion(ctx context.Context, id string, index int) (View, error) {
	return s.mutate(ctx, id, "", func(_ context.Context, sess *outline.Session) error {
		return sess.RestoreVersion(index)
	})
}

// ExportResult is a rendered download.
type ExportResult struct {
	Filename    string
	ContentType string
	Data        []byte
	Archived    *models.ExportRecord
}

// Export renders the displayed outline. Failures never touch session state.
func (s *Service) Export(_ context.Context, id string, format export.Format, title, summary string) (ExportResult, error) {
	e, err := s.lookup(id)
	if err != nil {
		return ExportResult{}, err
	}
	e.action.Lock()
	displayed := e.session.Displayed()
	e.action.Unlock()

	if displayed.Empty() {
		return ExportResult{}, fmt.Errorf("%w: nothing to export", apperr.ErrInvalidState)
	}
	if strings.TrimSpace(title) == "" {
		title = "Story Outline"
	}

	data, err := export.Render(format, export.Document{Title: title, Summary: summary, Outline: displayed})
	metrics.ExportsTotal.WithLabelValues(string(format), metrics.Status(err)).Inc()
	if err != nil {
		return ExportResult{}, err
	}

	res := ExportResult{
		Filename:    export.Filename(title, format),
		ContentType: export.ContentType(format),
		Data:        data,
	}
	if s.archive != nil {
		rec, err := s.archive.Save(format, title, data)
		if err != nil {
			// The download still succeeds.
			slog.Warn("archive export failed", slog.String("session", id), slog.String("error", err.Error()))
		} else {
			res.Archived = &rec
		}
	}
	return res, nil
}

func (s *Service) lookup(id string) (*entry, error) {
	s.mu.RLock()
	e, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: session %s", apperr.ErrNotFound, id)
	}
	return e, nil
}

// mutate runs fn under the session's action lock. A non-empty mode marks a
// model-backed action: it is reported as busy, timed and announced.
func (s *Service) mutate(ctx context.Context, id, mode string, fn func(context.Context, *outline.Session) error) (View, error) {
	e, err := s.lookup(id)
	if err != nil {
		return View{}, err
	}
	if mode != "" {
		if !e.action.TryLock() {
			return View{}, fmt.Errorf("%w: a generation is already running", apperr.ErrInvalidState)
		}
	} else {
		e.action.Lock()
	}
	defer e.action.Unlock()

	sess := e.session
	beforeText := sess.Text()
	beforeVersions := fmt.Sprint(sess.Versions())
	beforeViewing := sess.Viewing()

	var started time.Time
	if mode != "" {
		started = time.Now()
		e.setBusy(true)
		s.publish(sse.TypeGenerationStarted, id, map[string]string{"session": id, "mode": mode})
	}

	err = fn(ctx, sess)

	view := buildView(id, sess, e.created, s.now())
	e.viewMu.Lock()
	e.view = view
	e.viewMu.Unlock()

	if mode != "" {
		metrics.RecordGeneration(mode, started, err)
		if err != nil {
			slog.Warn("generation failed",
				slog.String("session", id),
				slog.String("mode", mode),
				slog.String("error", err.Error()))
			s.publish(sse.TypeGenerationFailed, id, map[string]string{"session": id, "mode": mode, "error": err.Error()})
		} else {
			slog.Info("generation finished",
				slog.String("session", id),
				slog.String("mode", mode),
				slog.Duration("duration", time.Since(started)))
			s.publish(sse.TypeGenerationFinished, id, map[string]string{"session": id, "mode": mode})
		}
	}
	if err != nil {
		return View{}, err
	}

	if sess.Text() != beforeText || sess.Viewing() != beforeViewing || mode != "" {
		s.publish(sse.TypeOutlineUpdated, id, view)
	}
	if fmt.Sprint(sess.Versions()) != beforeVersions {
		s.publish(sse.TypeHistoryUpdated, id, VersionList{Viewing: sess.Viewing(), Versions: sess.Versions()})
	}
	return view, nil
}

func (s *Service) publish(kind, id string, data any) {
	if s.events == nil {
		return
	}
	s.events.Publish(sse.Event{Type: kind, Session: id, Data: data})
}

func mimeLabel(mimeType string) string {
	switch mimeType {
	case document.MIMEText:
		return "txt"
	case document.MIMEPDF:
		return "pdf"
	case document.MIMEDOCX:
		return "docx"
	}
	return "other"
}
