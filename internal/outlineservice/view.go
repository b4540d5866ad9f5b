package outlineservice

import (
	"time"

	"github.com/starford/beatsheet/internal/outline"
)

// ActView is one act in a response.
type ActView struct {
	Number int      `json:"number"`
	Name   string   `json:"name"`
	Header string   `json:"header"`
	Beats  []string `json:"beats"`
}

// OutlineView is the displayed outline.
type OutlineView struct {
	Text string    `json:"text"`
	Acts []ActView `json:"acts"`
}

// View is the client-facing state of a session.
type View struct {
	ID        string        `json:"id"`
	State     string        `json:"state"`
	Busy      bool          `json:"busy"`
	Brief     outline.Brief `json:"brief"`
	Outline   OutlineView   `json:"outline"`
	Viewing   int           `json:"viewing"`
	ReadOnly  bool          `json:"read_only"`
	Versions  int           `json:"versions"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// VersionList lists snapshots; Viewing is 0 when Current is shown.
type VersionList struct {
	Viewing  int                   `json:"viewing"`
	Versions []outline.VersionInfo `json:"versions"`
}

func outlineView(o outline.Outline) OutlineView {
	acts := make([]ActView, 0, outline.ActCount)
	for _, a := range outline.AllActs {
		beats := o.Acts.Get(a)
		if beats == nil {
			beats = []string{}
		}
		acts = append(acts, ActView{
			Number: int(a),
			Name:   a.Name(),
			Header: a.Header(),
			Beats:  append([]string(nil), beats...),
		})
	}
	return OutlineView{Text: o.Text, Acts: acts}
}

func buildView(id string, s *outline.Session, created, updated time.Time) View {
	return View{
		ID:        id,
		State:     s.State().String(),
		Brief:     s.Brief(),
		Outline:   outlineView(s.Displayed()),
		Viewing:   s.Viewing(),
		ReadOnly:  s.Viewing() > 0,
		Versions:  len(s.Versions()),
		CreatedAt: created,
		UpdatedAt: updated,
	}
}
