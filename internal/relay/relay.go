// Package relay serves a canned copy of the story-relay HTTP methods so the
// generation pipeline can run without a model backend.
package relay

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Method paths.
const (
	ChangeOutlinePath = "/api/v1/methods/change_outline"
	ReceiveResultPath = "/api/v1/methods/receive_result"
)

// SampleOutline is the canned story text returned by receive_result.
const SampleOutline = `Act I - Setup
- Key beat 1: A night-shift botanist notices a fern turning toward her voice
- Key beat 2: Her grant is cut and the greenhouse is scheduled for demolition
- Key beat 3: She smuggles the fern home before the bulldozers arrive

Act II - Rising Action
- Key beat 1: The fern begins to answer questions in rustles she can decode
- Key beat 2: A biotech firm learns of the plant and offers to buy it
- Key beat 3: She refuses and the firm breaks into her apartment

Act III - Climax & Resolution
- Key beat 1: The fern signals every plant in the city to wilt in protest
- Key beat 2: She negotiates a truce on live television
- Key beat 3: The greenhouse reopens as a public garden run by both of them
`

// ChangeOutlineResponse is the body of change_outline.
type ChangeOutlineResponse struct {
	OutlineID  string `json:"outline_id"`
	NewOutline string `json:"new_outline"`
}

// ReceiveResultResponse is the body of receive_result.
type ReceiveResultResponse struct {
	OutlineID    string `json:"outline_id"`
	OutlineCount string `json:"outline_count"`
	NewText      string `json:"new_text"`
}

// Fixture values returned verbatim by the relay methods.
const (
	FixtureOutlineID  = "num"
	FixtureNewOutline = "text"
	welcomeMessage    = "Methods available"
)

// Server answers relay method calls with canned data.
type Server struct {
	text string
}

// Option configures a Server.
type Option func(*Server)

// WithText replaces the canned receive_result text.
func WithText(text string) Option {
	return func(s *Server) {
		s.text = text
	}
}

// NewServer creates a relay server.
func NewServer(opts ...Option) *Server {
	s := &Server{text: SampleOutline}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Router returns the relay routes.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Get("/", s.index)
	r.Get(ChangeOutlinePath, s.changeOutline)
	r.Get(ReceiveResultPath, s.receiveResult)
	return r
}

func (s *Server) index(w http.ResponseWriter, r *http.Request) {
	base := "http://" + r.Host
	writeJSON(w, map[string]any{
		"welcome_message": welcomeMessage,
		"methods": []map[string]string{
			{"change_outline": base + ChangeOutlinePath},
			{"receive_result": base + ReceiveResultPath},
		},
	})
}

func (s *Server) changeOutline(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, ChangeOutlineResponse{
		OutlineID:  FixtureOutlineID,
		NewOutline: FixtureNewOutline,
	})
}

func (s *Server) receiveResult(w http.ResponseWriter, _ *http.Request) {
	slog.Debug("relay result served", slog.Int("bytes", len(s.text)))
	writeJSON(w, ReceiveResultResponse{
		OutlineID:    FixtureOutlineID,
		OutlineCount: FixtureOutlineID,
		NewText:      s.text,
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("relay encode failed", slog.String("error", err.Error()))
	}
}
