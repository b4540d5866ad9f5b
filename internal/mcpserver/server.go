// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes outline tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/beatsheet/internal/outline"
	"github.com/starford/beatsheet/internal/outlineservice"
)

const formatURI = "beatsheet://outline-format"

// Server wraps the MCP server with outline tools bound to one session.
type Server struct {
	mcp     *server.MCPServer
	svc     *outlineservice.Service
	session string
}

// New creates a session on svc and registers all outline tools against it.
func New(ctx context.Context, svc *outlineservice.Service) (*Server, error) {
	view, err := svc.Create(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	s := &Server{svc: svc, session: view.ID}

	s.mcp = server.NewMCPServer(
		"Beatsheet",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("set_brief",
		mcp.WithDescription("Store the story premise and beats-per-act target without generating."),
		mcp.WithString("premise", mcp.Required(), mcp.Description("Story idea in a few sentences")),
		mcp.WithNumber("beats_per_act", mcp.Description("Beats per act, 2 to 6 (default 3)")),
	), s.setBrief)

	s.mcp.AddTool(mcp.NewTool("generate_outline",
		mcp.WithDescription("Generate a full three-act outline from the stored brief. "+
			"Pass premise to replace the stored one first."),
		mcp.WithString("premise", mcp.Description("Optional new premise")),
		mcp.WithNumber("beats_per_act", mcp.Description("Optional beats-per-act target")),
	), s.generateOutline)

	s.mcp.AddTool(mcp.NewTool("regenerate_act",
		mcp.WithDescription("Rewrite one act of the current outline, keeping the other two."),
		mcp.WithString("act", mcp.Required(), mcp.Description("Act to rewrite: 1, 2, 3 or I, II, III")),
	), s.regenerateAct)

	s.mcp.AddTool(mcp.NewTool("revise_outline",
		mcp.WithDescription("Revise the whole outline following free-text instructions."),
		mcp.WithString("instructions", mcp.Required(), mcp.Description("What to change")),
	), s.reviseOutline)

	s.mcp.AddTool(mcp.NewTool("get_outline",
		mcp.WithDescription("Return the current outline text and session state."),
	), s.getOutline)

	s.mcp.AddTool(mcp.NewTool("list_versions",
		mcp.WithDescription("List saved outline versions, oldest first. Indexes are 1-based."),
	), s.listVersions)

	s.mcp.AddTool(mcp.NewTool("restore_version",
		mcp.WithDescription("Make a saved version the current outline."),
		mcp.WithNumber("index", mcp.Required(), mcp.Description("1-based version index")),
	), s.restoreVersion)

	s.mcp.AddTool(mcp.NewTool("get_outline_format",
		mcp.WithDescription("Returns the outline format contract used for every outline."),
	), s.getOutlineFormat)

	s.mcp.AddResource(
		mcp.NewResource(formatURI, "Outline Format Contract",
			mcp.WithResourceDescription("Three-act bullet outline format produced and parsed by beatsheet."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readOutlineFormatResource,
	)

	return s, nil
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

// SessionID returns the session the tools operate on.
func (s *Server) SessionID() string {
	return s.session
}

func (s *Server) setBrief(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	premise, err := req.RequireString("premise")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	current, err := s.svc.Get(ctx, s.session)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	b := current.Brief
	b.Premise = premise
	b.BeatsPerAct = req.GetInt("beats_per_act", b.BeatsPerAct)
	view, err := s.svc.SetBrief(ctx, s.session, b)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("brief stored (%d beats per act)", view.Brief.BeatsPerAct)), nil
}

func (s *Server) generateOutline(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var brief *outline.Brief
	if premise := req.GetString("premise", ""); premise != "" {
		current, err := s.svc.Get(ctx, s.session)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		b := current.Brief
		b.Premise = premise
		b.BeatsPerAct = req.GetInt("beats_per_act", b.BeatsPerAct)
		brief = &b
	}
	view, err := s.svc.Generate(ctx, s.session, brief)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(view.Outline.Text), nil
}

func (s *Server) regenerateAct(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := req.RequireString("act")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	act, err := outline.ParseAct(raw)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	view, err := s.svc.RegenerateAct(ctx, s.session, act)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(view.Outline.Text), nil
}

func (s *Server) reviseOutline(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	instructions, err := req.RequireString("instructions")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	view, err := s.svc.Revise(ctx, s.session, instructions)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(view.Outline.Text), nil
}

func (s *Server) getOutline(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	view, err := s.svc.Get(ctx, s.session)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if view.Outline.Text == "" {
		return mcp.NewToolResultText("no outline yet; call generate_outline"), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("state: %s\n\n%s", view.State, view.Outline.Text)), nil
}

func (s *Server) listVersions(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	list, err := s.svc.Versions(ctx, s.session)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(list.Versions) == 0 {
		return mcp.NewToolResultText("no saved versions"), nil
	}
	out, _ := json.MarshalIndent(list.Versions, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) restoreVersion(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	index, err := req.RequireInt("index")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	view, err := s.svc.RestoreVersion(ctx, s.session, index)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(view.Outline.Text), nil
}

func (s *Server) getOutlineFormat(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(OutlineFormatContract), nil
}

func (s *Server) readOutlineFormatResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      formatURI,
			MIMEType: "text/markdown",
			Text:     OutlineFormatContract,
		},
	}, nil
}
