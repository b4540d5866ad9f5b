package mcpserver

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/beatsheet/internal/outlineservice"
	"github.com/starford/beatsheet/internal/testutil"
)

func testServer(t *testing.T) (*Server, *testutil.Completer) {
	t.Helper()
	c := testutil.NewCompleter()
	srv, err := New(context.Background(), outlineservice.NewService(c))
	if err != nil {
		t.Fatal(err)
	}
	return srv, c
}

func callTool(t *testing.T, srv *Server, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	var result *mcp.CallToolResult
	var err error

	switch name {
	case "set_brief":
		result, err = srv.setBrief(ctx, req)
	case "generate_outline":
		result, err = srv.generateOutline(ctx, req)
	case "regenerate_act":
		result, err = srv.regenerateAct(ctx, req)
	case "revise_outline":
		result, err = srv.reviseOutline(ctx, req)
	case "get_outline":
		result, err = srv.getOutline(ctx, req)
	case "list_versions":
		result, err = srv.listVersions(ctx, req)
	case "restore_version":
		result, err = srv.restoreVersion(ctx, req)
	case "get_outline_format":
		result, err = srv.getOutlineFormat(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestSetBriefAndGenerate(t *testing.T) {
	srv, c := testServer(t)

	res := callTool(t, srv, "set_brief", map[string]any{"premise": "A botanist hears plants", "beats_per_act": float64(2)})
	if res.IsError {
		t.Fatalf("set_brief error: %s", resultText(res))
	}
	if got := resultText(res); got != "brief stored (2 beats per act)" {
		t.Errorf("set_brief = %q", got)
	}

	res = callTool(t, srv, "generate_outline", nil)
	if res.IsError {
		t.Fatalf("generate error: %s", resultText(res))
	}
	if !strings.HasPrefix(resultText(res), "Act I - Setup\n- Mara finds a glowing plant") {
		t.Errorf("outline = %q", resultText(res))
	}
	if !strings.Contains(c.Prompts[0], "A botanist hears plants") {
		t.Error("premise missing from prompt")
	}
}

func TestGenerateWithPremise(t *testing.T) {
	srv, c := testServer(t)
	res := callTool(t, srv, "generate_outline", map[string]any{"premise": "A lighthouse keeper"})
	if res.IsError {
		t.Fatalf("generate error: %s", resultText(res))
	}
	if !strings.Contains(c.Prompts[0], "A lighthouse keeper") {
		t.Error("premise missing from prompt")
	}
}

func TestGenerateWithoutPremise(t *testing.T) {
	srv, c := testServer(t)
	res := callTool(t, srv, "generate_outline", nil)
	if !res.IsError {
		t.Error("expected error without premise")
	}
	if c.Calls() != 0 {
		t.Error("model called without material")
	}
}

func TestGenerateModelError(t *testing.T) {
	srv, c := testServer(t)
	c.Err = errors.New("timeout")
	res := callTool(t, srv, "generate_outline", map[string]any{"premise": "x"})
	if !res.IsError {
		t.Error("expected error result")
	}
}

func TestRegenerateActAndVersions(t *testing.T) {
	srv, c := testServer(t)
	callTool(t, srv, "generate_outline", map[string]any{"premise": "A botanist", "beats_per_act": float64(2)})

	c.Responses = []string{"- The vault opens\n- Roots crack the floor"}
	res := callTool(t, srv, "regenerate_act", map[string]any{"act": "II"})
	if res.IsError {
		t.Fatalf("regenerate error: %s", resultText(res))
	}
	if !strings.Contains(resultText(res), "Act II - Rising Action\n- The vault opens") {
		t.Errorf("outline = %q", resultText(res))
	}

	res = callTool(t, srv, "list_versions", nil)
	if !strings.Contains(resultText(res), `"index": 1`) {
		t.Errorf("versions = %q", resultText(res))
	}

	res = callTool(t, srv, "restore_version", map[string]any{"index": float64(1)})
	if res.IsError {
		t.Fatalf("restore error: %s", resultText(res))
	}
	if !strings.Contains(resultText(res), "Mara smuggles the plant home") {
		t.Errorf("restored = %q", resultText(res))
	}

	res = callTool(t, srv, "restore_version", map[string]any{"index": float64(9)})
	if !res.IsError {
		t.Error("expected error for missing version")
	}
}

func TestRegenerateActInvalid(t *testing.T) {
	srv, _ := testServer(t)
	if res := callTool(t, srv, "regenerate_act", map[string]any{"act": "IV"}); !res.IsError {
		t.Error("expected error for unknown act")
	}
	if res := callTool(t, srv, "regenerate_act", map[string]any{"act": "I"}); !res.IsError {
		t.Error("expected error before generation")
	}
}

func TestReviseOutline(t *testing.T) {
	srv, c := testServer(t)
	callTool(t, srv, "generate_outline", map[string]any{"premise": "A botanist"})

	if res := callTool(t, srv, "revise_outline", map[string]any{}); !res.IsError {
		t.Error("expected error without instructions")
	}
	res := callTool(t, srv, "revise_outline", map[string]any{"instructions": "Make it funnier"})
	if res.IsError {
		t.Fatalf("revise error: %s", resultText(res))
	}
	if !strings.Contains(c.Prompts[len(c.Prompts)-1], "Make it funnier") {
		t.Error("instructions missing from prompt")
	}
}

func TestGetOutline(t *testing.T) {
	srv, _ := testServer(t)
	if got := resultText(callTool(t, srv, "get_outline", nil)); !strings.HasPrefix(got, "no outline yet") {
		t.Errorf("empty outline = %q", got)
	}
	callTool(t, srv, "generate_outline", map[string]any{"premise": "A botanist"})
	got := resultText(callTool(t, srv, "get_outline", nil))
	if !strings.HasPrefix(got, "state: generated\n\nAct I - Setup") {
		t.Errorf("outline = %q", got)
	}
}

func TestListVersionsEmpty(t *testing.T) {
	srv, _ := testServer(t)
	if got := resultText(callTool(t, srv, "list_versions", nil)); got != "no saved versions" {
		t.Errorf("versions = %q", got)
	}
}

func TestOutlineFormatResource(t *testing.T) {
	srv, _ := testServer(t)
	contents, err := srv.readOutlineFormatResource(context.Background(), mcp.ReadResourceRequest{})
	if err != nil {
		t.Fatal(err)
	}
	tc, ok := contents[0].(mcp.TextResourceContents)
	if !ok || tc.URI != formatURI || !strings.Contains(tc.Text, "Act I - Setup") {
		t.Errorf("resource = %+v", contents[0])
	}
	if got := resultText(callTool(t, srv, "get_outline_format", nil)); got != OutlineFormatContract {
		t.Error("tool and resource disagree")
	}
}
