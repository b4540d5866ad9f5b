package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/starford/beatsheet/internal/export"
	"github.com/starford/beatsheet/internal/outline"
	"github.com/starford/beatsheet/internal/outlineservice"
	"github.com/starford/beatsheet/internal/sse"
	"github.com/starford/beatsheet/internal/testutil"
)

type env struct {
	svc       *outlineservice.Service
	router    http.Handler
	completer *testutil.Completer
}

func testEnv(t *testing.T, authToken string) env {
	t.Helper()
	c := testutil.NewCompleter()
	_, store := testutil.TestExportDir(t)
	svc := outlineservice.NewService(c, outlineservice.WithArchive(export.NewArchive(store, testutil.TestDB(t))))
	return env{svc: svc, router: NewRouter(svc, authToken != "", authToken, nil), completer: c}
}

func (e env) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != nil {
		data, _ := json.Marshal(body)
		req = httptest.NewRequest(method, path, bytes.NewReader(data))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decodeView(t *testing.T, w *httptest.ResponseRecorder) outlineservice.View {
	t.Helper()
	var v outlineservice.View
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode: %v (%s)", err, w.Body.String())
	}
	return v
}

func (e env) newSession(t *testing.T) string {
	t.Helper()
	w := e.do(t, http.MethodPost, "/sessions", map[string]any{
		"brief": map[string]any{"premise": "A botanist hears plants", "beats_per_act": 2},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", w.Code, w.Body.String())
	}
	return decodeView(t, w).ID
}

func (e env) generated(t *testing.T) string {
	t.Helper()
	id := e.newSession(t)
	if w := e.do(t, http.MethodPost, "/sessions/"+id+"/generate", nil); w.Code != http.StatusOK {
		t.Fatalf("generate status = %d, body = %s", w.Code, w.Body.String())
	}
	return id
}

func TestCreateAndGetSession(t *testing.T) {
	e := testEnv(t, "")
	id := e.newSession(t)

	w := e.do(t, http.MethodGet, "/sessions/"+id, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}
	v := decodeView(t, w)
	if v.State != "empty" || v.Brief.BeatsPerAct != 2 {
		t.Errorf("view = %+v", v)
	}
	if len(v.Outline.Acts) != 3 {
		t.Errorf("acts = %d, want 3", len(v.Outline.Acts))
	}
}

func TestCreateSessionWithoutBody(t *testing.T) {
	e := testEnv(t, "")
	w := e.do(t, http.MethodPost, "/sessions", nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if v := decodeView(t, w); v.Brief.BeatsPerAct != 3 {
		t.Errorf("default beats = %d, want 3", v.Brief.BeatsPerAct)
	}
}

func TestCreateSessionInvalidBeats(t *testing.T) {
	e := testEnv(t, "")
	w := e.do(t, http.MethodPost, "/sessions", map[string]any{"brief": map[string]any{"premise": "p", "beats_per_act": 9}})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestGenerate(t *testing.T) {
	e := testEnv(t, "")
	id := e.newSession(t)

	w := e.do(t, http.MethodPost, "/sessions/"+id+"/generate", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	v := decodeView(t, w)
	if v.State != "generated" {
		t.Errorf("state = %q", v.State)
	}
	if !strings.HasPrefix(v.Outline.Text, "Act I - Setup\n- Mara finds a glowing plant\n") {
		t.Errorf("text = %q", v.Outline.Text)
	}
}

func TestGenerateWithoutMaterial(t *testing.T) {
	e := testEnv(t, "")
	w := e.do(t, http.MethodPost, "/sessions", nil)
	id := decodeView(t, w).ID

	w = e.do(t, http.MethodPost, "/sessions/"+id+"/generate", map[string]any{"premise": "   "})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
	if e.completer.Calls() != 0 {
		t.Error("model called despite validation failure")
	}
}

func TestGenerateModelFailure(t *testing.T) {
	e := testEnv(t, "")
	id := e.newSession(t)
	e.completer.Err = errors.New("dial tcp: refused")

	w := e.do(t, http.MethodPost, "/sessions/"+id+"/generate", nil)
	if w.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", w.Code)
	}
	if strings.Contains(w.Body.String(), "refused") {
		t.Errorf("transport detail leaked: %s", w.Body.String())
	}
}

func TestRegenerateAct(t *testing.T) {
	e := testEnv(t, "")
	id := e.generated(t)
	e.completer.Responses = []string{"- Key beat 1: The vault opens\n- Key beat 2: Roots crack the floor"}

	w := e.do(t, http.MethodPost, "/sessions/"+id+"/acts/2/regenerate", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	v := decodeView(t, w)
	if got := v.Outline.Acts[1].Beats; len(got) != 2 || got[0] != "The vault opens" {
		t.Errorf("act II = %q", got)
	}
	if got := v.Outline.Acts[0].Beats[0]; got != "Mara finds a glowing plant" {
		t.Errorf("act I changed: %q", got)
	}
	if v.Versions != 1 {
		t.Errorf("versions = %d, want 1", v.Versions)
	}

	if w := e.do(t, http.MethodPost, "/sessions/"+id+"/acts/7/regenerate", nil); w.Code != http.StatusBadRequest {
		t.Errorf("bad act status = %d, want 400", w.Code)
	}
}

func TestReviseRequiresInstructions(t *testing.T) {
	e := testEnv(t, "")
	id := e.generated(t)
	w := e.do(t, http.MethodPost, "/sessions/"+id+"/revise", map[string]string{"instructions": " "})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
	w = e.do(t, http.MethodPost, "/sessions/"+id+"/revise", map[string]string{"instructions": "Darker ending"})
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, body = %s", w.Code, w.Body.String())
	}
	last := e.completer.Prompts[len(e.completer.Prompts)-1]
	if !strings.Contains(last, "Darker ending") {
		t.Error("instructions missing from prompt")
	}
}

func TestRegenerateBeforeGenerate(t *testing.T) {
	e := testEnv(t, "")
	id := e.newSession(t)
	w := e.do(t, http.MethodPost, "/sessions/"+id+"/acts/1/regenerate", nil)
	if w.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", w.Code)
	}
}

func TestBeatEndpoints(t *testing.T) {
	e := testEnv(t, "")
	id := e.generated(t)
	base := "/sessions/" + id + "/acts/I/beats"

	if w := e.do(t, http.MethodPut, base+"/0", map[string]string{"text": "Mara hears a voice"}); w.Code != http.StatusOK {
		t.Fatalf("edit status = %d, body = %s", w.Code, w.Body.String())
	}
	if w := e.do(t, http.MethodPost, base, map[string]string{"text": "Mara quits"}); w.Code != http.StatusCreated {
		t.Fatalf("append status = %d", w.Code)
	}
	if w := e.do(t, http.MethodPost, base+"/2/move", map[string]int{"to": 0}); w.Code != http.StatusOK {
		t.Fatalf("move status = %d, body = %s", w.Code, w.Body.String())
	}
	w := e.do(t, http.MethodDelete, base+"/1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("delete status = %d", w.Code)
	}
	v := decodeView(t, w)
	want := []string{"Mara quits", "The lab is shut down"}
	if got := v.Outline.Acts[0].Beats; strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("act I = %q, want %q", got, want)
	}

	if w := e.do(t, http.MethodPut, base+"/9", map[string]string{"text": "x"}); w.Code != http.StatusNotFound {
		t.Errorf("out of range status = %d, want 404", w.Code)
	}
	if w := e.do(t, http.MethodPut, base+"/x", map[string]string{"text": "x"}); w.Code != http.StatusBadRequest {
		t.Errorf("bad position status = %d, want 400", w.Code)
	}
	if w := e.do(t, http.MethodPost, base+"/0/move", map[string]string{}); w.Code != http.StatusBadRequest {
		t.Errorf("missing to status = %d, want 400", w.Code)
	}
}

func TestVersionEndpoints(t *testing.T) {
	e := testEnv(t, "")
	id := e.generated(t)
	base := "/sessions/" + id
	_ = e.do(t, http.MethodPost, base+"/generate", nil)

	w := e.do(t, http.MethodGet, base+"/versions", nil)
	var list outlineservice.VersionList
	_ = json.Unmarshal(w.Body.Bytes(), &list)
	if len(list.Versions) != 1 || list.Versions[0].Index != 1 {
		t.Fatalf("versions = %+v", list)
	}

	if w := e.do(t, http.MethodPut, base+"/versions/1", map[string]string{"label": "First"}); w.Code != http.StatusOK {
		t.Errorf("rename status = %d", w.Code)
	}
	w = e.do(t, http.MethodPost, base+"/versions/1/select", nil)
	if v := decodeView(t, w); !v.ReadOnly || v.Viewing != 1 {
		t.Errorf("select view = %+v", v)
	}
	if w := e.do(t, http.MethodPost, base+"/generate", nil); w.Code != http.StatusConflict {
		t.Errorf("generate while viewing = %d, want 409", w.Code)
	}
	if w := e.do(t, http.MethodPost, base+"/versions/exit", nil); w.Code != http.StatusOK {
		t.Errorf("exit status = %d", w.Code)
	}
	if w := e.do(t, http.MethodPost, base+"/versions/5/restore", nil); w.Code != http.StatusNotFound {
		t.Errorf("restore missing = %d, want 404", w.Code)
	}
	if w := e.do(t, http.MethodPost, base+"/versions/1/restore", nil); w.Code != http.StatusOK {
		t.Errorf("restore status = %d", w.Code)
	}
}

func TestClearOutline(t *testing.T) {
	e := testEnv(t, "")
	id := e.generated(t)
	w := e.do(t, http.MethodDelete, "/sessions/"+id+"/outline", nil)
	if v := decodeView(t, w); v.State != "empty" || v.Outline.Text != "" {
		t.Errorf("view = %+v", v)
	}
}

func TestUploadDocument(t *testing.T) {
	e := testEnv(t, "")
	id := e.newSession(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, _ := mw.CreateFormFile("file", "chapter.txt")
	_, _ = fw.Write([]byte("The storm came at night."))
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/sessions/"+id+"/document", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if v := decodeView(t, w); v.Brief.Document != "The storm came at night." {
		t.Errorf("document = %q", v.Brief.Document)
	}

	buf.Reset()
	mw = multipart.NewWriter(&buf)
	fw, _ = mw.CreateFormFile("file", "photo.png")
	_, _ = fw.Write([]byte{0x89, 'P', 'N', 'G'})
	_ = mw.Close()
	req = httptest.NewRequest(http.MethodPost, "/sessions/"+id+"/document", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w = httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	if w.Code != http.StatusUnsupportedMediaType {
		t.Errorf("png status = %d, want 415", w.Code)
	}
}

func TestUploadMissingFile(t *testing.T) {
	e := testEnv(t, "")
	id := e.newSession(t)
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.WriteField("other", "x")
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/sessions/"+id+"/document", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestExportAndArchive(t *testing.T) {
	e := testEnv(t, "")
	id := e.generated(t)

	w := e.do(t, http.MethodGet, "/sessions/"+id+"/export?format=txt&title=The%20Botanist", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "the-botanist.txt") {
		t.Errorf("disposition = %q", cd)
	}
	if !strings.HasPrefix(w.Body.String(), "The Botanist\n\nAct I - Setup") {
		t.Errorf("body = %q", w.Body.String())
	}
	name := w.Header().Get("X-Export-Name")
	if name == "" {
		t.Fatal("export not archived")
	}

	w = e.do(t, http.MethodGet, "/exports", nil)
	var list ExportListResponse
	_ = json.Unmarshal(w.Body.Bytes(), &list)
	if !list.Enabled || list.Total != 1 || list.Exports[0].Name != name {
		t.Errorf("exports = %+v", list)
	}

	w = e.do(t, http.MethodGet, "/exports/"+name, nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "Act III") {
		t.Errorf("download status = %d", w.Code)
	}

	if w := e.do(t, http.MethodGet, "/sessions/"+id+"/export?format=rtf", nil); w.Code != http.StatusUnsupportedMediaType {
		t.Errorf("rtf status = %d, want 415", w.Code)
	}
}

func TestExportEmptyOutline(t *testing.T) {
	e := testEnv(t, "")
	id := e.newSession(t)
	if w := e.do(t, http.MethodGet, "/sessions/"+id+"/export", nil); w.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", w.Code)
	}
}

func TestDeleteSession(t *testing.T) {
	e := testEnv(t, "")
	id := e.newSession(t)
	if w := e.do(t, http.MethodDelete, "/sessions/"+id, nil); w.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", w.Code)
	}
	if w := e.do(t, http.MethodGet, "/sessions/"+id, nil); w.Code != http.StatusNotFound {
		t.Errorf("get after delete = %d, want 404", w.Code)
	}
}

func TestAuthMiddleware(t *testing.T) {
	e := testEnv(t, "secret")

	if w := e.do(t, http.MethodPost, "/sessions", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("no token status = %d, want 401", w.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/sessions", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token status = %d, want 401", w.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/sessions", nil)
	req.Header.Set("Authorization", "Bearer secret")
	w = httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Errorf("valid token status = %d, want 201", w.Code)
	}
}

func TestEventsEndpoint(t *testing.T) {
	broker := sse.NewBroker(time.Second)
	defer broker.Close()
	c := testutil.NewCompleter()
	svc := outlineservice.NewService(c, outlineservice.WithPublisher(broker))
	router := NewRouter(svc, false, "", broker)

	ctx, cancel := context.WithCancel(context.Background())
	created, _ := svc.Create(ctx, nil)

	req := httptest.NewRequest(http.MethodGet, "/events?session="+created.ID, nil).WithContext(ctx)
	w := httptest.NewRecorder()
	done := make(chan struct{})
	go func() {
		router.ServeHTTP(w, req)
		close(done)
	}()
	time.Sleep(50 * time.Millisecond)

	_, _ = svc.SetBrief(context.Background(), created.ID, testBrief())
	_, _ = svc.Generate(context.Background(), created.ID, nil)
	time.Sleep(50 * time.Millisecond)
	cancel()
	<-done

	body := w.Body.String()
	for _, want := range []string{"event: generation.started", "event: generation.finished", "event: outline.updated"} {
		if !strings.Contains(body, want) {
			t.Errorf("stream missing %q", want)
		}
	}
}

func testBrief() outline.Brief {
	return outline.Brief{Premise: "A lighthouse keeper", BeatsPerAct: 2}
}
