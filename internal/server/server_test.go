package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"boxy/internal/pipeline"
)

const testScript = `
@add("wood", "lid")
lid = Box(2, 2, 0.5)
register(Sphere(1) | translate(0, 0, 2), "glass")
`

func newTestServer(t *testing.T, src string) (*Server, *httptest.Server) {
	t.Helper()
	dir := t.TempDir()
	script := filepath.Join(dir, "scene.boxy")
	if err := os.WriteFile(script, []byte(src), 0o600); err != nil {
		t.Fatal(err)
	}
	s := New(&Spec{
		Script:   script,
		Compiler: pipeline.NewCompiler(pipeline.Request{Path: script, Resolution: 12}),
		Log:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return s, ts
}

func get(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return resp, body
}

func TestCompileEndpoint(t *testing.T) {
	_, ts := newTestServer(t, testScript)
	resp, body := get(t, ts.URL+"/compile")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d: %s", resp.StatusCode, body)
	}
	var out compileResponse
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatal(err)
	}
	glb, err := base64.StdEncoding.DecodeString(out.GLB)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(glb, []byte("glTF")) {
		t.Errorf("payload is not a GLB")
	}
	if len(out.Diagnostics) != 0 || out.Empty {
		t.Errorf("unexpected diagnostics %+v", out.Diagnostics)
	}
}

func TestCompileEndpointReportsScriptErrors(t *testing.T) {
	_, ts := newTestServer(t, "register(Box(1))\nbad = nosuch()\n")
	resp, body := get(t, ts.URL+"/compile")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("a script error still yields a scene, got %d", resp.StatusCode)
	}
	var out compileResponse
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatal(err)
	}
	if len(out.Diagnostics) != 1 {
		t.Fatalf("diagnostics = %+v", out.Diagnostics)
	}
	d := out.Diagnostics[0]
	if d.Code != "SCR1002" || d.Location.Line != 2 || d.Location.File != "scene.boxy" {
		t.Errorf("diagnostic = %+v", d)
	}
}

func TestGLBEndpoint(t *testing.T) {
	_, ts := newTestServer(t, testScript)
	resp, body := get(t, ts.URL+"/glb/preview")
	if resp.StatusCode != http.StatusOK || !bytes.HasPrefix(body, []byte("glTF")) {
		t.Fatalf("status %d", resp.StatusCode)
	}
	if cd := resp.Header.Get("Content-Disposition"); !strings.Contains(cd, `"preview.glb"`) {
		t.Errorf("Content-Disposition = %q", cd)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "model/gltf-binary" {
		t.Errorf("Content-Type = %q", ct)
	}
}

func TestGLBEndpointFollowsScriptEdits(t *testing.T) {
	s, ts := newTestServer(t, "register(Box(1))\n")
	_, first := get(t, ts.URL+"/glb/preview")
	compiled := s.Spec.Compiler.Last()
	if compiled == nil {
		t.Fatal("no compile behind the first GLB")
	}
	_, again := get(t, ts.URL+"/glb/preview")
	if !bytes.Equal(first, again) || s.Spec.Compiler.Last() != compiled {
		t.Error("an unchanged script was compiled again")
	}

	if err := os.WriteFile(s.Spec.Script, []byte("register(Box(1))\nregister(Sphere(1), \"glass\")\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	resp, edited := get(t, ts.URL+"/glb/preview")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}
	if bytes.Equal(first, edited) {
		t.Error("served a GLB from before the edit")
	}
	if last := s.Spec.Compiler.Last(); last == compiled || len(last.Scene.Meshes) != 2 {
		t.Error("the edit did not trigger a compile")
	}
}

func TestCompileEndpointEmptyGeometry(t *testing.T) {
	_, ts := newTestServer(t, "register(intersect(Box(1), translate(Box(1), 5)), \"a\")\n")
	resp, body := get(t, ts.URL+"/compile")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d: %s", resp.StatusCode, body)
	}
	var out compileResponse
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatal(err)
	}
	if !out.Empty || len(out.Diagnostics) != 2 || out.Diagnostics[0].Code != "KRN3004" {
		t.Errorf("empty=%v diagnostics=%+v", out.Empty, out.Diagnostics)
	}
}

func TestExportEndpoint(t *testing.T) {
	s, ts := newTestServer(t, testScript)

	resp, body := get(t, ts.URL+"/export/scene.stl")
	if resp.StatusCode != http.StatusOK || len(body) < 84 {
		t.Fatalf("stl: status %d, %d bytes", resp.StatusCode, len(body))
	}
	if cd := resp.Header.Get("Content-Disposition"); !strings.HasPrefix(cd, "attachment") {
		t.Errorf("Content-Disposition = %q", cd)
	}

	resp, body = get(t, ts.URL+"/export/scene.ply")
	if resp.StatusCode != http.StatusBadRequest || !strings.Contains(string(body), "unsupported") {
		t.Errorf("ply: status %d: %s", resp.StatusCode, body)
	}

	resp, body = get(t, ts.URL+"/export/part%25.obj")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("split: status %d: %s", resp.StatusCode, body)
	}
	var out exportResponse
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatal(err)
	}
	if len(out.Files) != 2 || out.Files[0] != "part_lid.obj" || out.Files[1] != "part_unnamed.obj" {
		t.Fatalf("files = %v", out.Files)
	}
	for _, f := range out.Files {
		if _, err := os.Stat(filepath.Join(s.Spec.ExportDir, f)); err != nil {
			t.Error(err)
		}
	}
}

func TestWebsocketReceivesBroadcast(t *testing.T) {
	s, ts := newTestServer(t, testScript)
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for s.Hub.Len() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	s.Hub.Broadcast(Message{Type: "file_changed"})

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg Message
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatal(err)
	}
	if msg.Type != "file_changed" {
		t.Errorf("message = %+v", msg)
	}
}

func TestHubDropsSlowClients(t *testing.T) {
	h := NewHub()
	fast, slow := h.subscribe(), h.subscribe()
	for range clientBuffer {
		h.Broadcast(Message{Type: "x"})
		<-fast.Events
	}
	h.Broadcast(Message{Type: "overflow"})
	select {
	case <-slow.Failed:
	default:
		t.Fatal("slow client was not failed")
	}
	if h.Len() != 1 {
		t.Errorf("hub has %d clients", h.Len())
	}
	if got := <-fast.Events; got.Type != "overflow" {
		t.Errorf("fast client got %+v", got)
	}
}

func TestWatchDebounces(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scene.boxy")
	if err := os.WriteFile(path, []byte("x = 1\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fired := make(chan struct{}, 8)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, 100*time.Millisecond, func() { fired <- struct{}{} })
	}()
	time.Sleep(100 * time.Millisecond)

	if err := os.WriteFile(filepath.Join(dir, "other.txt"), []byte("ignored"), 0o600); err != nil {
		t.Fatal(err)
	}
	for i := range 3 {
		if err := os.WriteFile(path, []byte(strings.Repeat("x = 1\n", i+2)), 0o600); err != nil {
			t.Fatal(err)
		}
	}
	select {
	case <-fired:
	case <-time.After(3 * time.Second):
		t.Fatal("no change notification")
	}
	select {
	case <-fired:
		t.Error("writes in one burst should notify once")
	case <-time.After(300 * time.Millisecond):
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Watch returned %v", err)
	}
}
