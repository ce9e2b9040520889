package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"boxy/internal/project"
)

// execute runs a fresh command tree with args and returns stdout, stderr and
// the command error.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	root, finish := newRootCmd()
	defer finish()
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(append([]string{"--color=off"}, args...))
	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

func writeFile(t *testing.T, path, data string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}
}

func isolateCache(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CACHE_HOME", dir)
	return filepath.Join(dir, "boxy")
}

func TestInitThenBuild(t *testing.T) {
	isolateCache(t)
	dir := filepath.Join(t.TempDir(), "lamp")

	stdout, _, err := execute(t, "init", dir)
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	if !strings.Contains(stdout, project.ManifestName) || !strings.Contains(stdout, sceneFile) {
		t.Errorf("init output = %q", stdout)
	}
	if _, _, err := execute(t, "init", dir); err == nil || !strings.Contains(err.Error(), "already initialized") {
		t.Fatalf("second init: %v", err)
	}

	_, stderr, err := execute(t, "build", dir, "--ui=off", "--resolution=40")
	if err != nil {
		t.Fatalf("build: %v\n%s", err, stderr)
	}
	data, err := os.ReadFile(filepath.Join(dir, "lamp.glb"))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(data, []byte("glTF")) {
		t.Errorf("lamp.glb is not a GLB")
	}
}

func TestBuildWritesFormatFromExtension(t *testing.T) {
	isolateCache(t)
	dir := t.TempDir()
	script := filepath.Join(dir, "cube.boxy")
	writeFile(t, script, "register(Box(1), \"wood\", \"cube\")\n")
	out := filepath.Join(dir, "out", "cube.stl")

	stdout, stderr, err := execute(t, "build", script, "-o", out, "--ui=off", "--resolution=12")
	if err != nil {
		t.Fatalf("build: %v\n%s", err, stderr)
	}
	if !strings.Contains(stdout, "wrote ") {
		t.Errorf("stdout = %q", stdout)
	}
	info, err := os.Stat(out)
	if err != nil {
		t.Fatal(err)
	}
	if info.Size() <= 84 || (info.Size()-84)%50 != 0 {
		t.Errorf("STL has %d bytes", info.Size())
	}
}

func TestBuildReport(t *testing.T) {
	isolateCache(t)
	dir := t.TempDir()
	script := filepath.Join(dir, "cube.boxy")
	writeFile(t, script, "register(Box(2), \"wood\", \"cube\")\n")
	reportPath := filepath.Join(dir, "report.json")

	_, stderr, err := execute(t, "build", script, "--ui=off", "--resolution=12",
		"--report=json", "--report-out", reportPath)
	if err != nil {
		t.Fatalf("build: %v\n%s", err, stderr)
	}
	data, err := os.ReadFile(reportPath)
	if err != nil {
		t.Fatal(err)
	}
	var r buildReport
	if err := json.Unmarshal(data, &r); err != nil {
		t.Fatal(err)
	}
	if len(r.Objects) != 1 || r.Objects[0].Name != "cube" || r.Objects[0].Material != "wood" {
		t.Fatalf("objects = %+v", r.Objects)
	}
	if r.Objects[0].Triangles == 0 || r.Objects[0].Volume <= 0 {
		t.Errorf("object = %+v", r.Objects[0])
	}
	if r.State != "assembled" || len(r.Outputs) != 1 {
		t.Errorf("report = %+v", r)
	}
}

func TestBuildScriptErrorStillExports(t *testing.T) {
	isolateCache(t)
	dir := t.TempDir()
	script := filepath.Join(dir, "broken.boxy")
	writeFile(t, script, "register(Box(1))\nbad = nosuch()\n")

	_, stderr, err := execute(t, "build", script, "--ui=off", "--resolution=12")
	if err == nil || !strings.Contains(err.Error(), "1 error") {
		t.Fatalf("err = %v", err)
	}
	if !strings.Contains(stderr, "SCR1002") || !strings.Contains(stderr, "broken.boxy:2") {
		t.Errorf("stderr = %q", stderr)
	}
	if _, err := os.Stat(filepath.Join(dir, "broken.glb")); err != nil {
		t.Errorf("partial scene not exported: %v", err)
	}
}

func TestBuildWithoutManifestOrScript(t *testing.T) {
	t.Chdir(t.TempDir())
	_, _, err := execute(t, "build", "--ui=off")
	if err == nil || !strings.Contains(err.Error(), "no boxy.toml found") {
		t.Fatalf("err = %v", err)
	}
}

func TestResolveSettingsLayersFlagsOverManifest(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "scenes", "main.boxy"), "register(Box(1))\n")
	writeFile(t, filepath.Join(dir, "other.boxy"), "register(Box(1))\n")
	writeFile(t, filepath.Join(dir, project.ManifestName), `[project]
name = "demo"

[build]
script = "scenes/main.boxy"
output = "dist/demo.obj"
segments = 24
jobs = 2
cache = false

[serve]
addr = "127.0.0.1:9000"
`)

	root, _ := newRootCmd()
	build, _, err := root.Find([]string{"build"})
	if err != nil {
		t.Fatal(err)
	}
	s, err := resolveSettings(build, []string{dir})
	if err != nil {
		t.Fatal(err)
	}
	if s.Script != filepath.Join(dir, "scenes", "main.boxy") {
		t.Errorf("script = %q", s.Script)
	}
	if s.Output != filepath.Join(dir, "dist", "demo.obj") {
		t.Errorf("output = %q", s.Output)
	}
	if s.Segments != 24 || s.Jobs != 2 || s.Cache || s.Addr != "127.0.0.1:9000" {
		t.Errorf("settings = %+v", s)
	}

	if err := build.Flags().Set("segments", "7"); err != nil {
		t.Fatal(err)
	}
	s, err = resolveSettings(build, []string{filepath.Join(dir, "other.boxy")})
	if err != nil {
		t.Fatal(err)
	}
	if s.Segments != 7 || s.Jobs != 2 {
		t.Errorf("flag override lost: %+v", s)
	}
	if s.Output != filepath.Join(dir, "other.glb") {
		t.Errorf("a script other than the manifest's should default its output, got %q", s.Output)
	}

	if err := build.Flags().Set("jobs", "-1"); err != nil {
		t.Fatal(err)
	}
	if _, err := resolveSettings(build, []string{dir}); err == nil {
		t.Error("negative jobs accepted")
	}
}

func TestCleanDropsCache(t *testing.T) {
	cacheDir := isolateCache(t)
	dir := t.TempDir()
	script := filepath.Join(dir, "cube.boxy")
	writeFile(t, script, "register(Box(1))\n")
	if _, stderr, err := execute(t, "build", script, "--ui=off", "--resolution=12"); err != nil {
		t.Fatalf("build: %v\n%s", err, stderr)
	}

	stdout, _, err := execute(t, "clean", "--stats")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(stdout, "1 entries") || !strings.Contains(stdout, cacheDir) {
		t.Errorf("stats = %q", stdout)
	}
	if _, _, err := execute(t, "clean"); err != nil {
		t.Fatal(err)
	}
	stdout, _, err = execute(t, "clean", "--stats")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(stdout, "0 entries") {
		t.Errorf("after clean = %q", stdout)
	}
}

func TestVersionJSON(t *testing.T) {
	stdout, _, err := execute(t, "version", "--format=json", "--hash")
	if err != nil {
		t.Fatal(err)
	}
	var payload versionPayload
	if err := json.Unmarshal([]byte(stdout), &payload); err != nil {
		t.Fatal(err)
	}
	if payload.Tool != "boxy" || payload.GitCommit == "" || payload.BuildDate != "" {
		t.Errorf("payload = %+v", payload)
	}
	if _, _, err := execute(t, "version", "--format=xml"); err == nil {
		t.Error("xml format accepted")
	}
}

func TestEncodeReportYAML(t *testing.T) {
	var buf bytes.Buffer
	r := buildReport{Script: "a.boxy", State: "assembled", Objects: []objectReport{{Name: "lid", Material: "wood", Triangles: 12}}}
	if err := encodeReport(&buf, r, "yaml"); err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"script: a.boxy", "name: lid", "triangles: 12"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("yaml lacks %q:\n%s", want, buf.String())
		}
	}
	if err := encodeReport(&buf, r, "toml"); err == nil {
		t.Error("toml format accepted")
	}
}

func TestHumanBytes(t *testing.T) {
	cases := map[int64]string{0: "0 B", 1023: "1023 B", 1536: "1.5 KiB", 3 << 20: "3.0 MiB"}
	for n, want := range cases {
		if got := humanBytes(n); got != want {
			t.Errorf("humanBytes(%d) = %q, want %q", n, got, want)
		}
	}
}

func TestTraceAndProfileFlags(t *testing.T) {
	isolateCache(t)
	dir := t.TempDir()
	script := filepath.Join(dir, "cube.boxy")
	writeFile(t, script, "register(Box(1), \"wood\", \"cube\")\n")
	tracePath := filepath.Join(dir, "build.ndjson")
	memPath := filepath.Join(dir, "mem.pprof")

	_, stderr, err := execute(t, "--trace", tracePath, "--trace-level=detail", "--mem-profile", memPath,
		"build", script, "--ui=off", "--resolution=12", "--no-cache")
	if err != nil {
		t.Fatalf("build: %v\n%s", err, stderr)
	}
	data, err := os.ReadFile(tracePath)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "compile") || !strings.Contains(string(data), "cube") {
		t.Errorf("trace lacks compile or object events:\n%s", data)
	}
	if info, err := os.Stat(memPath); err != nil || info.Size() == 0 {
		t.Errorf("heap profile missing: %v", err)
	}
}
