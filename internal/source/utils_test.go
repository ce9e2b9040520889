package source

import (
	"os"
	"path/filepath"
	"slices"
	"testing"
)

func TestScriptTextNormalization(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		crlf    bool
		bom     bool
		newline []uint32
	}{
		{name: "plain", in: "register(Box(1))\n", want: "register(Box(1))\n", newline: []uint32{16}},
		{name: "windows", in: "a = 1\r\nregister(Box(a))\r\n", want: "a = 1\nregister(Box(a))\n", crlf: true, newline: []uint32{5, 22}},
		{name: "lone cr kept", in: "# note\rline\n", want: "# note\rline\n", newline: []uint32{11}},
		{name: "bom", in: "\xef\xbb\xbfsize = 2", want: "size = 2", bom: true},
		{name: "bom and crlf", in: "\xef\xbb\xbfx = 1\r\n", want: "x = 1\n", crlf: true, bom: true, newline: []uint32{5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, bom := removeBOM([]byte(tt.in))
			got, crlf := normalizeCRLF(got)
			if string(got) != tt.want || bom != tt.bom || crlf != tt.crlf {
				t.Errorf("got %q bom=%v crlf=%v", got, bom, crlf)
			}
			if idx := buildLineIndex(got); !slices.Equal(idx, tt.newline) {
				t.Errorf("line index = %v, want %v", idx, tt.newline)
			}
		})
	}
}

func TestRelativePathForProjectScripts(t *testing.T) {
	project := t.TempDir()
	for _, dir := range []string{"scenes/lamps", "exports", "scenes2"} {
		if err := os.MkdirAll(filepath.Join(project, dir), 0o755); err != nil {
			t.Fatal(err)
		}
	}
	base := filepath.Join(project, "scenes")

	tests := []struct {
		target string
		want   string
	}{
		{filepath.Join(base, "lamps", "desk.boxy"), "lamps/desk.boxy"},
		{filepath.Join(base, "lamps", "..", "table.boxy"), "table.boxy"},
		{base, "."},
		// a sibling sharing the prefix is still outside
		{filepath.Join(project, "scenes2", "chair.boxy"), normalizePath(filepath.Join(project, "scenes2", "chair.boxy"))},
		{filepath.Join(project, "exports", "lamp.glb"), normalizePath(filepath.Join(project, "exports", "lamp.glb"))},
	}
	for _, tt := range tests {
		got, err := RelativePath(tt.target, base)
		if err != nil {
			t.Fatalf("RelativePath(%q): %v", tt.target, err)
		}
		if got != tt.want {
			t.Errorf("RelativePath(%q) = %q, want %q", tt.target, got, tt.want)
		}
	}
}

func TestBaseNameOfScript(t *testing.T) {
	if got := BaseName(filepath.Join("scenes", "lamps", "desk.boxy")); got != "desk.boxy" {
		t.Errorf("BaseName = %q", got)
	}
}
