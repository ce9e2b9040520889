package source

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFileSetVersioning(t *testing.T) {
	fs := NewFileSet()

	id1 := fs.Add("scene.boxy", []byte("register(Box(1))"), 0)
	id2 := fs.Add("scene.boxy", []byte("register(Box(2))"), 0)
	if id1 == id2 {
		t.Fatalf("expected a new FileID for the second version")
	}
	latest, ok := fs.GetLatest("./scene.boxy")
	if !ok || latest != id2 {
		t.Fatalf("GetLatest = %d, %v; want %d", latest, ok, id2)
	}
	if got := string(fs.Get(id1).Content); got != "register(Box(1))" {
		t.Errorf("old version lost: %q", got)
	}
	if fs.Get(id1).Hash == fs.Get(id2).Hash {
		t.Errorf("different content must hash differently")
	}
	if fs.Get(FileID(99)) != nil {
		t.Errorf("unknown id should return nil")
	}
	if fs.Len() != 2 {
		t.Errorf("Len = %d", fs.Len())
	}
}

func TestAddVirtualNormalizes(t *testing.T) {
	fs := NewFileSet()
	id := fs.AddVirtual("<stdin>", []byte{0xEF, 0xBB, 0xBF, 'a', '\r', '\n', 'b', '\r', 'c', '\n'})
	f := fs.Get(id)

	if got := string(f.Content); got != "a\nb\rc\n" {
		t.Fatalf("content = %q", got)
	}
	want := FileVirtual | FileHadBOM | FileNormalizedCRLF
	if f.Flags != want {
		t.Errorf("flags = %b, want %b", f.Flags, want)
	}
	if len(f.LineIdx) != 2 || f.LineIdx[0] != 1 || f.LineIdx[1] != 5 {
		t.Errorf("LineIdx = %v", f.LineIdx)
	}
}

func TestNormalizeCRLFUntouched(t *testing.T) {
	in := []byte("a\nb")
	out, changed := normalizeCRLF(in)
	if changed || string(out) != "a\nb" {
		t.Fatalf("got %q, %v", out, changed)
	}
	if _, hadBOM := removeBOM([]byte{0xEF}); hadBOM {
		t.Errorf("short input has no BOM")
	}
}

func TestGetLine(t *testing.T) {
	fs := NewFileSet()
	f := fs.Get(fs.AddVirtual("s", []byte("first\n\nthird")))

	cases := map[uint32]string{0: "", 1: "first", 2: "", 3: "third", 4: ""}
	for line, want := range cases {
		if got := f.GetLine(line); got != want {
			t.Errorf("GetLine(%d) = %q, want %q", line, got, want)
		}
	}
	if n := f.LineCount(); n != 3 {
		t.Errorf("LineCount = %d", n)
	}
	f2 := fs.Get(fs.AddVirtual("t", []byte("x\n")))
	if n := f2.LineCount(); n != 1 {
		t.Errorf("LineCount with trailing newline = %d", n)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scene.boxy")
	if err := os.WriteFile(path, []byte("a = Box(1)\r\nregister(a)\r\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	fs := NewFileSetWithBase(dir)
	id, err := fs.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	f := fs.Get(id)
	if f.Flags&FileNormalizedCRLF == 0 || f.Flags&FileVirtual != 0 {
		t.Errorf("flags = %b", f.Flags)
	}
	if got := f.GetLine(2); got != "register(a)" {
		t.Errorf("line 2 = %q", got)
	}
	if got := f.FormatPath("relative", fs.BaseDir()); got != "scene.boxy" {
		t.Errorf("relative path = %q", got)
	}
	if got := f.FormatPath("basename", ""); got != "scene.boxy" {
		t.Errorf("basename = %q", got)
	}

	if _, err := fs.Load(filepath.Join(dir, "missing.boxy")); err == nil {
		t.Errorf("expected error for a missing file")
	}
}
