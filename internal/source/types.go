package source

type (
	// FileID identifies a script inside a FileSet.
	FileID uint32
	// FileFlags records how the content was normalized on the way in.
	FileFlags uint8
)

const (
	// FileVirtual marks content that did not come from disk (stdin, the
	// server's compile endpoint, tests).
	FileVirtual FileFlags = 1 << iota
	FileHadBOM
	FileNormalizedCRLF
)

// File is one loaded scene script.
type File struct {
	ID      FileID
	Path    string
	Content []byte
	LineIdx []uint32 // byte offsets of '\n'
	Hash    [32]byte
	Flags   FileFlags
}

// Pos is a 1-based line inside a file. Scripts report failures per
// statement, so there is no column.
type Pos struct {
	File FileID
	Line uint32
}

// IsValid reports whether p points at a line.
func (p Pos) IsValid() bool { return p.Line > 0 }
