// Package export writes finished scenes as GLB, OBJ or binary STL.
package export

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"boxy/internal/pipeline"
	"boxy/internal/project"
)

// Format is an output file format.
type Format string

const (
	GLB Format = "glb"
	OBJ Format = "obj"
	STL Format = "stl"
)

// ErrUnknownFormat is returned for file extensions no encoder handles.
var ErrUnknownFormat = errors.New("unsupported export format")

// Formats lists every supported format.
var Formats = []Format{GLB, OBJ, STL}

// FormatFromPath picks the format from the file extension, ignoring case.
func FormatFromPath(path string) (Format, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	for _, f := range Formats {
		if string(f) == ext {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w %q: use .glb, .obj or .stl", ErrUnknownFormat, filepath.Ext(path))
}

// ContentType is the MIME type served for f.
func (f Format) ContentType() string {
	switch f {
	case GLB:
		return "model/gltf-binary"
	case OBJ:
		return "model/obj"
	case STL:
		return "model/stl"
	}
	return "application/octet-stream"
}

// Options carries what encoders need beyond geometry.
type Options struct {
	// Materials maps a material name to its look. Unknown names render white.
	Materials map[string]project.Material
}

// Encode writes meshes to w in format f. Meshes without triangles are left out.
func Encode(w io.Writer, f Format, meshes []pipeline.FinishedMesh, opts Options) error {
	meshes = drawable(meshes)
	if len(meshes) == 0 {
		return errors.New("nothing to export: no mesh has triangles")
	}
	switch f {
	case GLB:
		return writeGLB(w, meshes, opts)
	case OBJ:
		return writeOBJ(w, meshes)
	case STL:
		return writeSTL(w, meshes)
	}
	return fmt.Errorf("%w %q", ErrUnknownFormat, string(f))
}

// Bytes encodes meshes into memory.
func Bytes(f Format, meshes []pipeline.FinishedMesh, opts Options) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, f, meshes, opts); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Output is one file produced by Plan.
type Output struct {
	Path   string
	Group  string
	Meshes []pipeline.FinishedMesh
}

// Plan decides which files an export to path writes. A '%' in the file name
// splits the scene by mesh name: "base%.stl" becomes "base_<name>.stl" per
// distinct name, with unnamed meshes grouped as "unnamed".
func Plan(path string, meshes []pipeline.FinishedMesh) []Output {
	dir, file := filepath.Split(path)
	if !strings.Contains(file, "%") {
		return []Output{{Path: path, Meshes: meshes}}
	}
	file = strings.ReplaceAll(file, "%", "")
	ext := filepath.Ext(file)
	stem := strings.TrimSuffix(file, ext)

	var outs []Output
	index := make(map[string]int)
	for _, m := range meshes {
		group := GroupName(m.Name)
		i, ok := index[group]
		if !ok {
			i = len(outs)
			index[group] = i
			outs = append(outs, Output{Path: filepath.Join(dir, stem+"_"+fileSafe(group)+ext), Group: group})
		}
		outs[i].Meshes = append(outs[i].Meshes, m)
	}
	return outs
}

// WriteFiles exports meshes to path, splitting on '%', and returns the paths
// written. The format comes from the extension.
func WriteFiles(path string, meshes []pipeline.FinishedMesh, opts Options) ([]string, error) {
	f, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	var written []string
	for _, out := range Plan(path, meshes) {
		data, err := Bytes(f, out.Meshes, opts)
		if err != nil {
			return written, fmt.Errorf("export %s: %w", out.Path, err)
		}
		if d := filepath.Dir(out.Path); d != "" {
			if err := os.MkdirAll(d, 0o755); err != nil {
				return written, err
			}
		}
		if err := os.WriteFile(out.Path, data, 0o644); err != nil { // #nosec G306 -- exported models are meant to be shared
			return written, fmt.Errorf("export %s: %w", out.Path, err)
		}
		written = append(written, out.Path)
	}
	return written, nil
}

func drawable(meshes []pipeline.FinishedMesh) []pipeline.FinishedMesh {
	out := make([]pipeline.FinishedMesh, 0, len(meshes))
	for _, m := range meshes {
		if m.Mesh != nil && len(m.Mesh.Triangles) > 0 {
			out = append(out, m)
		}
	}
	return out
}
