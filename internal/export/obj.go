package export

import (
	"bufio"
	"fmt"
	"io"
	"strconv"

	"boxy/internal/pipeline"
)

// writeOBJ emits one "o" group per mesh. Indices are global and 1-based, so
// vertex, normal and uv offsets advance together.
func writeOBJ(w io.Writer, meshes []pipeline.FinishedMesh) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, "# boxy")
	offset := 1
	for i, fm := range meshes {
		m := fm.Mesh
		hasN := len(m.Normals) == len(m.Positions)
		hasT := len(m.UVs) == len(m.Positions)

		fmt.Fprintf(bw, "o %s\n", objName(meshLabel(i, fm.Name, fm.Material)))
		fmt.Fprintf(bw, "usemtl %s\n", objName(fm.Material))
		for _, p := range m.Positions {
			fmt.Fprintf(bw, "v %s %s %s\n", num(p.X), num(p.Y), num(p.Z))
		}
		if hasN {
			for _, n := range m.Normals {
				fmt.Fprintf(bw, "vn %s %s %s\n", num(n.X), num(n.Y), num(n.Z))
			}
		}
		if hasT {
			for _, uv := range m.UVs {
				fmt.Fprintf(bw, "vt %s %s\n", num(uv.X), num(uv.Y))
			}
		}
		for _, t := range m.Triangles {
			bw.WriteString("f")
			for _, v := range t {
				bw.WriteByte(' ')
				bw.WriteString(objRef(offset+int(v), hasT, hasN))
			}
			bw.WriteByte('\n')
		}
		offset += len(m.Positions)
	}
	return bw.Flush()
}

func objRef(i int, uv, normal bool) string {
	s := strconv.Itoa(i)
	switch {
	case uv && normal:
		return s + "/" + s + "/" + s
	case normal:
		return s + "//" + s
	case uv:
		return s + "/" + s
	}
	return s
}

// objName replaces whitespace, which would end the name early.
func objName(s string) string {
	out := []rune(s)
	for i, r := range out {
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' {
			out[i] = '_'
		}
	}
	if len(out) == 0 {
		return Unnamed
	}
	return string(out)
}

func num(f float64) string { return strconv.FormatFloat(f, 'g', 9, 64) }
