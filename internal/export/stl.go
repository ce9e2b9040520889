package export

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"

	"fortio.org/safecast"
	"gonum.org/v1/gonum/spatial/r3"

	"boxy/internal/pipeline"
)

const stlHeader = "boxy binary STL"

// stlFacet is the 50-byte binary STL record.
type stlFacet struct {
	Normal [3]float32
	Verts  [3][3]float32
	Attr   uint16
}

// writeSTL merges every mesh into one binary STL. STL has no names or
// materials, so both are dropped.
func writeSTL(w io.Writer, meshes []pipeline.FinishedMesh) error {
	total := 0
	for _, fm := range meshes {
		total += len(fm.Mesh.Triangles)
	}
	n, err := safecast.Conv[uint32](total)
	if err != nil {
		return fmt.Errorf("stl: too many triangles: %w", err)
	}

	bw := bufio.NewWriter(w)
	var header [80]byte
	copy(header[:], stlHeader)
	if _, err := bw.Write(header[:]); err != nil {
		return err
	}
	if err := binary.Write(bw, binary.LittleEndian, n); err != nil {
		return err
	}
	for _, fm := range meshes {
		for i := range fm.Mesh.Triangles {
			tri := fm.Mesh.Triangle(i)
			var f stlFacet
			if c := r3.Cross(r3.Sub(tri[1], tri[0]), r3.Sub(tri[2], tri[0])); r3.Norm(c) > 0 {
				f.Normal = vec32(r3.Unit(c))
			}
			for k := range 3 {
				f.Verts[k] = vec32(tri[k])
			}
			if err := binary.Write(bw, binary.LittleEndian, &f); err != nil {
				return err
			}
		}
	}
	return bw.Flush()
}

func vec32(v r3.Vec) [3]float32 {
	return [3]float32{float32(v.X), float32(v.Y), float32(v.Z)}
}
