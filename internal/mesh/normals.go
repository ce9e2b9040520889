package mesh

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// ComputeNormals sets area-weighted smooth vertex normals. Each triangle adds
// its unnormalized cross product (b-a)×(c-a) to its three vertices; the sums
// are normalized at the end. Vertices whose sum is zero keep a zero normal.
func ComputeNormals(m *Mesh) {
	sums := make([]r3.Vec, len(m.Positions))
	for _, t := range m.Triangles {
		a, b, c := m.Positions[t[0]], m.Positions[t[1]], m.Positions[t[2]]
		n := r3.Cross(r3.Sub(b, a), r3.Sub(c, a))
		for _, v := range t {
			sums[v] = r3.Add(sums[v], n)
		}
	}
	for i, s := range sums {
		sums[i] = unitOrZero(s)
	}
	m.Normals = sums
}

func unitOrZero(v r3.Vec) r3.Vec {
	n := r3.Norm(v)
	if n == 0 || math.IsNaN(n) {
		return r3.Vec{}
	}
	return r3.Scale(1/n, v)
}
