package export

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"math"

	"fortio.org/safecast"

	"boxy/internal/pipeline"
)

const (
	glbMagic     = 0x46546C67 // "glTF"
	glbVersion   = 2
	chunkJSON    = 0x4E4F534A
	chunkBIN     = 0x004E4942
	glFloat      = 5126
	glUint32     = 5125
	glTriangles  = 4
	targetArray  = 34962
	targetIndex  = 34963
	defaultRough = 0.8
)

type gltfDoc struct {
	Asset       gltfAsset        `json:"asset"`
	Scene       int              `json:"scene"`
	Scenes      []gltfScene      `json:"scenes"`
	Nodes       []gltfNode       `json:"nodes"`
	Meshes      []gltfMesh       `json:"meshes"`
	Materials   []gltfMaterial   `json:"materials"`
	Accessors   []gltfAccessor   `json:"accessors"`
	BufferViews []gltfBufferView `json:"bufferViews"`
	Buffers     []gltfBuffer     `json:"buffers"`
}

type gltfAsset struct {
	Version   string `json:"version"`
	Generator string `json:"generator"`
}

type gltfScene struct {
	Nodes []int `json:"nodes"`
}

type gltfNode struct {
	Name string `json:"name,omitempty"`
	Mesh int    `json:"mesh"`
}

type gltfMesh struct {
	Name       string          `json:"name,omitempty"`
	Primitives []gltfPrimitive `json:"primitives"`
}

type gltfPrimitive struct {
	Attributes map[string]int `json:"attributes"`
	Indices    int            `json:"indices"`
	Material   int            `json:"material"`
	Mode       int            `json:"mode"`
}

type gltfMaterial struct {
	Name      string  `json:"name"`
	PBR       gltfPBR `json:"pbrMetallicRoughness"`
	AlphaMode string  `json:"alphaMode,omitempty"`
}

type gltfPBR struct {
	BaseColorFactor [4]float64 `json:"baseColorFactor"`
	MetallicFactor  float64    `json:"metallicFactor"`
	RoughnessFactor float64    `json:"roughnessFactor"`
}

type gltfAccessor struct {
	BufferView    int       `json:"bufferView"`
	ComponentType int       `json:"componentType"`
	Count         int       `json:"count"`
	Type          string    `json:"type"`
	Min           []float32 `json:"min,omitempty"`
	Max           []float32 `json:"max,omitempty"`
}

type gltfBufferView struct {
	Buffer     int `json:"buffer"`
	ByteOffset int `json:"byteOffset"`
	ByteLength int `json:"byteLength"`
	Target     int `json:"target,omitempty"`
}

type gltfBuffer struct {
	ByteLength int `json:"byteLength"`
}

// glbBuilder accumulates the binary buffer and the JSON that indexes it.
type glbBuilder struct {
	doc       gltfDoc
	bin       bytes.Buffer
	materials map[string]int
	opts      Options
}

func writeGLB(w io.Writer, meshes []pipeline.FinishedMesh, opts Options) error {
	b := &glbBuilder{
		doc: gltfDoc{
			Asset:  gltfAsset{Version: "2.0", Generator: "boxy"},
			Scenes: []gltfScene{{Nodes: []int{}}},
		},
		materials: make(map[string]int),
		opts:      opts,
	}
	for i, m := range meshes {
		if err := b.addMesh(i, m); err != nil {
			return err
		}
	}
	return b.write(w)
}

func (b *glbBuilder) addMesh(i int, fm pipeline.FinishedMesh) error {
	positions, normals, uvs, indices, err := fm.Mesh.Flat()
	if err != nil {
		return err
	}
	label := meshLabel(i, fm.Name, fm.Material)
	attrs := make(map[string]int, 3)

	count := len(positions) / 3
	posAcc := b.accessor(b.floatView(positions), count, "VEC3")
	lo, hi := bounds3(positions)
	b.doc.Accessors[posAcc].Min, b.doc.Accessors[posAcc].Max = lo, hi
	attrs["POSITION"] = posAcc
	if normals != nil {
		attrs["NORMAL"] = b.accessor(b.floatView(normals), count, "VEC3")
	}
	if uvs != nil {
		// glTF puts the texture origin top-left.
		for j := 1; j < len(uvs); j += 2 {
			uvs[j] = 1 - uvs[j]
		}
		attrs["TEXCOORD_0"] = b.accessor(b.floatView(uvs), count, "VEC2")
	}
	idxView := b.view(targetIndex, func(buf *bytes.Buffer) {
		_ = binary.Write(buf, binary.LittleEndian, indices)
	})
	idxAcc := len(b.doc.Accessors)
	b.doc.Accessors = append(b.doc.Accessors, gltfAccessor{
		BufferView:    idxView,
		ComponentType: glUint32,
		Count:         len(indices),
		Type:          "SCALAR",
	})

	mat, err := b.material(fm.Material)
	if err != nil {
		return err
	}
	meshIdx := len(b.doc.Meshes)
	b.doc.Meshes = append(b.doc.Meshes, gltfMesh{
		Name: label,
		Primitives: []gltfPrimitive{{
			Attributes: attrs,
			Indices:    idxAcc,
			Material:   mat,
			Mode:       glTriangles,
		}},
	})
	b.doc.Scenes[0].Nodes = append(b.doc.Scenes[0].Nodes, len(b.doc.Nodes))
	b.doc.Nodes = append(b.doc.Nodes, gltfNode{Name: label, Mesh: meshIdx})
	return nil
}

func (b *glbBuilder) floatView(data []float32) int {
	return b.view(targetArray, func(buf *bytes.Buffer) {
		_ = binary.Write(buf, binary.LittleEndian, data)
	})
}

// view appends one buffer view, starting on a 4-byte boundary.
func (b *glbBuilder) view(target int, fill func(*bytes.Buffer)) int {
	for b.bin.Len()%4 != 0 {
		b.bin.WriteByte(0)
	}
	start := b.bin.Len()
	fill(&b.bin)
	b.doc.BufferViews = append(b.doc.BufferViews, gltfBufferView{
		ByteOffset: start,
		ByteLength: b.bin.Len() - start,
		Target:     target,
	})
	return len(b.doc.BufferViews) - 1
}

func (b *glbBuilder) accessor(view, count int, typ string) int {
	b.doc.Accessors = append(b.doc.Accessors, gltfAccessor{
		BufferView:    view,
		ComponentType: glFloat,
		Count:         count,
		Type:          typ,
	})
	return len(b.doc.Accessors) - 1
}

// material returns the index of the named material, adding it on first use.
func (b *glbBuilder) material(name string) (int, error) {
	if i, ok := b.materials[name]; ok {
		return i, nil
	}
	look := b.opts.Materials[name]
	rgba, err := look.RGBA()
	if err != nil {
		return 0, fmt.Errorf("material %q: %w", name, err)
	}
	m := gltfMaterial{
		Name: name,
		PBR: gltfPBR{
			BaseColorFactor: rgba,
			MetallicFactor:  factor(look.Metallic, 0),
			RoughnessFactor: factor(look.Roughness, defaultRough),
		},
	}
	if rgba[3] < 1 {
		m.AlphaMode = "BLEND"
	}
	b.doc.Materials = append(b.doc.Materials, m)
	b.materials[name] = len(b.doc.Materials) - 1
	return len(b.doc.Materials) - 1, nil
}

func factor(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return math.Max(0, math.Min(1, *v))
}

func bounds3(p []float32) (lo, hi []float32) {
	lo = []float32{p[0], p[1], p[2]}
	hi = []float32{p[0], p[1], p[2]}
	for i := 3; i < len(p); i += 3 {
		for k := range 3 {
			lo[k] = min(lo[k], p[i+k])
			hi[k] = max(hi[k], p[i+k])
		}
	}
	return lo, hi
}

func (b *glbBuilder) write(w io.Writer) error {
	for b.bin.Len()%4 != 0 {
		b.bin.WriteByte(0)
	}
	b.doc.Buffers = []gltfBuffer{{ByteLength: b.bin.Len()}}
	js, err := json.Marshal(b.doc)
	if err != nil {
		return fmt.Errorf("encode gltf json: %w", err)
	}
	for len(js)%4 != 0 {
		js = append(js, ' ')
	}

	total, err := safecast.Conv[uint32](12 + 8 + len(js) + 8 + b.bin.Len())
	if err != nil {
		return fmt.Errorf("glb too large: %w", err)
	}
	jsLen, err := safecast.Conv[uint32](len(js))
	if err != nil {
		return err
	}
	binLen, err := safecast.Conv[uint32](b.bin.Len())
	if err != nil {
		return err
	}

	header := []uint32{glbMagic, glbVersion, total, jsLen, chunkJSON}
	if err := binary.Write(w, binary.LittleEndian, header); err != nil {
		return err
	}
	if _, err := w.Write(js); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, []uint32{binLen, chunkBIN}); err != nil {
		return err
	}
	_, err = w.Write(b.bin.Bytes())
	return err
}
