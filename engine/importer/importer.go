// Package importer is the narrow facade between external model parsing and
// the upload pipeline. The engine consumes parsed documents only: a node
// graph with parent links plus raw vertex, index and material accessors.
// Actual file-format parsing lives outside this repository.
package importer

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
)

// NoIndex marks an absent mesh, material or parent reference on a node.
const NoIndex = -1

// Node is one node of the parsed scene graph. Parent indexes into the
// document's node list, NoIndex for roots. Mesh and Material index into the
// document's mesh and material arrays, NoIndex when the node carries none.
type Node struct {
	Name      string
	Parent    int
	Mesh      int
	Material  int
	Transform mgl32.Mat4
}

// Mesh is one source mesh: raw vertices plus an optional index list. An
// empty index list means the vertices are a raw triangle soup.
type Mesh struct {
	Name     string
	Vertices []metadata.Vertex
	Indices  []uint32
}

// Document is one fully parsed scene.
type Document struct {
	Name      string
	Nodes     []Node
	Meshes    []Mesh
	Materials []metadata.MaterialConfig
}

// MeshAt bound-checks a node's mesh reference.
func (d *Document) MeshAt(index int) (*Mesh, error) {
	if index < 0 || index >= len(d.Meshes) {
		return nil, fmt.Errorf("document '%s' has no mesh %d", d.Name, index)
	}
	return &d.Meshes[index], nil
}

// MaterialAt bound-checks a node's material reference.
func (d *Document) MaterialAt(index int) (*metadata.MaterialConfig, error) {
	if index < 0 || index >= len(d.Materials) {
		return nil, fmt.Errorf("document '%s' has no material %d", d.Name, index)
	}
	return &d.Materials[index], nil
}

// BuiltinCube returns a self-contained test document: one node carrying a
// unit cube (8 vertices, 12 triangles) with one opaque material whose base
// color texture is a 2x2 gray checker.
func BuiltinCube() *Document {
	corners := [8]mgl32.Vec3{
		{-0.5, -0.5, -0.5}, {0.5, -0.5, -0.5}, {0.5, 0.5, -0.5}, {-0.5, 0.5, -0.5},
		{-0.5, -0.5, 0.5}, {0.5, -0.5, 0.5}, {0.5, 0.5, 0.5}, {-0.5, 0.5, 0.5},
	}
	vertices := make([]metadata.Vertex, 8)
	for i, p := range corners {
		vertices[i] = metadata.Vertex{
			Position: p,
			Normal:   p.Normalize(),
			UV:       mgl32.Vec2{p.X() + 0.5, p.Y() + 0.5},
		}
	}
	indices := []uint32{
		0, 2, 1, 0, 3, 2, // back
		4, 5, 6, 4, 6, 7, // front
		0, 1, 5, 0, 5, 4, // bottom
		3, 6, 2, 3, 7, 6, // top
		0, 4, 7, 0, 7, 3, // left
		1, 2, 6, 1, 6, 5, // right
	}

	checker := []byte{
		64, 64, 64, 255, 192, 192, 192, 255,
		192, 192, 192, 255, 64, 64, 64, 255,
	}

	return &Document{
		Name: "builtin_cube",
		Nodes: []Node{
			{
				Name:      "cube",
				Parent:    NoIndex,
				Mesh:      0,
				Material:  0,
				Transform: mgl32.Ident4(),
			},
		},
		Meshes: []Mesh{
			{Name: "cube", Vertices: vertices, Indices: indices},
		},
		Materials: []metadata.MaterialConfig{
			{
				Name:            "cube_material",
				BaseColor:       mgl32.Vec4{1, 1, 1, 1},
				Metallic:        0,
				Roughness:       0.8,
				AlphaMode:       metadata.AlphaModeOpaque,
				BaseColorMap:    "cube_checker",
				BaseColorPixels: checker,
				BaseColorWidth:  2,
				BaseColorHeight: 2,
			},
		},
	}
}
