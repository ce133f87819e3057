package metadata

import (
	"bytes"
	"encoding/binary"
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"
)

const (
	// Meshlet budgets for the mesh-shading pipeline. A meshlet never
	// references more than MaxMeshletVertices unique vertices nor more than
	// MaxMeshletTriangles triangles.
	MaxMeshletVertices  = 64
	MaxMeshletTriangles = 64
)

// Vertex is the GPU vertex layout: position, normal, texture coordinates.
// 32 bytes, tightly packed.
type Vertex struct {
	Position mgl32.Vec3
	Normal   mgl32.Vec3
	UV       mgl32.Vec2
}

// VertexSize is the byte size of one packed Vertex.
const VertexSize = uint64(unsafe.Sizeof(Vertex{}))

// Meshlet records one cluster of triangles. VertexOffset/VertexCount index
// into the shared meshlet-vertex-index buffer (32-bit indices into the mesh's
// vertex buffer); TriangleOffset/TriangleCount index into the shared local
// triangle buffer (8-bit indices local to the meshlet, three per triangle).
type Meshlet struct {
	VertexOffset   uint32
	TriangleOffset uint32
	VertexCount    uint32
	TriangleCount  uint32
}

// MeshObject is the GPU-side record the shaders use to dereference one
// mesh's buffers. Each field is a buffer device address.
type MeshObject struct {
	VertexAddress          uint64
	MeshletAddress         uint64
	MeshletVertexAddress   uint64
	MeshletTriangleAddress uint64
	MeshletCount           uint32
	_                      uint32 // pad to 8-byte multiple
}

// MeshObjectSize is the byte size of one packed MeshObject.
const MeshObjectSize = uint64(unsafe.Sizeof(MeshObject{}))

// Encode serializes the record into its GPU byte layout (little endian,
// tightly packed, padding zeroed).
func (m *MeshObject) Encode() []byte {
	buf := bytes.NewBuffer(make([]byte, 0, MeshObjectSize))
	if err := binary.Write(buf, binary.LittleEndian, m); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// MeshletGeometry is the CPU-side output of the meshlet build: the optimized
// vertex stream plus the three index streams the four device buffers are
// filled from.
type MeshletGeometry struct {
	Vertices []Vertex
	// Indices is the cache-optimized 32-bit triangle index list.
	Indices []uint32
	// Meshlets partitions Indices; MeshletVertices and MeshletTriangles are
	// the shared streams the meshlets' offset/count pairs point into.
	Meshlets         []Meshlet
	MeshletVertices  []uint32
	MeshletTriangles []uint8
}

// MeshBuffer groups the device buffers one uploaded mesh owns together with
// its GPU-side object record. The meshlet vertex and triangle streams share
// the MeshletData buffer; the object record addresses them at their offsets.
type MeshBuffer struct {
	Vertices     BufferHandle
	Indices      BufferHandle
	Meshlets     BufferHandle
	MeshletData  BufferHandle
	Object       MeshObject
	// ObjectIndex is the mesh's slot in the shared mesh-objects buffer.
	ObjectIndex  uint32
	IndexCount   uint32
	MeshletCount uint32
}
