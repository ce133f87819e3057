package systems

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/fnv"

	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
)

type GeometrySystemConfig struct {
	/** @brief The maximum number of meshes that can be uploaded at once. */
	MaxMeshCount uint32
}

// pendingObject is one mesh-object record waiting to be patched into the
// shared mesh-objects buffer at the end of an import.
type pendingObject struct {
	objectIndex uint32
	record      []byte
}

// GeometrySystem owns the mesh upload pipeline: it runs the meshlet build,
// creates the device buffers through the arena and maintains the shared
// mesh-objects buffer the shaders dereference by object index.
type GeometrySystem struct {
	Config *GeometrySystemConfig

	gpu         GPU
	meshObjects metadata.BufferHandle
	// Uploaded meshes keyed by content hash, so identical source meshes
	// share one set of device buffers.
	uploaded map[uint64]metadata.MeshBufferHandle

	objectCount uint32
	pending     []pendingObject
}

func NewGeometrySystem(config *GeometrySystemConfig, gpu GPU) (*GeometrySystem, error) {
	if config.MaxMeshCount == 0 {
		err := fmt.Errorf("func NewGeometrySystem - config.MaxMeshCount must be > 0")
		core.LogFatal(err.Error())
		return nil, err
	}

	meshObjects, err := gpu.CreateBuffer(metadata.BufferDescription{
		Label:      "mesh_objects",
		Size:       uint64(config.MaxMeshCount) * metadata.MeshObjectSize,
		Usage:      metadata.BufferUsageStorage | metadata.BufferUsageDeviceAddress,
		Visibility: metadata.MemoryVisibilityDeviceOnly,
	})
	if err != nil {
		return nil, err
	}

	return &GeometrySystem{
		Config:      config,
		gpu:         gpu,
		meshObjects: meshObjects,
		uploaded:    make(map[uint64]metadata.MeshBufferHandle),
	}, nil
}

// CreateMesh uploads one source mesh and returns its handle. A mesh whose
// vertex and index content was uploaded before returns the existing handle
// without touching the GPU. The mesh-object record is only staged; it
// reaches the shared buffer on the next FlushMeshObjects.
func (gs *GeometrySystem) CreateMesh(name string, vertices []metadata.Vertex, indices []uint32) (metadata.MeshBufferHandle, error) {
	hash := contentHash(vertices, indices)
	if handle, exists := gs.uploaded[hash]; exists {
		return handle, nil
	}
	if gs.objectCount >= gs.Config.MaxMeshCount {
		err := fmt.Errorf("mesh object limit of %d reached", gs.Config.MaxMeshCount)
		core.LogError(err.Error())
		return metadata.MeshBufferHandle{}, err
	}

	geometry, err := BuildMeshletGeometry(vertices, indices)
	if err != nil {
		return metadata.MeshBufferHandle{}, err
	}

	mesh, err := gs.uploadGeometry(name, geometry)
	if err != nil {
		return metadata.MeshBufferHandle{}, err
	}

	mesh.ObjectIndex = gs.objectCount
	gs.objectCount++

	handle, err := gs.gpu.RegisterMesh(*mesh)
	if err != nil {
		return metadata.MeshBufferHandle{}, err
	}

	gs.pending = append(gs.pending, pendingObject{
		objectIndex: mesh.ObjectIndex,
		record:      mesh.Object.Encode(),
	})
	gs.uploaded[hash] = handle
	return handle, nil
}

// uploadGeometry creates and fills the four device buffers of one mesh and
// assembles its object record. The meshlet vertex and triangle streams share
// one buffer; the record addresses the triangle stream at its offset.
func (gs *GeometrySystem) uploadGeometry(name string, geometry *metadata.MeshletGeometry) (*metadata.MeshBuffer, error) {
	vertexBytes := encodePacked(geometry.Vertices)
	indexBytes := encodePacked(geometry.Indices)
	meshletBytes := encodePacked(geometry.Meshlets)

	meshletVertexBytes := encodePacked(geometry.MeshletVertices)
	triangleOffset := metadata.GetAligned(uint64(len(meshletVertexBytes)), 16)
	meshletData := make([]byte, triangleOffset+uint64(len(geometry.MeshletTriangles)))
	copy(meshletData, meshletVertexBytes)
	copy(meshletData[triangleOffset:], geometry.MeshletTriangles)

	mesh := &metadata.MeshBuffer{
		IndexCount:   uint32(len(geometry.Indices)),
		MeshletCount: uint32(len(geometry.Meshlets)),
	}

	type upload struct {
		handle *metadata.BufferHandle
		label  string
		usage  metadata.BufferUsage
		data   []byte
	}
	uploads := []upload{
		{&mesh.Vertices, name + "_vertices", metadata.BufferUsageStorage | metadata.BufferUsageDeviceAddress, vertexBytes},
		{&mesh.Indices, name + "_indices", metadata.BufferUsageIndex, indexBytes},
		{&mesh.Meshlets, name + "_meshlets", metadata.BufferUsageStorage | metadata.BufferUsageDeviceAddress, meshletBytes},
		{&mesh.MeshletData, name + "_meshlet_data", metadata.BufferUsageStorage | metadata.BufferUsageDeviceAddress, meshletData},
	}
	for _, u := range uploads {
		handle, err := gs.gpu.CreateBuffer(metadata.BufferDescription{
			Label:      u.label,
			Size:       uint64(len(u.data)),
			Usage:      u.usage,
			Visibility: metadata.MemoryVisibilityDeviceOnly,
		})
		if err != nil {
			return nil, err
		}
		if err := gs.gpu.Transfer(handle, u.data); err != nil {
			return nil, err
		}
		*u.handle = handle
	}

	vertexAddress, err := gs.gpu.BufferDeviceAddress(mesh.Vertices)
	if err != nil {
		return nil, err
	}
	meshletAddress, err := gs.gpu.BufferDeviceAddress(mesh.Meshlets)
	if err != nil {
		return nil, err
	}
	dataAddress, err := gs.gpu.BufferDeviceAddress(mesh.MeshletData)
	if err != nil {
		return nil, err
	}

	mesh.Object = metadata.MeshObject{
		VertexAddress:          vertexAddress,
		MeshletAddress:         meshletAddress,
		MeshletVertexAddress:   dataAddress,
		MeshletTriangleAddress: dataAddress + triangleOffset,
		MeshletCount:           mesh.MeshletCount,
	}
	return mesh, nil
}

// FlushMeshObjects patches every staged mesh-object record into the shared
// buffer with a single multi-region transfer. Called once per imported
// scene, never per mesh.
func (gs *GeometrySystem) FlushMeshObjects() error {
	if len(gs.pending) == 0 {
		return nil
	}

	src := make([]byte, 0, uint64(len(gs.pending))*metadata.MeshObjectSize)
	regions := make([]metadata.CopyRegion, 0, len(gs.pending))
	for _, p := range gs.pending {
		regions = append(regions, metadata.CopyRegion{
			SrcOffset: uint64(len(src)),
			DstOffset: uint64(p.objectIndex) * metadata.MeshObjectSize,
			Size:      metadata.MeshObjectSize,
		})
		src = append(src, p.record...)
	}

	if err := gs.gpu.TransferWithRegions(gs.meshObjects, src, regions); err != nil {
		return err
	}
	gs.pending = gs.pending[:0]
	return nil
}

// MeshObjectsBuffer returns the shared buffer holding every mesh's object
// record, indexed by ObjectIndex.
func (gs *GeometrySystem) MeshObjectsBuffer() metadata.BufferHandle {
	return gs.meshObjects
}

// PendingObjectCount reports how many records await the next flush.
func (gs *GeometrySystem) PendingObjectCount() int {
	return len(gs.pending)
}

func (gs *GeometrySystem) Shutdown() {
	for _, handle := range gs.uploaded {
		gs.gpu.DestroyMesh(handle)
	}
	gs.uploaded = make(map[uint64]metadata.MeshBufferHandle)
	gs.gpu.DestroyBuffer(gs.meshObjects)
}

func contentHash(vertices []metadata.Vertex, indices []uint32) uint64 {
	h := fnv.New64a()
	// fnv never fails; errors here would mean a non-fixed-size type slipped
	// into the vertex layout.
	if err := binary.Write(h, binary.LittleEndian, vertices); err != nil {
		panic(err)
	}
	if err := binary.Write(h, binary.LittleEndian, indices); err != nil {
		panic(err)
	}
	return h.Sum64()
}

func encodePacked(data interface{}) []byte {
	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, data); err != nil {
		panic(err)
	}
	return buf.Bytes()
}
