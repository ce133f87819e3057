package systems

import (
	"encoding/binary"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/lumen/engine/importer"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
)

func newSceneFixture(t *testing.T) (*fakeDeviceGPU, *SceneSystem, *GeometrySystem, *MaterialSystem) {
	t.Helper()
	gpu := newFakeDeviceGPU()
	ts, err := NewTextureSystem(&TextureSystemConfig{MaxTextureCount: 16}, nil, gpu)
	require.NoError(t, err)
	ms, err := NewMaterialSystem(&MaterialSystemConfig{MaxMaterialCount: 16}, ts, gpu)
	require.NoError(t, err)
	gs, err := NewGeometrySystem(&GeometrySystemConfig{MaxMeshCount: 16}, gpu)
	require.NoError(t, err)
	return gpu, NewSceneSystem(gs, ms), gs, ms
}

func TestImportSingleNodeScene(t *testing.T) {
	gpu, scene, gs, _ := newSceneFixture(t)

	records, err := scene.ImportScene(importer.BuiltinCube())
	require.NoError(t, err)

	require.Len(t, records, 1)
	record := records[0]
	assert.Equal(t, "cube", record.Name)
	assert.Equal(t, -1, record.ParentIndex)
	require.NotNil(t, record.Mesh)
	require.NotNil(t, record.Material)

	// One mesh-buffer entry, one material after the default.
	assert.Len(t, gpu.meshes, 1)
	assert.Equal(t, uint32(metadata.MaterialRecordSize), record.Material.Offset)
	assert.False(t, record.Material.Blended)

	// The checker texture landed at the slot after the default texture.
	assert.Len(t, gpu.boundImages, 2)
	_, bound := gpu.boundImages[1]
	assert.True(t, bound)

	// The mesh object was patched into the shared buffer in one batched
	// transfer and its record is addressable at object index zero.
	assert.Equal(t, 1, gpu.regionTransferCalls)
	mesh, err := gpu.Mesh(*record.Mesh)
	require.NoError(t, err)
	assert.Equal(t, uint32(0), mesh.ObjectIndex)
	assert.Equal(t, uint32(36), mesh.IndexCount)

	objects := gpu.buffers[gs.MeshObjectsBuffer().Handle]
	meshletCount := binary.LittleEndian.Uint32(objects.data[32:36])
	assert.Equal(t, mesh.MeshletCount, meshletCount)
	assert.NotZero(t, meshletCount)
}

func TestImportFlattensHierarchy(t *testing.T) {
	_, scene, _, _ := newSceneFixture(t)

	// Children listed before their parent; the flat list must still put
	// every parent first.
	doc := &importer.Document{
		Name: "hierarchy",
		Nodes: []importer.Node{
			{Name: "child", Parent: 1, Mesh: importer.NoIndex, Material: importer.NoIndex, Transform: mgl32.Ident4()},
			{Name: "root", Parent: importer.NoIndex, Mesh: importer.NoIndex, Material: importer.NoIndex, Transform: mgl32.Ident4()},
			{Name: "grandchild", Parent: 0, Mesh: importer.NoIndex, Material: importer.NoIndex, Transform: mgl32.Ident4()},
		},
	}

	records, err := scene.ImportScene(doc)
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, "root", records[0].Name)
	assert.Equal(t, -1, records[0].ParentIndex)
	assert.Equal(t, "child", records[1].Name)
	assert.Equal(t, 0, records[1].ParentIndex)
	assert.Equal(t, "grandchild", records[2].Name)
	assert.Equal(t, 1, records[2].ParentIndex)
	assert.Nil(t, records[0].Mesh)
	assert.Nil(t, records[0].Material)
}

func TestImportRejectsUnreachableNodes(t *testing.T) {
	_, scene, _, _ := newSceneFixture(t)

	doc := &importer.Document{
		Name: "cycle",
		Nodes: []importer.Node{
			{Name: "ouroboros", Parent: 0, Mesh: importer.NoIndex, Material: importer.NoIndex},
		},
	}

	_, err := scene.ImportScene(doc)
	assert.Error(t, err)
}

func TestImportSharesIdenticalMeshes(t *testing.T) {
	gpu, scene, _, _ := newSceneFixture(t)

	cube := importer.BuiltinCube()
	// Two extra nodes: one sharing the mesh index, one referencing a second
	// mesh with identical content.
	cube.Meshes = append(cube.Meshes, cube.Meshes[0])
	cube.Nodes = append(cube.Nodes,
		importer.Node{Name: "twin", Parent: 0, Mesh: 0, Material: importer.NoIndex, Transform: mgl32.Ident4()},
		importer.Node{Name: "clone", Parent: 0, Mesh: 1, Material: importer.NoIndex, Transform: mgl32.Ident4()},
	)

	records, err := scene.ImportScene(cube)
	require.NoError(t, err)
	require.Len(t, records, 3)

	// Same content, one upload.
	assert.Len(t, gpu.meshes, 1)
	assert.Equal(t, *records[0].Mesh, *records[1].Mesh)
	assert.Equal(t, *records[0].Mesh, *records[2].Mesh)
}

func TestImportBatchesUploadsPerScene(t *testing.T) {
	gpu, scene, gs, ms := newSceneFixture(t)

	_, err := scene.ImportScene(importer.BuiltinCube())
	require.NoError(t, err)

	// Nothing left staged after the import flushed.
	assert.Zero(t, gs.PendingObjectCount())
	assert.Zero(t, ms.PendingBytes())
	assert.Equal(t, 1, gpu.regionTransferCalls)
}
