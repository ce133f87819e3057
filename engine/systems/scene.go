package systems

import (
	"fmt"

	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/importer"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
)

// SceneSystem turns parsed documents into uploaded GPU resources plus a
// flattened spawn list for the external entity scheduler.
type SceneSystem struct {
	geometry  *GeometrySystem
	materials *MaterialSystem
}

func NewSceneSystem(gs *GeometrySystem, ms *MaterialSystem) *SceneSystem {
	return &SceneSystem{
		geometry:  gs,
		materials: ms,
	}
}

// ImportScene uploads every mesh and material the document references and
// returns spawn records ordered so a parent always precedes its children.
// ParentIndex indexes into the returned list, -1 for roots. The staged
// mesh-object and material bytes are flushed once at the end, so a whole
// scene costs two batched transfers on top of the per-resource uploads.
func (ss *SceneSystem) ImportScene(doc *importer.Document) ([]metadata.SpawnRecord, error) {
	// Meshes dedupe by source index within the document; two nodes sharing
	// a mesh index share the uploaded buffers.
	meshHandles := make(map[int]metadata.MeshBufferHandle)
	materialRefs := make(map[int]*metadata.MaterialRef)

	children := make([][]int, len(doc.Nodes))
	roots := make([]int, 0, len(doc.Nodes))
	for i, node := range doc.Nodes {
		if node.Parent == importer.NoIndex {
			roots = append(roots, i)
			continue
		}
		if node.Parent < 0 || node.Parent >= len(doc.Nodes) {
			err := fmt.Errorf("node '%s' references parent %d outside the document", node.Name, node.Parent)
			core.LogError(err.Error())
			return nil, err
		}
		children[node.Parent] = append(children[node.Parent], i)
	}

	records := make([]metadata.SpawnRecord, 0, len(doc.Nodes))
	flatIndex := make([]int, len(doc.Nodes))

	var walk func(nodeIndex, parentFlat int) error
	walk = func(nodeIndex, parentFlat int) error {
		node := &doc.Nodes[nodeIndex]
		record := metadata.SpawnRecord{
			Name:           node.Name,
			ParentIndex:    parentFlat,
			LocalTransform: node.Transform,
		}

		if node.Mesh != importer.NoIndex {
			handle, exists := meshHandles[node.Mesh]
			if !exists {
				mesh, err := doc.MeshAt(node.Mesh)
				if err != nil {
					core.LogError(err.Error())
					return err
				}
				handle, err = ss.geometry.CreateMesh(mesh.Name, mesh.Vertices, mesh.Indices)
				if err != nil {
					return err
				}
				meshHandles[node.Mesh] = handle
			}
			record.Mesh = &handle
		}

		if node.Material != importer.NoIndex {
			ref, exists := materialRefs[node.Material]
			if !exists {
				config, err := doc.MaterialAt(node.Material)
				if err != nil {
					core.LogError(err.Error())
					return err
				}
				ref, err = ss.materials.CreateMaterial(config)
				if err != nil {
					return err
				}
				materialRefs[node.Material] = ref
			}
			record.Material = ref
		}

		flatIndex[nodeIndex] = len(records)
		records = append(records, record)

		for _, child := range children[nodeIndex] {
			if err := walk(child, flatIndex[nodeIndex]); err != nil {
				return err
			}
		}
		return nil
	}

	for _, root := range roots {
		if err := walk(root, -1); err != nil {
			return nil, err
		}
	}
	if len(records) != len(doc.Nodes) {
		err := fmt.Errorf("document '%s' contains %d nodes unreachable from any root", doc.Name, len(doc.Nodes)-len(records))
		core.LogError(err.Error())
		return nil, err
	}

	if err := ss.geometry.FlushMeshObjects(); err != nil {
		return nil, err
	}
	if err := ss.materials.Flush(); err != nil {
		return nil, err
	}

	core.LogInfo("imported scene '%s': %d nodes, %d meshes, %d materials", doc.Name, len(records), len(meshHandles), len(materialRefs))
	return records, nil
}
