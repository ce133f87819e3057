package systems

import (
	"path/filepath"

	"github.com/spaghettifunk/lumen/engine/assets"
	"github.com/spaghettifunk/lumen/engine/importer"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
)

type SystemManagerConfig struct {
	AssetsDir        string
	MaxMeshCount     uint32
	MaxMaterialCount uint32
	MaxTextureCount  uint32
}

// SystemManager wires the resource systems together in dependency order and
// tears them down in reverse.
type SystemManager struct {
	assetManager   *assets.AssetManager
	textureSystem  *TextureSystem
	materialSystem *MaterialSystem
	geometrySystem *GeometrySystem
	sceneSystem    *SceneSystem
}

func NewSystemManager(config *SystemManagerConfig, gpu GPU) (*SystemManager, error) {
	am, err := assets.NewAssetManager()
	if err != nil {
		return nil, err
	}
	if config.AssetsDir != "" {
		if err := am.Initialize(config.AssetsDir); err != nil {
			return nil, err
		}
	}

	ts, err := NewTextureSystem(&TextureSystemConfig{
		MaxTextureCount: config.MaxTextureCount,
		CacheDir:        filepath.Join(config.AssetsDir, "textures"),
	}, am, gpu)
	if err != nil {
		return nil, err
	}
	ms, err := NewMaterialSystem(&MaterialSystemConfig{
		MaxMaterialCount: config.MaxMaterialCount,
	}, ts, gpu)
	if err != nil {
		return nil, err
	}
	gs, err := NewGeometrySystem(&GeometrySystemConfig{
		MaxMeshCount: config.MaxMeshCount,
	}, gpu)
	if err != nil {
		return nil, err
	}

	return &SystemManager{
		assetManager:   am,
		textureSystem:  ts,
		materialSystem: ms,
		geometrySystem: gs,
		sceneSystem:    NewSceneSystem(gs, ms),
	}, nil
}

// ImportScene uploads a parsed document and returns its spawn records.
func (sm *SystemManager) ImportScene(doc *importer.Document) ([]metadata.SpawnRecord, error) {
	return sm.sceneSystem.ImportScene(doc)
}

// Update runs the per-tick housekeeping: stale assets changed on disk are
// re-imported. Called from the render thread between frames.
func (sm *SystemManager) Update() {
	sm.textureSystem.ReloadStale()
}

// MeshObjectsBuffer returns the shared mesh-object records buffer.
func (sm *SystemManager) MeshObjectsBuffer() metadata.BufferHandle {
	return sm.geometrySystem.MeshObjectsBuffer()
}

// MaterialsBuffer returns the shared packed materials buffer.
func (sm *SystemManager) MaterialsBuffer() metadata.BufferHandle {
	return sm.materialSystem.MaterialsBuffer()
}

func (sm *SystemManager) TextureSystem() *TextureSystem {
	return sm.textureSystem
}

func (sm *SystemManager) GeometrySystem() *GeometrySystem {
	return sm.geometrySystem
}

func (sm *SystemManager) MaterialSystem() *MaterialSystem {
	return sm.materialSystem
}

func (sm *SystemManager) Shutdown() {
	sm.geometrySystem.Shutdown()
	sm.materialSystem.Shutdown()
	sm.textureSystem.Shutdown()
	sm.assetManager.Shutdown()
}
