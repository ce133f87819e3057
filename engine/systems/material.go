package systems

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
)

type MaterialSystemConfig struct {
	/** @brief The maximum number of materials that can be packed at once. */
	MaxMaterialCount uint32
}

// MaterialSystem packs material records into the shared materials buffer.
// Offsets are handed out by a strictly increasing byte cursor and never
// reused; newly packed bytes reach the GPU in one transfer per import.
type MaterialSystem struct {
	Config *MaterialSystemConfig

	gpu      GPU
	textures *TextureSystem

	buffer   metadata.BufferHandle
	capacity uint64

	// cursor is the next free byte offset; flushedCursor trails it by the
	// bytes still waiting in pending.
	cursor        uint64
	flushedCursor uint64
	pending       []byte

	registered map[string]*metadata.MaterialRef
}

func NewMaterialSystem(config *MaterialSystemConfig, ts *TextureSystem, gpu GPU) (*MaterialSystem, error) {
	if config.MaxMaterialCount == 0 {
		err := fmt.Errorf("func NewMaterialSystem - config.MaxMaterialCount must be > 0")
		core.LogFatal(err.Error())
		return nil, err
	}

	capacity := uint64(config.MaxMaterialCount) * metadata.MaterialRecordSize
	buffer, err := gpu.CreateBuffer(metadata.BufferDescription{
		Label:      "materials",
		Size:       capacity,
		Usage:      metadata.BufferUsageStorage | metadata.BufferUsageDeviceAddress,
		Visibility: metadata.MemoryVisibilityDeviceOnly,
	})
	if err != nil {
		return nil, err
	}

	ms := &MaterialSystem{
		Config:     config,
		gpu:        gpu,
		textures:   ts,
		buffer:     buffer,
		capacity:   capacity,
		registered: make(map[string]*metadata.MaterialRef),
	}

	// The default material sits at offset zero so an unresolved material
	// reference still renders something visible.
	if _, err := ms.CreateMaterial(&metadata.MaterialConfig{
		Name:      metadata.DefaultMaterialName,
		BaseColor: mgl32.Vec4{1, 1, 1, 1},
		Metallic:  0,
		Roughness: 1,
		AlphaMode: metadata.AlphaModeOpaque,
	}); err != nil {
		return nil, err
	}
	return ms, nil
}

// CreateMaterial resolves the material's base-color texture, packs its
// record and appends it at the running cursor. The bytes are only staged;
// they reach the GPU on the next Flush.
func (ms *MaterialSystem) CreateMaterial(config *metadata.MaterialConfig) (*metadata.MaterialRef, error) {
	if ref, exists := ms.registered[config.Name]; exists {
		return ref, nil
	}
	if ms.cursor+metadata.MaterialRecordSize > ms.capacity {
		err := fmt.Errorf("materials buffer is full (%d bytes)", ms.capacity)
		core.LogError(err.Error())
		return nil, err
	}

	textureSlot := DefaultTextureSlot
	if config.BaseColorMap != "" {
		texture, err := ms.textures.Acquire(config.BaseColorMap, config.BaseColorPixels, config.BaseColorWidth, config.BaseColorHeight)
		if err != nil {
			core.LogWarn("material '%s' falls back to the default texture: %s", config.Name, err.Error())
		} else {
			textureSlot = texture.Slot
		}
	}

	record := metadata.MaterialRecord{
		BaseColor:        config.BaseColor,
		Metallic:         config.Metallic,
		Roughness:        config.Roughness,
		BaseColorTexture: textureSlot,
		SamplerIndex:     DefaultSamplerSlot,
	}

	ref := &metadata.MaterialRef{
		Offset:  uint32(ms.cursor),
		Blended: config.AlphaMode == metadata.AlphaModeBlend,
	}
	ms.pending = append(ms.pending, record.Encode()...)
	ms.cursor += metadata.MaterialRecordSize
	ms.registered[config.Name] = ref
	return ref, nil
}

// Flush appends every staged record to the materials buffer with a single
// transfer. Called once per imported scene.
func (ms *MaterialSystem) Flush() error {
	if len(ms.pending) == 0 {
		return nil
	}
	if err := ms.gpu.TransferAt(ms.buffer, ms.flushedCursor, ms.pending); err != nil {
		return err
	}
	ms.flushedCursor = ms.cursor
	ms.pending = ms.pending[:0]
	return nil
}

// MaterialsBuffer returns the shared buffer of packed material records.
func (ms *MaterialSystem) MaterialsBuffer() metadata.BufferHandle {
	return ms.buffer
}

// PendingBytes reports how many staged bytes await the next flush.
func (ms *MaterialSystem) PendingBytes() int {
	return len(ms.pending)
}

func (ms *MaterialSystem) Shutdown() {
	ms.registered = make(map[string]*metadata.MaterialRef)
	ms.gpu.DestroyBuffer(ms.buffer)
}
