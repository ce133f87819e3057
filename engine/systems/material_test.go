package systems

import (
	"encoding/binary"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
)

func newMaterialFixture(t *testing.T) (*fakeDeviceGPU, *MaterialSystem) {
	t.Helper()
	gpu := newFakeDeviceGPU()
	ts, err := NewTextureSystem(&TextureSystemConfig{MaxTextureCount: 16}, nil, gpu)
	require.NoError(t, err)
	ms, err := NewMaterialSystem(&MaterialSystemConfig{MaxMaterialCount: 16}, ts, gpu)
	require.NoError(t, err)
	return gpu, ms
}

func opaqueMaterial(name string) *metadata.MaterialConfig {
	return &metadata.MaterialConfig{
		Name:      name,
		BaseColor: mgl32.Vec4{1, 1, 1, 1},
		Roughness: 0.5,
		AlphaMode: metadata.AlphaModeOpaque,
	}
}

func TestMaterialOffsetsStrictlyIncrease(t *testing.T) {
	_, ms := newMaterialFixture(t)

	// The default material occupies offset zero.
	previous := uint32(0)
	for _, name := range []string{"wood", "steel", "glass"} {
		ref, err := ms.CreateMaterial(opaqueMaterial(name))
		require.NoError(t, err)
		assert.Equal(t, previous+uint32(metadata.MaterialRecordSize), ref.Offset)
		previous = ref.Offset
	}
}

func TestMaterialDedupeByName(t *testing.T) {
	_, ms := newMaterialFixture(t)

	first, err := ms.CreateMaterial(opaqueMaterial("wood"))
	require.NoError(t, err)
	second, err := ms.CreateMaterial(opaqueMaterial("wood"))
	require.NoError(t, err)

	assert.Same(t, first, second)
}

func TestMaterialClassifiesBlended(t *testing.T) {
	_, ms := newMaterialFixture(t)

	config := opaqueMaterial("fog")
	config.AlphaMode = metadata.AlphaModeBlend
	ref, err := ms.CreateMaterial(config)
	require.NoError(t, err)

	assert.True(t, ref.Blended)

	opaque, err := ms.CreateMaterial(opaqueMaterial("rock"))
	require.NoError(t, err)
	assert.False(t, opaque.Blended)
}

func TestMaterialFlushIsOneTransfer(t *testing.T) {
	gpu, ms := newMaterialFixture(t)

	_, err := ms.CreateMaterial(opaqueMaterial("wood"))
	require.NoError(t, err)
	_, err = ms.CreateMaterial(opaqueMaterial("steel"))
	require.NoError(t, err)
	require.NotZero(t, ms.PendingBytes())

	before := gpu.transferCalls
	require.NoError(t, ms.Flush())

	assert.Equal(t, before+1, gpu.transferCalls)
	assert.Zero(t, ms.PendingBytes())

	// A second flush with nothing staged is free.
	require.NoError(t, ms.Flush())
	assert.Equal(t, before+1, gpu.transferCalls)
}

func TestMaterialMissingTextureFallsBack(t *testing.T) {
	gpu, ms := newMaterialFixture(t)

	config := opaqueMaterial("broken")
	config.BaseColorMap = "missing_texture"
	ref, err := ms.CreateMaterial(config)
	require.NoError(t, err)
	require.NoError(t, ms.Flush())

	// Decode the packed record straight out of the materials buffer.
	buffer := gpu.buffers[ms.MaterialsBuffer().Handle]
	record := buffer.data[ref.Offset : uint64(ref.Offset)+metadata.MaterialRecordSize]
	textureSlot := binary.LittleEndian.Uint32(record[24:28])
	assert.Equal(t, DefaultTextureSlot, textureSlot)
}

func TestMaterialBufferCapacity(t *testing.T) {
	gpu := newFakeDeviceGPU()
	ts, err := NewTextureSystem(&TextureSystemConfig{MaxTextureCount: 4}, nil, gpu)
	require.NoError(t, err)
	ms, err := NewMaterialSystem(&MaterialSystemConfig{MaxMaterialCount: 2}, ts, gpu)
	require.NoError(t, err)

	// One slot left after the default material.
	_, err = ms.CreateMaterial(opaqueMaterial("wood"))
	require.NoError(t, err)
	_, err = ms.CreateMaterial(opaqueMaterial("steel"))
	assert.Error(t, err)
}
