package systems

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/lumen/engine/assets"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
)

// fakeStaleSource hands out one batch of stale entries and then goes quiet,
// mirroring the consume-and-clear contract of the asset manager.
type fakeStaleSource struct {
	stale map[string]metadata.ResourceType
}

func (s *fakeStaleSource) ConsumeStale() map[string]metadata.ResourceType {
	out := s.stale
	s.stale = nil
	return out
}

func checkerDescription(name string, side uint32) *metadata.TextureDescription {
	pixels := make([]byte, side*side*4)
	for i := 3; i < len(pixels); i += 4 {
		pixels[i] = 255
	}
	return &metadata.TextureDescription{
		Name:      name,
		Width:     side,
		Height:    side,
		MipLevels: 1,
		Format:    metadata.TextureFormatRGBA8,
		Mips:      [][]byte{pixels},
	}
}

func TestTextureAcquireAssignsMonotonicSlots(t *testing.T) {
	gpu := newFakeDeviceGPU()
	ts, err := NewTextureSystem(&TextureSystemConfig{MaxTextureCount: 16}, nil, gpu)
	require.NoError(t, err)

	// The default checker occupies slot zero.
	assert.Equal(t, uint32(0), ts.DefaultTexture.Slot)

	pixels := make([]byte, 4*4*4)
	first, err := ts.Acquire("wall", pixels, 4, 4)
	require.NoError(t, err)
	second, err := ts.Acquire("floor", pixels, 4, 4)
	require.NoError(t, err)

	assert.Equal(t, uint32(1), first.Slot)
	assert.Equal(t, uint32(2), second.Slot)

	// Re-acquiring returns the registered texture without a new upload.
	again, err := ts.Acquire("wall", nil, 0, 0)
	require.NoError(t, err)
	assert.Same(t, first, again)
}

func TestTextureReloadWaitsForDeviceIdle(t *testing.T) {
	gpu := newFakeDeviceGPU()
	cacheDir := t.TempDir()
	watcher := &fakeStaleSource{}
	ts, err := NewTextureSystem(&TextureSystemConfig{
		MaxTextureCount: 16,
		CacheDir:        cacheDir,
	}, watcher, gpu)
	require.NoError(t, err)

	require.NoError(t, assets.SaveTextureContainer(filepath.Join(cacheDir, "wall.ltc"), checkerDescription("wall", 4)))
	texture, err := ts.Acquire("wall", nil, 0, 0)
	require.NoError(t, err)
	oldHandle := texture.Handle
	slot := texture.Slot

	// Nothing stale yet: no stall, no rebind.
	ts.ReloadStale()
	assert.Zero(t, gpu.waitIdleCalls)

	// The container changes on disk; the next reload must drain the device
	// before the old image goes away, since in-flight frames may still
	// sample it.
	require.NoError(t, assets.SaveTextureContainer(filepath.Join(cacheDir, "wall.ltc"), checkerDescription("wall", 8)))
	watcher.stale = map[string]metadata.ResourceType{
		"textures/wall.ltc": metadata.ResourceTypeTextureCache,
	}
	ts.ReloadStale()

	assert.Equal(t, 1, gpu.waitIdleCalls)
	assert.Equal(t, slot, texture.Slot, "reload keeps the slot")
	assert.NotEqual(t, oldHandle, texture.Handle)
	assert.Equal(t, uint32(1), texture.Generation)
	assert.Equal(t, uint32(8), texture.Width)

	_, oldAlive := gpu.images[oldHandle.Handle]
	assert.False(t, oldAlive, "old image destroyed after the stall")
	assert.Equal(t, texture.Handle, gpu.boundImages[slot])
}

func TestTextureReloadSkipsUnregisteredNames(t *testing.T) {
	gpu := newFakeDeviceGPU()
	watcher := &fakeStaleSource{stale: map[string]metadata.ResourceType{
		"textures/ghost.ltc": metadata.ResourceTypeTextureCache,
	}}
	ts, err := NewTextureSystem(&TextureSystemConfig{MaxTextureCount: 16}, watcher, gpu)
	require.NoError(t, err)

	ts.ReloadStale()
	assert.Zero(t, gpu.waitIdleCalls, "no registered texture, no stall")
}
