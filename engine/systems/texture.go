package systems

import (
	"fmt"
	"image"
	"path/filepath"
	"strings"

	xdraw "golang.org/x/image/draw"

	"github.com/spaghettifunk/lumen/engine/assets"
	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
)

type TextureSystemConfig struct {
	/** @brief The maximum number of textures that can be loaded at once. */
	MaxTextureCount uint32
	/** @brief Directory holding cached compressed texture containers. */
	CacheDir string
}

/** @brief The sampled-image slot the default texture is bound to. */
const DefaultTextureSlot uint32 = 0

/** @brief The sampler slot the default sampler is bound to. */
const DefaultSamplerSlot uint32 = 0

// StaleSource reports which watched asset files changed since the last
// call. The asset manager implements it; tests substitute their own.
type StaleSource interface {
	ConsumeStale() map[string]metadata.ResourceType
}

// TextureSystem uploads textures through the arena and hands out bindless
// sampled-image slots monotonically. A texture whose compressed container
// exists on disk skips the decode and mip-generation path entirely.
type TextureSystem struct {
	Config *TextureSystemConfig

	gpu          GPU
	assetManager StaleSource

	// Registered textures by name. Slots are never reused; a reloaded
	// texture keeps its slot and bumps its generation.
	registered     map[string]*metadata.Texture
	nextSlot       uint32
	defaultSampler metadata.SamplerHandle
	DefaultTexture *metadata.Texture
}

func NewTextureSystem(config *TextureSystemConfig, am StaleSource, gpu GPU) (*TextureSystem, error) {
	if config.MaxTextureCount == 0 {
		err := fmt.Errorf("func NewTextureSystem - config.MaxTextureCount must be > 0")
		core.LogFatal(err.Error())
		return nil, err
	}

	ts := &TextureSystem{
		Config:       config,
		gpu:          gpu,
		assetManager: am,
		registered:   make(map[string]*metadata.Texture),
	}

	sampler, err := gpu.CreateSampler("default")
	if err != nil {
		return nil, err
	}
	if err := gpu.BindSampler(DefaultSamplerSlot, sampler); err != nil {
		return nil, err
	}
	ts.defaultSampler = sampler

	if err := ts.createDefaultTexture(); err != nil {
		return nil, err
	}
	return ts, nil
}

// createDefaultTexture uploads the magenta/black checkerboard bound at slot
// zero, returned whenever a real texture is missing.
func (ts *TextureSystem) createDefaultTexture() error {
	const side = 16
	pixels := make([]byte, side*side*4)
	for y := 0; y < side; y++ {
		for x := 0; x < side; x++ {
			i := (y*side + x) * 4
			if (x/4+y/4)%2 == 0 {
				pixels[i+0] = 255
				pixels[i+2] = 255
			}
			pixels[i+3] = 255
		}
	}

	texture, err := ts.upload(&metadata.TextureDescription{
		Name:      metadata.DefaultTextureName,
		Width:     side,
		Height:    side,
		MipLevels: 1,
		Format:    metadata.TextureFormatRGBA8,
		Mips:      [][]byte{pixels},
	})
	if err != nil {
		return err
	}
	ts.DefaultTexture = texture
	return nil
}

// Acquire returns the texture registered under name, loading and uploading
// it first if needed. The cached container is preferred; the raw pixels are
// only consulted on a cache miss. Pixels are tightly packed RGBA.
func (ts *TextureSystem) Acquire(name string, pixels []byte, width, height uint32) (*metadata.Texture, error) {
	if texture, exists := ts.registered[name]; exists {
		return texture, nil
	}
	if uint32(len(ts.registered)) >= ts.Config.MaxTextureCount {
		err := fmt.Errorf("texture limit of %d reached", ts.Config.MaxTextureCount)
		core.LogError(err.Error())
		return nil, err
	}

	if description, err := ts.loadCached(name); err == nil {
		return ts.upload(description)
	}

	// Cache miss, fall back to the decode path.
	if len(pixels) == 0 {
		err := fmt.Errorf("texture '%s' has no cached container and no source pixels", name)
		core.LogError(err.Error())
		return nil, err
	}
	if uint64(len(pixels)) != uint64(width)*uint64(height)*4 {
		err := fmt.Errorf("texture '%s' pixel data does not match %dx%d RGBA", name, width, height)
		core.LogError(err.Error())
		return nil, err
	}

	description := &metadata.TextureDescription{
		Name:   name,
		Width:  width,
		Height: height,
		Format: metadata.TextureFormatRGBA8,
		Mips:   buildMipChain(pixels, width, height),
	}
	description.MipLevels = uint32(len(description.Mips))

	if ts.Config.CacheDir != "" {
		if err := assets.SaveTextureContainer(ts.cachePath(name), description); err != nil {
			core.LogWarn("failed to write texture container for '%s': %s", name, err.Error())
		}
	}
	return ts.upload(description)
}

func (ts *TextureSystem) loadCached(name string) (*metadata.TextureDescription, error) {
	if ts.Config.CacheDir == "" {
		return nil, fmt.Errorf("no texture cache directory configured")
	}
	return assets.LoadTextureContainer(ts.cachePath(name), name)
}

func (ts *TextureSystem) cachePath(name string) string {
	return filepath.Join(ts.Config.CacheDir, name+".ltc")
}

// upload creates the device image, copies every mip level and binds the
// image at the next free sampled-image slot.
func (ts *TextureSystem) upload(description *metadata.TextureDescription) (*metadata.Texture, error) {
	if ts.nextSlot >= ts.gpu.SampledImageCapacity() {
		err := fmt.Errorf("sampled image binding is full (%d slots)", ts.gpu.SampledImageCapacity())
		core.LogError(err.Error())
		return nil, err
	}

	handle, err := ts.gpu.CreateImage(*description)
	if err != nil {
		return nil, err
	}
	if err := ts.gpu.TransferToImage(handle, description.Mips); err != nil {
		ts.gpu.DestroyImage(handle)
		return nil, err
	}

	slot := ts.nextSlot
	if err := ts.gpu.BindSampledImage(slot, handle); err != nil {
		ts.gpu.DestroyImage(handle)
		return nil, err
	}
	ts.nextSlot++

	texture := &metadata.Texture{
		Name:      description.Name,
		Handle:    handle,
		Slot:      slot,
		Width:     description.Width,
		Height:    description.Height,
		MipLevels: description.MipLevels,
		Format:    description.Format,
	}
	ts.registered[description.Name] = texture
	return texture, nil
}

// ReloadStale re-imports textures whose cache containers changed on disk.
// The device is drained before any image is replaced. A reloaded texture
// keeps its slot; the binding is rewritten to the new image and the
// generation bumped so interested systems notice.
func (ts *TextureSystem) ReloadStale() {
	if ts.assetManager == nil {
		return
	}
	stale := make([]*metadata.Texture, 0)
	for path, resourceType := range ts.assetManager.ConsumeStale() {
		if resourceType != metadata.ResourceTypeTextureCache {
			continue
		}
		name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		if texture, exists := ts.registered[name]; exists {
			stale = append(stale, texture)
		}
	}
	if len(stale) == 0 {
		return
	}

	// In-flight frames may still sample the images about to be replaced,
	// and their descriptor slots cannot be rewritten while recorded command
	// buffers reference them. Hot reload is a development path, so a full
	// device stall is acceptable.
	if err := ts.gpu.WaitIdle(); err != nil {
		core.LogError(err.Error())
		return
	}

	for _, texture := range stale {
		name := texture.Name
		description, err := ts.loadCached(name)
		if err != nil {
			core.LogWarn("stale texture '%s' could not be reloaded: %s", name, err.Error())
			continue
		}
		handle, err := ts.gpu.CreateImage(*description)
		if err != nil {
			core.LogError(err.Error())
			continue
		}
		if err := ts.gpu.TransferToImage(handle, description.Mips); err != nil {
			ts.gpu.DestroyImage(handle)
			core.LogError(err.Error())
			continue
		}
		if err := ts.gpu.BindSampledImage(texture.Slot, handle); err != nil {
			ts.gpu.DestroyImage(handle)
			core.LogError(err.Error())
			continue
		}

		ts.gpu.DestroyImage(texture.Handle)
		texture.Handle = handle
		texture.Width = description.Width
		texture.Height = description.Height
		texture.MipLevels = description.MipLevels
		texture.Format = description.Format
		texture.Generation++
		core.LogInfo("texture '%s' reloaded, generation %d", name, texture.Generation)
	}
}

func (ts *TextureSystem) Shutdown() {
	for _, texture := range ts.registered {
		ts.gpu.DestroyImage(texture.Handle)
	}
	ts.registered = make(map[string]*metadata.Texture)
	ts.gpu.DestroySampler(ts.defaultSampler)
}

// buildMipChain downsamples the RGBA base level all the way to 1x1.
func buildMipChain(pixels []byte, width, height uint32) [][]byte {
	base := &image.RGBA{
		Pix:    pixels,
		Stride: int(width) * 4,
		Rect:   image.Rect(0, 0, int(width), int(height)),
	}

	mips := [][]byte{pixels}
	previous := base
	w, h := width, height
	for w > 1 || h > 1 {
		w, h = mipDimension(w), mipDimension(h)
		level := image.NewRGBA(image.Rect(0, 0, int(w), int(h)))
		xdraw.ApproxBiLinear.Scale(level, level.Rect, previous, previous.Rect, xdraw.Src, nil)
		mips = append(mips, level.Pix)
		previous = level
	}
	return mips
}

func mipDimension(d uint32) uint32 {
	if d > 1 {
		return d / 2
	}
	return 1
}
