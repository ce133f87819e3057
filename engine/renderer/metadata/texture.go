package metadata

/** @brief The default texture name. */
const DefaultTextureName string = "default"

// TextureFormat tags the pixel format a texture is stored in on the GPU.
type TextureFormat int

const (
	// TextureFormatRGBA8 is uncompressed 8-bit RGBA.
	TextureFormatRGBA8 TextureFormat = iota
	// TextureFormatBC7 is the block-compressed form cached on disk.
	TextureFormatBC7
)

// Texture describes one uploaded texture: its image handle, its slot in the
// bindless sampled-image binding and its dimensions.
type Texture struct {
	Name      string
	Handle    TextureHandle
	Slot      uint32
	Width     uint32
	Height    uint32
	MipLevels uint32
	Format    TextureFormat
	// Generation increments every time the texture's contents are replaced,
	// e.g. after the on-disk cache container changed.
	Generation uint32
}

// TextureDescription is the creation request handed to the arena.
type TextureDescription struct {
	Name      string
	Width     uint32
	Height    uint32
	MipLevels uint32
	Format    TextureFormat
	// Mips holds one byte slice per mip level, tightly packed pixel data,
	// level 0 first.
	Mips [][]byte
}
