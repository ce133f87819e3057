package metadata

type ResourceType int

/** @brief Pre-defined resource types. */
const (
	/** @brief No resource type, used as a sentinel for unknown files. */
	ResourceTypeNone ResourceType = iota
	/** @brief Binary resource type. */
	ResourceTypeBinary
	/** @brief Image resource type. */
	ResourceTypeImage
	/** @brief Shader binary (SPIR-V) resource type. */
	ResourceTypeShader
	/** @brief Cached compressed texture container. */
	ResourceTypeTextureCache
)

/**
 * @brief A generic structure to hold loaded asset data.
 */
type Resource struct {
	/** @brief The name of the resource. */
	Name string
	/** @brief The full file path of the resource. */
	FullPath string
	/** @brief The size of the resource data in bytes. */
	DataSize uint64
	/** @brief The resource data. */
	Data interface{}
}

// ImageResourceData is the decoded pixel payload an image loader returns.
// Pixels are tightly packed RGBA, 4 channels, row-major, top-left origin.
type ImageResourceData struct {
	ChannelCount uint8
	Width        uint32
	Height       uint32
	Pixels       []byte
}
