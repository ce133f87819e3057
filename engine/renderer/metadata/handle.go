package metadata

import (
	"github.com/spaghettifunk/lumen/engine/containers"
)

// Typed wrappers around the generation-checked slot handle. Each resource
// kind gets its own type so a buffer handle can never be passed where a
// texture handle is expected.

type BufferHandle struct {
	containers.Handle
}

type TextureHandle struct {
	containers.Handle
}

type SamplerHandle struct {
	containers.Handle
}

type MeshBufferHandle struct {
	containers.Handle
}
