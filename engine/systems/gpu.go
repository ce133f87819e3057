package systems

import (
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
)

// GPU is the slice of the renderer backend the resource systems consume.
// It is expressed entirely in metadata types so the systems never depend on
// the Vulkan layer and can be tested against a fake.
type GPU interface {
	CreateBuffer(description metadata.BufferDescription) (metadata.BufferHandle, error)
	CreateImage(description metadata.TextureDescription) (metadata.TextureHandle, error)
	CreateSampler(name string) (metadata.SamplerHandle, error)
	RegisterMesh(mesh metadata.MeshBuffer) (metadata.MeshBufferHandle, error)
	Mesh(h metadata.MeshBufferHandle) (*metadata.MeshBuffer, error)

	BufferDeviceAddress(h metadata.BufferHandle) (uint64, error)

	Transfer(h metadata.BufferHandle, src []byte) error
	TransferAt(h metadata.BufferHandle, dstOffset uint64, src []byte) error
	TransferWithRegions(h metadata.BufferHandle, src []byte, regions []metadata.CopyRegion) error
	TransferToImage(h metadata.TextureHandle, mips [][]byte) error

	DestroyBuffer(h metadata.BufferHandle) bool
	DestroyImage(h metadata.TextureHandle) bool
	DestroySampler(h metadata.SamplerHandle) bool
	DestroyMesh(h metadata.MeshBufferHandle) bool

	BindSampler(slot uint32, h metadata.SamplerHandle) error
	BindSampledImage(slot uint32, h metadata.TextureHandle) error
	SampledImageCapacity() uint32

	// WaitIdle blocks until the device drains every in-flight frame. The
	// texture hot-reload path relies on it before destroying images that
	// pending command buffers may still sample.
	WaitIdle() error
}
