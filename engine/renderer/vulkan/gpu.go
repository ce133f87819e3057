package vulkan

import (
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
)

// Thin pass-throughs from the backend to its arena and descriptor table.
// The resource systems talk to the GPU exclusively through these, in terms
// of metadata types, so they never import Vulkan directly.

func (vr *VulkanBackend) CreateBuffer(description metadata.BufferDescription) (metadata.BufferHandle, error) {
	return vr.arena.CreateBuffer(description)
}

func (vr *VulkanBackend) CreateImage(description metadata.TextureDescription) (metadata.TextureHandle, error) {
	return vr.arena.CreateImage(description)
}

func (vr *VulkanBackend) CreateSampler(name string) (metadata.SamplerHandle, error) {
	return vr.arena.CreateSampler(name, DefaultSamplerConfig())
}

func (vr *VulkanBackend) RegisterMesh(mesh metadata.MeshBuffer) (metadata.MeshBufferHandle, error) {
	return vr.arena.RegisterMesh(mesh)
}

func (vr *VulkanBackend) Mesh(h metadata.MeshBufferHandle) (*metadata.MeshBuffer, error) {
	return vr.arena.Mesh(h)
}

func (vr *VulkanBackend) BufferDeviceAddress(h metadata.BufferHandle) (uint64, error) {
	return vr.arena.BufferDeviceAddress(h)
}

func (vr *VulkanBackend) Transfer(h metadata.BufferHandle, src []byte) error {
	return vr.arena.Transfer(h, src)
}

func (vr *VulkanBackend) TransferAt(h metadata.BufferHandle, dstOffset uint64, src []byte) error {
	return vr.arena.TransferAt(h, dstOffset, src)
}

func (vr *VulkanBackend) TransferWithRegions(h metadata.BufferHandle, src []byte, regions []metadata.CopyRegion) error {
	return vr.arena.TransferWithRegions(h, src, regions)
}

func (vr *VulkanBackend) TransferToImage(h metadata.TextureHandle, mips [][]byte) error {
	return vr.arena.TransferToImage(h, mips)
}

func (vr *VulkanBackend) DestroyBuffer(h metadata.BufferHandle) bool {
	return vr.arena.DestroyBuffer(h)
}

func (vr *VulkanBackend) DestroyImage(h metadata.TextureHandle) bool {
	return vr.arena.DestroyImage(h)
}

func (vr *VulkanBackend) DestroySampler(h metadata.SamplerHandle) bool {
	return vr.arena.DestroySampler(h)
}

func (vr *VulkanBackend) DestroyMesh(h metadata.MeshBufferHandle) bool {
	return vr.arena.DestroyMesh(h)
}

// BindSampler publishes a sampler at its slot of the bindless sampler binding.
func (vr *VulkanBackend) BindSampler(slot uint32, h metadata.SamplerHandle) error {
	sampler, err := vr.arena.Sampler(h)
	if err != nil {
		return err
	}
	return vr.UpdateBinding(SamplerBinding{Slot: slot, Sampler: sampler.Handle})
}

// BindSampledImage publishes a texture's image view at its slot of the
// bindless sampled-image binding.
func (vr *VulkanBackend) BindSampledImage(slot uint32, h metadata.TextureHandle) error {
	image, err := vr.arena.Image(h)
	if err != nil {
		return err
	}
	return vr.UpdateBinding(SampledImageBinding{Slot: slot, View: image.View})
}

// BindStorageImage publishes a texture's image view at its slot of the
// bindless storage-image binding.
func (vr *VulkanBackend) BindStorageImage(slot uint32, h metadata.TextureHandle) error {
	image, err := vr.arena.Image(h)
	if err != nil {
		return err
	}
	return vr.UpdateBinding(StorageImageBinding{Slot: slot, View: image.View})
}

// SampledImageCapacity reports how many sampled-image slots the bindless
// table declares. Texture slots are handed out below this bound.
func (vr *VulkanBackend) SampledImageCapacity() uint32 {
	return vr.descriptors.Table.Capacity(metadata.DescriptorKindSampledImage)
}
