package vulkan

import (
	"fmt"
	"math"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/lumen/engine/containers"
	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
)

const (
	/** @brief Size of the shared staging buffer. Larger transfers are chunked. */
	StagingBufferSize = 64 * 1024 * 1024
	// Buffers below this size get uniform usage in addition to storage so
	// small constant blocks can be bound either way.
	uniformClassLimit = 64 * 1024
)

// Fence waits during transfers and frame pacing never give up on a live
// device. A timeout here means the device is lost, which is fatal anyway.
const waitForever = math.MaxUint64

/**
 * @brief Arena owns every GPU allocation the renderer makes. Resources live
 * in generation-checked slot arrays; handles returned from the Create calls
 * stay valid until the matching Destroy, and go reliably stale afterwards.
 *
 * The arena is written to by a single goroutine per tick, so it carries no
 * locks.
 */
type Arena struct {
	context *VulkanContext

	buffers  *containers.SlotArray[AllocatedBuffer]
	images   *containers.SlotArray[AllocatedImage]
	samplers *containers.SlotArray[AllocatedSampler]
	meshes   *containers.SlotArray[metadata.MeshBuffer]

	staging       *AllocatedBuffer
	transferFence *VulkanFence
}

type ArenaConfig struct {
	MaxBuffers  uint32
	MaxImages   uint32
	MaxSamplers uint32
	MaxMeshes   uint32
}

func NewArena(context *VulkanContext, config ArenaConfig) (*Arena, error) {
	staging, err := BufferCreate(context, "arena_staging", StagingBufferSize,
		vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit))
	if err != nil {
		return nil, err
	}
	if _, err := staging.Map(context); err != nil {
		staging.Destroy(context)
		return nil, err
	}

	fence, err := NewFence(context, false)
	if err != nil {
		staging.Destroy(context)
		return nil, err
	}

	return &Arena{
		context:       context,
		buffers:       containers.NewSlotArray[AllocatedBuffer](config.MaxBuffers),
		images:        containers.NewSlotArray[AllocatedImage](config.MaxImages),
		samplers:      containers.NewSlotArray[AllocatedSampler](config.MaxSamplers),
		meshes:        containers.NewSlotArray[metadata.MeshBuffer](config.MaxMeshes),
		staging:       staging,
		transferFence: fence,
	}, nil
}

func bufferUsageToVk(usage metadata.BufferUsage) vk.BufferUsageFlags {
	var flags vk.BufferUsageFlags
	if usage&metadata.BufferUsageVertex != 0 {
		flags |= vk.BufferUsageFlags(vk.BufferUsageVertexBufferBit)
	}
	if usage&metadata.BufferUsageIndex != 0 {
		flags |= vk.BufferUsageFlags(vk.BufferUsageIndexBufferBit)
	}
	if usage&metadata.BufferUsageStorage != 0 {
		flags |= vk.BufferUsageFlags(vk.BufferUsageStorageBufferBit)
	}
	if usage&metadata.BufferUsageUniform != 0 {
		flags |= vk.BufferUsageFlags(vk.BufferUsageUniformBufferBit)
	}
	if usage&metadata.BufferUsageIndirect != 0 {
		flags |= vk.BufferUsageFlags(vk.BufferUsageIndirectBufferBit)
	}
	if usage&metadata.BufferUsageTransferSrc != 0 {
		flags |= vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit)
	}
	if usage&metadata.BufferUsageTransferDst != 0 {
		flags |= vk.BufferUsageFlags(vk.BufferUsageTransferDstBit)
	}
	if usage&metadata.BufferUsageDeviceAddress != 0 {
		flags |= vk.BufferUsageFlags(vk.BufferUsageShaderDeviceAddressBit)
	}
	return flags
}

// CreateBuffer allocates a device buffer and returns its handle. Callers must
// pick a memory visibility; the zero value is a programming error and fails
// fast.
func (a *Arena) CreateBuffer(description metadata.BufferDescription) (metadata.BufferHandle, error) {
	if description.Visibility == metadata.MemoryVisibilityUnspecified {
		core.LogFatal("buffer '%s' created without a memory visibility", description.Label)
	}
	if description.Label == "" {
		description.Label = core.GenerateResourceName("buffer")
	}

	usage := description.Usage | metadata.BufferUsageTransferDst
	if description.Usage&metadata.BufferUsageStorage != 0 && description.Size < uniformClassLimit {
		// Small storage blocks bind as uniform buffers too.
		usage |= metadata.BufferUsageUniform
	}

	memoryFlags := vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit)
	if description.Visibility == metadata.MemoryVisibilityHostVisible {
		memoryFlags = vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit | vk.MemoryPropertyHostCoherentBit)
		if a.context.Device.SupportsDeviceLocalHostVisible {
			memoryFlags |= vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit)
		}
	}

	buffer, err := BufferCreate(a.context, description.Label, description.Size, bufferUsageToVk(usage), memoryFlags)
	if err != nil {
		return metadata.BufferHandle{}, err
	}

	h, err := a.buffers.Insert(*buffer)
	if err != nil {
		buffer.Destroy(a.context)
		core.LogError(err.Error())
		return metadata.BufferHandle{}, err
	}
	core.LogDebug("arena: buffer '%s' created (%d bytes, %s) as %s", description.Label, description.Size, description.Visibility, h)
	return metadata.BufferHandle{Handle: h}, nil
}

func (a *Arena) CreateImage(description metadata.TextureDescription) (metadata.TextureHandle, error) {
	if description.Name == "" {
		description.Name = core.GenerateResourceName("image")
	}
	format := vk.FormatR8g8b8a8Unorm
	if description.Format == metadata.TextureFormatBC7 {
		format = vk.FormatBc7UnormBlock
	}
	image, err := ImageCreate(a.context, description.Name, description.Width, description.Height, description.MipLevels,
		format, vk.ImageTilingOptimal,
		vk.ImageUsageFlags(vk.ImageUsageTransferDstBit|vk.ImageUsageSampledBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit),
		true, vk.ImageAspectFlags(vk.ImageAspectColorBit))
	if err != nil {
		return metadata.TextureHandle{}, err
	}

	h, err := a.images.Insert(*image)
	if err != nil {
		image.Destroy(a.context)
		core.LogError(err.Error())
		return metadata.TextureHandle{}, err
	}
	return metadata.TextureHandle{Handle: h}, nil
}

func (a *Arena) CreateSampler(name string, config SamplerConfig) (metadata.SamplerHandle, error) {
	if name == "" {
		name = core.GenerateResourceName("sampler")
	}
	sampler, err := SamplerCreate(a.context, name, config)
	if err != nil {
		return metadata.SamplerHandle{}, err
	}
	h, err := a.samplers.Insert(*sampler)
	if err != nil {
		sampler.Destroy(a.context)
		core.LogError(err.Error())
		return metadata.SamplerHandle{}, err
	}
	return metadata.SamplerHandle{Handle: h}, nil
}

// RegisterMesh stores the mesh record assembled by the geometry system.
func (a *Arena) RegisterMesh(mesh metadata.MeshBuffer) (metadata.MeshBufferHandle, error) {
	h, err := a.meshes.Insert(mesh)
	if err != nil {
		core.LogError(err.Error())
		return metadata.MeshBufferHandle{}, err
	}
	return metadata.MeshBufferHandle{Handle: h}, nil
}

func (a *Arena) Buffer(h metadata.BufferHandle) (*AllocatedBuffer, error) {
	buffer, ok := a.buffers.Get(h.Handle)
	if !ok {
		return nil, fmt.Errorf("buffer %s: %w", h.Handle, core.ErrStaleHandle)
	}
	return buffer, nil
}

func (a *Arena) Image(h metadata.TextureHandle) (*AllocatedImage, error) {
	image, ok := a.images.Get(h.Handle)
	if !ok {
		return nil, fmt.Errorf("image %s: %w", h.Handle, core.ErrStaleHandle)
	}
	return image, nil
}

func (a *Arena) Sampler(h metadata.SamplerHandle) (*AllocatedSampler, error) {
	sampler, ok := a.samplers.Get(h.Handle)
	if !ok {
		return nil, fmt.Errorf("sampler %s: %w", h.Handle, core.ErrStaleHandle)
	}
	return sampler, nil
}

func (a *Arena) Mesh(h metadata.MeshBufferHandle) (*metadata.MeshBuffer, error) {
	mesh, ok := a.meshes.Get(h.Handle)
	if !ok {
		return nil, fmt.Errorf("mesh %s: %w", h.Handle, core.ErrStaleHandle)
	}
	return mesh, nil
}

// BufferDeviceAddress returns the shader device address of the buffer. The
// buffer must have been created with BufferUsageDeviceAddress.
func (a *Arena) BufferDeviceAddress(h metadata.BufferHandle) (uint64, error) {
	buffer, err := a.Buffer(h)
	if err != nil {
		return 0, err
	}
	if buffer.DeviceAddress == 0 {
		err := fmt.Errorf("buffer '%s' was not created with a device address", buffer.Name)
		core.LogError(err.Error())
		return 0, err
	}
	return buffer.DeviceAddress, nil
}

// transfer records copy commands into a single use command buffer, submits on
// the transfer queue and blocks on the fence until the copy lands.
func (a *Arena) transfer(record func(commandBuffer *VulkanCommandBuffer) error) error {
	commandBuffer, err := AllocateAndBeginSingleUse(a.context, a.context.Device.GraphicsCommandPool)
	if err != nil {
		return err
	}
	if err := record(commandBuffer); err != nil {
		commandBuffer.Free(a.context, a.context.Device.GraphicsCommandPool)
		return err
	}
	if err := commandBuffer.End(); err != nil {
		return err
	}

	submitInfo := vk.SubmitInfo{
		SType:              vk.StructureTypeSubmitInfo,
		CommandBufferCount: 1,
		PCommandBuffers:    []vk.CommandBuffer{commandBuffer.Handle},
	}
	if res := vk.QueueSubmit(a.context.Device.GraphicsQueue, 1, []vk.SubmitInfo{submitInfo}, a.transferFence.Handle); res != vk.Success {
		err := fmt.Errorf("failed to submit transfer with error %s", VulkanResultString(res))
		core.LogError(err.Error())
		return err
	}
	a.transferFence.IsSignaled = false
	if !a.transferFence.Wait(a.context, waitForever) {
		core.LogFatal("transfer fence wait failed, device lost")
	}
	if err := a.transferFence.Reset(a.context); err != nil {
		return err
	}
	commandBuffer.Free(a.context, a.context.Device.GraphicsCommandPool)
	return nil
}

// Transfer copies src into the buffer starting at offset zero, going through
// the staging buffer in chunks when src exceeds it.
func (a *Arena) Transfer(h metadata.BufferHandle, src []byte) error {
	return a.TransferAt(h, 0, src)
}

// TransferAt copies src into the buffer at dstOffset.
func (a *Arena) TransferAt(h metadata.BufferHandle, dstOffset uint64, src []byte) error {
	buffer, err := a.Buffer(h)
	if err != nil {
		return err
	}
	if dstOffset+uint64(len(src)) > uint64(buffer.TotalSize) {
		err := fmt.Errorf("transfer of %d bytes at offset %d overruns buffer '%s' (%d bytes)", len(src), dstOffset, buffer.Name, buffer.TotalSize)
		core.LogError(err.Error())
		return err
	}

	// Host-visible allocations take the write directly through the
	// persistent mapping; only device-local memory needs the staging round
	// trip.
	if buffer.HostVisible() {
		return buffer.WriteAt(a.context, dstOffset, src)
	}

	for written := uint64(0); written < uint64(len(src)); {
		chunk := uint64(len(src)) - written
		if chunk > StagingBufferSize {
			chunk = StagingBufferSize
		}
		if err := a.staging.WriteAt(a.context, 0, src[written:written+chunk]); err != nil {
			return err
		}
		copyRegion := vk.BufferCopy{
			SrcOffset: 0,
			DstOffset: vk.DeviceSize(dstOffset + written),
			Size:      vk.DeviceSize(chunk),
		}
		err := a.transfer(func(commandBuffer *VulkanCommandBuffer) error {
			vk.CmdCopyBuffer(commandBuffer.Handle, a.staging.Handle, buffer.Handle, 1, []vk.BufferCopy{copyRegion})
			return nil
		})
		if err != nil {
			return err
		}
		written += chunk
	}
	return nil
}

// TransferWithRegions copies several segments of src into the buffer in one
// submission. The segments are packed back to back into the staging buffer
// and the copy regions rewritten against the packed layout, so sparse
// destination offsets do not waste staging space.
func (a *Arena) TransferWithRegions(h metadata.BufferHandle, src []byte, regions []metadata.CopyRegion) error {
	if len(regions) == 0 {
		return nil
	}
	buffer, err := a.Buffer(h)
	if err != nil {
		return err
	}

	if buffer.HostVisible() {
		for _, region := range regions {
			if region.SrcOffset+region.Size > uint64(len(src)) {
				err := fmt.Errorf("region source [%d, %d) overruns source blob of %d bytes", region.SrcOffset, region.SrcOffset+region.Size, len(src))
				core.LogError(err.Error())
				return err
			}
			if err := buffer.WriteAt(a.context, region.DstOffset, src[region.SrcOffset:region.SrcOffset+region.Size]); err != nil {
				return err
			}
		}
		return nil
	}

	copies := make([]vk.BufferCopy, 0, len(regions))
	stagingCursor := uint64(0)

	flush := func() error {
		if len(copies) == 0 {
			return nil
		}
		batch := make([]vk.BufferCopy, len(copies))
		copy(batch, copies)
		err := a.transfer(func(commandBuffer *VulkanCommandBuffer) error {
			vk.CmdCopyBuffer(commandBuffer.Handle, a.staging.Handle, buffer.Handle, uint32(len(batch)), batch)
			return nil
		})
		copies = copies[:0]
		stagingCursor = 0
		return err
	}

	for _, region := range regions {
		if region.SrcOffset+region.Size > uint64(len(src)) {
			err := fmt.Errorf("region source [%d, %d) overruns source blob of %d bytes", region.SrcOffset, region.SrcOffset+region.Size, len(src))
			core.LogError(err.Error())
			return err
		}
		if region.DstOffset+region.Size > uint64(buffer.TotalSize) {
			err := fmt.Errorf("region destination [%d, %d) overruns buffer '%s' (%d bytes)", region.DstOffset, region.DstOffset+region.Size, buffer.Name, buffer.TotalSize)
			core.LogError(err.Error())
			return err
		}
		if region.Size > StagingBufferSize {
			err := fmt.Errorf("region of %d bytes exceeds the staging buffer", region.Size)
			core.LogError(err.Error())
			return err
		}
		if stagingCursor+region.Size > StagingBufferSize {
			if err := flush(); err != nil {
				return err
			}
		}
		if err := a.staging.WriteAt(a.context, stagingCursor, src[region.SrcOffset:region.SrcOffset+region.Size]); err != nil {
			return err
		}
		copies = append(copies, vk.BufferCopy{
			SrcOffset: vk.DeviceSize(stagingCursor),
			DstOffset: vk.DeviceSize(region.DstOffset),
			Size:      vk.DeviceSize(region.Size),
		})
		stagingCursor += region.Size
	}
	return flush()
}

// TransferToImage uploads one byte blob per mip level, transitioning the
// image to shader read only when the copies land.
func (a *Arena) TransferToImage(h metadata.TextureHandle, mips [][]byte) error {
	image, err := a.Image(h)
	if err != nil {
		return err
	}
	if uint32(len(mips)) != image.MipLevels {
		err := fmt.Errorf("image '%s' expects %d mips, got %d", image.Name, image.MipLevels, len(mips))
		core.LogError(err.Error())
		return err
	}

	total := uint64(0)
	for _, mip := range mips {
		total += metadata.GetAligned(uint64(len(mip)), 16)
	}
	if total > StagingBufferSize {
		err := fmt.Errorf("image '%s' upload of %d bytes exceeds the staging buffer", image.Name, total)
		core.LogError(err.Error())
		return err
	}

	regions := make([]vk.BufferImageCopy, len(mips))
	stagingCursor := uint64(0)
	width, height := image.Width, image.Height
	for level, mip := range mips {
		// Copy offsets must stay aligned to the texel block size.
		stagingCursor = metadata.GetAligned(stagingCursor, 16)
		if err := a.staging.WriteAt(a.context, stagingCursor, mip); err != nil {
			return err
		}
		regions[level] = vk.BufferImageCopy{
			BufferOffset: vk.DeviceSize(stagingCursor),
			ImageSubresource: vk.ImageSubresourceLayers{
				AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
				MipLevel:       uint32(level),
				BaseArrayLayer: 0,
				LayerCount:     1,
			},
			ImageExtent: vk.Extent3D{Width: width, Height: height, Depth: 1},
		}
		stagingCursor += uint64(len(mip))
		if width > 1 {
			width /= 2
		}
		if height > 1 {
			height /= 2
		}
	}

	return a.transfer(func(commandBuffer *VulkanCommandBuffer) error {
		if err := image.TransitionLayout(a.context, commandBuffer, vk.ImageLayoutUndefined, vk.ImageLayoutTransferDstOptimal); err != nil {
			return err
		}
		image.CopyFromBuffer(commandBuffer, a.staging.Handle, regions)
		return image.TransitionLayout(a.context, commandBuffer, vk.ImageLayoutTransferDstOptimal, vk.ImageLayoutShaderReadOnlyOptimal)
	})
}

// DestroyBuffer releases the slot and destroys the allocation. The handle and
// any copy of it go stale.
func (a *Arena) DestroyBuffer(h metadata.BufferHandle) bool {
	buffer, ok := a.buffers.Get(h.Handle)
	if !ok {
		return false
	}
	buffer.Destroy(a.context)
	return a.buffers.Release(h.Handle)
}

func (a *Arena) DestroyImage(h metadata.TextureHandle) bool {
	image, ok := a.images.Get(h.Handle)
	if !ok {
		return false
	}
	image.Destroy(a.context)
	return a.images.Release(h.Handle)
}

func (a *Arena) DestroySampler(h metadata.SamplerHandle) bool {
	sampler, ok := a.samplers.Get(h.Handle)
	if !ok {
		return false
	}
	sampler.Destroy(a.context)
	return a.samplers.Release(h.Handle)
}

// DestroyMesh releases the mesh record and the four buffers it owns.
func (a *Arena) DestroyMesh(h metadata.MeshBufferHandle) bool {
	mesh, ok := a.meshes.Get(h.Handle)
	if !ok {
		return false
	}
	a.DestroyBuffer(mesh.Vertices)
	a.DestroyBuffer(mesh.Indices)
	a.DestroyBuffer(mesh.Meshlets)
	a.DestroyBuffer(mesh.MeshletData)
	return a.meshes.Release(h.Handle)
}

// FreeAll destroys every live resource. Teardown only; the caller must have
// waited for the device to go idle first.
func (a *Arena) FreeAll() {
	// Range forbids releasing mid-walk, so destroy the device objects first
	// and clear each table afterwards.
	a.buffers.Range(func(h containers.Handle, buffer *AllocatedBuffer) bool {
		buffer.Destroy(a.context)
		return true
	})
	a.images.Range(func(h containers.Handle, image *AllocatedImage) bool {
		image.Destroy(a.context)
		return true
	})
	a.samplers.Range(func(h containers.Handle, sampler *AllocatedSampler) bool {
		sampler.Destroy(a.context)
		return true
	})
	a.meshes.Clear()
	a.buffers.Clear()
	a.images.Clear()
	a.samplers.Clear()

	a.staging.Destroy(a.context)
	a.transferFence.Destroy(a.context)
}
