package vulkan

import (
	"fmt"
	"unsafe"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/lumen/engine/core"
)

/**
 * @brief A buffer together with its backing device memory allocation.
 */
type AllocatedBuffer struct {
	/** @brief Debug name, surfaced in logs. */
	Name   string
	Handle vk.Buffer
	Memory vk.DeviceMemory
	/** @brief The total size of the allocation in bytes. */
	TotalSize vk.DeviceSize
	Usage     vk.BufferUsageFlags
	/** @brief The memory property flags the buffer was allocated with. */
	MemoryPropertyFlags vk.MemoryPropertyFlags
	/** @brief Non-nil while the buffer is persistently mapped. */
	Mapped unsafe.Pointer
	/** @brief The shader device address, when requested at creation. */
	DeviceAddress uint64
}

// HostVisible reports whether the allocation can be mapped by the host,
// making staged uploads unnecessary.
func (b *AllocatedBuffer) HostVisible() bool {
	return b.MemoryPropertyFlags&vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit) != 0
}

func BufferCreate(context *VulkanContext, name string, size uint64, usage vk.BufferUsageFlags, memoryPropertyFlags vk.MemoryPropertyFlags) (*AllocatedBuffer, error) {
	buffer := &AllocatedBuffer{
		Name:                name,
		TotalSize:           vk.DeviceSize(size),
		Usage:               usage,
		MemoryPropertyFlags: memoryPropertyFlags,
	}

	bufferInfo := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        buffer.TotalSize,
		Usage:       usage,
		SharingMode: vk.SharingModeExclusive,
	}
	var pBuffer vk.Buffer
	if res := vk.CreateBuffer(context.Device.LogicalDevice, &bufferInfo, context.Allocator, &pBuffer); res != vk.Success {
		err := fmt.Errorf("failed to create buffer '%s' with error %s", name, VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}
	buffer.Handle = pBuffer

	var requirements vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(context.Device.LogicalDevice, buffer.Handle, &requirements)
	requirements.Deref()

	memoryIndex := context.FindMemoryIndex(requirements.MemoryTypeBits, memoryPropertyFlags)
	if memoryIndex == -1 {
		err := fmt.Errorf("unable to create buffer '%s' because the required memory type was not found", name)
		core.LogError(err.Error())
		return nil, err
	}

	allocateInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  requirements.Size,
		MemoryTypeIndex: uint32(memoryIndex),
	}
	needsAddress := usage&vk.BufferUsageFlags(vk.BufferUsageShaderDeviceAddressBit) != 0
	if needsAddress {
		allocateFlags := vk.MemoryAllocateFlagsInfo{
			SType: vk.StructureTypeMemoryAllocateFlagsInfo,
			Flags: vk.MemoryAllocateFlags(vk.MemoryAllocateDeviceAddressBit),
		}
		allocateInfo.PNext = unsafe.Pointer(&allocateFlags)
	}

	var pMemory vk.DeviceMemory
	if res := vk.AllocateMemory(context.Device.LogicalDevice, &allocateInfo, context.Allocator, &pMemory); res != vk.Success {
		err := fmt.Errorf("unable to allocate memory for buffer '%s' with error %s", name, VulkanResultString(res))
		core.LogError(err.Error())
		vk.DestroyBuffer(context.Device.LogicalDevice, buffer.Handle, context.Allocator)
		return nil, err
	}
	buffer.Memory = pMemory

	if res := vk.BindBufferMemory(context.Device.LogicalDevice, buffer.Handle, buffer.Memory, 0); res != vk.Success {
		err := fmt.Errorf("unable to bind memory for buffer '%s' with error %s", name, VulkanResultString(res))
		core.LogError(err.Error())
		buffer.Destroy(context)
		return nil, err
	}

	if needsAddress {
		addressInfo := vk.BufferDeviceAddressInfo{
			SType:  vk.StructureTypeBufferDeviceAddressInfo,
			Buffer: buffer.Handle,
		}
		buffer.DeviceAddress = uint64(vk.GetBufferDeviceAddress(context.Device.LogicalDevice, &addressInfo))
	}

	return buffer, nil
}

func (b *AllocatedBuffer) Destroy(context *VulkanContext) {
	if b.Mapped != nil {
		b.Unmap(context)
	}
	if b.Memory != nil {
		vk.FreeMemory(context.Device.LogicalDevice, b.Memory, context.Allocator)
		b.Memory = nil
	}
	if b.Handle != nil {
		vk.DestroyBuffer(context.Device.LogicalDevice, b.Handle, context.Allocator)
		b.Handle = nil
	}
	b.TotalSize = 0
	b.DeviceAddress = 0
}

// Map keeps the buffer persistently mapped until Unmap or Destroy.
func (b *AllocatedBuffer) Map(context *VulkanContext) (unsafe.Pointer, error) {
	if b.Mapped != nil {
		return b.Mapped, nil
	}
	var data unsafe.Pointer
	if res := vk.MapMemory(context.Device.LogicalDevice, b.Memory, 0, b.TotalSize, 0, &data); res != vk.Success {
		err := fmt.Errorf("unable to map memory of buffer '%s' with error %s", b.Name, VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}
	b.Mapped = data
	return data, nil
}

func (b *AllocatedBuffer) Unmap(context *VulkanContext) {
	if b.Mapped == nil {
		return
	}
	vk.UnmapMemory(context.Device.LogicalDevice, b.Memory)
	b.Mapped = nil
}

// WriteAt copies src into the mapped buffer at offset. The write is bound
// checked against the allocation so a bad offset can never scribble past it.
func (b *AllocatedBuffer) WriteAt(context *VulkanContext, offset uint64, src []byte) error {
	if b.Mapped == nil {
		if _, err := b.Map(context); err != nil {
			return err
		}
	}
	if offset+uint64(len(src)) > uint64(b.TotalSize) {
		err := fmt.Errorf("write of %d bytes at offset %d overruns buffer '%s' (%d bytes)", len(src), offset, b.Name, b.TotalSize)
		core.LogError(err.Error())
		return err
	}
	dst := unsafe.Pointer(uintptr(b.Mapped) + uintptr(offset))
	vk.Memcopy(dst, src)
	return nil
}
