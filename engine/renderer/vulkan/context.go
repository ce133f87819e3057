package vulkan

import (
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/lumen/engine/core"
)

/** @brief Number of frames the host may record while earlier ones still execute on the device. */
const FrameOverlap = 2

/**
 * @brief The shared Vulkan state threaded through every renderer call.
 */
type VulkanContext struct {
	/** @brief The framebuffer's current width. */
	FramebufferWidth uint32
	/** @brief The framebuffer's current height. */
	FramebufferHeight uint32

	// Current generation of framebuffer size. If it does not match
	// FramebufferSizeLastGeneration, a new swapchain should be generated.
	FramebufferSizeGeneration     uint64
	FramebufferSizeLastGeneration uint64

	Instance  vk.Instance
	Allocator *vk.AllocationCallbacks
	Surface   vk.Surface
	Debug     vk.DebugReportCallback

	Device *VulkanDevice

	Swapchain      *VulkanSwapchain
	MainRenderpass *VulkanRenderpass

	/** @brief The index of the swapchain image acquired for the frame in flight. */
	ImageIndex uint32
	/** @brief The frame slot in [0, FrameOverlap) the host is currently recording. */
	CurrentFrame uint32

	RecreatingSwapchain bool

	// One per frame slot.
	ImageAvailableSemaphores []vk.Semaphore
	QueueCompleteSemaphores  []vk.Semaphore
	InFlightFences           []*VulkanFence
	// One per swapchain image, pointing at the in-flight fence of the frame
	// that last used the image.
	ImagesInFlight []*VulkanFence

	debugMessenger vk.DebugReportCallback
}

func (vc *VulkanContext) FindMemoryIndex(typeFilter uint32, propertyFlags vk.MemoryPropertyFlags) int32 {
	var memoryProperties vk.PhysicalDeviceMemoryProperties
	vk.GetPhysicalDeviceMemoryProperties(vc.Device.PhysicalDevice, &memoryProperties)
	memoryProperties.Deref()

	for i := uint32(0); i < memoryProperties.MemoryTypeCount; i++ {
		memoryProperties.MemoryTypes[i].Deref()
		// Check each memory type to see if its bit is set to 1.
		if typeFilter&(1<<i) != 0 && (memoryProperties.MemoryTypes[i].PropertyFlags&propertyFlags) == propertyFlags {
			return int32(i)
		}
	}

	core.LogWarn("unable to find suitable memory type")
	return -1
}
