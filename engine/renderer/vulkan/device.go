package vulkan

import (
	"fmt"
	"unsafe"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
)

type VulkanDevice struct {
	/** @brief Indicates if the device supports a memory type that is both device local and host visible. */
	SupportsDeviceLocalHostVisible bool

	/** @brief The physical device. This is a representation of the GPU itself. */
	PhysicalDevice vk.PhysicalDevice
	/** @brief The logical device. Most Vulkan operations run against this. */
	LogicalDevice    vk.Device
	SwapchainSupport *VulkanSwapchainSupportInfo

	GraphicsQueueIndex uint32
	PresentQueueIndex  uint32
	TransferQueueIndex uint32

	GraphicsQueue vk.Queue
	PresentQueue  vk.Queue
	TransferQueue vk.Queue

	GraphicsCommandPool vk.CommandPool

	Properties vk.PhysicalDeviceProperties
	Features   vk.PhysicalDeviceFeatures
	Memory     vk.PhysicalDeviceMemoryProperties

	DepthFormat vk.Format
}

type VulkanPhysicalDeviceRequirements struct {
	Graphics             bool
	Present              bool
	Transfer             bool
	SamplerAnisotropy    bool
	DiscreteGPU          bool
	DeviceExtensionNames []string
}

type VulkanPhysicalDeviceQueueFamilyInfo struct {
	GraphicsFamilyIndex int32
	PresentFamilyIndex  int32
	TransferFamilyIndex int32
}

type VulkanSwapchainSupportInfo struct {
	Capabilities vk.SurfaceCapabilities
	Formats      []vk.SurfaceFormat
	PresentModes []vk.PresentMode
}

func DeviceCreate(context *VulkanContext) error {
	if err := SelectPhysicalDevice(context); err != nil {
		return err
	}

	core.LogInfo("Creating logical device...")
	// Do not create additional queues for shared indices.
	presentSharesGraphicsQueue := context.Device.GraphicsQueueIndex == context.Device.PresentQueueIndex
	transferSharesGraphicsQueue := context.Device.GraphicsQueueIndex == context.Device.TransferQueueIndex

	indices := []uint32{context.Device.GraphicsQueueIndex}
	if !presentSharesGraphicsQueue {
		indices = append(indices, context.Device.PresentQueueIndex)
	}
	if !transferSharesGraphicsQueue {
		indices = append(indices, context.Device.TransferQueueIndex)
	}

	queueCreateInfos := make([]vk.DeviceQueueCreateInfo, len(indices))
	for i := range indices {
		queueCreateInfos[i] = vk.DeviceQueueCreateInfo{
			SType:            vk.StructureTypeDeviceQueueCreateInfo,
			QueueFamilyIndex: indices[i],
			QueueCount:       1,
			PQueuePriorities: []float32{1.0},
		}
	}

	deviceFeatures := vk.PhysicalDeviceFeatures{
		SamplerAnisotropy: vk.True,
	}

	// Everything the bindless descriptor path and the device-address mesh
	// buffers need lives in core 1.2.
	vulkan12Features := vk.PhysicalDeviceVulkan12Features{
		SType:                                     vk.StructureTypePhysicalDeviceVulkan12Features,
		DescriptorIndexing:                        vk.True,
		RuntimeDescriptorArray:                    vk.True,
		DescriptorBindingPartiallyBound:           vk.True,
		DescriptorBindingVariableDescriptorCount:  vk.True,
		DescriptorBindingSampledImageUpdateAfterBind: vk.True,
		DescriptorBindingStorageImageUpdateAfterBind: vk.True,
		ShaderSampledImageArrayNonUniformIndexing: vk.True,
		BufferDeviceAddress:                       vk.True,
	}

	extensionNames := []string{VulkanSafeString(vk.KhrSwapchainExtensionName)}
	if supportsPortability(context) {
		extensionNames = append(extensionNames, VulkanSafeString("VK_KHR_portability_subset"))
	}

	deviceCreateInfo := vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		PNext:                   unsafe.Pointer(&vulkan12Features),
		QueueCreateInfoCount:    uint32(len(queueCreateInfos)),
		PQueueCreateInfos:       queueCreateInfos,
		PEnabledFeatures:        []vk.PhysicalDeviceFeatures{deviceFeatures},
		EnabledExtensionCount:   uint32(len(extensionNames)),
		PpEnabledExtensionNames: extensionNames,
	}

	var pDevice vk.Device
	if res := vk.CreateDevice(context.Device.PhysicalDevice, &deviceCreateInfo, context.Allocator, &pDevice); res != vk.Success {
		err := fmt.Errorf("failed to create logical device with error %s", VulkanResultString(res))
		core.LogError(err.Error())
		return err
	}
	context.Device.LogicalDevice = pDevice
	core.LogInfo("Logical device created.")

	var graphicsQueue vk.Queue
	vk.GetDeviceQueue(context.Device.LogicalDevice, context.Device.GraphicsQueueIndex, 0, &graphicsQueue)
	context.Device.GraphicsQueue = graphicsQueue

	var presentQueue vk.Queue
	vk.GetDeviceQueue(context.Device.LogicalDevice, context.Device.PresentQueueIndex, 0, &presentQueue)
	context.Device.PresentQueue = presentQueue

	var transferQueue vk.Queue
	vk.GetDeviceQueue(context.Device.LogicalDevice, context.Device.TransferQueueIndex, 0, &transferQueue)
	context.Device.TransferQueue = transferQueue
	core.LogInfo("Queues obtained.")

	poolCreateInfo := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: context.Device.GraphicsQueueIndex,
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
	}
	var pCommandPool vk.CommandPool
	if res := vk.CreateCommandPool(context.Device.LogicalDevice, &poolCreateInfo, context.Allocator, &pCommandPool); res != vk.Success {
		err := fmt.Errorf("failed to create graphics command pool with error %s", VulkanResultString(res))
		core.LogError(err.Error())
		return err
	}
	context.Device.GraphicsCommandPool = pCommandPool
	core.LogInfo("Graphics command pool created.")

	return nil
}

func DeviceDestroy(context *VulkanContext) {
	context.Device.GraphicsQueue = nil
	context.Device.PresentQueue = nil
	context.Device.TransferQueue = nil

	core.LogInfo("Destroying command pools...")
	vk.DestroyCommandPool(context.Device.LogicalDevice, context.Device.GraphicsCommandPool, context.Allocator)

	core.LogInfo("Destroying logical device...")
	if context.Device.LogicalDevice != nil {
		vk.DestroyDevice(context.Device.LogicalDevice, context.Allocator)
		context.Device.LogicalDevice = nil
	}

	context.Device.PhysicalDevice = nil
	context.Device.SwapchainSupport = nil
	context.Device.GraphicsQueueIndex = 0
	context.Device.PresentQueueIndex = 0
	context.Device.TransferQueueIndex = 0
}

// DescriptorSizes derives the record strides and offset alignment the binding
// table is laid out with on this device.
func (vd *VulkanDevice) DescriptorSizes() metadata.DescriptorSizes {
	vd.Properties.Deref()
	vd.Properties.Limits.Deref()
	alignment := uint32(vd.Properties.Limits.MinStorageBufferOffsetAlignment)
	if alignment == 0 {
		alignment = 16
	}
	return metadata.DescriptorSizes{
		Sampler:         16,
		SampledImage:    32,
		StorageImage:    32,
		OffsetAlignment: uint64(alignment),
	}
}

func DeviceQuerySwapchainSupport(physicalDevice vk.PhysicalDevice, surface vk.Surface, supportInfo *VulkanSwapchainSupportInfo) error {
	var capabilities vk.SurfaceCapabilities
	if res := vk.GetPhysicalDeviceSurfaceCapabilities(physicalDevice, surface, &capabilities); res != vk.Success {
		err := fmt.Errorf("failed to get surface capabilities with error %s", VulkanResultString(res))
		core.LogError(err.Error())
		return err
	}
	capabilities.Deref()
	supportInfo.Capabilities = capabilities

	var formatCount uint32
	if res := vk.GetPhysicalDeviceSurfaceFormats(physicalDevice, surface, &formatCount, nil); res != vk.Success {
		err := fmt.Errorf("failed to get surface format count with error %s", VulkanResultString(res))
		core.LogError(err.Error())
		return err
	}
	if formatCount != 0 {
		supportInfo.Formats = make([]vk.SurfaceFormat, formatCount)
		if res := vk.GetPhysicalDeviceSurfaceFormats(physicalDevice, surface, &formatCount, supportInfo.Formats); res != vk.Success {
			err := fmt.Errorf("failed to get surface formats with error %s", VulkanResultString(res))
			core.LogError(err.Error())
			return err
		}
		for i := range supportInfo.Formats {
			supportInfo.Formats[i].Deref()
		}
	}

	var presentModeCount uint32
	if res := vk.GetPhysicalDeviceSurfacePresentModes(physicalDevice, surface, &presentModeCount, nil); res != vk.Success {
		err := fmt.Errorf("failed to get present mode count with error %s", VulkanResultString(res))
		core.LogError(err.Error())
		return err
	}
	if presentModeCount != 0 {
		supportInfo.PresentModes = make([]vk.PresentMode, presentModeCount)
		if res := vk.GetPhysicalDeviceSurfacePresentModes(physicalDevice, surface, &presentModeCount, supportInfo.PresentModes); res != vk.Success {
			err := fmt.Errorf("failed to get present modes with error %s", VulkanResultString(res))
			core.LogError(err.Error())
			return err
		}
	}

	return nil
}

func DeviceDetectDepthFormat(device *VulkanDevice) error {
	// Format candidates, in order of preference.
	candidates := []vk.Format{
		vk.FormatD32Sfloat,
		vk.FormatD32SfloatS8Uint,
		vk.FormatD24UnormS8Uint,
	}
	flags := vk.FormatFeatureFlags(vk.FormatFeatureDepthStencilAttachmentBit)
	for _, candidate := range candidates {
		var properties vk.FormatProperties
		vk.GetPhysicalDeviceFormatProperties(device.PhysicalDevice, candidate, &properties)
		properties.Deref()
		if properties.LinearTilingFeatures&flags == flags || properties.OptimalTilingFeatures&flags == flags {
			device.DepthFormat = candidate
			return nil
		}
	}
	return fmt.Errorf("no suitable depth format found")
}

func SelectPhysicalDevice(context *VulkanContext) error {
	var physicalDeviceCount uint32
	if res := vk.EnumeratePhysicalDevices(context.Instance, &physicalDeviceCount, nil); res != vk.Success {
		err := fmt.Errorf("failed to enumerate physical devices with error %s", VulkanResultString(res))
		core.LogError(err.Error())
		return err
	}
	if physicalDeviceCount == 0 {
		err := fmt.Errorf("no devices which support Vulkan were found")
		core.LogError(err.Error())
		return err
	}

	physicalDevices := make([]vk.PhysicalDevice, physicalDeviceCount)
	if res := vk.EnumeratePhysicalDevices(context.Instance, &physicalDeviceCount, physicalDevices); res != vk.Success {
		err := fmt.Errorf("failed to enumerate physical devices with error %s", VulkanResultString(res))
		core.LogError(err.Error())
		return err
	}

	requirements := &VulkanPhysicalDeviceRequirements{
		Graphics:          true,
		Present:           true,
		Transfer:          true,
		SamplerAnisotropy: true,
		DiscreteGPU:       false,
		DeviceExtensionNames: []string{
			VulkanSafeString(vk.KhrSwapchainExtensionName),
		},
	}

	for _, pd := range physicalDevices {
		var properties vk.PhysicalDeviceProperties
		vk.GetPhysicalDeviceProperties(pd, &properties)
		properties.Deref()

		var features vk.PhysicalDeviceFeatures
		vk.GetPhysicalDeviceFeatures(pd, &features)
		features.Deref()

		var memory vk.PhysicalDeviceMemoryProperties
		vk.GetPhysicalDeviceMemoryProperties(pd, &memory)
		memory.Deref()

		// Check if the device supports combined device local and host visible
		// memory. Host-visible arena buffers prefer it.
		supportsDeviceLocalHostVisible := false
		for i := uint32(0); i < memory.MemoryTypeCount; i++ {
			memory.MemoryTypes[i].Deref()
			hostVisible := memory.MemoryTypes[i].PropertyFlags&vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit) != 0
			deviceLocal := memory.MemoryTypes[i].PropertyFlags&vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit) != 0
			if hostVisible && deviceLocal {
				supportsDeviceLocalHostVisible = true
				break
			}
		}

		queueInfo, err := physicalDeviceMeetsRequirements(pd, context.Surface, &properties, &features, requirements)
		if err != nil {
			continue
		}

		deviceName := string(properties.DeviceName[:FindFirstZeroInByteArray(properties.DeviceName[:])])
		core.LogInfo("Selected device: '%s'.", deviceName)

		context.Device = &VulkanDevice{
			PhysicalDevice:                 pd,
			GraphicsQueueIndex:             uint32(queueInfo.GraphicsFamilyIndex),
			PresentQueueIndex:              uint32(queueInfo.PresentFamilyIndex),
			TransferQueueIndex:             uint32(queueInfo.TransferFamilyIndex),
			Properties:                     properties,
			Features:                       features,
			Memory:                         memory,
			SupportsDeviceLocalHostVisible: supportsDeviceLocalHostVisible,
			SwapchainSupport:               &VulkanSwapchainSupportInfo{},
		}
		if err := DeviceQuerySwapchainSupport(pd, context.Surface, context.Device.SwapchainSupport); err != nil {
			context.Device = nil
			continue
		}
		break
	}

	if context.Device == nil || context.Device.PhysicalDevice == nil {
		err := fmt.Errorf("no physical devices were found which meet the requirements")
		core.LogError(err.Error())
		return err
	}
	return nil
}

func physicalDeviceMeetsRequirements(device vk.PhysicalDevice, surface vk.Surface, properties *vk.PhysicalDeviceProperties,
	features *vk.PhysicalDeviceFeatures, requirements *VulkanPhysicalDeviceRequirements) (*VulkanPhysicalDeviceQueueFamilyInfo, error) {

	outQueueInfo := &VulkanPhysicalDeviceQueueFamilyInfo{
		GraphicsFamilyIndex: -1,
		PresentFamilyIndex:  -1,
		TransferFamilyIndex: -1,
	}

	if requirements.DiscreteGPU && properties.DeviceType != vk.PhysicalDeviceTypeDiscreteGpu {
		return nil, fmt.Errorf("device is not a discrete GPU. Skipping")
	}

	var queueFamilyCount uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(device, &queueFamilyCount, nil)
	queueFamilies := make([]vk.QueueFamilyProperties, queueFamilyCount)
	vk.GetPhysicalDeviceQueueFamilyProperties(device, &queueFamilyCount, queueFamilies)

	// Prefer a dedicated transfer family; fall back to the family with the
	// fewest other capabilities.
	minTransferScore := uint8(255)
	for i := uint32(0); i < queueFamilyCount; i++ {
		queueFamilies[i].Deref()
		currentTransferScore := uint8(0)

		if outQueueInfo.GraphicsFamilyIndex == -1 && queueFamilies[i].QueueFlags&vk.QueueFlags(vk.QueueGraphicsBit) != 0 {
			outQueueInfo.GraphicsFamilyIndex = int32(i)
			currentTransferScore++
		}
		if queueFamilies[i].QueueFlags&vk.QueueFlags(vk.QueueComputeBit) != 0 {
			currentTransferScore++
		}
		if queueFamilies[i].QueueFlags&vk.QueueFlags(vk.QueueTransferBit) != 0 {
			if currentTransferScore <= minTransferScore {
				minTransferScore = currentTransferScore
				outQueueInfo.TransferFamilyIndex = int32(i)
			}
		}

		var supportsPresent vk.Bool32
		if res := vk.GetPhysicalDeviceSurfaceSupport(device, i, surface, &supportsPresent); res != vk.Success {
			return nil, fmt.Errorf("failed to query surface support with error %s", VulkanResultString(res))
		}
		if supportsPresent == vk.True {
			outQueueInfo.PresentFamilyIndex = int32(i)
		}
	}

	if requirements.Graphics && outQueueInfo.GraphicsFamilyIndex == -1 {
		return nil, fmt.Errorf("missing graphics queue family")
	}
	if requirements.Present && outQueueInfo.PresentFamilyIndex == -1 {
		return nil, fmt.Errorf("missing present queue family")
	}
	if requirements.Transfer && outQueueInfo.TransferFamilyIndex == -1 {
		return nil, fmt.Errorf("missing transfer queue family")
	}

	if requirements.SamplerAnisotropy && features.SamplerAnisotropy != vk.True {
		return nil, fmt.Errorf("device does not support sampler anisotropy")
	}

	if len(requirements.DeviceExtensionNames) > 0 {
		var availableExtensionCount uint32
		if res := vk.EnumerateDeviceExtensionProperties(device, "", &availableExtensionCount, nil); res != vk.Success {
			return nil, fmt.Errorf("failed to enumerate device extensions with error %s", VulkanResultString(res))
		}
		availableExtensions := make([]vk.ExtensionProperties, availableExtensionCount)
		if res := vk.EnumerateDeviceExtensionProperties(device, "", &availableExtensionCount, availableExtensions); res != vk.Success {
			return nil, fmt.Errorf("failed to enumerate device extensions with error %s", VulkanResultString(res))
		}
		for _, required := range requirements.DeviceExtensionNames {
			found := false
			for i := range availableExtensions {
				availableExtensions[i].Deref()
				name := string(availableExtensions[i].ExtensionName[:FindFirstZeroInByteArray(availableExtensions[i].ExtensionName[:])])
				if VulkanSafeString(name) == required {
					found = true
					break
				}
			}
			if !found {
				return nil, fmt.Errorf("required extension %s not found", required)
			}
		}
	}

	return outQueueInfo, nil
}

func supportsPortability(context *VulkanContext) bool {
	var extensionCount uint32
	if res := vk.EnumerateDeviceExtensionProperties(context.Device.PhysicalDevice, "", &extensionCount, nil); res != vk.Success {
		return false
	}
	extensions := make([]vk.ExtensionProperties, extensionCount)
	if res := vk.EnumerateDeviceExtensionProperties(context.Device.PhysicalDevice, "", &extensionCount, extensions); res != vk.Success {
		return false
	}
	for i := range extensions {
		extensions[i].Deref()
		name := string(extensions[i].ExtensionName[:FindFirstZeroInByteArray(extensions[i].ExtensionName[:])])
		if name == "VK_KHR_portability_subset" {
			return true
		}
	}
	return false
}
