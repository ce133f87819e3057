package vulkan

import (
	"fmt"
	"runtime"
	"unsafe"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
)

// Window is the surface provider the backend renders into. The platform
// layer implements it with GLFW.
type Window interface {
	GetRequiredInstanceExtensions() []string
	CreateWindowSurface(instance vk.Instance) (vk.Surface, error)
	GetFramebufferSize() (uint32, uint32)
}

type BackendConfig struct {
	ApplicationName string
	Debug           bool

	// Compiled SPIR-V for the draw pipeline.
	VertexShader   []byte
	FragmentShader []byte

	// Arena slot capacities.
	MaxBuffers  uint32
	MaxImages   uint32
	MaxSamplers uint32
	MaxMeshes   uint32

	// Bindless binding capacities.
	MaxBoundSamplers      uint32
	MaxBoundStorageImages uint32
	MaxBoundSampledImages uint32

	MaxDrawsPerFrame uint32
}

/**
 * @brief VulkanBackend drives the device: resource arena, bindless table,
 * draw pipelines and the fence gated frame loop.
 */
type VulkanBackend struct {
	context *VulkanContext
	window  Window
	config  *BackendConfig
	debug   bool

	arena       *Arena
	descriptors *DescriptorTable

	// Per draw instance records, double buffered with the frame slots.
	instances *SwappableBuffer

	graphicsCommandBuffers []*VulkanCommandBuffer

	vertexStage         *VulkanShaderStage
	fragmentStage       *VulkanShaderStage
	opaquePipeline      *VulkanPipeline
	transparentPipeline *VulkanPipeline

	// Window size as reported by the latest resize event. Applied to the
	// swapchain on the next frame boundary.
	cachedFramebufferWidth  uint32
	cachedFramebufferHeight uint32
}

func New(window Window, config *BackendConfig) *VulkanBackend {
	return &VulkanBackend{
		context: &VulkanContext{},
		window:  window,
		config:  config,
		debug:   config.Debug,
	}
}

func (vr *VulkanBackend) Initialize() error {
	width, height := vr.window.GetFramebufferSize()
	vr.context.FramebufferWidth = width
	vr.context.FramebufferHeight = height

	if err := vr.createInstance(); err != nil {
		return err
	}

	core.LogDebug("Creating Vulkan surface...")
	surface, err := vr.window.CreateWindowSurface(vr.context.Instance)
	if err != nil {
		core.LogError(err.Error())
		return err
	}
	vr.context.Surface = surface

	if err := DeviceCreate(vr.context); err != nil {
		return err
	}

	swapchain, err := SwapchainCreate(vr.context, vr.context.FramebufferWidth, vr.context.FramebufferHeight)
	if err != nil {
		return err
	}
	vr.context.Swapchain = swapchain

	renderpass, err := RenderpassCreate(vr.context,
		0, 0, float32(vr.context.FramebufferWidth), float32(vr.context.FramebufferHeight),
		0.0, 0.0, 0.1, 1.0,
		1.0, 0)
	if err != nil {
		return err
	}
	vr.context.MainRenderpass = renderpass

	if err := vr.context.Swapchain.RegenerateFramebuffers(vr.context, renderpass, vr.context.FramebufferWidth, vr.context.FramebufferHeight); err != nil {
		return err
	}

	if err := vr.createCommandBuffers(); err != nil {
		return err
	}
	if err := vr.createSyncObjects(); err != nil {
		return err
	}

	vr.arena, err = NewArena(vr.context, ArenaConfig{
		MaxBuffers:  vr.config.MaxBuffers,
		MaxImages:   vr.config.MaxImages,
		MaxSamplers: vr.config.MaxSamplers,
		MaxMeshes:   vr.config.MaxMeshes,
	})
	if err != nil {
		return err
	}

	// Sampled images carry the variable count flag, so they go last.
	vr.descriptors, err = NewDescriptorTableBuilder().
		AddBinding(metadata.DescriptorKindSampler, vr.config.MaxBoundSamplers, metadata.BindingPartiallyBound).
		AddBinding(metadata.DescriptorKindStorageImage, vr.config.MaxBoundStorageImages, metadata.BindingPartiallyBound).
		AddBinding(metadata.DescriptorKindSampledImage, vr.config.MaxBoundSampledImages, metadata.BindingPartiallyBound|metadata.BindingVariableCount).
		Build(vr.context)
	if err != nil {
		return err
	}

	vr.instances, err = NewSwappableBuffer(vr.arena, "frame_instances",
		uint64(vr.config.MaxDrawsPerFrame)*metadata.InstanceDataSize,
		metadata.BufferUsageStorage|metadata.BufferUsageDeviceAddress)
	if err != nil {
		return err
	}

	if err := vr.createPipelines(); err != nil {
		return err
	}

	core.LogInfo("Vulkan renderer initialized successfully.")
	return nil
}

func (vr *VulkanBackend) createInstance() error {
	applicationInfo := vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		ApiVersion:         uint32(vk.MakeVersion(1, 2, 0)),
		ApplicationVersion: uint32(vk.MakeVersion(1, 0, 0)),
		PApplicationName:   VulkanSafeString(vr.config.ApplicationName),
		PEngineName:        VulkanSafeString("Lumen"),
		EngineVersion:      uint32(vk.MakeVersion(1, 0, 0)),
	}

	createInfo := vk.InstanceCreateInfo{
		SType:            vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo: &applicationInfo,
	}

	requiredExtensions := vr.window.GetRequiredInstanceExtensions()
	if runtime.GOOS == "darwin" {
		requiredExtensions = append(requiredExtensions,
			"VK_KHR_portability_enumeration",
			"VK_KHR_get_physical_device_properties2",
		)
		createInfo.Flags |= 1
	}
	if vr.debug {
		requiredExtensions = append(requiredExtensions, vk.ExtDebugReportExtensionName)
	}

	createInfo.EnabledExtensionCount = uint32(len(requiredExtensions))
	createInfo.PpEnabledExtensionNames = VulkanSafeStrings(requiredExtensions)

	// Validation layers, non-release builds only.
	requiredValidationLayerNames := []string{}
	if vr.debug {
		core.LogInfo("Validation layers enabled. Enumerating...")
		requiredValidationLayerNames = []string{"VK_LAYER_KHRONOS_validation"}

		var availableLayerCount uint32
		if res := vk.EnumerateInstanceLayerProperties(&availableLayerCount, nil); res != vk.Success {
			return fmt.Errorf("failed to enumerate instance layers with error %s", VulkanResultString(res))
		}
		availableLayers := make([]vk.LayerProperties, availableLayerCount)
		if res := vk.EnumerateInstanceLayerProperties(&availableLayerCount, availableLayers); res != vk.Success {
			return fmt.Errorf("failed to enumerate instance layers with error %s", VulkanResultString(res))
		}

		for _, required := range requiredValidationLayerNames {
			found := false
			for j := range availableLayers {
				availableLayers[j].Deref()
				end := FindFirstZeroInByteArray(availableLayers[j].LayerName[:])
				if required == string(availableLayers[j].LayerName[:end]) {
					found = true
					break
				}
			}
			if !found {
				core.LogFatal("required validation layer is missing: %s", required)
			}
		}
		core.LogInfo("All required validation layers are present.")
	}

	createInfo.EnabledLayerCount = uint32(len(requiredValidationLayerNames))
	createInfo.PpEnabledLayerNames = VulkanSafeStrings(requiredValidationLayerNames)

	if res := vk.CreateInstance(&createInfo, vr.context.Allocator, &vr.context.Instance); res != vk.Success {
		err := fmt.Errorf("failed to create the Vulkan instance with error %s", VulkanResultString(res))
		core.LogError(err.Error())
		return err
	}
	if err := vk.InitInstance(vr.context.Instance); err != nil {
		core.LogError(err.Error())
		return err
	}
	core.LogInfo("Vulkan instance created.")

	if vr.debug {
		debugCreateInfo := vk.DebugReportCallbackCreateInfo{
			SType:       vk.StructureTypeDebugReportCallbackCreateInfo,
			Flags:       vk.DebugReportFlags(vk.DebugReportErrorBit | vk.DebugReportWarningBit),
			PfnCallback: dbgCallbackFunc,
		}
		var dbg vk.DebugReportCallback
		if err := vk.Error(vk.CreateDebugReportCallback(vr.context.Instance, &debugCreateInfo, nil, &dbg)); err != nil {
			core.LogError("vk.CreateDebugReportCallback failed with %s", err)
			return err
		}
		vr.context.debugMessenger = dbg
		core.LogDebug("Vulkan debugger created.")
	}
	return nil
}

func (vr *VulkanBackend) createCommandBuffers() error {
	vr.graphicsCommandBuffers = make([]*VulkanCommandBuffer, vr.context.Swapchain.ImageCount)
	for i := range vr.graphicsCommandBuffers {
		commandBuffer, err := NewVulkanCommandBuffer(vr.context, vr.context.Device.GraphicsCommandPool, true)
		if err != nil {
			return err
		}
		vr.graphicsCommandBuffers[i] = commandBuffer
	}
	return nil
}

func (vr *VulkanBackend) createSyncObjects() error {
	framesInFlight := int(vr.context.Swapchain.MaxFramesInFlight)
	vr.context.ImageAvailableSemaphores = make([]vk.Semaphore, framesInFlight)
	vr.context.QueueCompleteSemaphores = make([]vk.Semaphore, framesInFlight)
	vr.context.InFlightFences = make([]*VulkanFence, framesInFlight)

	for i := 0; i < framesInFlight; i++ {
		semaphoreCreateInfo := vk.SemaphoreCreateInfo{
			SType: vk.StructureTypeSemaphoreCreateInfo,
		}
		if res := vk.CreateSemaphore(vr.context.Device.LogicalDevice, &semaphoreCreateInfo, vr.context.Allocator, &vr.context.ImageAvailableSemaphores[i]); res != vk.Success {
			return fmt.Errorf("failed to create semaphore with error %s", VulkanResultString(res))
		}
		if res := vk.CreateSemaphore(vr.context.Device.LogicalDevice, &semaphoreCreateInfo, vr.context.Allocator, &vr.context.QueueCompleteSemaphores[i]); res != vk.Success {
			return fmt.Errorf("failed to create semaphore with error %s", VulkanResultString(res))
		}

		// The fence starts signaled so the first frame does not wait on a
		// submission that never happened.
		fence, err := NewFence(vr.context, true)
		if err != nil {
			return err
		}
		vr.context.InFlightFences[i] = fence
	}

	vr.context.ImagesInFlight = make([]*VulkanFence, vr.context.Swapchain.ImageCount)
	return nil
}

func (vr *VulkanBackend) createPipelines() error {
	vertexStage, err := NewShaderModule(vr.context, "draw.vert", vr.config.VertexShader, vk.ShaderStageVertexBit)
	if err != nil {
		return err
	}
	vr.vertexStage = vertexStage

	fragmentStage, err := NewShaderModule(vr.context, "draw.frag", vr.config.FragmentShader, vk.ShaderStageFragmentBit)
	if err != nil {
		return err
	}
	vr.fragmentStage = fragmentStage

	stages := []vk.PipelineShaderStageCreateInfo{
		vertexStage.ShaderStageCreateInfo,
		fragmentStage.ShaderStageCreateInfo,
	}
	layouts := []vk.DescriptorSetLayout{vr.descriptors.Layout}

	vr.opaquePipeline, err = NewGraphicsPipeline(vr.context, &VulkanPipelineConfig{
		Renderpass:           vr.context.MainRenderpass,
		Stages:               stages,
		DescriptorSetLayouts: layouts,
		PushConstantSize:     DrawPushConstantsSize,
		DepthWrite:           true,
		Blend:                false,
	})
	if err != nil {
		return err
	}

	vr.transparentPipeline, err = NewGraphicsPipeline(vr.context, &VulkanPipelineConfig{
		Renderpass:           vr.context.MainRenderpass,
		Stages:               stages,
		DescriptorSetLayouts: layouts,
		PushConstantSize:     DrawPushConstantsSize,
		DepthWrite:           false,
		Blend:                true,
	})
	return err
}

// Arena exposes the resource arena to the upload systems.
func (vr *VulkanBackend) Arena() *Arena {
	return vr.arena
}

// Descriptors exposes the bindless table to the upload systems.
func (vr *VulkanBackend) Descriptors() *DescriptorTable {
	return vr.descriptors
}

func (vr *VulkanBackend) UpdateBinding(binding ResourceBinding) error {
	return vr.descriptors.UpdateBinding(vr.context, binding)
}

// Resized records the new framebuffer size. The swapchain is rebuilt at the
// next frame boundary.
func (vr *VulkanBackend) Resized(width, height uint32) {
	vr.cachedFramebufferWidth = width
	vr.cachedFramebufferHeight = height
	vr.context.FramebufferSizeGeneration++
	core.LogInfo("Vulkan renderer resized: %dx%d generation %d", width, height, vr.context.FramebufferSizeGeneration)
}

// PrepareFrame gates the frame slot: it blocks until the slot's previous
// submission retired, acquires a swapchain image, and rotates the per frame
// ring buffers. Returns ErrSwapchainBooting when the swapchain is mid-resize
// and the frame must be skipped.
func (vr *VulkanBackend) PrepareFrame(deltaTime float64) error {
	device := vr.context.Device

	if vr.context.RecreatingSwapchain {
		if res := vk.DeviceWaitIdle(device.LogicalDevice); !VulkanResultIsSuccess(res) {
			core.LogFatal("device wait idle failed with %s", VulkanResultString(res))
		}
		core.LogInfo("recreating swapchain, booting")
		return core.ErrSwapchainBooting
	}

	if vr.context.FramebufferSizeGeneration != vr.context.FramebufferSizeLastGeneration {
		if res := vk.DeviceWaitIdle(device.LogicalDevice); !VulkanResultIsSuccess(res) {
			core.LogFatal("device wait idle failed with %s", VulkanResultString(res))
		}
		if err := vr.recreateSwapchain(); err != nil {
			return err
		}
		core.LogInfo("swapchain resized, booting")
		return core.ErrSwapchainBooting
	}

	// Wait for the current frame slot's previous submission. The wait never
	// expires on a healthy device.
	if !vr.context.InFlightFences[vr.context.CurrentFrame].Wait(vr.context, waitForever) {
		core.LogFatal("in-flight fence wait failed")
	}

	imageIndex, ok := vr.context.Swapchain.SwapchainAcquireNextImageIndex(vr.context, waitForever,
		vr.context.ImageAvailableSemaphores[vr.context.CurrentFrame], vk.NullFence)
	if !ok {
		return core.ErrSwapchainBooting
	}
	vr.context.ImageIndex = imageIndex

	// The fence proved the GPU is done with this slot's buffers.
	vr.instances.Advance()
	return nil
}

// UpdateResources runs pending uploads at the point of the frame where the
// arena may be written safely.
func (vr *VulkanBackend) UpdateResources(fn func() error) error {
	if fn == nil {
		return nil
	}
	return fn()
}

func (vr *VulkanBackend) BeginRendering() error {
	commandBuffer := vr.graphicsCommandBuffers[vr.context.ImageIndex]
	commandBuffer.Reset()
	if err := commandBuffer.Begin(false, false, false); err != nil {
		return err
	}

	viewport := vk.Viewport{
		X:        0.0,
		Y:        float32(vr.context.FramebufferHeight),
		Width:    float32(vr.context.FramebufferWidth),
		Height:   -float32(vr.context.FramebufferHeight),
		MinDepth: 0.0,
		MaxDepth: 1.0,
	}
	scissor := vk.Rect2D{
		Extent: vk.Extent2D{
			Width:  vr.context.FramebufferWidth,
			Height: vr.context.FramebufferHeight,
		},
	}
	vk.CmdSetViewport(commandBuffer.Handle, 0, 1, []vk.Viewport{viewport})
	vk.CmdSetScissor(commandBuffer.Handle, 0, 1, []vk.Rect2D{scissor})

	vr.context.MainRenderpass.W = float32(vr.context.FramebufferWidth)
	vr.context.MainRenderpass.H = float32(vr.context.FramebufferHeight)
	vr.context.MainRenderpass.RenderpassBegin(commandBuffer, vr.context.Swapchain.Framebuffers[vr.context.ImageIndex].Handle)
	return nil
}

// DrawScene records the opaque pass then the transparent pass. Both passes
// share the bindless set; the material flag in the push constants tells the
// fragment shader which path to shade.
func (vr *VulkanBackend) DrawScene(packet *metadata.RenderPacket) error {
	commandBuffer := vr.graphicsCommandBuffers[vr.context.ImageIndex]

	meshObjectsAddress, err := vr.arena.BufferDeviceAddress(packet.MeshObjects)
	if err != nil {
		return err
	}
	materialsAddress, err := vr.arena.BufferDeviceAddress(packet.Materials)
	if err != nil {
		return err
	}
	instancesAddress, err := vr.arena.BufferDeviceAddress(vr.instances.Current())
	if err != nil {
		return err
	}

	viewProjection := packet.Projection.Mul4(packet.View)

	drawPass := func(pipeline *VulkanPipeline, blended bool) error {
		pipeline.Bind(commandBuffer, vk.PipelineBindPointGraphics)
		vk.CmdBindDescriptorSets(commandBuffer.Handle, vk.PipelineBindPointGraphics, pipeline.Layout,
			0, 1, []vk.DescriptorSet{vr.descriptors.Set}, 0, nil)

		for _, command := range packet.Commands {
			if command.Material.Blended != blended {
				continue
			}
			mesh, err := vr.arena.Mesh(command.Mesh)
			if err != nil {
				return err
			}

			instance := metadata.InstanceData{
				MVP:   viewProjection.Mul4(command.Transform),
				Model: command.Transform,
			}
			instanceOffset, err := vr.instances.Append(instance.Encode())
			if err != nil {
				return err
			}

			materialFlags := MaterialFlagOpaque
			if blended {
				materialFlags = MaterialFlagBlended
			}
			pushConstants := DrawPushConstants{
				MeshObjectsAddress: meshObjectsAddress,
				MaterialsAddress:   materialsAddress,
				InstanceAddress:    instancesAddress + instanceOffset,
				MeshObjectIndex:    mesh.ObjectIndex,
				MaterialOffset:     command.Material.Offset,
				MaterialFlags:      materialFlags,
			}
			vk.CmdPushConstants(commandBuffer.Handle, pipeline.Layout,
				vk.ShaderStageFlags(vk.ShaderStageVertexBit)|vk.ShaderStageFlags(vk.ShaderStageFragmentBit),
				0, DrawPushConstantsSize, unsafe.Pointer(&pushConstants))

			indexBuffer, err := vr.arena.Buffer(mesh.Indices)
			if err != nil {
				return err
			}
			vk.CmdBindIndexBuffer(commandBuffer.Handle, indexBuffer.Handle, 0, vk.IndexTypeUint32)
			vk.CmdDrawIndexed(commandBuffer.Handle, mesh.IndexCount, 1, 0, 0, 0)
		}
		return nil
	}

	// Opaque front to back first, blended afterwards against the settled
	// depth buffer.
	if err := drawPass(vr.opaquePipeline, false); err != nil {
		return err
	}
	if err := drawPass(vr.transparentPipeline, true); err != nil {
		return err
	}

	return vr.instances.Flush(vr.context, vr.arena)
}

func (vr *VulkanBackend) EndRendering() error {
	commandBuffer := vr.graphicsCommandBuffers[vr.context.ImageIndex]
	vr.context.MainRenderpass.RenderpassEnd(commandBuffer)
	return commandBuffer.End()
}

// Present submits the recorded frame and hands the image to the presentation
// engine. The frame slot advances inside SwapchainPresent.
func (vr *VulkanBackend) Present() error {
	commandBuffer := vr.graphicsCommandBuffers[vr.context.ImageIndex]

	// Make sure the previous frame is not using this image.
	if vr.context.ImagesInFlight[vr.context.ImageIndex] != nil {
		vr.context.ImagesInFlight[vr.context.ImageIndex].Wait(vr.context, waitForever)
	}
	vr.context.ImagesInFlight[vr.context.ImageIndex] = vr.context.InFlightFences[vr.context.CurrentFrame]

	if err := vr.context.InFlightFences[vr.context.CurrentFrame].Reset(vr.context); err != nil {
		return err
	}

	submitInfo := vk.SubmitInfo{
		SType:                vk.StructureTypeSubmitInfo,
		CommandBufferCount:   1,
		PCommandBuffers:      []vk.CommandBuffer{commandBuffer.Handle},
		SignalSemaphoreCount: 1,
		PSignalSemaphores:    []vk.Semaphore{vr.context.QueueCompleteSemaphores[vr.context.CurrentFrame]},
		WaitSemaphoreCount:   1,
		PWaitSemaphores:      []vk.Semaphore{vr.context.ImageAvailableSemaphores[vr.context.CurrentFrame]},
		PWaitDstStageMask:    []vk.PipelineStageFlags{vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit)},
	}
	if res := vk.QueueSubmit(vr.context.Device.GraphicsQueue, 1, []vk.SubmitInfo{submitInfo}, vr.context.InFlightFences[vr.context.CurrentFrame].Handle); res != vk.Success {
		core.LogFatal("queue submit failed with %s", VulkanResultString(res))
	}
	commandBuffer.UpdateSubmitted()

	vr.context.Swapchain.SwapchainPresent(vr.context, vr.context.Device.PresentQueue,
		vr.context.QueueCompleteSemaphores[vr.context.CurrentFrame], vr.context.ImageIndex)
	return nil
}

func (vr *VulkanBackend) WaitIdle() error {
	if res := vk.DeviceWaitIdle(vr.context.Device.LogicalDevice); !VulkanResultIsSuccess(res) {
		return fmt.Errorf("device wait idle failed with %s", VulkanResultString(res))
	}
	return nil
}

func (vr *VulkanBackend) recreateSwapchain() error {
	vr.context.RecreatingSwapchain = true
	defer func() { vr.context.RecreatingSwapchain = false }()

	if vr.cachedFramebufferWidth != 0 && vr.cachedFramebufferHeight != 0 {
		vr.context.FramebufferWidth = vr.cachedFramebufferWidth
		vr.context.FramebufferHeight = vr.cachedFramebufferHeight
	}

	if err := DeviceQuerySwapchainSupport(vr.context.Device.PhysicalDevice, vr.context.Surface, vr.context.Device.SwapchainSupport); err != nil {
		return err
	}

	swapchain, err := vr.context.Swapchain.SwapchainRecreate(vr.context, vr.context.FramebufferWidth, vr.context.FramebufferHeight)
	if err != nil {
		return err
	}
	vr.context.Swapchain = swapchain

	if err := swapchain.RegenerateFramebuffers(vr.context, vr.context.MainRenderpass, vr.context.FramebufferWidth, vr.context.FramebufferHeight); err != nil {
		return err
	}
	if len(vr.context.ImagesInFlight) != int(swapchain.ImageCount) {
		vr.context.ImagesInFlight = make([]*VulkanFence, swapchain.ImageCount)
	}
	for i := range vr.context.ImagesInFlight {
		vr.context.ImagesInFlight[i] = nil
	}

	for _, commandBuffer := range vr.graphicsCommandBuffers {
		commandBuffer.Free(vr.context, vr.context.Device.GraphicsCommandPool)
	}
	if err := vr.createCommandBuffers(); err != nil {
		return err
	}

	vr.context.FramebufferSizeLastGeneration = vr.context.FramebufferSizeGeneration
	return nil
}

// Shutdown tears everything down in reverse dependency order: device idle
// first, then pipelines and per frame objects, then the arena, then the
// device itself.
func (vr *VulkanBackend) Shutdown() {
	vk.DeviceWaitIdle(vr.context.Device.LogicalDevice)

	vr.instances.Destroy(vr.arena)
	vr.opaquePipeline.Destroy(vr.context)
	vr.transparentPipeline.Destroy(vr.context)
	vr.vertexStage.Destroy(vr.context)
	vr.fragmentStage.Destroy(vr.context)
	vr.descriptors.Destroy(vr.context)

	vr.arena.FreeAll()

	for i := 0; i < int(vr.context.Swapchain.MaxFramesInFlight); i++ {
		if vr.context.ImageAvailableSemaphores[i] != vk.NullSemaphore {
			vk.DestroySemaphore(vr.context.Device.LogicalDevice, vr.context.ImageAvailableSemaphores[i], vr.context.Allocator)
			vr.context.ImageAvailableSemaphores[i] = vk.NullSemaphore
		}
		if vr.context.QueueCompleteSemaphores[i] != vk.NullSemaphore {
			vk.DestroySemaphore(vr.context.Device.LogicalDevice, vr.context.QueueCompleteSemaphores[i], vr.context.Allocator)
			vr.context.QueueCompleteSemaphores[i] = vk.NullSemaphore
		}
		vr.context.InFlightFences[i].Destroy(vr.context)
	}
	vr.context.ImageAvailableSemaphores = nil
	vr.context.QueueCompleteSemaphores = nil
	vr.context.InFlightFences = nil
	vr.context.ImagesInFlight = nil

	for _, commandBuffer := range vr.graphicsCommandBuffers {
		if commandBuffer.Handle != nil {
			commandBuffer.Free(vr.context, vr.context.Device.GraphicsCommandPool)
		}
	}
	vr.graphicsCommandBuffers = nil

	vr.context.MainRenderpass.RenderpassDestroy(vr.context)
	vr.context.Swapchain.SwapchainDestroy(vr.context)

	DeviceDestroy(vr.context)

	if vr.context.debugMessenger != vk.NullDebugReportCallback {
		vk.DestroyDebugReportCallback(vr.context.Instance, vr.context.debugMessenger, vr.context.Allocator)
	}
	vk.DestroySurface(vr.context.Instance, vr.context.Surface, vr.context.Allocator)
	vk.DestroyInstance(vr.context.Instance, vr.context.Allocator)

	core.LogInfo("Vulkan renderer shut down.")
}

func dbgCallbackFunc(flags vk.DebugReportFlags, objectType vk.DebugReportObjectType, object uint64, location uint64,
	messageCode int32, pLayerPrefix string, pMessage string, pUserData unsafe.Pointer) vk.Bool32 {
	switch {
	case flags&vk.DebugReportFlags(vk.DebugReportErrorBit) != 0:
		core.LogError("[%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportWarningBit) != 0:
		core.LogWarn("[%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportPerformanceWarningBit) != 0:
		core.LogWarn("PERFORMANCE: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	default:
		core.LogInfo("[%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	}
	return vk.Bool32(vk.False)
}
