package vulkan

import (
	"fmt"
	"unsafe"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/lumen/engine/core"
)

// Material classes pushed to the fragment shader. The opaque and transparent
// pass share pipelines of the same shape and differ in depth write and blend
// state; the flag lets the shader pick the shading path.
const (
	MaterialFlagOpaque  uint32 = 0
	MaterialFlagBlended uint32 = 1
)

// DrawPushConstants is the per-draw push constant block. All buffers are
// reached through device addresses, so one push suffices: the mesh object
// table, the material blob, and this draw's instance record.
type DrawPushConstants struct {
	MeshObjectsAddress uint64
	MaterialsAddress   uint64
	InstanceAddress    uint64
	MeshObjectIndex    uint32
	MaterialOffset     uint32
	MaterialFlags      uint32
	_                  uint32
}

const DrawPushConstantsSize = uint32(unsafe.Sizeof(DrawPushConstants{}))

type VulkanPipeline struct {
	Handle vk.Pipeline
	Layout vk.PipelineLayout
}

type VulkanPipelineConfig struct {
	Renderpass           *VulkanRenderpass
	Stages               []vk.PipelineShaderStageCreateInfo
	DescriptorSetLayouts []vk.DescriptorSetLayout
	PushConstantSize     uint32
	/** @brief Depth writes on (opaque pass) or off (transparent pass). */
	DepthWrite bool
	/** @brief Additive blending for the transparent pass. */
	Blend bool
}

func NewGraphicsPipeline(context *VulkanContext, config *VulkanPipelineConfig) (*VulkanPipeline, error) {
	pipeline := &VulkanPipeline{}

	// Viewport and scissor are dynamic; the window resizes without pipeline
	// recreation.
	viewportState := vk.PipelineViewportStateCreateInfo{
		SType:         vk.StructureTypePipelineViewportStateCreateInfo,
		ViewportCount: 1,
		ScissorCount:  1,
	}

	rasterizerCreateInfo := vk.PipelineRasterizationStateCreateInfo{
		SType:       vk.StructureTypePipelineRasterizationStateCreateInfo,
		PolygonMode: vk.PolygonModeFill,
		LineWidth:   1.0,
		CullMode:    vk.CullModeFlags(vk.CullModeBackBit),
		FrontFace:   vk.FrontFaceCounterClockwise,
	}

	multisamplingCreateInfo := vk.PipelineMultisampleStateCreateInfo{
		SType:                vk.StructureTypePipelineMultisampleStateCreateInfo,
		RasterizationSamples: vk.SampleCount1Bit,
		MinSampleShading:     1.0,
	}

	depthStencil := vk.PipelineDepthStencilStateCreateInfo{
		SType:            vk.StructureTypePipelineDepthStencilStateCreateInfo,
		DepthTestEnable:  vk.True,
		DepthWriteEnable: vk.False,
		DepthCompareOp:   vk.CompareOpLess,
	}
	if config.DepthWrite {
		depthStencil.DepthWriteEnable = vk.True
	}

	colorBlendAttachmentState := vk.PipelineColorBlendAttachmentState{
		ColorWriteMask: vk.ColorComponentFlags(vk.ColorComponentRBit | vk.ColorComponentGBit |
			vk.ColorComponentBBit | vk.ColorComponentABit),
	}
	if config.Blend {
		colorBlendAttachmentState.BlendEnable = vk.True
		colorBlendAttachmentState.SrcColorBlendFactor = vk.BlendFactorSrcAlpha
		colorBlendAttachmentState.DstColorBlendFactor = vk.BlendFactorOne
		colorBlendAttachmentState.ColorBlendOp = vk.BlendOpAdd
		colorBlendAttachmentState.SrcAlphaBlendFactor = vk.BlendFactorOne
		colorBlendAttachmentState.DstAlphaBlendFactor = vk.BlendFactorOne
		colorBlendAttachmentState.AlphaBlendOp = vk.BlendOpAdd
	}

	colorBlendStateCreateInfo := vk.PipelineColorBlendStateCreateInfo{
		SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
		LogicOp:         vk.LogicOpCopy,
		AttachmentCount: 1,
		PAttachments:    []vk.PipelineColorBlendAttachmentState{colorBlendAttachmentState},
	}

	dynamicStates := []vk.DynamicState{
		vk.DynamicStateViewport,
		vk.DynamicStateScissor,
	}
	dynamicStateCreateInfo := vk.PipelineDynamicStateCreateInfo{
		SType:             vk.StructureTypePipelineDynamicStateCreateInfo,
		DynamicStateCount: uint32(len(dynamicStates)),
		PDynamicStates:    dynamicStates,
	}

	// No fixed function vertex input: vertices are pulled through buffer
	// device addresses out of the mesh object records.
	vertexInputInfo := vk.PipelineVertexInputStateCreateInfo{
		SType: vk.StructureTypePipelineVertexInputStateCreateInfo,
	}

	inputAssembly := vk.PipelineInputAssemblyStateCreateInfo{
		SType:    vk.StructureTypePipelineInputAssemblyStateCreateInfo,
		Topology: vk.PrimitiveTopologyTriangleList,
	}

	layoutCreateInfo := vk.PipelineLayoutCreateInfo{
		SType:          vk.StructureTypePipelineLayoutCreateInfo,
		SetLayoutCount: uint32(len(config.DescriptorSetLayouts)),
		PSetLayouts:    config.DescriptorSetLayouts,
	}
	if config.PushConstantSize > 0 {
		layoutCreateInfo.PushConstantRangeCount = 1
		layoutCreateInfo.PPushConstantRanges = []vk.PushConstantRange{
			{
				StageFlags: vk.ShaderStageFlags(vk.ShaderStageVertexBit) | vk.ShaderStageFlags(vk.ShaderStageFragmentBit),
				Offset:     0,
				Size:       config.PushConstantSize,
			},
		}
	}

	var pPipelineLayout vk.PipelineLayout
	if res := vk.CreatePipelineLayout(context.Device.LogicalDevice, &layoutCreateInfo, context.Allocator, &pPipelineLayout); res != vk.Success {
		err := fmt.Errorf("failed to create pipeline layout with error %s", VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}
	pipeline.Layout = pPipelineLayout

	pipelineCreateInfo := vk.GraphicsPipelineCreateInfo{
		SType:               vk.StructureTypeGraphicsPipelineCreateInfo,
		StageCount:          uint32(len(config.Stages)),
		PStages:             config.Stages,
		PVertexInputState:   &vertexInputInfo,
		PInputAssemblyState: &inputAssembly,
		PViewportState:      &viewportState,
		PRasterizationState: &rasterizerCreateInfo,
		PMultisampleState:   &multisamplingCreateInfo,
		PDepthStencilState:  &depthStencil,
		PColorBlendState:    &colorBlendStateCreateInfo,
		PDynamicState:       &dynamicStateCreateInfo,
		Layout:              pipeline.Layout,
		RenderPass:          config.Renderpass.Handle,
		Subpass:             0,
		BasePipelineIndex:   -1,
	}

	pPipelines := make([]vk.Pipeline, 1)
	if res := vk.CreateGraphicsPipelines(context.Device.LogicalDevice, nil, 1, []vk.GraphicsPipelineCreateInfo{pipelineCreateInfo}, context.Allocator, pPipelines); !VulkanResultIsSuccess(res) {
		err := fmt.Errorf("failed to create graphics pipeline with error %s", VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}
	pipeline.Handle = pPipelines[0]

	core.LogDebug("Graphics pipeline created.")
	return pipeline, nil
}

func (vp *VulkanPipeline) Destroy(context *VulkanContext) {
	if vp.Handle != nil {
		vk.DestroyPipeline(context.Device.LogicalDevice, vp.Handle, context.Allocator)
		vp.Handle = nil
	}
	if vp.Layout != nil {
		vk.DestroyPipelineLayout(context.Device.LogicalDevice, vp.Layout, context.Allocator)
		vp.Layout = nil
	}
}

func (vp *VulkanPipeline) Bind(commandBuffer *VulkanCommandBuffer, bindPoint vk.PipelineBindPoint) {
	vk.CmdBindPipeline(commandBuffer.Handle, bindPoint, vp.Handle)
}
