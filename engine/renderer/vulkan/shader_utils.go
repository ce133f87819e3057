package vulkan

import (
	"encoding/binary"
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/lumen/engine/core"
)

/**
 * @brief Represents a single shader stage.
 */
type VulkanShaderStage struct {
	/** @brief The internal shader module handle. */
	Handle vk.ShaderModule
	/** @brief The pipeline shader stage creation info. */
	ShaderStageCreateInfo vk.PipelineShaderStageCreateInfo
}

// NewShaderModule wraps compiled SPIR-V bytes into a shader module and its
// pipeline stage info. Reading the .spv off disk is the asset loader's job.
func NewShaderModule(context *VulkanContext, name string, code []byte, shaderStageFlag vk.ShaderStageFlagBits) (*VulkanShaderStage, error) {
	if len(code) == 0 || len(code)%4 != 0 {
		err := fmt.Errorf("shader '%s' is not valid SPIR-V (%d bytes)", name, len(code))
		core.LogError(err.Error())
		return nil, err
	}

	words := make([]uint32, len(code)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(code[i*4:])
	}

	createInfo := vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint64(len(code)),
		PCode:    words,
	}
	var pModule vk.ShaderModule
	if res := vk.CreateShaderModule(context.Device.LogicalDevice, &createInfo, context.Allocator, &pModule); res != vk.Success {
		err := fmt.Errorf("failed to create shader module '%s' with error %s", name, VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}

	stage := &VulkanShaderStage{
		Handle: pModule,
		ShaderStageCreateInfo: vk.PipelineShaderStageCreateInfo{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  shaderStageFlag,
			Module: pModule,
			PName:  VulkanSafeString("main"),
		},
	}
	return stage, nil
}

func (vss *VulkanShaderStage) Destroy(context *VulkanContext) {
	if vss.Handle != nil {
		vk.DestroyShaderModule(context.Device.LogicalDevice, vss.Handle, context.Allocator)
		vss.Handle = nil
	}
}
