package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/lumen/engine/core"
)

type AllocatedSampler struct {
	Name   string
	Handle vk.Sampler
}

type SamplerConfig struct {
	MagFilter     vk.Filter
	MinFilter     vk.Filter
	MipmapMode    vk.SamplerMipmapMode
	AddressMode   vk.SamplerAddressMode
	MaxLod        float32
	Anisotropy    bool
	MaxAnisotropy float32
}

// DefaultSamplerConfig is a trilinear repeat sampler covering every mip.
func DefaultSamplerConfig() SamplerConfig {
	return SamplerConfig{
		MagFilter:     vk.FilterLinear,
		MinFilter:     vk.FilterLinear,
		MipmapMode:    vk.SamplerMipmapModeLinear,
		AddressMode:   vk.SamplerAddressModeRepeat,
		MaxLod:        vk.LodClampNone,
		Anisotropy:    true,
		MaxAnisotropy: 16.0,
	}
}

func SamplerCreate(context *VulkanContext, name string, config SamplerConfig) (*AllocatedSampler, error) {
	samplerInfo := vk.SamplerCreateInfo{
		SType:        vk.StructureTypeSamplerCreateInfo,
		MagFilter:    config.MagFilter,
		MinFilter:    config.MinFilter,
		MipmapMode:   config.MipmapMode,
		AddressModeU: config.AddressMode,
		AddressModeV: config.AddressMode,
		AddressModeW: config.AddressMode,
		MinLod:       0,
		MaxLod:       config.MaxLod,
		BorderColor:  vk.BorderColorIntOpaqueBlack,
	}
	if config.Anisotropy {
		samplerInfo.AnisotropyEnable = vk.True
		samplerInfo.MaxAnisotropy = config.MaxAnisotropy
	}

	var pSampler vk.Sampler
	if res := vk.CreateSampler(context.Device.LogicalDevice, &samplerInfo, context.Allocator, &pSampler); res != vk.Success {
		err := fmt.Errorf("failed to create sampler '%s' with error %s", name, VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}
	return &AllocatedSampler{Name: name, Handle: pSampler}, nil
}

func (s *AllocatedSampler) Destroy(context *VulkanContext) {
	if s.Handle != nil {
		vk.DestroySampler(context.Device.LogicalDevice, s.Handle, context.Allocator)
		s.Handle = nil
	}
}
