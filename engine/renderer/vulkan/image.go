package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/lumen/engine/core"
)

type AllocatedImage struct {
	Name   string
	Handle vk.Image
	Memory vk.DeviceMemory
	View   vk.ImageView

	Width     uint32
	Height    uint32
	MipLevels uint32
	Format    vk.Format
}

func ImageCreate(context *VulkanContext, name string, width, height, mipLevels uint32, format vk.Format,
	tiling vk.ImageTiling, usage vk.ImageUsageFlags, memoryFlags vk.MemoryPropertyFlags,
	createView bool, viewAspect vk.ImageAspectFlags) (*AllocatedImage, error) {

	if mipLevels == 0 {
		mipLevels = 1
	}
	image := &AllocatedImage{
		Name:      name,
		Width:     width,
		Height:    height,
		MipLevels: mipLevels,
		Format:    format,
	}

	imageInfo := vk.ImageCreateInfo{
		SType:     vk.StructureTypeImageCreateInfo,
		ImageType: vk.ImageType2d,
		Extent: vk.Extent3D{
			Width:  width,
			Height: height,
			Depth:  1,
		},
		MipLevels:     mipLevels,
		ArrayLayers:   1,
		Format:        format,
		Tiling:        tiling,
		InitialLayout: vk.ImageLayoutUndefined,
		Usage:         usage,
		Samples:       vk.SampleCount1Bit,
		SharingMode:   vk.SharingModeExclusive,
	}
	var pImage vk.Image
	if res := vk.CreateImage(context.Device.LogicalDevice, &imageInfo, context.Allocator, &pImage); res != vk.Success {
		err := fmt.Errorf("failed to create image '%s' with error %s", name, VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}
	image.Handle = pImage

	var requirements vk.MemoryRequirements
	vk.GetImageMemoryRequirements(context.Device.LogicalDevice, image.Handle, &requirements)
	requirements.Deref()

	memoryIndex := context.FindMemoryIndex(requirements.MemoryTypeBits, memoryFlags)
	if memoryIndex == -1 {
		err := fmt.Errorf("required memory type not found for image '%s'", name)
		core.LogError(err.Error())
		return nil, err
	}

	allocateInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  requirements.Size,
		MemoryTypeIndex: uint32(memoryIndex),
	}
	var pMemory vk.DeviceMemory
	if res := vk.AllocateMemory(context.Device.LogicalDevice, &allocateInfo, context.Allocator, &pMemory); res != vk.Success {
		err := fmt.Errorf("failed to allocate memory for image '%s' with error %s", name, VulkanResultString(res))
		core.LogError(err.Error())
		vk.DestroyImage(context.Device.LogicalDevice, image.Handle, context.Allocator)
		return nil, err
	}
	image.Memory = pMemory

	if res := vk.BindImageMemory(context.Device.LogicalDevice, image.Handle, image.Memory, 0); res != vk.Success {
		err := fmt.Errorf("failed to bind memory for image '%s' with error %s", name, VulkanResultString(res))
		core.LogError(err.Error())
		image.Destroy(context)
		return nil, err
	}

	if createView {
		if err := image.ViewCreate(context, viewAspect); err != nil {
			image.Destroy(context)
			return nil, err
		}
	}
	return image, nil
}

func (i *AllocatedImage) ViewCreate(context *VulkanContext, aspectFlags vk.ImageAspectFlags) error {
	viewInfo := vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    i.Handle,
		ViewType: vk.ImageViewType2d,
		Format:   i.Format,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask:     aspectFlags,
			BaseMipLevel:   0,
			LevelCount:     i.MipLevels,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
	}
	var pView vk.ImageView
	if res := vk.CreateImageView(context.Device.LogicalDevice, &viewInfo, context.Allocator, &pView); res != vk.Success {
		err := fmt.Errorf("failed to create view for image '%s' with error %s", i.Name, VulkanResultString(res))
		core.LogError(err.Error())
		return err
	}
	i.View = pView
	return nil
}

// TransitionLayout records a pipeline barrier moving every mip of the image
// from oldLayout to newLayout.
func (i *AllocatedImage) TransitionLayout(context *VulkanContext, commandBuffer *VulkanCommandBuffer, oldLayout, newLayout vk.ImageLayout) error {
	barrier := vk.ImageMemoryBarrier{
		SType:               vk.StructureTypeImageMemoryBarrier,
		OldLayout:           oldLayout,
		NewLayout:           newLayout,
		SrcQueueFamilyIndex: context.Device.GraphicsQueueIndex,
		DstQueueFamilyIndex: context.Device.GraphicsQueueIndex,
		Image:               i.Handle,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
			BaseMipLevel:   0,
			LevelCount:     i.MipLevels,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
	}

	var sourceStage, destinationStage vk.PipelineStageFlags
	switch {
	case oldLayout == vk.ImageLayoutUndefined && newLayout == vk.ImageLayoutTransferDstOptimal:
		barrier.SrcAccessMask = 0
		barrier.DstAccessMask = vk.AccessFlags(vk.AccessTransferWriteBit)
		sourceStage = vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit)
		destinationStage = vk.PipelineStageFlags(vk.PipelineStageTransferBit)
	case oldLayout == vk.ImageLayoutTransferDstOptimal && newLayout == vk.ImageLayoutShaderReadOnlyOptimal:
		barrier.SrcAccessMask = vk.AccessFlags(vk.AccessTransferWriteBit)
		barrier.DstAccessMask = vk.AccessFlags(vk.AccessShaderReadBit)
		sourceStage = vk.PipelineStageFlags(vk.PipelineStageTransferBit)
		destinationStage = vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit)
	default:
		err := fmt.Errorf("unsupported layout transition for image '%s'", i.Name)
		core.LogError(err.Error())
		return err
	}

	vk.CmdPipelineBarrier(commandBuffer.Handle, sourceStage, destinationStage, 0,
		0, nil, 0, nil, 1, []vk.ImageMemoryBarrier{barrier})
	return nil
}

// CopyFromBuffer records buffer to image copies, one region per mip level.
func (i *AllocatedImage) CopyFromBuffer(commandBuffer *VulkanCommandBuffer, buffer vk.Buffer, regions []vk.BufferImageCopy) {
	vk.CmdCopyBufferToImage(commandBuffer.Handle, buffer, i.Handle, vk.ImageLayoutTransferDstOptimal, uint32(len(regions)), regions)
}

func (i *AllocatedImage) Destroy(context *VulkanContext) {
	if i.View != nil {
		vk.DestroyImageView(context.Device.LogicalDevice, i.View, context.Allocator)
		i.View = nil
	}
	if i.Memory != nil {
		vk.FreeMemory(context.Device.LogicalDevice, i.Memory, context.Allocator)
		i.Memory = nil
	}
	if i.Handle != nil {
		vk.DestroyImage(context.Device.LogicalDevice, i.Handle, context.Allocator)
		i.Handle = nil
	}
}
