package vulkan

import (
	"fmt"
	"unsafe"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
)

// ResourceBinding is one bindless table update. The concrete types below are
// the only supported kinds; anything else is a programming error.
type ResourceBinding interface {
	kind() metadata.DescriptorKind
	slot() uint32
}

type SamplerBinding struct {
	Slot    uint32
	Sampler vk.Sampler
}

func (b SamplerBinding) kind() metadata.DescriptorKind { return metadata.DescriptorKindSampler }
func (b SamplerBinding) slot() uint32                  { return b.Slot }

type SampledImageBinding struct {
	Slot uint32
	View vk.ImageView
}

func (b SampledImageBinding) kind() metadata.DescriptorKind { return metadata.DescriptorKindSampledImage }
func (b SampledImageBinding) slot() uint32                  { return b.Slot }

type StorageImageBinding struct {
	Slot uint32
	View vk.ImageView
}

func (b StorageImageBinding) kind() metadata.DescriptorKind { return metadata.DescriptorKindStorageImage }
func (b StorageImageBinding) slot() uint32                  { return b.Slot }

/**
 * @brief DescriptorTable is the bindless descriptor surface: one descriptor
 * set whose bindings are large partially bound arrays. Shaders index the
 * arrays by the same slot numbers the arena hands out.
 */
type DescriptorTable struct {
	Layout vk.DescriptorSetLayout
	Pool   vk.DescriptorPool
	Set    vk.DescriptorSet

	// Table carries the declared capacity of every binding; updates are
	// validated against it before they reach the device.
	Table *metadata.BindingTable

	declarations []metadata.BindingDeclaration
	// binding index per kind into the descriptor set layout
	bindingIndex map[metadata.DescriptorKind]uint32
}

type DescriptorTableBuilder struct {
	declarations []metadata.BindingDeclaration
}

func NewDescriptorTableBuilder() *DescriptorTableBuilder {
	return &DescriptorTableBuilder{}
}

// AddBinding appends one binding declaration. Order matters: binding indices
// and table offsets follow declaration order, and a variable count binding
// must be declared last.
func (b *DescriptorTableBuilder) AddBinding(kind metadata.DescriptorKind, capacity uint32, flags metadata.BindingFlags) *DescriptorTableBuilder {
	b.declarations = append(b.declarations, metadata.BindingDeclaration{
		Kind:     kind,
		Capacity: capacity,
		Flags:    flags,
	})
	return b
}

func descriptorKindToVk(kind metadata.DescriptorKind) vk.DescriptorType {
	switch kind {
	case metadata.DescriptorKindSampler:
		return vk.DescriptorTypeSampler
	case metadata.DescriptorKindSampledImage:
		return vk.DescriptorTypeSampledImage
	case metadata.DescriptorKindStorageImage:
		return vk.DescriptorTypeStorageImage
	default:
		core.LogFatal("unsupported descriptor kind %d", kind)
		return 0
	}
}

func (b *DescriptorTableBuilder) Build(context *VulkanContext) (*DescriptorTable, error) {
	if len(b.declarations) == 0 {
		core.LogFatal("descriptor table built with no bindings")
	}
	for i, declaration := range b.declarations {
		if declaration.Flags&metadata.BindingVariableCount != 0 && i != len(b.declarations)-1 {
			core.LogFatal("variable count binding '%s' must be declared last", declaration.Kind)
		}
	}

	table := &DescriptorTable{
		declarations: b.declarations,
		bindingIndex: make(map[metadata.DescriptorKind]uint32, len(b.declarations)),
		Table:        metadata.NewBindingTable(b.declarations, context.Device.DescriptorSizes()),
	}

	layoutBindings := make([]vk.DescriptorSetLayoutBinding, len(b.declarations))
	bindingFlags := make([]vk.DescriptorBindingFlags, len(b.declarations))
	poolSizes := make([]vk.DescriptorPoolSize, len(b.declarations))
	variableCount := uint32(0)
	for i, declaration := range b.declarations {
		table.bindingIndex[declaration.Kind] = uint32(i)
		layoutBindings[i] = vk.DescriptorSetLayoutBinding{
			Binding:         uint32(i),
			DescriptorType:  descriptorKindToVk(declaration.Kind),
			DescriptorCount: declaration.Capacity,
			StageFlags:      vk.ShaderStageFlags(vk.ShaderStageAllGraphics) | vk.ShaderStageFlags(vk.ShaderStageComputeBit),
		}
		poolSizes[i] = vk.DescriptorPoolSize{
			Type:            descriptorKindToVk(declaration.Kind),
			DescriptorCount: declaration.Capacity,
		}

		flags := vk.DescriptorBindingFlags(vk.DescriptorBindingUpdateUnusedWhilePendingBit)
		if declaration.Flags&metadata.BindingPartiallyBound != 0 {
			flags |= vk.DescriptorBindingFlags(vk.DescriptorBindingPartiallyBoundBit)
		}
		if declaration.Flags&metadata.BindingVariableCount != 0 {
			flags |= vk.DescriptorBindingFlags(vk.DescriptorBindingVariableDescriptorCountBit)
			variableCount = declaration.Capacity
		}
		bindingFlags[i] = flags
	}

	bindingFlagsInfo := vk.DescriptorSetLayoutBindingFlagsCreateInfo{
		SType:         vk.StructureTypeDescriptorSetLayoutBindingFlagsCreateInfo,
		BindingCount:  uint32(len(bindingFlags)),
		PBindingFlags: bindingFlags,
	}
	layoutInfo := vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		PNext:        unsafe.Pointer(&bindingFlagsInfo),
		BindingCount: uint32(len(layoutBindings)),
		PBindings:    layoutBindings,
	}
	var pLayout vk.DescriptorSetLayout
	if res := vk.CreateDescriptorSetLayout(context.Device.LogicalDevice, &layoutInfo, context.Allocator, &pLayout); res != vk.Success {
		err := fmt.Errorf("failed to create descriptor set layout with error %s", VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}
	table.Layout = pLayout

	poolInfo := vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		MaxSets:       1,
		PoolSizeCount: uint32(len(poolSizes)),
		PPoolSizes:    poolSizes,
	}
	var pPool vk.DescriptorPool
	if res := vk.CreateDescriptorPool(context.Device.LogicalDevice, &poolInfo, context.Allocator, &pPool); res != vk.Success {
		err := fmt.Errorf("failed to create descriptor pool with error %s", VulkanResultString(res))
		core.LogError(err.Error())
		table.Destroy(context)
		return nil, err
	}
	table.Pool = pPool

	allocateInfo := vk.DescriptorSetAllocateInfo{
		SType:              vk.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     table.Pool,
		DescriptorSetCount: 1,
		PSetLayouts:        []vk.DescriptorSetLayout{table.Layout},
	}
	if variableCount > 0 {
		variableCountInfo := vk.DescriptorSetVariableDescriptorCountAllocateInfo{
			SType:              vk.StructureTypeDescriptorSetVariableDescriptorCountAllocateInfo,
			DescriptorSetCount: 1,
			PDescriptorCounts:  []uint32{variableCount},
		}
		allocateInfo.PNext = unsafe.Pointer(&variableCountInfo)
	}
	pSets := make([]vk.DescriptorSet, 1)
	if res := vk.AllocateDescriptorSets(context.Device.LogicalDevice, &allocateInfo, &pSets[0]); res != vk.Success {
		err := fmt.Errorf("failed to allocate descriptor set with error %s", VulkanResultString(res))
		core.LogError(err.Error())
		table.Destroy(context)
		return nil, err
	}
	table.Set = pSets[0]

	core.LogInfo("Descriptor table created: %d bindings.", len(b.declarations))
	return table, nil
}

// UpdateBinding publishes one resource at its slot with a single synchronous
// descriptor write. Rebinding the same slot is idempotent.
func (dt *DescriptorTable) UpdateBinding(context *VulkanContext, binding ResourceBinding) error {
	// Offset doubles as the slot range check against the declared capacity.
	if _, _, err := dt.Table.Offset(binding.kind(), binding.slot()); err != nil {
		core.LogError(err.Error())
		return err
	}

	write := vk.WriteDescriptorSet{
		SType:           vk.StructureTypeWriteDescriptorSet,
		DstSet:          dt.Set,
		DstBinding:      dt.bindingIndex[binding.kind()],
		DstArrayElement: binding.slot(),
		DescriptorCount: 1,
		DescriptorType:  descriptorKindToVk(binding.kind()),
	}
	switch b := binding.(type) {
	case SamplerBinding:
		write.PImageInfo = []vk.DescriptorImageInfo{{Sampler: b.Sampler}}
	case SampledImageBinding:
		write.PImageInfo = []vk.DescriptorImageInfo{{
			ImageView:   b.View,
			ImageLayout: vk.ImageLayoutShaderReadOnlyOptimal,
		}}
	case StorageImageBinding:
		write.PImageInfo = []vk.DescriptorImageInfo{{
			ImageView:   b.View,
			ImageLayout: vk.ImageLayoutGeneral,
		}}
	default:
		core.LogFatal("unsupported binding type %T", binding)
	}

	vk.UpdateDescriptorSets(context.Device.LogicalDevice, 1, []vk.WriteDescriptorSet{write}, 0, nil)
	return nil
}

func (dt *DescriptorTable) Destroy(context *VulkanContext) {
	if dt.Pool != nil {
		vk.DestroyDescriptorPool(context.Device.LogicalDevice, dt.Pool, context.Allocator)
		dt.Pool = nil
	}
	if dt.Layout != nil {
		vk.DestroyDescriptorSetLayout(context.Device.LogicalDevice, dt.Layout, context.Allocator)
		dt.Layout = nil
	}
}
