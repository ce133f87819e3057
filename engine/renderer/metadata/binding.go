package metadata

import (
	"fmt"

	"github.com/spaghettifunk/lumen/engine/core"
)

// DescriptorKind enumerates the descriptor types the bindless table holds.
type DescriptorKind int

const (
	DescriptorKindSampler DescriptorKind = iota
	DescriptorKindSampledImage
	DescriptorKindStorageImage
	descriptorKindCount
)

func (k DescriptorKind) String() string {
	switch k {
	case DescriptorKindSampler:
		return "sampler"
	case DescriptorKindSampledImage:
		return "sampled_image"
	case DescriptorKindStorageImage:
		return "storage_image"
	}
	return fmt.Sprintf("descriptor_kind(%d)", int(k))
}

type BindingFlags uint32

const (
	// BindingPartiallyBound allows the binding to be sparsely populated.
	BindingPartiallyBound BindingFlags = 0x1
	// BindingVariableCount allows the used count to be less than the
	// declared capacity. Only valid on the last (highest-capacity) binding.
	BindingVariableCount BindingFlags = 0x2
)

// BindingDeclaration declares one binding of the bindless layout.
// Declaration order is binding order.
type BindingDeclaration struct {
	Kind     DescriptorKind
	Capacity uint32
	Flags    BindingFlags
}

// DescriptorSizes carries the device-reported byte size of each compact
// descriptor kind, plus the required descriptor-buffer offset alignment.
type DescriptorSizes struct {
	Sampler         uint64
	SampledImage    uint64
	StorageImage    uint64
	OffsetAlignment uint64
}

func (ds DescriptorSizes) sizeOf(kind DescriptorKind) uint64 {
	switch kind {
	case DescriptorKindSampler:
		return ds.Sampler
	case DescriptorKindSampledImage:
		return ds.SampledImage
	case DescriptorKindStorageImage:
		return ds.StorageImage
	}
	// Unsupported kinds indicate a caller/API mismatch that cannot be
	// resolved at runtime.
	core.LogFatal("unsupported descriptor kind %d", int(kind))
	return 0
}

type bindingRange struct {
	declaration BindingDeclaration
	baseOffset  uint64
	stride      uint64
}

// BindingTable computes byte offsets inside the flat descriptor buffer.
// Bindings are laid out in declaration order; slot i of a binding lives at
// base + i*stride where stride is the device-reported descriptor size.
type BindingTable struct {
	ranges    [descriptorKindCount]bindingRange
	present   [descriptorKindCount]bool
	sizes     DescriptorSizes
	totalSize uint64
}

// NewBindingTable lays out the declarations sequentially. At most one
// declaration per kind; a duplicate kind or zero capacity is a programmer
// error and fatal.
func NewBindingTable(declarations []BindingDeclaration, sizes DescriptorSizes) *BindingTable {
	bt := &BindingTable{sizes: sizes}
	cursor := uint64(0)
	for _, d := range declarations {
		if d.Capacity == 0 {
			core.LogFatal("binding %s declared with zero capacity", d.Kind)
		}
		if int(d.Kind) < 0 || int(d.Kind) >= int(descriptorKindCount) {
			core.LogFatal("unsupported descriptor kind %d", int(d.Kind))
		}
		if bt.present[d.Kind] {
			core.LogFatal("binding %s declared twice", d.Kind)
		}
		stride := sizes.sizeOf(d.Kind)
		bt.ranges[d.Kind] = bindingRange{
			declaration: d,
			baseOffset:  cursor,
			stride:      stride,
		}
		bt.present[d.Kind] = true
		cursor += uint64(d.Capacity) * stride
	}
	bt.totalSize = cursor
	return bt
}

// Offset returns the byte offset of slot inside the descriptor buffer and
// the number of bytes a write at that offset may touch. The offset is
// bound-checked against both the binding capacity and the table size.
func (bt *BindingTable) Offset(kind DescriptorKind, slot uint32) (uint64, uint64, error) {
	if int(kind) < 0 || int(kind) >= int(descriptorKindCount) || !bt.present[kind] {
		core.LogFatal("unsupported descriptor kind %d", int(kind))
	}
	r := bt.ranges[kind]
	if slot >= r.declaration.Capacity {
		err := fmt.Errorf("descriptor slot %d out of range for %s (capacity=%d)", slot, kind, r.declaration.Capacity)
		core.LogError(err.Error())
		return 0, 0, err
	}
	offset := r.baseOffset + uint64(slot)*r.stride
	if offset+r.stride > bt.totalSize {
		err := fmt.Errorf("descriptor write at %d overruns table of %d bytes", offset, bt.totalSize)
		core.LogError(err.Error())
		return 0, 0, err
	}
	return offset, r.stride, nil
}

// Capacity returns the declared capacity for a kind, or 0 if undeclared.
func (bt *BindingTable) Capacity(kind DescriptorKind) uint32 {
	if int(kind) < 0 || int(kind) >= int(descriptorKindCount) || !bt.present[kind] {
		return 0
	}
	return bt.ranges[kind].declaration.Capacity
}

// TotalSize returns the raw byte size of the table before device alignment.
func (bt *BindingTable) TotalSize() uint64 {
	return bt.totalSize
}

// AlignedSize returns the table size rounded up to the device's required
// descriptor-buffer alignment.
func (bt *BindingTable) AlignedSize() uint64 {
	if bt.sizes.OffsetAlignment == 0 {
		return bt.totalSize
	}
	return GetAligned(bt.totalSize, bt.sizes.OffsetAlignment)
}
