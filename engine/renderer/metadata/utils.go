package metadata

import "golang.org/x/exp/constraints"

// MemoryRange is an offset/size pair inside a device buffer.
type MemoryRange struct {
	Offset uint64
	Size   uint64
}

func GetAlignedRange(offset, size, granularity uint64) *MemoryRange {
	m := &MemoryRange{
		Offset: GetAligned(offset, granularity),
		Size:   GetAligned(size, granularity),
	}
	return m
}

// GetAligned rounds operand up to the next multiple of granularity.
// Granularity must be a power of two.
func GetAligned[T constraints.Unsigned](operand, granularity T) T {
	val := (operand + (granularity - 1)) &^ (granularity - 1)
	return val
}
