package metadata

// MemoryVisibility states where a buffer's memory must live. The zero value
// is deliberately invalid so callers cannot forget to pick one.
type MemoryVisibility int

const (
	MemoryVisibilityUnspecified MemoryVisibility = iota
	// MemoryVisibilityDeviceOnly places the buffer in device-local memory;
	// writes go through the staging buffer.
	MemoryVisibilityDeviceOnly
	// MemoryVisibilityHostVisible keeps the buffer host mappable for direct
	// per-frame writes.
	MemoryVisibilityHostVisible
)

func (v MemoryVisibility) String() string {
	switch v {
	case MemoryVisibilityDeviceOnly:
		return "device_only"
	case MemoryVisibilityHostVisible:
		return "host_visible"
	default:
		return "unspecified"
	}
}

// BufferUsage is a renderer-level usage mask translated by the backend into
// API usage flags.
type BufferUsage uint32

const (
	BufferUsageVertex BufferUsage = 1 << iota
	BufferUsageIndex
	BufferUsageStorage
	BufferUsageUniform
	BufferUsageIndirect
	BufferUsageTransferSrc
	BufferUsageTransferDst
	// BufferUsageDeviceAddress requests a shader device address for the
	// buffer so mesh records can point at it.
	BufferUsageDeviceAddress
)

type BufferDescription struct {
	Label      string
	Size       uint64
	Usage      BufferUsage
	Visibility MemoryVisibility
}

// CopyRegion describes one segment of a multi-region transfer: Size bytes
// read from SrcOffset in the source blob, written at DstOffset in the
// destination buffer.
type CopyRegion struct {
	SrcOffset uint64
	DstOffset uint64
	Size      uint64
}
