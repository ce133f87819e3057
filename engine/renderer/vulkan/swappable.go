package vulkan

import (
	"fmt"

	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
)

/**
 * @brief SwappableBuffer double buffers per frame data: a ring of
 * FrameOverlap device buffers plus a host accumulator. The host writes into
 * the accumulator while the GPU still reads last frame's ring buffer; Flush
 * publishes the accumulator into the ring buffer of the current slot.
 */
type SwappableBuffer struct {
	name    string
	ring    [FrameOverlap]metadata.BufferHandle
	current uint32

	accumulator []byte
	cursor      uint64
}

func NewSwappableBuffer(arena *Arena, name string, size uint64, usage metadata.BufferUsage) (*SwappableBuffer, error) {
	sb := &SwappableBuffer{
		name:        name,
		accumulator: make([]byte, size),
	}
	for i := 0; i < FrameOverlap; i++ {
		h, err := arena.CreateBuffer(metadata.BufferDescription{
			Label:      fmt.Sprintf("%s_%d", name, i),
			Size:       size,
			Usage:      usage,
			Visibility: metadata.MemoryVisibilityHostVisible,
		})
		if err != nil {
			return nil, err
		}
		sb.ring[i] = h
	}
	return sb, nil
}

// Advance rotates to the next ring slot and clears the accumulator. Call once
// per frame, after the slot's fence guarantees the GPU is done with it.
func (sb *SwappableBuffer) Advance() {
	sb.current = (sb.current + 1) % FrameOverlap
	sb.cursor = 0
}

// Append copies data to the end of the accumulator and returns the byte
// offset it landed at.
func (sb *SwappableBuffer) Append(data []byte) (uint64, error) {
	if sb.cursor+uint64(len(data)) > uint64(len(sb.accumulator)) {
		err := fmt.Errorf("append of %d bytes overflows swappable buffer '%s' (%d of %d bytes used)", len(data), sb.name, sb.cursor, len(sb.accumulator))
		core.LogError(err.Error())
		return 0, err
	}
	offset := sb.cursor
	copy(sb.accumulator[offset:], data)
	sb.cursor += uint64(len(data))
	return offset, nil
}

// WriteAt overwrites accumulator bytes previously reserved with Append.
func (sb *SwappableBuffer) WriteAt(offset uint64, data []byte) error {
	if offset+uint64(len(data)) > sb.cursor {
		err := fmt.Errorf("write of %d bytes at %d lands past the accumulated %d bytes of '%s'", len(data), offset, sb.cursor, sb.name)
		core.LogError(err.Error())
		return err
	}
	copy(sb.accumulator[offset:], data)
	return nil
}

// Flush publishes the accumulated bytes into the current ring buffer.
func (sb *SwappableBuffer) Flush(context *VulkanContext, arena *Arena) error {
	if sb.cursor == 0 {
		return nil
	}
	buffer, err := arena.Buffer(sb.ring[sb.current])
	if err != nil {
		return err
	}
	return buffer.WriteAt(context, 0, sb.accumulator[:sb.cursor])
}

// Current returns the ring buffer the GPU should read this frame.
func (sb *SwappableBuffer) Current() metadata.BufferHandle {
	return sb.ring[sb.current]
}

func (sb *SwappableBuffer) Len() uint64 {
	return sb.cursor
}

func (sb *SwappableBuffer) Destroy(arena *Arena) {
	for i := 0; i < FrameOverlap; i++ {
		arena.DestroyBuffer(sb.ring[i])
	}
}
