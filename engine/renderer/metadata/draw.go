package metadata

import (
	"bytes"
	"encoding/binary"
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"
)

// DrawCommand is one mesh instance to render this frame.
type DrawCommand struct {
	Mesh      MeshBufferHandle
	Material  MaterialRef
	Transform mgl32.Mat4
}

// InstanceData is the per-draw record written into the swappable instance
// buffer: the full model-view-projection plus the model matrix for shading.
type InstanceData struct {
	MVP   mgl32.Mat4
	Model mgl32.Mat4
}

const InstanceDataSize = uint64(unsafe.Sizeof(InstanceData{}))

// Encode packs the record little-endian for the GPU.
func (i *InstanceData) Encode() []byte {
	buf := bytes.NewBuffer(make([]byte, 0, InstanceDataSize))
	if err := binary.Write(buf, binary.LittleEndian, i); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// RenderPacket is everything the backend needs to draw one frame.
type RenderPacket struct {
	View       mgl32.Mat4
	Projection mgl32.Mat4
	// MeshObjects is the shared buffer of MeshObject records.
	MeshObjects BufferHandle
	// Materials is the packed material blob.
	Materials BufferHandle
	Commands  []DrawCommand
}
