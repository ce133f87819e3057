package metadata

import (
	"github.com/go-gl/mathgl/mgl32"
)

// SpawnRecord is one entry of the flattened spawn list handed to the
// external entity scheduler after a scene import. ParentIndex indexes into
// the same list; -1 marks a root node.
type SpawnRecord struct {
	Name           string
	ParentIndex    int
	Mesh           *MeshBufferHandle
	Material       *MaterialRef
	LocalTransform mgl32.Mat4
}
