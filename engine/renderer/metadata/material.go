package metadata

import (
	"bytes"
	"encoding/binary"
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"
)

/** @brief The name of the default material. */
const DefaultMaterialName string = "default"

// AlphaMode classifies how a material's alpha channel is interpreted.
type AlphaMode int

const (
	AlphaModeOpaque AlphaMode = iota
	AlphaModeBlend
)

// MaterialRecord is the packed GPU-visible material layout. Field order and
// sizes are fixed; the fragment shader indexes the materials buffer with the
// byte offset carried in the push constants.
type MaterialRecord struct {
	BaseColor        mgl32.Vec4
	Metallic         float32
	Roughness        float32
	BaseColorTexture uint32
	SamplerIndex     uint32
}

// MaterialRecordSize is the byte size of one packed MaterialRecord.
const MaterialRecordSize = uint64(unsafe.Sizeof(MaterialRecord{}))

// Encode serializes the record into its GPU byte layout (little endian,
// tightly packed).
func (m *MaterialRecord) Encode() []byte {
	buf := bytes.NewBuffer(make([]byte, 0, MaterialRecordSize))
	// All fields are 4-byte scalars; binary.Write lays them out packed.
	if err := binary.Write(buf, binary.LittleEndian, m); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// MaterialRef is a non-owning reference into the shared materials buffer.
type MaterialRef struct {
	// Offset is the byte offset of the record inside the materials buffer.
	Offset uint32
	// Blended selects the transparent pass for draws using this material.
	Blended bool
}

// MaterialConfig is what the importer hands the material system for one
// source material.
type MaterialConfig struct {
	Name            string
	BaseColor       mgl32.Vec4
	Metallic        float32
	Roughness       float32
	AlphaMode       AlphaMode
	BaseColorMap    string
	BaseColorPixels []byte
	BaseColorWidth  uint32
	BaseColorHeight uint32
}
