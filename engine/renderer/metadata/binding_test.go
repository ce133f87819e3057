package metadata

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSizes = DescriptorSizes{
	Sampler:         16,
	SampledImage:    32,
	StorageImage:    32,
	OffsetAlignment: 64,
}

func testDeclarations() []BindingDeclaration {
	return []BindingDeclaration{
		{Kind: DescriptorKindSampler, Capacity: 16, Flags: BindingPartiallyBound},
		{Kind: DescriptorKindStorageImage, Capacity: 128, Flags: BindingPartiallyBound},
		{Kind: DescriptorKindSampledImage, Capacity: 4096, Flags: BindingPartiallyBound | BindingVariableCount},
	}
}

func TestBindingTableOffsetDeterminism(t *testing.T) {
	bt := NewBindingTable(testDeclarations(), testSizes)

	samplerBase := uint64(0)
	storageBase := uint64(16 * 16)
	sampledBase := storageBase + 128*32

	cases := []struct {
		kind DescriptorKind
		slot uint32
		want uint64
	}{
		{DescriptorKindSampler, 0, samplerBase},
		{DescriptorKindSampler, 7, samplerBase + 7*16},
		{DescriptorKindStorageImage, 0, storageBase},
		{DescriptorKindStorageImage, 100, storageBase + 100*32},
		{DescriptorKindSampledImage, 0, sampledBase},
		{DescriptorKindSampledImage, 4095, sampledBase + 4095*32},
	}
	for _, tc := range cases {
		offset, stride, err := bt.Offset(tc.kind, tc.slot)
		require.NoError(t, err)
		assert.Equal(t, tc.want, offset, "%s slot %d", tc.kind, tc.slot)
		assert.Equal(t, testSizes.sizeOf(tc.kind), stride)

		// Same inputs, same offset, every time.
		again, _, err := bt.Offset(tc.kind, tc.slot)
		require.NoError(t, err)
		assert.Equal(t, offset, again)
	}
}

func TestBindingTableBoundChecks(t *testing.T) {
	bt := NewBindingTable(testDeclarations(), testSizes)

	_, _, err := bt.Offset(DescriptorKindSampler, 16)
	assert.Error(t, err, "slot beyond capacity")

	offset, stride, err := bt.Offset(DescriptorKindSampledImage, 4095)
	require.NoError(t, err)
	assert.LessOrEqual(t, offset+stride, bt.TotalSize())
}

func TestBindingTableSizes(t *testing.T) {
	bt := NewBindingTable(testDeclarations(), testSizes)

	want := uint64(16*16 + 128*32 + 4096*32)
	assert.Equal(t, want, bt.TotalSize())
	assert.Equal(t, GetAligned(want, testSizes.OffsetAlignment), bt.AlignedSize())
	assert.Equal(t, uint32(4096), bt.Capacity(DescriptorKindSampledImage))
	assert.Equal(t, uint32(0), bt.Capacity(DescriptorKind(descriptorKindCount)))
}

func TestGetAlignedLaw(t *testing.T) {
	alignments := []uint64{1, 2, 4, 8, 16, 64, 256, 4096}
	values := []uint64{0, 1, 2, 3, 7, 63, 64, 65, 255, 1000, 65535, 1 << 20}

	for _, a := range alignments {
		for _, v := range values {
			got := GetAligned(v, a)
			assert.Zero(t, got%a, "aligned(%d,%d) is a multiple of a", v, a)
			assert.GreaterOrEqual(t, got, v, "aligned(%d,%d) >= v", v, a)
			assert.Less(t, got-v, a, "aligned(%d,%d) overshoots by < a", v, a)
		}
	}
}

func TestGetAlignedRange(t *testing.T) {
	r := GetAlignedRange(100, 300, 256)
	assert.Equal(t, uint64(256), r.Offset)
	assert.Equal(t, uint64(512), r.Size)
}

func TestInstanceDataEncode(t *testing.T) {
	instance := InstanceData{
		MVP:   mgl32.Translate3D(1, 2, 3),
		Model: mgl32.Ident4(),
	}
	raw := instance.Encode()
	assert.Equal(t, int(InstanceDataSize), len(raw))

	// Column-major float32s, MVP first: the translation column starts at
	// float 12.
	tx := math.Float32frombits(binary.LittleEndian.Uint32(raw[12*4:]))
	assert.Equal(t, float32(1), tx)
}

func TestMaterialRecordEncode(t *testing.T) {
	rec := MaterialRecord{
		Metallic:         0.5,
		Roughness:        0.25,
		BaseColorTexture: 3,
		SamplerIndex:     1,
	}
	rec.BaseColor = [4]float32{1, 0, 0, 1}
	raw := rec.Encode()
	assert.Equal(t, int(MaterialRecordSize), len(raw))
}
