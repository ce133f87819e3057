package assets

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
)

func testMipChain(t *testing.T) *metadata.TextureDescription {
	t.Helper()
	mips := [][]byte{
		bytes.Repeat([]byte{0xAB, 0x00, 0xCD, 0xFF}, 16*16),
		bytes.Repeat([]byte{0x11, 0x22, 0x33, 0x44}, 8*8),
		bytes.Repeat([]byte{0x55}, 4*4*4),
	}
	return &metadata.TextureDescription{
		Name:      "bricks",
		Width:     16,
		Height:    16,
		MipLevels: 3,
		Format:    metadata.TextureFormatBC7,
		Mips:      mips,
	}
}

func TestContainerRoundTrip(t *testing.T) {
	description := testMipChain(t)

	var buf bytes.Buffer
	require.NoError(t, WriteTextureContainer(&buf, description))

	decoded, err := ReadTextureContainer(bytes.NewReader(buf.Bytes()), "bricks")
	require.NoError(t, err)

	assert.Equal(t, description.Width, decoded.Width)
	assert.Equal(t, description.Height, decoded.Height)
	assert.Equal(t, description.MipLevels, decoded.MipLevels)
	assert.Equal(t, description.Format, decoded.Format)
	require.Len(t, decoded.Mips, 3)
	for level := range description.Mips {
		assert.Equal(t, description.Mips[level], decoded.Mips[level], "mip %d", level)
	}
}

func TestContainerRejectsMipCountMismatch(t *testing.T) {
	description := testMipChain(t)
	description.MipLevels = 5

	var buf bytes.Buffer
	assert.Error(t, WriteTextureContainer(&buf, description))
}

func TestContainerRejectsWrongMagic(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteTextureContainer(&buf, testMipChain(t)))

	raw := buf.Bytes()
	raw[0] = 'X'
	_, err := ReadTextureContainer(bytes.NewReader(raw), "bricks")
	assert.ErrorIs(t, err, ErrContainerFormat)
}

func TestContainerRejectsTruncatedPayload(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteTextureContainer(&buf, testMipChain(t)))

	raw := buf.Bytes()
	_, err := ReadTextureContainer(bytes.NewReader(raw[:len(raw)-8]), "bricks")
	assert.Error(t, err)
}

func TestContainerSaveAndLoad(t *testing.T) {
	description := testMipChain(t)
	path := t.TempDir() + "/bricks.ltc"

	require.NoError(t, SaveTextureContainer(path, description))

	decoded, err := LoadTextureContainer(path, "bricks")
	require.NoError(t, err)
	assert.Equal(t, "bricks", decoded.Name)
	assert.Equal(t, description.Mips, decoded.Mips)
}
