package assets

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/pierrec/lz4/v4"

	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
)

// Texture containers cache the expensive part of a texture import: the
// block-compressed, mipmapped pixel data. Every mip level is stored as its
// own lz4 frame so a level can be decompressed without touching the others.

var (
	ErrContainerFormat = errors.New("corrupted or not a texture container")
)

var containerMagic = [4]byte{'L', 'T', 'C', '\x00'}

const containerHeaderSizeLength = 4

// ContainerMipEntry locates one compressed mip level inside the container.
// Offset is relative to the first byte after the header.
type ContainerMipEntry struct {
	Offset         int64
	Size           int64
	CompressedSize int64
}

// ContainerHeader is the gob-encoded header of a texture container.
type ContainerHeader struct {
	Width     uint32
	Height    uint32
	MipLevels uint32
	Format    metadata.TextureFormat
	Index     []ContainerMipEntry
}

// WriteTextureContainer serializes a texture description into w. The
// description's mips are compressed level by level.
func WriteTextureContainer(w io.Writer, description *metadata.TextureDescription) error {
	if uint32(len(description.Mips)) != description.MipLevels {
		return fmt.Errorf("texture '%s' declares %d mip levels but carries %d", description.Name, description.MipLevels, len(description.Mips))
	}

	header := ContainerHeader{
		Width:     description.Width,
		Height:    description.Height,
		MipLevels: description.MipLevels,
		Format:    description.Format,
	}

	var blocks bytes.Buffer
	for _, mip := range description.Mips {
		offset := int64(blocks.Len())
		zw := lz4.NewWriter(&blocks)
		if _, err := zw.Write(mip); err != nil {
			return err
		}
		if err := zw.Close(); err != nil {
			return err
		}
		header.Index = append(header.Index, ContainerMipEntry{
			Offset:         offset,
			Size:           int64(len(mip)),
			CompressedSize: int64(blocks.Len()) - offset,
		})
	}

	rawHeader, err := gobEncode(&header)
	if err != nil {
		return err
	}

	if _, err := w.Write(containerMagic[:]); err != nil {
		return err
	}
	var headerSize [containerHeaderSizeLength]byte
	binary.LittleEndian.PutUint32(headerSize[:], uint32(len(rawHeader)))
	if _, err := w.Write(headerSize[:]); err != nil {
		return err
	}
	if _, err := w.Write(rawHeader); err != nil {
		return err
	}
	_, err = w.Write(blocks.Bytes())
	return err
}

// ReadTextureContainer parses a container from r and returns the texture
// description it holds, mips decompressed.
func ReadTextureContainer(r io.Reader, name string) (*metadata.TextureDescription, error) {
	var magic [4]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return nil, ErrContainerFormat
	}
	if magic != containerMagic {
		return nil, ErrContainerFormat
	}

	var headerSize [containerHeaderSizeLength]byte
	if _, err := io.ReadFull(r, headerSize[:]); err != nil {
		return nil, ErrContainerFormat
	}
	rawHeader := make([]byte, binary.LittleEndian.Uint32(headerSize[:]))
	if _, err := io.ReadFull(r, rawHeader); err != nil {
		return nil, ErrContainerFormat
	}
	var header ContainerHeader
	if err := gobDecode(&header, rawHeader); err != nil {
		return nil, err
	}
	if uint32(len(header.Index)) != header.MipLevels {
		return nil, ErrContainerFormat
	}

	description := &metadata.TextureDescription{
		Name:      name,
		Width:     header.Width,
		Height:    header.Height,
		MipLevels: header.MipLevels,
		Format:    header.Format,
		Mips:      make([][]byte, 0, header.MipLevels),
	}

	// Mip frames are stored back to back; the index offsets are validated
	// against the read cursor instead of seeking.
	cursor := int64(0)
	for level, entry := range header.Index {
		if entry.Offset != cursor {
			return nil, ErrContainerFormat
		}
		compressed := make([]byte, entry.CompressedSize)
		if _, err := io.ReadFull(r, compressed); err != nil {
			return nil, ErrContainerFormat
		}
		pixels := make([]byte, entry.Size)
		zr := lz4.NewReader(bytes.NewReader(compressed))
		if _, err := io.ReadFull(zr, pixels); err != nil {
			return nil, fmt.Errorf("failed to decompress mip %d: %w", level, err)
		}
		description.Mips = append(description.Mips, pixels)
		cursor += entry.CompressedSize
	}
	return description, nil
}

// SaveTextureContainer writes the container to path through a temporary
// file and a rename, so a crash mid-write never leaves a truncated cache.
func SaveTextureContainer(path string, description *metadata.TextureDescription) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".ltc-*")
	if err != nil {
		return err
	}
	if err := WriteTextureContainer(tmp, description); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// LoadTextureContainer reads the container stored at path.
func LoadTextureContainer(path, name string) (*metadata.TextureDescription, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadTextureContainer(f, name)
}

func gobEncode(data interface{}) ([]byte, error) {
	var encoded bytes.Buffer
	if err := gob.NewEncoder(&encoded).Encode(data); err != nil {
		return nil, err
	}
	return encoded.Bytes(), nil
}

func gobDecode(obj interface{}, bts []byte) error {
	return gob.NewDecoder(bytes.NewBuffer(bts)).Decode(obj)
}
