package systems

import (
	"fmt"

	"github.com/spaghettifunk/lumen/engine/containers"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
)

// fakeBuffer tracks one buffer's contents so transfer batching can be
// asserted byte for byte.
type fakeBuffer struct {
	description metadata.BufferDescription
	data        []byte
	address     uint64
}

type fakeImage struct {
	description metadata.TextureDescription
	mips        [][]byte
}

// fakeDeviceGPU implements GPU in memory. Besides holding resources it
// counts transfer calls, which the batching tests lean on.
type fakeDeviceGPU struct {
	nextHandle  uint32
	nextAddress uint64

	buffers  map[containers.Handle]*fakeBuffer
	images   map[containers.Handle]*fakeImage
	samplers map[containers.Handle]string
	meshes   map[containers.Handle]*metadata.MeshBuffer

	sampledImageCapacity uint32
	boundSamplers        map[uint32]metadata.SamplerHandle
	boundImages          map[uint32]metadata.TextureHandle

	transferCalls       int
	regionTransferCalls int
	waitIdleCalls       int
}

func newFakeDeviceGPU() *fakeDeviceGPU {
	return &fakeDeviceGPU{
		nextAddress:          0x10000,
		buffers:              make(map[containers.Handle]*fakeBuffer),
		images:               make(map[containers.Handle]*fakeImage),
		samplers:             make(map[containers.Handle]string),
		meshes:               make(map[containers.Handle]*metadata.MeshBuffer),
		sampledImageCapacity: 64,
		boundSamplers:        make(map[uint32]metadata.SamplerHandle),
		boundImages:          make(map[uint32]metadata.TextureHandle),
	}
}

func (g *fakeDeviceGPU) handle() containers.Handle {
	g.nextHandle++
	return containers.Handle{Index: g.nextHandle, Generation: 1}
}

func (g *fakeDeviceGPU) CreateBuffer(description metadata.BufferDescription) (metadata.BufferHandle, error) {
	h := metadata.BufferHandle{Handle: g.handle()}
	g.nextAddress += 0x10000
	g.buffers[h.Handle] = &fakeBuffer{
		description: description,
		data:        make([]byte, description.Size),
		address:     g.nextAddress,
	}
	return h, nil
}

func (g *fakeDeviceGPU) CreateImage(description metadata.TextureDescription) (metadata.TextureHandle, error) {
	h := metadata.TextureHandle{Handle: g.handle()}
	g.images[h.Handle] = &fakeImage{description: description}
	return h, nil
}

func (g *fakeDeviceGPU) CreateSampler(name string) (metadata.SamplerHandle, error) {
	h := metadata.SamplerHandle{Handle: g.handle()}
	g.samplers[h.Handle] = name
	return h, nil
}

func (g *fakeDeviceGPU) RegisterMesh(mesh metadata.MeshBuffer) (metadata.MeshBufferHandle, error) {
	h := metadata.MeshBufferHandle{Handle: g.handle()}
	copied := mesh
	g.meshes[h.Handle] = &copied
	return h, nil
}

func (g *fakeDeviceGPU) Mesh(h metadata.MeshBufferHandle) (*metadata.MeshBuffer, error) {
	mesh, ok := g.meshes[h.Handle]
	if !ok {
		return nil, fmt.Errorf("unknown mesh %s", h.Handle)
	}
	return mesh, nil
}

func (g *fakeDeviceGPU) BufferDeviceAddress(h metadata.BufferHandle) (uint64, error) {
	buffer, ok := g.buffers[h.Handle]
	if !ok {
		return 0, fmt.Errorf("unknown buffer %s", h.Handle)
	}
	return buffer.address, nil
}

func (g *fakeDeviceGPU) Transfer(h metadata.BufferHandle, src []byte) error {
	return g.TransferAt(h, 0, src)
}

func (g *fakeDeviceGPU) TransferAt(h metadata.BufferHandle, dstOffset uint64, src []byte) error {
	buffer, ok := g.buffers[h.Handle]
	if !ok {
		return fmt.Errorf("unknown buffer %s", h.Handle)
	}
	if dstOffset+uint64(len(src)) > uint64(len(buffer.data)) {
		return fmt.Errorf("transfer of %d bytes at %d overruns buffer of %d", len(src), dstOffset, len(buffer.data))
	}
	copy(buffer.data[dstOffset:], src)
	g.transferCalls++
	return nil
}

func (g *fakeDeviceGPU) TransferWithRegions(h metadata.BufferHandle, src []byte, regions []metadata.CopyRegion) error {
	buffer, ok := g.buffers[h.Handle]
	if !ok {
		return fmt.Errorf("unknown buffer %s", h.Handle)
	}
	for _, r := range regions {
		if r.SrcOffset+r.Size > uint64(len(src)) {
			return fmt.Errorf("region reads past source")
		}
		if r.DstOffset+r.Size > uint64(len(buffer.data)) {
			return fmt.Errorf("region writes past buffer")
		}
		copy(buffer.data[r.DstOffset:], src[r.SrcOffset:r.SrcOffset+r.Size])
	}
	g.regionTransferCalls++
	return nil
}

func (g *fakeDeviceGPU) TransferToImage(h metadata.TextureHandle, mips [][]byte) error {
	image, ok := g.images[h.Handle]
	if !ok {
		return fmt.Errorf("unknown image %s", h.Handle)
	}
	image.mips = mips
	g.transferCalls++
	return nil
}

func (g *fakeDeviceGPU) DestroyBuffer(h metadata.BufferHandle) bool {
	if _, ok := g.buffers[h.Handle]; !ok {
		return false
	}
	delete(g.buffers, h.Handle)
	return true
}

func (g *fakeDeviceGPU) DestroyImage(h metadata.TextureHandle) bool {
	if _, ok := g.images[h.Handle]; !ok {
		return false
	}
	delete(g.images, h.Handle)
	return true
}

func (g *fakeDeviceGPU) DestroySampler(h metadata.SamplerHandle) bool {
	if _, ok := g.samplers[h.Handle]; !ok {
		return false
	}
	delete(g.samplers, h.Handle)
	return true
}

func (g *fakeDeviceGPU) DestroyMesh(h metadata.MeshBufferHandle) bool {
	if _, ok := g.meshes[h.Handle]; !ok {
		return false
	}
	delete(g.meshes, h.Handle)
	return true
}

func (g *fakeDeviceGPU) BindSampler(slot uint32, h metadata.SamplerHandle) error {
	if _, ok := g.samplers[h.Handle]; !ok {
		return fmt.Errorf("unknown sampler %s", h.Handle)
	}
	g.boundSamplers[slot] = h
	return nil
}

func (g *fakeDeviceGPU) BindSampledImage(slot uint32, h metadata.TextureHandle) error {
	if _, ok := g.images[h.Handle]; !ok {
		return fmt.Errorf("unknown image %s", h.Handle)
	}
	if slot >= g.sampledImageCapacity {
		return fmt.Errorf("slot %d out of range", slot)
	}
	g.boundImages[slot] = h
	return nil
}

func (g *fakeDeviceGPU) SampledImageCapacity() uint32 {
	return g.sampledImageCapacity
}

func (g *fakeDeviceGPU) WaitIdle() error {
	g.waitIdleCalls++
	return nil
}

var _ GPU = (*fakeDeviceGPU)(nil)
