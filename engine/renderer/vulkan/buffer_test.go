package vulkan

import (
	"testing"

	vk "github.com/goki/vulkan"
	"github.com/stretchr/testify/assert"
)

// Transfers to mappable buffers must bypass the staging buffer, so the
// visibility check has to match exactly the flag sets CreateBuffer can
// allocate with.
func TestBufferHostVisible(t *testing.T) {
	hostVisible := &AllocatedBuffer{
		MemoryPropertyFlags: vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit | vk.MemoryPropertyHostCoherentBit),
	}
	assert.True(t, hostVisible.HostVisible())

	rebar := &AllocatedBuffer{
		MemoryPropertyFlags: vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit | vk.MemoryPropertyHostVisibleBit | vk.MemoryPropertyHostCoherentBit),
	}
	assert.True(t, rebar.HostVisible())

	deviceLocal := &AllocatedBuffer{
		MemoryPropertyFlags: vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit),
	}
	assert.False(t, deviceLocal.HostVisible())
}
