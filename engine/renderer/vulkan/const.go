package vulkan

import vk "github.com/goki/vulkan"

// PushConstantSize is the size of the single push constant range: one 4x4 float matrix.
const PushConstantSize uint32 = 64

// indexSize is the size in bytes of one 16-bit index.
const indexSize = 2

const ValidationLayerName = "VK_LAYER_KHRONOS_validation"

// DeviceExtensions lists the device extensions every candidate device must expose.
var DeviceExtensions = []string{
	vk.KhrSwapchainExtensionName,
}

// BufferUsageVertex and the constants below are shorthands for the usage and
// memory property combinations the engine creates buffers with.
const (
	BufferUsageVertex   = vk.BufferUsageFlags(vk.BufferUsageVertexBufferBit)
	BufferUsageIndex    = vk.BufferUsageFlags(vk.BufferUsageIndexBufferBit)
	BufferUsageTransfer = vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit)

	MemoryHostVisible = vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit) | vk.MemoryPropertyFlags(vk.MemoryPropertyHostCoherentBit)
	MemoryDeviceLocal = vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit)
)
