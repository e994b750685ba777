package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/animate/engine/core"
)

type VulkanFence struct {
	Handle     vk.Fence
	IsSignaled bool
}

func NewFence(driver Driver, createSignaled bool) (*VulkanFence, error) {
	handle, err := driver.CreateFence(createSignaled)
	if err != nil {
		core.LogError("failed to create fence: %s", err)
		return nil, err
	}
	return &VulkanFence{
		Handle:     handle,
		IsSignaled: createSignaled,
	}, nil
}

func (vf *VulkanFence) Destroy(driver Driver) {
	if vf.Handle != vk.NullFence {
		driver.DestroyFence(vf.Handle)
		vf.Handle = vk.NullFence
	}
	vf.IsSignaled = false
}

// Wait blocks until the fence is signaled or timeoutNs elapses. It reports
// whether the fence is signaled.
func (vf *VulkanFence) Wait(driver Driver, timeoutNs uint64) bool {
	if vf.IsSignaled {
		return true
	}
	result := driver.WaitForFence(vf.Handle, timeoutNs)
	switch result {
	case vk.Success:
		vf.IsSignaled = true
		return true
	case vk.Timeout:
		core.LogWarn("vk_fence_wait - Timed out")
	case vk.ErrorDeviceLost:
		core.LogError("vk_fence_wait - VK_ERROR_DEVICE_LOST.")
	case vk.ErrorOutOfHostMemory:
		core.LogError("vk_fence_wait - VK_ERROR_OUT_OF_HOST_MEMORY.")
	case vk.ErrorOutOfDeviceMemory:
		core.LogError("vk_fence_wait - VK_ERROR_OUT_OF_DEVICE_MEMORY.")
	default:
		core.LogError("vk_fence_wait - %s", VulkanResultString(result, false))
	}
	return false
}

func (vf *VulkanFence) Reset(driver Driver) error {
	if !vf.IsSignaled {
		return nil
	}
	if err := driver.ResetFence(vf.Handle); err != nil {
		core.LogError("failed to reset fence: %s", err)
		return err
	}
	vf.IsSignaled = false
	return nil
}
