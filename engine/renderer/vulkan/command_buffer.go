package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/animate/engine/core"
)

type VulkanCommandBufferState int

const (
	COMMAND_BUFFER_STATE_READY VulkanCommandBufferState = iota
	COMMAND_BUFFER_STATE_RECORDING
	COMMAND_BUFFER_STATE_IN_RENDER_PASS
	COMMAND_BUFFER_STATE_RECORDING_ENDED
	COMMAND_BUFFER_STATE_SUBMITTED
	COMMAND_BUFFER_STATE_NOT_ALLOCATED
)

type VulkanCommandBuffer struct {
	Handle vk.CommandBuffer
	// Command buffer state.
	State VulkanCommandBufferState
}

// NewVulkanCommandBuffers allocates count primary command buffers from pool in
// a single call.
func NewVulkanCommandBuffers(driver Driver, pool vk.CommandPool, count uint32) ([]*VulkanCommandBuffer, error) {
	allocateInfo := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        pool,
		CommandBufferCount: count,
		Level:              vk.CommandBufferLevelPrimary,
	}
	handles, err := driver.AllocateCommandBuffers(&allocateInfo)
	if err != nil {
		return nil, err
	}
	out := make([]*VulkanCommandBuffer, len(handles))
	for i, handle := range handles {
		out[i] = &VulkanCommandBuffer{
			Handle: handle,
			State:  COMMAND_BUFFER_STATE_READY,
		}
	}
	return out, nil
}

// FreeVulkanCommandBuffers returns every buffer in list to pool.
func FreeVulkanCommandBuffers(driver Driver, pool vk.CommandPool, list []*VulkanCommandBuffer) {
	handles := make([]vk.CommandBuffer, 0, len(list))
	for _, cb := range list {
		if cb.Handle == nil {
			continue
		}
		handles = append(handles, cb.Handle)
		cb.Handle = nil
		cb.State = COMMAND_BUFFER_STATE_NOT_ALLOCATED
	}
	driver.FreeCommandBuffers(pool, handles)
}

func (v *VulkanCommandBuffer) Free(driver Driver, pool vk.CommandPool) {
	FreeVulkanCommandBuffers(driver, pool, []*VulkanCommandBuffer{v})
}

func (v *VulkanCommandBuffer) Begin(driver Driver, isSingleUse, isRenderpassContinue, isSimultaneousUse bool) error {
	beginInfo := &vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: 0,
	}
	if isSingleUse {
		beginInfo.Flags |= vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit)
	}
	if isRenderpassContinue {
		beginInfo.Flags |= vk.CommandBufferUsageFlags(vk.CommandBufferUsageRenderPassContinueBit)
	}
	if isSimultaneousUse {
		beginInfo.Flags |= vk.CommandBufferUsageFlags(vk.CommandBufferUsageSimultaneousUseBit)
	}

	if err := driver.BeginCommandBuffer(v.Handle, beginInfo); err != nil {
		core.LogError("failed to begin command buffer: %s", err)
		return err
	}
	v.State = COMMAND_BUFFER_STATE_RECORDING
	return nil
}

func (v *VulkanCommandBuffer) End(driver Driver) error {
	if err := driver.EndCommandBuffer(v.Handle); err != nil {
		core.LogError("failed to end command buffer: %s", err)
		return err
	}
	v.State = COMMAND_BUFFER_STATE_RECORDING_ENDED
	return nil
}

func (v *VulkanCommandBuffer) UpdateSubmitted() {
	v.State = COMMAND_BUFFER_STATE_SUBMITTED
}

func (v *VulkanCommandBuffer) Reset(driver Driver) error {
	if err := driver.ResetCommandBuffer(v.Handle); err != nil {
		return err
	}
	v.State = COMMAND_BUFFER_STATE_READY
	return nil
}

// AllocateAndBeginSingleUse allocates a command buffer and begins recording
// it for one-time submission.
func AllocateAndBeginSingleUse(driver Driver, pool vk.CommandPool) (*VulkanCommandBuffer, error) {
	buffers, err := NewVulkanCommandBuffers(driver, pool, 1)
	if err != nil {
		return nil, err
	}
	cb := buffers[0]
	if err := cb.Begin(driver, true, false, false); err != nil {
		cb.Free(driver, pool)
		return nil, err
	}
	return cb, nil
}

// EndSingleUse ends recording, submits to queue, waits on a fence for the
// work to complete and frees the command buffer.
func (v *VulkanCommandBuffer) EndSingleUse(driver Driver, pool vk.CommandPool, queue vk.Queue) error {
	defer v.Free(driver, pool)

	if err := v.End(driver); err != nil {
		return err
	}

	fence, err := NewFence(driver, false)
	if err != nil {
		return err
	}
	defer fence.Destroy(driver)

	submitInfo := vk.SubmitInfo{
		SType:              vk.StructureTypeSubmitInfo,
		CommandBufferCount: 1,
		PCommandBuffers:    []vk.CommandBuffer{v.Handle},
	}
	if res := driver.QueueSubmit(queue, []vk.SubmitInfo{submitInfo}, fence.Handle); res != vk.Success {
		return fmt.Errorf("%w: %s", core.ErrSubmitFailed, VulkanResultString(res, true))
	}
	v.UpdateSubmitted()

	if !fence.Wait(driver, vk.MaxUint64) {
		return fmt.Errorf("single use command buffer did not complete")
	}
	return nil
}
