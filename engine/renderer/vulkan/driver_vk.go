package vulkan

import (
	"fmt"
	"unsafe"

	vk "github.com/goki/vulkan"
)

// vkDriver issues the calls against a real logical device.
type vkDriver struct {
	physicalDevice vk.PhysicalDevice
	device         vk.Device
	surface        vk.Surface
	families       QueueFamilyIndices
	graphicsQueue  vk.Queue
	presentQueue   vk.Queue
	memoryTypes    []vk.MemoryPropertyFlags
}

func (d *vkDriver) Surface() vk.Surface                   { return d.surface }
func (d *vkDriver) QueueFamilies() QueueFamilyIndices     { return d.families }
func (d *vkDriver) GraphicsQueue() vk.Queue               { return d.graphicsQueue }
func (d *vkDriver) PresentQueue() vk.Queue                { return d.presentQueue }
func (d *vkDriver) MemoryTypes() []vk.MemoryPropertyFlags { return d.memoryTypes }

func (d *vkDriver) SwapchainSupport() (VulkanSwapchainSupportInfo, error) {
	return querySwapchainSupport(d.physicalDevice, d.surface)
}

func (d *vkDriver) DeviceWaitIdle() error {
	return resultError("vkDeviceWaitIdle", vk.DeviceWaitIdle(d.device))
}

func (d *vkDriver) QueueWaitIdle(queue vk.Queue) error {
	return resultError("vkQueueWaitIdle", vk.QueueWaitIdle(queue))
}

func (d *vkDriver) QueueSubmit(queue vk.Queue, submits []vk.SubmitInfo, fence vk.Fence) vk.Result {
	return vk.QueueSubmit(queue, uint32(len(submits)), submits, fence)
}

func (d *vkDriver) QueuePresent(queue vk.Queue, info *vk.PresentInfo) vk.Result {
	return vk.QueuePresent(queue, info)
}

func (d *vkDriver) CreateSwapchain(info *vk.SwapchainCreateInfo) (vk.Swapchain, error) {
	var swapchain vk.Swapchain
	if res := vk.CreateSwapchain(d.device, info, nil, &swapchain); res != vk.Success {
		return vk.NullSwapchain, resultError("vkCreateSwapchainKHR", res)
	}
	return swapchain, nil
}

func (d *vkDriver) DestroySwapchain(swapchain vk.Swapchain) {
	vk.DestroySwapchain(d.device, swapchain, nil)
}

func (d *vkDriver) SwapchainImages(swapchain vk.Swapchain) ([]vk.Image, error) {
	var count uint32
	if res := vk.GetSwapchainImages(d.device, swapchain, &count, nil); res != vk.Success {
		return nil, resultError("vkGetSwapchainImagesKHR", res)
	}
	images := make([]vk.Image, count)
	if res := vk.GetSwapchainImages(d.device, swapchain, &count, images); res != vk.Success {
		return nil, resultError("vkGetSwapchainImagesKHR", res)
	}
	return images, nil
}

func (d *vkDriver) AcquireNextImage(swapchain vk.Swapchain, timeout uint64, semaphore vk.Semaphore) (uint32, vk.Result) {
	var index uint32
	res := vk.AcquireNextImage(d.device, swapchain, timeout, semaphore, vk.NullFence, &index)
	return index, res
}

func (d *vkDriver) CreateImageView(info *vk.ImageViewCreateInfo) (vk.ImageView, error) {
	var view vk.ImageView
	if res := vk.CreateImageView(d.device, info, nil, &view); res != vk.Success {
		return vk.NullImageView, resultError("vkCreateImageView", res)
	}
	return view, nil
}

func (d *vkDriver) DestroyImageView(view vk.ImageView) {
	vk.DestroyImageView(d.device, view, nil)
}

func (d *vkDriver) CreateRenderPass(info *vk.RenderPassCreateInfo) (vk.RenderPass, error) {
	var renderPass vk.RenderPass
	if res := vk.CreateRenderPass(d.device, info, nil, &renderPass); res != vk.Success {
		return vk.NullRenderPass, resultError("vkCreateRenderPass", res)
	}
	return renderPass, nil
}

func (d *vkDriver) DestroyRenderPass(renderPass vk.RenderPass) {
	vk.DestroyRenderPass(d.device, renderPass, nil)
}

func (d *vkDriver) CreateFramebuffer(info *vk.FramebufferCreateInfo) (vk.Framebuffer, error) {
	var framebuffer vk.Framebuffer
	if res := vk.CreateFramebuffer(d.device, info, nil, &framebuffer); res != vk.Success {
		return vk.NullFramebuffer, resultError("vkCreateFramebuffer", res)
	}
	return framebuffer, nil
}

func (d *vkDriver) DestroyFramebuffer(framebuffer vk.Framebuffer) {
	vk.DestroyFramebuffer(d.device, framebuffer, nil)
}

func (d *vkDriver) CreatePipelineLayout(info *vk.PipelineLayoutCreateInfo) (vk.PipelineLayout, error) {
	var layout vk.PipelineLayout
	if res := vk.CreatePipelineLayout(d.device, info, nil, &layout); res != vk.Success {
		return vk.NullPipelineLayout, resultError("vkCreatePipelineLayout", res)
	}
	return layout, nil
}

func (d *vkDriver) DestroyPipelineLayout(layout vk.PipelineLayout) {
	vk.DestroyPipelineLayout(d.device, layout, nil)
}

// shaderModuleInfo describes code; CodeSize is in bytes.
func shaderModuleInfo(code []uint32) vk.ShaderModuleCreateInfo {
	return vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint64(len(code) * 4),
		PCode:    code,
	}
}

func (d *vkDriver) CreateShaderModule(code []uint32) (vk.ShaderModule, error) {
	info := shaderModuleInfo(code)
	var module vk.ShaderModule
	if res := vk.CreateShaderModule(d.device, &info, nil, &module); res != vk.Success {
		return vk.NullShaderModule, resultError("vkCreateShaderModule", res)
	}
	return module, nil
}

func (d *vkDriver) DestroyShaderModule(module vk.ShaderModule) {
	vk.DestroyShaderModule(d.device, module, nil)
}

func (d *vkDriver) CreateGraphicsPipeline(info *vk.GraphicsPipelineCreateInfo) (vk.Pipeline, error) {
	pipelines := make([]vk.Pipeline, 1)
	if res := vk.CreateGraphicsPipelines(d.device, vk.NullPipelineCache, 1, []vk.GraphicsPipelineCreateInfo{*info}, nil, pipelines); res != vk.Success {
		return vk.NullPipeline, resultError("vkCreateGraphicsPipelines", res)
	}
	return pipelines[0], nil
}

func (d *vkDriver) DestroyPipeline(pipeline vk.Pipeline) {
	vk.DestroyPipeline(d.device, pipeline, nil)
}

func (d *vkDriver) CreateCommandPool(info *vk.CommandPoolCreateInfo) (vk.CommandPool, error) {
	var pool vk.CommandPool
	if res := vk.CreateCommandPool(d.device, info, nil, &pool); res != vk.Success {
		return vk.NullCommandPool, resultError("vkCreateCommandPool", res)
	}
	return pool, nil
}

func (d *vkDriver) DestroyCommandPool(pool vk.CommandPool) {
	vk.DestroyCommandPool(d.device, pool, nil)
}

func (d *vkDriver) AllocateCommandBuffers(info *vk.CommandBufferAllocateInfo) ([]vk.CommandBuffer, error) {
	buffers := make([]vk.CommandBuffer, info.CommandBufferCount)
	if res := vk.AllocateCommandBuffers(d.device, info, buffers); res != vk.Success {
		return nil, resultError("vkAllocateCommandBuffers", res)
	}
	return buffers, nil
}

func (d *vkDriver) FreeCommandBuffers(pool vk.CommandPool, buffers []vk.CommandBuffer) {
	if len(buffers) == 0 {
		return
	}
	vk.FreeCommandBuffers(d.device, pool, uint32(len(buffers)), buffers)
}

func (d *vkDriver) CreateSemaphore() (vk.Semaphore, error) {
	info := vk.SemaphoreCreateInfo{
		SType: vk.StructureTypeSemaphoreCreateInfo,
	}
	var semaphore vk.Semaphore
	if res := vk.CreateSemaphore(d.device, &info, nil, &semaphore); res != vk.Success {
		return vk.NullSemaphore, resultError("vkCreateSemaphore", res)
	}
	return semaphore, nil
}

func (d *vkDriver) DestroySemaphore(semaphore vk.Semaphore) {
	vk.DestroySemaphore(d.device, semaphore, nil)
}

func (d *vkDriver) CreateFence(signaled bool) (vk.Fence, error) {
	info := vk.FenceCreateInfo{
		SType: vk.StructureTypeFenceCreateInfo,
	}
	if signaled {
		info.Flags = vk.FenceCreateFlags(vk.FenceCreateSignaledBit)
	}
	var fence vk.Fence
	if res := vk.CreateFence(d.device, &info, nil, &fence); res != vk.Success {
		return vk.NullFence, resultError("vkCreateFence", res)
	}
	return fence, nil
}

func (d *vkDriver) DestroyFence(fence vk.Fence) {
	vk.DestroyFence(d.device, fence, nil)
}

func (d *vkDriver) WaitForFence(fence vk.Fence, timeout uint64) vk.Result {
	return vk.WaitForFences(d.device, 1, []vk.Fence{fence}, vk.True, timeout)
}

func (d *vkDriver) ResetFence(fence vk.Fence) error {
	return resultError("vkResetFences", vk.ResetFences(d.device, 1, []vk.Fence{fence}))
}

func (d *vkDriver) CreateBuffer(info *vk.BufferCreateInfo) (vk.Buffer, vk.MemoryRequirements, error) {
	var buffer vk.Buffer
	var reqs vk.MemoryRequirements
	if res := vk.CreateBuffer(d.device, info, nil, &buffer); res != vk.Success {
		return vk.NullBuffer, reqs, resultError("vkCreateBuffer", res)
	}
	vk.GetBufferMemoryRequirements(d.device, buffer, &reqs)
	reqs.Deref()
	return buffer, reqs, nil
}

func (d *vkDriver) DestroyBuffer(buffer vk.Buffer) {
	vk.DestroyBuffer(d.device, buffer, nil)
}

func (d *vkDriver) CreateImage(info *vk.ImageCreateInfo) (vk.Image, vk.MemoryRequirements, error) {
	var image vk.Image
	var reqs vk.MemoryRequirements
	if res := vk.CreateImage(d.device, info, nil, &image); res != vk.Success {
		return vk.NullImage, reqs, resultError("vkCreateImage", res)
	}
	vk.GetImageMemoryRequirements(d.device, image, &reqs)
	reqs.Deref()
	return image, reqs, nil
}

func (d *vkDriver) DestroyImage(image vk.Image) {
	vk.DestroyImage(d.device, image, nil)
}

func (d *vkDriver) AllocateMemory(size vk.DeviceSize, memoryTypeIndex uint32) (vk.DeviceMemory, error) {
	info := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  size,
		MemoryTypeIndex: memoryTypeIndex,
	}
	var memory vk.DeviceMemory
	if res := vk.AllocateMemory(d.device, &info, nil, &memory); res != vk.Success {
		return vk.NullDeviceMemory, resultError("vkAllocateMemory", res)
	}
	return memory, nil
}

func (d *vkDriver) FreeMemory(memory vk.DeviceMemory) {
	vk.FreeMemory(d.device, memory, nil)
}

func (d *vkDriver) BindBufferMemory(buffer vk.Buffer, memory vk.DeviceMemory) error {
	return resultError("vkBindBufferMemory", vk.BindBufferMemory(d.device, buffer, memory, 0))
}

func (d *vkDriver) BindImageMemory(image vk.Image, memory vk.DeviceMemory) error {
	return resultError("vkBindImageMemory", vk.BindImageMemory(d.device, image, memory, 0))
}

func (d *vkDriver) MapMemory(memory vk.DeviceMemory, size vk.DeviceSize) ([]byte, error) {
	var data unsafe.Pointer
	if res := vk.MapMemory(d.device, memory, 0, size, 0, &data); res != vk.Success {
		return nil, resultError("vkMapMemory", res)
	}
	if data == nil {
		return nil, fmt.Errorf("vkMapMemory returned a nil pointer")
	}
	return unsafe.Slice((*byte)(data), int(size)), nil
}

func (d *vkDriver) UnmapMemory(memory vk.DeviceMemory) {
	vk.UnmapMemory(d.device, memory)
}

func (d *vkDriver) ResetCommandBuffer(buffer vk.CommandBuffer) error {
	return resultError("vkResetCommandBuffer", vk.ResetCommandBuffer(buffer, 0))
}

func (d *vkDriver) BeginCommandBuffer(buffer vk.CommandBuffer, info *vk.CommandBufferBeginInfo) error {
	return resultError("vkBeginCommandBuffer", vk.BeginCommandBuffer(buffer, info))
}

func (d *vkDriver) EndCommandBuffer(buffer vk.CommandBuffer) error {
	return resultError("vkEndCommandBuffer", vk.EndCommandBuffer(buffer))
}

func (d *vkDriver) CmdSetViewport(buffer vk.CommandBuffer, viewport vk.Viewport) {
	vk.CmdSetViewport(buffer, 0, 1, []vk.Viewport{viewport})
}

func (d *vkDriver) CmdSetScissor(buffer vk.CommandBuffer, scissor vk.Rect2D) {
	vk.CmdSetScissor(buffer, 0, 1, []vk.Rect2D{scissor})
}

func (d *vkDriver) CmdBeginRenderPass(buffer vk.CommandBuffer, info *vk.RenderPassBeginInfo) {
	vk.CmdBeginRenderPass(buffer, info, vk.SubpassContentsInline)
}

func (d *vkDriver) CmdEndRenderPass(buffer vk.CommandBuffer) {
	vk.CmdEndRenderPass(buffer)
}

func (d *vkDriver) CmdBindPipeline(buffer vk.CommandBuffer, pipeline vk.Pipeline) {
	vk.CmdBindPipeline(buffer, vk.PipelineBindPointGraphics, pipeline)
}

func (d *vkDriver) CmdBindVertexBuffer(buffer vk.CommandBuffer, binding uint32, vertices vk.Buffer) {
	vk.CmdBindVertexBuffers(buffer, binding, 1, []vk.Buffer{vertices}, []vk.DeviceSize{0})
}

func (d *vkDriver) CmdBindIndexBuffer(buffer vk.CommandBuffer, indices vk.Buffer, indexType vk.IndexType) {
	vk.CmdBindIndexBuffer(buffer, indices, 0, indexType)
}

func (d *vkDriver) CmdPushConstants(buffer vk.CommandBuffer, layout vk.PipelineLayout, stages vk.ShaderStageFlags, offset uint32, data []byte) {
	if len(data) == 0 {
		return
	}
	vk.CmdPushConstants(buffer, layout, stages, offset, uint32(len(data)), unsafe.Pointer(&data[0]))
}

func (d *vkDriver) CmdDrawIndexed(buffer vk.CommandBuffer, indexCount, instanceCount, firstIndex uint32, vertexOffset int32, firstInstance uint32) {
	vk.CmdDrawIndexed(buffer, indexCount, instanceCount, firstIndex, vertexOffset, firstInstance)
}

func (d *vkDriver) CmdPipelineBarrier(buffer vk.CommandBuffer, srcStage, dstStage vk.PipelineStageFlags, barrier vk.ImageMemoryBarrier) {
	vk.CmdPipelineBarrier(buffer, srcStage, dstStage, 0, 0, nil, 0, nil, 1, []vk.ImageMemoryBarrier{barrier})
}

func (d *vkDriver) CmdCopyBufferToImage(buffer vk.CommandBuffer, src vk.Buffer, dst vk.Image, region vk.BufferImageCopy) {
	vk.CmdCopyBufferToImage(buffer, src, dst, vk.ImageLayoutTransferDstOptimal, 1, []vk.BufferImageCopy{region})
}

func (d *vkDriver) Destroy() {
	if d.device != nil {
		vk.DestroyDevice(d.device, nil)
		d.device = nil
	}
}
