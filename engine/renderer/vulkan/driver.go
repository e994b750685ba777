package vulkan

import (
	vk "github.com/goki/vulkan"
)

// VulkanSwapchainSupportInfo is what a surface allows on a physical device.
// Every struct in it has already been dereferenced.
type VulkanSwapchainSupportInfo struct {
	Capabilities vk.SurfaceCapabilities
	Formats      []vk.SurfaceFormat
	PresentModes []vk.PresentMode
}

// QueueFamilyIndices holds the graphics and present family indices; -1 means
// no family was found.
type QueueFamilyIndices struct {
	Graphics int32
	Present  int32
}

func (q QueueFamilyIndices) IsComplete() bool {
	return q.Graphics >= 0 && q.Present >= 0
}

// Unique returns the distinct family indices, graphics first.
func (q QueueFamilyIndices) Unique() []uint32 {
	if q.Graphics == q.Present {
		return []uint32{uint32(q.Graphics)}
	}
	return []uint32{uint32(q.Graphics), uint32(q.Present)}
}

// Driver issues the device level Vulkan calls made by a Context. Initialise
// wires the goki/vulkan implementation; package vulkantest provides a recording
// fake so that frame orchestration can be exercised without a GPU.
type Driver interface {
	Surface() vk.Surface
	QueueFamilies() QueueFamilyIndices
	GraphicsQueue() vk.Queue
	PresentQueue() vk.Queue
	// MemoryTypes returns the property flags of each memory type, indexed by
	// memory type index.
	MemoryTypes() []vk.MemoryPropertyFlags
	SwapchainSupport() (VulkanSwapchainSupportInfo, error)

	DeviceWaitIdle() error
	QueueWaitIdle(queue vk.Queue) error
	QueueSubmit(queue vk.Queue, submits []vk.SubmitInfo, fence vk.Fence) vk.Result
	QueuePresent(queue vk.Queue, info *vk.PresentInfo) vk.Result

	CreateSwapchain(info *vk.SwapchainCreateInfo) (vk.Swapchain, error)
	DestroySwapchain(swapchain vk.Swapchain)
	SwapchainImages(swapchain vk.Swapchain) ([]vk.Image, error)
	AcquireNextImage(swapchain vk.Swapchain, timeout uint64, semaphore vk.Semaphore) (uint32, vk.Result)

	CreateImageView(info *vk.ImageViewCreateInfo) (vk.ImageView, error)
	DestroyImageView(view vk.ImageView)
	CreateRenderPass(info *vk.RenderPassCreateInfo) (vk.RenderPass, error)
	DestroyRenderPass(renderPass vk.RenderPass)
	CreateFramebuffer(info *vk.FramebufferCreateInfo) (vk.Framebuffer, error)
	DestroyFramebuffer(framebuffer vk.Framebuffer)
	CreatePipelineLayout(info *vk.PipelineLayoutCreateInfo) (vk.PipelineLayout, error)
	DestroyPipelineLayout(layout vk.PipelineLayout)
	CreateShaderModule(code []uint32) (vk.ShaderModule, error)
	DestroyShaderModule(module vk.ShaderModule)
	CreateGraphicsPipeline(info *vk.GraphicsPipelineCreateInfo) (vk.Pipeline, error)
	DestroyPipeline(pipeline vk.Pipeline)

	CreateCommandPool(info *vk.CommandPoolCreateInfo) (vk.CommandPool, error)
	DestroyCommandPool(pool vk.CommandPool)
	AllocateCommandBuffers(info *vk.CommandBufferAllocateInfo) ([]vk.CommandBuffer, error)
	FreeCommandBuffers(pool vk.CommandPool, buffers []vk.CommandBuffer)

	CreateSemaphore() (vk.Semaphore, error)
	DestroySemaphore(semaphore vk.Semaphore)
	CreateFence(signaled bool) (vk.Fence, error)
	DestroyFence(fence vk.Fence)
	WaitForFence(fence vk.Fence, timeout uint64) vk.Result
	ResetFence(fence vk.Fence) error

	CreateBuffer(info *vk.BufferCreateInfo) (vk.Buffer, vk.MemoryRequirements, error)
	DestroyBuffer(buffer vk.Buffer)
	CreateImage(info *vk.ImageCreateInfo) (vk.Image, vk.MemoryRequirements, error)
	DestroyImage(image vk.Image)
	AllocateMemory(size vk.DeviceSize, memoryTypeIndex uint32) (vk.DeviceMemory, error)
	FreeMemory(memory vk.DeviceMemory)
	BindBufferMemory(buffer vk.Buffer, memory vk.DeviceMemory) error
	BindImageMemory(image vk.Image, memory vk.DeviceMemory) error
	MapMemory(memory vk.DeviceMemory, size vk.DeviceSize) ([]byte, error)
	UnmapMemory(memory vk.DeviceMemory)

	ResetCommandBuffer(buffer vk.CommandBuffer) error
	BeginCommandBuffer(buffer vk.CommandBuffer, info *vk.CommandBufferBeginInfo) error
	EndCommandBuffer(buffer vk.CommandBuffer) error
	CmdSetViewport(buffer vk.CommandBuffer, viewport vk.Viewport)
	CmdSetScissor(buffer vk.CommandBuffer, scissor vk.Rect2D)
	CmdBeginRenderPass(buffer vk.CommandBuffer, info *vk.RenderPassBeginInfo)
	CmdEndRenderPass(buffer vk.CommandBuffer)
	CmdBindPipeline(buffer vk.CommandBuffer, pipeline vk.Pipeline)
	CmdBindVertexBuffer(buffer vk.CommandBuffer, binding uint32, vertices vk.Buffer)
	CmdBindIndexBuffer(buffer vk.CommandBuffer, indices vk.Buffer, indexType vk.IndexType)
	CmdPushConstants(buffer vk.CommandBuffer, layout vk.PipelineLayout, stages vk.ShaderStageFlags, offset uint32, data []byte)
	CmdDrawIndexed(buffer vk.CommandBuffer, indexCount, instanceCount, firstIndex uint32, vertexOffset int32, firstInstance uint32)
	CmdPipelineBarrier(buffer vk.CommandBuffer, srcStage, dstStage vk.PipelineStageFlags, barrier vk.ImageMemoryBarrier)
	CmdCopyBufferToImage(buffer vk.CommandBuffer, src vk.Buffer, dst vk.Image, region vk.BufferImageCopy)

	// Destroy releases the logical device. Every object created through the
	// driver must be destroyed before.
	Destroy()
}
