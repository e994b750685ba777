// Package vulkantest provides a recording vulkan.Driver that needs no GPU.
// Handles are distinct addresses outside the Go heap, so reflect accepts
// them as the notinheap pointers the bindings declare. Compare them with
// Addr: two live handles point at the same zero sized C type and are
// deeply equal.
package vulkantest

import (
	"fmt"
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/animate/engine/renderer/vulkan"
)

// Command is one call recorded into a command buffer.
type Command struct {
	Name       string
	Buffer     vk.CommandBuffer
	Pipeline   vk.Pipeline
	Bound      vk.Buffer
	IndexCount uint32
	Data       []byte
}

type Driver struct {
	Families vulkan.QueueFamilyIndices
	Support  vulkan.VulkanSwapchainSupportInfo
	Memory   []vk.MemoryPropertyFlags

	// AcquireResults and PresentResults are consumed in order, vk.Success is
	// returned once they run out.
	AcquireResults []vk.Result
	PresentResults []vk.Result
	SubmitResult   vk.Result
	// Fail makes the named method return an error.
	Fail map[string]bool

	Commands []Command
	Calls    map[string]int
	// Errors collects misuse, such as destroying an unknown handle.
	Errors []string

	surface       vk.Surface
	graphicsQueue vk.Queue
	presentQueue  vk.Queue

	live       map[uintptr]string
	lastHandle uintptr
	memory     map[vk.DeviceMemory][]byte
	images     map[vk.Swapchain][]vk.Image
	pipelines  map[vk.Pipeline]vk.RenderPass
	nextImage  uint32
	oldHandles []vk.Swapchain
}

// New returns a driver for an 800x600 surface with a two image swapchain,
// a single queue family and one device local and one host visible memory type.
func New() *Driver {
	d := &Driver{
		Families: vulkan.QueueFamilyIndices{Graphics: 0, Present: 0},
		Support: vulkan.VulkanSwapchainSupportInfo{
			Capabilities: vk.SurfaceCapabilities{
				MinImageCount:  1,
				MaxImageCount:  2,
				CurrentExtent:  vk.Extent2D{Width: 800, Height: 600},
				MinImageExtent: vk.Extent2D{Width: 1, Height: 1},
				MaxImageExtent: vk.Extent2D{Width: 4096, Height: 4096},
			},
			Formats: []vk.SurfaceFormat{
				{Format: vk.FormatB8g8r8a8Unorm, ColorSpace: vk.ColorSpaceSrgbNonlinear},
			},
			PresentModes: []vk.PresentMode{vk.PresentModeFifo},
		},
		Memory: []vk.MemoryPropertyFlags{
			vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit),
			vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit) | vk.MemoryPropertyFlags(vk.MemoryPropertyHostCoherentBit),
		},
		SubmitResult: vk.Success,
		Fail:         map[string]bool{},
		Calls:        map[string]int{},
		live:         map[uintptr]string{},
		memory:       map[vk.DeviceMemory][]byte{},
		images:       map[vk.Swapchain][]vk.Image{},
		pipelines:    map[vk.Pipeline]vk.RenderPass{},
	}
	d.surface = vk.Surface(d.address())
	d.graphicsQueue = vk.Queue(d.address())
	d.presentQueue = d.graphicsQueue
	return d
}

var _ vulkan.Driver = (*Driver)(nil)

const (
	// above the zero page and far below any Go heap arena
	handleBase   = 1 << 20
	handleStride = 16
)

// Addr is the address behind a handle.
func Addr[T any](handle T) uintptr {
	if unsafe.Sizeof(handle) != unsafe.Sizeof(uintptr(0)) {
		panic(fmt.Sprintf("vulkantest: %T is not a handle", handle))
	}
	return *(*uintptr)(unsafe.Pointer(&handle))
}

func (d *Driver) address() unsafe.Pointer {
	d.lastHandle++
	var base unsafe.Pointer
	return unsafe.Add(base, handleBase+d.lastHandle*handleStride)
}

func (d *Driver) newHandle(kind string) unsafe.Pointer {
	p := d.address()
	d.live[uintptr(p)] = kind
	return p
}

func (d *Driver) release(p unsafe.Pointer, kind string) {
	d.Calls["Destroy"+kind]++
	if p == nil {
		return
	}
	if got, ok := d.live[uintptr(p)]; !ok || got != kind {
		d.Errors = append(d.Errors, fmt.Sprintf("destroy of unknown %s %p", kind, p))
		return
	}
	delete(d.live, uintptr(p))
}

func (d *Driver) fail(name string) error {
	d.Calls[name]++
	if d.Fail[name] {
		return fmt.Errorf("%s failed with VK_ERROR_INITIALIZATION_FAILED", name)
	}
	return nil
}

// Live returns how many handles of kind ("Pipeline", "ImageView", ...) exist.
func (d *Driver) Live(kind string) int {
	n := 0
	for _, k := range d.live {
		if k == kind {
			n++
		}
	}
	return n
}

// LiveTotal returns the number of handles created and not yet destroyed.
func (d *Driver) LiveTotal() int {
	return len(d.live)
}

func (d *Driver) IsLive(handle unsafe.Pointer) bool {
	_, ok := d.live[uintptr(handle)]
	return ok
}

// PipelineRenderPass returns the render pass a pipeline was created against.
func (d *Driver) PipelineRenderPass(p vk.Pipeline) vk.RenderPass {
	return d.pipelines[p]
}

// OldSwapchains returns the OldSwapchain hints passed at swapchain creation.
func (d *Driver) OldSwapchains() []vk.Swapchain {
	return d.oldHandles
}

// Named returns the recorded commands called name.
func (d *Driver) Named(name string) []Command {
	var out []Command
	for _, c := range d.Commands {
		if c.Name == name {
			out = append(out, c)
		}
	}
	return out
}

func (d *Driver) ResetCommands() {
	d.Commands = nil
}

func (d *Driver) record(c Command) {
	d.Commands = append(d.Commands, c)
}

func (d *Driver) Surface() vk.Surface                      { return d.surface }
func (d *Driver) QueueFamilies() vulkan.QueueFamilyIndices { return d.Families }
func (d *Driver) GraphicsQueue() vk.Queue                  { return d.graphicsQueue }
func (d *Driver) PresentQueue() vk.Queue                   { return d.presentQueue }
func (d *Driver) MemoryTypes() []vk.MemoryPropertyFlags    { return d.Memory }

func (d *Driver) SwapchainSupport() (vulkan.VulkanSwapchainSupportInfo, error) {
	if err := d.fail("SwapchainSupport"); err != nil {
		return vulkan.VulkanSwapchainSupportInfo{}, err
	}
	return d.Support, nil
}

func (d *Driver) DeviceWaitIdle() error        { return d.fail("DeviceWaitIdle") }
func (d *Driver) QueueWaitIdle(vk.Queue) error { return d.fail("QueueWaitIdle") }

func (d *Driver) QueueSubmit(queue vk.Queue, submits []vk.SubmitInfo, fence vk.Fence) vk.Result {
	d.Calls["QueueSubmit"]++
	return d.SubmitResult
}

func (d *Driver) QueuePresent(queue vk.Queue, info *vk.PresentInfo) vk.Result {
	d.Calls["QueuePresent"]++
	if len(d.PresentResults) == 0 {
		return vk.Success
	}
	res := d.PresentResults[0]
	d.PresentResults = d.PresentResults[1:]
	return res
}

func (d *Driver) CreateSwapchain(info *vk.SwapchainCreateInfo) (vk.Swapchain, error) {
	if err := d.fail("CreateSwapchain"); err != nil {
		return vk.NullSwapchain, err
	}
	d.oldHandles = append(d.oldHandles, info.OldSwapchain)
	sc := vk.Swapchain(d.newHandle("Swapchain"))
	images := make([]vk.Image, info.MinImageCount)
	for i := range images {
		// owned by the swapchain, not tracked
		images[i] = vk.Image(d.address())
	}
	d.images[sc] = images
	d.nextImage = 0
	return sc, nil
}

func (d *Driver) DestroySwapchain(swapchain vk.Swapchain) {
	delete(d.images, swapchain)
	d.release(unsafe.Pointer(swapchain), "Swapchain")
}

func (d *Driver) SwapchainImages(swapchain vk.Swapchain) ([]vk.Image, error) {
	if err := d.fail("SwapchainImages"); err != nil {
		return nil, err
	}
	return append([]vk.Image{}, d.images[swapchain]...), nil
}

func (d *Driver) AcquireNextImage(swapchain vk.Swapchain, timeout uint64, semaphore vk.Semaphore) (uint32, vk.Result) {
	d.Calls["AcquireNextImage"]++
	if len(d.AcquireResults) > 0 {
		res := d.AcquireResults[0]
		d.AcquireResults = d.AcquireResults[1:]
		if res != vk.Success && res != vk.Suboptimal {
			return 0, res
		}
		return d.acquire(swapchain), res
	}
	return d.acquire(swapchain), vk.Success
}

func (d *Driver) acquire(swapchain vk.Swapchain) uint32 {
	count := uint32(len(d.images[swapchain]))
	if count == 0 {
		return 0
	}
	index := d.nextImage % count
	d.nextImage = index + 1
	return index
}

func (d *Driver) CreateImageView(info *vk.ImageViewCreateInfo) (vk.ImageView, error) {
	if err := d.fail("CreateImageView"); err != nil {
		return vk.NullImageView, err
	}
	return vk.ImageView(d.newHandle("ImageView")), nil
}

func (d *Driver) DestroyImageView(view vk.ImageView) {
	d.release(unsafe.Pointer(view), "ImageView")
}

func (d *Driver) CreateRenderPass(info *vk.RenderPassCreateInfo) (vk.RenderPass, error) {
	if err := d.fail("CreateRenderPass"); err != nil {
		return vk.NullRenderPass, err
	}
	return vk.RenderPass(d.newHandle("RenderPass")), nil
}

func (d *Driver) DestroyRenderPass(renderPass vk.RenderPass) {
	d.release(unsafe.Pointer(renderPass), "RenderPass")
}

func (d *Driver) CreateFramebuffer(info *vk.FramebufferCreateInfo) (vk.Framebuffer, error) {
	if err := d.fail("CreateFramebuffer"); err != nil {
		return vk.NullFramebuffer, err
	}
	if !d.IsLive(unsafe.Pointer(info.RenderPass)) {
		d.Errors = append(d.Errors, "framebuffer created against a destroyed render pass")
	}
	return vk.Framebuffer(d.newHandle("Framebuffer")), nil
}

func (d *Driver) DestroyFramebuffer(framebuffer vk.Framebuffer) {
	d.release(unsafe.Pointer(framebuffer), "Framebuffer")
}

func (d *Driver) CreatePipelineLayout(info *vk.PipelineLayoutCreateInfo) (vk.PipelineLayout, error) {
	if err := d.fail("CreatePipelineLayout"); err != nil {
		return vk.NullPipelineLayout, err
	}
	return vk.PipelineLayout(d.newHandle("PipelineLayout")), nil
}

func (d *Driver) DestroyPipelineLayout(layout vk.PipelineLayout) {
	d.release(unsafe.Pointer(layout), "PipelineLayout")
}

func (d *Driver) CreateShaderModule(code []uint32) (vk.ShaderModule, error) {
	if err := d.fail("CreateShaderModule"); err != nil {
		return vk.NullShaderModule, err
	}
	return vk.ShaderModule(d.newHandle("ShaderModule")), nil
}

func (d *Driver) DestroyShaderModule(module vk.ShaderModule) {
	d.release(unsafe.Pointer(module), "ShaderModule")
}

func (d *Driver) CreateGraphicsPipeline(info *vk.GraphicsPipelineCreateInfo) (vk.Pipeline, error) {
	if err := d.fail("CreateGraphicsPipeline"); err != nil {
		return vk.NullPipeline, err
	}
	if !d.IsLive(unsafe.Pointer(info.RenderPass)) {
		d.Errors = append(d.Errors, "pipeline created against a destroyed render pass")
	}
	p := vk.Pipeline(d.newHandle("Pipeline"))
	d.pipelines[p] = info.RenderPass
	return p, nil
}

func (d *Driver) DestroyPipeline(pipeline vk.Pipeline) {
	delete(d.pipelines, pipeline)
	d.release(unsafe.Pointer(pipeline), "Pipeline")
}

func (d *Driver) CreateCommandPool(info *vk.CommandPoolCreateInfo) (vk.CommandPool, error) {
	if err := d.fail("CreateCommandPool"); err != nil {
		return vk.NullCommandPool, err
	}
	return vk.CommandPool(d.newHandle("CommandPool")), nil
}

func (d *Driver) DestroyCommandPool(pool vk.CommandPool) {
	d.release(unsafe.Pointer(pool), "CommandPool")
}

func (d *Driver) AllocateCommandBuffers(info *vk.CommandBufferAllocateInfo) ([]vk.CommandBuffer, error) {
	if err := d.fail("AllocateCommandBuffers"); err != nil {
		return nil, err
	}
	buffers := make([]vk.CommandBuffer, info.CommandBufferCount)
	for i := range buffers {
		buffers[i] = vk.CommandBuffer(d.newHandle("CommandBuffer"))
	}
	return buffers, nil
}

func (d *Driver) FreeCommandBuffers(pool vk.CommandPool, buffers []vk.CommandBuffer) {
	for _, b := range buffers {
		d.release(unsafe.Pointer(b), "CommandBuffer")
	}
}

func (d *Driver) CreateSemaphore() (vk.Semaphore, error) {
	if err := d.fail("CreateSemaphore"); err != nil {
		return vk.NullSemaphore, err
	}
	return vk.Semaphore(d.newHandle("Semaphore")), nil
}

func (d *Driver) DestroySemaphore(semaphore vk.Semaphore) {
	d.release(unsafe.Pointer(semaphore), "Semaphore")
}

func (d *Driver) CreateFence(signaled bool) (vk.Fence, error) {
	if err := d.fail("CreateFence"); err != nil {
		return vk.NullFence, err
	}
	return vk.Fence(d.newHandle("Fence")), nil
}

func (d *Driver) DestroyFence(fence vk.Fence) {
	d.release(unsafe.Pointer(fence), "Fence")
}

func (d *Driver) WaitForFence(fence vk.Fence, timeout uint64) vk.Result {
	d.Calls["WaitForFence"]++
	return vk.Success
}

func (d *Driver) ResetFence(fence vk.Fence) error {
	return d.fail("ResetFence")
}

func (d *Driver) allTypes() uint32 {
	return uint32(1)<<uint32(len(d.Memory)) - 1
}

func (d *Driver) CreateBuffer(info *vk.BufferCreateInfo) (vk.Buffer, vk.MemoryRequirements, error) {
	if err := d.fail("CreateBuffer"); err != nil {
		return vk.NullBuffer, vk.MemoryRequirements{}, err
	}
	reqs := vk.MemoryRequirements{
		Size:           info.Size,
		Alignment:      4,
		MemoryTypeBits: d.allTypes(),
	}
	return vk.Buffer(d.newHandle("Buffer")), reqs, nil
}

func (d *Driver) DestroyBuffer(buffer vk.Buffer) {
	d.release(unsafe.Pointer(buffer), "Buffer")
}

func (d *Driver) CreateImage(info *vk.ImageCreateInfo) (vk.Image, vk.MemoryRequirements, error) {
	if err := d.fail("CreateImage"); err != nil {
		return vk.NullImage, vk.MemoryRequirements{}, err
	}
	reqs := vk.MemoryRequirements{
		Size:           vk.DeviceSize(info.Extent.Width * info.Extent.Height * 4),
		Alignment:      4,
		MemoryTypeBits: d.allTypes(),
	}
	return vk.Image(d.newHandle("Image")), reqs, nil
}

func (d *Driver) DestroyImage(image vk.Image) {
	d.release(unsafe.Pointer(image), "Image")
}

func (d *Driver) AllocateMemory(size vk.DeviceSize, memoryTypeIndex uint32) (vk.DeviceMemory, error) {
	if err := d.fail("AllocateMemory"); err != nil {
		return vk.NullDeviceMemory, err
	}
	if int(memoryTypeIndex) >= len(d.Memory) {
		d.Errors = append(d.Errors, fmt.Sprintf("allocation from unknown memory type %d", memoryTypeIndex))
	}
	memory := vk.DeviceMemory(d.newHandle("DeviceMemory"))
	d.memory[memory] = make([]byte, size)
	return memory, nil
}

func (d *Driver) FreeMemory(memory vk.DeviceMemory) {
	delete(d.memory, memory)
	d.release(unsafe.Pointer(memory), "DeviceMemory")
}

// Contents returns the bytes backing memory.
func (d *Driver) Contents(memory vk.DeviceMemory) []byte {
	return d.memory[memory]
}

func (d *Driver) BindBufferMemory(buffer vk.Buffer, memory vk.DeviceMemory) error {
	return d.fail("BindBufferMemory")
}

func (d *Driver) BindImageMemory(image vk.Image, memory vk.DeviceMemory) error {
	return d.fail("BindImageMemory")
}

func (d *Driver) MapMemory(memory vk.DeviceMemory, size vk.DeviceSize) ([]byte, error) {
	if err := d.fail("MapMemory"); err != nil {
		return nil, err
	}
	data, ok := d.memory[memory]
	if !ok {
		return nil, fmt.Errorf("map of unknown memory %p", memory)
	}
	return data[:size], nil
}

func (d *Driver) UnmapMemory(memory vk.DeviceMemory) {
	d.Calls["UnmapMemory"]++
}

func (d *Driver) ResetCommandBuffer(buffer vk.CommandBuffer) error {
	return d.fail("ResetCommandBuffer")
}

func (d *Driver) BeginCommandBuffer(buffer vk.CommandBuffer, info *vk.CommandBufferBeginInfo) error {
	if err := d.fail("BeginCommandBuffer"); err != nil {
		return err
	}
	d.record(Command{Name: "Begin", Buffer: buffer})
	return nil
}

func (d *Driver) EndCommandBuffer(buffer vk.CommandBuffer) error {
	if err := d.fail("EndCommandBuffer"); err != nil {
		return err
	}
	d.record(Command{Name: "End", Buffer: buffer})
	return nil
}

func (d *Driver) CmdSetViewport(buffer vk.CommandBuffer, viewport vk.Viewport) {
	d.record(Command{Name: "SetViewport", Buffer: buffer})
}

func (d *Driver) CmdSetScissor(buffer vk.CommandBuffer, scissor vk.Rect2D) {
	d.record(Command{Name: "SetScissor", Buffer: buffer})
}

func (d *Driver) CmdBeginRenderPass(buffer vk.CommandBuffer, info *vk.RenderPassBeginInfo) {
	d.record(Command{Name: "BeginRenderPass", Buffer: buffer})
}

func (d *Driver) CmdEndRenderPass(buffer vk.CommandBuffer) {
	d.record(Command{Name: "EndRenderPass", Buffer: buffer})
}

func (d *Driver) CmdBindPipeline(buffer vk.CommandBuffer, pipeline vk.Pipeline) {
	d.record(Command{Name: "BindPipeline", Buffer: buffer, Pipeline: pipeline})
}

func (d *Driver) CmdBindVertexBuffer(buffer vk.CommandBuffer, binding uint32, vertices vk.Buffer) {
	d.record(Command{Name: "BindVertexBuffer", Buffer: buffer, Bound: vertices})
}

func (d *Driver) CmdBindIndexBuffer(buffer vk.CommandBuffer, indices vk.Buffer, indexType vk.IndexType) {
	d.record(Command{Name: "BindIndexBuffer", Buffer: buffer, Bound: indices})
}

func (d *Driver) CmdPushConstants(buffer vk.CommandBuffer, layout vk.PipelineLayout, stages vk.ShaderStageFlags, offset uint32, data []byte) {
	d.record(Command{Name: "PushConstants", Buffer: buffer, Data: append([]byte{}, data...)})
}

func (d *Driver) CmdDrawIndexed(buffer vk.CommandBuffer, indexCount, instanceCount, firstIndex uint32, vertexOffset int32, firstInstance uint32) {
	d.record(Command{Name: "DrawIndexed", Buffer: buffer, IndexCount: indexCount})
}

func (d *Driver) CmdPipelineBarrier(buffer vk.CommandBuffer, srcStage, dstStage vk.PipelineStageFlags, barrier vk.ImageMemoryBarrier) {
	d.record(Command{Name: "PipelineBarrier", Buffer: buffer})
}

func (d *Driver) CmdCopyBufferToImage(buffer vk.CommandBuffer, src vk.Buffer, dst vk.Image, region vk.BufferImageCopy) {
	d.record(Command{Name: "CopyBufferToImage", Buffer: buffer, Bound: src})
}

func (d *Driver) Destroy() {
	d.Calls["Destroy"]++
}
