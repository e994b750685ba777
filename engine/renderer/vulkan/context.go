package vulkan

import (
	"errors"
	"fmt"
	"slices"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/animate/engine/containers"
	"github.com/spaghettifunk/animate/engine/core"
	"github.com/spaghettifunk/animate/engine/math"
)

type SwapchainState int

const (
	SwapchainStateReady SwapchainState = iota
	SwapchainStateRecreating
)

func (s SwapchainState) String() string {
	switch s {
	case SwapchainStateReady:
		return "ready"
	case SwapchainStateRecreating:
		return "recreating"
	default:
		return fmt.Sprintf("SwapchainState(%d)", int(s))
	}
}

// Context owns every device level object used to render into one window.
// A Context must only be used from the goroutine that renders.
type Context struct {
	driver   Driver
	window   Window
	shaders  ShaderSource
	options  Options
	instance *vulkanInstance

	state          SwapchainState
	swapchain      *VulkanSwapchain
	renderpass     *VulkanRenderpass
	pipelineLayout vk.PipelineLayout
	framebuffers   []*VulkanFramebuffer
	commandPool    vk.CommandPool
	commandBuffers []*VulkanCommandBuffer

	imageAvailableSemaphore vk.Semaphore
	renderFinishedSemaphore vk.Semaphore

	// Current generation of framebuffer size. If it does not match
	// framebufferSizeLastGeneration the swapchain is rebuilt before the next frame.
	framebufferSizeGeneration     uint64
	framebufferSizeLastGeneration uint64

	buffers   *BufferPool
	pipelines []*Pipeline
	textures  map[string]*Texture
	drawables *containers.Arena[Drawable]
	scene     []DrawableHandle

	lastFrame    FrameStats
	recreations  uint64
	frameCounter uint64
}

// NewContext builds the swapchain and everything that depends on it on top of
// an existing device. On success the context owns driver and destroys it in
// Destroy; on failure everything built so far is released and driver is left
// to the caller.
func NewContext(driver Driver, window Window, shaders ShaderSource, opts Options) (*Context, error) {
	c := &Context{
		driver:    driver,
		window:    window,
		shaders:   shaders,
		options:   opts,
		buffers:   NewBufferPool(driver),
		textures:  make(map[string]*Texture),
		drawables: containers.NewArena[Drawable](),
	}
	if err := c.initialise(); err != nil {
		c.release()
		return nil, err
	}
	return c, nil
}

func (c *Context) initialise() error {
	support, err := c.driver.SwapchainSupport()
	if err != nil {
		return err
	}
	width, height := c.window.FramebufferSize()
	extent := chooseSwapExtent(support.Capabilities, width, height)
	if extent.Width == 0 || extent.Height == 0 {
		return fmt.Errorf("cannot create a swapchain with a %dx%d extent", extent.Width, extent.Height)
	}

	if c.swapchain, err = createSwapchain(c.driver, support, extent, vk.NullSwapchain); err != nil {
		return err
	}
	if err := c.swapchain.createViews(c.driver); err != nil {
		return err
	}
	if c.renderpass, err = RenderpassCreate(c.driver, c.swapchain.ImageFormat.Format, c.options.ClearColour); err != nil {
		return err
	}
	if err := c.createPipelineLayout(); err != nil {
		return err
	}
	if err := c.createFramebuffers(); err != nil {
		return err
	}

	poolCreateInfo := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: uint32(c.driver.QueueFamilies().Graphics),
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
	}
	if c.commandPool, err = c.driver.CreateCommandPool(&poolCreateInfo); err != nil {
		return err
	}
	core.LogDebug("Graphics command pool created.")

	if err := c.createCommandBuffers(); err != nil {
		return err
	}
	if c.imageAvailableSemaphore, err = c.driver.CreateSemaphore(); err != nil {
		return err
	}
	if c.renderFinishedSemaphore, err = c.driver.CreateSemaphore(); err != nil {
		return err
	}
	c.state = SwapchainStateReady
	return nil
}

func (c *Context) createPipelineLayout() error {
	pushConstantRange := vk.PushConstantRange{
		StageFlags: vk.ShaderStageFlags(vk.ShaderStageVertexBit),
		Offset:     0,
		Size:       PushConstantSize,
	}
	createInfo := vk.PipelineLayoutCreateInfo{
		SType:                  vk.StructureTypePipelineLayoutCreateInfo,
		PushConstantRangeCount: 1,
		PPushConstantRanges:    []vk.PushConstantRange{pushConstantRange},
	}
	layout, err := c.driver.CreatePipelineLayout(&createInfo)
	if err != nil {
		return err
	}
	c.pipelineLayout = layout
	return nil
}

func (c *Context) createFramebuffers() error {
	c.framebuffers = make([]*VulkanFramebuffer, 0, len(c.swapchain.Views))
	for _, view := range c.swapchain.Views {
		fb, err := FramebufferCreate(c.driver, c.renderpass, c.swapchain.Extent.Width, c.swapchain.Extent.Height, []vk.ImageView{view})
		if err != nil {
			return err
		}
		c.framebuffers = append(c.framebuffers, fb)
	}
	return nil
}

func (c *Context) createCommandBuffers() error {
	buffers, err := NewVulkanCommandBuffers(c.driver, c.commandPool, uint32(len(c.framebuffers)))
	if err != nil {
		return err
	}
	c.commandBuffers = buffers
	return nil
}

// destroySwapchainDependants destroys framebuffers, command buffers, the
// render pass and image views, in that order.
func (c *Context) destroySwapchainDependants() {
	for _, fb := range c.framebuffers {
		fb.Destroy(c.driver)
	}
	c.framebuffers = nil

	if len(c.commandBuffers) > 0 {
		FreeVulkanCommandBuffers(c.driver, c.commandPool, c.commandBuffers)
	}
	c.commandBuffers = nil

	if c.renderpass != nil {
		c.renderpass.Destroy(c.driver)
		c.renderpass = nil
	}
	if c.swapchain != nil {
		c.swapchain.destroyViews(c.driver)
	}
}

// RecreateSwapchain rebuilds the swapchain and everything depending on it
// without touching the device, the command pool or the semaphores. A
// minimised window yields core.ErrSwapchainBooting and leaves the current
// swapchain in place.
func (c *Context) RecreateSwapchain() error {
	support, err := c.driver.SwapchainSupport()
	if err != nil {
		return err
	}
	width, height := c.window.FramebufferSize()
	extent := chooseSwapExtent(support.Capabilities, width, height)
	if extent.Width == 0 || extent.Height == 0 {
		core.LogDebug("Framebuffer has a zero dimension, postponing swapchain recreation.")
		return core.ErrSwapchainBooting
	}

	c.state = SwapchainStateRecreating
	if err := c.driver.DeviceWaitIdle(); err != nil {
		return err
	}

	c.destroySwapchainDependants()

	old := c.swapchain
	swapchain, err := createSwapchain(c.driver, support, extent, old.Handle)
	if err != nil {
		return err
	}
	old.destroy(c.driver)
	c.swapchain = swapchain

	if err := c.swapchain.createViews(c.driver); err != nil {
		return err
	}
	if c.renderpass, err = RenderpassCreate(c.driver, c.swapchain.ImageFormat.Format, c.options.ClearColour); err != nil {
		return err
	}
	for _, p := range c.pipelines {
		if err := p.Recreate(); err != nil {
			return err
		}
	}
	if err := c.createFramebuffers(); err != nil {
		return err
	}
	if err := c.createCommandBuffers(); err != nil {
		return err
	}

	c.framebufferSizeLastGeneration = c.framebufferSizeGeneration
	c.recreations++
	c.state = SwapchainStateReady
	core.LogInfo("Swapchain recreated (%dx%d).", extent.Width, extent.Height)
	return nil
}

// Resized marks the swapchain stale; it is rebuilt at the start of the next frame.
func (c *Context) Resized() {
	c.framebufferSizeGeneration++
}

func (c *Context) State() SwapchainState {
	return c.state
}

func (c *Context) Extent() vk.Extent2D {
	return c.swapchain.Extent
}

func (c *Context) RenderPass() vk.RenderPass {
	if c.renderpass == nil {
		return vk.NullRenderPass
	}
	return c.renderpass.Handle
}

func (c *Context) PipelineLayout() vk.PipelineLayout {
	return c.pipelineLayout
}

// Recreations returns how many times the swapchain has been rebuilt.
func (c *Context) Recreations() uint64 {
	return c.recreations
}

type ResourceCounts struct {
	ImageViews     int
	Framebuffers   int
	CommandBuffers int
	Pipelines      int
	Buffers        int
	Textures       int
}

func (c *Context) ResourceCounts() ResourceCounts {
	counts := ResourceCounts{
		Framebuffers:   len(c.framebuffers),
		CommandBuffers: len(c.commandBuffers),
		Pipelines:      len(c.pipelines),
		Buffers:        c.buffers.Len(),
		Textures:       len(c.textures),
	}
	if c.swapchain != nil {
		counts.ImageViews = len(c.swapchain.Views)
	}
	return counts
}

// CreatePipeline builds a pipeline from the two shader ids. The context owns
// the result.
func (c *Context) CreatePipeline(fragmentID, vertexID string) (*Pipeline, error) {
	p := &Pipeline{
		context:        c,
		vertexID:       vertexID,
		fragmentID:     fragmentID,
		viewProjection: math.NewMat4Identity(),
	}
	if err := p.Recreate(); err != nil {
		core.LogError("failed to create pipeline (%s, %s): %s", vertexID, fragmentID, err)
		return nil, err
	}
	c.pipelines = append(c.pipelines, p)
	return p, nil
}

// DestroyPipeline destroys p. Drawables referring to it are skipped until
// they are given another pipeline.
func (c *Context) DestroyPipeline(p *Pipeline) {
	i := slices.Index(c.pipelines, p)
	if i < 0 {
		return
	}
	c.pipelines = slices.Delete(c.pipelines, i, i+1)
	if n := len(c.DrawablesUsing(p)); n > 0 {
		core.LogWarn("Destroying pipeline (%s, %s) still used by %d drawables.", p.vertexID, p.fragmentID, n)
	}
	c.waitIdle()
	p.destroyHandles()
}

// waitIdle blocks until no submitted frame can still reference an object
// about to be destroyed. RenderScene only waits on the present queue.
func (c *Context) waitIdle() {
	if err := c.driver.DeviceWaitIdle(); err != nil {
		core.LogError("failed to wait for device idle: %s", err)
	}
}

func (c *Context) Pipelines() []*Pipeline {
	return append([]*Pipeline{}, c.pipelines...)
}

// ReloadShader rebuilds every pipeline using the shader id. The device is
// idled first since the old pipelines may still be in use. A pipeline that
// fails to rebuild keeps its previous shaders; the others are still rebuilt.
func (c *Context) ReloadShader(id string) error {
	var affected []*Pipeline
	for _, p := range c.pipelines {
		if p.UsesShader(id) {
			affected = append(affected, p)
		}
	}
	if len(affected) == 0 {
		return nil
	}
	if err := c.driver.DeviceWaitIdle(); err != nil {
		return err
	}
	var errs []error
	for _, p := range affected {
		if err := p.Rebuild(); err != nil {
			vertex, fragment := p.ShaderIDs()
			errs = append(errs, fmt.Errorf("pipeline (%s, %s): %w", vertex, fragment, err))
		}
	}
	core.LogInfo("Reloaded shader '%s' (%d of %d pipelines).", id, len(affected)-len(errs), len(affected))
	return errors.Join(errs...)
}

func (c *Context) CreateBuffer(size vk.DeviceSize, usage vk.BufferUsageFlags, properties vk.MemoryPropertyFlags) (*Buffer, error) {
	return c.buffers.Create(size, usage, properties)
}

// ReleaseBuffer destroys b. It is a no-op for a buffer already released.
func (c *Context) ReleaseBuffer(b *Buffer) {
	if b.Released() {
		return
	}
	c.waitIdle()
	c.buffers.Release(b)
}

func (c *Context) MapBuffer(b *Buffer) ([]byte, error) {
	return c.buffers.Map(b)
}

func (c *Context) UnmapBuffer(b *Buffer) {
	c.buffers.Unmap(b)
}

func (c *Context) UploadBuffer(b *Buffer, data []byte) error {
	return c.buffers.Upload(b, data)
}

// FindMemoryType returns the index of a memory type allowed by typeFilter
// with all the requested properties.
func (c *Context) FindMemoryType(typeFilter uint32, properties vk.MemoryPropertyFlags) (uint32, error) {
	return findMemoryType(c.driver.MemoryTypes(), typeFilter, properties)
}

// release destroys everything the context created, leaving the driver and
// instance alone.
func (c *Context) release() {
	c.scene = nil
	c.drawables = containers.NewArena[Drawable]()

	for name, texture := range c.textures {
		texture.destroy(c)
		delete(c.textures, name)
	}
	c.buffers.ReleaseAll()

	for _, p := range c.pipelines {
		p.destroyHandles()
	}
	c.pipelines = nil

	c.destroySwapchainDependants()
	if c.swapchain != nil {
		c.swapchain.destroy(c.driver)
		c.swapchain = nil
	}
	if c.pipelineLayout != vk.NullPipelineLayout {
		c.driver.DestroyPipelineLayout(c.pipelineLayout)
		c.pipelineLayout = vk.NullPipelineLayout
	}
	if c.imageAvailableSemaphore != vk.NullSemaphore {
		c.driver.DestroySemaphore(c.imageAvailableSemaphore)
		c.imageAvailableSemaphore = vk.NullSemaphore
	}
	if c.renderFinishedSemaphore != vk.NullSemaphore {
		c.driver.DestroySemaphore(c.renderFinishedSemaphore)
		c.renderFinishedSemaphore = vk.NullSemaphore
	}
	if c.commandPool != vk.NullCommandPool {
		c.driver.DestroyCommandPool(c.commandPool)
		c.commandPool = vk.NullCommandPool
	}
}

// Destroy waits for the device to go idle and destroys everything in reverse
// order of creation: drawables and buffers, pipelines, swapchain objects, the
// device and finally the instance.
func (c *Context) Destroy() {
	if c.driver == nil {
		return
	}
	if err := c.driver.DeviceWaitIdle(); err != nil {
		core.LogWarn("Device wait idle failed during shutdown: %s", err)
	}
	c.release()
	c.driver.Destroy()
	c.driver = nil
	c.instance.destroy()
	c.instance = nil
	core.LogInfo("Vulkan context destroyed.")
}
