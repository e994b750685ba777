package vulkan_test

import (
	"image"
	"image/color"
	"testing"
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/animate/engine/core"
	"github.com/spaghettifunk/animate/engine/math"
	"github.com/spaghettifunk/animate/engine/renderer/vulkan"
	"github.com/spaghettifunk/animate/engine/renderer/vulkan/vulkantest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewContext(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, vulkan.SwapchainStateReady, f.ctx.State())
	assert.Equal(t, vk.Extent2D{Width: 800, Height: 600}, f.ctx.Extent())
	assert.Equal(t, vulkan.ResourceCounts{ImageViews: 2, Framebuffers: 2, CommandBuffers: 2}, f.ctx.ResourceCounts())
	assert.Equal(t, 1, f.driver.Live("Swapchain"))
	assert.Equal(t, 1, f.driver.Live("RenderPass"))
	assert.Equal(t, 1, f.driver.Live("PipelineLayout"))
	assert.Equal(t, 1, f.driver.Live("CommandPool"))
	assert.Equal(t, 2, f.driver.Live("Semaphore"))
	assert.Empty(t, f.driver.Errors)
}

func TestNewContextFailureReleasesEverything(t *testing.T) {
	driver := vulkantest.New()
	driver.Fail["CreateCommandPool"] = true

	ctx, err := vulkan.NewContext(driver, &testWindow{width: 800, height: 600}, newTestShaders(), vulkan.Options{})
	require.Error(t, err)
	assert.Nil(t, ctx)
	assert.Zero(t, driver.LiveTotal())
	assert.Zero(t, driver.Calls["Destroy"], "the driver stays with the caller")
	assert.Empty(t, driver.Errors)
}

func TestNewContextRejectsZeroExtent(t *testing.T) {
	driver := vulkantest.New()
	driver.Support.Capabilities.CurrentExtent = vk.Extent2D{Width: vk.MaxUint32, Height: vk.MaxUint32}
	driver.Support.Capabilities.MinImageExtent = vk.Extent2D{}

	_, err := vulkan.NewContext(driver, &testWindow{}, newTestShaders(), vulkan.Options{})
	assert.Error(t, err)
	assert.Zero(t, driver.LiveTotal())
}

func TestRecreateSwapchainTwice(t *testing.T) {
	f := newFixture(t)
	p := f.pipeline(t)

	require.NoError(t, f.ctx.RecreateSwapchain())
	require.NoError(t, f.ctx.RecreateSwapchain())

	assert.Equal(t, uint64(2), f.ctx.Recreations())
	olds := f.driver.OldSwapchains()
	require.Len(t, olds, 3)
	assert.Zero(t, vulkantest.Addr(olds[0]))
	assert.NotZero(t, vulkantest.Addr(olds[1]), "the previous swapchain is handed over")
	assert.NotEqual(t, vulkantest.Addr(olds[1]), vulkantest.Addr(olds[2]))

	assert.True(t, f.driver.IsLive(unsafe.Pointer(p.Handle)))
	assert.Equal(t, vulkantest.Addr(f.ctx.RenderPass()), vulkantest.Addr(p.RenderPass()))
	assert.Equal(t, vulkantest.Addr(f.ctx.RenderPass()), vulkantest.Addr(f.driver.PipelineRenderPass(p.Handle)))

	assert.Equal(t, 1, f.driver.Live("Swapchain"))
	assert.Equal(t, 1, f.driver.Live("RenderPass"))
	assert.Equal(t, 1, f.driver.Live("Pipeline"))
	assert.Equal(t, 2, f.driver.Live("ShaderModule"))
	assert.Equal(t, 2, f.driver.Live("ImageView"))
	assert.Equal(t, 2, f.driver.Live("Framebuffer"))
	assert.Equal(t, 2, f.driver.Live("CommandBuffer"))
	assert.Equal(t, 1, f.driver.Live("CommandPool"), "the command pool survives recreation")
	assert.Equal(t, 2, f.driver.Live("Semaphore"))
	assert.Empty(t, f.driver.Errors)
}

func TestRecreateSwapchainZeroExtent(t *testing.T) {
	f := newFixture(t)
	f.driver.Support.Capabilities.CurrentExtent = vk.Extent2D{Width: vk.MaxUint32, Height: vk.MaxUint32}
	f.driver.Support.Capabilities.MinImageExtent = vk.Extent2D{}
	f.window.width, f.window.height = 0, 0
	live := f.driver.LiveTotal()

	assert.ErrorIs(t, f.ctx.RecreateSwapchain(), core.ErrSwapchainBooting)
	assert.Equal(t, live, f.driver.LiveTotal(), "nothing is torn down while minimised")
	assert.Zero(t, f.ctx.Recreations())
	assert.Zero(t, f.driver.Calls["DeviceWaitIdle"])
}

func TestRecreateSwapchainUsesWindowSize(t *testing.T) {
	f := newFixture(t)
	f.driver.Support.Capabilities.CurrentExtent = vk.Extent2D{Width: vk.MaxUint32, Height: vk.MaxUint32}
	f.window.width, f.window.height = 1280, 720

	require.NoError(t, f.ctx.RecreateSwapchain())
	assert.Equal(t, vk.Extent2D{Width: 1280, Height: 720}, f.ctx.Extent())
}

func TestPipelineLifecycle(t *testing.T) {
	f := newFixture(t)
	p := f.pipeline(t)

	vertex, fragment := p.ShaderIDs()
	assert.Equal(t, "default.vert", vertex)
	assert.Equal(t, "default.frag", fragment)
	assert.True(t, p.UsesShader("default.frag"))
	assert.False(t, p.UsesShader("other.frag"))
	assert.Equal(t, math.NewMat4Identity(), p.Matrix())
	assert.Len(t, f.ctx.Pipelines(), 1)

	f.ctx.DestroyPipeline(p)
	assert.Empty(t, f.ctx.Pipelines())
	assert.Zero(t, vulkantest.Addr(p.Handle))
	assert.Zero(t, f.driver.Live("Pipeline"))
	assert.Zero(t, f.driver.Live("ShaderModule"))
	assert.Equal(t, 1, f.driver.Calls["DeviceWaitIdle"])

	f.ctx.DestroyPipeline(p)
	assert.Equal(t, 1, f.driver.Calls["DeviceWaitIdle"])
	assert.Empty(t, f.driver.Errors)
}

func TestDrawablesUsing(t *testing.T) {
	f := newFixture(t)
	p := f.pipeline(t)
	other, err := f.ctx.CreatePipeline("other.frag", "other.vert")
	require.NoError(t, err)

	a := f.ctx.Spawn(f.quad(t, p, math.NewMat4Identity()))
	b := f.ctx.Spawn(f.quad(t, other, math.NewMat4Identity()))
	c := f.ctx.Spawn(f.quad(t, p, math.NewMat4Identity()))
	assert.Equal(t, []vulkan.DrawableHandle{a, c}, f.ctx.DrawablesUsing(p))
	assert.Equal(t, []vulkan.DrawableHandle{b}, f.ctx.DrawablesUsing(other))

	f.ctx.Despawn(a)
	assert.Equal(t, []vulkan.DrawableHandle{c}, f.ctx.DrawablesUsing(p))

	f.ctx.DestroyPipeline(p)
	_, ok := f.ctx.Drawable(c)
	assert.True(t, ok, "destroying a pipeline leaves its drawables spawned")
}

func TestCreatePipelineMissingShader(t *testing.T) {
	f := newFixture(t)
	f.shaders.missing["default.frag"] = true

	_, err := f.ctx.CreatePipeline("default.frag", "default.vert")
	require.Error(t, err)
	assert.Empty(t, f.ctx.Pipelines())
	assert.Zero(t, f.driver.Live("ShaderModule"), "the vertex module is not leaked")
	assert.Zero(t, f.driver.Live("Pipeline"))
}

func TestReloadShader(t *testing.T) {
	f := newFixture(t)
	p := f.pipeline(t)
	other, err := f.ctx.CreatePipeline("other.frag", "other.vert")
	require.NoError(t, err)
	before, otherBefore := p.Handle, other.Handle

	require.NoError(t, f.ctx.ReloadShader("default.vert"))
	assert.NotEqual(t, vulkantest.Addr(before), vulkantest.Addr(p.Handle))
	assert.Equal(t, vulkantest.Addr(otherBefore), vulkantest.Addr(other.Handle))
	assert.Equal(t, 2, f.shaders.loads["default.vert"])
	assert.Equal(t, 1, f.driver.Calls["DeviceWaitIdle"])

	require.NoError(t, f.ctx.ReloadShader("unused.vert"))
	assert.Equal(t, 1, f.driver.Calls["DeviceWaitIdle"], "nothing to rebuild")
	assert.Equal(t, 2, f.driver.Live("Pipeline"))
	assert.Empty(t, f.driver.Errors)
}

func TestFailedReloadKeepsPreviousPipeline(t *testing.T) {
	f := newFixture(t)
	broken, err := f.ctx.CreatePipeline("other.frag", "default.vert")
	require.NoError(t, err)
	p := f.pipeline(t)
	f.show(f.quad(t, broken, math.NewMat4Identity()))
	f.show(f.quad(t, p, math.NewMat4Identity()))
	require.NoError(t, f.ctx.RenderScene())
	require.Equal(t, 2, f.ctx.LastFrame().Draws)
	brokenBefore, before := broken.Handle, p.Handle

	f.shaders.missing["other.frag"] = true
	err = f.ctx.ReloadShader("default.vert")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "other.frag")

	assert.Equal(t, vulkantest.Addr(brokenBefore), vulkantest.Addr(broken.Handle), "the old pipeline stays bound")
	assert.NotEqual(t, vulkantest.Addr(before), vulkantest.Addr(p.Handle), "later pipelines are still rebuilt")
	assert.Equal(t, 2, f.driver.Live("Pipeline"))
	assert.Equal(t, 4, f.driver.Live("ShaderModule"), "the half built replacement is released")

	require.NoError(t, f.ctx.RenderScene())
	assert.Equal(t, 2, f.ctx.LastFrame().Draws)
	assert.Empty(t, f.driver.Errors)
}

func TestPipelineStagingAndCommit(t *testing.T) {
	f := newFixture(t)
	p := f.pipeline(t)
	d := f.quad(t, p, math.NewMat4Identity())

	a := f.ctx.Spawn(d)
	b := f.ctx.Spawn(d)
	assert.Equal(t, uint64(1), p.AddDrawable(a))
	assert.Equal(t, uint64(2), p.AddDrawable(b))
	assert.Equal(t, []vulkan.DrawableHandle{a, b}, p.Drawables())
	assert.Zero(t, f.ctx.SceneLen(), "staged drawables are not in the scene")

	f.ctx.Despawn(b)
	assert.Equal(t, []vulkan.DrawableHandle{a}, p.Drawables())

	p.CommitScene()
	assert.Empty(t, p.Drawables())
	assert.Equal(t, []vulkan.DrawableHandle{a}, p.Scene())
	assert.Equal(t, []vulkan.DrawableHandle{a}, f.ctx.Scene())
}

func TestSceneIsOrderedMultiset(t *testing.T) {
	f := newFixture(t)
	p := f.pipeline(t)
	d := f.quad(t, p, math.NewMat4Identity())

	a := f.ctx.Spawn(d)
	b := f.ctx.Spawn(d)
	c := f.ctx.Spawn(d)
	f.ctx.AddToScene(c)
	f.ctx.AddToScene(a)
	f.ctx.AddToScene(b)
	f.ctx.AddToScene(a)

	assert.Equal(t, []vulkan.DrawableHandle{a, a, b, c}, f.ctx.Scene())

	f.ctx.FlushScene()
	assert.Zero(t, f.ctx.SceneLen())
	_, ok := f.ctx.Drawable(a)
	assert.True(t, ok, "flushing keeps drawables spawned")
}

func TestBufferPool(t *testing.T) {
	f := newFixture(t)

	_, err := f.ctx.CreateBuffer(0, vulkan.BufferUsageVertex, vulkan.MemoryHostVisible)
	assert.Error(t, err)

	first, err := f.ctx.CreateBuffer(64, vulkan.BufferUsageVertex, vulkan.MemoryHostVisible)
	require.NoError(t, err)
	second, err := f.ctx.CreateBuffer(16, vulkan.BufferUsageIndex, vulkan.MemoryDeviceLocal)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID(), second.ID())
	assert.True(t, first.IsVertex())
	assert.True(t, second.IsIndex())

	require.NoError(t, f.ctx.UploadBuffer(first, []byte{1, 2, 3, 4}))
	assert.Equal(t, []byte{1, 2, 3, 4}, f.driver.Contents(first.Memory)[:4])
	assert.Nil(t, first.Mapped(), "upload restores the unmapped state")
	assert.Error(t, f.ctx.UploadBuffer(first, make([]byte, 65)))

	_, err = f.ctx.MapBuffer(second)
	assert.Error(t, err, "device local memory cannot be mapped")

	mapped, err := f.ctx.MapBuffer(first)
	require.NoError(t, err)
	assert.Len(t, mapped, 64)
	assert.Equal(t, 2, f.ctx.ResourceCounts().Buffers)

	f.ctx.ReleaseBuffer(first)
	assert.True(t, first.Released())
	assert.Equal(t, 1, f.ctx.ResourceCounts().Buffers)
	assert.Equal(t, 1, f.driver.Calls["DeviceWaitIdle"], "in flight frames may still read the buffer")
	f.ctx.ReleaseBuffer(first)
	assert.Equal(t, 1, f.driver.Calls["DeviceWaitIdle"])
	assert.Equal(t, 1, f.ctx.ResourceCounts().Buffers)
	assert.Equal(t, 1, f.driver.Live("Buffer"))
	assert.Equal(t, 1, f.driver.Live("DeviceMemory"))
	assert.Empty(t, f.driver.Errors, "a second release does not touch the device")

	_, err = f.ctx.MapBuffer(first)
	assert.Error(t, err)
}

func TestBufferPoolNoMemoryType(t *testing.T) {
	f := newFixture(t)
	f.driver.Memory = f.driver.Memory[:1]

	_, err := f.ctx.CreateBuffer(64, vulkan.BufferUsageVertex, vulkan.MemoryHostVisible)
	assert.ErrorIs(t, err, core.ErrNoMemoryType)
	assert.Zero(t, f.driver.Live("Buffer"))
}

func TestFindMemoryType(t *testing.T) {
	f := newFixture(t)
	index, err := f.ctx.FindMemoryType(0b11, vulkan.MemoryHostVisible)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), index)
}

func TestCreateTexture(t *testing.T) {
	f := newFixture(t)
	img := image.NewNRGBA(image.Rect(0, 0, 4, 2))
	img.Set(0, 0, color.NRGBA{R: 255, A: 255})

	texture, err := f.ctx.CreateTexture("", img)
	require.NoError(t, err)
	assert.NotEmpty(t, texture.Name)
	assert.Equal(t, uint32(4), texture.Width)
	assert.Equal(t, uint32(2), texture.Height)
	assert.NotZero(t, vulkantest.Addr(texture.View()))

	assert.Len(t, f.driver.Named("PipelineBarrier"), 2)
	assert.Len(t, f.driver.Named("CopyBufferToImage"), 1)
	assert.Zero(t, f.driver.Live("Buffer"), "the staging buffer is released")
	assert.Zero(t, f.driver.Live("Fence"))
	assert.Equal(t, 2, f.driver.Live("CommandBuffer"), "the single use command buffer is freed")
	assert.Equal(t, 1, f.driver.Live("Image"))

	got, ok := f.ctx.Texture(texture.Name)
	require.True(t, ok)
	assert.Same(t, texture, got)

	replacement, err := f.ctx.CreateTexture(texture.Name, img)
	require.NoError(t, err)
	assert.Equal(t, 1, f.driver.Live("Image"), "same name replaces")
	assert.Equal(t, 1, f.ctx.ResourceCounts().Textures)

	f.ctx.DestroyTexture(texture)
	assert.Equal(t, 1, f.ctx.ResourceCounts().Textures, "a stale texture is not the registered one")
	f.ctx.DestroyTexture(replacement)
	assert.Zero(t, f.driver.Live("Image"))
	assert.Equal(t, 2, f.driver.Calls["DeviceWaitIdle"], "both destroyed textures waited for the device")
	assert.Equal(t, 2, f.driver.Live("ImageView"), "only the swapchain views remain")
	assert.Empty(t, f.driver.Errors)
}

func TestCreateTextureEmptyImage(t *testing.T) {
	f := newFixture(t)
	_, err := f.ctx.CreateTexture("empty", image.NewRGBA(image.Rectangle{}))
	assert.Error(t, err)
}

func TestDestroyReleasesEverything(t *testing.T) {
	f := newFixture(t)
	p := f.pipeline(t)
	f.show(f.quad(t, p, math.NewMat4Identity()))
	_, err := f.ctx.CreateTexture("white", image.NewRGBA(image.Rect(0, 0, 1, 1)))
	require.NoError(t, err)
	require.NoError(t, f.ctx.RenderScene())

	f.ctx.Destroy()
	assert.Zero(t, f.driver.LiveTotal())
	assert.Equal(t, 1, f.driver.Calls["Destroy"])
	assert.Empty(t, f.driver.Errors)

	f.ctx.Destroy()
	assert.Equal(t, 1, f.driver.Calls["Destroy"], "destroy is idempotent")
}
