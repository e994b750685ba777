package vulkan_test

import (
	"testing"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/animate/engine/core"
	"github.com/spaghettifunk/animate/engine/math"
	"github.com/spaghettifunk/animate/engine/renderer/vulkan"
	"github.com/spaghettifunk/animate/engine/renderer/vulkan/vulkantest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func commandNames(f *fixture) []string {
	var cmds []string
	for _, c := range f.driver.Commands {
		cmds = append(cmds, c.Name)
	}
	return cmds
}

func TestRenderSingleQuad(t *testing.T) {
	f := newFixture(t)
	p := f.pipeline(t)
	quad := f.quad(t, p, math.NewMat4Identity())
	f.show(quad)

	require.NoError(t, f.ctx.RenderScene())

	assert.Equal(t, []string{
		"Begin",
		"SetViewport",
		"SetScissor",
		"BeginRenderPass",
		"BindVertexBuffer",
		"BindIndexBuffer",
		"PushConstants",
		"BindPipeline",
		"DrawIndexed",
		"EndRenderPass",
		"End",
	}, commandNames(f))

	draws := f.driver.Named("DrawIndexed")
	require.Len(t, draws, 1)
	assert.Equal(t, uint32(6), draws[0].IndexCount, "index count is the index buffer size over two")
	assert.Equal(t, vulkantest.Addr(quad.buffers[0].Handle), vulkantest.Addr(f.driver.Named("BindVertexBuffer")[0].Bound))
	assert.Equal(t, vulkantest.Addr(quad.buffers[1].Handle), vulkantest.Addr(f.driver.Named("BindIndexBuffer")[0].Bound))
	assert.Equal(t, vulkantest.Addr(p.Handle), vulkantest.Addr(f.driver.Named("BindPipeline")[0].Pipeline))

	stats := f.ctx.LastFrame()
	assert.Equal(t, vulkan.FrameStats{Frame: 1, ImageIndex: 0, Draws: 1, PipelineBinds: 1, PushConstants: 1}, stats)
	assert.Equal(t, 1, f.driver.Calls["QueueSubmit"])
	assert.Equal(t, 1, f.driver.Calls["QueueWaitIdle"])
	assert.Equal(t, 1, f.driver.Calls["QueuePresent"])
	assert.Empty(t, f.driver.Errors)
}

func TestRenderAlternatesImages(t *testing.T) {
	f := newFixture(t)
	f.show(f.quad(t, f.pipeline(t), math.NewMat4Identity()))

	var indices []uint32
	var recorded []uintptr
	for range 3 {
		f.driver.ResetCommands()
		require.NoError(t, f.ctx.RenderScene())
		indices = append(indices, f.ctx.LastFrame().ImageIndex)
		recorded = append(recorded, vulkantest.Addr(f.driver.Commands[0].Buffer))
	}
	assert.Equal(t, []uint32{0, 1, 0}, indices)
	assert.NotEqual(t, recorded[0], recorded[1], "each image has its own command buffer")
	assert.Equal(t, recorded[0], recorded[2])
	assert.Equal(t, uint64(3), f.ctx.LastFrame().Frame)
}

func TestPushConstantIsModelThenViewProjection(t *testing.T) {
	f := newFixture(t)
	p := f.pipeline(t)
	view := math.NewMat4Translation(math.NewVec3(-1, 0, 0))
	projection := math.NewMat4Orthographic(0, 800, 600, 0, -1, 1)
	p.SetMatrices(view, projection)
	model := math.NewMat4Translation(math.NewVec3(100, 50, 0)).Mul(math.NewMat4Scale(math.NewVec3(2, 2, 1)))
	f.show(f.quad(t, p, model))

	require.NoError(t, f.ctx.RenderScene())

	expected := model.Mul(view.Mul(projection))
	pushes := f.driver.Named("PushConstants")
	require.Len(t, pushes, 1)
	assert.Len(t, pushes[0].Data, int(vulkan.PushConstantSize))
	assert.Equal(t, expected.Bytes(), pushes[0].Data)
}

func TestPushConstantPerDraw(t *testing.T) {
	f := newFixture(t)
	p := f.pipeline(t)
	for i := range 5 {
		f.show(f.quad(t, p, math.NewMat4Translation(math.NewVec3(float32(i), 0, 0))))
	}

	require.NoError(t, f.ctx.RenderScene())

	stats := f.ctx.LastFrame()
	assert.Equal(t, 5, stats.Draws)
	assert.Equal(t, stats.Draws, stats.PushConstants)
	assert.Len(t, f.driver.Named("PushConstants"), 5)
	assert.Len(t, f.driver.Named("DrawIndexed"), 5)
}

func TestDespawnedDrawablesAreEvicted(t *testing.T) {
	f := newFixture(t)
	p := f.pipeline(t)
	first := f.show(f.quad(t, p, math.NewMat4Identity()))
	f.show(f.quad(t, p, math.NewMat4Identity()))
	require.Equal(t, 2, f.ctx.SceneLen())

	require.True(t, f.ctx.Despawn(first))
	assert.False(t, f.ctx.Despawn(first))
	require.NoError(t, f.ctx.RenderScene())

	stats := f.ctx.LastFrame()
	assert.Equal(t, 1, stats.Evicted)
	assert.Equal(t, 1, stats.Draws)
	assert.Equal(t, 1, f.ctx.SceneLen(), "the stale handle is dropped from the scene")

	require.NoError(t, f.ctx.RenderScene())
	assert.Zero(t, f.ctx.LastFrame().Evicted)
}

func TestReusedSlotDoesNotResurrectHandle(t *testing.T) {
	f := newFixture(t)
	p := f.pipeline(t)
	old := f.show(f.quad(t, p, math.NewMat4Identity()))
	f.ctx.Despawn(old)

	fresh := f.ctx.Spawn(f.quad(t, p, math.NewMat4Identity()))
	assert.NotEqual(t, old, fresh)
	_, ok := f.ctx.Drawable(old)
	assert.False(t, ok)

	require.NoError(t, f.ctx.RenderScene())
	assert.Zero(t, f.ctx.LastFrame().Draws, "fresh was never added to the scene")
}

func TestPipelineBindsOnlyOnChange(t *testing.T) {
	f := newFixture(t)
	first := f.pipeline(t)
	second, err := f.ctx.CreatePipeline("other.frag", "other.vert")
	require.NoError(t, err)

	f.show(f.quad(t, first, math.NewMat4Identity()))
	f.show(f.quad(t, first, math.NewMat4Identity()))
	f.show(f.quad(t, second, math.NewMat4Identity()))
	f.show(f.quad(t, first, math.NewMat4Identity()))

	require.NoError(t, f.ctx.RenderScene())

	binds := f.driver.Named("BindPipeline")
	require.Len(t, binds, 3)
	assert.Equal(t, vulkantest.Addr(first.Handle), vulkantest.Addr(binds[0].Pipeline))
	assert.Equal(t, vulkantest.Addr(second.Handle), vulkantest.Addr(binds[1].Pipeline))
	assert.Equal(t, vulkantest.Addr(first.Handle), vulkantest.Addr(binds[2].Pipeline))
	assert.Equal(t, 4, f.ctx.LastFrame().Draws)

	f.driver.ResetCommands()
	require.NoError(t, f.ctx.RenderScene())
	assert.Len(t, f.driver.Named("BindPipeline"), 3, "binding state does not leak between frames")
}

func TestOnlyIndexedDrawablesAreDrawn(t *testing.T) {
	f := newFixture(t)
	p := f.pipeline(t)

	vertices, err := f.ctx.CreateBuffer(3*math.VertexStride, vulkan.BufferUsageVertex, vulkan.MemoryHostVisible)
	require.NoError(t, err)
	f.show(&testDrawable{buffers: []*vulkan.Buffer{vertices}, model: math.NewMat4Identity(), pipeline: p})

	released := f.quad(t, p, math.NewMat4Identity())
	f.show(released)
	f.ctx.ReleaseBuffer(released.buffers[1])

	require.NoError(t, f.ctx.RenderScene())

	assert.Empty(t, f.driver.Named("DrawIndexed"))
	assert.Empty(t, f.driver.Named("PushConstants"))
	assert.Empty(t, f.driver.Named("BindPipeline"))
	assert.Len(t, f.driver.Named("BindVertexBuffer"), 2)
	assert.Empty(t, f.driver.Named("BindIndexBuffer"), "released buffers are skipped")
	assert.Equal(t, 2, f.ctx.SceneLen(), "undrawn drawables stay in the scene")
}

func TestDestroyedPipelineIsSkipped(t *testing.T) {
	f := newFixture(t)
	p := f.pipeline(t)
	f.show(f.quad(t, p, math.NewMat4Identity()))
	f.ctx.DestroyPipeline(p)

	require.NoError(t, f.ctx.RenderScene())
	assert.Zero(t, f.ctx.LastFrame().Draws)
	assert.Empty(t, f.driver.Errors)
}

func TestAcquireResults(t *testing.T) {
	t.Run("out of date recreates and boots", func(t *testing.T) {
		f := newFixture(t)
		f.show(f.quad(t, f.pipeline(t), math.NewMat4Identity()))
		f.driver.AcquireResults = []vk.Result{vk.ErrorOutOfDate}

		assert.ErrorIs(t, f.ctx.RenderScene(), core.ErrSwapchainBooting)
		assert.Equal(t, uint64(1), f.ctx.Recreations())
		assert.Zero(t, f.driver.Calls["QueueSubmit"])
		assert.Empty(t, f.driver.Named("DrawIndexed"))

		require.NoError(t, f.ctx.RenderScene())
		assert.Len(t, f.driver.Named("DrawIndexed"), 1)
	})

	t.Run("suboptimal still renders", func(t *testing.T) {
		f := newFixture(t)
		f.show(f.quad(t, f.pipeline(t), math.NewMat4Identity()))
		f.driver.AcquireResults = []vk.Result{vk.Suboptimal}

		require.NoError(t, f.ctx.RenderScene())
		assert.Len(t, f.driver.Named("DrawIndexed"), 1)
		assert.Zero(t, f.ctx.Recreations())
	})

	t.Run("other failures are fatal", func(t *testing.T) {
		f := newFixture(t)
		f.driver.AcquireResults = []vk.Result{vk.ErrorDeviceLost}

		err := f.ctx.RenderScene()
		assert.ErrorIs(t, err, core.ErrAcquireFailed)
		assert.NotErrorIs(t, err, core.ErrSwapchainBooting)
		assert.Zero(t, f.driver.Calls["QueueSubmit"])
	})
}

func TestSubmitFailure(t *testing.T) {
	f := newFixture(t)
	f.show(f.quad(t, f.pipeline(t), math.NewMat4Identity()))
	f.driver.SubmitResult = vk.ErrorDeviceLost

	assert.ErrorIs(t, f.ctx.RenderScene(), core.ErrSubmitFailed)
	assert.Zero(t, f.driver.Calls["QueuePresent"])
}

func TestPresentResults(t *testing.T) {
	for _, res := range []vk.Result{vk.ErrorOutOfDate, vk.Suboptimal} {
		t.Run(vulkan.VulkanResultString(res, false), func(t *testing.T) {
			f := newFixture(t)
			f.driver.PresentResults = []vk.Result{res}

			require.NoError(t, f.ctx.RenderScene())
			assert.Equal(t, uint64(1), f.ctx.Recreations())
			assert.Equal(t, vulkan.SwapchainStateReady, f.ctx.State())
		})
	}

	t.Run("stale while minimised", func(t *testing.T) {
		f := newFixture(t)
		f.driver.PresentResults = []vk.Result{vk.ErrorOutOfDate}
		f.driver.Support.Capabilities.CurrentExtent = vk.Extent2D{}

		require.NoError(t, f.ctx.RenderScene())
		assert.Zero(t, f.ctx.Recreations())
	})

	t.Run("other failures are fatal", func(t *testing.T) {
		f := newFixture(t)
		f.driver.PresentResults = []vk.Result{vk.ErrorDeviceLost}
		assert.ErrorIs(t, f.ctx.RenderScene(), core.ErrPresentFailed)
	})

	t.Run("queue wait failure", func(t *testing.T) {
		f := newFixture(t)
		f.driver.Fail["QueueWaitIdle"] = true
		assert.ErrorIs(t, f.ctx.RenderScene(), core.ErrPresentFailed)
		assert.Zero(t, f.driver.Calls["QueuePresent"])
	})
}

func TestResizeRecreatesBeforeNextFrame(t *testing.T) {
	f := newFixture(t)
	f.show(f.quad(t, f.pipeline(t), math.NewMat4Identity()))
	f.driver.Support.Capabilities.CurrentExtent = vk.Extent2D{Width: 1024, Height: 768}

	f.ctx.Resized()
	assert.ErrorIs(t, f.ctx.RenderScene(), core.ErrSwapchainBooting)
	assert.Equal(t, vk.Extent2D{Width: 1024, Height: 768}, f.ctx.Extent())
	assert.Zero(t, f.driver.Calls["AcquireNextImage"])

	require.NoError(t, f.ctx.RenderScene())
	assert.Equal(t, uint64(1), f.ctx.Recreations())
	assert.Len(t, f.driver.Named("DrawIndexed"), 1)
	assert.Empty(t, f.driver.Errors)
}

func TestResizeWhileMinimised(t *testing.T) {
	f := newFixture(t)
	f.driver.Support.Capabilities.CurrentExtent = vk.Extent2D{}

	f.ctx.Resized()
	assert.ErrorIs(t, f.ctx.RenderScene(), core.ErrSwapchainBooting)
	assert.ErrorIs(t, f.ctx.RenderScene(), core.ErrSwapchainBooting, "retried until the window has an area")

	f.driver.Support.Capabilities.CurrentExtent = vk.Extent2D{Width: 640, Height: 480}
	assert.ErrorIs(t, f.ctx.RenderScene(), core.ErrSwapchainBooting)
	require.NoError(t, f.ctx.RenderScene())
	assert.Equal(t, uint64(1), f.ctx.Recreations())
}
