package objects_test

import (
	"encoding/binary"
	stdmath "math"
	"testing"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/animate/engine/math"
	"github.com/spaghettifunk/animate/engine/renderer/objects"
	"github.com/spaghettifunk/animate/engine/renderer/vulkan"
	"github.com/spaghettifunk/animate/engine/renderer/vulkan/vulkantest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type window struct{}

func (window) RequiredInstanceExtensions() []string { return nil }

func (window) CreateSurface(vk.Instance) (vk.Surface, error) { return vk.NullSurface, nil }

func (window) FramebufferSize() (int, int) { return 800, 600 }

type shaders struct{}

func (shaders) LoadShader(string) ([]uint32, error) { return []uint32{0x07230203}, nil }

func setup(t *testing.T) (*vulkantest.Driver, *vulkan.Context, *vulkan.Pipeline) {
	t.Helper()
	driver := vulkantest.New()
	ctx, err := vulkan.NewContext(driver, window{}, shaders{}, vulkan.Options{})
	require.NoError(t, err)
	p, err := ctx.CreatePipeline("default.frag", "default.vert")
	require.NoError(t, err)
	return driver, ctx, p
}

// vertexAt decodes the position and texture coordinate of vertex i.
func vertexAt(data []byte, i int) (position math.Vec3, texcoord math.Vec2) {
	f := func(offset int) float32 {
		return stdmath.Float32frombits(binary.NativeEndian.Uint32(data[i*math.VertexStride+offset:]))
	}
	return math.NewVec3(f(0), f(4), f(8)), math.NewVec2(f(28), f(32))
}

func TestNewQuad(t *testing.T) {
	driver, ctx, p := setup(t)

	q, err := objects.NewQuad(ctx, p, math.NewVec3(10, 20, 0), math.NewVec3(32, 32, 1))
	require.NoError(t, err)

	buffers := q.Buffers()
	require.Len(t, buffers, 2)
	assert.True(t, buffers[0].IsVertex())
	assert.Equal(t, vk.DeviceSize(4*math.VertexStride), buffers[0].Size())
	assert.True(t, buffers[1].IsIndex())
	assert.Equal(t, vk.DeviceSize(12), buffers[1].Size())
	assert.Equal(t, []byte{0, 0, 1, 0, 2, 0, 0, 0, 3, 0, 1, 0}, driver.Contents(buffers[1].Memory))

	d, ok := ctx.Drawable(q.Handle())
	require.True(t, ok)
	assert.Same(t, q, d)
	assert.Equal(t, []vulkan.DrawableHandle{q.Handle()}, p.Drawables())
	assert.Zero(t, ctx.SceneLen(), "visible after the pipeline commits")

	corner := q.ModelMatrix().TransformPoint(math.NewVec3(1, 1, 0))
	assert.Equal(t, math.NewVec3(42, 52, 0), corner)

	p.CommitScene()
	require.NoError(t, ctx.RenderScene())
	draws := driver.Named("DrawIndexed")
	require.Len(t, draws, 1)
	assert.Equal(t, uint32(6), draws[0].IndexCount)
}

func TestQuadTextureRegion(t *testing.T) {
	driver, ctx, p := setup(t)
	q, err := objects.NewQuad(ctx, p, math.NewVec3Zero(), math.NewVec3One())
	require.NoError(t, err)

	require.NoError(t, q.SetTextureRegion(math.NewVec2(0.25, 0.5), math.NewVec2(0.25, 0.25)))
	origin, size := q.TextureRegion()
	assert.Equal(t, math.NewVec2(0.25, 0.5), origin)
	assert.Equal(t, math.NewVec2(0.25, 0.25), size)

	data := driver.Contents(q.Buffers()[0].Memory)
	pos, uv := vertexAt(data, 0)
	assert.Equal(t, math.NewVec3(0, 0, 0), pos)
	assert.Equal(t, math.NewVec2(0.25, 0.5), uv)
	pos, uv = vertexAt(data, 1)
	assert.Equal(t, math.NewVec3(1, 1, 0), pos)
	assert.Equal(t, math.NewVec2(0.5, 0.75), uv)
}

func TestQuadDestroy(t *testing.T) {
	driver, ctx, p := setup(t)
	q, err := objects.NewQuad(ctx, p, math.NewVec3Zero(), math.NewVec3One())
	require.NoError(t, err)
	p.CommitScene()

	q.Destroy()
	q.Destroy()
	_, ok := ctx.Drawable(q.Handle())
	assert.False(t, ok)
	assert.Zero(t, driver.Live("Buffer"))
	assert.Empty(t, driver.Errors)
	assert.Error(t, q.SetTint(math.NewVec4(1, 0, 0, 1)))

	require.NoError(t, ctx.RenderScene())
	assert.Equal(t, 1, ctx.LastFrame().Evicted)
}

func TestNewQuadBufferFailure(t *testing.T) {
	driver, ctx, p := setup(t)
	driver.Memory = driver.Memory[:1]

	_, err := objects.NewQuad(ctx, p, math.NewVec3Zero(), math.NewVec3One())
	require.Error(t, err)
	assert.Zero(t, driver.Live("Buffer"))
	assert.Empty(t, p.Drawables())
}

func TestLineThicknessIsClamped(t *testing.T) {
	_, ctx, p := setup(t)
	colour := math.NewVec4(1, 1, 1, 1)

	thick, err := objects.NewLine(ctx, p, math.NewVec3Zero(), math.NewVec3One(), math.NewVec3Zero(), colour, 3)
	require.NoError(t, err)
	assert.Equal(t, float32(1), thick.Thickness())

	thin, err := objects.NewLine(ctx, p, math.NewVec3Zero(), math.NewVec3One(), math.NewVec3Zero(), colour, -1)
	require.NoError(t, err)
	assert.Zero(t, thin.Thickness())
}

func TestLineBetween(t *testing.T) {
	driver, ctx, p := setup(t)
	from := math.NewVec3(1, 1, 0)
	to := math.NewVec3(4, 5, 0)

	l, err := objects.NewLineBetween(ctx, p, from, to, math.NewVec4(0, 1, 0, 1), 0.1)
	require.NoError(t, err)

	model := l.ModelMatrix()
	assert.True(t, from.Compare(model.TransformPoint(math.NewVec3Zero()), 1e-5))
	assert.True(t, to.Compare(model.TransformPoint(math.NewVec3(0, 1, 0)), 1e-5))
	assert.Equal(t, float32(5), l.Scale().Y)

	data := driver.Contents(l.Buffers()[0].Memory)
	pos, _ := vertexAt(data, 0)
	assert.InDelta(t, -0.05, pos.X, 1e-6)
}

func TestLineSetColour(t *testing.T) {
	driver, ctx, p := setup(t)
	l, err := objects.NewLine(ctx, p, math.NewVec3Zero(), math.NewVec3One(), math.NewVec3Zero(), math.NewVec4(1, 1, 1, 1), 0.5)
	require.NoError(t, err)

	require.NoError(t, l.SetColour(math.NewVec4(1, 0, 0, 1)))
	assert.Equal(t, math.NewVec4(1, 0, 0, 1), l.Colour())

	data := driver.Contents(l.Buffers()[0].Memory)
	for i := range 4 {
		green := stdmath.Float32frombits(binary.NativeEndian.Uint32(data[i*math.VertexStride+16:]))
		assert.Zero(t, green)
	}
}
