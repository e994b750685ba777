// Package objects holds the drawables the animations are built from. Each
// one owns a vertex and an index buffer in the Context's pool and composes
// the capabilities from the components package.
package objects

import (
	"fmt"
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/animate/engine/core"
	"github.com/spaghettifunk/animate/engine/math"
	"github.com/spaghettifunk/animate/engine/renderer/vulkan"
)

// quadIndices draws a four vertex rectangle as two triangles.
var quadIndices = []uint16{0, 1, 2, 0, 3, 1}

func vertexBytes(vertices []math.Vertex) []byte {
	if len(vertices) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&vertices[0])), len(vertices)*math.VertexStride)
}

func indexBytes(indices []uint16) []byte {
	if len(indices) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&indices[0])), len(indices)*2)
}

// mesh is the buffer pair and registration shared by every object.
type mesh struct {
	ctx      *vulkan.Context
	pipeline *vulkan.Pipeline
	handle   vulkan.DrawableHandle
	vertices *vulkan.Buffer
	indices  *vulkan.Buffer
}

// upload creates host visible buffers sized for vertices and indices and
// fills them.
func (m *mesh) upload(vertices []math.Vertex, indices []uint16) error {
	var err error
	if m.vertices, err = m.ctx.CreateBuffer(vk.DeviceSize(len(vertices)*math.VertexStride), vulkan.BufferUsageVertex, vulkan.MemoryHostVisible); err != nil {
		return err
	}
	if m.indices, err = m.ctx.CreateBuffer(vk.DeviceSize(len(indices)*2), vulkan.BufferUsageIndex, vulkan.MemoryHostVisible); err != nil {
		m.release()
		return err
	}
	if err := m.ctx.UploadBuffer(m.vertices, vertexBytes(vertices)); err != nil {
		m.release()
		return err
	}
	if err := m.ctx.UploadBuffer(m.indices, indexBytes(indices)); err != nil {
		m.release()
		return err
	}
	return nil
}

// register spawns d and stages it on the pipeline. It becomes visible after
// the pipeline's next CommitScene.
func (m *mesh) register(d vulkan.Drawable) {
	m.handle = m.ctx.Spawn(d)
	m.pipeline.AddDrawable(m.handle)
}

func (m *mesh) release() {
	m.ctx.ReleaseBuffer(m.vertices)
	m.ctx.ReleaseBuffer(m.indices)
}

func (m *mesh) rewrite(vertices []math.Vertex) error {
	if m.vertices.Released() {
		return fmt.Errorf("object %s has been destroyed", m.handle)
	}
	return m.ctx.UploadBuffer(m.vertices, vertexBytes(vertices))
}

func (m *mesh) Handle() vulkan.DrawableHandle {
	return m.handle
}

func (m *mesh) Buffers() []*vulkan.Buffer {
	return []*vulkan.Buffer{m.vertices, m.indices}
}

func (m *mesh) Pipeline() *vulkan.Pipeline {
	return m.pipeline
}

// Destroy removes the object from the scene and releases its buffers.
// Calling it twice is harmless.
func (m *mesh) Destroy() {
	if m.ctx.Despawn(m.handle) {
		core.LogDebug("Object %s destroyed.", m.handle)
	}
	m.release()
}
