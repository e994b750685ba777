package vulkan

import (
	"slices"

	"github.com/spaghettifunk/animate/engine/containers"
	"github.com/spaghettifunk/animate/engine/math"
)

// Drawable is anything that can be placed in the scene.
type Drawable interface {
	// Buffers returns the vertex buffer and, for indexed geometry, the index buffer.
	Buffers() []*Buffer
	ModelMatrix() math.Mat4
	Pipeline() *Pipeline
}

// DrawableHandle refers to a drawable registered with Spawn. A handle whose
// drawable was despawned stops resolving and is dropped from the scene on the
// next frame.
type DrawableHandle = containers.Handle

// Spawn registers d and returns the handle used to place it in the scene.
func (c *Context) Spawn(d Drawable) DrawableHandle {
	return c.drawables.Insert(d)
}

// Despawn unregisters the drawable behind h. The context does not release
// its buffers, those belong to the caller.
func (c *Context) Despawn(h DrawableHandle) bool {
	return c.drawables.Remove(h)
}

func (c *Context) Drawable(h DrawableHandle) (Drawable, bool) {
	return c.drawables.Get(h)
}

// DrawablesUsing returns the spawned drawables rendered through p.
func (c *Context) DrawablesUsing(p *Pipeline) []DrawableHandle {
	var out []DrawableHandle
	c.drawables.Each(func(h DrawableHandle, d Drawable) {
		if d.Pipeline() == p {
			out = append(out, h)
		}
	})
	return out
}

// AddToScene inserts h into the scene registry. The registry is a multiset
// ordered by handle; adding a handle twice draws it twice.
func (c *Context) AddToScene(h DrawableHandle) {
	i, _ := slices.BinarySearchFunc(c.scene, h, DrawableHandle.Compare)
	c.scene = slices.Insert(c.scene, i, h)
}

// FlushScene empties the scene registry. Registered drawables stay spawned.
func (c *Context) FlushScene() {
	c.scene = c.scene[:0]
}

func (c *Context) SceneLen() int {
	return len(c.scene)
}

// Scene returns a copy of the registry in draw order.
func (c *Context) Scene() []DrawableHandle {
	return append([]DrawableHandle{}, c.scene...)
}

// liveHandles filters handles in place, keeping the ones that still resolve.
func (c *Context) liveHandles(handles []DrawableHandle) []DrawableHandle {
	live := handles[:0]
	for _, h := range handles {
		if c.drawables.Contains(h) {
			live = append(live, h)
		}
	}
	return live
}
