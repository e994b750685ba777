package components

import (
	"github.com/spaghettifunk/animate/engine/math"
)

/**
 * @brief A 2D camera looking down the z axis. It produces the view and
 * projection matrices a Pipeline combines into its view-projection.
 * World units are mapped so that the visible area is Width x Height units
 * with the origin at the top-left corner, y growing downwards.
 */
type Camera struct {
	Position math.Vec3
	Width    float32
	Height   float32
	Near     float32
	Far      float32

	isDirty    bool
	viewMatrix math.Mat4
}

func NewCamera(width, height float32) *Camera {
	c := &Camera{
		Width:  width,
		Height: height,
		Near:   -10,
		Far:    10,
	}
	c.Reset()
	return c
}

func (c *Camera) Reset() {
	c.Position = math.NewVec3Zero()
	c.isDirty = true
}

func (c *Camera) SetPosition(position math.Vec3) {
	c.Position = position
	c.isDirty = true
}

// SetViewport changes the visible area, typically after a window resize.
func (c *Camera) SetViewport(width, height float32) {
	c.Width = width
	c.Height = height
}

func (c *Camera) View() math.Mat4 {
	if c.isDirty {
		c.viewMatrix = math.NewMat4Translation(c.Position.MulScalar(-1))
		c.isDirty = false
	}
	return c.viewMatrix
}

func (c *Camera) Projection() math.Mat4 {
	return math.NewMat4Orthographic(0, c.Width, 0, c.Height, c.Near, c.Far)
}
