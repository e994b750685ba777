package objects

import (
	stdmath "math"

	"github.com/spaghettifunk/animate/engine/math"
	"github.com/spaghettifunk/animate/engine/renderer/components"
	"github.com/spaghettifunk/animate/engine/renderer/vulkan"
)

// Line is a strip of the given thickness running from its position along
// the model space y axis for one unit. Scale stretches it, rotation points it.
type Line struct {
	mesh
	components.Movable
	components.Scalable
	components.Rotatable
	components.Coloured

	thickness float32
}

// NewLine uploads the line's geometry and registers it on pipeline.
// Thickness is clamped to [0, 1].
func NewLine(ctx *vulkan.Context, pipeline *vulkan.Pipeline, position, scale, rotation math.Vec3, colour math.Vec4, thickness float32) (*Line, error) {
	l := &Line{
		mesh:      mesh{ctx: ctx, pipeline: pipeline},
		Movable:   components.NewMovable(position),
		Scalable:  components.NewScalable(scale),
		Rotatable: components.NewRotatable(rotation),
		Coloured:  components.NewColoured(colour),
		thickness: math.Clamp(thickness, 0, 1),
	}
	if err := l.upload(l.geometry(), quadIndices); err != nil {
		return nil, err
	}
	l.register(l)
	return l, nil
}

// NewLineBetween builds a line starting at from and ending at to.
func NewLineBetween(ctx *vulkan.Context, pipeline *vulkan.Pipeline, from, to math.Vec3, colour math.Vec4, thickness float32) (*Line, error) {
	l, err := NewLine(ctx, pipeline, from, math.NewVec3One(), math.NewVec3Zero(), colour, thickness)
	if err != nil {
		return nil, err
	}
	l.Span(from, to)
	return l, nil
}

func (l *Line) geometry() []math.Vertex {
	half := l.thickness / 2
	colour := l.Colour()
	return []math.Vertex{
		{Position: math.NewVec3(-half, 0, 0), Colour: colour},
		{Position: math.NewVec3(half, 1, 0), Colour: colour},
		{Position: math.NewVec3(-half, 1, 0), Colour: colour},
		{Position: math.NewVec3(half, 0, 0), Colour: colour},
	}
}

func (l *Line) Thickness() float32 {
	return l.thickness
}

// SetColour recolours every vertex of the line.
func (l *Line) SetColour(colour math.Vec4) error {
	l.Coloured.SetColour(colour)
	return l.rewrite(l.geometry())
}

// Span places, stretches and rotates the line so it runs from one point to
// the other in the xy plane.
func (l *Line) Span(from, to math.Vec3) {
	d := to.Sub(from)
	length := d.XY().Length()
	l.SetPosition(from)
	l.SetScale(math.NewVec3(1, length, 1))
	l.SetRotation(math.NewVec3(0, 0, float32(stdmath.Atan2(float64(-d.X), float64(d.Y)))))
}

func (l *Line) ModelMatrix() math.Mat4 {
	return components.ModelMatrix(&l.Movable, &l.Scalable, &l.Rotatable)
}
