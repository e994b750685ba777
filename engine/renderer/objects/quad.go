package objects

import (
	"github.com/spaghettifunk/animate/engine/math"
	"github.com/spaghettifunk/animate/engine/renderer/components"
	"github.com/spaghettifunk/animate/engine/renderer/vulkan"
)

// Quad is a unit square spanning (0,0) to (1,1) in model space, placed by
// its position and scaled to its size. It samples a rectangular region of a
// texture, the whole texture by default.
type Quad struct {
	mesh
	components.Movable
	components.Scalable

	textureOrigin math.Vec2
	textureSize   math.Vec2
	colour        math.Vec4
}

// NewQuad uploads the quad's geometry and registers it on pipeline.
func NewQuad(ctx *vulkan.Context, pipeline *vulkan.Pipeline, position, size math.Vec3) (*Quad, error) {
	q := &Quad{
		mesh:          mesh{ctx: ctx, pipeline: pipeline},
		Movable:       components.NewMovable(position),
		Scalable:      components.NewScalable(size),
		textureOrigin: math.NewVec2(0, 0),
		textureSize:   math.NewVec2(1, 1),
		colour:        math.NewVec4(1, 1, 1, 1),
	}
	if err := q.upload(q.geometry(), quadIndices); err != nil {
		return nil, err
	}
	q.register(q)
	return q, nil
}

func (q *Quad) geometry() []math.Vertex {
	minU, minV := q.textureOrigin.X, q.textureOrigin.Y
	maxU, maxV := minU+q.textureSize.X, minV+q.textureSize.Y
	return []math.Vertex{
		{Position: math.NewVec3(0, 0, 0), Colour: q.colour, Texcoord: math.NewVec2(minU, minV)},
		{Position: math.NewVec3(1, 1, 0), Colour: q.colour, Texcoord: math.NewVec2(maxU, maxV)},
		{Position: math.NewVec3(0, 1, 0), Colour: q.colour, Texcoord: math.NewVec2(minU, maxV)},
		{Position: math.NewVec3(1, 0, 0), Colour: q.colour, Texcoord: math.NewVec2(maxU, minV)},
	}
}

// SetTextureRegion selects the part of the texture drawn on the quad, in
// normalised texture coordinates.
func (q *Quad) SetTextureRegion(origin, size math.Vec2) error {
	q.textureOrigin = origin
	q.textureSize = size
	return q.rewrite(q.geometry())
}

func (q *Quad) TextureRegion() (origin, size math.Vec2) {
	return q.textureOrigin, q.textureSize
}

// SetTint multiplies the sampled colour by colour.
func (q *Quad) SetTint(colour math.Vec4) error {
	q.colour = colour
	return q.rewrite(q.geometry())
}

func (q *Quad) ModelMatrix() math.Mat4 {
	return components.ModelMatrix(&q.Movable, &q.Scalable, nil)
}
