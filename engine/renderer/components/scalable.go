package components

import "github.com/spaghettifunk/animate/engine/math"

// Scalable gives an entity a per-axis scale.
type Scalable struct {
	scale math.Vec3
}

func NewScalable(scale math.Vec3) Scalable {
	return Scalable{scale: scale}
}

func (s *Scalable) Scale() math.Vec3 {
	return s.scale
}

func (s *Scalable) SetScale(scale math.Vec3) {
	s.scale = scale
}

func (s *Scalable) Matrix() math.Mat4 {
	return math.NewMat4Scale(s.scale)
}
