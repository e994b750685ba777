package components

import "github.com/spaghettifunk/animate/engine/math"

// Rotatable holds euler angles in radians.
type Rotatable struct {
	rotation math.Vec3
}

func NewRotatable(rotation math.Vec3) Rotatable {
	return Rotatable{rotation: rotation}
}

func (r *Rotatable) Rotation() math.Vec3 {
	return r.rotation
}

func (r *Rotatable) SetRotation(rotation math.Vec3) {
	r.rotation = rotation
}

func (r *Rotatable) Rotate(delta math.Vec3) {
	r.rotation = r.rotation.Add(delta)
}

func (r *Rotatable) Matrix() math.Mat4 {
	return math.NewMat4EulerXYZ(r.rotation.X, r.rotation.Y, r.rotation.Z)
}
