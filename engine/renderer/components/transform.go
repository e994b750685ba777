package components

import "github.com/spaghettifunk/animate/engine/math"

// ModelMatrix composes whichever capabilities an entity carries as
// scale, then rotation, then translation. Nil capabilities are skipped.
func ModelMatrix(m *Movable, s *Scalable, r *Rotatable) math.Mat4 {
	out := math.NewMat4Identity()
	if s != nil {
		out = out.Mul(s.Matrix())
	}
	if r != nil {
		out = out.Mul(r.Matrix())
	}
	if m != nil {
		out = out.Mul(m.Matrix())
	}
	return out
}
