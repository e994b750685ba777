package components

import "github.com/spaghettifunk/animate/engine/math"

// Movable gives an entity a position.
type Movable struct {
	position math.Vec3
}

func NewMovable(position math.Vec3) Movable {
	return Movable{position: position}
}

func (m *Movable) Position() math.Vec3 {
	return m.position
}

func (m *Movable) SetPosition(position math.Vec3) {
	m.position = position
}

// Move translates by delta.
func (m *Movable) Move(delta math.Vec3) {
	m.position = m.position.Add(delta)
}

func (m *Movable) Matrix() math.Mat4 {
	return math.NewMat4Translation(m.position)
}
