package testbed

import (
	"fmt"
	"time"

	"github.com/spaghettifunk/animate/engine/math"
	"github.com/spaghettifunk/animate/engine/renderer/components"
)

const (
	// board cells travelled per microsecond
	tileSpeed = 1.0 / 500000.0
	// squared distance under which a tile snaps onto its cell
	tileSnap = 0.0001
)

// Tile tracks where a puzzle piece is drawn, in board cells, and the cell it
// is heading to.
type Tile struct {
	components.Movable

	id     int
	target math.Vec3
	moving bool
}

func NewTile(id int, x, y int) *Tile {
	p := math.NewVec3(float32(x), float32(y), 0)
	return &Tile{Movable: components.NewMovable(p), id: id, target: p}
}

func (t *Tile) ID() int                  { return t.id }
func (t *Tile) Moving() bool             { return t.moving }
func (t *Tile) BoardPosition() math.Vec3 { return t.target }

// SetBoardPosition sends the tile to a neighbouring cell.
func (t *Tile) SetBoardPosition(x, y int) error {
	p := math.NewVec3(float32(x), float32(y), 0)
	if d := t.target.Distance(p); d > 1 {
		return fmt.Errorf("tile %d cannot move %.2f cells at once", t.id, d)
	}
	t.target = p
	t.moving = true
	return nil
}

// Tick advances the tile toward its cell.
func (t *Tile) Tick(delta time.Duration) {
	if !t.moving {
		return
	}
	diff := t.target.Sub(t.Position())
	if diff.Dot(diff) <= tileSnap {
		t.SetPosition(t.target)
		t.moving = false
		return
	}
	step := float32(delta.Microseconds()) * tileSpeed
	if distance := diff.Length(); step >= distance {
		t.SetPosition(t.target)
		t.moving = false
		return
	}
	t.Move(diff.Normalized().MulScalar(step))
}
