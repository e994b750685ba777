package components

import "github.com/spaghettifunk/animate/engine/math"

// Coloured holds an RGBA colour in [0, 1].
type Coloured struct {
	colour math.Vec4
}

func NewColoured(colour math.Vec4) Coloured {
	return Coloured{colour: colour}
}

func (c *Coloured) Colour() math.Vec4 {
	return c.colour
}

func (c *Coloured) SetColour(colour math.Vec4) {
	c.colour = colour
}
