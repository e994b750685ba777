package testbed

import (
	stdmath "math"
	"time"

	"github.com/spaghettifunk/animate/engine"
	"github.com/spaghettifunk/animate/engine/core"
	"github.com/spaghettifunk/animate/engine/math"
	"github.com/spaghettifunk/animate/engine/renderer/objects"
)

// circlePoint is the position of point i, possibly fractional, of n spread
// evenly around the circle, starting at the top and running clockwise on
// screen.
func circlePoint(i float64, n int, centre math.Vec3, radius float32) math.Vec3 {
	angle := 2 * stdmath.Pi * i / float64(n)
	return math.NewVec3(
		centre.X+radius*float32(stdmath.Sin(angle)),
		centre.Y-radius*float32(stdmath.Cos(angle)),
		0,
	)
}

// moduloTarget is where the line leaving point i ends for multiplier k.
func moduloTarget(i int, k float64, n int) float64 {
	return stdmath.Mod(float64(i)*k, float64(n))
}

// hue maps t in [0, 1) onto a fully saturated colour.
func hue(t float32) math.Vec4 {
	h := float64(t) * 6
	x := float32(1 - stdmath.Abs(stdmath.Mod(h, 2)-1))
	switch int(h) % 6 {
	case 0:
		return math.NewVec4(1, x, 0, 1)
	case 1:
		return math.NewVec4(x, 1, 0, 1)
	case 2:
		return math.NewVec4(0, 1, x, 1)
	case 3:
		return math.NewVec4(0, x, 1, 1)
	case 4:
		return math.NewVec4(x, 0, 1, 1)
	default:
		return math.NewVec4(1, 0, x, 1)
	}
}

// Modulo draws the times table of its multiplier on a circle: point i is
// joined to point i*k mod n while k slowly grows.
type Modulo struct {
	cfg        engine.ModuloConfig
	lines      []*objects.Line
	multiplier float64
	centre     math.Vec3
	radius     float32
}

func NewModulo(cfg engine.ModuloConfig) *Modulo {
	return &Modulo{cfg: cfg, multiplier: 2}
}

func (m *Modulo) Initialize(s *engine.Services) error {
	m.layout(s.Camera.Width, s.Camera.Height)
	for i := 0; i < m.cfg.Points; i++ {
		from, to := m.endpoints(i)
		line, err := objects.NewLineBetween(s.Context, s.Pipeline, from, to, hue(float32(i)/float32(m.cfg.Points)), m.cfg.Thickness)
		if err != nil {
			m.Shutdown()
			return err
		}
		m.lines = append(m.lines, line)
	}
	s.Pipeline.CommitScene()
	core.LogInfo("modulo: %d points", m.cfg.Points)
	return nil
}

func (m *Modulo) layout(width, height float32) {
	m.centre = math.NewVec3(width/2, height/2, 0)
	m.radius = 0.45 * min(width, height)
}

func (m *Modulo) endpoints(i int) (from, to math.Vec3) {
	n := m.cfg.Points
	from = circlePoint(float64(i), n, m.centre, m.radius)
	to = circlePoint(moduloTarget(i, m.multiplier, n), n, m.centre, m.radius)
	return from, to
}

func (m *Modulo) respan() {
	for i, line := range m.lines {
		line.Span(m.endpoints(i))
	}
}

func (m *Modulo) Multiplier() float64 {
	return m.multiplier
}

func (m *Modulo) Update(delta time.Duration) error {
	m.multiplier += float64(m.cfg.Speed) * delta.Seconds()
	m.respan()
	return nil
}

func (m *Modulo) OnResize(width, height uint32) error {
	m.layout(float32(width), float32(height))
	m.respan()
	return nil
}

func (m *Modulo) OnKey(key int, pressed bool) {}

func (m *Modulo) Shutdown() error {
	for _, line := range m.lines {
		line.Destroy()
	}
	m.lines = nil
	return nil
}
