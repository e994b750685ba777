package testbed

import (
	"image"
	"time"

	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/spaghettifunk/animate/engine"
	"github.com/spaghettifunk/animate/engine/core"
	"github.com/spaghettifunk/animate/engine/math"
	"github.com/spaghettifunk/animate/engine/renderer/objects"
	"github.com/spaghettifunk/animate/engine/renderer/vulkan"
	"golang.org/x/exp/rand"
)

// gap between neighbouring tiles, as a fraction of a cell
const tileGap = 0.04

// averageColour is the mean colour of the region of img selected by the
// normalised origin and size.
func averageColour(img image.Image, origin, size math.Vec2) math.Vec4 {
	b := img.Bounds()
	x0 := b.Min.X + int(origin.X*float32(b.Dx()))
	y0 := b.Min.Y + int(origin.Y*float32(b.Dy()))
	x1 := b.Min.X + int((origin.X+size.X)*float32(b.Dx()))
	y1 := b.Min.Y + int((origin.Y+size.Y)*float32(b.Dy()))

	var r, g, bl, a, n uint64
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			cr, cg, cb, ca := img.At(x, y).RGBA()
			r, g, bl, a = r+uint64(cr), g+uint64(cg), bl+uint64(cb), a+uint64(ca)
			n++
		}
	}
	if n == 0 {
		return math.NewVec4(1, 1, 1, 1)
	}
	scale := float32(n) * 0xffff
	return math.NewVec4(float32(r)/scale, float32(g)/scale, float32(bl)/scale, float32(a)/scale)
}

type catTile struct {
	*Tile
	quad *objects.Quad
}

// Cat is a sliding tile puzzle cut from a picture. It shuffles itself on
// start; the arrow keys slide tiles into the gap and space shuffles again.
type Cat struct {
	cfg     engine.CatConfig
	board   *Board
	tiles   []catTile
	rng     *rand.Rand
	pending []int
	texture *vulkan.Texture
	ctx     *vulkan.Context

	origin math.Vec3
	cell   float32
}

func NewCat(cfg engine.CatConfig) *Cat {
	seed := cfg.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return &Cat{
		cfg:   cfg,
		board: NewBoard(cfg.Grid),
		rng:   rand.New(rand.NewSource(seed)),
	}
}

func (c *Cat) Initialize(s *engine.Services) error {
	c.ctx = s.Context
	c.layout(s.Camera.Width, s.Camera.Height)

	var picture image.Image
	if s.Assets != nil && c.cfg.Texture != "" {
		img, err := s.Assets.LoadTexture(c.cfg.Texture)
		if err != nil {
			core.LogWarn("cat: no picture, tiles are plain colours: %s", err)
		} else if c.texture, err = s.Context.CreateTexture(c.cfg.Texture, img); err != nil {
			return err
		} else {
			picture = img
		}
	}

	grid := float32(c.board.Grid())
	for id := 0; id < c.board.Tiles(); id++ {
		x, y := c.board.Coords(id)
		tile := NewTile(id, x, y)
		quad, err := objects.NewQuad(s.Context, s.Pipeline, c.screenPosition(tile.Position()), c.tileSize())
		if err != nil {
			c.Shutdown()
			return err
		}
		origin := math.NewVec2(float32(x)/grid, float32(y)/grid)
		size := math.NewVec2(1/grid, 1/grid)
		tint := hue(float32(id) / float32(c.board.Tiles()))
		if picture != nil {
			tint = averageColour(picture, origin, size)
		}
		if err := quad.SetTextureRegion(origin, size); err != nil {
			return err
		}
		if err := quad.SetTint(tint); err != nil {
			return err
		}
		c.tiles = append(c.tiles, catTile{Tile: tile, quad: quad})
	}
	s.Pipeline.CommitScene()

	c.Shuffle()
	core.LogInfo("cat: %dx%d board, %d shuffle moves queued", c.cfg.Grid, c.cfg.Grid, len(c.pending))
	return nil
}

func (c *Cat) layout(width, height float32) {
	grid := float32(c.board.Grid())
	c.cell = 0.9 * min(width, height) / grid
	c.origin = math.NewVec3((width-c.cell*grid)/2, (height-c.cell*grid)/2, 0)
}

func (c *Cat) tileSize() math.Vec3 {
	side := c.cell * (1 - tileGap)
	return math.NewVec3(side, side, 1)
}

// screenPosition maps board coordinates to the top left corner of a tile.
func (c *Cat) screenPosition(board math.Vec3) math.Vec3 {
	inset := c.cell * tileGap / 2
	return c.origin.Add(math.NewVec3(board.X*c.cell+inset, board.Y*c.cell+inset, 0))
}

// Shuffle queues random slides behind any that are still pending.
func (c *Cat) Shuffle() {
	sim := &Board{grid: c.board.grid, cells: append([]int{}, c.board.cells...), empty: c.board.empty}
	for _, cell := range c.pending {
		_, _, _ = sim.Slide(cell)
	}
	c.pending = append(c.pending, sim.ShuffleMoves(c.cfg.ShuffleMoves, c.rng)...)
}

// Queue asks for the tile in cell to slide into the gap once the board is still.
func (c *Cat) Queue(cell int) {
	c.pending = append(c.pending, cell)
}

func (c *Cat) moving() bool {
	for _, t := range c.tiles {
		if t.Moving() {
			return true
		}
	}
	return false
}

func (c *Cat) slide(cell int) error {
	tile, to, err := c.board.Slide(cell)
	if err != nil {
		return err
	}
	x, y := c.board.Coords(to)
	return c.tiles[tile].SetBoardPosition(x, y)
}

func (c *Cat) Update(delta time.Duration) error {
	if !c.moving() && len(c.pending) > 0 {
		cell := c.pending[0]
		c.pending = c.pending[1:]
		if err := c.slide(cell); err != nil {
			core.LogDebug("cat: ignored move: %s", err)
		} else if len(c.pending) == 0 && c.board.Solved() {
			core.LogInfo("cat: solved")
		}
	}
	for _, t := range c.tiles {
		t.Tick(delta)
		t.quad.SetPosition(c.screenPosition(t.Position()))
	}
	return nil
}

func (c *Cat) OnResize(width, height uint32) error {
	c.layout(float32(width), float32(height))
	for _, t := range c.tiles {
		t.quad.SetScale(c.tileSize())
		t.quad.SetPosition(c.screenPosition(t.Position()))
	}
	return nil
}

// OnKey slides the tile on the given side of the gap toward it.
func (c *Cat) OnKey(key int, pressed bool) {
	if !pressed {
		return
	}
	ex, ey := c.board.Coords(c.board.Empty())
	var dx, dy int
	switch glfw.Key(key) {
	case glfw.KeyUp:
		dy = 1
	case glfw.KeyDown:
		dy = -1
	case glfw.KeyLeft:
		dx = 1
	case glfw.KeyRight:
		dx = -1
	case glfw.KeySpace:
		c.Shuffle()
		return
	default:
		return
	}
	if cell, ok := c.board.Cell(ex+dx, ey+dy); ok {
		c.Queue(cell)
	}
}

func (c *Cat) Shutdown() error {
	for _, t := range c.tiles {
		t.quad.Destroy()
	}
	c.tiles = nil
	if c.texture != nil {
		c.ctx.DestroyTexture(c.texture)
		c.texture = nil
	}
	return nil
}
