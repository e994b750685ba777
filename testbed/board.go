package testbed

import (
	"fmt"

	"golang.org/x/exp/rand"
)

const emptyCell = -1

// Board is a sliding puzzle of grid*grid cells. Tile ids match the cell
// they belong to when solved; the last cell starts empty.
type Board struct {
	grid  int
	cells []int
	empty int
}

func NewBoard(grid int) *Board {
	b := &Board{grid: grid, cells: make([]int, grid*grid)}
	for i := range b.cells {
		b.cells[i] = i
	}
	b.empty = len(b.cells) - 1
	b.cells[b.empty] = emptyCell
	return b
}

func (b *Board) Grid() int  { return b.grid }
func (b *Board) Empty() int { return b.empty }

// Tiles is the number of tiles on the board.
func (b *Board) Tiles() int { return len(b.cells) - 1 }

// Tile returns the tile in cell, or -1 for the empty cell.
func (b *Board) Tile(cell int) int { return b.cells[cell] }

func (b *Board) Coords(cell int) (x, y int) {
	return cell % b.grid, cell / b.grid
}

func (b *Board) Cell(x, y int) (int, bool) {
	if x < 0 || y < 0 || x >= b.grid || y >= b.grid {
		return 0, false
	}
	return y*b.grid + x, true
}

func (b *Board) Neighbours(cell int) []int {
	x, y := b.Coords(cell)
	var out []int
	for _, d := range [][2]int{{0, -1}, {1, 0}, {0, 1}, {-1, 0}} {
		if n, ok := b.Cell(x+d[0], y+d[1]); ok {
			out = append(out, n)
		}
	}
	return out
}

func (b *Board) adjacentToEmpty(cell int) bool {
	for _, n := range b.Neighbours(b.empty) {
		if n == cell {
			return true
		}
	}
	return false
}

// Slide moves the tile in cell into the empty cell. It returns the tile id
// and the cell it moved to.
func (b *Board) Slide(cell int) (tile, to int, err error) {
	if cell < 0 || cell >= len(b.cells) {
		return 0, 0, fmt.Errorf("cell %d is off the board", cell)
	}
	if !b.adjacentToEmpty(cell) {
		return 0, 0, fmt.Errorf("cell %d is not next to the empty cell %d", cell, b.empty)
	}
	tile, to = b.cells[cell], b.empty
	b.cells[to] = tile
	b.cells[cell] = emptyCell
	b.empty = cell
	return tile, to, nil
}

func (b *Board) Solved() bool {
	for i, t := range b.cells[:len(b.cells)-1] {
		if t != i {
			return false
		}
	}
	return true
}

// ShuffleMoves plans n random slides starting from the current layout,
// never undoing the previous one. The board itself is left untouched.
func (b *Board) ShuffleMoves(n int, rng *rand.Rand) []int {
	sim := &Board{grid: b.grid, cells: append([]int{}, b.cells...), empty: b.empty}
	moves := make([]int, 0, n)
	previous := -1
	for len(moves) < n {
		options := sim.Neighbours(sim.empty)
		candidates := options[:0:0]
		for _, c := range options {
			if c != previous {
				candidates = append(candidates, c)
			}
		}
		cell := candidates[rng.Intn(len(candidates))]
		previous = sim.empty
		if _, _, err := sim.Slide(cell); err != nil {
			break
		}
		moves = append(moves, cell)
	}
	return moves
}
