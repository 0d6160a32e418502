// Package spatial provides the uniform grid used for broad-phase collision
// culling.
//
// The grid stores body indices, not bodies. It is derived state: the engine
// clears and refills it every tick from its authoritative body slice.
package spatial

import (
	"iter"
	"math"
)

// Coord addresses one grid cell.
type Coord struct {
	X, Y int
}

// backNeighbors are the cells already visited when scanning in row-major
// order: west, north, northwest, northeast.
var backNeighbors = [4]Coord{
	{-1, 0},
	{0, -1},
	{-1, -1},
	{1, -1},
}

// Grid buckets body indices by cell. Cells are stored row-major
// (cells[y*cols+x]).
type Grid struct {
	cellSize   float64
	cols, rows int
	cells      [][]int
}

// NewGrid creates a grid of ceil(width/cellSize) x ceil(height/cellSize)
// cells, at least 1x1.
func NewGrid(width, height, cellSize float64) *Grid {
	cols := int(math.Ceil(width / cellSize))
	rows := int(math.Ceil(height / cellSize))
	if cols < 1 {
		cols = 1
	}
	if rows < 1 {
		rows = 1
	}

	cells := make([][]int, cols*rows)
	for i := range cells {
		cells[i] = make([]int, 0, 4)
	}

	return &Grid{
		cellSize: cellSize,
		cols:     cols,
		rows:     rows,
		cells:    cells,
	}
}

// Dims returns the grid size in cells.
func (g *Grid) Dims() (cols, rows int) { return g.cols, g.rows }

// CellSize returns the edge length of one cell.
func (g *Grid) CellSize() float64 { return g.cellSize }

// Clear empties every cell, keeping capacity. O(cells).
func (g *Grid) Clear() {
	for i := range g.cells {
		g.cells[i] = g.cells[i][:0]
	}
}

// Insert appends index to the cell containing (x, y).
func (g *Grid) Insert(index int, x, y float64) {
	c := g.CellOf(x, y)
	i := c.Y*g.cols + c.X
	g.cells[i] = append(g.cells[i], index)
}

// CellOf maps a position to floor(x/cellSize), floor(y/cellSize) clamped to
// the grid. Bodies sitting on or beyond an edge land in the border cell;
// NaN coordinates land in column/row 0.
func (g *Grid) CellOf(x, y float64) Coord {
	return Coord{
		X: clampIndex(x/g.cellSize, g.cols),
		Y: clampIndex(y/g.cellSize, g.rows),
	}
}

// Cell returns the indices stored in cell c. The slice is reused after the
// next Clear; callers must not retain it.
func (g *Grid) Cell(c Coord) []int {
	if !g.contains(c) {
		return nil
	}
	return g.cells[c.Y*g.cols+c.X]
}

// Len returns the number of indices stored across all cells.
func (g *Grid) Len() int {
	n := 0
	for _, cell := range g.cells {
		n += len(cell)
	}
	return n
}

// NeighborCells yields c itself followed by those of its west, north,
// northwest and northeast neighbours that exist. Scanning every cell in
// row-major order and pairing c with each yielded neighbour visits every
// adjacent cell pair exactly once.
func (g *Grid) NeighborCells(c Coord) iter.Seq[Coord] {
	return func(yield func(Coord) bool) {
		if !g.contains(c) {
			return
		}
		if !yield(c) {
			return
		}
		for _, d := range backNeighbors {
			n := Coord{c.X + d.X, c.Y + d.Y}
			if !g.contains(n) {
				continue
			}
			if !yield(n) {
				return
			}
		}
	}
}

// CandidatePairs yields every unordered pair of indices that share a cell or
// sit in adjacent cells. Each pair is produced at most once per rebuild.
// Pairs within a cell come in insertion order (i before j).
func (g *Grid) CandidatePairs() iter.Seq2[int, int] {
	return func(yield func(int, int) bool) {
		for y := 0; y < g.rows; y++ {
			for x := 0; x < g.cols; x++ {
				c := Coord{x, y}
				cell := g.cells[y*g.cols+x]
				if len(cell) == 0 {
					continue
				}
				for n := range g.NeighborCells(c) {
					if n == c {
						for i := 0; i < len(cell); i++ {
							for j := i + 1; j < len(cell); j++ {
								if !yield(cell[i], cell[j]) {
									return
								}
							}
						}
						continue
					}
					for _, a := range cell {
						for _, b := range g.cells[n.Y*g.cols+n.X] {
							if !yield(a, b) {
								return
							}
						}
					}
				}
			}
		}
	}
}

func (g *Grid) contains(c Coord) bool {
	return c.X >= 0 && c.X < g.cols && c.Y >= 0 && c.Y < g.rows
}

func clampIndex(v float64, n int) int {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v >= float64(n) {
		return n - 1
	}
	return int(v)
}
