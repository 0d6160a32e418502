package spatial

import (
	"math"
	"math/rand"
	"testing"
)

func TestNewGrid_Dims(t *testing.T) {
	tests := []struct {
		name       string
		w, h, cell float64
		cols, rows int
	}{
		{"exact", 100, 50, 10, 10, 5},
		{"partial", 105, 51, 10, 11, 6},
		{"smaller than cell", 3, 3, 10, 1, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewGrid(tt.w, tt.h, tt.cell)
			cols, rows := g.Dims()
			if cols != tt.cols || rows != tt.rows {
				t.Errorf("Dims() = %dx%d, want %dx%d", cols, rows, tt.cols, tt.rows)
			}
		})
	}
}

func TestGrid_CellOfClamps(t *testing.T) {
	g := NewGrid(100, 100, 10)

	tests := []struct {
		name string
		x, y float64
		want Coord
	}{
		{"origin", 0, 0, Coord{0, 0}},
		{"interior", 25, 71, Coord{2, 7}},
		{"cell edge", 10, 20, Coord{1, 2}},
		{"right edge exactly", 100, 50, Coord{9, 5}},
		{"bottom edge exactly", 50, 100, Coord{5, 9}},
		{"beyond", 250, 1e9, Coord{9, 9}},
		{"negative", -0.5, -30, Coord{0, 0}},
		{"NaN", math.NaN(), math.NaN(), Coord{0, 0}},
		{"+Inf", math.Inf(1), math.Inf(-1), Coord{9, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := g.CellOf(tt.x, tt.y); got != tt.want {
				t.Errorf("CellOf(%v, %v) = %v, want %v", tt.x, tt.y, got, tt.want)
			}
		})
	}
}

func TestGrid_InsertAndClear(t *testing.T) {
	g := NewGrid(40, 40, 10)
	g.Insert(0, 5, 5)
	g.Insert(1, 15, 5)
	g.Insert(2, 6, 6)
	g.Insert(3, 40, 40)

	if got := g.Cell(Coord{0, 0}); len(got) != 2 || got[0] != 0 || got[1] != 2 {
		t.Errorf("cell (0,0) = %v, want [0 2]", got)
	}
	if got := g.Cell(Coord{1, 0}); len(got) != 1 || got[0] != 1 {
		t.Errorf("cell (1,0) = %v, want [1]", got)
	}
	if got := g.Cell(Coord{3, 3}); len(got) != 1 || got[0] != 3 {
		t.Errorf("cell (3,3) = %v, want [3]", got)
	}
	if g.Len() != 4 {
		t.Errorf("Len() = %d, want 4", g.Len())
	}
	if g.Cell(Coord{-1, 0}) != nil || g.Cell(Coord{4, 0}) != nil {
		t.Error("out-of-range cell should be nil")
	}

	g.Clear()
	if g.Len() != 0 {
		t.Errorf("Len() after Clear = %d, want 0", g.Len())
	}
}

func TestGrid_NeighborCells(t *testing.T) {
	g := NewGrid(30, 30, 10)

	collect := func(c Coord) []Coord {
		var out []Coord
		for n := range g.NeighborCells(c) {
			out = append(out, n)
		}
		return out
	}

	tests := []struct {
		name string
		c    Coord
		want []Coord
	}{
		{"top-left corner", Coord{0, 0}, []Coord{{0, 0}}},
		{"top row", Coord{1, 0}, []Coord{{1, 0}, {0, 0}}},
		{"left column", Coord{0, 1}, []Coord{{0, 1}, {0, 0}, {1, 0}}},
		{"center", Coord{1, 1}, []Coord{{1, 1}, {0, 1}, {1, 0}, {0, 0}, {2, 0}}},
		{"right column", Coord{2, 1}, []Coord{{2, 1}, {1, 1}, {2, 0}, {1, 0}}},
		{"outside", Coord{5, 5}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := collect(tt.c)
			if len(got) != len(tt.want) {
				t.Fatalf("NeighborCells(%v) = %v, want %v", tt.c, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("NeighborCells(%v)[%d] = %v, want %v", tt.c, i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestGrid_NeighborCellsStopsEarly(t *testing.T) {
	g := NewGrid(30, 30, 10)
	count := 0
	for range g.NeighborCells(Coord{1, 1}) {
		count++
		if count == 2 {
			break
		}
	}
	if count != 2 {
		t.Errorf("expected early stop after 2, got %d", count)
	}
}

// Every pair of points in the same or adjacent cells must be yielded exactly
// once, and no other pair may appear.
func TestGrid_CandidatePairsMatchesBruteForce(t *testing.T) {
	const n = 300
	rng := rand.New(rand.NewSource(7))
	g := NewGrid(200, 120, 10)

	pts := make([][2]float64, n)
	for i := range pts {
		pts[i] = [2]float64{rng.Float64() * 200, rng.Float64() * 120}
		g.Insert(i, pts[i][0], pts[i][1])
	}

	type pair struct{ a, b int }
	key := func(a, b int) pair {
		if a > b {
			a, b = b, a
		}
		return pair{a, b}
	}

	seen := make(map[pair]int)
	for a, b := range g.CandidatePairs() {
		if a == b {
			t.Fatalf("self pair %d", a)
		}
		seen[key(a, b)]++
	}

	expected := 0
	for i := 0; i < n; i++ {
		ci := g.CellOf(pts[i][0], pts[i][1])
		for j := i + 1; j < n; j++ {
			cj := g.CellOf(pts[j][0], pts[j][1])
			adjacent := absInt(ci.X-cj.X) <= 1 && absInt(ci.Y-cj.Y) <= 1
			got := seen[key(i, j)]
			if adjacent {
				expected++
				if got != 1 {
					t.Fatalf("pair (%d,%d) in cells %v/%v yielded %d times", i, j, ci, cj, got)
				}
			} else if got != 0 {
				t.Fatalf("non-adjacent pair (%d,%d) yielded", i, j)
			}
		}
	}
	if len(seen) != expected {
		t.Errorf("yielded %d distinct pairs, want %d", len(seen), expected)
	}
}

func TestGrid_CandidatePairsEmpty(t *testing.T) {
	g := NewGrid(50, 50, 10)
	for range g.CandidatePairs() {
		t.Fatal("empty grid yielded a pair")
	}
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
