package collision

import (
	"math"
	"math/rand"
	"testing"

	"github.com/landcbrown/ParticleSim/internal/dynamo"
)

func mustBody(t *testing.T, x, y, vx, vy, r, m float64) dynamo.Body {
	t.Helper()
	b, err := dynamo.NewBody(x, y, vx, vy, r, m)
	if err != nil {
		t.Fatalf("NewBody: %v", err)
	}
	return b
}

func TestOverlaps(t *testing.T) {
	tests := []struct {
		name   string
		bx, by float64
		want   bool
	}{
		{"apart", 3, 0, false},
		{"touching", 2, 0, false},
		{"just inside", 1.999999, 0, true},
		{"diagonal inside", 1, 1, true},
		{"coincident", 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := mustBody(t, 0, 0, 0, 0, 1, 1)
			b := mustBody(t, tt.bx, tt.by, 0, 0, 1, 1)
			if got := Overlaps(&a, &b); got != tt.want {
				t.Errorf("Overlaps() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestResolve_HeadOnEqualMassSwap(t *testing.T) {
	a := mustBody(t, 0, 0, 1, 0, 1, 1)
	b := mustBody(t, 1.5, 0, -1, 0, 1, 1)

	c := Resolve(&a, &b)

	if a.Vel.X != -1 || a.Vel.Y != 0 {
		t.Errorf("a velocity = %+v, want {-1 0}", a.Vel)
	}
	if b.Vel.X != 1 || b.Vel.Y != 0 {
		t.Errorf("b velocity = %+v, want {1 0}", b.Vel)
	}
	if d := b.Pos.Sub(a.Pos).Len(); d != 2.0 {
		t.Errorf("separation = %v, want exactly 2", d)
	}
	if c.Overlap != 0.5 || c.Degenerate {
		t.Errorf("unexpected contact %+v", c)
	}
}

func TestResolve_HeavierBodyMovesLess(t *testing.T) {
	a := mustBody(t, 0, 0, 0, 0, 1, 9)
	b := mustBody(t, 1, 0, 0, 0, 1, 1)

	Resolve(&a, &b)

	da := math.Abs(a.Pos.X)
	db := math.Abs(b.Pos.X - 1)
	if math.Abs(da-0.1) > 1e-12 || math.Abs(db-0.9) > 1e-12 {
		t.Errorf("displacements a=%v b=%v, want 0.1 and 0.9", da, db)
	}
}

func TestResolve_TangentialUnchanged(t *testing.T) {
	// Normal is along x; the y components must survive untouched.
	a := mustBody(t, 0, 0, 2, 3, 1, 2)
	b := mustBody(t, 1.8, 0, -1, -5, 1, 1)

	Resolve(&a, &b)

	if math.Abs(a.Vel.Y-3) > 1e-12 || math.Abs(b.Vel.Y+5) > 1e-12 {
		t.Errorf("tangential components changed: a=%+v b=%+v", a.Vel, b.Vel)
	}
}

func TestResolve_ConservesMomentumAndEnergy(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 500; i++ {
		ra := 0.5 + rng.Float64()*2
		rb := 0.5 + rng.Float64()*2
		angle := rng.Float64() * 2 * math.Pi
		dist := (ra + rb) * (0.05 + 0.9*rng.Float64())

		a := mustBody(t, 50, 50, rng.NormFloat64()*10, rng.NormFloat64()*10, ra, 0.1+rng.Float64()*20)
		b := mustBody(t, 50+dist*math.Cos(angle), 50+dist*math.Sin(angle),
			rng.NormFloat64()*10, rng.NormFloat64()*10, rb, 0.1+rng.Float64()*20)

		p0 := a.Momentum().Add(b.Momentum())
		e0 := a.KineticEnergy() + b.KineticEnergy()

		Resolve(&a, &b)

		p1 := a.Momentum().Add(b.Momentum())
		e1 := a.KineticEnergy() + b.KineticEnergy()

		scale := math.Max(1, p0.Len())
		if p1.Sub(p0).Len() > 1e-9*scale {
			t.Fatalf("case %d: momentum %v -> %v", i, p0, p1)
		}
		if math.Abs(e1-e0) > 1e-9*math.Max(1, e0) {
			t.Fatalf("case %d: energy %v -> %v", i, e0, e1)
		}

		sep := a.Pos.Sub(b.Pos).Len()
		if sep < ra+rb-1e-9 {
			t.Fatalf("case %d: still interpenetrating, distance %v < %v", i, sep, ra+rb)
		}
	}
}

func TestResolve_DegenerateFallback(t *testing.T) {
	a := mustBody(t, 5, 5, 1, 0, 1, 1)
	b := mustBody(t, 5, 5, -1, 0, 1, 3)

	c := Resolve(&a, &b)

	if !c.Degenerate {
		t.Fatal("expected degenerate contact")
	}
	if c.Normal != fallbackNormal {
		t.Errorf("normal = %v, want fallback %v", c.Normal, fallbackNormal)
	}
	if !a.IsValid() || !b.IsValid() {
		t.Fatalf("NaN propagated: a=%+v b=%+v", a, b)
	}
	if sep := a.Pos.Sub(b.Pos).Len(); math.Abs(sep-2) > 1e-12 {
		t.Errorf("separation = %v, want 2", sep)
	}
	if a.Pos.X <= b.Pos.X {
		t.Errorf("a should be pushed along +x: a=%v b=%v", a.Pos, b.Pos)
	}
}

func TestResolve_NonOverlappingKeepsPositions(t *testing.T) {
	a := mustBody(t, 0, 0, 1, 0, 1, 1)
	b := mustBody(t, 3, 0, -1, 0, 1, 1)

	c := Resolve(&a, &b)

	if c.Overlap >= 0 {
		t.Errorf("expected negative overlap, got %v", c.Overlap)
	}
	if a.Pos.X != 0 || b.Pos.X != 3 {
		t.Errorf("positions moved: a=%v b=%v", a.Pos, b.Pos)
	}
}
