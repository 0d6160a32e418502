package dynamo

import (
	"errors"
	"math"
	"testing"
)

func TestNewBody_Validation(t *testing.T) {
	tests := []struct {
		name   string
		radius float64
		mass   float64
		valid  bool
	}{
		{"normal", 1.0, 2.0, true},
		{"tiny", 1e-9, 1e-9, true},
		{"zero radius", 0, 1, false},
		{"negative radius", -1, 1, false},
		{"zero mass", 1, 0, false},
		{"negative mass", 1, -3, false},
		{"NaN radius", math.NaN(), 1, false},
		{"NaN mass", 1, math.NaN(), false},
		{"+Inf mass", 1, math.Inf(1), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := NewBody(1, 2, 3, 4, tt.radius, tt.mass)
			if tt.valid {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if b.Radius() != tt.radius || b.Mass() != tt.mass {
					t.Errorf("attributes not kept: radius=%v mass=%v", b.Radius(), b.Mass())
				}
				return
			}
			if !errors.Is(err, ErrInvalidBody) {
				t.Errorf("expected ErrInvalidBody, got %v", err)
			}
		})
	}
}

func TestBody_Integrate(t *testing.T) {
	b, err := NewBody(1, 2, 3, -4, 1, 1)
	if err != nil {
		t.Fatal(err)
	}

	b.Integrate(0.5)

	if b.Pos.X != 2.5 || b.Pos.Y != 0 {
		t.Errorf("Integrate failed: got %+v", b.Pos)
	}
	if b.Vel.X != 3 || b.Vel.Y != -4 {
		t.Errorf("Integrate changed velocity: got %+v", b.Vel)
	}
}

func TestBody_IntegrateDoesNotClamp(t *testing.T) {
	b, _ := NewBody(0.5, 0.5, -10, -10, 1, 1)
	b.Integrate(1)
	if b.Pos.X != -9.5 || b.Pos.Y != -9.5 {
		t.Errorf("expected unclamped position, got %+v", b.Pos)
	}
}

func TestBody_EnergyMomentum(t *testing.T) {
	b, _ := NewBody(0, 0, 3, 4, 1, 2)

	if got := b.KineticEnergy(); math.Abs(got-25) > 1e-12 {
		t.Errorf("KineticEnergy() = %v, want 25", got)
	}
	p := b.Momentum()
	if p.X != 6 || p.Y != 8 {
		t.Errorf("Momentum() = %+v, want {6 8}", p)
	}
}

func TestBody_View(t *testing.T) {
	b, _ := NewBody(7, 8, 1, 1, 2.5, 1)
	v := b.View()
	if v.X != 7 || v.Y != 8 || v.Radius != 2.5 {
		t.Errorf("View() = %+v", v)
	}
}

func TestVec_Arithmetic(t *testing.T) {
	a := Vec{1, 2}
	b := Vec{4, 6}

	if sum := a.Add(b); sum != (Vec{5, 8}) {
		t.Errorf("Add failed: got %v", sum)
	}
	if diff := b.Sub(a); diff != (Vec{3, 4}) {
		t.Errorf("Sub failed: got %v", diff)
	}
	if l := b.Sub(a).Len(); math.Abs(l-5) > 1e-12 {
		t.Errorf("Len failed: got %v", l)
	}
	if d := a.DistSq(b); d != 25 {
		t.Errorf("DistSq failed: got %v", d)
	}
	if p := a.Perp(); p.Dot(a) != 0 {
		t.Errorf("Perp not orthogonal: %v", p)
	}
	if (Vec{math.NaN(), 0}).IsFinite() {
		t.Error("NaN vector reported finite")
	}
}

func TestErrors_Unwrap(t *testing.T) {
	be := &BodyError{Index: 3, Radius: -1, Mass: 1, Wrapped: ErrInvalidBody}
	if !errors.Is(be, ErrInvalidBody) {
		t.Error("BodyError does not unwrap to ErrInvalidBody")
	}
	expected := "body 3 (radius=-1, mass=1): " + ErrInvalidBody.Error()
	if be.Error() != expected {
		t.Errorf("BodyError.Error() = %q, want %q", be.Error(), expected)
	}

	se := &StepError{Tick: 10, Dt: 0, Wrapped: ErrInvalidStep}
	if !errors.Is(se, ErrInvalidStep) {
		t.Error("StepError does not unwrap to ErrInvalidStep")
	}
}
