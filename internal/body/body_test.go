package body

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/mbsim/internal/attitude"
)

func TestGroundUpdateIsNoOp(t *testing.T) {
	g := NewGround(mgl64.Vec3{1, 2, 3})

	g.Update(mgl64.Vec3{9, 9, 9}, mgl64.Vec3{1, 1, 1}, mgl64.Vec3{0.5, 0, 0}, mgl64.Vec3{2, 0, 0})

	if g.Position() != (mgl64.Vec3{1, 2, 3}) {
		t.Errorf("ground position changed to %v", g.Position())
	}
	if g.Velocity() != (mgl64.Vec3{0, 0, 0}) {
		t.Errorf("ground velocity changed to %v", g.Velocity())
	}
	if g.TBI() != mgl64.Ident3() {
		t.Errorf("ground rotation changed to %v", g.TBI())
	}
}

func TestMobilizedUpdateRefreshesRotation(t *testing.T) {
	b := NewMobilized(
		mgl64.Vec3{}, mgl64.Vec3{}, mgl64.Vec3{}, mgl64.Vec3{}, mgl64.Vec3{}, mgl64.Vec3{},
		2.0, mgl64.Vec3{1, 1, 1}, mgl64.Vec3{0, -9.81 * 2, 0}, mgl64.Vec3{},
	)

	angles := mgl64.Vec3{0.4, -0.2, 1.1}
	b.Update(mgl64.Vec3{1, 0, 0}, mgl64.Vec3{0, 1, 0}, angles, mgl64.Vec3{0, 0, 2})

	want := attitude.RotationFromEuler(angles)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			if math.Abs(b.TBI().At(i, j)-want.At(i, j)) > 1e-15 {
				t.Fatalf("cached rotation stale at (%d,%d): got %v want %v",
					i, j, b.TBI().At(i, j), want.At(i, j))
			}
		}
	}
}

func TestMassDiag(t *testing.T) {
	g := NewGround(mgl64.Vec3{})
	if g.MassDiag() != [6]float64{1, 1, 1, 1, 1, 1} {
		t.Errorf("ground mass block = %v, want identity diagonal", g.MassDiag())
	}

	b := NewMobilized(
		mgl64.Vec3{}, mgl64.Vec3{}, mgl64.Vec3{}, mgl64.Vec3{}, mgl64.Vec3{}, mgl64.Vec3{},
		3.0, mgl64.Vec3{0.1, 0.2, 0.3}, mgl64.Vec3{}, mgl64.Vec3{},
	)
	if b.MassDiag() != [6]float64{3, 3, 3, 0.1, 0.2, 0.3} {
		t.Errorf("mass block = %v", b.MassDiag())
	}
}

func TestWrenchMutation(t *testing.T) {
	b := NewMobilized(
		mgl64.Vec3{}, mgl64.Vec3{}, mgl64.Vec3{}, mgl64.Vec3{}, mgl64.Vec3{}, mgl64.Vec3{},
		1.0, mgl64.Vec3{1, 1, 1}, mgl64.Vec3{0, -9.81, 0}, mgl64.Vec3{},
	)

	b.AddWrench(mgl64.Vec3{1, 0, 0}, mgl64.Vec3{0, 0, 0.5})
	if b.Force() != (mgl64.Vec3{1, -9.81, 0}) {
		t.Errorf("force = %v", b.Force())
	}
	if b.Torque() != (mgl64.Vec3{0, 0, 0.5}) {
		t.Errorf("torque = %v", b.Torque())
	}

	b.SetWrench(mgl64.Vec3{}, mgl64.Vec3{})
	if b.Force() != (mgl64.Vec3{}) || b.Torque() != (mgl64.Vec3{}) {
		t.Errorf("wrench not cleared: F=%v T=%v", b.Force(), b.Torque())
	}
}
