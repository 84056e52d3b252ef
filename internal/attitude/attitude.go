// Package attitude provides pure rotation-representation conversions used
// by the rigid-body model: Euler angle triples (aerospace 3-2-1 sequence),
// rotation matrices, and quaternions, plus the skew-symmetric operator.
//
// Throughout the package a rotation matrix maps body-frame vectors into
// the world frame. Euler triples are stored as [roll, pitch, yaw].
package attitude

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// RotationFromEuler builds the body-to-world rotation matrix for a 3-2-1
// (yaw-pitch-roll) Euler sequence. ang holds [roll, pitch, yaw].
func RotationFromEuler(ang mgl64.Vec3) mgl64.Mat3 {
	sphi, cphi := math.Sincos(ang[0])
	stht, ctht := math.Sincos(ang[1])
	spsi, cpsi := math.Sincos(ang[2])

	var m mgl64.Mat3
	m.Set(0, 0, cpsi*ctht)
	m.Set(0, 1, cpsi*stht*sphi-spsi*cphi)
	m.Set(0, 2, cpsi*stht*cphi+spsi*sphi)
	m.Set(1, 0, spsi*ctht)
	m.Set(1, 1, spsi*stht*sphi+cpsi*cphi)
	m.Set(1, 2, spsi*stht*cphi-cpsi*sphi)
	m.Set(2, 0, -stht)
	m.Set(2, 1, ctht*sphi)
	m.Set(2, 2, ctht*cphi)
	return m
}

// EulerFromRotation recovers the [roll, pitch, yaw] triple from a
// body-to-world rotation matrix. Yaw and roll come from the two-argument
// arctangent, which stays well conditioned for any pitch away from +-90
// degrees. At the gimbal-lock singularity the roll/yaw split is not
// unique and both collapse toward zero.
func EulerFromRotation(r mgl64.Mat3) mgl64.Vec3 {
	tht := math.Asin(clamp(-r.At(2, 0)))
	psi := math.Atan2(r.At(1, 0), r.At(0, 0))
	phi := math.Atan2(r.At(2, 1), r.At(2, 2))
	return mgl64.Vec3{phi, tht, psi}
}

// QuatFromRotation converts a rotation matrix to a unit quaternion using
// the maximum-diagonal-term method: the squared magnitude of all four
// components is computed first and the largest picked as the division
// pivot, avoiding the numerical cancellation of the naive trace formula.
func QuatFromRotation(r mgl64.Mat3) mgl64.Quat {
	tr := r.At(0, 0) + r.At(1, 1) + r.At(2, 2)

	sq := [4]float64{
		(1 + tr) / 4,
		(1 + 2*r.At(0, 0) - tr) / 4,
		(1 + 2*r.At(1, 1) - tr) / 4,
		(1 + 2*r.At(2, 2) - tr) / 4,
	}

	best := 0
	for i := 1; i < 4; i++ {
		if sq[i] > sq[best] {
			best = i
		}
	}

	var w, x, y, z float64
	switch best {
	case 0:
		w = math.Sqrt(sq[0])
		x = (r.At(2, 1) - r.At(1, 2)) / (4 * w)
		y = (r.At(0, 2) - r.At(2, 0)) / (4 * w)
		z = (r.At(1, 0) - r.At(0, 1)) / (4 * w)
	case 1:
		x = math.Sqrt(sq[1])
		w = (r.At(2, 1) - r.At(1, 2)) / (4 * x)
		y = (r.At(0, 1) + r.At(1, 0)) / (4 * x)
		z = (r.At(0, 2) + r.At(2, 0)) / (4 * x)
	case 2:
		y = math.Sqrt(sq[2])
		w = (r.At(0, 2) - r.At(2, 0)) / (4 * y)
		x = (r.At(0, 1) + r.At(1, 0)) / (4 * y)
		z = (r.At(1, 2) + r.At(2, 1)) / (4 * y)
	default:
		z = math.Sqrt(sq[3])
		w = (r.At(1, 0) - r.At(0, 1)) / (4 * z)
		x = (r.At(0, 2) + r.At(2, 0)) / (4 * z)
		y = (r.At(1, 2) + r.At(2, 1)) / (4 * z)
	}

	return mgl64.Quat{W: w, V: mgl64.Vec3{x, y, z}}
}

// RotationFromQuat converts a unit quaternion to a body-to-world rotation
// matrix via the standard bilinear formula.
func RotationFromQuat(q mgl64.Quat) mgl64.Mat3 {
	w, x, y, z := q.W, q.V[0], q.V[1], q.V[2]

	var m mgl64.Mat3
	m.Set(0, 0, 1-2*(y*y+z*z))
	m.Set(0, 1, 2*(x*y-w*z))
	m.Set(0, 2, 2*(x*z+w*y))
	m.Set(1, 0, 2*(x*y+w*z))
	m.Set(1, 1, 1-2*(x*x+z*z))
	m.Set(1, 2, 2*(y*z-w*x))
	m.Set(2, 0, 2*(x*z-w*y))
	m.Set(2, 1, 2*(y*z+w*x))
	m.Set(2, 2, 1-2*(x*x+y*y))
	return m
}

// Skew returns the skew-symmetric matrix of v, so that Skew(v).Mul3x1(u)
// equals v cross u.
func Skew(v mgl64.Vec3) mgl64.Mat3 {
	var m mgl64.Mat3
	m.Set(0, 1, -v[2])
	m.Set(0, 2, v[1])
	m.Set(1, 0, v[2])
	m.Set(1, 2, -v[0])
	m.Set(2, 0, -v[1])
	m.Set(2, 1, v[0])
	return m
}

func clamp(x float64) float64 {
	if x > 1 {
		return 1
	}
	if x < -1 {
		return -1
	}
	return x
}
