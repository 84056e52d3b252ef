// Package body models a single rigid body: its kinematic state, mass
// properties, applied loads, and the cached body-to-world rotation.
package body

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/mbsim/internal/attitude"
)

// Kind distinguishes the fixed ground reference from a dynamic body.
type Kind int

const (
	// Ground is pinned at its reference position; its Update is a no-op
	// and it contributes an identity mass block.
	Ground Kind = iota

	// Mobilized is a fully dynamic body.
	Mobilized
)

func (k Kind) String() string {
	if k == Ground {
		return "ground"
	}
	return "mobilized"
}

// Body holds one body's generalized coordinates and mass properties.
// Kinematic state changes only through Update, which also refreshes the
// cached rotation matrix; the cached matrix is therefore never stale.
//
// Conventions: orientation is an Euler [roll, pitch, yaw] triple (3-2-1
// sequence), angular velocity and applied torque are body-frame, applied
// force is world-frame.
type Body struct {
	kind Kind

	position   mgl64.Vec3
	velocity   mgl64.Vec3
	accel      mgl64.Vec3
	angles     mgl64.Vec3
	angularVel mgl64.Vec3
	angularAcc mgl64.Vec3

	mass    float64
	inertia mgl64.Vec3
	force   mgl64.Vec3
	torque  mgl64.Vec3

	tbi mgl64.Mat3 // body -> world, derived from angles
}

// NewGround returns the fixed reference body at the given position. Its
// velocity and acceleration are zero forever.
func NewGround(position mgl64.Vec3) Body {
	return Body{
		kind:     Ground,
		position: position,
		mass:     1,
		inertia:  mgl64.Vec3{1, 1, 1},
		tbi:      mgl64.Ident3(),
	}
}

// NewMobilized returns a dynamic body with the full initial state.
func NewMobilized(position, velocity, accel, angles, angularVel, angularAcc mgl64.Vec3,
	mass float64, inertia, force, torque mgl64.Vec3) Body {
	return Body{
		kind:       Mobilized,
		position:   position,
		velocity:   velocity,
		accel:      accel,
		angles:     angles,
		angularVel: angularVel,
		angularAcc: angularAcc,
		mass:       mass,
		inertia:    inertia,
		force:      force,
		torque:     torque,
		tbi:        attitude.RotationFromEuler(angles),
	}
}

// Update replaces the four kinematic fields and recomputes the cached
// rotation. For Ground it is a no-op.
func (b *Body) Update(position, velocity, angles, angularVel mgl64.Vec3) {
	if b.kind == Ground {
		return
	}
	b.position = position
	b.velocity = velocity
	b.angles = angles
	b.angularVel = angularVel
	b.tbi = attitude.RotationFromEuler(angles)
}

func (b *Body) Kind() Kind             { return b.kind }
func (b *Body) Position() mgl64.Vec3   { return b.position }
func (b *Body) Velocity() mgl64.Vec3   { return b.velocity }
func (b *Body) Accel() mgl64.Vec3      { return b.accel }
func (b *Body) Angles() mgl64.Vec3     { return b.angles }
func (b *Body) AngularVel() mgl64.Vec3 { return b.angularVel }
func (b *Body) AngularAcc() mgl64.Vec3 { return b.angularAcc }
func (b *Body) Mass() float64          { return b.mass }
func (b *Body) Inertia() mgl64.Vec3    { return b.inertia }
func (b *Body) Force() mgl64.Vec3      { return b.force }
func (b *Body) Torque() mgl64.Vec3     { return b.torque }
func (b *Body) TBI() mgl64.Mat3        { return b.tbi }

// SetWrench replaces the applied force (world frame) and torque (body
// frame). Loads are constant between calls.
func (b *Body) SetWrench(force, torque mgl64.Vec3) {
	b.force = force
	b.torque = torque
}

// AddWrench accumulates an extra wrench on top of the stored loads.
func (b *Body) AddWrench(force, torque mgl64.Vec3) {
	b.force = b.force.Add(force)
	b.torque = b.torque.Add(torque)
}

// MassDiag returns the diagonal of this body's 6x6 mass block:
// [m, m, m, J1, J2, J3]. Ground contributes an identity block.
func (b *Body) MassDiag() [6]float64 {
	if b.kind == Ground {
		return [6]float64{1, 1, 1, 1, 1, 1}
	}
	return [6]float64{b.mass, b.mass, b.mass, b.inertia[0], b.inertia[1], b.inertia[2]}
}
