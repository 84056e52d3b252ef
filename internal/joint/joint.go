// Package joint implements the binary position-coincidence constraint
// between two rigid bodies and its linearization: residual, Jacobian
// blocks, and the Baumgarte-stabilized acceleration right-hand side.
package joint

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/mbsim/internal/attitude"
	"github.com/san-kum/mbsim/internal/body"
)

// Type tags the constraint kind. Only the spherical (revolute-style
// position coincidence) joint exists today.
type Type int

const Spherical Type = 0

// Joint ties two registered bodies together. Bodies are addressed by
// their registry handles, never by pointer, so a joint can never dangle.
// Pi and Pj are the attachment offsets in each body's local frame; Qi and
// Qj are reference orientation offsets carried for orientation-level
// constraint kinds.
type Joint struct {
	kind Type

	bi, bj int
	pi, pj mgl64.Vec3
	qi, qj mgl64.Vec3
}

func New(kind Type, bi, bj int, pi, pj, qi, qj mgl64.Vec3) Joint {
	return Joint{kind: kind, bi: bi, bj: bj, pi: pi, pj: pj, qi: qi, qj: qj}
}

func (j *Joint) Kind() Type     { return j.kind }
func (j *Joint) BodyI() int     { return j.bi }
func (j *Joint) BodyJ() int     { return j.bj }
func (j *Joint) Pi() mgl64.Vec3 { return j.pi }
func (j *Joint) Pj() mgl64.Vec3 { return j.pj }

// Coupling is one joint's evaluated contribution to the system equations:
// residual C, velocity residual Cdot, stabilized Gamma, and the four 3x3
// Jacobian blocks (translational and angular, per body). The full 3x12
// row block is [TransI | AngI | TransJ | AngJ].
type Coupling struct {
	C     mgl64.Vec3
	Cdot  mgl64.Vec3
	Gamma mgl64.Vec3

	TransI, AngI mgl64.Mat3
	TransJ, AngJ mgl64.Mat3
}

// Eval recomputes the coupling from the two bodies' current state. Bodies
// must have been updated for the evaluation point before this is called.
//
// With ri = si + Ri*pi (rotated local offset) the residual is
// C = rj - ri. Angular velocity is body-frame, so d(R*p)/dt = -R*skew(p)*w
// and the angular Jacobian blocks are +Ri*skew(pi) and -Rj*skew(pj).
// The quadratic-velocity term collects the centripetal contribution
// R*skew(w)*skew(w)*p of each frame, and the Baumgarte feedback
// Gamma = GammaRaw - 2*Cdot - C uses fixed critically damped gains.
func (j *Joint) Eval(bi, bj *body.Body) Coupling {
	ri := bi.TBI()
	rj := bj.TBI()
	wi := bi.AngularVel()
	wj := bj.AngularVel()

	var cp Coupling

	worldPi := ri.Mul3x1(j.pi)
	worldPj := rj.Mul3x1(j.pj)

	cp.C = bj.Position().Add(worldPj).Sub(bi.Position().Add(worldPi))

	negIdent := mgl64.Ident3().Mul(-1)
	cp.TransI = negIdent
	cp.AngI = ri.Mul3(attitude.Skew(j.pi))
	cp.TransJ = mgl64.Ident3()
	cp.AngJ = rj.Mul3(attitude.Skew(j.pj)).Mul(-1)

	cp.Cdot = bj.Velocity().Add(cp.AngJ.Mul3x1(wj)).
		Sub(bi.Velocity()).Add(cp.AngI.Mul3x1(wi))

	skewWi := attitude.Skew(wi)
	skewWj := attitude.Skew(wj)
	gammaRaw := ri.Mul3(skewWi).Mul3(skewWi).Mul3x1(j.pi).
		Sub(rj.Mul3(skewWj).Mul3(skewWj).Mul3x1(j.pj))

	cp.Gamma = gammaRaw.Sub(cp.Cdot.Mul(2)).Sub(cp.C)
	return cp
}
