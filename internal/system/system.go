// Package system assembles and solves the constrained equations of motion
// for a collection of rigid bodies and joints.
//
// The generalized state stacks one 12-value block per registered body:
// [position(3), velocity(3), orientation(3), angular velocity(3)]. Each
// evaluation updates per-body snapshots from the state vector, evaluates
// every joint, assembles the block mass matrix M, the stacked constraint
// Jacobian Cq and the stabilized right-hand side, and solves the
// augmented system
//
//	[ M   Cq^T ] [ qdd    ]   [ Q     ]
//	[ Cq   0   ] [ lambda ] = [ Gamma ]
//
// for accelerations and Lagrange multipliers. The multipliers are
// discarded; accelerations fill the derivative vector.
package system

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/mbsim/internal/body"
	"github.com/san-kum/mbsim/internal/dynamo"
	"github.com/san-kum/mbsim/internal/integrators"
	"github.com/san-kum/mbsim/internal/joint"
)

const (
	// stateBlock is the per-body width of the generalized state vector.
	stateBlock = 12
	// coordBlock is the per-body width of the acceleration unknowns.
	coordBlock = 6
	// pinRows is the identity constraint block pinning the ground body.
	pinRows = 6
	// jointRows is the constraint row count contributed per joint.
	jointRows = 3
)

// System owns the body and joint registries and drives the constrained
// dynamics. Bodies and joints are append-only; handles are indices into
// the registration order and stay valid for the lifetime of the system.
//
// A System is not safe for concurrent use: Derive reuses internal
// snapshot and matrix scratch between calls.
type System struct {
	bodies []body.Body
	joints []joint.Joint

	dt     float64
	t      float64
	state  dynamo.State
	integ  dynamo.Integrator
	inited bool

	// evaluation scratch, allocated by Init
	work      []body.Body
	couplings []joint.Coupling
	massM     *mat.Dense
	jac       *mat.Dense
	aug       *mat.Dense
	rhs       *mat.VecDense
	ans       *mat.VecDense
}

// New returns an empty system stepping at dt with the RK4 integrator.
func New(dt float64) *System {
	return &System{dt: dt, integ: integrators.NewRK4()}
}

// SetIntegrator replaces the integrator used by Step.
func (s *System) SetIntegrator(integ dynamo.Integrator) { s.integ = integ }

// AddBody appends a body and returns its handle. The first registered
// body must be the ground reference; this is checked by Init.
func (s *System) AddBody(b body.Body) int {
	s.bodies = append(s.bodies, b)
	s.inited = false
	return len(s.bodies) - 1
}

// AddJoint appends a joint between two already-registered bodies and
// returns its index. Referencing an unregistered body is a wiring error.
func (s *System) AddJoint(j joint.Joint) (int, error) {
	if err := s.checkJoint(j); err != nil {
		return 0, err
	}
	s.joints = append(s.joints, j)
	s.inited = false
	return len(s.joints) - 1, nil
}

func (s *System) checkJoint(j joint.Joint) error {
	n := len(s.bodies)
	if j.BodyI() < 0 || j.BodyI() >= n || j.BodyJ() < 0 || j.BodyJ() >= n {
		return fmt.Errorf("joint references body (%d, %d) outside registry of %d: %w",
			j.BodyI(), j.BodyJ(), n, dynamo.ErrBadTopology)
	}
	if j.BodyI() == j.BodyJ() {
		return fmt.Errorf("joint references body %d twice: %w", j.BodyI(), dynamo.ErrBadTopology)
	}
	return nil
}

func (s *System) BodyCount() int  { return len(s.bodies) }
func (s *System) JointCount() int { return len(s.joints) }

// BodyKind reports the variant of a registered body.
func (s *System) BodyKind(handle int) body.Kind { return s.bodies[handle].Kind() }

func (s *System) StateDim() int { return stateBlock * len(s.bodies) }

// ControlDim is six values (force, torque) per mobilized body, in
// registration order.
func (s *System) ControlDim() int {
	n := 0
	for i := range s.bodies {
		if s.bodies[i].Kind() == body.Mobilized {
			n++
		}
	}
	return coordBlock * n
}

// Init validates the topology, captures the initial state from the
// registered bodies, allocates solver scratch, and performs one assembly
// so the matrix accessors are meaningful before stepping.
func (s *System) Init() error {
	if len(s.bodies) == 0 {
		return fmt.Errorf("no bodies registered: %w", dynamo.ErrBadTopology)
	}
	if s.bodies[0].Kind() != body.Ground {
		return fmt.Errorf("first registered body must be ground: %w", dynamo.ErrBadTopology)
	}
	for i := 1; i < len(s.bodies); i++ {
		if s.bodies[i].Kind() == body.Ground {
			return fmt.Errorf("body %d: only one ground body is allowed: %w", i, dynamo.ErrBadTopology)
		}
	}
	for _, j := range s.joints {
		if err := s.checkJoint(j); err != nil {
			return err
		}
	}

	n6 := coordBlock * len(s.bodies)
	rows := pinRows + jointRows*len(s.joints)
	s.work = make([]body.Body, len(s.bodies))
	s.couplings = make([]joint.Coupling, len(s.joints))
	s.massM = mat.NewDense(n6, n6, nil)
	s.jac = mat.NewDense(rows, n6, nil)
	s.aug = mat.NewDense(n6+rows, n6+rows, nil)
	s.rhs = mat.NewVecDense(n6+rows, nil)
	s.ans = mat.NewVecDense(n6+rows, nil)

	s.state = make(dynamo.State, s.StateDim())
	for b := range s.bodies {
		writeVec3(s.state, stateBlock*b+0, s.bodies[b].Position())
		writeVec3(s.state, stateBlock*b+3, s.bodies[b].Velocity())
		writeVec3(s.state, stateBlock*b+6, s.bodies[b].Angles())
		writeVec3(s.state, stateBlock*b+9, s.bodies[b].AngularVel())
	}
	s.t = 0
	s.inited = true

	s.snapshot(s.state, nil)
	s.evalJoints()
	s.assemble()
	return nil
}

// InitialState returns a copy of the state captured by Init.
func (s *System) InitialState() dynamo.State { return s.state.Clone() }

// State returns a copy of the committed state advanced by Step.
func (s *System) State() dynamo.State { return s.state.Clone() }

// Time returns the accumulated simulation time of the Step interface.
func (s *System) Time() float64 { return s.t }

// Step advances the committed state by one fixed step. On failure the
// committed state is left untouched.
func (s *System) Step() error {
	if !s.inited {
		return fmt.Errorf("step before init: %w", dynamo.ErrBadTopology)
	}
	next, err := s.integ.Step(s, s.state, nil, s.t, s.dt)
	if err != nil {
		return &dynamo.StepError{Step: int(math.Round(s.t / s.dt)), Time: s.t, Wrapped: err}
	}
	s.state = next
	s.t += s.dt
	return nil
}

// Positions returns every body's current position as a flat [x y z ...]
// slice in registration order.
func (s *System) Positions() []float64 {
	out := make([]float64, 0, 3*len(s.bodies))
	for b := range s.bodies {
		out = append(out, s.state[stateBlock*b:stateBlock*b+3]...)
	}
	return out
}

// Orientations returns every body's current Euler triple as a flat
// [roll pitch yaw ...] slice in registration order.
func (s *System) Orientations() []float64 {
	out := make([]float64, 0, 3*len(s.bodies))
	for b := range s.bodies {
		out = append(out, s.state[stateBlock*b+6:stateBlock*b+9]...)
	}
	return out
}

// Derive evaluates the constrained equations of motion at state x. It
// mutates only internal scratch; a singular augmented matrix is reported,
// never papered over with stale or zero accelerations.
func (s *System) Derive(x dynamo.State, u dynamo.Control, t float64) (dynamo.State, error) {
	if !s.inited {
		return nil, fmt.Errorf("derive before init: %w", dynamo.ErrBadTopology)
	}
	if len(x) != s.StateDim() {
		return nil, fmt.Errorf("state length %d, want %d: %w", len(x), s.StateDim(), dynamo.ErrDimensionMismatch)
	}
	if len(u) != 0 && len(u) != s.ControlDim() {
		return nil, fmt.Errorf("control length %d, want %d: %w", len(u), s.ControlDim(), dynamo.ErrDimensionMismatch)
	}

	s.snapshot(x, u)
	s.evalJoints()
	s.assemble()

	if err := s.ans.SolveVec(s.aug, s.rhs); err != nil {
		size := coordBlock*len(s.bodies) + pinRows + jointRows*len(s.joints)
		return nil, fmt.Errorf("augmented %dx%d solve at t=%.6f (%d bodies, %d joints): %v: %w",
			size, size, t, len(s.bodies), len(s.joints), err, dynamo.ErrSingularSystem)
	}

	deriv := make(dynamo.State, len(x))
	for b := range s.bodies {
		so := stateBlock * b
		ao := coordBlock * b
		for k := 0; k < 3; k++ {
			deriv[so+k] = x[so+3+k] // position rate is velocity
			deriv[so+3+k] = s.ans.AtVec(ao + k)
			deriv[so+6+k] = x[so+9+k] // orientation rate is angular velocity
			deriv[so+9+k] = s.ans.AtVec(ao + 3 + k)
		}
	}
	return deriv, nil
}

// snapshot refreshes the working copies of all bodies from the state
// vector, applying any control wrench on top of the constant loads.
func (s *System) snapshot(x dynamo.State, u dynamo.Control) {
	mob := 0
	for b := range s.bodies {
		s.work[b] = s.bodies[b]
		so := stateBlock * b
		s.work[b].Update(readVec3(x, so), readVec3(x, so+3), readVec3(x, so+6), readVec3(x, so+9))
		if s.bodies[b].Kind() == body.Mobilized {
			if len(u) > 0 {
				uo := coordBlock * mob
				s.work[b].AddWrench(readVec3(u, uo), readVec3(u, uo+3))
			}
			mob++
		}
	}
}

func (s *System) evalJoints() {
	for k := range s.joints {
		j := &s.joints[k]
		s.couplings[k] = j.Eval(&s.work[j.BodyI()], &s.work[j.BodyJ()])
	}
}

// assemble rebuilds M, Cq, the stacked right-hand side and the augmented
// matrix from the current snapshots. Bodies must be updated before the
// joints and the joints before this call; Derive enforces that order.
func (s *System) assemble() {
	n6 := coordBlock * len(s.bodies)

	s.massM.Zero()
	for b := range s.work {
		diag := s.work[b].MassDiag()
		for k := 0; k < coordBlock; k++ {
			s.massM.Set(coordBlock*b+k, coordBlock*b+k, diag[k])
		}
	}

	s.jac.Zero()
	for k := 0; k < pinRows; k++ {
		s.jac.Set(k, k, 1)
	}
	for k := range s.couplings {
		cp := &s.couplings[k]
		r0 := pinRows + jointRows*k
		ci := coordBlock * s.joints[k].BodyI()
		cj := coordBlock * s.joints[k].BodyJ()
		for r := 0; r < 3; r++ {
			for c := 0; c < 3; c++ {
				s.jac.Set(r0+r, ci+c, cp.TransI.At(r, c))
				s.jac.Set(r0+r, ci+3+c, cp.AngI.At(r, c))
				s.jac.Set(r0+r, cj+c, cp.TransJ.At(r, c))
				s.jac.Set(r0+r, cj+3+c, cp.AngJ.At(r, c))
			}
		}
	}

	for b := range s.work {
		f := s.work[b].Force()
		tq := s.work[b].Torque()
		for k := 0; k < 3; k++ {
			s.rhs.SetVec(coordBlock*b+k, f[k])
			s.rhs.SetVec(coordBlock*b+3+k, tq[k])
		}
	}
	for k := 0; k < pinRows; k++ {
		s.rhs.SetVec(n6+k, 0)
	}
	for k := range s.couplings {
		for r := 0; r < 3; r++ {
			s.rhs.SetVec(n6+pinRows+jointRows*k+r, s.couplings[k].Gamma[r])
		}
	}

	rows, _ := s.jac.Dims()
	s.aug.Zero()
	s.aug.Slice(0, n6, 0, n6).(*mat.Dense).Copy(s.massM)
	s.aug.Slice(0, n6, n6, n6+rows).(*mat.Dense).Copy(s.jac.T())
	s.aug.Slice(n6, n6+rows, 0, n6).(*mat.Dense).Copy(s.jac)
}

// MassMatrix returns a copy of the last assembled block mass matrix.
func (s *System) MassMatrix() *mat.Dense { return mat.DenseCopyOf(s.massM) }

// Jacobian returns a copy of the last assembled stacked constraint
// Jacobian, ground pin block included.
func (s *System) Jacobian() *mat.Dense { return mat.DenseCopyOf(s.jac) }

// Energy reports total mechanical energy at state x: kinetic plus the
// potential of the constant applied forces (-F dot position). Torque
// work is not tracked.
func (s *System) Energy(x dynamo.State) float64 {
	e := 0.0
	for b := range s.bodies {
		if s.bodies[b].Kind() != body.Mobilized {
			continue
		}
		so := stateBlock * b
		pos := readVec3(x, so)
		v := readVec3(x, so+3)
		w := readVec3(x, so+9)
		inertia := s.bodies[b].Inertia()

		e += 0.5 * s.bodies[b].Mass() * v.Dot(v)
		e += 0.5 * (inertia[0]*w[0]*w[0] + inertia[1]*w[1]*w[1] + inertia[2]*w[2]*w[2])
		e -= s.bodies[b].Force().Dot(pos)
	}
	return e
}

// MaxConstraintViolation evaluates every joint at state x and returns the
// largest residual norm. It returns NaN for a mismatched state length.
func (s *System) MaxConstraintViolation(x dynamo.State) float64 {
	if !s.inited || len(x) != s.StateDim() {
		return math.NaN()
	}
	s.snapshot(x, nil)
	worst := 0.0
	for k := range s.joints {
		j := &s.joints[k]
		cp := j.Eval(&s.work[j.BodyI()], &s.work[j.BodyJ()])
		if n := cp.C.Len(); n > worst {
			worst = n
		}
	}
	return worst
}

func readVec3(x []float64, off int) mgl64.Vec3 {
	return mgl64.Vec3{x[off], x[off+1], x[off+2]}
}

func writeVec3(x []float64, off int, v mgl64.Vec3) {
	x[off] = v[0]
	x[off+1] = v[1]
	x[off+2] = v[2]
}
