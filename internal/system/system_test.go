package system

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/mbsim/internal/body"
	"github.com/san-kum/mbsim/internal/dynamo"
	"github.com/san-kum/mbsim/internal/joint"
)

const gravity = 9.81

func newLink(mass float64, inertia mgl64.Vec3, pos, ang mgl64.Vec3) body.Body {
	return body.NewMobilized(pos, mgl64.Vec3{}, mgl64.Vec3{},
		ang, mgl64.Vec3{}, mgl64.Vec3{},
		mass, inertia, mgl64.Vec3{0, -mass * gravity, 0}, mgl64.Vec3{})
}

// pendulum pins a unit link to ground at the origin, hanging along -y
// and rolled out by angle.
func pendulum(t *testing.T, angle float64) *System {
	t.Helper()
	sys := New(0.001)
	sys.AddBody(body.NewGround(mgl64.Vec3{}))

	ang := mgl64.Vec3{angle, 0, 0}
	pos := mgl64.Vec3{0, -math.Cos(angle), -math.Sin(angle)}
	sys.AddBody(newLink(1, mgl64.Vec3{1, 1, 1}, pos, ang))

	_, err := sys.AddJoint(joint.New(joint.Spherical, 0, 1,
		mgl64.Vec3{}, mgl64.Vec3{0, 1, 0}, mgl64.Vec3{}, mgl64.Vec3{}))
	require.NoError(t, err)
	require.NoError(t, sys.Init())
	return sys
}

func TestInitRequiresGroundFirst(t *testing.T) {
	sys := New(0.001)
	assert.ErrorIs(t, sys.Init(), dynamo.ErrBadTopology)

	sys.AddBody(newLink(1, mgl64.Vec3{1, 1, 1}, mgl64.Vec3{}, mgl64.Vec3{}))
	assert.ErrorIs(t, sys.Init(), dynamo.ErrBadTopology)
}

func TestInitRejectsSecondGround(t *testing.T) {
	sys := New(0.001)
	sys.AddBody(body.NewGround(mgl64.Vec3{}))
	sys.AddBody(body.NewGround(mgl64.Vec3{1, 0, 0}))
	assert.ErrorIs(t, sys.Init(), dynamo.ErrBadTopology)
}

func TestAddJointValidatesHandles(t *testing.T) {
	sys := New(0.001)
	sys.AddBody(body.NewGround(mgl64.Vec3{}))
	sys.AddBody(newLink(1, mgl64.Vec3{1, 1, 1}, mgl64.Vec3{0, -1, 0}, mgl64.Vec3{}))

	_, err := sys.AddJoint(joint.New(joint.Spherical, 0, 5,
		mgl64.Vec3{}, mgl64.Vec3{}, mgl64.Vec3{}, mgl64.Vec3{}))
	assert.ErrorIs(t, err, dynamo.ErrBadTopology)

	_, err = sys.AddJoint(joint.New(joint.Spherical, 1, 1,
		mgl64.Vec3{}, mgl64.Vec3{}, mgl64.Vec3{}, mgl64.Vec3{}))
	assert.ErrorIs(t, err, dynamo.ErrBadTopology)
}

func TestDimensions(t *testing.T) {
	sys := pendulum(t, 0)

	assert.Equal(t, 2, sys.BodyCount())
	assert.Equal(t, 1, sys.JointCount())
	assert.Equal(t, 24, sys.StateDim())
	assert.Equal(t, 6, sys.ControlDim())
	assert.Equal(t, body.Ground, sys.BodyKind(0))
	assert.Equal(t, body.Mobilized, sys.BodyKind(1))

	r, c := sys.MassMatrix().Dims()
	assert.Equal(t, 12, r)
	assert.Equal(t, 12, c)
	r, c = sys.Jacobian().Dims()
	assert.Equal(t, 9, r)
	assert.Equal(t, 12, c)
}

func TestMassMatrixBlocks(t *testing.T) {
	sys := New(0.001)
	sys.AddBody(body.NewGround(mgl64.Vec3{}))
	sys.AddBody(newLink(2.5, mgl64.Vec3{0.4, 0.5, 0.6}, mgl64.Vec3{0, -1, 0}, mgl64.Vec3{}))
	require.NoError(t, sys.Init())

	m := sys.MassMatrix()
	want := []float64{1, 1, 1, 1, 1, 1, 2.5, 2.5, 2.5, 0.4, 0.5, 0.6}
	for i, w := range want {
		assert.InDelta(t, w, m.At(i, i), 0, "diag %d", i)
	}
	for i := 0; i < 12; i++ {
		for j := 0; j < 12; j++ {
			if i != j {
				assert.Zero(t, m.At(i, j))
			}
		}
	}
}

func TestJacobianStructure(t *testing.T) {
	sys := pendulum(t, 0)
	jac := sys.Jacobian()

	// ground pin occupies the first six rows as an identity block
	for r := 0; r < 6; r++ {
		for c := 0; c < 12; c++ {
			want := 0.0
			if r == c {
				want = 1
			}
			assert.InDelta(t, want, jac.At(r, c), 0)
		}
	}

	// translational blocks of the joint rows are exactly -I and +I
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			want := 0.0
			if r == c {
				want = -1
			}
			assert.InDelta(t, want, jac.At(6+r, c), 1e-15)
			assert.InDelta(t, -want, jac.At(6+r, 6+c), 1e-15)
		}
	}
}

func TestDeriveUnconstrainedBody(t *testing.T) {
	sys := New(0.001)
	sys.AddBody(body.NewGround(mgl64.Vec3{}))
	b := newLink(2, mgl64.Vec3{3, 3, 3}, mgl64.Vec3{0, 5, 0}, mgl64.Vec3{})
	b.SetWrench(mgl64.Vec3{0, -2 * gravity, 0}, mgl64.Vec3{0, 0, 6})
	sys.AddBody(b)
	require.NoError(t, sys.Init())

	deriv, err := sys.Derive(sys.InitialState(), nil, 0)
	require.NoError(t, err)

	// a = F/m, wdot = torque/J
	assert.InDelta(t, 0, deriv[12+3], 1e-12)
	assert.InDelta(t, -gravity, deriv[12+4], 1e-12)
	assert.InDelta(t, 0, deriv[12+5], 1e-12)
	assert.InDelta(t, 2, deriv[12+11], 1e-12)
}

func TestDeriveAppliesControlWrench(t *testing.T) {
	sys := New(0.001)
	sys.AddBody(body.NewGround(mgl64.Vec3{}))
	sys.AddBody(newLink(1, mgl64.Vec3{1, 1, 1}, mgl64.Vec3{0, 5, 0}, mgl64.Vec3{}))
	require.NoError(t, sys.Init())

	u := dynamo.Control{0, gravity + 4, 0, 1, 0, 0}
	deriv, err := sys.Derive(sys.InitialState(), u, 0)
	require.NoError(t, err)

	assert.InDelta(t, 4, deriv[12+4], 1e-12)
	assert.InDelta(t, 1, deriv[12+9], 1e-12)
}

func TestDeriveDimensionChecks(t *testing.T) {
	sys := pendulum(t, 0)

	_, err := sys.Derive(make(dynamo.State, 7), nil, 0)
	assert.ErrorIs(t, err, dynamo.ErrDimensionMismatch)

	_, err = sys.Derive(sys.InitialState(), make(dynamo.Control, 4), 0)
	assert.ErrorIs(t, err, dynamo.ErrDimensionMismatch)
}

func TestDeriveBeforeInit(t *testing.T) {
	sys := New(0.001)
	_, err := sys.Derive(make(dynamo.State, 12), nil, 0)
	assert.ErrorIs(t, err, dynamo.ErrBadTopology)

	assert.ErrorIs(t, sys.Step(), dynamo.ErrBadTopology)
}

func TestDeriveSingularSystem(t *testing.T) {
	sys := New(0.001)
	sys.AddBody(body.NewGround(mgl64.Vec3{}))
	sys.AddBody(newLink(0, mgl64.Vec3{}, mgl64.Vec3{0, -1, 0}, mgl64.Vec3{}))
	_, err := sys.AddJoint(joint.New(joint.Spherical, 0, 1,
		mgl64.Vec3{}, mgl64.Vec3{0, 1, 0}, mgl64.Vec3{}, mgl64.Vec3{}))
	require.NoError(t, err)
	require.NoError(t, sys.Init())

	_, err = sys.Derive(sys.InitialState(), nil, 0)
	assert.ErrorIs(t, err, dynamo.ErrSingularSystem)
}

func TestStepAdvances(t *testing.T) {
	sys := pendulum(t, math.Pi/4)
	x0 := sys.InitialState()

	for i := 0; i < 3; i++ {
		require.NoError(t, sys.Step())
	}
	assert.InDelta(t, 0.003, sys.Time(), 1e-12)
	assert.Greater(t, sys.State().Sub(x0).Norm(), 0.0)

	assert.Len(t, sys.Positions(), 6)
	assert.Len(t, sys.Orientations(), 6)
}

func TestStepFailureLeavesStateUntouched(t *testing.T) {
	sys := New(0.001)
	sys.AddBody(body.NewGround(mgl64.Vec3{}))
	sys.AddBody(newLink(0, mgl64.Vec3{}, mgl64.Vec3{0, -1, 0}, mgl64.Vec3{}))
	_, err := sys.AddJoint(joint.New(joint.Spherical, 0, 1,
		mgl64.Vec3{}, mgl64.Vec3{0, 1, 0}, mgl64.Vec3{}, mgl64.Vec3{}))
	require.NoError(t, err)
	require.NoError(t, sys.Init())

	before := sys.State()
	err = sys.Step()
	require.Error(t, err)

	var stepErr *dynamo.StepError
	assert.ErrorAs(t, err, &stepErr)
	assert.ErrorIs(t, err, dynamo.ErrSingularSystem)
	assert.Equal(t, before, sys.State())
	assert.Zero(t, sys.Time())
}

func TestConstraintViolation(t *testing.T) {
	sys := pendulum(t, math.Pi/3)
	assert.InDelta(t, 0, sys.MaxConstraintViolation(sys.InitialState()), 1e-12)

	// displace the link sideways without touching its orientation
	x := sys.InitialState()
	x[12] += 0.25
	assert.InDelta(t, 0.25, sys.MaxConstraintViolation(x), 1e-12)

	assert.True(t, math.IsNaN(sys.MaxConstraintViolation(make(dynamo.State, 5))))
}

func TestEnergy(t *testing.T) {
	sys := pendulum(t, math.Pi/3)
	x := sys.InitialState()

	// at rest the energy is pure potential: -F dot pos = m * g * y
	want := gravity * x[13]
	assert.InDelta(t, want, sys.Energy(x), 1e-12)
}
