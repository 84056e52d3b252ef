package dynamo

import "math"

// State is a flat generalized-state vector. For the multibody system it is
// the concatenation of one 12-value block per registered body:
// [position(3), velocity(3), orientation(3), angular velocity(3)].
type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func (s State) Norm() float64 {
	sum := 0.0
	for _, v := range s {
		sum += v * v
	}
	return math.Sqrt(sum)
}

func (s State) Add(other State) State {
	result := make(State, len(s))
	for i := range s {
		if i < len(other) {
			result[i] = s[i] + other[i]
		} else {
			result[i] = s[i]
		}
	}
	return result
}

func (s State) Scale(factor float64) State {
	result := make(State, len(s))
	for i := range s {
		result[i] = s[i] * factor
	}
	return result
}

func (s State) Sub(other State) State {
	result := make(State, len(s))
	for i := range s {
		if i < len(other) {
			result[i] = s[i] - other[i]
		} else {
			result[i] = s[i]
		}
	}
	return result
}

// Control is an optional exogenous input vector. An empty control means no
// input; a non-empty one must match the system's ControlDim.
type Control []float64

// System is a first-order dynamical system dx/dt = f(x, u, t). Derive must
// not mutate long-lived state. A constrained system may fail when its
// linear solve has no unique solution; a returned error invalidates the
// whole integration step.
type System interface {
	Derive(x State, u Control, t float64) (State, error)
	StateDim() int
	ControlDim() int
}

// Hamiltonian is implemented by systems that can report total mechanical
// energy for a given state.
type Hamiltonian interface {
	Energy(x State) float64
}

// Integrator advances a state by one fixed step dt. An error from the
// system's Derive aborts the step and is returned as-is.
type Integrator interface {
	Step(dyn System, x State, u Control, t float64, dt float64) (State, error)
}

// Controller computes the control input for a state. A nil Controller in
// the simulator means zero input.
type Controller interface {
	Compute(x State, t float64) Control
}

type Metric interface {
	Name() string
	Observe(x State, u Control, t float64)
	Value() float64
	Reset()
}

type Observer interface {
	OnStep(x State, u Control, t float64)
}

type Config struct {
	Dt            float64
	Duration      float64
	ValidateState bool
}

func DefaultConfig() Config {
	return Config{
		Dt:            0.001,
		Duration:      10.0,
		ValidateState: true,
	}
}

type Result struct {
	States      []State
	Times       []float64
	Metrics     map[string]float64
	EnergyDrift float64
	StepsTaken  int
}
