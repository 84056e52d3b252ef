package integrators

import "github.com/san-kum/mbsim/internal/dynamo"

// Euler is the explicit first-order scheme, kept for quick comparison
// runs; RK4 is the default everywhere.
type Euler struct{}

func NewEuler() *Euler {
	return &Euler{}
}

func (e *Euler) Step(dyn dynamo.System, x dynamo.State, u dynamo.Control, t float64, dt float64) (dynamo.State, error) {
	dx, err := dyn.Derive(x, u, t)
	if err != nil {
		return nil, err
	}
	return x.Add(dx.Scale(dt)), nil
}
