package metrics

import "github.com/san-kum/mbsim/internal/dynamo"

// ConstraintChecker reports the worst constraint residual norm seen
// during a run. Any system exposing MaxConstraintViolation qualifies.
type ConstraintChecker interface {
	MaxConstraintViolation(x dynamo.State) float64
}

type ConstraintViolation struct {
	name    string
	sys     ConstraintChecker
	worst   float64
	samples int
}

func NewConstraintViolation(sys ConstraintChecker) *ConstraintViolation {
	return &ConstraintViolation{
		name: "constraint_violation",
		sys:  sys,
	}
}

func (c *ConstraintViolation) Name() string { return c.name }

func (c *ConstraintViolation) Observe(x dynamo.State, u dynamo.Control, t float64) {
	c.samples++
	if v := c.sys.MaxConstraintViolation(x); v > c.worst {
		c.worst = v
	}
}

func (c *ConstraintViolation) Value() float64 {
	return c.worst
}

func (c *ConstraintViolation) Reset() {
	c.worst = 0
	c.samples = 0
}
