// Package sim runs a fixed-step simulation loop over a dynamo.System,
// fanning each step out to metrics and observers. A failed step ends the
// run: there is no retry, rollback, or substepping.
package sim

import (
	"context"
	"fmt"
	"math"

	"github.com/san-kum/mbsim/internal/dynamo"
)

type Simulator struct {
	dyn        dynamo.System
	integrator dynamo.Integrator
	controller dynamo.Controller
	metrics    []dynamo.Metric
	observers  []dynamo.Observer
}

func New(dyn dynamo.System, integrator dynamo.Integrator) *Simulator {
	return &Simulator{
		dyn:        dyn,
		integrator: integrator,
		metrics:    make([]dynamo.Metric, 0),
		observers:  make([]dynamo.Observer, 0),
	}
}

func (s *Simulator) AddMetric(m dynamo.Metric)         { s.metrics = append(s.metrics, m) }
func (s *Simulator) AddObserver(o dynamo.Observer)     { s.observers = append(s.observers, o) }
func (s *Simulator) SetController(c dynamo.Controller) { s.controller = c }

// Run advances x0 for cfg.Duration in steps of cfg.Dt. The partial result
// accumulated so far is returned alongside any error, so a caller can
// inspect the trajectory up to the fault.
func (s *Simulator) Run(ctx context.Context, x0 dynamo.State, cfg dynamo.Config) (*dynamo.Result, error) {
	if err := s.validateConfig(cfg); err != nil {
		return nil, err
	}

	steps := int(cfg.Duration / cfg.Dt)
	result := &dynamo.Result{
		States:  make([]dynamo.State, 0, steps+1),
		Times:   make([]float64, 0, steps+1),
		Metrics: make(map[string]float64),
	}

	for _, m := range s.metrics {
		m.Reset()
	}

	x := x0.Clone()
	t := 0.0

	result.States = append(result.States, x.Clone())
	result.Times = append(result.Times, t)

	initialEnergy := s.computeEnergy(x)

	for i := 0; i < steps; i++ {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		u := s.computeControl(x, t)

		for _, m := range s.metrics {
			m.Observe(x, u, t)
		}
		for _, obs := range s.observers {
			obs.OnStep(x, u, t)
		}

		newX, err := s.integrator.Step(s.dyn, x, u, t, cfg.Dt)
		if err != nil {
			return result, &dynamo.StepError{Step: i, Time: t, Wrapped: err}
		}

		if cfg.ValidateState && !newX.IsValid() {
			return result, &dynamo.StepError{
				Step: i, Time: t,
				Wrapped: fmt.Errorf("state diverged: %w", dynamo.ErrInvalidState),
			}
		}

		x = newX
		t += cfg.Dt
		result.StepsTaken++

		result.States = append(result.States, x.Clone())
		result.Times = append(result.Times, t)
	}

	// Relative drift when the baseline is nonzero, absolute otherwise.
	finalEnergy := s.computeEnergy(x)
	result.EnergyDrift = math.Abs(finalEnergy - initialEnergy)
	if initialEnergy != 0 {
		result.EnergyDrift /= math.Abs(initialEnergy)
	}

	for _, m := range s.metrics {
		result.Metrics[m.Name()] = m.Value()
	}

	return result, nil
}

// RunWithCallback steps the simulation, invoking callback before each
// step; a false return stops the run cleanly. Used by live views.
func (s *Simulator) RunWithCallback(ctx context.Context, x0 dynamo.State, cfg dynamo.Config,
	callback func(dynamo.State, float64) bool) error {
	if err := s.validateConfig(cfg); err != nil {
		return err
	}

	x := x0.Clone()
	t := 0.0
	step := 0

	for t < cfg.Duration {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if !callback(x, t) {
			return nil
		}

		u := s.computeControl(x, t)
		newX, err := s.integrator.Step(s.dyn, x, u, t, cfg.Dt)
		if err != nil {
			return &dynamo.StepError{Step: step, Time: t, Wrapped: err}
		}
		if cfg.ValidateState && !newX.IsValid() {
			return &dynamo.StepError{
				Step: step, Time: t,
				Wrapped: fmt.Errorf("state diverged: %w", dynamo.ErrInvalidState),
			}
		}

		x = newX
		t += cfg.Dt
		step++
	}

	return nil
}

func (s *Simulator) validateConfig(cfg dynamo.Config) error {
	if cfg.Dt <= 0 {
		return fmt.Errorf("dt must be positive, got %f", cfg.Dt)
	}
	if cfg.Duration <= 0 {
		return fmt.Errorf("duration must be positive, got %f", cfg.Duration)
	}
	return nil
}

func (s *Simulator) computeControl(x dynamo.State, t float64) dynamo.Control {
	if s.controller == nil {
		return nil
	}
	return s.controller.Compute(x, t)
}

func (s *Simulator) computeEnergy(x dynamo.State) float64 {
	if ec, ok := s.dyn.(dynamo.Hamiltonian); ok {
		return ec.Energy(x)
	}
	return 0
}
