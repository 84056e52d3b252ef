// Package config describes simulation scenarios: the integration
// parameters, the body registry, and the joint wiring, loadable from
// YAML files or built from presets.
package config

import (
	"fmt"
	"os"

	"github.com/go-gl/mathgl/mgl64"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/mbsim/internal/body"
	"github.com/san-kum/mbsim/internal/dynamo"
	"github.com/san-kum/mbsim/internal/integrators"
	"github.com/san-kum/mbsim/internal/joint"
	"github.com/san-kum/mbsim/internal/system"
)

const (
	DefaultDt       = 0.001
	DefaultDuration = 10.0
	DefaultGravity  = -9.81
)

type Config struct {
	Name       string        `yaml:"name"`
	Dt         float64       `yaml:"dt"`
	Duration   float64       `yaml:"duration"`
	Integrator string        `yaml:"integrator"`
	Gravity    [3]float64    `yaml:"gravity"`
	Bodies     []BodyConfig  `yaml:"bodies"`
	Joints     []JointConfig `yaml:"joints"`
}

type BodyConfig struct {
	Kind            string     `yaml:"kind"`
	Mass            float64    `yaml:"mass"`
	Inertia         [3]float64 `yaml:"inertia"`
	Position        [3]float64 `yaml:"position"`
	Velocity        [3]float64 `yaml:"velocity"`
	Orientation     [3]float64 `yaml:"orientation"`
	AngularVelocity [3]float64 `yaml:"angular_velocity"`
	Force           [3]float64 `yaml:"force"`
	Torque          [3]float64 `yaml:"torque"`
}

type JointConfig struct {
	BodyI int        `yaml:"body_i"`
	BodyJ int        `yaml:"body_j"`
	Pi    [3]float64 `yaml:"pi"`
	Pj    [3]float64 `yaml:"pj"`
	Qi    [3]float64 `yaml:"qi"`
	Qj    [3]float64 `yaml:"qj"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := &Config{Dt: DefaultDt, Duration: DefaultDuration, Integrator: "rk4"}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// NewIntegrator returns the configured integration scheme; unknown names
// fall back to RK4.
func (c *Config) NewIntegrator() dynamo.Integrator {
	if c.Integrator == "euler" {
		return integrators.NewEuler()
	}
	return integrators.NewRK4()
}

// Build constructs and initializes the multibody system described by the
// config. Gravity is applied as mass-scaled force to every mobilized
// body, on top of any explicit per-body force.
func (c *Config) Build() (*system.System, error) {
	sys := system.New(c.Dt)
	sys.SetIntegrator(c.NewIntegrator())

	grav := vec3(c.Gravity)
	for i, bc := range c.Bodies {
		switch bc.Kind {
		case "ground":
			sys.AddBody(body.NewGround(vec3(bc.Position)))
		case "mobilized":
			force := vec3(bc.Force).Add(grav.Mul(bc.Mass))
			sys.AddBody(body.NewMobilized(
				vec3(bc.Position), vec3(bc.Velocity), mgl64.Vec3{},
				vec3(bc.Orientation), vec3(bc.AngularVelocity), mgl64.Vec3{},
				bc.Mass, vec3(bc.Inertia), force, vec3(bc.Torque),
			))
		default:
			return nil, fmt.Errorf("body %d: unknown kind %q", i, bc.Kind)
		}
	}

	for i, jc := range c.Joints {
		j := joint.New(joint.Spherical, jc.BodyI, jc.BodyJ,
			vec3(jc.Pi), vec3(jc.Pj), vec3(jc.Qi), vec3(jc.Qj))
		if _, err := sys.AddJoint(j); err != nil {
			return nil, fmt.Errorf("joint %d: %w", i, err)
		}
	}

	if err := sys.Init(); err != nil {
		return nil, err
	}
	return sys, nil
}

func vec3(a [3]float64) mgl64.Vec3 {
	return mgl64.Vec3{a[0], a[1], a[2]}
}
