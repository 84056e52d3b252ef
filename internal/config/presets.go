package config

import (
	"math"
	"sort"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/mbsim/internal/attitude"
)

// Presets are ready-to-run scenarios. Chain-like scenarios are generated
// rather than written out because their body positions depend on the
// link orientations.
var Presets = map[string]func() *Config{
	"pendulum": func() *Config { return Pendulum(math.Pi / 2) },
	"chain":    func() *Config { return Chain(10, -3*math.Pi/180) },
}

// Default is the scenario used when nothing else is asked for.
func Default() *Config {
	return Pendulum(math.Pi / 2)
}

func Preset(name string) (*Config, bool) {
	gen, ok := Presets[name]
	if !ok {
		return nil, false
	}
	return gen(), true
}

func PresetNames() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Pendulum is a single unit-mass link pinned to ground at the origin and
// released from the given roll angle. Zero angle hangs along -y.
func Pendulum(angle float64) *Config {
	return chain([]float64{angle})
}

// Chain is n identical unit-mass links connected by spherical joints,
// the first pinned to ground at the origin. The first link hangs at
// zero roll and every later link starts at the given roll offset, so
// the chain droops in the y-z plane.
func Chain(n int, offset float64) *Config {
	rolls := make([]float64, n)
	for i := 1; i < n; i++ {
		rolls[i] = offset
	}
	return chain(rolls)
}

// chain builds one link per roll entry. Each link carries its attachment
// point one unit above its center of mass and is positioned so its joint
// is satisfied at release.
func chain(rolls []float64) *Config {
	name := "chain"
	if len(rolls) == 1 {
		name = "pendulum"
	}
	cfg := &Config{
		Name:       name,
		Dt:         DefaultDt,
		Duration:   DefaultDuration,
		Integrator: "rk4",
		Gravity:    [3]float64{0, DefaultGravity, 0},
		Bodies:     []BodyConfig{{Kind: "ground"}},
	}

	attach := mgl64.Vec3{0, 1, 0}
	pivot := mgl64.Vec3{}
	for i := 1; i <= len(rolls); i++ {
		ang := mgl64.Vec3{rolls[i-1], 0, 0}
		pos := pivot.Sub(attitude.RotationFromEuler(ang).Mul3x1(attach))
		cfg.Bodies = append(cfg.Bodies, BodyConfig{
			Kind:        "mobilized",
			Mass:        1,
			Inertia:     [3]float64{1, 1, 1},
			Position:    [3]float64{pos[0], pos[1], pos[2]},
			Orientation: [3]float64{ang[0], ang[1], ang[2]},
		})
		cfg.Joints = append(cfg.Joints, JointConfig{
			BodyI: i - 1, BodyJ: i,
			Pj: [3]float64{attach[0], attach[1], attach[2]},
		})
		pivot = pos
	}
	return cfg
}
