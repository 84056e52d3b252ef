// Package viz renders a live multibody run in the terminal.
//
// The package implements a Bubble Tea view around a braille [Canvas]:
// the linkage is drawn in the y-z plane with a trail behind the last
// body, next to a stats panel with an energy sparkline and the current
// worst joint gap.
//
// # Key Bindings
//
//	Space - Pause/Resume simulation
//	R     - Rebuild and restart from the configured state
//	Q     - Quit
package viz
