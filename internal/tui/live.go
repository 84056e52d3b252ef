// Package tui renders a running simulation as plain ANSI frames on
// stdout, throttled to a frame rate. It implements the simulator's
// Observer interface so it can be attached to any run.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/san-kum/mbsim/internal/dynamo"
)

const (
	width       = 70
	height      = 20
	clearScreen = "\033[2J\033[H"
	hideCursor  = "\033[?25l"
	showCursor  = "\033[?25h"

	stateBlock = 12
)

// LiveRenderer draws the linkage in the y-z plane, one glyph per body,
// with a fading trail behind the last body.
type LiveRenderer struct {
	name      string
	scale     float64
	frameRate int
	lastFrame time.Time
	canvas    [][]rune
	trail     []struct{ x, y int }
}

// NewLiveRenderer sizes the view so a chain of extent meters fits the
// canvas height.
func NewLiveRenderer(name string, extent float64, frameRate int) *LiveRenderer {
	canvas := make([][]rune, height)
	for i := range canvas {
		canvas[i] = make([]rune, width)
	}
	if extent < 1 {
		extent = 1
	}
	scale := float64(height-4) / extent
	return &LiveRenderer{
		name:      name,
		scale:     scale,
		frameRate: frameRate,
		canvas:    canvas,
		trail:     make([]struct{ x, y int }, 0, 50),
	}
}

func (r *LiveRenderer) OnStep(x dynamo.State, u dynamo.Control, t float64) {
	elapsed := time.Since(r.lastFrame)
	if elapsed < time.Second/time.Duration(r.frameRate) {
		return
	}
	r.lastFrame = time.Now()

	r.clear()
	r.drawChain(x)
	r.render(x, t)
}

func (r *LiveRenderer) clear() {
	for y := range r.canvas {
		for x := range r.canvas[y] {
			r.canvas[y][x] = ' '
		}
	}
}

func (r *LiveRenderer) set(x, y int, c rune) {
	if x >= 0 && x < width && y >= 0 && y < height {
		r.canvas[y][x] = c
	}
}

func (r *LiveRenderer) line(x1, y1, x2, y2 int, c rune) {
	dx := abs(x2 - x1)
	dy := abs(y2 - y1)
	sx, sy := 1, 1
	if x1 > x2 {
		sx = -1
	}
	if y1 > y2 {
		sy = -1
	}
	err := dx - dy
	for {
		r.set(x1, y1, c)
		if x1 == x2 && y1 == y2 {
			break
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x1 += sx
		}
		if e2 < dx {
			err += dx
			y1 += sy
		}
	}
}

// toScreen maps world (z, y) onto the canvas. World z runs to the
// right, world y up; the reference body sits near the top center.
func (r *LiveRenderer) toScreen(z, y float64) (int, int) {
	sx := width/2 + int(z*r.scale*2)
	sy := 2 - int(y*r.scale)
	return sx, sy
}

func (r *LiveRenderer) drawChain(x dynamo.State) {
	bodies := len(x) / stateBlock
	if bodies < 2 {
		return
	}

	lastOff := stateBlock * (bodies - 1)
	tx, ty := r.toScreen(x[lastOff+2], x[lastOff+1])
	r.trail = append(r.trail, struct{ x, y int }{tx, ty})
	if len(r.trail) > 40 {
		r.trail = r.trail[1:]
	}
	for i, pt := range r.trail {
		if i < len(r.trail)/2 {
			r.set(pt.x, pt.y, '.')
		} else {
			r.set(pt.x, pt.y, 'o')
		}
	}

	px, py := r.toScreen(x[2], x[1])
	r.set(px, py, '+')
	for b := 1; b < bodies; b++ {
		off := stateBlock * b
		bx, by := r.toScreen(x[off+2], x[off+1])
		r.line(px, py, bx, by, '|')
		glyph := 'o'
		if b == bodies-1 {
			glyph = 'O'
		}
		r.set(bx, by, glyph)
		px, py = bx, by
	}
}

func (r *LiveRenderer) render(x dynamo.State, t float64) {
	var b strings.Builder
	b.WriteString(clearScreen)
	b.WriteString(fmt.Sprintf("  %s  t=%.2fs\n", r.name, t))
	b.WriteString("  " + strings.Repeat("-", width) + "\n")

	for _, row := range r.canvas {
		b.WriteString("  ")
		b.WriteString(string(row))
		b.WriteString("\n")
	}

	b.WriteString("  " + strings.Repeat("-", width) + "\n")

	if len(x) >= 2*stateBlock {
		off := stateBlock * (len(x)/stateBlock - 1)
		b.WriteString(fmt.Sprintf("  tip y=%.3f z=%.3f\n", x[off+1], x[off+2]))
	}

	fmt.Print(b.String())
}

func (r *LiveRenderer) Start() { fmt.Print(hideCursor) }
func (r *LiveRenderer) Stop()  { fmt.Print(showCursor) }

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
