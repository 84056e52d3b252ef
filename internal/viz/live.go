package viz

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/mbsim/internal/config"
	"github.com/san-kum/mbsim/internal/system"
)

const (
	width           = 80
	height          = 24
	historyCapacity = 600
	stateBlock      = 12
)

var (
	canvasStyle = lipgloss.NewStyle().Padding(1, 2)
	statsStyle  = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(lipgloss.Color("240")).Padding(1, 2).Width(42)
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true).MarginBottom(1)
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(12)
	valueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	graphStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("49")).Padding(1, 0)
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).MarginTop(2)
)

type TickMsg time.Time

// Model drives a live multibody run inside a Bubble Tea program. Each
// frame advances the system by as many fixed steps as fit in the frame
// interval, so the animation tracks wall-clock time.
type Model struct {
	cfg     *config.Config
	sys     *system.System
	canvas  *Canvas
	scale   float64
	trail   []struct{ x, y int }
	energy  []float64
	running bool
	stepErr error
}

// NewModel builds the system from cfg and sizes the view to the chain
// extent (one unit of arm per joint).
func NewModel(cfg *config.Config) (Model, error) {
	sys, err := cfg.Build()
	if err != nil {
		return Model{}, err
	}

	extent := float64(sys.JointCount())
	if extent < 1 {
		extent = 1
	}
	return Model{
		cfg:     cfg,
		sys:     sys,
		canvas:  NewCanvas(width, height),
		scale:   float64(height*4-8) / (2 * extent),
		trail:   make([]struct{ x, y int }, 0, 100),
		energy:  make([]float64, 0, historyCapacity),
		running: true,
	}, nil
}

func (m Model) Init() tea.Cmd {
	return tea.Tick(time.Second/60, func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			m.running = !m.running
		case "r":
			m.reset()
		}
	case TickMsg:
		if m.running && m.stepErr == nil {
			m.advance(time.Second / 60)
		}
		m.draw()
		return m, tea.Tick(time.Second/60, func(t time.Time) tea.Msg { return TickMsg(t) })
	}
	return m, nil
}

// advance steps the system through one frame of simulated time.
func (m *Model) advance(frame time.Duration) {
	steps := int(frame.Seconds() / m.cfg.Dt)
	if steps < 1 {
		steps = 1
	}
	for i := 0; i < steps; i++ {
		if err := m.sys.Step(); err != nil {
			m.stepErr = err
			m.running = false
			return
		}
	}
	m.energy = append(m.energy, m.sys.Energy(m.sys.State()))
	if len(m.energy) > historyCapacity {
		m.energy = m.energy[1:]
	}
}

func (m *Model) reset() {
	sys, err := m.cfg.Build()
	if err != nil {
		m.stepErr = err
		return
	}
	m.sys = sys
	m.trail = m.trail[:0]
	m.energy = m.energy[:0]
	m.stepErr = nil
	m.running = true
}

// toScreen maps world (z, y) to dot coordinates: z to the right, y up,
// reference body near the top center.
func (m *Model) toScreen(z, y float64) (int, int) {
	return width + int(z*m.scale), 8 - int(y*m.scale)
}

func (m *Model) draw() {
	m.canvas.Clear()
	pos := m.sys.Positions()
	bodies := len(pos) / 3
	if bodies < 2 {
		return
	}

	tip := 3 * (bodies - 1)
	tx, ty := m.toScreen(pos[tip+2], pos[tip+1])
	m.trail = append(m.trail, struct{ x, y int }{tx, ty})
	if len(m.trail) > 100 {
		m.trail = m.trail[1:]
	}
	for _, pt := range m.trail {
		m.canvas.Set(pt.x, pt.y)
	}

	px, py := m.toScreen(pos[2], pos[1])
	m.canvas.Set(px, py)
	for b := 1; b < bodies; b++ {
		bx, by := m.toScreen(pos[3*b+2], pos[3*b+1])
		m.canvas.Line(px, py, bx, by)
		m.canvas.Dot(bx, by)
		px, py = bx, by
	}
}

func (m Model) View() string {
	canvasView := canvasStyle.Render(m.canvas.String())

	var s strings.Builder
	s.WriteString(headerStyle.Render(strings.ToUpper(m.cfg.Name)) + "\n")
	switch {
	case m.stepErr != nil:
		s.WriteString(errorStyle.Render("FAILED") + "\n" + m.stepErr.Error() + "\n\n")
	case m.running:
		s.WriteString("RUNNING\n\n")
	default:
		s.WriteString("PAUSED\n\n")
	}

	if len(m.energy) > 1 {
		chart := asciigraph.Plot(m.energy,
			asciigraph.Height(4), asciigraph.Width(30), asciigraph.Caption("Energy"))
		s.WriteString(graphStyle.Render(chart) + "\n\n")
	}

	s.WriteString(labelStyle.Render("Time") + valueStyle.Render(fmt.Sprintf("%.2fs", m.sys.Time())) + "\n")
	if len(m.energy) > 0 {
		s.WriteString(labelStyle.Render("Energy") + valueStyle.Render(fmt.Sprintf("%.4f", m.energy[len(m.energy)-1])) + "\n")
	}
	s.WriteString(labelStyle.Render("Bodies") + valueStyle.Render(fmt.Sprintf("%d", m.sys.BodyCount())) + "\n")
	s.WriteString(labelStyle.Render("Joints") + valueStyle.Render(fmt.Sprintf("%d", m.sys.JointCount())) + "\n")
	viol := m.sys.MaxConstraintViolation(m.sys.State())
	s.WriteString(labelStyle.Render("Joint gap") + valueStyle.Render(fmt.Sprintf("%.2e", viol)) + "\n")

	s.WriteString(helpStyle.Render("\n─────────────────────\nSP:Pause R:Reset Q:Quit"))

	return lipgloss.JoinHorizontal(lipgloss.Top, canvasView, statsStyle.Render(s.String()))
}
