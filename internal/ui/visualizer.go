package ui

import (
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/crazy3lf/colorconv"
	"github.com/lucasb-eyer/go-colorful"

	"github.com/cybre/backdrop-sync/internal/palette"
	"github.com/cybre/backdrop-sync/internal/scene"
	"github.com/cybre/backdrop-sync/internal/utils"
)

// Visualizer previews scene frames in the terminal. It satisfies
// scene.Renderer and throttles what it forwards to the TUI.
type Visualizer struct {
	program   *tea.Program
	mu        sync.Mutex
	lastSend  time.Time
	throttle  time.Duration
	closeOnce sync.Once
}

type frameMsg struct {
	frame      scene.Frame
	receivedAt time.Time
}

type visualizerModel struct {
	frame       scene.Frame
	lastUpdated time.Time
	ready       bool
	width       int
	height      int
	onExit      func()
	exitOnce    sync.Once
}

var (
	vizContainerStyle    = lipgloss.NewStyle().Padding(0, 2)
	vizTimestampStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	vizMetricLabelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	vizMetricValueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252")).Bold(true)
	vizFlagActiveStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("197")).Bold(true)
	vizFlagInactiveStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	vizWaitingStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Italic(true)
	vizHintStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("239"))
	vizTextStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("229")).Italic(true)
)

const (
	vizBarWidth   = 32
	gradientCells = 36
	renderLatency = 45 * time.Millisecond
)

// NewVisualizer starts the preview TUI. onExit runs when the user quits.
func NewVisualizer(onExit func()) *Visualizer {
	model := &visualizerModel{onExit: onExit}
	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithoutSignalHandler())

	v := &Visualizer{
		program:  program,
		throttle: renderLatency,
	}

	go program.Run()

	return v
}

// Render forwards f unless the previous frame went out less than the
// throttle interval ago.
func (v *Visualizer) Render(f scene.Frame) {
	v.mu.Lock()
	if time.Since(v.lastSend) < v.throttle {
		v.mu.Unlock()
		return
	}
	v.lastSend = time.Now()
	v.mu.Unlock()

	v.program.Send(frameMsg{
		frame:      f,
		receivedAt: time.Now(),
	})
}

func (v *Visualizer) Close() {
	v.closeOnce.Do(func() {
		v.program.Quit()
	})
}

func (m *visualizerModel) Init() tea.Cmd {
	return nil
}

func (m *visualizerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case frameMsg:
		m.frame = msg.frame
		m.lastUpdated = msg.receivedAt
		m.ready = true
	case tea.KeyMsg:
		switch {
		case msg.Type == tea.KeyCtrlC:
			m.invokeExit()
			return m, tea.Quit
		case msg.String() == "q", msg.String() == "esc":
			m.invokeExit()
			return m, tea.Quit
		}
	case tea.QuitMsg:
		return m, tea.Quit
	}
	return m, nil
}

func (m *visualizerModel) View() string {
	body := ""
	if !m.ready {
		header := titleStyle.Render("Backdrop Preview")
		waiting := vizWaitingStyle.Render("Waiting for frames…")
		body = lipgloss.JoinVertical(lipgloss.Left, header, "", waiting)
	} else {
		body = renderVisualizerView(m.frame, m.lastUpdated)
	}
	return vizContainerStyle.Render(body)
}

func renderVisualizerView(f scene.Frame, updatedAt time.Time) string {
	parts := []string{
		renderHeader(f, updatedAt),
		renderMetrics(f),
		"",
		renderStops(f.Palette),
		renderGradient(f.Palette),
		"",
		renderBars(f),
	}
	if f.HealingText != "" {
		parts = append(parts, "", vizTextStyle.Render("“"+f.HealingText+"”"))
	}
	parts = append(parts, "", vizHintStyle.Render("Press q / esc / ctrl+c to stop preview"))

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func renderHeader(f scene.Frame, updatedAt time.Time) string {
	title := titleStyle.
		Foreground(lipgloss.Color(f.Palette.Accent.Clamped().Hex())).
		Render("Backdrop Preview")
	timestamp := vizTimestampStyle.Render(updatedAt.Format("15:04:05.000"))

	return lipgloss.JoinHorizontal(lipgloss.Left, title, "  ", timestamp)
}

func renderMetrics(f scene.Frame) string {
	stage := renderMetric("Stage", fmt.Sprintf("%s/%s", f.Stage, f.Stage.Mode()))
	segment := renderMetric("Segment", fmt.Sprintf("%7.3f", f.Segment))
	phase := renderMetric("Phase", fmt.Sprintf("%+6.3f", f.Phase))

	step := renderMetric("Step", fmt.Sprintf("%d", f.Step))
	overlay := renderMetric("Overlay", fmt.Sprintf("%d", f.OverlayIndex))
	camera := renderMetric("Camera", fmt.Sprintf("%.2f,%.2f,%.2f", f.Camera.X, f.Camera.Y, f.Camera.Z))

	flags := lipgloss.JoinHorizontal(lipgloss.Left,
		renderFlag("locked", f.Locked), " ",
		renderFlag("hold", f.Holding), " ",
		renderFlag("tween", f.Tweening), " ",
		renderFlag("final", f.Finalized), " ",
		renderFlag("remote", f.ControllerPresent),
	)

	top := lipgloss.JoinHorizontal(lipgloss.Left, stage, "   ", segment, "   ", phase)
	mid := lipgloss.JoinHorizontal(lipgloss.Left, step, "   ", overlay, "   ", camera)

	return lipgloss.JoinVertical(lipgloss.Left, top, mid, flags)
}

func renderMetric(label, value string) string {
	return lipgloss.JoinHorizontal(
		lipgloss.Left,
		vizMetricLabelStyle.Render(label+":"),
		" ",
		vizMetricValueStyle.Render(value),
	)
}

func renderFlag(label string, on bool) string {
	if on {
		return vizFlagActiveStyle.Render("● " + label)
	}
	return vizFlagInactiveStyle.Render("○ " + label)
}

func renderStops(p palette.Palette) string {
	blocks := make([]string, 0, palette.StopCount+1)
	for _, c := range p.Stops {
		blocks = append(blocks, swatch(c, "    "))
	}
	blocks = append(blocks, "  ", swatch(p.Accent, "  ◆ "))

	return lipgloss.JoinHorizontal(
		lipgloss.Left,
		subtitleStyle.Render("Stops "),
		strings.Join(blocks, ""),
		"  ",
		vizMetricValueStyle.Render(strings.Join(p.Hex(), " ")),
	)
}

func swatch(c colorful.Color, text string) string {
	return lipgloss.NewStyle().Background(lipgloss.Color(c.Clamped().Hex())).Render(text)
}

// renderGradient samples the stops across the strip and marks the bands.
func renderGradient(p palette.Palette) string {
	var b strings.Builder
	for i := 0; i < gradientCells; i++ {
		pos := float64(i) / float64(gradientCells-1)
		c := sampleStops(p, pos)
		ch := " "
		if pos >= p.BandStart && pos <= p.BandEnd {
			ch = "▒"
		}
		b.WriteString(lipgloss.NewStyle().
			Background(lipgloss.Color(c.Clamped().Hex())).
			Foreground(lipgloss.Color(p.Accent.Clamped().Hex())).
			Render(ch))
	}
	return lipgloss.JoinHorizontal(lipgloss.Left, subtitleStyle.Render("Field "), b.String())
}

func sampleStops(p palette.Palette, pos float64) colorful.Color {
	x := utils.Clamp01(pos) * float64(palette.StopCount-1)
	i := int(math.Floor(x))
	if i >= palette.StopCount-1 {
		return p.Stops[palette.StopCount-1]
	}
	return p.Stops[i].BlendRgb(p.Stops[i+1], x-float64(i))
}

func renderBars(f scene.Frame) string {
	lines := []string{
		renderBar("Progress", f.Progress, vizThemes["Progress"]),
		renderBar("Band start", f.Palette.BandStart, vizThemes["Band"]),
		renderBar("Band end", f.Palette.BandEnd, vizThemes["Band"]),
		renderBar("Opacity", f.OverlayOpacity, vizThemes["Opacity"]),
		renderBar("Flash", f.Flash, vizThemes["Flash"]),
	}
	return strings.Join(lines, "\n")
}

func renderBar(label string, value float64, theme barTheme) string {
	theme = normalizeBarTheme(theme)

	clamped := utils.Clamp01(value)
	filled := int(math.Round(clamped * vizBarWidth))
	if clamped > 0 && filled == 0 {
		filled = 1
	}
	if filled > vizBarWidth {
		filled = vizBarWidth
	}

	builder := strings.Builder{}
	builder.Grow(128)
	builder.WriteString(theme.LabelStyle.Render(fmt.Sprintf("%-14s", label)))
	builder.WriteString(" [")

	if filled > 0 {
		steps := filled - 1
		if steps <= 0 {
			steps = 1
		}
		for i := 0; i < filled; i++ {
			progress := float64(i) / float64(steps)
			hue := theme.HueStart + (theme.HueEnd-theme.HueStart)*progress
			value := utils.Clamp01(theme.ValueBase + theme.ValueSpan*progress)
			color := lipgloss.Color(hexColorFromHSV(hue, theme.Saturation, value))
			builder.WriteString(lipgloss.NewStyle().
				Foreground(color).
				Render(theme.FilledChar))
		}
	}

	empty := vizBarWidth - filled
	if empty > 0 {
		emptyBlock := theme.EmptyStyle.Render(theme.EmptyChar)
		for i := 0; i < empty; i++ {
			builder.WriteString(emptyBlock)
		}
	}

	builder.WriteString("] ")
	builder.WriteString(theme.ValueStyle.Render(fmt.Sprintf("%3.0f%%", clamped*100)))

	return builder.String()
}

type barTheme struct {
	LabelStyle lipgloss.Style
	ValueStyle lipgloss.Style
	EmptyStyle lipgloss.Style

	HueStart   float64
	HueEnd     float64
	Saturation float64
	ValueBase  float64
	ValueSpan  float64

	FilledChar string
	EmptyChar  string
}

var defaultBarTheme = barTheme{
	LabelStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("250")),
	ValueStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("250")),
	EmptyStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("236")),
	HueStart:   210,
	HueEnd:     210,
	Saturation: 0.8,
	ValueBase:  0.35,
	ValueSpan:  0.45,
	FilledChar: "█",
	EmptyChar:  "░",
}

var vizThemes = map[string]barTheme{
	"Progress": {
		LabelStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("45")).Bold(true),
		ValueStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("159")),
		EmptyStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("238")),
		HueStart:   190,
		HueEnd:     140,
		Saturation: 0.85,
		ValueBase:  0.35,
		ValueSpan:  0.55,
	},
	"Band": {
		LabelStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("208")).Bold(true),
		ValueStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("215")),
		EmptyStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("237")),
		HueStart:   25,
		HueEnd:     45,
		Saturation: 0.92,
		ValueBase:  0.4,
		ValueSpan:  0.5,
	},
	"Opacity": {
		LabelStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("177")).Bold(true),
		ValueStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("213")),
		EmptyStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("236")),
		HueStart:   285,
		HueEnd:     315,
		Saturation: 0.95,
		ValueBase:  0.4,
		ValueSpan:  0.5,
	},
	"Flash": {
		LabelStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("226")).Bold(true),
		ValueStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("229")),
		EmptyStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("236")),
		HueStart:   55,
		HueEnd:     75,
		Saturation: 0.9,
		ValueBase:  0.35,
		ValueSpan:  0.55,
	},
}

func normalizeBarTheme(theme barTheme) barTheme {
	if theme.FilledChar == "" {
		theme.FilledChar = defaultBarTheme.FilledChar
	}
	if theme.EmptyChar == "" {
		theme.EmptyChar = defaultBarTheme.EmptyChar
	}
	if theme.Saturation <= 0 {
		theme.Saturation = defaultBarTheme.Saturation
	}
	if theme.ValueSpan <= 0 {
		theme.ValueSpan = defaultBarTheme.ValueSpan
	}
	if theme.ValueBase <= 0 {
		theme.ValueBase = defaultBarTheme.ValueBase
	}
	return theme
}

func hexColorFromHSV(h, s, v float64) string {
	s = utils.Clamp01(s)
	v = utils.Clamp01(v)
	r, g, b, err := colorconv.HSVToRGB(math.Mod(h, 360), s, v)
	if err != nil {
		return "#FFFFFF"
	}
	return fmt.Sprintf("#%02x%02x%02x", r, g, b)
}

func (m *visualizerModel) invokeExit() {
	m.exitOnce.Do(func() {
		if m.onExit != nil {
			m.onExit()
		}
	})
}
