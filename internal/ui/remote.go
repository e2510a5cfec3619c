package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/cybre/backdrop-sync/internal/bus"
	"github.com/cybre/backdrop-sync/internal/control"
	"github.com/cybre/backdrop-sync/internal/frame"
	"github.com/cybre/backdrop-sync/internal/gesture"
	"github.com/cybre/backdrop-sync/internal/utils"
)

// RemoteConfig configures the controller pad.
type RemoteConfig struct {
	Gesture      gesture.Options
	OverlayCount int
	StepCount    int
	// WheelStep is the synthetic wheel delta one arrow press produces.
	WheelStep    float64
	TickInterval time.Duration
	Connected    func() bool
}

func (c RemoteConfig) withDefaults() RemoteConfig {
	if c.Gesture == (gesture.Options{}) {
		c.Gesture = gesture.DefaultOptions()
	}
	if c.OverlayCount <= 0 {
		c.OverlayCount = 4
	}
	if c.StepCount <= 0 {
		c.StepCount = 6
	}
	if c.WheelStep <= 0 {
		c.WheelStep = 120
	}
	if c.TickInterval <= 0 {
		c.TickInterval = 16 * time.Millisecond
	}
	return c
}

// RunRemote runs the pad until the user quits or ctx is done.
func RunRemote(ctx context.Context, b bus.Bus, cfg RemoteConfig) error {
	if !IsInteractiveTerminal() {
		return ErrNoInteractiveTTY
	}

	model := newRemoteModel(ctx, b, cfg)
	program := tea.NewProgram(model, tea.WithAltScreen())

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			program.Quit()
		case <-stop:
		}
	}()

	_, err := program.Run()
	model.engine.Dispose()
	return err
}

type remoteAction struct {
	key   string
	label string
	run   func(m *remoteModel)
}

type remoteTickMsg time.Time

type remoteModel struct {
	ctx     context.Context
	bus     bus.Bus
	cfg     RemoteConfig
	loop    *frame.Loop
	engine  *gesture.Engine
	actions []remoteAction
	cursor  int

	progress      float64
	progressDirty bool
	// travel clamped away at either end, sent as phase so displays keep cycling
	overflow float64

	step    int
	overlay int
	opacity float64
	text    string

	editing bool
	input   textinput.Model

	lastSent string
	err      error
	sent     int
}

func newRemoteModel(ctx context.Context, b bus.Bus, cfg RemoteConfig) *remoteModel {
	cfg = cfg.withDefaults()
	loop := frame.NewLoop()

	input := textinput.New()
	input.Placeholder = "healing text"
	input.CharLimit = 280
	input.Width = 48

	m := &remoteModel{
		ctx:    ctx,
		bus:    b,
		cfg:    cfg,
		loop:   loop,
		engine: gesture.NewEngine(loop, cfg.Gesture),
		input:  input,
	}
	m.engine.OnChange(func(s gesture.Sample) {
		if s.Source == gesture.SourceIntegration && (s.Value == 0 || s.Value == 1) {
			m.overflow += s.Overflow(m.progress)
		}
		m.progress = s.Value
		m.progressDirty = true
	})
	m.actions = []remoteAction{
		{key: "s", label: "Confirm selection", run: func(m *remoteModel) { m.send(control.Select{}) }},
		{key: "r", label: "Randomize palette", run: func(m *remoteModel) { m.send(control.Randomize{}) }},
		{key: "n", label: "Next step", run: func(m *remoteModel) { m.moveStep(1) }},
		{key: "p", label: "Previous step", run: func(m *remoteModel) { m.moveStep(-1) }},
		{key: "o", label: "Next overlay", run: func(m *remoteModel) { m.setOverlay(m.overlay + 1) }},
		{key: "+", label: "Overlay opacity up", run: func(m *remoteModel) { m.nudgeOpacity(0.1) }},
		{key: "-", label: "Overlay opacity down", run: func(m *remoteModel) { m.nudgeOpacity(-0.1) }},
		{key: "t", label: "Edit healing text", run: func(m *remoteModel) { m.startEditing() }},
		{key: "c", label: "Clear healing text", run: func(m *remoteModel) { m.sendText("") }},
	}
	return m
}

func (m *remoteModel) tick() tea.Cmd {
	return tea.Tick(m.cfg.TickInterval, func(t time.Time) tea.Msg {
		return remoteTickMsg(t)
	})
}

func (m *remoteModel) Init() tea.Cmd {
	return m.tick()
}

func (m *remoteModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case remoteTickMsg:
		m.loop.Tick(time.Time(msg))
		m.flushProgress()
		return m, m.tick()
	case tea.KeyMsg:
		if m.editing {
			return m.updateEditing(msg)
		}
		return m.updateKeys(msg)
	}
	return m, nil
}

func (m *remoteModel) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	switch key {
	case "ctrl+c", "esc", "q":
		return m, tea.Quit
	case "up", "k":
		m.engine.AddWheelDelta(-m.cfg.WheelStep)
	case "down", "j":
		m.engine.AddWheelDelta(m.cfg.WheelStep)
	case "pgup":
		m.engine.AddWheelDelta(-m.cfg.WheelStep * 5)
	case "pgdown":
		m.engine.AddWheelDelta(m.cfg.WheelStep * 5)
	case "home":
		m.engine.SetValue(0, time.Now())
		m.flushProgress()
	case "end":
		m.engine.SetValue(1, time.Now())
		m.flushProgress()
	case "tab":
		m.cursor = wrapIndex(m.cursor+1, len(m.actions))
	case "shift+tab":
		m.cursor = wrapIndex(m.cursor-1, len(m.actions))
	case "enter":
		m.actions[m.cursor].run(m)
	default:
		if len(key) == 1 && key[0] >= '0' && key[0] <= '9' {
			m.setOverlay(int(key[0] - '0'))
			return m, nil
		}
		for i, a := range m.actions {
			if a.key == key {
				m.cursor = i
				a.run(m)
				break
			}
		}
	}
	return m, nil
}

func (m *remoteModel) updateEditing(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "esc":
		m.editing = false
		m.input.Blur()
		return m, nil
	case "enter":
		m.editing = false
		m.input.Blur()
		m.sendText(m.input.Value())
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *remoteModel) startEditing() {
	m.editing = true
	m.input.SetValue(m.text)
	m.input.CursorEnd()
	m.input.Focus()
}

func (m *remoteModel) send(ev control.Event) {
	m.err = control.Publish(m.ctx, m.bus, ev)
	if m.err == nil {
		m.sent++
		m.lastSent = string(ev.Kind())
	}
}

func (m *remoteModel) sendText(text string) {
	m.text = text
	m.send(control.HealingText{Text: text})
}

func (m *remoteModel) flushProgress() {
	if !m.progressDirty {
		return
	}
	m.progressDirty = false
	m.send(control.Progress{Value: m.progress})
	if m.overflow != 0 {
		m.send(control.Phase{Delta: m.overflow})
		m.overflow = 0
	}
}

func (m *remoteModel) moveStep(delta int) {
	m.step = utils.ClampIndex(m.step+delta, m.cfg.StepCount)
	if delta > 0 {
		m.send(control.Next{})
	} else {
		m.send(control.Prev{})
	}
}

func (m *remoteModel) setOverlay(idx int) {
	m.overlay = wrapIndex(idx, m.cfg.OverlayCount)
	m.send(control.OverlayIndex{Index: m.overlay})
}

func (m *remoteModel) nudgeOpacity(delta float64) {
	m.opacity = utils.Clamp01(m.opacity + delta)
	m.send(control.OverlayOpacity{Opacity: m.opacity})
}

func (m *remoteModel) View() string {
	connection := summaryValueStyle.Render("unknown")
	if m.cfg.Connected != nil {
		if m.cfg.Connected() {
			connection = summaryValueStyle.Render("connected")
		} else {
			connection = errorStyle.Render("disconnected")
		}
	}

	status := []string{
		renderSummaryRow("Relay", "") + connection,
		renderSummaryRow("Progress", fmt.Sprintf("%5.3f", m.progress)) + "  " + renderProgressBar(m.progress, 32),
		renderSummaryRow("Step", fmt.Sprintf("%d/%d", m.step+1, m.cfg.StepCount)),
		renderSummaryRow("Overlay", fmt.Sprintf("%d  opacity %3.0f%%", m.overlay, m.opacity*100)),
		renderSummaryRow("Text", quoteOrDash(m.text)),
	}
	if m.lastSent != "" {
		status = append(status, renderSummaryRow("Sent", fmt.Sprintf("%s (%d total)", m.lastSent, m.sent)))
	}
	if m.err != nil {
		status = append(status, errorStyle.Render("publish failed: "+m.err.Error()))
	}

	rows := make([]string, len(m.actions))
	for i, a := range m.actions {
		active := i == m.cursor
		label := fmt.Sprintf("[%s] %s", a.key, a.label)
		rows[i] = lipgloss.JoinHorizontal(lipgloss.Left,
			renderPointer(active),
			" ",
			renderOptionLabel(label, active),
		)
	}

	instructions := []string{"↑/k ↓/j scroll", "tab/shift+tab move", "enter run", "0-9 overlay", "q quit"}
	if m.editing {
		instructions = []string{"enter send", "esc cancel"}
	}

	lines := []string{
		"",
		titleStyle.Render("Backdrop Remote"),
		"",
		strings.Join(status, "\n"),
		"",
		lipgloss.JoinVertical(lipgloss.Left, rows...),
	}
	if m.editing {
		lines = append(lines, "", subtitleStyle.Render("Healing text"), m.input.View())
	}
	lines = append(lines, "", renderInstructions(instructions), "")
	return strings.Join(lines, "\n")
}

func quoteOrDash(s string) string {
	if s == "" {
		return "-"
	}
	return fmt.Sprintf("%q", s)
}

func renderProgressBar(v float64, width int) string {
	filled := int(utils.Clamp01(v)*float64(width) + 0.5)
	return strings.Repeat("█", filled) + inactivePointerStyle.Render(strings.Repeat("░", width-filled))
}
