package sim

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"flightops-sim/internal/config"
	"flightops-sim/internal/kinematics"
	"flightops-sim/internal/telemetry"
)

// teaProgram abstracts bubbletea.Program for testing.
type teaProgram interface {
	Send(tea.Msg)
}

// Clock control actions sent from the TUI.
const (
	ControlPauseResume = "pause-resume"
	ControlFaster      = "faster"
	ControlSlower      = "slower"
	ControlRetrigger   = "retrigger"
)

// logMsg carries a log line for the viewport.
type logMsg struct{ line string }

// flightMsg carries the latest flight rows.
type flightMsg struct{ rows []telemetry.FlightRow }

// roamerMsg carries one roamer update.
type roamerMsg struct{ telemetry.RoamerRow }

// stateMsg carries a clock state update.
type stateMsg struct{ telemetry.ClockStateRow }

// adminMsg reports admin API status.
type adminMsg struct{ active bool }

type setControlMsg struct{ fn func(string) }

const maxLogLines = 1000

// TUIWriter renders the flight board using a bubbletea TUI.
type TUIWriter struct {
	program    teaProgram
	done       chan struct{}
	sendSignal atomic.Bool
}

// NewTUIWriter starts a bubbletea program and returns a TUIWriter. Quitting
// the TUI interrupts the process so the simulator shuts down cleanly.
func NewTUIWriter(cfg *config.SimulationConfig) *TUIWriter {
	w := &TUIWriter{done: make(chan struct{})}
	w.sendSignal.Store(true)
	p := tea.NewProgram(newTUIModel(cfg), tea.WithAltScreen())
	w.program = p
	go func() {
		_, _ = p.Run()
		close(w.done)
		if w.sendSignal.Load() {
			if proc, err := os.FindProcess(os.Getpid()); err == nil {
				_ = proc.Signal(os.Interrupt)
			}
		}
	}()
	return w
}

// Write implements FlightWriter.
func (w *TUIWriter) Write(row telemetry.FlightRow) error {
	return w.WriteBatch([]telemetry.FlightRow{row})
}

// WriteBatch sends the whole board in one message.
func (w *TUIWriter) WriteBatch(rows []telemetry.FlightRow) error {
	cp := make([]telemetry.FlightRow, len(rows))
	copy(cp, rows)
	w.program.Send(flightMsg{rows: cp})
	return nil
}

// WriteRoamer implements RoamerWriter.
func (w *TUIWriter) WriteRoamer(row telemetry.RoamerRow) error {
	w.program.Send(roamerMsg{row})
	return nil
}

// WriteTrigger implements TriggerWriter.
func (w *TUIWriter) WriteTrigger(r telemetry.TriggerRow) error {
	line := fmt.Sprintf("%s[%s]%s %sREOPTIMIZE%s reason=%s id=%s next=%s",
		colorGray, r.SimTime.Format(time.RFC3339), colorReset,
		colorMagenta, colorReset, r.Reason, r.TriggerID, r.NextTrigger.Format("15:04:05"))
	if r.Error != "" {
		line += fmt.Sprintf(" %serr=%s%s", colorRed, r.Error, colorReset)
	}
	w.program.Send(logMsg{line: line})
	return nil
}

// WriteState implements StateWriter.
func (w *TUIWriter) WriteState(row telemetry.ClockStateRow) error {
	w.program.Send(stateMsg{row})
	return nil
}

// SetAdminStatus implements AdminStatusWriter.
func (w *TUIWriter) SetAdminStatus(active bool) {
	w.program.Send(adminMsg{active: active})
}

// SetControls registers the callback invoked for clock control keys.
func (w *TUIWriter) SetControls(fn func(action string)) {
	w.program.Send(setControlMsg{fn: fn})
}

// LogWriter returns a writer that shows each line in the log pane. The
// logger writes here while the TUI owns the terminal.
func (w *TUIWriter) LogWriter() io.Writer { return tuiLog{program: w.program} }

type tuiLog struct{ program teaProgram }

func (l tuiLog) Write(p []byte) (int, error) {
	for _, line := range strings.Split(strings.TrimRight(string(p), "\n"), "\n") {
		l.program.Send(logMsg{line: line})
	}
	return len(p), nil
}

// Close stops the TUI without interrupting the process.
func (w *TUIWriter) Close() error {
	w.sendSignal.Store(false)
	if w.program != nil {
		w.program.Send(tea.Quit())
	}
	if w.done != nil {
		<-w.done
	}
	return nil
}

type tuiModel struct {
	cfg        *config.SimulationConfig
	table      table.Model
	vp         viewport.Model
	flights    map[string]telemetry.FlightRow
	roamers    map[string]telemetry.RoamerRow
	logs       []string
	state      telemetry.ClockStateRow
	admin      bool
	wrap       bool
	autoscroll bool
	help       bool
	width      int
	height     int
	control    func(string)
}

var flightColumnsTUI = []table.Column{
	{Title: "Flight", Width: 8},
	{Title: "Phase", Width: 10},
	{Title: "Lat", Width: 9},
	{Title: "Lng", Width: 10},
	{Title: "Hdg", Width: 5},
	{Title: "Prog", Width: 6},
	{Title: "Rem NM", Width: 8},
	{Title: "ETA", Width: 9},
}

func newTUIModel(cfg *config.SimulationConfig) tuiModel {
	t := table.New(table.WithColumns(flightColumnsTUI), table.WithHeight(6))
	m := tuiModel{
		cfg:        cfg,
		table:      t,
		vp:         viewport.New(0, 0),
		flights:    make(map[string]telemetry.FlightRow),
		roamers:    make(map[string]telemetry.RoamerRow),
		autoscroll: true,
	}
	return m
}

func (m tuiModel) Init() tea.Cmd { return nil }

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.table.SetWidth(msg.Width)
		m.vp.Width = msg.Width
		m.updateViewportHeight()
		m.refreshViewport()
	case tea.KeyMsg:
		if m.help {
			switch msg.String() {
			case "?", "h", "esc":
				m.help = false
			}
			return m, nil
		}
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "w":
			m.wrap = !m.wrap
			m.refreshViewport()
			return m, nil
		case "s":
			m.autoscroll = !m.autoscroll
			if m.autoscroll {
				m.vp.GotoBottom()
			}
			return m, nil
		case "h", "?":
			m.help = true
			return m, nil
		case " ", "p":
			m.sendControl(ControlPauseResume)
			return m, nil
		case "+", "=":
			m.sendControl(ControlFaster)
			return m, nil
		case "-":
			m.sendControl(ControlSlower)
			return m, nil
		case "r":
			m.sendControl(ControlRetrigger)
			return m, nil
		}
		if !m.autoscroll {
			switch msg.String() {
			case "j", "down":
				m.vp.LineDown(1)
			case "k", "up":
				m.vp.LineUp(1)
			case "pgdown", "ctrl+n":
				m.vp.LineDown(10)
			case "pgup", "ctrl+p":
				m.vp.LineUp(10)
			default:
				var cmd tea.Cmd
				m.vp, cmd = m.vp.Update(msg)
				return m, cmd
			}
		}
		return m, nil
	case logMsg:
		m.logs = append(m.logs, msg.line)
		if len(m.logs) > maxLogLines {
			m.logs = m.logs[len(m.logs)-maxLogLines:]
		}
		m.refreshViewport()
	case flightMsg:
		for _, r := range msg.rows {
			m.flights[r.Code] = r
		}
		m.table.SetRows(m.flightRows())
	case roamerMsg:
		m.roamers[msg.ID] = msg.RoamerRow
	case stateMsg:
		m.state = msg.ClockStateRow
	case adminMsg:
		m.admin = msg.active
	case setControlMsg:
		m.control = msg.fn
	}
	return m, nil
}

func (m tuiModel) sendControl(action string) {
	if m.control != nil {
		go m.control(action)
	}
}

func (m tuiModel) flightRows() []table.Row {
	codes := make([]string, 0, len(m.flights))
	for c := range m.flights {
		codes = append(codes, c)
	}
	sort.Strings(codes)
	rows := make([]table.Row, 0, len(codes))
	for _, c := range codes {
		f := m.flights[c]
		eta := "-"
		if f.ETASeconds > 0 {
			eta = (time.Duration(f.ETASeconds) * time.Second).String()
		}
		rows = append(rows, table.Row{
			f.Code,
			f.Phase,
			fmt.Sprintf("%.3f", f.Lat),
			fmt.Sprintf("%.3f", f.Lng),
			fmt.Sprintf("%.0f", f.BearingDeg),
			fmt.Sprintf("%.0f%%", f.Progress*100),
			fmt.Sprintf("%.0f", f.RemainingNM),
			eta,
		})
	}
	return rows
}

func (m *tuiModel) updateViewportHeight() {
	used := lipgloss.Height(m.renderHeader()) + lipgloss.Height(m.table.View()) +
		lipgloss.Height(m.renderRoamers()) + lipgloss.Height(m.renderBottom()) + 4
	h := m.height - used
	if h < 0 {
		h = 0
	}
	m.vp.Height = h
	if m.autoscroll {
		m.vp.GotoBottom()
	}
}

// renderLogs joins the log lines, wrapped to the viewport width when
// wrapping is on.
func (m tuiModel) renderLogs() string {
	lines := make([]string, 0, len(m.logs))
	for _, l := range m.logs {
		if m.wrap && m.vp.Width > 0 {
			lines = append(lines, wordwrap.String(l, m.vp.Width))
		} else {
			lines = append(lines, l)
		}
	}
	return strings.Join(lines, "\n")
}

func (m *tuiModel) refreshViewport() {
	m.vp.SetContent(m.renderLogs())
	if m.autoscroll {
		m.vp.GotoBottom()
	}
}

func (m tuiModel) View() string {
	if m.help {
		return m.renderHelp()
	}
	divider := strings.Repeat("─", m.width)
	sections := []string{
		m.renderHeader(),
		divider,
		m.table.View(),
		divider,
		m.renderRoamers(),
		divider,
		m.vp.View(),
		divider,
		m.renderBottom(),
	}
	return strings.Join(sections, "\n")
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

func (m tuiModel) renderHeader() string {
	st := m.state
	if st.State == "" {
		return headerStyle.Render("FLIGHTOPS") + dimStyle.Render("  waiting for clock")
	}
	stateColor := lipgloss.Color("10")
	switch st.State {
	case "paused":
		stateColor = lipgloss.Color("11")
	case "stopped":
		stateColor = lipgloss.Color("9")
	}
	state := lipgloss.NewStyle().Foreground(stateColor).Render(strings.ToUpper(st.State))
	next := "-"
	if !st.NextTrigger.IsZero() {
		next = st.NextTrigger.Format("15:04:05")
	}
	return fmt.Sprintf("%s %s  sim=%s  speed=%gx  airborne=%d  next re-opt=%s",
		headerStyle.Render("FLIGHTOPS"), state,
		st.SimTime.Format("2006-01-02 15:04:05"), st.Speed, st.Airborne, next)
}

func (m tuiModel) renderRoamers() string {
	if len(m.roamers) == 0 {
		return dimStyle.Render("Roamers: none")
	}
	ids := make([]string, 0, len(m.roamers))
	for id := range m.roamers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		r := m.roamers[id]
		c := colorGreen
		if kinematics.Status(r.Status).Terminal() {
			c = colorGray
		} else if kinematics.Status(r.Status) == kinematics.StatusHolding {
			c = colorYellow
		}
		parts = append(parts, fmt.Sprintf("%s%s%s(%.2f,%.2f %03.0f°)", c, id, colorReset, r.Lat, r.Lng, r.HeadingDeg))
	}
	line := "Roamers: " + strings.Join(parts, " ")
	if m.wrap && m.width > 0 {
		line = wordwrap.String(line, m.width)
	}
	return line
}

func indicator(on bool) string {
	c := lipgloss.Color("9")
	if on {
		c = lipgloss.Color("10")
	}
	return lipgloss.NewStyle().Foreground(c).Render("●")
}

func (m tuiModel) renderBottom() string {
	return fmt.Sprintf("Admin API %s | Wrap %s | Scroll %s | flights=%d roamers=%d | ? help",
		indicator(m.admin), indicator(m.wrap), indicator(m.autoscroll), len(m.flights), len(m.roamers))
}

func (m tuiModel) renderHelp() string {
	lines := []string{
		"Key Bindings:",
		" q       quit",
		" space/p pause or resume the clock",
		" + / -   double or halve the clock speed",
		" r       re-optimize now",
		" w       toggle wrap",
		" s       toggle auto-scroll",
		" h/?     toggle this help view",
		"",
		"When auto-scroll is disabled:",
		" j/k or up/down    scroll one line",
		" pgdown/pgup       scroll a page",
	}
	return strings.Join(lines, "\n")
}
