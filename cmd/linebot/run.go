package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"

	"github.com/NimbleMarkets/ntcharts/canvas/runes"
	"github.com/NimbleMarkets/ntcharts/linechart/streamlinechart"

	"github.com/gwillem/linebot/pkg/autopilot"
	"github.com/gwillem/linebot/pkg/bridge"
	"github.com/gwillem/linebot/pkg/line"
	"github.com/gwillem/linebot/pkg/mission"
	"github.com/gwillem/linebot/pkg/robot"
	"github.com/gwillem/linebot/pkg/tag"
	"github.com/gwillem/linebot/pkg/tuning"
)

type RunCommand struct {
	Hz     int    `long:"hz" default:"200" description:"Control loop frequency"`
	Tuning string `long:"tuning" description:"Navigation tuning file (overrides the config)"`
}

const (
	headerHeight = 3 // title + status + blank line
	legendHeight = 2 // legend row + blank
	footerHeight = 7 // log box height
	maxLogs      = 5 // number of log messages to show
	borderSize   = 2 // chart border
	sensorMax    = 1023
)

var sensorColors = map[string]string{
	"left":  "196", // red
	"right": "51",  // cyan
	"front": "226", // yellow
}

var sensorNames = []string{"left", "right", "front"}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	chartStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	stateStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
)

type runModel struct {
	runner   *autopilot.Runner
	chart    *streamlinechart.Model
	width    int      // terminal width
	height   int      // terminal height
	logs     []string // last N log messages
	th       line.Thresholds
	last     mission.Snapshot
	quitting bool
}

func (m *runModel) addLog(msg string) {
	m.logs = append(m.logs, msg)
	if len(m.logs) > maxLogs {
		m.logs = m.logs[len(m.logs)-maxLogs:]
	}
}

// Messages from the runner
type stateMsg mission.Snapshot
type logMsg string

func waitForState(r *autopilot.Runner) tea.Cmd {
	return func() tea.Msg {
		return stateMsg(<-r.States())
	}
}

func waitForLog(r *autopilot.Runner) tea.Cmd {
	return func() tea.Msg {
		return logMsg(<-r.Logs())
	}
}

// chartSize calculates the size of the chart based on terminal dimensions
func (m *runModel) chartSize() (width, height int) {
	if m.width == 0 || m.height == 0 {
		return 80, 20
	}
	width = max(m.width-borderSize-2, 40)
	height = max(m.height-headerHeight-legendHeight-footerHeight-borderSize, 10)
	return width, height
}

func (m *runModel) resizeChart() {
	w, h := m.chartSize()
	m.chart.Resize(w, h)
}

func initialRunModel(r *autopilot.Runner, th line.Thresholds) runModel {
	chart := streamlinechart.New(80, 20,
		streamlinechart.WithYRange(0, sensorMax),
	)
	for _, name := range sensorNames {
		style := lipgloss.NewStyle().Foreground(lipgloss.Color(sensorColors[name]))
		chart.SetDataSetStyles(name, runes.ThinLineStyle, style)
	}
	return runModel{
		runner: r,
		chart:  &chart,
		th:     th,
	}
}

func (m runModel) Init() tea.Cmd {
	return tea.Batch(
		waitForState(m.runner),
		waitForLog(m.runner),
	)
}

func (m runModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resizeChart()
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}

	case stateMsg:
		s := mission.Snapshot(msg)
		// Freeze the chart while parked at a tag.
		if s.State != mission.WaitForTag || s.State != m.last.State {
			m.chart.PushDataSet("left", float64(s.Reading.Left))
			m.chart.PushDataSet("right", float64(s.Reading.Right))
			m.chart.PushDataSet("front", float64(min(s.Front, sensorMax)))
			m.chart.DrawAll()
		}
		m.last = s
		return m, waitForState(m.runner)

	case logMsg:
		m.addLog(string(msg))
		return m, waitForLog(m.runner)
	}

	return m, nil
}

func (m runModel) View() string {
	if m.quitting {
		return "Mission stopped.\n"
	}

	var sb strings.Builder

	// Header
	sb.WriteString(titleStyle.Render("Linebot Run"))
	sb.WriteString(fmt.Sprintf(" - %d Hz", m.runner.Hz()))
	if m.width > 0 {
		sb.WriteString(statusStyle.Render(fmt.Sprintf("  [%dx%d]", m.width, m.height)))
	}
	sb.WriteString("\n")
	sb.WriteString(m.renderStatus())
	sb.WriteString("\n\n")

	// Chart
	sb.WriteString(chartStyle.Render(m.chart.View()))
	sb.WriteString("\n")
	sb.WriteString(renderLegend())
	sb.WriteString("\n")

	// Log box
	logStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Width(max(m.width-4, 20))

	var logLines string
	if len(m.logs) == 0 {
		logLines = statusStyle.Render("Press 'q' to quit")
	} else {
		logLines = strings.Join(m.logs, "\n")
	}
	sb.WriteString(logStyle.Render(logLines))
	sb.WriteString("\n")

	return sb.String()
}

func (m runModel) renderStatus() string {
	s := m.last
	left, right := m.th.Read(s.Reading)
	tagText := "none"
	if s.Tag.ID != "" {
		tagText = s.Tag.ID + " " + s.Tag.Coordinate.String()
	}
	return stateStyle.Render(string(s.State)) + statusStyle.Render(fmt.Sprintf(
		"  path=%s  tag=%s  line=%s/%s",
		s.Path, tagText, left, right,
	))
}

func renderLegend() string {
	var items []string
	for _, name := range sensorNames {
		colorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(sensorColors[name])).Bold(true)
		items = append(items, colorStyle.Render("━━")+" "+name)
	}
	return strings.Join(items, "  ")
}

// loadMission gathers the tuning and tag table for a mission run.
func loadMission(cfg *robot.Config, tuningFile string) (tuning.Params, *tag.Table, error) {
	if tuningFile == "" {
		tuningFile = cfg.TuningFile
	}
	p, err := tuning.Load(tuningFile)
	if err != nil {
		return p, nil, err
	}
	if cfg.Line.IsSet() {
		p.WhiteMax, p.BlackMin = cfg.Line.Thresholds()
		if err := p.Validate(); err != nil {
			return p, nil, fmt.Errorf("line calibration: %w", err)
		}
	}

	tags := tag.DefaultTable()
	if cfg.TagFile != "" {
		if tags, err = tag.LoadTable(cfg.TagFile); err != nil {
			return p, nil, err
		}
	}
	return p, tags, nil
}

func (c *RunCommand) Execute(args []string) error {
	cfg, err := robot.LoadConfigFrom(opts.Config)
	if err != nil {
		fmt.Fprintln(os.Stderr, "No configuration found. Run 'linebot setup' first.")
		os.Exit(1)
	}
	if cfg.Bridge.Port == "" {
		fmt.Fprintln(os.Stderr, "Bridge port not configured. Run 'linebot setup' first.")
		os.Exit(1)
	}

	params, tags, err := loadMission(cfg, c.Tuning)
	if err != nil {
		return err
	}

	fmt.Printf("Loaded configuration from %s\n", opts.Config)

	// Bridge failures surface through the runner's health check.
	b, err := bridge.Open(cfg.Bridge.Port, cfg.Bridge.BaudRate, zerolog.Nop())
	if err != nil {
		return err
	}
	defer b.Close()

	runner, err := autopilot.NewRunner(autopilot.Config{
		Hardware: b.Hardware(robot.NewSystemClock()),
		Tags:     tags,
		Tuning:   params,
		Hz:       c.Hz,
		Health:   b.Err,
		LogLevel: logLevel(),
	})
	if err != nil {
		return fmt.Errorf("create runner: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- runner.Start(ctx)
	}()

	p := tea.NewProgram(initialRunModel(runner, params.Thresholds()), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run TUI: %w", err)
	}

	cancel()
	if err := <-done; err != nil && err != context.Canceled {
		return err
	}
	return nil
}
