package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/rs/zerolog"

	"github.com/gwillem/linebot/pkg/bridge"
	"github.com/gwillem/linebot/pkg/robot"
)

var (
	headerStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	subHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14"))
	successStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

const noLifter = "none"

type SetupCommand struct{}

func (c *SetupCommand) Execute(args []string) error {
	fmt.Println(headerStyle.Render("Linebot Setup"))
	fmt.Println(dimStyle.Render("━━━━━━━━━━━━━"))
	fmt.Println()

	// Keep tag and tuning references from an earlier setup.
	config, err := robot.LoadConfigFrom(opts.Config)
	if err != nil {
		config = &robot.Config{
			Lifter: robot.LifterConfig{Calibration: robot.DefaultLifterCalibration()},
		}
	}

	// Step 1: Pick ports
	if err := choosePorts(config); err != nil {
		return err
	}

	// Step 2: Check the lifter
	if config.Lifter.HasLifter() {
		fmt.Println()
		fmt.Println(subHeaderStyle.Render("━━━ Checking Lifter ━━━"))
		fmt.Println()
		checkLifter(&config.Lifter)
	}

	// Step 3: Calibrate line sensors
	fmt.Println()
	fmt.Println(subHeaderStyle.Render("━━━ Calibrating Line Sensors ━━━"))
	fmt.Println()
	cal, err := calibrateLine(config.Bridge)
	if err != nil {
		return err
	}
	config.Line = cal

	if err := config.SaveTo(opts.Config); err != nil {
		fmt.Fprintf(os.Stderr, "Error saving config: %v\n", err)
		os.Exit(1)
	}

	fmt.Println()
	fmt.Println(dimStyle.Render("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━"))
	fmt.Println(successStyle.Render("Setup complete!"))
	fmt.Printf("Configuration saved to %s\n", opts.Config)
	fmt.Println()
	fmt.Println("Start the mission with: " + headerStyle.Render("linebot run"))

	return nil
}

func choosePorts(config *robot.Config) error {
	ports, err := bridge.Ports()
	if errors.Is(err, bridge.ErrNoPorts) {
		fmt.Println("No serial ports found.")
		fmt.Println("Make sure the robot is connected and powered on.")
		os.Exit(1)
	}
	if err != nil {
		return err
	}

	bridgeOptions := make([]huh.Option[string], 0, len(ports))
	lifterOptions := []huh.Option[string]{huh.NewOption("No lifter", noLifter)}
	for _, p := range ports {
		bridgeOptions = append(bridgeOptions, huh.NewOption(p, p))
		lifterOptions = append(lifterOptions, huh.NewOption(p, p))
	}

	bridgePort := config.Bridge.Port
	lifterPort := config.Lifter.Port
	if lifterPort == "" {
		lifterPort = noLifter
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Which port is the robot controller on?").
				Description("The board that reads the line sensors and drives the wheels").
				Options(bridgeOptions...).
				Value(&bridgePort),
			huh.NewSelect[string]().
				Title("Which port is the lifter servo bus on?").
				Options(lifterOptions...).
				Value(&lifterPort),
		),
	)
	if err := form.Run(); err != nil {
		fmt.Println()
		os.Exit(0)
	}

	if lifterPort == bridgePort {
		return fmt.Errorf("bridge and lifter cannot share %s", bridgePort)
	}
	config.Bridge.Port = bridgePort
	config.Lifter.Port = ""
	if lifterPort != noLifter {
		config.Lifter.Port = lifterPort
	}

	fmt.Println(successStyle.Render("Ports selected:"))
	fmt.Printf("  Bridge: %s\n", config.Bridge.Port)
	if config.Lifter.HasLifter() {
		fmt.Printf("  Lifter: %s\n", config.Lifter.Port)
	}
	return nil
}

func checkLifter(lc *robot.LifterConfig) {
	ctx := context.Background()
	lifter, err := robot.NewLifter(ctx, lc.Port, lc.Calibration)
	if err != nil {
		fmt.Printf("  Lifter not found: %v\n", err)
		fmt.Println(dimStyle.Render("  Keeping the port; fix the wiring and run 'linebot lift up'."))
		return
	}
	defer lifter.Close()

	pos, err := lifter.Position(ctx)
	if err != nil {
		fmt.Printf("  Error reading position: %v\n", err)
		return
	}
	fmt.Printf("  Lifter servo %d at %.1f%%\n", lc.Calibration.ID, pos)
}

func calibrateLine(bc robot.BridgeConfig) (robot.LineCalibration, error) {
	b, err := bridge.Open(bc.Port, bc.BaudRate, zerolog.Nop())
	if err != nil {
		return robot.LineCalibration{}, err
	}
	defer b.Close()

	fmt.Println("Place both sensors over the floor and press 'w'.")
	fmt.Println("Then place both sensors over the line and press 'b'.")
	fmt.Println()

	p := tea.NewProgram(newCalibrationModel(b))
	finalModel, err := p.Run()
	if err != nil {
		return robot.LineCalibration{}, fmt.Errorf("run calibration: %w", err)
	}

	cm := finalModel.(calibrationModel)
	if cm.err != nil {
		return robot.LineCalibration{}, cm.err
	}
	cal := robot.LineCalibration{White: cm.white, Black: cm.black}
	if !cal.IsSet() {
		return cal, fmt.Errorf("line not calibrated: white %d, black %d", cm.white, cm.black)
	}

	whiteMax, blackMin := cal.Thresholds()
	fmt.Printf("Line sensors calibrated: white < %d, black > %d\n", whiteMax, blackMin)
	return cal, nil
}

// sensorReader is the part of the bridge the calibration TUI polls.
type sensorReader interface {
	ReadBoth() (left, right int, err error)
}

// Calibration TUI model
type calibrationModel struct {
	sensors     sensorReader
	left, right int
	white       int // brightest reading taken over the floor
	black       int // darkest reading taken over the line
	err         error
	quitting    bool
}

type tickMsg time.Time

func newCalibrationModel(sensors sensorReader) calibrationModel {
	return calibrationModel{sensors: sensors}
}

func tick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m calibrationModel) Init() tea.Cmd {
	return tick()
}

func (m calibrationModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "w":
			m.white = max(m.left, m.right)
		case "b":
			m.black = min(m.left, m.right)
		case "enter", "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}

	case tickMsg:
		left, right, err := m.sensors.ReadBoth()
		if err != nil {
			m.err = err
			m.quitting = true
			return m, tea.Quit
		}
		m.left, m.right = left, right
		return m, tick()
	}

	return m, nil
}

func (m calibrationModel) View() string {
	if m.quitting {
		return ""
	}

	var sb strings.Builder

	tableHeaderStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).Padding(0, 1)
	tableSensorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("14")).Padding(0, 1)
	tableCellStyle := lipgloss.NewStyle().Padding(0, 1)
	tableCurrentStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Padding(0, 1)

	cal := robot.LineCalibration{White: m.white, Black: m.black}
	rows := [][]string{
		{"left", fmt.Sprintf("%d", m.left)},
		{"right", fmt.Sprintf("%d", m.right)},
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers("Sensor", "Current").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return tableHeaderStyle
			}
			switch col {
			case 0:
				return tableSensorStyle
			case 1:
				return tableCurrentStyle
			default:
				return tableCellStyle
			}
		})

	sb.WriteString(t.Render())
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("white %s  black %s\n", levelText(m.white), levelText(m.black)))
	if cal.IsSet() {
		whiteMax, blackMin := cal.Thresholds()
		sb.WriteString(successStyle.Render(fmt.Sprintf("thresholds: white < %d, black > %d", whiteMax, blackMin)))
	} else {
		sb.WriteString(dimStyle.Render("black must read higher than white"))
	}
	sb.WriteString("\n\n")
	sb.WriteString(dimStyle.Render("w: record floor  b: record line  Enter: done"))

	return sb.String()
}

func levelText(v int) string {
	if v == 0 {
		return "-"
	}
	return fmt.Sprintf("%d", v)
}
