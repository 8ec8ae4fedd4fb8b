// Package maneuver implements the fixed turn maneuvers: 90 degrees left or
// right and 180 degrees in place.
//
// Each maneuver is a fixed sequence of timed phases and sensor-terminated
// phases. A sensor-terminated phase polls one line sensor until it crosses a
// threshold. There is no timeout: if the sensor never reaches the target the
// maneuver never returns. Hosts that need a watchdog set tuning.PollBudget,
// which turns an endless wait into ErrPollBudgetExhausted.
package maneuver

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/gwillem/linebot/pkg/drive"
	"github.com/gwillem/linebot/pkg/line"
	"github.com/gwillem/linebot/pkg/robot"
	"github.com/gwillem/linebot/pkg/tuning"
)

// ErrPollBudgetExhausted is returned when a sensor wait used up its poll budget.
var ErrPollBudgetExhausted = errors.New("sensor wait exceeded poll budget")

// Kind selects a maneuver.
type Kind int

const (
	Left90 Kind = iota
	Right90
	// UTurnFromStopLine backs off a transverse stop line before rotating.
	UTurnFromStopLine
	// UTurnOnLine rotates from the middle of a line segment.
	UTurnOnLine
)

func (k Kind) String() string {
	switch k {
	case Left90:
		return "left-90"
	case Right90:
		return "right-90"
	case UTurnFromStopLine:
		return "uturn-stop-line"
	case UTurnOnLine:
		return "uturn-on-line"
	default:
		return fmt.Sprintf("maneuver(%d)", int(k))
	}
}

// Engine runs maneuvers. It owns the control loop while a maneuver runs.
type Engine struct {
	sensors robot.LineSensors
	clock   robot.Clock
	drive   *drive.Driver
	th      line.Thresholds
	p       tuning.Params
	log     zerolog.Logger
}

// New creates an engine.
func New(sensors robot.LineSensors, clock robot.Clock, drv *drive.Driver, p tuning.Params, log zerolog.Logger) *Engine {
	return &Engine{
		sensors: sensors,
		clock:   clock,
		drive:   drv,
		th:      p.Thresholds(),
		p:       p,
		log:     log.With().Str("component", "maneuver").Logger(),
	}
}

// Perform runs the maneuver k to completion.
// It ends by driving straight ahead at cruise power.
func (e *Engine) Perform(k Kind) error {
	start := e.clock.ElapsedMillis()
	e.log.Debug().Stringer("maneuver", k).Msg("maneuver start")

	var err error
	switch k {
	case Left90:
		err = e.turn90(robot.Left)
	case Right90:
		err = e.turn90(robot.Right)
	case UTurnFromStopLine:
		err = e.turn180(true)
	case UTurnOnLine:
		err = e.turn180(false)
	default:
		return fmt.Errorf("unknown maneuver %d", int(k))
	}
	if err != nil {
		e.drive.Stop()
		e.log.Error().Err(err).Stringer("maneuver", k).Msg("maneuver aborted")
		return fmt.Errorf("%s: %w", k, err)
	}

	e.log.Debug().
		Stringer("maneuver", k).
		Int64("ms", e.clock.ElapsedMillis()-start).
		Msg("maneuver complete")
	return nil
}

// Left90 turns 90 degrees to the left using the left sensor.
func (e *Engine) Left90() error { return e.Perform(Left90) }

// Right90 turns 90 degrees to the right using the right sensor.
func (e *Engine) Right90() error { return e.Perform(Right90) }

// Turn180 rotates in place to face the other way.
func (e *Engine) Turn180(fromStopLine bool) error {
	if fromStopLine {
		return e.Perform(UTurnFromStopLine)
	}
	return e.Perform(UTurnOnLine)
}

// turn90 rotates toward side. The sensor on that side is the outer sensor:
// it first leaves the current line (White) and then finds the new one (Black).
func (e *Engine) turn90(side robot.Side) error {
	// Settle, then back up a little to cancel forward overshoot
	e.drive.Stop()
	e.pause(e.p.SettleMillis)
	e.drive.Backward(e.p.BackupPower)
	e.pause(e.p.BackupMillis)
	e.drive.Stop()
	e.pause(e.p.SettleMillis)

	// Phase A: exit the current line
	e.drive.Pivot(side, e.p.TurnPower)
	if err := e.WaitUntil(side, e.th.IsWhite); err != nil {
		return fmt.Errorf("exit line: %w", err)
	}
	e.pause(e.p.PhaseSettleMillis)

	// Phase B: acquire the new line
	e.drive.Pivot(side, e.p.TurnPower)
	if err := e.WaitUntil(side, e.th.IsBlack); err != nil {
		return fmt.Errorf("acquire line: %w", err)
	}
	e.pause(e.p.PhaseSettleMillis)

	// Open loop: carry the sensor past the corner and square up
	e.drive.Forward(e.p.TurnPower)
	e.pause(e.p.OvershootForwardMillis)
	e.drive.Pivot(side, e.p.TurnPower)
	e.pause(e.p.OvershootTurnMillis)

	e.resume()
	return nil
}

// turn180 pivots left about the robot's axis. The left sensor starts on
// black, so phase A hunts for the far side of the line (Black) and phase B
// for the floor beyond it (White).
func (e *Engine) turn180(fromStopLine bool) error {
	u := e.p.UTurn

	if fromStopLine {
		// Back out until neither sensor is on the stop line
		e.drive.Backward(u.BackupPower)
		if err := e.waitWhileEitherBlack(); err != nil {
			return fmt.Errorf("leave stop line: %w", err)
		}
		e.pause(u.BackupSettleMillis)
	} else {
		e.drive.Backward(u.OffsetBackupPower)
		e.pause(u.OffsetBackupMillis)
		// Right wheel only, swings the left sensor off the line
		e.drive.Signed(0, u.OffsetPower)
		e.pause(u.OffsetMillis)
	}

	e.drive.Send(drive.PivotCommand(robot.Left, e.p.TurnPower, e.p.TurnPower))
	if err := e.WaitUntil(robot.Left, e.th.IsBlack); err != nil {
		return fmt.Errorf("find line: %w", err)
	}
	e.pause(u.PhaseSettleMillis)

	e.drive.Send(drive.PivotCommand(robot.Left, u.FinishPower, u.FinishPower))
	if err := e.WaitUntil(robot.Left, e.th.IsWhite); err != nil {
		return fmt.Errorf("clear line: %w", err)
	}

	e.resume()
	return nil
}

func (e *Engine) resume() {
	e.drive.Stop()
	e.drive.Forward(e.p.CruisePower)
}

func (e *Engine) pause(ms int64) {
	e.clock.SleepMillis(ms)
}
