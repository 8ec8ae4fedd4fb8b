// Package mission sequences the robot's run: wait for a tag, trace the line,
// decide at intersections, turn and resume.
//
// A Controller is a single-owner state machine. Step runs one tick of the
// current state; maneuvers run synchronously inside Step and own the loop
// until they finish. Nothing in a Controller is safe for concurrent use.
package mission

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/gwillem/linebot/pkg/drive"
	"github.com/gwillem/linebot/pkg/line"
	"github.com/gwillem/linebot/pkg/maneuver"
	"github.com/gwillem/linebot/pkg/robot"
	"github.com/gwillem/linebot/pkg/tag"
	"github.com/gwillem/linebot/pkg/tuning"
)

// Snapshot is a copy of the controller's observable state.
type Snapshot struct {
	At      int64
	State   State
	Path    Path
	Reading line.Reading
	Front   int
	Tag     tag.Record
	Command robot.Command
}

// Controller runs the mission state machine.
type Controller struct {
	hw     robot.Hardware
	drive  *drive.Driver
	engine *maneuver.Engine
	tags   *tag.Table
	th     line.Thresholds
	p      tuning.Params
	log    zerolog.Logger

	state State
	path  Path
	// lineTraceStart is when the current both-black stretch began.
	lineTraceStart int64
	reading        line.Reading
	front          int
	tag            tag.Record

	onTransition func(Transition)
}

// New creates a controller in WaitForTag. tags may be nil for the factory table.
func New(hw robot.Hardware, tags *tag.Table, p tuning.Params, log zerolog.Logger) (*Controller, error) {
	if hw.Sensors == nil || hw.Forward == nil || hw.Motors == nil || hw.Clock == nil || hw.Tags == nil {
		return nil, errors.New("mission: sensors, forward sensor, motors, clock and tag reader are required")
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("mission: %w", err)
	}
	if tags == nil {
		tags = tag.DefaultTable()
	}

	drv := drive.New(hw.Motors, p.DriveConfig())
	return &Controller{
		hw:     hw,
		drive:  drv,
		engine: maneuver.New(hw.Sensors, hw.Clock, drv, p, log),
		tags:   tags,
		th:     p.Thresholds(),
		p:      p,
		log:    log.With().Str("component", "mission").Logger(),
		state:  WaitForTag,
	}, nil
}

// OnTransition registers fn to be called after every state change.
func (c *Controller) OnTransition(fn func(Transition)) {
	c.onTransition = fn
}

// State returns the current state.
func (c *Controller) State() State { return c.state }

// Path returns the path selected at the last intersection.
func (c *Controller) Path() Path { return c.path }

// Tag returns the last accepted tag.
func (c *Controller) Tag() tag.Record { return c.tag }

// Snapshot returns a copy of the observable state.
func (c *Controller) Snapshot() Snapshot {
	return Snapshot{
		At:      c.hw.Clock.ElapsedMillis(),
		State:   c.state,
		Path:    c.path,
		Reading: c.reading,
		Front:   c.front,
		Tag:     c.tag,
		Command: c.drive.Last(),
	}
}

// Run steps the controller until ctx is done or a maneuver fails,
// pausing LoopMillis between ticks. Motors are stopped on return.
func (c *Controller) Run(ctx context.Context) error {
	defer c.drive.Stop()
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := c.Step(); err != nil {
			return err
		}
		c.hw.Clock.SleepMillis(c.p.LoopMillis)
	}
}

// Step runs one tick of the current state. It returns an error only when a
// bounded maneuver gave up; the controller is then back in WaitForTag.
func (c *Controller) Step() error {
	switch c.state {
	case WaitForTag:
		c.waitForTag()
	case LineTrace:
		return c.lineTrace()
	case IntersectionDecision:
		return c.decide()
	case TurnLeft90:
		return c.turn(maneuver.Left90)
	case TurnRight90:
		return c.turn(maneuver.Right90)
	case Turn180:
		return c.turn(maneuver.UTurnFromStopLine)
	case ForwardAfterDecision:
		return c.forwardAfterDecision()
	case ForwardAfterTurn:
		return c.forwardAfterTurn()
	default:
		return fmt.Errorf("mission: unknown state %q", c.state)
	}
	return nil
}

// Reset stops the motors and returns to WaitForTag from any state.
func (c *Controller) Reset() {
	c.drive.Stop()
	from := c.state
	c.state = WaitForTag
	c.path = PathNone
	if from != WaitForTag {
		c.notify(from, WaitForTag)
	}
}

func (c *Controller) waitForTag() {
	id, ok := c.hw.Tags.Poll()
	if !ok {
		c.hw.Clock.SleepMillis(c.p.TagPollMillis)
		return
	}

	coord := c.tags.Lookup(id)
	if coord.IsUnknown() {
		if c.p.RejectUnknownTags {
			c.log.Warn().Str("tag", id).Msg("unknown tag ignored")
			c.hw.Clock.SleepMillis(c.p.TagPollMillis)
			return
		}
		c.log.Warn().Str("tag", id).Msg("unknown tag, starting anyway")
	}

	c.tag = tag.Record{ID: id, Coordinate: coord}
	c.log.Info().Str("tag", id).Stringer("at", coord).Msg("tag accepted")
	if c.hw.Notifier != nil {
		c.hw.Notifier.NotifySuccess()
	}
	c.path = PathNone
	c.lineTraceStart = c.hw.Clock.ElapsedMillis()
	c.transition(LineTrace)
}

// lineTrace is the reactive loop: one sample, one decision, one command.
func (c *Controller) lineTrace() error {
	c.reading = line.Sample(c.hw.Sensors)
	leftBlack := c.th.IsBlack(c.reading.Left)
	rightBlack := c.th.IsBlack(c.reading.Right)
	now := c.hw.Clock.ElapsedMillis()

	switch {
	case leftBlack && rightBlack:
		// Across a transverse line: hold the current command until it
		// has been black long enough to count as an intersection.
		if now-c.lineTraceStart > c.p.IntersectionWaitMillis {
			c.transition(IntersectionDecision)
			return c.decide()
		}
		return nil
	case leftBlack:
		c.drive.PivotLeft(c.p.CruisePower)
	case rightBlack:
		c.drive.PivotRight(c.p.CruisePower)
	default:
		c.drive.Forward(c.p.CruisePower)
	}
	c.lineTraceStart = now
	return nil
}

func (c *Controller) decide() error {
	c.drive.Stop()
	c.hw.Clock.SleepMillis(c.p.DecisionPauseMillis)

	c.front = c.hw.Forward.ReadForward()
	if c.front < c.p.ObstacleThreshold {
		path, next := c.obstaclePlan()
		c.path = path
		c.log.Info().Int("front", c.front).Stringer("path", path).Msg("obstacle at intersection")
		c.transition(next)
		// The maneuver starts in this tick, straight after the pause.
		return c.Step()
	}

	c.path = PathStraight
	c.log.Info().Int("front", c.front).Stringer("path", c.path).Msg("intersection clear")
	c.transition(ForwardAfterDecision)
	c.drive.Forward(c.p.CruisePower)
	return nil
}

func (c *Controller) obstaclePlan() (Path, State) {
	switch c.p.ObstacleAction {
	case tuning.ActionLeft:
		return PathLeft, TurnLeft90
	case tuning.ActionRight:
		return PathRight, TurnRight90
	default:
		return PathUTurn, Turn180
	}
}

func (c *Controller) turn(k maneuver.Kind) error {
	if err := c.engine.Perform(k); err != nil {
		c.Reset()
		return err
	}
	c.transition(ForwardAfterTurn)
	return nil
}

// forwardAfterDecision carries the sensors over the transverse line before
// handing back to line tracing.
func (c *Controller) forwardAfterDecision() error {
	c.drive.Forward(c.p.CruisePower)
	c.hw.Clock.SleepMillis(c.p.SkipLineMillis)
	return c.resumeLineTrace()
}

func (c *Controller) forwardAfterTurn() error {
	return c.resumeLineTrace()
}

func (c *Controller) resumeLineTrace() error {
	c.lineTraceStart = c.hw.Clock.ElapsedMillis()
	c.transition(LineTrace)
	return c.lineTrace()
}

func (c *Controller) transition(to State) {
	from := c.state
	if !CanTransition(from, to) {
		// The table mirrors the handlers above; reaching this is a bug.
		panic(fmt.Sprintf("mission: illegal transition %s -> %s", from, to))
	}
	c.state = to
	c.notify(from, to)
}

func (c *Controller) notify(from, to State) {
	t := Transition{From: from, To: to, At: c.hw.Clock.ElapsedMillis(), Path: c.path}
	c.log.Debug().
		Str("from", string(from)).
		Str("to", string(to)).
		Stringer("path", c.path).
		Int64("at", t.At).
		Msg("transition")
	if c.onTransition != nil {
		c.onTransition(t)
	}
}
