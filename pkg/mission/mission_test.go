package mission

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gwillem/linebot/pkg/maneuver"
	"github.com/gwillem/linebot/pkg/robot"
	"github.com/gwillem/linebot/pkg/sim"
	"github.com/gwillem/linebot/pkg/tag"
	"github.com/gwillem/linebot/pkg/tuning"
)

const (
	black = 750
	white = 300
)

func fwd(p int) robot.Wheel  { return robot.Wheel{Dir: robot.Forward, Power: p} }
func back(p int) robot.Wheel { return robot.Wheel{Dir: robot.Backward, Power: p} }

var cruise = robot.Command{Left: fwd(80), Right: fwd(80)}

type harness struct {
	r           *sim.Robot
	c           *Controller
	transitions []Transition
}

func newHarness(t *testing.T, p tuning.Params) *harness {
	t.Helper()
	h := &harness{r: sim.NewRobot()}
	c, err := New(h.r.Hardware(), nil, p, zerolog.Nop())
	require.NoError(t, err)
	c.OnTransition(func(tr Transition) { h.transitions = append(h.transitions, tr) })
	h.c = c
	return h
}

func (h *harness) setLine(left, right int) {
	h.r.Left = sim.Constant(left)
	h.r.Right = sim.Constant(right)
}

func (h *harness) step(t *testing.T) {
	t.Helper()
	require.NoError(t, h.c.Step())
}

func (h *harness) lastEvent(t *testing.T) sim.Event {
	t.Helper()
	e, ok := h.r.LastEvent()
	require.True(t, ok, "no events recorded")
	return e
}

// startTracing feeds a known tag and steps into LineTrace.
func (h *harness) startTracing(t *testing.T) {
	t.Helper()
	h.r.Tags = []sim.TagEvent{{ID: "14081B74"}}
	h.step(t)
	require.Equal(t, LineTrace, h.c.State())
}

func TestWaitForTag_IdlePolls(t *testing.T) {
	h := newHarness(t, tuning.Default())

	h.step(t)
	assert.Equal(t, WaitForTag, h.c.State())
	assert.Equal(t, int64(100), h.r.Clock.ElapsedMillis())
	assert.Empty(t, h.r.Events)
}

func TestWaitForTag_KnownTag(t *testing.T) {
	h := newHarness(t, tuning.Default())
	h.startTracing(t)

	assert.Equal(t, tag.Coordinate{X: 1, Y: 2}, h.c.Tag().Coordinate)
	assert.Equal(t, sim.EventNotify, h.lastEvent(t).Kind)
	require.Len(t, h.transitions, 1)
	assert.Equal(t, Transition{From: WaitForTag, To: LineTrace}, h.transitions[0])
}

func TestWaitForTag_UnknownTag(t *testing.T) {
	t.Run("proceeds with sentinel", func(t *testing.T) {
		h := newHarness(t, tuning.Default())
		h.r.Tags = []sim.TagEvent{{ID: "DEADBEEF"}}
		h.step(t)

		assert.Equal(t, LineTrace, h.c.State())
		assert.True(t, h.c.Tag().IsUnknown())
	})

	t.Run("rejected when configured", func(t *testing.T) {
		p := tuning.Default()
		p.RejectUnknownTags = true
		h := newHarness(t, p)
		h.r.Tags = []sim.TagEvent{{ID: "DEADBEEF"}}
		h.step(t)

		assert.Equal(t, WaitForTag, h.c.State())
		assert.Empty(t, h.r.Events, "no acknowledgment for a rejected tag")
	})
}

func TestLineTrace_Reactive(t *testing.T) {
	tests := []struct {
		name        string
		left, right int
		want        robot.Command
	}{
		{"both white", white, white, cruise},
		{"left black", black, white, robot.Command{Left: back(80), Right: fwd(80)}},
		{"right black", white, black, robot.Command{Left: fwd(80), Right: back(80)}},
		{"mid counts as not black", 600, 600, cruise},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, tuning.Default())
			h.startTracing(t)
			h.setLine(tt.left, tt.right)
			h.step(t)

			e := h.lastEvent(t)
			assert.Equal(t, sim.EventDrive, e.Kind)
			assert.Equal(t, tt.want, e.Command)
			assert.Equal(t, LineTrace, h.c.State())
		})
	}
}

func TestLineTrace_HoldsUntilIntersectionWait(t *testing.T) {
	h := newHarness(t, tuning.Default())
	h.startTracing(t)
	h.setLine(white, white)
	h.step(t)
	n := len(h.r.Events)

	h.setLine(black, black)
	h.r.Clock.Advance(100)
	h.step(t)
	h.r.Clock.Advance(60)
	h.step(t)

	assert.Equal(t, LineTrace, h.c.State(), "160ms is not more than the wait")
	assert.Len(t, h.r.Events, n, "no new command while holding")

	h.r.Front = sim.Constant(1020)
	h.r.Clock.Advance(1)
	h.step(t)
	assert.Equal(t, ForwardAfterDecision, h.c.State())
}

func TestLineTrace_BlackStretchRestarts(t *testing.T) {
	h := newHarness(t, tuning.Default())
	h.startTracing(t)

	h.setLine(black, black)
	h.r.Clock.Advance(150)
	h.step(t)
	h.setLine(white, black)
	h.step(t)
	h.setLine(black, black)
	h.r.Clock.Advance(100)
	h.step(t)

	assert.Equal(t, LineTrace, h.c.State(), "a single sensor leaving black restarts the wait")
}

func TestIntersectionDecision(t *testing.T) {
	tests := []struct {
		name     string
		front    int
		action   string
		wantPath Path
		wantNext State
	}{
		{"obstacle turns around", 900, tuning.ActionUTurn, PathUTurn, Turn180},
		{"at threshold goes straight", 1005, tuning.ActionUTurn, PathStraight, ForwardAfterDecision},
		{"above threshold goes straight", 1020, tuning.ActionUTurn, PathStraight, ForwardAfterDecision},
		{"obstacle left action", 900, tuning.ActionLeft, PathLeft, TurnLeft90},
		{"obstacle right action", 900, tuning.ActionRight, PathRight, TurnRight90},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := tuning.Default()
			p.ObstacleAction = tt.action
			// Sensors stay black, so a started maneuver gives up quickly.
			p.PollBudget = 20
			h := newHarness(t, p)
			h.startTracing(t)

			h.setLine(black, black)
			h.r.Front = sim.Constant(tt.front)
			h.r.Clock.Advance(161)
			err := h.c.Step()

			var decided *Transition
			for i := range h.transitions {
				if h.transitions[i].From == IntersectionDecision {
					decided = &h.transitions[i]
				}
			}
			require.NotNil(t, decided, "no decision taken")
			assert.Equal(t, tt.wantNext, decided.To)
			assert.Equal(t, tt.wantPath, decided.Path)

			if tt.wantNext == ForwardAfterDecision {
				require.NoError(t, err)
				assert.Equal(t, ForwardAfterDecision, h.c.State())
				assert.Equal(t, PathStraight, h.c.Path())
				return
			}
			// The maneuver ran in the deciding tick
			assert.ErrorIs(t, err, maneuver.ErrPollBudgetExhausted)
			assert.Equal(t, WaitForTag, h.c.State())
		})
	}
}

func TestForwardAfterDecision_SkipsLine(t *testing.T) {
	h := newHarness(t, tuning.Default())
	h.startTracing(t)
	h.setLine(black, black)
	h.r.Front = sim.Constant(1020)
	h.r.Clock.Advance(161)
	h.step(t)
	require.Equal(t, ForwardAfterDecision, h.c.State())
	assert.Equal(t, cruise, h.lastEvent(t).Command)

	before := h.r.Clock.ElapsedMillis()
	h.setLine(white, white)
	h.step(t)

	assert.Equal(t, int64(200), h.r.Clock.ElapsedMillis()-before)
	assert.Equal(t, LineTrace, h.c.State())
	assert.Equal(t, PathStraight, h.c.Path())
}

func TestEndToEnd_UTurnAtObstacle(t *testing.T) {
	h := newHarness(t, tuning.Default())
	h.startTracing(t)

	h.setLine(300, 300)
	h.step(t)
	assert.Equal(t, cruise, h.lastEvent(t).Command)

	h.setLine(750, 300)
	h.step(t)
	assert.Equal(t, robot.Command{Left: back(80), Right: fwd(80)}, h.lastEvent(t).Command)

	h.setLine(750, 750)
	h.r.Front = sim.Constant(900)
	h.step(t)
	h.r.Clock.Advance(200)

	// Decide, then back off the stop line, find the line and clear it
	mark := len(h.r.Events)
	h.r.ResetSamples()
	h.r.Left = sim.Trace{750, 750, 300, 300, 750, 300}
	h.r.Right = sim.Trace{750, 750, 300}
	h.step(t)

	assert.Equal(t, PathUTurn, h.c.Path())
	assert.Equal(t, ForwardAfterTurn, h.c.State())
	assert.Equal(t, cruise, h.lastEvent(t).Command)

	require.Greater(t, len(h.r.Events), mark+1)
	stop, backing := h.r.Events[mark], h.r.Events[mark+1]
	assert.Equal(t, sim.EventStop, stop.Kind)
	assert.Equal(t, robot.Command{Left: back(70), Right: back(70)}, backing.Command)
	assert.Equal(t, int64(100), backing.At-stop.At, "backing starts right after the decision pause")

	h.step(t)
	assert.Equal(t, LineTrace, h.c.State())

	var got []State
	for _, tr := range h.transitions {
		got = append(got, tr.To)
	}
	assert.Equal(t, []State{LineTrace, IntersectionDecision, Turn180, ForwardAfterTurn, LineTrace}, got)
}

func TestTurnFailure_ReturnsToWaitForTag(t *testing.T) {
	p := tuning.Default()
	p.PollBudget = 200
	h := newHarness(t, p)
	h.startTracing(t)

	h.setLine(black, black)
	h.r.Front = sim.Constant(900)
	h.r.Clock.Advance(161)

	// Decides on a U-turn, then never clears the stop line
	err := h.c.Step()
	require.ErrorIs(t, err, maneuver.ErrPollBudgetExhausted)
	last := h.transitions[len(h.transitions)-1]
	assert.Equal(t, Transition{From: Turn180, To: WaitForTag, At: last.At, Path: PathNone}, last)
	assert.Equal(t, WaitForTag, h.c.State())
	assert.Equal(t, PathNone, h.c.Path())
	assert.Equal(t, sim.EventStop, h.lastEvent(t).Kind)
}

func TestRun_StopsOnCancel(t *testing.T) {
	h := newHarness(t, tuning.Default())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := h.c.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, sim.EventStop, h.lastEvent(t).Kind)
}

func TestSnapshot(t *testing.T) {
	h := newHarness(t, tuning.Default())
	h.startTracing(t)
	h.setLine(750, 300)
	h.step(t)

	s := h.c.Snapshot()
	assert.Equal(t, LineTrace, s.State)
	assert.Equal(t, 750, s.Reading.Left)
	assert.Equal(t, "14081B74", s.Tag.ID)
	assert.Equal(t, robot.Command{Left: back(80), Right: fwd(80)}, s.Command)
}

func TestNew_Validates(t *testing.T) {
	_, err := New(robot.Hardware{}, nil, tuning.Default(), zerolog.Nop())
	assert.Error(t, err)

	p := tuning.Default()
	p.WhiteMax = 900
	_, err = New(sim.NewRobot().Hardware(), nil, p, zerolog.Nop())
	assert.ErrorContains(t, err, "whiteMax")
}

func TestTransitionTable(t *testing.T) {
	for _, s := range AllStates() {
		assert.NotEmpty(t, transitions[s], "state %s has no exit", s)
	}
	assert.False(t, CanTransition(WaitForTag, Turn180))
	assert.False(t, CanTransition(LineTrace, Turn180), "turns are only entered through a decision")
	assert.True(t, CanTransition(IntersectionDecision, Turn180))
	assert.Equal(t, "uturn", PathUTurn.String())
}
