package main

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gwillem/linebot/pkg/mission"
	"github.com/gwillem/linebot/pkg/robot"
	"github.com/gwillem/linebot/pkg/sim"
	"github.com/gwillem/linebot/pkg/tuning"
)

const uturnScenario = `
name: uturn at obstacle
duration_ms: 1000
tags:
  - {at: 0, id: 14081B74}
left:
  - {until: 100, value: 300}
  - {until: 400, value: 750}
  - {until: 600, value: 300}
  - {until: 700, value: 750}
  - {until: 1000, value: 300}
right:
  - {until: 100, value: 300}
  - {until: 400, value: 750}
  - {until: 1000, value: 300}
front:
  - {until: 1000, value: 900}
`

func TestReplay_UTurnAtObstacle(t *testing.T) {
	sc, err := sim.ParseScenario([]byte(uturnScenario))
	require.NoError(t, err)

	res, err := replay(sc, tuning.Default(), nil, zerolog.Nop())
	require.NoError(t, err)

	var got []mission.State
	for _, tr := range res.Transitions {
		got = append(got, tr.To)
	}
	assert.Equal(t, []mission.State{
		mission.LineTrace,
		mission.IntersectionDecision,
		mission.Turn180,
		mission.ForwardAfterTurn,
		mission.LineTrace,
	}, got)

	assert.Equal(t, 0, res.Aborts)
	assert.Equal(t, mission.LineTrace, res.Final.State)
	assert.Equal(t, mission.PathUTurn, res.Final.Path)
	assert.Equal(t, "14081B74", res.Final.Tag.ID)
	assert.GreaterOrEqual(t, res.Final.At, sc.DurationMs)
	assert.NotEmpty(t, res.Events)
}

func TestReplay_StuckManeuverAborts(t *testing.T) {
	sc, err := sim.ParseScenario([]byte(`
name: stuck on black
duration_ms: 500
tags:
  - {at: 0, id: 14081B74}
left:
  - {until: 500, value: 750}
right:
  - {until: 500, value: 750}
front:
  - {until: 500, value: 900}
`))
	require.NoError(t, err)

	p := tuning.Default()
	p.PollBudget = 50
	res, err := replay(sc, p, nil, zerolog.Nop())
	require.NoError(t, err)

	assert.Positive(t, res.Aborts)
	var sawReset bool
	for _, tr := range res.Transitions {
		if tr.From == mission.Turn180 && tr.To == mission.WaitForTag {
			sawReset = true
		}
	}
	assert.True(t, sawReset, "expected the failed turn to fall back to wait-for-tag")
}

func TestPrintReplay(t *testing.T) {
	sc, err := sim.ParseScenario([]byte(uturnScenario))
	require.NoError(t, err)
	res, err := replay(sc, tuning.Default(), nil, zerolog.Nop())
	require.NoError(t, err)

	var buf bytes.Buffer
	printReplay(&buf, res, true)
	out := buf.String()

	assert.Contains(t, out, string(mission.Turn180))
	assert.Contains(t, out, "drive")
	assert.Contains(t, out, "14081B74 (1,2)")
	assert.Contains(t, out, "0 aborted")
}

func TestReplay_ExampleFiles(t *testing.T) {
	cfg := &robot.Config{TagFile: "../../examples/tags.yaml"}
	params, tags, err := loadMission(cfg, "../../examples/tuning.yaml")
	require.NoError(t, err)
	assert.Equal(t, 2, tags.Len())

	sc, err := sim.LoadScenario("../../examples/uturn.yaml")
	require.NoError(t, err)

	res, err := replay(sc, params, tags, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, mission.PathUTurn, res.Final.Path)
	assert.Equal(t, "(1,2)", res.Final.Tag.Coordinate.String())
}

func TestLoadMission_LineCalibration(t *testing.T) {
	cfg := &robot.Config{Line: robot.LineCalibration{White: 300, Black: 900}}
	params, tags, err := loadMission(cfg, "")
	require.NoError(t, err)
	assert.Equal(t, 450, params.WhiteMax)
	assert.Equal(t, 750, params.BlackMin)
	assert.Equal(t, 2, tags.Len())
}

func TestReplay_RejectsStalledClock(t *testing.T) {
	sc, err := sim.ParseScenario([]byte(uturnScenario))
	require.NoError(t, err)

	p := tuning.Default()
	p.LoopMillis = 0
	_, err = replay(sc, p, nil, zerolog.Nop())
	assert.ErrorContains(t, err, "loopMillis must be positive")
}
