package autopilot

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gwillem/linebot/pkg/mission"
	"github.com/gwillem/linebot/pkg/sim"
	"github.com/gwillem/linebot/pkg/tuning"
)

func newSimRunner(t *testing.T, health func() error) (*Runner, *sim.Robot, *bytes.Buffer) {
	t.Helper()
	robot := sim.NewRobot()
	robot.Left = sim.Constant(300)
	robot.Right = sim.Constant(300)
	robot.Tags = []sim.TagEvent{{ID: "14081B74"}}

	var buf bytes.Buffer
	r, err := NewRunner(Config{
		Hardware:  robot.Hardware(),
		Tuning:    tuning.Default(),
		Hz:        1000,
		Health:    health,
		LogLevel:  zerolog.InfoLevel,
		LogOutput: &buf,
	})
	require.NoError(t, err)
	return r, robot, &buf
}

func TestRunner_PublishesSnapshots(t *testing.T) {
	r, robot, buf := newSimRunner(t, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Start(ctx) }()

	deadline := time.After(5 * time.Second)
	for {
		select {
		case s := <-r.States():
			if s.State != mission.LineTrace {
				continue
			}
			assert.Equal(t, "14081B74", s.Tag.ID)
		case <-deadline:
			t.Fatal("never reached line-trace")
		}
		break
	}

	cancel()
	require.ErrorIs(t, <-done, context.Canceled)

	last, ok := robot.LastEvent()
	require.True(t, ok)
	assert.Equal(t, sim.EventStop, last.Kind, "motors stopped on shutdown")
	assert.Contains(t, buf.String(), "tag accepted")
	assert.Equal(t, 1000, r.Hz())
}

func TestRunner_LogChannel(t *testing.T) {
	r, _, _ := newSimRunner(t, nil)
	log := r.Logger()
	log.Info().Msg("hello")

	select {
	case line := <-r.Logs():
		assert.Contains(t, line, "hello")
		assert.NotContains(t, line, "\n")
	default:
		t.Fatal("no log line")
	}
}

func TestRunner_StopsOnHealthError(t *testing.T) {
	r, _, _ := newSimRunner(t, func() error { return errors.New("link down") })

	err := r.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "link down")
}

func TestRunner_AlreadyRunning(t *testing.T) {
	r, _, _ := newSimRunner(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- r.Start(ctx) }()
	<-r.States()

	assert.EqualError(t, r.Start(ctx), "already running")
	cancel()
	<-done
}

func TestNewRunner_InvalidTuning(t *testing.T) {
	p := tuning.Default()
	p.ObstacleAction = "fly"
	_, err := NewRunner(Config{Hardware: sim.NewRobot().Hardware(), Tuning: p})
	assert.ErrorContains(t, err, "obstacleAction")
}
