// Package autopilot runs the mission controller in a timed loop and
// publishes its state for display.
package autopilot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/gwillem/linebot/pkg/mission"
	"github.com/gwillem/linebot/pkg/robot"
	"github.com/gwillem/linebot/pkg/tag"
	"github.com/gwillem/linebot/pkg/tuning"
)

// Runner owns the control loop. The mission controller is only touched from
// the goroutine running Start; observers read snapshots from channels.
type Runner struct {
	ctrl   *mission.Controller
	hz     int
	health func() error
	log    zerolog.Logger

	mu      sync.RWMutex
	running bool
	stateCh chan mission.Snapshot
	logCh   chan string
}

// Config holds configuration for the runner.
type Config struct {
	Hardware robot.Hardware
	Tags     *tag.Table
	Tuning   tuning.Params
	Hz       int
	// Health is checked every tick; a non-nil error stops the loop.
	Health func() error
	// LogLevel filters the log channel.
	LogLevel zerolog.Level
	// LogOutput optionally receives a copy of every log line.
	LogOutput io.Writer
}

// NewRunner creates a runner and its mission controller.
func NewRunner(cfg Config) (*Runner, error) {
	if cfg.Hz <= 0 {
		cfg.Hz = 200
	}

	r := &Runner{
		hz:      cfg.Hz,
		health:  cfg.Health,
		stateCh: make(chan mission.Snapshot, 1),
		logCh:   make(chan string, 32),
	}

	var out io.Writer = zerolog.ConsoleWriter{
		Out:        logWriter{r},
		NoColor:    true,
		TimeFormat: "15:04:05",
	}
	if cfg.LogOutput != nil {
		out = zerolog.MultiLevelWriter(out, cfg.LogOutput)
	}
	r.log = zerolog.New(out).Level(cfg.LogLevel).With().Timestamp().Logger()

	ctrl, err := mission.New(cfg.Hardware, cfg.Tags, cfg.Tuning, r.log)
	if err != nil {
		return nil, fmt.Errorf("create mission controller: %w", err)
	}
	ctrl.OnTransition(func(t mission.Transition) {
		r.log.Info().Str("from", string(t.From)).Str("to", string(t.To)).Stringer("path", t.Path).Msg("state")
	})
	r.ctrl = ctrl
	return r, nil
}

// States returns a channel that receives state updates.
func (r *Runner) States() <-chan mission.Snapshot {
	return r.stateCh
}

// Logs returns a channel that receives log messages.
func (r *Runner) Logs() <-chan string {
	return r.logCh
}

// Hz returns the control frequency.
func (r *Runner) Hz() int {
	return r.hz
}

// Logger returns the runner's logger.
func (r *Runner) Logger() zerolog.Logger {
	return r.log
}

// Start runs the control loop until ctx is cancelled or Health reports an error.
func (r *Runner) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return errors.New("already running")
	}
	r.running = true
	r.mu.Unlock()
	defer r.shutdown()

	r.log.Info().Int("hz", r.hz).Msg("autopilot started, waiting for tag")

	// Control loop
	ticker := time.NewTicker(time.Second / time.Duration(r.hz))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := r.step(); err != nil {
				return err
			}
		}
	}
}

func (r *Runner) step() error {
	if err := r.ctrl.Step(); err != nil {
		// The controller is back in WaitForTag; keep serving.
		r.log.Error().Err(err).Msg("maneuver aborted")
	}
	if r.health != nil {
		if err := r.health(); err != nil {
			r.log.Error().Err(err).Msg("hardware failure")
			return fmt.Errorf("hardware: %w", err)
		}
	}
	r.sendState(r.ctrl.Snapshot())
	return nil
}

func (r *Runner) sendState(s mission.Snapshot) {
	select {
	case r.stateCh <- s:
	default:
		// Drop old state if channel full, replace with new
		select {
		case <-r.stateCh:
		default:
		}
		r.stateCh <- s
	}
}

func (r *Runner) shutdown() {
	r.mu.Lock()
	r.running = false
	r.mu.Unlock()

	r.ctrl.Reset()
	r.log.Info().Msg("autopilot stopped")
}

// logWriter feeds formatted log lines into the runner's log channel.
type logWriter struct {
	r *Runner
}

func (w logWriter) Write(p []byte) (int, error) {
	msg := strings.TrimRight(string(p), "\n")
	select {
	case w.r.logCh <- msg:
	default:
		// Drop if channel full
	}
	return len(p), nil
}
