package main

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/rs/zerolog"

	"github.com/gwillem/linebot/pkg/mission"
	"github.com/gwillem/linebot/pkg/robot"
	"github.com/gwillem/linebot/pkg/sim"
	"github.com/gwillem/linebot/pkg/tag"
	"github.com/gwillem/linebot/pkg/tuning"
)

// replayPollBudget caps sensor waits so a scenario that never shows the
// expected surface ends with an error instead of hanging.
const replayPollBudget = 100_000

type ReplayCommand struct {
	Tuning string `long:"tuning" description:"Navigation tuning file"`
	Tags   string `long:"tags" description:"Tag table file (defaults to the config's, then the built-in table)"`
	Events bool   `long:"events" description:"Print every motor command"`

	Args struct {
		Scenario string `positional-arg-name:"scenario.yaml" required:"yes"`
	} `positional-args:"yes"`
}

// replayResult is what a scenario run produced.
type replayResult struct {
	Transitions []mission.Transition
	Events      []sim.Event
	Final       mission.Snapshot
	Aborts      int
}

// replay drives a mission controller through sc in virtual time.
func replay(sc *sim.Scenario, p tuning.Params, tags *tag.Table, log zerolog.Logger) (replayResult, error) {
	if p.PollBudget == 0 {
		p.PollBudget = replayPollBudget
	}

	r := sc.Robot()
	ctrl, err := mission.New(r.Hardware(), tags, p, log)
	if err != nil {
		return replayResult{}, err
	}

	var res replayResult
	ctrl.OnTransition(func(t mission.Transition) {
		res.Transitions = append(res.Transitions, t)
	})

	for r.Clock.ElapsedMillis() < sc.DurationMs {
		if err := ctrl.Step(); err != nil {
			res.Aborts++
			log.Warn().Err(err).Int64("at", r.Clock.ElapsedMillis()).Msg("maneuver aborted")
		}
		r.Clock.SleepMillis(p.LoopMillis)
	}

	res.Final = ctrl.Snapshot()
	res.Events = r.Events
	return res, nil
}

func (c *ReplayCommand) Execute(args []string) error {
	log := newLogger()

	sc, err := sim.LoadScenario(c.Args.Scenario)
	if err != nil {
		return err
	}

	// The device config is optional here.
	cfg, err := robot.LoadConfigFrom(opts.Config)
	if err != nil {
		cfg = &robot.Config{}
	}
	if c.Tags != "" {
		cfg.TagFile = c.Tags
	}
	params, tags, err := loadMission(cfg, c.Tuning)
	if err != nil {
		return err
	}

	log.Info().Str("scenario", sc.Name).Int64("duration_ms", sc.DurationMs).Msg("replaying")
	res, err := replay(sc, params, tags, log)
	if err != nil {
		return err
	}

	printReplay(os.Stdout, res, c.Events)
	return nil
}

func printReplay(w io.Writer, res replayResult, events bool) {
	rows := make([][]string, 0, len(res.Transitions))
	for _, t := range res.Transitions {
		rows = append(rows, []string{
			fmt.Sprintf("%d", t.At),
			string(t.From),
			string(t.To),
			t.Path.String(),
		})
	}

	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).Padding(0, 1)
	cellStyle := lipgloss.NewStyle().Padding(0, 1)

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers("ms", "From", "To", "Path").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	fmt.Fprintln(w, t.Render())

	if events {
		fmt.Fprintln(w)
		for _, e := range res.Events {
			fmt.Fprintln(w, e.String())
		}
	}

	fmt.Fprintln(w)
	tagText := "none"
	if res.Final.Tag.ID != "" {
		tagText = res.Final.Tag.ID + " " + res.Final.Tag.Coordinate.String()
	}
	fmt.Fprintf(w, "final state %s at %dms, path %s, tag %s, %d aborted maneuver(s)\n",
		res.Final.State, res.Final.At, res.Final.Path, tagText, res.Aborts)
}
