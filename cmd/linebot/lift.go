package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/gwillem/linebot/pkg/robot"
)

type LiftCommand struct {
	Args struct {
		Position string `positional-arg-name:"up|down" required:"yes"`
	} `positional-args:"yes"`
}

func (c *LiftCommand) Execute(args []string) error {
	cfg, err := robot.LoadConfigFrom(opts.Config)
	if err != nil {
		fmt.Fprintln(os.Stderr, "No configuration found. Run 'linebot setup' first.")
		os.Exit(1)
	}
	if !cfg.Lifter.HasLifter() {
		fmt.Fprintln(os.Stderr, "Lifter not configured. Run 'linebot setup' first.")
		os.Exit(1)
	}

	if c.Args.Position != "up" && c.Args.Position != "down" {
		return fmt.Errorf("unknown lifter position %q, want up or down", c.Args.Position)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	lifter, err := robot.NewLifter(ctx, cfg.Lifter.Port, cfg.Lifter.Calibration)
	if err != nil {
		return err
	}
	defer lifter.Close()

	log := newLogger()
	switch c.Args.Position {
	case "up":
		err = lifter.Up(ctx)
	default:
		err = lifter.Down(ctx)
	}
	if err != nil {
		return fmt.Errorf("lift %s: %w", c.Args.Position, err)
	}

	pos, err := lifter.Position(ctx)
	if err != nil {
		return err
	}
	log.Info().Str("position", c.Args.Position).Float64("percent", pos).Msg("lifter moved")
	return nil
}
