package main

import (
	"os"
	"strings"

	"github.com/jessevdk/go-flags"
	"github.com/rs/zerolog"
)

type Options struct {
	Config   string `long:"config" default:"linebot.json" description:"Device configuration file"`
	LogLevel string `long:"log-level" default:"info" choice:"trace" choice:"debug" choice:"info" choice:"warn" choice:"error" description:"Log level"`

	Setup  SetupCommand  `command:"setup" description:"Pick serial ports and calibrate the line sensors"`
	Run    RunCommand    `command:"run" description:"Run the line-following mission on the robot"`
	Replay ReplayCommand `command:"replay" description:"Run the mission against a simulated scenario"`
	Lift   LiftCommand   `command:"lift" description:"Move the cargo lifter up or down"`
	Tags   TagsCommand   `command:"tags" description:"Show the tag table or resolve a tag"`
}

var opts Options
var parser = flags.NewParser(&opts, flags.Default)

func main() {
	parser.LongDescription = "linebot - line-following robot controller"

	_, err := parser.Parse()
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				os.Exit(0)
			}
		}
		os.Exit(1)
	}
}

func logLevel() zerolog.Level {
	level, err := zerolog.ParseLevel(strings.ToLower(opts.LogLevel))
	if err != nil {
		return zerolog.InfoLevel
	}
	return level
}

// newLogger returns a console logger on stderr for commands without a TUI.
func newLogger() zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}).
		Level(logLevel()).
		With().Timestamp().Logger()
}
