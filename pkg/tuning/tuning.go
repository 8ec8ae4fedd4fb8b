// Package tuning holds the navigation parameter set: thresholds, powers and
// durations. Every value has a named default and can be overridden from a
// config file or LINEBOT_* environment variables.
package tuning

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/gwillem/linebot/pkg/drive"
	"github.com/gwillem/linebot/pkg/line"
)

// Obstacle actions at an intersection.
const (
	ActionUTurn = "uturn"
	ActionLeft  = "left"
	ActionRight = "right"
)

// EnvPrefix is the prefix for environment overrides, e.g. LINEBOT_TURNPOWER.
const EnvPrefix = "LINEBOT"

// UTurn holds the 180 degree maneuver parameters.
type UTurn struct {
	BackupPower        int   `mapstructure:"backupPower"`
	BackupSettleMillis int64 `mapstructure:"backupSettleMillis"`
	OffsetBackupPower  int   `mapstructure:"offsetBackupPower"`
	OffsetBackupMillis int64 `mapstructure:"offsetBackupMillis"`
	OffsetPower        int   `mapstructure:"offsetPower"`
	OffsetMillis       int64 `mapstructure:"offsetMillis"`
	PhaseSettleMillis  int64 `mapstructure:"phaseSettleMillis"`
	FinishPower        int   `mapstructure:"finishPower"`
}

// Drive holds motor output shaping.
type Drive struct {
	MaxPower        int `mapstructure:"maxPower"`
	LeftTrim        int `mapstructure:"leftTrim"`
	RightTrim       int `mapstructure:"rightTrim"`
	PivotInnerRatio int `mapstructure:"pivotInnerRatio"`
}

// Params is the full tunable set.
type Params struct {
	WhiteMax          int `mapstructure:"whiteMax"`
	BlackMin          int `mapstructure:"blackMin"`
	CalibrationOffset int `mapstructure:"calibrationOffset"`
	ObstacleThreshold int `mapstructure:"obstacleThreshold"`

	CruisePower int `mapstructure:"cruisePower"`
	TurnPower   int `mapstructure:"turnPower"`
	BackupPower int `mapstructure:"backupPower"`

	SettleMillis           int64 `mapstructure:"settleMillis"`
	BackupMillis           int64 `mapstructure:"backupMillis"`
	PhaseSettleMillis      int64 `mapstructure:"phaseSettleMillis"`
	OvershootForwardMillis int64 `mapstructure:"overshootForwardMillis"`
	OvershootTurnMillis    int64 `mapstructure:"overshootTurnMillis"`

	IntersectionWaitMillis int64 `mapstructure:"intersectionWaitMillis"`
	DecisionPauseMillis    int64 `mapstructure:"decisionPauseMillis"`
	SkipLineMillis         int64 `mapstructure:"skipLineMillis"`
	TagPollMillis          int64 `mapstructure:"tagPollMillis"`
	LoopMillis             int64 `mapstructure:"loopMillis"`

	// PollMillis paces sensor polling inside maneuvers.
	PollMillis int64 `mapstructure:"pollMillis"`
	// PollBudget caps samples per sensor wait. 0 waits forever.
	PollBudget int `mapstructure:"pollBudget"`

	ObstacleAction    string `mapstructure:"obstacleAction"`
	RejectUnknownTags bool   `mapstructure:"rejectUnknownTags"`

	UTurn UTurn `mapstructure:"uturn"`
	Drive Drive `mapstructure:"drive"`
}

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("whiteMax", 470)
	v.SetDefault("blackMin", 700)
	v.SetDefault("calibrationOffset", 0)
	v.SetDefault("obstacleThreshold", 1005)

	v.SetDefault("cruisePower", 80)
	v.SetDefault("turnPower", 100)
	v.SetDefault("backupPower", 80)

	v.SetDefault("settleMillis", 50)
	v.SetDefault("backupMillis", 20)
	v.SetDefault("phaseSettleMillis", 40)
	v.SetDefault("overshootForwardMillis", 90)
	v.SetDefault("overshootTurnMillis", 250)

	v.SetDefault("intersectionWaitMillis", 160)
	v.SetDefault("decisionPauseMillis", 100)
	v.SetDefault("skipLineMillis", 200)
	v.SetDefault("tagPollMillis", 100)
	v.SetDefault("loopMillis", 2)

	v.SetDefault("pollMillis", 1)
	v.SetDefault("pollBudget", 0)

	v.SetDefault("obstacleAction", ActionUTurn)
	v.SetDefault("rejectUnknownTags", false)

	v.SetDefault("uturn.backupPower", 70)
	v.SetDefault("uturn.backupSettleMillis", 130)
	v.SetDefault("uturn.offsetBackupPower", 90)
	v.SetDefault("uturn.offsetBackupMillis", 150)
	v.SetDefault("uturn.offsetPower", 90)
	v.SetDefault("uturn.offsetMillis", 300)
	v.SetDefault("uturn.phaseSettleMillis", 30)
	v.SetDefault("uturn.finishPower", 90)

	v.SetDefault("drive.maxPower", drive.DefaultMaxPower)
	v.SetDefault("drive.leftTrim", 100)
	v.SetDefault("drive.rightTrim", 100)
	v.SetDefault("drive.pivotInnerRatio", 100)
}

// Default returns the built-in parameter set.
func Default() Params {
	p, err := decode(newViper())
	if err != nil {
		// Defaults are static; a failure here is a programming error.
		panic(fmt.Sprintf("decode default tuning: %v", err))
	}
	return p
}

// Load reads a tuning file (JSON, YAML or TOML by extension) over the
// defaults. An empty path loads defaults and environment overrides only.
func Load(path string) (Params, error) {
	v := newViper()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Params{}, fmt.Errorf("read tuning file: %w", err)
		}
	}
	p, err := decode(v)
	if err != nil {
		return Params{}, err
	}
	if err := p.Validate(); err != nil {
		return Params{}, fmt.Errorf("tuning %s: %w", path, err)
	}
	return p, nil
}

func newViper() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func decode(v *viper.Viper) (Params, error) {
	var p Params
	if err := v.Unmarshal(&p); err != nil {
		return Params{}, fmt.Errorf("decode tuning: %w", err)
	}
	p.ObstacleAction = strings.ToLower(p.ObstacleAction)
	return p, nil
}

// Thresholds returns the line thresholds with the calibration offset applied.
func (p Params) Thresholds() line.Thresholds {
	return line.Thresholds{
		WhiteMax: p.WhiteMax + p.CalibrationOffset,
		BlackMin: p.BlackMin + p.CalibrationOffset,
	}
}

// DriveConfig returns the drive output shaping.
func (p Params) DriveConfig() drive.Config {
	return drive.Config{
		MaxPower:        p.Drive.MaxPower,
		LeftTrim:        p.Drive.LeftTrim,
		RightTrim:       p.Drive.RightTrim,
		PivotInnerRatio: p.Drive.PivotInnerRatio,
	}
}

// Validate checks the invariants the navigation code relies on.
func (p Params) Validate() error {
	var errs []error
	if !p.Thresholds().Valid() {
		errs = append(errs, fmt.Errorf("whiteMax %d must be below blackMin %d", p.WhiteMax, p.BlackMin))
	}
	if p.CruisePower <= 0 || p.TurnPower <= 0 {
		errs = append(errs, errors.New("cruisePower and turnPower must be positive"))
	}
	// The loop and idle waits are what advance time between ticks.
	for name, ms := range map[string]int64{
		"pollMillis":    p.PollMillis,
		"loopMillis":    p.LoopMillis,
		"tagPollMillis": p.TagPollMillis,
	} {
		if ms <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive", name))
		}
	}
	for name, ms := range p.durations() {
		if ms < 0 {
			errs = append(errs, fmt.Errorf("%s must not be negative", name))
		}
	}
	if p.PollBudget < 0 {
		errs = append(errs, errors.New("pollBudget must not be negative"))
	}
	switch p.ObstacleAction {
	case ActionUTurn, ActionLeft, ActionRight:
	default:
		errs = append(errs, fmt.Errorf("unknown obstacleAction %q", p.ObstacleAction))
	}
	return errors.Join(errs...)
}

// durations lists the fixed pauses and open-loop phases by key.
func (p Params) durations() map[string]int64 {
	return map[string]int64{
		"settleMillis":             p.SettleMillis,
		"backupMillis":             p.BackupMillis,
		"phaseSettleMillis":        p.PhaseSettleMillis,
		"overshootForwardMillis":   p.OvershootForwardMillis,
		"overshootTurnMillis":      p.OvershootTurnMillis,
		"intersectionWaitMillis":   p.IntersectionWaitMillis,
		"decisionPauseMillis":      p.DecisionPauseMillis,
		"skipLineMillis":           p.SkipLineMillis,
		"uturn.backupSettleMillis": p.UTurn.BackupSettleMillis,
		"uturn.offsetBackupMillis": p.UTurn.OffsetBackupMillis,
		"uturn.offsetMillis":       p.UTurn.OffsetMillis,
		"uturn.phaseSettleMillis":  p.UTurn.PhaseSettleMillis,
	}
}
