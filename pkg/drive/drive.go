// Package drive provides directional drive primitives on top of robot.Motors.
package drive

import "github.com/gwillem/linebot/pkg/robot"

// DefaultMaxPower is the PWM ceiling of the motor driver.
const DefaultMaxPower = 255

// Config holds output shaping for the drive.
type Config struct {
	MaxPower int
	// LeftTrim and RightTrim scale each wheel in percent to even out motors.
	LeftTrim  int
	RightTrim int
	// PivotInnerRatio scales the backward wheel of a pivot in percent.
	PivotInnerRatio int
}

// DefaultConfig returns an unshaped drive.
func DefaultConfig() Config {
	return Config{
		MaxPower:        DefaultMaxPower,
		LeftTrim:        100,
		RightTrim:       100,
		PivotInnerRatio: 100,
	}
}

// Driver issues motor commands. Every command passes through Send.
type Driver struct {
	motors robot.Motors
	cfg    Config
	last   robot.Command
}

// New creates a driver. Zero fields in cfg fall back to DefaultConfig.
func New(motors robot.Motors, cfg Config) *Driver {
	def := DefaultConfig()
	if cfg.MaxPower <= 0 {
		cfg.MaxPower = def.MaxPower
	}
	if cfg.LeftTrim <= 0 {
		cfg.LeftTrim = def.LeftTrim
	}
	if cfg.RightTrim <= 0 {
		cfg.RightTrim = def.RightTrim
	}
	if cfg.PivotInnerRatio <= 0 {
		cfg.PivotInnerRatio = def.PivotInnerRatio
	}
	return &Driver{motors: motors, cfg: cfg}
}

// Last returns the most recent command sent to the motors.
func (d *Driver) Last() robot.Command {
	return d.last
}

// Send shapes and sends a raw command.
func (d *Driver) Send(cmd robot.Command) {
	cmd.Left.Power = d.clamp(cmd.Left.Power * d.cfg.LeftTrim / 100)
	cmd.Right.Power = d.clamp(cmd.Right.Power * d.cfg.RightTrim / 100)
	d.last = cmd
	d.motors.Drive(cmd)
}

// Stop cuts power to both wheels.
func (d *Driver) Stop() {
	d.last = robot.Halt
	d.motors.Stop()
}

// Forward drives both wheels forward.
func (d *Driver) Forward(power int) {
	d.Send(robot.Command{
		Left:  robot.Wheel{Dir: robot.Forward, Power: power},
		Right: robot.Wheel{Dir: robot.Forward, Power: power},
	})
}

// Backward drives both wheels backward.
func (d *Driver) Backward(power int) {
	d.Send(robot.Command{
		Left:  robot.Wheel{Dir: robot.Backward, Power: power},
		Right: robot.Wheel{Dir: robot.Backward, Power: power},
	})
}

// Pivot rotates in place toward side: that wheel runs backward and the other forward.
func (d *Driver) Pivot(side robot.Side, power int) {
	d.Send(PivotCommand(side, power, power*d.cfg.PivotInnerRatio/100))
}

// PivotLeft rotates counter-clockwise in place.
func (d *Driver) PivotLeft(power int) { d.Pivot(robot.Left, power) }

// PivotRight rotates clockwise in place.
func (d *Driver) PivotRight(power int) { d.Pivot(robot.Right, power) }

// Signed drives each wheel by a signed speed; negative means backward.
func (d *Driver) Signed(left, right int) {
	d.Send(robot.Command{Left: signedWheel(left), Right: signedWheel(right)})
}

// PivotCommand builds an in-place rotation toward side.
func PivotCommand(side robot.Side, outer, inner int) robot.Command {
	back := robot.Wheel{Dir: robot.Backward, Power: inner}
	fwd := robot.Wheel{Dir: robot.Forward, Power: outer}
	if side == robot.Left {
		return robot.Command{Left: back, Right: fwd}
	}
	return robot.Command{Left: fwd, Right: back}
}

func signedWheel(speed int) robot.Wheel {
	if speed < 0 {
		return robot.Wheel{Dir: robot.Backward, Power: -speed}
	}
	return robot.Wheel{Dir: robot.Forward, Power: speed}
}

func (d *Driver) clamp(p int) int {
	if p < 0 {
		return 0
	}
	if p > d.cfg.MaxPower {
		return d.cfg.MaxPower
	}
	return p
}
