// Package robot provides abstractions for the line-following robot's peripherals.
package robot

// Side identifies a line sensor or a drive wheel.
type Side string

// Sides of the robot.
const (
	Left  Side = "left"
	Right Side = "right"
)

// Direction is the rotation direction of one wheel.
type Direction int

const (
	Forward Direction = iota
	Backward
)

func (d Direction) String() string {
	if d == Backward {
		return "backward"
	}
	return "forward"
}

// Wheel is the output for a single wheel.
type Wheel struct {
	Dir   Direction
	Power int
}

// Command sets both wheel outputs at once.
type Command struct {
	Left  Wheel
	Right Wheel
}

// Halt is the zero-power command.
var Halt = Command{}

// IsHalt returns true if neither wheel is powered.
func (c Command) IsHalt() bool {
	return c.Left.Power == 0 && c.Right.Power == 0
}

// Motors drives the two wheels.
type Motors interface {
	// Drive sets both wheel outputs. Callers treat it as atomic.
	Drive(cmd Command)
	// Stop is Drive with zero power on both sides.
	Stop()
}

// LineSensors reads the downward-facing reflectance sensors.
// Higher values mean a darker surface.
type LineSensors interface {
	ReadLine(side Side) int
}

// ForwardSensor reads the forward-facing obstacle/marker sensor.
type ForwardSensor interface {
	ReadForward() int
}

// Clock is the only time source the navigation code uses.
type Clock interface {
	ElapsedMillis() int64
	// SleepMillis blocks the calling loop.
	SleepMillis(ms int64)
}

// TagReader polls the proximity tag reader.
type TagReader interface {
	// Poll never blocks. ok is false when no tag event is pending.
	Poll() (id string, ok bool)
}

// Notifier gives audible or visual feedback.
type Notifier interface {
	NotifySuccess()
}

// Hardware bundles everything the mission controller talks to.
type Hardware struct {
	Sensors  LineSensors
	Forward  ForwardSensor
	Motors   Motors
	Clock    Clock
	Tags     TagReader
	Notifier Notifier
}
