// Package line classifies raw reflectance readings into line symbols.
package line

import "github.com/gwillem/linebot/pkg/robot"

// Symbol is the classification of a single sensor value.
type Symbol int

const (
	// Mid is the dead zone between WhiteMax and BlackMin.
	Mid Symbol = iota
	White
	Black
)

func (s Symbol) String() string {
	switch s {
	case White:
		return "white"
	case Black:
		return "black"
	default:
		return "mid"
	}
}

// Reading is one sample of both line sensors.
type Reading struct {
	Left  int
	Right int
}

// Sample reads both sensors.
func Sample(sensors robot.LineSensors) Reading {
	return Reading{
		Left:  sensors.ReadLine(robot.Left),
		Right: sensors.ReadLine(robot.Right),
	}
}

// Classify maps v to White if v < whiteMax, Black if v > blackMin and Mid otherwise.
func Classify(v, whiteMax, blackMin int) Symbol {
	switch {
	case v < whiteMax:
		return White
	case v > blackMin:
		return Black
	default:
		return Mid
	}
}

// Thresholds is the calibrated (WhiteMax, BlackMin) pair.
type Thresholds struct {
	WhiteMax int
	BlackMin int
}

// Valid reports whether the pair leaves a dead zone.
func (t Thresholds) Valid() bool {
	return t.WhiteMax < t.BlackMin
}

// Classify classifies a single value.
func (t Thresholds) Classify(v int) Symbol {
	return Classify(v, t.WhiteMax, t.BlackMin)
}

// IsWhite reports v < WhiteMax.
func (t Thresholds) IsWhite(v int) bool { return v < t.WhiteMax }

// IsBlack reports v > BlackMin.
func (t Thresholds) IsBlack(v int) bool { return v > t.BlackMin }

// Read classifies both sides of a reading.
func (t Thresholds) Read(r Reading) (left, right Symbol) {
	return t.Classify(r.Left), t.Classify(r.Right)
}
