package robot

// LifterCalibration holds calibration data for the lifter servo.
type LifterCalibration struct {
	ID       int `json:"id"`
	RangeMin int `json:"range_min"`
	RangeMax int `json:"range_max"`

	// Up and Down are normalized positions in the range [-100, 100].
	Up   float64 `json:"up"`
	Down float64 `json:"down"`

	MoveMillis int `json:"move_ms"`
}

// DefaultLifterCalibration is a servo with ID 1 over its full 12-bit range.
// Up and Down sit at about 170 and 50 degrees.
func DefaultLifterCalibration() LifterCalibration {
	return LifterCalibration{
		ID:         1,
		RangeMin:   0,
		RangeMax:   4095,
		Up:         -6,
		Down:       -72,
		MoveMillis: 300,
	}
}

// Normalize converts a raw servo position to a normalized value in the range [-100, 100].
func (c LifterCalibration) Normalize(raw int) float64 {
	rangeSize := float64(c.RangeMax - c.RangeMin)
	if rangeSize == 0 {
		return 0
	}
	return (float64(raw-c.RangeMin)/rangeSize)*200 - 100
}

// Denormalize converts a normalized value [-100, 100] to a raw servo position.
func (c LifterCalibration) Denormalize(norm float64) int {
	if norm > 100 {
		norm = 100
	} else if norm < -100 {
		norm = -100
	}
	rangeSize := float64(c.RangeMax - c.RangeMin)
	return int((norm+100)/200*rangeSize) + c.RangeMin
}

// LineCalibration records the raw levels seen over the floor and over the
// painted line during setup.
type LineCalibration struct {
	White int `json:"white"`
	Black int `json:"black"`
}

// IsSet returns true if both levels were recorded and black reads darker.
func (c LineCalibration) IsSet() bool {
	return c.Black > c.White && c.White > 0
}

// Thresholds derives a white maximum and black minimum from the recorded
// levels, leaving the middle half of the gap as a dead zone.
func (c LineCalibration) Thresholds() (whiteMax, blackMin int) {
	gap := c.Black - c.White
	return c.White + gap/4, c.Black - gap/4
}
