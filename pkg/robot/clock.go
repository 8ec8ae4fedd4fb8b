package robot

import "time"

// SystemClock implements Clock with the wall clock.
type SystemClock struct {
	start time.Time
}

// NewSystemClock creates a clock whose epoch is now.
func NewSystemClock() *SystemClock {
	return &SystemClock{start: time.Now()}
}

// ElapsedMillis returns milliseconds since the clock was created.
func (c *SystemClock) ElapsedMillis() int64 {
	return time.Since(c.start).Milliseconds()
}

// SleepMillis pauses for ms milliseconds.
func (c *SystemClock) SleepMillis(ms int64) {
	if ms <= 0 {
		return
	}
	time.Sleep(time.Duration(ms) * time.Millisecond)
}
