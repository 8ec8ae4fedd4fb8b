// Package sim provides simulated peripherals driven by a virtual clock.
//
// Sensor values come from a Source: a Trace yields one scripted value per
// sample, a Timeline yields values by virtual time. Every motor command and
// notification is recorded as an Event.
package sim

import (
	"fmt"

	"github.com/gwillem/linebot/pkg/robot"
)

// Clock is a virtual clock. SleepMillis advances time instantly.
type Clock struct {
	now int64
}

// ElapsedMillis returns the virtual time.
func (c *Clock) ElapsedMillis() int64 { return c.now }

// SleepMillis advances the virtual time.
func (c *Clock) SleepMillis(ms int64) {
	if ms > 0 {
		c.now += ms
	}
}

// Advance is SleepMillis for callers outside the control loop.
func (c *Clock) Advance(ms int64) { c.SleepMillis(ms) }

// Source produces sensor values. n counts previous samples of this source.
type Source interface {
	Sample(now int64, n int) int
}

// Constant always yields the same value.
type Constant int

func (c Constant) Sample(int64, int) int { return int(c) }

// Trace yields one value per sample and repeats the last value when exhausted.
type Trace []int

func (t Trace) Sample(_ int64, n int) int {
	if len(t) == 0 {
		return 0
	}
	if n >= len(t) {
		return t[len(t)-1]
	}
	return t[n]
}

// Repeat builds a trace of v repeated n times.
func Repeat(v, n int) Trace {
	t := make(Trace, n)
	for i := range t {
		t[i] = v
	}
	return t
}

// Concat joins traces.
func Concat(parts ...Trace) Trace {
	var out Trace
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// Step holds Value until virtual time Until (exclusive).
type Step struct {
	Until int64 `yaml:"until"`
	Value int   `yaml:"value"`
}

// Timeline yields values by virtual time and holds the last value forever.
type Timeline []Step

func (tl Timeline) Sample(now int64, _ int) int {
	for _, s := range tl {
		if now < s.Until {
			return s.Value
		}
	}
	if len(tl) == 0 {
		return 0
	}
	return tl[len(tl)-1].Value
}

// EventKind classifies a recorded event.
type EventKind string

const (
	EventDrive  EventKind = "drive"
	EventStop   EventKind = "stop"
	EventNotify EventKind = "notify"
)

// Event is one recorded side effect.
type Event struct {
	At      int64
	Kind    EventKind
	Command robot.Command
}

func (e Event) String() string {
	switch e.Kind {
	case EventDrive:
		c := e.Command
		return fmt.Sprintf("%6dms drive L=%s/%d R=%s/%d", e.At, c.Left.Dir, c.Left.Power, c.Right.Dir, c.Right.Power)
	default:
		return fmt.Sprintf("%6dms %s", e.At, e.Kind)
	}
}

// TagEvent presents ID to the reader from virtual time At.
type TagEvent struct {
	At int64  `yaml:"at"`
	ID string `yaml:"id"`
}

// Robot implements every peripheral interface in robot.Hardware.
// It is not safe for concurrent use; one control loop owns it.
type Robot struct {
	Clock *Clock
	Left  Source
	Right Source
	Front Source
	Tags  []TagEvent

	Events  []Event
	samples map[string]int
}

// NewRobot creates a robot with all sensors reading zero.
func NewRobot() *Robot {
	return &Robot{
		Clock: &Clock{},
		Left:  Constant(0),
		Right: Constant(0),
		Front: Constant(0),
	}
}

// Hardware wires the robot into a robot.Hardware bundle.
func (r *Robot) Hardware() robot.Hardware {
	return robot.Hardware{
		Sensors:  r,
		Forward:  r,
		Motors:   r,
		Clock:    r.Clock,
		Tags:     r,
		Notifier: r,
	}
}

func (r *Robot) sample(name string, src Source) int {
	if r.samples == nil {
		r.samples = make(map[string]int)
	}
	n := r.samples[name]
	r.samples[name] = n + 1
	return src.Sample(r.Clock.ElapsedMillis(), n)
}

// Samples returns how many times a sensor was read ("left", "right" or "front").
func (r *Robot) Samples(name string) int {
	return r.samples[name]
}

// ReadLine implements robot.LineSensors.
func (r *Robot) ReadLine(side robot.Side) int {
	if side == robot.Left {
		return r.sample("left", r.Left)
	}
	return r.sample("right", r.Right)
}

// ReadForward implements robot.ForwardSensor.
func (r *Robot) ReadForward() int {
	return r.sample("front", r.Front)
}

// Drive implements robot.Motors.
func (r *Robot) Drive(cmd robot.Command) {
	r.record(Event{Kind: EventDrive, Command: cmd})
}

// Stop implements robot.Motors.
func (r *Robot) Stop() {
	r.record(Event{Kind: EventStop})
}

// Poll implements robot.TagReader. Each tag is delivered once.
func (r *Robot) Poll() (string, bool) {
	now := r.Clock.ElapsedMillis()
	for i, t := range r.Tags {
		if t.At <= now {
			r.Tags = append(r.Tags[:i:i], r.Tags[i+1:]...)
			return t.ID, true
		}
	}
	return "", false
}

// NotifySuccess implements robot.Notifier.
func (r *Robot) NotifySuccess() {
	r.record(Event{Kind: EventNotify})
}

func (r *Robot) record(e Event) {
	e.At = r.Clock.ElapsedMillis()
	r.Events = append(r.Events, e)
}

// LastEvent returns the most recent event, if any.
func (r *Robot) LastEvent() (Event, bool) {
	if len(r.Events) == 0 {
		return Event{}, false
	}
	return r.Events[len(r.Events)-1], true
}

// Reset drops recorded events.
func (r *Robot) Reset() {
	r.Events = nil
}

// ResetSamples restarts every Trace from its first value.
func (r *Robot) ResetSamples() {
	r.samples = nil
}
