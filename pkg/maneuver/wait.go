package maneuver

import "github.com/gwillem/linebot/pkg/robot"

// WaitUntil samples the sensor on side until done reports true, sleeping
// PollMillis between samples. With a zero PollBudget it never gives up.
func (e *Engine) WaitUntil(side robot.Side, done func(v int) bool) error {
	return e.poll(func() bool {
		return done(e.sensors.ReadLine(side))
	})
}

func (e *Engine) waitWhileEitherBlack() error {
	return e.poll(func() bool {
		l := e.sensors.ReadLine(robot.Left)
		r := e.sensors.ReadLine(robot.Right)
		return !e.th.IsBlack(l) && !e.th.IsBlack(r)
	})
}

func (e *Engine) poll(done func() bool) error {
	for n := 1; ; n++ {
		if done() {
			return nil
		}
		if e.p.PollBudget > 0 && n >= e.p.PollBudget {
			return ErrPollBudgetExhausted
		}
		e.clock.SleepMillis(e.p.PollMillis)
	}
}
