package drive

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gwillem/linebot/pkg/robot"
)

type recorder struct {
	cmds  []robot.Command
	stops int
}

func (r *recorder) Drive(cmd robot.Command) { r.cmds = append(r.cmds, cmd) }
func (r *recorder) Stop()                   { r.stops++ }

func (r *recorder) last() robot.Command { return r.cmds[len(r.cmds)-1] }

func fwd(p int) robot.Wheel  { return robot.Wheel{Dir: robot.Forward, Power: p} }
func back(p int) robot.Wheel { return robot.Wheel{Dir: robot.Backward, Power: p} }

func TestDriver_Primitives(t *testing.T) {
	rec := &recorder{}
	d := New(rec, Config{})

	tests := []struct {
		name string
		do   func()
		want robot.Command
	}{
		{"forward", func() { d.Forward(80) }, robot.Command{Left: fwd(80), Right: fwd(80)}},
		{"backward", func() { d.Backward(70) }, robot.Command{Left: back(70), Right: back(70)}},
		{"pivot left", func() { d.PivotLeft(100) }, robot.Command{Left: back(100), Right: fwd(100)}},
		{"pivot right", func() { d.PivotRight(100) }, robot.Command{Left: fwd(100), Right: back(100)}},
		{"signed", func() { d.Signed(-90, 90) }, robot.Command{Left: back(90), Right: fwd(90)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.do()
			assert.Equal(t, tt.want, rec.last())
			assert.Equal(t, tt.want, d.Last())
		})
	}
}

func TestDriver_ClampsPower(t *testing.T) {
	rec := &recorder{}
	d := New(rec, Config{MaxPower: 200})

	d.Forward(300)
	assert.Equal(t, 200, rec.last().Left.Power)

	d.Send(robot.Command{Left: fwd(-5), Right: fwd(10)})
	assert.Equal(t, 0, rec.last().Left.Power)
	assert.Equal(t, 10, rec.last().Right.Power)
}

func TestDriver_TrimAndInnerRatio(t *testing.T) {
	rec := &recorder{}
	d := New(rec, Config{LeftTrim: 90, PivotInnerRatio: 90})

	d.Forward(100)
	assert.Equal(t, robot.Command{Left: fwd(90), Right: fwd(100)}, rec.last())

	d.PivotRight(100)
	assert.Equal(t, robot.Command{Left: fwd(90), Right: back(90)}, rec.last())
}

func TestDriver_Stop(t *testing.T) {
	rec := &recorder{}
	d := New(rec, DefaultConfig())
	d.Forward(80)
	d.Stop()

	assert.Equal(t, 1, rec.stops)
	assert.True(t, d.Last().IsHalt())
}
