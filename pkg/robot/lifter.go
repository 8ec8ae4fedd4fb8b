package robot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/hipsterbrown/feetech-servo/feetech"
)

// lifterServo is the part of *feetech.Servo the lifter drives.
type lifterServo interface {
	Enable(ctx context.Context) error
	Disable(ctx context.Context) error
	Position(ctx context.Context) (int, error)
	SetPositionWithTime(ctx context.Context, position, timeMs int) error
}

// Lifter is the cargo lifter on a single feetech servo.
type Lifter struct {
	bus         io.Closer
	servo       lifterServo
	calibration LifterCalibration
}

// NewLifter opens the servo bus and locates the lifter servo.
func NewLifter(ctx context.Context, port string, cal LifterCalibration) (*Lifter, error) {
	// Open serial bus
	bus, err := feetech.NewBus(feetech.BusConfig{
		Port:     port,
		BaudRate: 1_000_000,
		Protocol: feetech.ProtocolSTS,
		Timeout:  100 * time.Millisecond,
	})
	if err != nil {
		return nil, fmt.Errorf("open bus: %w", err)
	}

	scanCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	found, err := bus.Scan(scanCtx, cal.ID, cal.ID)
	if err != nil {
		bus.Close()
		return nil, fmt.Errorf("scan for servo %d: %w", cal.ID, err)
	}
	if len(found) == 0 {
		bus.Close()
		return nil, fmt.Errorf("lifter servo %d not found on %s", cal.ID, port)
	}

	return &Lifter{
		bus:         bus,
		servo:       feetech.NewServo(bus, found[0].ID, found[0].Model),
		calibration: cal,
	}, nil
}

// Close closes the lifter's bus connection.
func (l *Lifter) Close() error {
	return l.bus.Close()
}

// Up raises the lifter.
func (l *Lifter) Up(ctx context.Context) error {
	return l.MoveTo(ctx, l.calibration.Up)
}

// Down lowers the lifter.
func (l *Lifter) Down(ctx context.Context) error {
	return l.MoveTo(ctx, l.calibration.Down)
}

// Position reads the current normalized position.
func (l *Lifter) Position(ctx context.Context) (float64, error) {
	raw, err := l.servo.Position(ctx)
	if err != nil {
		return 0, fmt.Errorf("read position: %w", err)
	}
	return l.calibration.Normalize(raw), nil
}

// MoveTo moves to a normalized position and waits for the move to finish.
// Torque is held only for the duration of the move.
func (l *Lifter) MoveTo(ctx context.Context, norm float64) (err error) {
	if err := l.servo.Enable(ctx); err != nil {
		return fmt.Errorf("enable torque: %w", err)
	}
	defer func() {
		if derr := l.servo.Disable(context.Background()); derr != nil {
			err = errors.Join(err, fmt.Errorf("release torque: %w", derr))
		}
	}()

	moveMs := l.calibration.MoveMillis
	if err := l.servo.SetPositionWithTime(ctx, l.calibration.Denormalize(norm), moveMs); err != nil {
		return fmt.Errorf("set position: %w", err)
	}

	// Give the servo the move time plus a short settle margin
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(time.Duration(moveMs+10) * time.Millisecond):
	}
	return nil
}
