// Package bridge talks to the microcontroller that owns the robot's pins.
//
// The link is a line-oriented ASCII protocol over a serial port. Each request
// is one line and gets exactly one reply line:
//
//	L                 -> "<left> <right>"   line sensors
//	F                 -> "<front>"          forward sensor
//	M <ld> <lp> <rd> <rp> -> "OK"           motors, direction 0 forward / 1 backward
//	S                 -> "OK"               stop
//	T                 -> "<uid>" or "-"     pending tag
//	B                 -> "OK"               success beep
//
// The navigation interfaces have no error returns, so I/O errors are sticky:
// the first one is kept and logged, reads fall back to the last good value
// and commands become no-ops. Callers check Err once per control tick.
//
// A Bridge serves one control loop; requests must not be issued concurrently.
package bridge

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.bug.st/serial"

	"github.com/gwillem/linebot/pkg/robot"
)

// DefaultBaudRate is the firmware's serial speed.
const DefaultBaudRate = 115200

// Bridge implements the robot peripheral interfaces over a serial link.
type Bridge struct {
	port io.ReadWriteCloser
	rd   *bufio.Reader
	log  zerolog.Logger

	mu    sync.Mutex
	err   error
	left  int
	right int
	front int
}

// Open opens a serial port and wraps it in a Bridge.
func Open(portName string, baudRate int, log zerolog.Logger) (*Bridge, error) {
	if baudRate <= 0 {
		baudRate = DefaultBaudRate
	}
	port, err := serial.Open(portName, &serial.Mode{BaudRate: baudRate})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", portName, err)
	}
	if err := port.SetReadTimeout(500 * time.Millisecond); err != nil {
		port.Close()
		return nil, fmt.Errorf("set read timeout: %w", err)
	}
	return New(port, log), nil
}

// New wraps an already open port.
func New(port io.ReadWriteCloser, log zerolog.Logger) *Bridge {
	return &Bridge{
		port: port,
		rd:   bufio.NewReader(port),
		log:  log.With().Str("component", "bridge").Logger(),
	}
}

// Close closes the port.
func (b *Bridge) Close() error {
	return b.port.Close()
}

// Err returns the first I/O or protocol error, if any.
func (b *Bridge) Err() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.err
}

// Hardware wires the bridge into a robot.Hardware bundle with the given clock.
func (b *Bridge) Hardware(clock robot.Clock) robot.Hardware {
	return robot.Hardware{
		Sensors:  b,
		Forward:  b,
		Motors:   b,
		Clock:    clock,
		Tags:     b,
		Notifier: b,
	}
}

// ReadLine implements robot.LineSensors.
func (b *Bridge) ReadLine(side robot.Side) int {
	left, right, err := b.ReadBoth()
	if err != nil {
		b.mu.Lock()
		defer b.mu.Unlock()
		if side == robot.Left {
			return b.left
		}
		return b.right
	}
	if side == robot.Left {
		return left
	}
	return right
}

// ReadBoth reads both line sensors in one exchange.
func (b *Bridge) ReadBoth() (left, right int, err error) {
	reply, err := b.exchange("L")
	if err != nil {
		return 0, 0, err
	}
	vals, err := parseInts(reply, 2)
	if err != nil {
		return 0, 0, b.fail(fmt.Errorf("line reply %q: %w", reply, err))
	}

	b.mu.Lock()
	b.left, b.right = vals[0], vals[1]
	b.mu.Unlock()
	return vals[0], vals[1], nil
}

// ReadForward implements robot.ForwardSensor.
func (b *Bridge) ReadForward() int {
	reply, err := b.exchange("F")
	if err == nil {
		var vals []int
		if vals, err = parseInts(reply, 1); err == nil {
			b.mu.Lock()
			b.front = vals[0]
			b.mu.Unlock()
			return vals[0]
		}
		b.fail(fmt.Errorf("forward reply %q: %w", reply, err))
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	return b.front
}

// Drive implements robot.Motors.
func (b *Bridge) Drive(cmd robot.Command) {
	b.command(fmt.Sprintf("M %d %d %d %d",
		dirCode(cmd.Left.Dir), cmd.Left.Power,
		dirCode(cmd.Right.Dir), cmd.Right.Power))
}

// Stop implements robot.Motors.
func (b *Bridge) Stop() {
	b.command("S")
}

// Poll implements robot.TagReader.
func (b *Bridge) Poll() (string, bool) {
	reply, err := b.exchange("T")
	if err != nil || reply == "-" || reply == "" {
		return "", false
	}
	return reply, true
}

// NotifySuccess implements robot.Notifier.
func (b *Bridge) NotifySuccess() {
	b.command("B")
}

func (b *Bridge) command(req string) {
	reply, err := b.exchange(req)
	if err != nil {
		return
	}
	if reply != "OK" {
		b.fail(fmt.Errorf("%s: unexpected reply %q", strings.Fields(req)[0], reply))
	}
}

// exchange sends one request line and reads one reply line.
func (b *Bridge) exchange(req string) (string, error) {
	if err := b.Err(); err != nil {
		return "", err
	}
	if _, err := io.WriteString(b.port, req+"\n"); err != nil {
		return "", b.fail(fmt.Errorf("write %q: %w", req, err))
	}
	reply, err := b.rd.ReadString('\n')
	if err != nil {
		return "", b.fail(fmt.Errorf("read reply to %q: %w", req, err))
	}
	reply = strings.TrimSpace(reply)
	if rest, ok := strings.CutPrefix(reply, "ERR"); ok {
		return "", b.fail(fmt.Errorf("%q rejected:%s", req, rest))
	}
	return reply, nil
}

func (b *Bridge) fail(err error) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err == nil {
		b.err = err
		b.log.Error().Err(err).Msg("bridge failed")
	}
	return b.err
}

func dirCode(d robot.Direction) int {
	if d == robot.Backward {
		return 1
	}
	return 0
}

func parseInts(s string, n int) ([]int, error) {
	fields := strings.Fields(s)
	if len(fields) != n {
		return nil, fmt.Errorf("want %d values, got %d", n, len(fields))
	}
	out := make([]int, n)
	for i, f := range fields {
		v, err := strconv.Atoi(f)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// ErrNoPorts is returned by Ports when no candidate port is present.
var ErrNoPorts = errors.New("no serial ports found")

// Ports lists serial ports that could carry the bridge.
func Ports() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("list ports: %w", err)
	}

	var out []string
	for _, p := range ports {
		// Skip Bluetooth ports on macOS
		if strings.Contains(p, "Bluetooth") {
			continue
		}
		out = append(out, p)
	}
	if len(out) == 0 {
		return nil, ErrNoPorts
	}
	return out, nil
}
