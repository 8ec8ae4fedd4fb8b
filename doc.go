// Package linebot drives a small differential-drive robot around a grid of
// painted lines.
//
// The robot waits on a proximity tag, follows the line, and at every
// transverse line decides between driving straight on or turning because an
// obstacle blocks the way. Turns are open-loop timed phases closed by
// reflectance thresholds on the two line sensors. A microcontroller owns the
// pins and is driven over a serial link.
//
// # Installation
//
//	go install github.com/gwillem/linebot/cmd/linebot@latest
//
// # Usage
//
// First, pick the serial ports and calibrate the line sensors:
//
//	linebot setup
//
// Then start the mission:
//
//	linebot run
//
// Scenarios can be replayed without hardware:
//
//	linebot replay examples/uturn.yaml
//
// # Packages
//
// The module is organized into the following packages:
//
//   - cmd/linebot: CLI with setup, run, replay, lift and tags commands
//   - pkg/robot: peripheral interfaces, lifter servo and configuration
//   - pkg/line: tri-state classification of line sensor readings
//   - pkg/drive: motor commands with per-side trim
//   - pkg/tuning: navigation thresholds, powers and durations
//   - pkg/maneuver: 90 and 180 degree turn maneuvers
//   - pkg/mission: the navigation state machine
//   - pkg/tag: tag identifier to grid coordinate table
//   - pkg/bridge: serial link to the microcontroller
//   - pkg/autopilot: timed control loop around the mission
//   - pkg/sim: virtual-time robot for tests and replays
package linebot
