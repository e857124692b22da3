// Package device builds the immutable descriptors a simulated session
// announces to its client, plus convenience factories for the common
// single-capability shapes.
package device

import (
	"encoding/json"
	"fmt"
	"os"

	"hapticrig/simulator/internal/message"
)

// defaultStepCount mirrors the actuator resolution the simulator
// advertises for every factory-built device.
const defaultStepCount uint32 = 10

// Vibrator returns a single-actuator vibrating device descriptor.
func Vibrator(index uint32, name string) message.Device {
	return Scalars(index, name, message.ActuatorVibrate, 1)
}

// Scalars returns a scalar device with count independently addressable
// actuators of the given type.
func Scalars(index uint32, name string, actuator message.ActuatorType, count int) message.Device {
	attrs := make([]message.GenericAttribute, 0, count)
	for i := 0; i < count; i++ {
		attrs = append(attrs, message.GenericAttribute{
			FeatureDescriptor: fmt.Sprintf("Scalar %d", index),
			StepCount:         defaultStepCount,
			ActuatorType:      actuator,
		})
	}
	return message.Device{
		DeviceIndex:    index,
		DeviceName:     name,
		DeviceMessages: message.DeviceMessages{ScalarCmd: attrs},
	}
}

// LinearActuator returns a single-actuator positional device descriptor.
func LinearActuator(index uint32, name string) message.Device {
	return message.Device{
		DeviceIndex: index,
		DeviceName:  name,
		DeviceMessages: message.DeviceMessages{
			LinearCmd: []message.GenericAttribute{{
				FeatureDescriptor: fmt.Sprintf("Position %d", index),
				StepCount:         defaultStepCount,
				ActuatorType:      message.ActuatorPosition,
			}},
		},
	}
}

// Rotator returns a single-motor rotating device descriptor.
func Rotator(index uint32, name string) message.Device {
	return message.Device{
		DeviceIndex: index,
		DeviceName:  name,
		DeviceMessages: message.DeviceMessages{
			RotateCmd: []message.GenericAttribute{{
				FeatureDescriptor: fmt.Sprintf("Rotator %d", index),
				StepCount:         defaultStepCount,
				ActuatorType:      message.ActuatorRotate,
			}},
		},
	}
}

// DemoRoster is the canonical mixed roster used in examples and tests:
// three vibrators, three linear actuators, one rotator.
func DemoRoster() []message.Device {
	return []message.Device{
		Vibrator(1, "Vibrator 1"),
		Vibrator(2, "Vibrator 2"),
		Vibrator(3, "Vibrator 3"),
		LinearActuator(4, "Linear 1"),
		LinearActuator(5, "Linear 2"),
		LinearActuator(6, "Linear 3"),
		Rotator(7, "Rotator 1"),
	}
}

// Supports reports whether the descriptor's capability set accepts the
// given command kind.
func Supports(d message.Device, kind message.Kind) bool {
	switch kind {
	case message.KindScalarCmd:
		return len(d.DeviceMessages.ScalarCmd) > 0
	case message.KindLinearCmd:
		return len(d.DeviceMessages.LinearCmd) > 0
	case message.KindRotateCmd:
		return len(d.DeviceMessages.RotateCmd) > 0
	default:
		return false
	}
}

// LoadRoster reads a JSON roster file and validates that every entry is
// well formed before handing it to a session.
func LoadRoster(path string) ([]message.Device, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read roster file: %w", err)
	}
	var roster []message.Device
	if err := json.Unmarshal(data, &roster); err != nil {
		return nil, fmt.Errorf("parse roster file: %w", err)
	}
	seen := make(map[uint32]struct{}, len(roster))
	for i, d := range roster {
		if d.DeviceIndex == 0 {
			return nil, fmt.Errorf("roster entry %d: device index must be a positive integer", i)
		}
		if d.DeviceName == "" {
			return nil, fmt.Errorf("roster entry %d: device name must be provided", i)
		}
		if _, dup := seen[d.DeviceIndex]; dup {
			return nil, fmt.Errorf("roster entry %d: duplicate device index %d", i, d.DeviceIndex)
		}
		seen[d.DeviceIndex] = struct{}{}
		caps := d.DeviceMessages
		if len(caps.ScalarCmd) == 0 && len(caps.LinearCmd) == 0 && len(caps.RotateCmd) == 0 {
			return nil, fmt.Errorf("roster entry %d: device %q advertises no capabilities", i, d.DeviceName)
		}
	}
	return roster, nil
}
