// Package message models the device-control protocol vocabulary as a
// closed variant set. Each direction has an envelope type with one
// typed pointer per message kind plus a catch-all for kinds the
// simulator does not model, so upstream vocabulary growth never breaks
// decoding. Wire frames are JSON arrays of single-key objects keyed by
// kind name.
package message

import (
	"encoding/json"
	"fmt"
)

// CurrentSpecVersion is the protocol message version the simulator negotiates.
const CurrentSpecVersion uint32 = 3

// ActuatorType labels the physical output a scalar subcommand drives.
type ActuatorType string

const (
	ActuatorVibrate   ActuatorType = "Vibrate"
	ActuatorOscillate ActuatorType = "Oscillate"
	ActuatorPosition  ActuatorType = "Position"
	ActuatorRotate    ActuatorType = "Rotate"
)

// Kind names a message variant as it appears on the wire.
type Kind string

const (
	KindRequestServerInfo Kind = "RequestServerInfo"
	KindRequestDeviceList Kind = "RequestDeviceList"
	KindScalarCmd         Kind = "ScalarCmd"
	KindLinearCmd         Kind = "LinearCmd"
	KindRotateCmd         Kind = "RotateCmd"
	KindStartScanning     Kind = "StartScanning"
	KindStopScanning      Kind = "StopScanning"
	KindStopAllDevices    Kind = "StopAllDevices"

	KindOk          Kind = "Ok"
	KindServerInfo  Kind = "ServerInfo"
	KindDeviceList  Kind = "DeviceList"
	KindDeviceAdded Kind = "DeviceAdded"

	// KindUnknown covers inbound kinds outside the modeled vocabulary.
	KindUnknown Kind = "Unknown"
)

// GenericAttribute describes one addressable actuator of a capability.
type GenericAttribute struct {
	FeatureDescriptor string       `json:"FeatureDescriptor"`
	StepCount         uint32       `json:"StepCount"`
	ActuatorType      ActuatorType `json:"ActuatorType"`
}

// DeviceMessages is the capability attribute set advertised per device:
// which command kinds it accepts and the actuators behind each.
type DeviceMessages struct {
	ScalarCmd []GenericAttribute `json:"ScalarCmd,omitempty"`
	LinearCmd []GenericAttribute `json:"LinearCmd,omitempty"`
	RotateCmd []GenericAttribute `json:"RotateCmd,omitempty"`
}

// Device is an immutable roster descriptor announced to clients.
type Device struct {
	DeviceIndex    uint32         `json:"DeviceIndex"`
	DeviceName     string         `json:"DeviceName"`
	DeviceMessages DeviceMessages `json:"DeviceMessages"`
}

// RequestServerInfo opens the handshake and names the connecting client.
type RequestServerInfo struct {
	Id             uint32 `json:"Id"`
	ClientName     string `json:"ClientName"`
	MessageVersion uint32 `json:"MessageVersion"`
}

// RequestDeviceList asks the server for its current device roster.
type RequestDeviceList struct {
	Id uint32 `json:"Id"`
}

// ScalarSubcommand sets one single-value actuator output.
type ScalarSubcommand struct {
	Index        uint32       `json:"Index"`
	Scalar       float64      `json:"Scalar"`
	ActuatorType ActuatorType `json:"ActuatorType"`
}

// ScalarCmd drives one or more scalar actuators of a device.
type ScalarCmd struct {
	Id          uint32             `json:"Id"`
	DeviceIndex uint32             `json:"DeviceIndex"`
	Scalars     []ScalarSubcommand `json:"Scalars"`
}

// VectorSubcommand moves one actuator to a position over a duration.
type VectorSubcommand struct {
	Index    uint32  `json:"Index"`
	Duration uint32  `json:"Duration"`
	Position float64 `json:"Position"`
}

// LinearCmd drives one or more positional actuators of a device.
type LinearCmd struct {
	Id          uint32             `json:"Id"`
	DeviceIndex uint32             `json:"DeviceIndex"`
	Vectors     []VectorSubcommand `json:"Vectors"`
}

// RotationSubcommand sets rotational speed and direction for one motor.
type RotationSubcommand struct {
	Index     uint32  `json:"Index"`
	Speed     float64 `json:"Speed"`
	Clockwise bool    `json:"Clockwise"`
}

// RotateCmd drives one or more rotational actuators of a device.
type RotateCmd struct {
	Id          uint32               `json:"Id"`
	DeviceIndex uint32               `json:"DeviceIndex"`
	Rotations   []RotationSubcommand `json:"Rotations"`
}

// StartScanning begins device discovery. The modeled vocabulary scopes
// scans to a device so the call ledger can attribute them.
type StartScanning struct {
	Id          uint32 `json:"Id"`
	DeviceIndex uint32 `json:"DeviceIndex,omitempty"`
}

// StopScanning ends device discovery.
type StopScanning struct {
	Id          uint32 `json:"Id"`
	DeviceIndex uint32 `json:"DeviceIndex,omitempty"`
}

// StopAllDevices halts every connected device at once.
type StopAllDevices struct {
	Id uint32 `json:"Id"`
}

// Ok is the generic acknowledgement carrying the request's correlation id.
type Ok struct {
	Id uint32 `json:"Id"`
}

// ServerInfo answers the handshake with the server identity and the
// negotiated protocol version.
type ServerInfo struct {
	Id             uint32 `json:"Id"`
	ServerName     string `json:"ServerName"`
	MessageVersion uint32 `json:"MessageVersion"`
	MaxPingTime    uint32 `json:"MaxPingTime"`
}

// DeviceList answers RequestDeviceList.
type DeviceList struct {
	Id      uint32   `json:"Id"`
	Devices []Device `json:"Devices"`
}

// DeviceAdded announces a roster entry on the notification stream.
type DeviceAdded struct {
	Id uint32 `json:"Id"`
	Device
}

// ClientMessage is the client-to-server envelope. Exactly one variant
// pointer is set; unmodeled kinds land in Unknown with their raw payload
// preserved.
type ClientMessage struct {
	RequestServerInfo *RequestServerInfo `json:"RequestServerInfo,omitempty"`
	RequestDeviceList *RequestDeviceList `json:"RequestDeviceList,omitempty"`
	ScalarCmd         *ScalarCmd         `json:"ScalarCmd,omitempty"`
	LinearCmd         *LinearCmd         `json:"LinearCmd,omitempty"`
	RotateCmd         *RotateCmd         `json:"RotateCmd,omitempty"`
	StartScanning     *StartScanning     `json:"StartScanning,omitempty"`
	StopScanning      *StopScanning      `json:"StopScanning,omitempty"`
	StopAllDevices    *StopAllDevices    `json:"StopAllDevices,omitempty"`

	UnknownKind    Kind            `json:"-"`
	UnknownPayload json.RawMessage `json:"-"`
}

// Kind reports the variant carried by the envelope.
func (m ClientMessage) Kind() Kind {
	switch {
	case m.RequestServerInfo != nil:
		return KindRequestServerInfo
	case m.RequestDeviceList != nil:
		return KindRequestDeviceList
	case m.ScalarCmd != nil:
		return KindScalarCmd
	case m.LinearCmd != nil:
		return KindLinearCmd
	case m.RotateCmd != nil:
		return KindRotateCmd
	case m.StartScanning != nil:
		return KindStartScanning
	case m.StopScanning != nil:
		return KindStopScanning
	case m.StopAllDevices != nil:
		return KindStopAllDevices
	case m.UnknownKind != "":
		return m.UnknownKind
	default:
		return KindUnknown
	}
}

// CorrelationID returns the message id copied into replies so callers
// can match acknowledgements to requests.
func (m ClientMessage) CorrelationID() uint32 {
	switch {
	case m.RequestServerInfo != nil:
		return m.RequestServerInfo.Id
	case m.RequestDeviceList != nil:
		return m.RequestDeviceList.Id
	case m.ScalarCmd != nil:
		return m.ScalarCmd.Id
	case m.LinearCmd != nil:
		return m.LinearCmd.Id
	case m.RotateCmd != nil:
		return m.RotateCmd.Id
	case m.StartScanning != nil:
		return m.StartScanning.Id
	case m.StopScanning != nil:
		return m.StopScanning.Id
	case m.StopAllDevices != nil:
		return m.StopAllDevices.Id
	case m.UnknownPayload != nil:
		var probe struct {
			Id uint32 `json:"Id"`
		}
		if err := json.Unmarshal(m.UnknownPayload, &probe); err == nil {
			return probe.Id
		}
	}
	return 0
}

// Device reports the owning device index for kinds that address a
// single device. StopAllDevices and handshake traffic report false.
func (m ClientMessage) Device() (uint32, bool) {
	switch {
	case m.ScalarCmd != nil:
		return m.ScalarCmd.DeviceIndex, true
	case m.LinearCmd != nil:
		return m.LinearCmd.DeviceIndex, true
	case m.RotateCmd != nil:
		return m.RotateCmd.DeviceIndex, true
	case m.StartScanning != nil:
		return m.StartScanning.DeviceIndex, true
	case m.StopScanning != nil:
		return m.StopScanning.DeviceIndex, true
	default:
		return 0, false
	}
}

// ServerMessage is the server-to-client envelope.
type ServerMessage struct {
	Ok          *Ok          `json:"Ok,omitempty"`
	ServerInfo  *ServerInfo  `json:"ServerInfo,omitempty"`
	DeviceList  *DeviceList  `json:"DeviceList,omitempty"`
	DeviceAdded *DeviceAdded `json:"DeviceAdded,omitempty"`
}

// Kind reports the variant carried by the envelope.
func (m ServerMessage) Kind() Kind {
	switch {
	case m.Ok != nil:
		return KindOk
	case m.ServerInfo != nil:
		return KindServerInfo
	case m.DeviceList != nil:
		return KindDeviceList
	case m.DeviceAdded != nil:
		return KindDeviceAdded
	default:
		return KindUnknown
	}
}

// CorrelationID returns the id carried by the variant.
func (m ServerMessage) CorrelationID() uint32 {
	switch {
	case m.Ok != nil:
		return m.Ok.Id
	case m.ServerInfo != nil:
		return m.ServerInfo.Id
	case m.DeviceList != nil:
		return m.DeviceList.Id
	case m.DeviceAdded != nil:
		return m.DeviceAdded.Id
	default:
		return 0
	}
}

// Scalar builds a single-actuator scalar command envelope.
func Scalar(id, deviceIndex uint32, strength float64, actuator ActuatorType) ClientMessage {
	return ClientMessage{ScalarCmd: &ScalarCmd{
		Id:          id,
		DeviceIndex: deviceIndex,
		Scalars:     []ScalarSubcommand{{Index: 0, Scalar: strength, ActuatorType: actuator}},
	}}
}

// Linear builds a single-actuator linear command envelope.
func Linear(id, deviceIndex, durationMs uint32, position float64) ClientMessage {
	return ClientMessage{LinearCmd: &LinearCmd{
		Id:          id,
		DeviceIndex: deviceIndex,
		Vectors:     []VectorSubcommand{{Index: 0, Duration: durationMs, Position: position}},
	}}
}

// Rotate builds a single-motor rotate command envelope.
func Rotate(id, deviceIndex uint32, speed float64, clockwise bool) ClientMessage {
	return ClientMessage{RotateCmd: &RotateCmd{
		Id:          id,
		DeviceIndex: deviceIndex,
		Rotations:   []RotationSubcommand{{Index: 0, Speed: speed, Clockwise: clockwise}},
	}}
}

// Announce wraps a roster descriptor into a DeviceAdded notification.
// Server-initiated notifications carry correlation id zero.
func Announce(d Device) ServerMessage {
	return ServerMessage{DeviceAdded: &DeviceAdded{Id: 0, Device: d}}
}

// Ack builds the generic acknowledgement for the given correlation id.
func Ack(id uint32) ServerMessage {
	return ServerMessage{Ok: &Ok{Id: id}}
}

func (m ClientMessage) String() string {
	if idx, ok := m.Device(); ok {
		return fmt.Sprintf("%s(id=%d device=%d)", m.Kind(), m.CorrelationID(), idx)
	}
	return fmt.Sprintf("%s(id=%d)", m.Kind(), m.CorrelationID())
}
