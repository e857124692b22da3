package message

import (
	"encoding/json"
	"fmt"
)

// clientAlias strips the methods from ClientMessage so the codec can
// reuse the standard struct marshaling without recursing.
type clientAlias ClientMessage

// MarshalJSON encodes the envelope as a single-key object keyed by kind.
func (m ClientMessage) MarshalJSON() ([]byte, error) {
	if m.UnknownKind != "" {
		payload := m.UnknownPayload
		if payload == nil {
			payload = json.RawMessage("{}")
		}
		return json.Marshal(map[string]json.RawMessage{string(m.UnknownKind): payload})
	}
	return json.Marshal(clientAlias(m))
}

// UnmarshalJSON decodes a single-key object, routing unmodeled kinds
// into the catch-all instead of failing.
func (m *ClientMessage) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode client message: %w", err)
	}
	if len(raw) != 1 {
		return fmt.Errorf("client message must carry exactly one kind, got %d", len(raw))
	}
	*m = ClientMessage{}
	for name, payload := range raw {
		target := m.variantFor(Kind(name))
		if target == nil {
			m.UnknownKind = Kind(name)
			m.UnknownPayload = append(json.RawMessage(nil), payload...)
			return nil
		}
		if err := json.Unmarshal(payload, target); err != nil {
			return fmt.Errorf("decode %s payload: %w", name, err)
		}
	}
	return nil
}

// variantFor allocates the typed payload slot for a modeled kind, or
// nil when the kind falls outside the vocabulary.
func (m *ClientMessage) variantFor(kind Kind) any {
	switch kind {
	case KindRequestServerInfo:
		m.RequestServerInfo = &RequestServerInfo{}
		return m.RequestServerInfo
	case KindRequestDeviceList:
		m.RequestDeviceList = &RequestDeviceList{}
		return m.RequestDeviceList
	case KindScalarCmd:
		m.ScalarCmd = &ScalarCmd{}
		return m.ScalarCmd
	case KindLinearCmd:
		m.LinearCmd = &LinearCmd{}
		return m.LinearCmd
	case KindRotateCmd:
		m.RotateCmd = &RotateCmd{}
		return m.RotateCmd
	case KindStartScanning:
		m.StartScanning = &StartScanning{}
		return m.StartScanning
	case KindStopScanning:
		m.StopScanning = &StopScanning{}
		return m.StopScanning
	case KindStopAllDevices:
		m.StopAllDevices = &StopAllDevices{}
		return m.StopAllDevices
	default:
		return nil
	}
}

// DecodeClientFrame parses a wire frame (JSON array of envelopes).
func DecodeClientFrame(data []byte) ([]ClientMessage, error) {
	var msgs []ClientMessage
	if err := json.Unmarshal(data, &msgs); err != nil {
		return nil, fmt.Errorf("decode client frame: %w", err)
	}
	return msgs, nil
}

// EncodeClientFrame renders envelopes into a wire frame.
func EncodeClientFrame(msgs []ClientMessage) ([]byte, error) {
	data, err := json.Marshal(msgs)
	if err != nil {
		return nil, fmt.Errorf("encode client frame: %w", err)
	}
	return data, nil
}

// DecodeServerFrame parses a server-to-client wire frame.
func DecodeServerFrame(data []byte) ([]ServerMessage, error) {
	var msgs []ServerMessage
	if err := json.Unmarshal(data, &msgs); err != nil {
		return nil, fmt.Errorf("decode server frame: %w", err)
	}
	return msgs, nil
}

// EncodeServerFrame renders server envelopes into a wire frame.
func EncodeServerFrame(msgs []ServerMessage) ([]byte, error) {
	data, err := json.Marshal(msgs)
	if err != nil {
		return nil, fmt.Errorf("encode server frame: %w", err)
	}
	return data, nil
}
