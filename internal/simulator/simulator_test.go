package simulator

import (
	"context"
	"errors"
	"testing"
	"time"

	"hapticrig/simulator/internal/device"
	"hapticrig/simulator/internal/message"
	"hapticrig/simulator/internal/registry"
)

// session wires a Fake to buffered channels the way a client would.
type session struct {
	fake     *Fake
	registry *registry.Registry
	outbound chan message.ServerMessage
	cancel   context.CancelFunc
	ctx      context.Context
}

func newSession(t *testing.T, roster []message.Device, opts ...Option) *session {
	t.Helper()
	reg := registry.New(nil)
	opts = append([]Option{WithAnnounceDelay(time.Millisecond)}, opts...)
	fake := NewFake(roster, reg, opts...)
	outbound := make(chan message.ServerMessage, 64)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	if err := fake.Connect(ctx, outbound); err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	return &session{fake: fake, registry: reg, outbound: outbound, cancel: cancel, ctx: ctx}
}

func (s *session) next(t *testing.T) message.ServerMessage {
	t.Helper()
	select {
	case msg := <-s.outbound:
		return msg
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for server message")
		return message.ServerMessage{}
	}
}

func (s *session) send(t *testing.T, msg message.ClientMessage) {
	t.Helper()
	if err := s.fake.Send(s.ctx, msg); err != nil {
		t.Fatalf("send %s failed: %v", msg.Kind(), err)
	}
}

func TestConnectAnnouncesRosterInOrder(t *testing.T) {
	//1.- Connect with the full demo roster.
	roster := device.DemoRoster()
	s := newSession(t, roster)

	//2.- Exactly one announcement per entry, in roster order, with the
	// correct identity and capability set.
	for i, want := range roster {
		msg := s.next(t)
		added := msg.DeviceAdded
		if added == nil {
			t.Fatalf("announcement %d is %s, want DeviceAdded", i, msg.Kind())
		}
		if added.DeviceIndex != want.DeviceIndex || added.DeviceName != want.DeviceName {
			t.Fatalf("announcement %d carries device %d %q, want %d %q",
				i, added.DeviceIndex, added.DeviceName, want.DeviceIndex, want.DeviceName)
		}
		if len(added.DeviceMessages.ScalarCmd) != len(want.DeviceMessages.ScalarCmd) ||
			len(added.DeviceMessages.LinearCmd) != len(want.DeviceMessages.LinearCmd) ||
			len(added.DeviceMessages.RotateCmd) != len(want.DeviceMessages.RotateCmd) {
			t.Fatalf("announcement %d capability set mangled: %+v", i, added.DeviceMessages)
		}
	}

	//3.- No extra announcements follow.
	select {
	case extra := <-s.outbound:
		t.Fatalf("unexpected extra message %s", extra.Kind())
	case <-time.After(20 * time.Millisecond):
	}
}

func TestHandshakePreservesCorrelationID(t *testing.T) {
	s := newSession(t, nil)

	s.send(t, message.ClientMessage{RequestServerInfo: &message.RequestServerInfo{
		Id: 17, ClientName: "client under test", MessageVersion: message.CurrentSpecVersion,
	}})

	info := s.next(t).ServerInfo
	if info == nil {
		t.Fatal("expected ServerInfo reply")
	}
	if info.Id != 17 {
		t.Fatalf("correlation id %d, want 17", info.Id)
	}
	if info.ServerName != ServerName || info.MessageVersion != message.CurrentSpecVersion {
		t.Fatalf("unexpected server identity: %+v", info)
	}
}

func TestDeviceListRepliesEmpty(t *testing.T) {
	//1.- Devices travel on the announcement stream, not the list call.
	s := newSession(t, device.DemoRoster())
	s.send(t, message.ClientMessage{RequestDeviceList: &message.RequestDeviceList{Id: 5}})

	for {
		msg := s.next(t)
		if msg.DeviceAdded != nil {
			continue // announcements may interleave
		}
		list := msg.DeviceList
		if list == nil {
			t.Fatalf("expected DeviceList reply, got %s", msg.Kind())
		}
		if list.Id != 5 {
			t.Fatalf("correlation id %d, want 5", list.Id)
		}
		if len(list.Devices) != 0 {
			t.Fatalf("device list must be empty, got %d entries", len(list.Devices))
		}
		return
	}
}

func TestCommandsAreRecordedBeforeAck(t *testing.T) {
	s := newSession(t, []message.Device{device.Vibrator(1, "buzz")})

	//1.- Issue a scalar command and wait for its acknowledgement.
	s.send(t, message.Scalar(30, 1, 0.7, message.ActuatorVibrate))
	for {
		msg := s.next(t)
		if msg.DeviceAdded != nil {
			continue
		}
		if msg.Ok == nil || msg.Ok.Id != 30 {
			t.Fatalf("expected Ok(30), got %+v", msg)
		}
		break
	}

	//2.- The ack guarantees the registry already holds the command.
	calls := s.registry.Calls(1)
	if len(calls) != 1 {
		t.Fatalf("expected 1 recorded command, got %d", len(calls))
	}
	calls[0].AssertStrength(t, 0.7)
}

func TestRecordedPayloadsRoundTripExactly(t *testing.T) {
	roster := []message.Device{
		device.Vibrator(1, "buzz"),
		device.LinearActuator(4, "stroke"),
		device.Rotator(7, "spin"),
	}
	s := newSession(t, roster)

	s.send(t, message.Scalar(1, 1, 0.731, message.ActuatorVibrate))
	s.send(t, message.Linear(2, 4, 500, 0.3))
	s.send(t, message.Rotate(3, 7, 0.42, true))

	//1.- Scalar strength and rotate fields round-trip exactly.
	s.registry.Calls(1)[0].AssertStrength(t, 0.731)
	s.registry.Calls(7)[0].AssertRotation(t, 0.42).AssertDirection(t, true)
	//2.- Linear position is exact, duration within tolerance.
	s.registry.Calls(4)[0].AssertPosition(t, 0.3).AssertDuration(t, 500)
}

func TestScanCommandsAreRecorded(t *testing.T) {
	s := newSession(t, []message.Device{device.Vibrator(2, "buzz")})

	s.send(t, message.ClientMessage{StartScanning: &message.StartScanning{Id: 8, DeviceIndex: 2}})
	s.send(t, message.ClientMessage{StopScanning: &message.StopScanning{Id: 9, DeviceIndex: 2}})

	calls := s.registry.Calls(2)
	if len(calls) != 2 {
		t.Fatalf("expected both scan commands recorded, got %d", len(calls))
	}
	if calls[0].Message.Kind() != message.KindStartScanning || calls[1].Message.Kind() != message.KindStopScanning {
		t.Fatalf("scan commands out of order: %s then %s", calls[0].Message.Kind(), calls[1].Message.Kind())
	}
}

func TestStopAllDevicesIsAckedButNeverRecorded(t *testing.T) {
	s := newSession(t, device.DemoRoster())

	//1.- Issue prior commands so buckets exist.
	s.send(t, message.Scalar(1, 1, 0.5, message.ActuatorVibrate))
	s.send(t, message.ClientMessage{StopAllDevices: &message.StopAllDevices{Id: 40}})

	//2.- The stop-all must be acknowledged with its correlation id.
	sawAck := false
	deadline := time.After(time.Second)
	for !sawAck {
		select {
		case msg := <-s.outbound:
			if msg.Ok != nil && msg.Ok.Id == 40 {
				sawAck = true
			}
		case <-deadline:
			t.Fatal("timeout waiting for stop-all ack")
		}
	}

	//3.- No device sequence may contain it.
	for _, index := range s.registry.Devices() {
		for _, rec := range s.registry.Calls(index) {
			if rec.Message.Kind() == message.KindStopAllDevices {
				t.Fatalf("stop-all recorded under device %d", index)
			}
		}
	}
}

func TestUnmodeledKindIsAckedAndDropped(t *testing.T) {
	s := newSession(t, []message.Device{device.Vibrator(1, "buzz")})

	frame := []byte(`[{"KiirooCmd":{"Id":77,"DeviceIndex":1,"Command":"4"}}]`)
	msgs, err := message.DecodeClientFrame(frame)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	s.send(t, msgs[0])

	//1.- The simulator stays permissive: ack with the foreign id.
	for {
		msg := s.next(t)
		if msg.DeviceAdded != nil {
			continue
		}
		if msg.Ok == nil || msg.Ok.Id != 77 {
			t.Fatalf("expected Ok(77), got %+v", msg)
		}
		break
	}

	//2.- Nothing lands in the ledger.
	s.registry.AssertUnused(t, 1)
}

func TestSendBeforeConnectReportsNotConnected(t *testing.T) {
	fake := NewFake(nil, registry.New(nil))
	err := fake.Send(context.Background(), message.Scalar(1, 1, 0.5, message.ActuatorVibrate))
	if !errors.Is(err, ErrNotConnected) {
		t.Fatalf("expected ErrNotConnected, got %v", err)
	}
}

func TestDisconnectStopsPendingAnnouncements(t *testing.T) {
	//1.- Use a delay long enough that disconnect always wins the race.
	reg := registry.New(nil)
	fake := NewFake(device.DemoRoster(), reg, WithAnnounceDelay(200*time.Millisecond))
	outbound := make(chan message.ServerMessage, 16)
	if err := fake.Connect(context.Background(), outbound); err != nil {
		t.Fatalf("connect failed: %v", err)
	}

	//2.- Disconnect before the announcement delay elapses.
	if err := fake.Disconnect(); err != nil {
		t.Fatalf("disconnect must always succeed, got %v", err)
	}

	select {
	case msg := <-outbound:
		t.Fatalf("announcement %s delivered after disconnect", msg.Kind())
	case <-time.After(300 * time.Millisecond):
	}

	//3.- Sends after disconnect surface the transport condition.
	if err := fake.Send(context.Background(), message.Scalar(1, 1, 0.5, message.ActuatorVibrate)); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("expected ErrNotConnected after disconnect, got %v", err)
	}
}

func TestReconnectReplacesOutboundChannel(t *testing.T) {
	reg := registry.New(nil)
	fake := NewFake([]message.Device{device.Vibrator(1, "buzz")}, reg, WithAnnounceDelay(time.Millisecond))

	first := make(chan message.ServerMessage, 16)
	if err := fake.Connect(context.Background(), first); err != nil {
		t.Fatalf("first connect failed: %v", err)
	}
	if err := fake.Disconnect(); err != nil {
		t.Fatalf("disconnect failed: %v", err)
	}

	second := make(chan message.ServerMessage, 16)
	if err := fake.Connect(context.Background(), second); err != nil {
		t.Fatalf("second connect failed: %v", err)
	}
	select {
	case msg := <-second:
		if msg.DeviceAdded == nil {
			t.Fatalf("expected announcement on new channel, got %s", msg.Kind())
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for announcement on new channel")
	}
}

func TestScenarioMixedRoster(t *testing.T) {
	//1.- Roster: one vibrator (id 1) and one linear actuator (id 4).
	roster := []message.Device{
		device.Vibrator(1, "Vibrator 1"),
		device.LinearActuator(4, "Linear 1"),
	}
	s := newSession(t, roster)
	start := time.Now()

	//2.- The client issues one command per device.
	s.send(t, message.Scalar(1, 1, 0.7, message.ActuatorVibrate))
	s.send(t, message.Linear(2, 4, 500, 0.3))

	//3.- Registry for id 1 holds one entry with exact strength.
	calls := s.registry.Calls(1)
	if len(calls) != 1 {
		t.Fatalf("expected 1 entry for device 1, got %d", len(calls))
	}
	calls[0].AssertStrength(t, 0.7).AssertTimestamp(t, 0, start)

	//4.- Registry for id 4 holds one entry with exact position and
	// duration inside [490,510].
	calls = s.registry.Calls(4)
	if len(calls) != 1 {
		t.Fatalf("expected 1 entry for device 4, got %d", len(calls))
	}
	calls[0].AssertPosition(t, 0.3).AssertDuration(t, 500)

	//5.- An unused id stays empty.
	s.registry.AssertUnused(t, 7)
}
