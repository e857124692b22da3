// Package simulator emulates a device-control protocol endpoint
// closely enough that a client under test cannot tell it from real
// hardware: handshake, asynchronous device announcements, command
// dispatch with acknowledgements, and durable call recording.
package simulator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"hapticrig/simulator/internal/logging"
	"hapticrig/simulator/internal/message"
	"hapticrig/simulator/internal/registry"
)

// ErrNotConnected signals a delivery attempt over a transport whose
// receiving side no longer exists.
var ErrNotConnected = errors.New("transport not connected")

// DefaultAnnounceDelay gives the client time to register its inbound
// listener before roster announcements start flowing. Long enough to
// lose the race on a loaded host, short enough not to slow tests.
const DefaultAnnounceDelay = 10 * time.Millisecond

// ServerName is the fixed identity reported during the handshake.
const ServerName = "hapticrig simulator"

// Connector is the transport contract a protocol endpoint satisfies,
// so the simulator is substitutable wherever a real connector goes.
type Connector interface {
	Connect(ctx context.Context, outbound chan<- message.ServerMessage) error
	Disconnect() error
	Send(ctx context.Context, msg message.ClientMessage) error
}

// Fake is the simulated endpoint. All client traffic arrives through
// Send; all server traffic leaves through the outbound channel given to
// Connect. The registry is the only shared mutable state.
type Fake struct {
	devices       []message.Device
	registry      *registry.Registry
	logger        *logging.Logger
	announceDelay time.Duration

	mu        sync.Mutex
	outbound  chan<- message.ServerMessage
	connCtx   context.Context
	connStop  context.CancelFunc
	connected bool
}

// Option tunes a Fake at construction time.
type Option func(*Fake)

// WithAnnounceDelay overrides the deferred announcement delay.
func WithAnnounceDelay(d time.Duration) Option {
	return func(f *Fake) { f.announceDelay = d }
}

// WithLogger attaches a structured logger to the endpoint.
func WithLogger(logger *logging.Logger) Option {
	return func(f *Fake) { f.logger = logger }
}

// NewFake builds a simulated endpoint announcing the given roster and
// recording accepted commands into the registry.
func NewFake(devices []message.Device, reg *registry.Registry, opts ...Option) *Fake {
	f := &Fake{
		devices:       append([]message.Device(nil), devices...),
		registry:      reg,
		logger:        logging.NewTestLogger(),
		announceDelay: DefaultAnnounceDelay,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Registry exposes the call ledger backing this endpoint.
func (f *Fake) Registry() *registry.Registry { return f.registry }

// Devices returns a copy of the announced roster.
func (f *Fake) Devices() []message.Device {
	return append([]message.Device(nil), f.devices...)
}

// Connect stores the outbound channel and schedules the deferred
// roster announcements. Announcements stop immediately on Disconnect
// or when ctx is cancelled; a send that can no longer reach a listener
// becomes a no-op rather than an error.
func (f *Fake) Connect(ctx context.Context, outbound chan<- message.ServerMessage) error {
	if outbound == nil {
		return fmt.Errorf("connect: %w", ErrNotConnected)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	connCtx, stop := context.WithCancel(ctx)

	f.mu.Lock()
	if f.connStop != nil {
		f.connStop()
	}
	f.outbound = outbound
	f.connCtx = connCtx
	f.connStop = stop
	f.connected = true
	f.mu.Unlock()

	go f.announce(connCtx, outbound)
	return nil
}

// announce emits one DeviceAdded per roster entry, in roster order,
// after the configured delay.
func (f *Fake) announce(ctx context.Context, outbound chan<- message.ServerMessage) {
	timer := time.NewTimer(f.announceDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return
	case <-timer.C:
	}
	for _, d := range f.devices {
		select {
		case <-ctx.Done():
			return
		case outbound <- message.Announce(d):
			f.logger.Debug("device announced",
				logging.Int("device", int(d.DeviceIndex)),
				logging.String("name", d.DeviceName))
		}
	}
}

// Disconnect tears the session down unconditionally and always
// succeeds. Outstanding announcements become no-ops.
func (f *Fake) Disconnect() error {
	f.mu.Lock()
	if f.connStop != nil {
		f.connStop()
		f.connStop = nil
	}
	f.outbound = nil
	f.connCtx = nil
	f.connected = false
	f.mu.Unlock()
	return nil
}

// Send accepts one client message, dispatches it by kind, and emits the
// protocol-correct reply. Recordable commands are appended to the call
// registry before the acknowledgement leaves, so a client that waits
// for the ack can rely on the registry reflecting the command.
func (f *Fake) Send(ctx context.Context, msg message.ClientMessage) error {
	f.mu.Lock()
	outbound := f.outbound
	connCtx := f.connCtx
	connected := f.connected
	f.mu.Unlock()
	if !connected || outbound == nil {
		return ErrNotConnected
	}

	id := msg.CorrelationID()
	switch msg.Kind() {
	case message.KindRequestServerInfo:
		reply := message.ServerMessage{ServerInfo: &message.ServerInfo{
			Id:             id,
			ServerName:     ServerName,
			MessageVersion: message.CurrentSpecVersion,
			MaxPingTime:    0,
		}}
		return f.deliver(ctx, connCtx, outbound, reply)

	case message.KindRequestDeviceList:
		// Devices are announced on the notification stream, never here.
		reply := message.ServerMessage{DeviceList: &message.DeviceList{Id: id, Devices: []message.Device{}}}
		return f.deliver(ctx, connCtx, outbound, reply)

	case message.KindScalarCmd, message.KindLinearCmd, message.KindRotateCmd,
		message.KindStartScanning, message.KindStopScanning:
		if err := f.registry.Record(msg); err != nil {
			return fmt.Errorf("record %s: %w", msg.Kind(), err)
		}
		return f.deliver(ctx, connCtx, outbound, message.Ack(id))

	case message.KindStopAllDevices:
		// No single owning device, so the ledger intentionally skips it.
		return f.deliver(ctx, connCtx, outbound, message.Ack(id))

	default:
		f.logger.Warn("unmodeled message kind acknowledged",
			logging.String("kind", string(msg.Kind())),
			logging.Int("id", int(id)))
		return f.deliver(ctx, connCtx, outbound, message.Ack(id))
	}
}

// deliver blocks until the reply is accepted or either context ends,
// reporting the latter as a transport-disconnected condition.
func (f *Fake) deliver(ctx, connCtx context.Context, outbound chan<- message.ServerMessage, reply message.ServerMessage) error {
	if ctx == nil {
		ctx = context.Background()
	}
	select {
	case outbound <- reply:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("deliver %s: %w", reply.Kind(), ErrNotConnected)
	case <-connCtx.Done():
		return fmt.Errorf("deliver %s: %w", reply.Kind(), ErrNotConnected)
	}
}
