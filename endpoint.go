package main

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"hapticrig/simulator/internal/admission"
	"hapticrig/simulator/internal/config"
	"hapticrig/simulator/internal/journal"
	"hapticrig/simulator/internal/logging"
	"hapticrig/simulator/internal/message"
	"hapticrig/simulator/internal/registry"
	"hapticrig/simulator/internal/simulator"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// outboundBuffer bounds the number of server messages queued per session
// before the writer goroutine drains them.
const outboundBuffer = 64

// Endpoint exposes the simulated device server over WebSocket. Each
// accepted connection gets its own session with a fresh call registry,
// so concurrent clients never observe each other's commands.
type Endpoint struct {
	cfg     *config.Config
	roster  []message.Device
	log     *logging.Logger
	clock   func() time.Time
	limiter *admission.Limiter
}

// NewEndpoint wires the endpoint with its roster and runtime configuration.
func NewEndpoint(cfg *config.Config, roster []message.Device, log *logging.Logger) *Endpoint {
	return &Endpoint{
		cfg:     cfg,
		roster:  roster,
		log:     log,
		clock:   time.Now,
		limiter: admission.NewLimiter(time.Minute, cfg.SessionsPerMinute, nil),
	}
}

// session bundles the per-connection state torn down when the socket closes.
type session struct {
	id      string
	conn    *websocket.Conn
	fake    *simulator.Fake
	reg     *registry.Registry
	journal *journal.Writer
	start   time.Time
	log     *logging.Logger
}

// Handler builds the HTTP routing surface: the WebSocket endpoint plus a
// liveness probe, both behind trace propagation.
func (e *Endpoint) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", e.serveWS)
	mux.HandleFunc("/healthz", e.serveHealth)
	return logging.HTTPTraceMiddleware(e.log)(mux)
}

func (e *Endpoint) serveHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":  "ok",
		"devices": len(e.roster),
	})
}

func (e *Endpoint) serveWS(w http.ResponseWriter, r *http.Request) {
	logger := logging.LoggerFromContext(r.Context())
	if !e.limiter.Admit() {
		logger.Warn("session refused by admission limiter", logging.String("remote", r.RemoteAddr))
		http.Error(w, "too many sessions", http.StatusTooManyRequests)
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("websocket upgrade failed", logging.Error(err))
		return
	}
	conn.SetReadLimit(e.cfg.MaxPayloadBytes)

	sess, err := e.newSession(conn, logger)
	if err != nil {
		logger.Error("session setup failed", logging.Error(err))
		_ = conn.Close()
		return
	}
	sess.log.Info("session opened", logging.String("remote", r.RemoteAddr))

	ctx, cancel := context.WithCancel(context.Background())
	outbound := make(chan message.ServerMessage, outboundBuffer)
	if err := sess.fake.Connect(ctx, outbound); err != nil {
		sess.log.Error("simulator connect failed", logging.Error(err))
		cancel()
		_ = conn.Close()
		return
	}

	go e.writeLoop(ctx, sess, outbound)
	e.readLoop(ctx, sess)

	cancel()
	_ = sess.fake.Disconnect()
	e.closeSession(sess)
}

func (e *Endpoint) newSession(conn *websocket.Conn, logger *logging.Logger) (*session, error) {
	id := uuid.NewString()
	reg := registry.New(e.clock)
	sessionLog := logger.With(logging.String("session", id))
	fake := simulator.NewFake(e.roster, reg,
		simulator.WithAnnounceDelay(e.cfg.AnnounceDelay),
		simulator.WithLogger(sessionLog),
	)
	sess := &session{
		id:    id,
		conn:  conn,
		fake:  fake,
		reg:   reg,
		start: e.clock(),
		log:   sessionLog,
	}
	if e.cfg.JournalDir != "" {
		writer, _, err := journal.NewWriter(e.cfg.JournalDir, id, e.clock)
		if err != nil {
			return nil, err
		}
		sess.journal = writer
	}
	return sess, nil
}

// writeLoop drains simulator replies onto the wire and keeps the
// connection alive with periodic pings.
func (e *Endpoint) writeLoop(ctx context.Context, sess *session, outbound <-chan message.ServerMessage) {
	ticker := time.NewTicker(e.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		_ = sess.conn.Close()
	}()
	for {
		select {
		case <-ctx.Done():
			_ = sess.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case msg := <-outbound:
			frame, err := message.EncodeServerFrame([]message.ServerMessage{msg})
			if err != nil {
				sess.log.Error("encode reply failed", logging.Error(err))
				continue
			}
			if err := sess.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				sess.log.Warn("write failed", logging.Error(err))
				return
			}
		case <-ticker.C:
			if err := sess.conn.WriteMessage(websocket.PingMessage, []byte{}); err != nil {
				return
			}
		}
	}
}

// readLoop decodes inbound frames and forwards every message to the
// simulator. A malformed frame closes the session; the protocol offers no
// way to recover mid-stream.
func (e *Endpoint) readLoop(ctx context.Context, sess *session) {
	for {
		_, data, err := sess.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				sess.log.Warn("read failed", logging.Error(err))
			}
			return
		}
		msgs, err := message.DecodeClientFrame(data)
		if err != nil {
			sess.log.Warn("malformed frame", logging.Error(err))
			return
		}
		for _, msg := range msgs {
			if err := sess.fake.Send(ctx, msg); err != nil {
				sess.log.Warn("dispatch failed", logging.Error(err), logging.String("kind", string(msg.Kind())))
				return
			}
			e.journalCommand(sess, msg, data)
		}
	}
}

func (e *Endpoint) journalCommand(sess *session, msg message.ClientMessage, raw []byte) {
	if sess.journal == nil {
		return
	}
	index, ok := msg.Device()
	if !ok {
		return
	}
	offsetMs := e.clock().Sub(sess.start).Milliseconds()
	if err := sess.journal.AppendCommand(index, string(msg.Kind()), offsetMs, raw); err != nil {
		sess.log.Warn("journal append failed", logging.Error(err))
	}
}

// closeSession flushes the per-device timelines into the journal and
// releases session resources.
func (e *Endpoint) closeSession(sess *session) {
	if sess.journal != nil {
		for _, index := range sess.reg.Devices() {
			for _, rec := range sess.reg.Calls(index) {
				offsetMs := rec.Time.Sub(sess.start).Milliseconds()
				if err := sess.journal.AppendTimeline(index, offsetMs, rec.Intensity()); err != nil {
					sess.log.Warn("journal timeline failed", logging.Error(err))
					break
				}
			}
		}
		if err := sess.journal.Close(); err != nil {
			sess.log.Warn("journal close failed", logging.Error(err))
		}
	}
	sess.log.Info("session closed", logging.Int("devices_driven", len(sess.reg.Devices())))
}
