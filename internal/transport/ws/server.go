package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"factorytycoon.dev/internal/protocol"
	"factorytycoon.dev/internal/sim/session"
)

const (
	defaultQueue = 64
	maxQueue     = 1024

	commandTimeout = 5 * time.Second

	// Idle clients are kept alive by ping/pong; pings go out well inside the
	// read deadline.
	defaultReadTimeout = 60 * time.Second
)

type Server struct {
	sess      *session.Session
	log       *log.Logger
	validator *protocol.Validator

	upgrader websocket.Upgrader

	readTimeout time.Duration
	pingPeriod  time.Duration

	conns   atomic.Int64
	dropped atomic.Uint64
}

type Stats struct {
	Conns   int64
	Dropped uint64
}

// NewServer serves one session. validator may be nil to skip schema checks.
func NewServer(sess *session.Session, validator *protocol.Validator, logger *log.Logger) *Server {
	return &Server{
		sess:      sess,
		log:       logger,
		validator: validator,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
		readTimeout: defaultReadTimeout,
		pingPeriod:  pingPeriodFor(defaultReadTimeout),
	}
}

// SetReadTimeout sets how long a connection may stay silent, pongs included,
// before it is dropped. Pings are sent at 9/10 of it.
func (s *Server) SetReadTimeout(d time.Duration) {
	if d <= 0 {
		d = defaultReadTimeout
	}
	s.readTimeout = d
	s.pingPeriod = pingPeriodFor(d)
}

func pingPeriodFor(d time.Duration) time.Duration { return d * 9 / 10 }

func (s *Server) Stats() Stats {
	return Stats{Conns: s.conns.Load(), Dropped: s.dropped.Load()}
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		obsID, out := s.handshake(ctx, conn)
		if out == nil {
			return
		}
		s.conns.Add(1)
		defer s.conns.Add(-1)
		defer s.sess.Detach(obsID)

		// Writer goroutine; also the only sender of pings.
		go func() {
			ping := time.NewTicker(s.pingPeriod)
			defer ping.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ping.C:
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
						cancel()
						return
					}
				case b := <-out:
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						cancel()
						return
					}
				}
			}
		}()

		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(s.readTimeout))
		})

		// Reader loop.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(s.readTimeout))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				cancel()
				return
			}
			ack := s.handleMessage(ctx, msg)
			b, err := json.Marshal(ack)
			if err != nil {
				continue
			}
			select {
			case out <- b:
			case <-ctx.Done():
				return
			}
		}
	}
}

// handleMessage runs one client command and builds its ACK.
func (s *Server) handleMessage(ctx context.Context, msg []byte) protocol.AckMsg {
	base, err := protocol.DecodeBase(msg)
	if err != nil {
		return badRequest(base, "malformed json")
	}
	ack := protocol.AckMsg{
		Type:            protocol.TypeAck,
		ProtocolVersion: protocol.Version,
		AckFor:          base.Type,
		ReqID:           base.ReqID,
	}
	if base.ProtocolVersion != protocol.Version {
		return badRequest(base, "bad protocol_version")
	}
	if s.validator != nil {
		if err := s.validator.Validate(msg); err != nil {
			return badRequest(base, err.Error())
		}
	}

	var cmd session.Command
	switch base.Type {
	case protocol.TypePurchase:
		var m protocol.PurchaseMsg
		if err := json.Unmarshal(msg, &m); err != nil {
			return badRequest(base, "malformed PURCHASE")
		}
		cmd = session.Command{Kind: session.CmdPurchase, ItemID: strings.TrimSpace(m.ItemID)}
	case protocol.TypeCollect:
		cmd = session.Command{Kind: session.CmdCollectorClick}
	case protocol.TypeReset:
		cmd = session.Command{Kind: session.CmdReset}
	default:
		return badRequest(base, "unsupported message type")
	}

	cctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()
	res, err := s.sess.Do(cctx, cmd)
	ack.ServerTick = res.Tick
	ack.Balance = res.Balance
	ack.Code = res.Code
	switch {
	case err == nil:
		ack.Accepted = true
	case res.Code != "":
		ack.Message = err.Error()
	default:
		// Never reached the loop: stopped session or timeout.
		ack.Code = protocol.ErrBusy
		ack.Message = err.Error()
	}
	return ack
}

func badRequest(base protocol.BaseMessage, msg string) protocol.AckMsg {
	return protocol.AckMsg{
		Type:            protocol.TypeAck,
		ProtocolVersion: protocol.Version,
		AckFor:          base.Type,
		ReqID:           base.ReqID,
		Code:            protocol.ErrProtoBadRequest,
		Message:         msg,
	}
}

func (s *Server) handshake(ctx context.Context, conn *websocket.Conn) (obsID uint64, out chan []byte) {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return 0, nil
	}

	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "expected HELLO"), time.Now().Add(time.Second))
		return 0, nil
	}
	if s.validator != nil {
		if err := s.validator.Validate(msg); err != nil {
			_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "bad HELLO"), time.Now().Add(time.Second))
			return 0, nil
		}
	}

	var hello protocol.HelloMsg
	if err := json.Unmarshal(msg, &hello); err != nil {
		return 0, nil
	}
	if hello.ProtocolVersion != protocol.Version {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "bad protocol_version"), time.Now().Add(time.Second))
		return 0, nil
	}

	maxQ := hello.Capabilities.MaxQueue
	if maxQ <= 0 {
		maxQ = defaultQueue
	}
	if maxQ > maxQueue {
		maxQ = maxQueue
	}
	out = make(chan []byte, maxQ)

	obs := &connObserver{
		out:      out,
		tick:     s.sess.CurrentTick,
		noFrames: hello.Capabilities.NoFrames,
		dropped:  &s.dropped,
	}
	actx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()
	obsID, snap, err := s.sess.Attach(actx, obs)
	if err != nil {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "session unavailable"), time.Now().Add(time.Second))
		return 0, nil
	}

	// WELCOME goes out before the writer starts so it precedes every event.
	if err := writeJSON(conn, WelcomeFor(snap, s.sess.Catalog(), s.sess.Tuning())); err != nil {
		s.sess.Detach(obsID)
		return 0, nil
	}
	if s.log != nil {
		s.log.Printf("client attached name=%q observer=%d", hello.ClientName, obsID)
	}
	return obsID, out
}

// BootstrapHandler serves the WELCOME payload over plain HTTP.
func (s *Server) BootstrapHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), commandTimeout)
		defer cancel()
		snap, err := s.sess.RequestSnapshot(ctx)
		if err != nil {
			http.Error(rw, err.Error(), http.StatusServiceUnavailable)
			return
		}
		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(WelcomeFor(snap, s.sess.Catalog(), s.sess.Tuning()))
	}
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, b)
}
