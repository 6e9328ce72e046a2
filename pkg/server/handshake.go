package server

import (
	"context"
	"errors"

	"github.com/vango-dev/engineio/pkg/protocol"
	"github.com/vango-dev/engineio/pkg/socket"
)

// connect performs the handshake for a request without a sid.
func (s *Server) connect(ctx context.Context, env *Environ, transport string) response {
	if s.closed.Load() {
		s.logger.Warn("handshake after shutdown")
		return badRequest()
	}

	sid := newSID()
	sock := s.config.SocketFactory(sid, s.socketConfig(), socketEvents{s})
	if err := s.table.Insert(sid, sock); err != nil {
		s.logger.Error("session insert failed", "error", err)
		return internalError()
	}
	logger := s.logger.With("session_id", sid, "transport", transport)

	var upgrades []string
	if transport == transportPolling && s.config.AllowUpgrades {
		upgrades = []string{transportWebSocket}
	}
	open, err := protocol.NewOpen(protocol.OpenPayload{
		SID:          sid,
		Upgrades:     upgrades,
		PingTimeout:  s.config.PingTimeout.Milliseconds(),
		PingInterval: s.config.PingInterval.Milliseconds(),
	})
	if err == nil {
		err = sock.Send(open)
	}
	if err != nil {
		logger.Error("open packet failed", "error", err)
		s.discard(sid, sock)
		return internalError()
	}

	if err := s.events.trigger(ctx, EventConnect, sid, env); err != nil {
		s.discard(sid, sock)
		if errors.Is(err, ErrConnectionRejected) {
			logger.Warn("application rejected connection")
			return unauthorized()
		}
		logger.Error("connect handler failed", "error", err)
		return internalError()
	}
	s.markAccepted(sid)
	if sock.Closed() {
		// Disconnected while the connect handler ran.
		s.takeAccepted(sid)
		s.table.Remove(sid)
		logger.Warn("session closed during handshake")
		return badRequest()
	}
	logger.Info("session opened", "remote_ip", env.RemoteIP)

	if transport == transportWebSocket {
		return s.getResponse(sid, sock.HandleGet(ctx, env.Writer, env.Request))
	}

	if err := sock.Connect(); err != nil {
		logger.Warn("session connect failed", "error", err)
		s.discard(sid, sock)
		return badRequest()
	}
	res := sock.HandleGet(ctx, env.Writer, env.Request)
	r := s.getResponse(sid, res)
	if res.Outcome == socket.GetDelivered && s.config.Cookie != "" {
		r.addHeader("Set-Cookie", s.config.Cookie+"="+sid)
	}
	return r
}

// discard removes a session that never became usable, then closes it.
func (s *Server) discard(sid string, sock SessionSocket) {
	s.table.Remove(sid)
	if err := sock.Close(); err != nil {
		s.logger.Debug("discarded session close failed", "session_id", sid, "error", err)
	}
}
