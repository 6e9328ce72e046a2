package server

import (
	"context"
	"net/http"

	"github.com/vango-dev/engineio/pkg/socket"
)

// handle routes a request. Every path ends in a response.
func (s *Server) handle(ctx context.Context, env *Environ) response {
	if env.jsonp() {
		s.logger.Warn("JSONP requests are not supported")
		return badRequest()
	}

	sid := env.sid()

	switch env.Method {
	case http.MethodGet:
		if sid == "" {
			transport := env.transport()
			if transport != transportPolling && transport != transportWebSocket {
				s.logger.Warn("invalid transport", "transport", transport)
				return badRequest()
			}
			return s.connect(ctx, env, transport)
		}

		sock, ok := s.table.checkout(sid)
		if !ok {
			s.logger.Warn("invalid session", "session_id", sid)
			return badRequest()
		}
		defer s.table.checkin(sid, sock)
		return s.getResponse(sid, sock.HandleGet(ctx, env.Writer, env.Request))

	case http.MethodPost:
		if sid == "" {
			s.logger.Warn("invalid session", "session_id", sid)
			return badRequest()
		}
		sock, ok := s.table.Get(sid)
		if !ok {
			s.logger.Warn("invalid session", "session_id", sid)
			return badRequest()
		}
		// Closed state is not rechecked here, unlike GET.
		res := sock.HandlePost(ctx, env.Request)
		switch res.Outcome {
		case socket.PostDelivered:
			return okResponse(nil)
		case socket.PostMalformed:
			s.logger.Warn("malformed payload", "session_id", sid, "error", res.Err)
			return badRequest()
		default:
			s.logger.Warn("session gone", "session_id", sid, "error", res.Err)
			return badRequest()
		}

	default:
		s.logger.Warn("method not supported", "method", env.Method)
		return methodNotFound()
	}
}

// getResponse maps a socket GET outcome to a response. A closed session is
// purged from the table.
func (s *Server) getResponse(sid string, res socket.GetResult) response {
	switch res.Outcome {
	case socket.GetDelivered:
		return okResponse(res.Packets)
	case socket.GetTakeover:
		return passThrough()
	default:
		s.logger.Warn("session gone", "session_id", sid, "error", res.Err)
		s.table.Remove(sid)
		return badRequest()
	}
}
