package server

import (
	"context"
	"net/http"

	"github.com/vango-dev/engineio/pkg/protocol"
	"github.com/vango-dev/engineio/pkg/socket"
)

// Transport names.
const (
	transportPolling   = "polling"
	transportWebSocket = "websocket"
)

// SessionSocket is the per-session object the engine routes requests to.
// It serializes access to its own queue and lifecycle state.
type SessionSocket interface {
	// ID returns the session id.
	ID() string

	// Send queues a packet for the client.
	Send(pkt protocol.Packet) error

	// Connect marks a handshaking session as served by polling.
	Connect() error

	// HandleGet serves a poll or a WebSocket request.
	HandleGet(ctx context.Context, w http.ResponseWriter, r *http.Request) socket.GetResult

	// HandlePost receives the packets in a POST body.
	HandlePost(ctx context.Context, r *http.Request) socket.PostResult

	// Closed reports whether the session has ended.
	Closed() bool

	// Close ends the session, waking any suspended poll.
	Close() error
}

// SocketFactory creates the socket for a new session. The handler must be
// notified through socket.Handler when the socket closes.
type SocketFactory func(sid string, config socket.Config, handler socket.Handler) SessionSocket

// DefaultSocketFactory creates a *socket.Socket.
func DefaultSocketFactory(sid string, config socket.Config, handler socket.Handler) SessionSocket {
	return socket.New(sid, config, handler)
}
